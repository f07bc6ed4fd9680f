package util

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// noteSuffixBytes gives 10 hex characters of entropy per note id.
const noteSuffixBytes = 5

// NewUUID returns a random v4 id for readers, tags, notebooks and other
// supporting rows.
func NewUUID() string {
	return uuid.NewString()
}

// RandomHex returns n random bytes hex-encoded (2n characters).
func RandomHex(n int) string {
	bytes := make([]byte, n)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// NoteID composes a note id from the owning reader and a fresh random suffix.
func NoteID(readerID string) string {
	return URLToID(readerID) + "-" + RandomHex(noteSuffixBytes)
}

// URLToID reduces an externally facing identifier such as
// https://host/notes/abc-123 to its internal id (abc-123). Plain ids are
// returned unchanged.
func URLToID(value string) string {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimRight(trimmed, "/")
	if trimmed == "" {
		return ""
	}
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = strings.TrimRight(trimmed[:i], "/")
	}
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// URLToIDPtr applies URLToID to an optional id, keeping nil and mapping
// blank values to nil.
func URLToIDPtr(value *string) *string {
	if value == nil {
		return nil
	}
	id := URLToID(*value)
	if id == "" {
		return nil
	}
	return &id
}
