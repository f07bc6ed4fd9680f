package search

import (
	"strings"

	"ink/api/internal/store"
)

// NoteRecordFrom flattens a note and its live bodies into an index record.
func NoteRecordFrom(n store.Note) NoteRecord {
	rec := NoteRecord{
		ID:          n.ID,
		ReaderID:    n.ReaderID,
		SourceID:    deref(n.SourceID),
		Document:    deref(n.Document),
		ContextID:   deref(n.ContextID),
		Motivations: []string{},
	}
	var content []string
	seen := map[string]bool{}
	for _, b := range n.Body {
		if b.Deleted != nil {
			continue
		}
		if b.Content != nil && strings.TrimSpace(*b.Content) != "" {
			content = append(content, *b.Content)
		}
		if !seen[b.Motivation] {
			seen[b.Motivation] = true
			rec.Motivations = append(rec.Motivations, b.Motivation)
		}
	}
	rec.Content = strings.Join(content, "\n")
	return rec
}

func SourceRecordFrom(s store.Source) SourceRecord {
	return SourceRecord{ID: s.ID, ReaderID: s.ReaderID, Name: s.Name, Type: s.Type}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
