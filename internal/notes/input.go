package notes

import (
	"bytes"
	"encoding/json"
	"fmt"

	"ink/api/internal/store"
	"ink/api/internal/util"
)

// Body is the client-facing shape of a note body.
type Body struct {
	Content          *string `json:"content,omitempty"`
	FormattedContent *string `json:"formattedContent,omitempty"`
	Motivation       string  `json:"motivation"`
	Language         *string `json:"language,omitempty"`
}

// Bodies accepts either a single body object or an array of them.
type Bodies []Body

func (b *Bodies) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*b = nil
		return nil
	case trimmed[0] == '[':
		var list []Body
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		*b = list
		return nil
	case trimmed[0] == '{':
		var one Body
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return err
		}
		*b = Bodies{one}
		return nil
	}
	return fmt.Errorf("body must be an object or an array")
}

func (b Bodies) records() []store.NoteBody {
	out := make([]store.NoteBody, 0, len(b))
	for _, body := range b {
		out = append(out, store.NoteBody{
			Content:          body.Content,
			FormattedContent: body.FormattedContent,
			Motivation:       body.Motivation,
			Language:         body.Language,
		})
	}
	return out
}

// Input is a note payload for create and update. Nullable fields left out of
// the payload are stored as NULL.
type Input struct {
	ID         string          `json:"id,omitempty"`
	Canonical  *string         `json:"canonical"`
	Stylesheet json.RawMessage `json:"stylesheet"`
	Target     json.RawMessage `json:"target"`
	SourceID   *string         `json:"sourceId"`
	JSON       json.RawMessage `json:"json"`
	Document   *string         `json:"document"`
	ContextID  *string         `json:"contextId"`
	ParentID   *string         `json:"parentId"`
	Previous   *string         `json:"previous"`
	Next       *string         `json:"next"`
	Body       Bodies          `json:"body"`

	// Original is set only when copying a note.
	Original *string `json:"-"`
}

func (in Input) hasOutline() bool {
	return in.ParentID != nil || in.Previous != nil || in.Next != nil
}

func (in Input) outline(noteID string) store.OutlineData {
	return store.OutlineData{
		NoteID:   noteID,
		ParentID: util.URLToIDPtr(in.ParentID),
		Previous: util.URLToIDPtr(in.Previous),
		Next:     util.URLToIDPtr(in.Next),
	}
}

// record keeps the persisted subset of the payload.
func (in Input) record(readerID string) store.Note {
	return store.Note{
		ID:         util.URLToID(in.ID),
		ReaderID:   readerID,
		Canonical:  in.Canonical,
		Stylesheet: nullable(in.Stylesheet),
		Target:     nullable(in.Target),
		SourceID:   in.SourceID,
		JSON:       nullable(in.JSON),
		Document:   in.Document,
		ContextID:  in.ContextID,
		Original:   in.Original,
	}
}

// Overlay applies changes field by field, using the payload's JSON names.
// Keys that do not name a payload field are ignored.
func (in Input) Overlay(changes map[string]json.RawMessage) (Input, error) {
	if len(changes) == 0 {
		return in, nil
	}
	encoded, err := json.Marshal(in)
	if err != nil {
		return Input{}, fmt.Errorf("encode note: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return Input{}, fmt.Errorf("decode note fields: %w", err)
	}
	for key, value := range changes {
		fields[key] = value
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return Input{}, fmt.Errorf("encode changes: %w", err)
	}
	var out Input
	if err := json.Unmarshal(merged, &out); err != nil {
		return Input{}, fmt.Errorf("apply changes: %w", err)
	}
	out.Original = in.Original
	return out, nil
}

// inputFromNote rebuilds a payload from a stored note. Bodies keep only
// their content fields.
func inputFromNote(n store.Note) Input {
	in := Input{
		ID:         n.ID,
		Canonical:  n.Canonical,
		Stylesheet: n.Stylesheet,
		Target:     n.Target,
		SourceID:   n.SourceID,
		JSON:       n.JSON,
		Document:   n.Document,
		ContextID:  n.ContextID,
		ParentID:   n.ParentID,
		Previous:   n.Previous,
		Next:       n.Next,
		Original:   n.Original,
	}
	for _, b := range n.Body {
		in.Body = append(in.Body, Body{
			Content:          b.Content,
			FormattedContent: b.FormattedContent,
			Motivation:       b.Motivation,
			Language:         b.Language,
		})
	}
	return in
}

func nullable(raw json.RawMessage) json.RawMessage {
	if store.IsNullJSON(raw) {
		return nil
	}
	return raw
}
