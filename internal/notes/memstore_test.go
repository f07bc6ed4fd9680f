package notes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"ink/api/internal/store"
)

// memStore is an in-memory Store. InTx snapshots every table and restores
// the snapshot when the callback fails.
type memStore struct {
	now func() time.Time
	seq int

	readers   map[string]store.Reader
	sources   map[string]store.Source
	contexts  map[string]bool
	notes     map[string]store.Note
	bodies    map[string][]store.NoteBody
	outline   map[string]store.OutlineData
	tags      map[string]store.Tag
	noteTags  map[string][]string
	notebooks map[string][]string
	relations []store.NoteRelation

	// Failure hooks; nil means call through.
	insertBodiesErr  error
	copyTagsErr      error
	addToNotebookErr error
	hardDeleteErr    error
	hardDeleted      []string
}

func newMemStore() *memStore {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &memStore{
		now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
		readers:   map[string]store.Reader{},
		sources:   map[string]store.Source{},
		contexts:  map[string]bool{},
		notes:     map[string]store.Note{},
		bodies:    map[string][]store.NoteBody{},
		outline:   map[string]store.OutlineData{},
		tags:      map[string]store.Tag{},
		noteTags:  map[string][]string{},
		notebooks: map[string][]string{},
	}
}

type memSnapshot struct {
	notes     map[string]store.Note
	bodies    map[string][]store.NoteBody
	outline   map[string]store.OutlineData
	noteTags  map[string][]string
	notebooks map[string][]string
	relations []store.NoteRelation
}

func (m *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		notes:     map[string]store.Note{},
		bodies:    map[string][]store.NoteBody{},
		outline:   map[string]store.OutlineData{},
		noteTags:  map[string][]string{},
		notebooks: map[string][]string{},
		relations: append([]store.NoteRelation(nil), m.relations...),
	}
	for k, v := range m.notes {
		snap.notes[k] = v
	}
	for k, v := range m.bodies {
		snap.bodies[k] = append([]store.NoteBody(nil), v...)
	}
	for k, v := range m.outline {
		snap.outline[k] = v
	}
	for k, v := range m.noteTags {
		snap.noteTags[k] = append([]string(nil), v...)
	}
	for k, v := range m.notebooks {
		snap.notebooks[k] = append([]string(nil), v...)
	}
	return snap
}

func (m *memStore) restore(snap memSnapshot) {
	m.notes = snap.notes
	m.bodies = snap.bodies
	m.outline = snap.outline
	m.noteTags = snap.noteTags
	m.notebooks = snap.notebooks
	m.relations = snap.relations
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := m.snapshot()
	if err := fn(ctx); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func fkError(constraint string) error {
	return fmt.Errorf("insert note: %w", &pgconn.PgError{Code: "23503", ConstraintName: constraint})
}

func (m *memStore) InsertNote(_ context.Context, note store.Note) (store.Note, error) {
	if _, ok := m.notes[note.ID]; ok {
		return store.Note{}, fmt.Errorf("insert note: %w", &pgconn.PgError{Code: "23505", ConstraintName: "notes_pkey"})
	}
	if note.SourceID != nil {
		if _, ok := m.sources[*note.SourceID]; !ok {
			return store.Note{}, fkError("note_sourceid_foreign")
		}
	}
	if note.ContextID != nil && !m.contexts[*note.ContextID] {
		return store.Note{}, fkError("note_contextid_foreign")
	}
	now := m.now()
	note.Published = now
	note.Updated = now
	m.notes[note.ID] = note
	return note, nil
}

func (m *memStore) UpdateNote(_ context.Context, note store.Note) (store.Note, bool, error) {
	current, ok := m.notes[note.ID]
	if !ok || current.Deleted != nil {
		return store.Note{}, false, nil
	}
	if note.SourceID != nil {
		if _, ok := m.sources[*note.SourceID]; !ok {
			return store.Note{}, false, fkError("note_sourceid_foreign")
		}
	}
	current.Canonical = note.Canonical
	current.Stylesheet = note.Stylesheet
	current.Target = note.Target
	current.SourceID = note.SourceID
	current.Document = note.Document
	current.ContextID = note.ContextID
	current.JSON = note.JSON
	current.Updated = m.now()
	m.notes[note.ID] = current
	return current, true, nil
}

func (m *memStore) SoftDeleteNote(_ context.Context, noteID string) (store.Note, bool, error) {
	current, ok := m.notes[noteID]
	if !ok || current.Deleted != nil {
		return store.Note{}, false, nil
	}
	now := m.now()
	current.Deleted = &now
	m.notes[noteID] = current
	return current, true, nil
}

func (m *memStore) HardDeleteNote(_ context.Context, noteID string) error {
	if m.hardDeleteErr != nil {
		return m.hardDeleteErr
	}
	m.hardDeleted = append(m.hardDeleted, noteID)
	delete(m.notes, noteID)
	delete(m.bodies, noteID)
	delete(m.outline, noteID)
	delete(m.noteTags, noteID)
	for nb, ids := range m.notebooks {
		m.notebooks[nb] = without(ids, noteID)
	}
	return nil
}

func (m *memStore) GetNote(_ context.Context, noteID string, preset store.Preset) (*store.Note, error) {
	note, ok := m.notes[noteID]
	if !ok || note.Deleted != nil {
		return nil, nil
	}
	note.Body = m.liveBodies(noteID)
	note.Tags = m.liveTags(noteID)
	if data, ok := m.outline[noteID]; ok {
		note.OutlineData = &data
	}
	if preset >= store.PresetCopy {
		if reader, ok := m.readers[note.ReaderID]; ok {
			note.Reader = &reader
		}
	}
	if preset >= store.PresetFull {
		for _, rel := range m.relations {
			if rel.Deleted != nil {
				continue
			}
			if rel.From == noteID {
				if other, ok := m.notes[rel.To]; ok && other.Deleted == nil {
					other.Body = m.liveBodies(other.ID)
					rel.ToNote = &other
					note.RelationsFrom = append(note.RelationsFrom, rel)
				}
			}
			if rel.To == noteID {
				if other, ok := m.notes[rel.From]; ok && other.Deleted == nil {
					other.Body = m.liveBodies(other.ID)
					rel.FromNote = &other
					note.RelationsTo = append(note.RelationsTo, rel)
				}
			}
		}
		if note.SourceID != nil {
			if src, ok := m.sources[*note.SourceID]; ok && src.Deleted == nil {
				note.Source = &src
			}
		}
	}
	return &note, nil
}

// ListNotes applies the same filters and ordering as the Postgres store.
func (m *memStore) ListNotes(_ context.Context, readerID string, filter store.NoteFilter) ([]store.Note, int, error) {
	var matched []store.Note
	for _, note := range m.notes {
		if note.ReaderID != readerID || note.Deleted != nil || !m.matches(note, filter) {
			continue
		}
		note.Body = m.liveBodies(note.ID)
		note.Tags = m.liveTags(note.ID)
		if data, ok := m.outline[note.ID]; ok {
			note.OutlineData = &data
		}
		matched = append(matched, note)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		at, bt := a.Published, b.Published
		if filter.OrderBy == "updated" {
			at, bt = a.Updated, b.Updated
		}
		if !at.Equal(bt) {
			return at.After(bt) != filter.Reverse
		}
		return (a.ID > b.ID) != filter.Reverse
	})
	total := len(matched)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < total {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

func (m *memStore) matches(note store.Note, filter store.NoteFilter) bool {
	if filter.Document != "" && (note.Document == nil || *note.Document != filter.Document) {
		return false
	}
	if filter.SourceID != "" && (note.SourceID == nil || *note.SourceID != filter.SourceID) {
		return false
	}
	if filter.ContextID != "" && (note.ContextID == nil || *note.ContextID != filter.ContextID) {
		return false
	}
	if filter.NotebookID != "" && !contains(m.notebooks[filter.NotebookID], note.ID) {
		return false
	}
	if filter.StackID != "" {
		found := false
		for _, tag := range m.liveTags(note.ID) {
			if tag.ID == filter.StackID && tag.Type == store.StackTagType {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if filter.Motivation != "" || filter.Search != "" {
		motivation, search := filter.Motivation == "", filter.Search == ""
		for _, body := range m.liveBodies(note.ID) {
			if body.Motivation == filter.Motivation {
				motivation = true
			}
			if body.Content != nil && strings.Contains(strings.ToLower(*body.Content), strings.ToLower(filter.Search)) {
				search = true
			}
		}
		if !motivation || !search {
			return false
		}
	}
	return true
}

func (m *memStore) liveTags(noteID string) []store.Tag {
	var out []store.Tag
	for _, tagID := range m.noteTags[noteID] {
		if tag, ok := m.tags[tagID]; ok && tag.Deleted == nil {
			out = append(out, tag)
		}
	}
	return out
}

func (m *memStore) liveBodies(noteID string) []store.NoteBody {
	var out []store.NoteBody
	for _, b := range m.bodies[noteID] {
		if b.Deleted == nil {
			out = append(out, b)
		}
	}
	return out
}

func (m *memStore) InsertBodies(_ context.Context, noteID, readerID string, bodies []store.NoteBody) ([]store.NoteBody, error) {
	if m.insertBodiesErr != nil {
		return nil, m.insertBodiesErr
	}
	created := make([]store.NoteBody, 0, len(bodies))
	for _, body := range bodies {
		if body.Motivation == "" {
			return nil, store.ErrMissingMotivation
		}
		m.seq++
		now := m.now()
		body.ID = fmt.Sprintf("body-%d", m.seq)
		body.NoteID = noteID
		body.ReaderID = readerID
		body.Published = &now
		body.Updated = &now
		created = append(created, body)
	}
	m.bodies[noteID] = append(m.bodies[noteID], created...)
	return created, nil
}

func (m *memStore) DeleteBodies(_ context.Context, noteID string) error {
	delete(m.bodies, noteID)
	return nil
}

func (m *memStore) SoftDeleteBodies(_ context.Context, noteID string) error {
	now := m.now()
	list := m.bodies[noteID]
	for i := range list {
		if list[i].Deleted == nil {
			list[i].Deleted = &now
		}
	}
	return nil
}

func (m *memStore) SaveOutlineData(_ context.Context, readerID string, data store.OutlineData, replace bool) (store.OutlineData, error) {
	for _, ref := range []*string{data.ParentID, data.Previous, data.Next} {
		if ref == nil {
			continue
		}
		target, ok := m.notes[*ref]
		if !ok || target.ReaderID != readerID {
			return store.OutlineData{}, store.ErrOutlineReference
		}
	}
	if _, exists := m.outline[data.NoteID]; exists && !replace {
		return store.OutlineData{}, &pgconn.PgError{Code: "23505", ConstraintName: "outline_data_pkey"}
	}
	m.outline[data.NoteID] = data
	return data, nil
}

func (m *memStore) CopyNoteTags(_ context.Context, fromNoteID, toNoteID string) error {
	if m.copyTagsErr != nil {
		return m.copyTagsErr
	}
	for _, tagID := range m.noteTags[fromNoteID] {
		if !contains(m.noteTags[toNoteID], tagID) {
			m.noteTags[toNoteID] = append(m.noteTags[toNoteID], tagID)
		}
	}
	return nil
}

func (m *memStore) DeleteNoteTags(_ context.Context, noteID string) error {
	delete(m.noteTags, noteID)
	return nil
}

func (m *memStore) AddNoteToNotebook(_ context.Context, notebookID, noteID string) error {
	if m.addToNotebookErr != nil {
		return m.addToNotebookErr
	}
	if contains(m.notebooks[notebookID], noteID) {
		return errors.New("add note to notebook: duplicate")
	}
	m.notebooks[notebookID] = append(m.notebooks[notebookID], noteID)
	return nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func without(list []string, value string) []string {
	out := list[:0:0]
	for _, item := range list {
		if item != value {
			out = append(out, item)
		}
	}
	return out
}
