// Package notes owns the lifecycle of notes: creation with bodies and
// outline data, hydrated lookup, copying into another context, update,
// soft delete and compensating hard delete.
package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ink/api/internal/store"
	"ink/api/internal/util"
)

type BodyStore interface {
	InsertBodies(ctx context.Context, noteID, readerID string, bodies []store.NoteBody) ([]store.NoteBody, error)
	DeleteBodies(ctx context.Context, noteID string) error
	SoftDeleteBodies(ctx context.Context, noteID string) error
}

type OutlineStore interface {
	SaveOutlineData(ctx context.Context, readerID string, data store.OutlineData, replace bool) (store.OutlineData, error)
}

type TagStore interface {
	CopyNoteTags(ctx context.Context, fromNoteID, toNoteID string) error
	DeleteNoteTags(ctx context.Context, noteID string) error
}

type NotebookStore interface {
	AddNoteToNotebook(ctx context.Context, notebookID, noteID string) error
}

// Store is everything the engine persists through. Calls made with the ctx
// handed to InTx's callback must share one transaction.
type Store interface {
	BodyStore
	OutlineStore
	TagStore
	NotebookStore

	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	InsertNote(ctx context.Context, note store.Note) (store.Note, error)
	UpdateNote(ctx context.Context, note store.Note) (store.Note, bool, error)
	SoftDeleteNote(ctx context.Context, noteID string) (store.Note, bool, error)
	HardDeleteNote(ctx context.Context, noteID string) error
	GetNote(ctx context.Context, noteID string, preset store.Preset) (*store.Note, error)
	ListNotes(ctx context.Context, readerID string, filter store.NoteFilter) ([]store.Note, int, error)
}

type Engine struct {
	store Store
}

func NewEngine(s Store) *Engine {
	return &Engine{store: s}
}

// errGone rolls back a transaction whose target note turned out to be
// missing or already deleted.
var errGone = errors.New("note gone")

// Create persists a note owned by readerID together with its bodies and,
// when any pointer is given, its outline data. Nothing survives a failure.
func (e *Engine) Create(ctx context.Context, readerID string, in Input) (*store.Note, error) {
	if len(in.Body) == 0 {
		return nil, missingBody(opCreate)
	}

	readerID = util.URLToID(readerID)
	record := in.record(readerID)
	record.ID = util.NoteID(readerID)

	var created store.Note
	err := e.store.InTx(ctx, func(ctx context.Context) error {
		inserted, err := e.store.InsertNote(ctx, record)
		if err != nil {
			return translate(opCreate, err)
		}
		bodies, err := e.store.InsertBodies(ctx, inserted.ID, readerID, in.Body.records())
		if err != nil {
			return translate(opCreate, err)
		}
		inserted.Body = bodies

		if in.hasOutline() {
			data, err := e.store.SaveOutlineData(ctx, readerID, in.outline(inserted.ID), false)
			if err != nil {
				return translate(opCreate, err)
			}
			flattenOutline(&inserted, &data)
		}
		created = inserted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateInNotebook creates a note and attaches it to a notebook. If the
// attachment fails the note is removed and the attachment error returned.
func (e *Engine) CreateInNotebook(ctx context.Context, readerID, notebookID string, in Input) (*store.Note, error) {
	created, err := e.Create(ctx, readerID, in)
	if err != nil {
		return nil, err
	}
	if err := e.store.AddNoteToNotebook(ctx, notebookID, created.ID); err != nil {
		if delErr := e.HardDelete(ctx, created.ID); delErr != nil {
			return nil, errors.Join(err, delErr)
		}
		return nil, err
	}
	return created, nil
}

// ByID returns the fully hydrated note, or nil when it is absent or deleted.
func (e *Engine) ByID(ctx context.Context, noteID string) (*store.Note, error) {
	note, err := e.store.GetNote(ctx, util.URLToID(noteID), store.PresetFull)
	if err != nil || note == nil {
		return nil, err
	}

	flattenOutline(note, note.OutlineData)
	note.Relations = make([]store.NoteRelation, 0, len(note.RelationsFrom)+len(note.RelationsTo))
	note.Relations = append(note.Relations, note.RelationsFrom...)
	note.Relations = append(note.Relations, note.RelationsTo...)
	note.RelationsFrom = nil
	note.RelationsTo = nil
	if len(note.Relations) == 0 {
		note.Relations = nil
	}
	// The embedded source replaces the raw reference.
	note.SourceID = nil
	return note, nil
}

// CopyToContext duplicates a note into contextID on behalf of its owner.
// changes overlays payload fields by JSON name before the copy is created.
func (e *Engine) CopyToContext(ctx context.Context, noteID, contextID string, changes map[string]json.RawMessage) (*store.Note, error) {
	source, err := e.store.GetNote(ctx, util.URLToID(noteID), store.PresetCopy)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, ErrNoNote
	}
	flattenOutline(source, source.OutlineData)

	in := inputFromNote(*source)
	in.ContextID = &contextID
	original := source.ID
	in.Original = &original
	if in, err = in.Overlay(changes); err != nil {
		return nil, &ValidationError{Op: opCreate, Field: "changes", Reason: err.Error()}
	}
	in.ID = ""

	readerID := source.ReaderID
	if source.Reader != nil {
		readerID = source.Reader.ID
	}
	created, err := e.Create(ctx, readerID, in)
	if err != nil {
		return nil, err
	}

	if err := e.store.CopyNoteTags(ctx, source.ID, created.ID); err != nil {
		if delErr := e.HardDelete(ctx, created.ID); delErr != nil {
			return nil, errors.Join(err, delErr)
		}
		return nil, err
	}
	return created, nil
}

// Update replaces a live note's mutable fields and all of its bodies, and
// its outline data when any pointer is given. It returns nil when the note
// does not exist or is deleted.
func (e *Engine) Update(ctx context.Context, readerID string, in Input) (*store.Note, error) {
	if len(in.Body) == 0 {
		return nil, missingBody(opUpdate)
	}
	if util.URLToID(in.ID) == "" {
		return nil, &ValidationError{Op: opUpdate, Field: "id", Reason: "id is a required property"}
	}

	readerID = util.URLToID(readerID)
	record := in.record(readerID)

	var updated store.Note
	err := e.store.InTx(ctx, func(ctx context.Context) error {
		note, found, err := e.store.UpdateNote(ctx, record)
		if err != nil {
			return translate(opUpdate, err)
		}
		if !found {
			return errGone
		}
		if err := e.store.DeleteBodies(ctx, note.ID); err != nil {
			return err
		}
		bodies, err := e.store.InsertBodies(ctx, note.ID, readerID, in.Body.records())
		if err != nil {
			return translate(opUpdate, err)
		}
		note.Body = bodies

		if in.hasOutline() {
			data, err := e.store.SaveOutlineData(ctx, readerID, in.outline(note.ID), true)
			if err != nil {
				return translate(opUpdate, err)
			}
			flattenOutline(&note, &data)
		}
		updated = note
		return nil
	})
	if errors.Is(err, errGone) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete soft-deletes a note and its bodies and drops its tag associations.
// It returns nil when the note is absent or already deleted.
func (e *Engine) Delete(ctx context.Context, noteID string) (*store.Note, error) {
	id := util.URLToID(noteID)
	var deleted store.Note
	err := e.store.InTx(ctx, func(ctx context.Context) error {
		if err := e.store.DeleteNoteTags(ctx, id); err != nil {
			return err
		}
		if err := e.store.SoftDeleteBodies(ctx, id); err != nil {
			return err
		}
		note, found, err := e.store.SoftDeleteNote(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return errGone
		}
		deleted = note
		return nil
	})
	if errors.Is(err, errGone) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

// HardDelete removes a note permanently. The engine uses it only to
// compensate a failed multi-step create; inkctl exposes it to operators.
func (e *Engine) HardDelete(ctx context.Context, noteID string) error {
	return e.store.HardDeleteNote(ctx, util.URLToID(noteID))
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListQuery selects a page of a reader's notes.
type ListQuery struct {
	store.NoteFilter
	Page int
}

type Page struct {
	Items      []store.Note `json:"items"`
	TotalItems int          `json:"totalItems"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
}

// List returns one page of a reader's live notes. Page sizes are clamped to
// DefaultPageSize..MaxPageSize. A document filter is not paginated: every
// match comes back as page 1.
func (e *Engine) List(ctx context.Context, readerID string, query ListQuery) (Page, error) {
	filter := query.NoteFilter
	switch {
	case filter.Limit < DefaultPageSize:
		filter.Limit = DefaultPageSize
	case filter.Limit > MaxPageSize:
		filter.Limit = MaxPageSize
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	filter.Offset = (page - 1) * filter.Limit
	if filter.Document != "" {
		page, filter.Limit, filter.Offset = 1, 0, 0
	}
	if filter.OrderBy != "" && filter.OrderBy != "created" && filter.OrderBy != "updated" {
		return Page{}, &ValidationError{Op: "List Notes", Field: "orderBy", Reason: fmt.Sprintf("unsupported orderBy %q", filter.OrderBy)}
	}

	items, total, err := e.store.ListNotes(ctx, util.URLToID(readerID), filter)
	if err != nil {
		return Page{}, err
	}
	for i := range items {
		flattenOutline(&items[i], items[i].OutlineData)
	}
	pageSize := filter.Limit
	if pageSize == 0 {
		pageSize = len(items)
	}
	return Page{Items: items, TotalItems: total, Page: page, PageSize: pageSize}, nil
}

func flattenOutline(note *store.Note, data *store.OutlineData) {
	if data == nil {
		return
	}
	note.ParentID = data.ParentID
	note.Previous = data.Previous
	note.Next = data.Next
}
