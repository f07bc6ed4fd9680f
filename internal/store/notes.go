package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Preset names a fixed relation graph loaded alongside a note.
type Preset int

const (
	// PresetList loads bodies, tags and outline data.
	PresetList Preset = iota
	// PresetCopy adds the owning reader.
	PresetCopy
	// PresetFull adds relations in both directions, notebooks with their
	// collaborators and the source with its attributions.
	PresetFull
)

const noteColumns = "id, reader_id, canonical, stylesheet, target, source_id, document, context_id, original, json, published, updated, deleted"

func columnsAs(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, part := range parts {
		parts[i] = alias + "." + part
	}
	return strings.Join(parts, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

// noteRow holds the scan buffers for one note row; jsonb columns arrive as bytes.
type noteRow struct {
	note       Note
	stylesheet []byte
	target     []byte
	raw        []byte
}

func (r *noteRow) targets() []any {
	return []any{
		&r.note.ID,
		&r.note.ReaderID,
		&r.note.Canonical,
		&r.stylesheet,
		&r.target,
		&r.note.SourceID,
		&r.note.Document,
		&r.note.ContextID,
		&r.note.Original,
		&r.raw,
		&r.note.Published,
		&r.note.Updated,
		&r.note.Deleted,
	}
}

func (r *noteRow) value() Note {
	n := r.note
	n.Stylesheet = rawJSON(r.stylesheet)
	n.Target = rawJSON(r.target)
	n.JSON = rawJSON(r.raw)
	return n
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

func scanNote(row rowScanner) (Note, error) {
	var r noteRow
	if err := row.Scan(r.targets()...); err != nil {
		return Note{}, err
	}
	return r.value(), nil
}

func (s *PostgresStore) InsertNote(ctx context.Context, note Note) (Note, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO notes (id, reader_id, canonical, stylesheet, target, source_id, document, context_id, original, json)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, $7, $8, $9, $10::jsonb)
		RETURNING `+noteColumns,
		note.ID,
		note.ReaderID,
		stringArg(note.Canonical),
		jsonArg(note.Stylesheet),
		jsonArg(note.Target),
		stringArg(note.SourceID),
		stringArg(note.Document),
		stringArg(note.ContextID),
		stringArg(note.Original),
		jsonArg(note.JSON),
	)
	inserted, err := scanNote(row)
	if err != nil {
		return Note{}, fmt.Errorf("insert note: %w", err)
	}
	return inserted, nil
}

// UpdateNote overwrites the mutable columns of a live note. The boolean is
// false when the note does not exist or has been soft-deleted.
func (s *PostgresStore) UpdateNote(ctx context.Context, note Note) (Note, bool, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		UPDATE notes n
		SET canonical=$2, stylesheet=$3::jsonb, target=$4::jsonb, source_id=$5, document=$6, context_id=$7, json=$8::jsonb, updated=NOW()
		WHERE n.id=$1 AND `+notDeleted("n")+`
		RETURNING `+columnsAs("n", noteColumns),
		note.ID,
		stringArg(note.Canonical),
		jsonArg(note.Stylesheet),
		jsonArg(note.Target),
		stringArg(note.SourceID),
		stringArg(note.Document),
		stringArg(note.ContextID),
		jsonArg(note.JSON),
	)
	updated, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, false, nil
	}
	if err != nil {
		return Note{}, false, fmt.Errorf("update note: %w", err)
	}
	return updated, true, nil
}

func (s *PostgresStore) SoftDeleteNote(ctx context.Context, noteID string) (Note, bool, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		UPDATE notes n
		SET deleted=NOW()
		WHERE n.id=$1 AND `+notDeleted("n")+`
		RETURNING `+columnsAs("n", noteColumns), noteID)
	deleted, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, false, nil
	}
	if err != nil {
		return Note{}, false, fmt.Errorf("soft delete note: %w", err)
	}
	return deleted, true, nil
}

// HardDeleteNote removes the row; bodies, outline data and join rows cascade.
func (s *PostgresStore) HardDeleteNote(ctx context.Context, noteID string) error {
	if _, err := s.q(ctx).ExecContext(ctx, `DELETE FROM notes WHERE id=$1`, noteID); err != nil {
		return fmt.Errorf("hard delete note: %w", err)
	}
	return nil
}

// GetNote loads a live note and the relation graph named by preset. It
// returns nil when the note is absent or soft-deleted.
func (s *PostgresStore) GetNote(ctx context.Context, noteID string, preset Preset) (*Note, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+columnsAs("n", noteColumns)+`
		FROM notes n
		WHERE n.id=$1 AND `+notDeleted("n"), noteID)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}

	notes := []Note{note}
	if err := s.hydrateList(ctx, notes); err != nil {
		return nil, err
	}
	note = notes[0]

	if preset >= PresetCopy {
		reader, err := s.GetReader(ctx, note.ReaderID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		if err == nil {
			note.Reader = &reader
		}
	}

	if preset >= PresetFull {
		if note.RelationsFrom, note.RelationsTo, err = s.noteRelations(ctx, note.ID); err != nil {
			return nil, err
		}
		if note.Notebooks, err = s.noteNotebooks(ctx, note.ID); err != nil {
			return nil, err
		}
		if note.SourceID != nil {
			if note.Source, err = s.noteSource(ctx, *note.SourceID); err != nil {
				return nil, err
			}
		}
	}
	return &note, nil
}

// hydrateList attaches bodies, tags and outline data to each note in place.
func (s *PostgresStore) hydrateList(ctx context.Context, notes []Note) error {
	if len(notes) == 0 {
		return nil
	}
	ids := make([]string, 0, len(notes))
	for _, n := range notes {
		ids = append(ids, n.ID)
	}

	bodies, err := s.bodiesByNote(ctx, ids)
	if err != nil {
		return err
	}
	tags, err := s.tagsByNote(ctx, ids)
	if err != nil {
		return err
	}
	outlines, err := s.outlineByNote(ctx, ids)
	if err != nil {
		return err
	}

	for i := range notes {
		id := notes[i].ID
		notes[i].Body = bodies[id]
		notes[i].Tags = tags[id]
		if data, ok := outlines[id]; ok {
			d := data
			notes[i].OutlineData = &d
		}
	}
	return nil
}

// ListNotes returns one page of a reader's live notes and the total number
// of notes matching filter.
func (s *PostgresStore) ListNotes(ctx context.Context, readerID string, filter NoteFilter) ([]Note, int, error) {
	where := []string{"n.reader_id = $1", notDeleted("n")}
	args := []any{readerID}
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, strings.ReplaceAll(clause, "$?", fmt.Sprintf("$%d", len(args))))
	}

	if filter.Document != "" {
		add("n.document = $?", filter.Document)
	}
	if filter.SourceID != "" {
		add("n.source_id = $?", filter.SourceID)
	}
	if filter.ContextID != "" {
		add("n.context_id = $?", filter.ContextID)
	}
	if filter.Motivation != "" {
		add("EXISTS (SELECT 1 FROM note_bodies b WHERE b.note_id = n.id AND "+notDeleted("b")+" AND b.motivation = $?)", filter.Motivation)
	}
	if filter.Search != "" {
		add("EXISTS (SELECT 1 FROM note_bodies b WHERE b.note_id = n.id AND "+notDeleted("b")+" AND b.content ILIKE '%' || $? || '%')", filter.Search)
	}
	if filter.StackID != "" {
		add("EXISTS (SELECT 1 FROM note_tag nt JOIN tags t ON t.id = nt.tag_id WHERE nt.note_id = n.id AND "+notDeleted("t")+" AND t.type = '"+StackTagType+"' AND t.id = $?)", filter.StackID)
	}
	if filter.NotebookID != "" {
		add("EXISTS (SELECT 1 FROM notebook_note nn WHERE nn.note_id = n.id AND nn.notebook_id = $?)", filter.NotebookID)
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := s.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM notes n WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
	}

	orderColumn := "n.published"
	if filter.OrderBy == "updated" {
		orderColumn = "n.updated"
	}
	direction := "DESC"
	if filter.Reverse {
		direction = "ASC"
	}
	// LIMIT NULL returns every row.
	var limit any
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM notes n
		WHERE %s
		ORDER BY %s %s, n.id %s
		LIMIT $%d OFFSET $%d
	`, columnsAs("n", noteColumns), whereClause, orderColumn, direction, direction, len(args)-1, len(args))

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	items := make([]Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan note: %w", err)
		}
		items = append(items, note)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate notes: %w", err)
	}

	if err := s.hydrateList(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

