package store

import (
	"context"
	"fmt"
	"strings"

	"ink/api/internal/util"
)

const bodyColumns = "id, note_id, reader_id, content, formatted_content, motivation, language, published, updated, deleted"

func scanBody(row rowScanner) (NoteBody, error) {
	var b NoteBody
	err := row.Scan(&b.ID, &b.NoteID, &b.ReaderID, &b.Content, &b.FormattedContent, &b.Motivation, &b.Language, &b.Published, &b.Updated, &b.Deleted)
	return b, err
}

// InsertBodies persists bodies for a note. Every body needs a motivation.
func (s *PostgresStore) InsertBodies(ctx context.Context, noteID, readerID string, bodies []NoteBody) ([]NoteBody, error) {
	created := make([]NoteBody, 0, len(bodies))
	for _, body := range bodies {
		if strings.TrimSpace(body.Motivation) == "" {
			return nil, ErrMissingMotivation
		}
		row := s.q(ctx).QueryRowContext(ctx, `
			INSERT INTO note_bodies (id, note_id, reader_id, content, formatted_content, motivation, language)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+bodyColumns,
			util.NewUUID(),
			noteID,
			readerID,
			stringArg(body.Content),
			stringArg(body.FormattedContent),
			body.Motivation,
			stringArg(body.Language),
		)
		inserted, err := scanBody(row)
		if err != nil {
			return nil, fmt.Errorf("insert note body: %w", err)
		}
		created = append(created, inserted)
	}
	return created, nil
}

func (s *PostgresStore) DeleteBodies(ctx context.Context, noteID string) error {
	if _, err := s.q(ctx).ExecContext(ctx, `DELETE FROM note_bodies WHERE note_id=$1`, noteID); err != nil {
		return fmt.Errorf("delete note bodies: %w", err)
	}
	return nil
}

func (s *PostgresStore) SoftDeleteBodies(ctx context.Context, noteID string) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		UPDATE note_bodies b SET deleted=NOW()
		WHERE b.note_id=$1 AND `+notDeleted("b"), noteID)
	if err != nil {
		return fmt.Errorf("soft delete note bodies: %w", err)
	}
	return nil
}

func (s *PostgresStore) bodiesByNote(ctx context.Context, noteIDs []string) (map[string][]NoteBody, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+columnsAs("b", bodyColumns)+`
		FROM note_bodies b
		WHERE b.note_id = ANY($1) AND `+notDeleted("b")+`
		ORDER BY b.published ASC, b.id ASC
	`, noteIDs)
	if err != nil {
		return nil, fmt.Errorf("list note bodies: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]NoteBody, len(noteIDs))
	for rows.Next() {
		body, err := scanBody(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note body: %w", err)
		}
		out[body.NoteID] = append(out[body.NoteID], body)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate note bodies: %w", err)
	}
	return out, nil
}
