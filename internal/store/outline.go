package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveOutlineData stores the outline pointers of a note. With replace set an
// existing row is overwritten, otherwise a second row for the note is a unique
// violation. Pointers that do not name a note of readerID are rejected with
// ErrOutlineReference.
func (s *PostgresStore) SaveOutlineData(ctx context.Context, readerID string, data OutlineData, replace bool) (OutlineData, error) {
	conflict := ""
	if replace {
		conflict = `
			ON CONFLICT (note_id) DO UPDATE
			SET parent_id=EXCLUDED.parent_id, previous=EXCLUDED.previous, next=EXCLUDED.next, updated=NOW()`
	}

	var saved OutlineData
	err := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO outline_data (note_id, reader_id, parent_id, previous, next)
		SELECT $1, $2, $3, $4, $5
		WHERE NOT EXISTS (
			SELECT 1
			FROM unnest(ARRAY[$3, $4, $5]::text[]) AS ref(id)
			WHERE ref.id IS NOT NULL
			  AND NOT EXISTS (SELECT 1 FROM notes n WHERE n.id = ref.id AND n.reader_id = $2)
		)`+conflict+`
		RETURNING note_id, parent_id, previous, next
	`, data.NoteID, readerID, stringArg(data.ParentID), stringArg(data.Previous), stringArg(data.Next)).
		Scan(&saved.NoteID, &saved.ParentID, &saved.Previous, &saved.Next)
	if errors.Is(err, sql.ErrNoRows) {
		return OutlineData{}, ErrOutlineReference
	}
	if err != nil {
		return OutlineData{}, fmt.Errorf("save outline data: %w", err)
	}
	return saved, nil
}

func (s *PostgresStore) outlineByNote(ctx context.Context, noteIDs []string) (map[string]OutlineData, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT note_id, parent_id, previous, next
		FROM outline_data
		WHERE note_id = ANY($1)
	`, noteIDs)
	if err != nil {
		return nil, fmt.Errorf("list outline data: %w", err)
	}
	defer rows.Close()

	out := make(map[string]OutlineData, len(noteIDs))
	for rows.Next() {
		var data OutlineData
		if err := rows.Scan(&data.NoteID, &data.ParentID, &data.Previous, &data.Next); err != nil {
			return nil, fmt.Errorf("scan outline data: %w", err)
		}
		out[data.NoteID] = data
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outline data: %w", err)
	}
	return out, nil
}
