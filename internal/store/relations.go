package store

import (
	"context"
	"fmt"
)

const relationColumns = `id, reader_id, "from", "to", type, json, published, updated, deleted`

type relationRow struct {
	rel NoteRelation
	raw []byte
}

func (r *relationRow) targets() []any {
	return []any{&r.rel.ID, &r.rel.ReaderID, &r.rel.From, &r.rel.To, &r.rel.Type, &r.raw, &r.rel.Published, &r.rel.Updated, &r.rel.Deleted}
}

func (r *relationRow) value() NoteRelation {
	rel := r.rel
	rel.JSON = rawJSON(r.raw)
	return rel
}

func (s *PostgresStore) CreateRelation(ctx context.Context, rel NoteRelation) (NoteRelation, error) {
	var r relationRow
	err := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO note_relations (id, reader_id, "from", "to", type, json)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		RETURNING `+relationColumns, rel.ID, rel.ReaderID, rel.From, rel.To, rel.Type, jsonArg(rel.JSON)).
		Scan(r.targets()...)
	if err != nil {
		return NoteRelation{}, fmt.Errorf("insert note relation: %w", err)
	}
	return r.value(), nil
}

func (s *PostgresStore) GetRelation(ctx context.Context, relationID string) (NoteRelation, error) {
	var r relationRow
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+relationColumns+`
		FROM note_relations r
		WHERE r.id=$1 AND `+notDeleted("r"), relationID).
		Scan(r.targets()...)
	if err != nil {
		return NoteRelation{}, err
	}
	return r.value(), nil
}

func (s *PostgresStore) SoftDeleteRelation(ctx context.Context, relationID string) (bool, error) {
	result, err := s.q(ctx).ExecContext(ctx, `
		UPDATE note_relations r SET deleted=NOW()
		WHERE r.id=$1 AND `+notDeleted("r"), relationID)
	if err != nil {
		return false, fmt.Errorf("soft delete note relation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("soft delete note relation rows: %w", err)
	}
	return affected > 0, nil
}

// noteRelations loads live relations leaving and entering a note. Each edge
// carries the live note on its far end together with that note's bodies.
func (s *PostgresStore) noteRelations(ctx context.Context, noteID string) ([]NoteRelation, []NoteRelation, error) {
	from, err := s.relationsWhere(ctx, `r."from"`, `r."to"`, noteID)
	if err != nil {
		return nil, nil, err
	}
	to, err := s.relationsWhere(ctx, `r."to"`, `r."from"`, noteID)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]string, 0, len(from)+len(to))
	for _, rel := range from {
		ids = append(ids, rel.To)
	}
	for _, rel := range to {
		ids = append(ids, rel.From)
	}
	if len(ids) == 0 {
		return from, to, nil
	}

	bodies, err := s.bodiesByNote(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	for i := range from {
		from[i].ToNote.Body = bodies[from[i].To]
	}
	for i := range to {
		to[i].FromNote.Body = bodies[to[i].From]
	}
	return from, to, nil
}

func (s *PostgresStore) relationsWhere(ctx context.Context, anchor, far, noteID string) ([]NoteRelation, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+columnsAs("r", relationColumns)+`, `+columnsAs("m", noteColumns)+`
		FROM note_relations r
		JOIN notes m ON m.id = `+far+`
		WHERE `+anchor+` = $1 AND `+notDeleted("r")+` AND `+notDeleted("m")+`
		ORDER BY r.published ASC, r.id ASC
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("list note relations: %w", err)
	}
	defer rows.Close()

	items := make([]NoteRelation, 0)
	for rows.Next() {
		var r relationRow
		var n noteRow
		if err := rows.Scan(append(r.targets(), n.targets()...)...); err != nil {
			return nil, fmt.Errorf("scan note relation: %w", err)
		}
		rel := r.value()
		other := n.value()
		if far == `r."to"` {
			rel.ToNote = &other
		} else {
			rel.FromNote = &other
		}
		items = append(items, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate note relations: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertActivity(ctx context.Context, activity Activity) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO activities (id, reader_id, type, object_type, object_id, json)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
	`, activity.ID, activity.ReaderID, activity.Type, activity.ObjectType, activity.ObjectID, jsonArg(activity.JSON))
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}
