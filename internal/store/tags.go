package store

import (
	"context"
	"fmt"
)

const tagColumns = "id, reader_id, name, type, json, published, updated, deleted"

// StackTagType marks tags that group notes into stacks; only these match
// the stack listing filter.
const StackTagType = "reader:Stack"

func scanTag(row rowScanner, extra ...any) (Tag, error) {
	var tag Tag
	var raw []byte
	dest := append(extra, &tag.ID, &tag.ReaderID, &tag.Name, &tag.Type, &raw, &tag.Published, &tag.Updated, &tag.Deleted)
	if err := row.Scan(dest...); err != nil {
		return Tag{}, err
	}
	tag.JSON = rawJSON(raw)
	return tag, nil
}

func (s *PostgresStore) CreateTag(ctx context.Context, tag Tag) (Tag, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO tags (id, reader_id, name, type, json)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		RETURNING `+tagColumns, tag.ID, tag.ReaderID, tag.Name, tag.Type, jsonArg(tag.JSON))
	created, err := scanTag(row)
	if err != nil {
		return Tag{}, fmt.Errorf("insert tag: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetTag(ctx context.Context, tagID string) (Tag, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+columnsAs("t", tagColumns)+`
		FROM tags t
		WHERE t.id=$1 AND `+notDeleted("t"), tagID)
	tag, err := scanTag(row)
	if err != nil {
		return Tag{}, err
	}
	return tag, nil
}

// SoftDeleteTag marks a live tag deleted. It reports false when the tag is
// absent or already deleted. Note associations stay in place and are
// filtered out on read.
func (s *PostgresStore) SoftDeleteTag(ctx context.Context, tagID string) (bool, error) {
	result, err := s.q(ctx).ExecContext(ctx, `
		UPDATE tags SET deleted=NOW(), updated=NOW()
		WHERE id=$1 AND deleted IS NULL
	`, tagID)
	if err != nil {
		return false, fmt.Errorf("delete tag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete tag rows: %w", err)
	}
	return affected > 0, nil
}

// AddTagToNote is idempotent.
func (s *PostgresStore) AddTagToNote(ctx context.Context, noteID, tagID string) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO note_tag (note_id, tag_id) VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT note_tag_noteid_tagid_unique DO NOTHING
	`, noteID, tagID)
	if err != nil {
		return fmt.Errorf("add tag to note: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveTagFromNote(ctx context.Context, noteID, tagID string) (bool, error) {
	result, err := s.q(ctx).ExecContext(ctx, `DELETE FROM note_tag WHERE note_id=$1 AND tag_id=$2`, noteID, tagID)
	if err != nil {
		return false, fmt.Errorf("remove tag from note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove tag from note rows: %w", err)
	}
	return affected > 0, nil
}

// CopyNoteTags gives toNoteID every tag association of fromNoteID.
func (s *PostgresStore) CopyNoteTags(ctx context.Context, fromNoteID, toNoteID string) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO note_tag (note_id, tag_id)
		SELECT $2, tag_id FROM note_tag WHERE note_id=$1
		ON CONFLICT ON CONSTRAINT note_tag_noteid_tagid_unique DO NOTHING
	`, fromNoteID, toNoteID)
	if err != nil {
		return fmt.Errorf("copy note tags: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteNoteTags(ctx context.Context, noteID string) error {
	if _, err := s.q(ctx).ExecContext(ctx, `DELETE FROM note_tag WHERE note_id=$1`, noteID); err != nil {
		return fmt.Errorf("delete note tags: %w", err)
	}
	return nil
}

func (s *PostgresStore) tagsByNote(ctx context.Context, noteIDs []string) (map[string][]Tag, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT nt.note_id, `+columnsAs("t", tagColumns)+`
		FROM note_tag nt
		JOIN tags t ON t.id = nt.tag_id
		WHERE nt.note_id = ANY($1) AND `+notDeleted("t")+`
		ORDER BY t.name ASC
	`, noteIDs)
	if err != nil {
		return nil, fmt.Errorf("list note tags: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Tag, len(noteIDs))
	for rows.Next() {
		var noteID string
		tag, err := scanTag(rows, &noteID)
		if err != nil {
			return nil, fmt.Errorf("scan note tag: %w", err)
		}
		out[noteID] = append(out[noteID], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate note tags: %w", err)
	}
	return out, nil
}

