package store

import (
	"context"
	"fmt"
)

const notebookColumns = "id, reader_id, name, description, status, settings, published, updated, deleted"

func scanNotebook(row rowScanner) (Notebook, error) {
	var nb Notebook
	var settings []byte
	if err := row.Scan(&nb.ID, &nb.ReaderID, &nb.Name, &nb.Description, &nb.Status, &settings, &nb.Published, &nb.Updated, &nb.Deleted); err != nil {
		return Notebook{}, err
	}
	nb.Settings = rawJSON(settings)
	return nb, nil
}

func (s *PostgresStore) CreateNotebook(ctx context.Context, nb Notebook) (Notebook, error) {
	status := nb.Status
	if status == "" {
		status = "active"
	}
	row := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO notebooks (id, reader_id, name, description, status, settings)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		RETURNING `+notebookColumns, nb.ID, nb.ReaderID, nb.Name, nb.Description, status, jsonArg(nb.Settings))
	created, err := scanNotebook(row)
	if err != nil {
		return Notebook{}, fmt.Errorf("insert notebook: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetNotebook(ctx context.Context, notebookID string) (Notebook, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+columnsAs("nb", notebookColumns)+`
		FROM notebooks nb
		WHERE nb.id=$1 AND `+notDeleted("nb"), notebookID)
	nb, err := scanNotebook(row)
	if err != nil {
		return Notebook{}, err
	}
	collaborators, err := s.collaboratorsByNotebook(ctx, []string{nb.ID})
	if err != nil {
		return Notebook{}, err
	}
	nb.Collaborators = collaborators[nb.ID]
	return nb, nil
}

func (s *PostgresStore) AddCollaborator(ctx context.Context, c Collaborator) (Collaborator, error) {
	status := c.Status
	if status == "" {
		status = "pending"
	}
	var permission []byte
	err := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO collaborators (id, notebook_id, reader_id, status, permission)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		ON CONFLICT ON CONSTRAINT collaborators_notebookid_readerid_unique
		DO UPDATE SET status=EXCLUDED.status, permission=EXCLUDED.permission
		RETURNING id, notebook_id, reader_id, status, permission
	`, c.ID, c.NotebookID, c.ReaderID, status, jsonArg(c.Permission)).
		Scan(&c.ID, &c.NotebookID, &c.ReaderID, &c.Status, &permission)
	if err != nil {
		return Collaborator{}, fmt.Errorf("upsert collaborator: %w", err)
	}
	c.Permission = rawJSON(permission)
	return c, nil
}

// AddNoteToNotebook attaches a note. Constraint violations are returned
// wrapped so callers can inspect ConstraintName.
func (s *PostgresStore) AddNoteToNotebook(ctx context.Context, notebookID, noteID string) error {
	_, err := s.q(ctx).ExecContext(ctx, `INSERT INTO notebook_note (notebook_id, note_id) VALUES ($1, $2)`, notebookID, noteID)
	if err != nil {
		return fmt.Errorf("add note to notebook: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveNoteFromNotebook(ctx context.Context, notebookID, noteID string) (bool, error) {
	result, err := s.q(ctx).ExecContext(ctx, `DELETE FROM notebook_note WHERE notebook_id=$1 AND note_id=$2`, notebookID, noteID)
	if err != nil {
		return false, fmt.Errorf("remove note from notebook: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove note from notebook rows: %w", err)
	}
	return affected > 0, nil
}

// IsNoteCollaborator reports whether readerID is an accepted collaborator
// on any live notebook containing the note.
func (s *PostgresStore) IsNoteCollaborator(ctx context.Context, noteID, readerID string) (bool, error) {
	var ok bool
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM notebook_note nn
			JOIN notebooks nb ON nb.id = nn.notebook_id
			JOIN collaborators c ON c.notebook_id = nb.id
			WHERE nn.note_id = $1 AND c.reader_id = $2 AND c.status = 'accepted' AND `+notDeleted("nb")+`
		)
	`, noteID, readerID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check note collaborator: %w", err)
	}
	return ok, nil
}

func (s *PostgresStore) noteNotebooks(ctx context.Context, noteID string) ([]Notebook, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+columnsAs("nb", notebookColumns)+`
		FROM notebook_note nn
		JOIN notebooks nb ON nb.id = nn.notebook_id
		WHERE nn.note_id=$1 AND `+notDeleted("nb")+`
		ORDER BY nb.name ASC
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("list note notebooks: %w", err)
	}
	defer rows.Close()

	items := make([]Notebook, 0)
	for rows.Next() {
		nb, err := scanNotebook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notebook: %w", err)
		}
		items = append(items, nb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notebooks: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(items))
	for _, nb := range items {
		ids = append(ids, nb.ID)
	}
	collaborators, err := s.collaboratorsByNotebook(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Collaborators = collaborators[items[i].ID]
	}
	return items, nil
}

func (s *PostgresStore) collaboratorsByNotebook(ctx context.Context, notebookIDs []string) (map[string][]Collaborator, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, notebook_id, reader_id, status, permission
		FROM collaborators
		WHERE notebook_id = ANY($1)
		ORDER BY published ASC
	`, notebookIDs)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Collaborator, len(notebookIDs))
	for rows.Next() {
		var c Collaborator
		var permission []byte
		if err := rows.Scan(&c.ID, &c.NotebookID, &c.ReaderID, &c.Status, &permission); err != nil {
			return nil, fmt.Errorf("scan collaborator: %w", err)
		}
		c.Permission = rawJSON(permission)
		out[c.NotebookID] = append(out[c.NotebookID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collaborators: %w", err)
	}
	return out, nil
}
