package store

import (
	"context"
	"fmt"
)

const readerColumns = "id, auth_id, name, profile, preferences, json, published, updated, deleted"

func scanReader(row rowScanner) (Reader, error) {
	var r Reader
	var profile, preferences, raw []byte
	if err := row.Scan(&r.ID, &r.AuthID, &r.Name, &profile, &preferences, &raw, &r.Published, &r.Updated, &r.Deleted); err != nil {
		return Reader{}, err
	}
	r.Profile = rawJSON(profile)
	r.Preferences = rawJSON(preferences)
	r.JSON = rawJSON(raw)
	return r, nil
}

func (s *PostgresStore) CreateReader(ctx context.Context, reader Reader) (Reader, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO readers (id, auth_id, name, profile, preferences, json)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6::jsonb)
		RETURNING `+readerColumns,
		reader.ID, reader.AuthID, reader.Name, jsonArg(reader.Profile), jsonArg(reader.Preferences), jsonArg(reader.JSON))
	created, err := scanReader(row)
	if err != nil {
		return Reader{}, fmt.Errorf("insert reader: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetReader(ctx context.Context, readerID string) (Reader, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+columnsAs("r", readerColumns)+`
		FROM readers r
		WHERE r.id=$1 AND `+notDeleted("r"), readerID)
	return scanReader(row)
}

func (s *PostgresStore) GetReaderByAuthID(ctx context.Context, authID string) (Reader, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+columnsAs("r", readerColumns)+`
		FROM readers r
		WHERE r.auth_id=$1 AND `+notDeleted("r"), authID)
	return scanReader(row)
}

const sourceColumns = "id, reader_id, name, type, metadata, citation, json, published, updated, deleted"

func scanSource(row rowScanner) (Source, error) {
	var src Source
	var metadata, citation, raw []byte
	if err := row.Scan(&src.ID, &src.ReaderID, &src.Name, &src.Type, &metadata, &citation, &raw, &src.Published, &src.Updated, &src.Deleted); err != nil {
		return Source{}, err
	}
	src.Metadata = rawJSON(metadata)
	src.Citation = rawJSON(citation)
	src.JSON = rawJSON(raw)
	return src, nil
}

// CreateSource inserts a source and its attributions in one transaction.
func (s *PostgresStore) CreateSource(ctx context.Context, src Source) (Source, error) {
	var created Source
	err := s.InTx(ctx, func(ctx context.Context) error {
		row := s.q(ctx).QueryRowContext(ctx, `
			INSERT INTO sources (id, reader_id, name, type, metadata, citation, json)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7::jsonb)
			RETURNING `+sourceColumns,
			src.ID, src.ReaderID, src.Name, src.Type, jsonArg(src.Metadata), jsonArg(src.Citation), jsonArg(src.JSON))
		var err error
		if created, err = scanSource(row); err != nil {
			return fmt.Errorf("insert source: %w", err)
		}
		for _, a := range src.Attributions {
			a.SourceID = created.ID
			if _, err := s.q(ctx).ExecContext(ctx, `
				INSERT INTO attributions (id, source_id, role, name, is_contributor)
				VALUES ($1, $2, $3, $4, $5)
			`, a.ID, a.SourceID, a.Role, a.Name, a.IsContributor); err != nil {
				return fmt.Errorf("insert attribution: %w", err)
			}
			created.Attributions = append(created.Attributions, a)
		}
		return nil
	})
	if err != nil {
		return Source{}, err
	}
	return created, nil
}

func (s *PostgresStore) GetSource(ctx context.Context, sourceID string) (Source, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+columnsAs("s", sourceColumns)+`
		FROM sources s
		WHERE s.id=$1 AND `+notDeleted("s"), sourceID)
	return scanSource(row)
}

// noteSource loads the trimmed source shape embedded in a hydrated note.
func (s *PostgresStore) noteSource(ctx context.Context, sourceID string) (*Source, error) {
	var src Source
	var metadata, citation []byte
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT s.id, s.name, s.type, s.metadata, s.citation
		FROM sources s
		WHERE s.id=$1 AND `+notDeleted("s"), sourceID).
		Scan(&src.ID, &src.Name, &src.Type, &metadata, &citation)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note source: %w", err)
	}
	src.Metadata = rawJSON(metadata)
	src.Citation = rawJSON(citation)

	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, source_id, role, name, is_contributor
		FROM attributions
		WHERE source_id=$1
		ORDER BY published ASC, id ASC
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list attributions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a Attribution
		if err := rows.Scan(&a.ID, &a.SourceID, &a.Role, &a.Name, &a.IsContributor); err != nil {
			return nil, fmt.Errorf("scan attribution: %w", err)
		}
		src.Attributions = append(src.Attributions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attributions: %w", err)
	}
	return &src, nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc Document) (Document, error) {
	var raw []byte
	err := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO documents (id, reader_id, source_id, document_path, media_type, url, json)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
		RETURNING id, reader_id, source_id, document_path, media_type, url, json, published, updated
	`, doc.ID, doc.ReaderID, doc.SourceID, doc.DocumentPath, doc.MediaType, doc.URL, jsonArg(doc.JSON)).
		Scan(&doc.ID, &doc.ReaderID, &doc.SourceID, &doc.DocumentPath, &doc.MediaType, &doc.URL, &raw, &doc.Published, &doc.Updated)
	if err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}
	doc.JSON = rawJSON(raw)
	return doc, nil
}

func (s *PostgresStore) CreateNoteContext(ctx context.Context, nc NoteContext) (NoteContext, error) {
	var raw []byte
	var name, description *string
	err := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO note_contexts (id, reader_id, type, name, description, json)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6::jsonb)
		RETURNING id, reader_id, type, name, description, json, published, updated, deleted
	`, nc.ID, nc.ReaderID, nc.Type, nc.Name, nc.Description, jsonArg(nc.JSON)).
		Scan(&nc.ID, &nc.ReaderID, &nc.Type, &name, &description, &raw, &nc.Published, &nc.Updated, &nc.Deleted)
	if err != nil {
		return NoteContext{}, fmt.Errorf("insert note context: %w", err)
	}
	nc.Name = deref(name)
	nc.Description = deref(description)
	nc.JSON = rawJSON(raw)
	return nc, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func (s *PostgresStore) GetNoteContext(ctx context.Context, contextID string) (NoteContext, error) {
	var nc NoteContext
	var raw []byte
	var name, description *string
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT c.id, c.reader_id, c.type, c.name, c.description, c.json, c.published, c.updated, c.deleted
		FROM note_contexts c
		WHERE c.id=$1 AND `+notDeleted("c"), contextID).
		Scan(&nc.ID, &nc.ReaderID, &nc.Type, &name, &description, &raw, &nc.Published, &nc.Updated, &nc.Deleted)
	if err != nil {
		return NoteContext{}, err
	}
	nc.Name = deref(name)
	nc.Description = deref(description)
	nc.JSON = rawJSON(raw)
	return nc, nil
}
