package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs plainto_tsquery over live note bodies and source names owned by
// the reader, ranked with ts_rank and with ts_headline snippets.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text, q.ReaderID}
	argN := 3

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultNote {
		bodyVector := "to_tsvector('english', COALESCE(b.content, ''))"
		noteWhere := fmt.Sprintf("%s @@ %s AND n.reader_id = $2 AND n.deleted IS NULL AND b.deleted IS NULL", bodyVector, tsQuery)
		if q.SourceID != "" {
			noteWhere += fmt.Sprintf(" AND n.source_id = $%d", argN)
			args = append(args, q.SourceID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT DISTINCT ON (n.id) 'note'::text AS type, n.id, b.motivation AS title,
				ts_headline('english', COALESCE(b.content, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				COALESCE(n.source_id, '') AS source_id, COALESCE(n.document, '') AS document,
				b.motivation,
				ts_rank(%s, %s) AS rank
			FROM notes n
			JOIN note_bodies b ON b.note_id = n.id
			WHERE %s
			ORDER BY n.id, rank DESC`, tsQuery, bodyVector, tsQuery, noteWhere))
	}

	if q.FilterType == "" || q.FilterType == ResultSource {
		nameVector := "to_tsvector('english', s.name)"
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'source'::text AS type, s.id, s.name AS title,
				s.type AS snippet,
				s.id AS source_id, ''::text AS document,
				''::text AS motivation,
				ts_rank(%s, %s) AS rank
			FROM sources s
			WHERE %s @@ %s AND s.reader_id = $2 AND s.deleted IS NULL`, nameVector, tsQuery, nameVector, tsQuery))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}
	for i, sub := range subQueries {
		subQueries[i] = "(" + sub + ")"
	}
	union := strings.Join(subQueries, " UNION ALL ")

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub", union)
	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, source_id, document, motivation
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`, union, limit, offset)

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.SourceID, &r.Document, &r.Motivation); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		r.readerID = q.ReaderID
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns every live note and source for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]NoteRecord, []SourceRecord, error) {
	noteRows, err := p.db.QueryContext(ctx, `
		SELECT n.id, n.reader_id, COALESCE(n.source_id, ''), COALESCE(n.document, ''), COALESCE(n.context_id, ''),
			COALESCE(string_agg(b.content, E'\n' ORDER BY b.published), ''),
			COALESCE(json_agg(DISTINCT b.motivation) FILTER (WHERE b.motivation IS NOT NULL), '[]')::text
		FROM notes n
		LEFT JOIN note_bodies b ON b.note_id = n.id AND b.deleted IS NULL
		WHERE n.deleted IS NULL
		GROUP BY n.id
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load notes: %w", err)
	}
	defer noteRows.Close()

	notes := make([]NoteRecord, 0)
	for noteRows.Next() {
		var n NoteRecord
		var motivations string
		if err := noteRows.Scan(&n.ID, &n.ReaderID, &n.SourceID, &n.Document, &n.ContextID, &n.Content, &motivations); err != nil {
			return nil, nil, fmt.Errorf("scan note record: %w", err)
		}
		if err := json.Unmarshal([]byte(motivations), &n.Motivations); err != nil {
			return nil, nil, fmt.Errorf("decode note motivations: %w", err)
		}
		notes = append(notes, n)
	}
	if err := noteRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate note records: %w", err)
	}

	sourceRows, err := p.db.QueryContext(ctx, `
		SELECT id, reader_id, name, type
		FROM sources
		WHERE deleted IS NULL
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load sources: %w", err)
	}
	defer sourceRows.Close()

	sources := make([]SourceRecord, 0)
	for sourceRows.Next() {
		var s SourceRecord
		if err := sourceRows.Scan(&s.ID, &s.ReaderID, &s.Name, &s.Type); err != nil {
			return nil, nil, fmt.Errorf("scan source record: %w", err)
		}
		sources = append(sources, s)
	}
	if err := sourceRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate source records: %w", err)
	}

	return notes, sources, nil
}
