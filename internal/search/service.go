package search

import (
	"context"

	"github.com/rs/zerolog"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
	log   zerolog.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS, log zerolog.Logger) *Service {
	return &Service{meili: meili, pgfts: pgfts, log: log.With().Str("component", "search").Logger()}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: ownedBy(nonNil(results), q.ReaderID), Total: total, Query: q.Text}
		}
		s.log.Warn().Err(err).Msg("meilisearch error, falling back to pgfts")
	}

	if s.pgfts == nil {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.pgfts.Search(ctx, q)
	if err != nil {
		s.log.Warn().Err(err).Msg("pgfts error")
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexNote indexes a note (fire-and-forget to Meilisearch).
func (s *Service) IndexNote(note NoteRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexNotes([]NoteRecord{note}); err != nil {
			s.log.Warn().Err(err).Str("note_id", note.ID).Msg("index note")
		}
	}()
}

// IndexSource indexes a source (fire-and-forget to Meilisearch).
func (s *Service) IndexSource(src SourceRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexSources([]SourceRecord{src}); err != nil {
			s.log.Warn().Err(err).Str("source_id", src.ID).Msg("index source")
		}
	}()
}

// DeleteNote removes a note from the search index (fire-and-forget).
func (s *Service) DeleteNote(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteNote(id); err != nil {
			s.log.Warn().Err(err).Str("note_id", id).Msg("delete note from index")
		}
	}()
}

// ReindexAll reads every live note and source from PG and pushes them to
// Meilisearch synchronously. It returns the number of records pushed.
func (s *Service) ReindexAll(ctx context.Context) (int, error) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return 0, ErrIndexUnavailable
	}
	notes, sources, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.meili.IndexNotes(notes); err != nil {
		return 0, err
	}
	if err := s.meili.IndexSources(sources); err != nil {
		return len(notes), err
	}
	return len(notes) + len(sources), nil
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}

// ownedBy drops hits that belong to another reader.
func ownedBy(results []Result, readerID string) []Result {
	if readerID == "" {
		return results
	}
	filtered := make([]Result, 0, len(results))
	for _, result := range results {
		if result.readerID != "" && result.readerID != readerID {
			continue
		}
		filtered = append(filtered, result)
	}
	return filtered
}
