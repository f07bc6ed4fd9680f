package search

import (
	"context"
	"errors"
)

var ErrIndexUnavailable = errors.New("search index unavailable")

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultNote   ResultType = "note"
	ResultSource ResultType = "source"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type       ResultType `json:"type"`
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Snippet    string     `json:"snippet"`
	SourceID   string     `json:"sourceId,omitempty"`
	Document   string     `json:"document,omitempty"`
	Motivation string     `json:"motivation,omitempty"`

	readerID string
}

// Query describes a search request. Results never cross ReaderID.
type Query struct {
	Text       string
	ReaderID   string
	FilterType ResultType // empty = all types
	SourceID   string
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// NoteRecord is the data we index for a note: its bodies flattened into one
// searchable text.
type NoteRecord struct {
	ID          string   `json:"id"`
	ReaderID    string   `json:"readerId"`
	Content     string   `json:"content"`
	Motivations []string `json:"motivations"`
	SourceID    string   `json:"sourceId"`
	Document    string   `json:"document"`
	ContextID   string   `json:"contextId"`
}

// SourceRecord is the data we index for a source.
type SourceRecord struct {
	ID       string `json:"id"`
	ReaderID string `json:"readerId"`
	Name     string `json:"name"`
	Type     string `json:"type"`
}
