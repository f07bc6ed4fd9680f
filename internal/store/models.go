package store

import (
	"encoding/json"
	"time"
)

type Reader struct {
	ID          string          `json:"id"`
	AuthID      string          `json:"-"`
	Name        string          `json:"name"`
	Profile     json.RawMessage `json:"profile,omitempty"`
	Preferences json.RawMessage `json:"preferences,omitempty"`
	JSON        json.RawMessage `json:"json,omitempty"`
	Published   time.Time       `json:"published"`
	Updated     time.Time       `json:"updated"`
	Deleted     *time.Time      `json:"deleted,omitempty"`
}

// Source is a publication a reader has added to their library.
type Source struct {
	ID           string          `json:"id"`
	ReaderID     string          `json:"readerId,omitempty"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	Citation     json.RawMessage `json:"citation,omitempty"`
	JSON         json.RawMessage `json:"json,omitempty"`
	Published    *time.Time      `json:"published,omitempty"`
	Updated      *time.Time      `json:"updated,omitempty"`
	Deleted      *time.Time      `json:"deleted,omitempty"`
	Attributions []Attribution   `json:"attributions,omitempty"`
}

type Attribution struct {
	ID            string `json:"id"`
	SourceID      string `json:"sourceId"`
	Role          string `json:"role"`
	Name          string `json:"name"`
	IsContributor bool   `json:"isContributor"`
}

// Document is a file belonging to a source, usually uploaded to object storage.
type Document struct {
	ID           string          `json:"id"`
	ReaderID     string          `json:"readerId"`
	SourceID     string          `json:"sourceId"`
	DocumentPath string          `json:"documentPath"`
	MediaType    string          `json:"mediaType"`
	URL          string          `json:"url"`
	JSON         json.RawMessage `json:"json,omitempty"`
	Published    time.Time       `json:"published"`
	Updated      time.Time       `json:"updated"`
}

type NoteContext struct {
	ID          string          `json:"id"`
	ReaderID    string          `json:"readerId"`
	Type        string          `json:"type"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	JSON        json.RawMessage `json:"json,omitempty"`
	Published   time.Time       `json:"published"`
	Updated     time.Time       `json:"updated"`
	Deleted     *time.Time      `json:"deleted,omitempty"`
}

type Tag struct {
	ID        string          `json:"id"`
	ReaderID  string          `json:"readerId"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	JSON      json.RawMessage `json:"json,omitempty"`
	Published time.Time       `json:"published"`
	Updated   time.Time       `json:"updated"`
	Deleted   *time.Time      `json:"deleted,omitempty"`
}

type Notebook struct {
	ID            string          `json:"id"`
	ReaderID      string          `json:"readerId"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Status        string          `json:"status"`
	Settings      json.RawMessage `json:"settings,omitempty"`
	Published     time.Time       `json:"published"`
	Updated       time.Time       `json:"updated"`
	Deleted       *time.Time      `json:"deleted,omitempty"`
	Collaborators []Collaborator  `json:"collaborators,omitempty"`
}

// Collaborator grants another reader access to a notebook.
type Collaborator struct {
	ID         string          `json:"id"`
	NotebookID string          `json:"notebookId"`
	ReaderID   string          `json:"readerId"`
	Status     string          `json:"status"`
	Permission json.RawMessage `json:"permission,omitempty"`
}

// Note is an annotation owned by a reader. The relation fields below the
// timestamps are only populated when the note is loaded with a Preset.
type Note struct {
	ID         string          `json:"id"`
	ReaderID   string          `json:"readerId"`
	Canonical  *string         `json:"canonical,omitempty"`
	Stylesheet json.RawMessage `json:"stylesheet,omitempty"`
	Target     json.RawMessage `json:"target,omitempty"`
	SourceID   *string         `json:"sourceId,omitempty"`
	Document   *string         `json:"document,omitempty"`
	ContextID  *string         `json:"contextId,omitempty"`
	Original   *string         `json:"original,omitempty"`
	JSON       json.RawMessage `json:"json,omitempty"`
	Published  time.Time       `json:"published"`
	Updated    time.Time       `json:"updated"`
	Deleted    *time.Time      `json:"deleted,omitempty"`

	// Outline pointers flattened from OutlineData.
	ParentID *string `json:"parentId,omitempty"`
	Previous *string `json:"previous,omitempty"`
	Next     *string `json:"next,omitempty"`

	Body          []NoteBody     `json:"body,omitempty"`
	Reader        *Reader        `json:"reader,omitempty"`
	Tags          []Tag          `json:"tags,omitempty"`
	Notebooks     []Notebook     `json:"notebooks,omitempty"`
	Source        *Source        `json:"source,omitempty"`
	Relations     []NoteRelation `json:"relations,omitempty"`
	OutlineData   *OutlineData   `json:"-"`
	RelationsFrom []NoteRelation `json:"-"`
	RelationsTo   []NoteRelation `json:"-"`
}

type NoteBody struct {
	ID               string     `json:"id,omitempty"`
	NoteID           string     `json:"noteId,omitempty"`
	ReaderID         string     `json:"readerId,omitempty"`
	Content          *string    `json:"content,omitempty"`
	FormattedContent *string    `json:"formattedContent,omitempty"`
	Motivation       string     `json:"motivation"`
	Language         *string    `json:"language,omitempty"`
	Published        *time.Time `json:"published,omitempty"`
	Updated          *time.Time `json:"updated,omitempty"`
	Deleted          *time.Time `json:"deleted,omitempty"`
}

type OutlineData struct {
	NoteID   string  `json:"noteId"`
	ParentID *string `json:"parentId"`
	Previous *string `json:"previous"`
	Next     *string `json:"next"`
}

// NoteRelation is a typed edge between two notes of the same reader. FromNote
// and ToNote carry the note on the other end of the edge when hydrated.
type NoteRelation struct {
	ID        string          `json:"id"`
	ReaderID  string          `json:"readerId"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Type      string          `json:"type"`
	JSON      json.RawMessage `json:"json,omitempty"`
	Published time.Time       `json:"published"`
	Updated   time.Time       `json:"updated"`
	Deleted   *time.Time      `json:"deleted,omitempty"`
	FromNote  *Note           `json:"fromNote,omitempty"`
	ToNote    *Note           `json:"toNote,omitempty"`
}

type Activity struct {
	ID         string          `json:"id"`
	ReaderID   string          `json:"readerId"`
	Type       string          `json:"type"`
	ObjectType string          `json:"objectType"`
	ObjectID   string          `json:"objectId"`
	JSON       json.RawMessage `json:"json,omitempty"`
	Published  time.Time       `json:"published"`
}

// NoteFilter narrows ListNotes. Zero values mean "no filter".
type NoteFilter struct {
	Document   string
	SourceID   string
	Motivation string
	Search     string
	StackID    string
	NotebookID string
	ContextID  string
	OrderBy    string // "created" (default) or "updated"
	Reverse    bool
	Limit      int // 0 returns every match
	Offset     int
}
