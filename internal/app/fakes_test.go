package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"ink/api/internal/auth"
	"ink/api/internal/config"
	"ink/api/internal/notes"
	"ink/api/internal/search"
	"ink/api/internal/session"
	"ink/api/internal/store"
	"ink/api/internal/storage"
)

const testSecret = "test-secret"

// fakeStore serves readers by auth id from a map and lets each test override
// the calls it cares about.
type fakeStore struct {
	readersByAuth map[string]store.Reader
	activities    []store.Activity

	pingFn               func(context.Context) error
	createReaderFn       func(context.Context, store.Reader) (store.Reader, error)
	getNoteFn            func(context.Context, string, store.Preset) (*store.Note, error)
	isCollaboratorFn     func(context.Context, string, string) (bool, error)
	getNotebookFn        func(context.Context, string) (store.Notebook, error)
	getTagFn             func(context.Context, string) (store.Tag, error)
	softDeleteTagFn      func(context.Context, string) (bool, error)
	getNoteContextFn     func(context.Context, string) (store.NoteContext, error)
	addTagFn             func(context.Context, string, string) error
	getSourceFn          func(context.Context, string) (store.Source, error)
	createDocumentFn     func(context.Context, store.Document) (store.Document, error)
	getRelationFn        func(context.Context, string) (store.NoteRelation, error)
	softDeleteRelationFn func(context.Context, string) (bool, error)
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeStore) CreateReader(ctx context.Context, reader store.Reader) (store.Reader, error) {
	if f.createReaderFn != nil {
		return f.createReaderFn(ctx, reader)
	}
	return reader, nil
}

func (f *fakeStore) GetReader(_ context.Context, readerID string) (store.Reader, error) {
	for _, reader := range f.readersByAuth {
		if reader.ID == readerID {
			return reader, nil
		}
	}
	return store.Reader{}, sql.ErrNoRows
}

func (f *fakeStore) GetReaderByAuthID(_ context.Context, authID string) (store.Reader, error) {
	if reader, ok := f.readersByAuth[authID]; ok {
		return reader, nil
	}
	return store.Reader{}, sql.ErrNoRows
}

func (f *fakeStore) CreateSource(_ context.Context, src store.Source) (store.Source, error) {
	return src, nil
}

func (f *fakeStore) GetSource(ctx context.Context, sourceID string) (store.Source, error) {
	if f.getSourceFn != nil {
		return f.getSourceFn(ctx, sourceID)
	}
	return store.Source{}, sql.ErrNoRows
}

func (f *fakeStore) CreateDocument(ctx context.Context, doc store.Document) (store.Document, error) {
	if f.createDocumentFn != nil {
		return f.createDocumentFn(ctx, doc)
	}
	return doc, nil
}

func (f *fakeStore) CreateNoteContext(_ context.Context, nc store.NoteContext) (store.NoteContext, error) {
	return nc, nil
}

func (f *fakeStore) GetNoteContext(ctx context.Context, contextID string) (store.NoteContext, error) {
	if f.getNoteContextFn != nil {
		return f.getNoteContextFn(ctx, contextID)
	}
	return store.NoteContext{}, sql.ErrNoRows
}

func (f *fakeStore) CreateTag(_ context.Context, tag store.Tag) (store.Tag, error) {
	return tag, nil
}

func (f *fakeStore) GetTag(ctx context.Context, tagID string) (store.Tag, error) {
	if f.getTagFn != nil {
		return f.getTagFn(ctx, tagID)
	}
	return store.Tag{}, sql.ErrNoRows
}

func (f *fakeStore) SoftDeleteTag(ctx context.Context, tagID string) (bool, error) {
	if f.softDeleteTagFn != nil {
		return f.softDeleteTagFn(ctx, tagID)
	}
	return true, nil
}

func (f *fakeStore) AddTagToNote(ctx context.Context, noteID, tagID string) error {
	if f.addTagFn != nil {
		return f.addTagFn(ctx, noteID, tagID)
	}
	return nil
}

func (f *fakeStore) RemoveTagFromNote(context.Context, string, string) (bool, error) {
	return true, nil
}

func (f *fakeStore) CreateNotebook(_ context.Context, nb store.Notebook) (store.Notebook, error) {
	return nb, nil
}

func (f *fakeStore) GetNotebook(ctx context.Context, notebookID string) (store.Notebook, error) {
	if f.getNotebookFn != nil {
		return f.getNotebookFn(ctx, notebookID)
	}
	return store.Notebook{}, sql.ErrNoRows
}

func (f *fakeStore) AddCollaborator(_ context.Context, c store.Collaborator) (store.Collaborator, error) {
	return c, nil
}

func (f *fakeStore) AddNoteToNotebook(context.Context, string, string) error { return nil }

func (f *fakeStore) RemoveNoteFromNotebook(context.Context, string, string) (bool, error) {
	return false, nil
}

func (f *fakeStore) IsNoteCollaborator(ctx context.Context, noteID, readerID string) (bool, error) {
	if f.isCollaboratorFn != nil {
		return f.isCollaboratorFn(ctx, noteID, readerID)
	}
	return false, nil
}

func (f *fakeStore) CreateRelation(_ context.Context, rel store.NoteRelation) (store.NoteRelation, error) {
	return rel, nil
}

func (f *fakeStore) GetRelation(ctx context.Context, relationID string) (store.NoteRelation, error) {
	if f.getRelationFn != nil {
		return f.getRelationFn(ctx, relationID)
	}
	return store.NoteRelation{}, sql.ErrNoRows
}

func (f *fakeStore) SoftDeleteRelation(ctx context.Context, relationID string) (bool, error) {
	if f.softDeleteRelationFn != nil {
		return f.softDeleteRelationFn(ctx, relationID)
	}
	return true, nil
}

func (f *fakeStore) InsertActivity(_ context.Context, activity store.Activity) error {
	f.activities = append(f.activities, activity)
	return nil
}

func (f *fakeStore) GetNote(ctx context.Context, noteID string, preset store.Preset) (*store.Note, error) {
	if f.getNoteFn != nil {
		return f.getNoteFn(ctx, noteID, preset)
	}
	return nil, nil
}

type fakeNotes struct {
	createFn           func(context.Context, string, notes.Input) (*store.Note, error)
	createInNotebookFn func(context.Context, string, string, notes.Input) (*store.Note, error)
	byIDFn             func(context.Context, string) (*store.Note, error)
	copyFn             func(context.Context, string, string, map[string]json.RawMessage) (*store.Note, error)
	updateFn           func(context.Context, string, notes.Input) (*store.Note, error)
	deleteFn           func(context.Context, string) (*store.Note, error)
	listFn             func(context.Context, string, notes.ListQuery) (notes.Page, error)
}

func (f *fakeNotes) Create(ctx context.Context, readerID string, in notes.Input) (*store.Note, error) {
	if f.createFn != nil {
		return f.createFn(ctx, readerID, in)
	}
	return &store.Note{ID: readerID + "-0000000000", ReaderID: readerID}, nil
}

func (f *fakeNotes) CreateInNotebook(ctx context.Context, readerID, notebookID string, in notes.Input) (*store.Note, error) {
	if f.createInNotebookFn != nil {
		return f.createInNotebookFn(ctx, readerID, notebookID, in)
	}
	return f.Create(ctx, readerID, in)
}

func (f *fakeNotes) ByID(ctx context.Context, noteID string) (*store.Note, error) {
	if f.byIDFn != nil {
		return f.byIDFn(ctx, noteID)
	}
	return nil, nil
}

func (f *fakeNotes) CopyToContext(ctx context.Context, noteID, contextID string, changes map[string]json.RawMessage) (*store.Note, error) {
	if f.copyFn != nil {
		return f.copyFn(ctx, noteID, contextID, changes)
	}
	return &store.Note{ID: "copy", ContextID: &contextID}, nil
}

func (f *fakeNotes) Update(ctx context.Context, readerID string, in notes.Input) (*store.Note, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, readerID, in)
	}
	return &store.Note{ID: in.ID, ReaderID: readerID}, nil
}

func (f *fakeNotes) Delete(ctx context.Context, noteID string) (*store.Note, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, noteID)
	}
	return &store.Note{ID: noteID}, nil
}

func (f *fakeNotes) List(ctx context.Context, readerID string, query notes.ListQuery) (notes.Page, error) {
	if f.listFn != nil {
		return f.listFn(ctx, readerID, query)
	}
	return notes.Page{Items: []store.Note{}, Page: 1, PageSize: notes.DefaultPageSize}, nil
}

// fakeSearch records index calls.
type fakeSearch struct {
	mu       sync.Mutex
	indexed  []string
	removed  []string
	sources  []string
	lastText string
	reader   string
}

func (f *fakeSearch) Search(_ context.Context, q search.Query) search.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastText = q.Text
	f.reader = q.ReaderID
	return search.Response{Results: []search.Result{}, Query: q.Text}
}

func (f *fakeSearch) IndexNote(note search.NoteRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, note.ID)
}

func (f *fakeSearch) IndexSource(src search.SourceRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = append(f.sources, src.ID)
}

func (f *fakeSearch) DeleteNote(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
}

type fakeFiles struct {
	uploadFn func(ctx context.Context, sourceID, filename, contentType string, r io.Reader, size int64) (storage.Object, error)
}

func (f *fakeFiles) Upload(ctx context.Context, sourceID, filename, contentType string, r io.Reader, size int64) (storage.Object, error) {
	return f.uploadFn(ctx, sourceID, filename, contentType, r, size)
}

func newTestService(fs *fakeStore, fn *fakeNotes) *Service {
	return &Service{
		cfg: config.Config{
			JWTSecret:  testSecret,
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
		},
		store:  fs,
		notes:  fn,
		search: &fakeSearch{},
		log:    zerolog.Nop(),
	}
}

// withRedisSessions backs svc with a miniredis session store.
func withRedisSessions(t *testing.T, svc *Service) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	sessions, err := session.NewRedisStore(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	t.Cleanup(func() { _ = sessions.Close() })
	svc.sessions = sessions
	return mr
}

func newTestServer(svc *Service) *HTTPServer {
	return NewHTTPServer(svc, "*", zerolog.Nop())
}

// bearerFor signs an access token the test service accepts.
func bearerFor(t *testing.T, authID string) string {
	t.Helper()
	token, _, err := auth.IssueAccessToken([]byte(testSecret), authID, time.Hour)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	return "Bearer " + token
}

// readerStore knows two readers: auth|1 is r1 and auth|2 is r2.
func readerStore() *fakeStore {
	return &fakeStore{readersByAuth: map[string]store.Reader{
		"auth|1": {ID: "r1", AuthID: "auth|1", Name: "Reader One"},
		"auth|2": {ID: "r2", AuthID: "auth|2", Name: "Reader Two"},
	}}
}

func noteOwnedBy(readerID string) func(context.Context, string, store.Preset) (*store.Note, error) {
	return func(_ context.Context, noteID string, _ store.Preset) (*store.Note, error) {
		return &store.Note{ID: noteID, ReaderID: readerID}, nil
	}
}
