package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ink/api/internal/auth"
	"ink/api/internal/config"
	"ink/api/internal/notes"
	"ink/api/internal/rbac"
	"ink/api/internal/search"
	"ink/api/internal/session"
	"ink/api/internal/store"
	"ink/api/internal/storage"
	"ink/api/internal/util"
)

// Session is the authenticated caller. ReaderID is empty until the caller
// has created their reader.
type Session struct {
	Token        string
	RefreshToken string
	AuthID       string
	ReaderID     string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	Ping(ctx context.Context) error
	CreateReader(context.Context, store.Reader) (store.Reader, error)
	GetReader(context.Context, string) (store.Reader, error)
	GetReaderByAuthID(context.Context, string) (store.Reader, error)
	CreateSource(context.Context, store.Source) (store.Source, error)
	GetSource(context.Context, string) (store.Source, error)
	CreateDocument(context.Context, store.Document) (store.Document, error)
	CreateNoteContext(context.Context, store.NoteContext) (store.NoteContext, error)
	GetNoteContext(context.Context, string) (store.NoteContext, error)
	CreateTag(context.Context, store.Tag) (store.Tag, error)
	GetTag(context.Context, string) (store.Tag, error)
	SoftDeleteTag(context.Context, string) (bool, error)
	AddTagToNote(context.Context, string, string) error
	RemoveTagFromNote(context.Context, string, string) (bool, error)
	CreateNotebook(context.Context, store.Notebook) (store.Notebook, error)
	GetNotebook(context.Context, string) (store.Notebook, error)
	AddCollaborator(context.Context, store.Collaborator) (store.Collaborator, error)
	AddNoteToNotebook(context.Context, string, string) error
	RemoveNoteFromNotebook(context.Context, string, string) (bool, error)
	IsNoteCollaborator(context.Context, string, string) (bool, error)
	CreateRelation(context.Context, store.NoteRelation) (store.NoteRelation, error)
	GetRelation(context.Context, string) (store.NoteRelation, error)
	SoftDeleteRelation(context.Context, string) (bool, error)
	InsertActivity(context.Context, store.Activity) error
	GetNote(context.Context, string, store.Preset) (*store.Note, error)
}

type noteEngine interface {
	Create(ctx context.Context, readerID string, in notes.Input) (*store.Note, error)
	CreateInNotebook(ctx context.Context, readerID, notebookID string, in notes.Input) (*store.Note, error)
	ByID(ctx context.Context, noteID string) (*store.Note, error)
	CopyToContext(ctx context.Context, noteID, contextID string, changes map[string]json.RawMessage) (*store.Note, error)
	Update(ctx context.Context, readerID string, in notes.Input) (*store.Note, error)
	Delete(ctx context.Context, noteID string) (*store.Note, error)
	List(ctx context.Context, readerID string, query notes.ListQuery) (notes.Page, error)
}

type searchIndex interface {
	Search(ctx context.Context, q search.Query) search.Response
	IndexNote(note search.NoteRecord)
	IndexSource(src search.SourceRecord)
	DeleteNote(id string)
}

type fileStorage interface {
	Upload(ctx context.Context, sourceID, filename, contentType string, r io.Reader, size int64) (storage.Object, error)
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, data session.TokenData, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (session.TokenData, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	notes    noteEngine
	search   searchIndex
	files    fileStorage
	sessions sessionStore
	log      zerolog.Logger
}

// Deps are the collaborators a Service is built from. Files and Sessions
// may be nil when object storage or Redis are not configured.
type Deps struct {
	Store    *store.PostgresStore
	Notes    *notes.Engine
	Search   *search.Service
	Files    *storage.MinIO
	Sessions *session.RedisStore
	Log      zerolog.Logger
}

func New(cfg config.Config, deps Deps) *Service {
	svc := &Service{cfg: cfg, log: deps.Log}
	if deps.Store != nil {
		svc.store = deps.Store
	}
	if deps.Notes != nil {
		svc.notes = deps.Notes
	}
	if deps.Search != nil {
		svc.search = deps.Search
	}
	if deps.Files != nil {
		svc.files = deps.Files
	}
	if deps.Sessions != nil {
		svc.sessions = deps.Sessions
	}
	return svc
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// IssueSession signs an access token for authID and stores a fresh refresh
// token for it.
func (s *Service) IssueSession(ctx context.Context, authID string) (Session, error) {
	authID = strings.TrimSpace(authID)
	if authID == "" {
		return Session{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "auth id is required", nil)
	}
	if s.sessions == nil {
		return Session{}, domainError(http.StatusServiceUnavailable, "SESSIONS_UNAVAILABLE", "Session store not configured", nil)
	}
	readerID, err := s.readerIDFor(ctx, authID)
	if err != nil {
		return Session{}, err
	}

	token, claims, err := auth.IssueAccessToken([]byte(s.cfg.JWTSecret), authID, s.cfg.AccessTTL)
	if err != nil {
		return Session{}, err
	}
	refresh := auth.NewRefreshToken()
	data := session.TokenData{ReaderID: readerID, AuthID: authID}
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), data, time.Now().Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}
	return Session{
		Token:        token,
		RefreshToken: refresh,
		AuthID:       authID,
		ReaderID:     readerID,
		JTI:          claims.JTI,
		ExpiresAt:    claims.ExpiresAt(),
	}, nil
}

// Refresh rotates a refresh token: the old one is revoked before a new
// session is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if s.sessions == nil {
		return Session{}, domainError(http.StatusServiceUnavailable, "SESSIONS_UNAVAILABLE", "Session store not configured", nil)
	}
	tokenHash := auth.HashToken(refreshToken)
	data, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.IssueSession(ctx, data.AuthID)
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	if s.sessions != nil {
		revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.JTI)
		if err != nil {
			return Session{}, err
		}
		if revoked {
			return Session{}, auth.ErrInvalidToken
		}
	}
	readerID, err := s.readerIDFor(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		AuthID:    claims.Sub,
		ReaderID:  readerID,
		JTI:       claims.JTI,
		ExpiresAt: claims.ExpiresAt(),
	}, nil
}

func (s *Service) readerIDFor(ctx context.Context, authID string) (string, error) {
	reader, err := s.store.GetReaderByAuthID(ctx, authID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup reader: %w", err)
	}
	return reader.ID, nil
}

func (s *Service) Logout(ctx context.Context, sess Session, refreshToken string) error {
	if s.sessions == nil {
		return nil
	}
	if sess.JTI != "" {
		if err := s.sessions.RevokeAccessToken(ctx, sess.JTI, sess.ExpiresAt); err != nil {
			s.log.Warn().Err(err).Msg("revoke access token")
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			s.log.Warn().Err(err).Msg("revoke refresh session")
		}
	}
	return nil
}

func requireReader(sess Session) error {
	if sess.ReaderID == "" {
		return errNotFound("no reader for this account")
	}
	return nil
}

func (s *Service) Whoami(ctx context.Context, sess Session) (store.Reader, error) {
	if err := requireReader(sess); err != nil {
		return store.Reader{}, err
	}
	return s.store.GetReader(ctx, sess.ReaderID)
}

// GetReader returns a reader profile. Readers may only read their own.
func (s *Service) GetReader(ctx context.Context, sess Session, readerID string) (store.Reader, error) {
	reader, err := s.store.GetReader(ctx, util.URLToID(readerID))
	if errors.Is(err, sql.ErrNoRows) {
		return store.Reader{}, errNotFound("no reader")
	}
	if err != nil {
		return store.Reader{}, err
	}
	if reader.ID != sess.ReaderID {
		return store.Reader{}, errForbidden()
	}
	return reader, nil
}

func (s *Service) CreateReader(ctx context.Context, sess Session, input store.Reader) (store.Reader, error) {
	if sess.ReaderID != "" {
		return store.Reader{}, domainError(http.StatusConflict, "CONFLICT", "Reader already exists", map[string]any{"readerId": sess.ReaderID})
	}
	input.ID = util.NewUUID()
	input.AuthID = sess.AuthID
	input.Name = strings.TrimSpace(input.Name)
	return s.store.CreateReader(ctx, input)
}

// authorizeNote loads a live note and checks the caller's role against
// action. Collaboration is only consulted for reads.
func (s *Service) authorizeNote(ctx context.Context, sess Session, noteID string, action rbac.Action) (*store.Note, error) {
	if err := requireReader(sess); err != nil {
		return nil, err
	}
	note, err := s.store.GetNote(ctx, util.URLToID(noteID), store.PresetList)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, notes.ErrNoNote
	}
	collaborator := false
	if note.ReaderID != sess.ReaderID && action == rbac.ActionRead {
		if collaborator, err = s.store.IsNoteCollaborator(ctx, note.ID, sess.ReaderID); err != nil {
			return nil, err
		}
	}
	if !rbac.Can(rbac.RoleFor(sess.ReaderID, note.ReaderID, collaborator), action) {
		return nil, errForbidden()
	}
	return note, nil
}

func (s *Service) ownNotebook(ctx context.Context, sess Session, notebookID string) (store.Notebook, error) {
	nb, err := s.store.GetNotebook(ctx, util.URLToID(notebookID))
	if errors.Is(err, sql.ErrNoRows) {
		return store.Notebook{}, errNotFound("no notebook")
	}
	if err != nil {
		return store.Notebook{}, err
	}
	if nb.ReaderID != sess.ReaderID {
		return store.Notebook{}, errForbidden()
	}
	return nb, nil
}

func (s *Service) recordActivity(ctx context.Context, readerID, activityType, objectType, objectID string) {
	err := s.store.InsertActivity(ctx, store.Activity{
		ID:         util.NewUUID(),
		ReaderID:   readerID,
		Type:       activityType,
		ObjectType: objectType,
		ObjectID:   objectID,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("type", activityType).Str("object_id", objectID).Msg("record activity")
	}
}

func (s *Service) indexNote(note *store.Note) {
	if s.search != nil && note != nil {
		s.search.IndexNote(search.NoteRecordFrom(*note))
	}
}

// CreateNote creates a note for the caller, inside notebookID when given.
func (s *Service) CreateNote(ctx context.Context, sess Session, notebookID string, in notes.Input) (*store.Note, error) {
	if err := requireReader(sess); err != nil {
		return nil, err
	}
	var (
		created *store.Note
		err     error
	)
	if notebookID != "" {
		nb, nbErr := s.ownNotebook(ctx, sess, notebookID)
		if nbErr != nil {
			return nil, nbErr
		}
		created, err = s.notes.CreateInNotebook(ctx, sess.ReaderID, nb.ID, in)
	} else {
		created, err = s.notes.Create(ctx, sess.ReaderID, in)
	}
	if err != nil {
		return nil, err
	}
	s.recordActivity(ctx, sess.ReaderID, "Create", "Note", created.ID)
	s.indexNote(created)
	return created, nil
}

func (s *Service) GetNote(ctx context.Context, sess Session, noteID string) (*store.Note, error) {
	if _, err := s.authorizeNote(ctx, sess, noteID, rbac.ActionRead); err != nil {
		return nil, err
	}
	note, err := s.notes.ByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, notes.ErrNoNote
	}
	return note, nil
}

func (s *Service) UpdateNote(ctx context.Context, sess Session, noteID string, in notes.Input) (*store.Note, error) {
	current, err := s.authorizeNote(ctx, sess, noteID, rbac.ActionWrite)
	if err != nil {
		return nil, err
	}
	in.ID = current.ID
	updated, err := s.notes.Update(ctx, sess.ReaderID, in)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, notes.ErrNoNote
	}
	s.recordActivity(ctx, sess.ReaderID, "Update", "Note", updated.ID)
	s.indexNote(updated)
	return updated, nil
}

func (s *Service) DeleteNote(ctx context.Context, sess Session, noteID string) error {
	current, err := s.authorizeNote(ctx, sess, noteID, rbac.ActionDelete)
	if err != nil {
		return err
	}
	deleted, err := s.notes.Delete(ctx, current.ID)
	if err != nil {
		return err
	}
	if deleted == nil {
		return notes.ErrNoNote
	}
	s.recordActivity(ctx, sess.ReaderID, "Delete", "Note", deleted.ID)
	if s.search != nil {
		s.search.DeleteNote(deleted.ID)
	}
	return nil
}

func (s *Service) CopyNote(ctx context.Context, sess Session, noteID, contextID string, changes map[string]json.RawMessage) (*store.Note, error) {
	contextID = util.URLToID(contextID)
	if contextID == "" {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "contextId is required", nil)
	}
	current, err := s.authorizeNote(ctx, sess, noteID, rbac.ActionCopy)
	if err != nil {
		return nil, err
	}
	nc, err := s.store.GetNoteContext(ctx, contextID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notes.ErrNoContext
	}
	if err != nil {
		return nil, err
	}
	if nc.ReaderID != sess.ReaderID {
		return nil, errForbidden()
	}
	created, err := s.notes.CopyToContext(ctx, current.ID, contextID, changes)
	if err != nil {
		return nil, err
	}
	s.recordActivity(ctx, sess.ReaderID, "Create", "Note", created.ID)
	s.indexNote(created)
	return created, nil
}

func (s *Service) ListNotes(ctx context.Context, sess Session, query notes.ListQuery) (notes.Page, error) {
	if err := requireReader(sess); err != nil {
		return notes.Page{}, err
	}
	return s.notes.List(ctx, sess.ReaderID, query)
}

func (s *Service) ownTag(ctx context.Context, sess Session, tagID string) (store.Tag, error) {
	tag, err := s.store.GetTag(ctx, util.URLToID(tagID))
	if errors.Is(err, sql.ErrNoRows) {
		return store.Tag{}, errNotFound("no tag")
	}
	if err != nil {
		return store.Tag{}, err
	}
	if tag.ReaderID != sess.ReaderID {
		return store.Tag{}, errForbidden()
	}
	return tag, nil
}

func (s *Service) AddNoteTag(ctx context.Context, sess Session, noteID, tagID string) error {
	note, err := s.authorizeNote(ctx, sess, noteID, rbac.ActionWrite)
	if err != nil {
		return err
	}
	tag, err := s.ownTag(ctx, sess, tagID)
	if err != nil {
		return err
	}
	return s.store.AddTagToNote(ctx, note.ID, tag.ID)
}

func (s *Service) RemoveNoteTag(ctx context.Context, sess Session, noteID, tagID string) error {
	note, err := s.authorizeNote(ctx, sess, noteID, rbac.ActionWrite)
	if err != nil {
		return err
	}
	removed, err := s.store.RemoveTagFromNote(ctx, note.ID, util.URLToID(tagID))
	if err != nil {
		return err
	}
	if !removed {
		return errNotFound("tag is not on this note")
	}
	return nil
}

func (s *Service) CreateTag(ctx context.Context, sess Session, input store.Tag) (store.Tag, error) {
	if err := requireReader(sess); err != nil {
		return store.Tag{}, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return store.Tag{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "name is required", nil)
	}
	if input.Type == "" {
		input.Type = store.StackTagType
	}
	input.ID = util.NewUUID()
	input.ReaderID = sess.ReaderID
	return s.store.CreateTag(ctx, input)
}

// DeleteTag soft-deletes one of the caller's tags. The tag drops out of
// every note it was on.
func (s *Service) DeleteTag(ctx context.Context, sess Session, tagID string) error {
	tag, err := s.ownTag(ctx, sess, tagID)
	if err != nil {
		return err
	}
	deleted, err := s.store.SoftDeleteTag(ctx, tag.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return errNotFound("no tag")
	}
	return nil
}

func (s *Service) CreateNotebook(ctx context.Context, sess Session, input store.Notebook) (store.Notebook, error) {
	if err := requireReader(sess); err != nil {
		return store.Notebook{}, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return store.Notebook{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "name is required", nil)
	}
	input.ID = util.NewUUID()
	input.ReaderID = sess.ReaderID
	return s.store.CreateNotebook(ctx, input)
}

func (s *Service) AddCollaborator(ctx context.Context, sess Session, notebookID, readerID string, input store.Collaborator) (store.Collaborator, error) {
	if err := requireReader(sess); err != nil {
		return store.Collaborator{}, err
	}
	nb, err := s.ownNotebook(ctx, sess, notebookID)
	if err != nil {
		return store.Collaborator{}, err
	}
	reader, err := s.store.GetReader(ctx, util.URLToID(readerID))
	if errors.Is(err, sql.ErrNoRows) {
		return store.Collaborator{}, errNotFound("no reader")
	}
	if err != nil {
		return store.Collaborator{}, err
	}
	if reader.ID == sess.ReaderID {
		return store.Collaborator{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "owner cannot collaborate on their own notebook", nil)
	}
	switch input.Status {
	case "", "pending", "accepted", "declined":
	default:
		return store.Collaborator{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "status must be pending, accepted or declined", nil)
	}
	input.ID = util.NewUUID()
	input.NotebookID = nb.ID
	input.ReaderID = reader.ID
	return s.store.AddCollaborator(ctx, input)
}

func (s *Service) AddNoteToNotebook(ctx context.Context, sess Session, notebookID, noteID string) error {
	nb, err := s.ownNotebook(ctx, sess, notebookID)
	if err != nil {
		return err
	}
	note, err := s.authorizeNote(ctx, sess, noteID, rbac.ActionWrite)
	if err != nil {
		return err
	}
	return s.store.AddNoteToNotebook(ctx, nb.ID, note.ID)
}

func (s *Service) RemoveNoteFromNotebook(ctx context.Context, sess Session, notebookID, noteID string) error {
	nb, err := s.ownNotebook(ctx, sess, notebookID)
	if err != nil {
		return err
	}
	removed, err := s.store.RemoveNoteFromNotebook(ctx, nb.ID, util.URLToID(noteID))
	if err != nil {
		return err
	}
	if !removed {
		return errNotFound("note is not in this notebook")
	}
	return nil
}

func (s *Service) CreateContext(ctx context.Context, sess Session, input store.NoteContext) (store.NoteContext, error) {
	if err := requireReader(sess); err != nil {
		return store.NoteContext{}, err
	}
	input.Type = strings.TrimSpace(input.Type)
	if input.Type == "" {
		return store.NoteContext{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "type is required", nil)
	}
	input.ID = util.NewUUID()
	input.ReaderID = sess.ReaderID
	return s.store.CreateNoteContext(ctx, input)
}

func (s *Service) CreateSource(ctx context.Context, sess Session, input store.Source) (store.Source, error) {
	if err := requireReader(sess); err != nil {
		return store.Source{}, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" || strings.TrimSpace(input.Type) == "" {
		return store.Source{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "name and type are required", nil)
	}
	input.ID = util.NewUUID()
	input.ReaderID = sess.ReaderID
	for i := range input.Attributions {
		input.Attributions[i].ID = util.NewUUID()
	}
	created, err := s.store.CreateSource(ctx, input)
	if err != nil {
		return store.Source{}, err
	}
	if s.search != nil {
		s.search.IndexSource(search.SourceRecordFrom(created))
	}
	return created, nil
}

func (s *Service) CreateRelation(ctx context.Context, sess Session, input store.NoteRelation) (store.NoteRelation, error) {
	if strings.TrimSpace(input.Type) == "" {
		return store.NoteRelation{}, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "type is required", nil)
	}
	from, err := s.authorizeNote(ctx, sess, input.From, rbac.ActionWrite)
	if err != nil {
		return store.NoteRelation{}, err
	}
	to, err := s.authorizeNote(ctx, sess, input.To, rbac.ActionWrite)
	if err != nil {
		return store.NoteRelation{}, err
	}
	input.ID = util.NewUUID()
	input.ReaderID = sess.ReaderID
	input.From = from.ID
	input.To = to.ID
	return s.store.CreateRelation(ctx, input)
}

func (s *Service) DeleteRelation(ctx context.Context, sess Session, relationID string) error {
	if err := requireReader(sess); err != nil {
		return err
	}
	rel, err := s.store.GetRelation(ctx, util.URLToID(relationID))
	if errors.Is(err, sql.ErrNoRows) {
		return errNotFound("no relation")
	}
	if err != nil {
		return err
	}
	if rel.ReaderID != sess.ReaderID {
		return errForbidden()
	}
	deleted, err := s.store.SoftDeleteRelation(ctx, rel.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return errNotFound("no relation")
	}
	return nil
}

// FileUpload is a file posted to a source.
type FileUpload struct {
	Filename     string
	ContentType  string
	Size         int64
	Body         io.Reader
	DocumentPath string
	MediaType    string
	JSON         json.RawMessage
}

// UploadFile stores a file in the source's bucket and records it as a
// document of that source.
func (s *Service) UploadFile(ctx context.Context, sess Session, sourceID string, file FileUpload) (store.Document, error) {
	if err := requireReader(sess); err != nil {
		return store.Document{}, err
	}
	src, err := s.store.GetSource(ctx, util.URLToID(sourceID))
	if errors.Is(err, sql.ErrNoRows) {
		return store.Document{}, errNotFound("no source")
	}
	if err != nil {
		return store.Document{}, err
	}
	if src.ReaderID != sess.ReaderID {
		return store.Document{}, errForbidden()
	}
	if s.files == nil {
		return store.Document{}, domainError(http.StatusFailedDependency, "STORAGE_UNAVAILABLE", "File storage not configured", nil)
	}

	object, err := s.files.Upload(ctx, src.ID, file.Filename, file.ContentType, file.Body, file.Size)
	if err != nil {
		s.log.Warn().Err(err).Str("source_id", src.ID).Msg("upload file")
		return store.Document{}, domainError(http.StatusFailedDependency, "STORAGE_FAILED", "File upload failed", nil)
	}

	mediaType := file.MediaType
	if mediaType == "" {
		mediaType = file.ContentType
	}
	documentPath := file.DocumentPath
	if documentPath == "" {
		documentPath = file.Filename
	}
	return s.store.CreateDocument(ctx, store.Document{
		ID:           util.NewUUID(),
		ReaderID:     sess.ReaderID,
		SourceID:     src.ID,
		DocumentPath: documentPath,
		MediaType:    mediaType,
		URL:          object.URL,
		JSON:         file.JSON,
	})
}

func (s *Service) Search(ctx context.Context, sess Session, q search.Query) (search.Response, error) {
	if err := requireReader(sess); err != nil {
		return search.Response{}, err
	}
	q.ReaderID = sess.ReaderID
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}, nil
	}
	return s.search.Search(ctx, q), nil
}
