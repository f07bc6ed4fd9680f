package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ink/api/internal/auth"
	"ink/api/internal/notes"
	"ink/api/internal/search"
	"ink/api/internal/store"
	"ink/api/internal/util"
)

const maxUploadMemory = 32 << 20

type HTTPServer struct {
	service    *Service
	corsOrigin string
	log        zerolog.Logger
}

func NewHTTPServer(service *Service, corsOrigin string, log zerolog.Logger) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin, log: log.With().Str("component", "http").Logger()}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		s.handleReady(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/refresh" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		sess, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionPayload(sess))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		sess := Session{}
		if token := bearerToken(r); token != "" {
			if parsed, err := s.service.SessionFromToken(r.Context(), token); err == nil {
				sess = parsed
			}
		}
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		_ = s.service.Logout(r.Context(), sess, body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/whoami" {
		reader, err := s.service.Whoami(r.Context(), sess)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reader)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/readers" {
		var body store.Reader
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		reader, err := s.service.CreateReader(r.Context(), sess, body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, reader)
		return
	}

	if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/readers/") {
		parts := splitPath(r.URL.Path)
		if len(parts) == 3 {
			reader, err := s.service.GetReader(r.Context(), sess, parts[2])
			s.respond(w, r, http.StatusOK, reader, err)
			return
		}
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r, sess)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "notes":
		s.handleNotes(w, r, sess, parts[2:])
		return
	case "relations":
		s.handleRelations(w, r, sess, parts[2:])
		return
	case "notebooks":
		s.handleNotebooks(w, r, sess, parts[2:])
		return
	case "sources":
		s.handleSources(w, r, sess, parts[2:])
		return
	case "tags":
		if len(parts) == 2 && r.Method == http.MethodPost {
			var body store.Tag
			if !decodeOrFail(w, r, &body) {
				return
			}
			tag, err := s.service.CreateTag(r.Context(), sess, body)
			s.respond(w, r, http.StatusCreated, tag, err)
			return
		}
		if len(parts) == 3 && r.Method == http.MethodDelete {
			if err := s.service.DeleteTag(r.Context(), sess, parts[2]); err != nil {
				s.fail(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
	case "contexts":
		if len(parts) == 2 && r.Method == http.MethodPost {
			var body store.NoteContext
			if !decodeOrFail(w, r, &body) {
				return
			}
			nc, err := s.service.CreateContext(r.Context(), sess, body)
			s.respond(w, r, http.StatusCreated, nc, err)
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}
	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}
	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

// handleNotes serves /api/notes and everything below it. rest is the path
// after "notes".
func (s *HTTPServer) handleNotes(w http.ResponseWriter, r *http.Request, sess Session, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		query, err := listQueryFromRequest(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		page, err := s.service.ListNotes(r.Context(), sess, query)
		s.respond(w, r, http.StatusOK, page, err)
		return

	case len(rest) == 0 && r.Method == http.MethodPost:
		var body notes.Input
		if !decodeOrFail(w, r, &body) {
			return
		}
		note, err := s.service.CreateNote(r.Context(), sess, strings.TrimSpace(r.URL.Query().Get("notebook")), body)
		s.respond(w, r, http.StatusCreated, note, err)
		return

	case len(rest) == 1 && r.Method == http.MethodGet:
		note, err := s.service.GetNote(r.Context(), sess, rest[0])
		s.respond(w, r, http.StatusOK, note, err)
		return

	case len(rest) == 1 && r.Method == http.MethodPut:
		var body notes.Input
		if !decodeOrFail(w, r, &body) {
			return
		}
		note, err := s.service.UpdateNote(r.Context(), sess, rest[0], body)
		s.respond(w, r, http.StatusOK, note, err)
		return

	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteNote(r.Context(), sess, rest[0]); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return

	case len(rest) == 2 && rest[1] == "copy" && r.Method == http.MethodPost:
		var body struct {
			ContextID string                     `json:"contextId"`
			Changes   map[string]json.RawMessage `json:"changes"`
		}
		if !decodeOrFail(w, r, &body) {
			return
		}
		note, err := s.service.CopyNote(r.Context(), sess, rest[0], body.ContextID, body.Changes)
		s.respond(w, r, http.StatusCreated, note, err)
		return

	case len(rest) == 3 && rest[1] == "tags":
		var err error
		switch r.Method {
		case http.MethodPut:
			err = s.service.AddNoteTag(r.Context(), sess, rest[0], rest[2])
		case http.MethodDelete:
			err = s.service.RemoveNoteTag(r.Context(), sess, rest[0], rest[2])
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleRelations(w http.ResponseWriter, r *http.Request, sess Session, rest []string) {
	if len(rest) == 0 && r.Method == http.MethodPost {
		var body store.NoteRelation
		if !decodeOrFail(w, r, &body) {
			return
		}
		rel, err := s.service.CreateRelation(r.Context(), sess, body)
		s.respond(w, r, http.StatusCreated, rel, err)
		return
	}
	if len(rest) == 1 && r.Method == http.MethodDelete {
		if err := s.service.DeleteRelation(r.Context(), sess, rest[0]); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleNotebooks(w http.ResponseWriter, r *http.Request, sess Session, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		var body store.Notebook
		if !decodeOrFail(w, r, &body) {
			return
		}
		nb, err := s.service.CreateNotebook(r.Context(), sess, body)
		s.respond(w, r, http.StatusCreated, nb, err)
		return

	case len(rest) == 3 && rest[1] == "notes":
		var err error
		switch r.Method {
		case http.MethodPut:
			err = s.service.AddNoteToNotebook(r.Context(), sess, rest[0], rest[2])
		case http.MethodDelete:
			err = s.service.RemoveNoteFromNotebook(r.Context(), sess, rest[0], rest[2])
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return

	case len(rest) == 3 && rest[1] == "collaborators" && r.Method == http.MethodPut:
		var body store.Collaborator
		if !decodeOrFail(w, r, &body) {
			return
		}
		collaborator, err := s.service.AddCollaborator(r.Context(), sess, rest[0], rest[2], body)
		s.respond(w, r, http.StatusOK, collaborator, err)
		return
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleSources(w http.ResponseWriter, r *http.Request, sess Session, rest []string) {
	if len(rest) == 0 && r.Method == http.MethodPost {
		var body store.Source
		if !decodeOrFail(w, r, &body) {
			return
		}
		src, err := s.service.CreateSource(r.Context(), sess, body)
		s.respond(w, r, http.StatusCreated, src, err)
		return
	}
	if len(rest) == 2 && rest[1] == "file-upload" && r.Method == http.MethodPost {
		s.handleFileUpload(w, r, sess, rest[0])
		return
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleFileUpload(w http.ResponseWriter, r *http.Request, sess Session, sourceID string) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "expected a multipart form", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "no file was included in request", nil)
		return
	}
	defer file.Close()

	var raw json.RawMessage
	if value := strings.TrimSpace(r.FormValue("json")); value != "" {
		if !json.Valid([]byte(value)) {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "json must be valid JSON", nil)
			return
		}
		raw = json.RawMessage(value)
	}

	doc, err := s.service.UploadFile(r.Context(), sess, sourceID, FileUpload{
		Filename:     header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Size:         header.Size,
		Body:         file,
		DocumentPath: r.FormValue("documentPath"),
		MediaType:    r.FormValue("mediaType"),
		JSON:         raw,
	})
	s.respond(w, r, http.StatusCreated, doc, err)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, sess Session) {
	values := r.URL.Query()
	q := search.Query{
		Text:       strings.TrimSpace(values.Get("q")),
		FilterType: search.ResultType(strings.TrimSpace(values.Get("type"))),
		SourceID:   util.URLToID(values.Get("sourceId")),
		Limit:      20,
	}
	var err error
	if q.Limit, err = intParam(values.Get("limit"), q.Limit); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be an integer", nil)
		return
	}
	if q.Offset, err = intParam(values.Get("offset"), 0); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "offset must be an integer", nil)
		return
	}
	payload, err := s.service.Search(r.Context(), sess, q)
	s.respond(w, r, http.StatusOK, payload, err)
}

func listQueryFromRequest(r *http.Request) (notes.ListQuery, error) {
	values := r.URL.Query()
	query := notes.ListQuery{
		NoteFilter: store.NoteFilter{
			Document:   strings.TrimSpace(values.Get("document")),
			SourceID:   util.URLToID(values.Get("source")),
			Motivation: strings.TrimSpace(values.Get("motivation")),
			Search:     strings.TrimSpace(values.Get("search")),
			StackID:    util.URLToID(values.Get("stack")),
			NotebookID: util.URLToID(values.Get("notebook")),
			ContextID:  util.URLToID(values.Get("context")),
			OrderBy:    strings.TrimSpace(values.Get("orderBy")),
		},
	}
	var err error
	if query.Limit, err = intParam(values.Get("limit"), notes.DefaultPageSize); err != nil {
		return notes.ListQuery{}, fmt.Errorf("limit must be an integer")
	}
	if query.Page, err = intParam(values.Get("page"), 1); err != nil {
		return notes.ListQuery{}, fmt.Errorf("page must be an integer")
	}
	if raw := strings.TrimSpace(values.Get("reverse")); raw != "" {
		if query.Reverse, err = strconv.ParseBool(raw); err != nil {
			return notes.ListQuery{}, fmt.Errorf("reverse must be a boolean")
		}
	}
	return query, nil
}

func intParam(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func sessionPayload(sess Session) map[string]any {
	payload := map[string]any{
		"token":        sess.Token,
		"refreshToken": sess.RefreshToken,
		"expiresAt":    sess.ExpiresAt.Unix(),
	}
	if sess.ReaderID != "" {
		payload["readerId"] = sess.ReaderID
	}
	return payload
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	sess, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).Msg("session lookup")
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return sess, true
}

// respond writes payload with status, or the mapped error when err is set.
func (s *HTTPServer) respond(w http.ResponseWriter, r *http.Request, status int, payload any, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, status, payload)
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = util.RandomHex(8)
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", reqID)

		next.ServeHTTP(writer, r)

		s.log.Info().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Int64("duration_ms", time.Since(started).Milliseconds()).
			Msg("request")
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func decodeOrFail(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeBody(r, target); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
