package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prowriter/article"
	"prowriter/generator"
	"prowriter/metadata"
	"prowriter/publisher"
	"prowriter/store"
	"prowriter/wizard"
)

// Agent is what a session needs from the model layer. *generator.Agent satisfies it.
type Agent interface {
	wizard.Generator
	metadata.Generator
}

// DefaultSessionTTL is how long a session may sit unused before it is dropped.
const DefaultSessionTTL = 2 * time.Hour

// Deps are the shared collaborators of every session.
type Deps struct {
	Agent   Agent
	Store   store.Store
	Catalog *store.CachedCatalog
	Methods *article.Catalog
	// Publisher is optional; without it the publish endpoint answers 503.
	Publisher     *publisher.Publisher
	Logger        *zap.Logger
	WizardOptions []wizard.Option
	// SessionTTL is the idle time after which ExpireIdle drops a session.
	SessionTTL time.Duration
	Now        func() time.Time
}

type Server struct {
	deps     Deps
	log      *zap.Logger
	sessions *sessionStore
}

// session is one writing wizard, typically one browser tab.
type session struct {
	id      string
	wizard  *wizard.Wizard
	meta    *metadata.Flow
	created time.Time
	// lastUsed is unix nanoseconds of the latest request.
	lastUsed atomic.Int64
}

func (s *session) touch(t time.Time) {
	s.lastUsed.Store(t.UnixNano())
}

func (s *session) idleSince() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*session)}
}

func (s *sessionStore) set(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.id] = sess
}

func (s *sessionStore) get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *sessionStore) remove(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	return sess, ok
}

// removeIdle drops and returns the sessions last used before cutoff.
func (s *sessionStore) removeIdle(cutoff time.Time) []*session {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*session
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			out = append(out, sess)
			delete(s.sessions, id)
		}
	}
	return out
}

func (s *sessionStore) all() []*session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

func New(deps Deps) (*Server, error) {
	if deps.Agent == nil {
		return nil, errors.New("generator agent required")
	}
	if deps.Store == nil {
		return nil, errors.New("store required")
	}
	if deps.Catalog == nil {
		deps.Catalog = store.NewCachedCatalog(deps.Store, store.DefaultCacheTTL, nil)
	}
	if deps.Methods == nil {
		deps.Methods = article.NewCatalog()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = DefaultSessionTTL
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Server{deps: deps, log: deps.Logger, sessions: newStore()}, nil
}

// Close flushes pending auto-saves of every open session.
func (s *Server) Close() error {
	for _, sess := range s.sessions.all() {
		_ = sess.wizard.Close()
	}
	return nil
}

// ExpireIdle closes sessions unused for longer than the session TTL, flushing
// their pending saves, and returns how many were dropped.
func (s *Server) ExpireIdle() int {
	expired := s.sessions.removeIdle(s.deps.Now().Add(-s.deps.SessionTTL))
	for _, sess := range expired {
		_ = sess.wizard.Close()
		s.log.Info("session expired",
			zap.String("session", sess.id),
			zap.Duration("age", s.deps.Now().Sub(sess.created)))
	}
	return len(expired)
}

// ExpireEvery runs ExpireIdle on every tick until ctx is done.
func (s *Server) ExpireEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ExpireIdle()
		}
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/sessions", s.handleSessionCreate)
	mux.HandleFunc("GET /api/sessions/{id}", s.withSession(s.handleSnapshot))
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleSessionDelete)
	mux.HandleFunc("POST /api/sessions/{id}/start", s.withSession(s.handleStart))
	mux.HandleFunc("PATCH /api/sessions/{id}/sections/{sid}", s.withSession(s.handleSectionPatch))
	mux.HandleFunc("DELETE /api/sessions/{id}/sections/{sid}", s.withSession(s.handleSectionDelete))
	mux.HandleFunc("POST /api/sessions/{id}/sections/{sid}/method", s.withSession(s.handleApplyMethod))
	mux.HandleFunc("POST /api/sessions/{id}/sections/{sid}/generate", s.withSession(s.handleGenerateOne))
	mux.HandleFunc("POST /api/sessions/{id}/generate", s.withSession(s.handleGenerateAll))
	mux.HandleFunc("POST /api/sessions/{id}/advance", s.withSession(s.handleAdvance))
	mux.HandleFunc("POST /api/sessions/{id}/back", s.withSession(s.handleBack))
	mux.HandleFunc("POST /api/sessions/{id}/reset", s.withSession(s.handleReset))
	mux.HandleFunc("GET /api/sessions/{id}/preview", s.withSession(s.handlePreview))

	mux.HandleFunc("GET /api/sessions/{id}/metadata", s.withSession(s.handleMetadataGet))
	mux.HandleFunc("POST /api/sessions/{id}/metadata", s.withSession(s.handleMetadataGenerate))
	mux.HandleFunc("PUT /api/sessions/{id}/metadata/slug", s.withSession(s.handleMetadataSlug))
	mux.HandleFunc("PUT /api/sessions/{id}/metadata/{field}", s.withSession(s.handleMetadataList))
	mux.HandleFunc("PUT /api/sessions/{id}/metadata/{field}/{index}", s.withSession(s.handleMetadataItem))
	mux.HandleFunc("DELETE /api/sessions/{id}/metadata/{field}/{index}", s.withSession(s.handleMetadataRemove))
	mux.HandleFunc("GET /api/sessions/{id}/metadata/export", s.withSession(s.handleMetadataExport))
	mux.HandleFunc("POST /api/sessions/{id}/metadata/save", s.withSession(s.handleMetadataSave))
	mux.HandleFunc("POST /api/sessions/{id}/publish", s.withSession(s.handlePublish))

	mux.HandleFunc("GET /api/drafts", s.handleDraftList)
	mux.HandleFunc("DELETE /api/drafts/{id}", s.handleDraftDelete)
	mux.HandleFunc("GET /api/methods", s.handleMethodList)
	mux.HandleFunc("POST /api/methods", s.handleMethodAdd)
	mux.HandleFunc("GET /api/published", s.handlePublishedList)
	mux.HandleFunc("POST /api/published", s.handlePublishedAdd)
	mux.HandleFunc("DELETE /api/published", s.handlePublishedClear)
	mux.HandleFunc("DELETE /api/published/{id}", s.handlePublishedDelete)
	mux.HandleFunc("GET /api/categories", s.handleCategoryList)
	mux.HandleFunc("POST /api/categories", s.handleCategoryAdd)
	mux.HandleFunc("POST /api/categories/import", s.handleCategoryImport)
	mux.HandleFunc("DELETE /api/categories", s.handleCategoryClear)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleCategoryDelete)
	mux.HandleFunc("GET /api/ai-config", s.handleAIConfigGet)
	mux.HandleFunc("PUT /api/ai-config", s.handleAIConfigPut)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return logMiddleware(s.log, mux)
}

func (s *Server) newSession() (*session, error) {
	id := uuid.NewString()
	log := s.log.With(zap.String("session", id))
	opts := append([]wizard.Option{wizard.WithLogger(log)}, s.deps.WizardOptions...)
	wz, err := wizard.New(s.deps.Agent, s.deps.Store, opts...)
	if err != nil {
		return nil, err
	}
	meta, err := metadata.New(s.deps.Agent, s.deps.Catalog, s.deps.Store, metadata.WithLogger(log))
	if err != nil {
		return nil, err
	}
	now := s.deps.Now()
	sess := &session{id: id, wizard: wz, meta: meta, created: now}
	sess.touch(now)
	return sess, nil
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.get(r.PathValue("id"))
		if !ok {
			s.writeError(w, r, errSessionNotFound)
			return
		}
		sess.touch(s.deps.Now())
		h(w, r, sess)
	}
}

// --- Errors ---

var (
	errSessionNotFound = errors.New("session not found")
	errBadRequest      = errors.New("bad request")
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, errSessionNotFound),
		errors.Is(err, wizard.ErrSectionNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, wizard.ErrOutlineInProgress),
		errors.Is(err, wizard.ErrSectionBusy),
		errors.Is(err, metadata.ErrInProgress):
		return http.StatusConflict
	case errors.Is(err, wizard.ErrValidation),
		errors.Is(err, errBadRequest),
		errors.Is(err, article.ErrInvalidMethod),
		errors.Is(err, metadata.ErrEmptyArticle),
		errors.Is(err, metadata.ErrNotGenerated),
		errors.Is(err, metadata.ErrUnknownField),
		errors.Is(err, metadata.ErrIndexOutOfRange),
		errors.Is(err, publisher.ErrNothingToPublish):
		return http.StatusBadRequest
	case errors.Is(err, wizard.ErrConfiguration),
		errors.Is(err, generator.ErrMissingCredentials),
		errors.Is(err, publisher.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, wizard.ErrGenerationFailed),
		errors.Is(err, metadata.ErrGenerationFailed),
		errors.Is(err, publisher.ErrUnauthorized):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

type errorResp struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func errorKind(status int) string {
	switch status {
	case http.StatusServiceUnavailable:
		return "configuration"
	case http.StatusBadGateway:
		return "generation"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest, http.StatusConflict:
		return "validation"
	}
	return "internal"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorResp{Error: err.Error(), Kind: errorKind(status)})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20))
	if err := dec.Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logMiddleware(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
