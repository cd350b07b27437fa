package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/workflow"
)

const maxUploadBytes = 32 << 20

type sessionOpener func(ctx context.Context, id string) (*workflow.Orchestrator, error)

// sessionRegistry maps each session id to one orchestrator so concurrent
// requests for a session share its record, panel and sequence numbers.
// Sessions idle for longer than idle are dropped and reopened from the store
// on their next request; zero keeps them forever.
type sessionRegistry struct {
	open sessionOpener
	idle time.Duration
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	once     sync.Once
	o        *workflow.Orchestrator
	err      error
	lastUsed time.Time
}

func newSessionRegistry(open sessionOpener, idle time.Duration) *sessionRegistry {
	return &sessionRegistry{
		open:     open,
		idle:     idle,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
	}
}

// get returns the orchestrator for id, opening it on first use. The store is
// read outside the registry lock; concurrent first requests for an id share
// one open.
func (r *sessionRegistry) get(ctx context.Context, id string) (*workflow.Orchestrator, error) {
	r.mu.Lock()
	now := r.now()
	r.evictIdle(now)
	e, ok := r.sessions[id]
	if !ok {
		e = &sessionEntry{}
		r.sessions[id] = e
	}
	e.lastUsed = now
	r.mu.Unlock()

	e.once.Do(func() { e.o, e.err = r.open(ctx, id) })
	if e.err != nil {
		r.mu.Lock()
		if r.sessions[id] == e {
			delete(r.sessions, id)
		}
		r.mu.Unlock()
		return nil, e.err
	}
	return e.o, nil
}

// evictIdle drops sessions unused since before now-idle. Callers hold r.mu.
func (r *sessionRegistry) evictIdle(now time.Time) {
	if r.idle <= 0 {
		return
	}
	for id, e := range r.sessions {
		if now.Sub(e.lastUsed) > r.idle {
			delete(r.sessions, id)
			zap.L().Debug("evicted idle session", zap.String("session", id))
		}
	}
}

func (r *sessionRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

type api struct {
	reg        *sessionRegistry
	exportName string
}

func newRouter(reg *sessionRegistry, origins []string, exportName string) http.Handler {
	a := &api{reg: reg, exportName: exportName}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/risk", a.risk)

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", a.withSession(a.show))
		r.Post("/generate", a.withSession(a.generate))
		r.Post("/send", a.withSession(a.send))
		r.Post("/case", a.withSession(a.enterCase))
		r.Post("/ingest", a.withSession(a.ingest))
		r.Post("/compare", a.withSession(a.compare))
		r.Put("/compare/draft", a.withSession(a.editDraft))
		r.Post("/export", a.withSession(a.export))
		r.Post("/reset", a.withSession(a.reset))
	})
	return r
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, o *workflow.Orchestrator)

func (a *api) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		o, err := a.reg.get(r.Context(), id)
		if err != nil {
			zap.L().Error("failed to open session", zap.String("session", id), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "no se pudo abrir la sesión"})
			return
		}
		h(w, r, o)
	}
}

type errorBody struct {
	Error   string         `json:"error"`
	Session *model.Session `json:"session,omitempty"`
}

// writeFailure maps workflow errors to responses: superseded responses are
// conflicts and collaborator failures carry their user-facing message.
func writeFailure(w http.ResponseWriter, o *workflow.Orchestrator, err error) {
	snap := o.Session().Snapshot()
	var f *workflow.Failure
	switch {
	case errors.Is(err, workflow.ErrStale):
		writeJSON(w, http.StatusConflict, errorBody{Error: "respuesta reemplazada por una solicitud más reciente", Session: &snap})
	case errors.As(err, &f):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: f.Message, Session: &snap})
	default:
		zap.L().Error("request failed", zap.String("session", o.Session().ID()), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "error interno", Session: &snap})
	}
}

func (a *api) show(w http.ResponseWriter, _ *http.Request, o *workflow.Orchestrator) {
	writeJSON(w, http.StatusOK, newSessionView(o))
}

func (a *api) generate(w http.ResponseWriter, r *http.Request, o *workflow.Orchestrator) {
	var req model.GenerationFilter
	if !decodeJSON(w, r, &req) {
		return
	}
	filter, err := model.ParseFilter(req.Country, req.Sector, req.CompanyType, req.CompanySize)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	res, err := o.Generate(r.Context(), filter)
	if err != nil {
		writeFailure(w, o, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*workflow.GenerateResult
		Session model.Session `json:"session"`
	}{res, o.Session().Snapshot()})
}

func (a *api) send(w http.ResponseWriter, r *http.Request, o *workflow.Orchestrator) {
	var req struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	reply, err := o.Send(r.Context(), req.Message)
	if err != nil {
		writeFailure(w, o, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"respuesta": reply, "session": o.Session().Snapshot()})
}

func (a *api) enterCase(w http.ResponseWriter, r *http.Request, o *workflow.Orchestrator) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": o.EnterCase(req.Text)})
}

// uploadedDocument reads the "file" part of a multipart request. A request
// that is not multipart or has no file part carries no document.
func uploadedDocument(w http.ResponseWriter, r *http.Request) (*model.Document, string) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	err := r.ParseMultipartForm(maxUploadBytes)
	switch {
	case errors.Is(err, http.ErrNotMultipart):
		return nil, ""
	case err != nil:
		return nil, "formulario inválido"
	}

	file, hdr, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return nil, ""
	case err != nil:
		return nil, "archivo inválido"
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "archivo inválido"
	}
	ct := hdr.Header.Get("Content-Type")
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(hdr.Filename))
	}
	return &model.Document{Name: hdr.Filename, ContentType: ct, Data: data}, ""
}

func (a *api) ingest(w http.ResponseWriter, r *http.Request, o *workflow.Orchestrator) {
	doc, invalid := uploadedDocument(w, r)
	if invalid != "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: invalid})
		return
	}

	ext, err := o.Ingest(r.Context(), doc)
	if err != nil {
		writeFailure(w, o, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"extraction": ext, "session": o.Session().Snapshot()})
}

func (a *api) compare(w http.ResponseWriter, r *http.Request, o *workflow.Orchestrator) {
	var req struct {
		UserAnalysis string `json:"user_analysis"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := o.Compare(r.Context(), req.UserAnalysis)
	if err != nil {
		writeFailure(w, o, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": res, "session": o.Session().Snapshot()})
}

func (a *api) editDraft(w http.ResponseWriter, r *http.Request, o *workflow.Orchestrator) {
	var req struct {
		Draft string `json:"draft"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, o.EditDraft(req.Draft))
}

// responseSink delivers the report as the HTTP response. The session is only
// reset once Save returns, so a report the client never received leaves the
// session intact.
type responseSink struct {
	w     http.ResponseWriter
	name  string
	wrote bool
}

func (s *responseSink) Save(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", eris.Wrap(err, "serve: client gone before report delivery")
	}
	h := s.w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": s.name}))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	s.w.WriteHeader(http.StatusOK)
	s.wrote = true
	if _, err := s.w.Write(data); err != nil {
		return "", eris.Wrap(err, "serve: write report")
	}
	if err := http.NewResponseController(s.w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return "", eris.Wrap(err, "serve: flush report")
	}
	return s.name, nil
}

func (a *api) export(w http.ResponseWriter, r *http.Request, o *workflow.Orchestrator) {
	sink := &responseSink{w: w, name: a.exportName}
	if _, err := o.ExportTo(r.Context(), sink); err != nil {
		if sink.wrote {
			zap.L().Warn("report delivery failed, session kept", zap.String("session", o.Session().ID()), zap.Error(err))
			return
		}
		writeFailure(w, o, err)
	}
}

func (a *api) risk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Impact      int `json:"impacto"`
		Probability int `json:"probabilidad"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := model.AssessRisk(req.Impact, req.Probability)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "impacto y probabilidad deben estar entre 1 y 5"})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) reset(w http.ResponseWriter, _ *http.Request, o *workflow.Orchestrator) {
	writeJSON(w, http.StatusOK, map[string]any{"session": o.Session().Reset()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "cuerpo de solicitud inválido"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
