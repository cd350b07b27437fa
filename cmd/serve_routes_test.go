package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/store"
	"github.com/sells-group/audit-cli/internal/workflow"
	"github.com/sells-group/audit-cli/pkg/auditapi"
)

// fakeBackend mimics the audit backend endpoints.
type fakeBackend struct {
	failChat atomic.Bool
	ingests  atomic.Int32
	exports  atomic.Int32
}

func (b *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/generar_caso", func(w http.ResponseWriter, r *http.Request) {
		var req auditapi.GenerateCaseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeJSON(w, http.StatusOK, map[string]string{"caso_estudio": "Caso " + req.Pais + " " + req.TipoEmpresa})
	})
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		if b.failChat.Load() {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error al comunicarse con el modelo."})
			return
		}
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeJSON(w, http.StatusOK, map[string]string{"respuesta": "Análisis de " + req["message"]})
	})
	mux.HandleFunc("/procesar_documento", func(w http.ResponseWriter, r *http.Request) {
		b.ingests.Add(1)
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(file)
		writeJSON(w, http.StatusOK, map[string]string{"texto_extraido": string(data), "respuesta": "Análisis del documento"})
	})
	mux.HandleFunc("/compare", func(w http.ResponseWriter, r *http.Request) {
		var req auditapi.CompareRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeJSON(w, http.StatusOK, map[string]any{
			"comparacion_ia": "Comparado con: " + req.ChatbotResponse,
			"efectividad":    "75%",
			"impacto":        2,
			"probabilidad":   3,
			"riesgo":         6,
			"nivel":          "Medio",
		})
	})
	mux.HandleFunc("/descargar_pdf", func(w http.ResponseWriter, r *http.Request) {
		b.exports.Add(1)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})
	return mux
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeBackend, *auditEnv) {
	t.Helper()
	backend := &fakeBackend{}
	upstream := httptest.NewServer(backend.handler(t))
	t.Cleanup(upstream.Close)

	api := workflow.NewAPIServices(auditapi.NewClient(auditapi.WithBaseURL(upstream.URL)))
	env := newTestEnv(workflow.Services{Assistant: api, Ingester: api, Scorer: api, Renderer: api})
	t.Cleanup(env.Close)

	reg := newSessionRegistry(func(ctx context.Context, id string) (*workflow.Orchestrator, error) {
		return env.openSession(ctx, id, env.Services)
	}, time.Hour)
	srv := httptest.NewServer(newRouter(reg, []string{"*"}, "informe_auditoria.pdf"))
	t.Cleanup(srv.Close)
	return srv, backend, env
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func sessionField(t *testing.T, body map[string]any, field string) string {
	t.Helper()
	s, ok := body["session"].(map[string]any)
	require.True(t, ok, "response has no session: %v", body)
	v, _ := s[field].(string)
	return v
}

func TestServe_Health(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}

func TestServe_GenerateThenCompareThenExport(t *testing.T) {
	srv, backend, env := newTestServer(t)
	base := srv.URL + "/sessions/s1"

	resp, body := postJSON(t, base+"/generate", map[string]string{"pais": "ecuador", "tipo_empresa": "publica"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Caso Ecuador Pública", body["case_study"])
	assert.Equal(t, "Análisis de Caso Ecuador Pública", body["analysis"])
	assert.Equal(t, "Análisis de Caso Ecuador Pública", sessionField(t, body, "ai_analysis"))

	resp, body = postJSON(t, base+"/compare", map[string]string{"user_analysis": "mis notas"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := body["result"].(map[string]any)
	assert.Equal(t, "Comparado con: Análisis de Caso Ecuador Pública", result["summary"])
	assert.Equal(t, "Medio", result["level"])
	assert.Equal(t, "mis notas", sessionField(t, body, "user_analysis"))

	recs, err := env.Store.ListComparisons(context.Background(), storeFilter("s1"))
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	exp, err := http.Post(base+"/export", "application/json", nil)
	require.NoError(t, err)
	defer exp.Body.Close()
	require.Equal(t, http.StatusOK, exp.StatusCode)
	assert.Equal(t, "application/pdf", exp.Header.Get("Content-Type"))
	assert.Contains(t, exp.Header.Get("Content-Disposition"), "informe_auditoria.pdf")
	data, _ := io.ReadAll(exp.Body)
	assert.Equal(t, "%PDF-1.4", string(data))
	assert.Equal(t, int32(1), backend.exports.Load())

	// The session is reset once the report has been written.
	assert.Eventually(t, func() bool {
		rec, err := env.Store.GetSession(context.Background(), "s1")
		return err == nil && rec != nil && rec.State.IsEmpty()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServe_GenerateInvalidFilter(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/sessions/s1/generate", map[string]string{"pais": "Perú"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "invalid country")
}

func TestServe_SendFailureReturnsMessage(t *testing.T) {
	srv, backend, _ := newTestServer(t)
	backend.failChat.Store(true)

	resp, body := postJSON(t, srv.URL+"/sessions/s1/send", map[string]string{"message": "hola"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, workflow.MsgSend, body["error"])
	assert.Equal(t, workflow.MsgSend, sessionField(t, body, "ai_analysis"))
}

func TestServe_CaseAndDraft(t *testing.T) {
	srv, _, _ := newTestServer(t)
	base := srv.URL + "/sessions/s2"

	resp, body := postJSON(t, base+"/case", map[string]string{"text": "Caso escrito"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Caso escrito", sessionField(t, body, "case_study"))

	payload := strings.NewReader(`{"draft":"borrador editado"}`)
	req, err := http.NewRequest(http.MethodPut, base+"/compare/draft", payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	put, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer put.Body.Close()
	require.Equal(t, http.StatusOK, put.StatusCode)

	var view map[string]any
	require.NoError(t, json.NewDecoder(put.Body).Decode(&view))
	assert.Equal(t, "borrador editado", view["draft"])
	assert.Equal(t, "idle", view["state"])

	resp, body = postJSON(t, base+"/compare", map[string]string{"user_analysis": "notas"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Comparado con: borrador editado", body["result"].(map[string]any)["summary"])
}

func TestServe_Ingest(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "caso.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("Texto del documento"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/sessions/s3/ingest", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Texto del documento", sessionField(t, body, "case_study"))
	assert.Equal(t, "Análisis del documento", sessionField(t, body, "ai_analysis"))
}

func TestServe_IngestWithoutFileIsNoop(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "x"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/sessions/s4/ingest", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Nil(t, body["extraction"])
	assert.Empty(t, sessionField(t, body, "case_study"))
}

func TestServe_IngestWithoutFormIsNoop(t *testing.T) {
	srv, backend, _ := newTestServer(t)
	base := srv.URL + "/sessions/s4"
	postJSON(t, base+"/case", map[string]string{"text": "Caso previo"})

	for _, ct := range []string{"", "application/json"} {
		req, err := http.NewRequest(http.MethodPost, base+"/ingest", nil)
		require.NoError(t, err)
		if ct != "" {
			req.Header.Set("Content-Type", ct)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close() //nolint:errcheck
		assert.Equal(t, http.StatusOK, resp.StatusCode, "content type %q", ct)
		assert.Nil(t, body["extraction"])
		assert.Equal(t, "Caso previo", sessionField(t, body, "case_study"))
	}
	assert.Zero(t, backend.ingests.Load())
}

func TestServe_ShowAndReset(t *testing.T) {
	srv, _, _ := newTestServer(t)
	base := srv.URL + "/sessions/s5"
	postJSON(t, base+"/case", map[string]string{"text": "Caso"})

	resp, err := http.Get(base)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view struct {
		ID       string           `json:"id"`
		Session  model.Session    `json:"session"`
		Panel    map[string]any   `json:"panel"`
		Statuses []map[string]any `json:"statuses"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, "s5", view.ID)
	assert.Equal(t, model.Session{CaseStudy: "Caso"}, view.Session)
	assert.Equal(t, "idle", view.Panel["state"])
	require.Len(t, view.Statuses, len(workflow.Kinds))
	assert.Equal(t, "generate", view.Statuses[0]["kind"])

	_, body := postJSON(t, base+"/reset", nil)
	assert.Empty(t, sessionField(t, body, "case_study"))
}

func TestServe_BadBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/sessions/s1/send", "application/json", strings.NewReader("{nope"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServe_CORS(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/sessions/s1/send", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSessionRegistry_SharesOrchestrator(t *testing.T) {
	env := newTestEnv(workflow.Services{})
	opens := 0
	reg := newSessionRegistry(func(ctx context.Context, id string) (*workflow.Orchestrator, error) {
		opens++
		return env.openSession(ctx, id, env.Services)
	}, 0)

	a, err := reg.get(context.Background(), "x")
	require.NoError(t, err)
	b, err := reg.get(context.Background(), "x")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, opens)
}

func storeFilter(id string) store.ComparisonFilter {
	return store.ComparisonFilter{SessionID: id}
}

func TestSessionRegistry_EvictsIdleSessions(t *testing.T) {
	env := newTestEnv(workflow.Services{})
	ctx := context.Background()
	opens := 0
	reg := newSessionRegistry(func(ctx context.Context, id string) (*workflow.Orchestrator, error) {
		opens++
		return env.openSession(ctx, id, env.Services)
	}, time.Hour)
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	a, err := reg.get(ctx, "x")
	require.NoError(t, err)
	a.EnterCase("Caso guardado")
	_, err = reg.get(ctx, "y")
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	_, err = reg.get(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, 2, reg.size())

	now = now.Add(45 * time.Minute)
	b, err := reg.get(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, 1, reg.size(), "x idle for 75m should be evicted")

	reopened, err := reg.get(ctx, "x")
	require.NoError(t, err)
	assert.NotSame(t, a, reopened)
	assert.Equal(t, "Caso guardado", reopened.Session().Snapshot().CaseStudy)
	assert.Equal(t, 3, opens)

	same, err := reg.get(ctx, "y")
	require.NoError(t, err)
	assert.Same(t, b, same)
}

func TestSessionRegistry_ConcurrentFirstUseOpensOnce(t *testing.T) {
	env := newTestEnv(workflow.Services{})
	var opens atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	reg := newSessionRegistry(func(ctx context.Context, id string) (*workflow.Orchestrator, error) {
		opens.Add(1)
		if id == "x" {
			close(started)
			<-release
		}
		return env.openSession(ctx, id, env.Services)
	}, 0)

	const n = 8
	got := make([]*workflow.Orchestrator, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := reg.get(context.Background(), "x")
			assert.NoError(t, err)
			got[i] = o
		}()
	}
	<-started

	done := make(chan error, 1)
	go func() {
		_, err := reg.get(context.Background(), "other")
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("opening another session waited on x")
	}

	close(release)
	wg.Wait()
	assert.Equal(t, int32(2), opens.Load())
	for _, o := range got {
		assert.Same(t, got[0], o)
	}
}

func TestSessionRegistry_OpenErrorIsNotCached(t *testing.T) {
	env := newTestEnv(workflow.Services{})
	fail := true
	reg := newSessionRegistry(func(ctx context.Context, id string) (*workflow.Orchestrator, error) {
		if fail {
			return nil, errors.New("store down")
		}
		return env.openSession(ctx, id, env.Services)
	}, 0)

	_, err := reg.get(context.Background(), "x")
	require.Error(t, err)
	assert.Zero(t, reg.size())

	fail = false
	o, err := reg.get(context.Background(), "x")
	require.NoError(t, err)
	assert.NotNil(t, o)
}

// brokenWriter fails every body write, as a disconnected client does.
type brokenWriter struct {
	header http.Header
	status int
}

func (w *brokenWriter) Header() http.Header { return w.header }

func (w *brokenWriter) WriteHeader(status int) { w.status = status }

func (w *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset by peer") }

func TestServe_ExportKeepsSessionWhenDeliveryFails(t *testing.T) {
	ctx := context.Background()
	renderer := &stubRenderer{}
	env := newTestEnv(workflow.Services{Renderer: renderer})
	defer env.Close()
	require.NoError(t, env.Store.SaveSession(ctx, "s1", model.Session{CaseStudy: "C", AIAnalysis: "A", UserAnalysis: "U"}))

	reg := newSessionRegistry(func(ctx context.Context, id string) (*workflow.Orchestrator, error) {
		return env.openSession(ctx, id, env.Services)
	}, 0)
	router := newRouter(reg, []string{"*"}, "informe_auditoria.pdf")

	w := &brokenWriter{header: http.Header{}}
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions/s1/export", nil))

	require.Len(t, renderer.reports, 1)
	rec, err := env.Store.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, model.Session{CaseStudy: "C", AIAnalysis: "A", UserAnalysis: "U"}, rec.State)

	o, err := reg.get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "C", o.Session().Snapshot().CaseStudy)
	assert.Equal(t, workflow.Failed, o.Status(workflow.KindExport).State)
}

func TestServe_Risk(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/risk", map[string]int{"impacto": 3, "probabilidad": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(6), body["riesgo"])
	assert.Equal(t, "Medio", body["nivel"])

	resp, body = postJSON(t, srv.URL+"/risk", map[string]int{"impacto": 0, "probabilidad": 2})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}
