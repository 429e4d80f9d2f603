package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"protein-analysis-ui/internal/config"
	"protein-analysis-ui/internal/connectors/archive"
	"protein-analysis-ui/internal/connectors/backend"
	"protein-analysis-ui/internal/connectors/workspace"
	"protein-analysis-ui/internal/logging"
	"protein-analysis-ui/internal/reports/reportstest"
	"protein-analysis-ui/internal/view"
)

const (
	loginOK      = `{"token":"tok-42","usuario":{"id":7,"email":"ana@lab.org","nombre":"Ana","rol":"investigadora"}}`
	twoSequences = `{"secuencias":[{"id":1,"nombre":"Lisozima","fuente":"Manual","secuencia":"KVFGRCELAAAMKRHGLDNY","longitud":20},{"id":2,"nombre":"Insulina","fuente":"UniProt","secuencia":"MALWMRLLPLLALLALWGPDPAAA","longitud":24}]}`
	twinAnswer   = `{"resultado":{"datos_temporales":[{"time":0,"biomasa":0.4,"producto":0,"viabilidad":99},{"time":12,"biomasa":6.1,"producto":1.9,"viabilidad":95}],"metricas_finales":{"biomasa_maxima":6.1,"eficiencia_proceso":87.5}}}`
)

type fakeBackend struct {
	t      *testing.T
	routes map[string]http.HandlerFunc

	mu    sync.Mutex
	calls []string
	auth  []string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{t: t, routes: map[string]http.HandlerFunc{
		"GET /":                       jsonAnswer(`{"mensaje":"ok"}`),
		"POST /login/":                jsonAnswer(loginOK),
		"GET /session/validate":       jsonAnswer(`{"valid":true}`),
		"GET /secuencias/":            jsonAnswer(twoSequences),
		"GET /experimentos/":          jsonAnswer(`{"experimentos":[{"id":1,"tipo":"plm","fecha":"2024-05-01","estado":"completado"}]}`),
		"GET /alertas/":               jsonAnswer(`{"alertas":[{"id":1,"mensaje":"Temperatura alta","prioridad":"alta","resuelta":false},{"id":2,"mensaje":"ok","resuelta":true}]}`),
		"GET /reportes/comparativos/": jsonAnswer(`{"reportes":[{"tipo":"plm","cantidad":1}],"total_experimentos":1,"total_secuencias":2}`),
	}}
}

func (f *fakeBackend) on(route string, h http.HandlerFunc) *fakeBackend {
	f.routes[route] = h
	return f
}

func (f *fakeBackend) start() string {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls = append(f.calls, r.Method+" "+r.URL.Path)
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		f.mu.Unlock()
		if h, ok := f.routes[r.Method+" "+r.URL.Path]; ok {
			h(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	f.t.Cleanup(srv.Close)
	return srv.URL
}

func (f *fakeBackend) called(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == route {
			n++
		}
	}
	return n
}

func (f *fakeBackend) authHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auth...)
}

func jsonAnswer(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func errorAnswer(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func testConfig(t *testing.T, backendURL string) config.Config {
	return config.Config{
		BackendURL:         backendURL,
		BackendTimeout:     5 * time.Second,
		SessionSecret:      "test-secret",
		SessionCookie:      "protein_ui_session",
		SessionScope:       config.SessionScopeBrowser,
		SessionMaxAge:      time.Hour,
		RecentLimit:        3,
		StatusProbeTimeout: 2 * time.Second,
		StoreEnabled:       true,
		StoreDriver:        config.StoreDriverSQLite,
		StoreSQLitePath:    filepath.Join(t.TempDir(), "ws.db"),
		ArchiveEnabled:     true,
		ArchiveTTL:         time.Hour,
	}
}

// newTestServer serves the dashboard against fb and returns its URL.
func newTestServer(t *testing.T, fb *fakeBackend) string {
	t.Helper()
	cfg := testConfig(t, fb.start())
	ws, err := workspace.NewSQLiteStore(cfg.StoreSQLitePath)
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	arc, err := archive.Open("", cfg.ArchiveTTL)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	t.Cleanup(func() { _ = arc.Close() })

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, backend.WithObserver(recordBackendCall))
	a, err := newApp(cfg, logging.Discard(), client, ws, arc)
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	srv := httptest.NewServer(a.routes())
	t.Cleanup(srv.Close)
	return srv.URL
}

func browser(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

func get(t *testing.T, c *http.Client, u string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(u)
	if err != nil {
		t.Fatalf("GET %s: %v", u, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func post(t *testing.T, c *http.Client, u string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := c.PostForm(u, form)
	if err != nil {
		t.Fatalf("POST %s: %v", u, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func login(t *testing.T, c *http.Client, base string) string {
	t.Helper()
	_, body := post(t, c, base+"/login", url.Values{"email": {"ana@lab.org"}, "password": {"secreto"}})
	if !strings.Contains(body, `id="main-view"`) {
		t.Fatalf("expected main view after login, got:\n%s", body)
	}
	return body
}

func TestIndex_NoSessionShowsLoginView(t *testing.T) {
	fb := newFakeBackend(t)
	base := newTestServer(t, fb)

	resp, body := get(t, browser(t), base+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, `id="login-view"`) || strings.Contains(body, `id="main-view"`) {
		t.Fatalf("expected only the login view, got:\n%s", body)
	}
	if fb.called("GET /session/validate") != 0 {
		t.Fatalf("no token, nothing to validate")
	}
}

func TestLogin_WelcomeToastAndDashboard(t *testing.T) {
	fb := newFakeBackend(t)
	base := newTestServer(t, fb)

	body := login(t, browser(t), base)
	if !strings.Contains(body, "Bienvenido, Ana!") {
		t.Fatalf("expected welcome toast")
	}
	if !strings.Contains(body, `data-panel="dashboard"`) {
		t.Fatalf("expected the dashboard panel after login")
	}
	if !strings.Contains(body, `id="alert-badge">1<`) {
		t.Fatalf("expected one unresolved alert in the badge")
	}
	if fb.called("GET /session/validate") != 1 {
		t.Fatalf("expected the start page to validate the new session once")
	}
}

func TestLogin_FormValidation(t *testing.T) {
	fb := newFakeBackend(t)
	base := newTestServer(t, fb)
	c := browser(t)

	_, body := post(t, c, base+"/login", url.Values{"email": {"ana@lab.org"}})
	if !strings.Contains(body, "Por favor completa todos los campos") || !strings.Contains(body, `id="login-view"`) {
		t.Fatalf("expected missing field notice on the login view")
	}
	_, body = post(t, c, base+"/login", url.Values{"mode": {"register"}, "email": {"ana@lab.org"}, "password": {"a"}, "confirm": {"b"}})
	if !strings.Contains(body, "Las contraseñas no coinciden") {
		t.Fatalf("expected mismatch notice")
	}
	if fb.called("POST /login/") != 0 {
		t.Fatalf("invalid forms must not reach the backend")
	}
}

func TestLogin_BackendDetail(t *testing.T) {
	fb := newFakeBackend(t).on("POST /login/", errorAnswer(http.StatusUnauthorized, `{"detail":"Credenciales inválidas"}`))
	base := newTestServer(t, fb)

	_, body := post(t, browser(t), base+"/login", url.Values{"email": {"ana@lab.org"}, "password": {"x"}})
	if !strings.Contains(body, "Credenciales inválidas") || strings.Contains(body, `id="main-view"`) {
		t.Fatalf("expected backend detail on the login view, got:\n%s", body)
	}
}

func TestIndex_RejectedTokenClearsSession(t *testing.T) {
	fb := newFakeBackend(t).on("GET /session/validate", errorAnswer(http.StatusUnauthorized, `{"detail":"expirada"}`))
	base := newTestServer(t, fb)
	c := browser(t)

	_, body := post(t, c, base+"/login", url.Values{"email": {"ana@lab.org"}, "password": {"secreto"}})
	if !strings.Contains(body, `id="login-view"`) {
		t.Fatalf("expected login view after failed validation")
	}
	_, body = get(t, c, base+"/view/dashboard")
	if !strings.Contains(body, `id="login-view"`) {
		t.Fatalf("expected the persisted session to be cleared")
	}
}

func TestLogout_ClearsSession(t *testing.T) {
	fb := newFakeBackend(t)
	base := newTestServer(t, fb)
	c := browser(t)
	login(t, c, base)

	_, body := post(t, c, base+"/logout", nil)
	if !strings.Contains(body, `id="login-view"`) || !strings.Contains(body, "Sesión cerrada") {
		t.Fatalf("expected login view with logout notice, got:\n%s", body)
	}
	if fb.called("POST /logout/") != 0 {
		t.Fatalf("logout must stay local")
	}
	_, body = get(t, c, base+"/view/alerts")
	if strings.Contains(body, `id="main-view"`) {
		t.Fatalf("main view reachable after logout")
	}
}

func TestViews_EachTagRendersExactlyOnePanel(t *testing.T) {
	fb := newFakeBackend(t)
	base := newTestServer(t, fb)
	c := browser(t)
	login(t, c, base)

	for _, tag := range view.All() {
		t.Run(string(tag), func(t *testing.T) {
			resp, body := get(t, c, base+"/view/"+string(tag))
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			if n := strings.Count(body, "data-panel="); n != 1 {
				t.Fatalf("expected exactly one panel, got %d", n)
			}
			if !strings.Contains(body, `data-panel="`+string(tag)+`"`) {
				t.Fatalf("expected panel %s", tag)
			}
		})
	}
	for _, h := range fb.authHeaders() {
		if h != "" && h != "Bearer tok-42" {
			t.Fatalf("token altered on its way to the backend: %q", h)
		}
	}
}

func TestView_AliasAndUnknownTag(t *testing.T) {
	fb := newFakeBackend(t)
	base := newTestServer(t, fb)
	c := browser(t)
	login(t, c, base)

	_, body := get(t, c, base+"/view/twin")
	if !strings.Contains(body, `data-panel="digital-twin"`) {
		t.Fatalf("expected alias to resolve to digital-twin")
	}
	resp, _ := get(t, c, base+"/view/settings")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown view, got %d", resp.StatusCode)
	}
}

func TestView_WithoutSessionRedirectsToStart(t *testing.T) {
	base := newTestServer(t, newFakeBackend(t))
	c := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

	resp, _ := get(t, c, base+"/view/dashboard")
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("expected redirect to /, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	resp, _ = get(t, c, base+"/api/v1/views/dashboard")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for the json view, got %d", resp.StatusCode)
	}
}

func TestDigitalTwin_ChartSourceIsDatosTemporales(t *testing.T) {
	fb := newFakeBackend(t).on("POST /simular_gemelo/", jsonAnswer(twinAnswer))
	base := newTestServer(t, fb)
	c := browser(t)
	login(t, c, base)

	_, body := post(t, c, base+"/view/digital-twin/run", url.Values{"secuencia": {"0"}})
	if !strings.Contains(body, "Simulación del gemelo digital completada") {
		t.Fatalf("expected success toast, got:\n%s", body)
	}
	const open = `<script type="application/json" id="twin-series">`
	i := strings.Index(body, open)
	if i < 0 {
		t.Fatalf("series script missing")
	}
	rest := body[i+len(open):]
	raw := rest[:strings.Index(rest, "</script>")]

	var got, want []map[string]any
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("series is not json: %v\n%s", err, raw)
	}
	var answer struct {
		Resultado struct {
			Datos []map[string]any `json:"datos_temporales"`
		} `json:"resultado"`
	}
	_ = json.Unmarshal([]byte(twinAnswer), &answer)
	want = answer.Resultado.Datos
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("chart source differs:\n got %v\nwant %v", got, want)
	}
}

func TestUpload_EmptySequencesState(t *testing.T) {
	fb := newFakeBackend(t).on("GET /secuencias/", jsonAnswer(`{"secuencias":[]}`))
	base := newTestServer(t, fb)
	c := browser(t)
	login(t, c, base)

	for _, tag := range []string{"upload", "digital-twin"} {
		_, body := get(t, c, base+"/view/"+tag)
		if !strings.Contains(body, "No hay secuencias cargadas") {
			t.Fatalf("%s: expected empty state", tag)
		}
	}
}

func TestQuery_EmptySearchRejectedLocally(t *testing.T) {
	fb := newFakeBackend(t)
	base := newTestServer(t, fb)
	c := browser(t)
	login(t, c, base)

	_, body := post(t, c, base+"/view/query/search", url.Values{"q": {"  "}})
	if !strings.Contains(body, "Por favor ingresa un término de búsqueda") {
		t.Fatalf("expected empty query notice")
	}
	if fb.called("GET /buscar/") != 0 {
		t.Fatalf("empty search must not reach the backend")
	}
}

func TestDownload_StreamsVerifiedPDF(t *testing.T) {
	fb := newFakeBackend(t).on("POST /generar_reporte_completo/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="reporte_completo_0.pdf"`)
		_, _ = w.Write(reportstest.MinimalPDF(3))
	})
	base := newTestServer(t, fb)
	c := browser(t)
	login(t, c, base)

	resp, body := get(t, c, base+"/download/reports/completo?secuencia=0&from=digital-twin")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "reporte_completo_0.pdf") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	if resp.Header.Get("X-Report-Pages") != "3" || !strings.HasPrefix(body, "%PDF-") {
		t.Fatalf("expected the verified pdf body")
	}

	_, dash := get(t, c, base+"/view/dashboard")
	if !strings.Contains(dash, "reporte_completo_0.pdf") {
		t.Fatalf("expected the download in the dashboard's recent downloads")
	}
}

func TestDownload_FailureReturnsToViewWithToast(t *testing.T) {
	fb := newFakeBackend(t).on("GET /experimentos/9/download", errorAnswer(http.StatusNotFound, `{"detail":"Experimento no encontrado"}`))
	base := newTestServer(t, fb)
	c := browser(t)
	login(t, c, base)

	_, body := get(t, c, base+"/download/experiments/9?format=pdf&from=virtual-lab")
	if !strings.Contains(body, `data-panel="virtual-lab"`) || !strings.Contains(body, "Experimento no encontrado") {
		t.Fatalf("expected virtual-lab view with the backend detail, got:\n%s", body)
	}
}

func TestHealthMetricsAndStatus(t *testing.T) {
	fb := newFakeBackend(t)
	base := newTestServer(t, fb)
	c := browser(t)

	resp, _ := get(t, c, base+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health: %d", resp.StatusCode)
	}

	_, body := get(t, c, base+"/api/v1/status/services")
	var status struct {
		Services map[string]struct {
			Enabled bool `json:"enabled"`
			OK      bool `json:"ok"`
		} `json:"services"`
	}
	if err := json.Unmarshal([]byte(body), &status); err != nil {
		t.Fatalf("status json: %v", err)
	}
	for _, name := range []string{"backend", "workspace", "archive"} {
		if s := status.Services[name]; !s.Enabled || !s.OK {
			t.Fatalf("%s: expected enabled and ok, got %+v", name, s)
		}
	}

	_, metrics := get(t, c, base+"/metrics")
	for _, want := range []string{
		`protein_ui_http_requests_total{method="GET",path="/health",status="200"}`,
		`protein_ui_backend_calls_total{endpoint="root",outcome="ok"}`,
		`protein_ui_http_in_flight_requests`,
	} {
		if !strings.Contains(metrics, want) {
			t.Fatalf("metrics missing %s", want)
		}
	}
}

func TestViewRoutePatternKeepsMetricLabelsBounded(t *testing.T) {
	fb := newFakeBackend(t)
	base := newTestServer(t, fb)
	c := browser(t)
	login(t, c, base)
	get(t, c, base+"/view/alerts")

	_, metrics := get(t, c, base+"/metrics")
	if !strings.Contains(metrics, `path="/view/{tag}"`) || strings.Contains(metrics, `path="/view/alerts"`) {
		t.Fatalf("expected the route pattern as path label")
	}
}
