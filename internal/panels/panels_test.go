package panels

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"protein-analysis-ui/internal/connectors/archive"
	"protein-analysis-ui/internal/connectors/backend"
	"protein-analysis-ui/internal/connectors/workspace"
	"protein-analysis-ui/internal/logging"
	"protein-analysis-ui/internal/reports/reportstest"
	"protein-analysis-ui/internal/view"
)

const (
	twoSequences = `{"secuencias":[{"id":1,"nombre":"Lisozima","fuente":"Manual","secuencia":"KVFGRCELAAAMKRHGLDNYRGYSLGNWVCAAKFESNFNTQATNRNTDGSTDYGILQINSRWWCNDGRTPGSRNLCNIPCSALLSSDITASVNCAKKIVSDGNGMNAWVAWRNRCKGTDVQAWIRGCRL","longitud":129},{"id":2,"nombre":"Insulina","fuente":"UniProt","secuencia":"MALWMRLLPLLALLALWGPDPAAA","longitud":24}]}`
	noSequences  = `{"secuencias":[]}`
)

// fakeBackend serves canned answers per path. Unknown paths answer 404.
type fakeBackend struct {
	t      *testing.T
	routes map[string]http.HandlerFunc

	mu     sync.Mutex
	tokens []string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{t: t, routes: map[string]http.HandlerFunc{
		"GET /secuencias/":   jsonAnswer(twoSequences),
		"GET /experimentos/": jsonAnswer(`{"experimentos":[{"id":1,"tipo":"plm"},{"id":2,"tipo":"laboratorio"},{"id":3,"tipo":"gemelo"}]}`),
		"GET /alertas/":      jsonAnswer(`{"alertas":[]}`),
	}}
}

func (f *fakeBackend) on(route string, h http.HandlerFunc) *fakeBackend {
	f.routes[route] = h
	return f
}

func (f *fakeBackend) client() *backend.Client {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.tokens = append(f.tokens, r.Header.Get("Authorization"))
		f.mu.Unlock()
		if h, ok := f.routes[r.Method+" "+r.URL.Path]; ok {
			h(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	f.t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL, 5*time.Second)
}

func jsonAnswer(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func errorAnswer(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func newTestSet(t *testing.T, fb *fakeBackend, withStores bool) (*Set, Deps) {
	t.Helper()
	d := Deps{Backend: fb.client(), Log: logging.Discard(), RecentLimit: 2}
	if withStores {
		ws, err := workspace.NewSQLiteStore(filepath.Join(t.TempDir(), "ws.db"))
		if err != nil {
			t.Fatalf("workspace: %v", err)
		}
		t.Cleanup(func() { _ = ws.Close() })
		arc, err := archive.Open("", time.Hour)
		if err != nil {
			t.Fatalf("archive: %v", err)
		}
		t.Cleanup(func() { _ = arc.Close() })
		d.Workspace, d.Archive = ws, arc
	}
	return NewSet(d), d
}

var caller = Caller{Token: "tok-1", Actor: "ana@lab.org"}

func TestSet_PanelsCoverEveryView(t *testing.T) {
	set, _ := newTestSet(t, newFakeBackend(t), false)
	var tags []view.Tag
	for _, p := range set.Panels() {
		tags = append(tags, p.Tag())
	}
	if !reflect.DeepEqual(tags, view.All()) {
		t.Fatalf("panels %v do not match views %v", tags, view.All())
	}
}

func TestRouter_EachTagMountsOnePanelWithToken(t *testing.T) {
	fb := newFakeBackend(t).
		on("GET /reportes/comparativos/", jsonAnswer(`{"reportes":[],"total_experimentos":0,"total_secuencias":0}`))
	set, _ := newTestSet(t, fb, true)
	r := view.NewRouter(set.Panels()...)

	for _, tag := range view.All() {
		if err := r.Select(tag); err != nil {
			t.Fatalf("select %s: %v", tag, err)
		}
		fb.mu.Lock()
		fb.tokens = nil
		fb.mu.Unlock()
		out, err := r.Render(context.Background(), "tok-42")
		if err != nil {
			t.Fatalf("render %s: %v", tag, err)
		}
		if out.Tag != tag || out.Model == nil {
			t.Fatalf("unexpected render %+v", out)
		}
		fb.mu.Lock()
		seen := append([]string(nil), fb.tokens...)
		fb.mu.Unlock()
		for _, got := range seen {
			if got != "Bearer tok-42" {
				t.Fatalf("%s forwarded token %q", tag, got)
			}
		}
	}
}

func TestUpload_EmptySequences(t *testing.T) {
	set, _ := newTestSet(t, newFakeBackend(t).on("GET /secuencias/", jsonAnswer(noSequences)), false)
	m := set.Upload.Mount(context.Background(), "tok-1")
	if m.State != StateEmpty || len(m.Sequences) != 0 {
		t.Fatalf("expected empty state, got %+v", m)
	}
}

func TestUpload_TextRequiresNameAndSequence(t *testing.T) {
	fb := newFakeBackend(t).on("POST /cargar_secuencia/", func(http.ResponseWriter, *http.Request) {
		t.Errorf("backend must not be called")
	})
	set, _ := newTestSet(t, fb, false)
	_, n := set.Upload.UploadText(context.Background(), caller, "  ", "Manual", "MKT")
	if n.Kind != NoticeError || n.Message != "Por favor completa nombre y secuencia" {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestUpload_AppendsRegistro(t *testing.T) {
	fb := newFakeBackend(t).
		on("GET /secuencias/", jsonAnswer(noSequences)).
		on("POST /cargar_secuencia/", func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			if r.FormValue("nombre") != "Mioglobina" || r.FormValue("secuencia_texto") != "MGLSDGEWQ" {
				t.Errorf("unexpected form %v", r.MultipartForm.Value)
			}
			_, _ = io.WriteString(w, `{"mensaje":"ok","registro":{"id":7,"nombre":"Mioglobina","secuencia":"MGLSDGEWQ"}}`)
		})
	set, d := newTestSet(t, fb, true)

	m, n := set.Upload.UploadText(context.Background(), caller, "Mioglobina", "", "MGLSDGEWQ")
	if n.Kind != NoticeSuccess || n.Message != `Secuencia "Mioglobina" cargada correctamente` {
		t.Fatalf("unexpected notice %+v", n)
	}
	if m.State != StatePopulated || len(m.Sequences) != 1 || m.Sequences[0].ID != "7" {
		t.Fatalf("expected registro appended, got %+v", m.Sequences)
	}
	act, _ := d.Workspace.ListActivity(context.Background(), caller.Actor, 5)
	if len(act) != 1 || act[0].Action != "cargar_secuencia" {
		t.Fatalf("expected activity entry, got %+v", act)
	}
}

func TestUpload_FileRejectsExtension(t *testing.T) {
	set, _ := newTestSet(t, newFakeBackend(t), false)
	_, n := set.Upload.UploadFile(context.Background(), caller, "", "", "seq.docx", []byte("x"))
	if n.Kind != NoticeError || !strings.Contains(n.Message, ".fasta") {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestModelRun_Run(t *testing.T) {
	fb := newFakeBackend(t).on("POST /analizar_plm/", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("idx_or_id") != "1" || r.PostForm.Get("modelo") != "protbert" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		_, _ = io.WriteString(w, `{"resultado":{"estabilidad":0.87}}`)
	})
	set, _ := newTestSet(t, fb, false)

	m, n := set.ModelRun.Run(context.Background(), caller, "1", "ProtBERT")
	if n.Kind != NoticeSuccess || n.Message != "Predicción completada" {
		t.Fatalf("unexpected notice %+v", n)
	}
	if m.Run == nil || m.Run.Sequence != "Insulina" || m.Run.Model != "ProtBERT" || m.Run.Result["estabilidad"] != 0.87 {
		t.Fatalf("unexpected run %+v", m.Run)
	}
}

func TestModelRun_RequiresSequence(t *testing.T) {
	set, _ := newTestSet(t, newFakeBackend(t).on("GET /secuencias/", jsonAnswer(noSequences)), false)
	_, n := set.ModelRun.Run(context.Background(), caller, "", "esm2")
	if n.Message != "Por favor carga al menos una secuencia" {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestModelRun_BackendDetail(t *testing.T) {
	fb := newFakeBackend(t).on("POST /analizar_plm/", errorAnswer(http.StatusNotFound, `{"detail":"Secuencia no encontrada"}`))
	set, _ := newTestSet(t, fb, false)
	_, n := set.ModelRun.Run(context.Background(), caller, "9", "")
	if n.Kind != NoticeError || n.Message != "Secuencia no encontrada" {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestVirtualLab_RunRefreshesExperiments(t *testing.T) {
	calls := 0
	fb := newFakeBackend(t).
		on("GET /experimentos/", func(w http.ResponseWriter, _ *http.Request) {
			calls++
			if calls == 1 {
				_, _ = io.WriteString(w, `{"experimentos":[]}`)
				return
			}
			_, _ = io.WriteString(w, `{"experimentos":[{"id":11,"tipo":"laboratorio"}]}`)
		}).
		on("POST /simular_laboratorio/", jsonAnswer(`{"resultado":{"actividad":0.5}}`))
	set, _ := newTestSet(t, fb, false)

	m := set.VirtualLab.Mount(context.Background(), "tok-1")
	if len(m.Experiments) != 0 {
		t.Fatalf("expected no experiments on mount")
	}
	m, n := set.VirtualLab.Run(context.Background(), caller, "0")
	if n.Message != "Simulación de laboratorio completada" {
		t.Fatalf("unexpected notice %+v", n)
	}
	if len(m.Experiments) != 1 || m.Experiments[0].ID != "11" || m.Result["actividad"] != 0.5 {
		t.Fatalf("unexpected model %+v", m)
	}
}

func TestDigitalTwin_EmptySequences(t *testing.T) {
	set, _ := newTestSet(t, newFakeBackend(t).on("GET /secuencias/", jsonAnswer(noSequences)), false)
	m := set.DigitalTwin.Mount(context.Background(), "tok-1")
	if m.State != StateEmpty {
		t.Fatalf("expected empty state, got %s", m.State)
	}
	if !reflect.DeepEqual(m.Series, DefaultSeries()) {
		t.Fatalf("expected default series before any run")
	}
}

func TestDigitalTwin_SeriesIsDatosTemporales(t *testing.T) {
	fb := newFakeBackend(t).on("POST /simular_gemelo/", jsonAnswer(`{"resultado":{
		"datos_temporales":[{"time":0,"biomasa":1.5,"producto":0},{"time":12,"biomasa":6.25,"producto":2}],
		"metricas_finales":{"biomasa_maxima":6.25,"eficiencia_proceso":81.3}}}`))
	set, _ := newTestSet(t, fb, false)

	m, n := set.DigitalTwin.Run(context.Background(), caller, "0")
	want := []map[string]any{
		{"time": 0.0, "biomasa": 1.5, "producto": 0.0},
		{"time": 12.0, "biomasa": 6.25, "producto": 2.0},
	}
	if !reflect.DeepEqual(m.Series, want) {
		t.Fatalf("series %v, want %v", m.Series, want)
	}
	if n.Kind != NoticeSuccess || n.Description != "Biomasa máx: 6.25 g/L, Eficiencia: 81.3%" {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestDigitalTwin_MissingMetrics(t *testing.T) {
	fb := newFakeBackend(t).on("POST /simular_gemelo/", jsonAnswer(`{"resultado":{"datos_temporales":[]}}`))
	set, _ := newTestSet(t, fb, false)
	m, n := set.DigitalTwin.Run(context.Background(), caller, "")
	if len(m.Series) != 0 || m.Series == nil {
		t.Fatalf("expected an empty series, got %v", m.Series)
	}
	if n.Description != "Biomasa máx: N/A g/L, Eficiencia: N/A%" {
		t.Fatalf("unexpected description %q", n.Description)
	}
}

func TestQuery_SearchNotices(t *testing.T) {
	total := 0
	fb := newFakeBackend(t).
		on("GET /reportes/comparativos/", jsonAnswer(`{"reportes":[{"tipo":"plm","cantidad":3}],"total_experimentos":3,"total_secuencias":2}`)).
		on("GET /buscar/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("tipo") != "analysis" {
				t.Errorf("unexpected tipo %q", r.URL.Query().Get("tipo"))
			}
			if total == 0 {
				_, _ = io.WriteString(w, `{"total_resultados":0,"resultados":{"secuencias":[],"experimentos":[],"alertas":[]}}`)
				return
			}
			_, _ = io.WriteString(w, `{"total_resultados":2,"resultados":{"secuencias":[{"id":1,"nombre":"Lisozima"}],"experimentos":[{"id":4,"tipo":"plm"}],"alertas":[]}}`)
		})
	set, _ := newTestSet(t, fb, false)
	ctx := context.Background()

	if _, n := set.Query.Search(ctx, caller, "   ", "analysis"); n.Message != "Por favor ingresa un término de búsqueda" {
		t.Fatalf("unexpected notice for empty query %+v", n)
	}
	if _, n := set.Query.Search(ctx, caller, "lisozima", "analysis"); n.Kind != NoticeInfo || n.Message != "No se encontraron resultados" {
		t.Fatalf("unexpected notice for no results %+v", n)
	}
	total = 2
	m, n := set.Query.Search(ctx, caller, "lisozima", "analysis")
	if n.Kind != NoticeSuccess || n.Message != "Se encontraron 2 resultados" {
		t.Fatalf("unexpected notice %+v", n)
	}
	if m.Results == nil || len(m.Results.Sequences) != 1 || m.TotalExperiments != 3 {
		t.Fatalf("unexpected model %+v", m)
	}
}

func TestQuery_SavedQueries(t *testing.T) {
	searched := ""
	fb := newFakeBackend(t).
		on("GET /reportes/comparativos/", jsonAnswer(`{"reportes":[],"total_experimentos":0,"total_secuencias":0}`)).
		on("GET /buscar/", func(w http.ResponseWriter, r *http.Request) {
			searched = r.URL.Query().Get("q")
			_, _ = io.WriteString(w, `{"total_resultados":0,"resultados":{}}`)
		})
	set, _ := newTestSet(t, fb, true)
	ctx := context.Background()

	m, n := set.Query.SaveQuery(ctx, caller, "", "kinasa", "datasets")
	if n.Kind != NoticeSuccess || len(m.Saved) != 1 || m.Saved[0].Tipo != "datasets" {
		t.Fatalf("unexpected save result %+v %+v", n, m.Saved)
	}
	other := Caller{Token: "tok-2", Actor: "leo@lab.org"}
	if m := set.Query.Mount(ctx, other); len(m.Saved) != 0 {
		t.Fatalf("saved queries leaked to another user: %+v", m.Saved)
	}

	_, _ = set.Query.RunSaved(ctx, caller, m.Saved[0].ID)
	if searched != "kinasa" {
		t.Fatalf("expected saved query to run, searched %q", searched)
	}
	m, n = set.Query.DeleteSavedQuery(ctx, caller, m.Saved[0].ID)
	if n.Kind != NoticeSuccess || len(m.Saved) != 0 {
		t.Fatalf("unexpected delete result %+v %+v", n, m.Saved)
	}
}

func TestQuery_SavedDisabledWithoutStore(t *testing.T) {
	fb := newFakeBackend(t).on("GET /reportes/comparativos/", jsonAnswer(`{"reportes":[]}`))
	set, _ := newTestSet(t, fb, false)
	m := set.Query.Mount(context.Background(), caller)
	if m.State != StateEmpty || m.SavedError == "" {
		t.Fatalf("unexpected model %+v", m)
	}
}

func TestAlerts_CountsAndActions(t *testing.T) {
	resolved := ""
	fb := newFakeBackend(t).
		on("GET /alertas/", jsonAnswer(`{"alertas":[
			{"id":1,"tipo":"error","mensaje":"pH fuera de rango","prioridad":"alta","resuelta":false},
			{"id":2,"tipo":"info","mensaje":"ok","prioridad":"High","resuelta":true},
			{"id":3,"tipo":"warning","mensaje":"temp","prioridad":"media","resuelta":false}]}`)).
		on("PUT /alerta/1/resolver", func(w http.ResponseWriter, _ *http.Request) {
			resolved = "1"
			_, _ = io.WriteString(w, `{"mensaje":"ok"}`)
		}).
		on("POST /alerta/", func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseMultipartForm(1 << 20)
			if r.FormValue("usuario") != caller.Actor || r.FormValue("prioridad") != "media" {
				t.Errorf("unexpected alert form %v", r.MultipartForm.Value)
			}
			_, _ = io.WriteString(w, `{"mensaje":"creada"}`)
		}).
		on("GET /reportes/comparativos/", jsonAnswer(`{"reportes":[],"total_experimentos":5,"total_secuencias":2}`))
	set, _ := newTestSet(t, fb, false)
	ctx := context.Background()

	m := set.Alerts.Mount(ctx, "tok-1")
	if m.Counts != (AlertCounts{Active: 2, Critical: 1, Resolved: 1}) {
		t.Fatalf("unexpected counts %+v", m.Counts)
	}
	if _, n := set.Alerts.Resolve(ctx, caller, "1"); n.Message != "Alerta marcada como resuelta" || resolved != "1" {
		t.Fatalf("unexpected resolve notice %+v", n)
	}
	if _, n := set.Alerts.Create(ctx, caller, "info", "Alerta de prueba", ""); n.Message != "Nueva alerta creada" {
		t.Fatalf("unexpected create notice %+v", n)
	}
	if _, n := set.Alerts.Summary(ctx, caller); n.Message != "Reporte generado: 5 experimentos, 2 secuencias" {
		t.Fatalf("unexpected summary notice %+v", n)
	}
	if n, ok := set.UnresolvedAlerts(ctx, "tok-1"); !ok || n != 2 {
		t.Fatalf("unexpected badge %d %v", n, ok)
	}
}

func TestDashboard_Mount(t *testing.T) {
	set, _ := newTestSet(t, newFakeBackend(t), true)
	m := set.Dashboard.Mount(context.Background(), "tok-1")
	if m.State != StatePopulated {
		t.Fatalf("unexpected state %s (%s)", m.State, m.Error)
	}
	if m.Stats != (DashboardStats{TotalAnalyses: 3, ActivePredictions: 2, Datasets: 2, AveragePrecision: 92.4}) {
		t.Fatalf("unexpected stats %+v", m.Stats)
	}
	if len(m.Recent) != 2 || m.Recent[0].ID != "3" || m.Recent[1].ID != "2" {
		t.Fatalf("unexpected recent experiments %+v", m.Recent)
	}
}

func TestDashboard_ErrorState(t *testing.T) {
	fb := newFakeBackend(t).on("GET /experimentos/", errorAnswer(http.StatusInternalServerError, `{"error":"db caída"}`))
	set, _ := newTestSet(t, fb, false)
	m := set.Dashboard.Mount(context.Background(), "tok-1")
	if m.State != StateError || m.Error != "db caída" {
		t.Fatalf("unexpected model %+v", m)
	}
}

func TestDatasets_DisabledStore(t *testing.T) {
	set, _ := newTestSet(t, newFakeBackend(t), false)
	m := set.Datasets.Mount(context.Background(), "tok-1")
	if m.State != StateError || m.Error != storeDisabled {
		t.Fatalf("unexpected model %+v", m)
	}
}

func TestDatasets_ImportEditExportDelete(t *testing.T) {
	set, _ := newTestSet(t, newFakeBackend(t), true)
	ctx := context.Background()

	fasta := []byte(">sp|P69905|HBA\nMVLSPADKTN\n>sp|P68871|HBB\nMVHLTPEEKS\n")
	m, n := set.Datasets.Import(ctx, caller, "hemoglobinas.fasta", "", fasta)
	if n.Kind != NoticeSuccess || m.State != StatePopulated || len(m.Datasets) != 1 {
		t.Fatalf("unexpected import result %+v %+v", n, m)
	}
	d := m.Datasets[0]
	if d.Name != "hemoglobinas" || d.Records != 2 || d.Source != "Importado" || d.Status != workspace.DatasetInReview {
		t.Fatalf("unexpected dataset %+v", d)
	}

	if _, n := set.Datasets.Update(ctx, caller, d.ID, "globinas humanas", "Inventado"); n.Kind != NoticeError {
		t.Fatalf("expected invalid status to be rejected")
	}
	m, n = set.Datasets.Update(ctx, caller, d.ID, "globinas humanas", workspace.DatasetCurated)
	if n.Kind != NoticeSuccess || m.Stats.Curated != 1 {
		t.Fatalf("unexpected update result %+v %+v", n, m.Stats)
	}

	f, err := set.Datasets.Export(ctx, caller, d.ID, "csv")
	if err != nil {
		t.Fatalf("export csv: %v", err)
	}
	if !strings.HasPrefix(string(f.Body), "nombre,version,registros") || !strings.Contains(string(f.Body), "hemoglobinas,v1.0,2,") {
		t.Fatalf("unexpected csv %q", f.Body)
	}
	f, err = set.Datasets.Export(ctx, caller, d.ID, "yaml")
	if err != nil || !strings.Contains(string(f.Body), "name: hemoglobinas") || !strings.HasSuffix(f.Name, ".yaml") {
		t.Fatalf("unexpected yaml export %v %q", err, f.Body)
	}

	m, n = set.Datasets.Delete(ctx, caller, d.ID)
	if n.Kind != NoticeSuccess || m.State != StateEmpty {
		t.Fatalf("unexpected delete result %+v %+v", n, m)
	}
	if _, n := set.Datasets.Delete(ctx, caller, d.ID); n.Message != "Dataset no encontrado" {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestCountRecords(t *testing.T) {
	cases := []struct {
		ext  string
		body string
		want int64
	}{
		{".fasta", ">a\nMK\n>b\nMV\n", 2},
		{".csv", "id,seq\n1,MK\n2,MV\n\n", 2},
		{".txt", "MK\n\nMV\nMA\n", 3},
	}
	for _, tc := range cases {
		if got := CountRecords(tc.ext, []byte(tc.body)); got != tc.want {
			t.Fatalf("%s: got %d, want %d", tc.ext, got, tc.want)
		}
	}
}

func TestDownloads_VerifiesAndArchivesPDF(t *testing.T) {
	fb := newFakeBackend(t).on("POST /generar_reporte_gemelo/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="reporte_gemelo_0.pdf"`)
		_, _ = w.Write(reportstest.MinimalPDF(2))
	})
	set, d := newTestSet(t, fb, true)
	ctx := context.Background()

	f, err := set.Downloads.Report(ctx, caller, "gemelo", "0")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if f.Pages != 2 || f.Name != "reporte_gemelo_0.pdf" {
		t.Fatalf("unexpected file %+v", f)
	}
	entries, _ := d.Archive.List(ctx, caller.Actor, 10)
	if len(entries) != 1 || entries[0].Kind != KindReport || entries[0].Pages != 2 {
		t.Fatalf("unexpected archive entries %+v", entries)
	}
	again, err := set.Downloads.Archived(ctx, caller, entries[0].ID)
	if err != nil || string(again.Body) != string(f.Body) {
		t.Fatalf("archived copy differs: %v", err)
	}
	other := Caller{Token: "tok-2", Actor: "luis@lab.org"}
	if _, err := set.Downloads.Archived(ctx, other, entries[0].ID); !errors.Is(err, archive.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user, got %v", err)
	}
}

func TestDownloads_RejectsBrokenPDF(t *testing.T) {
	fb := newFakeBackend(t).on("GET /documentacion/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-1.4 not really")
	})
	set, d := newTestSet(t, fb, true)
	if _, err := set.Downloads.Documentation(context.Background(), caller); err == nil {
		t.Fatalf("expected broken pdf to be rejected")
	}
	if st, _ := d.Archive.Stats(context.Background()); st.Entries != 0 {
		t.Fatalf("broken pdf must not be archived")
	}
}

func TestDownloads_UnknownKinds(t *testing.T) {
	set, _ := newTestSet(t, newFakeBackend(t), false)
	if _, err := set.Downloads.Report(context.Background(), caller, "bogus", "0"); err == nil {
		t.Fatalf("expected unknown report kind error")
	}
	if _, err := set.Downloads.Informe(context.Background(), caller, "usuarios", "json"); err == nil {
		t.Fatalf("expected unknown informe error")
	}
}

func TestLogin(t *testing.T) {
	fb := newFakeBackend(t).on("POST /login/", jsonAnswer(`{"token":"tok-9","usuario":{"id":3,"email":"ana@lab.org","nombre":"Ana","rol":"investigador"}}`))
	client := fb.client()
	ctx := context.Background()

	if _, n := Login(ctx, client, nil, LoginForm{Email: "ana@lab.org"}); n.Message != "Por favor completa todos los campos" {
		t.Fatalf("unexpected notice %+v", n)
	}
	if _, n := Login(ctx, client, nil, LoginForm{Email: "ana@lab.org", Password: "a", Confirm: "b", Register: true}); n.Message != "Las contraseñas no coinciden" {
		t.Fatalf("unexpected notice %+v", n)
	}
	res, n := Login(ctx, client, nil, LoginForm{Email: " ana@lab.org ", Password: "secret"})
	if res == nil || res.Token != "tok-9" || res.User.ID != "3" || res.User.Name != "Ana" {
		t.Fatalf("unexpected login %+v", res)
	}
	if n.Kind != NoticeSuccess || n.Message != "Bienvenido, Ana!" {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestLogin_BackendDetail(t *testing.T) {
	fb := newFakeBackend(t).on("POST /login/", errorAnswer(http.StatusUnauthorized, `{"detail":"Contraseña incorrecta"}`))
	res, n := Login(context.Background(), fb.client(), logging.Discard(), LoginForm{Email: "ana@lab.org", Password: "bad"})
	if res != nil || n.Message != "Contraseña incorrecta" {
		t.Fatalf("unexpected login %+v %+v", res, n)
	}
}
