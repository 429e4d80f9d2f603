package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Ping checks that the backend answers on its root path.
func (c *Client) Ping(ctx context.Context) error {
	var raw map[string]any
	return c.doJSON(ctx, "root", request{method: http.MethodGet, path: "/"}, &raw)
}

// ValidateSession returns nil when the backend accepts token.
func (c *Client) ValidateSession(ctx context.Context, token string) error {
	return c.doJSON(ctx, "session_validate", request{method: http.MethodGet, path: "/session/validate", token: token}, nil)
}

// Login exchanges credentials for a session token. Unknown emails are
// registered by the backend on first login.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	const endpoint = "login"
	fields := url.Values{"email": {email}, "password": {password}}
	var raw struct {
		Token   string          `json:"token"`
		Usuario json.RawMessage `json:"usuario"`
		Mensaje string          `json:"mensaje"`
	}
	if err := c.doJSON(ctx, endpoint, formRequest(http.MethodPost, "/login/", "", fields), &raw); err != nil {
		return nil, err
	}
	if raw.Token == "" {
		return nil, malformed(endpoint, "token")
	}
	if len(raw.Usuario) == 0 || string(raw.Usuario) == "null" {
		return nil, malformed(endpoint, "usuario")
	}
	var user User
	if err := json.Unmarshal(raw.Usuario, &user); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", endpoint, ErrMalformedResponse, err)
	}
	var extra map[string]any
	if err := json.Unmarshal(raw.Usuario, &extra); err == nil {
		for _, k := range []string{"id", "email", "nombre", "rol"} {
			delete(extra, k)
		}
		if len(extra) > 0 {
			user.Extra = extra
		}
	}
	return &LoginResult{Token: raw.Token, User: user, Message: raw.Mensaje}, nil
}

// ListSequences returns every stored sequence.
func (c *Client) ListSequences(ctx context.Context, token string) ([]Sequence, error) {
	const endpoint = "list_sequences"
	var raw struct {
		Secuencias *[]Sequence `json:"secuencias"`
	}
	if err := c.doJSON(ctx, endpoint, request{method: http.MethodGet, path: "/secuencias/", token: token}, &raw); err != nil {
		return nil, err
	}
	if raw.Secuencias == nil {
		return nil, malformed(endpoint, "secuencias")
	}
	return *raw.Secuencias, nil
}

// GetSequence returns the sequence at position idx.
func (c *Client) GetSequence(ctx context.Context, token, idx string) (*Sequence, error) {
	const endpoint = "get_sequence"
	var seq *Sequence
	p := "/secuencia/" + url.PathEscape(idx)
	if err := c.doJSON(ctx, endpoint, request{method: http.MethodGet, path: p, token: token}, &seq); err != nil {
		return nil, err
	}
	if seq == nil {
		return nil, malformed(endpoint, "secuencia")
	}
	return seq, nil
}

// UploadSequence stores a sequence from a file or from pasted text.
func (c *Client) UploadSequence(ctx context.Context, token string, in SequenceUpload) (*Sequence, error) {
	const endpoint = "upload_sequence"
	fields := url.Values{"nombre": {in.Name}, "fuente": {in.Source}}
	var file *filePart
	if in.File != nil {
		file = &filePart{field: "archivo", name: in.FileName, data: in.File}
	} else {
		fields.Set("secuencia_texto", in.Text)
	}
	req, err := multipartRequest(http.MethodPost, "/cargar_secuencia/", token, fields, file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	var raw struct {
		Registro *Sequence `json:"registro"`
	}
	if err := c.doJSON(ctx, endpoint, req, &raw); err != nil {
		return nil, err
	}
	if raw.Registro == nil {
		return nil, malformed(endpoint, "registro")
	}
	return raw.Registro, nil
}

// AnalyzePLM runs a protein language model over one sequence.
func (c *Client) AnalyzePLM(ctx context.Context, token, idxOrID, model string) (Result, error) {
	fields := url.Values{"idx_or_id": {idxOrID}}
	if model != "" {
		fields.Set("modelo", model)
	}
	return c.runResult(ctx, "analyze_plm", formRequest(http.MethodPost, "/analizar_plm/", token, fields))
}

// SimulateLab runs the virtual laboratory over one sequence.
func (c *Client) SimulateLab(ctx context.Context, token, idxOrID string) (Result, error) {
	fields := url.Values{"idx_or_id": {idxOrID}}
	return c.runResult(ctx, "simulate_lab", formRequest(http.MethodPost, "/simular_laboratorio/", token, fields))
}

// SimulateTwin runs the bioreactor digital twin over one sequence.
func (c *Client) SimulateTwin(ctx context.Context, token, idxOrID string) (*TwinResult, error) {
	const endpoint = "simulate_twin"
	fields := url.Values{"idx_or_id": {idxOrID}}
	var raw struct {
		Resultado map[string]json.RawMessage `json:"resultado"`
	}
	if err := c.doJSON(ctx, endpoint, formRequest(http.MethodPost, "/simular_gemelo/", token, fields), &raw); err != nil {
		return nil, err
	}
	if raw.Resultado == nil {
		return nil, malformed(endpoint, "resultado")
	}

	out := &TwinResult{Raw: Result{}}
	for k, v := range raw.Resultado {
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", endpoint, ErrMalformedResponse, err)
		}
		out.Raw[k] = decoded
	}
	if series, ok := raw.Resultado["datos_temporales"]; ok && string(series) != "null" {
		if err := json.Unmarshal(series, &out.TimeSeries); err != nil {
			return nil, fmt.Errorf("%s: %w: datos_temporales: %v", endpoint, ErrMalformedResponse, err)
		}
	}
	if metrics, ok := raw.Resultado["metricas_finales"]; ok && string(metrics) != "null" {
		if err := json.Unmarshal(metrics, &out.FinalMetrics); err != nil {
			return nil, fmt.Errorf("%s: %w: metricas_finales: %v", endpoint, ErrMalformedResponse, err)
		}
	}
	return out, nil
}

func (c *Client) runResult(ctx context.Context, endpoint string, r request) (Result, error) {
	var raw struct {
		Resultado Result `json:"resultado"`
	}
	if err := c.doJSON(ctx, endpoint, r, &raw); err != nil {
		return nil, err
	}
	if raw.Resultado == nil {
		return nil, malformed(endpoint, "resultado")
	}
	return raw.Resultado, nil
}

// ListExperiments returns every stored experiment.
func (c *Client) ListExperiments(ctx context.Context, token string) ([]Experiment, error) {
	const endpoint = "list_experiments"
	var raw struct {
		Experimentos *[]Experiment `json:"experimentos"`
	}
	if err := c.doJSON(ctx, endpoint, request{method: http.MethodGet, path: "/experimentos/", token: token}, &raw); err != nil {
		return nil, err
	}
	if raw.Experimentos == nil {
		return nil, malformed(endpoint, "experimentos")
	}
	return *raw.Experimentos, nil
}

// ListAlerts returns every alert.
func (c *Client) ListAlerts(ctx context.Context, token string) ([]Alert, error) {
	const endpoint = "list_alerts"
	var raw struct {
		Alertas *[]Alert `json:"alertas"`
	}
	if err := c.doJSON(ctx, endpoint, request{method: http.MethodGet, path: "/alertas/", token: token}, &raw); err != nil {
		return nil, err
	}
	if raw.Alertas == nil {
		return nil, malformed(endpoint, "alertas")
	}
	return *raw.Alertas, nil
}

// CreateAlert registers a manual alert. The returned alert is nil when the
// backend only acknowledges the creation.
func (c *Client) CreateAlert(ctx context.Context, token string, in NewAlert) (*Alert, error) {
	const endpoint = "create_alert"
	fields := url.Values{
		"usuario":   {in.User},
		"mensaje":   {in.Message},
		"tipo":      {in.Type},
		"prioridad": {in.Priority},
	}
	req, err := multipartRequest(http.MethodPost, "/alerta/", token, fields, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	var raw struct {
		Alerta *Alert `json:"alerta"`
	}
	if err := c.doJSON(ctx, endpoint, req, &raw); err != nil {
		return nil, err
	}
	return raw.Alerta, nil
}

// ResolveAlert marks an alert as resolved.
func (c *Client) ResolveAlert(ctx context.Context, token, id string) error {
	p := "/alerta/" + url.PathEscape(id) + "/resolver"
	return c.doJSON(ctx, "resolve_alert", request{method: http.MethodPut, path: p, token: token}, nil)
}

// ComparativeReports summarises experiments by type.
func (c *Client) ComparativeReports(ctx context.Context, token string) (*ComparativeSummary, error) {
	const endpoint = "comparative_reports"
	var raw struct {
		Reportes          *[]ComparativeReport `json:"reportes"`
		TotalExperimentos int                  `json:"total_experimentos"`
		TotalSecuencias   int                  `json:"total_secuencias"`
		Mensaje           string               `json:"mensaje"`
	}
	if err := c.doJSON(ctx, endpoint, request{method: http.MethodGet, path: "/reportes/comparativos/", token: token}, &raw); err != nil {
		return nil, err
	}
	if raw.Reportes == nil {
		return nil, malformed(endpoint, "reportes")
	}
	return &ComparativeSummary{
		Reports:          *raw.Reportes,
		TotalExperiments: raw.TotalExperimentos,
		TotalSequences:   raw.TotalSecuencias,
		Message:          raw.Mensaje,
	}, nil
}

// Search looks up sequences, experiments and alerts. tipo is one of
// all, datasets, analysis or reports.
func (c *Client) Search(ctx context.Context, token, q, tipo string) (*SearchResult, error) {
	const endpoint = "search"
	if tipo == "" {
		tipo = "all"
	}
	var raw struct {
		Total      int `json:"total_resultados"`
		Resultados *struct {
			Secuencias   []SearchHit `json:"secuencias"`
			Experimentos []SearchHit `json:"experimentos"`
			Alertas      []SearchHit `json:"alertas"`
		} `json:"resultados"`
	}
	r := request{method: http.MethodGet, path: "/buscar/", token: token, query: url.Values{"q": {q}, "tipo": {tipo}}}
	if err := c.doJSON(ctx, endpoint, r, &raw); err != nil {
		return nil, err
	}
	if raw.Resultados == nil {
		return nil, malformed(endpoint, "resultados")
	}
	return &SearchResult{
		Total:       raw.Total,
		Sequences:   raw.Resultados.Secuencias,
		Experiments: raw.Resultados.Experimentos,
		Alerts:      raw.Resultados.Alertas,
	}, nil
}

// DownloadExperiment fetches the report of one experiment as txt or pdf.
func (c *Client) DownloadExperiment(ctx context.Context, token, id, format string) (*Download, error) {
	format = normalizeFormat(format, "txt", "txt", "pdf")
	r := request{
		method: http.MethodGet,
		path:   "/experimentos/" + url.PathEscape(id) + "/download",
		token:  token,
		query:  url.Values{"format": {format}},
	}
	return c.download(ctx, "download_experiment", r, fmt.Sprintf("experimento_%s.%s", id, format))
}

// DownloadComparative fetches experiments filtered by tipo as csv or pdf.
func (c *Client) DownloadComparative(ctx context.Context, token, tipo, format string) (*Download, error) {
	format = normalizeFormat(format, "csv", "csv", "pdf")
	q := url.Values{"format": {format}}
	if tipo != "" {
		q.Set("tipo", tipo)
	}
	r := request{method: http.MethodGet, path: "/reportes/comparativos/download", token: token, query: q}
	name := tipo
	if name == "" {
		name = "todos"
	}
	return c.download(ctx, "download_comparative", r, fmt.Sprintf("reportes_%s.%s", name, format))
}

// DownloadInforme fetches a system report (sistema, alertas) as json, csv or html.
func (c *Client) DownloadInforme(ctx context.Context, token, tipo, formato string) (*Download, error) {
	formato = normalizeFormat(formato, "json", "json", "csv", "html")
	r := request{
		method: http.MethodGet,
		path:   "/informes/" + url.PathEscape(tipo) + "/",
		token:  token,
		query:  url.Values{"formato": {formato}},
	}
	return c.download(ctx, "download_informe", r, fmt.Sprintf("informe_%s.%s", tipo, formato))
}

// DownloadDocumentation fetches the system documentation PDF.
func (c *Client) DownloadDocumentation(ctx context.Context, token string) (*Download, error) {
	r := request{method: http.MethodGet, path: "/documentacion/", token: token, query: url.Values{"formato": {"pdf"}}}
	return c.download(ctx, "download_documentation", r, "documentacion_sistema.pdf")
}

// GenerateReport renders a PDF report of one sequence.
func (c *Client) GenerateReport(ctx context.Context, token string, kind ReportKind, idxOrID string) (*Download, error) {
	if _, ok := ParseReportKind(string(kind)); !ok {
		return nil, fmt.Errorf("generate_report: unknown report kind %q", kind)
	}
	endpoint := "generate_report_" + string(kind)
	req, err := multipartRequest(http.MethodPost, "/generar_reporte_"+string(kind)+"/", token, url.Values{"idx_or_id": {idxOrID}}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	return c.download(ctx, endpoint, req, fmt.Sprintf("reporte_%s_%s.pdf", kind, idxOrID))
}

func normalizeFormat(v, def string, allowed ...string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return def
}
