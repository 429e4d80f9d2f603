package http

import (
	"bytes"
	"encoding/json"
	"html/template"
	nethttp "net/http"
	"time"

	"github.com/dustin/go-humanize"

	"protein-analysis-ui/internal/panels"
	"protein-analysis-ui/internal/session"
	"protein-analysis-ui/internal/view"
)

type loginPage struct {
	Email    string
	Register bool
	Notices  []panels.Notice
}

type navItem struct {
	Tag    view.Tag
	Label  string
	Active bool
}

type mainPage struct {
	User    session.UserProfile
	Active  view.Tag
	Nav     []navItem
	Badge   int
	BadgeOK bool
	Notices []panels.Notice
	Panel   any
}

type pages struct {
	tmpl *template.Template
}

var templateFuncs = template.FuncMap{
	"json": func(v any) string {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err.Error()
		}
		return string(b)
	},
	"bytes": func(n int64) string {
		if n < 0 {
			n = 0
		}
		return humanize.Bytes(uint64(n))
	},
	"ago":  func(t time.Time) string { return humanize.Time(t) },
	"date": func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
}

func newPages() (*pages, error) {
	t, err := template.New("ui").Funcs(templateFuncs).Parse(layoutTemplates + panelTemplates)
	if err != nil {
		return nil, err
	}
	return &pages{tmpl: t}, nil
}

func (p *pages) renderLogin(w nethttp.ResponseWriter, status int, data loginPage) {
	p.render(w, status, "login", data)
}

func (p *pages) renderMain(w nethttp.ResponseWriter, status int, data mainPage) {
	p.render(w, status, "main", data)
}

// render executes into a buffer so a template error never leaves half a page.
func (p *pages) render(w nethttp.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		nethttp.Error(w, "template error: "+err.Error(), nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

const layoutTemplates = `
{{define "head"}}<!doctype html>
<html lang="es">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Protein Analysis</title>
  <style>
    :root {
      --brand: #1e3a8a;
      --brand-2: #2563eb;
      --bg: #f5f7fb;
      --paper: #fff;
      --text: #1f2937;
      --muted: #6b7280;
      --line: #e5e7eb;
      --ok-bg: #dcfce7;
      --ok-text: #166534;
      --bad-bg: #fee2e2;
      --bad-text: #991b1b;
      --info-bg: #dbeafe;
      --info-text: #1e40af;
    }
    * { box-sizing: border-box; }
    body { margin: 0; background: var(--bg); color: var(--text); font-family: "Open Sans", "Helvetica Neue", Helvetica, Arial, sans-serif; font-size: 14px; }
    a { color: var(--brand-2); text-decoration: none; }
    a:hover { text-decoration: underline; }
    .app { display: flex; min-height: 100vh; }
    .sidebar { width: 250px; background: linear-gradient(to bottom, var(--brand) 0, var(--brand-2) 100%); color: #fff; padding: 18px 14px; display: flex; flex-direction: column; gap: 14px; }
    .sidebar .brand { font-size: 20px; font-weight: 300; }
    .sidebar .brand strong { font-weight: 600; }
    .sidebar .user { font-size: 13px; opacity: 0.9; }
    .sidebar .role { display: inline-block; margin-left: 4px; padding: 0 6px; border-radius: 8px; background: rgba(255,255,255,0.2); }
    .nav-item { display: flex; justify-content: space-between; padding: 8px 10px; border-radius: 6px; color: #fff; }
    .nav-item.active, .nav-item:hover { background: rgba(255,255,255,0.18); text-decoration: none; }
    .badge { background: #ef4444; border-radius: 10px; padding: 0 7px; font-size: 12px; }
    main { flex: 1; padding: 20px 28px 40px; }
    .card { background: var(--paper); border: 1px solid var(--line); border-radius: 8px; padding: 14px 16px; margin-bottom: 14px; }
    .cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 12px; margin-bottom: 14px; }
    .stat { font-size: 26px; font-weight: 600; }
    .muted { color: var(--muted); }
    table { width: 100%; border-collapse: collapse; }
    th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid var(--line); vertical-align: top; }
    th { background: #f9fafb; font-weight: 600; }
    pre { background: #0f172a; color: #e2e8f0; padding: 10px; border-radius: 6px; overflow: auto; max-height: 420px; }
    input, select, textarea { font: inherit; padding: 6px 8px; border: 1px solid #cbd5e1; border-radius: 4px; }
    textarea { width: 100%; min-height: 110px; font-family: monospace; }
    button { font: inherit; padding: 6px 12px; border: 1px solid var(--brand-2); background: var(--brand-2); color: #fff; border-radius: 4px; cursor: pointer; }
    button.secondary { background: #fff; color: var(--brand-2); }
    form.inline { display: inline; }
    .row { display: flex; gap: 10px; flex-wrap: wrap; align-items: end; margin-bottom: 8px; }
    .toast { padding: 10px 14px; border-radius: 6px; margin-bottom: 10px; }
    .toast.success { background: var(--ok-bg); color: var(--ok-text); }
    .toast.error { background: var(--bad-bg); color: var(--bad-text); }
    .toast.info { background: var(--info-bg); color: var(--info-text); }
    .state-error { background: var(--bad-bg); color: var(--bad-text); padding: 12px; border-radius: 6px; }
    .state-empty { color: var(--muted); padding: 12px; border: 1px dashed var(--line); border-radius: 6px; }
    .login-wrap { max-width: 380px; margin: 10vh auto; }
    .login-wrap label { display: block; margin: 8px 0 4px; }
    .login-wrap input[type=email], .login-wrap input[type=password] { width: 100%; }
    .pill { display: inline-block; padding: 0 8px; border-radius: 10px; background: #eef2ff; font-size: 12px; }
    .pill.alta, .pill.high, .pill.error { background: var(--bad-bg); color: var(--bad-text); }
  </style>
</head>
{{end}}

{{define "toasts"}}{{range .}}<div class="toast {{.Kind}}" role="status"><strong>{{.Message}}</strong>{{if .Description}} <span>{{.Description}}</span>{{end}}</div>{{end}}{{end}}

{{define "login"}}{{template "head"}}
<body>
<div id="login-view" class="login-wrap">
  <div class="card">
    <h2>Protein Analysis</h2>
    <p class="muted">Plataforma de análisis de proteínas</p>
    {{template "toasts" .Notices}}
    <form method="post" action="/login">
      <label><input type="radio" name="mode" value="login"{{if not .Register}} checked{{end}}> Iniciar sesión</label>
      <label><input type="radio" name="mode" value="register"{{if .Register}} checked{{end}}> Crear cuenta</label>
      <label for="email">Email</label>
      <input id="email" type="email" name="email" value="{{.Email}}" autocomplete="username" />
      <label for="password">Contraseña</label>
      <input id="password" type="password" name="password" autocomplete="current-password" />
      <label for="confirm">Confirmar contraseña (solo para crear cuenta)</label>
      <input id="confirm" type="password" name="confirm" autocomplete="new-password" />
      <p><button type="submit">Entrar</button></p>
    </form>
  </div>
</div>
</body>
</html>
{{end}}

{{define "main"}}{{template "head"}}
<body>
<div id="main-view" class="app">
  <aside class="sidebar">
    <div class="brand"><strong>Protein</strong> Analysis</div>
    <div class="user">{{.User.DisplayName}}{{if .User.Role}}<span class="role">{{.User.Role}}</span>{{end}}</div>
    <nav>
      {{range .Nav}}<a href="/view/{{.Tag}}" class="nav-item{{if .Active}} active{{end}}" data-tag="{{.Tag}}"><span>{{.Label}}</span>{{if and (eq .Tag "alerts") $.BadgeOK (gt $.Badge 0)}}<span class="badge" id="alert-badge">{{$.Badge}}</span>{{end}}</a>
      {{end}}
    </nav>
    <form method="post" action="/logout"><button type="submit" class="secondary">Cerrar sesión</button></form>
  </aside>
  <main>
    {{template "toasts" .Notices}}
    <section class="panel" id="panel-{{.Active}}" data-panel="{{.Active}}">
    {{if eq .Active "dashboard"}}{{template "dashboard" .Panel}}
    {{else if eq .Active "upload"}}{{template "upload" .Panel}}
    {{else if eq .Active "model-run"}}{{template "model-run" .Panel}}
    {{else if eq .Active "virtual-lab"}}{{template "virtual-lab" .Panel}}
    {{else if eq .Active "datasets"}}{{template "datasets" .Panel}}
    {{else if eq .Active "digital-twin"}}{{template "digital-twin" .Panel}}
    {{else if eq .Active "query"}}{{template "query" .Panel}}
    {{else if eq .Active "alerts"}}{{template "alerts" .Panel}}
    {{end}}
    </section>
  </main>
</div>
</body>
</html>
{{end}}

{{define "sequence-select"}}<select name="secuencia">{{range $i, $s := .}}<option value="{{$i}}">{{$s.Name}} ({{$s.Length}} aa)</option>{{end}}</select>{{end}}

{{define "no-sequences"}}<div class="state-empty">No hay secuencias cargadas. <a href="/view/upload">Carga una secuencia</a> para empezar.</div>{{end}}
`

const panelTemplates = `
{{define "dashboard"}}
<h1>Dashboard</h1>
{{if eq .State "error"}}<div class="state-error">{{.Error}}</div>{{else}}
<div class="cards">
  <div class="card"><div class="muted">Total de análisis</div><div class="stat">{{.Stats.TotalAnalyses}}</div></div>
  <div class="card"><div class="muted">Predicciones activas</div><div class="stat">{{.Stats.ActivePredictions}}</div></div>
  <div class="card"><div class="muted">Datasets</div><div class="stat">{{.Stats.Datasets}}</div></div>
  <div class="card"><div class="muted">Precisión promedio</div><div class="stat">{{printf "%.1f" .Stats.AveragePrecision}}%</div></div>
</div>
<div class="cards">
  <div class="card">
    <h3>Análisis por mes</h3>
    <table><tr><th>Mes</th><th>Predicciones</th><th>Simulaciones</th></tr>
    {{range .Monthly}}<tr><td>{{.Month}}</td><td>{{.Predictions}}</td><td>{{.Simulations}}</td></tr>{{end}}</table>
  </div>
  <div class="card">
    <h3>Uso de modelos</h3>
    <table>{{range .Models}}<tr><td><span class="pill" style="background: {{.Color}}; color: #fff">{{.Name}}</span></td><td>{{.Value}}%</td></tr>{{end}}</table>
  </div>
</div>
<div class="card">
  <h3>Análisis recientes</h3>
  {{if .Recent}}<table><tr><th>ID</th><th>Tipo</th><th>Fecha</th><th>Estado</th><th></th></tr>
  {{range .Recent}}<tr><td>{{.ID}}</td><td>{{.Type}}</td><td>{{.Date}}</td><td>{{.Status}}</td><td><a href="/download/experiments/{{.ID}}?format=pdf&from=dashboard">PDF</a> · <a href="/download/experiments/{{.ID}}?format=txt&from=dashboard">TXT</a></td></tr>{{end}}
  </table>{{else}}<div class="state-empty">Sin análisis todavía.</div>{{end}}
</div>
<div class="cards">
  <div class="card">
    <h3>Informes del sistema</h3>
    {{range .Informes}}<div>{{.Title}}: {{$tipo := .Tipo}}{{range .Formats}}<a href="/download/informes/{{$tipo}}?formato={{.}}&from=dashboard">{{.}}</a> {{end}}</div>{{end}}
    <div><a href="/download/documentation?from=dashboard">Documentación (PDF)</a></div>
  </div>
  <div class="card">
    <h3>Descargas recientes</h3>
    {{if .Downloads}}<table>{{range .Downloads}}<tr><td><a href="/archive/{{.ID}}">{{.Name}}</a></td><td class="muted">{{bytes .Size}}</td><td class="muted">{{ago .CreatedAt}}</td></tr>{{end}}</table>{{else}}<div class="muted">Sin descargas.</div>{{end}}
  </div>
  <div class="card">
    <h3>Actividad</h3>
    {{if .Activity}}<table>{{range .Activity}}<tr><td>{{.Action}}</td><td>{{.Detail}}</td><td class="muted">{{ago .CreatedAt}}</td></tr>{{end}}</table>{{else}}<div class="muted">Sin actividad.</div>{{end}}
  </div>
</div>
{{end}}
{{end}}

{{define "upload"}}
<h1>Cargar Datos</h1>
<div class="cards">
  <div class="card">
    <h3>Secuencia manual</h3>
    <form method="post" action="/view/upload/text">
      <div class="row"><input name="nombre" placeholder="Nombre" />
      <select name="fuente">{{range .Sources}}<option>{{.}}</option>{{end}}</select></div>
      <textarea name="secuencia_texto" placeholder="MKTAYIAKQR..."></textarea>
      <p><button type="submit">Cargar secuencia</button></p>
    </form>
  </div>
  <div class="card">
    <h3>Archivo</h3>
    <form method="post" action="/view/upload/file" enctype="multipart/form-data">
      <div class="row"><input name="nombre" placeholder="Nombre (opcional)" />
      <select name="fuente">{{range .Sources}}<option>{{.}}</option>{{end}}</select></div>
      <input type="file" name="archivo" accept="{{range $i, $e := .Extensions}}{{if $i}},{{end}}{{$e}}{{end}}" />
      <p class="muted">Formatos: {{range .Extensions}}{{.}} {{end}}</p>
      <p><button type="submit">Subir archivo</button></p>
    </form>
  </div>
</div>
<div class="card">
  <h3>Secuencias</h3>
  {{if eq .State "error"}}<div class="state-error">{{.Error}}</div>
  {{else if eq .State "empty"}}{{template "no-sequences"}}
  {{else}}<table><tr><th>#</th><th>Nombre</th><th>Fuente</th><th>Longitud</th><th>Fecha</th></tr>
  {{range $i, $s := .Sequences}}<tr><td>{{$i}}</td><td><a href="/view/upload/sequences/{{$i}}">{{$s.Name}}</a></td><td>{{$s.Source}}</td><td>{{$s.Length}}</td><td>{{$s.LoadedAt}}</td></tr>{{end}}
  </table>{{end}}
</div>
{{with .Detail}}<div class="card" id="sequence-detail"><h3>{{.Name}}</h3><p class="muted">{{.Source}} · {{.Format}} · {{.Length}} aa</p><pre>{{.Residues}}</pre></div>{{end}}
{{end}}

{{define "model-run"}}
<h1>Ejecutar Modelos</h1>
{{if eq .State "error"}}<div class="state-error">{{.Error}}</div>
{{else if eq .State "empty"}}{{template "no-sequences"}}
{{else}}
<form method="post" action="/view/model-run/run" class="card">
  <div class="row"><label>Secuencia {{template "sequence-select" .Sequences}}</label></div>
  <table><tr><th></th><th>Modelo</th><th>Descripción</th><th>Precisión</th></tr>
  {{range $i, $m := .Models}}<tr><td><input type="radio" name="modelo" value="{{$m.ID}}"{{if eq $i 0}} checked{{end}} /></td><td>{{$m.Name}}</td><td>{{$m.Description}}</td><td>{{$m.Accuracy}}</td></tr>{{end}}
  </table>
  <p><button type="submit">Ejecutar predicción</button></p>
</form>
{{end}}
{{with .Run}}<div class="card" id="plm-result"><h3>Resultado {{.Model}} · {{.Sequence}}</h3><pre>{{json .Result}}</pre></div>{{end}}
{{end}}

{{define "virtual-lab"}}
<h1>Laboratorio Virtual</h1>
{{if eq .State "error"}}<div class="state-error">{{.Error}}</div>
{{else if eq .State "empty"}}{{template "no-sequences"}}
{{else}}
<form method="post" action="/view/virtual-lab/run" class="card">
  <div class="row"><label>Secuencia {{template "sequence-select" .Sequences}}</label><button type="submit">Simular experimento</button></div>
</form>
{{end}}
{{with .Result}}<div class="card" id="lab-result"><h3>Resultado de la simulación</h3><pre>{{json .}}</pre></div>{{end}}
<div class="card">
  <h3>Experimentos</h3>
  {{if .ExperimentsError}}<div class="state-error">{{.ExperimentsError}}</div>
  {{else if .Experiments}}<table><tr><th>ID</th><th>Tipo</th><th>Secuencia</th><th>Fecha</th><th>Estado</th><th></th></tr>
  {{range .Experiments}}<tr><td>{{.ID}}</td><td>{{.Type}}</td><td>{{.SequenceIdx}}</td><td>{{.Date}}</td><td>{{.Status}}</td><td><a href="/download/experiments/{{.ID}}?format=txt&from=virtual-lab">TXT</a> · <a href="/download/experiments/{{.ID}}?format=pdf&from=virtual-lab">PDF</a></td></tr>{{end}}
  </table>{{else}}<div class="state-empty">Sin experimentos.</div>{{end}}
</div>
{{end}}

{{define "datasets"}}
<h1>Gestión de Datasets</h1>
{{if eq .State "error"}}<div class="state-error">{{.Error}}</div>{{else}}
<div class="cards">
  <div class="card"><div class="muted">Datasets</div><div class="stat">{{.Stats.Total}}</div></div>
  <div class="card"><div class="muted">Curados</div><div class="stat">{{.Stats.Curated}}</div></div>
  <div class="card"><div class="muted">Registros</div><div class="stat">{{.Stats.Records}}</div></div>
</div>
<form method="post" action="/view/datasets/import" enctype="multipart/form-data" class="card">
  <h3>Importar dataset</h3>
  <div class="row"><input type="file" name="archivo" accept=".csv,.fasta,.txt" /><input name="fuente" placeholder="Fuente" /><button type="submit">Importar</button></div>
</form>
<div class="card">
  {{if eq .State "empty"}}<div class="state-empty">No hay datasets. Importa un archivo para empezar.</div>
  {{else}}{{$statuses := .Statuses}}<table><tr><th>Nombre</th><th>Versión</th><th>Registros</th><th>Tamaño</th><th>Estado</th><th>Modificado</th><th>Fuente</th><th></th></tr>
  {{range .Datasets}}<tr>
    <td>{{.Name}}<div class="muted">{{.Description}}</div></td><td>{{.Version}}</td><td>{{.Records}}</td><td>{{bytes .SizeBytes}}</td><td><span class="pill">{{.Status}}</span></td><td>{{date .UpdatedAt}}</td><td>{{.Source}}</td>
    <td>
      <form method="post" action="/view/datasets/{{.ID}}" class="row">
        <input name="descripcion" value="{{.Description}}" placeholder="Descripción" />
        <select name="estado">{{$cur := .Status}}{{range $statuses}}<option{{if eq . $cur}} selected{{end}}>{{.}}</option>{{end}}</select>
        <button type="submit" class="secondary">Guardar</button>
      </form>
      <a href="/view/datasets/{{.ID}}/export?format=csv&from=datasets">CSV</a> · <a href="/view/datasets/{{.ID}}/export?format=yaml&from=datasets">YAML</a>
      <form method="post" action="/view/datasets/{{.ID}}/delete" class="inline"><button type="submit" class="secondary">Eliminar</button></form>
    </td></tr>{{end}}
  </table>{{end}}
</div>
<div class="card"><h3>Cumplimiento FAIR</h3>{{range .FAIR}}<span class="pill">{{.}}</span> {{end}}</div>
{{end}}
{{end}}

{{define "digital-twin"}}
<h1>Gemelo Digital</h1>
{{if eq .State "error"}}<div class="state-error">{{.Error}}</div>
{{else if eq .State "empty"}}{{template "no-sequences"}}
{{else}}
<form method="post" action="/view/digital-twin/run" class="card">
  <div class="row"><label>Secuencia {{template "sequence-select" .Sequences}}</label><button type="submit">Simular gemelo</button></div>
</form>
<form method="get" class="card">
  <h3>Reportes</h3>
  <input type="hidden" name="from" value="digital-twin" />
  <div class="row"><label>Secuencia {{template "sequence-select" .Sequences}}</label>
  {{range .Reports}}<button type="submit" class="secondary" formaction="/download/reports/{{.}}">{{.}}</button>{{end}}</div>
</form>
{{end}}
<div class="card">
  <h3>{{if .Simulated}}Resultado de la simulación{{else}}Rendimiento de referencia{{end}}</h3>
  {{if .Series}}<table><tr><th>Tiempo (h)</th><th>Biomasa (g/L)</th><th>Producto (g/L)</th><th>Viabilidad (%)</th></tr>
  {{range .Series}}<tr><td>{{index . "time"}}</td><td>{{index . "biomasa"}}</td><td>{{index . "producto"}}</td><td>{{index . "viabilidad"}}</td></tr>{{end}}
  </table>{{else}}<div class="state-empty">Sin datos temporales.</div>{{end}}
  <script type="application/json" id="twin-series">{{.Series}}</script>
</div>
{{with .Metrics}}<div class="card" id="twin-metrics"><h3>Métricas finales</h3><pre>{{json .}}</pre></div>{{end}}
{{end}}

{{define "query"}}
<h1>Consultas y Reportes</h1>
<form method="post" action="/view/query/search" class="card">
  {{$tipo := .Tipo}}<div class="row"><input name="q" value="{{.Query}}" placeholder="Buscar..." />
  <select name="tipo">{{range .Types}}<option{{if eq . $tipo}} selected{{end}}>{{.}}</option>{{end}}</select>
  <button type="submit">Buscar</button>
  <input name="nombre" placeholder="Nombre para guardar" />
  <button type="submit" class="secondary" formaction="/view/query/saved">Guardar consulta</button></div>
</form>
{{with .Results}}<div class="card" id="search-results">
  <h3>{{.Total}} resultados</h3>
  {{if .Sequences}}<h4>Secuencias</h4><table>{{range .Sequences}}<tr><td>{{.ID}}</td><td>{{.Name}}</td><td>{{.Date}}</td></tr>{{end}}</table>{{end}}
  {{if .Experiments}}<h4>Experimentos</h4><table>{{range .Experiments}}<tr><td>{{.ID}}</td><td>{{.Type}}</td><td>{{.Date}}</td><td>{{.Status}}</td></tr>{{end}}</table>{{end}}
  {{if .Alerts}}<h4>Alertas</h4><table>{{range .Alerts}}<tr><td>{{.ID}}</td><td>{{.Message}}</td><td>{{.Level}}</td><td>{{.Date}}</td></tr>{{end}}</table>{{end}}
</div>{{end}}
<div class="card">
  <h3>Consultas guardadas</h3>
  {{if .SavedError}}<div class="muted">{{.SavedError}}</div>
  {{else if .Saved}}<table>{{range .Saved}}<tr><td>{{.Name}}</td><td>{{.Query}}</td><td>{{.Tipo}}</td><td>
    <form method="post" action="/view/query/saved/{{.ID}}/run" class="inline"><button type="submit" class="secondary">Ejecutar</button></form>
    <form method="post" action="/view/query/saved/{{.ID}}/delete" class="inline"><button type="submit" class="secondary">Eliminar</button></form>
  </td></tr>{{end}}</table>
  {{else}}<div class="muted">Sin consultas guardadas.</div>{{end}}
</div>
<div class="card">
  <h3>Reportes comparativos</h3>
  {{if eq .State "error"}}<div class="state-error">{{.Error}}</div>
  {{else if eq .State "empty"}}<div class="state-empty">Sin reportes comparativos.</div>
  {{else}}<p class="muted">{{.TotalExperiments}} experimentos · {{.TotalSequences}} secuencias</p>
  <table><tr><th>Tipo</th><th>Cantidad</th><th>Última fecha</th><th>Estado</th><th></th></tr>
  {{range .Reports}}<tr><td>{{.Type}}<div class="muted">{{.Description}}</div></td><td>{{.Count}}</td><td>{{.LastDate}}</td><td>{{.Status}}</td>
  <td><a href="/download/comparative?tipo={{.Type}}&format=csv&from=query">CSV</a> · <a href="/download/comparative?tipo={{.Type}}&format=pdf&from=query">PDF</a></td></tr>{{end}}
  </table>{{end}}
</div>
{{end}}

{{define "alerts"}}
<h1>Alertas y Notificaciones</h1>
<div class="cards">
  <div class="card"><div class="muted">Activas</div><div class="stat">{{.Counts.Active}}</div></div>
  <div class="card"><div class="muted">Críticas</div><div class="stat">{{.Counts.Critical}}</div></div>
  <div class="card"><div class="muted">Resueltas</div><div class="stat">{{.Counts.Resolved}}</div></div>
</div>
<form method="post" action="/view/alerts" class="card">
  <h3>Nueva alerta</h3>
  <div class="row">
    <select name="tipo">{{range .Types}}<option>{{.}}</option>{{end}}</select>
    <select name="prioridad">{{range .Priorities}}<option{{if eq . "media"}} selected{{end}}>{{.}}</option>{{end}}</select>
    <input name="mensaje" placeholder="Mensaje" size="50" />
    <button type="submit">Crear alerta</button>
  </div>
</form>
<form method="post" action="/view/alerts/summary" class="card"><button type="submit" class="secondary">Generar reporte</button></form>
<div class="card">
  {{if eq .State "error"}}<div class="state-error">{{.Error}}</div>
  {{else if eq .State "empty"}}<div class="state-empty">No hay alertas.</div>
  {{else}}<table><tr><th>Tipo</th><th>Mensaje</th><th>Prioridad</th><th>Usuario</th><th>Fecha</th><th></th></tr>
  {{range .Alerts}}<tr><td>{{.Type}}{{if .Automatic}} <span class="pill">auto</span>{{end}}</td><td>{{.Message}}</td><td><span class="pill {{.Priority}}">{{.Priority}}</span></td><td>{{.User}}</td><td>{{.Date}}</td>
  <td>{{if .Resolved}}<span class="muted">Resuelta</span>{{else}}<form method="post" action="/view/alerts/{{.ID}}/resolve" class="inline"><button type="submit" class="secondary">Resolver</button></form>{{end}}</td></tr>{{end}}
  </table>{{end}}
</div>
{{end}}
`
