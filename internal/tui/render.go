package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"protein-analysis-ui/internal/connectors/backend"
	"protein-analysis-ui/internal/panels"
)

// renderPanel turns a panel model into the text shown in the viewport.
func renderPanel(model any) string {
	var b strings.Builder
	switch m := model.(type) {
	case panels.DashboardModel:
		renderDashboard(&b, m)
	case panels.UploadModel:
		renderUpload(&b, m)
	case panels.ModelRunModel:
		renderModelRun(&b, m)
	case panels.VirtualLabModel:
		renderVirtualLab(&b, m)
	case panels.DatasetsModel:
		renderDatasets(&b, m)
	case panels.DigitalTwinModel:
		renderDigitalTwin(&b, m)
	case panels.QueryModel:
		renderQuery(&b, m)
	case panels.AlertsModel:
		renderAlerts(&b, m)
	case nil:
		b.WriteString(DimStyle.Render("Cargando..."))
	default:
		fmt.Fprintf(&b, "%v", m)
	}
	return strings.TrimRight(b.String(), "\n")
}

func section(b *strings.Builder, title string) {
	b.WriteString(SectionStyle.Render(title))
	b.WriteString("\n")
}

func field(b *strings.Builder, label string, value any) {
	fmt.Fprintf(b, "%s %v\n", LabelStyle.Render(label+":"), value)
}

// stateBlock writes the error or empty message and reports whether the
// panel body should be skipped.
func stateBlock(b *strings.Builder, state panels.State, errMsg, empty string) bool {
	switch state {
	case panels.StateLoading:
		b.WriteString(DimStyle.Render("Cargando...") + "\n")
		return true
	case panels.StateError:
		b.WriteString(ErrorStyle.Render(errMsg) + "\n")
		return true
	case panels.StateEmpty:
		b.WriteString(DimStyle.Render(empty) + "\n")
		return true
	}
	return false
}

func renderSequences(b *strings.Builder, seqs []backend.Sequence) {
	section(b, "Secuencias")
	for i, s := range seqs {
		fmt.Fprintf(b, "  [%d] %s  %s  %d aa\n", i, s.Name, DimStyle.Render(s.Source), s.Length)
	}
}

func renderResult(b *strings.Builder, res backend.Result) {
	keys := make([]string, 0, len(res))
	for k := range res {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		field(b, "  "+k, compact(res[k]))
	}
}

// compact prints nested values as single-line JSON.
func compact(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		raw, err := json.Marshal(v)
		if err == nil {
			return truncate(string(raw), 120)
		}
	}
	return fmt.Sprint(v)
}

func renderDashboard(b *strings.Builder, m panels.DashboardModel) {
	if m.State == panels.StateError {
		b.WriteString(ErrorStyle.Render(m.Error) + "\n")
	}
	section(b, "Resumen")
	field(b, "Análisis totales", m.Stats.TotalAnalyses)
	field(b, "Predicciones activas", m.Stats.ActivePredictions)
	field(b, "Datasets", m.Stats.Datasets)
	field(b, "Precisión promedio", fmt.Sprintf("%.1f%%", m.Stats.AveragePrecision))

	section(b, "Actividad mensual")
	for _, p := range m.Monthly {
		fmt.Fprintf(b, "  %-4s pred %-4d sim %d\n", p.Month, p.Predictions, p.Simulations)
	}

	section(b, "Uso de modelos")
	for _, s := range m.Models {
		fmt.Fprintf(b, "  %-12s %d%%\n", s.Name, s.Value)
	}

	section(b, "Experimentos recientes")
	if len(m.Recent) == 0 {
		b.WriteString(DimStyle.Render("  Sin experimentos") + "\n")
	}
	for _, e := range m.Recent {
		fmt.Fprintf(b, "  #%s %s  %s  %s\n", e.ID, e.Type, e.Status, DimStyle.Render(e.Date))
	}

	if len(m.Activity) > 0 {
		section(b, "Actividad del equipo")
		for _, a := range m.Activity {
			fmt.Fprintf(b, "  %s %s/%s %s %s\n", DimStyle.Render(humanize.Time(a.CreatedAt)), a.Panel, a.Action, a.Detail, DimStyle.Render(a.Actor))
		}
	}
	if len(m.Downloads) > 0 {
		section(b, "Descargas recientes")
		for _, d := range m.Downloads {
			fmt.Fprintf(b, "  %s  %s  %s  %s\n", d.ID, d.Name, humanize.Bytes(uint64(d.Size)), DimStyle.Render(humanize.Time(d.CreatedAt)))
		}
	}

	section(b, "Informes")
	for _, o := range m.Informes {
		fmt.Fprintf(b, "  %s (%s): /informe %s\n", o.Title, strings.Join(o.Formats, ", "), o.Tipo)
	}
}

func renderUpload(b *strings.Builder, m panels.UploadModel) {
	fmt.Fprintf(b, "%s\n", DimStyle.Render("Formatos: "+strings.Join(m.Extensions, ", ")+"  Fuentes: "+strings.Join(m.Sources, ", ")))
	b.WriteString(DimStyle.Render("/upload <nombre> <secuencia>") + "\n")
	if stateBlock(b, m.State, m.Error, "No hay secuencias cargadas") {
		return
	}
	renderSequences(b, m.Sequences)
	if m.Detail != nil {
		section(b, "Detalle")
		field(b, "Nombre", m.Detail.Name)
		field(b, "Formato", m.Detail.Format)
		field(b, "Cargada", m.Detail.LoadedAt)
		b.WriteString(truncate(m.Detail.Residues, 240) + "\n")
	}
}

func renderModelRun(b *strings.Builder, m panels.ModelRunModel) {
	section(b, "Modelos")
	for _, pm := range m.Models {
		fmt.Fprintf(b, "  %-10s %s  %s\n", pm.ID, pm.Name, DimStyle.Render(pm.Accuracy))
	}
	b.WriteString(DimStyle.Render("/plm <secuencia> <modelo>") + "\n")
	if stateBlock(b, m.State, m.Error, "No hay secuencias cargadas. Carga una secuencia primero.") {
		return
	}
	renderSequences(b, m.Sequences)
	if m.Run != nil {
		section(b, fmt.Sprintf("Resultado %s sobre %s", m.Run.Model, m.Run.Sequence))
		renderResult(b, m.Run.Result)
	}
}

func renderVirtualLab(b *strings.Builder, m panels.VirtualLabModel) {
	b.WriteString(DimStyle.Render("/lab <secuencia>") + "\n")
	if !stateBlock(b, m.State, m.Error, "No hay secuencias cargadas") {
		renderSequences(b, m.Sequences)
	}
	if len(m.Result) > 0 {
		section(b, "Resultado de la simulación")
		renderResult(b, m.Result)
	}
	section(b, "Experimentos")
	switch {
	case m.ExperimentsError != "":
		b.WriteString(ErrorStyle.Render(m.ExperimentsError) + "\n")
	case len(m.Experiments) == 0:
		b.WriteString(DimStyle.Render("  Sin experimentos") + "\n")
	}
	for _, e := range m.Experiments {
		fmt.Fprintf(b, "  #%s %s  %s  %s  /export %s\n", e.ID, e.Type, e.Status, DimStyle.Render(e.Date), e.ID)
	}
}

func renderDatasets(b *strings.Builder, m panels.DatasetsModel) {
	field(b, "Total", m.Stats.Total)
	field(b, "Curados", m.Stats.Curated)
	field(b, "Registros", humanize.Comma(m.Stats.Records))
	b.WriteString(DimStyle.Render("Principios FAIR: "+strings.Join(m.FAIR, ", ")) + "\n")
	if stateBlock(b, m.State, m.Error, "No hay datasets registrados") {
		return
	}
	section(b, "Datasets")
	for _, d := range m.Datasets {
		fmt.Fprintf(b, "  %s  %s v%s  %s  %s registros  %s\n",
			d.ID, d.Name, d.Version, d.Status, humanize.Comma(d.Records), humanize.Bytes(uint64(d.SizeBytes)))
	}
}

func renderDigitalTwin(b *strings.Builder, m panels.DigitalTwinModel) {
	b.WriteString(DimStyle.Render("/twin <secuencia>") + "\n")
	if !stateBlock(b, m.State, m.Error, "No hay secuencias cargadas") {
		renderSequences(b, m.Sequences)
	}
	title := "Serie por defecto"
	if m.Simulated {
		title = "Serie simulada"
	}
	section(b, title)
	b.WriteString(seriesTable(m.Series))
	if len(m.Metrics) > 0 {
		section(b, "Métricas finales")
		renderResult(b, m.Metrics)
	}
	section(b, "Reportes")
	for _, k := range m.Reports {
		fmt.Fprintf(b, "  /report %s <secuencia>\n", k)
	}
}

// seriesTable prints the chart rows with columns sorted by name, time first.
func seriesTable(rows []map[string]any) string {
	if len(rows) == 0 {
		return DimStyle.Render("  Sin datos") + "\n"
	}
	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	sort.Slice(cols, func(i, j int) bool {
		if cols[i] == "time" || cols[j] == "time" {
			return cols[i] == "time"
		}
		return cols[i] < cols[j]
	})
	var b strings.Builder
	b.WriteString(" ")
	for _, c := range cols {
		fmt.Fprintf(&b, " %12s", truncate(c, 12))
	}
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(" ")
		for _, c := range cols {
			fmt.Fprintf(&b, " %12v", r[c])
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderQuery(b *strings.Builder, m panels.QueryModel) {
	b.WriteString(DimStyle.Render("/search <texto>  /save <nombre> <texto>  /saved <id>") + "\n")
	if stateBlock(b, m.State, m.Error, "Sin reportes comparativos") {
		return
	}
	field(b, "Experimentos", m.TotalExperiments)
	field(b, "Secuencias", m.TotalSequences)
	section(b, "Reportes comparativos")
	for _, r := range m.Reports {
		fmt.Fprintf(b, "  %-14s %3d  %s  %s\n", r.Type, r.Count, r.Status, DimStyle.Render(r.LastDate))
	}
	if m.Results != nil {
		section(b, fmt.Sprintf("Resultados para %q (%s): %d", m.Query, m.Tipo, m.Results.Total))
		hits := func(label string, hs []backend.SearchHit) {
			for _, h := range hs {
				name := h.Name
				if name == "" {
					name = h.Message
				}
				fmt.Fprintf(b, "  %s #%s %s\n", LabelStyle.Render(label), h.ID, name)
			}
		}
		hits("secuencia", m.Results.Sequences)
		hits("experimento", m.Results.Experiments)
		hits("alerta", m.Results.Alerts)
	}
	section(b, "Consultas guardadas")
	switch {
	case m.SavedError != "":
		b.WriteString(ErrorStyle.Render(m.SavedError) + "\n")
	case len(m.Saved) == 0:
		b.WriteString(DimStyle.Render("  Sin consultas guardadas") + "\n")
	}
	for _, s := range m.Saved {
		fmt.Fprintf(b, "  %s  %s: %q (%s)\n", s.ID, s.Name, s.Query, s.Tipo)
	}
}

func renderAlerts(b *strings.Builder, m panels.AlertsModel) {
	b.WriteString(DimStyle.Render("/alert <prioridad> <mensaje>  /resolve <id>  /summary") + "\n")
	field(b, "Activas", m.Counts.Active)
	field(b, "Críticas", m.Counts.Critical)
	field(b, "Resueltas", m.Counts.Resolved)
	if stateBlock(b, m.State, m.Error, "No hay alertas") {
		return
	}
	section(b, "Alertas")
	for _, a := range m.Alerts {
		mark := ErrorStyle.Render("●")
		if a.Resolved {
			mark = SuccessStyle.Render("✓")
		} else if !panels.IsCritical(a) {
			mark = InfoStyle.Render("●")
		}
		fmt.Fprintf(b, "  %s #%s [%s] %s  %s\n", mark, a.ID, a.Priority, a.Message, DimStyle.Render(a.Date))
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
