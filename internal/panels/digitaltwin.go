package panels

import (
	"context"
	"fmt"
	"strconv"

	"protein-analysis-ui/internal/connectors/backend"
)

// TwinReports are the report kinds offered below the twin chart.
var TwinReports = []backend.ReportKind{backend.ReportPLM, backend.ReportLab, backend.ReportTwin, backend.ReportComplete}

type DigitalTwinModel struct {
	State     State                `json:"state"`
	Error     string               `json:"error,omitempty"`
	Sequences []backend.Sequence   `json:"sequences"`
	Series    []map[string]any     `json:"series"`
	Metrics   map[string]any       `json:"metrics,omitempty"`
	Result    backend.Result       `json:"result,omitempty"`
	Simulated bool                 `json:"simulated"`
	Reports   []backend.ReportKind `json:"reports"`
}

// DefaultSeries is the chart shown before any simulation has run.
func DefaultSeries() []map[string]any {
	rows := [][4]float64{
		{0, 0.5, 0, 98},
		{6, 2.1, 0.3, 97},
		{12, 4.8, 1.2, 96},
		{18, 8.2, 2.8, 95},
		{24, 12.5, 5.1, 94},
		{30, 15.8, 8.2, 92},
		{36, 17.2, 11.5, 90},
	}
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]any{"time": r[0], "biomasa": r[1], "producto": r[2], "viabilidad": r[3]})
	}
	return out
}

type DigitalTwinPanel struct{ base }

func (p *DigitalTwinPanel) Load(ctx context.Context, token string) any { return p.Mount(ctx, token) }

func (p *DigitalTwinPanel) Mount(ctx context.Context, token string) DigitalTwinModel {
	seqs, errMsg := p.listSequences(ctx, token)
	return DigitalTwinModel{
		State:     sequenceState(seqs, errMsg),
		Error:     errMsg,
		Sequences: seqs,
		Series:    DefaultSeries(),
		Reports:   TwinReports,
	}
}

// Run simulates the bioreactor for one sequence. The chart source becomes
// exactly the returned datos_temporales.
func (p *DigitalTwinPanel) Run(ctx context.Context, c Caller, seq string) (DigitalTwinModel, Notice) {
	m := p.Mount(ctx, c.Token)
	if m.State == StateError {
		return m, failure(m.Error)
	}
	if len(m.Sequences) == 0 {
		return m, failure("Por favor carga al menos una secuencia")
	}

	ref := sequenceRef(seq)
	res, err := p.deps.Backend.SimulateTwin(ctx, c.Token, ref)
	if err != nil {
		return m, p.fail("run", err, "Error en la simulación")
	}
	m.Apply(res)
	p.record(ctx, c, "simular_gemelo", sequenceName(m.Sequences, ref))
	return m, success("Simulación del gemelo digital completada", fmt.Sprintf("Biomasa máx: %s g/L, Eficiencia: %s%%",
		metricText(res.FinalMetrics["biomasa_maxima"]), metricText(res.FinalMetrics["eficiencia_proceso"])))
}

// Apply takes over a simulation result. A result without datos_temporales
// keeps the current series.
func (m *DigitalTwinModel) Apply(res *backend.TwinResult) {
	m.Simulated = true
	m.Result = res.Raw
	m.Metrics = res.FinalMetrics
	if res.TimeSeries != nil {
		m.Series = res.TimeSeries
	}
}

// metricText renders a final metric, with N/A for missing or zero values.
func metricText(v any) string {
	switch x := v.(type) {
	case float64:
		if x != 0 {
			return strconv.FormatFloat(x, 'f', -1, 64)
		}
	case string:
		if x != "" {
			return x
		}
	}
	return "N/A"
}
