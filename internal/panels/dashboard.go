package panels

import (
	"context"

	"golang.org/x/sync/errgroup"

	"protein-analysis-ui/internal/connectors/archive"
	"protein-analysis-ui/internal/connectors/backend"
	"protein-analysis-ui/internal/connectors/workspace"
)

// averagePrecision is the headline precision figure shown on the dashboard.
const averagePrecision = 92.4

type DashboardStats struct {
	TotalAnalyses     int     `json:"total_analyses"`
	ActivePredictions int     `json:"active_predictions"`
	Datasets          int     `json:"datasets"`
	AveragePrecision  float64 `json:"average_precision"`
}

type MonthPoint struct {
	Month       string `json:"month"`
	Predictions int    `json:"predictions"`
	Simulations int    `json:"simulations"`
}

type ModelShare struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// InformeOption is one downloadable system report.
type InformeOption struct {
	Tipo    string   `json:"tipo"`
	Title   string   `json:"title"`
	Formats []string `json:"formats"`
}

type DashboardModel struct {
	State     State                `json:"state"`
	Error     string               `json:"error,omitempty"`
	Stats     DashboardStats       `json:"stats"`
	Monthly   []MonthPoint         `json:"monthly"`
	Models    []ModelShare         `json:"models"`
	Recent    []backend.Experiment `json:"recent"`
	Activity  []workspace.Activity `json:"activity,omitempty"`
	Downloads []archive.Entry      `json:"downloads,omitempty"`
	Informes  []InformeOption      `json:"informes"`
}

var monthlySeries = []MonthPoint{
	{"Ene", 45, 30},
	{"Feb", 52, 38},
	{"Mar", 61, 42},
	{"Abr", 58, 45},
	{"May", 72, 51},
	{"Jun", 68, 48},
}

var modelUsage = []ModelShare{
	{"ESM-2", 35, "#3b82f6"},
	{"ProtBERT", 25, "#8b5cf6"},
	{"ProtTrans", 20, "#06b6d4"},
	{"Otros", 20, "#6366f1"},
}

var informeOptions = []InformeOption{
	{Tipo: "sistema", Title: "Informe del sistema", Formats: []string{"json", "csv", "html"}},
	{Tipo: "alertas", Title: "Informe de alertas", Formats: []string{"json", "csv", "html"}},
}

type DashboardPanel struct{ base }

func (p *DashboardPanel) Load(ctx context.Context, token string) any { return p.Mount(ctx, token) }

// Mount lists sequences and experiments concurrently and fills in the
// locally kept activity and the signed-in user's archived downloads.
func (p *DashboardPanel) Mount(ctx context.Context, token string) DashboardModel {
	m := DashboardModel{
		State:    StateLoading,
		Monthly:  monthlySeries,
		Models:   modelUsage,
		Informes: informeOptions,
	}

	var seqs []backend.Sequence
	var exps []backend.Experiment
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		seqs, err = p.deps.Backend.ListSequences(gctx, token)
		return err
	})
	g.Go(func() error {
		var err error
		exps, err = p.deps.Backend.ListExperiments(gctx, token)
		return err
	})
	if err := g.Wait(); err != nil {
		m.State = StateError
		m.Error = p.loadFailed("sequences,experiments", err, "Error cargando datos")
		return m
	}

	m.Stats = DashboardStats{
		TotalAnalyses:     len(exps),
		ActivePredictions: len(seqs),
		Datasets:          len(seqs),
		AveragePrecision:  averagePrecision,
	}
	m.Recent = lastExperiments(exps, p.deps.RecentLimit)

	if p.deps.Workspace.Enabled() {
		act, err := p.deps.Workspace.ListActivity(ctx, "", p.deps.RecentLimit)
		if err != nil {
			p.log.WithError(err).Warn("could not list activity")
		}
		m.Activity = act
	}
	if p.deps.Archive.Enabled() {
		entries, err := p.deps.Archive.List(ctx, ActorFrom(ctx), p.deps.RecentLimit)
		if err != nil {
			p.log.WithError(err).Warn("could not list archived downloads")
		}
		m.Downloads = entries
	}

	m.State = StatePopulated
	return m
}

// lastExperiments returns up to n experiments, newest first. The backend
// lists them in insertion order.
func lastExperiments(exps []backend.Experiment, n int) []backend.Experiment {
	if n <= 0 || n > len(exps) {
		n = len(exps)
	}
	out := make([]backend.Experiment, 0, n)
	for i := len(exps) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, exps[i])
	}
	return out
}
