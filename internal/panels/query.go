package panels

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"protein-analysis-ui/internal/connectors/backend"
	"protein-analysis-ui/internal/connectors/workspace"
)

// SearchTypes are the filters accepted by the search endpoint.
var SearchTypes = []string{"all", "datasets", "analysis", "reports"}

type QueryModel struct {
	State            State                       `json:"state"`
	Error            string                      `json:"error,omitempty"`
	Reports          []backend.ComparativeReport `json:"reports"`
	TotalExperiments int                         `json:"total_experiments"`
	TotalSequences   int                         `json:"total_sequences"`
	Query            string                      `json:"query,omitempty"`
	Tipo             string                      `json:"tipo"`
	Results          *backend.SearchResult       `json:"results,omitempty"`
	Saved            []workspace.SavedQuery      `json:"saved"`
	SavedError       string                      `json:"saved_error,omitempty"`
	Types            []string                    `json:"types"`
}

type QueryPanel struct{ base }

func (p *QueryPanel) Load(ctx context.Context, token string) any {
	return p.Mount(ctx, Caller{Token: token, Actor: ActorFrom(ctx)})
}

// Mount loads the comparative reports and the caller's saved queries.
func (p *QueryPanel) Mount(ctx context.Context, c Caller) QueryModel {
	m := QueryModel{State: StateLoading, Tipo: "all", Types: SearchTypes}
	sum, err := p.deps.Backend.ComparativeReports(ctx, c.Token)
	if err != nil {
		m.State, m.Error = StateError, p.loadFailed("reports", err, "Error al cargar reportes")
	} else {
		m.Reports = sum.Reports
		m.TotalExperiments, m.TotalSequences = sum.TotalExperiments, sum.TotalSequences
		if len(sum.Reports) == 0 {
			m.State = StateEmpty
		} else {
			m.State = StatePopulated
		}
	}

	switch {
	case !p.deps.Workspace.Enabled():
		m.SavedError = storeDisabled
	case c.Actor == "":
	default:
		saved, err := p.deps.Workspace.ListSavedQueries(ctx, c.Actor)
		if err != nil {
			m.SavedError = p.loadFailed("saved_queries", err, "Error al cargar consultas guardadas")
		}
		m.Saved = saved
	}
	return m
}

// Search runs a search. An empty query is rejected without calling the backend.
func (p *QueryPanel) Search(ctx context.Context, c Caller, q, tipo string) (QueryModel, Notice) {
	m := p.Mount(ctx, c)
	q, tipo = strings.TrimSpace(q), searchType(tipo)
	m.Query, m.Tipo = q, tipo
	if q == "" {
		return m, failure("Por favor ingresa un término de búsqueda")
	}
	res, err := p.deps.Backend.Search(ctx, c.Token, q, tipo)
	if err != nil {
		return m, p.fail("search", err, "Error al buscar")
	}
	m.Results = res
	if res.Total == 0 {
		return m, info("No se encontraron resultados")
	}
	return m, success(fmt.Sprintf("Se encontraron %d resultados", res.Total), "")
}

// SaveQuery stores a search for the caller.
func (p *QueryPanel) SaveQuery(ctx context.Context, c Caller, name, q, tipo string) (QueryModel, Notice) {
	if !p.deps.Workspace.Enabled() {
		return p.Mount(ctx, c), failure(storeDisabled)
	}
	if strings.TrimSpace(q) == "" {
		return p.Mount(ctx, c), failure("Por favor ingresa un término de búsqueda")
	}
	sq, err := p.deps.Workspace.SaveQuery(ctx, workspace.SavedQuery{Owner: c.Actor, Name: name, Query: q, Tipo: searchType(tipo)})
	if err != nil {
		return p.Mount(ctx, c), p.fail("save_query", err, "Error al guardar la consulta")
	}
	p.record(ctx, c, "guardar_consulta", sq.Name)
	return p.Mount(ctx, c), success("Consulta guardada", sq.Name)
}

func (p *QueryPanel) DeleteSavedQuery(ctx context.Context, c Caller, id string) (QueryModel, Notice) {
	if !p.deps.Workspace.Enabled() {
		return p.Mount(ctx, c), failure(storeDisabled)
	}
	if err := p.deps.Workspace.DeleteSavedQuery(ctx, c.Actor, id); err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			return p.Mount(ctx, c), failure("Consulta no encontrada")
		}
		return p.Mount(ctx, c), p.fail("delete_query", err, "Error al eliminar la consulta")
	}
	return p.Mount(ctx, c), success("Consulta eliminada", "")
}

// RunSaved runs one of the caller's saved queries.
func (p *QueryPanel) RunSaved(ctx context.Context, c Caller, id string) (QueryModel, Notice) {
	if !p.deps.Workspace.Enabled() {
		return p.Mount(ctx, c), failure(storeDisabled)
	}
	sq, err := p.deps.Workspace.GetSavedQuery(ctx, c.Actor, id)
	if err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			return p.Mount(ctx, c), failure("Consulta no encontrada")
		}
		return p.Mount(ctx, c), p.fail("run_query", err, "Error al cargar la consulta")
	}
	return p.Search(ctx, c, sq.Query, sq.Tipo)
}

func searchType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	for _, v := range SearchTypes {
		if v == t {
			return t
		}
	}
	return "all"
}
