package panels

import (
	"context"

	"protein-analysis-ui/internal/connectors/backend"
)

type VirtualLabModel struct {
	State            State                `json:"state"`
	Error            string               `json:"error,omitempty"`
	Sequences        []backend.Sequence   `json:"sequences"`
	Experiments      []backend.Experiment `json:"experiments"`
	ExperimentsError string               `json:"experiments_error,omitempty"`
	Result           backend.Result       `json:"result,omitempty"`
}

type VirtualLabPanel struct{ base }

func (p *VirtualLabPanel) Load(ctx context.Context, token string) any { return p.Mount(ctx, token) }

func (p *VirtualLabPanel) Mount(ctx context.Context, token string) VirtualLabModel {
	seqs, errMsg := p.listSequences(ctx, token)
	m := VirtualLabModel{State: sequenceState(seqs, errMsg), Error: errMsg, Sequences: seqs}
	p.loadExperiments(ctx, token, &m)
	return m
}

// Run simulates one sequence in the virtual lab, then refreshes the
// experiment list so the new run shows up with its backend id.
func (p *VirtualLabPanel) Run(ctx context.Context, c Caller, seq string) (VirtualLabModel, Notice) {
	seqs, errMsg := p.listSequences(ctx, c.Token)
	m := VirtualLabModel{State: sequenceState(seqs, errMsg), Error: errMsg, Sequences: seqs}
	if m.State == StateError {
		p.loadExperiments(ctx, c.Token, &m)
		return m, failure(m.Error)
	}
	if len(seqs) == 0 {
		p.loadExperiments(ctx, c.Token, &m)
		return m, failure("Por favor carga al menos una secuencia")
	}

	ref := sequenceRef(seq)
	res, err := p.deps.Backend.SimulateLab(ctx, c.Token, ref)
	if err != nil {
		p.loadExperiments(ctx, c.Token, &m)
		return m, p.fail("run", err, "Error en la simulación")
	}
	m.Result = res
	p.loadExperiments(ctx, c.Token, &m)
	p.record(ctx, c, "simular_laboratorio", sequenceName(seqs, ref))
	return m, success("Simulación de laboratorio completada", "Resultados disponibles para análisis")
}

func (p *VirtualLabPanel) loadExperiments(ctx context.Context, token string, m *VirtualLabModel) {
	exps, err := p.deps.Backend.ListExperiments(ctx, token)
	if err != nil {
		m.ExperimentsError = p.loadFailed("experiments", err, "Error al cargar experimentos")
		return
	}
	m.Experiments = lastExperiments(exps, 0)
}
