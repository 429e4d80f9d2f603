package panels

import (
	"context"
	"strings"

	"protein-analysis-ui/internal/connectors/backend"
)

// PLMModel is one entry of the model catalogue.
type PLMModel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Accuracy    string `json:"accuracy"`
}

// PLMModels is the catalogue offered by the model-run panel.
var PLMModels = []PLMModel{
	{ID: "esm2", Name: "ESM-2", Description: "Estado del arte en predicción de estructura", Accuracy: "95%"},
	{ID: "protbert", Name: "ProtBERT", Description: "Modelo basado en BERT para proteínas", Accuracy: "92%"},
	{ID: "prottrans", Name: "ProtTrans", Description: "Transformer optimizado para secuencias", Accuracy: "90%"},
	{ID: "alphafold", Name: "AlphaFold", Description: "Predicción de plegamiento 3D", Accuracy: "94%"},
}

// PLMRun is the outcome of one prediction.
type PLMRun struct {
	Sequence string         `json:"sequence"`
	Model    string         `json:"model"`
	Result   backend.Result `json:"result"`
}

type ModelRunModel struct {
	State     State              `json:"state"`
	Error     string             `json:"error,omitempty"`
	Sequences []backend.Sequence `json:"sequences"`
	Models    []PLMModel         `json:"models"`
	Run       *PLMRun            `json:"run,omitempty"`
}

type ModelRunPanel struct{ base }

func (p *ModelRunPanel) Load(ctx context.Context, token string) any { return p.Mount(ctx, token) }

func (p *ModelRunPanel) Mount(ctx context.Context, token string) ModelRunModel {
	seqs, errMsg := p.listSequences(ctx, token)
	return ModelRunModel{State: sequenceState(seqs, errMsg), Error: errMsg, Sequences: seqs, Models: PLMModels}
}

// Run analyses one sequence with the chosen model. An empty model lets
// the backend pick its default.
func (p *ModelRunPanel) Run(ctx context.Context, c Caller, seq, model string) (ModelRunModel, Notice) {
	m := p.Mount(ctx, c.Token)
	if m.State == StateError {
		return m, failure(m.Error)
	}
	if len(m.Sequences) == 0 {
		return m, failure("Por favor carga al menos una secuencia")
	}
	model = strings.ToLower(strings.TrimSpace(model))
	name := "Modelo"
	if model != "" {
		mod, ok := findModel(model)
		if !ok {
			return m, failure("Modelo desconocido: " + model)
		}
		name = mod.Name
	}

	ref := sequenceRef(seq)
	res, err := p.deps.Backend.AnalyzePLM(ctx, c.Token, ref, model)
	if err != nil {
		return m, p.fail("run", err, "Error en el análisis PLM")
	}
	m.Run = &PLMRun{Sequence: sequenceName(m.Sequences, ref), Model: name, Result: res}
	p.record(ctx, c, "analizar_plm", name+" sobre "+m.Run.Sequence)
	return m, success("Predicción completada", "Los resultados están disponibles abajo")
}

func findModel(id string) (PLMModel, bool) {
	for _, m := range PLMModels {
		if m.ID == id {
			return m, true
		}
	}
	return PLMModel{}, false
}
