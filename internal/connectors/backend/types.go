package backend

import "encoding/json"

// ID accepts both numeric and string identifiers.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// User is the usuario object of a login response.
type User struct {
	ID    ID             `json:"id"`
	Email string         `json:"email"`
	Name  string         `json:"nombre"`
	Role  string         `json:"rol"`
	Extra map[string]any `json:"-"`
}

// LoginResult is the answer of POST /login/.
type LoginResult struct {
	Token   string
	User    User
	Message string
}

// Sequence is a stored protein sequence record.
type Sequence struct {
	ID       ID     `json:"id"`
	Name     string `json:"nombre"`
	Source   string `json:"fuente"`
	Residues string `json:"secuencia"`
	Format   string `json:"formato"`
	LoadedAt string `json:"fecha_carga"`
	Length   int    `json:"longitud"`
}

// SequenceUpload is the input of POST /cargar_secuencia/. File wins over Text.
type SequenceUpload struct {
	Name     string
	Source   string
	Text     string
	FileName string
	File     []byte
}

// Result is an opaque computation result rendered as-is.
type Result map[string]any

// TwinResult is the resultado of a digital-twin simulation.
type TwinResult struct {
	TimeSeries   []map[string]any
	FinalMetrics map[string]any
	Raw          Result
}

// Experiment is a stored run of any analysis.
type Experiment struct {
	ID          ID     `json:"id"`
	Type        string `json:"tipo"`
	SequenceIdx ID     `json:"secuencia_idx"`
	Date        string `json:"fecha"`
	Status      string `json:"estado"`
	Result      any    `json:"resultado"`
}

// Alert is a user or system notification.
type Alert struct {
	ID        ID     `json:"id"`
	User      string `json:"usuario"`
	Type      string `json:"tipo"`
	Message   string `json:"mensaje"`
	Priority  string `json:"prioridad"`
	Level     string `json:"nivel"`
	Date      string `json:"fecha"`
	Resolved  bool   `json:"resuelta"`
	Automatic bool   `json:"automatica"`
}

// NewAlert is the input of POST /alerta/.
type NewAlert struct {
	User     string
	Type     string
	Message  string
	Priority string
}

// ComparativeReport is one row of GET /reportes/comparativos/.
type ComparativeReport struct {
	Type        string `json:"tipo"`
	Count       int    `json:"cantidad"`
	LastDate    string `json:"fecha_ultima"`
	Status      string `json:"estado"`
	Description string `json:"descripcion"`
}

// ComparativeSummary is the full answer of GET /reportes/comparativos/.
type ComparativeSummary struct {
	Reports          []ComparativeReport
	TotalExperiments int
	TotalSequences   int
	Message          string
}

// SearchHit is one match of GET /buscar/.
type SearchHit struct {
	ID      ID     `json:"id"`
	Name    string `json:"nombre"`
	Type    string `json:"tipo"`
	Date    string `json:"fecha"`
	Status  string `json:"estado"`
	Message string `json:"mensaje"`
	Level   string `json:"nivel"`
}

// SearchResult groups matches by collection.
type SearchResult struct {
	Total       int
	Sequences   []SearchHit
	Experiments []SearchHit
	Alerts      []SearchHit
}

// Download is a file produced by the backend.
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReportKind selects one of the generar_reporte_* endpoints.
type ReportKind string

const (
	ReportPLM      ReportKind = "plm"
	ReportLab      ReportKind = "laboratorio"
	ReportTwin     ReportKind = "gemelo"
	ReportComplete ReportKind = "completo"
)

// ParseReportKind validates a report kind.
func ParseReportKind(s string) (ReportKind, bool) {
	switch k := ReportKind(s); k {
	case ReportPLM, ReportLab, ReportTwin, ReportComplete:
		return k, true
	}
	return "", false
}
