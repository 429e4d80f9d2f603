package panels

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"protein-analysis-ui/internal/connectors/workspace"
	"protein-analysis-ui/internal/reports"
)

const storeDisabled = "El almacén de datasets está deshabilitado"

// DatasetExtensions are the file types accepted by the import.
var DatasetExtensions = []string{".csv", ".fasta", ".txt"}

// DatasetStatuses are the values the edit form offers.
var DatasetStatuses = []string{workspace.DatasetCurated, workspace.DatasetInReview, workspace.DatasetImporting}

// FAIRPrinciples backs the compliance card below the table.
var FAIRPrinciples = []string{"Findable", "Accessible", "Interoperable", "Reusable"}

type DatasetsModel struct {
	State    State                  `json:"state"`
	Error    string                 `json:"error,omitempty"`
	Datasets []workspace.Dataset    `json:"datasets"`
	Stats    workspace.DatasetStats `json:"stats"`
	Statuses []string               `json:"statuses"`
	FAIR     []string               `json:"fair"`
}

type DatasetsPanel struct{ base }

func (p *DatasetsPanel) Load(ctx context.Context, token string) any { return p.Mount(ctx, token) }

// Mount lists the catalogue. The token is unused: datasets live in the
// workspace store, not in the backend.
func (p *DatasetsPanel) Mount(ctx context.Context, _ string) DatasetsModel {
	m := DatasetsModel{State: StateLoading, Statuses: DatasetStatuses, FAIR: FAIRPrinciples}
	if !p.deps.Workspace.Enabled() {
		m.State, m.Error = StateError, storeDisabled
		return m
	}
	list, err := p.deps.Workspace.ListDatasets(ctx)
	if err != nil {
		m.State, m.Error = StateError, p.loadFailed("datasets", err, "Error al cargar datasets")
		return m
	}
	stats, err := p.deps.Workspace.DatasetStats(ctx)
	if err != nil {
		m.State, m.Error = StateError, p.loadFailed("dataset_stats", err, "Error al cargar datasets")
		return m
	}
	m.Datasets, m.Stats = list, stats
	if len(list) == 0 {
		m.State = StateEmpty
	} else {
		m.State = StatePopulated
	}
	return m
}

// Import adds a dataset from an uploaded file, counting its records.
func (p *DatasetsPanel) Import(ctx context.Context, c Caller, fileName, source string, body []byte) (DatasetsModel, Notice) {
	if !p.deps.Workspace.Enabled() {
		return p.Mount(ctx, c.Token), failure(storeDisabled)
	}
	fileName = filepath.Base(strings.TrimSpace(fileName))
	ext := strings.ToLower(filepath.Ext(fileName))
	if len(body) == 0 || !acceptedDataset(ext) {
		return p.Mount(ctx, c.Token), failure("Selecciona un archivo " + strings.Join(DatasetExtensions, ", "))
	}
	if source = strings.TrimSpace(source); source == "" {
		source = "Importado"
	}
	d, err := p.deps.Workspace.CreateDataset(ctx, workspace.Dataset{
		Name:      strings.TrimSuffix(fileName, filepath.Ext(fileName)),
		Records:   CountRecords(ext, body),
		SizeBytes: int64(len(body)),
		Source:    source,
	})
	if err != nil {
		return p.Mount(ctx, c.Token), p.fail("import", err, "Error al importar dataset")
	}
	p.record(ctx, c, "importar_dataset", d.Name)
	return p.Mount(ctx, c.Token), success("Dataset importado exitosamente", "Importando "+fileName)
}

// Update edits the description and status of one dataset.
func (p *DatasetsPanel) Update(ctx context.Context, c Caller, id, description, status string) (DatasetsModel, Notice) {
	if !p.deps.Workspace.Enabled() {
		return p.Mount(ctx, c.Token), failure(storeDisabled)
	}
	if !validStatus(status) {
		return p.Mount(ctx, c.Token), failure("Estado no válido: " + status)
	}
	if err := p.deps.Workspace.UpdateDataset(ctx, id, description, status); err != nil {
		return p.Mount(ctx, c.Token), p.datasetFailure("update", err, "Error al actualizar dataset")
	}
	p.record(ctx, c, "editar_dataset", id)
	return p.Mount(ctx, c.Token), success("Dataset actualizado", "")
}

func (p *DatasetsPanel) Delete(ctx context.Context, c Caller, id string) (DatasetsModel, Notice) {
	if !p.deps.Workspace.Enabled() {
		return p.Mount(ctx, c.Token), failure(storeDisabled)
	}
	if err := p.deps.Workspace.DeleteDataset(ctx, id); err != nil {
		return p.Mount(ctx, c.Token), p.datasetFailure("delete", err, "Error al eliminar dataset")
	}
	p.record(ctx, c, "eliminar_dataset", id)
	return p.Mount(ctx, c.Token), success("Dataset eliminado", "")
}

// Export renders one dataset's metadata as csv or yaml.
func (p *DatasetsPanel) Export(ctx context.Context, c Caller, id, format string) (*reports.File, error) {
	if !p.deps.Workspace.Enabled() {
		return nil, errors.New(storeDisabled)
	}
	d, err := p.deps.Workspace.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}
	stamp := time.Now().UTC().Format("2006-01-02")
	var f *reports.File
	switch strings.ToLower(format) {
	case "yaml", "yml":
		body, err := yaml.Marshal(d)
		if err != nil {
			return nil, err
		}
		f = &reports.File{Name: fmt.Sprintf("%s_export_%s.yaml", d.Name, stamp), ContentType: "application/yaml", Body: body}
	default:
		body, err := datasetCSV(d)
		if err != nil {
			return nil, err
		}
		f = &reports.File{Name: fmt.Sprintf("%s_export_%s.csv", d.Name, stamp), ContentType: "text/csv; charset=utf-8", Body: body}
	}
	p.record(ctx, c, "exportar_dataset", f.Name)
	return f, nil
}

func (p *DatasetsPanel) datasetFailure(action string, err error, fallback string) Notice {
	if errors.Is(err, workspace.ErrNotFound) {
		return failure("Dataset no encontrado")
	}
	return p.fail(action, err, fallback)
}

func datasetCSV(d workspace.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"nombre", "version", "registros", "tamaño", "estado", "ultima_modificacion", "formato", "fuente", "descripcion"})
	_ = w.Write([]string{
		d.Name,
		d.Version,
		strconv.FormatInt(d.Records, 10),
		strconv.FormatInt(d.SizeBytes, 10),
		d.Status,
		d.UpdatedAt.Format("2006-01-02"),
		d.Format,
		d.Source,
		d.Description,
	})
	w.Flush()
	return buf.Bytes(), w.Error()
}

// CountRecords derives a record count from an imported file: fasta
// headers, csv rows after the header, or non-empty text lines.
func CountRecords(ext string, body []byte) int64 {
	var n int64
	header := true
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch ext {
		case ".fasta":
			if strings.HasPrefix(line, ">") {
				n++
			}
		case ".csv":
			if header {
				header = false
				continue
			}
			n++
		default:
			n++
		}
	}
	return n
}

func acceptedDataset(ext string) bool {
	for _, e := range DatasetExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

func validStatus(s string) bool {
	for _, v := range DatasetStatuses {
		if v == s {
			return true
		}
	}
	return false
}
