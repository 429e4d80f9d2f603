package panels

import (
	"context"
	"path/filepath"
	"strings"

	"protein-analysis-ui/internal/connectors/backend"
)

// UploadExtensions are the accepted sequence file types.
var UploadExtensions = []string{".fasta", ".csv", ".pdb", ".txt"}

// UploadSources are the origins offered by the upload form.
var UploadSources = []string{"Manual", "UniProt", "PDB", "NCBI"}

type UploadModel struct {
	State      State              `json:"state"`
	Error      string             `json:"error,omitempty"`
	Sequences  []backend.Sequence `json:"sequences"`
	Detail     *backend.Sequence  `json:"detail,omitempty"`
	Sources    []string           `json:"sources"`
	Extensions []string           `json:"extensions"`
}

type UploadPanel struct{ base }

func (p *UploadPanel) Load(ctx context.Context, token string) any { return p.Mount(ctx, token) }

func (p *UploadPanel) Mount(ctx context.Context, token string) UploadModel {
	seqs, errMsg := p.listSequences(ctx, token)
	return UploadModel{
		State:      sequenceState(seqs, errMsg),
		Error:      errMsg,
		Sequences:  seqs,
		Sources:    UploadSources,
		Extensions: UploadExtensions,
	}
}

// UploadText stores a manually entered sequence. Name and text are required.
func (p *UploadPanel) UploadText(ctx context.Context, c Caller, name, source, text string) (UploadModel, Notice) {
	name, text = strings.TrimSpace(name), strings.TrimSpace(text)
	if name == "" || text == "" {
		return p.Mount(ctx, c.Token), failure("Por favor completa nombre y secuencia")
	}
	return p.upload(ctx, c, backend.SequenceUpload{Name: name, Source: defaultSource(source), Text: text})
}

// UploadFile stores a sequence file. The name defaults to the file name.
func (p *UploadPanel) UploadFile(ctx context.Context, c Caller, name, source, fileName string, body []byte) (UploadModel, Notice) {
	fileName = filepath.Base(strings.TrimSpace(fileName))
	if len(body) == 0 || fileName == "" || fileName == "." {
		return p.Mount(ctx, c.Token), failure("Por favor selecciona un archivo")
	}
	if !AcceptedUpload(fileName) {
		return p.Mount(ctx, c.Token), failure("Formato no soportado. Usa " + strings.Join(UploadExtensions, ", "))
	}
	if name = strings.TrimSpace(name); name == "" {
		name = fileName
	}
	return p.upload(ctx, c, backend.SequenceUpload{Name: name, Source: defaultSource(source), FileName: fileName, File: body})
}

func (p *UploadPanel) upload(ctx context.Context, c Caller, in backend.SequenceUpload) (UploadModel, Notice) {
	rec, err := p.deps.Backend.UploadSequence(ctx, c.Token, in)
	if err != nil {
		return p.Mount(ctx, c.Token), p.fail("upload", err, "Error al cargar la secuencia")
	}
	p.record(ctx, c, "cargar_secuencia", in.Name)

	m := p.Mount(ctx, c.Token)
	if m.State != StateError && !containsSequence(m.Sequences, *rec) {
		m.Sequences = append(m.Sequences, *rec)
		m.State = StatePopulated
	}
	return m, success(`Secuencia "`+in.Name+`" cargada correctamente`, "")
}

// Detail mounts the panel with one sequence opened.
func (p *UploadPanel) Detail(ctx context.Context, c Caller, idx string) (UploadModel, Notice) {
	m := p.Mount(ctx, c.Token)
	seq, err := p.deps.Backend.GetSequence(ctx, c.Token, sequenceRef(idx))
	if err != nil {
		return m, p.fail("detail", err, "Secuencia no encontrada")
	}
	m.Detail = seq
	return m, Notice{}
}

// AcceptedUpload reports whether name has one of UploadExtensions.
func AcceptedUpload(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range UploadExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func defaultSource(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "Manual"
	}
	return s
}

func containsSequence(seqs []backend.Sequence, rec backend.Sequence) bool {
	if rec.ID == "" {
		return false
	}
	for _, s := range seqs {
		if s.ID == rec.ID {
			return true
		}
	}
	return false
}
