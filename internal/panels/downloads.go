package panels

import (
	"context"
	"fmt"
	"strings"

	"protein-analysis-ui/internal/connectors/archive"
	"protein-analysis-ui/internal/connectors/backend"
	"protein-analysis-ui/internal/reports"
)

// Download kinds, used for archive entries and metrics.
const (
	KindExperiment    = "experiment"
	KindComparative   = "comparative"
	KindInforme       = "informe"
	KindDocumentation = "documentation"
	KindReport        = "report"
)

// Downloads fetches report files from the backend, checks PDFs and keeps
// a copy of every successful download in the archive.
type Downloads struct{ base }

func (d *Downloads) Experiment(ctx context.Context, c Caller, id, format string) (*reports.File, error) {
	return d.fetch(ctx, c, KindExperiment, func() (*backend.Download, error) {
		return d.deps.Backend.DownloadExperiment(ctx, c.Token, id, format)
	})
}

func (d *Downloads) Comparative(ctx context.Context, c Caller, tipo, format string) (*reports.File, error) {
	return d.fetch(ctx, c, KindComparative, func() (*backend.Download, error) {
		return d.deps.Backend.DownloadComparative(ctx, c.Token, tipo, format)
	})
}

// Informe fetches a system report. tipo is sistema or alertas.
func (d *Downloads) Informe(ctx context.Context, c Caller, tipo, formato string) (*reports.File, error) {
	tipo = strings.ToLower(strings.TrimSpace(tipo))
	if !validInforme(tipo) {
		return nil, fmt.Errorf("unknown informe %q", tipo)
	}
	return d.fetch(ctx, c, KindInforme, func() (*backend.Download, error) {
		return d.deps.Backend.DownloadInforme(ctx, c.Token, tipo, formato)
	})
}

func (d *Downloads) Documentation(ctx context.Context, c Caller) (*reports.File, error) {
	return d.fetch(ctx, c, KindDocumentation, func() (*backend.Download, error) {
		return d.deps.Backend.DownloadDocumentation(ctx, c.Token)
	})
}

// Report generates one of the per-sequence PDF reports.
func (d *Downloads) Report(ctx context.Context, c Caller, kind, seq string) (*reports.File, error) {
	k, ok := backend.ParseReportKind(strings.ToLower(strings.TrimSpace(kind)))
	if !ok {
		return nil, fmt.Errorf("unknown report kind %q", kind)
	}
	return d.fetch(ctx, c, KindReport, func() (*backend.Download, error) {
		return d.deps.Backend.GenerateReport(ctx, c.Token, k, sequenceRef(seq))
	})
}

// Archived returns a file the caller downloaded before. Other users'
// entries answer archive.ErrNotFound.
func (d *Downloads) Archived(ctx context.Context, c Caller, id string) (*reports.File, error) {
	if !d.deps.Archive.Enabled() {
		return nil, archive.ErrNotFound
	}
	e, body, err := d.deps.Archive.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Owner != c.Actor {
		return nil, archive.ErrNotFound
	}
	return &reports.File{Name: e.Name, ContentType: e.ContentType, Body: body, Pages: e.Pages}, nil
}

func (d *Downloads) fetch(ctx context.Context, c Caller, kind string, get func() (*backend.Download, error)) (*reports.File, error) {
	dl, err := get()
	if err != nil {
		d.log.WithField("kind", kind).WithError(err).Warn("download failed")
		return nil, err
	}
	f := &reports.File{Name: dl.Filename, ContentType: dl.ContentType, Body: dl.Body}
	if reports.IsPDF(dl.ContentType, dl.Filename, dl.Body) {
		pages, err := reports.VerifyPDF(dl.Body)
		if err != nil {
			d.log.WithField("kind", kind).WithField("file", dl.Filename).WithError(err).Warn("rejected download")
			return nil, err
		}
		f.Pages = pages
		if f.ContentType == "" || strings.HasPrefix(f.ContentType, "application/octet-stream") {
			f.ContentType = "application/pdf"
		}
	}
	if f.ContentType == "" {
		f.ContentType = "application/octet-stream"
	}

	if d.deps.Archive.Enabled() {
		_, err := d.deps.Archive.Put(ctx, archive.Entry{
			Name:        f.Name,
			ContentType: f.ContentType,
			Kind:        kind,
			Owner:       c.Actor,
			Pages:       f.Pages,
		}, f.Body)
		if err != nil {
			d.log.WithError(err).WithField("file", f.Name).Warn("could not archive download")
		}
	}
	d.record(ctx, c, "descargar_"+kind, f.Name)
	return f, nil
}

func validInforme(tipo string) bool {
	return tipo == "sistema" || tipo == "alertas"
}
