package http

import (
	"errors"
	"mime"
	nethttp "net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"protein-analysis-ui/internal/connectors/archive"
	"protein-analysis-ui/internal/connectors/backend"
	"protein-analysis-ui/internal/connectors/workspace"
	"protein-analysis-ui/internal/panels"
	"protein-analysis-ui/internal/reports"
	"protein-analysis-ui/internal/view"
)

func (a *app) experimentDownloadHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	f, err := a.panels.Downloads.Experiment(r.Context(), callerFrom(r), chi.URLParam(r, "id"), r.URL.Query().Get("format"))
	a.serveDownload(w, r, panels.KindExperiment, f, err)
}

func (a *app) comparativeDownloadHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	q := r.URL.Query()
	f, err := a.panels.Downloads.Comparative(r.Context(), callerFrom(r), q.Get("tipo"), q.Get("format"))
	a.serveDownload(w, r, panels.KindComparative, f, err)
}

func (a *app) informeDownloadHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	f, err := a.panels.Downloads.Informe(r.Context(), callerFrom(r), chi.URLParam(r, "tipo"), r.URL.Query().Get("formato"))
	a.serveDownload(w, r, panels.KindInforme, f, err)
}

func (a *app) documentationDownloadHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	f, err := a.panels.Downloads.Documentation(r.Context(), callerFrom(r))
	a.serveDownload(w, r, panels.KindDocumentation, f, err)
}

func (a *app) reportDownloadHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	f, err := a.panels.Downloads.Report(r.Context(), callerFrom(r), chi.URLParam(r, "kind"), r.URL.Query().Get("secuencia"))
	a.serveDownload(w, r, panels.KindReport, f, err)
}

func (a *app) datasetExportHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	f, err := a.panels.Datasets.Export(r.Context(), callerFrom(r), chi.URLParam(r, "id"), r.URL.Query().Get("format"))
	a.serveDownload(w, r, "dataset", f, err)
}

func (a *app) archivedDownloadHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	f, err := a.panels.Downloads.Archived(r.Context(), callerFrom(r), chi.URLParam(r, "id"))
	if errors.Is(err, archive.ErrNotFound) {
		recordDownload("archive", "not_found", 0)
		nethttp.Error(w, "archivo no encontrado", nethttp.StatusNotFound)
		return
	}
	a.serveDownload(w, r, "archive", f, err)
}

// serveDownload streams f as an attachment. On failure the user goes back to
// the view named by ?from= with an error toast.
func (a *app) serveDownload(w nethttp.ResponseWriter, r *nethttp.Request, kind string, f *reports.File, err error) {
	if err != nil {
		recordDownload(kind, downloadStatus(err), 0)
		a.cookies.addFlash(w, r, errorNotice(downloadMessage(err)))
		nethttp.Redirect(w, r, returnPath(r), nethttp.StatusSeeOther)
		return
	}
	recordDownload(kind, "ok", len(f.Body))

	name := f.Name
	if name == "" {
		name = kind
	}
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Body)))
	if f.Pages > 0 {
		w.Header().Set("X-Report-Pages", strconv.Itoa(f.Pages))
	}
	w.WriteHeader(nethttp.StatusOK)
	_, _ = w.Write(f.Body)
}

func downloadStatus(err error) string {
	switch {
	case errors.Is(err, reports.ErrNotPDF):
		return "invalid_pdf"
	case backend.IsNotFound(err), errors.Is(err, workspace.ErrNotFound):
		return "not_found"
	case backend.IsUnauthorized(err):
		return "unauthorized"
	default:
		return "error"
	}
}

func downloadMessage(err error) string {
	if errors.Is(err, reports.ErrNotPDF) {
		return "El backend devolvió un PDF no válido"
	}
	if errors.Is(err, workspace.ErrNotFound) {
		return "Dataset no encontrado"
	}
	return backend.Detail(err, "Error al descargar el archivo")
}

// returnPath maps ?from= to a view path. Anything else goes to the start page.
func returnPath(r *nethttp.Request) string {
	tag, err := view.Parse(r.URL.Query().Get("from"))
	if err != nil {
		return "/"
	}
	return "/view/" + string(tag)
}
