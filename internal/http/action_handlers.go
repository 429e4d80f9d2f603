package http

import (
	"io"
	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	"protein-analysis-ui/internal/view"
)

const maxUploadBytes = 32 << 20

// Panel actions answer with the panel model and the action's notice so the
// result stays on screen.

func (a *app) uploadTextHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	m, n := a.panels.Upload.UploadText(r.Context(), callerFrom(r),
		r.PostFormValue("nombre"), r.PostFormValue("fuente"), r.PostFormValue("secuencia_texto"))
	a.renderMain(w, r, view.Upload, m, n)
}

func (a *app) uploadFileHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	name, body := a.formFile(w, r, "archivo")
	m, n := a.panels.Upload.UploadFile(r.Context(), callerFrom(r), r.FormValue("nombre"), r.FormValue("fuente"), name, body)
	a.renderMain(w, r, view.Upload, m, n)
}

func (a *app) sequenceDetailHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	m, n := a.panels.Upload.Detail(r.Context(), callerFrom(r), chi.URLParam(r, "idx"))
	a.renderMain(w, r, view.Upload, m, n)
}

func (a *app) modelRunHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	m, n := a.panels.ModelRun.Run(r.Context(), callerFrom(r), r.PostFormValue("secuencia"), r.PostFormValue("modelo"))
	a.renderMain(w, r, view.ModelRun, m, n)
}

func (a *app) virtualLabHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	m, n := a.panels.VirtualLab.Run(r.Context(), callerFrom(r), r.PostFormValue("secuencia"))
	a.renderMain(w, r, view.VirtualLab, m, n)
}

func (a *app) digitalTwinHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	m, n := a.panels.DigitalTwin.Run(r.Context(), callerFrom(r), r.PostFormValue("secuencia"))
	a.renderMain(w, r, view.DigitalTwin, m, n)
}

func (a *app) datasetImportHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	name, body := a.formFile(w, r, "archivo")
	m, n := a.panels.Datasets.Import(r.Context(), callerFrom(r), name, r.FormValue("fuente"), body)
	a.renderMain(w, r, view.Datasets, m, n)
}

func (a *app) datasetUpdateHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	m, n := a.panels.Datasets.Update(r.Context(), callerFrom(r), chi.URLParam(r, "id"),
		r.PostFormValue("descripcion"), r.PostFormValue("estado"))
	a.renderMain(w, r, view.Datasets, m, n)
}

func (a *app) datasetDeleteHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	m, n := a.panels.Datasets.Delete(r.Context(), callerFrom(r), chi.URLParam(r, "id"))
	a.renderMain(w, r, view.Datasets, m, n)
}

func (a *app) searchHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	m, n := a.panels.Query.Search(r.Context(), callerFrom(r), r.PostFormValue("q"), r.PostFormValue("tipo"))
	a.renderMain(w, r, view.Query, m, n)
}

func (a *app) saveQueryHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	m, n := a.panels.Query.SaveQuery(r.Context(), callerFrom(r), r.PostFormValue("nombre"), r.PostFormValue("q"), r.PostFormValue("tipo"))
	a.renderMain(w, r, view.Query, m, n)
}

func (a *app) runSavedQueryHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	m, n := a.panels.Query.RunSaved(r.Context(), callerFrom(r), chi.URLParam(r, "id"))
	a.renderMain(w, r, view.Query, m, n)
}

func (a *app) deleteSavedQueryHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	m, n := a.panels.Query.DeleteSavedQuery(r.Context(), callerFrom(r), chi.URLParam(r, "id"))
	a.renderMain(w, r, view.Query, m, n)
}

func (a *app) createAlertHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	m, n := a.panels.Alerts.Create(r.Context(), callerFrom(r), r.PostFormValue("tipo"), r.PostFormValue("mensaje"), r.PostFormValue("prioridad"))
	a.renderMain(w, r, view.Alerts, m, n)
}

func (a *app) resolveAlertHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	m, n := a.panels.Alerts.Resolve(r.Context(), callerFrom(r), chi.URLParam(r, "id"))
	a.renderMain(w, r, view.Alerts, m, n)
}

func (a *app) alertSummaryHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	m, n := a.panels.Alerts.Summary(r.Context(), callerFrom(r))
	a.renderMain(w, r, view.Alerts, m, n)
}

// formFile reads one uploaded file. A missing field yields an empty name
// and body, which the panels reject with their own message.
func (a *app) formFile(w nethttp.ResponseWriter, r *nethttp.Request, field string) (name string, body []byte) {
	r.Body = nethttp.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.log.WithError(err).Debug("multipart form")
		return "", nil
	}
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return "", nil
	}
	defer f.Close()
	body, err = io.ReadAll(f)
	if err != nil {
		return "", nil
	}
	return hdr.Filename, body
}
