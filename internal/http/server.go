package http

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"protein-analysis-ui/internal/config"
	"protein-analysis-ui/internal/connectors/archive"
	"protein-analysis-ui/internal/connectors/backend"
	"protein-analysis-ui/internal/connectors/workspace"
	"protein-analysis-ui/internal/panels"
)

// Server wraps an HTTP server and route handlers.
type Server struct {
	httpServer *nethttp.Server
	workspace  *workspace.Store
	archive    *archive.Archive
	log        logrus.FieldLogger
}

// app carries the collaborators shared by every handler.
type app struct {
	cfg       config.Config
	log       logrus.FieldLogger
	backend   *backend.Client
	workspace *workspace.Store
	archive   *archive.Archive
	panels    *panels.Set
	cookies   *cookieSessions
	pages     *pages
}

// NewServer opens the configured stores and builds the dashboard routes.
func NewServer(cfg config.Config, log logrus.FieldLogger) (*Server, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	var store *workspace.Store
	if cfg.StoreEnabled {
		created, err := workspace.Open(cfg)
		if err != nil {
			return nil, err
		}
		created.SetObserver(func(op string, secs float64, err error) {
			recordStoreQuery("workspace", op, secs, err)
		})
		store = created
	}
	var arch *archive.Archive
	if cfg.ArchiveEnabled {
		created, err := archive.Open(cfg.ArchivePath, cfg.ArchiveTTL)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		created.SetObserver(func(op string, secs float64, err error) {
			recordStoreQuery("archive", op, secs, err)
		})
		arch = created
	}
	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout,
		backend.WithObserver(recordBackendCall),
		backend.WithMaxDownloadBytes(cfg.MaxDownloadBytes),
	)

	a, err := newApp(cfg, log, client, store, arch)
	if err != nil {
		_ = store.Close()
		_ = arch.Close()
		return nil, err
	}

	httpServer := &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      a.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Server{httpServer: httpServer, workspace: store, archive: arch, log: log}, nil
}

func newApp(cfg config.Config, log logrus.FieldLogger, client *backend.Client, store *workspace.Store, arch *archive.Archive) (*app, error) {
	cookies, err := newCookieSessions(cfg, log)
	if err != nil {
		return nil, err
	}
	pg, err := newPages()
	if err != nil {
		return nil, err
	}
	set := panels.NewSet(panels.Deps{
		Backend:     client,
		Workspace:   store,
		Archive:     arch,
		Log:         log,
		RecentLimit: cfg.RecentLimit,
	})
	return &app{
		cfg:       cfg,
		log:       log,
		backend:   client,
		workspace: store,
		archive:   arch,
		panels:    set,
		cookies:   cookies,
		pages:     pg,
	}, nil
}

func (a *app) routes() nethttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(a.log))
	r.Use(observabilityMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/", a.indexHandler)
	r.Get("/login", a.loginPageHandler)
	r.Post("/login", a.loginHandler)
	r.Post("/logout", a.logoutHandler)
	r.Get("/favicon.ico", faviconHandler)

	r.Handle("/metrics", metricsHandler())
	r.Get("/api/v1/metrics/app", appMetricsSummaryHandler())
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler)
	r.Get("/api/v1/status/services", servicesStatusHandler(a.cfg.StatusProbeTimeout, a.backend, a.workspace, a.archive))

	r.Group(func(r chi.Router) {
		r.Use(a.requireSession)

		r.Get("/view/{tag}", a.viewHandler)
		r.Post("/view/upload/text", a.uploadTextHandler)
		r.Post("/view/upload/file", a.uploadFileHandler)
		r.Get("/view/upload/sequences/{idx}", a.sequenceDetailHandler)
		r.Post("/view/model-run/run", a.modelRunHandler)
		r.Post("/view/virtual-lab/run", a.virtualLabHandler)
		r.Post("/view/digital-twin/run", a.digitalTwinHandler)
		r.Post("/view/datasets/import", a.datasetImportHandler)
		r.Post("/view/datasets/{id}", a.datasetUpdateHandler)
		r.Post("/view/datasets/{id}/delete", a.datasetDeleteHandler)
		r.Get("/view/datasets/{id}/export", a.datasetExportHandler)
		r.Post("/view/query/search", a.searchHandler)
		r.Post("/view/query/saved", a.saveQueryHandler)
		r.Post("/view/query/saved/{id}/run", a.runSavedQueryHandler)
		r.Post("/view/query/saved/{id}/delete", a.deleteSavedQueryHandler)
		r.Post("/view/alerts", a.createAlertHandler)
		r.Post("/view/alerts/summary", a.alertSummaryHandler)
		r.Post("/view/alerts/{id}/resolve", a.resolveAlertHandler)

		r.Get("/download/experiments/{id}", a.experimentDownloadHandler)
		r.Get("/download/comparative", a.comparativeDownloadHandler)
		r.Get("/download/informes/{tipo}", a.informeDownloadHandler)
		r.Get("/download/documentation", a.documentationDownloadHandler)
		r.Get("/download/reports/{kind}", a.reportDownloadHandler)
		r.Get("/archive/{id}", a.archivedDownloadHandler)

		r.Get("/api/v1/views/{tag}", a.viewJSONHandler)
	})

	return r
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, nethttp.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server and closes the stores.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if cerr := s.workspace.Close(); cerr != nil {
		s.log.WithError(cerr).Warn("closing workspace store")
	}
	if cerr := s.archive.Close(); cerr != nil {
		s.log.WithError(cerr).Warn("closing archive")
	}
	return err
}

func healthHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func readyHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ready",
	})
}

func faviconHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.WriteHeader(nethttp.StatusNoContent)
}

func loggingMiddleware(log logrus.FieldLogger) func(nethttp.Handler) nethttp.Handler {
	return func(next nethttp.Handler) nethttp.Handler {
		return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
			next.ServeHTTP(rec, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
