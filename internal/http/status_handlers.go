package http

import (
	"context"
	nethttp "net/http"
	"time"

	"protein-analysis-ui/internal/connectors/archive"
	"protein-analysis-ui/internal/connectors/backend"
	"protein-analysis-ui/internal/connectors/workspace"
)

func servicesStatusHandler(timeout time.Duration, client *backend.Client, store *workspace.Store, arch *archive.Archive) nethttp.HandlerFunc {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"generated_at": time.Now().UTC(),
			"services":     ServiceStatus(ctx, client, store, arch),
		})
	}
}

// ServiceStatus probes the backend and both local stores.
func ServiceStatus(ctx context.Context, client *backend.Client, store *workspace.Store, arch *archive.Archive) map[string]any {
	return map[string]any{
		"backend":   backendStatus(ctx, client),
		"workspace": workspaceStatus(ctx, store),
		"archive":   archiveStatus(ctx, arch),
	}
}

func backendStatus(ctx context.Context, client *backend.Client) map[string]any {
	if client == nil || !client.Enabled() {
		return map[string]any{"enabled": false, "ok": false, "error": "backend url not configured"}
	}
	if err := client.Ping(ctx); err != nil {
		return map[string]any{"enabled": true, "ok": false, "url": client.BaseURL(), "error": err.Error()}
	}
	return map[string]any{"enabled": true, "ok": true, "url": client.BaseURL()}
}

func workspaceStatus(ctx context.Context, store *workspace.Store) map[string]any {
	if !store.Enabled() {
		return map[string]any{"enabled": false, "ok": false, "error": "workspace store disabled"}
	}
	stats, err := store.ServiceStats(ctx)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "driver": store.Driver(), "error": err.Error()}
	}
	return map[string]any{"enabled": true, "ok": true, "driver": store.Driver(), "stats": stats}
}

func archiveStatus(ctx context.Context, arch *archive.Archive) map[string]any {
	if !arch.Enabled() {
		return map[string]any{"enabled": false, "ok": false, "error": "report archive disabled"}
	}
	stats, err := arch.Stats(ctx)
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}
	return map[string]any{"enabled": true, "ok": true, "stats": stats}
}
