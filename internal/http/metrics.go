package http

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"protein-analysis-ui/internal/connectors/backend"
)

var (
	appStartedAtUnix = time.Now().Unix()
	inFlightRequests int64
	metricsMu        sync.Mutex
	httpSeries       = map[httpMetricKey]*httpMetricSeries{}
	storeSeries      = map[storeMetricKey]*storeMetricSeries{}
	backendSeries    = map[backendMetricKey]*backendMetricSeries{}
	downloadSeries   = map[downloadMetricKey]*downloadMetricSeries{}
)

func metricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		metricsMu.Lock()
		keys := make([]httpMetricKey, 0, len(httpSeries))
		for k := range httpSeries {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].Method != keys[j].Method {
				return keys[i].Method < keys[j].Method
			}
			if keys[i].Path != keys[j].Path {
				return keys[i].Path < keys[j].Path
			}
			return keys[i].Status < keys[j].Status
		})
		snapshot := make([]struct {
			Key    httpMetricKey
			Series httpMetricSeries
		}, 0, len(keys))
		for _, k := range keys {
			snapshot = append(snapshot, struct {
				Key    httpMetricKey
				Series httpMetricSeries
			}{Key: k, Series: *httpSeries[k]})
		}
		metricsMu.Unlock()

		_, _ = fmt.Fprintln(w, "# HELP protein_ui_http_requests_total Total HTTP requests handled by this app.")
		_, _ = fmt.Fprintln(w, "# TYPE protein_ui_http_requests_total counter")
		for _, it := range snapshot {
			_, _ = fmt.Fprintf(w, "protein_ui_http_requests_total{method=%q,path=%q,status=%q} %d\n",
				escapeLabel(it.Key.Method), escapeLabel(it.Key.Path), escapeLabel(it.Key.Status), it.Series.Count)
		}

		_, _ = fmt.Fprintln(w, "# HELP protein_ui_http_request_duration_seconds_sum Total duration in seconds for observed requests.")
		_, _ = fmt.Fprintln(w, "# TYPE protein_ui_http_request_duration_seconds_sum counter")
		for _, it := range snapshot {
			_, _ = fmt.Fprintf(w, "protein_ui_http_request_duration_seconds_sum{method=%q,path=%q,status=%q} %.9f\n",
				escapeLabel(it.Key.Method), escapeLabel(it.Key.Path), escapeLabel(it.Key.Status), it.Series.DurationSecondsSum)
		}

		_, _ = fmt.Fprintln(w, "# HELP protein_ui_http_request_duration_seconds_count Number of observed requests in duration series.")
		_, _ = fmt.Fprintln(w, "# TYPE protein_ui_http_request_duration_seconds_count counter")
		for _, it := range snapshot {
			_, _ = fmt.Fprintf(w, "protein_ui_http_request_duration_seconds_count{method=%q,path=%q,status=%q} %d\n",
				escapeLabel(it.Key.Method), escapeLabel(it.Key.Path), escapeLabel(it.Key.Status), it.Series.Count)
		}

		_, _ = fmt.Fprintln(w, "# HELP protein_ui_http_in_flight_requests In-flight HTTP requests currently served by this app.")
		_, _ = fmt.Fprintln(w, "# TYPE protein_ui_http_in_flight_requests gauge")
		_, _ = fmt.Fprintf(w, "protein_ui_http_in_flight_requests %d\n", atomic.LoadInt64(&inFlightRequests))

		metricsMu.Lock()
		stKeys := make([]storeMetricKey, 0, len(storeSeries))
		for k := range storeSeries {
			stKeys = append(stKeys, k)
		}
		sort.Slice(stKeys, func(i, j int) bool {
			if stKeys[i].Connector != stKeys[j].Connector {
				return stKeys[i].Connector < stKeys[j].Connector
			}
			return stKeys[i].Operation < stKeys[j].Operation
		})
		stSnapshot := make([]struct {
			Key    storeMetricKey
			Series storeMetricSeries
		}, 0, len(stKeys))
		for _, k := range stKeys {
			stSnapshot = append(stSnapshot, struct {
				Key    storeMetricKey
				Series storeMetricSeries
			}{k, *storeSeries[k]})
		}

		beKeys := make([]backendMetricKey, 0, len(backendSeries))
		for k := range backendSeries {
			beKeys = append(beKeys, k)
		}
		sort.Slice(beKeys, func(i, j int) bool {
			if beKeys[i].Endpoint != beKeys[j].Endpoint {
				return beKeys[i].Endpoint < beKeys[j].Endpoint
			}
			return beKeys[i].Outcome < beKeys[j].Outcome
		})
		beSnapshot := make([]struct {
			Key    backendMetricKey
			Series backendMetricSeries
		}, 0, len(beKeys))
		for _, k := range beKeys {
			beSnapshot = append(beSnapshot, struct {
				Key    backendMetricKey
				Series backendMetricSeries
			}{k, *backendSeries[k]})
		}

		dlKeys := make([]downloadMetricKey, 0, len(downloadSeries))
		for k := range downloadSeries {
			dlKeys = append(dlKeys, k)
		}
		sort.Slice(dlKeys, func(i, j int) bool {
			if dlKeys[i].Kind != dlKeys[j].Kind {
				return dlKeys[i].Kind < dlKeys[j].Kind
			}
			return dlKeys[i].Status < dlKeys[j].Status
		})
		dlSnapshot := make([]struct {
			Key    downloadMetricKey
			Series downloadMetricSeries
		}, 0, len(dlKeys))
		for _, k := range dlKeys {
			dlSnapshot = append(dlSnapshot, struct {
				Key    downloadMetricKey
				Series downloadMetricSeries
			}{k, *downloadSeries[k]})
		}
		metricsMu.Unlock()

		_, _ = fmt.Fprintln(w, "# HELP protein_ui_store_queries_total Workspace store and archive operations by connector/operation.")
		_, _ = fmt.Fprintln(w, "# TYPE protein_ui_store_queries_total counter")
		for _, it := range stSnapshot {
			_, _ = fmt.Fprintf(w, "protein_ui_store_queries_total{connector=%q,operation=%q} %d\n",
				escapeLabel(it.Key.Connector), escapeLabel(it.Key.Operation), it.Series.Count)
		}
		_, _ = fmt.Fprintln(w, "# HELP protein_ui_store_query_duration_seconds_sum Workspace store and archive operation duration sum in seconds.")
		_, _ = fmt.Fprintln(w, "# TYPE protein_ui_store_query_duration_seconds_sum counter")
		for _, it := range stSnapshot {
			_, _ = fmt.Fprintf(w, "protein_ui_store_query_duration_seconds_sum{connector=%q,operation=%q} %.9f\n",
				escapeLabel(it.Key.Connector), escapeLabel(it.Key.Operation), it.Series.DurationSecondsSum)
		}
		_, _ = fmt.Fprintln(w, "# HELP protein_ui_store_query_errors_total Workspace store and archive operation errors.")
		_, _ = fmt.Fprintln(w, "# TYPE protein_ui_store_query_errors_total counter")
		for _, it := range stSnapshot {
			_, _ = fmt.Fprintf(w, "protein_ui_store_query_errors_total{connector=%q,operation=%q} %d\n",
				escapeLabel(it.Key.Connector), escapeLabel(it.Key.Operation), it.Series.Errors)
		}

		_, _ = fmt.Fprintln(w, "# HELP protein_ui_backend_calls_total Analysis backend calls by endpoint/outcome.")
		_, _ = fmt.Fprintln(w, "# TYPE protein_ui_backend_calls_total counter")
		for _, it := range beSnapshot {
			_, _ = fmt.Fprintf(w, "protein_ui_backend_calls_total{endpoint=%q,outcome=%q} %d\n",
				escapeLabel(it.Key.Endpoint), escapeLabel(it.Key.Outcome), it.Series.Count)
		}
		_, _ = fmt.Fprintln(w, "# HELP protein_ui_backend_call_duration_seconds_sum Analysis backend call duration sum in seconds by endpoint/outcome.")
		_, _ = fmt.Fprintln(w, "# TYPE protein_ui_backend_call_duration_seconds_sum counter")
		for _, it := range beSnapshot {
			_, _ = fmt.Fprintf(w, "protein_ui_backend_call_duration_seconds_sum{endpoint=%q,outcome=%q} %.9f\n",
				escapeLabel(it.Key.Endpoint), escapeLabel(it.Key.Outcome), it.Series.DurationSecondsSum)
		}
		_, _ = fmt.Fprintln(w, "# HELP protein_ui_backend_call_duration_seconds_count Analysis backend call observation count by endpoint/outcome.")
		_, _ = fmt.Fprintln(w, "# TYPE protein_ui_backend_call_duration_seconds_count counter")
		for _, it := range beSnapshot {
			_, _ = fmt.Fprintf(w, "protein_ui_backend_call_duration_seconds_count{endpoint=%q,outcome=%q} %d\n",
				escapeLabel(it.Key.Endpoint), escapeLabel(it.Key.Outcome), it.Series.Count)
		}

		_, _ = fmt.Fprintln(w, "# HELP protein_ui_report_downloads_total Report downloads by kind/status.")
		_, _ = fmt.Fprintln(w, "# TYPE protein_ui_report_downloads_total counter")
		for _, it := range dlSnapshot {
			_, _ = fmt.Fprintf(w, "protein_ui_report_downloads_total{kind=%q,status=%q} %d\n",
				escapeLabel(it.Key.Kind), escapeLabel(it.Key.Status), it.Series.Count)
		}
		_, _ = fmt.Fprintln(w, "# HELP protein_ui_report_download_bytes_total Bytes streamed to users by kind.")
		_, _ = fmt.Fprintln(w, "# TYPE protein_ui_report_download_bytes_total counter")
		for _, it := range dlSnapshot {
			if it.Key.Status != "ok" {
				continue
			}
			_, _ = fmt.Fprintf(w, "protein_ui_report_download_bytes_total{kind=%q} %d\n", escapeLabel(it.Key.Kind), it.Series.Bytes)
		}

		uptime := time.Now().Unix() - appStartedAtUnix
		_, _ = fmt.Fprintln(w, "# HELP protein_ui_uptime_seconds Process uptime in seconds.")
		_, _ = fmt.Fprintln(w, "# TYPE protein_ui_uptime_seconds gauge")
		_, _ = fmt.Fprintf(w, "protein_ui_uptime_seconds %d\n", uptime)

		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		_, _ = fmt.Fprintln(w, "# HELP protein_ui_runtime_goroutines Number of goroutines.")
		_, _ = fmt.Fprintln(w, "# TYPE protein_ui_runtime_goroutines gauge")
		_, _ = fmt.Fprintf(w, "protein_ui_runtime_goroutines %d\n", runtime.NumGoroutine())
		_, _ = fmt.Fprintln(w, "# HELP protein_ui_runtime_memory_alloc_bytes Heap allocation bytes.")
		_, _ = fmt.Fprintln(w, "# TYPE protein_ui_runtime_memory_alloc_bytes gauge")
		_, _ = fmt.Fprintf(w, "protein_ui_runtime_memory_alloc_bytes %d\n", ms.Alloc)
		_, _ = fmt.Fprintln(w, "# HELP protein_ui_runtime_gc_total Total GC runs since process start.")
		_, _ = fmt.Fprintln(w, "# TYPE protein_ui_runtime_gc_total counter")
		_, _ = fmt.Fprintf(w, "protein_ui_runtime_gc_total %d\n", ms.NumGC)

		if cpuSec, ok := processCPUSeconds(); ok {
			_, _ = fmt.Fprintln(w, "# HELP protein_ui_runtime_cpu_seconds_total Total CPU time consumed by this process in seconds.")
			_, _ = fmt.Fprintln(w, "# TYPE protein_ui_runtime_cpu_seconds_total counter")
			_, _ = fmt.Fprintf(w, "protein_ui_runtime_cpu_seconds_total %.6f\n", cpuSec)
			if uptime > 0 {
				cpuPct := (cpuSec / float64(uptime)) * 100.0
				_, _ = fmt.Fprintln(w, "# HELP protein_ui_runtime_cpu_percent Average CPU percent of one core since process start.")
				_, _ = fmt.Fprintln(w, "# TYPE protein_ui_runtime_cpu_percent gauge")
				_, _ = fmt.Fprintf(w, "protein_ui_runtime_cpu_percent %.6f\n", cpuPct)
			}
		}
		if io := processIOStats(); io != nil {
			_, _ = fmt.Fprintln(w, "# HELP protein_ui_runtime_io_read_bytes_total Bytes read by this process from storage.")
			_, _ = fmt.Fprintln(w, "# TYPE protein_ui_runtime_io_read_bytes_total counter")
			_, _ = fmt.Fprintf(w, "protein_ui_runtime_io_read_bytes_total %d\n", io.ReadBytes)
			_, _ = fmt.Fprintln(w, "# HELP protein_ui_runtime_io_write_bytes_total Bytes written by this process to storage.")
			_, _ = fmt.Fprintln(w, "# TYPE protein_ui_runtime_io_write_bytes_total counter")
			_, _ = fmt.Fprintf(w, "protein_ui_runtime_io_write_bytes_total %d\n", io.WriteBytes)
		}
	})
}

func appMetricsSummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type endpointRow struct {
			Method  string  `json:"method"`
			Path    string  `json:"path"`
			Status  string  `json:"status"`
			Count   uint64  `json:"count"`
			AvgMS   float64 `json:"avg_ms"`
			TotalMS float64 `json:"total_ms"`
		}
		type backendRow struct {
			Endpoint string  `json:"endpoint"`
			Outcome  string  `json:"outcome"`
			Count    uint64  `json:"count"`
			AvgMS    float64 `json:"avg_ms"`
		}

		metricsMu.Lock()
		httpRows := make([]endpointRow, 0, len(httpSeries))
		for k, s := range httpSeries {
			httpRows = append(httpRows, endpointRow{
				Method:  k.Method,
				Path:    k.Path,
				Status:  k.Status,
				Count:   s.Count,
				AvgMS:   avgMS(s.DurationSecondsSum, s.Count),
				TotalMS: s.DurationSecondsSum * 1000.0,
			})
		}

		beRows := make([]backendRow, 0, len(backendSeries))
		backendErrors := uint64(0)
		for k, s := range backendSeries {
			beRows = append(beRows, backendRow{
				Endpoint: k.Endpoint,
				Outcome:  k.Outcome,
				Count:    s.Count,
				AvgMS:    avgMS(s.DurationSecondsSum, s.Count),
			})
			if k.Outcome != "ok" {
				backendErrors += s.Count
			}
		}

		storeErrors := uint64(0)
		for _, s := range storeSeries {
			storeErrors += s.Errors
		}
		downloadErrors := uint64(0)
		for k, s := range downloadSeries {
			if k.Status != "ok" {
				downloadErrors += s.Count
			}
		}
		metricsMu.Unlock()

		sort.Slice(httpRows, func(i, j int) bool { return httpRows[i].AvgMS > httpRows[j].AvgMS })
		sort.Slice(beRows, func(i, j int) bool { return beRows[i].AvgMS > beRows[j].AvgMS })

		topHTTP := httpRows
		if len(topHTTP) > 5 {
			topHTTP = topHTTP[:5]
		}
		topBackend := beRows
		if len(topBackend) > 5 {
			topBackend = topBackend[:5]
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"meta": map[string]any{
				"generated_at": time.Now().UTC(),
			},
			"data": map[string]any{
				"top_http_slowest_avg_ms":    topHTTP,
				"top_backend_slowest_avg_ms": topBackend,
				"errors": map[string]any{
					"backend_calls_total": backendErrors,
					"store_query_total":   storeErrors,
					"downloads_total":     downloadErrors,
				},
			},
		})
	}
}

func avgMS(sum float64, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return (sum / float64(count)) * 1000.0
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func observabilityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		atomic.AddInt64(&inFlightRequests, 1)
		defer atomic.AddInt64(&inFlightRequests, -1)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		recordHTTPMetric(r.Method, metricRoute(r), rec.status, time.Since(start).Seconds())
	})
}

// metricRoute prefers the matched chi pattern so path parameters do not
// explode the label set.
func metricRoute(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return normalizeMetricPath(r.URL.Path)
}

func normalizeMetricPath(path string) string {
	switch {
	case path == "/", path == "/metrics", path == "/health", path == "/ready":
		return path
	case strings.HasPrefix(path, "/view/"):
		return "/view/{tag}"
	case strings.HasPrefix(path, "/download/"):
		return "/download/*"
	case strings.HasPrefix(path, "/archive/"):
		return "/archive/{id}"
	case strings.HasPrefix(path, "/api/"):
		return path
	default:
		return "unmatched"
	}
}

type httpMetricKey struct {
	Method string
	Path   string
	Status string
}

type httpMetricSeries struct {
	Count              uint64
	DurationSecondsSum float64
}

type storeMetricKey struct {
	Connector string
	Operation string
}

type storeMetricSeries struct {
	Count              uint64
	Errors             uint64
	DurationSecondsSum float64
}

type backendMetricKey struct {
	Endpoint string
	Outcome  string
}

type backendMetricSeries struct {
	Count              uint64
	DurationSecondsSum float64
}

type downloadMetricKey struct {
	Kind   string
	Status string
}

type downloadMetricSeries struct {
	Count uint64
	Bytes uint64
}

func recordHTTPMetric(method, path string, status int, durationSeconds float64) {
	key := httpMetricKey{
		Method: method,
		Path:   path,
		Status: strconv.Itoa(status),
	}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := httpSeries[key]
	if !ok {
		row = &httpMetricSeries{}
		httpSeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
}

func recordStoreQuery(connector, operation string, durationSeconds float64, err error) {
	if connector == "" || operation == "" {
		return
	}
	key := storeMetricKey{Connector: connector, Operation: operation}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := storeSeries[key]
	if !ok {
		row = &storeMetricSeries{}
		storeSeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
	if err != nil {
		row.Errors++
	}
}

func recordBackendCall(endpoint string, durationSeconds float64, err error) {
	if endpoint == "" {
		return
	}
	key := backendMetricKey{Endpoint: endpoint, Outcome: backendOutcome(err)}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := backendSeries[key]
	if !ok {
		row = &backendMetricSeries{}
		backendSeries[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
}

func backendOutcome(err error) string {
	var apiErr *backend.APIError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &apiErr) && apiErr.Status >= 500:
		return "http_5xx"
	case errors.As(err, &apiErr):
		return "http_4xx"
	case errors.Is(err, backend.ErrMalformedResponse):
		return "malformed"
	default:
		return "transport"
	}
}

func recordDownload(kind, status string, size int) {
	status = strings.TrimSpace(strings.ToLower(status))
	if status == "" {
		status = "unknown"
	}
	key := downloadMetricKey{Kind: kind, Status: status}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := downloadSeries[key]
	if !ok {
		row = &downloadMetricSeries{}
		downloadSeries[key] = row
	}
	row.Count++
	if size > 0 {
		row.Bytes += uint64(size)
	}
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "\n", `\n`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return v
}

func processCPUSeconds() (float64, bool) {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0, false
	}
	user := float64(ru.Utime.Sec) + (float64(ru.Utime.Usec) / 1_000_000.0)
	sys := float64(ru.Stime.Sec) + (float64(ru.Stime.Usec) / 1_000_000.0)
	return user + sys, true
}

type ioStats struct {
	ReadBytes  uint64
	WriteBytes uint64
}

func processIOStats() *ioStats {
	b, err := os.ReadFile("/proc/self/io")
	if err != nil {
		return nil
	}
	out := &ioStats{}
	for _, line := range strings.Split(string(b), "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSpace(val), 10, 64)
		if err != nil {
			continue
		}
		switch strings.TrimSpace(key) {
		case "read_bytes":
			out.ReadBytes = v
		case "write_bytes":
			out.WriteBytes = v
		}
	}
	return out
}
