package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnknownView is returned for tags outside the eight known views.
var ErrUnknownView = errors.New("view: unknown view")

// ErrNoPanel is returned when a known tag has no registered panel.
var ErrNoPanel = errors.New("view: no panel registered")

// Tag identifies one of the dashboard views.
type Tag string

const (
	Dashboard   Tag = "dashboard"
	Upload      Tag = "upload"
	ModelRun    Tag = "model-run"
	VirtualLab  Tag = "virtual-lab"
	Datasets    Tag = "datasets"
	DigitalTwin Tag = "digital-twin"
	Query       Tag = "query"
	Alerts      Tag = "alerts"
)

var all = []Tag{Dashboard, Upload, ModelRun, VirtualLab, Datasets, DigitalTwin, Query, Alerts}

var aliases = map[string]Tag{
	"plm":  ModelRun,
	"lab":  VirtualLab,
	"twin": DigitalTwin,
}

var labels = map[Tag]string{
	Dashboard:   "Dashboard",
	Upload:      "Cargar Datos",
	ModelRun:    "Ejecutar Modelos",
	VirtualLab:  "Laboratorio Virtual",
	Datasets:    "Gestión de Datasets",
	DigitalTwin: "Gemelo Digital",
	Query:       "Consultas y Reportes",
	Alerts:      "Alertas y Notificaciones",
}

// All returns the tags in sidebar order.
func All() []Tag {
	out := make([]Tag, len(all))
	copy(out, all)
	return out
}

// Parse resolves a canonical tag or one of the short aliases.
func Parse(s string) (Tag, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if t, ok := aliases[s]; ok {
		return t, nil
	}
	for _, t := range all {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// Label is the sidebar caption.
func (t Tag) Label() string {
	return labels[t]
}

// Panel loads the view model of one tag.
type Panel interface {
	Tag() Tag
	Load(ctx context.Context, token string) any
}

// Rendered is the outcome of one panel mount.
type Rendered struct {
	Tag   Tag
	Seq   uint64
	Model any
}

// Router keeps exactly one active tag and mounts its panel on demand.
// Every Select starts a new mount; results of older mounts are stale.
type Router struct {
	mu     sync.Mutex
	active Tag
	seq    uint64
	panels map[Tag]Panel
}

// NewRouter registers panels by their tag. The active view starts at Dashboard.
func NewRouter(panels ...Panel) *Router {
	r := &Router{active: Dashboard, panels: make(map[Tag]Panel, len(panels))}
	for _, p := range panels {
		r.panels[p.Tag()] = p
	}
	return r
}

// Select makes tag the active view. Unknown tags leave the active view unchanged.
func (r *Router) Select(tag Tag) error {
	if _, err := Parse(string(tag)); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.panels[tag]; !ok {
		return fmt.Errorf("%w: %s", ErrNoPanel, tag)
	}
	r.active = tag
	r.seq++
	return nil
}

// Active returns the current tag.
func (r *Router) Active() Tag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Seq returns the number of the current mount.
func (r *Router) Seq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// IsCurrent reports whether a render with seq still belongs to the active mount.
func (r *Router) IsCurrent(seq uint64) bool {
	return r.Seq() == seq
}

// Render loads the active panel with the token passed through unchanged.
func (r *Router) Render(ctx context.Context, token string) (Rendered, error) {
	r.mu.Lock()
	tag, seq := r.active, r.seq
	p, ok := r.panels[tag]
	r.mu.Unlock()
	if !ok {
		return Rendered{Tag: tag, Seq: seq}, fmt.Errorf("%w: %s", ErrNoPanel, tag)
	}
	return Rendered{Tag: tag, Seq: seq, Model: p.Load(ctx, token)}, nil
}
