package panels

import (
	"context"
	"fmt"
	"strings"

	"protein-analysis-ui/internal/connectors/backend"
)

// AlertTypes and AlertPriorities back the create form.
var (
	AlertTypes      = []string{"info", "warning", "error"}
	AlertPriorities = []string{"baja", "media", "alta"}
)

type AlertCounts struct {
	Active   int `json:"active"`
	Critical int `json:"critical"`
	Resolved int `json:"resolved"`
}

type AlertsModel struct {
	State      State           `json:"state"`
	Error      string          `json:"error,omitempty"`
	Alerts     []backend.Alert `json:"alerts"`
	Counts     AlertCounts     `json:"counts"`
	Types      []string        `json:"types"`
	Priorities []string        `json:"priorities"`
}

type AlertsPanel struct{ base }

func (p *AlertsPanel) Load(ctx context.Context, token string) any { return p.Mount(ctx, token) }

func (p *AlertsPanel) Mount(ctx context.Context, token string) AlertsModel {
	m := AlertsModel{State: StateLoading, Types: AlertTypes, Priorities: AlertPriorities}
	alerts, err := p.deps.Backend.ListAlerts(ctx, token)
	if err != nil {
		m.State, m.Error = StateError, p.loadFailed("alerts", err, "Error cargando alertas")
		return m
	}
	m.Alerts, m.Counts = alerts, CountAlerts(alerts)
	if len(alerts) == 0 {
		m.State = StateEmpty
	} else {
		m.State = StatePopulated
	}
	return m
}

// CountAlerts splits alerts into active, critical (active with high
// priority) and resolved.
func CountAlerts(alerts []backend.Alert) AlertCounts {
	var c AlertCounts
	for _, a := range alerts {
		if a.Resolved {
			c.Resolved++
			continue
		}
		c.Active++
		if IsCritical(a) {
			c.Critical++
		}
	}
	return c
}

func IsCritical(a backend.Alert) bool {
	switch strings.ToLower(a.Priority) {
	case "alta", "high":
		return true
	}
	return false
}

// Create registers a manual alert on behalf of the caller.
func (p *AlertsPanel) Create(ctx context.Context, c Caller, tipo, message, priority string) (AlertsModel, Notice) {
	message = strings.TrimSpace(message)
	if message == "" {
		return p.Mount(ctx, c.Token), failure("El mensaje de la alerta es obligatorio")
	}
	if tipo = strings.TrimSpace(tipo); tipo == "" {
		tipo = "info"
	}
	if priority = strings.TrimSpace(priority); priority == "" {
		priority = "media"
	}
	_, err := p.deps.Backend.CreateAlert(ctx, c.Token, backend.NewAlert{User: c.Actor, Type: tipo, Message: message, Priority: priority})
	if err != nil {
		return p.Mount(ctx, c.Token), p.fail("create", err, "Error creando alerta")
	}
	p.record(ctx, c, "crear_alerta", message)
	return p.Mount(ctx, c.Token), success("Nueva alerta creada", "")
}

func (p *AlertsPanel) Resolve(ctx context.Context, c Caller, id string) (AlertsModel, Notice) {
	if err := p.deps.Backend.ResolveAlert(ctx, c.Token, id); err != nil {
		return p.Mount(ctx, c.Token), p.fail("resolve", err, "Error resolviendo alerta")
	}
	p.record(ctx, c, "resolver_alerta", id)
	return p.Mount(ctx, c.Token), success("Alerta marcada como resuelta", "")
}

// Summary reports the experiment and sequence totals.
func (p *AlertsPanel) Summary(ctx context.Context, c Caller) (AlertsModel, Notice) {
	m := p.Mount(ctx, c.Token)
	sum, err := p.deps.Backend.ComparativeReports(ctx, c.Token)
	if err != nil {
		return m, p.fail("summary", err, "Error generando reporte")
	}
	return m, success(fmt.Sprintf("Reporte generado: %d experimentos, %d secuencias", sum.TotalExperiments, sum.TotalSequences), "")
}
