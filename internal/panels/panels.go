// Package panels loads and drives the eight dashboard views. Every panel
// fetches its resources fresh on mount and keeps nothing between mounts.
package panels

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"protein-analysis-ui/internal/connectors/archive"
	"protein-analysis-ui/internal/connectors/backend"
	"protein-analysis-ui/internal/connectors/workspace"
	"protein-analysis-ui/internal/view"
)

// State is the presentational state of a mounted panel.
type State string

const (
	StateLoading   State = "loading"
	StateEmpty     State = "empty"
	StateError     State = "error"
	StatePopulated State = "populated"
)

// NoticeKind selects the toast style.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notice is the transient message shown after an action.
type Notice struct {
	Kind        NoticeKind `json:"kind"`
	Message     string     `json:"message"`
	Description string     `json:"description,omitempty"`
}

func (n Notice) IsZero() bool { return n.Message == "" }

func success(msg, desc string) Notice { return Notice{Kind: NoticeSuccess, Message: msg, Description: desc} }
func failure(msg string) Notice       { return Notice{Kind: NoticeError, Message: msg} }
func info(msg string) Notice          { return Notice{Kind: NoticeInfo, Message: msg} }

// Caller identifies who triggers an action. Actor is the user's email and
// is only used for the activity log and owner-scoped data.
type Caller struct {
	Token string
	Actor string
}

type actorKey struct{}

// WithActor attaches the signed-in user's email to ctx for panels whose
// mount shows owner-scoped data.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

// Deps are the collaborators shared by every panel. Workspace and Archive
// may be nil when disabled.
type Deps struct {
	Backend     *backend.Client
	Workspace   *workspace.Store
	Archive     *archive.Archive
	Log         logrus.FieldLogger
	RecentLimit int
}

// Set holds one instance of every panel.
type Set struct {
	Dashboard   *DashboardPanel
	Upload      *UploadPanel
	ModelRun    *ModelRunPanel
	VirtualLab  *VirtualLabPanel
	Datasets    *DatasetsPanel
	DigitalTwin *DigitalTwinPanel
	Query       *QueryPanel
	Alerts      *AlertsPanel
	Downloads   *Downloads
}

func NewSet(d Deps) *Set {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.RecentLimit <= 0 {
		d.RecentLimit = 5
	}
	return &Set{
		Dashboard:   &DashboardPanel{base: newBase(d, view.Dashboard)},
		Upload:      &UploadPanel{base: newBase(d, view.Upload)},
		ModelRun:    &ModelRunPanel{base: newBase(d, view.ModelRun)},
		VirtualLab:  &VirtualLabPanel{base: newBase(d, view.VirtualLab)},
		Datasets:    &DatasetsPanel{base: newBase(d, view.Datasets)},
		DigitalTwin: &DigitalTwinPanel{base: newBase(d, view.DigitalTwin)},
		Query:       &QueryPanel{base: newBase(d, view.Query)},
		Alerts:      &AlertsPanel{base: newBase(d, view.Alerts)},
		Downloads:   &Downloads{base: newBase(d, "downloads")},
	}
}

// Panels returns the panels in sidebar order for a view.Router.
func (s *Set) Panels() []view.Panel {
	return []view.Panel{s.Dashboard, s.Upload, s.ModelRun, s.VirtualLab, s.Datasets, s.DigitalTwin, s.Query, s.Alerts}
}

// UnresolvedAlerts counts open alerts for the sidebar badge. ok is false
// when the backend could not be reached.
func (s *Set) UnresolvedAlerts(ctx context.Context, token string) (n int, ok bool) {
	alerts, err := s.Alerts.deps.Backend.ListAlerts(ctx, token)
	if err != nil {
		s.Alerts.log.WithError(err).Debug("alert badge unavailable")
		return 0, false
	}
	for _, a := range alerts {
		if !a.Resolved {
			n++
		}
	}
	return n, true
}

type base struct {
	deps Deps
	tag  view.Tag
	log  logrus.FieldLogger
}

func newBase(d Deps, tag view.Tag) base {
	return base{deps: d, tag: tag, log: d.Log.WithField("panel", string(tag))}
}

func (b base) Tag() view.Tag { return b.tag }

// fail logs err and turns it into an error notice, preferring the
// backend's own message.
func (b base) fail(action string, err error, fallback string) Notice {
	b.log.WithFields(logrus.Fields{"action": action, "error": err}).Warn("panel action failed")
	return failure(backend.Detail(err, fallback))
}

// loadFailed logs a mount error and returns the message for the error state.
func (b base) loadFailed(resource string, err error, fallback string) string {
	b.log.WithFields(logrus.Fields{"action": "load", "resource": resource, "error": err}).Warn("panel load failed")
	return backend.Detail(err, fallback)
}

// record appends to the activity log. Failures are logged only.
func (b base) record(ctx context.Context, c Caller, action, detail string) {
	if !b.deps.Workspace.Enabled() {
		return
	}
	err := b.deps.Workspace.RecordActivity(ctx, workspace.Activity{
		Actor:  c.Actor,
		Panel:  string(b.tag),
		Action: action,
		Detail: detail,
	})
	if err != nil {
		b.log.WithError(err).WithField("action", action).Warn("could not record activity")
	}
}

// listSequences is the mount request shared by most panels.
func (b base) listSequences(ctx context.Context, token string) ([]backend.Sequence, string) {
	seqs, err := b.deps.Backend.ListSequences(ctx, token)
	if err != nil {
		return nil, b.loadFailed("sequences", err, "Error al cargar secuencias")
	}
	return seqs, ""
}

// sequenceState maps a sequence list to empty or populated.
func sequenceState(seqs []backend.Sequence, errMsg string) State {
	switch {
	case errMsg != "":
		return StateError
	case len(seqs) == 0:
		return StateEmpty
	default:
		return StatePopulated
	}
}

// sequenceRef resolves the form's selection to the backend's idx_or_id.
// An empty selection picks the first sequence.
func sequenceRef(sel string) string {
	if sel = strings.TrimSpace(sel); sel == "" {
		return "0"
	}
	return sel
}

// sequenceName resolves ref the way the backend does: a position first,
// then an id.
func sequenceName(seqs []backend.Sequence, ref string) string {
	if i, err := strconv.Atoi(ref); err == nil && i >= 0 && i < len(seqs) {
		return seqs[i].Name
	}
	for _, s := range seqs {
		if s.ID.String() == ref {
			return s.Name
		}
	}
	return "Desconocida"
}
