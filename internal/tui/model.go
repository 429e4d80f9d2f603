// Package tui is the terminal front-end of the dashboard. It drives the
// same session controller, view router and panels as the web server from
// a single bubbletea event loop.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"protein-analysis-ui/internal/connectors/backend"
	"protein-analysis-ui/internal/panels"
	"protein-analysis-ui/internal/session"
	"protein-analysis-ui/internal/view"
)

// Options are the collaborators of the terminal dashboard.
type Options struct {
	Session     *session.Controller
	Backend     *backend.Client
	Panels      *panels.Set
	Log         logrus.FieldLogger
	DownloadDir string
}

type screen int

const (
	screenChecking screen = iota
	screenLogin
	screenMain
)

const sidebarWidth = 30

// Login form fields.
const (
	fieldEmail = iota
	fieldPassword
	fieldConfirm
)

type startedMsg struct{ state session.State }

type loginMsg struct {
	res    *panels.LoginResult
	notice panels.Notice
}

type mountedMsg struct {
	r   view.Rendered
	err error
}

type badgeMsg struct {
	n  int
	ok bool
}

type loggedOutMsg struct{}

// Model is the root bubbletea model.
type Model struct {
	opts   Options
	log    logrus.FieldLogger
	router *view.Router
	keys   KeyMap

	screen   screen
	width    int
	height   int
	ready    bool
	showHelp bool

	spinner spinner.Model

	// Login form
	inputs    []textinput.Model
	focus     int
	register  bool
	loggingIn bool

	// Main view
	user     session.UserProfile
	token    string
	cursor   int
	loading  bool
	busy     bool
	panel    any
	viewport viewport.Model
	command  textinput.Model
	typing   bool
	badge    int
	badgeOK  bool

	notice panels.Notice
}

// NewModel returns the dashboard in the checking state.
func NewModel(opts Options) Model {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	email := textinput.New()
	email.Placeholder = "correo@ejemplo.com"
	email.Prompt = "Email:      "
	email.PromptStyle = InputPromptStyle
	email.CharLimit = 254
	email.Width = 40
	email.Focus()

	password := textinput.New()
	password.Prompt = "Contraseña: "
	password.PromptStyle = InputPromptStyle
	password.EchoMode = textinput.EchoPassword
	password.Width = 40

	confirm := textinput.New()
	confirm.Prompt = "Confirmar:  "
	confirm.PromptStyle = InputPromptStyle
	confirm.EchoMode = textinput.EchoPassword
	confirm.Width = 40

	cmd := textinput.New()
	cmd.Placeholder = "help"
	cmd.Prompt = "/"
	cmd.PromptStyle = InputPromptStyle
	cmd.Width = 80

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = InfoStyle

	return Model{
		opts:     opts,
		log:      opts.Log.WithField("component", "tui"),
		router:   view.NewRouter(opts.Panels.Panels()...),
		keys:     DefaultKeyMap(),
		screen:   screenChecking,
		spinner:  sp,
		inputs:   []textinput.Model{email, password, confirm},
		viewport: viewport.New(80, 20),
		command:  cmd,
	}
}

// Init validates the persisted session.
func (m Model) Init() tea.Cmd {
	ctl := m.opts.Session
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg { return startedMsg{state: ctl.Start(context.Background())} },
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case startedMsg:
		if !msg.state.Authenticated {
			m.screen = screenLogin
			return m, textinput.Blink
		}
		return m.enter(msg.state)

	case loginMsg:
		m.loggingIn = false
		m.notice = msg.notice
		if msg.res == nil {
			return m, nil
		}
		if err := m.opts.Session.Login(context.Background(), msg.res.Token, msg.res.User); err != nil {
			m.notice = panels.Notice{Kind: panels.NoticeError, Message: "No se pudo guardar la sesión", Description: err.Error()}
		}
		return m.enter(m.opts.Session.State())

	case mountedMsg:
		if !m.router.IsCurrent(msg.r.Seq) {
			m.log.WithFields(logrus.Fields{"tag": msg.r.Tag, "seq": msg.r.Seq}).Debug("dropping stale panel load")
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.notice = panels.Notice{Kind: panels.NoticeError, Message: msg.err.Error()}
			return m, nil
		}
		m.setPanel(msg.r.Model)
		return m, nil

	case actionMsg:
		m.busy = false
		m.notice = msg.notice
		if msg.tag == m.router.Active() && m.router.IsCurrent(msg.seq) {
			m.setPanel(msg.model)
		}
		return m, m.badgeCmd()

	case downloadMsg:
		m.notice = msg.notice
		return m, nil

	case badgeMsg:
		m.badge, m.badgeOK = msg.n, msg.ok
		return m, nil

	case loggedOutMsg:
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Interrupt) {
			return m, tea.Quit
		}
		switch m.screen {
		case screenLogin:
			return m.updateLogin(msg)
		case screenMain:
			return m.updateMain(msg)
		}
	}
	return m, nil
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Register):
		m.register = !m.register
		m.notice = panels.Notice{}
		m.focusField(fieldEmail)
		return m, nil
	case key.Matches(msg, m.keys.NextField):
		n := m.fieldCount()
		if msg.String() == "shift+tab" {
			m.focusField((m.focus + n - 1) % n)
		} else {
			m.focusField((m.focus + 1) % n)
		}
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		if m.loggingIn {
			return m, nil
		}
		m.loggingIn = true
		m.notice = panels.Notice{}
		form := panels.LoginForm{
			Email:    m.inputs[fieldEmail].Value(),
			Password: m.inputs[fieldPassword].Value(),
			Confirm:  m.inputs[fieldConfirm].Value(),
			Register: m.register,
		}
		client, log := m.opts.Backend, m.log
		return m, func() tea.Msg {
			res, notice := panels.Login(context.Background(), client, log, form)
			return loginMsg{res: res, notice: notice}
		}
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		if key.Matches(msg, m.keys.Escape, m.keys.Help, m.keys.Quit) {
			m.showHelp = false
		}
		return m, nil
	}

	if m.typing {
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.typing = false
			m.command.Blur()
			return m, nil
		case key.Matches(msg, m.keys.Submit):
			line := m.command.Value()
			m.command.Reset()
			m.command.Blur()
			m.typing = false
			return m.runCommand(line)
		}
		var cmd tea.Cmd
		m.command, cmd = m.command.Update(msg)
		return m, cmd
	}

	tags := view.All()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.Up):
		m.cursor = (m.cursor + len(tags) - 1) % len(tags)
	case key.Matches(msg, m.keys.Down):
		m.cursor = (m.cursor + 1) % len(tags)
	case key.Matches(msg, m.keys.Select):
		return m.open(tags[m.cursor])
	case key.Matches(msg, m.keys.NextView):
		m.cursor = (indexOf(tags, m.router.Active()) + 1) % len(tags)
		return m.open(tags[m.cursor])
	case key.Matches(msg, m.keys.Refresh):
		return m.open(m.router.Active())
	case key.Matches(msg, m.keys.Command):
		m.typing = true
		m.command.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Logout):
		return m.logout()
	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	default:
		if n := msg.String(); len(n) == 1 && n[0] >= '1' && n[0] <= '8' {
			m.cursor = int(n[0] - '1')
			return m.open(tags[m.cursor])
		}
	}
	return m, nil
}

// enter switches to the main screen with an authenticated state and mounts
// the active view.
func (m Model) enter(s session.State) (Model, tea.Cmd) {
	m.screen = screenMain
	m.token = s.Token
	if s.User != nil {
		m.user = *s.User
	}
	for i := range m.inputs {
		m.inputs[i].Reset()
	}
	m, mount := m.open(m.router.Active())
	return m, tea.Batch(mount, m.badgeCmd())
}

// open selects tag and loads its panel. Loads of earlier selections are
// dropped when they arrive.
func (m Model) open(tag view.Tag) (Model, tea.Cmd) {
	if err := m.router.Select(tag); err != nil {
		m.notice = panels.Notice{Kind: panels.NoticeError, Message: err.Error()}
		return m, nil
	}
	m.cursor = indexOf(view.All(), tag)
	m.loading = true
	m.panel = nil
	m.viewport.SetContent(renderPanel(nil))

	router, token := m.router, m.token
	ctx := panels.WithActor(context.Background(), m.user.Email)
	return m, func() tea.Msg {
		r, err := router.Render(ctx, token)
		return mountedMsg{r: r, err: err}
	}
}

func (m Model) logout() (Model, tea.Cmd) {
	ctl := m.opts.Session
	if err := ctl.Logout(context.Background()); err != nil {
		m.log.WithError(err).Warn("logout did not clear the stored session")
	}
	m.screen = screenLogin
	m.token = ""
	m.user = session.UserProfile{}
	m.panel = nil
	m.badge, m.badgeOK = 0, false
	m.typing = false
	m.register = false
	m.notice = panels.Notice{Kind: panels.NoticeInfo, Message: "Sesión cerrada"}
	m.focusField(fieldEmail)
	return m, func() tea.Msg { return loggedOutMsg{} }
}

func (m Model) badgeCmd() tea.Cmd {
	if m.token == "" {
		return nil
	}
	set, token := m.opts.Panels, m.token
	return func() tea.Msg {
		n, ok := set.UnresolvedAlerts(context.Background(), token)
		return badgeMsg{n: n, ok: ok}
	}
}

func (m Model) caller() panels.Caller {
	return panels.Caller{Token: m.token, Actor: m.user.Email}
}

func (m *Model) setPanel(model any) {
	m.panel = model
	m.viewport.SetContent(renderPanel(model))
	m.viewport.GotoTop()
}

func (m *Model) focusField(i int) {
	m.focus = i
	for j := range m.inputs {
		if j == i {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
}

func (m Model) fieldCount() int {
	if m.register {
		return 3
	}
	return 2
}

func (m *Model) resize() {
	w := m.width - sidebarWidth - 6
	if w < 20 {
		w = 20
	}
	h := m.height - 10
	if h < 3 {
		h = 3
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.command.Width = m.width - 8
	m.viewport.SetContent(renderPanel(m.panel))
}

// View renders the UI.
func (m Model) View() string {
	switch m.screen {
	case screenChecking:
		return "\n  " + m.spinner.View() + " Verificando sesión...\n"
	case screenLogin:
		return m.loginView()
	}
	if !m.ready {
		return "Cargando..."
	}
	if m.showHelp {
		return m.helpView()
	}
	return m.mainView()
}

func (m Model) loginView() string {
	title := "Iniciar sesión"
	if m.register {
		title = "Crear cuenta"
	}
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("Plataforma de Análisis de Proteínas") + "\n")
	b.WriteString(SubtitleStyle.Render(title) + "\n\n")
	for i := 0; i < m.fieldCount(); i++ {
		b.WriteString(m.inputs[i].View() + "\n")
	}
	b.WriteString("\n")
	if m.loggingIn {
		b.WriteString(m.spinner.View() + " Conectando...\n")
	}
	if n := renderNotice(m.notice); n != "" {
		b.WriteString(n + "\n")
	}
	b.WriteString(DimStyle.Render("enter enviar │ tab campo │ ctrl+r iniciar sesión/registro │ ctrl+c salir"))

	box := LoginBoxStyle.Render(b.String())
	if m.width == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) mainView() string {
	header := HeaderStyle.Render("Plataforma de Análisis de Proteínas") + "  " +
		SubtitleStyle.Render(m.user.DisplayName())
	bodyHeight := m.height - 6

	sidebar := m.renderSidebar(bodyHeight)
	panel := m.renderPanelBox(m.width-sidebarWidth-4, bodyHeight)
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, panel)

	input := InputStyle.Width(m.width - 4).Render(m.command.View())
	if !m.typing {
		input = InputStyle.Width(m.width - 4).Render(DimStyle.Render("/ para escribir un comando"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, input, m.renderStatusBar())
}

func (m Model) renderSidebar(height int) string {
	var b strings.Builder
	b.WriteString(SidebarTitleStyle.Render("VISTAS") + "\n\n")
	active := m.router.Active()
	for i, t := range view.All() {
		label := fmt.Sprintf("%d %s", i+1, t.Label())
		style := NavItemStyle
		prefix := "  "
		if t == active {
			style = NavActiveStyle
		}
		if i == m.cursor {
			prefix = NavCursorStyle.Render("❯ ")
		}
		line := prefix + style.Render(truncate(label, sidebarWidth-8))
		if t == view.Alerts && m.badgeOK && m.badge > 0 {
			line += " " + BadgeStyle.Render(fmt.Sprint(m.badge))
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + DimStyle.Render(m.user.Email))
	if m.user.Role != "" {
		b.WriteString("\n" + DimStyle.Render(m.user.Role))
	}
	return SidebarStyle.Width(sidebarWidth).Height(height).Render(b.String())
}

func (m Model) renderPanelBox(width, height int) string {
	title := PanelTitleStyle.Render(m.router.Active().Label())
	if m.loading || m.busy {
		title += " " + m.spinner.View()
	}
	content := title + "\n" + m.viewport.View()
	return PanelStyle.Width(width).Height(height).Render(content)
}

func (m Model) renderStatusBar() string {
	if n := renderNotice(m.notice); n != "" {
		return StatusBarStyle.Render(n)
	}
	var parts []string
	for _, k := range m.keys.ShortHelp() {
		h := k.Help()
		parts = append(parts, HelpKeyStyle.Render(h.Key)+" "+h.Desc)
	}
	return StatusBarStyle.Render(strings.Join(parts, " │ "))
}

func (m Model) helpView() string {
	var b strings.Builder
	b.WriteString(PanelTitleStyle.Render("Atajos") + "\n\n")
	for _, group := range m.keys.FullHelp() {
		for _, k := range group {
			h := k.Help()
			b.WriteString(fmt.Sprintf("%-10s %s\n", HelpKeyStyle.Render(h.Key), h.Desc))
		}
	}
	b.WriteString("\n" + PanelTitleStyle.Render("Comandos") + "\n\n")
	for _, c := range commandHelp {
		b.WriteString(fmt.Sprintf("%-32s %s\n", HelpKeyStyle.Render(c.cmd), c.desc))
	}
	b.WriteString("\n" + DimStyle.Render("? o esc para cerrar"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, HelpStyle.Render(b.String()))
}

func renderNotice(n panels.Notice) string {
	if n.IsZero() {
		return ""
	}
	text := n.Message
	if n.Description != "" {
		text += ": " + n.Description
	}
	switch n.Kind {
	case panels.NoticeError:
		return ErrorStyle.Render("✗ " + text)
	case panels.NoticeSuccess:
		return SuccessStyle.Render("✓ " + text)
	default:
		return InfoStyle.Render("● " + text)
	}
}

func indexOf(tags []view.Tag, t view.Tag) int {
	for i, x := range tags {
		if x == t {
			return i
		}
	}
	return 0
}
