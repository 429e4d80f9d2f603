package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"protein-analysis-ui/internal/connectors/backend"
	"protein-analysis-ui/internal/panels"
	"protein-analysis-ui/internal/reports"
	"protein-analysis-ui/internal/view"
)

// actionMsg carries the outcome of a panel action started from the command line.
type actionMsg struct {
	tag    view.Tag
	seq    uint64
	model  any
	notice panels.Notice
}

// downloadMsg reports a file written to the download directory.
type downloadMsg struct {
	notice panels.Notice
}

var commandHelp = []struct {
	cmd  string
	desc string
}{
	{"/view <vista>", "Abrir una vista"},
	{"/upload <nombre> <secuencia>", "Cargar una secuencia"},
	{"/plm <secuencia> [modelo]", "Ejecutar un modelo PLM"},
	{"/lab <secuencia>", "Simulación del laboratorio virtual"},
	{"/twin <secuencia>", "Simulación del gemelo digital"},
	{"/search <texto>", "Buscar"},
	{"/save <nombre> <texto>", "Guardar una consulta"},
	{"/saved <id>", "Ejecutar una consulta guardada"},
	{"/alert <prioridad> <mensaje>", "Crear una alerta"},
	{"/resolve <id>", "Resolver una alerta"},
	{"/summary", "Resumen de experimentos"},
	{"/report <tipo> <secuencia>", "Descargar un reporte PDF"},
	{"/export <id> [formato]", "Descargar un experimento"},
	{"/informe <tipo> [formato]", "Descargar un informe"},
	{"/docs", "Descargar la documentación"},
	{"/logout", "Cerrar sesión"},
}

// runCommand parses one command line. Panel actions run as tea.Cmds on
// behalf of the signed-in user.
func (m Model) runCommand(line string) (Model, tea.Cmd) {
	line = strings.TrimPrefix(strings.TrimSpace(line), "/")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return m, nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	rest := func(from int) string {
		if len(args) <= from {
			return ""
		}
		return strings.Join(args[from:], " ")
	}
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}
	set := m.opts.Panels

	switch name {
	case "view", "v":
		tag, err := view.Parse(arg(0))
		if err != nil {
			m.notice = panels.Notice{Kind: panels.NoticeError, Message: "Vista desconocida: " + arg(0)}
			return m, nil
		}
		return m.open(tag)
	case "upload":
		return m.act(view.Upload, func(ctx context.Context, c panels.Caller) (any, panels.Notice) {
			return set.Upload.UploadText(ctx, c, arg(0), "", rest(1))
		})
	case "plm":
		return m.act(view.ModelRun, func(ctx context.Context, c panels.Caller) (any, panels.Notice) {
			return set.ModelRun.Run(ctx, c, arg(0), arg(1))
		})
	case "lab":
		return m.act(view.VirtualLab, func(ctx context.Context, c panels.Caller) (any, panels.Notice) {
			return set.VirtualLab.Run(ctx, c, arg(0))
		})
	case "twin":
		return m.act(view.DigitalTwin, func(ctx context.Context, c panels.Caller) (any, panels.Notice) {
			return set.DigitalTwin.Run(ctx, c, arg(0))
		})
	case "search":
		return m.act(view.Query, func(ctx context.Context, c panels.Caller) (any, panels.Notice) {
			return set.Query.Search(ctx, c, rest(0), "all")
		})
	case "save":
		return m.act(view.Query, func(ctx context.Context, c panels.Caller) (any, panels.Notice) {
			return set.Query.SaveQuery(ctx, c, arg(0), rest(1), "all")
		})
	case "saved":
		return m.act(view.Query, func(ctx context.Context, c panels.Caller) (any, panels.Notice) {
			return set.Query.RunSaved(ctx, c, arg(0))
		})
	case "alert":
		return m.act(view.Alerts, func(ctx context.Context, c panels.Caller) (any, panels.Notice) {
			return set.Alerts.Create(ctx, c, "info", rest(1), arg(0))
		})
	case "resolve":
		return m.act(view.Alerts, func(ctx context.Context, c panels.Caller) (any, panels.Notice) {
			return set.Alerts.Resolve(ctx, c, arg(0))
		})
	case "summary":
		return m.act(view.Alerts, func(ctx context.Context, c panels.Caller) (any, panels.Notice) {
			return set.Alerts.Summary(ctx, c)
		})
	case "report":
		return m, m.download(func(ctx context.Context, c panels.Caller) (*reports.File, error) {
			return set.Downloads.Report(ctx, c, arg(0), arg(1))
		})
	case "export":
		return m, m.download(func(ctx context.Context, c panels.Caller) (*reports.File, error) {
			return set.Downloads.Experiment(ctx, c, arg(0), arg(1))
		})
	case "informe":
		return m, m.download(func(ctx context.Context, c panels.Caller) (*reports.File, error) {
			return set.Downloads.Informe(ctx, c, arg(0), arg(1))
		})
	case "docs":
		return m, m.download(func(ctx context.Context, c panels.Caller) (*reports.File, error) {
			return set.Downloads.Documentation(ctx, c)
		})
	case "logout":
		return m.logout()
	case "help":
		m.showHelp = true
		return m, nil
	}
	m.notice = panels.Notice{Kind: panels.NoticeError, Message: "Comando desconocido: " + name}
	return m, nil
}

// act switches to tag and runs fn there. The resulting model is shown only
// if the user is still on that mount when it arrives.
func (m Model) act(tag view.Tag, fn func(context.Context, panels.Caller) (any, panels.Notice)) (Model, tea.Cmd) {
	var mount tea.Cmd
	if m.router.Active() != tag {
		m, mount = m.open(tag)
	}
	seq := m.router.Seq()
	c := m.caller()
	m.busy = true
	return m, tea.Batch(mount, func() tea.Msg {
		model, notice := fn(panels.WithActor(context.Background(), c.Actor), c)
		return actionMsg{tag: tag, seq: seq, model: model, notice: notice}
	})
}

func (m Model) download(fn func(context.Context, panels.Caller) (*reports.File, error)) tea.Cmd {
	c := m.caller()
	dir := m.opts.DownloadDir
	return func() tea.Msg {
		f, err := fn(context.Background(), c)
		if err != nil {
			return downloadMsg{notice: panels.Notice{Kind: panels.NoticeError, Message: downloadMessage(err)}}
		}
		path, err := saveFile(dir, f)
		if err != nil {
			return downloadMsg{notice: panels.Notice{Kind: panels.NoticeError, Message: "No se pudo guardar el archivo", Description: err.Error()}}
		}
		desc := path
		if f.Pages > 0 {
			desc = fmt.Sprintf("%s (%d páginas)", path, f.Pages)
		}
		return downloadMsg{notice: panels.Notice{Kind: panels.NoticeSuccess, Message: "Archivo descargado", Description: desc}}
	}
}

func downloadMessage(err error) string {
	if errors.Is(err, reports.ErrNotPDF) {
		return "El backend devolvió un PDF no válido"
	}
	return backend.Detail(err, "Error al descargar el archivo")
}

// saveFile writes f under dir using the base of its suggested name.
func saveFile(dir string, f *reports.File) (string, error) {
	if dir == "" {
		dir = "."
	}
	name := filepath.Base(f.Name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "descarga"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, f.Body, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
