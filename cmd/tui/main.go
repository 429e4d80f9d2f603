package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"protein-analysis-ui/internal/config"
	"protein-analysis-ui/internal/connectors/archive"
	"protein-analysis-ui/internal/connectors/backend"
	"protein-analysis-ui/internal/connectors/workspace"
	"protein-analysis-ui/internal/logging"
	"protein-analysis-ui/internal/panels"
	"protein-analysis-ui/internal/session"
	"protein-analysis-ui/internal/tui"
)

func main() {
	app := &cli.App{
		Name:  "protein-ui-tui",
		Usage: "Protein analysis dashboard in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "profile",
				Usage: "session profile kept in the archive (overrides APP_TUI_PROFILE)",
			},
			&cli.StringFlag{
				Name:  "download-dir",
				Value: ".",
				Usage: "directory for downloaded reports",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := config.FromEnv()
	if p := c.String("profile"); p != "" {
		cfg.TUIProfile = p
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The terminal is owned by bubbletea, so logs only go to a file.
	log := logging.Discard()
	if cfg.TUILogFile != "" {
		f, err := os.OpenFile(cfg.TUILogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		log = logging.New(cfg.LogLevel, cfg.LogFormat, f)
	}

	var store *workspace.Store
	if cfg.StoreEnabled {
		var err error
		if store, err = workspace.Open(cfg); err != nil {
			log.WithError(err).Warn("workspace store unavailable")
		}
		defer store.Close()
	}

	var sessions session.Store = session.NewMemoryStore(nil)
	var arch *archive.Archive
	if cfg.ArchiveEnabled {
		var err error
		if arch, err = archive.Open(cfg.ArchivePath, cfg.ArchiveTTL); err != nil {
			log.WithError(err).Warn("report archive unavailable, session will not be kept")
		} else {
			sessions = arch.SessionStore(cfg.TUIProfile)
		}
		defer arch.Close()
	}

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, backend.WithMaxDownloadBytes(cfg.MaxDownloadBytes))
	log.WithFields(logrus.Fields{"backend": cfg.BackendURL, "profile": cfg.TUIProfile}).Info("starting terminal dashboard")

	m := tui.NewModel(tui.Options{
		Session: session.NewController(sessions, client, log),
		Backend: client,
		Panels: panels.NewSet(panels.Deps{
			Backend:     client,
			Workspace:   store,
			Archive:     arch,
			Log:         log,
			RecentLimit: cfg.RecentLimit,
		}),
		Log:         log,
		DownloadDir: c.String("download-dir"),
	})

	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
