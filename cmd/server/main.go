package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"protein-analysis-ui/internal/config"
	"protein-analysis-ui/internal/connectors/archive"
	"protein-analysis-ui/internal/connectors/backend"
	"protein-analysis-ui/internal/connectors/workspace"
	httpapi "protein-analysis-ui/internal/http"
	"protein-analysis-ui/internal/logging"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:   "protein-ui",
		Usage:  "Protein analysis dashboard server",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"s"},
				Usage:   "Start the web dashboard",
				Action:  serve,
			},
			{
				Name:   "check",
				Usage:  "Probe the backend and local stores and print their status",
				Action: check,
			},
			{
				Name:  "version",
				Usage: "Print the build version",
				Action: func(*cli.Context) error {
					fmt.Println(version)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func loadConfig(out io.Writer) (config.Config, *logrus.Logger, error) {
	cfg := config.FromEnv()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, out)
	if err := cfg.Validate(); err != nil {
		return cfg, log, err
	}
	return cfg, log, nil
}

func serve(*cli.Context) error {
	cfg, log, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}
	srv, err := httpapi.NewServer(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"version": version, "addr": cfg.ListenAddr, "backend": cfg.BackendURL}).Info("starting dashboard server")
		errCh <- srv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case err := <-errCh:
		if err != nil {
			_ = srv.Shutdown(context.Background())
		}
		return err
	case s := <-sig:
		log.WithField("signal", s.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// check prints the status as JSON on stdout; logs go to stderr.
func check(*cli.Context) error {
	cfg, log, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}

	openErrs := map[string]error{}
	var store *workspace.Store
	if cfg.StoreEnabled {
		if store, err = workspace.Open(cfg); err != nil {
			log.WithError(err).Warn("workspace store unavailable")
			openErrs["workspace"] = err
		}
		defer store.Close()
	}
	var arch *archive.Archive
	if cfg.ArchiveEnabled {
		if arch, err = archive.Open(cfg.ArchivePath, cfg.ArchiveTTL); err != nil {
			log.WithError(err).Warn("report archive unavailable")
			openErrs["archive"] = err
		}
		defer arch.Close()
	}
	client := backend.NewClient(cfg.BackendURL, cfg.StatusProbeTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StatusProbeTimeout+2*time.Second)
	defer cancel()
	status := httpapi.ServiceStatus(ctx, client, store, arch)
	for name, err := range openErrs {
		status[name] = map[string]any{"enabled": true, "ok": false, "error": err.Error()}
	}

	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	for name, v := range status {
		s, _ := v.(map[string]any)
		if ok, _ := s["ok"].(bool); !ok {
			if enabled, _ := s["enabled"].(bool); enabled || name == "backend" {
				return cli.Exit(name+" is not healthy", 1)
			}
		}
	}
	return nil
}
