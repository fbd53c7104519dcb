package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AaronLay10/algoscene/internal/api"
	"github.com/AaronLay10/algoscene/internal/config"
	"github.com/AaronLay10/algoscene/internal/journal"
	"github.com/AaronLay10/algoscene/internal/logging"
	"github.com/AaronLay10/algoscene/internal/mqtt"
	"github.com/AaronLay10/algoscene/internal/orchestrator"
	"github.com/AaronLay10/algoscene/internal/resolve"
	"github.com/AaronLay10/algoscene/internal/scene"
	"github.com/AaronLay10/algoscene/internal/script"
	"github.com/AaronLay10/algoscene/internal/stream"
	"github.com/AaronLay10/algoscene/internal/voiceover"
	"github.com/AaronLay10/algoscene/internal/widget"
)

type runOptions struct {
	eventsFile string
	mode       string
	runID      string
	serve      bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the project's script against its scene",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			status, err := runProject(sigCtx, cfg, opts, ctx.logger())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s completed: %d/%d beats\n",
				status.RunID, status.BeatsDone, status.BeatsTotal)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.eventsFile, "events", "", "Read algorithm events from a JSON-lines file")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Override the timing mode (draft, normal, fast)")
	cmd.Flags().StringVar(&opts.runID, "run-id", "", "Run identifier (default: random UUID)")
	cmd.Flags().BoolVar(&opts.serve, "serve", false, "Serve the HTTP API during and after the run (also enabled by api.enabled)")
	return cmd
}

// runProject wires storage, transport, scene and orchestrator for one run.
func runProject(ctx context.Context, cfg *config.Config, opts runOptions, logger *slog.Logger) (orchestrator.Status, error) {
	if opts.mode != "" {
		cfg.Timing.Mode = strings.ToLower(strings.TrimSpace(opts.mode))
	}
	model, err := cfg.TimingModel()
	if err != nil {
		return orchestrator.Status{}, err
	}
	s, err := script.Load(cfg.Script)
	if err != nil {
		return orchestrator.Status{}, err
	}
	doc, err := scene.LoadDocument(cfg.Scene)
	if err != nil {
		return orchestrator.Status{}, err
	}
	table, err := doc.Table()
	if err != nil {
		return orchestrator.Status{}, err
	}
	static, err := cfg.Static()
	if err != nil {
		return orchestrator.Status{}, err
	}

	runID := opts.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger = logger.With(slog.String(logging.FieldRunID, runID))
	journal.SetRunID(runID)
	defer journal.SetRunID("")

	unlock, err := acquireRunLock(cfg, logger)
	if err != nil {
		return orchestrator.Status{}, err
	}
	defer unlock()

	store, err := openStorage(cfg, logger)
	if err != nil {
		return orchestrator.Status{}, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("storage close failed", logging.Error(err))
		}
	}()

	hostname, _ := os.Hostname()
	journal.Emit("info", "system.startup", "algoscene starting", map[string]any{
		"project":  cfg.Project.ID,
		"hostname": hostname,
		"pid":      os.Getpid(),
	})
	defer journal.Emit("info", "system.shutdown", "algoscene stopping", nil)

	var broker *mqtt.Client
	var pub mqtt.Publisher
	if cfg.MQTT.Enabled {
		broker = mqtt.NewClient(cfg.MQTT.Broker, cfg.MQTT.ClientID, logger)
		if err := broker.Connect(); err != nil {
			return orchestrator.Status{}, fmt.Errorf("connect to mqtt broker %s: %w", broker.Broker(), err)
		}
		defer broker.Disconnect()
		pub = broker
	}

	engine, err := scene.New(doc.Widgets, table, scene.Options{
		Config:   static,
		Timing:   model,
		Resolver: resolve.New(resolve.NewRegistry(), logger),
		Factory:  newFactory(pub),
		Logger:   logger,
	})
	if err != nil {
		return orchestrator.Status{}, err
	}
	defer func() {
		if err := engine.Close(context.Background()); err != nil {
			logger.Warn("scene close failed", logging.Error(err))
		}
	}()

	events, closeEvents, err := openEvents(opts.eventsFile, cfg, broker, logger)
	if err != nil {
		return orchestrator.Status{}, err
	}
	defer closeEvents()

	runtimeOpts := orchestrator.Options{
		RunID:   runID,
		Timing:  model,
		Sink:    store.sink(),
		Logger:  logger,
		Events:  events,
		Handler: engine,
	}
	if cfg.VoiceOver.Enabled {
		runtimeOpts.VoiceOver = voiceover.NewEstimator(cfg.VoiceOver.WordsPerSecond)
	}
	rt := orchestrator.NewRuntime(s, engine, runtimeOpts)

	if !opts.serve && !cfg.API.Enabled {
		err := rt.Run(ctx)
		return rt.Status(), err
	}

	srv, err := newAPIServer(cfg, runID, rt, store, logger)
	if err != nil {
		return orchestrator.Status{}, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := rt.Run(gctx); err != nil {
			return err
		}
		logger.Info("run complete; serving until interrupted")
		return nil
	})
	g.Go(func() error { return srv.Serve(gctx) })
	err = g.Wait()
	return rt.Status(), err
}

// newFactory returns the widget types available to scenes. The mqtt type is
// only offered when a broker connection exists.
func newFactory(pub mqtt.Publisher) *widget.Factory {
	f := widget.NewFactory()
	if pub != nil {
		_ = mqtt.RegisterWidget(f, pub)
	}
	return f
}

// openEvents picks the algorithm event source: a JSON-lines file when given,
// else the MQTT events topic when configured, else none.
func openEvents(path string, cfg *config.Config, broker *mqtt.Client, logger *slog.Logger) (*stream.Indexer, func(), error) {
	switch {
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open events file: %w", err)
		}
		logger.Info("reading events", slog.String("path", path))
		return stream.NewIndexer(stream.NewJSONLinesSource(f)), func() { closeQuietly(f) }, nil
	case broker != nil && cfg.MQTT.EventsTopic != "":
		src := mqtt.NewEventSource(broker, cfg.MQTT.EventsTopic, 0, logger)
		if err := src.Start(); err != nil {
			return nil, nil, fmt.Errorf("subscribe to events topic: %w", err)
		}
		logger.Info("reading events", slog.String("topic", cfg.MQTT.EventsTopic))
		return stream.NewIndexer(src.Source()), src.Close, nil
	}
	return nil, func() {}, nil
}

func newAPIServer(cfg *config.Config, runID string, status api.StatusProvider, store *storageSet, logger *slog.Logger) (*api.Server, error) {
	auth, err := api.LoadAuth()
	if err != nil {
		return nil, err
	}
	return api.NewServer(api.Options{
		Port:      cfg.APIPort(),
		ProjectID: cfg.Project.ID,
		RunID:     runID,
		TLS:       api.NewTLSConfig(cfg.API.TLSCert, cfg.API.TLSKey),
		Auth:      auth,
		Status:    status,
		Timings:   store.reader(),
		Store:     store.eventStore(),
		Logger:    logger,
	}), nil
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
