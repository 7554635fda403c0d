// Command gesture-alert runs the hand-sign recognition service.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/app"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/config"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/detector"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/logger"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/server"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/session"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/sink"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/store"
)

func main() {
	cfg, envLoaded := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(2)
	}

	log := logger.New(cfg.App.LogFilePath, cfg.IsProduction())
	defer log.Sync()

	if !envLoaded {
		log.Info("no .env file found, using process environment")
	}

	if err := run(cfg, log); err != nil {
		log.Error("gesture-alert stopped", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.App.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	log.Info("sign library opened", zap.String("path", cfg.DBPath()))

	hub := server.NewHub(cfg.Output.AlertTTL, log.Named("hub"))
	out, closeSink, err := buildSink(ctx, cfg, hub, log)
	if err != nil {
		return err
	}
	defer closeSink()

	a := app.New(app.Config{
		Store:          st,
		Session:        cfg.Session(),
		SessionTimeout: cfg.Detection.SessionTimeout,
		FrameSize:      cfg.FrameSize(),
		Sink:           out,
		Logger:         log,
	})

	webDir := cfg.App.StaticDir
	if webDir == "" {
		webDir = findWebDir(cfg.App.DataDir)
	}
	if webDir != "" {
		log.Info("serving static files", zap.String("dir", webDir))
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		App:       a,
		Hub:       hub,
		Logger:    log.Named("http"),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if src, err := frameSource(cfg); err != nil {
		return err
	} else if src != nil {
		if err := a.StartSession(ctx, -1); err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		go func() {
			defer cancel()
			if err := a.Run(ctx, src); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("frame source failed", zap.Error(err))
				return
			}
			log.Info("frame source finished")
		}()
	}

	log.Info("gesture-alert starting",
		zap.String("addr", cfg.App.Addr),
		zap.String("sink", cfg.Output.Sink),
		zap.String("frame_source", cfg.Detection.FrameSource),
	)
	return srv.ListenAndServe(ctx, cfg.App.Addr)
}

// buildSink combines the websocket hub with the configured output.
func buildSink(ctx context.Context, cfg *config.Config, hub *server.Hub, log *zap.Logger) (session.Sink, func(), error) {
	switch cfg.Output.Sink {
	case config.SinkPubSub:
		bus := sink.NewGoChannel(64)
		err := sink.Subscribe(ctx, bus, sink.DefaultTopic, log, func(r session.DetectionResult) {
			log.Info("detection",
				zap.String("label", r.Label),
				zap.Float64("confidence", r.Confidence),
				zap.Time("observed_at", r.ObservedAt),
			)
		})
		if err != nil {
			bus.Close()
			return nil, nil, err
		}
		return sink.Fanout{hub, sink.NewPubSub(bus, sink.DefaultTopic)}, func() { bus.Close() }, nil

	case config.SinkExec:
		ex, err := sink.NewExec(cfg.Output.SinkCommand, cfg.Output.SinkTimeout, log.Named("exec"))
		if err != nil {
			return nil, nil, err
		}
		return sink.Fanout{hub, ex}, func() { ex.Close() }, nil
	}

	return hub, func() {}, nil
}

// frameSource returns the configured frame producer, or nil when frames arrive
// over the /api/frames websocket.
func frameSource(cfg *config.Config) (detector.Source, error) {
	switch cfg.Detection.FrameSource {
	case config.SourceStdin:
		return detector.NewJSONLSource(os.Stdin), nil
	case config.SourceTracker:
		fields := strings.Fields(cfg.Detection.TrackerCommand)
		return detector.NewTrackerSource(fields[0], fields[1:]...)
	}
	return nil, nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web" and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if absPath, err := filepath.Abs(p); err == nil {
				return absPath
			}
			return p
		}
	}
	return ""
}
