// Package app wires the recognition session to the sign library and the detection sinks.
package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/detector"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/gesture"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/session"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/store"
)

// Config holds configuration options for the application.
type Config struct {
	Store *store.Store
	// Session holds the voting and matching parameters.
	Session session.Config
	// SessionTimeout applies when StartSession is called without an explicit timeout.
	SessionTimeout time.Duration
	// FrameSize is the reference frame that normalized tracker input is scaled to.
	FrameSize detector.FrameSize
	// Sink receives every emitted detection. Use sink.Fanout for several destinations.
	Sink   session.Sink
	Logger *zap.Logger
}

// App is the main application that feeds frames into the recognition session.
type App struct {
	config  Config
	session *session.Session
	trainer *gesture.Trainer
	logger  *zap.Logger
}

// New creates a new App. Without a store the session runs on the built-in rules only.
func New(config Config) *App {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.FrameSize.Width <= 0 || config.FrameSize.Height <= 0 {
		config.FrameSize = detector.DefaultFrameSize()
	}

	var templates session.TemplateSource
	if config.Store != nil {
		templates = &storeTemplates{store: config.Store, logger: logger}
	}

	return &App{
		config:  config,
		session: session.New(config.Session, templates, config.Sink, logger.Named("session")),
		trainer: gesture.NewTrainer(config.FrameSize),
		logger:  logger,
	}
}

// Session returns the recognition session.
func (a *App) Session() *session.Session {
	return a.session
}

// Store returns the sign library, or nil when running without one.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// StartSession starts (or restarts) sampling. A zero timeout uses the configured
// default; a negative one runs until StopSession.
func (a *App) StartSession(ctx context.Context, timeout time.Duration) error {
	switch {
	case timeout == 0:
		timeout = a.config.SessionTimeout
	case timeout < 0:
		timeout = 0
	}
	return a.session.Start(ctx, timeout)
}

// StopSession stops sampling and clears the session state.
func (a *App) StopSession() error {
	return a.session.Stop()
}

// Status returns a snapshot of the session.
func (a *App) Status() session.Status {
	return a.session.Status()
}
