package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/detector"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/session"
)

// HandleFrame validates one tracker frame and feeds it to the session.
// Malformed frames are dropped here and never reach the session.
func (a *App) HandleFrame(raw detector.RawFrame) *session.DetectionResult {
	frame, err := detector.ParseFrame(raw, a.config.FrameSize)
	if err != nil {
		a.logger.Debug("skipping frame", zap.Error(err))
		return nil
	}
	return a.session.ProcessFrame(frame)
}

// Run pumps frames from src into the session until the source is exhausted or ctx
// is cancelled. Cancellation closes src to unblock a pending read.
func (a *App) Run(ctx context.Context, src detector.Source) error {
	stop := context.AfterFunc(ctx, func() {
		if err := src.Close(); err != nil {
			a.logger.Warn("closing frame source", zap.Error(err))
		}
	})
	defer stop()

	for {
		raw, err := src.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, detector.ErrMalformedFrame) {
				a.logger.Debug("skipping frame", zap.Error(err))
				continue
			}
			return fmt.Errorf("read frame: %w", err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.HandleFrame(raw)
	}
}
