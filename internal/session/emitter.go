package session

import (
	"go.uber.org/zap"
)

// Sink receives emitted detections. Implementations must not block the caller.
type Sink interface {
	Publish(result DetectionResult) error
}

// Emitter publishes detections that pass the cooldown and is the only writer of the
// cooldown table.
type Emitter struct {
	cooldown *CooldownTable
	sink     Sink
	logger   *zap.Logger
}

// NewEmitter creates an Emitter writing to sink. A nil sink discards detections.
func NewEmitter(cooldown *CooldownTable, sink Sink, logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{cooldown: cooldown, sink: sink, logger: logger}
}

// Allowed reports whether the cooldown lets result through.
func (e *Emitter) Allowed(result DetectionResult) bool {
	return e.cooldown.Allowed(result.Label, result.ObservedAt)
}

// Emit records the emission and hands the result to the sink.
// Publication errors are logged and never returned.
func (e *Emitter) Emit(result DetectionResult) {
	e.cooldown.Mark(result.Label, result.ObservedAt)

	e.logger.Info("sign detected",
		zap.String("label", result.Label),
		zap.Float64("confidence", result.Confidence),
		zap.Time("observed_at", result.ObservedAt),
	)

	if e.sink == nil {
		return
	}
	if err := e.sink.Publish(result); err != nil {
		e.logger.Warn("publish detection", zap.String("label", result.Label), zap.Error(err))
	}
}

// Reset forgets all previous emissions.
func (e *Emitter) Reset() {
	e.cooldown.Clear()
}
