// Package session implements the detection session: per-frame classification, temporal
// voting over a sliding window, cooldown and emission of debounced detections.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/detector"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/gesture"
)

var (
	// ErrNoTemplates is returned by Start when templates are required but none exist.
	ErrNoTemplates = errors.New("no templates available")
	// ErrNotSampling is returned when stopping a session that is not running.
	ErrNotSampling = errors.New("session is not sampling")
)

// TemplateSource provides the stored sign templates loaded at session start.
type TemplateSource interface {
	LoadTemplates(ctx context.Context) ([]*gesture.Template, error)
}

// State is the lifecycle state of a session.
type State int

const (
	// Idle means no frames are accepted.
	Idle State = iota
	// Sampling means frames are classified and voted on.
	Sampling
)

func (s State) String() string {
	if s == Sampling {
		return "sampling"
	}
	return "idle"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config holds the voting, cooldown and matching parameters of a session.
type Config struct {
	// WindowSize is the number of samples voted over.
	WindowSize int
	// Consistency is the number of agreeing samples a vote needs.
	Consistency int
	// Cooldown is the minimum time between repeated emissions of one label.
	Cooldown time.Duration
	// EmptyFrameReset is the number of consecutive frames without hands tolerated
	// before the window is cleared.
	EmptyFrameReset int
	// RequireTemplates makes Start fail when no template is stored.
	RequireTemplates bool
	// SequenceLength > 0 matches templates against the last N frames with hands
	// instead of the current frame alone.
	SequenceLength int
	// MatchScale and MatchThreshold tune the template matcher.
	MatchScale     float64
	MatchThreshold float64
}

// DefaultConfig returns the default session parameters.
func DefaultConfig() Config {
	return Config{
		WindowSize:      5,
		Consistency:     3,
		Cooldown:        1500 * time.Millisecond,
		EmptyFrameReset: 30,
		MatchScale:      gesture.DefaultMatchScale,
		MatchThreshold:  gesture.DefaultMatchThreshold,
	}
}

// Status is a point-in-time snapshot of a session.
type Status struct {
	State         State            `json:"state"`
	StartedAt     time.Time        `json:"started_at,omitempty"`
	Remaining     time.Duration    `json:"-"`
	RemainingMs   int64            `json:"remaining_ms"`
	Frames        int              `json:"frames"`
	WindowLen     int              `json:"window_len"`
	Templates     int              `json:"templates"`
	LastDetection *DetectionResult `json:"last_detection,omitempty"`
}

// Session owns all per-run recognition state. Every method is safe for concurrent
// use; frames are processed one at a time in call order.
type Session struct {
	cfg       Config
	bank      *gesture.Bank
	matcher   *gesture.TemplateMatcher
	sequences *gesture.SequenceMatcher
	templates TemplateSource
	logger    *zap.Logger

	mu          sync.Mutex
	now         func() time.Time
	state       State
	voter       *Voter
	emitter     *Emitter
	frames      int
	emptyFrames int
	history     []detector.Frame
	startedAt   time.Time
	deadline    time.Time
	timer       *time.Timer
	generation  uint64
	last        *DetectionResult
}

// New creates an idle session. templates may be nil for rule-only recognition.
func New(cfg Config, templates TemplateSource, sink Sink, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MatchScale <= 0 {
		cfg.MatchScale = gesture.DefaultMatchScale
	}
	if cfg.MatchThreshold <= 0 {
		cfg.MatchThreshold = gesture.DefaultMatchThreshold
	}

	matcher := gesture.NewTemplateMatcher()
	matcher.Scale = cfg.MatchScale
	matcher.Threshold = cfg.MatchThreshold

	return &Session{
		cfg:       cfg,
		bank:      gesture.DefaultBank(),
		matcher:   matcher,
		sequences: gesture.NewSequenceMatcher(matcher),
		templates: templates,
		logger:    logger,
		now:       time.Now,
		voter:     NewVoter(cfg.WindowSize, cfg.Consistency),
		emitter:   NewEmitter(NewCooldownTable(cfg.Cooldown), sink, logger),
	}
}

// SetClock replaces the time source used for timeouts and unstamped frames.
func (s *Session) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Start loads the template snapshot and begins sampling. A positive timeout ends the
// session automatically once it elapses. Starting a running session restarts it.
func (s *Session) Start(ctx context.Context, timeout time.Duration) error {
	templates, err := s.loadTemplates(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	s.matcher.SetTemplates(templates)
	s.generation++
	s.state = Sampling
	s.startedAt = s.now()

	if timeout > 0 {
		s.deadline = s.startedAt.Add(timeout)
		gen := s.generation
		s.timer = time.AfterFunc(timeout, func() { s.expire(gen) })
	}

	s.logger.Info("session started",
		zap.Int("templates", len(templates)),
		zap.Duration("timeout", timeout),
	)
	return nil
}

func (s *Session) loadTemplates(ctx context.Context) ([]*gesture.Template, error) {
	if s.templates == nil {
		if s.cfg.RequireTemplates {
			return nil, ErrNoTemplates
		}
		return nil, nil
	}

	templates, err := s.templates.LoadTemplates(ctx)
	if err != nil {
		if s.cfg.RequireTemplates {
			return nil, fmt.Errorf("load templates: %w", err)
		}
		s.logger.Warn("template store unavailable, using rules only", zap.Error(err))
		return nil, nil
	}
	if len(templates) == 0 && s.cfg.RequireTemplates {
		return nil, ErrNoTemplates
	}
	return templates, nil
}

// Stop ends sampling and clears all session state.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Sampling {
		return ErrNotSampling
	}
	s.stopLocked()
	s.logger.Info("session stopped")
	return nil
}

// expire stops the session started as generation gen once its timeout fires.
func (s *Session) expire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Sampling && s.generation == gen {
		s.stopLocked()
		s.logger.Info("session timed out")
	}
}

// expiredLocked checks the deadline against the session clock.
func (s *Session) expiredLocked() bool {
	return !s.deadline.IsZero() && !s.now().Before(s.deadline)
}

func (s *Session) stopLocked() {
	s.resetLocked()
	s.state = Idle
	s.startedAt = time.Time{}
}

func (s *Session) resetLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.deadline = time.Time{}
	s.voter.Reset()
	s.emitter.Reset()
	s.frames = 0
	s.emptyFrames = 0
	s.history = nil
	s.last = nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkTimeoutLocked()
	return s.state
}

// TimeRemaining returns the time left before the session times out, or zero when
// idle or running without a timeout.
func (s *Session) TimeRemaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkTimeoutLocked()
	return s.remainingLocked()
}

func (s *Session) remainingLocked() time.Duration {
	if s.state != Sampling || s.deadline.IsZero() {
		return 0
	}
	return max(0, s.deadline.Sub(s.now()))
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkTimeoutLocked()
	remaining := s.remainingLocked()

	st := Status{
		State:       s.state,
		StartedAt:   s.startedAt,
		Remaining:   remaining,
		RemainingMs: remaining.Milliseconds(),
		Frames:      s.frames,
		WindowLen:   s.voter.Len(),
		Templates:   s.matcher.Len(),
	}
	if s.last != nil {
		last := *s.last
		st.LastDetection = &last
	}
	return st
}

func (s *Session) checkTimeoutLocked() {
	if s.state == Sampling && s.expiredLocked() {
		s.stopLocked()
		s.logger.Info("session timed out")
	}
}

// ProcessFrame classifies one frame, feeds the vote and emits a detection when the
// vote passes and the cooldown allows it. It returns the emitted detection, or nil.
// Frames arriving while idle are ignored.
func (s *Session) ProcessFrame(frame detector.Frame) *DetectionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkTimeoutLocked()
	if s.state != Sampling {
		return nil
	}

	if frame.ObservedAt.IsZero() {
		frame.ObservedAt = s.now()
	}
	s.frames++

	if frame.Empty() {
		s.emptyFrames++
		if s.emptyFrames > s.cfg.EmptyFrameReset {
			s.logger.Debug("no hands, resetting window", zap.Int("empty_frames", s.emptyFrames))
			s.voter.Reset()
			s.frames = 0
			s.emptyFrames = 0
			s.history = nil
		}
		return nil
	}
	s.emptyFrames = 0

	sample, ok := s.classifyLocked(frame)
	if !ok {
		return nil
	}

	result, passed := s.voter.Push(sample)
	if !passed {
		return nil
	}

	if !s.emitter.Allowed(result) {
		s.logger.Debug("detection in cooldown", zap.String("label", result.Label))
		return nil
	}

	s.emitter.Emit(result)
	s.last = &result
	return &result
}

// classifyLocked runs the rule bank and falls back to the stored templates.
func (s *Session) classifyLocked(frame detector.Frame) (gesture.Sample, bool) {
	if ce := s.logger.Check(zap.DebugLevel, "rule scores"); ce != nil {
		ce.Write(zap.Any("scores", s.bank.Scores(frame)))
	}

	if sample, ok := s.bank.Classify(frame); ok {
		s.recordLocked(frame)
		return sample, true
	}

	if s.matcher.Len() == 0 {
		return gesture.Sample{}, false
	}

	if s.cfg.SequenceLength > 0 {
		s.recordLocked(frame)
		return s.sequences.Classify(s.history)
	}
	return s.matcher.Classify(frame)
}

// recordLocked keeps the last SequenceLength frames with hands.
func (s *Session) recordLocked(frame detector.Frame) {
	if s.cfg.SequenceLength <= 0 {
		return
	}
	s.history = append(s.history, frame)
	if len(s.history) > s.cfg.SequenceLength {
		s.history = s.history[len(s.history)-s.cfg.SequenceLength:]
	}
}
