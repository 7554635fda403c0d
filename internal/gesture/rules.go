// Package gesture provides gesture recognition: a bank of rule-based sign detectors
// and a template matcher comparing live hands against recorded exemplars.
package gesture

import (
	"math"
	"time"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/detector"
)

// Built-in sign labels.
const (
	LabelOK    = "OK"
	LabelPeace = "Peace"
	LabelLove  = "Love"
	LabelFever = "Fever"
)

// Source identifies which classifier produced a sample.
type Source string

const (
	// SourceRule marks samples produced by the rule bank.
	SourceRule Source = "rule"
	// SourceTemplate marks samples produced by the template matcher.
	SourceTemplate Source = "template"
)

// Sample is the outcome of classifying one frame.
type Sample struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	ObservedAt time.Time `json:"observed_at"`
	Source     Source    `json:"source"`
}

// Rule is a pure, single-frame sign detector.
// Thresholds and distances are in pixels of the 640x480 reference frame; image y
// grows downward so "above" means a smaller y.
type Rule interface {
	// Label is the sign name reported when the rule fires.
	Label() string
	// Threshold is the confidence a frame must exceed to be classified.
	Threshold() float64
	// Score returns a confidence in [0,1] for the observed hands.
	Score(hands []detector.HandLandmarks) float64
}

// OK sign: thumb and index form a circle, other fingers extended.
const (
	OKThreshold      = 0.70
	OKCircleMin      = 10.0 // px, thumb-index tip distance lower bound
	OKCircleMax      = 60.0 // px, upper bound
	OKMiddleLift     = 30.0 // px above the middle knuckle
	OKRingLift       = 25.0
	OKPinkyLift      = 20.0
	okWeightCircle   = 0.35
	okWeightMiddle   = 0.25
	okWeightRing     = 0.20
	okWeightPinky    = 0.15
	okWeightUpright  = 0.05
)

// Peace sign: index and middle up in a V, ring and pinky folded.
const (
	PeaceThreshold      = 0.65
	PeaceFingerLift     = 40.0 // px above the wrist
	PeaceFoldedMargin   = 20.0 // folded tips stay below wrist - margin
	PeaceThumbMargin    = 25.0
	PeaceSeparationMin  = 25.0 // px between index and middle tips
	PeaceSeparationMax  = 100.0
	PeaceMaxTipHeight   = 30.0 // px height difference between index and middle tips
	peaceWeightIndex    = 0.25
	peaceWeightMiddle   = 0.25
	peaceWeightRing     = 0.15
	peaceWeightPinky    = 0.15
	peaceWeightThumb    = 0.10
	peaceWeightV        = 0.10
)

// Love sign: two hands meet at thumbs and index fingers to draw a heart.
const (
	LoveThreshold       = 0.55
	LoveThumbMax        = 60.0  // px between thumb tips
	LoveIndexMax        = 80.0  // px between index tips
	LoveWristMin        = 120.0 // px between wrists
	LoveHeightMax       = 50.0  // px vertical offset between wrists
	loveBase            = 0.70
	loveWeightThumb     = 0.15
	loveWeightIndex     = 0.15
	lovePartialPerGate  = 0.15
)

// Fever sign: thumb and index pinched like a thermometer, other fingers upright.
const (
	FeverThreshold     = 0.80
	FeverPinchMax      = 30.0 // px between thumb and index tips
	FeverFingerLift    = 20.0 // px above the wrist
	FeverColumnSpread  = 60.0 // px horizontal spread of middle, ring, pinky tips
	feverWeightPinch   = 0.30
	feverWeightFinger  = 0.20
	feverWeightColumn  = 0.10
)

// above reports whether tip is at least lift pixels above ref.
func above(tip, ref detector.Point3D, lift float64) bool {
	return tip.Y <= ref.Y-lift
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// bestHand applies score to every hand and keeps the maximum.
func bestHand(hands []detector.HandLandmarks, score func(*detector.HandLandmarks) float64) float64 {
	best := 0.0
	for i := range hands {
		if s := score(&hands[i]); s > best {
			best = s
		}
	}
	return best
}

// OKRule detects the OK (circle) sign.
type OKRule struct{}

func (OKRule) Label() string      { return LabelOK }
func (OKRule) Threshold() float64 { return OKThreshold }

// Score sums the weights of the satisfied sub-conditions.
func (OKRule) Score(hands []detector.HandLandmarks) float64 {
	return bestHand(hands, func(h *detector.HandLandmarks) float64 {
		p := &h.Points
		d := detector.Distance2D(p[detector.ThumbTip], p[detector.IndexTip])

		conf := 0.0
		if d > OKCircleMin && d < OKCircleMax {
			conf += okWeightCircle
		}
		if above(p[detector.MiddleTip], p[detector.MiddleMCP], OKMiddleLift) {
			conf += okWeightMiddle
		}
		if above(p[detector.RingTip], p[detector.RingMCP], OKRingLift) {
			conf += okWeightRing
		}
		if above(p[detector.PinkyTip], p[detector.PinkyMCP], OKPinkyLift) {
			conf += okWeightPinky
		}
		if p[detector.MiddleMCP].Y < p[detector.Wrist].Y {
			conf += okWeightUpright
		}
		return clamp01(conf)
	})
}

// PeaceRule detects the V (peace) sign.
type PeaceRule struct{}

func (PeaceRule) Label() string      { return LabelPeace }
func (PeaceRule) Threshold() float64 { return PeaceThreshold }

// Score sums the weights of the satisfied sub-conditions.
func (PeaceRule) Score(hands []detector.HandLandmarks) float64 {
	return bestHand(hands, func(h *detector.HandLandmarks) float64 {
		p := &h.Points
		wrist := p[detector.Wrist]
		index, middle := p[detector.IndexTip], p[detector.MiddleTip]

		conf := 0.0
		if above(index, wrist, PeaceFingerLift) {
			conf += peaceWeightIndex
		}
		if above(middle, wrist, PeaceFingerLift) {
			conf += peaceWeightMiddle
		}
		if p[detector.RingTip].Y > wrist.Y-PeaceFoldedMargin {
			conf += peaceWeightRing
		}
		if p[detector.PinkyTip].Y > wrist.Y-PeaceFoldedMargin {
			conf += peaceWeightPinky
		}
		if p[detector.ThumbTip].Y > wrist.Y-PeaceThumbMargin {
			conf += peaceWeightThumb
		}

		sep := math.Abs(index.X - middle.X)
		if sep >= PeaceSeparationMin && sep <= PeaceSeparationMax &&
			math.Abs(index.Y-middle.Y) < PeaceMaxTipHeight {
			conf += peaceWeightV
		}
		return clamp01(conf)
	})
}

// LoveRule detects the two-hand heart sign.
type LoveRule struct{}

func (LoveRule) Label() string      { return LabelLove }
func (LoveRule) Threshold() float64 { return LoveThreshold }

// Score requires exactly two hands. When every gate holds the confidence grows
// with how far the thumb and index gaps are below their limits; otherwise each
// passing gate contributes a small amount that can never reach the threshold.
func (LoveRule) Score(hands []detector.HandLandmarks) float64 {
	if len(hands) != 2 {
		return 0
	}
	a, b := &hands[0].Points, &hands[1].Points

	thumb := math.Abs(a[detector.ThumbTip].X - b[detector.ThumbTip].X)
	index := math.Abs(a[detector.IndexTip].X - b[detector.IndexTip].X)
	wrists := math.Abs(a[detector.Wrist].X - b[detector.Wrist].X)
	height := math.Abs(a[detector.Wrist].Y - b[detector.Wrist].Y)

	gates := []bool{
		thumb < LoveThumbMax,
		index < LoveIndexMax,
		wrists > LoveWristMin,
		height < LoveHeightMax,
	}

	passed := 0
	for _, ok := range gates {
		if ok {
			passed++
		}
	}
	if passed < len(gates) {
		return float64(passed) * lovePartialPerGate
	}

	conf := loveBase +
		loveWeightThumb*(1-thumb/LoveThumbMax) +
		loveWeightIndex*(1-index/LoveIndexMax)
	return clamp01(conf)
}

// FeverRule detects the thermometer sign.
type FeverRule struct{}

func (FeverRule) Label() string      { return LabelFever }
func (FeverRule) Threshold() float64 { return FeverThreshold }

// Score sums the weights of the satisfied sub-conditions.
func (FeverRule) Score(hands []detector.HandLandmarks) float64 {
	return bestHand(hands, func(h *detector.HandLandmarks) float64 {
		p := &h.Points
		wrist := p[detector.Wrist]

		conf := 0.0
		if detector.Distance2D(p[detector.ThumbTip], p[detector.IndexTip]) < FeverPinchMax {
			conf += feverWeightPinch
		}

		tips := []detector.Point3D{p[detector.MiddleTip], p[detector.RingTip], p[detector.PinkyTip]}
		minX, maxX := tips[0].X, tips[0].X
		for _, tip := range tips {
			if above(tip, wrist, FeverFingerLift) {
				conf += feverWeightFinger
			}
			minX = math.Min(minX, tip.X)
			maxX = math.Max(maxX, tip.X)
		}
		if maxX-minX < FeverColumnSpread {
			conf += feverWeightColumn
		}
		return clamp01(conf)
	})
}

// Bank evaluates rules in priority order.
type Bank struct {
	rules []Rule
}

// NewBank creates a Bank evaluating rules in the given order.
func NewBank(rules ...Rule) *Bank {
	return &Bank{rules: rules}
}

// DefaultBank returns the built-in rules in their fixed precedence:
// Fever, OK, Love, Peace.
func DefaultBank() *Bank {
	return NewBank(FeverRule{}, OKRule{}, LoveRule{}, PeaceRule{})
}

// Rules returns the rules in evaluation order.
func (b *Bank) Rules() []Rule {
	return b.rules
}

// Classify returns a sample for the highest-priority rule whose confidence exceeds
// its threshold. Frames without hands are never classified.
func (b *Bank) Classify(frame detector.Frame) (Sample, bool) {
	if frame.Empty() {
		return Sample{}, false
	}

	for _, r := range b.rules {
		conf := r.Score(frame.Hands)
		if conf > r.Threshold() {
			return Sample{
				Label:      r.Label(),
				Confidence: conf,
				ObservedAt: frame.ObservedAt,
				Source:     SourceRule,
			}, true
		}
	}
	return Sample{}, false
}

// Scores returns every rule's confidence for the frame, keyed by label.
func (b *Bank) Scores(frame detector.Frame) map[string]float64 {
	scores := make(map[string]float64, len(b.rules))
	for _, r := range b.rules {
		scores[r.Label()] = r.Score(frame.Hands)
	}
	return scores
}
