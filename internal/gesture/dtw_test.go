package gesture

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/detector"
)

func absCost(a, b []float64) func(i, j int) float64 {
	return func(i, j int) float64 { return math.Abs(a[i] - b[j]) }
}

func TestDTW_IdenticalSequences(t *testing.T) {
	seq := []float64{0, 1, 2}
	assert.Zero(t, DTWDistance(len(seq), len(seq), absCost(seq, seq)))
}

func TestDTW_DifferentSequences(t *testing.T) {
	a := []float64{0, 0, 0}
	b := []float64{2, 2, 2}
	assert.InDelta(t, 2.0, DTWDistance(3, 3, absCost(a, b)), 1e-9)
}

func TestDTW_SpeedInvariant(t *testing.T) {
	fast := []float64{0, 1, 2}
	slow := []float64{0, 0.25, 0.5, 0.75, 1, 1.25, 1.5, 1.75, 2}

	distance := DTWDistance(len(fast), len(slow), absCost(fast, slow))
	assert.Less(t, distance, 0.5)
}

func TestDTW_EmptySequences(t *testing.T) {
	seq := []float64{0, 1}
	assert.True(t, math.IsInf(DTWDistance(0, 0, absCost(nil, nil)), 1))
	assert.True(t, math.IsInf(DTWDistance(0, 2, absCost(nil, seq)), 1))
	assert.True(t, math.IsInf(DTWDistance(2, 0, absCost(seq, nil)), 1))
}

func TestSequenceMatcher_Match(t *testing.T) {
	frames := NewTemplateMatcher()
	frames.SetTemplates([]*Template{
		templateOf("peace-then-ok", detector.PeaceFrame(), detector.OKFrame()),
		templateOf("palm", detector.OpenPalmFrame(), detector.OpenPalmFrame()),
	})
	seq := NewSequenceMatcher(frames)

	live := []detector.Frame{
		detector.PeaceFrame(), detector.PeaceFrame(), detector.OKFrame(), detector.OKFrame(),
	}

	match, ok := seq.Match(live)
	require.True(t, ok)
	assert.Equal(t, "peace-then-ok", match.Template.ID)
	assert.InDelta(t, 1.0, match.Similarity, 1e-9)

	sample, ok := seq.Classify(live)
	require.True(t, ok)
	assert.Equal(t, SourceTemplate, sample.Source)
}

func TestSequenceMatcher_IgnoresEmptyFrames(t *testing.T) {
	frames := NewTemplateMatcher()
	frames.SetTemplates([]*Template{templateOf("peace", detector.PeaceFrame())})
	seq := NewSequenceMatcher(frames)

	empty := detector.NewFrame(detector.PeaceFrame().ObservedAt)

	assert.Empty(t, seq.Matches(nil))
	assert.Empty(t, seq.Matches([]detector.Frame{empty, empty}))

	match, ok := seq.Match([]detector.Frame{empty, detector.PeaceFrame(), empty})
	require.True(t, ok)
	assert.InDelta(t, 1.0, match.Similarity, 1e-9)
}

func TestSequenceMatcher_HandCountMismatch(t *testing.T) {
	frames := NewTemplateMatcher()
	frames.SetTemplates([]*Template{templateOf("heart", detector.HeartFrame(), detector.HeartFrame())})
	seq := NewSequenceMatcher(frames)

	_, ok := seq.Match([]detector.Frame{detector.PeaceFrame(), detector.PeaceFrame()})
	assert.False(t, ok)
}
