package gesture

import (
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/detector"
)

// Default template matching parameters, in reference-frame pixels.
const (
	DefaultMatchScale     = 50.0
	DefaultMatchThreshold = 0.72
)

// TemplateFrame is one recorded observation of a sign.
// Hands are plain point slices so that malformed stored data can be detected and
// skipped instead of being rejected at load time.
type TemplateFrame struct {
	Hands [][]detector.Point3D `json:"hands"`
}

// Template is a user-recorded exemplar of a sign.
type Template struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	Frames             []TemplateFrame `json:"frames"`
	BaselineConfidence float64         `json:"baseline_confidence"`
}

// FrameFromHands converts observed hands into a template frame.
func FrameFromHands(hands []detector.HandLandmarks) TemplateFrame {
	tf := TemplateFrame{Hands: make([][]detector.Point3D, len(hands))}
	for i := range hands {
		tf.Hands[i] = hands[i].Slice()
	}
	return tf
}

// Match represents a matching result between input and a template.
type Match struct {
	Template   *Template // The matched template
	Similarity float64   // 0-1, higher is better
	Distance   float64   // Mean per-point distance in pixels
}

// TemplateMatcher compares live frames against a snapshot of stored templates.
type TemplateMatcher struct {
	// Scale is the distance in pixels at which similarity reaches zero.
	Scale float64
	// Threshold is the similarity a match must exceed to be reported.
	Threshold float64

	mu        sync.RWMutex
	templates []*Template
}

// NewTemplateMatcher creates a TemplateMatcher with the default parameters.
func NewTemplateMatcher() *TemplateMatcher {
	return &TemplateMatcher{
		Scale:     DefaultMatchScale,
		Threshold: DefaultMatchThreshold,
	}
}

// SetTemplates replaces the template snapshot.
func (m *TemplateMatcher) SetTemplates(templates []*Template) {
	snapshot := make([]*Template, 0, len(templates))
	for _, t := range templates {
		if t != nil {
			snapshot = append(snapshot, t)
		}
	}

	m.mu.Lock()
	m.templates = snapshot
	m.mu.Unlock()
}

// Len returns the number of templates in the snapshot.
func (m *TemplateMatcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.templates)
}

// similarity converts a distance into a score in [0,1].
func (m *TemplateMatcher) similarity(distance float64) float64 {
	if math.IsInf(distance, 1) {
		return 0
	}
	return math.Max(0, 1-distance/m.Scale)
}

// Matches scores every template against the frame.
// Returns matches sorted by similarity in descending order (best matches first).
// Templates with no comparable frame are left out.
func (m *TemplateMatcher) Matches(frame detector.Frame) []Match {
	if frame.Empty() {
		return nil
	}

	live := normalizedHands(frame.Hands)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Match
	for _, t := range m.templates {
		best := math.Inf(1)
		for _, tf := range t.Frames {
			if d := frameDistance(live, tf); d < best {
				best = d
			}
		}
		if math.IsInf(best, 1) {
			continue
		}
		matches = append(matches, Match{
			Template:   t,
			Similarity: m.similarity(best),
			Distance:   best,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}

// Match returns the best template whose similarity exceeds the threshold.
func (m *TemplateMatcher) Match(frame detector.Frame) (Match, bool) {
	matches := m.Matches(frame)
	if len(matches) == 0 || matches[0].Similarity <= m.Threshold {
		return Match{}, false
	}
	return matches[0], true
}

// Classify wraps Match into a Sample.
func (m *TemplateMatcher) Classify(frame detector.Frame) (Sample, bool) {
	match, ok := m.Match(frame)
	if !ok {
		return Sample{}, false
	}
	return Sample{
		Label:      match.Template.Name,
		Confidence: match.Similarity,
		ObservedAt: frame.ObservedAt,
		Source:     SourceTemplate,
	}, true
}

// normalizedHands orders hands left to right and translates each so its wrist
// sits at the origin.
func normalizedHands(hands []detector.HandLandmarks) [][]detector.Point3D {
	sorted := detector.SortedByWrist(hands)
	out := make([][]detector.Point3D, len(sorted))
	for i := range sorted {
		out[i] = sorted[i].Normalize().Slice()
	}
	return out
}

// normalizeStored applies the same ordering and translation to a stored frame.
// Returns false if any hand does not have exactly 21 points.
func normalizeStored(tf TemplateFrame) ([][]detector.Point3D, bool) {
	hands := make([]detector.HandLandmarks, len(tf.Hands))
	for i, pts := range tf.Hands {
		if len(pts) != detector.NumLandmarks {
			return nil, false
		}
		copy(hands[i].Points[:], pts)
	}
	return normalizedHands(hands), true
}

// frameDistance is the mean over hands of the mean per-point Euclidean distance.
// live must already be normalized. Stored frames with a different number of hands
// or malformed hands compare as +Inf.
func frameDistance(live [][]detector.Point3D, tf TemplateFrame) float64 {
	if len(live) == 0 || len(tf.Hands) != len(live) {
		return math.Inf(1)
	}

	stored, ok := normalizeStored(tf)
	if !ok {
		return math.Inf(1)
	}
	return handsDistance(live, stored)
}

// handsDistance compares two normalized, equally sized hand sets.
func handsDistance(a, b [][]detector.Point3D) float64 {
	perHand := make([]float64, len(a))
	perPoint := make([]float64, detector.NumLandmarks)
	for h := range a {
		for i := range perPoint {
			perPoint[i] = detector.Distance3D(a[h][i], b[h][i])
		}
		perHand[h] = stat.Mean(perPoint, nil)
	}
	return stat.Mean(perHand, nil)
}
