package gesture

import (
	"math"
	"sort"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/detector"
)

// DTWDistance calculates the Dynamic Time Warping distance between two sequences
// of length n and m, given the pairwise cost function.
// Returns infinity if either sequence is empty or no finite alignment exists.
// The distance is normalized by the longer sequence length.
func DTWDistance(n, m int, cost func(i, j int) float64) float64 {
	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	// (n+1) x (m+1) cost matrix initialized to infinity
	dtw := make([][]float64, n+1)
	for i := range dtw {
		dtw[i] = make([]float64, m+1)
		for j := range dtw[i] {
			dtw[i][j] = math.Inf(1)
		}
	}
	dtw[0][0] = 0

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			c := cost(i-1, j-1)
			dtw[i][j] = c + min(dtw[i-1][j], dtw[i][j-1], dtw[i-1][j-1])
		}
	}

	return dtw[n][m] / float64(max(n, m))
}

// SequenceMatcher compares a short run of live frames against the full frame
// sequence of each template. It shares scale, threshold and snapshot with the
// TemplateMatcher it wraps.
type SequenceMatcher struct {
	frames *TemplateMatcher
}

// NewSequenceMatcher creates a SequenceMatcher over the templates of m.
func NewSequenceMatcher(m *TemplateMatcher) *SequenceMatcher {
	return &SequenceMatcher{frames: m}
}

// Matches scores every template against the live sequence.
// Frames without hands are ignored. Returns matches sorted by similarity
// in descending order.
func (s *SequenceMatcher) Matches(seq []detector.Frame) []Match {
	var live [][][]detector.Point3D
	for _, f := range seq {
		if !f.Empty() {
			live = append(live, normalizedHands(f.Hands))
		}
	}
	if len(live) == 0 {
		return nil
	}

	m := s.frames
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Match
	for _, t := range m.templates {
		distance := DTWDistance(len(live), len(t.Frames), func(i, j int) float64 {
			return frameDistance(live[i], t.Frames[j])
		})
		if math.IsInf(distance, 1) {
			continue
		}
		matches = append(matches, Match{
			Template:   t,
			Similarity: m.similarity(distance),
			Distance:   distance,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}

// Match returns the best template whose similarity exceeds the threshold.
func (s *SequenceMatcher) Match(seq []detector.Frame) (Match, bool) {
	matches := s.Matches(seq)
	if len(matches) == 0 || matches[0].Similarity <= s.frames.Threshold {
		return Match{}, false
	}
	return matches[0], true
}

// Classify wraps Match into a Sample stamped with the last frame's time.
func (s *SequenceMatcher) Classify(seq []detector.Frame) (Sample, bool) {
	match, ok := s.Match(seq)
	if !ok {
		return Sample{}, false
	}
	return Sample{
		Label:      match.Template.Name,
		Confidence: match.Similarity,
		ObservedAt: seq[len(seq)-1].ObservedAt,
		Source:     SourceTemplate,
	}, true
}
