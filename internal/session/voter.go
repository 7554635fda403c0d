package session

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/gesture"
)

// DetectionResult is a debounced detection ready for publication.
type DetectionResult struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	ObservedAt time.Time `json:"observed_at"`
}

// Voter turns a stream of per-frame samples into votes over a sliding window.
type Voter struct {
	window      *VotingWindow
	consistency int
}

// NewVoter creates a Voter over a window of size samples that passes when a label
// holds at least consistency of them.
func NewVoter(size, consistency int) *Voter {
	return &Voter{window: NewVotingWindow(size), consistency: consistency}
}

// Push adds a sample and evaluates the window.
// A passing vote yields the mean confidence of the supporting samples, stamped with
// the time of the sample that completed it, and clears the window.
func (v *Voter) Push(s gesture.Sample) (DetectionResult, bool) {
	v.window.Push(s)

	label, support := v.window.Majority()
	if len(support) < v.consistency {
		return DetectionResult{}, false
	}

	confidences := make([]float64, len(support))
	for i, sample := range support {
		confidences[i] = sample.Confidence
	}

	v.window.Clear()
	return DetectionResult{
		Label:      label,
		Confidence: stat.Mean(confidences, nil),
		ObservedAt: s.ObservedAt,
	}, true
}

// Len returns the number of samples currently in the window.
func (v *Voter) Len() int {
	return v.window.Len()
}

// Reset clears the window.
func (v *Voter) Reset() {
	v.window.Clear()
}
