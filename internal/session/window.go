package session

import (
	"time"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/gesture"
)

// VotingWindow is a bounded FIFO of the most recent classification samples.
type VotingWindow struct {
	size    int
	samples []gesture.Sample
}

// NewVotingWindow creates a window holding at most size samples.
func NewVotingWindow(size int) *VotingWindow {
	if size < 1 {
		size = 1
	}
	return &VotingWindow{size: size, samples: make([]gesture.Sample, 0, size)}
}

// Push appends a sample, evicting the oldest when full.
func (w *VotingWindow) Push(s gesture.Sample) {
	if len(w.samples) == w.size {
		// Shift left by 1, removing oldest sample
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:w.size-1]
	}
	w.samples = append(w.samples, s)
}

// Len returns the number of samples held.
func (w *VotingWindow) Len() int {
	return len(w.samples)
}

// Clear drops all samples.
func (w *VotingWindow) Clear() {
	w.samples = w.samples[:0]
}

// Majority returns the label with the most samples in the window together with
// its supporting samples. Ties go to the label seen most recently.
func (w *VotingWindow) Majority() (string, []gesture.Sample) {
	counts := make(map[string]int, len(w.samples))
	best, bestCount := "", 0

	// Walk newest first so that on equal counts the most recent label stays ahead.
	for i := len(w.samples) - 1; i >= 0; i-- {
		label := w.samples[i].Label
		counts[label]++
		if counts[label] > bestCount {
			best, bestCount = label, counts[label]
		}
	}
	if bestCount == 0 {
		return "", nil
	}

	support := make([]gesture.Sample, 0, bestCount)
	for _, s := range w.samples {
		if s.Label == best {
			support = append(support, s)
		}
	}
	return best, support
}

// CooldownTable remembers when each label was last emitted.
type CooldownTable struct {
	period    time.Duration
	last      map[string]time.Time
	lastLabel string
}

// NewCooldownTable creates a table enforcing period between repeated emissions of
// the same label.
func NewCooldownTable(period time.Duration) *CooldownTable {
	return &CooldownTable{period: period, last: make(map[string]time.Time)}
}

// Allowed reports whether label may be emitted at now. A label different from the
// last emitted one always passes; a repeat passes once the period has elapsed.
func (c *CooldownTable) Allowed(label string, now time.Time) bool {
	if label != c.lastLabel {
		return true
	}
	last, ok := c.last[label]
	return !ok || now.Sub(last) >= c.period
}

// Mark records an emission of label at now.
func (c *CooldownTable) Mark(label string, now time.Time) {
	c.last[label] = now
	c.lastLabel = label
}

// LastEmitted returns when label was last emitted.
func (c *CooldownTable) LastEmitted(label string) (time.Time, bool) {
	t, ok := c.last[label]
	return t, ok
}

// Clear forgets every emission.
func (c *CooldownTable) Clear() {
	c.last = make(map[string]time.Time)
	c.lastLabel = ""
}
