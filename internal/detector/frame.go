package detector

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrMalformedFrame is returned when a raw frame fails validation at the ingestion
// boundary. Callers skip such frames without surfacing the error further.
var ErrMalformedFrame = errors.New("malformed frame")

// FrameSize is the reference frame in which all gesture thresholds are expressed.
type FrameSize struct {
	Width  float64
	Height float64
}

// DefaultFrameSize returns the 640x480 reference frame used by the built-in rules.
func DefaultFrameSize() FrameSize {
	return FrameSize{Width: 640, Height: 480}
}

// RawHand is one hand as delivered by the external tracker.
// Each landmark is [x, y] or [x, y, z].
type RawHand struct {
	Landmarks  [][]float64 `json:"landmarks"`
	Handedness string      `json:"handedness,omitempty"`
	Score      float64     `json:"score,omitempty"`
}

// RawFrame is the wire format of one tracker observation.
type RawFrame struct {
	Hands []RawHand `json:"hands"`
	// Timestamp in milliseconds since the Unix epoch. Zero means "now" to the caller.
	Timestamp int64 `json:"timestamp,omitempty"`
	// Normalized marks coordinates in the [0,1] range that still need scaling.
	Normalized bool `json:"normalized,omitempty"`
}

// Frame is a validated observation of zero, one or two hands.
type Frame struct {
	Hands      []HandLandmarks `json:"hands"`
	ObservedAt time.Time       `json:"observed_at"`
}

// Empty reports whether no hands were observed.
func (f Frame) Empty() bool {
	return len(f.Hands) == 0
}

// NewFrame builds a Frame from already validated hands.
func NewFrame(at time.Time, hands ...HandLandmarks) Frame {
	return Frame{Hands: hands, ObservedAt: at}
}

// ParseFrame validates a raw frame and converts it into pixel units of size.
// A hand with anything other than 21 landmarks, a landmark with fewer than two or
// more than three coordinates, or more than MaxHands hands rejects the whole frame
// with ErrMalformedFrame.
func ParseFrame(raw RawFrame, size FrameSize) (Frame, error) {
	if len(raw.Hands) > MaxHands {
		return Frame{}, fmt.Errorf("%w: %d hands", ErrMalformedFrame, len(raw.Hands))
	}

	frame := Frame{Hands: make([]HandLandmarks, 0, len(raw.Hands))}
	if raw.Timestamp > 0 {
		frame.ObservedAt = time.UnixMilli(raw.Timestamp)
	}

	for i, rh := range raw.Hands {
		if len(rh.Landmarks) != NumLandmarks {
			return Frame{}, fmt.Errorf("%w: hand %d has %d landmarks", ErrMalformedFrame, i, len(rh.Landmarks))
		}

		hand := HandLandmarks{Handedness: rh.Handedness, Score: rh.Score}
		for j, lm := range rh.Landmarks {
			if len(lm) < 2 || len(lm) > 3 {
				return Frame{}, fmt.Errorf("%w: hand %d landmark %d has %d coordinates", ErrMalformedFrame, i, j, len(lm))
			}
			p := Point3D{X: lm[0], Y: lm[1]}
			if len(lm) == 3 {
				p.Z = lm[2]
			}
			if raw.Normalized {
				p = size.Scale(p)
			}
			hand.Points[j] = p
		}
		frame.Hands = append(frame.Hands, hand)
	}

	return frame, nil
}

// Scale converts a point from normalized [0,1] coordinates to pixel units.
// Depth is scaled by the width, matching MediaPipe's convention.
func (s FrameSize) Scale(p Point3D) Point3D {
	return Point3D{X: p.X * s.Width, Y: p.Y * s.Height, Z: p.Z * s.Width}
}

// ToRaw converts a validated frame back to its wire format (pixel units).
func (f Frame) ToRaw() RawFrame {
	raw := RawFrame{Hands: make([]RawHand, 0, len(f.Hands))}
	if !f.ObservedAt.IsZero() {
		raw.Timestamp = f.ObservedAt.UnixMilli()
	}
	for _, h := range f.Hands {
		rh := RawHand{Handedness: h.Handedness, Score: h.Score, Landmarks: make([][]float64, NumLandmarks)}
		for i, p := range h.Points {
			rh.Landmarks[i] = []float64{p.X, p.Y, p.Z}
		}
		raw.Hands = append(raw.Hands, rh)
	}
	return raw
}

// SortedByWrist returns the hands ordered left to right by wrist x coordinate,
// so two-hand comparisons do not depend on tracker output order.
func SortedByWrist(hands []HandLandmarks) []HandLandmarks {
	out := make([]HandLandmarks, len(hands))
	copy(out, hands)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Points[Wrist].X < out[j].Points[Wrist].X
	})
	return out
}
