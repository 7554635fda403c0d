// Package detector provides the hand landmark types consumed by gesture recognition
// and the ingestion boundary that validates frames produced by an external hand tracker.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// MaxHands is the number of hands a single frame may carry.
const MaxHands = 2

// Point3D represents a 3D point in space with x, y, z coordinates.
// Coordinates are in pixel units of the reference frame (see FrameSize).
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns p - q component-wise.
func (p Point3D) Sub(q Point3D) Point3D {
	return Point3D{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Add returns p + q component-wise.
func (p Point3D) Add(q Point3D) Point3D {
	return Point3D{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

// HandLandmarks represents the 21 hand landmarks of one observed hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness,omitempty"` // "Left" or "Right"
	Score      float64               `json:"score,omitempty"`
}

// Distance3D calculates the Euclidean distance between two 3D points.
func Distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Distance2D calculates the Euclidean distance between two points in the image plane,
// ignoring depth.
func Distance2D(a, b Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Normalize rebases the hand landmarks to a wrist-relative coordinate frame.
// Every point has the wrist subtracted component-wise, so the wrist ends up at the
// origin. Rotation and scale are left untouched.
// Returns a new HandLandmarks instance; the receiver is not modified.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	normalized := &HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	wrist := h.Points[Wrist]
	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i] = h.Points[i].Sub(wrist)
	}

	return normalized
}

// Translate returns a copy of the hand shifted by offset.
func (h HandLandmarks) Translate(offset Point3D) HandLandmarks {
	out := h
	for i := range out.Points {
		out.Points[i] = out.Points[i].Add(offset)
	}
	return out
}

// Slice returns the points as a freshly allocated slice.
func (h *HandLandmarks) Slice() []Point3D {
	out := make([]Point3D, NumLandmarks)
	copy(out, h.Points[:])
	return out
}
