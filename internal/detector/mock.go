package detector

import (
	"io"
	"sync"
	"time"
)

// MockSource is a test implementation of the Source interface.
// It replays a fixed list of frames and then returns io.EOF.
type MockSource struct {
	frames []RawFrame
	err    error
	closed bool
	mu     sync.Mutex
}

// NewMockSource creates a new MockSource replaying frames in order.
func NewMockSource(frames ...RawFrame) *MockSource {
	return &MockSource{frames: frames}
}

// Push appends frames to the replay queue.
func (m *MockSource) Push(frames ...RawFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, frames...)
}

// SetError sets the error that will be returned by Next.
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Next returns the next queued frame.
func (m *MockSource) Next() (RawFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return RawFrame{}, m.err
	}
	if m.closed || len(m.frames) == 0 {
		return RawFrame{}, io.EOF
	}

	f := m.frames[0]
	m.frames = m.frames[1:]
	return f, nil
}

// Close marks the source as exhausted.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Preset hands below are expressed in pixels of the 640x480 reference frame,
// image y growing downward, with the wrist near the bottom centre.

var defaultWrist = Point3D{X: 320, Y: 400}

// handFrom builds a hand from a wrist position and per-landmark (dx, dy) offsets.
func handFrom(wrist Point3D, handedness string, offsets [NumLandmarks][2]float64) HandLandmarks {
	h := HandLandmarks{Handedness: handedness, Score: 0.95}
	for i, o := range offsets {
		h.Points[i] = Point3D{X: wrist.X + o[0], Y: wrist.Y + o[1]}
	}
	return h
}

// mirror flips offsets horizontally.
func mirror(offsets [NumLandmarks][2]float64) [NumLandmarks][2]float64 {
	for i := range offsets {
		offsets[i][0] = -offsets[i][0]
	}
	return offsets
}

// PeaceLandmarks returns a preset hand showing a V sign.
// Index and middle fingertips are 80px above the wrist and 40px apart,
// ring and pinky are curled down to wrist level.
func PeaceLandmarks() HandLandmarks {
	return handFrom(defaultWrist, "Right", [NumLandmarks][2]float64{
		Wrist:    {0, 0},
		ThumbCMC: {-15, -10}, ThumbMCP: {-25, -20}, ThumbIP: {-25, -15}, ThumbTip: {-20, -10},
		IndexMCP: {-20, -60}, IndexPIP: {-20, -68}, IndexDIP: {-20, -74}, IndexTip: {-20, -80},
		MiddleMCP: {0, -60}, MiddlePIP: {5, -68}, MiddleDIP: {12, -74}, MiddleTip: {20, -80},
		RingMCP: {15, -55}, RingPIP: {25, -40}, RingDIP: {30, -15}, RingTip: {30, 0},
		PinkyMCP: {30, -50}, PinkyPIP: {40, -35}, PinkyDIP: {45, -12}, PinkyTip: {45, 0},
	})
}

// OKLandmarks returns a preset hand showing the OK sign.
// Thumb and index tips touch to form a circle 35px wide while the remaining
// fingers extend well above their knuckles.
func OKLandmarks() HandLandmarks {
	return handFrom(defaultWrist, "Right", [NumLandmarks][2]float64{
		Wrist:    {0, 0},
		ThumbCMC: {-15, -10}, ThumbMCP: {-30, -30}, ThumbIP: {-35, -55}, ThumbTip: {-30, -80},
		IndexMCP: {-20, -60}, IndexPIP: {-35, -85}, IndexDIP: {-40, -105}, IndexTip: {-30, -115},
		MiddleMCP: {0, -60}, MiddlePIP: {2, -100}, MiddleDIP: {4, -125}, MiddleTip: {5, -150},
		RingMCP: {15, -55}, RingPIP: {20, -90}, RingDIP: {24, -112}, RingTip: {27, -135},
		PinkyMCP: {30, -50}, PinkyPIP: {38, -75}, PinkyDIP: {43, -92}, PinkyTip: {47, -108},
	})
}

// FeverLandmarks returns a preset hand showing the thermometer sign.
// Thumb and index tips pinch together while the other fingers stand upright
// in a narrow column.
func FeverLandmarks() HandLandmarks {
	return handFrom(defaultWrist, "Right", [NumLandmarks][2]float64{
		Wrist:    {0, 0},
		ThumbCMC: {-15, -10}, ThumbMCP: {-28, -28}, ThumbIP: {-30, -45}, ThumbTip: {-22, -58},
		IndexMCP: {-20, -60}, IndexPIP: {-30, -75}, IndexDIP: {-30, -65}, IndexTip: {-25, -55},
		MiddleMCP: {0, -60}, MiddlePIP: {0, -100}, MiddleDIP: {0, -125}, MiddleTip: {0, -150},
		RingMCP: {15, -55}, RingPIP: {17, -92}, RingDIP: {19, -115}, RingTip: {20, -138},
		PinkyMCP: {30, -50}, PinkyPIP: {33, -78}, PinkyDIP: {35, -95}, PinkyTip: {36, -112},
	})
}

// OpenPalmLandmarks returns a preset hand with all fingers extended.
// None of the built-in rules accept it.
func OpenPalmLandmarks() HandLandmarks {
	return handFrom(defaultWrist, "Right", [NumLandmarks][2]float64{
		Wrist:    {0, 0},
		ThumbCMC: {-20, -10}, ThumbMCP: {-45, -25}, ThumbIP: {-65, -40}, ThumbTip: {-85, -50},
		IndexMCP: {-25, -60}, IndexPIP: {-32, -100}, IndexDIP: {-36, -125}, IndexTip: {-40, -150},
		MiddleMCP: {0, -62}, MiddlePIP: {0, -105}, MiddleDIP: {0, -132}, MiddleTip: {0, -160},
		RingMCP: {18, -58}, RingPIP: {24, -98}, RingDIP: {28, -122}, RingTip: {32, -145},
		PinkyMCP: {34, -50}, PinkyPIP: {44, -80}, PinkyDIP: {50, -100}, PinkyTip: {55, -118},
	})
}

// heartOffsets describes the left hand of a two-hand heart, fingers pointing
// toward the centre of the frame.
var heartOffsets = [NumLandmarks][2]float64{
	Wrist:    {0, 0},
	ThumbCMC: {20, -5}, ThumbMCP: {45, -10}, ThumbIP: {70, -15}, ThumbTip: {90, -20},
	IndexMCP: {30, -55}, IndexPIP: {50, -75}, IndexDIP: {65, -90}, IndexTip: {75, -100},
	MiddleMCP: {15, -60}, MiddlePIP: {30, -45}, MiddleDIP: {35, -30}, MiddleTip: {30, -15},
	RingMCP: {0, -58}, RingPIP: {12, -42}, RingDIP: {16, -28}, RingTip: {12, -14},
	PinkyMCP: {-15, -52}, PinkyPIP: {-5, -40}, PinkyDIP: {0, -26}, PinkyTip: {-3, -12},
}

// HeartLandmarks returns the two hands of a heart sign.
// Wrists are 200px apart, thumb tips 20px apart and index tips 50px apart.
func HeartLandmarks() []HandLandmarks {
	left := handFrom(Point3D{X: 220, Y: 400}, "Left", heartOffsets)
	right := handFrom(Point3D{X: 420, Y: 400}, "Right", mirror(heartOffsets))
	return []HandLandmarks{left, right}
}

// PeaceFrame wraps PeaceLandmarks in a single-hand frame.
func PeaceFrame() Frame { return NewFrame(time.Time{}, PeaceLandmarks()) }

// OKFrame wraps OKLandmarks in a single-hand frame.
func OKFrame() Frame { return NewFrame(time.Time{}, OKLandmarks()) }

// FeverFrame wraps FeverLandmarks in a single-hand frame.
func FeverFrame() Frame { return NewFrame(time.Time{}, FeverLandmarks()) }

// OpenPalmFrame wraps OpenPalmLandmarks in a single-hand frame.
func OpenPalmFrame() Frame { return NewFrame(time.Time{}, OpenPalmLandmarks()) }

// HeartFrame wraps HeartLandmarks in a two-hand frame.
func HeartFrame() Frame { return NewFrame(time.Time{}, HeartLandmarks()...) }
