package gesture

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/detector"
)

// ErrNoFrames is returned when a recording contains no usable frame.
var ErrNoFrames = errors.New("recording has no usable frames")

// DefaultMaxFrames bounds the number of frames kept per template.
const DefaultMaxFrames = 60

// Trainer processes recorded frames into sign templates.
type Trainer struct {
	Size      detector.FrameSize
	MaxFrames int
}

// NewTrainer creates a new Trainer instance for the given reference frame.
func NewTrainer(size detector.FrameSize) *Trainer {
	return &Trainer{Size: size, MaxFrames: DefaultMaxFrames}
}

// Recording is a captured sequence of tracker frames for one sign.
type Recording struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Frames      []detector.RawFrame `json:"frames"`
	// Average collapses the recording into a single mean frame.
	Average bool `json:"average,omitempty"`
}

// BuildTemplate validates a recording and turns it into a template.
// Malformed frames and frames without hands are dropped; if nothing is left the
// recording is rejected with ErrNoFrames. Long recordings are downsampled evenly to
// MaxFrames. The returned template has no ID yet.
func (t *Trainer) BuildTemplate(rec Recording) (*Template, error) {
	frames, err := t.ParseFrames(rec.Frames)
	if err != nil {
		return nil, err
	}

	if rec.Average {
		avg, err := Average(frames)
		if err != nil {
			return nil, err
		}
		frames = []TemplateFrame{avg}
	}

	return &Template{
		Name:               rec.Name,
		Description:        rec.Description,
		Frames:             resampleFrames(frames, t.MaxFrames),
		BaselineConfidence: 1.0,
	}, nil
}

// ParseFrames converts raw frames into template frames, skipping malformed and
// empty ones.
func (t *Trainer) ParseFrames(raws []detector.RawFrame) ([]TemplateFrame, error) {
	var frames []TemplateFrame
	for _, raw := range raws {
		f, err := detector.ParseFrame(raw, t.Size)
		if err != nil || f.Empty() {
			continue
		}
		frames = append(frames, FrameFromHands(f.Hands))
	}
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	return frames, nil
}

// Average collapses frames with the same number of hands into one frame whose
// points are the per-coordinate mean of the wrist-normalized inputs, placed at the
// mean wrist position. The first frame fixes the hand count; frames that differ
// are rejected.
func Average(frames []TemplateFrame) (TemplateFrame, error) {
	if len(frames) == 0 {
		return TemplateFrame{}, ErrNoFrames
	}

	numHands := len(frames[0].Hands)
	normalized := make([][][]detector.Point3D, len(frames))
	wrists := make([][]detector.Point3D, len(frames))
	for i, f := range frames {
		if len(f.Hands) != numHands {
			return TemplateFrame{}, fmt.Errorf("frame %d has %d hands, expected %d", i, len(f.Hands), numHands)
		}
		hands, ok := normalizeStored(f)
		if !ok {
			return TemplateFrame{}, fmt.Errorf("frame %d has a malformed hand", i)
		}
		normalized[i] = hands

		// normalizeStored reorders hands by wrist; keep wrists in the same order
		wrists[i] = make([]detector.Point3D, numHands)
		sorted := sortedStored(f)
		for h := range sorted {
			wrists[i][h] = sorted[h][detector.Wrist]
		}
	}

	n := len(frames)
	xs, ys, zs := make([]float64, n), make([]float64, n), make([]float64, n)
	mean := func(get func(i int) detector.Point3D) detector.Point3D {
		for i := 0; i < n; i++ {
			p := get(i)
			xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
		}
		return detector.Point3D{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil), Z: stat.Mean(zs, nil)}
	}

	out := TemplateFrame{Hands: make([][]detector.Point3D, numHands)}
	for h := 0; h < numHands; h++ {
		wrist := mean(func(i int) detector.Point3D { return wrists[i][h] })
		out.Hands[h] = make([]detector.Point3D, detector.NumLandmarks)
		for p := 0; p < detector.NumLandmarks; p++ {
			out.Hands[h][p] = mean(func(i int) detector.Point3D { return normalized[i][h][p] }).Add(wrist)
		}
	}
	return out, nil
}

// sortedStored returns the stored hands of a well-formed frame ordered by wrist x.
func sortedStored(tf TemplateFrame) [][]detector.Point3D {
	hands := make([]detector.HandLandmarks, len(tf.Hands))
	for i, pts := range tf.Hands {
		copy(hands[i].Points[:], pts)
	}
	sorted := detector.SortedByWrist(hands)
	out := make([][]detector.Point3D, len(sorted))
	for i := range sorted {
		out[i] = sorted[i].Slice()
	}
	return out
}

// resampleFrames picks at most limit frames spread evenly over the sequence,
// always keeping the first and last.
func resampleFrames(frames []TemplateFrame, limit int) []TemplateFrame {
	if limit <= 0 || len(frames) <= limit {
		return frames
	}
	if limit == 1 {
		return frames[:1]
	}

	out := make([]TemplateFrame, limit)
	step := float64(len(frames)-1) / float64(limit-1)
	for i := range out {
		out[i] = frames[int(float64(i)*step+0.5)]
	}
	return out
}
