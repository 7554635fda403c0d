package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/detector"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/gesture"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/session"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/sink"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/store"
)

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// stamped returns raw copies of frame observed 33ms apart starting at base.
func stamped(frame detector.Frame, n int, offset int) []detector.RawFrame {
	raws := make([]detector.RawFrame, n)
	for i := range raws {
		f := frame
		f.ObservedAt = base.Add(time.Duration(offset+i) * 33 * time.Millisecond)
		raws[i] = f.ToRaw()
	}
	return raws
}

func newTestApp(t *testing.T, withStore bool, cfg session.Config) (*App, *sink.Channel) {
	t.Helper()

	var s *store.Store
	if withStore {
		var err error
		s, err = store.New(filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("store.New() error = %v", err)
		}
		t.Cleanup(func() { s.Close() })
	}

	out := sink.NewChannel(16)
	a := New(Config{
		Store:   s,
		Session: cfg,
		Sink:    out,
	})
	return a, out
}

func drain(c *sink.Channel) []session.DetectionResult {
	var got []session.DetectionResult
	for {
		select {
		case r := <-c.C():
			got = append(got, r)
		default:
			return got
		}
	}
}

func TestApp_Run_RuleDetection(t *testing.T) {
	a, out := newTestApp(t, false, session.DefaultConfig())

	if err := a.StartSession(context.Background(), -1); err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}

	frames := stamped(detector.PeaceFrame(), 3, 0)
	// A hand with too few landmarks is dropped at the boundary.
	broken := detector.RawFrame{Hands: []detector.RawHand{{Landmarks: [][]float64{{1, 2}}}}}
	src := detector.NewMockSource(frames[0], broken, frames[1], frames[2])

	if err := a.Run(context.Background(), src); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := drain(out)
	if len(got) != 1 {
		t.Fatalf("expected 1 detection, got %d: %+v", len(got), got)
	}
	if got[0].Label != gesture.LabelPeace {
		t.Errorf("label = %q, want %q", got[0].Label, gesture.LabelPeace)
	}
	if got[0].Confidence < 0.7 {
		t.Errorf("confidence = %f, want >= 0.7", got[0].Confidence)
	}
	if !got[0].ObservedAt.Equal(base.Add(66 * time.Millisecond)) {
		t.Errorf("observed at %v, want the third frame", got[0].ObservedAt)
	}

	st := a.Status()
	if st.Frames != 3 {
		t.Errorf("expected 3 processed frames, got %d", st.Frames)
	}
	if st.WindowLen != 0 {
		t.Errorf("window should be cleared after a vote, got %d samples", st.WindowLen)
	}
}

func TestApp_HandleFrame_Idle(t *testing.T) {
	a, out := newTestApp(t, false, session.DefaultConfig())

	for _, raw := range stamped(detector.OKFrame(), 5, 0) {
		if r := a.HandleFrame(raw); r != nil {
			t.Fatalf("idle app emitted %+v", r)
		}
	}
	if got := drain(out); len(got) != 0 {
		t.Errorf("expected no detections while idle, got %d", len(got))
	}
}

func TestApp_Run_Cancel(t *testing.T) {
	a, _ := newTestApp(t, false, session.DefaultConfig())

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, detector.NewJSONLSource(pr)) }()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestApp_Run_SourceError(t *testing.T) {
	a, _ := newTestApp(t, false, session.DefaultConfig())

	src := detector.NewMockSource()
	src.SetError(errors.New("tracker crashed"))

	if err := a.Run(context.Background(), src); err == nil {
		t.Fatal("expected source error to be returned")
	}
}

func TestApp_TemplateDetection(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg := session.DefaultConfig()
	cfg.RequireTemplates = true
	a, out := newTestApp(t, true, cfg)

	// Without a recorded sign a template-only session cannot start.
	if err := a.StartSession(context.Background(), -1); !errors.Is(err, session.ErrNoTemplates) {
		t.Fatalf("StartSession() error = %v, want ErrNoTemplates", err)
	}

	sign, err := a.CreateSign(gesture.Recording{
		Name:        "Stop",
		Description: "open palm facing the camera",
		Frames:      stamped(detector.OpenPalmFrame(), 4, 0),
	})
	if err != nil {
		t.Fatalf("CreateSign() error = %v", err)
	}
	if sign.ID == "" || sign.FrameCount != 4 || sign.Confidence != 1.0 {
		t.Errorf("unexpected sign %+v", sign)
	}

	if err := a.StartSession(context.Background(), -1); err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if st := a.Status(); st.Templates != 1 {
		t.Fatalf("expected 1 loaded template, got %d", st.Templates)
	}

	// The palm is moved across the frame; matching is translation invariant.
	palm := detector.NewFrame(time.Time{}, detector.OpenPalmLandmarks().Translate(detector.Point3D{X: -120, Y: 40}))
	for _, raw := range stamped(palm, 3, 10) {
		a.HandleFrame(raw)
	}

	got := drain(out)
	if len(got) != 1 || got[0].Label != "Stop" {
		t.Fatalf("expected one Stop detection, got %+v", got)
	}
}

func TestApp_CreateSign_Errors(t *testing.T) {
	a, _ := newTestApp(t, true, session.DefaultConfig())

	rec := gesture.Recording{Name: "Hola", Frames: stamped(detector.PeaceFrame(), 2, 0)}
	if _, err := a.CreateSign(rec); err != nil {
		t.Fatalf("CreateSign() error = %v", err)
	}

	tests := []struct {
		name string
		rec  gesture.Recording
		want error
	}{
		{"duplicate", rec, ErrSignExists},
		{"blank name", gesture.Recording{Name: "  ", Frames: rec.Frames}, ErrNameRequired},
		{"no frames", gesture.Recording{Name: "Vacío"}, gesture.ErrNoFrames},
		{"only empty frames", gesture.Recording{Name: "Vacío", Frames: []detector.RawFrame{{}, {}}}, gesture.ErrNoFrames},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.CreateSign(tt.rec); !errors.Is(err, tt.want) {
				t.Errorf("CreateSign() error = %v, want %v", err, tt.want)
			}
		})
	}

	signs, err := a.Store().Signs().List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(signs) != 1 {
		t.Errorf("failed recordings must not leave signs behind, got %d", len(signs))
	}

	noStore, _ := newTestApp(t, false, session.DefaultConfig())
	if _, err := noStore.CreateSign(rec); !errors.Is(err, ErrNoStore) {
		t.Errorf("CreateSign() without store error = %v, want ErrNoStore", err)
	}
}

func TestApp_ReplaceFrames(t *testing.T) {
	a, _ := newTestApp(t, true, session.DefaultConfig())

	sign, err := a.CreateSign(gesture.Recording{Name: "Hola", Frames: stamped(detector.PeaceFrame(), 2, 0)})
	if err != nil {
		t.Fatalf("CreateSign() error = %v", err)
	}

	updated, err := a.ReplaceFrames(sign.ID, gesture.Recording{Frames: stamped(detector.OKFrame(), 5, 0)})
	if err != nil {
		t.Fatalf("ReplaceFrames() error = %v", err)
	}
	if updated.FrameCount != 5 || updated.Name != "Hola" {
		t.Errorf("unexpected sign after replace: %+v", updated)
	}

	if _, err := a.ReplaceFrames("missing", gesture.Recording{Frames: stamped(detector.OKFrame(), 1, 0)}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ReplaceFrames() error = %v, want ErrNotFound", err)
	}
}

func TestStoreTemplates_SkipsBadFrames(t *testing.T) {
	a, _ := newTestApp(t, true, session.DefaultConfig())
	s := a.Store()

	if err := s.Signs().Create(&store.Sign{ID: "broken", Name: "Broken", Confidence: 1}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Frames().Replace("broken", []json.RawMessage{json.RawMessage(`"not a frame"`)}); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if _, err := a.CreateSign(gesture.Recording{Name: "Hola", Frames: stamped(detector.PeaceFrame(), 1, 0)}); err != nil {
		t.Fatalf("CreateSign() error = %v", err)
	}

	src := &storeTemplates{store: s, logger: a.logger}
	templates, err := src.LoadTemplates(context.Background())
	if err != nil {
		t.Fatalf("LoadTemplates() error = %v", err)
	}
	if len(templates) != 1 || templates[0].Name != "Hola" {
		t.Fatalf("expected only the Hola template, got %d", len(templates))
	}
	if templates[0].BaselineConfidence != 1.0 || len(templates[0].Frames) != 1 {
		t.Errorf("unexpected template %+v", templates[0])
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.LoadTemplates(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("LoadTemplates() error = %v, want context.Canceled", err)
	}
}
