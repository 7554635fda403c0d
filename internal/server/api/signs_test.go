package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/app"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/detector"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/gesture"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/session"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/store"
)

// newTestApp creates an App backed by a temporary sign library.
func newTestApp(t *testing.T) *app.App {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "gesture-alert-api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	s, err := store.New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return app.New(app.Config{Store: s, Session: session.DefaultConfig()})
}

func recording(frame detector.Frame, n int) []detector.RawFrame {
	raws := make([]detector.RawFrame, n)
	for i := range raws {
		raws[i] = frame.ToRaw()
	}
	return raws
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSignHandler_Create(t *testing.T) {
	a := newTestApp(t)
	handler := NewSignHandler(a, nil)

	rec := do(t, handler, http.MethodPost, "/api/signs", createSignRequest{
		Name:        "Hola",
		Description: "Saludo",
		Frames:      recording(detector.PeaceFrame(), 3),
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response signResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.ID == "" {
		t.Error("expected non-empty ID in response")
	}

	want := signResponse{
		ID:          response.ID,
		Name:        "Hola",
		Description: "Saludo",
		Confidence:  1.0,
		Frames:      3,
		CreatedAt:   response.CreatedAt,
		UpdatedAt:   response.UpdatedAt,
	}
	if diff := cmp.Diff(want, response); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}

	stored, err := a.Store().Signs().GetByID(response.ID)
	if err != nil {
		t.Fatalf("failed to get created sign: %v", err)
	}
	if stored.FrameCount != 3 {
		t.Errorf("stored frame count = %d, want 3", stored.FrameCount)
	}
}

func TestSignHandler_Create_Errors(t *testing.T) {
	a := newTestApp(t)
	handler := NewSignHandler(a, nil)

	first := createSignRequest{Name: "Hola", Frames: recording(detector.PeaceFrame(), 1)}
	if rec := do(t, handler, http.MethodPost, "/api/signs", first); rec.Code != http.StatusCreated {
		t.Fatalf("setup: expected status %d, got %d", http.StatusCreated, rec.Code)
	}

	tests := []struct {
		name string
		body any
		want int
	}{
		{"invalid JSON", "invalid json", http.StatusBadRequest},
		{"missing name", createSignRequest{Frames: first.Frames}, http.StatusBadRequest},
		{"duplicate name", first, http.StatusConflict},
		{"no frames", createSignRequest{Name: "Adiós"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, handler, http.MethodPost, "/api/signs", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSignHandler_ListAndGet(t *testing.T) {
	a := newTestApp(t)
	handler := NewSignHandler(a, nil)

	created, err := a.CreateSign(gesture.Recording{Name: "Hola", Frames: recording(detector.OKFrame(), 2)})
	if err != nil {
		t.Fatalf("failed to create sign: %v", err)
	}

	rec := do(t, handler, http.MethodGet, "/api/signs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var listed listSignsResponse
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(listed.Signs) != 1 || listed.Signs[0].ID != created.ID {
		t.Fatalf("unexpected list: %+v", listed.Signs)
	}

	rec = do(t, handler, http.MethodGet, "/api/signs/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("GET by id: expected status %d, got %d", http.StatusOK, rec.Code)
	}

	rec = do(t, handler, http.MethodGet, "/api/signs?name=Hola", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("GET by name: expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var byName signResponse
	json.NewDecoder(rec.Body).Decode(&byName)
	if byName.ID != created.ID {
		t.Errorf("GET by name returned %q, want %q", byName.ID, created.ID)
	}

	for _, target := range []string{"/api/signs/non-existent", "/api/signs?name=Nada", "/api/signs/non-existent/frames"} {
		if rec := do(t, handler, http.MethodGet, target, nil); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected status %d, got %d", target, http.StatusNotFound, rec.Code)
		}
	}
}

func TestSignHandler_List_Empty(t *testing.T) {
	handler := NewSignHandler(newTestApp(t), nil)

	rec := do(t, handler, http.MethodGet, "/api/signs", nil)
	if got := rec.Body.String(); got != "{\"signs\":[]}\n" {
		t.Errorf("expected empty list, got %q", got)
	}
}

func TestSignHandler_Update(t *testing.T) {
	a := newTestApp(t)
	handler := NewSignHandler(a, nil)

	sign, _ := a.CreateSign(gesture.Recording{Name: "Hola", Frames: recording(detector.OKFrame(), 1)})
	other, _ := a.CreateSign(gesture.Recording{Name: "Gracias", Frames: recording(detector.OKFrame(), 1)})

	desc := "Saludo informal"
	rec := do(t, handler, http.MethodPut, "/api/signs/"+sign.ID, updateSignRequest{Name: "Hola!", Description: &desc})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	got, _ := a.Store().Signs().GetByID(sign.ID)
	if got.Name != "Hola!" || got.Description != desc {
		t.Errorf("update not persisted: %+v", got)
	}

	rec = do(t, handler, http.MethodPut, "/api/signs/"+other.ID, updateSignRequest{Name: "Hola!"})
	if rec.Code != http.StatusConflict {
		t.Errorf("rename onto existing name: expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestSignHandler_Delete(t *testing.T) {
	a := newTestApp(t)
	handler := NewSignHandler(a, nil)

	sign, _ := a.CreateSign(gesture.Recording{Name: "Hola", Frames: recording(detector.OKFrame(), 1)})

	if rec := do(t, handler, http.MethodDelete, "/api/signs/"+sign.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if rec := do(t, handler, http.MethodDelete, "/api/signs/"+sign.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSignHandler_Frames(t *testing.T) {
	a := newTestApp(t)
	handler := NewSignHandler(a, nil)

	sign, _ := a.CreateSign(gesture.Recording{Name: "Hola", Frames: recording(detector.OKFrame(), 1)})

	rec := do(t, handler, http.MethodPost, "/api/signs/"+sign.ID+"/frames", replaceFramesRequest{
		Frames: recording(detector.HeartFrame(), 4),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var updated signResponse
	json.NewDecoder(rec.Body).Decode(&updated)
	if updated.Frames != 4 {
		t.Errorf("frames = %d, want 4", updated.Frames)
	}

	rec = do(t, handler, http.MethodGet, "/api/signs/"+sign.ID+"/frames", nil)
	var frames struct {
		SignID string                  `json:"sign_id"`
		Frames []gesture.TemplateFrame `json:"frames"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&frames); err != nil {
		t.Fatalf("failed to decode frames: %v", err)
	}
	if len(frames.Frames) != 4 || len(frames.Frames[0].Hands) != 2 {
		t.Errorf("unexpected stored frames: %d frames", len(frames.Frames))
	}

	rec = do(t, handler, http.MethodPost, "/api/signs/missing/frames", replaceFramesRequest{Frames: recording(detector.OKFrame(), 1)})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown sign: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSignHandler_Builtin(t *testing.T) {
	handler := NewSignHandler(newTestApp(t), nil)

	rec := do(t, handler, http.MethodGet, "/api/signs/builtin", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listBuiltinResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if diff := cmp.Diff(gesture.BuiltinSigns(), response.Signs); diff != "" {
		t.Errorf("builtin catalogue mismatch (-want +got):\n%s", diff)
	}
}

func TestSignHandler_MethodNotAllowed(t *testing.T) {
	handler := NewSignHandler(newTestApp(t), nil)

	cases := []struct{ method, target string }{
		{http.MethodPatch, "/api/signs"},
		{http.MethodPost, "/api/signs/builtin"},
		{http.MethodPatch, "/api/signs/some-id"},
		{http.MethodDelete, "/api/signs/some-id/frames"},
	}
	for _, c := range cases {
		if rec := do(t, handler, c.method, c.target, nil); rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status %d, got %d", c.method, c.target, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}

func TestStatsHandler(t *testing.T) {
	a := newTestApp(t)
	handler := NewStatsHandler(a.Store(), nil)

	for _, name := range []string{"Hola", "Gracias"} {
		if _, err := a.CreateSign(gesture.Recording{Name: name, Frames: recording(detector.OKFrame(), 1)}); err != nil {
			t.Fatalf("failed to create sign: %v", err)
		}
	}

	rec := do(t, handler, http.MethodGet, "/api/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var stats store.Stats
	json.NewDecoder(rec.Body).Decode(&stats)
	if diff := cmp.Diff(store.Stats{Total: 2, MeanConfidence: 1, RecentlyAdded: 2}, stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}

	// Nothing counts as recent once the clock moves past the window.
	handler.now = func() time.Time { return time.Now().Add(RecentWindow + time.Hour) }
	rec = do(t, handler, http.MethodGet, "/api/stats", nil)
	json.NewDecoder(rec.Body).Decode(&stats)
	if stats.RecentlyAdded != 0 {
		t.Errorf("recently added = %d, want 0", stats.RecentlyAdded)
	}
}
