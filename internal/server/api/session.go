package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/app"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/session"
)

// SessionHandler starts, stops and reports the detection session.
type SessionHandler struct {
	app    *app.App
	logger *zap.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(a *app.App, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{app: a, logger: logger}
}

type startSessionRequest struct {
	// TimeoutMs overrides the configured timeout. Zero disables it.
	TimeoutMs *int64 `json:"timeout_ms"`
}

// ServeHTTP handles /api/session.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.app.Status())
	case http.MethodPost:
		h.start(w, r)
	case http.MethodDelete:
		h.stop(w)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SessionHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var timeout time.Duration
	if req.TimeoutMs != nil {
		if *req.TimeoutMs < 0 {
			writeError(w, http.StatusBadRequest, "timeout_ms must not be negative")
			return
		}
		timeout = time.Duration(*req.TimeoutMs) * time.Millisecond
		if timeout == 0 {
			timeout = -1
		}
	}

	if err := h.app.StartSession(r.Context(), timeout); err != nil {
		if errors.Is(err, session.ErrNoTemplates) {
			writeError(w, http.StatusConflict, "No recorded signs available")
			return
		}
		h.logger.Error("starting session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	writeJSON(w, http.StatusOK, h.app.Status())
}

func (h *SessionHandler) stop(w http.ResponseWriter) {
	if err := h.app.StopSession(); err != nil {
		if errors.Is(err, session.ErrNotSampling) {
			writeError(w, http.StatusConflict, "Session is not running")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to stop session")
		return
	}
	writeJSON(w, http.StatusOK, h.app.Status())
}
