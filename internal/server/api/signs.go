package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/app"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/detector"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/gesture"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/store"
)

// SignHandler handles HTTP requests for the sign library.
type SignHandler struct {
	app    *app.App
	store  *store.Store
	logger *zap.Logger
}

// NewSignHandler creates a new SignHandler. The app must have a store.
func NewSignHandler(a *app.App, logger *zap.Logger) *SignHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignHandler{app: a, store: a.Store(), logger: logger}
}

// ServeHTTP routes requests to the appropriate method.
// Expected paths: /api/signs, /api/signs/builtin, /api/signs/{id} and
// /api/signs/{id}/frames.
func (h *SignHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/signs")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			if name := r.URL.Query().Get("name"); name != "" {
				h.getByName(w, name)
				return
			}
			h.list(w)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if path == "builtin" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, listBuiltinResponse{Signs: gesture.BuiltinSigns()})
		return
	}

	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1:
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			h.get(w, id)
		case http.MethodPut:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "frames":
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			h.frames(w, id)
		case http.MethodPost:
			h.replaceFrames(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Request and response types

type createSignRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Frames      []detector.RawFrame `json:"frames"`
	Average     bool                `json:"average"`
}

type updateSignRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type replaceFramesRequest struct {
	Frames  []detector.RawFrame `json:"frames"`
	Average bool                `json:"average"`
}

type signResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
	Frames      int     `json:"frames"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type listSignsResponse struct {
	Signs []signResponse `json:"signs"`
}

type listBuiltinResponse struct {
	Signs []gesture.BuiltinSign `json:"signs"`
}

type framesResponse struct {
	SignID string            `json:"sign_id"`
	Frames []json.RawMessage `json:"frames"`
}

// toResponse converts a store.Sign to a signResponse.
func toResponse(sg *store.Sign) signResponse {
	return signResponse{
		ID:          sg.ID,
		Name:        sg.Name,
		Description: sg.Description,
		Confidence:  sg.Confidence,
		Frames:      sg.FrameCount,
		CreatedAt:   formatTime(sg.CreatedAt),
		UpdatedAt:   formatTime(sg.UpdatedAt),
	}
}

// list handles GET /api/signs and returns all signs, newest first.
func (h *SignHandler) list(w http.ResponseWriter) {
	signs, err := h.store.Signs().List()
	if err != nil {
		h.logger.Error("listing signs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list signs")
		return
	}

	response := listSignsResponse{Signs: make([]signResponse, 0, len(signs))}
	for _, sg := range signs {
		response.Signs = append(response.Signs, toResponse(sg))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/signs/{id}.
func (h *SignHandler) get(w http.ResponseWriter, id string) {
	sign, err := h.store.Signs().GetByID(id)
	if err != nil {
		h.writeStoreError(w, err, "Failed to get sign")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sign))
}

// getByName handles GET /api/signs?name=...
func (h *SignHandler) getByName(w http.ResponseWriter, name string) {
	sign, err := h.store.Signs().GetByName(name)
	if err != nil {
		h.writeStoreError(w, err, "Failed to get sign")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sign))
}

// create handles POST /api/signs: records a new sign from tracker frames.
func (h *SignHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	sign, err := h.app.CreateSign(gesture.Recording{
		Name:        req.Name,
		Description: req.Description,
		Frames:      req.Frames,
		Average:     req.Average,
	})
	if err != nil {
		h.writeRecordingError(w, err, "Failed to create sign")
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(sign))
}

// update handles PUT /api/signs/{id}: renames or re-describes a sign.
func (h *SignHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	sign, err := h.store.Signs().GetByID(id)
	if err != nil {
		h.writeStoreError(w, err, "Failed to get sign")
		return
	}

	var req updateSignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" && name != sign.Name {
		if _, err := h.store.Signs().GetByName(name); err == nil {
			writeError(w, http.StatusConflict, "A sign with this name already exists")
			return
		}
		sign.Name = name
	}
	if req.Description != nil {
		sign.Description = *req.Description
	}

	if err := h.store.Signs().Update(sign); err != nil {
		h.writeStoreError(w, err, "Failed to update sign")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sign))
}

// delete handles DELETE /api/signs/{id}.
func (h *SignHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Signs().Delete(id); err != nil {
		h.writeStoreError(w, err, "Failed to delete sign")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// frames handles GET /api/signs/{id}/frames and returns the stored template frames.
func (h *SignHandler) frames(w http.ResponseWriter, id string) {
	if _, err := h.store.Signs().GetByID(id); err != nil {
		h.writeStoreError(w, err, "Failed to get sign")
		return
	}

	frames, err := h.store.Frames().Get(id)
	if err != nil {
		h.writeStoreError(w, err, "Failed to get frames")
		return
	}
	if frames == nil {
		frames = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, framesResponse{SignID: id, Frames: frames})
}

// replaceFrames handles POST /api/signs/{id}/frames: re-records a sign.
func (h *SignHandler) replaceFrames(w http.ResponseWriter, r *http.Request, id string) {
	var req replaceFramesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	sign, err := h.app.ReplaceFrames(id, gesture.Recording{Frames: req.Frames, Average: req.Average})
	if err != nil {
		h.writeRecordingError(w, err, "Failed to replace frames")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sign))
}

func (h *SignHandler) writeStoreError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Sign not found")
		return
	}
	h.logger.Error(message, zap.Error(err))
	writeError(w, http.StatusInternalServerError, message)
}

func (h *SignHandler) writeRecordingError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, app.ErrNameRequired):
		writeError(w, http.StatusBadRequest, "Name is required")
	case errors.Is(err, app.ErrSignExists):
		writeError(w, http.StatusConflict, "A sign with this name already exists")
	case errors.Is(err, gesture.ErrNoFrames):
		writeError(w, http.StatusUnprocessableEntity, "Recording has no valid frames")
	default:
		h.writeStoreError(w, err, message)
	}
}
