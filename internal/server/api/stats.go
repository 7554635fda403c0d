package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/store"
)

// RecentWindow is how far back a sign counts as recently added.
const RecentWindow = 7 * 24 * time.Hour

// StatsHandler serves library statistics.
type StatsHandler struct {
	store  *store.Store
	now    func() time.Time
	logger *zap.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(s *store.Store, logger *zap.Logger) *StatsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsHandler{store: s, now: time.Now, logger: logger}
}

// ServeHTTP handles GET /api/stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.store.Signs().Stats(h.now().Add(-RecentWindow))
	if err != nil {
		h.logger.Error("computing stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
