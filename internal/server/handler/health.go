package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	mode        string
	stakeToken  common.Address
	rewardToken common.Address
	startedAt   time.Time
	logger      *slog.Logger
}

// NewHealthHandler creates a HealthHandler with the provided runtime metadata.
func NewHealthHandler(mode string, stakeToken, rewardToken common.Address, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		mode:        mode,
		stakeToken:  stakeToken,
		rewardToken: rewardToken,
		startedAt:   time.Now().UTC(),
		logger:      logger,
	}
}

// HealthCheck responds with the service status and the token pair it serves.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"mode":           h.mode,
		"stake_token":    h.stakeToken.Hex(),
		"reward_token":   h.rewardToken.Hex(),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
