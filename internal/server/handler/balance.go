package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/stakevault/internal/ledger"
)

// BalanceHandler serves the custody balance endpoint.
type BalanceHandler struct {
	engine *ledger.Engine
	logger *slog.Logger
}

// NewBalanceHandler creates a BalanceHandler over the given engine.
func NewBalanceHandler(engine *ledger.Engine, logger *slog.Logger) *BalanceHandler {
	return &BalanceHandler{engine: engine, logger: logger}
}

// AvailableBalance reports custody's unreserved balance for both ledger
// tokens. A reservation underflow here means the ledger and the chain have
// diverged and surfaces as a 500.
// GET /api/balance
func (h *BalanceHandler) AvailableBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stakeAvail, err := h.engine.AvailableBalance(ctx, h.engine.StakeToken())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	rewardAvail, err := h.engine.AvailableBalance(ctx, h.engine.RewardToken())
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stake_token":      h.engine.StakeToken().Hex(),
		"stake_available":  stakeAvail.String(),
		"reward_token":     h.engine.RewardToken().Hex(),
		"reward_available": rewardAvail.String(),
	})
}
