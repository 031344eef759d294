package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/stakevault/internal/ledger"
)

// PositionHandler serves the stake position endpoints.
type PositionHandler struct {
	engine *ledger.Engine
	logger *slog.Logger
}

// NewPositionHandler creates a PositionHandler over the given engine.
func NewPositionHandler(engine *ledger.Engine, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{engine: engine, logger: logger}
}

// stakeRequest is the body for opening a new position.
type stakeRequest struct {
	Account     string `json:"account"`
	Amount      string `json:"amount"`
	OptionIndex int    `json:"option_index"`
}

// Stake opens a new position for the account.
// POST /api/stake
func (h *PositionHandler) Stake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := parseAddress(req.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pos, index, err := h.engine.Stake(r.Context(), account, h.engine.StakeToken(), amount, req.OptionIndex)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"position": pos,
		"index":    index,
	})
}

// ListPositions returns all of an account's open positions.
// GET /api/positions?account=0x..
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	account, err := parseAddress(r.URL.Query().Get("account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	positions, err := h.engine.Positions(r.Context(), account)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account":   account.Hex(),
		"positions": positions,
		"count":     len(positions),
	})
}

// accountRequest is the body for operations on an existing position.
type accountRequest struct {
	Account string `json:"account"`
}

// Withdraw closes the position at the given index and pays out principal and
// any unclaimed rewards. Position indices shift on removal, so the response
// is the authoritative record of what was withdrawn.
// POST /api/positions/{index}/withdraw
func (h *PositionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndexParam(r, "index")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := parseAddress(req.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	archived, err := h.engine.Withdraw(r.Context(), account, h.engine.StakeToken(), index)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, archived)
}

// ClaimRewards pays out the position's rewards ahead of withdrawal.
// POST /api/positions/{index}/claim
func (h *PositionHandler) ClaimRewards(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndexParam(r, "index")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := parseAddress(req.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	paid, err := h.engine.ClaimRewards(r.Context(), account, index)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account": account.Hex(),
		"index":   index,
		"rewards": paid.String(),
	})
}

// Claimable reports whether the position's rewards can be claimed right now.
// GET /api/positions/{index}/claimable?account=0x..
func (h *PositionHandler) Claimable(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndexParam(r, "index")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	account, err := parseAddress(r.URL.Query().Get("account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	claimable, err := h.engine.Claimable(r.Context(), account, index)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account":   account.Hex(),
		"index":     index,
		"claimable": claimable,
	})
}
