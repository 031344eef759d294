package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/stakevault/internal/domain"
	"github.com/alanyoungcy/stakevault/internal/ledger"
)

// AdminHandler serves the stake-owner and service-owner endpoints. All routes
// sit behind the admin key middleware; the caller address in the body is
// still checked against the ledger's authority store, so a leaked admin key
// alone cannot act as an owner.
type AdminHandler struct {
	engine *ledger.Engine
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler over the given engine and audit
// store.
func NewAdminHandler(engine *ledger.Engine, audit domain.AuditStore, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{engine: engine, audit: audit, logger: logger}
}

// addOptionRequest is the body for appending a catalog entry.
type addOptionRequest struct {
	Caller            string `json:"caller"`
	PeriodInDays      uint32 `json:"period_in_days"`
	BonusInPercentage uint32 `json:"bonus_in_percentage"`
	RewardToken       string `json:"reward_token"`
	DepositType       string `json:"deposit_type"`
}

// AddOption appends an option to the configured stake token's catalog.
// POST /api/admin/options
func (h *AdminHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	var req addOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rewardToken, err := parseAddress(req.RewardToken)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opt := domain.StakeOption{
		PeriodInDays:      req.PeriodInDays,
		BonusInPercentage: req.BonusInPercentage,
		RewardToken:       rewardToken,
		DepositType:       domain.DepositType(req.DepositType),
	}

	index, err := h.engine.AddOption(r.Context(), caller, h.engine.StakeToken(), opt)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"index":  index,
		"option": opt,
	})
}

// ownerRequest is the body for stake-owner management.
type ownerRequest struct {
	Caller string `json:"caller"`
	Owner  string `json:"owner"`
}

// AddStakeOwner grants stake-owner rights. Only the service owner may call.
// POST /api/admin/owners
func (h *AdminHandler) AddStakeOwner(w http.ResponseWriter, r *http.Request) {
	var req ownerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.AddStakeOwner(r.Context(), caller, h.engine.StakeToken(), owner); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// transferOwnershipRequest is the body for handing stake ownership over.
type transferOwnershipRequest struct {
	Caller   string `json:"caller"`
	NewOwner string `json:"new_owner"`
}

// TransferOwnership moves the caller's stake-owner rights to a new address.
// POST /api/admin/ownership
func (h *AdminHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req transferOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	newOwner, err := parseAddress(req.NewOwner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.TransferStakeOwnership(r.Context(), caller, h.engine.StakeToken(), newOwner); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pauseRequest is the body for flipping the pause flag.
type pauseRequest struct {
	Caller string `json:"caller"`
	Paused bool   `json:"paused"`
}

// SetPaused pauses or resumes new stakes on the configured token.
// POST /api/admin/pause
func (h *AdminHandler) SetPaused(w http.ResponseWriter, r *http.Request) {
	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.SetPaused(r.Context(), caller, h.engine.StakeToken(), req.Paused); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paused": req.Paused})
}

// ListAudit returns recent audit entries, newest first.
// GET /api/admin/audit
func (h *AdminHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, http.StatusNotFound, "audit log not configured")
		return
	}

	entries, err := h.audit.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "audit list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries":   entries,
		"count":     len(entries),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
