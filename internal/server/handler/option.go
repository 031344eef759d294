package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/stakevault/internal/ledger"
)

// OptionHandler serves the option catalog endpoints.
type OptionHandler struct {
	engine *ledger.Engine
	logger *slog.Logger
}

// NewOptionHandler creates an OptionHandler over the given engine.
func NewOptionHandler(engine *ledger.Engine, logger *slog.Logger) *OptionHandler {
	return &OptionHandler{engine: engine, logger: logger}
}

// ListOptions returns the full catalog for the configured stake token.
// GET /api/options
func (h *OptionHandler) ListOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.engine.Options(r.Context(), h.engine.StakeToken())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stake_token": h.engine.StakeToken().Hex(),
		"options":     opts,
		"count":       len(opts),
	})
}

// GetOption returns a single catalog entry.
// GET /api/options/{index}
func (h *OptionHandler) GetOption(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndexParam(r, "index")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opt, err := h.engine.Option(r.Context(), h.engine.StakeToken(), index)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opt)
}

// QuoteRewards returns the rewards a hypothetical stake would earn under the
// given option, without touching any balances.
// GET /api/options/{index}/quote?amount=N
func (h *OptionHandler) QuoteRewards(w http.ResponseWriter, r *http.Request) {
	index, err := parseIndexParam(r, "index")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseAmount(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quote, err := h.engine.QuoteRewards(r.Context(), h.engine.StakeToken(), amount, index)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}
