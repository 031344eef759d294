package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/stakevault/internal/domain"
	"github.com/alanyoungcy/stakevault/internal/ledger"
	"github.com/alanyoungcy/stakevault/internal/store/memory"
	"github.com/alanyoungcy/stakevault/internal/token"
)

var (
	testStakeToken   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testRewardToken  = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	testCustody      = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	testServiceOwner = common.HexToAddress("0x00000000000000000000000000000000000000d0")
	testAlice        = common.HexToAddress("0x00000000000000000000000000000000000000e1")
)

// newTestMux builds the API routes over an engine backed by memory stores and
// the token simulator, mirroring the server's route table.
func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	ctx := context.Background()

	sim := token.NewSimulator(testCustody)
	audit := memory.NewAuditStore()

	engine, err := ledger.NewEngine(ledger.Config{
		StakeToken:   testStakeToken,
		RewardToken:  testRewardToken,
		ServiceOwner: testServiceOwner,
		Options:      memory.NewOptionStore(),
		Positions:    memory.NewPositionStore(),
		Reservations: memory.NewReservationStore(),
		Authority:    memory.NewAuthorityStore(),
		Token:        sim,
		Audit:        audit,
		Archive:      memory.NewArchiveStore(),
	})
	require.NoError(t, err)

	require.NoError(t, engine.AddStakeOwner(ctx, testServiceOwner, testStakeToken, testServiceOwner))
	_, err = engine.AddOption(ctx, testServiceOwner, testStakeToken, domain.StakeOption{
		PeriodInDays:      30,
		BonusInPercentage: 100,
		RewardToken:       testRewardToken,
		DepositType:       domain.DepositImmediate,
	})
	require.NoError(t, err)

	sim.Mint(testRewardToken, testCustody, big.NewInt(1000))
	sim.Mint(testStakeToken, testAlice, big.NewInt(10000))
	sim.Approve(testStakeToken, testAlice, big.NewInt(10000))

	logger := slog.Default()
	options := NewOptionHandler(engine, logger)
	positions := NewPositionHandler(engine, logger)
	balance := NewBalanceHandler(engine, logger)
	admin := NewAdminHandler(engine, audit, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/options", options.ListOptions)
	mux.HandleFunc("GET /api/options/{index}", options.GetOption)
	mux.HandleFunc("GET /api/options/{index}/quote", options.QuoteRewards)
	mux.HandleFunc("POST /api/stake", positions.Stake)
	mux.HandleFunc("GET /api/positions", positions.ListPositions)
	mux.HandleFunc("POST /api/positions/{index}/withdraw", positions.Withdraw)
	mux.HandleFunc("POST /api/positions/{index}/claim", positions.ClaimRewards)
	mux.HandleFunc("GET /api/positions/{index}/claimable", positions.Claimable)
	mux.HandleFunc("GET /api/balance", balance.AvailableBalance)
	mux.HandleFunc("POST /api/admin/pause", admin.SetPaused)
	mux.HandleFunc("GET /api/admin/audit", admin.ListAudit)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestListOptions(t *testing.T) {
	mux := newTestMux(t)

	w, out := doJSON(t, mux, http.MethodGet, "/api/options", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), out["count"])
	assert.Equal(t, testStakeToken.Hex(), out["stake_token"])
}

func TestGetOptionOutOfRange(t *testing.T) {
	mux := newTestMux(t)

	w, _ := doJSON(t, mux, http.MethodGet, "/api/options/5", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuoteRewards(t *testing.T) {
	mux := newTestMux(t)

	w, out := doJSON(t, mux, http.MethodGet, "/api/options/0/quote?amount=100", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(10), out["rewards"])
}

func TestStakeFlow(t *testing.T) {
	mux := newTestMux(t)

	body := `{"account":"` + testAlice.Hex() + `","amount":"100","option_index":0}`
	w, out := doJSON(t, mux, http.MethodPost, "/api/stake", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(0), out["index"])

	w, out = doJSON(t, mux, http.MethodGet, "/api/positions?account="+testAlice.Hex(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), out["count"])

	// Immediate deposits are not claimable before the lock ends.
	w, out = doJSON(t, mux, http.MethodGet, "/api/positions/0/claimable?account="+testAlice.Hex(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, out["claimable"])

	// Withdrawing before the end date conflicts with the lock.
	w, _ = doJSON(t, mux, http.MethodPost, "/api/positions/0/withdraw",
		`{"account":"`+testAlice.Hex()+`"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStakeRejectsBadInput(t *testing.T) {
	mux := newTestMux(t)

	w, _ := doJSON(t, mux, http.MethodPost, "/api/stake", `{"account":"nope","amount":"100"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, mux, http.MethodPost, "/api/stake",
		`{"account":"`+testAlice.Hex()+`","amount":"0","option_index":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, mux, http.MethodPost, "/api/stake", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPauseBlocksStaking(t *testing.T) {
	mux := newTestMux(t)

	w, out := doJSON(t, mux, http.MethodPost, "/api/admin/pause",
		`{"caller":"`+testServiceOwner.Hex()+`","paused":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["paused"])

	w, _ = doJSON(t, mux, http.MethodPost, "/api/stake",
		`{"account":"`+testAlice.Hex()+`","amount":"100","option_index":0}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPauseRequiresStakeOwner(t *testing.T) {
	mux := newTestMux(t)

	w, _ := doJSON(t, mux, http.MethodPost, "/api/admin/pause",
		`{"caller":"`+testAlice.Hex()+`","paused":true}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBalanceEndpoint(t *testing.T) {
	mux := newTestMux(t)

	w, out := doJSON(t, mux, http.MethodGet, "/api/balance", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1000", out["reward_available"])
	assert.Equal(t, "0", out["stake_available"])
}

func TestAuditListsActions(t *testing.T) {
	mux := newTestMux(t)

	body := `{"account":"` + testAlice.Hex() + `","amount":"100","option_index":0}`
	w, _ := doJSON(t, mux, http.MethodPost, "/api/stake", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w, out := doJSON(t, mux, http.MethodGet, "/api/admin/audit", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.GreaterOrEqual(t, out["count"].(float64), float64(1))
}
