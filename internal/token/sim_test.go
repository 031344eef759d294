package token

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

var (
	simToken   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	simCustody = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	simHolder  = common.HexToAddress("0x00000000000000000000000000000000000000e1")
)

func TestSimulatorTransferFrom(t *testing.T) {
	ctx := context.Background()
	s := NewSimulator(simCustody)
	s.Mint(simToken, simHolder, big.NewInt(100))

	// No allowance yet.
	err := s.TransferFrom(ctx, simToken, simHolder, big.NewInt(50))
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	s.Approve(simToken, simHolder, big.NewInt(60))
	require.NoError(t, s.TransferFrom(ctx, simToken, simHolder, big.NewInt(50)))

	bal, err := s.BalanceOf(ctx, simToken, simCustody)
	require.NoError(t, err)
	assert.Equal(t, int64(50), bal.Int64())

	// Allowance is consumed, not reset.
	err = s.TransferFrom(ctx, simToken, simHolder, big.NewInt(20))
	assert.ErrorIs(t, err, domain.ErrTransferFailed)
	require.NoError(t, s.TransferFrom(ctx, simToken, simHolder, big.NewInt(10)))
}

func TestSimulatorTransferChecksBalance(t *testing.T) {
	ctx := context.Background()
	s := NewSimulator(simCustody)
	s.Mint(simToken, simCustody, big.NewInt(30))

	err := s.Transfer(ctx, simToken, simHolder, big.NewInt(31))
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	require.NoError(t, s.Transfer(ctx, simToken, simHolder, big.NewInt(30)))
	bal, err := s.BalanceOf(ctx, simToken, simHolder)
	require.NoError(t, err)
	assert.Equal(t, int64(30), bal.Int64())
}

func TestSimulatorFailNextTransfer(t *testing.T) {
	ctx := context.Background()
	s := NewSimulator(simCustody)
	s.Mint(simToken, simCustody, big.NewInt(100))

	s.FailNextTransfer()
	err := s.Transfer(ctx, simToken, simHolder, big.NewInt(10))
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	// Only the next transfer fails.
	require.NoError(t, s.Transfer(ctx, simToken, simHolder, big.NewInt(10)))
}
