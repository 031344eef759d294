package memory

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

var testAccount = common.HexToAddress("0x00000000000000000000000000000000000000e1")

func newPosition(id string, amount int64) domain.StakePosition {
	return domain.StakePosition{
		ID:      id,
		Account: testAccount,
		Amount:  big.NewInt(amount),
		Rewards: big.NewInt(amount / 10),
		Status:  domain.StatusOpen,
	}
}

func TestPositionStoreAppendGet(t *testing.T) {
	ctx := context.Background()
	s := NewPositionStore()

	index, err := s.Append(ctx, newPosition("a", 100))
	require.NoError(t, err)
	assert.Equal(t, 0, index)

	index, err = s.Append(ctx, newPosition("b", 200))
	require.NoError(t, err)
	assert.Equal(t, 1, index)

	got, err := s.Get(ctx, testAccount, 1)
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)

	_, err = s.Get(ctx, testAccount, 2)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
	_, err = s.Get(ctx, testAccount, -1)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
}

func TestPositionStoreSwapRemove(t *testing.T) {
	ctx := context.Background()
	s := NewPositionStore()

	for _, p := range []domain.StakePosition{newPosition("a", 1), newPosition("b", 2), newPosition("c", 3)} {
		_, err := s.Append(ctx, p)
		require.NoError(t, err)
	}

	removed, err := s.RemoveAt(ctx, testAccount, 0)
	require.NoError(t, err)
	assert.Equal(t, "a", removed.ID)

	// "c" swapped into the removed slot.
	got, err := s.Get(ctx, testAccount, 0)
	require.NoError(t, err)
	assert.Equal(t, "c", got.ID)

	count, err := s.Count(ctx, testAccount)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Removing the last element needs no swap.
	removed, err = s.RemoveAt(ctx, testAccount, 1)
	require.NoError(t, err)
	assert.Equal(t, "b", removed.ID)

	_, err = s.RemoveAt(ctx, testAccount, 1)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
}

func TestPositionStoreIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	s := NewPositionStore()

	pos := newPosition("a", 100)
	_, err := s.Append(ctx, pos)
	require.NoError(t, err)

	// Mutating the caller's copy must not reach the store.
	pos.Amount.SetInt64(999)
	got, err := s.Get(ctx, testAccount, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Amount.Int64())

	// And mutating a returned copy must not either.
	got.Amount.SetInt64(555)
	again, err := s.Get(ctx, testAccount, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(100), again.Amount.Int64())
}

func TestPositionStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewPositionStore()

	_, err := s.Append(ctx, newPosition("a", 100))
	require.NoError(t, err)

	updated := newPosition("a", 100)
	updated.Status = domain.StatusRewardsClaimed
	require.NoError(t, s.Update(ctx, testAccount, 0, updated))

	got, err := s.Get(ctx, testAccount, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRewardsClaimed, got.Status)

	err = s.Update(ctx, testAccount, 5, updated)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
}
