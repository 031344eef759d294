package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/stakevault/internal/domain"
	"github.com/alanyoungcy/stakevault/internal/store/memory"
	"github.com/alanyoungcy/stakevault/internal/token"
)

var (
	testStakeToken   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testRewardToken  = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	testCustody      = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	testServiceOwner = common.HexToAddress("0x00000000000000000000000000000000000000d0")
	testStakeOwner   = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	testAlice        = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	testBob          = common.HexToAddress("0x00000000000000000000000000000000000000e2")
)

const week = 7 * 24 * time.Hour

type fixture struct {
	engine       *Engine
	sim          *token.Simulator
	positions    *memory.PositionStore
	reservations *memory.ReservationStore
	clock        time.Time
}

// newFixture builds an engine over memory stores and the token simulator
// with a controllable clock. The catalog gets three options: 0 immediate
// (30 days), 1 short term (24 weeks), 2 long term (52 weeks). Custody is
// funded with rewardBalance reward units; alice gets 10000 approved stake
// units.
func newFixture(t *testing.T, rewardBalance int64) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		sim:          token.NewSimulator(testCustody),
		positions:    memory.NewPositionStore(),
		reservations: memory.NewReservationStore(),
		clock:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	engine, err := NewEngine(Config{
		StakeToken:   testStakeToken,
		RewardToken:  testRewardToken,
		ServiceOwner: testServiceOwner,
		Options:      memory.NewOptionStore(),
		Positions:    f.positions,
		Reservations: f.reservations,
		Authority:    memory.NewAuthorityStore(),
		Token:        f.sim,
		Audit:        memory.NewAuditStore(),
		Archive:      memory.NewArchiveStore(),
	})
	require.NoError(t, err)
	engine.now = func() time.Time { return f.clock }
	f.engine = engine

	require.NoError(t, engine.AddStakeOwner(ctx, testServiceOwner, testStakeToken, testStakeOwner))

	for i, opt := range []domain.StakeOption{
		{PeriodInDays: 30, BonusInPercentage: 100, RewardToken: testRewardToken, DepositType: domain.DepositImmediate},
		{PeriodInDays: 168, BonusInPercentage: 200, RewardToken: testRewardToken, DepositType: domain.DepositShortTerm},
		{PeriodInDays: 364, BonusInPercentage: 500, RewardToken: testRewardToken, DepositType: domain.DepositLongTerm},
	} {
		index, err := engine.AddOption(ctx, testStakeOwner, testStakeToken, opt)
		require.NoError(t, err)
		require.Equal(t, i, index)
	}

	f.sim.Mint(testRewardToken, testCustody, big.NewInt(rewardBalance))
	f.sim.Mint(testStakeToken, testAlice, big.NewInt(10000))
	f.sim.Approve(testStakeToken, testAlice, big.NewInt(10000))

	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) balance(t *testing.T, tok, account common.Address) *big.Int {
	t.Helper()
	bal, err := f.sim.BalanceOf(context.Background(), tok, account)
	require.NoError(t, err)
	return bal
}

// assertSolvent verifies reserved + available == held for tok.
func (f *fixture) assertSolvent(t *testing.T, tok common.Address) {
	t.Helper()
	ctx := context.Background()
	held := f.balance(t, tok, testCustody)
	reserved, err := f.reservations.Reserved(ctx, tok)
	require.NoError(t, err)
	avail, err := f.engine.AvailableBalance(ctx, tok)
	require.NoError(t, err)
	assert.Zero(t, new(big.Int).Add(reserved, avail).Cmp(held),
		"reserved %s + available %s != held %s", reserved, avail, held)
}

func TestStakeOpensPosition(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	pos, index, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, index)
	assert.Equal(t, int64(100), pos.Amount.Int64())
	assert.Equal(t, int64(10), pos.Rewards.Int64())
	assert.Equal(t, f.clock, pos.Start)
	assert.Equal(t, f.clock.Add(30*24*time.Hour), pos.End)
	assert.Equal(t, domain.StatusOpen, pos.Status)
	assert.Equal(t, domain.DepositImmediate, pos.Option.DepositType)

	assert.Equal(t, int64(9900), f.balance(t, testStakeToken, testAlice).Int64())
	assert.Equal(t, int64(100), f.balance(t, testStakeToken, testCustody).Int64())

	reserved, err := f.reservations.Reserved(ctx, testStakeToken)
	require.NoError(t, err)
	assert.Equal(t, int64(100), reserved.Int64())
	reserved, err = f.reservations.Reserved(ctx, testRewardToken)
	require.NoError(t, err)
	assert.Equal(t, int64(10), reserved.Int64())

	f.assertSolvent(t, testStakeToken)
	f.assertSolvent(t, testRewardToken)
}

func TestStakePreconditions(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	_, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(0), 0)
	assert.ErrorIs(t, err, domain.ErrZeroAmount)

	_, _, err = f.engine.Stake(ctx, testAlice, testStakeToken, nil, 0)
	assert.ErrorIs(t, err, domain.ErrZeroAmount)

	_, _, err = f.engine.Stake(ctx, common.Address{}, testStakeToken, big.NewInt(100), 0)
	assert.ErrorIs(t, err, domain.ErrZeroAddress)

	_, _, err = f.engine.Stake(ctx, testAlice, testRewardToken, big.NewInt(100), 0)
	assert.ErrorIs(t, err, domain.ErrWrongToken)

	_, _, err = f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 99)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)

	// No ledger writes happened.
	count, err := f.positions.Count(ctx, testAlice)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, int64(10000), f.balance(t, testStakeToken, testAlice).Int64())
}

func TestStakeInactiveOptionFails(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	// Structurally valid option whose reward token is not the configured
	// one: it enters the catalog but can never be staked against.
	other := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	index, err := f.engine.AddOption(ctx, testStakeOwner, testStakeToken, domain.StakeOption{
		PeriodInDays:      30,
		BonusInPercentage: 100,
		RewardToken:       other,
		DepositType:       domain.DepositImmediate,
	})
	require.NoError(t, err)

	_, _, err = f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), index)
	assert.ErrorIs(t, err, domain.ErrInactiveOption)
}

func TestStakePausedFails(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	require.NoError(t, f.engine.SetPaused(ctx, testStakeOwner, testStakeToken, true))
	_, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 0)
	assert.ErrorIs(t, err, domain.ErrPaused)

	require.NoError(t, f.engine.SetPaused(ctx, testStakeOwner, testStakeToken, false))
	_, _, err = f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 0)
	assert.NoError(t, err)
}

func TestStakeRewardHeadroomScenario(t *testing.T) {
	// Custody pre-funded with exactly 100 reward units. Each 100-unit
	// immediate stake reserves 10 of them, so ten stakes fit and the
	// eleventh fails with the deposit refunded.
	f := newFixture(t, 100)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 0)
		require.NoError(t, err, "stake %d", i)
		f.assertSolvent(t, testStakeToken)
		f.assertSolvent(t, testRewardToken)
	}

	before := f.balance(t, testStakeToken, testAlice)
	_, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 0)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// Deposit was refunded and no position was created.
	assert.Zero(t, before.Cmp(f.balance(t, testStakeToken, testAlice)))
	count, err := f.positions.Count(ctx, testAlice)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}

func TestWithdrawBeforeEndFails(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	_, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 0)
	require.NoError(t, err)

	f.advance(29 * 24 * time.Hour)
	_, err = f.engine.Withdraw(ctx, testAlice, testStakeToken, 0)
	assert.ErrorIs(t, err, domain.ErrNotMatured)

	count, err := f.positions.Count(ctx, testAlice)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWithdrawOutOfRangeFails(t *testing.T) {
	f := newFixture(t, 1000)
	_, err := f.engine.Withdraw(context.Background(), testAlice, testStakeToken, 0)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
}

func TestWithdrawWrongTokenFails(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	_, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 0)
	require.NoError(t, err)

	f.advance(31 * 24 * time.Hour)
	_, err = f.engine.Withdraw(ctx, testAlice, testRewardToken, 0)
	assert.ErrorIs(t, err, domain.ErrWrongToken)
}

func TestWithdrawImmediateNoFee(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	_, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 0)
	require.NoError(t, err)

	f.advance(31 * 24 * time.Hour)
	archived, err := f.engine.Withdraw(ctx, testAlice, testStakeToken, 0)
	require.NoError(t, err)

	assert.Zero(t, archived.Fee.Sign())
	assert.Equal(t, int64(10), archived.RewardsPaid.Int64())

	assert.Equal(t, int64(10000), f.balance(t, testStakeToken, testAlice).Int64())
	assert.Equal(t, int64(10), f.balance(t, testRewardToken, testAlice).Int64())

	count, err := f.positions.Count(ctx, testAlice)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Reservations fully released.
	for _, tok := range []common.Address{testStakeToken, testRewardToken} {
		reserved, err := f.reservations.Reserved(ctx, tok)
		require.NoError(t, err)
		assert.Zero(t, reserved.Sign())
		f.assertSolvent(t, tok)
	}
}

func TestWithdrawFeeAfter24Weeks(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	// Short-term option, 168-day lock: by the time the position matures,
	// more than 24 weeks have passed since start and the fee applies.
	_, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 1)
	require.NoError(t, err)

	f.advance(24*week + time.Hour)
	archived, err := f.engine.Withdraw(ctx, testAlice, testStakeToken, 0)
	require.NoError(t, err)

	// 100 splits 90 to the account, 10 retained; rewards paid in full.
	assert.Equal(t, int64(10), archived.Fee.Int64())
	assert.Equal(t, int64(20), archived.RewardsPaid.Int64())
	assert.Equal(t, int64(9990), f.balance(t, testStakeToken, testAlice).Int64())
	assert.Equal(t, int64(10), f.balance(t, testStakeToken, testCustody).Int64())
	assert.Equal(t, int64(20), f.balance(t, testRewardToken, testAlice).Int64())

	f.assertSolvent(t, testStakeToken)
	f.assertSolvent(t, testRewardToken)
}

func TestClaimRewards(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	_, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 1)
	require.NoError(t, err)

	// Not matured yet.
	_, err = f.engine.ClaimRewards(ctx, testAlice, 0)
	assert.ErrorIs(t, err, domain.ErrNotClaimable)

	f.advance(24*week + time.Hour)
	claimable, err := f.engine.Claimable(ctx, testAlice, 0)
	require.NoError(t, err)
	assert.True(t, claimable)

	paid, err := f.engine.ClaimRewards(ctx, testAlice, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(20), paid.Int64())
	assert.Equal(t, int64(20), f.balance(t, testRewardToken, testAlice).Int64())

	// Position stays open for principal, flagged as claimed.
	pos, err := f.positions.Get(ctx, testAlice, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRewardsClaimed, pos.Status)
	assert.Equal(t, f.clock, pos.LastClaimed)

	claimable, err = f.engine.Claimable(ctx, testAlice, 0)
	require.NoError(t, err)
	assert.False(t, claimable)

	f.assertSolvent(t, testRewardToken)
}

func TestDoubleClaimRejected(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	_, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 1)
	require.NoError(t, err)

	f.advance(24*week + time.Hour)
	_, err = f.engine.ClaimRewards(ctx, testAlice, 0)
	require.NoError(t, err)

	_, err = f.engine.ClaimRewards(ctx, testAlice, 0)
	assert.ErrorIs(t, err, domain.ErrRewardsClaimed)

	// Even far in the future, the claim never reopens.
	f.advance(100 * week)
	_, err = f.engine.ClaimRewards(ctx, testAlice, 0)
	assert.ErrorIs(t, err, domain.ErrRewardsClaimed)

	assert.Equal(t, int64(20), f.balance(t, testRewardToken, testAlice).Int64())
}

func TestWithdrawAfterClaimPaysPrincipalOnly(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	_, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 1)
	require.NoError(t, err)

	f.advance(24*week + time.Hour)
	_, err = f.engine.ClaimRewards(ctx, testAlice, 0)
	require.NoError(t, err)

	// Rewards reservation is already released; withdrawing must not
	// release it again or pay rewards twice.
	f.advance(time.Hour)
	archived, err := f.engine.Withdraw(ctx, testAlice, testStakeToken, 0)
	require.NoError(t, err)
	assert.Zero(t, archived.RewardsPaid.Sign())
	assert.Equal(t, int64(20), f.balance(t, testRewardToken, testAlice).Int64())

	f.assertSolvent(t, testStakeToken)
	f.assertSolvent(t, testRewardToken)
}

func TestWithdrawReservationDeltas(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	_, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(300), 0)
	require.NoError(t, err)
	_, _, err = f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 0)
	require.NoError(t, err)

	f.advance(31 * 24 * time.Hour)
	_, err = f.engine.Withdraw(ctx, testAlice, testStakeToken, 1)
	require.NoError(t, err)

	// Exactly the withdrawn position's amount and rewards were released.
	reserved, err := f.reservations.Reserved(ctx, testStakeToken)
	require.NoError(t, err)
	assert.Equal(t, int64(300), reserved.Int64())
	reserved, err = f.reservations.Reserved(ctx, testRewardToken)
	require.NoError(t, err)
	assert.Equal(t, int64(30), reserved.Int64())
}

func TestSwapRemoveReordersIndices(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	amounts := []int64{100, 200, 300}
	for _, a := range amounts {
		_, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(a), 0)
		require.NoError(t, err)
	}

	f.advance(31 * 24 * time.Hour)
	archived, err := f.engine.Withdraw(ctx, testAlice, testStakeToken, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(100), archived.Position.Amount.Int64())

	// The last position moved into slot 0; indices are not stable.
	remaining, err := f.engine.Positions(ctx, testAlice)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, int64(300), remaining[0].Amount.Int64())
	assert.Equal(t, int64(200), remaining[1].Amount.Int64())
}

func TestClaimPayoutFailureRestoresReservation(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	_, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 1)
	require.NoError(t, err)
	f.advance(24*week + time.Hour)

	f.sim.FailNextTransfer()
	_, err = f.engine.ClaimRewards(ctx, testAlice, 0)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	reserved, err := f.reservations.Reserved(ctx, testRewardToken)
	require.NoError(t, err)
	assert.Equal(t, int64(20), reserved.Int64())
	f.assertSolvent(t, testRewardToken)

	// A retry succeeds.
	paid, err := f.engine.ClaimRewards(ctx, testAlice, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(20), paid.Int64())
}

func TestWithdrawPayoutFailureRollsBack(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	_, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 1)
	require.NoError(t, err)
	f.advance(24*week + time.Hour)

	f.sim.FailNextTransfer()
	_, err = f.engine.Withdraw(ctx, testAlice, testStakeToken, 0)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	// Position and reservations intact; withdraw can be retried.
	count, err := f.positions.Count(ctx, testAlice)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	f.assertSolvent(t, testStakeToken)
	f.assertSolvent(t, testRewardToken)

	archived, err := f.engine.Withdraw(ctx, testAlice, testStakeToken, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(20), archived.RewardsPaid.Int64())
}

func TestWithdrawPrincipalFailureAllowsRetry(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	_, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 1)
	require.NoError(t, err)
	f.advance(24*week + time.Hour)

	_, err = f.engine.ClaimRewards(ctx, testAlice, 0)
	require.NoError(t, err)

	f.advance(time.Hour)
	f.sim.FailNextTransfer()
	_, err = f.engine.Withdraw(ctx, testAlice, testStakeToken, 0)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	count, err := f.positions.Count(ctx, testAlice)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	f.assertSolvent(t, testStakeToken)

	// The restored position is retryable right away; the principal must not
	// wait out another claim window.
	archived, err := f.engine.Withdraw(ctx, testAlice, testStakeToken, 0)
	require.NoError(t, err)
	assert.Zero(t, archived.RewardsPaid.Sign())
	assert.Equal(t, int64(10), archived.Fee.Int64())
	f.assertSolvent(t, testStakeToken)
	f.assertSolvent(t, testRewardToken)
}

// flakyReservations fails the next Reserve call for one token.
type flakyReservations struct {
	domain.ReservationStore
	failToken common.Address
	armed     bool
}

func (s *flakyReservations) Reserve(ctx context.Context, token common.Address, amount *big.Int) error {
	if s.armed && token == s.failToken {
		s.armed = false
		return errors.New("reservation store unavailable")
	}
	return s.ReservationStore.Reserve(ctx, token, amount)
}

func TestStakeReserveFailureUnwinds(t *testing.T) {
	for name, failToken := range map[string]common.Address{
		"principal": testStakeToken,
		"rewards":   testRewardToken,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, 1000)
			ctx := context.Background()

			flaky := &flakyReservations{ReservationStore: f.reservations, failToken: failToken, armed: true}
			f.engine.reservations = flaky

			_, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 0)
			require.Error(t, err)

			// No position, no reservations, deposit refunded.
			count, err := f.positions.Count(ctx, testAlice)
			require.NoError(t, err)
			assert.Zero(t, count)
			assert.Equal(t, int64(10000), f.balance(t, testStakeToken, testAlice).Int64())
			assert.Zero(t, f.balance(t, testStakeToken, testCustody).Sign())
			for _, tok := range []common.Address{testStakeToken, testRewardToken} {
				reserved, err := f.reservations.Reserved(ctx, tok)
				require.NoError(t, err)
				assert.Zero(t, reserved.Sign())
				f.assertSolvent(t, tok)
			}

			// The store recovered; a retry succeeds.
			_, index, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(100), 0)
			require.NoError(t, err)
			assert.Equal(t, 0, index)
		})
	}
}

func TestQuoteMatchesStake(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	quote, err := f.engine.QuoteRewards(ctx, testStakeToken, big.NewInt(77), 2)
	require.NoError(t, err)

	pos, _, err := f.engine.Stake(ctx, testAlice, testStakeToken, big.NewInt(77), 2)
	require.NoError(t, err)
	assert.Zero(t, quote.Rewards.Cmp(pos.Rewards))
	assert.Equal(t, int64(256), pos.Rewards.Int64()) // 77*10/3 truncated
}

func TestAddOptionAuthorization(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	opt := domain.StakeOption{
		PeriodInDays:      60,
		BonusInPercentage: 150,
		RewardToken:       testRewardToken,
		DepositType:       domain.DepositShortTerm,
	}

	_, err := f.engine.AddOption(ctx, testBob, testStakeToken, opt)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	before, err := f.engine.Options(ctx, testStakeToken)
	require.NoError(t, err)

	index, err := f.engine.AddOption(ctx, testStakeOwner, testStakeToken, opt)
	require.NoError(t, err)
	assert.Equal(t, len(before), index)

	after, err := f.engine.Options(ctx, testStakeToken)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)

	// Duplicates are allowed.
	dup, err := f.engine.AddOption(ctx, testStakeOwner, testStakeToken, opt)
	require.NoError(t, err)
	assert.Equal(t, index+1, dup)
}

func TestAddOptionValidation(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	_, err := f.engine.AddOption(ctx, testStakeOwner, testStakeToken, domain.StakeOption{
		BonusInPercentage: 100, RewardToken: testRewardToken, DepositType: domain.DepositImmediate,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOption)

	_, err = f.engine.AddOption(ctx, testStakeOwner, testStakeToken, domain.StakeOption{
		PeriodInDays: 30, RewardToken: testRewardToken, DepositType: domain.DepositImmediate,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOption)

	_, err = f.engine.AddOption(ctx, testStakeOwner, testStakeToken, domain.StakeOption{
		PeriodInDays: 30, BonusInPercentage: 100, DepositType: domain.DepositImmediate,
	})
	assert.ErrorIs(t, err, domain.ErrZeroAddress)

	_, err = f.engine.AddOption(ctx, testStakeOwner, testRewardToken, domain.StakeOption{
		PeriodInDays: 30, BonusInPercentage: 100, RewardToken: testRewardToken, DepositType: domain.DepositImmediate,
	})
	assert.ErrorIs(t, err, domain.ErrWrongToken)
}

func TestAdminOwnership(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	// Only the service owner grants initial ownership.
	err := f.engine.AddStakeOwner(ctx, testBob, testStakeToken, testBob)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// A stake owner can hand off its capability.
	require.NoError(t, f.engine.TransferStakeOwnership(ctx, testStakeOwner, testStakeToken, testBob))

	_, err = f.engine.AddOption(ctx, testStakeOwner, testStakeToken, domain.StakeOption{
		PeriodInDays: 30, BonusInPercentage: 100, RewardToken: testRewardToken, DepositType: domain.DepositImmediate,
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.engine.AddOption(ctx, testBob, testStakeToken, domain.StakeOption{
		PeriodInDays: 30, BonusInPercentage: 100, RewardToken: testRewardToken, DepositType: domain.DepositImmediate,
	})
	assert.NoError(t, err)

	// Zero-address arguments are rejected outright.
	err = f.engine.AddStakeOwner(ctx, testServiceOwner, testStakeToken, common.Address{})
	assert.ErrorIs(t, err, domain.ErrZeroAddress)
	err = f.engine.TransferStakeOwnership(ctx, testBob, testStakeToken, common.Address{})
	assert.ErrorIs(t, err, domain.ErrZeroAddress)
}

func TestAvailableBalanceDetectsCorruption(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	// Reserve beyond holdings behind the engine's back.
	require.NoError(t, f.reservations.Reserve(ctx, testRewardToken, big.NewInt(500)))

	_, err := f.engine.AvailableBalance(ctx, testRewardToken)
	assert.ErrorIs(t, err, domain.ErrReservationUnderflow)
}

func TestReservationReleaseUnderflow(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	err := f.reservations.Release(ctx, testStakeToken, big.NewInt(1))
	assert.ErrorIs(t, err, domain.ErrReservationUnderflow)
}
