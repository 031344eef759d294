package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// ledgerLockName is the distributed lock serializing state transitions when
// the engine runs with more than one replica.
const ledgerLockName = "stakevault:ledger"

// ledgerLockTTL bounds how long a dead replica can hold the lock.
const ledgerLockTTL = 15 * time.Second

// Engine orchestrates the staking state machine over the stores and the
// token collaborator. Every state transition runs as a single critical
// section: the engine mutex serializes operations in-process, and the
// optional lock manager serializes them across replicas.
type Engine struct {
	mu sync.Mutex

	stakeToken   common.Address
	rewardToken  common.Address
	serviceOwner common.Address

	options      domain.OptionStore
	positions    domain.PositionStore
	reservations domain.ReservationStore
	authority    domain.AuthorityStore
	token        domain.TokenClient
	audit        domain.AuditStore
	archive      domain.ArchiveStore
	bus          domain.SignalBus
	locks        domain.LockManager
	cache        domain.OptionCache

	logger *slog.Logger

	// now is the engine clock. Tests replace it with a fixed instant.
	now func() time.Time
}

// Config carries the engine's collaborators. Audit, Archive, Bus and Locks
// are optional; the rest are required.
type Config struct {
	StakeToken   common.Address
	RewardToken  common.Address
	ServiceOwner common.Address

	Options      domain.OptionStore
	Positions    domain.PositionStore
	Reservations domain.ReservationStore
	Authority    domain.AuthorityStore
	Token        domain.TokenClient

	Audit   domain.AuditStore
	Archive domain.ArchiveStore
	Bus     domain.SignalBus
	Locks   domain.LockManager
	Cache   domain.OptionCache

	Logger *slog.Logger
}

// NewEngine constructs an Engine from cfg.
func NewEngine(cfg Config) (*Engine, error) {
	switch {
	case cfg.Options == nil, cfg.Positions == nil, cfg.Reservations == nil,
		cfg.Authority == nil, cfg.Token == nil:
		return nil, errors.New("ledger: missing required store or token client")
	case cfg.StakeToken == (common.Address{}):
		return nil, fmt.Errorf("ledger: stake token: %w", domain.ErrZeroAddress)
	case cfg.RewardToken == (common.Address{}):
		return nil, fmt.Errorf("ledger: reward token: %w", domain.ErrZeroAddress)
	case cfg.ServiceOwner == (common.Address{}):
		return nil, fmt.Errorf("ledger: service owner: %w", domain.ErrZeroAddress)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		stakeToken:   cfg.StakeToken,
		rewardToken:  cfg.RewardToken,
		serviceOwner: cfg.ServiceOwner,
		options:      cfg.Options,
		positions:    cfg.Positions,
		reservations: cfg.Reservations,
		authority:    cfg.Authority,
		token:        cfg.Token,
		audit:        cfg.Audit,
		archive:      cfg.Archive,
		bus:          cfg.Bus,
		locks:        cfg.Locks,
		cache:        cfg.Cache,
		logger:       logger.With("component", "ledger"),
		now:          time.Now,
	}, nil
}

// StakeToken returns the configured stake token address.
func (e *Engine) StakeToken() common.Address { return e.stakeToken }

// RewardToken returns the configured reward token address.
func (e *Engine) RewardToken() common.Address { return e.rewardToken }

// lock takes the engine critical section and, when a lock manager is
// configured, the cross-replica lock. The returned function releases both.
func (e *Engine) lock(ctx context.Context) (func(), error) {
	e.mu.Lock()
	if e.locks == nil {
		return e.mu.Unlock, nil
	}

	release, err := e.locks.Acquire(ctx, ledgerLockName, ledgerLockTTL)
	if err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("ledger: acquire lock: %w", err)
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			e.logger.WarnContext(ctx, "releasing ledger lock failed", "error", err)
		}
		e.mu.Unlock()
	}, nil
}

// Stake opens a new position for account under the option at optionIndex.
// The deposit is pulled into custody first; if the post-transfer solvency
// checks fail the deposit is refunded and no ledger state changes.
func (e *Engine) Stake(ctx context.Context, account, stakeToken common.Address, amount *big.Int, optionIndex int) (domain.StakePosition, int, error) {
	var zero domain.StakePosition

	if account == (common.Address{}) {
		return zero, 0, fmt.Errorf("ledger: stake: account: %w", domain.ErrZeroAddress)
	}
	if amount == nil || amount.Sign() <= 0 {
		return zero, 0, fmt.Errorf("ledger: stake: %w", domain.ErrZeroAmount)
	}
	if stakeToken != e.stakeToken {
		return zero, 0, fmt.Errorf("ledger: stake: token %s: %w", stakeToken.Hex(), domain.ErrWrongToken)
	}

	unlock, err := e.lock(ctx)
	if err != nil {
		return zero, 0, err
	}
	defer unlock()

	paused, err := e.authority.IsPaused(ctx, stakeToken)
	if err != nil {
		return zero, 0, fmt.Errorf("ledger: stake: pause check: %w", err)
	}
	if paused {
		return zero, 0, fmt.Errorf("ledger: stake: %w", domain.ErrPaused)
	}

	opt, err := e.options.Get(ctx, stakeToken, optionIndex)
	if err != nil {
		return zero, 0, fmt.Errorf("ledger: stake: option %d: %w", optionIndex, err)
	}
	if !opt.Active(e.rewardToken) {
		return zero, 0, fmt.Errorf("ledger: stake: option %d: %w", optionIndex, domain.ErrInactiveOption)
	}

	rewards, err := ComputeRewards(amount, opt.DepositType)
	if err != nil {
		return zero, 0, fmt.Errorf("ledger: stake: %w", err)
	}

	// Pull the deposit before the solvency checks so the checks see the
	// custody balance the position will actually be backed by.
	if err := e.token.TransferFrom(ctx, stakeToken, account, amount); err != nil {
		return zero, 0, fmt.Errorf("ledger: stake: deposit: %w: %v", domain.ErrTransferFailed, err)
	}

	if err := e.checkSolvency(ctx, stakeToken, amount, rewards); err != nil {
		// Refund the deposit; the operation must leave no trace.
		e.refundDeposit(ctx, stakeToken, account, amount)
		return zero, 0, err
	}

	now := e.now()
	pos := domain.StakePosition{
		ID:          uuid.NewString(),
		Account:     account,
		StakeToken:  stakeToken,
		RewardToken: opt.RewardToken,
		Amount:      new(big.Int).Set(amount),
		Rewards:     rewards,
		Start:       now,
		End:         now.Add(opt.LockDuration()),
		LastClaimed: now,
		Option:      opt,
		OptionIndex: optionIndex,
		Status:      domain.StatusOpen,
	}

	// Any store failure past this point leaves the deposit in custody with a
	// half-written position, so each branch unwinds what came before it.
	index, err := e.positions.Append(ctx, pos)
	if err != nil {
		e.refundDeposit(ctx, stakeToken, account, amount)
		return zero, 0, fmt.Errorf("ledger: stake: append position: %w", err)
	}
	if err := e.reservations.Reserve(ctx, stakeToken, pos.Amount); err != nil {
		e.unwindStake(ctx, account, index, pos, false)
		return zero, 0, fmt.Errorf("ledger: stake: reserve principal: %w", err)
	}
	if err := e.reservations.Reserve(ctx, opt.RewardToken, pos.Rewards); err != nil {
		e.unwindStake(ctx, account, index, pos, true)
		return zero, 0, fmt.Errorf("ledger: stake: reserve rewards: %w", err)
	}

	e.auditLog(ctx, "stake", account, map[string]any{
		"position_id":  pos.ID,
		"stake_token":  stakeToken.Hex(),
		"amount":       amount.String(),
		"rewards":      rewards.String(),
		"option_index": optionIndex,
	})
	e.publish(ctx, domain.ChannelStakes, domain.EventStake, map[string]any{
		"account":      account.Hex(),
		"stake_token":  stakeToken.Hex(),
		"amount":       amount.String(),
		"option_index": optionIndex,
		"position_id":  pos.ID,
	})

	e.logger.InfoContext(ctx, "position opened",
		"account", account.Hex(),
		"amount", amount.String(),
		"rewards", rewards.String(),
		"option_index", optionIndex,
		"end", pos.End)

	return pos, index, nil
}

// checkSolvency verifies custody can cover a new position: the unreserved
// stake-token balance must cover the principal and the unreserved
// reward-token balance must cover the rewards. The two checks are
// independent; they only coincide when stake and reward token are the same.
func (e *Engine) checkSolvency(ctx context.Context, stakeToken common.Address, amount, rewards *big.Int) error {
	availStake, err := e.availableBalance(ctx, stakeToken)
	if err != nil {
		return err
	}
	if availStake.Cmp(amount) < 0 {
		return fmt.Errorf("ledger: stake token available %s < principal %s: %w",
			availStake, amount, domain.ErrInsufficientBalance)
	}

	availReward, err := e.availableBalance(ctx, e.rewardToken)
	if err != nil {
		return err
	}
	if availReward.Cmp(rewards) < 0 {
		return fmt.Errorf("ledger: reward token available %s < rewards %s: %w",
			availReward, rewards, domain.ErrInsufficientBalance)
	}
	return nil
}

// Withdraw closes the position at index, paying out principal and any unpaid
// rewards. Non-immediate positions held past 24 weeks from start pay a 10%
// principal fee retained by custody.
func (e *Engine) Withdraw(ctx context.Context, account, stakeToken common.Address, index int) (domain.ArchivedPosition, error) {
	var zero domain.ArchivedPosition

	if account == (common.Address{}) {
		return zero, fmt.Errorf("ledger: withdraw: account: %w", domain.ErrZeroAddress)
	}

	unlock, err := e.lock(ctx)
	if err != nil {
		return zero, err
	}
	defer unlock()

	pos, err := e.positions.Get(ctx, account, index)
	if err != nil {
		return zero, fmt.Errorf("ledger: withdraw: position %d: %w", index, err)
	}
	if pos.StakeToken != stakeToken {
		return zero, fmt.Errorf("ledger: withdraw: token %s: %w", stakeToken.Hex(), domain.ErrWrongToken)
	}

	now := e.now()
	if !now.After(pos.End) {
		return zero, fmt.Errorf("ledger: withdraw: position ends %s: %w", pos.End, domain.ErrNotMatured)
	}
	// A claimed position owes principal only; its claim advanced LastClaimed,
	// so the rolling window must not gate the principal a second time. The
	// end-date check above is the only gate left.
	if pos.Status == domain.StatusOpen && !Matured(pos, now) {
		return zero, fmt.Errorf("ledger: withdraw: %w", domain.ErrNotClaimable)
	}

	payout := new(big.Int).Set(pos.Amount)
	fee := big.NewInt(0)
	if withdrawalFeeDue(pos, now) {
		payout, fee = splitFee(pos.Amount)
	}

	rewardsDue := pos.Status == domain.StatusOpen
	rewardsPaid := big.NewInt(0)

	removed, err := e.positions.RemoveAt(ctx, account, index)
	if err != nil {
		return zero, fmt.Errorf("ledger: withdraw: remove position: %w", err)
	}
	if err := e.reservations.Release(ctx, pos.StakeToken, pos.Amount); err != nil {
		return zero, fmt.Errorf("ledger: withdraw: release principal: %w", err)
	}
	if rewardsDue {
		if err := e.reservations.Release(ctx, pos.RewardToken, pos.Rewards); err != nil {
			return zero, fmt.Errorf("ledger: withdraw: release rewards: %w", err)
		}
	}

	// Rewards first so a failure can be rolled back before principal moves.
	if rewardsDue && pos.Rewards.Sign() > 0 {
		if err := e.token.Transfer(ctx, pos.RewardToken, account, pos.Rewards); err != nil {
			e.restorePosition(ctx, removed, true)
			return zero, fmt.Errorf("ledger: withdraw: reward payout: %w: %v", domain.ErrTransferFailed, err)
		}
		rewardsPaid = new(big.Int).Set(pos.Rewards)
	}

	if err := e.token.Transfer(ctx, pos.StakeToken, account, payout); err != nil {
		// Rewards already left custody; reinstate the principal only and
		// mark the position claimed so a retry pays principal alone.
		restored := removed.Clone()
		restored.Status = domain.StatusRewardsClaimed
		restored.LastClaimed = now
		e.restorePosition(ctx, restored, false)
		return zero, fmt.Errorf("ledger: withdraw: principal payout: %w: %v", domain.ErrTransferFailed, err)
	}

	archived := domain.ArchivedPosition{
		Position:    removed,
		WithdrawnAt: now,
		Fee:         fee,
		RewardsPaid: rewardsPaid,
	}
	if e.archive != nil {
		if err := e.archive.Add(ctx, archived); err != nil {
			e.logger.WarnContext(ctx, "archiving withdrawn position failed", "error", err)
		}
	}

	e.auditLog(ctx, "withdraw", account, map[string]any{
		"position_id": pos.ID,
		"amount":      pos.Amount.String(),
		"payout":      payout.String(),
		"fee":         fee.String(),
		"rewards":     rewardsPaid.String(),
	})
	e.publish(ctx, domain.ChannelWithdrawals, domain.EventWithdraw, map[string]any{
		"account":      account.Hex(),
		"stake_token":  pos.StakeToken.Hex(),
		"reward_token": pos.RewardToken.Hex(),
		"amount":       pos.Amount.String(),
		"payout":       payout.String(),
		"fee":          fee.String(),
		"rewards":      rewardsPaid.String(),
		"position_id":  pos.ID,
	})

	e.logger.InfoContext(ctx, "position withdrawn",
		"account", account.Hex(),
		"payout", payout.String(),
		"fee", fee.String(),
		"rewards", rewardsPaid.String())

	return archived, nil
}

// refundDeposit returns a pulled deposit to the account after a failed stake.
// A failed refund means custody holds funds with no backing position, which
// needs manual reconciliation from the audit log, so it is logged at error
// level rather than returned.
func (e *Engine) refundDeposit(ctx context.Context, token, account common.Address, amount *big.Int) {
	if err := e.token.Transfer(ctx, token, account, amount); err != nil {
		e.logger.ErrorContext(ctx, "refunding deposit after failed stake failed",
			"account", account.Hex(), "amount", amount.String(), "error", err)
	}
}

// unwindStake removes a half-written position after a reservation failure:
// the appended position is deleted, the principal reservation is released if
// it was taken, and the deposit is refunded.
func (e *Engine) unwindStake(ctx context.Context, account common.Address, index int, pos domain.StakePosition, principalReserved bool) {
	if _, err := e.positions.RemoveAt(ctx, account, index); err != nil {
		e.logger.ErrorContext(ctx, "removing position after failed stake failed",
			"position_id", pos.ID, "error", err)
	}
	if principalReserved {
		if err := e.reservations.Release(ctx, pos.StakeToken, pos.Amount); err != nil {
			e.logger.ErrorContext(ctx, "releasing principal after failed stake failed",
				"position_id", pos.ID, "error", err)
		}
	}
	e.refundDeposit(ctx, pos.StakeToken, account, pos.Amount)
}

// restorePosition undoes a withdrawal's ledger writes after a failed payout.
// Errors here mean the ledger needs manual reconciliation from the audit log,
// so they are logged at error level rather than returned.
func (e *Engine) restorePosition(ctx context.Context, pos domain.StakePosition, withRewards bool) {
	if _, err := e.positions.Append(ctx, pos); err != nil {
		e.logger.ErrorContext(ctx, "restoring position after failed payout failed",
			"position_id", pos.ID, "error", err)
		return
	}
	if err := e.reservations.Reserve(ctx, pos.StakeToken, pos.Amount); err != nil {
		e.logger.ErrorContext(ctx, "re-reserving principal after failed payout failed",
			"position_id", pos.ID, "error", err)
	}
	if withRewards {
		if err := e.reservations.Reserve(ctx, pos.RewardToken, pos.Rewards); err != nil {
			e.logger.ErrorContext(ctx, "re-reserving rewards after failed payout failed",
				"position_id", pos.ID, "error", err)
		}
	}
}

// ClaimRewards pays out the rewards of the position at index. Claims are
// single-shot: a claimed position stays open for principal but rejects any
// further claim.
func (e *Engine) ClaimRewards(ctx context.Context, account common.Address, index int) (*big.Int, error) {
	if account == (common.Address{}) {
		return nil, fmt.Errorf("ledger: claim: account: %w", domain.ErrZeroAddress)
	}

	unlock, err := e.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	pos, err := e.positions.Get(ctx, account, index)
	if err != nil {
		return nil, fmt.Errorf("ledger: claim: position %d: %w", index, err)
	}
	if pos.Status == domain.StatusRewardsClaimed {
		return nil, fmt.Errorf("ledger: claim: %w", domain.ErrRewardsClaimed)
	}

	now := e.now()
	if !Matured(pos, now) {
		return nil, fmt.Errorf("ledger: claim: %w", domain.ErrNotClaimable)
	}
	if pos.Rewards.Sign() <= 0 {
		return nil, fmt.Errorf("ledger: claim: %w", domain.ErrZeroAmount)
	}

	if err := e.reservations.Release(ctx, pos.RewardToken, pos.Rewards); err != nil {
		return nil, fmt.Errorf("ledger: claim: release rewards: %w", err)
	}
	if err := e.token.Transfer(ctx, pos.RewardToken, account, pos.Rewards); err != nil {
		if rerr := e.reservations.Reserve(ctx, pos.RewardToken, pos.Rewards); rerr != nil {
			e.logger.ErrorContext(ctx, "re-reserving rewards after failed claim payout failed",
				"position_id", pos.ID, "error", rerr)
		}
		return nil, fmt.Errorf("ledger: claim: payout: %w: %v", domain.ErrTransferFailed, err)
	}

	// recordClaim: the only place the claim clock advances.
	updated := pos.Clone()
	updated.LastClaimed = now
	updated.Status = domain.StatusRewardsClaimed
	if err := e.positions.Update(ctx, account, index, updated); err != nil {
		return nil, fmt.Errorf("ledger: claim: record claim: %w", err)
	}

	e.auditLog(ctx, "claim_rewards", account, map[string]any{
		"position_id": pos.ID,
		"rewards":     pos.Rewards.String(),
	})
	e.publish(ctx, domain.ChannelRewards, domain.EventRewardsClaimed, map[string]any{
		"account":      account.Hex(),
		"reward_token": pos.RewardToken.Hex(),
		"rewards":      pos.Rewards.String(),
		"position_id":  pos.ID,
	})

	e.logger.InfoContext(ctx, "rewards claimed",
		"account", account.Hex(), "rewards", pos.Rewards.String())

	return new(big.Int).Set(pos.Rewards), nil
}

// Positions returns all of an account's open positions.
func (e *Engine) Positions(ctx context.Context, account common.Address) ([]domain.StakePosition, error) {
	return e.positions.List(ctx, account)
}

// Claimable reports, without side effects, whether the position at index can
// claim rewards right now.
func (e *Engine) Claimable(ctx context.Context, account common.Address, index int) (bool, error) {
	pos, err := e.positions.Get(ctx, account, index)
	if err != nil {
		return false, fmt.Errorf("ledger: claimable: %w", err)
	}
	if pos.Status == domain.StatusRewardsClaimed {
		return false, nil
	}
	return Matured(pos, e.now()), nil
}

// QuoteRewards computes the rewards a hypothetical stake would earn. It uses
// the same computation as Stake, so a quote always matches the position
// later opened with the same inputs.
func (e *Engine) QuoteRewards(ctx context.Context, token common.Address, amount *big.Int, optionIndex int) (domain.RewardQuote, error) {
	var zero domain.RewardQuote

	if token != e.stakeToken {
		return zero, fmt.Errorf("ledger: quote: token %s: %w", token.Hex(), domain.ErrWrongToken)
	}
	opt, err := e.options.Get(ctx, token, optionIndex)
	if err != nil {
		return zero, fmt.Errorf("ledger: quote: option %d: %w", optionIndex, err)
	}
	rewards, err := ComputeRewards(amount, opt.DepositType)
	if err != nil {
		return zero, fmt.Errorf("ledger: quote: %w", err)
	}
	return domain.RewardQuote{
		StakeToken:  token,
		OptionIndex: optionIndex,
		Amount:      new(big.Int).Set(amount),
		Rewards:     rewards,
		DepositType: opt.DepositType,
	}, nil
}

// AvailableBalance returns custody's unreserved balance of token.
func (e *Engine) AvailableBalance(ctx context.Context, token common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.availableBalance(ctx, token)
}

// availableBalance is the unsynchronized form used inside critical sections.
// A reservation exceeding the held balance is ledger corruption and surfaces
// as ErrReservationUnderflow instead of a negative number.
func (e *Engine) availableBalance(ctx context.Context, token common.Address) (*big.Int, error) {
	held, err := e.token.BalanceOf(ctx, token, e.token.Custody())
	if err != nil {
		return nil, fmt.Errorf("ledger: balance of %s: %w", token.Hex(), err)
	}
	reserved, err := e.reservations.Reserved(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("ledger: reserved of %s: %w", token.Hex(), err)
	}
	if reserved.Cmp(held) > 0 {
		return nil, fmt.Errorf("ledger: token %s reserved %s exceeds held %s: %w",
			token.Hex(), reserved, held, domain.ErrReservationUnderflow)
	}
	return new(big.Int).Sub(held, reserved), nil
}

// auditLog records a mutation in the audit store. Audit failures are logged,
// never fatal: the ledger write already happened.
func (e *Engine) auditLog(ctx context.Context, action string, actor common.Address, detail map[string]any) {
	if e.audit == nil {
		return
	}
	entry := domain.AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: e.now(),
		Action:    action,
		Actor:     actor,
		Detail:    detail,
	}
	if err := e.audit.Log(ctx, entry); err != nil {
		e.logger.WarnContext(ctx, "audit log write failed", "action", action, "error", err)
	}
}

// publish sends an event to the bus channel and mirrors it to the durable
// stream. Bus failures are logged and swallowed.
func (e *Engine) publish(ctx context.Context, channel, eventType string, fields map[string]any) {
	if e.bus == nil {
		return
	}
	fields["type"] = eventType
	fields["at"] = e.now().UTC().Format(time.RFC3339Nano)

	payload, err := json.Marshal(fields)
	if err != nil {
		e.logger.WarnContext(ctx, "marshaling event failed", "type", eventType, "error", err)
		return
	}
	if err := e.bus.Publish(ctx, channel, payload); err != nil {
		e.logger.WarnContext(ctx, "publishing event failed", "channel", channel, "error", err)
	}
	if _, err := e.bus.StreamAppend(ctx, domain.StreamLedgerEvents, payload); err != nil {
		e.logger.WarnContext(ctx, "appending event to stream failed", "error", err)
	}
}
