package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// catalogTTL bounds how stale a cached option catalog may be. Appends
// invalidate eagerly, so the TTL only matters across replicas.
const catalogTTL = 5 * time.Minute

// AddOption appends an option to the token's catalog and returns its index.
// Only a stake owner of the token may add options, the token must be the
// configured stake token, and the option must pass structural validation.
// Duplicates of existing options are allowed.
func (e *Engine) AddOption(ctx context.Context, caller, token common.Address, opt domain.StakeOption) (int, error) {
	if caller == (common.Address{}) {
		return 0, fmt.Errorf("ledger: add option: caller: %w", domain.ErrZeroAddress)
	}
	if token != e.stakeToken {
		return 0, fmt.Errorf("ledger: add option: token %s: %w", token.Hex(), domain.ErrWrongToken)
	}
	if opt.PeriodInDays == 0 || opt.BonusInPercentage == 0 || !opt.DepositType.Valid() {
		return 0, fmt.Errorf("ledger: add option: %w", domain.ErrInvalidOption)
	}
	if opt.RewardToken == (common.Address{}) {
		return 0, fmt.Errorf("ledger: add option: reward token: %w", domain.ErrZeroAddress)
	}

	unlock, err := e.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	isOwner, err := e.authority.IsStakeOwner(ctx, token, caller)
	if err != nil {
		return 0, fmt.Errorf("ledger: add option: owner check: %w", err)
	}
	if !isOwner {
		return 0, fmt.Errorf("ledger: add option: %w", domain.ErrUnauthorized)
	}

	opt.CreatedAt = e.now()
	index, err := e.options.Append(ctx, token, opt)
	if err != nil {
		return 0, fmt.Errorf("ledger: add option: %w", err)
	}

	if e.cache != nil {
		if err := e.cache.Invalidate(ctx, token.Hex()); err != nil {
			e.logger.WarnContext(ctx, "invalidating option cache failed", "error", err)
		}
	}

	e.auditLog(ctx, "add_option", caller, map[string]any{
		"token":          token.Hex(),
		"index":          index,
		"period_in_days": opt.PeriodInDays,
		"deposit_type":   string(opt.DepositType),
	})
	e.publish(ctx, domain.ChannelOptions, domain.EventOptionAdded, map[string]any{
		"token": token.Hex(),
		"index": index,
	})

	e.logger.InfoContext(ctx, "option added",
		"token", token.Hex(), "index", index, "deposit_type", string(opt.DepositType))

	return index, nil
}

// Options returns the token's full option catalog, in append order. Reads go
// through the option cache when one is configured.
func (e *Engine) Options(ctx context.Context, token common.Address) ([]domain.StakeOption, error) {
	if e.cache != nil {
		opts, ok, err := e.cache.GetCatalog(ctx, token.Hex())
		if err != nil {
			e.logger.WarnContext(ctx, "option cache read failed", "error", err)
		} else if ok {
			return opts, nil
		}
	}

	opts, err := e.options.List(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("ledger: list options: %w", err)
	}

	if e.cache != nil {
		if err := e.cache.SetCatalog(ctx, token.Hex(), opts, catalogTTL); err != nil {
			e.logger.WarnContext(ctx, "option cache write failed", "error", err)
		}
	}
	return opts, nil
}

// Option returns the option at index in the token's catalog.
func (e *Engine) Option(ctx context.Context, token common.Address, index int) (domain.StakeOption, error) {
	return e.options.Get(ctx, token, index)
}
