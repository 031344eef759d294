package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// AddStakeOwner grants owner capability over token to owner. Only the
// configured service owner may call it.
func (e *Engine) AddStakeOwner(ctx context.Context, caller, token, owner common.Address) error {
	if caller != e.serviceOwner {
		return fmt.Errorf("ledger: add stake owner: %w", domain.ErrUnauthorized)
	}
	if token == (common.Address{}) || owner == (common.Address{}) {
		return fmt.Errorf("ledger: add stake owner: %w", domain.ErrZeroAddress)
	}

	unlock, err := e.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := e.authority.AddStakeOwner(ctx, token, owner); err != nil {
		return fmt.Errorf("ledger: add stake owner: %w", err)
	}

	e.auditLog(ctx, "add_stake_owner", caller, map[string]any{
		"token": token.Hex(),
		"owner": owner.Hex(),
	})
	e.publish(ctx, domain.ChannelAdmin, domain.EventStakeOwnerAdded, map[string]any{
		"token": token.Hex(),
		"owner": owner.Hex(),
	})
	return nil
}

// TransferStakeOwnership moves the caller's owner capability over token to
// newOwner. The caller must currently be a stake owner of the token.
func (e *Engine) TransferStakeOwnership(ctx context.Context, caller, token, newOwner common.Address) error {
	if token == (common.Address{}) || newOwner == (common.Address{}) {
		return fmt.Errorf("ledger: transfer ownership: %w", domain.ErrZeroAddress)
	}

	unlock, err := e.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	isOwner, err := e.authority.IsStakeOwner(ctx, token, caller)
	if err != nil {
		return fmt.Errorf("ledger: transfer ownership: owner check: %w", err)
	}
	if !isOwner {
		return fmt.Errorf("ledger: transfer ownership: %w", domain.ErrUnauthorized)
	}

	if err := e.authority.AddStakeOwner(ctx, token, newOwner); err != nil {
		return fmt.Errorf("ledger: transfer ownership: grant: %w", err)
	}
	if err := e.authority.RemoveStakeOwner(ctx, token, caller); err != nil {
		return fmt.Errorf("ledger: transfer ownership: revoke: %w", err)
	}

	e.auditLog(ctx, "transfer_stake_ownership", caller, map[string]any{
		"token":     token.Hex(),
		"new_owner": newOwner.Hex(),
	})
	e.publish(ctx, domain.ChannelAdmin, domain.EventOwnershipTransferred, map[string]any{
		"token":     token.Hex(),
		"old_owner": caller.Hex(),
		"new_owner": newOwner.Hex(),
	})
	return nil
}

// SetPaused toggles the token's pause flag. A paused token rejects new
// stakes; withdrawals and claims stay available. Stake-owner gated.
func (e *Engine) SetPaused(ctx context.Context, caller, token common.Address, paused bool) error {
	if token == (common.Address{}) {
		return fmt.Errorf("ledger: set paused: %w", domain.ErrZeroAddress)
	}

	unlock, err := e.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	isOwner, err := e.authority.IsStakeOwner(ctx, token, caller)
	if err != nil {
		return fmt.Errorf("ledger: set paused: owner check: %w", err)
	}
	if !isOwner {
		return fmt.Errorf("ledger: set paused: %w", domain.ErrUnauthorized)
	}

	if err := e.authority.SetPaused(ctx, token, paused); err != nil {
		return fmt.Errorf("ledger: set paused: %w", err)
	}

	e.auditLog(ctx, "set_paused", caller, map[string]any{
		"token":  token.Hex(),
		"paused": paused,
	})
	e.publish(ctx, domain.ChannelAdmin, domain.EventPaused, map[string]any{
		"token":  token.Hex(),
		"paused": paused,
	})

	e.logger.InfoContext(ctx, "pause flag changed", "token", token.Hex(), "paused", paused)
	return nil
}

// Paused reports whether staking is paused for token.
func (e *Engine) Paused(ctx context.Context, token common.Address) (bool, error) {
	return e.authority.IsPaused(ctx, token)
}
