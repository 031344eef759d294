package token

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// Simulator is an in-memory fungible-token ledger with transfer, allowance
// and mint semantics. It backs sim mode and the unit tests; it is not safe to
// use with real funds for obvious reasons.
type Simulator struct {
	mu         sync.Mutex
	custody    common.Address
	balances   map[common.Address]map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int

	failNextTransfer bool
}

var _ domain.TokenClient = (*Simulator)(nil)

// NewSimulator creates a Simulator whose custody address is custody.
func NewSimulator(custody common.Address) *Simulator {
	return &Simulator{
		custody:    custody,
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Custody returns the custody address.
func (s *Simulator) Custody() common.Address { return s.custody }

// Mint credits amount of token to account out of thin air.
func (s *Simulator) Mint(token, account common.Address, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance(token, account).Add(s.balance(token, account), amount)
}

// Approve lets custody pull up to amount of token from owner via
// TransferFrom. Overwrites any previous allowance.
func (s *Simulator) Approve(token, owner common.Address, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.allowances[token] == nil {
		s.allowances[token] = make(map[common.Address]*big.Int)
	}
	s.allowances[token][owner] = new(big.Int).Set(amount)
}

// FailNextTransfer makes the next Transfer or TransferFrom fail. Used to
// exercise payout rollback paths.
func (s *Simulator) FailNextTransfer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextTransfer = true
}

// BalanceOf returns account's balance of token.
func (s *Simulator) BalanceOf(_ context.Context, token, account common.Address) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(s.balance(token, account)), nil
}

// Transfer moves amount of token from custody to to.
func (s *Simulator) Transfer(_ context.Context, token, to common.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNextTransfer {
		s.failNextTransfer = false
		return fmt.Errorf("token: simulated transfer failure: %w", domain.ErrTransferFailed)
	}
	return s.move(token, s.custody, to, amount)
}

// TransferFrom moves amount of token from from into custody, consuming the
// account's allowance.
func (s *Simulator) TransferFrom(_ context.Context, token, from common.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNextTransfer {
		s.failNextTransfer = false
		return fmt.Errorf("token: simulated transfer failure: %w", domain.ErrTransferFailed)
	}

	allowance := s.allowances[token][from]
	if allowance == nil || allowance.Cmp(amount) < 0 {
		return fmt.Errorf("token: allowance of %s too low: %w", from.Hex(), domain.ErrTransferFailed)
	}
	if err := s.move(token, from, s.custody, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return nil
}

// balance returns the live balance cell for (token, account), creating it on
// first touch. Caller must hold mu.
func (s *Simulator) balance(token, account common.Address) *big.Int {
	if s.balances[token] == nil {
		s.balances[token] = make(map[common.Address]*big.Int)
	}
	if s.balances[token][account] == nil {
		s.balances[token][account] = new(big.Int)
	}
	return s.balances[token][account]
}

// move transfers amount between accounts. Caller must hold mu.
func (s *Simulator) move(token, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("token: move: %w", domain.ErrZeroAmount)
	}
	src := s.balance(token, from)
	if src.Cmp(amount) < 0 {
		return fmt.Errorf("token: balance of %s too low: %w", from.Hex(), domain.ErrTransferFailed)
	}
	src.Sub(src, amount)
	dst := s.balance(token, to)
	dst.Add(dst, amount)
	return nil
}
