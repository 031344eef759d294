package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenClient is the external token collaborator. The ledger is solvent only
// with respect to what this client reports; it never assumes balances.
//
// All methods operate on token base units. Transfer methods must be atomic:
// either the full amount moves or an error is returned and nothing moved.
type TokenClient interface {
	// BalanceOf returns the token balance held by the account.
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
	// Transfer moves tokens from custody to the recipient.
	Transfer(ctx context.Context, token, to common.Address, amount *big.Int) error
	// TransferFrom moves tokens from the account into custody, consuming
	// the account's allowance.
	TransferFrom(ctx context.Context, token, from common.Address, amount *big.Int) error
	// Custody returns the address holding staked funds and the reward pool.
	Custody() common.Address
}
