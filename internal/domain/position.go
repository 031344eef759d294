package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PositionStatus tracks whether a position's rewards have been paid out.
// A position disappears from the store entirely on withdraw, so there is no
// "withdrawn" status.
type PositionStatus string

const (
	// StatusOpen means rewards are still reserved and unpaid.
	StatusOpen PositionStatus = "open"
	// StatusRewardsClaimed means rewards were paid and their reservation
	// released; a later withdraw pays principal only.
	StatusRewardsClaimed PositionStatus = "rewards_claimed"
)

// StakePosition is one account's stake in a single option. Each position
// carries a snapshot of the option it was opened under, so later catalog
// appends never change the terms of existing stakes.
type StakePosition struct {
	ID          string         `json:"id"`
	Account     common.Address `json:"account"`
	StakeToken  common.Address `json:"stake_token"`
	RewardToken common.Address `json:"reward_token"`
	Amount      *big.Int       `json:"amount"`
	Rewards     *big.Int       `json:"rewards"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	LastClaimed time.Time      `json:"last_claimed"`
	Option      StakeOption    `json:"option"`
	OptionIndex int            `json:"option_index"`
	Status      PositionStatus `json:"status"`
}

// Clone returns a deep copy. big.Int fields are aliased pointers otherwise,
// and the engine hands positions across goroutine boundaries.
func (p StakePosition) Clone() StakePosition {
	out := p
	if p.Amount != nil {
		out.Amount = new(big.Int).Set(p.Amount)
	}
	if p.Rewards != nil {
		out.Rewards = new(big.Int).Set(p.Rewards)
	}
	return out
}

// ArchivedPosition is a withdrawn position as written to the archive, with
// the withdrawal outcome attached.
type ArchivedPosition struct {
	Position    StakePosition `json:"position"`
	WithdrawnAt time.Time     `json:"withdrawn_at"`
	Fee         *big.Int      `json:"fee"`
	RewardsPaid *big.Int      `json:"rewards_paid"`
}
