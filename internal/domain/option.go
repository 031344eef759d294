package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DepositType classifies a staking option by its reward formula and claim
// cadence.
type DepositType string

const (
	DepositImmediate DepositType = "immediate"
	DepositShortTerm DepositType = "short_term"
	DepositLongTerm  DepositType = "long_term"
)

// Valid reports whether t is one of the known deposit types.
func (t DepositType) Valid() bool {
	switch t {
	case DepositImmediate, DepositShortTerm, DepositLongTerm:
		return true
	}
	return false
}

// StakeOption is a single entry in a stake token's option catalog. Options are
// append-only and immutable once created; they are identified externally by
// (stake token, index in the catalog).
type StakeOption struct {
	PeriodInDays      uint32         `json:"period_in_days"`
	BonusInPercentage uint32         `json:"bonus_in_percentage"` // scaled, 100 = 1%
	RewardToken       common.Address `json:"reward_token"`
	DepositType       DepositType    `json:"deposit_type"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Active reports whether the option may be used to open new positions. An
// option is active only when its period and bonus are non-zero, its reward
// token is a real address, and that reward token matches the ledger's
// configured reward token.
func (o StakeOption) Active(configuredRewardToken common.Address) bool {
	if o.PeriodInDays == 0 || o.BonusInPercentage == 0 {
		return false
	}
	if o.RewardToken == (common.Address{}) {
		return false
	}
	return o.RewardToken == configuredRewardToken
}

// LockDuration returns the option's lock period as a duration.
func (o StakeOption) LockDuration() time.Duration {
	return time.Duration(o.PeriodInDays) * 24 * time.Hour
}

// RewardQuote is the response shape for a hypothetical-stake reward quote.
type RewardQuote struct {
	StakeToken  common.Address `json:"stake_token"`
	OptionIndex int            `json:"option_index"`
	Amount      *big.Int       `json:"amount"`
	Rewards     *big.Int       `json:"rewards"`
	DepositType DepositType    `json:"deposit_type"`
}
