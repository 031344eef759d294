package ledger

import (
	"fmt"
	"math/big"
	"time"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// claimWindows maps each deposit type to its claim cadence. Immediate is
// absent: its maturity is the position's end time, not a rolling window.
var claimWindows = map[domain.DepositType]time.Duration{
	domain.DepositShortTerm: 24 * 7 * 24 * time.Hour,
	domain.DepositLongTerm:  52 * 7 * 24 * time.Hour,
}

// ComputeRewards returns the reward amount owed for staking amount under the
// given deposit type. Pure and deterministic; used both for quotes and at
// stake time, so the two must never diverge.
//
// Division truncates toward zero, matching integer token arithmetic.
func ComputeRewards(amount *big.Int, depositType domain.DepositType) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, domain.ErrZeroAmount
	}

	switch depositType {
	case domain.DepositImmediate:
		return new(big.Int).Quo(amount, big.NewInt(10)), nil
	case domain.DepositShortTerm:
		return new(big.Int).Quo(amount, big.NewInt(5)), nil
	case domain.DepositLongTerm:
		r := new(big.Int).Mul(amount, big.NewInt(10))
		return r.Quo(r, big.NewInt(3)), nil
	default:
		return nil, fmt.Errorf("ledger: deposit type %q: %w", depositType, domain.ErrInvalidOption)
	}
}

// Matured reports whether the position's rewards are claimable at the given
// instant. Read-only: it never advances the claim clock. Recording a claim is
// a separate, explicit mutation done inside ClaimRewards.
//
// Immediate positions mature when their end time has passed. Short- and
// long-term positions mature on a rolling window from the last claim.
func Matured(pos domain.StakePosition, now time.Time) bool {
	if pos.Option.DepositType == domain.DepositImmediate {
		return now.After(pos.End)
	}
	window, ok := claimWindows[pos.Option.DepositType]
	if !ok {
		return false
	}
	return now.After(pos.LastClaimed.Add(window))
}

// withdrawalFeeDue reports whether the 10% principal fee applies to a
// withdrawal at the given instant. The policy is deliberate: non-immediate
// positions held past 24 weeks from start pay the fee, earlier ones do not.
func withdrawalFeeDue(pos domain.StakePosition, now time.Time) bool {
	if pos.Option.DepositType == domain.DepositImmediate {
		return false
	}
	return pos.Start.Add(24 * 7 * 24 * time.Hour).Before(now)
}

// splitFee divides principal into the amount paid to the account and the fee
// retained by custody (10% of principal, truncated).
func splitFee(amount *big.Int) (payout, fee *big.Int) {
	fee = new(big.Int).Quo(amount, big.NewInt(10))
	payout = new(big.Int).Sub(amount, fee)
	return payout, fee
}
