package domain

import (
	"math/big"

	"github.com/fd1az/flash-arb/internal/asset"
)

var bpsDivisor = big.NewInt(10000)

// FeeConfiguration governs how realized profit is split between the protocol
// fee recipient and the owning principal.
type FeeConfiguration struct {
	PercentageBps int64
	Recipient     string
	Enabled       bool
}

// Active reports whether a fee cut is actually taken.
func (f FeeConfiguration) Active() bool {
	return f.Enabled && f.Recipient != "" && f.PercentageBps > 0
}

// Split divides realized profit into the fee cut and the owner remainder.
// With fees inactive the whole profit goes to the owner.
func (f FeeConfiguration) Split(profit asset.Amount) (fee, owner asset.Amount) {
	if !f.Active() {
		return asset.Zero(profit.Asset()), profit
	}
	fee = profit.MulBig(big.NewInt(f.PercentageBps))
	fee, _ = fee.DivBig(bpsDivisor)
	owner = profit.MustSub(fee)
	return fee, owner
}
