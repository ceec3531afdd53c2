package services

import (
	"context"
	"math"
	"math/bits"

	"github.com/sirupsen/logrus"

	"shield-backend/internal/config"
)

// FeeSchedule is the relayer's withdrawal pricing.
type FeeSchedule struct {
	Rate          float64
	FixedLamports uint64
	Authoritative bool // false when the fallback estimates were used
}

// Fee = ceil(amount * rate) + fixed.
func (f FeeSchedule) Fee(amount uint64) uint64 {
	return uint64(math.Ceil(float64(amount)*f.Rate)) + f.FixedLamports
}

// MaxWithdrawal returns the largest X with X + Fee(X) <= total.
func (f FeeSchedule) MaxWithdrawal(total uint64) uint64 {
	if total <= f.FixedLamports {
		return 0
	}
	x := uint64(float64(total-f.FixedLamports) / (1 + f.Rate))
	for x > 0 && x+f.Fee(x) > total {
		x--
	}
	for x+1+f.Fee(x+1) <= total {
		x++
	}
	return x
}

func fallbackFees(cfg config.TransferConfig) FeeSchedule {
	return FeeSchedule{Rate: cfg.FallbackFeeRate, FixedLamports: cfg.FallbackFixedFeeLamports}
}

// resolveFees prefers the relayer's fee config and falls back to the
// configured estimates when it is unreachable.
func resolveFees(ctx context.Context, src FeeSource, cfg config.TransferConfig, logger *logrus.Logger) FeeSchedule {
	if src == nil {
		return fallbackFees(cfg)
	}
	fc, err := src.GetFeeConfig(ctx)
	if err != nil {
		logger.WithError(err).Warn("[Fees] relayer fee config unavailable, using fallback estimates")
		return fallbackFees(cfg)
	}
	return FeeSchedule{Rate: fc.WithdrawFeeRate, FixedLamports: fc.FixedFeeLamports(), Authoritative: true}
}

// requiredWithMargin = amount + ceil(amount * margin), computed in basis
// points with a 128-bit product. Saturates at math.MaxUint64.
func requiredWithMargin(amount uint64, margin float64) uint64 {
	if margin <= 0 {
		return amount
	}
	bps := uint64(math.Round(margin * 10_000))
	hi, lo := bits.Mul64(amount, bps)
	lo, carry := bits.Add64(lo, 9_999, 0)
	hi += carry
	if hi >= 10_000 {
		return math.MaxUint64
	}
	extra, _ := bits.Div64(hi, lo, 10_000)
	sum, overflow := bits.Add64(amount, extra, 0)
	if overflow != 0 {
		return math.MaxUint64
	}
	return sum
}
