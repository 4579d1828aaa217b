package funding

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// Plan is one funding run's precomputed splits and schedule. Shares[i] is the
// amount routed to destination wallet i; Delays[i] is the gap before its
// funding step fires, measured from the previous step.
type Plan struct {
	Total  decimal.Decimal
	Shares []decimal.Decimal
	Delays []time.Duration
}

// Jitter and schedule bounds. Delays are uniform within [DelayMin, DelayMax)
// and cumulatively clamped so the final step never falls outside the window.
const (
	shareJitter = 0.10
	DelayMin    = 5 * time.Second
	DelayMax    = 35 * time.Second
)

// sharePrecision is the decimal scale shares are rounded to (lamports).
const sharePrecision = 9

// BuildPlan splits total across walletCount shares and schedules each at a
// random offset inside window. The first walletCount-1 shares are the even
// split perturbed by up to ±10%; the last share is the exact residual, so the
// shares always sum to total with no rounding drift.
func BuildPlan(total decimal.Decimal, walletCount int, window time.Duration, rng *rand.Rand) (*Plan, error) {
	if total.Sign() <= 0 {
		return nil, fmt.Errorf("total amount must be > 0")
	}
	if walletCount < 1 {
		return nil, fmt.Errorf("wallet count must be >= 1")
	}
	if window <= 0 {
		return nil, fmt.Errorf("duration window must be > 0")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	shares := make([]decimal.Decimal, walletCount)
	evenShare := total.Div(decimal.NewFromInt(int64(walletCount)))

	remaining := total
	for i := 0; i < walletCount-1; i++ {
		jitter := 1 + (rng.Float64()*2-1)*shareJitter
		share := evenShare.Mul(decimal.NewFromFloat(jitter)).Round(sharePrecision)
		shares[i] = share
		remaining = remaining.Sub(share)
	}
	// The last slot takes the residual, not an independently rounded value.
	shares[walletCount-1] = remaining

	if remaining.Sign() <= 0 {
		return nil, fmt.Errorf("residual share is not positive; total %s too small for %d wallets", total, walletCount)
	}

	delays := make([]time.Duration, walletCount)
	var elapsed time.Duration
	spread := DelayMax - DelayMin
	for i := range delays {
		delay := DelayMin + time.Duration(rng.Int63n(int64(spread)))
		if elapsed+delay > window {
			delay = window - elapsed
			if delay < 0 {
				delay = 0
			}
		}
		delays[i] = delay
		elapsed += delay
	}

	return &Plan{Total: total, Shares: shares, Delays: delays}, nil
}

// TotalElapsed returns the cumulative schedule length.
func (p *Plan) TotalElapsed() time.Duration {
	var sum time.Duration
	for _, d := range p.Delays {
		sum += d
	}
	return sum
}
