package quote

import (
	"github.com/shopspring/decimal"

	"github.com/Projectsniper82/sniperlab-sub000/internal/constants"
)

// Reserves is the pool balance shape the engine operates on: two UI-denominated
// reserves plus the paired token's decimal precision.
type Reserves struct {
	SOL           decimal.Decimal
	Token         decimal.Decimal
	TokenDecimals int32
}

// Quote is the outcome of a constant-product swap computation. Values are
// produced fresh on every call and never mutated.
type Quote struct {
	// EstimatedOutput is the expected output in UI units of the output asset.
	EstimatedOutput decimal.Decimal
	// PriceImpactPct is the relative deviation between the pre-trade market
	// price and the realized execution price, in percent.
	PriceImpactPct decimal.Decimal
	// MinAmountOut is the slippage-adjusted floor, as an integer in the output
	// asset's smallest unit.
	MinAmountOut decimal.Decimal
	// ExecutionPrice is output per unit of input.
	ExecutionPrice decimal.Decimal
}

var (
	oneHundred = decimal.NewFromInt(100)
	bpsDenom   = decimal.NewFromInt(10000)
)

// Compute prices a swap against a constant-product pool. inputIsSOL selects
// the trade direction; feeBps is the pool fee in basis points; slippagePct is
// the caller's tolerance in percent. Returns nil for non-positive input or
// missing reserves. A pool that cannot satisfy the trade yields a zero-output,
// 100%-impact quote rather than an error, so callers stay branch-free.
func Compute(inputAmount decimal.Decimal, inputIsSOL bool, r *Reserves, feeBps int64, slippagePct decimal.Decimal) *Quote {
	if r == nil || inputAmount.Sign() <= 0 {
		return nil
	}

	var reserveIn, reserveOut decimal.Decimal
	var outputDecimals int32
	if inputIsSOL {
		reserveIn, reserveOut = r.SOL, r.Token
		outputDecimals = r.TokenDecimals
	} else {
		reserveIn, reserveOut = r.Token, r.SOL
		outputDecimals = constants.SOLDecimals
	}

	// Degenerate pool: quote zero output at full impact instead of failing.
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return emptyQuote()
	}

	// Apply the fee to the input before the invariant.
	feeMultiplier := bpsDenom.Sub(decimal.NewFromInt(feeBps)).Div(bpsDenom)
	amountInWithFee := inputAmount.Mul(feeMultiplier)
	if amountInWithFee.Sign() <= 0 {
		return emptyQuote()
	}

	// Constant product: k = reserveIn * reserveOut.
	k := reserveIn.Mul(reserveOut)
	newReserveOut := k.DivRound(reserveIn.Add(amountInWithFee), divisionPrecision)
	estimatedOutput := reserveOut.Sub(newReserveOut)
	if estimatedOutput.Sign() <= 0 {
		return emptyQuote()
	}

	marketPrice := reserveOut.DivRound(reserveIn, divisionPrecision)
	executionPrice := estimatedOutput.DivRound(inputAmount, divisionPrecision)

	priceImpact := oneHundred
	if marketPrice.Sign() > 0 {
		priceImpact = marketPrice.Sub(executionPrice).Abs().
			DivRound(marketPrice, divisionPrecision).Mul(oneHundred)
	}

	slippageFactor := decimal.NewFromInt(1).Sub(slippagePct.Div(oneHundred))
	minAmountOut := estimatedOutput.Mul(slippageFactor).Shift(outputDecimals).Floor()
	if minAmountOut.Sign() < 0 {
		minAmountOut = decimal.Zero
	}

	return &Quote{
		EstimatedOutput: estimatedOutput,
		PriceImpactPct:  priceImpact,
		MinAmountOut:    minAmountOut,
		ExecutionPrice:  executionPrice,
	}
}

// divisionPrecision bounds intermediate quotients. Reserves can differ by many
// orders of magnitude, so the default 16 digits loses output precision.
const divisionPrecision = 28

func emptyQuote() *Quote {
	return &Quote{
		EstimatedOutput: decimal.Zero,
		PriceImpactPct:  oneHundred,
		MinAmountOut:    decimal.Zero,
		ExecutionPrice:  decimal.Zero,
	}
}
