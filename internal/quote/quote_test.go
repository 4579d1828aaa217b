package quote

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReserves(sol, token float64, tokenDecimals int32) *Reserves {
	return &Reserves{
		SOL:           decimal.NewFromFloat(sol),
		Token:         decimal.NewFromFloat(token),
		TokenDecimals: tokenDecimals,
	}
}

func TestCompute_ReferenceScenario(t *testing.T) {
	// reserves {SOL: 10, Token: 1000}, fee 0.25%, input 1 SOL
	r := testReserves(10, 1000, 6)
	q := Compute(decimal.NewFromInt(1), true, r, 25, decimal.NewFromInt(1))
	require.NotNil(t, q)

	// amountInWithFee = 0.9975; k = 10000; newReserveOut = 10000 / 10.9975
	assert.InDelta(t, 90.7024, q.EstimatedOutput.InexactFloat64(), 0.001)
	assert.InDelta(t, 90.7024, q.ExecutionPrice.InexactFloat64(), 0.001)

	// minAmountOut is an integer in the token's smallest unit (6 decimals here)
	assert.True(t, q.MinAmountOut.Equal(q.MinAmountOut.Floor()))
	assert.InDelta(t, 89.7954, q.MinAmountOut.Shift(-6).InexactFloat64(), 0.001)

	// impact vs. market price of 100 token/SOL
	assert.InDelta(t, 9.2976, q.PriceImpactPct.InexactFloat64(), 0.001)
}

func TestCompute_RejectsInvalidInput(t *testing.T) {
	r := testReserves(10, 1000, 6)

	assert.Nil(t, Compute(decimal.Zero, true, r, 25, decimal.NewFromInt(1)))
	assert.Nil(t, Compute(decimal.NewFromInt(-1), true, r, 25, decimal.NewFromInt(1)))
	assert.Nil(t, Compute(decimal.NewFromInt(1), true, nil, 25, decimal.NewFromInt(1)))
}

func TestCompute_DegeneratePool(t *testing.T) {
	cases := map[string]*Reserves{
		"both zero": testReserves(0, 0, 6),
		"no sol":    testReserves(0, 1000, 6),
		"no token":  testReserves(10, 0, 6),
	}

	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			q := Compute(decimal.NewFromInt(1), true, r, 25, decimal.NewFromInt(1))
			require.NotNil(t, q, "degenerate pools quote zero output, they do not error")
			assert.True(t, q.EstimatedOutput.IsZero())
			assert.True(t, q.MinAmountOut.IsZero())
			assert.True(t, q.PriceImpactPct.Equal(decimal.NewFromInt(100)))
		})
	}
}

func TestCompute_EstimatedOutputBelowReserve(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 1000; i++ {
		r := testReserves(rng.Float64()*1e6+0.001, rng.Float64()*1e9+0.001, 9)
		in := decimal.NewFromFloat(rng.Float64()*1e8 + 0.000000001)
		inputIsSOL := rng.Intn(2) == 0

		q := Compute(in, inputIsSOL, r, 25, decimal.NewFromInt(1))
		require.NotNil(t, q)

		reserveOut := r.Token
		if !inputIsSOL {
			reserveOut = r.SOL
		}
		assert.True(t, q.EstimatedOutput.LessThan(reserveOut),
			"output %s must be strictly below reserve %s", q.EstimatedOutput, reserveOut)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	r := testReserves(12.345678901, 987654.321098765, 9)
	in := decimal.RequireFromString("0.123456789")

	first := Compute(in, true, r, 25, decimal.NewFromInt(1))
	require.NotNil(t, first)

	for i := 0; i < 10; i++ {
		q := Compute(in, true, r, 25, decimal.NewFromInt(1))
		require.NotNil(t, q)
		assert.True(t, q.EstimatedOutput.Equal(first.EstimatedOutput))
		assert.True(t, q.PriceImpactPct.Equal(first.PriceImpactPct))
		assert.True(t, q.MinAmountOut.Equal(first.MinAmountOut))
		assert.True(t, q.ExecutionPrice.Equal(first.ExecutionPrice))
	}
}

func TestCompute_TokenToSOLDirection(t *testing.T) {
	r := testReserves(10, 1000, 6)
	q := Compute(decimal.NewFromInt(100), false, r, 25, decimal.NewFromInt(1))
	require.NotNil(t, q)

	// 100 token in against 1000 token reserve moves ~0.9 SOL out
	assert.True(t, q.EstimatedOutput.LessThan(r.SOL))
	assert.InDelta(t, 0.9070, q.EstimatedOutput.InexactFloat64(), 0.001)

	// min out is scaled to SOL's 9 decimals
	assert.True(t, q.MinAmountOut.Equal(q.MinAmountOut.Floor()))
	assert.InDelta(t, 0.8979, q.MinAmountOut.Shift(-9).InexactFloat64(), 0.001)
}

func TestCompute_ZeroSlippageAndFee(t *testing.T) {
	r := testReserves(10, 1000, 6)
	q := Compute(decimal.NewFromInt(1), true, r, 0, decimal.Zero)
	require.NotNil(t, q)

	// no fee: out = 1000 - 10000/11 = 90.909...
	assert.InDelta(t, 90.9091, q.EstimatedOutput.InexactFloat64(), 0.001)
	assert.True(t, q.MinAmountOut.Equal(q.EstimatedOutput.Shift(6).Floor()))
}
