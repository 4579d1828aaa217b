package amm

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	ts := time.Unix(1700000000, 0)
	return New(logger, WithClock(func() time.Time {
		ts = ts.Add(time.Second)
		return ts
	}))
}

func defaultConfig() *PoolConfig {
	return &PoolConfig{
		TokenMint:     "TokenMint1111111111111111111111111111111111",
		TokenDecimals: 6,
		ReserveSOL:    decimal.NewFromInt(10),
		ReserveToken:  decimal.NewFromInt(1000),
	}
}

func TestSetPool_SeedsCandle(t *testing.T) {
	p := newTestPool(t)
	p.SetPool(defaultConfig())

	state, ok := p.Snapshot()
	require.True(t, ok)
	assert.True(t, state.Price.Equal(decimal.RequireFromString("0.01")))
	assert.True(t, state.Volume.IsZero())

	candles := p.Candles()
	require.Len(t, candles, 1)
	assert.True(t, candles[0].Open.Equal(state.Price))
	assert.True(t, candles[0].Close.Equal(state.Price))
}

func TestSetPool_NilClears(t *testing.T) {
	p := newTestPool(t)
	p.SetPool(defaultConfig())
	p.SetPool(nil)

	_, ok := p.Snapshot()
	assert.False(t, ok)
	assert.Empty(t, p.Candles())
	assert.ErrorIs(t, p.UpdateAfterTrade(decimal.NewFromInt(1), decimal.NewFromInt(1)), ErrNoPool)
}

func TestUpdateAfterTrade_RecomputesPriceAndVolume(t *testing.T) {
	p := newTestPool(t)
	p.SetPool(defaultConfig())

	// Buy: ~90.7 token leaves, 1 SOL enters.
	err := p.UpdateAfterTrade(decimal.RequireFromString("-90.70"), decimal.NewFromInt(1))
	require.NoError(t, err)

	state, ok := p.Snapshot()
	require.True(t, ok)
	assert.True(t, state.ReserveSOL.Equal(decimal.NewFromInt(11)))
	assert.True(t, state.ReserveToken.Equal(decimal.RequireFromString("909.30")))
	assert.InDelta(t, 11.0/909.30, state.Price.InexactFloat64(), 1e-9)
	assert.True(t, state.Volume.Equal(decimal.NewFromInt(1)))

	// Sell adds to volume by |solDelta| regardless of sign.
	err = p.UpdateAfterTrade(decimal.RequireFromString("50"), decimal.RequireFromString("-0.5"))
	require.NoError(t, err)

	state, _ = p.Snapshot()
	assert.True(t, state.Volume.Equal(decimal.RequireFromString("1.5")))
}

func TestUpdateAfterTrade_CandleInvariants(t *testing.T) {
	p := newTestPool(t)
	p.SetPool(defaultConfig())

	deltas := []struct{ token, sol string }{
		{"-90.70", "1"},
		{"100", "-1.2"},
		{"-5", "0.05"},
		{"200", "-1.5"},
	}
	for _, d := range deltas {
		require.NoError(t, p.UpdateAfterTrade(
			decimal.RequireFromString(d.token),
			decimal.RequireFromString(d.sol),
		))
	}

	for i, c := range p.Candles() {
		assert.True(t, c.High.GreaterThanOrEqual(decimal.Max(c.Open, c.Close)),
			"candle %d: high below open/close", i)
		assert.True(t, c.Low.LessThanOrEqual(decimal.Min(c.Open, c.Close)),
			"candle %d: low above open/close", i)
	}
}

func TestUpdateAfterTrade_ClampsDrainedReserve(t *testing.T) {
	p := newTestPool(t)
	p.SetPool(defaultConfig())

	// Token delta that would drive the token reserve to exactly zero.
	err := p.UpdateAfterTrade(decimal.NewFromInt(-1000), decimal.NewFromInt(5))
	require.NoError(t, err)

	state, ok := p.Snapshot()
	require.True(t, ok)
	assert.True(t, state.ReserveToken.Equal(decimal.RequireFromString("0.000001")),
		"token reserve clamps to the smallest unit for 6 decimals")
	assert.True(t, state.Price.Sign() > 0, "price stays finite and positive")

	// Same for the SOL side, clamped at 1 lamport.
	err = p.UpdateAfterTrade(decimal.NewFromInt(500), decimal.NewFromInt(-100))
	require.NoError(t, err)

	state, _ = p.Snapshot()
	assert.True(t, state.ReserveSOL.Equal(decimal.RequireFromString("0.000000001")))
	assert.True(t, state.Price.Sign() > 0)
}

func TestCandles_EvictOldestPastCapacity(t *testing.T) {
	p := newTestPool(t)
	p.SetPool(defaultConfig())

	for i := 0; i < 150; i++ {
		delta := decimal.RequireFromString("0.001")
		if i%2 == 0 {
			delta = delta.Neg()
		}
		require.NoError(t, p.UpdateAfterTrade(delta, decimal.RequireFromString("0.0001")))
	}

	candles := p.Candles()
	assert.Len(t, candles, 100)

	// Ordered oldest first; the retained window is the most recent one.
	for i := 1; i < len(candles); i++ {
		assert.False(t, candles[i].Timestamp.Before(candles[i-1].Timestamp))
	}
}

func TestPoolExistsForToken(t *testing.T) {
	p := newTestPool(t)
	assert.False(t, p.PoolExistsForToken("TokenMint1111111111111111111111111111111111"))

	p.SetPool(defaultConfig())
	assert.True(t, p.PoolExistsForToken("TokenMint1111111111111111111111111111111111"))
	assert.True(t, p.PoolExistsForToken("TOKENMINT1111111111111111111111111111111111"))
	assert.True(t, p.PoolExistsForToken("  tokenmint1111111111111111111111111111111111  "))
	assert.False(t, p.PoolExistsForToken("OtherMint"))
}
