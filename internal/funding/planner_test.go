package funding

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlan_SharesSumExactly(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	totals := []string{"1", "0.5", "6", "10.123456789", "0.000001", "99999.999999999"}
	for _, ts := range totals {
		total := decimal.RequireFromString(ts)
		plan, err := BuildPlan(total, 6, 3*time.Minute, rng)
		require.NoError(t, err, "total %s", ts)

		sum := decimal.Zero
		for _, share := range plan.Shares {
			sum = sum.Add(share)
		}
		assert.True(t, sum.Equal(total), "total %s: shares sum to %s", ts, sum)
	}
}

func TestBuildPlan_SharesSumExactly_Property(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	for i := 0; i < 500; i++ {
		total := decimal.NewFromFloat(rng.Float64()*10000 + 0.001)
		count := rng.Intn(12) + 1

		plan, err := BuildPlan(total, count, 3*time.Minute, rng)
		require.NoError(t, err)
		require.Len(t, plan.Shares, count)

		sum := decimal.Zero
		for _, share := range plan.Shares {
			assert.True(t, share.Sign() > 0, "every share positive")
			sum = sum.Add(share)
		}
		assert.True(t, sum.Equal(total), "iteration %d: %s != %s", i, sum, total)
	}
}

func TestBuildPlan_JitterBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	total := decimal.NewFromInt(60)
	even := decimal.NewFromInt(10)

	lower := even.Mul(decimal.RequireFromString("0.89"))
	upper := even.Mul(decimal.RequireFromString("1.11"))

	for i := 0; i < 100; i++ {
		plan, err := BuildPlan(total, 6, 3*time.Minute, rng)
		require.NoError(t, err)

		// All but the residual slot stay within the ±10% band.
		for j := 0; j < 5; j++ {
			share := plan.Shares[j]
			assert.True(t, share.GreaterThan(lower), "share %s below jitter band", share)
			assert.True(t, share.LessThan(upper), "share %s above jitter band", share)
		}
	}
}

func TestBuildPlan_DelaysClampedToWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	// A window shorter than the natural schedule forces clamping.
	window := 20 * time.Second
	for i := 0; i < 200; i++ {
		plan, err := BuildPlan(decimal.NewFromInt(6), 6, window, rng)
		require.NoError(t, err)

		assert.LessOrEqual(t, plan.TotalElapsed(), window,
			"cumulative schedule must not overshoot the window")
		for _, d := range plan.Delays {
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.Less(t, d, DelayMax)
		}
	}
}

func TestBuildPlan_DelaysWithinRandomBand(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	// A generous window leaves every delay unclamped.
	plan, err := BuildPlan(decimal.NewFromInt(6), 6, time.Hour, rng)
	require.NoError(t, err)

	for _, d := range plan.Delays {
		assert.GreaterOrEqual(t, d, DelayMin)
		assert.Less(t, d, DelayMax)
	}
}

func TestBuildPlan_Validation(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	_, err := BuildPlan(decimal.Zero, 6, time.Minute, rng)
	assert.Error(t, err)

	_, err = BuildPlan(decimal.NewFromInt(-1), 6, time.Minute, rng)
	assert.Error(t, err)

	_, err = BuildPlan(decimal.NewFromInt(1), 0, time.Minute, rng)
	assert.Error(t, err)

	_, err = BuildPlan(decimal.NewFromInt(1), 6, 0, rng)
	assert.Error(t, err)
}

func TestBuildPlan_SingleWallet(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	total := decimal.RequireFromString("1.5")
	plan, err := BuildPlan(total, 1, time.Minute, rng)
	require.NoError(t, err)
	require.Len(t, plan.Shares, 1)
	assert.True(t, plan.Shares[0].Equal(total))
}
