package bot

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Projectsniper82/sniperlab-sub000/internal/amm"
	"github.com/Projectsniper82/sniperlab-sub000/internal/history"
	"github.com/Projectsniper82/sniperlab-sub000/internal/quote"
	"github.com/Projectsniper82/sniperlab-sub000/internal/wallet"
)

// Kind selects one of the built-in strategies. The set is closed: strategies
// are compiled in, never loaded from user-supplied source.
type Kind string

const (
	KindRandomSwap  Kind = "random-swap"
	KindBuyDip      Kind = "buy-dip"
	KindMarketMaker Kind = "market-maker"
)

// Kinds lists the available strategy identifiers.
func Kinds() []Kind {
	return []Kind{KindRandomSwap, KindBuyDip, KindMarketMaker}
}

// TradeContext carries the shared collaborators a strategy trades against.
// History is optional; when nil, trades are not persisted.
type TradeContext struct {
	Pool        *amm.Pool
	History     *history.Store
	FeeBps      int64
	SlippagePct decimal.Decimal

	mu  sync.Mutex
	rng *rand.Rand
}

// NewTradeContext seeds a context with its own random source.
func NewTradeContext(pool *amm.Pool, hist *history.Store, feeBps int64, slippagePct decimal.Decimal, seed int64) *TradeContext {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &TradeContext{
		Pool:        pool,
		History:     hist,
		FeeBps:      feeBps,
		SlippagePct: slippagePct,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

func (tc *TradeContext) randFloat() float64 {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.rng.Float64()
}

// ForKind returns the strategy implementation for a kind.
func ForKind(kind Kind, tc *TradeContext) (Strategy, error) {
	switch kind {
	case KindRandomSwap:
		return RandomSwap(tc), nil
	case KindBuyDip:
		return BuyDip(tc), nil
	case KindMarketMaker:
		return MarketMaker(tc), nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", kind)
	}
}

// RandomSwap trades a random direction and size each tick: 0.1%-1% of the
// input-side reserve. Keeps organic-looking volume flowing through the pool.
func RandomSwap(tc *TradeContext) Strategy {
	return func(ctx context.Context, w *wallet.Wallet, log LogFunc) error {
		buy := tc.randFloat() < 0.5
		fraction := decimal.NewFromFloat(0.001 + tc.randFloat()*0.009)
		return executeTrade(ctx, tc, w, log, buy, fraction)
	}
}

// BuyDip buys a fixed fraction whenever the latest candle closed more than 1%
// below its open, and otherwise sits out the tick.
func BuyDip(tc *TradeContext) Strategy {
	dipThreshold := decimal.RequireFromString("0.99")
	return func(ctx context.Context, w *wallet.Wallet, log LogFunc) error {
		candles := tc.Pool.Candles()
		if len(candles) == 0 {
			log("no candle history yet, waiting")
			return nil
		}
		last := candles[len(candles)-1]
		if last.Open.Sign() <= 0 || last.Close.GreaterThanOrEqual(last.Open.Mul(dipThreshold)) {
			log("no dip detected, holding")
			return nil
		}
		return executeTrade(ctx, tc, w, log, true, decimal.RequireFromString("0.005"))
	}
}

// MarketMaker alternates buy and sell ticks of a small fixed size, recycling
// inventory around the current price.
func MarketMaker(tc *TradeContext) Strategy {
	var mu sync.Mutex
	buyNext := true
	size := decimal.RequireFromString("0.002")

	return func(ctx context.Context, w *wallet.Wallet, log LogFunc) error {
		mu.Lock()
		buy := buyNext
		buyNext = !buyNext
		mu.Unlock()
		return executeTrade(ctx, tc, w, log, buy, size)
	}
}

// executeTrade quotes and applies one trade against the simulated pool. The
// trade size is a fraction of the input-side reserve so strategies scale with
// pool depth instead of draining shallow pools.
func executeTrade(ctx context.Context, tc *TradeContext, w *wallet.Wallet, log LogFunc, buy bool, fraction decimal.Decimal) error {
	state, ok := tc.Pool.Snapshot()
	if !ok {
		log("no active pool, skipping tick")
		return nil
	}

	reserves := &quote.Reserves{
		SOL:           state.ReserveSOL,
		Token:         state.ReserveToken,
		TokenDecimals: state.TokenDecimals,
	}

	var amountIn decimal.Decimal
	if buy {
		amountIn = state.ReserveSOL.Mul(fraction)
	} else {
		amountIn = state.ReserveToken.Mul(fraction)
	}

	q := quote.Compute(amountIn, buy, reserves, tc.FeeBps, tc.SlippagePct)
	if q == nil || q.EstimatedOutput.Sign() <= 0 {
		log("pool cannot satisfy trade, skipping")
		return nil
	}

	var tokenDelta, solDelta decimal.Decimal
	if buy {
		solDelta = amountIn
		tokenDelta = q.EstimatedOutput.Neg()
	} else {
		tokenDelta = amountIn
		solDelta = q.EstimatedOutput.Neg()
	}

	if err := tc.Pool.UpdateAfterTrade(tokenDelta, solDelta); err != nil {
		return fmt.Errorf("apply trade: %w", err)
	}

	side := "sell"
	if buy {
		side = "buy"
	}
	log(fmt.Sprintf("%s in=%s out=%s impact=%s%%",
		side, amountIn.StringFixed(6), q.EstimatedOutput.StringFixed(6), q.PriceImpactPct.StringFixed(2)))

	if tc.History != nil {
		ev := &history.TradeEvent{
			Wallet:    w.Address(),
			Timestamp: time.Now(),
			Side:      side,
			TokenMint: state.TokenMint,
			Price:     state.Price.InexactFloat64(),
		}
		if buy {
			ev.AmountSOL = amountIn.InexactFloat64()
			ev.AmountToken = q.EstimatedOutput.InexactFloat64()
		} else {
			ev.AmountToken = amountIn.InexactFloat64()
			ev.AmountSOL = q.EstimatedOutput.InexactFloat64()
		}
		if err := tc.History.InsertTrade(ctx, ev); err != nil {
			log(fmt.Sprintf("history insert failed: %v", err))
		}
	}

	return nil
}
