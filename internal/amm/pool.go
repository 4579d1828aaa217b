package amm

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Projectsniper82/sniperlab-sub000/internal/constants"
)

// ErrNoPool is returned when a trade is applied before any pool is set.
var ErrNoPool = fmt.Errorf("no pool set")

// Candle is one OHLC point derived from a trade application.
type Candle struct {
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Timestamp time.Time       `json:"timestamp"`
}

// PoolConfig describes the pool being simulated.
type PoolConfig struct {
	TokenMint     string
	TokenDecimals int32
	ReserveSOL    decimal.Decimal
	ReserveToken  decimal.Decimal
}

// State is an immutable snapshot of the pool.
type State struct {
	TokenMint     string          `json:"token_mint"`
	TokenDecimals int32           `json:"token_decimals"`
	ReserveSOL    decimal.Decimal `json:"reserve_sol"`
	ReserveToken  decimal.Decimal `json:"reserve_token"`
	Price         decimal.Decimal `json:"price"`
	Volume        decimal.Decimal `json:"volume"`
}

// Pool tracks a single constant-product pool's reserves, price, cumulative
// volume, and candle history. All mutation goes through UpdateAfterTrade; the
// invariant math is not safely interleavable, so a mutex serializes access.
type Pool struct {
	mu sync.Mutex

	set           bool
	tokenMint     string // canonical lower case for equality checks
	tokenDecimals int32
	reserveSOL    decimal.Decimal
	reserveToken  decimal.Decimal
	price         decimal.Decimal
	volume        decimal.Decimal
	candles       []Candle

	now    func() time.Time
	logger *logrus.Logger
}

// Option customizes pool construction.
type Option func(*Pool)

// WithClock injects the time source used for candle timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

// New creates an empty pool store. SetPool must be called before trades apply.
func New(logger *logrus.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = logrus.New()
	}
	p := &Pool{
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetPool replaces or clears the active pool. Passing nil clears all state
// (token/network switch). A newly set pool with no candle history is seeded
// with a single candle at the current price.
func (p *Pool) SetPool(cfg *PoolConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cfg == nil {
		p.set = false
		p.tokenMint = ""
		p.tokenDecimals = 0
		p.reserveSOL = decimal.Zero
		p.reserveToken = decimal.Zero
		p.price = decimal.Zero
		p.volume = decimal.Zero
		p.candles = nil
		return
	}

	p.set = true
	p.tokenMint = strings.ToLower(cfg.TokenMint)
	p.tokenDecimals = cfg.TokenDecimals
	p.reserveSOL = cfg.ReserveSOL
	p.reserveToken = cfg.ReserveToken
	p.volume = decimal.Zero
	p.candles = nil

	if cfg.ReserveToken.Sign() > 0 {
		p.price = cfg.ReserveSOL.DivRound(cfg.ReserveToken, pricePrecision)
	} else {
		p.price = decimal.Zero
	}

	p.candles = append(p.candles, Candle{
		Open:      p.price,
		High:      p.price,
		Low:       p.price,
		Close:     p.price,
		Timestamp: p.now(),
	})

	p.logger.WithFields(logrus.Fields{
		"token": p.tokenMint,
		"price": p.price.String(),
	}).Debug("pool set")
}

// UpdateAfterTrade applies reserve deltas from an executed trade. Reserves that
// would reach zero or below are clamped to the smallest representable unit for
// the asset, which keeps the price finite while flagging the distorted state.
func (p *Pool) UpdateAfterTrade(tokenDelta, solDelta decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.set {
		return ErrNoPool
	}

	prePrice := p.price

	p.reserveSOL = p.reserveSOL.Add(solDelta)
	p.reserveToken = p.reserveToken.Add(tokenDelta)

	minSOL := smallestUnit(constants.SOLDecimals)
	if p.reserveSOL.LessThanOrEqual(decimal.Zero) {
		p.logger.WithField("reserve_sol", p.reserveSOL.String()).Warn("SOL reserve clamped to minimum unit")
		p.reserveSOL = minSOL
	}
	minToken := smallestUnit(p.tokenDecimals)
	if p.reserveToken.LessThanOrEqual(decimal.Zero) {
		p.logger.WithField("reserve_token", p.reserveToken.String()).Warn("token reserve clamped to minimum unit")
		p.reserveToken = minToken
	}

	p.volume = p.volume.Add(solDelta.Abs())

	newPrice := p.reserveSOL.DivRound(p.reserveToken, pricePrecision)
	if newPrice.Sign() <= 0 {
		// Keep the previous price rather than recording an invalid one.
		newPrice = prePrice
	}
	p.price = newPrice

	candle := Candle{
		Open:      prePrice,
		Close:     newPrice,
		High:      decimal.Max(prePrice, newPrice),
		Low:       decimal.Min(prePrice, newPrice),
		Timestamp: p.now(),
	}
	p.candles = append(p.candles, candle)
	if len(p.candles) > constants.MaxCandles {
		p.candles = p.candles[len(p.candles)-constants.MaxCandles:]
	}

	return nil
}

// PoolExistsForToken reports whether the active pool pairs the given token.
// The match is case-insensitive; false when no pool is set.
func (p *Pool) PoolExistsForToken(tokenMint string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.set {
		return false
	}
	return p.tokenMint == strings.ToLower(strings.TrimSpace(tokenMint))
}

// Snapshot returns the current pool state; ok is false when no pool is set.
func (p *Pool) Snapshot() (State, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.set {
		return State{}, false
	}
	return State{
		TokenMint:     p.tokenMint,
		TokenDecimals: p.tokenDecimals,
		ReserveSOL:    p.reserveSOL,
		ReserveToken:  p.reserveToken,
		Price:         p.price,
		Volume:        p.volume,
	}, true
}

// Candles returns a copy of the candle history, oldest first.
func (p *Pool) Candles() []Candle {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Candle, len(p.candles))
	copy(out, p.candles)
	return out
}

const pricePrecision = 28

func smallestUnit(decimals int32) decimal.Decimal {
	return decimal.New(1, -decimals)
}
