package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Projectsniper82/sniperlab-sub000/internal/amm"
	"github.com/Projectsniper82/sniperlab-sub000/internal/bot"
	"github.com/Projectsniper82/sniperlab-sub000/internal/funding"
	"github.com/Projectsniper82/sniperlab-sub000/internal/history"
	"github.com/Projectsniper82/sniperlab-sub000/internal/quote"
	"github.com/Projectsniper82/sniperlab-sub000/internal/walletstore"
)

// Handlers contains all dependencies for API endpoint handlers.
type Handlers struct {
	Bots        *bot.Registry      // fleet scheduler
	Pool        *amm.Pool          // simulated pool state
	Trades      *bot.TradeContext  // shared strategy collaborators
	Funding     *funding.Worker    // funding run actor
	Feed        *FundingFeed       // funding progress visible to operators
	Wallets     *walletstore.Store // encrypted wallet persistence
	History     *history.Store     // optional trade history sink
	Network     string             // default network for funding runs
	SlippagePct decimal.Decimal    // default slippage tolerance for quotes
	DevMode     bool               // include error details in responses
	Logger      *logrus.Logger
}

// err returns the standardized JSON error envelope. Details are only exposed
// in dev mode.
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple liveness check.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// Quote prices a swap against the current pool reserves.
// Query params: amount (required), side (buy|sell, default buy),
// slippage_pct (optional override of the configured tolerance).
func (h *Handlers) Quote(c echo.Context) error {
	amountStr := strings.TrimSpace(c.QueryParam("amount"))
	if amountStr == "" {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "required"})
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil || amount.Sign() <= 0 {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be a positive decimal"})
	}

	side := strings.TrimSpace(c.QueryParam("side"))
	if side == "" {
		side = "buy"
	}
	if side != "buy" && side != "sell" {
		return h.err(c, http.StatusBadRequest, "invalid side", map[string]any{"side": "must be buy or sell"})
	}
	inputIsSOL := side == "buy"

	slippage := h.SlippagePct
	if v := strings.TrimSpace(c.QueryParam("slippage_pct")); v != "" {
		s, err := decimal.NewFromString(v)
		if err != nil || s.Sign() < 0 || s.GreaterThan(decimal.NewFromInt(100)) {
			return h.err(c, http.StatusBadRequest, "invalid slippage_pct", map[string]any{"slippage_pct": "must be in [0, 100]"})
		}
		slippage = s
	}

	state, ok := h.Pool.Snapshot()
	if !ok {
		return h.err(c, http.StatusNotFound, "no active pool", nil)
	}

	q := quote.Compute(amount, inputIsSOL, &quote.Reserves{
		SOL:           state.ReserveSOL,
		Token:         state.ReserveToken,
		TokenDecimals: state.TokenDecimals,
	}, h.Trades.FeeBps, slippage)
	if q == nil {
		return h.err(c, http.StatusBadRequest, "quote failed", nil)
	}

	return c.JSON(http.StatusOK, QuoteResponse{
		Side:            side,
		InputAmount:     amount.String(),
		EstimatedOutput: q.EstimatedOutput.String(),
		PriceImpactPct:  q.PriceImpactPct.String(),
		MinAmountOut:    q.MinAmountOut.String(),
		ExecutionPrice:  q.ExecutionPrice.String(),
	})
}

// PoolGet returns the pool snapshot, or 404 when no pool is set.
func (h *Handlers) PoolGet(c echo.Context) error {
	state, ok := h.Pool.Snapshot()
	if !ok {
		return h.err(c, http.StatusNotFound, "no active pool", nil)
	}
	return c.JSON(http.StatusOK, poolResponse(state))
}

// PoolUpsert seeds or replaces the simulated pool.
func (h *Handlers) PoolUpsert(c echo.Context) error {
	var req PoolUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	req.TokenMint = strings.TrimSpace(req.TokenMint)
	if req.TokenMint == "" {
		return h.err(c, http.StatusBadRequest, "invalid token_mint", map[string]any{"token_mint": "required"})
	}
	if req.TokenDecimals < 0 || req.TokenDecimals > 18 {
		return h.err(c, http.StatusBadRequest, "invalid token_decimals", map[string]any{"token_decimals": "must be in [0, 18]"})
	}

	reserveSOL, err := decimal.NewFromString(req.ReserveSOL)
	if err != nil || reserveSOL.Sign() <= 0 {
		return h.err(c, http.StatusBadRequest, "invalid reserve_sol", map[string]any{"reserve_sol": "must be a positive decimal"})
	}
	reserveToken, err := decimal.NewFromString(req.ReserveToken)
	if err != nil || reserveToken.Sign() <= 0 {
		return h.err(c, http.StatusBadRequest, "invalid reserve_token", map[string]any{"reserve_token": "must be a positive decimal"})
	}

	h.Pool.SetPool(&amm.PoolConfig{
		TokenMint:     req.TokenMint,
		TokenDecimals: req.TokenDecimals,
		ReserveSOL:    reserveSOL,
		ReserveToken:  reserveToken,
	})

	state, _ := h.Pool.Snapshot()
	return c.JSON(http.StatusOK, poolResponse(state))
}

// PoolDelete clears the pool, as on a token or network switch.
func (h *Handlers) PoolDelete(c echo.Context) error {
	h.Pool.SetPool(nil)
	return c.NoContent(http.StatusNoContent)
}

// PoolCandles returns the candle history, oldest first.
func (h *Handlers) PoolCandles(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"items": h.Pool.Candles()})
}

// BotsList returns every registered bot and the strategy catalog.
func (h *Handlers) BotsList(c echo.Context) error {
	return c.JSON(http.StatusOK, BotListResponse{
		Items:      h.Bots.ListBots(),
		Strategies: bot.Kinds(),
	})
}

// BotStart starts a registered bot, optionally installing a strategy from the
// catalog and an interval override.
func (h *Handlers) BotStart(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if !h.Bots.Has(id) {
		return h.err(c, http.StatusNotFound, "bot not found", nil)
	}

	var req BotStartRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	var strategy bot.Strategy
	if kind := strings.TrimSpace(req.Strategy); kind != "" {
		s, err := bot.ForKind(bot.Kind(kind), h.Trades)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid strategy", map[string]any{"strategy": kind})
		}
		strategy = s
	}

	var interval time.Duration
	if req.IntervalSeconds < 0 {
		return h.err(c, http.StatusBadRequest, "invalid interval_seconds", map[string]any{"interval_seconds": "must be >= 0"})
	}
	if req.IntervalSeconds > 0 {
		interval = time.Duration(req.IntervalSeconds) * time.Second
	}

	h.Bots.StartBot(id, strategy, interval)
	return c.JSON(http.StatusOK, BotStatusResponse{Wallet: id, IsRunning: h.Bots.IsRunning(id)})
}

// BotStop stops a running bot. Stopping a stopped bot is a no-op.
func (h *Handlers) BotStop(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if !h.Bots.Has(id) {
		return h.err(c, http.StatusNotFound, "bot not found", nil)
	}

	h.Bots.StopBot(id)
	return c.JSON(http.StatusOK, BotStatusResponse{Wallet: id, IsRunning: h.Bots.IsRunning(id)})
}

// BotLogs returns a bot's log entries, newest first.
func (h *Handlers) BotLogs(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if !h.Bots.Has(id) {
		return h.err(c, http.StatusNotFound, "bot not found", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": h.Bots.GetLogs(id)})
}

// RecentTrades returns the latest persisted trades with an optional limit
// query parameter (default 100, range 1-200).
func (h *Handlers) RecentTrades(c echo.Context) error {
	if h.History == nil {
		return h.err(c, http.StatusBadRequest, "history is not configured", nil)
	}

	limit := 100
	if v := strings.TrimSpace(c.QueryParam("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.History.RecentTrades(ctx, limit)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get trades", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FundingRun hands one funding command to the worker. The worker accepts a
// single run at a time; a busy worker yields 409 instead of queueing.
func (h *Handlers) FundingRun(c echo.Context) error {
	var req FundingRunRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	total, err := decimal.NewFromString(strings.TrimSpace(req.TotalAmount))
	if err != nil || total.Sign() <= 0 {
		return h.err(c, http.StatusBadRequest, "invalid total_amount", map[string]any{"total_amount": "must be a positive decimal"})
	}
	if req.DurationMinutes <= 0 {
		return h.err(c, http.StatusBadRequest, "invalid duration_minutes", map[string]any{"duration_minutes": "must be > 0"})
	}

	network := strings.TrimSpace(req.Network)
	if network == "" {
		network = h.Network
	}

	cmd := funding.Command{
		TotalAmount:     total,
		DurationMinutes: req.DurationMinutes,
		Network:         network,
		RPCEndpoint:     strings.TrimSpace(req.RPCEndpoint),
	}

	select {
	case h.Funding.Commands() <- cmd:
	default:
		return h.err(c, http.StatusConflict, "funding run already in progress", nil)
	}

	h.Logger.WithFields(logrus.Fields{
		"total":   total.String(),
		"network": network,
	}).Info("funding run accepted")
	return c.JSON(http.StatusAccepted, map[string]any{"accepted": true})
}

// FundingEvents returns the funding progress feed, newest first.
func (h *Handlers) FundingEvents(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"items": h.Feed.Recent()})
}

// WalletsImport loads a saved wallet set and registers each wallet as a
// stopped bot. Re-importing is idempotent.
func (h *Handlers) WalletsImport(c echo.Context) error {
	var req WalletImportRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := walletstore.ValidateNetwork(req.Network); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid network", nil)
	}
	if req.Passphrase == "" {
		return h.err(c, http.StatusBadRequest, "passphrase is required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	wallets, err := h.Wallets.Load(ctx, req.Network, req.Passphrase)
	if err != nil {
		if errors.Is(err, walletstore.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "no wallets saved for network", nil)
		}
		if errors.Is(err, walletstore.ErrBadPassphrase) {
			return h.err(c, http.StatusUnauthorized, "wrong passphrase", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to load wallets", nil)
	}

	addresses := make([]string, 0, len(wallets))
	for _, w := range wallets {
		if err := h.Bots.AddBot(w, nil, 0); err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to register bot", nil)
		}
		addresses = append(addresses, w.Address())
	}

	h.Logger.WithFields(logrus.Fields{
		"network": req.Network,
		"count":   len(addresses),
	}).Info("wallets imported")
	return c.JSON(http.StatusOK, map[string]any{"items": addresses})
}

// WalletsClear deletes the saved wallet set for a network.
func (h *Handlers) WalletsClear(c echo.Context) error {
	network := c.Param("network")
	if err := walletstore.ValidateNetwork(network); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid network", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Wallets.Clear(ctx, network); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to clear wallets", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

func poolResponse(state amm.State) PoolResponse {
	return PoolResponse{
		TokenMint:     state.TokenMint,
		TokenDecimals: state.TokenDecimals,
		ReserveSOL:    state.ReserveSOL.String(),
		ReserveToken:  state.ReserveToken.String(),
		Price:         state.Price.String(),
		Volume:        state.Volume.String(),
	}
}
