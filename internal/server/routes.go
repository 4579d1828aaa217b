package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers.
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = JSONErrorHandler()

	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)
	v1.GET("/quote", h.Quote)

	v1.GET("/pool", h.PoolGet)
	v1.PUT("/pool", h.PoolUpsert)
	v1.DELETE("/pool", h.PoolDelete)
	v1.GET("/pool/candles", h.PoolCandles)

	v1.GET("/trades/recent", h.RecentTrades)

	v1.GET("/bots", h.BotsList)
	v1.POST("/bots/:id/start", h.BotStart)
	v1.POST("/bots/:id/stop", h.BotStop)
	v1.GET("/bots/:id/logs", h.BotLogs)

	// Funding runs move real capital on devnet and hammer the faucet, so the
	// trigger endpoint is rate limited well below the faucet's own limits.
	fundGroup := v1.Group("/funding")
	fundGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(0.2), // 1 request every 5 seconds
		Burst:     2,
		ExpiresIn: 2 * time.Minute,
	})))
	fundGroup.POST("/run", h.FundingRun)
	fundGroup.GET("/events", h.FundingEvents)

	v1.POST("/wallets/import", h.WalletsImport)
	v1.DELETE("/wallets/:network", h.WalletsClear)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
