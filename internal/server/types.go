package server

import "github.com/Projectsniper82/sniperlab-sub000/internal/bot"

// ErrorResponse is the uniform error envelope for every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"` // dev mode only
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// QuoteResponse carries a priced swap. Decimal values are serialized as
// strings so clients never lose precision to float parsing.
type QuoteResponse struct {
	Side            string `json:"side"`
	InputAmount     string `json:"input_amount"`
	EstimatedOutput string `json:"estimated_output"`
	PriceImpactPct  string `json:"price_impact_pct"`
	MinAmountOut    string `json:"min_amount_out"`
	ExecutionPrice  string `json:"execution_price"`
}

// PoolUpsertRequest seeds or replaces the simulated pool.
type PoolUpsertRequest struct {
	TokenMint     string `json:"token_mint"`
	TokenDecimals int32  `json:"token_decimals"`
	ReserveSOL    string `json:"reserve_sol"`
	ReserveToken  string `json:"reserve_token"`
}

// PoolResponse is the serialized pool snapshot.
type PoolResponse struct {
	TokenMint     string `json:"token_mint"`
	TokenDecimals int32  `json:"token_decimals"`
	ReserveSOL    string `json:"reserve_sol"`
	ReserveToken  string `json:"reserve_token"`
	Price         string `json:"price"`
	Volume        string `json:"volume"`
}

// BotStartRequest starts a bot with an optional strategy and interval override.
type BotStartRequest struct {
	Strategy        string `json:"strategy"`
	IntervalSeconds int    `json:"interval_seconds"`
}

// BotStatusResponse reports one bot after a start/stop transition.
type BotStatusResponse struct {
	Wallet    string `json:"wallet"`
	IsRunning bool   `json:"is_running"`
}

// BotListResponse enumerates the fleet plus the strategy catalog.
type BotListResponse struct {
	Items      []bot.BotStatus `json:"items"`
	Strategies []bot.Kind      `json:"strategies"`
}

// FundingRunRequest triggers one funding run on the worker.
type FundingRunRequest struct {
	TotalAmount     string `json:"total_amount"`
	DurationMinutes int    `json:"duration_minutes"`
	Network         string `json:"network"`
	RPCEndpoint     string `json:"rpc_endpoint"`
}

// WalletImportRequest loads a saved wallet set and registers it as bots.
type WalletImportRequest struct {
	Network    string `json:"network"`
	Passphrase string `json:"passphrase"`
}
