package constants

import "time"

// Denominations
const (
	LamportsPerSOL = uint64(1_000_000_000)
	SOLDecimals    = int32(9)
)

// Redis keys
const (
	RedisKeyWalletPrefix = "wallets:"
)

// Capacity limits shared by the in-memory stores
const (
	MaxBotLogEntries = 100
	MaxCandles       = 100
)

// Faucet / confirmation settings
const (
	FaucetMaxGrantSOL  = 2.0
	ConfirmTimeout     = 60 * time.Second
	DepositWaitTimeout = 2 * time.Minute
)

// Well-known mints
const (
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
)

// Default RPC endpoints by network
var RPCEndpoints = map[string]string{
	"mainnet-beta": "https://api.mainnet-beta.solana.com",
	"devnet":       "https://api.devnet.solana.com",
	"testnet":      "https://api.testnet.solana.com",
}

// Networks where requestAirdrop is available
var FaucetNetworks = map[string]bool{
	"devnet":  true,
	"testnet": true,
}
