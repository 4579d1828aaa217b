package ledger

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Projectsniper82/sniperlab-sub000/internal/constants"
	projectrpc "github.com/Projectsniper82/sniperlab-sub000/internal/rpc"
	"github.com/Projectsniper82/sniperlab-sub000/internal/wallet"
)

// RPCConfig holds configuration for the RPC-backed ledger client
type RPCConfig struct {
	RPCURL            string
	Network           string // "devnet", "testnet", "mainnet-beta"
	Timeout           time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	RequestsPerSecond float64
	Logger            *logrus.Logger
}

// RPCClient implements Client against a Solana JSON-RPC endpoint
type RPCClient struct {
	rpc     *projectrpc.Client
	network string
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewRPCClient creates an RPC-backed ledger client
func NewRPCClient(cfg RPCConfig) (*RPCClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("ledger: RPCURL is required")
	}
	if cfg.Network == "" {
		cfg.Network = "devnet"
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.RequestsPerSecond <= 0 {
		// Public endpoints throttle aggressively; stay well under their limits.
		cfg.RequestsPerSecond = 4
	}

	rpcClient := projectrpc.NewClient(projectrpc.ClientConfig{
		BaseURL:      cfg.RPCURL,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       cfg.Logger,
	})

	return &RPCClient{
		rpc:     rpcClient,
		network: cfg.Network,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 2),
		logger:  cfg.Logger,
	}, nil
}

// SupportsFaucet reports whether the configured network has an airdrop faucet
func (c *RPCClient) SupportsFaucet() bool {
	return constants.FaucetNetworks[c.network]
}

// RequestFaucetGrant requests an airdrop to the given pubkey
func (c *RPCClient) RequestFaucetGrant(ctx context.Context, pubkey solana.PublicKey, amountSOL decimal.Decimal) (string, error) {
	if !c.SupportsFaucet() {
		return "", fmt.Errorf("no faucet on network %s", c.network)
	}

	lamports, err := lamportsFromSOL(amountSOL)
	if err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var resp struct {
		Result string               `json:"result"`
		Error  *projectrpc.RPCError `json:"error"`
	}

	params := []any{pubkey.String(), lamports}
	if err := c.rpc.Call(ctx, "requestAirdrop", params, &resp); err != nil {
		return "", fmt.Errorf("requestAirdrop RPC failed: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("requestAirdrop error: %s", resp.Error.Message)
	}

	c.logger.WithFields(logrus.Fields{
		"pubkey": pubkey.String(),
		"sol":    amountSOL.String(),
	}).Debug("faucet grant requested")

	return resp.Result, nil
}

// Transfer moves SOL from the signing wallet to the recipient
func (c *RPCClient) Transfer(ctx context.Context, from *wallet.Wallet, to solana.PublicKey, amountSOL decimal.Decimal) (string, error) {
	lamports, err := lamportsFromSOL(amountSOL)
	if err != nil {
		return "", err
	}
	if lamports == 0 {
		return "", fmt.Errorf("transfer amount rounds to zero lamports")
	}

	blockhash, err := c.latestBlockhash(ctx)
	if err != nil {
		return "", err
	}

	ix := system.NewTransferInstruction(lamports, from.PublicKey(), to).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		blockhash,
		solana.TransactionPayer(from.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := from.SignTx(tx); err != nil {
		return "", err
	}

	return c.sendTransaction(ctx, tx)
}

// ConfirmTransaction polls for transaction confirmation with exponential backoff
func (c *RPCClient) ConfirmTransaction(ctx context.Context, signature string) error {
	deadline := time.Now().Add(constants.ConfirmTimeout)
	backoff := 500 * time.Millisecond
	maxBackoff := 4 * time.Second

	for time.Now().Before(deadline) {
		confirmed, err := c.checkSignatureStatus(ctx, signature)
		if err != nil {
			return fmt.Errorf("failed to check signature: %w", err)
		}
		if confirmed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}

	return fmt.Errorf("transaction confirmation timeout after %v", constants.ConfirmTimeout)
}

// GetBalanceSOL returns the account balance in UI units
func (c *RPCClient) GetBalanceSOL(ctx context.Context, pubkey solana.PublicKey) (decimal.Decimal, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}

	var resp struct {
		Result struct {
			Value uint64 `json:"value"` // lamports
		} `json:"result"`
		Error *projectrpc.RPCError `json:"error"`
	}

	params := []any{
		pubkey.String(),
		map[string]any{"commitment": "confirmed"},
	}

	if err := c.rpc.Call(ctx, "getBalance", params, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("getBalance RPC failed: %w", err)
	}
	if resp.Error != nil {
		return decimal.Zero, fmt.Errorf("getBalance error: %s", resp.Error.Message)
	}

	return decimal.NewFromUint64(resp.Result.Value).Shift(-constants.SOLDecimals), nil
}

// GetTokenAccountBalance returns a token vault's UI amount and decimals
func (c *RPCClient) GetTokenAccountBalance(ctx context.Context, vault solana.PublicKey) (decimal.Decimal, int32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, 0, err
	}

	var resp struct {
		Result struct {
			Value projectrpc.TokenAmount `json:"value"`
		} `json:"result"`
		Error *projectrpc.RPCError `json:"error"`
	}

	params := []any{
		vault.String(),
		map[string]any{"commitment": "confirmed"},
	}

	if err := c.rpc.Call(ctx, "getTokenAccountBalance", params, &resp); err != nil {
		return decimal.Zero, 0, fmt.Errorf("getTokenAccountBalance RPC failed: %w", err)
	}
	if resp.Error != nil {
		return decimal.Zero, 0, fmt.Errorf("getTokenAccountBalance error: %s", resp.Error.Message)
	}

	val := resp.Result.Value
	raw, err := decimal.NewFromString(val.Amount)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("invalid token amount %q: %w", val.Amount, err)
	}

	return raw.Shift(-val.Decimals), val.Decimals, nil
}

// GetAccountInfo reports whether an account exists on-chain
func (c *RPCClient) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	var resp struct {
		Result struct {
			Value any `json:"value"`
		} `json:"result"`
		Error *projectrpc.RPCError `json:"error"`
	}

	params := []any{
		pubkey.String(),
		map[string]any{
			"encoding":   "base64",
			"commitment": "confirmed",
		},
	}

	if err := c.rpc.Call(ctx, "getAccountInfo", params, &resp); err != nil {
		return false, fmt.Errorf("getAccountInfo RPC failed: %w", err)
	}
	if resp.Error != nil {
		return false, fmt.Errorf("getAccountInfo error: %s", resp.Error.Message)
	}
	return resp.Result.Value != nil, nil
}

func (c *RPCClient) latestBlockhash(ctx context.Context) (solana.Hash, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return solana.Hash{}, err
	}

	var resp struct {
		Result struct {
			Value struct {
				Blockhash            string `json:"blockhash"`
				LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
			} `json:"value"`
		} `json:"result"`
		Error *projectrpc.RPCError `json:"error"`
	}

	params := []any{
		map[string]any{"commitment": "processed"},
	}

	if err := c.rpc.Call(ctx, "getLatestBlockhash", params, &resp); err != nil {
		return solana.Hash{}, fmt.Errorf("getLatestBlockhash failed: %w", err)
	}
	if resp.Error != nil {
		return solana.Hash{}, fmt.Errorf("getLatestBlockhash error: %s", resp.Error.Message)
	}

	hash, err := solana.HashFromBase58(resp.Result.Value.Blockhash)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("invalid blockhash format: %w", err)
	}

	return hash, nil
}

func (c *RPCClient) sendTransaction(ctx context.Context, tx *solana.Transaction) (string, error) {
	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}

	encodedTx := base64.StdEncoding.EncodeToString(txBytes)

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var resp struct {
		Result string               `json:"result"`
		Error  *projectrpc.RPCError `json:"error"`
	}

	params := []any{
		encodedTx,
		map[string]any{
			"encoding":            "base64",
			"skipPreflight":       false,
			"preflightCommitment": "processed",
		},
	}

	if err := c.rpc.Call(ctx, "sendTransaction", params, &resp); err != nil {
		return "", fmt.Errorf("sendTransaction RPC failed: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("sendTransaction error: code=%d, message=%s",
			resp.Error.Code, resp.Error.Message)
	}

	return resp.Result, nil
}

func (c *RPCClient) checkSignatureStatus(ctx context.Context, signature string) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	var resp struct {
		Result struct {
			Value []struct {
				Slot               uint64      `json:"slot"`
				Confirmations      *int        `json:"confirmations"`
				Err                interface{} `json:"err"`
				ConfirmationStatus string      `json:"confirmationStatus"`
			} `json:"value"`
		} `json:"result"`
		Error *projectrpc.RPCError `json:"error"`
	}

	params := []any{
		[]string{signature},
		map[string]any{"searchTransactionHistory": true},
	}

	if err := c.rpc.Call(ctx, "getSignatureStatuses", params, &resp); err != nil {
		return false, err
	}
	if resp.Error != nil {
		return false, fmt.Errorf("getSignatureStatuses error: %s", resp.Error.Message)
	}

	if len(resp.Result.Value) == 0 || resp.Result.Value[0].ConfirmationStatus == "" {
		return false, nil // Not yet processed
	}

	status := resp.Result.Value[0]
	if status.Err != nil {
		return false, fmt.Errorf("transaction failed: %v", status.Err)
	}

	return status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized", nil
}

// lamportsFromSOL converts a UI SOL amount to lamports, rejecting amounts that
// do not fit the smallest-unit representation.
func lamportsFromSOL(amountSOL decimal.Decimal) (uint64, error) {
	if amountSOL.Sign() <= 0 {
		return 0, fmt.Errorf("amount must be > 0")
	}
	scaled := amountSOL.Shift(constants.SOLDecimals).Floor()
	bi := scaled.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %s overflows lamports", amountSOL.String())
	}
	return bi.Uint64(), nil
}
