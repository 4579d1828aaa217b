package ledger

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/Projectsniper82/sniperlab-sub000/internal/wallet"
)

// Client is the on-chain collaborator consumed by the funding worker and the
// built-in strategies. Implementations move SOL and answer balance queries;
// nothing above this interface depends on ledger-specific encoding.
type Client interface {
	// RequestFaucetGrant asks the network faucet to credit pubkey with amountSOL.
	// Only available on networks where SupportsFaucet reports true.
	RequestFaucetGrant(ctx context.Context, pubkey solana.PublicKey, amountSOL decimal.Decimal) (string, error)

	// Transfer moves amountSOL from the signing wallet to the recipient and
	// returns the transaction signature.
	Transfer(ctx context.Context, from *wallet.Wallet, to solana.PublicKey, amountSOL decimal.Decimal) (string, error)

	// ConfirmTransaction blocks until the signature reaches the confirmed
	// commitment level or the context/timeout expires.
	ConfirmTransaction(ctx context.Context, signature string) error

	// GetBalanceSOL returns the account balance in UI units.
	GetBalanceSOL(ctx context.Context, pubkey solana.PublicKey) (decimal.Decimal, error)

	// GetTokenAccountBalance returns a token vault's UI amount and decimals.
	GetTokenAccountBalance(ctx context.Context, vault solana.PublicKey) (decimal.Decimal, int32, error)

	// GetAccountInfo reports whether an account exists on-chain.
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (bool, error)

	// SupportsFaucet reports whether the configured network has an airdrop faucet.
	SupportsFaucet() bool
}
