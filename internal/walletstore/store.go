package walletstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/redis/go-redis/v9"

	"github.com/Projectsniper82/sniperlab-sub000/internal/constants"
	"github.com/Projectsniper82/sniperlab-sub000/internal/wallet"
)

var (
	// ErrNotFound means no wallets are saved for the network.
	ErrNotFound = fmt.Errorf("no wallets saved for network")
	// ErrBadPassphrase means decryption failed authentication.
	ErrBadPassphrase = fmt.Errorf("wrong passphrase or corrupted wallet data")
)

var networkRe = regexp.MustCompile(`^[a-z0-9-]{1,32}$`)

// Store persists the managed wallet set keyed by network. Secret keys are
// sealed with a passphrase-derived authenticated cipher before they reach
// Redis; there is no fallback passphrase.
type Store struct {
	client redis.Cmdable
}

// NewStore wraps a Redis client.
func NewStore(client redis.Cmdable) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Store{client: client}, nil
}

// ValidateNetwork rejects malformed network identifiers.
func ValidateNetwork(network string) error {
	if !networkRe.MatchString(network) {
		return fmt.Errorf("invalid network identifier")
	}
	return nil
}

// Save seals and stores the wallet set for a network, replacing any previous set.
func (s *Store) Save(ctx context.Context, network string, wallets []*wallet.Wallet, passphrase string) error {
	if err := ValidateNetwork(network); err != nil {
		return err
	}
	if passphrase == "" {
		return fmt.Errorf("passphrase is required")
	}

	secrets := make([][]byte, len(wallets))
	for i, w := range wallets {
		secrets[i] = w.SecretBytes()
	}

	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshal wallets: %w", err)
	}

	blob, err := seal(plaintext, passphrase)
	if err != nil {
		return fmt.Errorf("seal wallets: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(blob)
	if err := s.client.Set(ctx, storeKey(network), encoded, 0).Err(); err != nil {
		return fmt.Errorf("save wallets: %w", err)
	}

	return nil
}

// Load retrieves and unseals the wallet set for a network.
func (s *Store) Load(ctx context.Context, network, passphrase string) ([]*wallet.Wallet, error) {
	if err := ValidateNetwork(network); err != nil {
		return nil, err
	}

	encoded, err := s.client.Get(ctx, storeKey(network)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load wallets: %w", err)
	}

	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode wallets: %w", err)
	}

	plaintext, err := open(blob, passphrase)
	if err != nil {
		return nil, err
	}

	var secrets [][]byte
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("unmarshal wallets: %w", err)
	}

	out := make([]*wallet.Wallet, 0, len(secrets))
	for i, secret := range secrets {
		w, err := wallet.FromBytes(secret)
		if err != nil {
			return nil, fmt.Errorf("wallet %d: %w", i, err)
		}
		out = append(out, w)
	}

	return out, nil
}

// Clear removes the wallet set for a network. No-op when nothing is saved.
func (s *Store) Clear(ctx context.Context, network string) error {
	if err := ValidateNetwork(network); err != nil {
		return err
	}
	if err := s.client.Del(ctx, storeKey(network)).Err(); err != nil {
		return fmt.Errorf("clear wallets: %w", err)
	}
	return nil
}

func storeKey(network string) string {
	return constants.RedisKeyWalletPrefix + network
}
