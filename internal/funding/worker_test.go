package funding

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Projectsniper82/sniperlab-sub000/internal/ledger"
	"github.com/Projectsniper82/sniperlab-sub000/internal/wallet"
)

// instantClock fires every timer immediately.
type instantClock struct{}

func (instantClock) Now() time.Time { return time.Now() }
func (instantClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

// fakeLedger implements ledger.Client in memory.
type fakeLedger struct {
	mu        sync.Mutex
	grants    int
	transfers []decimal.Decimal
	failGrant map[int]bool // fail the nth grant (0-based)
}

func (f *fakeLedger) SupportsFaucet() bool { return true }

func (f *fakeLedger) RequestFaucetGrant(ctx context.Context, pubkey solana.PublicKey, amountSOL decimal.Decimal) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.grants
	f.grants++
	if f.failGrant[n] {
		return "", fmt.Errorf("faucet unavailable")
	}
	return fmt.Sprintf("grant-%d", n), nil
}

func (f *fakeLedger) Transfer(ctx context.Context, from *wallet.Wallet, to solana.PublicKey, amountSOL decimal.Decimal) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers = append(f.transfers, amountSOL)
	return fmt.Sprintf("transfer-%d", len(f.transfers)), nil
}

func (f *fakeLedger) ConfirmTransaction(ctx context.Context, signature string) error { return nil }

func (f *fakeLedger) GetBalanceSOL(ctx context.Context, pubkey solana.PublicKey) (decimal.Decimal, error) {
	return decimal.NewFromInt(1000), nil
}

func (f *fakeLedger) GetTokenAccountBalance(ctx context.Context, vault solana.PublicKey) (decimal.Decimal, int32, error) {
	return decimal.Zero, 0, nil
}

func (f *fakeLedger) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (bool, error) {
	return true, nil
}

func newTestWorker(t *testing.T, lc ledger.Client, walletCount int) *Worker {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	w, err := NewWorker(WorkerConfig{
		LedgerFactory: func(network, rpcEndpoint string) (ledger.Client, error) { return lc, nil },
		WalletCount:   walletCount,
		Clock:         instantClock{},
		Rand:          rand.New(rand.NewSource(1)),
		Logger:        logger,
	})
	require.NoError(t, err)
	return w
}

// drainRun collects events until the run-complete line or an error event.
func drainRun(t *testing.T, w *Worker) (logs []string, wallets [][]byte, runErr string) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-w.Events():
			switch {
			case ev.Err != "":
				return logs, wallets, ev.Err
			case ev.Wallets != nil:
				wallets = ev.Wallets
			case ev.Log != "":
				logs = append(logs, ev.Log)
				if strings.Contains(ev.Log, "funding run complete") {
					return logs, wallets, ""
				}
			}
		case <-timeout:
			t.Fatal("timed out waiting for worker events")
		}
	}
}

func TestWorker_FundsAllWallets(t *testing.T) {
	lc := &fakeLedger{}
	w := newTestWorker(t, lc, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	w.Commands() <- Command{
		TotalAmount:     decimal.NewFromInt(2),
		DurationMinutes: 1,
		Network:         "devnet",
	}

	logs, wallets, runErr := drainRun(t, w)
	assert.Empty(t, runErr)
	require.Len(t, wallets, 4)
	for _, secret := range wallets {
		assert.Len(t, secret, 64, "each wallet event entry is a raw secret key")
	}

	// Two hops per wallet: faucet grant to the intermediate, forward transfer
	// of the exact share to the destination.
	assert.Equal(t, 4, lc.grants)
	require.Len(t, lc.transfers, 4)

	sum := decimal.Zero
	for _, amt := range lc.transfers {
		sum = sum.Add(amt)
	}
	assert.True(t, sum.Equal(decimal.NewFromInt(2)), "forwarded shares sum to the requested total, got %s", sum)

	assert.NotEmpty(t, logs)
}

func TestWorker_OneFailureDoesNotAbortOthers(t *testing.T) {
	lc := &fakeLedger{failGrant: map[int]bool{1: true}}
	w := newTestWorker(t, lc, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	w.Commands() <- Command{
		TotalAmount:     decimal.NewFromInt(2),
		DurationMinutes: 1,
		Network:         "devnet",
	}

	logs, wallets, runErr := drainRun(t, w)
	assert.Empty(t, runErr)
	assert.Len(t, wallets, 3, "the failed wallet is dropped, the rest proceed")

	var sawFailure bool
	for _, line := range logs {
		if strings.Contains(line, "failed") {
			sawFailure = true
		}
	}
	assert.True(t, sawFailure, "the failure surfaces as a log line")
}

func TestWorker_RejectsInvalidCommands(t *testing.T) {
	lc := &fakeLedger{}
	w := newTestWorker(t, lc, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	w.Commands() <- Command{TotalAmount: decimal.Zero, DurationMinutes: 1}
	_, _, runErr := drainRun(t, w)
	assert.Contains(t, runErr, "total amount")
	assert.Zero(t, lc.grants, "rejected runs touch nothing")

	w.Commands() <- Command{TotalAmount: decimal.NewFromInt(1), DurationMinutes: 0}
	_, _, runErr = drainRun(t, w)
	assert.Contains(t, runErr, "duration")
}

func TestWorker_CancellationDropsPendingSends(t *testing.T) {
	lc := &fakeLedger{}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	w, err := NewWorker(WorkerConfig{
		LedgerFactory: func(network, rpcEndpoint string) (ledger.Client, error) { return lc, nil },
		WalletCount:   6,
		// Real clock: delays are at least 5s, far beyond the cancel below.
		Rand:   rand.New(rand.NewSource(1)),
		Logger: logger,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	w.Commands() <- Command{
		TotalAmount:     decimal.NewFromInt(2),
		DurationMinutes: 5,
		Network:         "devnet",
	}

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit on cancellation")
	}

	assert.Zero(t, lc.grants, "no transfer fires after cancellation")
}
