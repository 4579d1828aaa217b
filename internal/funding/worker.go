package funding

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Projectsniper82/sniperlab-sub000/internal/constants"
	"github.com/Projectsniper82/sniperlab-sub000/internal/ledger"
	"github.com/Projectsniper82/sniperlab-sub000/internal/wallet"
)

// Command starts one funding run.
type Command struct {
	TotalAmount     decimal.Decimal `json:"total_amount"`
	DurationMinutes int             `json:"duration_minutes"`
	Network         string          `json:"network"`
	RPCEndpoint     string          `json:"rpc_endpoint"`
}

// Event is the worker's outbound message. Exactly one field is populated:
// a progress line, the funded wallets' secret keys, or a run-level error.
type Event struct {
	Log     string   `json:"log,omitempty"`
	Wallets [][]byte `json:"wallets,omitempty"`
	Err     string   `json:"error,omitempty"`
}

// LedgerFactory builds a ledger client for a command's target network.
type LedgerFactory func(network, rpcEndpoint string) (ledger.Client, error)

// WorkerConfig holds construction options for the funding worker.
type WorkerConfig struct {
	LedgerFactory LedgerFactory
	WalletCount   int
	Clock         Clock
	Rand          *rand.Rand
	Logger        *logrus.Logger
}

// Worker executes funding runs in its own goroutine, communicating with the
// host exclusively through channels. Cancelling the Run context drops every
// pending scheduled send at once.
type Worker struct {
	cfg    WorkerConfig
	cmds   chan Command
	events chan Event
}

// NewWorker creates a funding worker. Run must be called to start it.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.LedgerFactory == nil {
		return nil, fmt.Errorf("funding: ledger factory is required")
	}
	if cfg.WalletCount <= 0 {
		cfg.WalletCount = 6
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Worker{
		cfg:    cfg,
		cmds:   make(chan Command),
		events: make(chan Event, 64),
	}, nil
}

// Commands is the inbound command channel.
func (w *Worker) Commands() chan<- Command { return w.cmds }

// Events is the outbound event channel.
func (w *Worker) Events() <-chan Event { return w.events }

// Run processes commands until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-w.cmds:
			w.runFunding(ctx, cmd)
		}
	}
}

// feeReserve covers the intermediate wallet's forward-transfer fee.
var feeReserve = decimal.RequireFromString("0.00001")

func (w *Worker) runFunding(ctx context.Context, cmd Command) {
	// Configuration errors reject the run before any state mutation.
	if cmd.TotalAmount.Sign() <= 0 {
		w.emit(ctx, Event{Err: "total amount must be > 0"})
		return
	}
	if cmd.DurationMinutes <= 0 {
		w.emit(ctx, Event{Err: "duration must be > 0 minutes"})
		return
	}

	lc, err := w.cfg.LedgerFactory(cmd.Network, cmd.RPCEndpoint)
	if err != nil {
		w.emit(ctx, Event{Err: fmt.Sprintf("ledger init failed: %v", err)})
		return
	}

	window := time.Duration(cmd.DurationMinutes) * time.Minute
	plan, err := BuildPlan(cmd.TotalAmount, w.cfg.WalletCount, window, w.cfg.Rand)
	if err != nil {
		w.emit(ctx, Event{Err: fmt.Sprintf("planning failed: %v", err)})
		return
	}

	w.emit(ctx, Event{Log: fmt.Sprintf("funding run: %s SOL across %d wallets over %s",
		cmd.TotalAmount, w.cfg.WalletCount, window)})

	destinations := make([]*wallet.Wallet, w.cfg.WalletCount)
	intermediates := make([]*wallet.Wallet, w.cfg.WalletCount)
	for i := range destinations {
		dest, err := wallet.Generate()
		if err != nil {
			w.emit(ctx, Event{Err: fmt.Sprintf("wallet generation failed: %v", err)})
			return
		}
		mid, err := wallet.Generate()
		if err != nil {
			w.emit(ctx, Event{Err: fmt.Sprintf("wallet generation failed: %v", err)})
			return
		}
		destinations[i] = dest
		intermediates[i] = mid
	}

	var funded [][]byte
	for i := 0; i < w.cfg.WalletCount; i++ {
		select {
		case <-ctx.Done():
			return
		case <-w.cfg.Clock.After(plan.Delays[i]):
		}

		// One wallet's failure never aborts the remaining schedules.
		if err := w.fundWallet(ctx, lc, intermediates[i], destinations[i], plan.Shares[i]); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.emit(ctx, Event{Log: fmt.Sprintf("wallet %d/%d failed: %v", i+1, w.cfg.WalletCount, err)})
			continue
		}

		funded = append(funded, destinations[i].SecretBytes())
		w.emit(ctx, Event{Log: fmt.Sprintf("wallet %d/%d funded with %s SOL",
			i+1, w.cfg.WalletCount, plan.Shares[i])})
	}

	w.emit(ctx, Event{Wallets: funded})
	w.emit(ctx, Event{Log: fmt.Sprintf("funding run complete: %d/%d wallets funded",
		len(funded), w.cfg.WalletCount)})
}

// fundWallet runs one two-hop pipeline: capital lands on the intermediate
// first, then the exact share forwards to the destination in a second
// transfer, decoupling the destination from the operator's visible balance.
func (w *Worker) fundWallet(ctx context.Context, lc ledger.Client, mid, dest *wallet.Wallet, share decimal.Decimal) error {
	grant := share.Add(feeReserve)

	if lc.SupportsFaucet() {
		sig, err := lc.RequestFaucetGrant(ctx, mid.PublicKey(), grant)
		if err != nil {
			return fmt.Errorf("faucet grant: %w", err)
		}
		if err := lc.ConfirmTransaction(ctx, sig); err != nil {
			return fmt.Errorf("faucet confirmation: %w", err)
		}
	} else {
		// Production networks: the worker only emits a funding request; the
		// operator signs the deposit out-of-band.
		w.emit(ctx, Event{Log: fmt.Sprintf("awaiting operator deposit of %s SOL to %s",
			grant, mid.Address())})
		if err := w.awaitDeposit(ctx, lc, mid, grant); err != nil {
			return err
		}
	}

	sig, err := lc.Transfer(ctx, mid, dest.PublicKey(), share)
	if err != nil {
		return fmt.Errorf("forward transfer: %w", err)
	}
	if err := lc.ConfirmTransaction(ctx, sig); err != nil {
		return fmt.Errorf("forward confirmation: %w", err)
	}

	return nil
}

func (w *Worker) awaitDeposit(ctx context.Context, lc ledger.Client, mid *wallet.Wallet, needed decimal.Decimal) error {
	deadline := w.cfg.Clock.Now().Add(constants.DepositWaitTimeout)

	for w.cfg.Clock.Now().Before(deadline) {
		balance, err := lc.GetBalanceSOL(ctx, mid.PublicKey())
		if err == nil && balance.GreaterThanOrEqual(needed) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.cfg.Clock.After(5 * time.Second):
		}
	}

	return fmt.Errorf("deposit to %s not observed within %v", mid.Address(), constants.DepositWaitTimeout)
}

func (w *Worker) emit(ctx context.Context, ev Event) {
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}
