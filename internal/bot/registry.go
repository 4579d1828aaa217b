package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Projectsniper82/sniperlab-sub000/internal/constants"
	"github.com/Projectsniper82/sniperlab-sub000/internal/wallet"
)

// LogFunc appends a line to the owning bot's log stream.
type LogFunc func(msg string)

// Strategy is the capability handed to each bot tick. It may quote, trade, and
// log, but must not retain the wallet beyond the call. Returned errors are
// recorded in the bot's log and never stop the ticker.
type Strategy func(ctx context.Context, w *wallet.Wallet, log LogFunc) error

// LogEntry is one line of a bot's bounded log, newest first.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	IsError   bool      `json:"is_error"`
}

// BotStatus is the externally visible state of one managed wallet.
type BotStatus struct {
	Wallet    string        `json:"wallet"`
	IsRunning bool          `json:"is_running"`
	Interval  time.Duration `json:"interval"`
}

type record struct {
	wallet   *wallet.Wallet
	strategy Strategy
	interval time.Duration
	running  bool
	cancel   context.CancelFunc
	logs     []LogEntry
}

// RegistryConfig holds construction options for the fleet registry.
type RegistryConfig struct {
	// DefaultInterval applies when StartBot is called with interval 0.
	DefaultInterval time.Duration
	// DefaultStrategy applies when a bot is started without one installed.
	DefaultStrategy Strategy
	// MinTickTimeout bounds each tick's context from below.
	MinTickTimeout time.Duration
	Logger         *logrus.Logger
}

// Registry schedules independent trading strategies across a fleet of wallets.
// Each running bot owns one ticker goroutine; ticks for a single bot are
// strictly sequential, so a strategy slower than its interval serializes its
// own ticks instead of overlapping them.
type Registry struct {
	mu   sync.Mutex
	bots map[string]*record
	cfg  RegistryConfig
}

// NewRegistry creates an empty fleet registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.DefaultInterval <= 0 {
		cfg.DefaultInterval = 5 * time.Second
	}
	if cfg.MinTickTimeout <= 0 {
		cfg.MinTickTimeout = 10 * time.Second
	}
	return &Registry{
		bots: make(map[string]*record),
		cfg:  cfg,
	}
}

// AddBot registers a wallet. Idempotent by wallet address; re-adding an
// existing bot is a no-op and never touches the network.
func (r *Registry) AddBot(w *wallet.Wallet, strategy Strategy, interval time.Duration) error {
	if w == nil {
		return fmt.Errorf("bot: wallet is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := w.Address()
	if _, exists := r.bots[id]; exists {
		return nil
	}
	if interval <= 0 {
		interval = r.cfg.DefaultInterval
	}
	r.bots[id] = &record{
		wallet:   w,
		strategy: strategy,
		interval: interval,
	}
	return nil
}

// RemoveBot cancels any active ticker and deletes the record. Safe to call on
// an unknown id. No record may keep a live ticker past removal.
func (r *Registry) RemoveBot(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.bots[id]
	if !ok {
		return
	}
	if rec.cancel != nil {
		rec.cancel()
	}
	delete(r.bots, id)
}

// StartBot begins ticking a registered, stopped bot. Unknown or already
// running ids are a no-op. A non-nil strategy or positive interval replaces
// the installed one.
func (r *Registry) StartBot(id string, strategy Strategy, interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.bots[id]
	if !ok || rec.running {
		return
	}

	if strategy != nil {
		rec.strategy = strategy
	}
	if rec.strategy == nil {
		rec.strategy = r.cfg.DefaultStrategy
	}
	if rec.strategy == nil {
		r.appendLog(rec, "cannot start: no strategy installed", true)
		return
	}
	if interval > 0 {
		rec.interval = interval
	}

	ctx, cancel := context.WithCancel(context.Background())
	rec.cancel = cancel
	rec.running = true

	go r.runLoop(ctx, id, rec.interval)

	r.cfg.Logger.WithFields(logrus.Fields{
		"bot":      shortID(id),
		"interval": rec.interval,
	}).Info("bot started")
}

// StopBot cancels the next scheduled tick and marks the bot stopped. An
// in-flight tick cannot be recalled; a late log line from it is tolerated.
// No-op when the bot is unknown or not running.
func (r *Registry) StopBot(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.bots[id]
	if !ok || !rec.running {
		return
	}
	rec.cancel()
	rec.cancel = nil
	rec.running = false

	r.cfg.Logger.WithField("bot", shortID(id)).Info("bot stopped")
}

// Log prepends a timestamped entry to a bot's log. No-op on unknown id.
func (r *Registry) Log(id, msg string) {
	r.logEntry(id, msg, false)
}

// GetLogs returns the bot's log entries, newest first. Empty for unknown ids.
func (r *Registry) GetLogs(id string) []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.bots[id]
	if !ok {
		return []LogEntry{}
	}
	out := make([]LogEntry, len(rec.logs))
	copy(out, rec.logs)
	return out
}

// Has reports whether a wallet is registered.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.bots[id]
	return ok
}

// IsRunning reports whether the bot exists and is ticking.
func (r *Registry) IsRunning(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.bots[id]
	return ok && rec.running
}

// ListBots returns a status line per registered wallet.
func (r *Registry) ListBots() []BotStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]BotStatus, 0, len(r.bots))
	for id, rec := range r.bots {
		out = append(out, BotStatus{
			Wallet:    id,
			IsRunning: rec.running,
			Interval:  rec.interval,
		})
	}
	return out
}

// Close stops every running bot. The registry stays usable afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.bots {
		if rec.running {
			rec.cancel()
			rec.cancel = nil
			rec.running = false
		}
	}
}

func (r *Registry) runLoop(ctx context.Context, id string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx, id)
		}
	}
}

// tick runs one strategy invocation. The strategy and wallet are re-read under
// the lock so a Start-time strategy swap takes effect on the next tick.
func (r *Registry) tick(ctx context.Context, id string) {
	r.mu.Lock()
	rec, ok := r.bots[id]
	if !ok || !rec.running {
		r.mu.Unlock()
		return
	}
	strategy := rec.strategy
	w := rec.wallet
	timeout := rec.interval
	r.mu.Unlock()

	if timeout < r.cfg.MinTickTimeout {
		timeout = r.cfg.MinTickTimeout
	}
	tickCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logFn := func(msg string) { r.logEntry(id, msg, false) }

	err := runStrategy(tickCtx, strategy, w, logFn)
	if err != nil {
		r.logEntry(id, fmt.Sprintf("strategy error: %v", err), true)
		r.cfg.Logger.WithError(err).WithField("bot", shortID(id)).Warn("strategy tick failed")
	}
}

// runStrategy isolates panics so a misbehaving strategy cannot kill the ticker.
func runStrategy(ctx context.Context, s Strategy, w *wallet.Wallet, log LogFunc) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("strategy panic: %v", rec)
		}
	}()
	return s(ctx, w, log)
}

func (r *Registry) logEntry(id, msg string, isErr bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.bots[id]
	if !ok {
		return
	}
	r.appendLog(rec, msg, isErr)
}

// appendLog prepends under r.mu and truncates to capacity, dropping oldest.
func (r *Registry) appendLog(rec *record, msg string, isErr bool) {
	entry := LogEntry{Timestamp: time.Now(), Message: msg, IsError: isErr}
	rec.logs = append([]LogEntry{entry}, rec.logs...)
	if len(rec.logs) > constants.MaxBotLogEntries {
		rec.logs = rec.logs[:constants.MaxBotLogEntries]
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
