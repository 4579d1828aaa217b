package bot

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Projectsniper82/sniperlab-sub000/internal/wallet"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewRegistry(RegistryConfig{
		DefaultInterval: 5 * time.Millisecond,
		Logger:          logger,
	})
}

func newTestWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.Generate()
	require.NoError(t, err)
	return w
}

func countingStrategy(counter *atomic.Int64) Strategy {
	return func(ctx context.Context, w *wallet.Wallet, log LogFunc) error {
		counter.Add(1)
		return nil
	}
}

func TestAddBot_IdempotentByWallet(t *testing.T) {
	r := newTestRegistry(t)
	defer r.Close()
	w := newTestWallet(t)

	require.NoError(t, r.AddBot(w, nil, 0))
	require.NoError(t, r.AddBot(w, nil, 0))

	assert.Len(t, r.ListBots(), 1)
	assert.False(t, r.IsRunning(w.Address()))
}

func TestStartBot_UnknownIDIsNoOp(t *testing.T) {
	r := newTestRegistry(t)
	defer r.Close()

	var ticks atomic.Int64
	r.StartBot("unknown-wallet", countingStrategy(&ticks), time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.False(t, r.IsRunning("unknown-wallet"))
	assert.Zero(t, ticks.Load())
	assert.Empty(t, r.GetLogs("unknown-wallet"))
}

func TestStartStop_Lifecycle(t *testing.T) {
	r := newTestRegistry(t)
	defer r.Close()
	w := newTestWallet(t)
	id := w.Address()

	var ticks atomic.Int64
	require.NoError(t, r.AddBot(w, countingStrategy(&ticks), 2*time.Millisecond))

	r.StartBot(id, nil, 0)
	assert.True(t, r.IsRunning(id))

	assert.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)

	r.StopBot(id)
	assert.False(t, r.IsRunning(id))

	stopped := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	// One in-flight tick may land after the stop, never more.
	assert.LessOrEqual(t, ticks.Load(), stopped+1)

	// Restart works after a stop.
	r.StartBot(id, nil, 0)
	assert.True(t, r.IsRunning(id))
}

func TestStartBot_AlreadyRunningIsNoOp(t *testing.T) {
	r := newTestRegistry(t)
	defer r.Close()
	w := newTestWallet(t)
	id := w.Address()

	var first, second atomic.Int64
	require.NoError(t, r.AddBot(w, nil, 0))
	r.StartBot(id, countingStrategy(&first), 2*time.Millisecond)

	// Second start must not install the new strategy or a second ticker.
	r.StartBot(id, countingStrategy(&second), time.Millisecond)

	assert.Eventually(t, func() bool { return first.Load() >= 3 }, time.Second, time.Millisecond)
	assert.Zero(t, second.Load())
}

func TestFailingStrategy_KeepsBotAlive(t *testing.T) {
	r := newTestRegistry(t)
	defer r.Close()
	w := newTestWallet(t)
	id := w.Address()

	failing := func(ctx context.Context, w *wallet.Wallet, log LogFunc) error {
		return fmt.Errorf("boom")
	}
	require.NoError(t, r.AddBot(w, failing, 2*time.Millisecond))
	r.StartBot(id, nil, 0)

	assert.Eventually(t, func() bool {
		return len(r.GetLogs(id)) >= 3
	}, time.Second, time.Millisecond)

	assert.True(t, r.IsRunning(id), "errors must not stop the ticker")
	for _, entry := range r.GetLogs(id) {
		assert.True(t, entry.IsError)
		assert.Contains(t, entry.Message, "boom")
	}

	r.StopBot(id)
	assert.False(t, r.IsRunning(id))
}

func TestPanickingStrategy_IsRecovered(t *testing.T) {
	r := newTestRegistry(t)
	defer r.Close()
	w := newTestWallet(t)
	id := w.Address()

	panicking := func(ctx context.Context, w *wallet.Wallet, log LogFunc) error {
		panic("exploded")
	}
	require.NoError(t, r.AddBot(w, panicking, 2*time.Millisecond))
	r.StartBot(id, nil, 0)

	assert.Eventually(t, func() bool {
		logs := r.GetLogs(id)
		return len(logs) > 0 && logs[0].IsError
	}, time.Second, time.Millisecond)

	assert.True(t, r.IsRunning(id))
	r.StopBot(id)
}

func TestLog_TruncatesNewestFirst(t *testing.T) {
	r := newTestRegistry(t)
	defer r.Close()
	w := newTestWallet(t)
	id := w.Address()

	require.NoError(t, r.AddBot(w, nil, 0))
	for i := 0; i < 150; i++ {
		r.Log(id, fmt.Sprintf("entry %d", i))
	}

	logs := r.GetLogs(id)
	require.Len(t, logs, 100)
	assert.Equal(t, "entry 149", logs[0].Message, "newest entry first")
	assert.Equal(t, "entry 50", logs[99].Message, "oldest entries evicted")
}

func TestLog_UnknownIDIsNoOp(t *testing.T) {
	r := newTestRegistry(t)
	defer r.Close()

	r.Log("nobody", "hello")
	assert.Empty(t, r.GetLogs("nobody"))
}

func TestRemoveBot_CancelsTicker(t *testing.T) {
	r := newTestRegistry(t)
	defer r.Close()
	w := newTestWallet(t)
	id := w.Address()

	var ticks atomic.Int64
	require.NoError(t, r.AddBot(w, countingStrategy(&ticks), 2*time.Millisecond))
	r.StartBot(id, nil, 0)

	assert.Eventually(t, func() bool { return ticks.Load() >= 1 }, time.Second, time.Millisecond)

	r.RemoveBot(id)
	assert.False(t, r.IsRunning(id))
	assert.Empty(t, r.ListBots())

	removed := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, ticks.Load(), removed+1, "no live ticker after removal")

	// Removing again is safe.
	r.RemoveBot(id)
}
