package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mediapull/internal/domain"
	"github.com/yourusername/mediapull/pkg/logger"
)

func newWatchdogFixture(t *testing.T) (*Registry, *fakeClock, *recordingObserver, domain.PacketCallback) {
	t.Helper()
	catalog := NewCatalog(nil, 0, nil)
	require.NoError(t, catalog.Replace(domain.MountPositionPayloadPort1, listing()))

	clock := &fakeClock{}
	observer := &recordingObserver{}
	registry := NewRegistry(catalog, &fakeOpener{}, clock, observer, nil)
	callback, err := registry.Register(domain.MountPositionPayloadPort1)
	require.NoError(t, err)
	_, err = registry.Register(domain.MountPositionPayloadPort2)
	require.NoError(t, err)
	return registry, clock, observer, callback
}

func TestWatchdog_Sweep(t *testing.T) {
	registry, clock, observer, callback := newWatchdogFixture(t)
	multi, err := logger.NewMultiLogger(logger.MultiLoggerConfig{Level: "info", LogsDir: t.TempDir()})
	require.NoError(t, err)
	defer multi.Close()

	watchdog := NewWatchdog(registry, time.Second, time.Hour, multi)

	require.Equal(t, domain.ReturnSuccess, callback(startPkt(2, 200), []byte("x")))
	clock.Set(500)
	assert.Equal(t, 0, watchdog.Sweep())

	clock.Set(1000)
	assert.Equal(t, 1, watchdog.Sweep())
	require.Len(t, observer.failed, 1)
	assert.True(t, observer.failed[0].Aborted)

	// already idle
	clock.Set(5000)
	assert.Equal(t, 0, watchdog.Sweep())
}

func TestWatchdog_StartStop(t *testing.T) {
	registry, _, _, _ := newWatchdogFixture(t)
	watchdog := NewWatchdog(registry, time.Second, 10*time.Millisecond, nil)

	assert.Error(t, watchdog.Stop())

	require.NoError(t, watchdog.Start(context.Background()))
	assert.True(t, watchdog.IsRunning())
	assert.Error(t, watchdog.Start(context.Background()))

	require.NoError(t, watchdog.Stop())
	assert.False(t, watchdog.IsRunning())
}

func TestWatchdog_AbortsStalledSessionInBackground(t *testing.T) {
	registry, clock, observer, callback := newWatchdogFixture(t)
	watchdog := NewWatchdog(registry, time.Second, 10*time.Millisecond, nil)

	require.Equal(t, domain.ReturnSuccess, callback(startPkt(2, 200), []byte("x")))
	require.NoError(t, watchdog.Start(context.Background()))
	defer watchdog.Stop()

	clock.Set(2000)
	assert.Eventually(t, func() bool {
		_, _, failed := observer.counts()
		return failed == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, domain.StateIdle, registry.Snapshots()[0].State)
}

func TestWatchdog_RequiresPositiveTimeout(t *testing.T) {
	registry, _, _, _ := newWatchdogFixture(t)

	assert.Error(t, NewWatchdog(registry, 0, time.Second, nil).Start(context.Background()))
}

func TestWatchdog_StopsWithContext(t *testing.T) {
	registry, _, _, _ := newWatchdogFixture(t)
	watchdog := NewWatchdog(registry, time.Second, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, watchdog.Start(ctx))
	assert.True(t, watchdog.IsRunning())
	cancel()

	assert.Eventually(t, func() bool { return !watchdog.IsRunning() }, time.Second, 5*time.Millisecond)

	// Stop still succeeds once the loop has exited on its own
	require.NoError(t, watchdog.Stop())
}

func TestWatchdog_RestartsAfterContextEnds(t *testing.T) {
	registry, _, _, _ := newWatchdogFixture(t)
	watchdog := NewWatchdog(registry, time.Second, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, watchdog.Start(ctx))
	cancel()
	require.Eventually(t, func() bool { return !watchdog.IsRunning() }, time.Second, 5*time.Millisecond)

	require.NoError(t, watchdog.Start(context.Background()))
	assert.True(t, watchdog.IsRunning())
	require.NoError(t, watchdog.Stop())
	assert.False(t, watchdog.IsRunning())
}
