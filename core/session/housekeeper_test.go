package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScavengeable struct {
	candidates []string
	calls      atomic.Int64
}

func (f *fakeScavengeable) Candidates() []string { return f.candidates }
func (f *fakeScavengeable) Scavenge(context.Context, []string, int64) error {
	f.calls.Add(1)
	return nil
}

func TestHouseKeeperTicksRegisteredContexts(t *testing.T) {
	cfg := DefaultHouseKeeperConfig()
	cfg.Interval = 10 * time.Millisecond
	hk := NewHouseKeeper(cfg, nil)

	target := &fakeScavengeable{candidates: []string{"a"}}
	hk.Register("/app", target)

	hk.Start(context.Background())
	defer hk.Stop()

	require.Eventually(t, func() bool {
		return target.calls.Load() > 0
	}, time.Second, 5*time.Millisecond)
}

func TestHouseKeeperStopIsIdempotentWithoutStart(t *testing.T) {
	hk := NewHouseKeeper(DefaultHouseKeeperConfig(), nil)
	assert.NoError(t, hk.Stop())
}

func TestHouseKeeperStopDrainsInFlightTick(t *testing.T) {
	cfg := DefaultHouseKeeperConfig()
	cfg.Interval = 5 * time.Millisecond
	cfg.ShutdownTimeout = time.Second
	hk := NewHouseKeeper(cfg, nil)

	target := &fakeScavengeable{}
	hk.Register("/app", target)
	hk.Start(context.Background())

	require.Eventually(t, func() bool { return target.calls.Load() > 0 }, time.Second, 5*time.Millisecond)
	assert.NoError(t, hk.Stop())
}
