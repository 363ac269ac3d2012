package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessionguard/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int64
	err   error
}

func (s *countingSweeper) Sweep(context.Context) (int64, error) {
	s.calls.Add(1)
	return 2, s.err
}

func TestHousekeepingRunsImmediatelyAndStops(t *testing.T) {
	t.Parallel()

	sw := &countingSweeper{}
	hk := NewHousekeepingService(sw, slogx.Discard(), 10*time.Millisecond)
	hk.Start()

	require.Eventually(t, func() bool { return sw.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	hk.Stop()

	after := sw.calls.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, after, sw.calls.Load(), "no sweeps after Stop")
}

func TestHousekeepingDefaultsInterval(t *testing.T) {
	t.Parallel()
	hk := NewHousekeepingService(&countingSweeper{}, slogx.Discard(), 0)
	require.Equal(t, time.Hour, hk.Interval)
}

func TestHousekeepingRunOnce(t *testing.T) {
	t.Parallel()

	hk := NewHousekeepingService(&countingSweeper{}, slogx.Discard(), time.Minute)
	require.EqualValues(t, 2, hk.RunOnce(context.Background()))

	failing := NewHousekeepingService(&countingSweeper{err: errors.New("locked")}, slogx.Discard(), time.Minute)
	require.Zero(t, failing.RunOnce(context.Background()))
}

func TestHousekeepingStopWithoutStart(t *testing.T) {
	t.Parallel()
	hk := NewHousekeepingService(&countingSweeper{}, slogx.Discard(), time.Minute)
	require.NotPanics(t, hk.Stop)
}
