package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForBackfill(t *testing.T, b *Backfill) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !b.Running() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for backfill to finish")
}

func TestBackfillWarmsTrailingWindow(t *testing.T) {
	svc, counting := newServiceFixture(t)
	svc.now = func() time.Time {
		return time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	}

	b := NewBackfill(svc, 0)
	b.monthsBack = 4
	b.Start(context.Background())
	waitForBackfill(t, b)

	assert.Equal(t, 4, counting.replaces())

	missing, err := svc.MissingMonths(context.Background(), 4)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestBackfillSkipsCachedMonths(t *testing.T) {
	svc, counting := newServiceFixture(t)
	svc.now = func() time.Time {
		return time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	}
	ctx := context.Background()

	require.NoError(t, svc.Generate(ctx, 2024, 6))
	require.NoError(t, svc.Generate(ctx, 2024, 5))
	require.Equal(t, 2, counting.replaces())

	b := NewBackfill(svc, 0)
	b.monthsBack = 3
	b.Start(ctx)
	waitForBackfill(t, b)

	assert.Equal(t, 3, counting.replaces(), "only the one missing month is computed")
}

func TestBackfillIdleDelayCancellation(t *testing.T) {
	svc, counting := newServiceFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	b := NewBackfill(svc, time.Hour)
	b.Start(ctx)
	require.True(t, b.Running())

	cancel()
	waitForBackfill(t, b)
	assert.Equal(t, 0, counting.replaces(), "canceled before the idle delay elapsed")
}

func TestBackfillStartWhileRunningIsNoOp(t *testing.T) {
	svc, _ := newServiceFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBackfill(svc, time.Hour)
	b.Start(ctx)
	b.Start(ctx)
	assert.True(t, b.Running())

	cancel()
	waitForBackfill(t, b)

	// A finished task may be started again.
	b.idleDelay = 0
	b.Start(context.Background())
	waitForBackfill(t, b)
}
