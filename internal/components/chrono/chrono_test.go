package chrono

import (
	"context"
	"testing"
	"time"

	"mhrs-tracker/lib/timezone"

	"github.com/stretchr/testify/require"
)

func TestNowInIstanbul(t *testing.T) {
	require.Equal(t, timezone.Location, NewStandardImpl().Now().Location())
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := NewStandardImpl().Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Minute)
}

func TestSleepElapses(t *testing.T) {
	err := NewStandardImpl().Sleep(context.Background(), time.Millisecond)
	require.NoError(t, err)
}

func TestCronRuns(t *testing.T) {
	c := NewStandardCron()
	defer c.Stop()

	ran := make(chan struct{}, 1)
	err := c.Cron("@every 1s", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("cron job did not run")
	}

	require.Error(t, c.Cron("not a spec", func() {}))
}
