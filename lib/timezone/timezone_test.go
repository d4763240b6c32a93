package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartOfDay(t *testing.T) {
	cases := []struct {
		now    time.Time
		expect time.Time
	}{
		{
			now:    time.Date(2025, time.March, 10, 14, 22, 5, 10, Location),
			expect: time.Date(2025, time.March, 10, 0, 0, 0, 0, Location),
		},
		{
			now:    time.Date(2025, time.March, 10, 0, 0, 0, 0, Location),
			expect: time.Date(2025, time.March, 10, 0, 0, 0, 0, Location),
		},
		{
			now:    time.Date(2025, time.December, 31, 23, 59, 59, 0, Location),
			expect: time.Date(2025, time.December, 31, 0, 0, 0, 0, Location),
		},
	}

	for _, test := range cases {
		require.Equal(t, test.expect, StartOfDay(test.now))
	}
}

func TestWholeDaysBetween(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2025, time.March, d, 0, 0, 0, 0, Location)
	}
	require.Equal(t, 14, WholeDaysBetween(day(1), day(15)))
	require.Equal(t, 0, WholeDaysBetween(day(15), day(15)))
	require.Equal(t, 0, WholeDaysBetween(day(15), day(1)))
	require.Equal(t, 1, WholeDaysBetween(day(1), day(2).Add(23*time.Hour)))
}

func TestNowIsIstanbul(t *testing.T) {
	require.Equal(t, Location, Now().Location())
}
