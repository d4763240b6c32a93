package mhrs

import (
	"context"
	"testing"

	devenv "mhrs-tracker/dev/env"

	"github.com/stretchr/testify/require"
)

func TestLive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping live test in short mode")
	}
	config, err := devenv.LoadLiveTestConfig()
	if err != nil || config.Identity == "" {
		t.Skip("dev/.state/mhrs_live.json5 is not configured")
	}

	ctx := context.Background()
	client, err := NewClient(ClientOptions{})
	require.NoError(t, err)

	token, err := client.Login(ctx, config.Identity, config.Secret)
	require.NoError(t, err)

	patient, err := client.Profile(ctx, token)
	require.NoError(t, err)
	require.NotEmpty(t, patient.FullName())

	if config.RegionId > 0 {
		districts, err := client.Districts(ctx, token, config.RegionId)
		require.NoError(t, err)
		require.NotEmpty(t, districts)
	}
}
