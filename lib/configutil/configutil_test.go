package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name     string `json:"name"`
	Interval int    `json:"interval"`
	Verbose  bool   `json:"verbose"`
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// comments are allowed
		name: "tracker",
		interval: 60,
	}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{interval: 90, verbose: true}`), 0600))

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "tracker", Interval: 90, Verbose: true}, cfg)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{name: `), 0600))
	_, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.Error(t, err)
	require.NotErrorIs(t, err, os.ErrNotExist)
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("MHRS_TEST_VALUE", "from-env")
	value := "from-config"
	OverrideFromEnv(&value, "MHRS_TEST_VALUE")
	require.Equal(t, "from-env", value)

	t.Setenv("MHRS_TEST_VALUE", "")
	OverrideFromEnv(&value, "MHRS_TEST_VALUE")
	require.Equal(t, "from-env", value)
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MHRS_DOTENV_TEST=hello\n"), 0600))
	t.Setenv("MHRS_DOTENV_TEST", "")
	os.Unsetenv("MHRS_DOTENV_TEST")

	require.NoError(t, LoadDotenv(path, filepath.Join(dir, "missing.env")))
	require.Equal(t, "hello", os.Getenv("MHRS_DOTENV_TEST"))
}
