package devenv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeclaresModule(t *testing.T) {
	require.True(t, declaresModule([]byte("module mhrs-tracker\n\ngo 1.22.2\n")))
	require.True(t, declaresModule([]byte("// tracker\nmodule mhrs-tracker\r\n")))
	require.False(t, declaresModule([]byte("module mhrs-tracker-fork\n")))
	require.False(t, declaresModule([]byte("module example.com/other\n")))
}

func TestResolvePath(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "services", "journal")
	require.NoError(t, os.MkdirAll(nested, 0777))
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module mhrs-tracker\n"), 0600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { os.Chdir(wd) })

	path, err := ResolvePath("plain/journal.db")
	require.NoError(t, err)
	require.Equal(t, "plain/journal.db", path)

	path, err = ResolvePath(StateMarker + "/resty/mhrs")
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(filepath.Join(root, "dev", ".state"))
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(filepath.Dir(filepath.Dir(path)))
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, filepath.Join("resty", "mhrs"), filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path)))
}
