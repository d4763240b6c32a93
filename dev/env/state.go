package devenv

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mhrs-tracker/lib/configutil"
)

// StateMarker at the start of a configured path stands for StateDir.
const StateMarker = "<dev_state>"

var moduleDirective = []byte("module mhrs-tracker")

func declaresModule(gomod []byte) bool {
	for _, line := range bytes.Split(gomod, []byte("\n")) {
		if bytes.Equal(bytes.TrimSpace(line), moduleDirective) {
			return true
		}
	}
	return false
}

// WorkspaceRoot walks up from the working directory to the checkout of
// this module.
func WorkspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		gomod, err := os.ReadFile(filepath.Join(dir, "go.mod"))
		if err == nil && declaresModule(gomod) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not inside a mhrs-tracker checkout: %w", os.ErrNotExist)
		}
		dir = parent
	}
}

// StateDir is dev/.state of the checkout, it holds the local journal,
// request dumps and live test credentials and is created on first use.
func StateDir() (string, error) {
	root, err := WorkspaceRoot()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, "dev", ".state")
	return dir, os.MkdirAll(dir, 0777)
}

func StatePath(name string) (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ResolvePath expands a leading StateMarker, any other path is returned
// as is.
func ResolvePath(path string) (string, error) {
	rest, ok := strings.CutPrefix(filepath.ToSlash(path), StateMarker)
	if !ok {
		return path, nil
	}
	return StatePath(filepath.FromSlash(strings.TrimPrefix(rest, "/")))
}

// LoadLiveTestConfig reads the credentials written by `go run ./dev -live`.
func LoadLiveTestConfig() (LiveTestConfig, error) {
	path, err := StatePath(LiveTestConfigFile)
	if err != nil {
		return LiveTestConfig{}, err
	}
	return configutil.ReadConfig[LiveTestConfig](path)
}
