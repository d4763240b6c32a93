package configutil

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotenv loads the given .env files (or ".env" when none are given)
// into the process environment, existing variables are not overwritten
// and missing files are ignored.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		slog.Debug("loaded environment file", "file", f)
	}
	return nil
}

// OverrideFromEnv replaces *target with the value of the environment
// variable when it is set and non-empty.
func OverrideFromEnv(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*target = v
	}
}
