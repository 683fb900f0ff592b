package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that supply CLI defaults.
const (
	EnvConfigPath = "LAPALIGN_CONFIG"
	EnvOutputDir  = "LAPALIGN_OUT"
	EnvDBPath     = "LAPALIGN_DB"
	EnvParallel   = "LAPALIGN_PARALLEL"
)

// LoadEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored;
// with no paths it reads ".env" from the working directory.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// GetEnv returns the value of the environment variable named by key, or
// fallback if it is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of key, or fallback if it is unset,
// empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}
