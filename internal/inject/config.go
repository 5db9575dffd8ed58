package inject

import (
	"os"
	"path/filepath"

	"github.com/dmorgan81/sdxlgen/internal/image"
	"github.com/samber/lo"
)

// Config is everything read from the environment at startup. Command line
// flags may override fields before Setup is called.
type Config struct {
	APIKey        string
	APIKeyParam   string
	APIHost       string
	HistoryFile   string
	HistoryBucket string
	HistoryPrefix string
	OutputBucket  string
	BaseURL       string
	LogLevel      string
	Ephemeral     bool
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:        os.Getenv("STABILITY_API_KEY"),
		APIKeyParam:   os.Getenv("STABILITY_API_KEY_PARAM"),
		APIHost:       lo.Ternary(os.Getenv("STABILITY_API_HOST") != "", os.Getenv("STABILITY_API_HOST"), image.DefaultHost),
		HistoryFile:   lo.Ternary(os.Getenv("HISTORY_FILE") != "", os.Getenv("HISTORY_FILE"), defaultHistoryFile()),
		HistoryBucket: os.Getenv("HISTORY_BUCKET"),
		HistoryPrefix: lo.Ternary(os.Getenv("HISTORY_PREFIX") != "", os.Getenv("HISTORY_PREFIX"), "history"),
		OutputBucket:  os.Getenv("OUTPUT_BUCKET"),
		BaseURL:       lo.Ternary(os.Getenv("BASE_URL") != "", os.Getenv("BASE_URL"), "http://localhost:8080"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
	}
}

func defaultHistoryFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "history.json"
	}
	return filepath.Join(dir, "sdxlgen", "history.json")
}
