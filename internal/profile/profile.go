package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the bot process.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for the ops HTTP server
	Addr string
	// Port is the binding port for the ops HTTP server
	Port int
	// Data is the data directory
	Data string
	// Driver is the storage driver (jsonfile, sqlite or postgres)
	Driver string
	// DSN points to where jobbot stores its own data
	DSN string
	// Version is the current version of the bot
	Version string

	// BotToken is the Telegram Bot API token
	BotToken string
	// PollTimeout is the long-polling timeout in seconds for the
	// Telegram update loop
	PollTimeout int
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
// Supports both JOBBOT_* (new) and the bare legacy names the original
// bot used (BOT_TOKEN).
func (p *Profile) FromEnv() {
	getEnvWithFallback := func(newKey, legacyKey string) string {
		if val := os.Getenv(newKey); val != "" {
			return val
		}
		return os.Getenv(legacyKey)
	}

	if p.BotToken == "" {
		p.BotToken = getEnvWithFallback("JOBBOT_BOT_TOKEN", "BOT_TOKEN")
	}
	if p.Driver == "" {
		p.Driver = getEnvOrDefault("JOBBOT_DRIVER", "jsonfile")
	}
	if p.PollTimeout == 0 {
		p.PollTimeout = 30
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/jobbot"
		if _, err := os.Stat(p.Data); os.IsNotExist(err) {
			if err := os.MkdirAll(p.Data, 0770); err != nil {
				slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
				return err
			}
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	switch p.Driver {
	case "jsonfile":
		// The jsonfile driver derives its document paths from Data.
	case "sqlite":
		if p.DSN == "" {
			dbFile := fmt.Sprintf("jobbot_%s.db", p.Mode)
			p.DSN = filepath.Join(dataDir, dbFile)
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("postgres driver requires a DSN")
		}
	default:
		return errors.Errorf("unknown storage driver %q", p.Driver)
	}

	if p.BotToken == "" {
		return errors.New("bot token is required (JOBBOT_BOT_TOKEN or BOT_TOKEN)")
	}

	return nil
}
