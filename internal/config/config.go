package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataPath     string
	LogDir       string
	SettingsFile string
	DBPath       string
	RunLogDir    string

	AggregateEvery    int
	AggregateInterval time.Duration
	TaskDelay         time.Duration
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Executable's directory first (MCP clients launch the binary from anywhere)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Working directory
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	return FromEnv(exeDir), nil
}

// FromEnv resolves the configuration from the process environment alone.
func FromEnv(exeDir string) *AppConfig {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := getEnv("LOGS_FOLDER", filepath.Join(dataPath, "logs"))
	runLogDir := getEnv("PBLOSS_RUNLOG_DIR", filepath.Join(dataPath, "runs"))

	for _, dir := range []string{logDir, runLogDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("Failed to create directory")
		}
	}

	return &AppConfig{
		DataPath:          dataPath,
		LogDir:            logDir,
		SettingsFile:      getEnv("PBLOSS_SETTINGS_FILE", filepath.Join(dataPath, "pbloss.toml")),
		DBPath:            getEnv("PBLOSS_DB_PATH", filepath.Join(dataPath, "pbloss.db")),
		RunLogDir:         runLogDir,
		AggregateEvery:    getEnvInt("PBLOSS_AGGREGATE_EVERY", 5),
		AggregateInterval: time.Duration(getEnvInt("PBLOSS_AGGREGATE_INTERVAL_MS", 500)) * time.Millisecond,
		TaskDelay:         time.Duration(getEnvInt("PBLOSS_TASK_DELAY_MS", 0)) * time.Millisecond,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring invalid integer setting")
	}
	return fallback
}
