package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/thyrook/pacer/internal/schedule"
)

// Config represents the application configuration
type Config struct {
	AppName  string         `json:"app_name"`
	Version  string         `json:"version"`
	Schedule ScheduleConfig `json:"schedule"`
	Training TrainingConfig `json:"training"`
	Storage  StorageConfig  `json:"storage"`
	Logging  LoggingConfig  `json:"logging"`
}

// ScheduleConfig contains the learning-rate schedule settings
type ScheduleConfig struct {
	TotalSteps  int                    `json:"total_steps"`
	WarmupSteps int                    `json:"warmup_steps"`
	WarmupType  string                 `json:"warmup_type"`
	MinLRRatio  float64                `json:"min_lr_ratio"`
	Plateaus    []schedule.PlateauSpec `json:"plateaus"`
	BaseLRs     []float64              `json:"base_lrs"`
	Verbose     bool                   `json:"verbose"`
}

// TrainingConfig contains training loop settings
type TrainingConfig struct {
	Optimizer          string  `json:"optimizer"`
	Momentum           float64 `json:"momentum"`
	LogInterval        int     `json:"log_interval"`
	CheckpointInterval int     `json:"checkpoint_interval"`
	Seed               int64   `json:"seed"`
}

// StorageConfig contains run persistence settings
type StorageConfig struct {
	DBPath      string `json:"db_path"`
	HistoryPath string `json:"history_path"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
	LogPath     string `json:"log_path"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		AppName: "pacer",
		Version: "1.0.0",
		Schedule: ScheduleConfig{
			TotalSteps:  10000,
			WarmupSteps: 1000,
			WarmupType:  schedule.WarmupLinear,
			MinLRRatio:  0.1,
			BaseLRs:     []float64{0.001},
		},
		Training: TrainingConfig{
			Optimizer:          "adam",
			Momentum:           0.9,
			LogInterval:        100,
			CheckpointInterval: 500,
			Seed:               42,
		},
		Storage: StorageConfig{
			DBPath:      "data/runs.db",
			HistoryPath: "data/history.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault loads the configuration file, falling back to defaults if
// it cannot be read
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks the configuration for values the application cannot run
// with. Schedule details beyond basic ranges are validated again by the
// scheduler itself at construction.
func (c *Config) Validate() error {
	if c.Schedule.TotalSteps <= 0 {
		return fmt.Errorf("invalid total steps: %d", c.Schedule.TotalSteps)
	}
	if c.Schedule.WarmupSteps < 0 || c.Schedule.WarmupSteps > c.Schedule.TotalSteps {
		return fmt.Errorf("invalid warmup steps: %d", c.Schedule.WarmupSteps)
	}
	if c.Schedule.MinLRRatio < 0 || c.Schedule.MinLRRatio > 1 {
		return fmt.Errorf("invalid min LR ratio: %g", c.Schedule.MinLRRatio)
	}
	for i, lr := range c.Schedule.BaseLRs {
		if lr <= 0 {
			return fmt.Errorf("invalid base LR for group %d: %g", i, lr)
		}
	}

	switch c.Training.Optimizer {
	case "adam", "sgd":
	default:
		return fmt.Errorf("unknown optimizer: %q", c.Training.Optimizer)
	}
	if c.Training.Momentum < 0 || c.Training.Momentum >= 1 {
		return fmt.Errorf("invalid momentum: %g", c.Training.Momentum)
	}
	if c.Training.LogInterval <= 0 {
		return fmt.Errorf("invalid log interval: %d", c.Training.LogInterval)
	}
	if c.Training.CheckpointInterval <= 0 {
		return fmt.Errorf("invalid checkpoint interval: %d", c.Training.CheckpointInterval)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %q", c.Logging.Level)
	}

	return nil
}

// EnsureDirectories creates the directories referenced by the configuration
func (c *Config) EnsureDirectories() error {
	paths := []string{
		c.Storage.DBPath,
		c.Storage.HistoryPath,
		c.Logging.LogPath,
	}

	for _, p := range paths {
		if p == "" {
			continue
		}
		dir := filepath.Dir(p)
		if dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// ToScheduleConfig converts the file settings into the scheduler's
// configuration, with the resumption counter supplied by the caller.
func (c *ScheduleConfig) ToScheduleConfig(lastStep int) schedule.Config {
	return schedule.Config{
		TotalSteps:  c.TotalSteps,
		WarmupSteps: c.WarmupSteps,
		WarmupType:  c.WarmupType,
		MinLRRatio:  c.MinLRRatio,
		Plateaus:    c.Plateaus,
		BaseLRs:     c.BaseLRs,
		LastStep:    lastStep,
		Verbose:     c.Verbose,
	}
}
