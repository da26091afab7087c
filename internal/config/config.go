package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/interval"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/model"
)

// BusinessDay defines the organization's opening hours for one weekday
type BusinessDay struct {
	Day   string `yaml:"day" validate:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	Start string `yaml:"start" validate:"required"`
	End   string `yaml:"end" validate:"required"`
}

// Closure defines recurring clinic closures as an RRULE, e.g. public
// holidays or a monthly training afternoon
type Closure struct {
	RRule  string `yaml:"rrule" validate:"required"`
	Reason string `yaml:"reason,omitempty"`
}

// SchedulingConfig controls slot generation and validation limits
type SchedulingConfig struct {
	SlotDurationMinutes int `yaml:"slotDurationMinutes" validate:"required,min=5"`
	SlotStepMinutes     int `yaml:"slotStepMinutes" validate:"required,min=5"`
	HoldExpiryMinutes   int `yaml:"holdExpiryMinutes,omitempty" validate:"omitempty,min=1"`
}

// RepairConfig bounds the patch-based repair loop
type RepairConfig struct {
	MaxPatchOps   int `yaml:"maxPatchOps" validate:"required,min=1"`
	MaxIterations int `yaml:"maxIterations" validate:"required,min=1"`
}

// ProposerConfig configures the external schedule proposer. An empty
// APIKeyEnv (or an unset env var) leaves the proposer unconfigured and
// orchestrators fall back to deterministic behaviour.
type ProposerConfig struct {
	Model          string `yaml:"model,omitempty"`
	BaseURL        string `yaml:"baseURL,omitempty"`
	APIKeyEnv      string `yaml:"apiKeyEnv,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty" validate:"omitempty,min=1"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL   string           `yaml:"databaseURL" validate:"required"`
	Timezone      string           `yaml:"timezone" validate:"required"`
	BusinessHours []BusinessDay    `yaml:"businessHours" validate:"required,min=1,dive"`
	Closures      []Closure        `yaml:"closures,omitempty" validate:"dive"`
	Scheduling    SchedulingConfig `yaml:"scheduling" validate:"required"`
	Repair        RepairConfig     `yaml:"repair" validate:"required"`
	Proposer      ProposerConfig   `yaml:"proposer,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from sayitschedule_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	configPath, err := findConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, business hours ranges and
// closure rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	seen := make(map[string]bool)
	for i, day := range cfg.BusinessHours {
		if seen[day.Day] {
			return fmt.Errorf("duplicate businessHours entry for %s", day.Day)
		}
		seen[day.Day] = true
		if _, err := interval.ParseRange(day.Start, day.End); err != nil {
			return fmt.Errorf("invalid businessHours[%d]: %w", i, err)
		}
	}

	for i, closure := range cfg.Closures {
		if _, err := rrule.StrToRRule(closure.RRule); err != nil {
			return fmt.Errorf("invalid rrule in closures[%d]: %w", i, err)
		}
	}

	if cfg.Scheduling.SlotStepMinutes > cfg.Scheduling.SlotDurationMinutes {
		return fmt.Errorf("scheduling.slotStepMinutes must not exceed slotDurationMinutes")
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	return nil
}

// WeeklyBusinessHours converts the configured business hours to the
// engine's weekly-hours form
func (c *Config) WeeklyBusinessHours() model.WeeklyHours {
	hours := make(model.WeeklyHours, len(c.BusinessHours))
	for _, day := range c.BusinessHours {
		hours[day.Day] = model.TimeSlot{StartTime: day.Start, EndTime: day.End}
	}
	return hours
}

// ClosureDates expands the configured closure rrules into the concrete
// closed dates inside [startDate, endDate] inclusive
func (c *Config) ClosureDates(startDate, endDate string) (map[string]bool, error) {
	start, err := time.Parse(model.DateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.Parse(model.DateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}

	closed := make(map[string]bool)
	for i, closure := range c.Closures {
		rule, err := rrule.StrToRRule(closure.RRule)
		if err != nil {
			return nil, fmt.Errorf("invalid rrule in closures[%d]: %w", i, err)
		}

		// Anchor DTSTART just before the window so Between sees every
		// occurrence inside it
		rule.DTStart(start.AddDate(0, 0, -7))
		for _, occurrence := range rule.Between(start, end.AddDate(0, 0, 1), true) {
			closed[occurrence.Format(model.DateLayout)] = true
		}
	}
	return closed, nil
}

// ProposerTimeout returns the configured proposer call timeout, with a
// 60s default
func (c *Config) ProposerTimeout() time.Duration {
	if c.Proposer.TimeoutSeconds > 0 {
		return time.Duration(c.Proposer.TimeoutSeconds) * time.Second
	}
	return 60 * time.Second
}

// findConfigFile searches for sayitschedule_config.yaml in current directory and home directory
func findConfigFile() (string, error) {
	configFileName := "sayitschedule_config.yaml"

	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
