// Package config loads and validates application configuration: the
// HTTP server settings, logging, and the fiscal rules the engine is
// built from. Malformed fiscal values fail fast at startup.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/kintai/leave-engine/leave"
)

// Configuration holds everything the server binary needs.
type Configuration struct {
	Server  ServerConfig
	Logging LoggingConfig
	Fiscal  FiscalSettings
	// GrantTable overrides the statutory entitlement schedule. Empty
	// means the default table.
	GrantTable []GrantRow
}

// ServerConfig holds HTTP and storage settings.
type ServerConfig struct {
	Port         int
	DatabasePath string
	// SchedulerInterval is how often the carry-over scheduler checks
	// for a fiscal-year boundary, e.g. "1h".
	SchedulerInterval time.Duration
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// FiscalSettings mirrors leave.FiscalConfig in config-file-friendly
// types.
type FiscalSettings struct {
	PeriodStartDay       int
	FiscalYearStartMonth int
	MaxCarryOverYears    int
	MaxAccumulatedDays   float64
	MinimumAnnualUse     float64
}

// GrantRow is one grant-table entry in the config file.
type GrantRow struct {
	Seniority float64
	Days      float64
}

// LoadConfiguration reads the config file at path. A missing path loads
// defaults only.
func LoadConfiguration(path string) (*Configuration, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.databasepath", "leave.db")
	v.SetDefault("server.schedulerinterval", "1h")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("fiscal.periodstartday", 21)
	v.SetDefault("fiscal.fiscalyearstartmonth", int(time.January))
	v.SetDefault("fiscal.maxcarryoveryears", 2)
	v.SetDefault("fiscal.maxaccumulateddays", 40.0)
	v.SetDefault("fiscal.minimumannualuse", 5.0)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the whole configuration, delegating fiscal rules to
// the engine's own validators.
func (c *Configuration) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &leave.ConfigurationError{Field: "server.port", Reason: "must be a valid TCP port"}
	}
	if c.Server.SchedulerInterval <= 0 {
		return &leave.ConfigurationError{Field: "server.schedulerinterval", Reason: "must be positive"}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &leave.ConfigurationError{Field: "logging.level", Reason: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return &leave.ConfigurationError{Field: "logging.format", Reason: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	if err := c.FiscalConfig().Validate(); err != nil {
		return err
	}
	return c.LeaveGrantTable().Validate()
}

// FiscalConfig builds the engine's immutable configuration value.
func (c *Configuration) FiscalConfig() leave.FiscalConfig {
	return leave.FiscalConfig{
		PeriodStartDay:       c.Fiscal.PeriodStartDay,
		PeriodEndDay:         c.Fiscal.PeriodStartDay - 1,
		FiscalYearStartMonth: time.Month(c.Fiscal.FiscalYearStartMonth),
		MaxCarryOverYears:    c.Fiscal.MaxCarryOverYears,
		MaxAccumulatedDays:   decimal.NewFromFloat(c.Fiscal.MaxAccumulatedDays),
		MinimumAnnualUse:     decimal.NewFromFloat(c.Fiscal.MinimumAnnualUse),
	}
}

// LeaveGrantTable builds the entitlement schedule, falling back to the
// statutory default when the config file doesn't override it.
func (c *Configuration) LeaveGrantTable() leave.GrantTable {
	if len(c.GrantTable) == 0 {
		return leave.DefaultGrantTable()
	}
	table := make(leave.GrantTable, len(c.GrantTable))
	for i, row := range c.GrantTable {
		table[i] = leave.GrantStep{
			Threshold: decimal.NewFromFloat(row.Seniority),
			Days:      decimal.NewFromFloat(row.Days),
		}
	}
	return table
}
