package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	Debug           bool
	LearnPath       string
	SynthesizePath  string
	Format          string
	OutPath         string
	DispatchPath    string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("DATALINK_CONFIG", ""),
		"Path to configuration file; empty runs on defaults (env: DATALINK_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("DATALINK_CONFIG", ""),
		"Path to configuration file; empty runs on defaults (env: DATALINK_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("DATALINK_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: DATALINK_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("DATALINK_LOG_FORMAT", "text"),
		"Log format: json, text (env: DATALINK_LOG_FORMAT)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool("DATALINK_DEBUG", false),
		"Enable debug logging (env: DATALINK_DEBUG)")

	flag.StringVar(&cfg.LearnPath, "learn", "",
		"Learn a schema from a JSONL record file and print the proposal")

	flag.StringVar(&cfg.SynthesizePath, "synthesize", "",
		"Convert a JSONL record file into the format chosen with -format")

	flag.StringVar(&cfg.Format, "format", "json",
		"Output format for -synthesize (csv, tsv, json, jsonl, yaml, xml, html, markdown, sql, ini, txt, arrow)")

	flag.StringVar(&cfg.OutPath, "out", "",
		"Output file; empty writes to stdout")

	flag.StringVar(&cfg.DispatchPath, "dispatch", "",
		"Dispatch one intent described by a JSON file against the configured connectors")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("DATALINK_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: DATALINK_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	// Custom usage
	flag.Usage = printDetailedHelp

	flag.Parse()

	// Override log level if debug is set
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	modes := 0
	for _, selected := range []bool{
		cfg.LearnPath != "",
		cfg.SynthesizePath != "",
		cfg.DispatchPath != "",
		cfg.Validate,
	} {
		if selected {
			modes++
		}
	}
	if modes > 1 {
		return fmt.Errorf("choose one of -learn, -synthesize, -dispatch, -validate")
	}

	// Validate config file exists when one is given
	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	// Validate log level
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	// Validate log format
	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - data access with learned schemas

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Learn a schema and print the proposal
  %s -learn records.jsonl

  # Convert records to CSV
  %s -synthesize records.jsonl -format csv -out records.csv

  # Run one intent against the configured connectors
  %s -config datalink.json -dispatch intent.json

  # Validate configuration only
  %s -config datalink.json -validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
