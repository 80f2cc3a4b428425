package config

import (
	"fmt"
	"os"
)

// Config holds all runtime configuration for a tariffload run.
type Config struct {
	DSN         string
	FilePath    string
	RulesPath   string
	LogFormat   string // "text" or "json"
	Department  string // optional analyze scope
	Force       bool
	KeepStaging bool
	JSONOutput  bool
}

// Validate checks the fields every file-consuming subcommand needs.
func (c *Config) Validate() error {
	if c.FilePath == "" {
		return fmt.Errorf("--file is required")
	}
	if _, err := os.Stat(c.FilePath); err != nil {
		return fmt.Errorf("file not accessible: %w", err)
	}
	return nil
}

// ValidateWithDSN checks both file and DSN fields.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DSN == "" {
		return fmt.Errorf("--dsn or DATABASE_URL is required")
	}
	return nil
}
