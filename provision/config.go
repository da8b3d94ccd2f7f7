package provision

import (
	"errors"
	"fmt"
	"time"

	"faunasetup/plugins/fauna"
)

const (
	DefaultDatabaseName = "fensak"
	DefaultOutputPath   = "/workspace/config/local.json5"
	DefaultMaxAttempts  = 5
	DefaultRetryDelay   = 5 * time.Second
	DefaultMaxBackups   = 5
)

var ErrInvalidConfig = errors.New("invalid provisioner config")

// Config holds everything the Provisioner needs to know about its environment.
type Config struct {
	// Tool is the fauna CLI binary, looked up in PATH when not absolute.
	Tool         string
	DatabaseName string
	OutputPath   string
	// MaxAttempts is the total number of times a command is run, not the number of retries.
	MaxAttempts int
	RetryDelay  time.Duration
	// Backup copies an existing configuration file aside before it is overwritten.
	Backup     bool
	MaxBackups int
}

func DefaultConfig() Config {
	return Config{
		Tool:         fauna.DefaultTool,
		DatabaseName: DefaultDatabaseName,
		OutputPath:   DefaultOutputPath,
		MaxAttempts:  DefaultMaxAttempts,
		RetryDelay:   DefaultRetryDelay,
		MaxBackups:   DefaultMaxBackups,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Tool == "":
		return fmt.Errorf("%w: tool must be set", ErrInvalidConfig)
	case c.DatabaseName == "":
		return fmt.Errorf("%w: database name must be set", ErrInvalidConfig)
	case c.OutputPath == "":
		return fmt.Errorf("%w: output path must be set", ErrInvalidConfig)
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidConfig, c.MaxAttempts)
	case c.RetryDelay <= 0:
		return fmt.Errorf("%w: retry delay must be positive, got %s", ErrInvalidConfig, c.RetryDelay)
	case c.Backup && c.MaxBackups < 1:
		return fmt.Errorf("%w: max backups must be at least 1 when backups are enabled, got %d", ErrInvalidConfig, c.MaxBackups)
	}
	return nil
}
