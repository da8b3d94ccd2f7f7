package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"faunasetup/provision"
)

const (
	envPrefix = "FAUNA_SETUP"

	toolFlag        = "tool"
	databaseFlag    = "database"
	outputFlag      = "output"
	maxAttemptsFlag = "max-attempts"
	retryDelayFlag  = "retry-delay"
	backupFlag      = "backup"
	maxBackupsFlag  = "max-backups"
	auditDBFlag     = "audit-db"
	logLevelFlag    = "log-level"
)

func addProvisionFlags(flags *pflag.FlagSet) {
	defaults := provision.DefaultConfig()
	flags.String(toolFlag, defaults.Tool, "fauna CLI binary to run")
	flags.String(databaseFlag, defaults.DatabaseName, "Name of the database to ensure")
	flags.String(outputFlag, defaults.OutputPath, "Configuration file the new API key is written to")
	flags.Int(maxAttemptsFlag, defaults.MaxAttempts, "Total attempts for each fauna command")
	flags.Duration(retryDelayFlag, defaults.RetryDelay, "Delay between attempts")
	flags.Bool(backupFlag, false, "Whether to back up an existing configuration file before overwriting it")
	flags.Int(maxBackupsFlag, defaults.MaxBackups, "Maximum number of configuration backups to retain")
}

func addCommonFlags(flags *pflag.FlagSet) {
	flags.String(auditDBFlag, "", "Path to a SQLite database recording each run (disabled when empty)")
	flags.String(logLevelFlag, "info", "Log level (debug, info, warn, error)")
}

// newViper binds flags to FAUNA_SETUP_* environment variables, e.g. --max-attempts to FAUNA_SETUP_MAX_ATTEMPTS.
func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv() // binds environment variables to viper config
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	return v, nil
}

func loadConfig(v *viper.Viper) (provision.Config, error) {
	cfg := provision.Config{
		Tool:         v.GetString(toolFlag),
		DatabaseName: v.GetString(databaseFlag),
		OutputPath:   v.GetString(outputFlag),
		MaxAttempts:  v.GetInt(maxAttemptsFlag),
		RetryDelay:   v.GetDuration(retryDelayFlag),
		Backup:       v.GetBool(backupFlag),
		MaxBackups:   v.GetInt(maxBackupsFlag),
	}
	if err := cfg.Validate(); err != nil {
		return provision.Config{}, err
	}
	return cfg, nil
}

// newLogger builds a console logger on stdout, where all diagnostics of this tool go.
func newLogger(level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stdout"}
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
