package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type RunOutcome string

const (
	OutcomeAlreadyExists RunOutcome = "already-exists"
	OutcomeCreated       RunOutcome = "created"
	OutcomeFailed        RunOutcome = "failed"
)

// IsValid returns true if RunOutcome is known
func (o RunOutcome) IsValid() bool {
	switch o {
	case OutcomeAlreadyExists, OutcomeCreated, OutcomeFailed:
		return true
	}
	return false
}

func (o *RunOutcome) Scan(value interface{ any }) error {
	v, ok := value.(string)
	if !ok {
		return fmt.Errorf("cannot scan %T into RunOutcome", value)
	}
	*o = RunOutcome(v)
	return nil
}

func (o RunOutcome) Value() (driver.Value, error) {
	if !o.IsValid() {
		return nil, fmt.Errorf("invalid RunOutcome %q", o)
	}
	return string(o), nil
}

// CommandResult is the outcome of one external process invocation.
type CommandResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Succeeded reports whether the process exited with status zero.
func (r CommandResult) Succeeded() bool {
	return r.ExitCode == 0
}

// LocalConfig is the document written to the local json5 configuration file.
type LocalConfig struct {
	FaunaDB FaunaDBConfig `json:"faunadb"`
}

type FaunaDBConfig struct {
	APIKey string `json:"apiKey"`
}

// CommandLog records a single attempt at running an external command.
type CommandLog struct {
	gorm.Model
	RunID     string `gorm:"index"`
	Command   string
	Attempt   int
	ExitCode  int
	Stdout    string // secrets redacted
	Stderr    string
	Duration  int64 // milliseconds
	StartedAt time.Time
}

// ProvisionRun records one invocation of the provisioner.
type ProvisionRun struct {
	gorm.Model
	RunID        string `gorm:"uniqueIndex"`
	DatabaseName string `gorm:"index"`
	OutputPath   string
	Outcome      RunOutcome `gorm:"type:text"`
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}
