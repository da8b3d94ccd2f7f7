package db

import (
	"context"
	"errors"

	"faunasetup/model"

	"go.uber.org/zap"
)

var (
	ErrRunNotFound   = errors.New("provision run not found")
	ErrSchemaMissing = errors.New("audit schema is missing")
)

// Store is the audit trail of provisioning runs.
type Store interface {
	LogCommand(ctx context.Context, logger *zap.SugaredLogger, entry model.CommandLog)
	RecordRun(ctx context.Context, logger *zap.SugaredLogger, run model.ProvisionRun)
	ListRuns(ctx context.Context, limit int) ([]model.ProvisionRun, error)
	GetRun(ctx context.Context, runID string) (*model.ProvisionRun, error)
	ListCommandsByRun(ctx context.Context, runID string) ([]model.CommandLog, error)
}
