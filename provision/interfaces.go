package provision

import (
	"context"

	"faunasetup/model"

	"go.uber.org/zap"
)

// AuditStore receives a record of every command attempt and every run.
// db.SQLStore implements it.
type AuditStore interface {
	LogCommand(ctx context.Context, logger *zap.SugaredLogger, entry model.CommandLog)
	RecordRun(ctx context.Context, logger *zap.SugaredLogger, run model.ProvisionRun)
}
