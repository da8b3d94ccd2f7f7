package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"faunasetup/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const pingTimeout = 2 * time.Second

var _ Store = (*SQLStore)(nil)

type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Ping checks the audit database answers and carries the audit schema.
func (s *SQLStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("audit store is not initialized")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	if !s.db.WithContext(ctx).Migrator().HasTable(&model.ProvisionRun{}) {
		return ErrSchemaMissing
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LogCommand stores one command attempt. Failures are logged, never returned: the
// audit trail must not break a provisioning run.
func (s *SQLStore) LogCommand(ctx context.Context, logger *zap.SugaredLogger, entry model.CommandLog) {
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		logger.Errorf("failed to write audit log for %q attempt %d: %v", entry.Command, entry.Attempt, err)
	}
}

// RecordRun inserts the run or updates it when a row with the same RunID exists.
func (s *SQLStore) RecordRun(ctx context.Context, logger *zap.SugaredLogger, run model.ProvisionRun) {
	existing, err := s.GetRun(ctx, run.RunID)
	switch {
	case errors.Is(err, ErrRunNotFound):
		err = s.db.WithContext(ctx).Create(&run).Error
	case err == nil:
		run.ID = existing.ID
		run.CreatedAt = existing.CreatedAt
		err = s.db.WithContext(ctx).Save(&run).Error
	}
	if err != nil {
		logger.Errorf("failed to record provision run %s: %v", run.RunID, err)
	}
}

// GetRun returns the run identified by runID or ErrRunNotFound.
func (s *SQLStore) GetRun(ctx context.Context, runID string) (*model.ProvisionRun, error) {
	var run model.ProvisionRun
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns every run.
func (s *SQLStore) ListRuns(ctx context.Context, limit int) ([]model.ProvisionRun, error) {
	var runs []model.ProvisionRun
	q := s.db.WithContext(ctx).Order("started_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// ListCommandsByRun returns the command attempts of a run in the order they were made.
func (s *SQLStore) ListCommandsByRun(ctx context.Context, runID string) ([]model.CommandLog, error) {
	var entries []model.CommandLog
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
