package provision

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"faunasetup/db"
)

const (
	listCmd   = "fauna list-databases"
	createCmd = "fauna create-database fensak"
	keyCmd    = "fauna create-key fensak"
)

var testEpoch = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// testConfig returns the default config writing into a per-test temp dir
func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.OutputPath = filepath.Join(t.TempDir(), "config", "local.json5")
	return cfg
}

// newTestProvisioner wires a provisioner to the mock runner, a mock clock and an observed logger
func newTestProvisioner(t *testing.T, cfg Config, runner *MockRunner) (*Provisioner, *MockClock, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	p, err := New(cfg, runner, zap.New(core).Sugar())
	require.NoError(t, err)

	clk := NewMockClock(testEpoch)
	p.Clock = clk
	return p, clk, logs
}

// setupAuditStore creates an in-memory audit database
func setupAuditStore(t *testing.T) *db.SQLStore {
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))
	return db.NewSQLStore(database)
}
