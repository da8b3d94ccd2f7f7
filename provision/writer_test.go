package provision

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWriteLocalConfig(t *testing.T) {
	t.Run("creates missing directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "workspace", "config", "local.json5")

		require.NoError(t, WriteLocalConfig(path, "fnAE-key_1"))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.JSONEq(t, `{"faunadb": {"apiKey": "fnAE-key_1"}}`, string(data))
	})

	t.Run("truncates longer prior content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "local.json5")
		require.NoError(t, os.WriteFile(path, []byte(`{"faunadb": {"apiKey": "a-very-long-previous-key-value"}, "other": true}`), 0o644))

		require.NoError(t, WriteLocalConfig(path, "k"))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, `{"faunadb":{"apiKey":"k"}}`, string(data))
	})

	t.Run("fails when the parent is a file", func(t *testing.T) {
		parent := filepath.Join(t.TempDir(), "config")
		require.NoError(t, os.WriteFile(parent, nil, 0o644))

		err := WriteLocalConfig(filepath.Join(parent, "local.json5"), "k")
		assert.Error(t, err)
	})
}

func TestBackupFile(t *testing.T) {
	logger := zap.NewNop().Sugar()

	t.Run("nothing to back up", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "local.json5")

		backup, err := BackupFile(logger, path, testEpoch, 3)
		require.NoError(t, err)
		assert.Empty(t, backup.Path)
		assert.Empty(t, backup.Pruned)
	})

	t.Run("copies the file aside", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "local.json5")
		require.NoError(t, os.WriteFile(path, []byte("previous"), 0o600))

		backup, err := BackupFile(logger, path, testEpoch, 3)
		require.NoError(t, err)
		assert.Equal(t, path+".20240301-100000.bak", backup.Path)
		assert.Empty(t, backup.Pruned)

		data, err := os.ReadFile(backup.Path)
		require.NoError(t, err)
		assert.Equal(t, "previous", string(data))
		assert.FileExists(t, path)
	})

	t.Run("prunes the oldest backups", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "local.json5")
		require.NoError(t, os.WriteFile(path, []byte("current"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.bak"), nil, 0o600))

		var pruned []string
		for i := 0; i < 4; i++ {
			backup, err := BackupFile(logger, path, testEpoch.Add(time.Duration(i)*time.Hour), 2)
			require.NoError(t, err)
			pruned = append(pruned, backup.Pruned...)
		}
		assert.Equal(t, []string{
			path + ".20240301-100000.bak",
			path + ".20240301-110000.bak",
		}, pruned)

		matches, err := filepath.Glob(path + ".*.bak")
		require.NoError(t, err)
		assert.Equal(t, []string{
			path + ".20240301-120000.bak",
			path + ".20240301-130000.bak",
		}, matches)
		assert.FileExists(t, filepath.Join(dir, "unrelated.bak"))
	})
}

func TestPruneOldBackupsReportsFailures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "local.json5")

	// a non-empty directory named like a backup cannot be removed with os.Remove
	stuck := path + ".20240101-000000.bak"
	require.NoError(t, os.MkdirAll(filepath.Join(stuck, "child"), 0o755))
	require.NoError(t, os.WriteFile(path+".20240102-000000.bak", nil, 0o600))
	require.NoError(t, os.WriteFile(path+".20240103-000000.bak", nil, 0o600))

	removed, err := pruneOldBackups(path, 1)
	assert.Error(t, err)
	assert.Equal(t, []string{path + ".20240102-000000.bak"}, removed)
	assert.DirExists(t, stuck)
}

func TestBackupFilePruneFailureKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "local.json5")
	require.NoError(t, os.WriteFile(path, []byte("current"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(path+".20240101-000000.bak", "child"), 0o755))

	backup, err := BackupFile(zap.NewNop().Sugar(), path, testEpoch, 1)
	require.ErrorIs(t, err, ErrPruneBackups)
	assert.FileExists(t, backup.Path)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	for name, mutate := range map[string]func(*Config){
		"empty tool":          func(c *Config) { c.Tool = "" },
		"empty database":      func(c *Config) { c.DatabaseName = "" },
		"empty output":        func(c *Config) { c.OutputPath = "" },
		"no attempts":         func(c *Config) { c.MaxAttempts = 0 },
		"zero delay":          func(c *Config) { c.RetryDelay = 0 },
		"backup without room": func(c *Config) { c.Backup = true; c.MaxBackups = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
