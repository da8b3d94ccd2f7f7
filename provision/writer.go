package provision

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"faunasetup/model"
)

const backupFileExt = ".bak"

// WriteLocalConfig replaces the file at path with a configuration document holding apiKey.
func WriteLocalConfig(path, apiKey string) error {
	data, err := json.Marshal(model.LocalConfig{
		FaunaDB: model.FaunaDBConfig{APIKey: apiKey},
	})
	if err != nil {
		return fmt.Errorf("encode local config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}

var ErrPruneBackups = errors.New("failed to prune old backups")

// Backup describes what BackupFile did.
type Backup struct {
	// Path is empty when there was no file to back up.
	Path   string
	Pruned []string
}

// BackupFile copies path to path.<timestamp>.bak and prunes backups beyond maxBackups,
// oldest first. Pruning problems are returned wrapped in ErrPruneBackups once the copy
// itself has succeeded.
func BackupFile(logger *zap.SugaredLogger, path string, now time.Time, maxBackups int) (Backup, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return Backup{}, nil
	}
	if err != nil {
		return Backup{}, err
	}
	logger.Debugf("existing config file size: %d bytes", info.Size())

	backup := Backup{Path: fmt.Sprintf("%s.%s%s", path, now.Format("20060102-150405"), backupFileExt)}
	if err := copyFile(logger, path, backup.Path); err != nil {
		return Backup{}, fmt.Errorf("failed to back up %s: %w", path, err)
	}
	logger.Infof("existing config backed up to %s", backup.Path)

	backup.Pruned, err = pruneOldBackups(path, maxBackups)
	for _, file := range backup.Pruned {
		logger.Infof("removed old backup: %s", file)
	}
	if err != nil {
		return backup, fmt.Errorf("%w: %w", ErrPruneBackups, err)
	}
	return backup, nil
}

func copyFile(logger *zap.SugaredLogger, src, dst string) error {
	sourceFileStat, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !sourceFileStat.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func(source *os.File) {
		if err := source.Close(); err != nil {
			logger.Warnf("failed to close file %s: %v", src, err)
		}
	}(source)

	destination, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer func(destination *os.File) {
		if err := destination.Close(); err != nil {
			logger.Warnf("failed to close file %s: %v", dst, err)
		}
	}(destination)

	_, err = destination.ReadFrom(source)
	return err
}

// pruneOldBackups removes all but the max newest backups of path and returns what it removed.
func pruneOldBackups(path string, max int) ([]string, error) {
	dir := filepath.Dir(path)
	prefix := filepath.Base(path) + "."
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var backups []string
	for _, f := range files {
		if strings.HasPrefix(f.Name(), prefix) && strings.HasSuffix(f.Name(), backupFileExt) {
			backups = append(backups, filepath.Join(dir, f.Name()))
		}
	}

	if len(backups) <= max {
		return nil, nil
	}

	// timestamps sort lexically
	sort.Strings(backups)
	var removed []string
	var errs []error
	for _, file := range backups[:len(backups)-max] {
		if err := os.Remove(file); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, file)
	}
	return removed, errors.Join(errs...)
}
