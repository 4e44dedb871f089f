// Package backup takes, lists, prunes and restores database snapshots, by hand
// or on a daily schedule.
package backup

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"shop-pos/internal/activity"
	"shop-pos/internal/apperr"
	"shop-pos/internal/database"
)

var ErrBadBackupName = fmt.Errorf("%w: invalid backup file name", apperr.ErrValidation)

// Manager wraps the store's snapshot primitives with the backup directory and
// audit logging.
type Manager struct {
	store *database.Store
	dir   string
}

func NewManager(store *database.Store, dir string) *Manager {
	return &Manager{store: store, dir: dir}
}

func (m *Manager) Dir() string { return m.dir }

// Create writes a snapshot and records who asked for it (0 for the scheduler).
func (m *Manager) Create(ctx context.Context, userID uint) (string, error) {
	path, err := m.store.Backup(ctx, m.dir)
	if err != nil {
		return "", err
	}
	if err := activity.Record(m.store.DB().WithContext(ctx), userID, activity.Backup, "Database backed up to "+filepath.Base(path)); err != nil {
		log.Printf("record backup activity: %v", err)
	}
	return path, nil
}

func (m *Manager) List() ([]database.BackupFile, error) {
	return database.ListBackups(m.dir)
}

// Prune deletes snapshots older than the given number of days. Zero or less keeps everything.
func (m *Manager) Prune(days int) (int, error) {
	if days <= 0 {
		return 0, nil
	}
	return database.PruneBackups(m.dir, time.Duration(days)*24*time.Hour)
}

// Restore replaces the live database with the named snapshot from the backup
// directory. Only bare file names are accepted.
func (m *Manager) Restore(ctx context.Context, userID uint, name string) error {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") || !strings.HasSuffix(name, ".db") {
		return ErrBadBackupName
	}
	if err := m.store.Restore(filepath.Join(m.dir, name)); err != nil {
		return err
	}
	if err := activity.Record(m.store.DB().WithContext(ctx), userID, activity.Restore, "Database restored from "+name); err != nil {
		log.Printf("record restore activity: %v", err)
	}
	return nil
}
