package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrBackupUnsupported is returned for drivers without a file-level snapshot.
var ErrBackupUnsupported = errors.New("backup and restore need the sqlite driver with a file database")

const backupPrefix = "backup_"

// BackupFile describes one snapshot in the backup directory.
type BackupFile struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Backup writes a consistent snapshot with sqlite's VACUUM INTO. It waits for any
// open transaction to finish first.
func (s *Store) Backup(ctx context.Context, dir string) (string, error) {
	if s.Driver() != "sqlite" {
		return "", ErrBackupUnsupported
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stamp := time.Now().Format("20060102_150405")
	path := filepath.Join(dir, backupPrefix+stamp+".db")
	for i := 1; fileExists(path); i++ {
		path = filepath.Join(dir, fmt.Sprintf("%s%s_%d.db", backupPrefix, stamp, i))
	}

	if err := s.DB().WithContext(ctx).Exec("VACUUM INTO ?", path).Error; err != nil {
		log.Printf("❌ Failed to create backup: %v", err)
		return "", fmt.Errorf("backup: %w", err)
	}
	log.Printf("✅ Database backup created: %s", path)
	return path, nil
}

// Restore replaces the live database file with a snapshot and reopens the pool.
// Calls to DB block until it finishes.
func (s *Store) Restore(backupPath string) error {
	if s.Driver() != "sqlite" {
		return ErrBackupUnsupported
	}
	dbPath, ok := sqliteFilePath(s.cfg.DBDSN)
	if !ok {
		return ErrBackupUnsupported
	}
	if !fileExists(backupPath) {
		return fmt.Errorf("backup file not found: %s", backupPath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoring.Lock()
	defer s.restoring.Unlock()

	if err := s.Close(); err != nil {
		return fmt.Errorf("close before restore: %w", err)
	}
	copyErr := copyFile(backupPath, dbPath)

	// Reopen even when the copy failed so the process keeps a working handle.
	db, err := s.connect()
	if err != nil {
		return fmt.Errorf("reopen after restore: %w", err)
	}
	s.db.Store(db)
	if copyErr != nil {
		return fmt.Errorf("restore: %w", copyErr)
	}
	log.Printf("Database restored from: %s", backupPath)
	return nil
}

// ListBackups returns the snapshots in dir, newest first.
func ListBackups(dir string) ([]BackupFile, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []BackupFile{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := []BackupFile{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, BackupFile{
			Name:      e.Name(),
			Path:      filepath.Join(dir, e.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// PruneBackups removes snapshots older than retention and reports how many went.
func PruneBackups(dir string, retention time.Duration) (int, error) {
	files, err := ListBackups(dir)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, f := range files {
		if !f.CreatedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(f.Path); err != nil {
			log.Printf("❌ Failed to remove old backup %s: %v", f.Path, err)
			continue
		}
		log.Printf("🗑️ Removed old backup: %s", f.Path)
		removed++
	}
	return removed, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
