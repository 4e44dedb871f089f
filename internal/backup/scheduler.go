package backup

import (
	"context"
	"fmt"
	"log"
	"time"

	"shop-pos/internal/settings"
)

// SettingsReader is the part of the settings service the scheduler needs.
type SettingsReader interface {
	GetOr(ctx context.Context, key, def string) string
	Bool(ctx context.Context, key string, def bool) bool
	Int(ctx context.Context, key string, def int) int
}

// Scheduler takes one backup a day at auto_backup_time. The settings are re-read
// before every run so changes apply without a restart.
type Scheduler struct {
	manager  *Manager
	settings SettingsReader
	now      func() time.Time
}

func NewScheduler(m *Manager, s SettingsReader) *Scheduler {
	return &Scheduler{manager: m, settings: s, now: time.Now}
}

// NextRun is the next occurrence of the HH:MM clock time strictly after now.
func NextRun(now time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid backup time %q: %w", clock, err)
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		clock := s.settings.GetOr(ctx, settings.AutoBackupTime, "21:00")
		next, err := NextRun(s.now(), clock)
		if err != nil {
			log.Printf("❌ %v, falling back to 21:00", err)
			next, _ = NextRun(s.now(), "21:00")
		}
		log.Printf("⏳ Next database backup scheduled at: %s", next.Format("2006-01-02 15:04:05"))

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("Backup scheduler stopped")
			return
		case <-timer.C:
		}

		if _, err := s.RunOnce(ctx); err != nil {
			log.Printf("❌ Scheduled backup failed: %v", err)
		}
	}
}

// RunOnce performs the scheduled work now: backup when enabled, then prune.
// It returns the new snapshot path, or "" when automatic backups are off.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	if !s.settings.Bool(ctx, settings.AutoBackupEnabled, true) {
		log.Println("Automatic backup disabled, skipping")
		return "", nil
	}
	path, err := s.manager.Create(ctx, 0)
	if err != nil {
		return "", err
	}
	days := s.settings.Int(ctx, settings.BackupRetentionDays, 30)
	if _, err := s.manager.Prune(days); err != nil {
		log.Printf("❌ Failed to prune old backups: %v", err)
	}
	return path, nil
}
