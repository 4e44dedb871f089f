package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shop-pos/internal/database/dbtest"
	"shop-pos/internal/models"
	"shop-pos/internal/settings"

	"github.com/stretchr/testify/require"
)

func TestNextRun(t *testing.T) {
	loc := time.Local
	now := time.Date(2026, 5, 10, 20, 0, 0, 0, loc)

	next, err := NextRun(now, "21:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 5, 10, 21, 0, 0, 0, loc), next)

	next, err = NextRun(now, "20:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 5, 11, 20, 0, 0, 0, loc), next)

	next, err = NextRun(time.Date(2026, 12, 31, 23, 30, 0, 0, loc), "02:15")
	require.NoError(t, err)
	require.Equal(t, time.Date(2027, 1, 1, 2, 15, 0, 0, loc), next)

	_, err = NextRun(now, "9pm")
	require.Error(t, err)
}

func TestRunOnceHonoursSettings(t *testing.T) {
	store, dir := dbtest.NewFile(t)
	cfg := settings.NewService(store)
	ctx := context.Background()
	backups := filepath.Join(dir, "backups")
	sched := NewScheduler(NewManager(store, backups), cfg)

	path, err := sched.RunOnce(ctx)
	require.NoError(t, err)
	require.FileExists(t, path)

	var logged int64
	store.DB().Model(&models.UserActivity{}).Where("action = ? AND user_id = 0", "Backup").Count(&logged)
	require.EqualValues(t, 1, logged)

	require.NoError(t, cfg.Set(ctx, 0, settings.AutoBackupEnabled, "false"))
	path, err = sched.RunOnce(ctx)
	require.NoError(t, err)
	require.Empty(t, path)
}

func TestRunOncePrunesOldSnapshots(t *testing.T) {
	store, dir := dbtest.NewFile(t)
	ctx := context.Background()
	backups := filepath.Join(dir, "backups")
	require.NoError(t, os.MkdirAll(backups, 0o755))

	stale := filepath.Join(backups, "backup_20200101_000000.db")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	old := time.Now().AddDate(0, 0, -40)
	require.NoError(t, os.Chtimes(stale, old, old))

	sched := NewScheduler(NewManager(store, backups), settings.NewService(store))
	_, err := sched.RunOnce(ctx)
	require.NoError(t, err)
	require.NoFileExists(t, stale)

	files, err := NewManager(store, backups).List()
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	store, dir := dbtest.NewFile(t)
	sched := NewScheduler(NewManager(store, filepath.Join(dir, "backups")), settings.NewService(store))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestRestoreByName(t *testing.T) {
	store, dir := dbtest.NewFile(t)
	ctx := context.Background()
	m := NewManager(store, filepath.Join(dir, "backups"))

	path, err := m.Create(ctx, 0)
	require.NoError(t, err)
	p := dbtest.Product(t, store, "Added After Backup", 10, 1)

	require.ErrorIs(t, m.Restore(ctx, 0, "../shop.db"), ErrBadBackupName)
	require.ErrorIs(t, m.Restore(ctx, 0, ""), ErrBadBackupName)
	require.NoError(t, m.Restore(ctx, 0, filepath.Base(path)))

	var n int64
	store.DB().Model(&models.Product{}).Where("id = ?", p.ID).Count(&n)
	require.Zero(t, n)

	var restored int64
	store.DB().Model(&models.UserActivity{}).Where("action = ?", "Restore").Count(&restored)
	require.EqualValues(t, 1, restored)
}
