package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shop-pos/internal/config"
	"shop-pos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func memoryStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Config{DBDriver: "sqlite", DBDSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())}
	s, err := Open(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return s
}

func fileStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{DBDriver: "sqlite", DBDSN: filepath.Join(dir, "shop.db")}
	s, err := Open(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return s, dir
}

func TestInitIdempotent(t *testing.T) {
	s := memoryStore(t)
	ctx := context.Background()

	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Init(ctx))

	var admins, walkIns, settings int64
	s.DB().Model(&models.User{}).Where("username = ?", "admin").Count(&admins)
	s.DB().Model(&models.Customer{}).Where("id = ?", models.WalkInCustomerID).Count(&walkIns)
	s.DB().Model(&models.Setting{}).Count(&settings)
	require.EqualValues(t, 1, admins)
	require.EqualValues(t, 1, walkIns)
	require.EqualValues(t, len(DefaultSettings), settings)
}

func TestSeedKeepsChangedSettings(t *testing.T) {
	s := memoryStore(t)
	ctx := context.Background()
	require.NoError(t, s.DB().Model(&models.Setting{}).Where("key = ?", "shop_name").Update("value", "Corner Shop").Error)

	require.NoError(t, s.Seed(ctx))

	var got models.Setting
	require.NoError(t, s.DB().First(&got, "key = ?", "shop_name").Error)
	require.Equal(t, "Corner Shop", got.Value)
}

func TestExecuteModes(t *testing.T) {
	s := memoryStore(t)
	ctx := context.Background()

	ins := s.Execute(ctx, "INSERT INTO suppliers (name, created_at) VALUES (?, ?)", []interface{}{"Agro Traders", time.Now()}, FetchNone)
	require.True(t, ins.OK)
	require.NotZero(t, ins.LastInsertID)

	one := s.Execute(ctx, "SELECT name FROM suppliers WHERE id = ?", []interface{}{ins.LastInsertID}, FetchOne)
	require.True(t, one.OK)
	require.Equal(t, "Agro Traders", one.Row["name"])

	none := s.Execute(ctx, "SELECT name FROM suppliers WHERE id = ?", []interface{}{9999}, FetchOne)
	require.True(t, none.OK)
	require.Nil(t, none.Row)

	all := s.Execute(ctx, "SELECT key FROM settings ORDER BY key", nil, FetchAll)
	require.Len(t, all.Rows, len(DefaultSettings))

	upd := s.Execute(ctx, "UPDATE suppliers SET phone = ? WHERE id = ?", []interface{}{"0300", ins.LastInsertID}, FetchNone)
	require.True(t, upd.OK)
	require.EqualValues(t, 1, upd.RowsAffected)
}

func TestExecuteFailureReturnsEmpty(t *testing.T) {
	s := memoryStore(t)
	ctx := context.Background()

	require.Equal(t, Result{}, s.Execute(ctx, "SELECT * FROM no_such_table", nil, FetchAll))
	require.Equal(t, Result{}, s.Execute(ctx, "SELECT * FROM no_such_table", nil, FetchOne))
	require.Equal(t, Result{}, s.Execute(ctx, "INSERT INTO no_such_table VALUES (1)", nil, FetchNone))
}

func TestWithTxRollsBackEverything(t *testing.T) {
	s := memoryStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&models.Customer{Name: "Rashid", Balance: decimal.NewFromInt(10)}).Error; err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int64
	s.DB().Model(&models.Customer{}).Where("name = ?", "Rashid").Count(&n)
	require.Zero(t, n)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	s := memoryStore(t)
	ctx := context.Background()

	require.Panics(t, func() {
		_ = s.WithTx(ctx, func(tx *gorm.DB) error {
			tx.Create(&models.Customer{Name: "Panicky"})
			panic("mid-flight")
		})
	})

	var n int64
	s.DB().Model(&models.Customer{}).Where("name = ?", "Panicky").Count(&n)
	require.Zero(t, n)
}

func TestBackupRestoreAndPrune(t *testing.T) {
	s, dir := fileStore(t)
	ctx := context.Background()
	backups := filepath.Join(dir, "backups")

	require.NoError(t, s.DB().Create(&models.Supplier{Name: "Before Backup"}).Error)
	path, err := s.Backup(ctx, backups)
	require.NoError(t, err)
	require.FileExists(t, path)

	second, err := s.Backup(ctx, backups)
	require.NoError(t, err)
	require.NotEqual(t, path, second)

	require.NoError(t, s.DB().Create(&models.Supplier{Name: "After Backup"}).Error)
	require.NoError(t, s.Restore(path))

	var names []string
	require.NoError(t, s.DB().Model(&models.Supplier{}).Pluck("name", &names).Error)
	require.Equal(t, []string{"Before Backup"}, names)

	list, err := ListBackups(backups)
	require.NoError(t, err)
	require.Len(t, list, 2)

	old := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	removed, err := PruneBackups(backups, 48*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.NoFileExists(t, path)
	require.FileExists(t, second)
}

func TestBackupUnsupportedForMemory(t *testing.T) {
	s := memoryStore(t)
	require.ErrorIs(t, s.Restore("nowhere.db"), ErrBackupUnsupported)
}

func TestSalesTotals(t *testing.T) {
	s := memoryStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, total := range []int64{100, 250} {
		sale := models.Sale{
			CustomerID: models.WalkInCustomerID, UserID: 1, SaleDate: now,
			Subtotal: decimal.NewFromInt(total), Total: decimal.NewFromInt(total),
			PaymentMethod: models.PaymentCash, AmountPaid: decimal.NewFromInt(total),
		}
		require.NoError(t, s.DB().Create(&sale).Error)
	}

	totals, err := s.SalesTotals(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 2, totals.TotalCount)
	require.True(t, totals.TotalRevenue.Equal(decimal.NewFromInt(350)), totals.TotalRevenue.String())

	empty, err := s.SalesTotals(ctx, now.Add(time.Hour), now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Zero(t, empty.TotalCount)
	require.True(t, empty.TotalRevenue.IsZero())
}

func TestForeignKeysOnEveryConnection(t *testing.T) {
	s, _ := fileStore(t)
	sqlDB, err := s.DB().DB()
	require.NoError(t, err)
	// No idle connections: every statement gets a freshly opened one.
	sqlDB.SetMaxIdleConns(0)

	for i := 0; i < 3; i++ {
		var on int
		require.NoError(t, s.DB().Raw("PRAGMA foreign_keys").Scan(&on).Error)
		require.Equal(t, 1, on)
	}

	require.Equal(t, "data/shop.db?_foreign_keys=1", withForeignKeys("data/shop.db"))
	require.Equal(t, "file:x?mode=memory&_foreign_keys=1", withForeignKeys("file:x?mode=memory"))
	require.Equal(t, "shop.db?_fk=0", withForeignKeys("shop.db?_fk=0"))
}

func TestDBWaitsForRestore(t *testing.T) {
	s := memoryStore(t)

	s.restoring.Lock()
	got := make(chan struct{})
	go func() {
		_ = s.DB()
		close(got)
	}()

	select {
	case <-got:
		t.Fatal("DB returned while a restore was running")
	case <-time.After(50 * time.Millisecond):
	}

	s.restoring.Unlock()
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("DB still blocked after the restore finished")
	}
}
