package database

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"shop-pos/internal/config"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store owns the database handle. Every service receives it explicitly.
type Store struct {
	cfg config.Config
	out io.Writer

	// mu serializes the multi-statement writers (transactions, backup, restore).
	mu sync.Mutex
	// restoring is write-held while Restore swaps the file; DB waits on it.
	restoring sync.RWMutex
	db        atomic.Pointer[gorm.DB]
}

// Open connects using cfg.DBDriver and cfg.DBDSN. logOut receives gorm's SQL
// warnings and errors; nil means stderr.
func Open(cfg config.Config, logOut io.Writer) (*Store, error) {
	if logOut == nil {
		logOut = os.Stderr
	}
	s := &Store{cfg: cfg, out: logOut}
	db, err := s.connect()
	if err != nil {
		return nil, err
	}
	s.db.Store(db)
	return s, nil
}

func (s *Store) connect() (*gorm.DB, error) {
	dialector, err := s.dialector()
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if s.cfg.DBDebug {
		level = logger.Info
	}
	gormCfg := &gorm.Config{
		Logger: logger.New(log.New(s.out, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	}

	attempts := 5
	if s.cfg.DBDriver == "sqlite" {
		attempts = 1 // a local file either opens or it doesn't
	}

	var db *gorm.DB
	for i := 0; i < attempts; i++ {
		db, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			break
		}
		log.Printf("Failed to connect to database. Retrying in 2 seconds... (%d/%d)", i+1, attempts)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", s.cfg.DBDriver, err)
	}

	if s.cfg.DBDriver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// One cashier, one connection.
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func (s *Store) dialector() (gorm.Dialector, error) {
	dsn := s.cfg.DBDSN
	if dsn == "" {
		return nil, fmt.Errorf("DB_DSN is empty")
	}
	switch s.cfg.DBDriver {
	case "sqlite", "":
		s.cfg.DBDriver = "sqlite"
		if path, ok := sqliteFilePath(dsn); ok {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, err
			}
		}
		return sqlite.Open(withForeignKeys(dsn)), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", s.cfg.DBDriver)
	}
}

// withForeignKeys asks the driver to enable foreign keys on every connection it
// opens, not just the first.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=1"
	}
	return dsn + "?_foreign_keys=1"
}

// sqliteFilePath extracts the on-disk path from a sqlite DSN. In-memory DSNs report false.
func sqliteFilePath(dsn string) (string, bool) {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return "", false
	}
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path, path != ""
}

// DB returns the live handle, waiting while a Restore is in progress. A handle
// fetched before a Restore started is closed by it; fetch a fresh one per request.
func (s *Store) DB() *gorm.DB {
	s.restoring.RLock()
	defer s.restoring.RUnlock()
	return s.db.Load()
}

// Driver reports the configured driver name.
func (s *Store) Driver() string { return s.cfg.DBDriver }

// WithTx runs fn inside one transaction: commit when fn returns nil, rollback on
// error or panic. Only one transaction runs at a time.
func (s *Store) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.DB().WithContext(ctx).Transaction(fn)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.Load().DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
