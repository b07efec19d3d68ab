package database

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/hayat-scans/taskledger/internal/config"
	"github.com/hayat-scans/taskledger/internal/models"
	"github.com/hayat-scans/taskledger/internal/types"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Manager owns the storage handles: one serialized write path and a bounded
// pool of read-only handles. All mutations go through RunWrite/WriteTx; reads
// go through Read and queue inside database/sql when the pool is exhausted.
type Manager struct {
	write *gorm.DB
	read  *gorm.DB
	mu    sync.Mutex
	cfg   *config.Config
}

// Open establishes the write and read connections based on the configured
// database type. Any failure here is fatal: the ledger cannot start without
// its store.
func Open(cfg *config.Config) (*Manager, error) {
	const op = "database.Open"

	gormCfg := func() *gorm.Config {
		return &gorm.Config{
			TranslateError: true,
			Logger: logger.New(
				log.New(os.Stdout, "\r\n", log.LstdFlags),
				logger.Config{
					SlowThreshold:             time.Second,
					LogLevel:                  logger.Warn,
					IgnoreRecordNotFoundError: true,
					Colorful:                  false,
				},
			),
		}
	}

	m := &Manager{cfg: cfg}

	switch cfg.DBType {
	case "sqlite":
		writeDSN := cfg.DBPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
		write, err := gorm.Open(sqlite.Open(writeDSN), gormCfg())
		if err != nil {
			return nil, types.Wrap(types.KindFatal, op, "failed to open sqlite write handle", err)
		}
		if err := limitConns(write, 1); err != nil {
			return nil, types.Wrap(types.KindFatal, op, "failed to configure write handle", err)
		}
		m.write = write

		if strings.Contains(cfg.DBPath, ":memory:") {
			// A second connection to :memory: would be a different database.
			// Reads share the single write handle and serialize with it.
			m.read = write
			break
		}

		readDSN := cfg.DBPath + "?_pragma=busy_timeout(5000)&_pragma=query_only(1)"
		read, err := gorm.Open(sqlite.Open(readDSN), gormCfg())
		if err != nil {
			return nil, types.Wrap(types.KindFatal, op, "failed to open sqlite read pool", err)
		}
		if err := limitConns(read, cfg.ReadPool); err != nil {
			return nil, types.Wrap(types.KindFatal, op, "failed to configure read pool", err)
		}
		m.read = read

	case "postgres", "postgresql":
		write, err := gorm.Open(postgres.Open(cfg.DBDSN), gormCfg())
		if err != nil {
			return nil, types.Wrap(types.KindFatal, op, "failed to open postgres write handle", err)
		}
		if err := limitConns(write, 1); err != nil {
			return nil, types.Wrap(types.KindFatal, op, "failed to configure write handle", err)
		}
		m.write = write

		read, err := gorm.Open(postgres.Open(cfg.DBDSN), gormCfg())
		if err != nil {
			return nil, types.Wrap(types.KindFatal, op, "failed to open postgres read pool", err)
		}
		if err := limitConns(read, cfg.ReadPool); err != nil {
			return nil, types.Wrap(types.KindFatal, op, "failed to configure read pool", err)
		}
		m.read = read

	default:
		return nil, types.E(types.KindFatal, op, fmt.Sprintf("unsupported database type: %s", cfg.DBType))
	}

	log.Printf("Connected to %s database (read pool: %d)", cfg.DBType, cfg.ReadPool)

	return m, nil
}

func limitConns(db *gorm.DB, n int) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(n)
	sqlDB.SetMaxIdleConns(n)
	return nil
}

// RunWrite executes fn with exclusive ownership of the write handle. Busy
// conditions retry with bounded exponential backoff before surfacing as a
// transient error.
func (m *Manager) RunWrite(fn func(db *gorm.DB) error) error {
	const op = "database.RunWrite"

	m.mu.Lock()
	defer m.mu.Unlock()

	backoff := 10 * time.Millisecond
	var err error
	for attempt := 0; attempt < m.cfg.BusyRetries; attempt++ {
		err = fn(m.write)
		if err == nil || !isBusy(err) {
			return err
		}
		log.Printf("database: busy on write (attempt %d/%d), backing off %v", attempt+1, m.cfg.BusyRetries, backoff)
		time.Sleep(backoff)
		backoff *= 2
	}
	return types.Wrap(types.KindTransient, op, "storage busy after retries", err)
}

// WriteTx runs fn as a single transaction on the write path. The transaction
// holds the write path for its entire critical section; any error rolls the
// whole unit back.
func (m *Manager) WriteTx(fn func(tx *gorm.DB) error) error {
	return m.RunWrite(func(db *gorm.DB) error {
		return db.Transaction(fn)
	})
}

// Read returns the read-only handle pool. Callers block inside database/sql
// when all pooled connections are in use.
func (m *Manager) Read() *gorm.DB {
	return m.read
}

// Migrate creates all tables and indexes if absent. Safe to invoke on every
// startup. AutoMigrate cannot express the partial uniqueness index that
// enforces "at most one non-terminal task per (user, work, chapter)", so it
// is created with raw DDL afterwards; the same statement is valid on sqlite
// and postgres.
func (m *Manager) Migrate() error {
	const op = "database.Migrate"

	err := m.RunWrite(func(db *gorm.DB) error {
		if err := db.AutoMigrate(
			&models.User{},
			&models.Work{},
			&models.Task{},
			&models.Chapter{},
			&models.LogEntry{},
			&models.Admin{},
			&models.Setting{},
		); err != nil {
			return err
		}
		return db.Exec(
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_active
			 ON tasks(user_id, work, chapter)
			 WHERE status IN ('pending','submitted')`,
		).Error
	})
	if err != nil {
		return types.Wrap(types.KindFatal, op, "schema migration failed", err)
	}
	return nil
}

// Ping verifies both handles are reachable.
func (m *Manager) Ping() error {
	const op = "database.Ping"

	for _, db := range []*gorm.DB{m.write, m.read} {
		sqlDB, err := db.DB()
		if err != nil {
			return types.Wrap(types.KindFatal, op, "failed to get underlying SQL DB", err)
		}
		if err := sqlDB.Ping(); err != nil {
			return types.Wrap(types.KindTransient, op, "database unreachable", err)
		}
	}
	return nil
}

// Close closes both handles.
func (m *Manager) Close() error {
	var firstErr error
	seen := map[*gorm.DB]bool{}
	for _, db := range []*gorm.DB{m.read, m.write} {
		if db == nil || seen[db] {
			continue
		}
		seen[db] = true
		sqlDB, err := db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := sqlDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// isBusy recognizes lock/busy contention across the supported engines.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not obtain lock")
}
