package database

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// WAL journal, relaxed sync and a 50MB page cache.
const sqliteConnOpts = "_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=cache_size(-50000)"

// NewSQLite opens the embedded assignment database at path, creating its
// directory when needed. An empty path opens a private in-memory database.
func NewSQLite(path string) (*gorm.DB, error) {
	if path == "" {
		return NewSQLiteMemory("assignments")
	}

	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read data dir: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?%s", path, sqliteConnOpts)), gormConfig())
	if err != nil {
		return nil, err
	}
	return db, nil
}

// NewSQLiteMemory opens a named shared-cache in-memory database. Distinct
// names give isolated databases within one process.
func NewSQLiteMemory(name string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// the in-memory database lives only while a connection is open
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	return db, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	}
}
