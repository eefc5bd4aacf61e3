package database

import (
	"os"
	"path/filepath"
	"sync"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/priyxstudio/examination/internal/models"
)

var (
	o  sync.Once
	db *gorm.DB
)

// Initialize opens the SQLite database at the given path and stores the
// connection for use through Instance. Calling it more than once is a no-op.
func Initialize(path string) error {
	var err error
	o.Do(func() {
		db, err = Open(path)
	})
	return err
}

// Instance returns the database connection opened by Initialize.
func Instance() *gorm.DB {
	if db == nil {
		panic("database: cannot call Instance() before Initialize()")
	}
	return db
}

// Open creates a new connection to the SQLite database at path and runs the
// schema migrations. The connection pool is limited to a single connection so
// that SQLite never has to arbitrate between concurrent writers.
func Open(path string) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "database: failed to create data directory")
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "database: could not open database file")
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := conn.AutoMigrate(&models.Document{}); err != nil {
		return nil, errors.Wrap(err, "database: failed to migrate schema")
	}

	log.WithField("path", path).Debug("opened document database")
	return conn, nil
}
