package dbutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupDatabase opens a gorm handle for the tree store. Two engines are
// supported: "sqlite://<path>" (or "sqlite=<path>") for single-process
// deployments and tests, and "postgres://..." / "postgres=<dsn>" for
// shared ones.
func SetupDatabase(dburl string, maxConnections int) (*gorm.DB, error) {
	var dial gorm.Dialector
	isSqlite := false

	switch {
	case strings.HasPrefix(dburl, "sqlite://"), strings.HasPrefix(dburl, "sqlite="):
		path := strings.TrimPrefix(strings.TrimPrefix(dburl, "sqlite://"), "sqlite=")
		if !strings.HasPrefix(path, ":memory:") {
			// first boot may point at a directory that does not exist yet
			if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
				return nil, err
			}
		}
		dial = sqlite.Open(path)
		isSqlite = true
	case strings.HasPrefix(dburl, "postgresql://"), strings.HasPrefix(dburl, "postgres://"):
		dial = postgres.Open(dburl)
	case strings.HasPrefix(dburl, "postgres="):
		dial = postgres.Open(strings.TrimPrefix(dburl, "postgres="))
	default:
		return nil, fmt.Errorf("unsupported database URL: %s", dburl)
	}

	db, err := gorm.Open(dial, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 slogGorm.New(),
	})
	if err != nil {
		return nil, err
	}

	sqldb, err := db.DB()
	if err != nil {
		return nil, err
	}

	if isSqlite {
		// every statement of a mutation must share the one sqlite write
		// transaction
		sqldb.SetMaxOpenConns(1)
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL;",
			"PRAGMA synchronous=normal;",
		} {
			if err := db.Exec(pragma).Error; err != nil {
				return nil, err
			}
		}
	} else {
		sqldb.SetMaxIdleConns(80)
		sqldb.SetMaxOpenConns(maxConnections)
		sqldb.SetConnMaxIdleTime(time.Hour)
	}

	return db, nil
}
