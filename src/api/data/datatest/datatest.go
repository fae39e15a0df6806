// Package datatest opens throwaway SQLite databases for package tests.
package datatest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stake-plus/getfunded/src/api/data"
	"gorm.io/gorm"
)

var seq atomic.Int64

// NewDB returns a migrated in-memory database private to the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("sqlite://file:%s_%d?mode=memory&cache=shared&_busy_timeout=5000", name, seq.Add(1))
	db, err := data.Connect(dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := data.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewStore wraps NewDB in a data.Store.
func NewStore(t testing.TB) *data.Store {
	t.Helper()
	return data.NewStore(NewDB(t))
}
