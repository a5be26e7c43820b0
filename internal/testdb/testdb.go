// Package testdb opens throwaway in-memory databases for package tests.
package testdb

import (
	"testing"

	"tokopos-backend/internal/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated in-memory database scoped to the test. The pool is
// pinned to one connection: each sqlite :memory: connection is a separate
// database, so a second connection would see empty tables.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(database.Tables...); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}
