// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/3bube/Dormhub-sub000/config"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory sqlite database private to t. Logging
// is routed to t at warn level and above.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	log.Logger = zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.WarnLevel)

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", name)
	db, err := config.Open(sqlite.Open(dsn), "silent")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		log.Logger = zerolog.Nop()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
