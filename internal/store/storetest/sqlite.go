// Package storetest opens throwaway SQLite stores with the canvas schema.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"realtime-canvas/internal/database"
	"realtime-canvas/internal/store"
)

var seq atomic.Int64

// NewDB in-memory SQLite database, migrated and closed with the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// NewGateway gateway over NewDB
func NewGateway(t testing.TB) *store.GormGateway {
	t.Helper()
	return store.New(NewDB(t))
}

// FailingGateway returns err from every call.
type FailingGateway struct {
	Err error
}

func (f FailingGateway) Exec(_ context.Context, _ string, _ ...any) (int64, error) {
	return 0, f.Err
}

func (f FailingGateway) Query(_ context.Context, _ any, _ string, _ ...any) error {
	return f.Err
}

func (f FailingGateway) Transaction(_ context.Context, _ func(tx store.Gateway) error) error {
	return f.Err
}
