package config

import (
	"context"
	"testing"

	"github.com/iamramakanthreddyk/fuelsync-new-sub006/appctx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type guardedRow struct {
	ID        int `gorm:"primary_key"`
	StationId int
	Label     string
}

type unguardedRow struct {
	ID    int `gorm:"primary_key"`
	Label string
}

func openGuardedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.Use(NewTenantGuardPlugin()); err != nil {
		t.Fatalf("install tenant guard: %v", err)
	}
	if err := db.AutoMigrate(&guardedRow{}, &unguardedRow{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	rows := []guardedRow{{StationId: 1, Label: "a"}, {StationId: 1, Label: "b"}, {StationId: 2, Label: "c"}}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := db.Create(&unguardedRow{Label: "plain"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func countRows(t *testing.T, db *gorm.DB, ctx context.Context, model any, where ...any) int64 {
	t.Helper()
	q := db.WithContext(ctx).Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestTenantGuard(t *testing.T) {
	db := openGuardedDB(t)
	pinned := context.WithValue(context.Background(), appctx.ContextKeyStationId, 1)

	if n := countRows(t, db, context.Background(), &guardedRow{}); n != 3 {
		t.Fatalf("unpinned requests see everything, got %d", n)
	}
	if n := countRows(t, db, pinned, &guardedRow{}); n != 2 {
		t.Fatalf("pinned request sees its station only, got %d", n)
	}
	if n := countRows(t, db, pinned, &guardedRow{}, "station_id = ?", 2); n != 1 {
		t.Fatalf("explicit station filter is left alone, got %d", n)
	}
	if n := countRows(t, db, pinned, &unguardedRow{}); n != 1 {
		t.Fatalf("tables without station_id are not scoped, got %d", n)
	}

	admin := context.WithValue(pinned, appctx.ContextKeyIsAdmin, true)
	if n := countRows(t, db, admin, &guardedRow{}); n != 3 {
		t.Fatalf("admin requests are not scoped, got %d", n)
	}
	skip := context.WithValue(pinned, appctx.ContextKeySkipTenantScope, true)
	if n := countRows(t, db, skip, &guardedRow{}); n != 3 {
		t.Fatalf("skip flag disables scoping, got %d", n)
	}

	// updates are scoped too
	res := db.WithContext(pinned).Model(&guardedRow{}).Where("label = ?", "c").Update("label", "moved")
	if res.Error != nil {
		t.Fatalf("update: %v", res.Error)
	}
	if res.RowsAffected != 0 {
		t.Fatalf("pinned update must not touch another station, affected %d", res.RowsAffected)
	}
}
