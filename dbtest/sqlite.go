// Package dbtest opens migrated in-memory SQLite databases and seeds the
// station fixtures shared by package tests.
package dbtest

import (
	"testing"

	"github.com/iamramakanthreddyk/fuelsync-new-sub006/config"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/models"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Password is the plain-text password of every seeded user.
const Password = "Secret#123"

// Open returns an in-memory database with every table migrated and the
// production gorm plugins installed. One connection keeps the database alive
// for the whole test, so transactions from concurrent goroutines queue up.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), config.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	config.InstallPlugins(db)
	if err := models.AutoMigrateAll(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Fixture is one plan, two owners with a station each, and the staff of the first station.
type Fixture struct {
	DB *gorm.DB

	Plan       *models.Plan
	SuperAdmin *models.User
	Owner      *models.User
	Manager    *models.User
	Employee   *models.User
	// Employee2 has no manager; its employee handovers go to the acting user.
	Employee2 *models.User
	Station   *models.Station

	OtherOwner   *models.User
	OtherStation *models.Station
	OtherManager *models.User
}

func Seed(t testing.TB, db *gorm.DB) *Fixture {
	t.Helper()
	hashed, err := utils.HashPassword(Password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	f := &Fixture{DB: db}

	f.Plan = &models.Plan{Name: "pro", MaxStations: 5, AllowReportExport: true}
	mustCreate(t, db, f.Plan)

	user := func(name, email string, role models.UserRole, stationId, managerId, planId *int) *models.User {
		u := &models.User{
			Name:      name,
			Email:     email,
			Password:  string(hashed),
			Role:      role,
			StationId: stationId,
			ManagerId: managerId,
			PlanId:    planId,
			IsActive:  utils.NewTrue(),
		}
		mustCreate(t, db, u)
		return u
	}

	f.SuperAdmin = user("Super Admin", "admin@fuelsync.test", models.UserRoleSuperAdmin, nil, nil, nil)
	f.Owner = user("Owner", "owner@fuelsync.test", models.UserRoleOwner, nil, nil, &f.Plan.ID)
	f.OtherOwner = user("Other Owner", "other-owner@fuelsync.test", models.UserRoleOwner, nil, nil, nil)

	f.Station = &models.Station{Name: "Highway 7", OwnerId: f.Owner.ID, IsActive: utils.NewTrue()}
	mustCreate(t, db, f.Station)
	f.OtherStation = &models.Station{Name: "Ring Road", OwnerId: f.OtherOwner.ID, IsActive: utils.NewTrue()}
	mustCreate(t, db, f.OtherStation)

	f.Manager = user("Manager", "manager@fuelsync.test", models.UserRoleManager, &f.Station.ID, nil, nil)
	f.Employee = user("Employee", "employee@fuelsync.test", models.UserRoleEmployee, &f.Station.ID, &f.Manager.ID, nil)
	f.Employee2 = user("Employee Two", "employee2@fuelsync.test", models.UserRoleEmployee, &f.Station.ID, nil, nil)
	f.OtherManager = user("Other Manager", "other-manager@fuelsync.test", models.UserRoleManager, &f.OtherStation.ID, nil, nil)
	return f
}

func mustCreate(t testing.TB, db *gorm.DB, value any) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}
