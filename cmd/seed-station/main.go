// seed-station provisions a demo station: a plan, its owner, the station, one
// manager and one employee reporting to that manager. Rerunning it resets the
// passwords and assignments of the same users.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-station
//
// Optional: SEED_PASSWORD, SEED_DOMAIN, SEED_STATION_NAME, SEED_PHONE_OWNER,
// SEED_PHONE_MANAGER, SEED_PHONE_EMPLOYEE.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/iamramakanthreddyk/fuelsync-new-sub006/config"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/models"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/utils"
	"gorm.io/gorm"
)

const (
	defaultPassword    = "FuelSync@123"
	defaultDomain      = "fuelsync.local"
	defaultStationName = "Demo Fuel Station"
	seedPlanName       = "pro"
)

type seedUser struct {
	name  string
	email string
	phone string
	role  models.UserRole
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if err := config.ConnectRedisOnce(3 * time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v; cached users expire within CACHE_LIFESPAN\n", err)
	}
	if err := models.AutoMigrateAll(db); err != nil {
		fmt.Fprintf(os.Stderr, "failed to migrate: %v\n", err)
		os.Exit(1)
	}

	// Seeding spans stations; bypass the station scope.
	ctx = utils.SetIsAdminInContext(ctx, true)
	ctx = utils.SetSkipTenantScopeInContext(ctx)

	password := envOr("SEED_PASSWORD", defaultPassword)
	domain := envOr("SEED_DOMAIN", defaultDomain)

	plan, err := upsertPlan(ctx, db)
	exitOn("upsert plan", err)

	owner, err := upsertUser(ctx, db, seedUser{
		name:  "Station Owner",
		email: "owner@" + domain,
		phone: os.Getenv("SEED_PHONE_OWNER"),
		role:  models.UserRoleOwner,
	}, password, nil, nil, &plan.ID)
	exitOn("upsert owner", err)

	station, err := upsertStation(ctx, db, envOr("SEED_STATION_NAME", defaultStationName), owner.ID)
	exitOn("upsert station", err)

	manager, err := upsertUser(ctx, db, seedUser{
		name:  "Station Manager",
		email: "manager@" + domain,
		phone: os.Getenv("SEED_PHONE_MANAGER"),
		role:  models.UserRoleManager,
	}, password, &station.ID, nil, nil)
	exitOn("upsert manager", err)

	employee, err := upsertUser(ctx, db, seedUser{
		name:  "Pump Attendant",
		email: "employee@" + domain,
		phone: os.Getenv("SEED_PHONE_EMPLOYEE"),
		role:  models.UserRoleEmployee,
	}, password, &station.ID, &manager.ID, nil)
	exitOn("upsert employee", err)

	fmt.Printf("Seeded station %q (id=%d) on plan %q\n", station.Name, station.ID, plan.Name)
	for _, u := range []*models.User{owner, manager, employee} {
		fmt.Printf("  %-8s id=%-4d email=%s\n", u.Role, u.ID, u.Email)
	}
}

func upsertPlan(ctx context.Context, db *gorm.DB) (*models.Plan, error) {
	var plan models.Plan
	err := db.WithContext(ctx).Where("name = ?", seedPlanName).Take(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		plan = models.Plan{Name: seedPlanName, MaxStations: 5, AllowReportExport: true}
		return &plan, db.WithContext(ctx).Create(&plan).Error
	}
	if err != nil {
		return nil, err
	}
	return &plan, db.WithContext(ctx).Model(&plan).Updates(map[string]any{
		"max_stations":        5,
		"allow_report_export": true,
	}).Error
}

func upsertStation(ctx context.Context, db *gorm.DB, name string, ownerId int) (*models.Station, error) {
	var station models.Station
	err := db.WithContext(ctx).Where("name = ? AND owner_id = ?", name, ownerId).Take(&station).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		station = models.Station{Name: name, OwnerId: ownerId, IsActive: utils.NewTrue()}
		return &station, db.WithContext(ctx).Create(&station).Error
	}
	return &station, err
}

func upsertUser(ctx context.Context, db *gorm.DB, u seedUser, password string, stationId, managerId, planId *int) (*models.User, error) {
	phone, err := normalizePhone(u.phone)
	if err != nil {
		return nil, fmt.Errorf("%s phone: %w", u.role, err)
	}

	var existing models.User
	err = db.WithContext(ctx).Where("email = ?", u.email).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.CreateUser(ctx, db, &models.NewUser{
			Name:      u.name,
			Email:     u.email,
			Phone:     phone,
			Password:  password,
			Role:      u.role,
			StationId: stationId,
			ManagerId: managerId,
			PlanId:    planId,
		})
	}
	if err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", existing.ID).Updates(map[string]any{
		"name":       u.name,
		"phone":      phone,
		"password":   string(hashed),
		"role":       u.role,
		"station_id": stationId,
		"manager_id": managerId,
		"plan_id":    planId,
		"is_active":  true,
	}).Error; err != nil {
		return nil, err
	}
	if err := existing.RemoveInstanceRedis(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to evict cached user %d: %v\n", existing.ID, err)
	}
	if err := db.WithContext(ctx).Where("id = ?", existing.ID).Take(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// normalizePhone validates a phone number for utils.CountryCode and returns it in E.164.
func normalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}
	if err := utils.ValidatePhoneNumber(phone, utils.CountryCode); err != nil {
		return "", err
	}
	return utils.FormatPhoneNumber(phone, utils.CountryCode)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func exitOn(step string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to %s: %v\n", step, err)
		os.Exit(1)
	}
}
