// seed-admin creates or updates the platform super admin. Super admins can
// reach every station and settle any handover.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
//
// Optional: SEED_ADMIN_EMAIL, SEED_ADMIN_PASSWORD, SEED_ADMIN_NAME.
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
	defaultAdminEmail = "admin@fuelsync.local"
	defaultAdminName  = "FuelSync Admin"
)

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

	password := strings.TrimSpace(os.Getenv("SEED_ADMIN_PASSWORD"))
	if len(password) < 8 {
		fmt.Fprintln(os.Stderr, "SEED_ADMIN_PASSWORD must be set to at least 8 characters.")
		os.Exit(2)
	}
	email := strings.ToLower(envOr("SEED_ADMIN_EMAIL", defaultAdminEmail))
	name := envOr("SEED_ADMIN_NAME", defaultAdminName)

	ctx = utils.SetIsAdminInContext(ctx, true)
	ctx = utils.SetSkipTenantScopeInContext(ctx)

	var existing models.User
	err := db.WithContext(ctx).Where("email = ?", email).Take(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		u, err := models.CreateUser(ctx, db, &models.NewUser{
			Name:     name,
			Email:    email,
			Password: password,
			Role:     models.UserRoleSuperAdmin,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created super admin: id=%d email=%q\n", u.ID, u.Email)
		return
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	// Promote in place; station assignment is meaningless for a super admin.
	if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", existing.ID).Updates(map[string]any{
		"password":   string(hashed),
		"name":       name,
		"is_active":  true,
		"role":       models.UserRoleSuperAdmin,
		"station_id": nil,
		"manager_id": nil,
	}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
		os.Exit(1)
	}
	if err := existing.RemoveInstanceRedis(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to evict cached user %d: %v\n", existing.ID, err)
	}
	fmt.Printf("Updated super admin: id=%d email=%q\n", existing.ID, email)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
