package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iamramakanthreddyk/fuelsync-new-sub006/config"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/utils"
	"gorm.io/gorm"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      UserRole  `gorm:"size:20;not null;index" json:"role"`
	StationId *int      `gorm:"index" json:"station_id"`
	ManagerId *int      `json:"manager_id"`
	PlanId    *int      `json:"plan_id"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name      string   `json:"name" binding:"required"`
	Email     string   `json:"email" binding:"required,email"`
	Phone     string   `json:"phone"`
	Password  string   `json:"password" binding:"required,min=8"`
	Role      UserRole `json:"role" binding:"required"`
	StationId *int     `json:"station_id"`
	ManagerId *int     `json:"manager_id"`
	PlanId    *int     `json:"plan_id"`
}

/*
caches:
	UserById:$id
*/

func userCacheKey(id int) string {
	return fmt.Sprintf("UserById:%d", id)
}

func (user User) RemoveInstanceRedis() error {
	return config.RemoveRedisKey(userCacheKey(user.ID))
}

func (user User) Active() bool {
	return user.IsActive == nil || *user.IsActive
}

// AssignedTo reports whether a station-bound user works at stationId.
func (user User) AssignedTo(stationId int) bool {
	return user.StationId != nil && *user.StationId == stationId
}

type LoginInfo struct {
	Token     string   `json:"token"`
	UserId    int      `json:"user_id"`
	Name      string   `json:"name"`
	Role      UserRole `json:"role"`
	StationId *int     `json:"station_id,omitempty"`
}

// GetUser loads a user by id, served from redis when cached.
func GetUser(ctx context.Context, db *gorm.DB, id int) (*User, error) {
	var user User
	exists, err := config.GetRedisObject(userCacheKey(id), &user)
	if err != nil {
		return nil, err
	}
	if exists {
		return &user, nil
	}
	loaded, err := LoadUser(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if err := config.SetRedisObject(userCacheKey(id), loaded, utils.GetCacheLifespan()); err != nil {
		config.LogError(config.GetLogger(), "models", "GetUser", "cache user", id, err)
	}
	return loaded, nil
}

// LoadUser reads the user row without consulting the cache. Writes that
// authorize against is_active or station_id use it inside their transaction.
func LoadUser(ctx context.Context, db *gorm.DB, id int) (*User, error) {
	var user User
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", utils.ErrNotFound, id)
		}
		return nil, err
	}
	return &user, nil
}

func Login(ctx context.Context, db *gorm.DB, email string, password string, lifespan time.Duration) (*LoginInfo, error) {
	var user User
	err := db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", utils.ErrUnauthenticated)
		}
		return nil, err
	}

	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", utils.ErrUnauthenticated)
	}
	if !user.Active() {
		return nil, fmt.Errorf("%w: user is disabled", utils.ErrUnauthenticated)
	}

	token, err := utils.JwtGenerate(user.ID, string(user.Role), lifespan)
	if err != nil {
		return nil, err
	}
	return &LoginInfo{
		Token:     token,
		UserId:    user.ID,
		Name:      user.Name,
		Role:      user.Role,
		StationId: user.StationId,
	}, nil
}

// CreateUser hashes the password and inserts the user. Used by the seed command.
func CreateUser(ctx context.Context, db *gorm.DB, input *NewUser) (*User, error) {
	if !input.Role.Valid() {
		return nil, fmt.Errorf("%w: invalid role %q", utils.ErrValidation, input.Role)
	}
	if input.Role.StationBound() && input.StationId == nil {
		return nil, fmt.Errorf("%w: %s must be assigned to a station", utils.ErrValidation, input.Role)
	}
	if !utils.IsValidEmail(input.Email) {
		return nil, fmt.Errorf("%w: invalid email", utils.ErrValidation)
	}
	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := User{
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:     input.Phone,
		Password:  string(hashed),
		Role:      input.Role,
		StationId: input.StationId,
		ManagerId: input.ManagerId,
		PlanId:    input.PlanId,
		IsActive:  utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		if IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("%w: email %s already registered", utils.ErrConflict, user.Email)
		}
		return nil, err
	}
	return &user, nil
}
