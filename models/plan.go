package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Plan struct {
	ID                int       `gorm:"primary_key" json:"id"`
	Name              string    `gorm:"size:50;not null;uniqueIndex" json:"name"`
	MaxStations       int       `gorm:"not null;default:1" json:"max_stations"`
	AllowReportExport bool      `gorm:"not null;default:false" json:"allow_report_export"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FreePlan applies to owners without a plan row.
var FreePlan = Plan{Name: "free", MaxStations: 1}

// GetPlan returns the plan of the given owner.
func GetPlan(ctx context.Context, db *gorm.DB, ownerId int) (*Plan, error) {
	owner, err := GetUser(ctx, db, ownerId)
	if err != nil {
		return nil, err
	}
	if owner.PlanId == nil {
		plan := FreePlan
		return &plan, nil
	}
	var plan Plan
	if err := db.WithContext(ctx).Where("id = ?", *owner.PlanId).Take(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			plan = FreePlan
			return &plan, nil
		}
		return nil, err
	}
	return &plan, nil
}
