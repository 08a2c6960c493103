package models

import (
	"encoding/json"
	"errors"
)

type UserRole string

const (
	UserRoleSuperAdmin UserRole = "super_admin"
	UserRoleOwner      UserRole = "owner"
	UserRoleManager    UserRole = "manager"
	UserRoleEmployee   UserRole = "employee"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleSuperAdmin, UserRoleOwner, UserRoleManager, UserRoleEmployee:
		return true
	}
	return false
}

// StationBound reports whether the role is pinned to a single assigned station.
func (r UserRole) StationBound() bool {
	switch r {
	case UserRoleManager, UserRoleEmployee:
		return true
	case UserRoleSuperAdmin, UserRoleOwner:
		return false
	}
	return false
}

// convert input to enum type
func (r *UserRole) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("user role must be string")
	}
	if !UserRole(str).Valid() {
		return errors.New("invalid user role")
	}
	*r = UserRole(str)
	return nil
}

// HandoverType is a stage of the cash chain. The declaration order is the chain order.
type HandoverType string

const (
	HandoverTypeShiftCollection   HandoverType = "shift_collection"
	HandoverTypeEmployeeToManager HandoverType = "employee_to_manager"
	HandoverTypeManagerToOwner    HandoverType = "manager_to_owner"
	HandoverTypeDepositToBank     HandoverType = "deposit_to_bank"
)

var HandoverTypes = []HandoverType{
	HandoverTypeShiftCollection,
	HandoverTypeEmployeeToManager,
	HandoverTypeManagerToOwner,
	HandoverTypeDepositToBank,
}

func (t HandoverType) Valid() bool {
	switch t {
	case HandoverTypeShiftCollection, HandoverTypeEmployeeToManager,
		HandoverTypeManagerToOwner, HandoverTypeDepositToBank:
		return true
	}
	return false
}

// Predecessor returns the stage a record of type t chains from.
// The first stage has none.
func (t HandoverType) Predecessor() (HandoverType, bool) {
	switch t {
	case HandoverTypeShiftCollection:
		return "", false
	case HandoverTypeEmployeeToManager:
		return HandoverTypeShiftCollection, true
	case HandoverTypeManagerToOwner:
		return HandoverTypeEmployeeToManager, true
	case HandoverTypeDepositToBank:
		return HandoverTypeManagerToOwner, true
	}
	return "", false
}

func (t *HandoverType) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("handover type must be string")
	}
	if !HandoverType(str).Valid() {
		return errors.New("invalid handover type")
	}
	*t = HandoverType(str)
	return nil
}

type HandoverStatus string

const (
	HandoverStatusPending   HandoverStatus = "pending"
	HandoverStatusConfirmed HandoverStatus = "confirmed"
	HandoverStatusDisputed  HandoverStatus = "disputed"
	HandoverStatusResolved  HandoverStatus = "resolved"
)

var HandoverStatuses = []HandoverStatus{
	HandoverStatusPending,
	HandoverStatusConfirmed,
	HandoverStatusDisputed,
	HandoverStatusResolved,
}

func (s HandoverStatus) Valid() bool {
	switch s {
	case HandoverStatusPending, HandoverStatusConfirmed, HandoverStatusDisputed, HandoverStatusResolved:
		return true
	}
	return false
}

// Settled reports whether cash in this status has reached its recipient and may feed the next stage.
func (s HandoverStatus) Settled() bool {
	switch s {
	case HandoverStatusConfirmed, HandoverStatusResolved:
		return true
	case HandoverStatusPending, HandoverStatusDisputed:
		return false
	}
	return false
}

func (s *HandoverStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("handover status must be string")
	}
	if !HandoverStatus(str).Valid() {
		return errors.New("invalid handover status")
	}
	*s = HandoverStatus(str)
	return nil
}
