package workflow

import (
	"fmt"

	"github.com/iamramakanthreddyk/fuelsync-new-sub006/config"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/models"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/utils"
	"github.com/shopspring/decimal"
)

// withinTolerance reports |diff| <= tolerance.
func withinTolerance(diff, tolerance decimal.Decimal) bool {
	return diff.Abs().LessThanOrEqual(tolerance)
}

// confirmOutcome decides the status a pending record moves to when actual is counted.
func confirmOutcome(expected, actual, tolerance decimal.Decimal) (models.HandoverStatus, decimal.Decimal) {
	diff := utils.RoundMoney(actual.Sub(expected))
	if withinTolerance(diff, tolerance) {
		return models.HandoverStatusConfirmed, diff
	}
	return models.HandoverStatusDisputed, diff
}

// recipientFor derives toUserId. Callers never supply it.
func recipientFor(t models.HandoverType, actor, fromUser *models.User, station *models.Station) int {
	switch t {
	case models.HandoverTypeShiftCollection:
		return fromUser.ID
	case models.HandoverTypeEmployeeToManager:
		if fromUser.ManagerId != nil && *fromUser.ManagerId > 0 {
			return *fromUser.ManagerId
		}
		return actor.ID
	case models.HandoverTypeManagerToOwner:
		return station.OwnerId
	case models.HandoverTypeDepositToBank:
		return fromUser.ID
	}
	return fromUser.ID
}

// checkSender verifies fromUser may hand over cash of type t at station.
func checkSender(t models.HandoverType, fromUser *models.User, station *models.Station) error {
	if !fromUser.Active() {
		return fmt.Errorf("%w: user %d is inactive", utils.ErrValidation, fromUser.ID)
	}
	switch t {
	case models.HandoverTypeShiftCollection, models.HandoverTypeEmployeeToManager:
		if !fromUser.AssignedTo(station.ID) {
			return fmt.Errorf("%w: user %d is not assigned to station %d", utils.ErrValidation, fromUser.ID, station.ID)
		}
	case models.HandoverTypeManagerToOwner:
		if fromUser.Role != models.UserRoleManager || !fromUser.AssignedTo(station.ID) {
			return fmt.Errorf("%w: user %d is not a manager of station %d", utils.ErrValidation, fromUser.ID, station.ID)
		}
	case models.HandoverTypeDepositToBank:
		if fromUser.ID != station.OwnerId && fromUser.Role != models.UserRoleSuperAdmin {
			return fmt.Errorf("%w: only the station owner deposits to bank", utils.ErrValidation)
		}
	}
	return nil
}

// chainScope is the predecessor query for a new record of type t.
// Employee handovers chain only from the same employee's shift collections.
func chainScope(t models.HandoverType, stationId int, fromUser *models.User) (models.ChainQuery, bool) {
	pred, ok := t.Predecessor()
	if !ok {
		return models.ChainQuery{}, false
	}
	q := models.ChainQuery{StationId: stationId, Type: pred}
	switch t {
	case models.HandoverTypeEmployeeToManager:
		id := fromUser.ID
		q.FromUserId = &id
	case models.HandoverTypeShiftCollection, models.HandoverTypeManagerToOwner, models.HandoverTypeDepositToBank:
	}
	return q, true
}

// sequenceViolation names the newest settled predecessor when one exists, so the
// caller can tell "nothing to hand over" from "already handed over".
func sequenceViolation(t models.HandoverType, missing models.HandoverType, latest *models.CashHandover) error {
	if latest != nil {
		return fmt.Errorf("%w: %s requires a confirmed %s that is not yet handed over; latest %s #%d is already handed over",
			utils.ErrSequenceViolation, t, missing, missing, latest.ID)
	}
	return fmt.Errorf("%w: %s requires a confirmed %s that is not yet handed over", utils.ErrSequenceViolation, t, missing)
}

// maxAmount is the first value a decimal(20,2) column cannot hold.
var maxAmount = decimal.New(1, 18)

// validateAmount rounds a caller-supplied amount and rejects negatives and
// values beyond the column precision.
func validateAmount(field string, d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s must not be negative", utils.ErrValidation, field)
	}
	rounded := utils.RoundMoney(d)
	if rounded.GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, fmt.Errorf("%w: %s must be less than %s", utils.ErrValidation, field, maxAmount.String())
	}
	return rounded, nil
}

func allowsFirstCycle(settings config.Settings, t models.HandoverType) bool {
	return settings.SequenceMode == config.SequenceModePermissive && t == models.HandoverTypeEmployeeToManager
}
