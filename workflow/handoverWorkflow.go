package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/config"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/models"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("fuelsync/handover")

const auditEntityType = "cash_handover"

// HandoverLedger runs the cash handover state machine. Each operation is one
// database transaction; an error or a cancelled context rolls all of it back.
type HandoverLedger struct {
	DB       *gorm.DB
	Settings config.Settings
	Auditor  Auditor
	Logger   *logrus.Logger
	Locker   *redislock.Client
	Now      func() time.Time
}

func NewHandoverLedger(db *gorm.DB, settings config.Settings, auditor Auditor, logger *logrus.Logger, locker *redislock.Client) *HandoverLedger {
	if auditor == nil {
		auditor = LogAuditor{Logger: logger}
	}
	return &HandoverLedger{
		DB:       db,
		Settings: settings,
		Auditor:  auditor,
		Logger:   logger,
		Locker:   locker,
		Now:      time.Now,
	}
}

type NewHandover struct {
	StationId      int                 `json:"station_id" binding:"required,gt=0"`
	HandoverType   models.HandoverType `json:"handover_type" binding:"required"`
	HandoverDate   string              `json:"handover_date" binding:"required"`
	FromUserId     int                 `json:"from_user_id" binding:"required,gt=0"`
	ExpectedAmount *decimal.Decimal    `json:"expected_amount" binding:"omitempty,money"`
	Notes          string              `json:"notes"`
}

type ConfirmHandover struct {
	ActualAmount *decimal.Decimal `json:"actual_amount" binding:"omitempty,money"`
	AcceptAsIs   bool             `json:"accept_as_is"`
	Notes        string           `json:"notes"`
}

type ResolveHandover struct {
	ResolutionNotes string `json:"resolution_notes" binding:"required"`
}

type NewBankDeposit struct {
	StationId         int              `json:"station_id" binding:"required,gt=0"`
	Amount            *decimal.Decimal `json:"amount" binding:"required,money"`
	HandoverDate      string           `json:"handover_date" binding:"required"`
	BankName          string           `json:"bank_name" binding:"required"`
	DepositReference  string           `json:"deposit_reference"`
	DepositReceiptUrl string           `json:"deposit_receipt_url"`
	Notes             string           `json:"notes"`
}

func (l *HandoverLedger) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

// Create records a new handover at the next stage of a station's chain.
func (l *HandoverLedger) Create(ctx context.Context, actor *models.User, input NewHandover) (result *models.CashHandover, err error) {
	ctx, span := tracer.Start(ctx, "HandoverLedger.Create", trace.WithAttributes(
		attribute.Int("station_id", input.StationId),
		attribute.String("handover_type", string(input.HandoverType)),
	))
	defer func() { endSpan(span, err) }()
	defer func() {
		l.audit(ctx, actor, "handover.create", input.StationId, nil, result, err,
			fmt.Sprintf("%s handover from user %d", input.HandoverType, input.FromUserId))
	}()

	if !models.CanInitiateHandover(actor.Role) {
		return nil, fmt.Errorf("%w: %s cannot create handovers", utils.ErrUnauthorized, actor.Role)
	}
	if !input.HandoverType.Valid() {
		return nil, fmt.Errorf("%w: invalid handover type %q", utils.ErrValidation, input.HandoverType)
	}
	if input.HandoverType == models.HandoverTypeDepositToBank && !models.CanSettleHandover(actor.Role) {
		return nil, fmt.Errorf("%w: only owners record bank deposits", utils.ErrUnauthorized)
	}
	if input.StationId <= 0 || input.FromUserId <= 0 {
		return nil, fmt.Errorf("%w: station_id and from_user_id are required", utils.ErrValidation)
	}
	handoverDate, err := utils.ParseBusinessDate(input.HandoverDate)
	if err != nil {
		return nil, err
	}
	var supplied *decimal.Decimal
	if input.ExpectedAmount != nil {
		amount, err := validateAmount("expected_amount", *input.ExpectedAmount)
		if err != nil {
			return nil, err
		}
		supplied = &amount
	}

	release := l.acquireChainLock(ctx, input.StationId, input.HandoverType)
	defer release()

	var record models.CashHandover
	err = l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		station, err := models.LockStation(ctx, tx, input.StationId)
		if err != nil {
			return err
		}
		if !models.CanAccessStation(actor, station) {
			return fmt.Errorf("%w: no access to station %d", utils.ErrUnauthorized, station.ID)
		}
		fromUser, err := models.LoadUser(ctx, tx, input.FromUserId)
		if err != nil {
			if errors.Is(err, utils.ErrNotFound) {
				return fmt.Errorf("%w: from_user_id %d does not exist", utils.ErrValidation, input.FromUserId)
			}
			return err
		}
		if err := checkSender(input.HandoverType, fromUser, station); err != nil {
			return err
		}

		preds, err := l.predecessorsFor(ctx, tx, input.HandoverType, station.ID, fromUser, supplied != nil)
		if err != nil {
			return err
		}

		expected := models.SumSettled(preds)
		if supplied != nil {
			if input.HandoverType == models.HandoverTypeDepositToBank && !withinTolerance(supplied.Sub(expected), l.Settings.DepositTolerance) {
				return fmt.Errorf("%w: deposit amount %s differs from handed over amount %s", utils.ErrAmountMismatch, supplied.StringFixed(2), expected.StringFixed(2))
			}
			expected = *supplied
		}

		record = models.CashHandover{
			StationId:      station.ID,
			HandoverType:   input.HandoverType,
			HandoverDate:   handoverDate,
			FromUserId:     fromUser.ID,
			ToUserId:       recipientFor(input.HandoverType, actor, fromUser, station),
			ExpectedAmount: expected,
			Status:         models.HandoverStatusPending,
			Notes:          utils.NullableString(input.Notes),
			CreatedBy:      actor.ID,
		}
		if len(preds) > 0 {
			prev := preds[0].ID
			record.PreviousHandoverId = &prev
		}
		if input.HandoverType == models.HandoverTypeDepositToBank {
			l.selfAttest(&record, actor)
		}

		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return models.ConsumePredecessors(ctx, tx, &record, preds)
	})
	if err != nil {
		return nil, l.internal("Create", input, err)
	}
	return &record, nil
}

// predecessorsFor returns the unconsumed settled records a new record of type t
// links to, newest first. Empty only for the first stage or a permitted first cycle.
func (l *HandoverLedger) predecessorsFor(ctx context.Context, tx *gorm.DB, t models.HandoverType, stationId int, fromUser *models.User, amountSupplied bool) ([]models.CashHandover, error) {
	q, chained := chainScope(t, stationId, fromUser)
	if !chained {
		if !amountSupplied {
			return nil, fmt.Errorf("%w: expected_amount is required for %s", utils.ErrValidation, t)
		}
		return nil, nil
	}

	preds, err := models.UnconsumedPredecessors(ctx, tx, q)
	if err != nil {
		return nil, err
	}
	if len(preds) > 0 {
		return preds, nil
	}

	if allowsFirstCycle(l.Settings, t) {
		started, err := models.AnyRecorded(ctx, tx, q)
		if err != nil {
			return nil, err
		}
		if !started {
			if !amountSupplied {
				return nil, fmt.Errorf("%w: expected_amount is required when no %s exists", utils.ErrValidation, q.Type)
			}
			return nil, nil
		}
	}
	latest, err := models.LatestSettled(ctx, tx, q)
	if err != nil {
		return nil, err
	}
	return nil, sequenceViolation(t, q.Type, latest)
}

func (l *HandoverLedger) selfAttest(record *models.CashHandover, actor *models.User) {
	now := l.now()
	actual := record.ExpectedAmount
	zero := decimal.Zero
	record.ActualAmount = &actual
	record.Difference = &zero
	record.Status = models.HandoverStatusConfirmed
	record.ConfirmedAt = &now
	record.ConfirmedBy = &actor.ID
}

// Confirm counts the cash of a pending handover. A difference beyond the
// dispute tolerance moves it to disputed instead of confirmed.
func (l *HandoverLedger) Confirm(ctx context.Context, actor *models.User, handoverId int, input ConfirmHandover) (result *models.CashHandover, err error) {
	ctx, span := tracer.Start(ctx, "HandoverLedger.Confirm", trace.WithAttributes(attribute.Int("handover_id", handoverId)))
	defer func() { endSpan(span, err) }()

	var before models.CashHandover
	defer func() {
		l.audit(ctx, actor, "handover.confirm", before.StationId, &before, result, err,
			fmt.Sprintf("confirm handover %d", handoverId))
	}()

	var actualInput *decimal.Decimal
	if !input.AcceptAsIs {
		if input.ActualAmount == nil {
			return nil, fmt.Errorf("%w: actual_amount is required unless accept_as_is is set", utils.ErrMissingAmount)
		}
		amount, err := validateAmount("actual_amount", *input.ActualAmount)
		if err != nil {
			return nil, err
		}
		actualInput = &amount
	}

	var record models.CashHandover
	err = l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := models.LockHandover(ctx, tx, handoverId)
		if err != nil {
			return err
		}
		before = *current
		if err := l.authorizeRecord(ctx, tx, actor, current); err != nil {
			return err
		}
		if current.ToUserId != actor.ID && !models.CanSettleHandover(actor.Role) {
			return fmt.Errorf("%w: handover %d is addressed to another user", utils.ErrUnauthorized, current.ID)
		}
		if current.Status != models.HandoverStatusPending {
			return fmt.Errorf("%w: handover %d is %s, not pending", utils.ErrInvalidState, current.ID, current.Status)
		}

		actual := current.ExpectedAmount
		if actualInput != nil {
			actual = *actualInput
		}
		status, diff := confirmOutcome(current.ExpectedAmount, actual, l.Settings.DisputeTolerance)

		updates := map[string]interface{}{
			"status":             status,
			"actual_amount":      actual,
			"difference":         diff,
			"confirmation_notes": utils.NullableString(input.Notes),
		}
		if status == models.HandoverStatusConfirmed {
			updates["confirmed_at"] = l.now()
			updates["confirmed_by"] = actor.ID
		}
		res := tx.Model(&models.CashHandover{}).
			Where("id = ? AND status = ?", current.ID, models.HandoverStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("%w: handover %d is no longer pending", utils.ErrInvalidState, current.ID)
		}
		return tx.Where("id = ?", current.ID).Take(&record).Error
	})
	if err != nil {
		return nil, l.internal("Confirm", handoverId, err)
	}
	return &record, nil
}

// ResolveDispute closes a disputed handover. Amounts stay as counted.
func (l *HandoverLedger) ResolveDispute(ctx context.Context, actor *models.User, handoverId int, input ResolveHandover) (result *models.CashHandover, err error) {
	ctx, span := tracer.Start(ctx, "HandoverLedger.ResolveDispute", trace.WithAttributes(attribute.Int("handover_id", handoverId)))
	defer func() { endSpan(span, err) }()

	var before models.CashHandover
	defer func() {
		l.audit(ctx, actor, "handover.resolve", before.StationId, &before, result, err,
			fmt.Sprintf("resolve disputed handover %d", handoverId))
	}()

	if !models.CanSettleHandover(actor.Role) {
		return nil, fmt.Errorf("%w: %s cannot resolve disputes", utils.ErrUnauthorized, actor.Role)
	}
	notes := strings.TrimSpace(input.ResolutionNotes)
	if notes == "" {
		return nil, fmt.Errorf("%w: resolution_notes is required", utils.ErrValidation)
	}

	var record models.CashHandover
	err = l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := models.LockHandover(ctx, tx, handoverId)
		if err != nil {
			return err
		}
		before = *current
		if err := l.authorizeRecord(ctx, tx, actor, current); err != nil {
			return err
		}
		if current.Status != models.HandoverStatusDisputed {
			return fmt.Errorf("%w: handover %d is %s, not disputed", utils.ErrInvalidState, current.ID, current.Status)
		}
		res := tx.Model(&models.CashHandover{}).
			Where("id = ? AND status = ?", current.ID, models.HandoverStatusDisputed).
			Updates(map[string]interface{}{
				"status":           models.HandoverStatusResolved,
				"resolution_notes": notes,
				"resolved_by":      actor.ID,
				"resolved_at":      l.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("%w: handover %d is no longer disputed", utils.ErrInvalidState, current.ID)
		}
		return tx.Where("id = ?", current.ID).Take(&record).Error
	})
	if err != nil {
		return nil, l.internal("ResolveDispute", handoverId, err)
	}
	return &record, nil
}

// RecordBankDeposit self-attests a deposit. When an owner handover is waiting to be
// banked, the amount must match it within the deposit tolerance and the deposit links to it.
func (l *HandoverLedger) RecordBankDeposit(ctx context.Context, actor *models.User, input NewBankDeposit) (result *models.CashHandover, err error) {
	ctx, span := tracer.Start(ctx, "HandoverLedger.RecordBankDeposit", trace.WithAttributes(attribute.Int("station_id", input.StationId)))
	defer func() { endSpan(span, err) }()
	defer func() {
		l.audit(ctx, actor, "handover.bank_deposit", input.StationId, nil, result, err, "record bank deposit")
	}()

	if !models.CanSettleHandover(actor.Role) {
		return nil, fmt.Errorf("%w: only owners record bank deposits", utils.ErrUnauthorized)
	}
	if input.StationId <= 0 {
		return nil, fmt.Errorf("%w: station_id is required", utils.ErrValidation)
	}
	if input.Amount == nil {
		return nil, fmt.Errorf("%w: amount is required", utils.ErrMissingAmount)
	}
	amount, err := validateAmount("amount", *input.Amount)
	if err != nil {
		return nil, err
	}
	bankName := strings.TrimSpace(input.BankName)
	if bankName == "" {
		return nil, fmt.Errorf("%w: bank_name is required", utils.ErrValidation)
	}
	handoverDate, err := utils.ParseBusinessDate(input.HandoverDate)
	if err != nil {
		return nil, err
	}

	release := l.acquireChainLock(ctx, input.StationId, models.HandoverTypeDepositToBank)
	defer release()

	var record models.CashHandover
	err = l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		station, err := models.LockStation(ctx, tx, input.StationId)
		if err != nil {
			return err
		}
		if !models.CanAccessStation(actor, station) {
			return fmt.Errorf("%w: no access to station %d", utils.ErrUnauthorized, station.ID)
		}

		pending, err := models.UnconsumedPredecessors(ctx, tx, models.ChainQuery{
			StationId: station.ID,
			Type:      models.HandoverTypeManagerToOwner,
		})
		if err != nil {
			return err
		}
		var consumed []models.CashHandover
		if len(pending) > 0 {
			ref := pending[0]
			if !withinTolerance(amount.Sub(ref.SettledAmount()), l.Settings.DepositTolerance) {
				return fmt.Errorf("%w: deposit amount %s differs from manager_to_owner handover %d amount %s by more than %s",
					utils.ErrAmountMismatch, amount.StringFixed(2), ref.ID, ref.SettledAmount().StringFixed(2), l.Settings.DepositTolerance.StringFixed(2))
			}
			consumed = []models.CashHandover{ref}
		}

		record = models.CashHandover{
			StationId:         station.ID,
			HandoverType:      models.HandoverTypeDepositToBank,
			HandoverDate:      handoverDate,
			FromUserId:        actor.ID,
			ToUserId:          actor.ID,
			ExpectedAmount:    amount,
			Notes:             utils.NullableString(input.Notes),
			BankName:          &bankName,
			DepositReference:  utils.NullableString(input.DepositReference),
			DepositReceiptUrl: utils.NullableString(input.DepositReceiptUrl),
			CreatedBy:         actor.ID,
		}
		if len(consumed) > 0 {
			prev := consumed[0].ID
			record.PreviousHandoverId = &prev
		}
		l.selfAttest(&record, actor)

		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return models.ConsumePredecessors(ctx, tx, &record, consumed)
	})
	if err != nil {
		return nil, l.internal("RecordBankDeposit", input, err)
	}
	return &record, nil
}

// authorizeRecord applies the station access policy to an existing record.
func (l *HandoverLedger) authorizeRecord(ctx context.Context, tx *gorm.DB, actor *models.User, record *models.CashHandover) error {
	station, err := models.LoadStation(ctx, tx, record.StationId)
	if err != nil {
		return err
	}
	if !models.CanAccessStation(actor, station) {
		return fmt.Errorf("%w: no access to station %d", utils.ErrUnauthorized, station.ID)
	}
	return nil
}

// internal logs errors outside the client taxonomy. They reach callers unchanged
// and the API layer replaces their message.
func (l *HandoverLedger) internal(funcName string, data any, err error) error {
	if !utils.IsClientError(err) {
		config.LogError(l.Logger, "workflow", "HandoverLedger."+funcName, "transaction failed", data, err)
	}
	return err
}

func (l *HandoverLedger) audit(ctx context.Context, actor *models.User, action string, stationId int, before, after *models.CashHandover, opErr error, description string) {
	defer func() {
		if r := recover(); r != nil {
			l.Logger.WithFields(logrus.Fields{"field": "audit", "action": action}).Error(fmt.Sprintf("audit sink panicked: %v", r))
		}
	}()
	if l.Auditor == nil {
		return
	}
	event := AuditEvent{
		ActorId:     actor.ID,
		ActorRole:   string(actor.Role),
		Action:      action,
		EntityType:  auditEntityType,
		StationId:   stationId,
		Category:    "cash_handover",
		Severity:    AuditSeverityInfo,
		Success:     opErr == nil,
		Description: description,
		OccurredAt:  l.now(),
	}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		event.CorrelationId = cid
	}
	if before != nil && before.ID != 0 {
		event.EntityId = before.ID
		event.OldValues = before
	}
	if after != nil {
		event.EntityId = after.ID
		event.NewValues = after
		if after.Status == models.HandoverStatusDisputed {
			event.Severity = AuditSeverityWarning
		}
	}
	if opErr != nil {
		event.Severity = AuditSeverityWarning
		if !utils.IsClientError(opErr) {
			event.Severity = AuditSeverityCritical
		}
		event.Description = description + ": " + opErr.Error()
	}
	if err := l.Auditor.LogAudit(context.WithoutCancel(ctx), event); err != nil {
		config.LogError(l.Logger, "workflow", "HandoverLedger.audit", "audit sink failed", action, err)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
