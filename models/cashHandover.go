package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iamramakanthreddyk/fuelsync-new-sub006/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CashHandover is one recorded transfer of cash custody. Records are never deleted.
type CashHandover struct {
	ID                 int              `gorm:"primary_key" json:"id"`
	StationId          int              `gorm:"not null;index:idx_cash_handover_chain,priority:1" json:"station_id"`
	HandoverType       HandoverType     `gorm:"size:32;not null;index:idx_cash_handover_chain,priority:2" json:"handover_type"`
	HandoverDate       time.Time        `gorm:"type:date;not null;index" json:"handover_date"`
	FromUserId         int              `gorm:"index;not null" json:"from_user_id"`
	ToUserId           int              `gorm:"index;not null" json:"to_user_id"`
	ExpectedAmount     decimal.Decimal  `gorm:"type:decimal(20,2);not null" json:"expected_amount"`
	ActualAmount       *decimal.Decimal `gorm:"type:decimal(20,2)" json:"actual_amount"`
	Difference         *decimal.Decimal `gorm:"type:decimal(20,2)" json:"difference"`
	Status             HandoverStatus   `gorm:"size:20;not null;index" json:"status"`
	PreviousHandoverId *int             `gorm:"index" json:"previous_handover_id"`
	Notes              *string          `gorm:"type:text" json:"notes"`
	ConfirmationNotes  *string          `gorm:"type:text" json:"confirmation_notes"`
	ConfirmedAt        *time.Time       `json:"confirmed_at"`
	ConfirmedBy        *int             `json:"confirmed_by"`
	ResolutionNotes    *string          `gorm:"type:text" json:"resolution_notes"`
	ResolvedAt         *time.Time       `json:"resolved_at"`
	ResolvedBy         *int             `json:"resolved_by"`
	BankName           *string          `gorm:"size:100" json:"bank_name"`
	DepositReference   *string          `gorm:"size:100" json:"deposit_reference"`
	DepositReceiptUrl  *string          `gorm:"size:500" json:"deposit_receipt_url"`
	CreatedBy          int              `gorm:"not null" json:"created_by"`
	CreatedAt          time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// CashHandoverLink records that a successor consumed a predecessor's amount.
// Append-only; the unique predecessor index means a total is consumed at most once.
type CashHandoverLink struct {
	ID            int             `gorm:"primary_key" json:"id"`
	StationId     int             `gorm:"index;not null" json:"station_id"`
	SuccessorId   int             `gorm:"index;not null" json:"successor_id"`
	PredecessorId int             `gorm:"uniqueIndex;not null" json:"predecessor_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// SettledAmount is what a settled record passes down the chain:
// the reconciled actual amount after a resolved dispute, the declared amount otherwise.
func (h CashHandover) SettledAmount() decimal.Decimal {
	if h.Status == HandoverStatusResolved && h.ActualAmount != nil {
		return *h.ActualAmount
	}
	return h.ExpectedAmount
}

// ChainQuery selects records of one stage at a station, optionally from one sender.
type ChainQuery struct {
	StationId  int
	Type       HandoverType
	FromUserId *int
}

func settledStatuses() []string {
	var out []string
	for _, s := range HandoverStatuses {
		if s.Settled() {
			out = append(out, string(s))
		}
	}
	return out
}

const chainOrder = "handover_date DESC, created_at DESC, id DESC"

func (q ChainQuery) scope(ctx context.Context, tx *gorm.DB) *gorm.DB {
	db := tx.WithContext(ctx).Model(&CashHandover{}).
		Where("station_id = ? AND handover_type = ?", q.StationId, string(q.Type))
	if q.FromUserId != nil {
		db = db.Where("from_user_id = ?", *q.FromUserId)
	}
	return db
}

// UnconsumedPredecessors lists settled records matching q that no successor has linked yet, newest first.
func UnconsumedPredecessors(ctx context.Context, tx *gorm.DB, q ChainQuery) ([]CashHandover, error) {
	var records []CashHandover
	err := q.scope(ctx, tx).
		Where("status IN ?", settledStatuses()).
		Where("NOT EXISTS (SELECT 1 FROM cash_handover_links l WHERE l.predecessor_id = cash_handovers.id)").
		Order(chainOrder).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// LatestSettled returns the most recent settled record matching q, consumed or not. Nil when none.
func LatestSettled(ctx context.Context, tx *gorm.DB, q ChainQuery) (*CashHandover, error) {
	var record CashHandover
	err := q.scope(ctx, tx).
		Where("status IN ?", settledStatuses()).
		Order(chainOrder).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// AnyRecorded reports whether a record matching q exists in any status.
func AnyRecorded(ctx context.Context, tx *gorm.DB, q ChainQuery) (bool, error) {
	var count int64
	if err := q.scope(ctx, tx).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SumSettled totals what the given predecessors pass down the chain.
func SumSettled(records []CashHandover) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.SettledAmount())
	}
	return utils.RoundMoney(total)
}

// ConsumePredecessors appends one link per predecessor. A predecessor already
// linked by a concurrent writer surfaces as ErrConflict.
func ConsumePredecessors(ctx context.Context, tx *gorm.DB, successor *CashHandover, preds []CashHandover) error {
	if len(preds) == 0 {
		return nil
	}
	links := make([]CashHandoverLink, 0, len(preds))
	for _, p := range preds {
		links = append(links, CashHandoverLink{
			StationId:     successor.StationId,
			SuccessorId:   successor.ID,
			PredecessorId: p.ID,
			Amount:        p.SettledAmount(),
		})
	}
	if err := tx.WithContext(ctx).Create(&links).Error; err != nil {
		if IsDuplicateKeyErr(err) {
			return fmt.Errorf("%w: a %s record was consumed by another handover", utils.ErrConflict, preds[0].HandoverType)
		}
		return err
	}
	return nil
}

func GetHandover(ctx context.Context, db *gorm.DB, id int) (*CashHandover, error) {
	var record CashHandover
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: handover %d", utils.ErrNotFound, id)
		}
		return nil, err
	}
	return &record, nil
}

// LockHandover reads the record with a row lock held until tx ends.
func LockHandover(ctx context.Context, tx *gorm.DB, id int) (*CashHandover, error) {
	var record CashHandover
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: handover %d", utils.ErrNotFound, id)
		}
		return nil, err
	}
	return &record, nil
}

// Links returns the predecessors consumed by successorId.
func Links(ctx context.Context, db *gorm.DB, successorId int) ([]CashHandoverLink, error) {
	var links []CashHandoverLink
	err := db.WithContext(ctx).Where("successor_id = ?", successorId).Order("predecessor_id").Find(&links).Error
	return links, err
}
