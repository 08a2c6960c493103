package reports

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iamramakanthreddyk/fuelsync-new-sub006/models"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DateRange bounds handover_date, both ends inclusive. Nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (r DateRange) apply(db *gorm.DB) *gorm.DB {
	if r.From != nil {
		db = db.Where("handover_date >= ?", utils.BusinessDate(*r.From))
	}
	if r.To != nil {
		db = db.Where("handover_date <= ?", utils.BusinessDate(*r.To))
	}
	return db
}

func (r DateRange) Validate() error {
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return fmt.Errorf("%w: from date is after to date", utils.ErrValidation)
	}
	return nil
}

type HandoverFilter struct {
	DateRange
	Type   *models.HandoverType
	Status *models.HandoverStatus
}

type HandoverPage struct {
	Items    []models.CashHandover `json:"items"`
	PageInfo models.PageInfo       `json:"page_info"`
}

type CashFlowRow struct {
	HandoverType    models.HandoverType   `json:"handover_type"`
	Status          models.HandoverStatus `json:"status"`
	Count           int                   `json:"count"`
	ExpectedTotal   decimal.Decimal       `json:"expected_total"`
	ActualTotal     decimal.Decimal       `json:"actual_total"`
	DifferenceTotal decimal.Decimal       `json:"difference_total"`
}

type CashFlowSummary struct {
	StationId    int           `json:"station_id"`
	From         *time.Time    `json:"from,omitempty"`
	To           *time.Time    `json:"to,omitempty"`
	Rows         []CashFlowRow `json:"rows"`
	DisputeCount int           `json:"dispute_count"`
	PendingCount int           `json:"pending_count"`
	// DepositedTotal sums confirmed bank deposits in the range.
	DepositedTotal decimal.Decimal `json:"deposited_total"`
}

type UnconfirmedReport struct {
	Items   []models.CashHandover `json:"items"`
	Count   int                   `json:"count"`
	Warning string                `json:"warning,omitempty"`
}

type BankDepositRow struct {
	models.CashHandover
	RunningTotal decimal.Decimal `json:"running_total"`
}

type BankDepositReport struct {
	StationId int              `json:"station_id"`
	Items     []BankDepositRow `json:"items"`
	Total     decimal.Decimal  `json:"total"`
}

var snapshotTx = &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead}

// PendingForUser lists pending handovers awaiting actor. Owners and super admins
// also see every pending handover at the stations they can access.
func PendingForUser(ctx context.Context, db *gorm.DB, actor *models.User, stationId *int) ([]models.CashHandover, error) {
	q := db.WithContext(ctx).Model(&models.CashHandover{}).
		Where("status = ?", string(models.HandoverStatusPending))

	if models.CanSettleHandover(actor.Role) {
		ids, all, err := models.AccessibleStationIds(ctx, db, actor)
		if err != nil {
			return nil, err
		}
		if !all {
			if len(ids) > 0 {
				q = q.Where("(station_id IN ? OR to_user_id = ?)", ids, actor.ID)
			} else {
				q = q.Where("to_user_id = ?", actor.ID)
			}
		}
	} else {
		q = q.Where("to_user_id = ?", actor.ID)
	}
	if stationId != nil {
		q = q.Where("station_id = ?", *stationId)
	}

	var records []models.CashHandover
	if err := q.Order("handover_date ASC, created_at ASC, id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// StationHandovers pages through a station's handovers, newest first.
// Count and page come from one read-only transaction.
func StationHandovers(ctx context.Context, db *gorm.DB, stationId int, filter HandoverFilter, page models.PageInput) (*HandoverPage, error) {
	started := time.Now()
	defer logSlowReport(ctx, "StationHandovers", started, map[string]any{"station_id": stationId})

	if err := filter.Validate(); err != nil {
		return nil, err
	}
	page = page.Normalize()

	var (
		total   int64
		records []models.CashHandover
	)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base := func() *gorm.DB {
			q := tx.Model(&models.CashHandover{}).Where("station_id = ?", stationId)
			q = filter.DateRange.apply(q)
			if filter.Type != nil {
				q = q.Where("handover_type = ?", string(*filter.Type))
			}
			if filter.Status != nil {
				q = q.Where("status = ?", string(*filter.Status))
			}
			return q
		}
		if err := base().Count(&total).Error; err != nil {
			return err
		}
		return base().
			Order("handover_date DESC, created_at DESC, id DESC").
			Offset(page.Offset()).
			Limit(page.Limit).
			Find(&records).Error
	}, snapshotTx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.CashHandover{}
	}
	return &HandoverPage{Items: records, PageInfo: models.NewPageInfo(page, total)}, nil
}

// CashFlowSummaryReport totals a station's handovers per stage and status.
func CashFlowSummaryReport(ctx context.Context, db *gorm.DB, stationId int, rng DateRange) (*CashFlowSummary, error) {
	started := time.Now()
	defer logSlowReport(ctx, "CashFlowSummary", started, map[string]any{"station_id": stationId})

	if err := rng.Validate(); err != nil {
		return nil, err
	}
	var records []models.CashHandover
	err := rng.apply(db.WithContext(ctx).Model(&models.CashHandover{}).Where("station_id = ?", stationId)).
		Select("id", "handover_type", "status", "expected_amount", "actual_amount", "difference").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	summary := summarize(records)
	summary.StationId = stationId
	summary.From = rng.From
	summary.To = rng.To
	return summary, nil
}

// summarize folds records into rows ordered by chain stage, then status.
func summarize(records []models.CashHandover) *CashFlowSummary {
	type key struct {
		t models.HandoverType
		s models.HandoverStatus
	}
	acc := map[key]*CashFlowRow{}
	summary := &CashFlowSummary{DepositedTotal: decimal.Zero}
	for _, r := range records {
		k := key{r.HandoverType, r.Status}
		row := acc[k]
		if row == nil {
			row = &CashFlowRow{
				HandoverType:    r.HandoverType,
				Status:          r.Status,
				ExpectedTotal:   decimal.Zero,
				ActualTotal:     decimal.Zero,
				DifferenceTotal: decimal.Zero,
			}
			acc[k] = row
		}
		row.Count++
		row.ExpectedTotal = row.ExpectedTotal.Add(r.ExpectedAmount)
		if r.ActualAmount != nil {
			row.ActualTotal = row.ActualTotal.Add(*r.ActualAmount)
		}
		if r.Difference != nil {
			row.DifferenceTotal = row.DifferenceTotal.Add(*r.Difference)
		}
		switch r.Status {
		case models.HandoverStatusDisputed:
			summary.DisputeCount++
		case models.HandoverStatusPending:
			summary.PendingCount++
		case models.HandoverStatusConfirmed, models.HandoverStatusResolved:
		}
		if r.HandoverType == models.HandoverTypeDepositToBank && r.Status == models.HandoverStatusConfirmed {
			summary.DepositedTotal = summary.DepositedTotal.Add(r.ExpectedAmount)
		}
	}

	summary.Rows = []CashFlowRow{}
	for _, t := range models.HandoverTypes {
		for _, s := range models.HandoverStatuses {
			if row, ok := acc[key{t, s}]; ok {
				row.ExpectedTotal = utils.RoundMoney(row.ExpectedTotal)
				row.ActualTotal = utils.RoundMoney(row.ActualTotal)
				row.DifferenceTotal = utils.RoundMoney(row.DifferenceTotal)
				summary.Rows = append(summary.Rows, *row)
			}
		}
	}
	summary.DepositedTotal = utils.RoundMoney(summary.DepositedTotal)
	return summary
}

// Unconfirmed lists handovers still pending after their business date.
func Unconfirmed(ctx context.Context, db *gorm.DB, stationId int, rng DateRange, today time.Time) (*UnconfirmedReport, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	var records []models.CashHandover
	err := rng.apply(db.WithContext(ctx).Model(&models.CashHandover{}).Where("station_id = ?", stationId)).
		Where("status = ?", string(models.HandoverStatusPending)).
		Where("handover_date < ?", utils.BusinessDate(today)).
		Order("handover_date ASC, created_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	report := &UnconfirmedReport{Items: records, Count: len(records)}
	if report.Items == nil {
		report.Items = []models.CashHandover{}
	}
	if report.Count > 0 {
		report.Warning = fmt.Sprintf("%d handover(s) still pending past their business date", report.Count)
	}
	return report, nil
}

// BankDeposits lists confirmed deposits oldest first with a running total.
func BankDeposits(ctx context.Context, db *gorm.DB, stationId int, rng DateRange) (*BankDepositReport, error) {
	started := time.Now()
	defer logSlowReport(ctx, "BankDeposits", started, map[string]any{"station_id": stationId})

	if err := rng.Validate(); err != nil {
		return nil, err
	}
	var records []models.CashHandover
	err := rng.apply(db.WithContext(ctx).Model(&models.CashHandover{}).Where("station_id = ?", stationId)).
		Where("handover_type = ? AND status = ?", string(models.HandoverTypeDepositToBank), string(models.HandoverStatusConfirmed)).
		Order("handover_date ASC, created_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	report := &BankDepositReport{StationId: stationId, Items: make([]BankDepositRow, 0, len(records))}
	running := decimal.Zero
	for _, r := range records {
		amount := r.ExpectedAmount
		if r.ActualAmount != nil {
			amount = *r.ActualAmount
		}
		running = running.Add(amount)
		report.Items = append(report.Items, BankDepositRow{CashHandover: r, RunningTotal: utils.RoundMoney(running)})
	}
	report.Total = utils.RoundMoney(running)
	return report, nil
}
