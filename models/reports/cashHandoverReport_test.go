package reports

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iamramakanthreddyk/fuelsync-new-sub006/dbtest"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/models"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type row struct {
	typ      models.HandoverType
	status   models.HandoverStatus
	date     string
	expected string
	actual   string
	from, to int
	bank     string
}

func insert(t *testing.T, db *gorm.DB, stationId int, r row) models.CashHandover {
	t.Helper()
	record := models.CashHandover{
		StationId:      stationId,
		HandoverType:   r.typ,
		HandoverDate:   day(r.date),
		FromUserId:     r.from,
		ToUserId:       r.to,
		ExpectedAmount: money(r.expected),
		Status:         r.status,
		CreatedBy:      r.from,
	}
	if r.actual != "" {
		actual := money(r.actual)
		diff := actual.Sub(record.ExpectedAmount)
		record.ActualAmount = &actual
		record.Difference = &diff
	}
	if r.bank != "" {
		bank := r.bank
		record.BankName = &bank
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("insert handover: %v", err)
	}
	return record
}

func TestSummarize_GroupsInChainOrder(t *testing.T) {
	actual := func(s string) *decimal.Decimal { d := money(s); return &d }
	records := []models.CashHandover{
		{HandoverType: models.HandoverTypeDepositToBank, Status: models.HandoverStatusConfirmed, ExpectedAmount: money("2950"), ActualAmount: actual("2950")},
		{HandoverType: models.HandoverTypeShiftCollection, Status: models.HandoverStatusDisputed, ExpectedAmount: money("5000"), ActualAmount: actual("4500"), Difference: actual("-500")},
		{HandoverType: models.HandoverTypeShiftCollection, Status: models.HandoverStatusConfirmed, ExpectedAmount: money("1000.10"), ActualAmount: actual("1000.10"), Difference: actual("0")},
		{HandoverType: models.HandoverTypeShiftCollection, Status: models.HandoverStatusConfirmed, ExpectedAmount: money("999.90"), ActualAmount: actual("999.90"), Difference: actual("0")},
		{HandoverType: models.HandoverTypeEmployeeToManager, Status: models.HandoverStatusPending, ExpectedAmount: money("2000")},
	}

	s := summarize(records)
	if len(s.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(s.Rows))
	}
	first := s.Rows[0]
	if first.HandoverType != models.HandoverTypeShiftCollection || first.Status != models.HandoverStatusConfirmed || first.Count != 2 {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if !first.ExpectedTotal.Equal(money("2000")) {
		t.Fatalf("expected 2000, got %s", first.ExpectedTotal)
	}
	if s.Rows[1].Status != models.HandoverStatusDisputed || !s.Rows[1].DifferenceTotal.Equal(money("-500")) {
		t.Fatalf("unexpected disputed row: %+v", s.Rows[1])
	}
	if s.Rows[3].HandoverType != models.HandoverTypeDepositToBank {
		t.Fatalf("expected deposits last, got %s", s.Rows[3].HandoverType)
	}
	if s.DisputeCount != 1 || s.PendingCount != 1 {
		t.Fatalf("expected 1 dispute and 1 pending, got %d and %d", s.DisputeCount, s.PendingCount)
	}
	if !s.DepositedTotal.Equal(money("2950")) {
		t.Fatalf("expected deposited 2950, got %s", s.DepositedTotal)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := summarize(nil)
	if s.Rows == nil || len(s.Rows) != 0 {
		t.Fatalf("expected empty rows slice, got %v", s.Rows)
	}
	if !s.DepositedTotal.IsZero() {
		t.Fatalf("expected zero deposits, got %s", s.DepositedTotal)
	}
}

func TestCashFlowSummaryReport_RespectsRangeAndStation(t *testing.T) {
	db := dbtest.Open(t)
	f := dbtest.Seed(t, db)
	sid := f.Station.ID

	insert(t, db, sid, row{typ: models.HandoverTypeShiftCollection, status: models.HandoverStatusConfirmed, date: "2026-10-01", expected: "100", actual: "100", from: f.Manager.ID, to: f.Employee.ID})
	insert(t, db, sid, row{typ: models.HandoverTypeShiftCollection, status: models.HandoverStatusConfirmed, date: "2026-10-10", expected: "200", actual: "200", from: f.Manager.ID, to: f.Employee.ID})
	insert(t, db, sid, row{typ: models.HandoverTypeShiftCollection, status: models.HandoverStatusPending, date: "2026-10-12", expected: "50", from: f.Manager.ID, to: f.Employee.ID})
	insert(t, db, f.OtherStation.ID, row{typ: models.HandoverTypeShiftCollection, status: models.HandoverStatusConfirmed, date: "2026-10-10", expected: "9999", actual: "9999", from: f.OtherManager.ID, to: f.OtherManager.ID})

	from, to := day("2026-10-05"), day("2026-10-12")
	s, err := CashFlowSummaryReport(context.Background(), db, sid, DateRange{From: &from, To: &to})
	if err != nil {
		t.Fatalf("CashFlowSummaryReport: %v", err)
	}
	if len(s.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", s.Rows)
	}
	if s.Rows[0].Count != 1 || !s.Rows[0].ExpectedTotal.Equal(money("200")) {
		t.Fatalf("unexpected confirmed row: %+v", s.Rows[0])
	}
	if s.PendingCount != 1 || s.StationId != sid {
		t.Fatalf("unexpected summary: %+v", s)
	}

	_, err = CashFlowSummaryReport(context.Background(), db, sid, DateRange{From: &to, To: &from})
	if !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected validation error for reversed range, got %v", err)
	}
}

func TestStationHandovers_PagesNewestFirst(t *testing.T) {
	db := dbtest.Open(t)
	f := dbtest.Seed(t, db)
	sid := f.Station.ID

	var ids []int
	for _, d := range []string{"2026-10-01", "2026-10-02", "2026-10-03", "2026-10-04", "2026-10-05"} {
		r := insert(t, db, sid, row{typ: models.HandoverTypeShiftCollection, status: models.HandoverStatusPending, date: d, expected: "10", from: f.Manager.ID, to: f.Employee.ID})
		ids = append(ids, r.ID)
	}
	insert(t, db, sid, row{typ: models.HandoverTypeEmployeeToManager, status: models.HandoverStatusPending, date: "2026-10-05", expected: "10", from: f.Employee.ID, to: f.Manager.ID})

	shift := models.HandoverTypeShiftCollection
	page, err := StationHandovers(context.Background(), db, sid, HandoverFilter{Type: &shift}, models.PageInput{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("StationHandovers: %v", err)
	}
	if page.PageInfo.Total != 5 || !page.PageInfo.HasNextPage || len(page.Items) != 2 {
		t.Fatalf("unexpected first page: %+v (%d items)", page.PageInfo, len(page.Items))
	}
	if page.Items[0].ID != ids[4] || page.Items[1].ID != ids[3] {
		t.Fatalf("expected newest first, got %d, %d", page.Items[0].ID, page.Items[1].ID)
	}

	page, err = StationHandovers(context.Background(), db, sid, HandoverFilter{Type: &shift}, models.PageInput{Page: 3, Limit: 2})
	if err != nil {
		t.Fatalf("StationHandovers: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != ids[0] || page.PageInfo.HasNextPage {
		t.Fatalf("unexpected last page: %+v", page)
	}

	page, err = StationHandovers(context.Background(), db, f.OtherStation.ID, HandoverFilter{}, models.PageInput{})
	if err != nil {
		t.Fatalf("StationHandovers: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 || page.PageInfo.Limit != 20 {
		t.Fatalf("expected empty default page, got %+v", page)
	}
}

func TestPendingForUser(t *testing.T) {
	db := dbtest.Open(t)
	f := dbtest.Seed(t, db)
	sid := f.Station.ID

	toEmployee := insert(t, db, sid, row{typ: models.HandoverTypeShiftCollection, status: models.HandoverStatusPending, date: "2026-10-14", expected: "10", from: f.Employee.ID, to: f.Employee.ID})
	toManager := insert(t, db, sid, row{typ: models.HandoverTypeEmployeeToManager, status: models.HandoverStatusPending, date: "2026-10-15", expected: "10", from: f.Employee.ID, to: f.Manager.ID})
	insert(t, db, sid, row{typ: models.HandoverTypeShiftCollection, status: models.HandoverStatusConfirmed, date: "2026-10-13", expected: "10", actual: "10", from: f.Employee.ID, to: f.Employee.ID})
	insert(t, db, f.OtherStation.ID, row{typ: models.HandoverTypeShiftCollection, status: models.HandoverStatusPending, date: "2026-10-15", expected: "10", from: f.OtherManager.ID, to: f.OtherManager.ID})

	got, err := PendingForUser(context.Background(), db, f.Manager, nil)
	if err != nil {
		t.Fatalf("PendingForUser: %v", err)
	}
	if len(got) != 1 || got[0].ID != toManager.ID {
		t.Fatalf("manager should only see handovers addressed to them, got %+v", got)
	}

	got, err = PendingForUser(context.Background(), db, f.Owner, nil)
	if err != nil {
		t.Fatalf("PendingForUser: %v", err)
	}
	if len(got) != 2 || got[0].ID != toEmployee.ID || got[1].ID != toManager.ID {
		t.Fatalf("owner should see both pending handovers of the station oldest first, got %+v", got)
	}

	got, err = PendingForUser(context.Background(), db, f.SuperAdmin, nil)
	if err != nil {
		t.Fatalf("PendingForUser: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("super admin should see every pending handover, got %d", len(got))
	}

	got, err = PendingForUser(context.Background(), db, f.OtherOwner, &sid)
	if err != nil {
		t.Fatalf("PendingForUser: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("other owner must not see this station, got %+v", got)
	}
}

func TestUnconfirmed_OnlyPastBusinessDate(t *testing.T) {
	db := dbtest.Open(t)
	f := dbtest.Seed(t, db)
	sid := f.Station.ID

	stale := insert(t, db, sid, row{typ: models.HandoverTypeShiftCollection, status: models.HandoverStatusPending, date: "2026-10-14", expected: "10", from: f.Employee.ID, to: f.Employee.ID})
	insert(t, db, sid, row{typ: models.HandoverTypeShiftCollection, status: models.HandoverStatusPending, date: "2026-10-16", expected: "10", from: f.Employee.ID, to: f.Employee.ID})

	today := time.Date(2026, 10, 16, 18, 30, 0, 0, time.UTC)
	report, err := Unconfirmed(context.Background(), db, sid, DateRange{}, today)
	if err != nil {
		t.Fatalf("Unconfirmed: %v", err)
	}
	if report.Count != 1 || report.Items[0].ID != stale.ID || report.Warning == "" {
		t.Fatalf("unexpected report: %+v", report)
	}

	report, err = Unconfirmed(context.Background(), db, f.OtherStation.ID, DateRange{}, today)
	if err != nil {
		t.Fatalf("Unconfirmed: %v", err)
	}
	if report.Count != 0 || report.Warning != "" || report.Items == nil {
		t.Fatalf("expected empty report without warning, got %+v", report)
	}
}

func TestBankDeposits_RunningTotal(t *testing.T) {
	db := dbtest.Open(t)
	f := dbtest.Seed(t, db)
	sid := f.Station.ID

	insert(t, db, sid, row{typ: models.HandoverTypeDepositToBank, status: models.HandoverStatusConfirmed, date: "2026-10-03", expected: "300.50", actual: "300.50", from: f.Owner.ID, to: f.Owner.ID, bank: "HDFC"})
	insert(t, db, sid, row{typ: models.HandoverTypeDepositToBank, status: models.HandoverStatusConfirmed, date: "2026-10-01", expected: "1000", actual: "1000", from: f.Owner.ID, to: f.Owner.ID, bank: "SBI"})
	insert(t, db, sid, row{typ: models.HandoverTypeManagerToOwner, status: models.HandoverStatusConfirmed, date: "2026-10-02", expected: "700", actual: "700", from: f.Manager.ID, to: f.Owner.ID})

	report, err := BankDeposits(context.Background(), db, sid, DateRange{})
	if err != nil {
		t.Fatalf("BankDeposits: %v", err)
	}
	if len(report.Items) != 2 {
		t.Fatalf("expected 2 deposits, got %d", len(report.Items))
	}
	if !report.Items[0].RunningTotal.Equal(money("1000")) || !report.Items[1].RunningTotal.Equal(money("1300.5")) {
		t.Fatalf("unexpected running totals: %s, %s", report.Items[0].RunningTotal, report.Items[1].RunningTotal)
	}
	if !report.Total.Equal(money("1300.5")) {
		t.Fatalf("expected total 1300.5, got %s", report.Total)
	}
}

func TestExportExcel(t *testing.T) {
	bank := "HDFC"
	report := &BankDepositReport{
		StationId: 1,
		Items: []BankDepositRow{{
			CashHandover: models.CashHandover{ID: 4, HandoverDate: day("2026-10-01"), ExpectedAmount: money("1000"), BankName: &bank},
			RunningTotal: money("1000"),
		}},
		Total: money("1000"),
	}
	data, err := ExportExcel(report)
	if err != nil {
		t.Fatalf("ExportExcel: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != "BankDeposits" {
		t.Fatalf("expected only the BankDeposits sheet, got %v", sheets)
	}
	rows, err := f.GetRows("BankDeposits")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected heading, one deposit and a total row, got %d rows", len(rows))
	}
	if rows[0][0] != "Date" || rows[1][0] != "2026-10-01" || rows[1][1] != "HDFC" || rows[2][0] != "Total" {
		t.Fatalf("unexpected sheet contents: %v", rows)
	}
}
