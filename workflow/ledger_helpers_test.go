package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iamramakanthreddyk/fuelsync-new-sub006/config"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/dbtest"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/models"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type recordingAuditor struct {
	mu     sync.Mutex
	events []AuditEvent
	err    error
	panics bool
}

func (a *recordingAuditor) LogAudit(_ context.Context, event AuditEvent) error {
	if a.panics {
		panic("audit sink exploded")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return a.err
}

func (a *recordingAuditor) last(t *testing.T) AuditEvent {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.events) == 0 {
		t.Fatalf("expected an audit event")
	}
	return a.events[len(a.events)-1]
}

func newTestLedger(t *testing.T, mode config.SequenceMode) (*HandoverLedger, *dbtest.Fixture, *recordingAuditor) {
	t.Helper()
	db := dbtest.Open(t)
	f := dbtest.Seed(t, db)
	settings := config.DefaultSettings()
	settings.SequenceMode = mode
	auditor := &recordingAuditor{}
	l := NewHandoverLedger(db, settings, auditor, config.GetLogger(), nil)
	l.Now = func() time.Time { return testNow }
	return l, f, auditor
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func assertAmount(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s: expected %s, got %s", label, want, got.String())
	}
}

func assertErrorIs(t *testing.T, err error, target error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %v, got nil", target)
	}
	if !errors.Is(err, target) {
		t.Fatalf("expected error %v, got %v", target, err)
	}
}

func mustCreate(t *testing.T, l *HandoverLedger, actor *models.User, input NewHandover) *models.CashHandover {
	t.Helper()
	record, err := l.Create(context.Background(), actor, input)
	if err != nil {
		t.Fatalf("Create %s: %v", input.HandoverType, err)
	}
	return record
}

func mustConfirm(t *testing.T, l *HandoverLedger, actor *models.User, id int, input ConfirmHandover) *models.CashHandover {
	t.Helper()
	record, err := l.Confirm(context.Background(), actor, id, input)
	if err != nil {
		t.Fatalf("Confirm %d: %v", id, err)
	}
	return record
}

// settledShift records a shift collection for the fixture employee and has the employee confirm it.
func settledShift(t *testing.T, l *HandoverLedger, f *dbtest.Fixture, expected, date string) *models.CashHandover {
	t.Helper()
	shift := mustCreate(t, l, f.Manager, NewHandover{
		StationId:      f.Station.ID,
		HandoverType:   models.HandoverTypeShiftCollection,
		HandoverDate:   date,
		FromUserId:     f.Employee.ID,
		ExpectedAmount: amount(expected),
	})
	return mustConfirm(t, l, f.Employee, shift.ID, ConfirmHandover{AcceptAsIs: true})
}

func settledEmployeeHandover(t *testing.T, l *HandoverLedger, f *dbtest.Fixture, date string) *models.CashHandover {
	t.Helper()
	e2m := mustCreate(t, l, f.Manager, NewHandover{
		StationId:    f.Station.ID,
		HandoverType: models.HandoverTypeEmployeeToManager,
		HandoverDate: date,
		FromUserId:   f.Employee.ID,
	})
	return mustConfirm(t, l, f.Manager, e2m.ID, ConfirmHandover{AcceptAsIs: true})
}

func settledOwnerHandover(t *testing.T, l *HandoverLedger, f *dbtest.Fixture, date string) *models.CashHandover {
	t.Helper()
	m2o := mustCreate(t, l, f.Manager, NewHandover{
		StationId:    f.Station.ID,
		HandoverType: models.HandoverTypeManagerToOwner,
		HandoverDate: date,
		FromUserId:   f.Manager.ID,
	})
	return mustConfirm(t, l, f.Owner, m2o.ID, ConfirmHandover{AcceptAsIs: true})
}
