package workflow

import (
	"errors"
	"testing"

	"github.com/iamramakanthreddyk/fuelsync-new-sub006/config"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/models"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/utils"
	"github.com/shopspring/decimal"
)

func TestConfirmOutcome(t *testing.T) {
	tol := decimal.RequireFromString("0.50")
	cases := []struct {
		expected, actual string
		tolerance        decimal.Decimal
		status           models.HandoverStatus
		diff             string
	}{
		{"1000", "1000", decimal.Zero, models.HandoverStatusConfirmed, "0"},
		{"1000", "999.99", decimal.Zero, models.HandoverStatusDisputed, "-0.01"},
		{"1000", "1000.50", tol, models.HandoverStatusConfirmed, "0.5"},
		{"1000", "999.49", tol, models.HandoverStatusDisputed, "-0.51"},
		{"5000", "4500", decimal.Zero, models.HandoverStatusDisputed, "-500"},
		{"0", "12.345", decimal.Zero, models.HandoverStatusDisputed, "12.35"},
	}
	for _, tc := range cases {
		status, diff := confirmOutcome(decimal.RequireFromString(tc.expected), decimal.RequireFromString(tc.actual), tc.tolerance)
		if status != tc.status {
			t.Fatalf("%s vs %s: expected %s, got %s", tc.expected, tc.actual, tc.status, status)
		}
		if !diff.Equal(decimal.RequireFromString(tc.diff)) {
			t.Fatalf("%s vs %s: expected diff %s, got %s", tc.expected, tc.actual, tc.diff, diff)
		}
	}
}

func TestWithinTolerance(t *testing.T) {
	hundred := decimal.NewFromInt(100)
	if !withinTolerance(decimal.NewFromInt(-100), hundred) {
		t.Fatalf("boundary is inclusive")
	}
	if withinTolerance(decimal.RequireFromString("100.01"), hundred) {
		t.Fatalf("expected 100.01 to exceed tolerance")
	}
	if !withinTolerance(decimal.Zero, decimal.Zero) {
		t.Fatalf("zero difference is always within tolerance")
	}
}

func TestRecipientFor(t *testing.T) {
	managerId := 7
	actor := &models.User{ID: 3, Role: models.UserRoleOwner}
	employee := &models.User{ID: 11, Role: models.UserRoleEmployee, ManagerId: &managerId}
	unmanaged := &models.User{ID: 12, Role: models.UserRoleEmployee}
	manager := &models.User{ID: 7, Role: models.UserRoleManager}
	station := &models.Station{ID: 1, OwnerId: 3}

	cases := []struct {
		name string
		t    models.HandoverType
		from *models.User
		want int
	}{
		{"shift collection is held by the attendant", models.HandoverTypeShiftCollection, employee, 11},
		{"employee handover goes to the assigned manager", models.HandoverTypeEmployeeToManager, employee, 7},
		{"unmanaged employee hands to the actor", models.HandoverTypeEmployeeToManager, unmanaged, 3},
		{"manager handover goes to the station owner", models.HandoverTypeManagerToOwner, manager, 3},
		{"deposit is self-attested", models.HandoverTypeDepositToBank, actor, 3},
	}
	for _, tc := range cases {
		if got := recipientFor(tc.t, actor, tc.from, station); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestCheckSender(t *testing.T) {
	stationId := 1
	otherId := 2
	station := &models.Station{ID: stationId, OwnerId: 3}
	employee := &models.User{ID: 11, Role: models.UserRoleEmployee, StationId: &stationId, IsActive: utils.NewTrue()}
	inactive := &models.User{ID: 12, Role: models.UserRoleEmployee, StationId: &stationId, IsActive: utils.NewFalse()}
	elsewhere := &models.User{ID: 13, Role: models.UserRoleManager, StationId: &otherId, IsActive: utils.NewTrue()}
	owner := &models.User{ID: 3, Role: models.UserRoleOwner, IsActive: utils.NewTrue()}

	if err := checkSender(models.HandoverTypeShiftCollection, employee, station); err != nil {
		t.Fatalf("employee may hand over a shift: %v", err)
	}
	if err := checkSender(models.HandoverTypeShiftCollection, inactive, station); !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected inactive sender to be rejected, got %v", err)
	}
	if err := checkSender(models.HandoverTypeManagerToOwner, employee, station); !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected employee as manager_to_owner sender to be rejected, got %v", err)
	}
	if err := checkSender(models.HandoverTypeManagerToOwner, elsewhere, station); !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected manager of another station to be rejected, got %v", err)
	}
	if err := checkSender(models.HandoverTypeDepositToBank, owner, station); err != nil {
		t.Fatalf("owner may deposit: %v", err)
	}
	if err := checkSender(models.HandoverTypeDepositToBank, employee, station); !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected employee deposit to be rejected, got %v", err)
	}
}

func TestChainScope(t *testing.T) {
	employee := &models.User{ID: 11}

	if _, chained := chainScope(models.HandoverTypeShiftCollection, 1, employee); chained {
		t.Fatalf("shift collection starts the chain")
	}
	q, chained := chainScope(models.HandoverTypeEmployeeToManager, 1, employee)
	if !chained || q.Type != models.HandoverTypeShiftCollection || q.FromUserId == nil || *q.FromUserId != 11 {
		t.Fatalf("unexpected employee handover scope: %+v", q)
	}
	q, chained = chainScope(models.HandoverTypeManagerToOwner, 1, employee)
	if !chained || q.Type != models.HandoverTypeEmployeeToManager || q.FromUserId != nil {
		t.Fatalf("unexpected manager handover scope: %+v", q)
	}
	q, chained = chainScope(models.HandoverTypeDepositToBank, 1, employee)
	if !chained || q.Type != models.HandoverTypeManagerToOwner || q.StationId != 1 {
		t.Fatalf("unexpected deposit scope: %+v", q)
	}
}

func TestAllowsFirstCycle(t *testing.T) {
	permissive := config.DefaultSettings()
	permissive.SequenceMode = config.SequenceModePermissive
	strict := config.DefaultSettings()

	if !allowsFirstCycle(permissive, models.HandoverTypeEmployeeToManager) {
		t.Fatalf("permissive mode allows the first employee handover")
	}
	for _, typ := range []models.HandoverType{models.HandoverTypeManagerToOwner, models.HandoverTypeDepositToBank} {
		if allowsFirstCycle(permissive, typ) {
			t.Fatalf("%s is always chained", typ)
		}
	}
	if allowsFirstCycle(strict, models.HandoverTypeEmployeeToManager) {
		t.Fatalf("strict mode never skips the chain")
	}
}

func TestValidateAmount(t *testing.T) {
	got, err := validateAmount("amount", decimal.RequireFromString("10.005"))
	if err != nil {
		t.Fatalf("validateAmount: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("10.01")) {
		t.Fatalf("expected 10.01, got %s", got)
	}
	if _, err := validateAmount("amount", decimal.NewFromInt(-1)); !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	largest := decimal.RequireFromString("999999999999999999.99")
	got, err = validateAmount("amount", largest)
	if err != nil || !got.Equal(largest) {
		t.Fatalf("expected the column maximum to pass, got %s, %v", got, err)
	}
	for _, in := range []string{"1000000000000000000", "999999999999999999.995", "1e30"} {
		if _, err := validateAmount("amount", decimal.RequireFromString(in)); !errors.Is(err, utils.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", in, err)
		}
	}
}
