package leave_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kintai/leave-engine/leave"
)

// =============================================================================
// LIFO CONSUMPTION ORDER
// =============================================================================

func TestApplyDeduction_NewestGrantFirst(t *testing.T) {
	// GIVEN: 3 days remaining from fiscal year 2024 and 12 from 2025
	// WHEN: Deducting 5 days in fiscal year 2025
	// THEN: All 5 come from the 2025 grant; the 2024 grant is untouched

	engine := newTestEngine(t)
	l := leave.NewLedger()
	seedEmployee(t, l, "emp-1", leave.NewDate(2020, time.April, 1),
		activeGrant(t, 2024, leave.Days(3), leave.Days(0)),
		activeGrant(t, 2025, leave.Days(12), leave.Days(0)))

	result, err := engine.ApplyDeduction(l, "emp-1", leave.Days(5), 2025)
	require.NoError(t, err)

	assertDecimalEqual(t, leave.Days(5), result.TotalDeducted)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, 2025, result.Lines[0].FiscalYear)
	assertDecimalEqual(t, leave.Days(5), result.Lines[0].Days)

	breakdown, err := l.BalanceBreakdown("emp-1", 0)
	require.NoError(t, err)
	assertDecimalEqual(t, leave.Days(7), breakdown[0].Remaining()) // 2025
	assertDecimalEqual(t, leave.Days(3), breakdown[1].Remaining()) // 2024
}

func TestApplyDeduction_SpillsIntoOlderGrant(t *testing.T) {
	// GIVEN: 3 days from 2024 and 2 from 2025
	// WHEN: Deducting 4 days in fiscal year 2025
	// THEN: 2 days drain the 2025 grant (now exhausted), 2 come from 2024

	engine := newTestEngine(t)
	l := leave.NewLedger()
	seedEmployee(t, l, "emp-1", leave.NewDate(2020, time.April, 1),
		activeGrant(t, 2024, leave.Days(3), leave.Days(0)),
		activeGrant(t, 2025, leave.Days(2), leave.Days(0)))

	result, err := engine.ApplyDeduction(l, "emp-1", leave.Days(4), 2025)
	require.NoError(t, err)

	require.Len(t, result.Lines, 2)
	assert.Equal(t, 2025, result.Lines[0].FiscalYear)
	assertDecimalEqual(t, leave.Days(2), result.Lines[0].Days)
	assert.Equal(t, 2024, result.Lines[1].FiscalYear)
	assertDecimalEqual(t, leave.Days(2), result.Lines[1].Days)

	breakdown, err := l.BalanceBreakdown("emp-1", 0)
	require.NoError(t, err)
	assert.Equal(t, leave.GrantExhausted, breakdown[0].State)
	assertDecimalEqual(t, leave.Days(1), breakdown[1].Remaining())
}

func TestApplyDeduction_HalfDays(t *testing.T) {
	engine := newTestEngine(t)
	l := leave.NewLedger()
	seedEmployee(t, l, "emp-1", leave.NewDate(2020, time.April, 1),
		activeGrant(t, 2025, leave.Days(10), leave.Days(0)))

	half := decimal.RequireFromString("0.5")
	result, err := engine.ApplyDeduction(l, "emp-1", half, 2025)
	require.NoError(t, err)
	assertDecimalEqual(t, half, result.TotalDeducted)

	total, err := l.TotalRemaining("emp-1")
	require.NoError(t, err)
	assertDecimalEqual(t, decimal.RequireFromString("9.5"), total)
}

// =============================================================================
// ALL-OR-NOTHING REJECTION
// =============================================================================

func TestApplyDeduction_Insufficient_LedgerUntouched(t *testing.T) {
	// GIVEN: 5 eligible days across two grants
	// WHEN: Deducting 6 days
	// THEN: The request is rejected whole; neither grant is partially
	//       drained

	engine := newTestEngine(t)
	l := leave.NewLedger()
	seedEmployee(t, l, "emp-1", leave.NewDate(2020, time.April, 1),
		activeGrant(t, 2024, leave.Days(3), leave.Days(0)),
		activeGrant(t, 2025, leave.Days(2), leave.Days(0)))

	_, err := engine.ApplyDeduction(l, "emp-1", leave.Days(6), 2025)
	require.Error(t, err)

	var short *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &short)
	assertDecimalEqual(t, leave.Days(6), short.Requested)
	assertDecimalEqual(t, leave.Days(5), short.Available)
	assertDecimalEqual(t, leave.Days(1), short.Shortfall())

	total, err := l.TotalRemaining("emp-1")
	require.NoError(t, err)
	assertDecimalEqual(t, leave.Days(5), total)
}

// =============================================================================
// ELIGIBILITY WINDOW
// =============================================================================

func TestApplyDeduction_ExpiredGrantExcluded(t *testing.T) {
	expired := activeGrant(t, 2024, leave.Days(10), leave.Days(0))
	expired.State = leave.GrantExpired

	engine := newTestEngine(t)
	l := leave.NewLedger()
	seedEmployee(t, l, "emp-1", leave.NewDate(2020, time.April, 1),
		expired,
		activeGrant(t, 2025, leave.Days(3), leave.Days(0)))

	_, err := engine.ApplyDeduction(l, "emp-1", leave.Days(4), 2025)
	assert.ErrorIs(t, err, leave.ErrInsufficientBalance,
		"expired days must not satisfy a deduction")
}

func TestApplyDeduction_GrantPastCarryOverWindowExcluded(t *testing.T) {
	// GIVEN: An active 2022 grant and a 2025 request with a 2-year
	//        carry-over limit
	// WHEN: Deducting more than the in-window balance
	// THEN: The 2022 grant is not drawn from even though its state is
	//       still active (the year-end run may simply be late)

	engine := newTestEngine(t)
	l := leave.NewLedger()
	seedEmployee(t, l, "emp-1", leave.NewDate(2015, time.April, 1),
		activeGrant(t, 2022, leave.Days(10), leave.Days(0)),
		activeGrant(t, 2025, leave.Days(3), leave.Days(0)))

	_, err := engine.ApplyDeduction(l, "emp-1", leave.Days(4), 2025)
	assert.ErrorIs(t, err, leave.ErrInsufficientBalance)

	// The in-window part still works.
	result, err := engine.ApplyDeduction(l, "emp-1", leave.Days(3), 2025)
	require.NoError(t, err)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, 2025, result.Lines[0].FiscalYear)
}

func TestApplyDeduction_FutureGrantExcluded(t *testing.T) {
	// A request accounted to fiscal year 2024 cannot consume the 2025
	// grant.
	engine := newTestEngine(t)
	l := leave.NewLedger()
	seedEmployee(t, l, "emp-1", leave.NewDate(2020, time.April, 1),
		activeGrant(t, 2024, leave.Days(3), leave.Days(0)),
		activeGrant(t, 2025, leave.Days(12), leave.Days(0)))

	_, err := engine.ApplyDeduction(l, "emp-1", leave.Days(4), 2024)
	assert.ErrorIs(t, err, leave.ErrInsufficientBalance)
}

// =============================================================================
// ARGUMENT VALIDATION
// =============================================================================

func TestApplyDeduction_InvalidArguments(t *testing.T) {
	engine := newTestEngine(t)
	l := leave.NewLedger()
	seedEmployee(t, l, "emp-1", leave.NewDate(2020, time.April, 1),
		activeGrant(t, 2025, leave.Days(10), leave.Days(0)))

	cases := []struct {
		name string
		days decimal.Decimal
		year int
	}{
		{"zero days", leave.Days(0), 2025},
		{"negative days", leave.Days(-1), 2025},
		{"not a half-day increment", decimal.RequireFromString("0.3"), 2025},
		{"non-positive fiscal year", leave.Days(1), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.ApplyDeduction(l, "emp-1", tc.days, tc.year)
			assert.ErrorIs(t, err, leave.ErrInvalidArgument)
		})
	}
}

func TestApplyDeduction_UnknownEmployee(t *testing.T) {
	engine := newTestEngine(t)
	l := leave.NewLedger()

	_, err := engine.ApplyDeduction(l, "ghost", leave.Days(1), 2025)
	assert.ErrorIs(t, err, leave.ErrEmployeeNotFound)
}
