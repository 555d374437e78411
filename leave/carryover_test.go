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
// NEW YEAR'S GRANT
// =============================================================================

func TestCarryover_CreatesNewGrantFromSeniority(t *testing.T) {
	// GIVEN: Employee hired July 21 2023, holding the 10-day fiscal 2024
	//        grant, 3 days used
	// WHEN: Running the 2024 -> 2025 transition
	// THEN: Seniority at the 2025 period start (Jan 21 2025) is exactly
	//       1.5 years, so an 11-day grant is created; the 7 remaining
	//       2024 days stay active

	engine := newTestEngine(t)
	l := leave.NewLedger()
	seedEmployee(t, l, "emp-1", leave.NewDate(2023, time.July, 21),
		activeGrant(t, 2024, leave.Days(10), leave.Days(3)))

	result, err := engine.ProcessYearEndCarryover(l, "emp-1", 2024, 2025)
	require.NoError(t, err)

	assertDecimalEqual(t, decimal.RequireFromString("1.5"), result.SeniorityYears)
	assertDecimalEqual(t, leave.Days(11), result.NewGrantDays)
	assertDecimalEqual(t, leave.Days(7), result.CarriedRemaining)
	assert.Empty(t, result.Expired)
	assert.True(t, result.ForfeitedExcess.IsZero())
	assert.False(t, result.AlreadyProcessed)

	total, err := l.TotalRemaining("emp-1")
	require.NoError(t, err)
	assertDecimalEqual(t, leave.Days(18), total)
}

func TestCarryover_BelowFirstThreshold_NoGrant(t *testing.T) {
	// An employee with under six months of seniority at the new period
	// start gets no grant yet.
	engine := newTestEngine(t)
	l := leave.NewLedger()
	require.NoError(t, l.AddEmployee("emp-1", leave.NewDate(2024, time.November, 1)))

	result, err := engine.ProcessYearEndCarryover(l, "emp-1", 2024, 2025)
	require.NoError(t, err)

	assert.True(t, result.NewGrantDays.IsZero())
	grants, err := l.Grants("emp-1")
	require.NoError(t, err)
	assert.Empty(t, grants, "no zero-day grant rows")
}

func TestCarryover_HiredAfterPeriodStart_ZeroSeniority(t *testing.T) {
	engine := newTestEngine(t)
	l := leave.NewLedger()
	require.NoError(t, l.AddEmployee("emp-1", leave.NewDate(2025, time.March, 1)))

	result, err := engine.ProcessYearEndCarryover(l, "emp-1", 2024, 2025)
	require.NoError(t, err)
	assert.True(t, result.SeniorityYears.IsZero())
	assert.True(t, result.NewGrantDays.IsZero())
}

// =============================================================================
// EXPIRATION
// =============================================================================

func TestCarryover_ExpiresGrantsPastAgeLimit(t *testing.T) {
	// GIVEN: Grants for 2022, 2023, 2024 and a 2-year carry-over limit
	// WHEN: Running the 2024 -> 2025 transition
	// THEN: The 2022 grant expires, its remaining 4 days forfeited; the
	//       grant row is retained for history

	engine := newTestEngine(t)
	l := leave.NewLedger()
	seedEmployee(t, l, "emp-1", leave.NewDate(2015, time.January, 21),
		activeGrant(t, 2022, leave.Days(10), leave.Days(6)),
		activeGrant(t, 2023, leave.Days(10), leave.Days(8)),
		activeGrant(t, 2024, leave.Days(10), leave.Days(9)))

	result, err := engine.ProcessYearEndCarryover(l, "emp-1", 2024, 2025)
	require.NoError(t, err)

	require.Len(t, result.Expired, 1)
	assert.Equal(t, 2022, result.Expired[0].FiscalYear)
	assertDecimalEqual(t, leave.Days(4), result.Expired[0].Forfeited)

	grants, err := l.Grants("emp-1")
	require.NoError(t, err)
	require.Len(t, grants, 4, "expired grant retained, new grant added")
	assert.Equal(t, leave.GrantExpired, grants[0].State)
	assert.Equal(t, leave.GrantActive, grants[1].State)
}

func TestCarryover_ExhaustedGrantNotReExpired(t *testing.T) {
	// An exhausted grant past the age limit has nothing to forfeit and
	// its state is terminal.
	engine := newTestEngine(t)
	l := leave.NewLedger()
	seedEmployee(t, l, "emp-1", leave.NewDate(2015, time.January, 21),
		activeGrant(t, 2022, leave.Days(10), leave.Days(10)), // exhausted
		activeGrant(t, 2024, leave.Days(10), leave.Days(0)))

	result, err := engine.ProcessYearEndCarryover(l, "emp-1", 2024, 2025)
	require.NoError(t, err)
	assert.Empty(t, result.Expired)

	grants, err := l.Grants("emp-1")
	require.NoError(t, err)
	assert.Equal(t, leave.GrantExhausted, grants[0].State)
}

// =============================================================================
// ACCUMULATION CAP
// =============================================================================

func TestCarryover_AccumulationCapReportedNotTruncated(t *testing.T) {
	// GIVEN: 40 remaining days across two untouched 20-day grants
	// WHEN: The new year adds another 20-day grant
	// THEN: The 20-day excess over the 40-day cap is reported as
	//       forfeited, but no grant is truncated

	engine := newTestEngine(t)
	l := leave.NewLedger()
	seedEmployee(t, l, "emp-1", leave.NewDate(2010, time.January, 21),
		activeGrant(t, 2023, leave.Days(20), leave.Days(0)),
		activeGrant(t, 2024, leave.Days(20), leave.Days(0)))

	result, err := engine.ProcessYearEndCarryover(l, "emp-1", 2024, 2025)
	require.NoError(t, err)

	assertDecimalEqual(t, leave.Days(20), result.NewGrantDays)
	assertDecimalEqual(t, leave.Days(20), result.ForfeitedExcess)

	total, err := l.TotalRemaining("emp-1")
	require.NoError(t, err)
	assertDecimalEqual(t, leave.Days(60), total)
}

// =============================================================================
// IDEMPOTENCE
// =============================================================================

func TestCarryover_Idempotent(t *testing.T) {
	// GIVEN: A completed 2024 -> 2025 transition
	// WHEN: Running the same transition again with no intervening
	//       deductions
	// THEN: The run reports AlreadyProcessed and the ledger is identical

	engine := newTestEngine(t)
	l := leave.NewLedger()
	seedEmployee(t, l, "emp-1", leave.NewDate(2023, time.July, 21),
		activeGrant(t, 2024, leave.Days(10), leave.Days(3)))

	first, err := engine.ProcessYearEndCarryover(l, "emp-1", 2024, 2025)
	require.NoError(t, err)
	require.False(t, first.AlreadyProcessed)

	before, err := l.Grants("emp-1")
	require.NoError(t, err)

	second, err := engine.ProcessYearEndCarryover(l, "emp-1", 2024, 2025)
	require.NoError(t, err)
	assert.True(t, second.AlreadyProcessed)
	assertDecimalEqual(t, first.NewGrantDays, second.NewGrantDays)

	after, err := l.Grants("emp-1")
	require.NoError(t, err)
	assert.Equal(t, before, after, "repeat run must not change the ledger")
}

// =============================================================================
// ARGUMENT VALIDATION
// =============================================================================

func TestCarryover_InvalidYears(t *testing.T) {
	engine := newTestEngine(t)
	l := leave.NewLedger()
	require.NoError(t, l.AddEmployee("emp-1", leave.NewDate(2020, time.April, 1)))

	cases := []struct {
		name     string
		from, to int
	}{
		{"target not after source", 2025, 2025},
		{"target before source", 2025, 2024},
		{"non-positive source", 0, 2025},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.ProcessYearEndCarryover(l, "emp-1", tc.from, tc.to)
			assert.ErrorIs(t, err, leave.ErrInvalidArgument)
		})
	}
}

// =============================================================================
// END-TO-END LIFECYCLE
// =============================================================================

func TestLifecycle_HireGrantDeductCarryover(t *testing.T) {
	// Walks a new hire through the first eighteen months:
	//   hire Jul 21 2023 -> 10-day grant at 6 months -> use 3 days ->
	//   year-end: 11-day grant, 7 days carried

	engine := newTestEngine(t)
	l := leave.NewLedger()
	require.NoError(t, l.AddEmployee("emp-1", leave.NewDate(2023, time.July, 21)))

	// Six-month anniversary falls on the fiscal 2024 period start.
	grant, err := engine.IssueInitialGrant(l, "emp-1", leave.NewDate(2024, time.January, 21))
	require.NoError(t, err)
	assert.Equal(t, 2024, grant.FiscalYear)
	assertDecimalEqual(t, leave.Days(10), grant.Granted)

	_, err = engine.ApplyDeduction(l, "emp-1", leave.Days(3), 2024)
	require.NoError(t, err)

	result, err := engine.ProcessYearEndCarryover(l, "emp-1", 2024, 2025)
	require.NoError(t, err)
	assertDecimalEqual(t, leave.Days(11), result.NewGrantDays)
	assertDecimalEqual(t, leave.Days(7), result.CarriedRemaining)

	// The next deduction draws from the new grant first.
	ded, err := engine.ApplyDeduction(l, "emp-1", leave.Days(2), 2025)
	require.NoError(t, err)
	require.Len(t, ded.Lines, 1)
	assert.Equal(t, 2025, ded.Lines[0].FiscalYear)
}

func TestIssueInitialGrant_BelowThreshold_Rejected(t *testing.T) {
	engine := newTestEngine(t)
	l := leave.NewLedger()
	require.NoError(t, l.AddEmployee("emp-1", leave.NewDate(2024, time.January, 1)))

	_, err := engine.IssueInitialGrant(l, "emp-1", leave.NewDate(2024, time.March, 1))
	assert.ErrorIs(t, err, leave.ErrInvalidArgument)
}
