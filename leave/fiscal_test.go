package leave_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kintai/leave-engine/leave"
)

func defaultCalendar() leave.FiscalCalendar {
	return leave.NewFiscalCalendar(leave.DefaultFiscalConfig())
}

// =============================================================================
// FISCAL YEAR RESOLUTION
// =============================================================================

func TestFiscalCalendar_YearPeriod(t *testing.T) {
	// GIVEN: The default January / 21st convention
	// WHEN: Resolving fiscal year 2025
	// THEN: The period runs Jan 21 2025 through Jan 20 2026

	p := defaultCalendar().YearPeriod(2025)
	assert.Equal(t, "2025-01-21", p.Start.String())
	assert.Equal(t, "2026-01-20", p.End.String())
}

func TestFiscalCalendar_BoundaryDays(t *testing.T) {
	cal := defaultCalendar()

	cases := []struct {
		date string
		want int
	}{
		{"2025-01-20", 2024}, // last day of the old year
		{"2025-01-21", 2025}, // first day of the new year
		{"2025-12-31", 2025},
		{"2026-01-01", 2025},
	}
	for _, tc := range cases {
		d, err := leave.ParseDate(tc.date)
		require.NoError(t, err)
		assert.Equal(t, tc.want, cal.FiscalYearOf(d), "date %s", tc.date)
	}
}

func TestFiscalCalendar_PeriodForIsInverseOfYearPeriod(t *testing.T) {
	// Every day of a fiscal year's period must resolve back to that year.
	cal := defaultCalendar()
	p := cal.YearPeriod(2024)

	for _, d := range []leave.Date{p.Start, p.Start.AddDays(100), p.End} {
		got, fy := cal.PeriodFor(d)
		assert.Equal(t, 2024, fy, "date %s", d)
		assert.Equal(t, p, got, "date %s", d)
	}
}

func TestFiscalCalendar_NonJanuaryStart(t *testing.T) {
	cfg := leave.DefaultFiscalConfig()
	cfg.FiscalYearStartMonth = time.April
	cal := leave.NewFiscalCalendar(cfg)

	p := cal.YearPeriod(2025)
	assert.Equal(t, "2025-04-21", p.Start.String())
	assert.Equal(t, "2026-04-20", p.End.String())

	assert.Equal(t, 2024, cal.FiscalYearOf(leave.NewDate(2025, time.April, 20)))
	assert.Equal(t, 2025, cal.FiscalYearOf(leave.NewDate(2025, time.April, 21)))
}

// =============================================================================
// MONTHLY ACCOUNTING WINDOWS
// =============================================================================

func TestFiscalCalendar_MonthPeriodCrossesYearEnd(t *testing.T) {
	// GIVEN: A date in late December
	// WHEN: Resolving its monthly window
	// THEN: The window opens Dec 21 and closes Jan 20 of the next
	//       calendar year

	cal := defaultCalendar()
	p := cal.MonthPeriodFor(leave.NewDate(2024, time.December, 25))
	assert.Equal(t, "2024-12-21", p.Start.String())
	assert.Equal(t, "2025-01-20", p.End.String())

	// A date before the 21st belongs to the window opened last month.
	p = cal.MonthPeriodFor(leave.NewDate(2025, time.January, 10))
	assert.Equal(t, "2024-12-21", p.Start.String())
	assert.Equal(t, "2025-01-20", p.End.String())
}

func TestFiscalCalendar_MonthPeriodContainsLeapDay(t *testing.T) {
	cal := defaultCalendar()
	p := cal.MonthPeriodFor(leave.NewDate(2024, time.February, 29))
	assert.Equal(t, "2024-02-21", p.Start.String())
	assert.Equal(t, "2024-03-20", p.End.String())
	assert.True(t, p.Contains(leave.NewDate(2024, time.February, 29)))
}

// =============================================================================
// GRANT DATES
// =============================================================================

func TestFiscalCalendar_GrantPeriods(t *testing.T) {
	// A fiscal year 2025 grant with 2 carry-over years is usable through
	// fiscal year 2027 and expires at that year's period end.
	grantDate, expirationDate := defaultCalendar().GrantPeriods(2025, 2)
	assert.Equal(t, "2025-01-21", grantDate.String())
	assert.Equal(t, "2028-01-20", expirationDate.String())
}

func TestFiscalConfig_Validate(t *testing.T) {
	require.NoError(t, leave.DefaultFiscalConfig().Validate())

	mutations := []struct {
		name   string
		mutate func(c *leave.FiscalConfig)
	}{
		{"start day past 28", func(c *leave.FiscalConfig) { c.PeriodStartDay = 29; c.PeriodEndDay = 28 }},
		{"end day not start minus one", func(c *leave.FiscalConfig) { c.PeriodEndDay = 19 }},
		{"zero carry-over years", func(c *leave.FiscalConfig) { c.MaxCarryOverYears = 0 }},
		{"non-positive accumulation cap", func(c *leave.FiscalConfig) { c.MaxAccumulatedDays = leave.Days(0) }},
		{"negative minimum use", func(c *leave.FiscalConfig) { c.MinimumAnnualUse = leave.Days(-1) }},
	}
	for _, tc := range mutations {
		t.Run(tc.name, func(t *testing.T) {
			cfg := leave.DefaultFiscalConfig()
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), leave.ErrConfiguration)
		})
	}
}
