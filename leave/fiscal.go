/*
fiscal.go - Fiscal period resolution (21st-to-20th convention)

PURPOSE:
  Leave accounting does not follow the calendar year. Periods open on a
  configured day of month (the 21st) and close on the 20th of the next
  month; the fiscal year is the twelve such periods starting at the
  configured month. The resolver maps any date to its bounding fiscal
  year, and back.

BOUNDARIES:
  A monthly period that opens December 21 closes January 20 of the
  following calendar year. Fiscal year N with a January start runs
  Jan 21 of year N through Jan 20 of year N+1. Leap days fall inside
  whatever period contains them; no special casing is needed because
  all math is done with calendar arithmetic, never day-count division.
*/
package leave

import "time"

// FiscalCalendar resolves dates to fiscal periods and years.
// Construct one from a validated FiscalConfig.
type FiscalCalendar struct {
	startMonth time.Month
	startDay   int
}

// NewFiscalCalendar builds a calendar from the configuration.
func NewFiscalCalendar(cfg FiscalConfig) FiscalCalendar {
	return FiscalCalendar{startMonth: cfg.FiscalYearStartMonth, startDay: cfg.PeriodStartDay}
}

// YearPeriod returns the bounding period of a fiscal year: from the
// start day of the start month to the day before the next fiscal year
// opens. This is the inverse of PeriodFor.
func (c FiscalCalendar) YearPeriod(fiscalYear int) Period {
	start := NewDate(fiscalYear, c.startMonth, c.startDay)
	return Period{Start: start, End: start.AddYears(1).AddDays(-1)}
}

// PeriodFor returns the fiscal-year period containing the date and its
// fiscal year number.
func (c FiscalCalendar) PeriodFor(d Date) (Period, int) {
	fy := d.Year()
	if d.Before(NewDate(fy, c.startMonth, c.startDay)) {
		fy--
	}
	return c.YearPeriod(fy), fy
}

// FiscalYearOf is PeriodFor without the period.
func (c FiscalCalendar) FiscalYearOf(d Date) int {
	_, fy := c.PeriodFor(d)
	return fy
}

// MonthPeriodFor returns the monthly accounting window containing the
// date: the 21st of one month through the 20th of the next.
func (c FiscalCalendar) MonthPeriodFor(d Date) Period {
	start := NewDate(d.Year(), d.Month(), c.startDay)
	if d.Day() < c.startDay {
		start = start.AddMonths(-1)
	}
	return Period{Start: start, End: start.AddMonths(1).AddDays(-1)}
}

// GrantPeriods computes the grant and expiration dates for a fiscal
// year's grant: issued at the year's period start, expiring when the
// grant has outlived maxCarryOverYears further fiscal years.
func (c FiscalCalendar) GrantPeriods(fiscalYear, maxCarryOverYears int) (grantDate, expirationDate Date) {
	grantDate = c.YearPeriod(fiscalYear).Start
	expirationDate = c.YearPeriod(fiscalYear + maxCarryOverYears).End
	return grantDate, expirationDate
}
