package insights

import (
	"github.com/shopspring/decimal"

	"smartspend/internal/core"
)

// ProjectionDay is the day-of-month the fitted line is evaluated at.
const ProjectionDay = 30

// RunwayKind tells how the runway estimate should be read.
type RunwayKind string

const (
	RunwayDays        RunwayKind = "days"
	RunwayExceeded    RunwayKind = "exceeded"
	RunwayUnavailable RunwayKind = "unavailable"
)

// Runway is the number of days the remaining budget lasts at the current
// average rate. Days is only meaningful for RunwayDays.
type Runway struct {
	Kind RunwayKind `json:"kind" yaml:"kind"`
	Days int64      `json:"days,omitempty" yaml:"days,omitempty"`
}

// Projection is the month-end estimate and runway for a ledger.
type Projection struct {
	// HasMonthEnd is false when every record falls on the same day of the
	// month and no line can be fitted.
	HasMonthEnd bool    `json:"has_month_end" yaml:"has_month_end"`
	MonthEnd    float64 `json:"month_end" yaml:"month_end"`
	Slope       float64 `json:"slope" yaml:"slope"`
	Intercept   float64 `json:"intercept" yaml:"intercept"`
	Runway      Runway  `json:"runway" yaml:"runway"`
}

// Project fits amount against day-of-month with ordinary least squares and
// evaluates the line at ProjectionDay. The runway divides the remaining
// budget by the per-record average, treating it as a daily rate.
// ok is false for ledgers with ten or fewer records.
func Project(ledger []core.Expense, budget decimal.Decimal) (Projection, bool) {
	if len(ledger) < MinRecordsForProjection {
		return Projection{}, false
	}

	var p Projection
	if slope, intercept, fitted := fitLine(ledger); fitted {
		p.HasMonthEnd = true
		p.Slope = slope
		p.Intercept = intercept
		p.MonthEnd = intercept + slope*ProjectionDay
	}
	p.Runway = runway(ledger, budget)
	return p, true
}

func fitLine(ledger []core.Expense) (slope, intercept float64, ok bool) {
	var sumX, sumY, sumXY, sumX2 float64
	days := make(map[int]struct{}, len(ledger))
	for _, e := range ledger {
		x := float64(e.Date.Day())
		y, _ := e.Amount.Float64()
		days[e.Date.Day()] = struct{}{}
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	if len(days) < 2 {
		return 0, 0, false
	}
	n := float64(len(ledger))
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, 0, false
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept, true
}

func runway(ledger []core.Expense, budget decimal.Decimal) Runway {
	avg := mean(ledger)
	if !avg.IsPositive() {
		return Runway{Kind: RunwayUnavailable}
	}
	days := budget.Sub(Total(ledger)).Div(avg).Floor().IntPart()
	if days > 0 {
		return Runway{Kind: RunwayDays, Days: days}
	}
	return Runway{Kind: RunwayExceeded}
}
