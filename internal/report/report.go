// Package report turns a point-in-time snapshot of transactions and headcount
// records into the derived series used for reporting: monthly income/expense
// totals, per-head normalized results, year-over-year comparison, and a naive
// seasonal forecast.
//
// Everything here is pure: the snapshot and the reference time come in as
// parameters, the report comes out, and nothing is kept between calls. The
// same inputs always produce the same report, regardless of the order of the
// input collections.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/haya4M/cattle-fin-mobile/internal/core"
)

// Snapshot is the already-fetched input the engine computes over. Fetching
// it — and guaranteeing its consistency — is the storage layer's job.
type Snapshot struct {
	Transactions []core.Transaction
	Headcounts   []core.HeadcountRecord
}

// MonthlySummary is the aggregate for one (year, month) group that had at
// least one transaction. Months without activity are never materialized:
// absent means "no activity", which is not the same as an explicit zero.
type MonthlySummary struct {
	Year         int        `json:"year"`
	Month        int        `json:"month"`
	IncomeTotal  core.Money `json:"income_total"`
	ExpenseTotal core.Money `json:"expense_total"`
	NetBalance   core.Money `json:"net_balance"`

	// Headcount is nil when no registry entry exists for the month.
	Headcount *int64 `json:"headcount,omitempty"`

	// PerHeadNet is net balance per animal in whole currency units. It is
	// nil when the headcount is absent or zero; "no livestock recorded" must
	// never read as "zero profit per head".
	PerHeadNet *float64 `json:"per_head_net,omitempty"`
}

// PerHeadPoint is one entry of the per-head series. Months whose per-head
// metric is undefined are excluded from the series entirely.
type PerHeadPoint struct {
	Year       int     `json:"year"`
	Month      int     `json:"month"`
	Headcount  int64   `json:"headcount"`
	PerHeadNet float64 `json:"per_head_net"`
}

// YearOverYearPoint compares one calendar month across the two most recent
// selected years. Months with a zero or missing prior-year net balance are
// skipped, never reported as 0% or infinity.
type YearOverYearPoint struct {
	Month         int     `json:"month"`
	CurrentNet    float64 `json:"current_net"`
	PriorNet      float64 `json:"prior_net"`
	PercentChange float64 `json:"percent_change"`
}

// ForecastPoint projects one calendar month of the current year from the
// unweighted mean of past years' net balances for that month. Realized marks
// points at or before the reference month; the mean is computed identically
// on both sides of the split.
type ForecastPoint struct {
	Month        int     `json:"month"`
	ProjectedNet float64 `json:"projected_net"`
	Realized     bool    `json:"realized"`
}

// Report is the assembled response. The flags make degenerate selections
// explicit so a caller can tell "no data for this selection" apart from
// "component not applicable".
type Report struct {
	SelectedYears []string            `json:"selected_years"`
	Summaries     []MonthlySummary    `json:"monthly_summaries"`
	PerHead       []PerHeadPoint      `json:"per_head_series"`
	YoY           []YearOverYearPoint `json:"yoy_series"`
	Forecast      []ForecastPoint     `json:"forecast_series"`

	// SelectionRequired is set when no years were selected; the caller must
	// surface this as "selection required", not as "no data".
	SelectionRequired bool `json:"selection_required"`

	// YoYApplicable is false when fewer than two years are selected. The
	// comparator is never invoked speculatively with one year.
	YoYApplicable  bool   `json:"yoy_applicable"`
	YoYCurrentYear string `json:"yoy_current_year,omitempty"`
	YoYPriorYear   string `json:"yoy_prior_year,omitempty"`
}

// Compute validates the snapshot and derives the full report for the given
// year selection. asOf supplies the current calendar month for the forecast
// realized/projected split; passing it in keeps the computation pure.
func Compute(snap Snapshot, selectedYears []string, asOf time.Time) (*Report, error) {
	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}

	years, err := normalizeYears(selectedYears)
	if err != nil {
		return nil, err
	}

	r := &Report{SelectedYears: years}
	if len(years) == 0 {
		r.SelectionRequired = true
		return r, nil
	}

	r.Summaries = aggregateMonthly(snap.Transactions, years, headcountByMonth(snap.Headcounts))
	r.PerHead = perHeadSeries(r.Summaries)

	if len(years) >= 2 {
		r.YoYApplicable = true
		r.YoYPriorYear = years[len(years)-2]
		r.YoYCurrentYear = years[len(years)-1]
		r.YoY = yearOverYear(r.Summaries, r.YoYCurrentYear, r.YoYPriorYear)
	}

	r.Forecast = forecast(r.Summaries, asOf)

	return r, nil
}

// validateSnapshot rejects malformed records before any aggregation runs.
// Degenerate selections are not errors; malformed input is.
func validateSnapshot(snap Snapshot) error {
	for _, tx := range snap.Transactions {
		if err := tx.Amount.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %w", tx.ID, err)
		}
		if err := tx.Flow.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %w", tx.ID, err)
		}
		if err := tx.Date.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %w", tx.ID, err)
		}
	}
	for _, hc := range snap.Headcounts {
		if err := hc.Validate(); err != nil {
			return fmt.Errorf("headcount %q: %w", hc.MonthKey, err)
		}
	}
	return nil
}

// normalizeYears trims, deduplicates, and sorts the selection ascending so
// the two most recent years are always the last two.
func normalizeYears(selected []string) ([]string, error) {
	seen := make(map[string]struct{}, len(selected))
	years := make([]string, 0, len(selected))
	for _, y := range selected {
		y = strings.TrimSpace(y)
		if y == "" {
			continue
		}
		if _, err := strconv.Atoi(y); err != nil || len(y) != 4 {
			return nil, fmt.Errorf("invalid year selection %q", y)
		}
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	sort.Strings(years)
	return years, nil
}

func headcountByMonth(records []core.HeadcountRecord) map[core.MonthKey]int64 {
	idx := make(map[core.MonthKey]int64, len(records))
	for _, hc := range records {
		idx[hc.MonthKey] = hc.Headcount
	}
	return idx
}
