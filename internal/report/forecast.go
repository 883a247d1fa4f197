package report

import "time"

// forecast projects each calendar month of the current year as the unweighted
// arithmetic mean of the net balances of all past years that have a summary
// for that month. Months with no history produce no point — a missing record
// is never treated as a zero observation. Points at or before the asOf month
// are flagged realized; the mean itself is the same on both sides.
//
// The method is intentionally a plain historical average, not a trend fit or
// regression.
func forecast(summaries []MonthlySummary, asOf time.Time) []ForecastPoint {
	currentYear := asOf.Year()
	currentMonth := int(asOf.Month())

	sums := make(map[int]float64, 12)
	counts := make(map[int]int, 12)
	for _, s := range summaries {
		if s.Year >= currentYear {
			continue
		}
		sums[s.Month] += s.NetBalance.Units()
		counts[s.Month]++
	}

	var points []ForecastPoint
	for month := 1; month <= 12; month++ {
		n := counts[month]
		if n == 0 {
			continue
		}
		points = append(points, ForecastPoint{
			Month:        month,
			ProjectedNet: sums[month] / float64(n),
			Realized:     month <= currentMonth,
		})
	}
	return points
}
