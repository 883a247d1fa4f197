package report

import "strconv"

// yearOverYear compares net balances month by month between the two most
// recent selected years. A month contributes a point only when both years
// have a summary and the prior year's net balance is nonzero; division by a
// zero or missing denominator is a defined exclusion, not an error.
func yearOverYear(summaries []MonthlySummary, currentYear, priorYear string) []YearOverYearPoint {
	cur, _ := strconv.Atoi(currentYear)
	prior, _ := strconv.Atoi(priorYear)

	curNet := make(map[int]float64, 12)
	priorNet := make(map[int]float64, 12)
	for _, s := range summaries {
		switch s.Year {
		case cur:
			curNet[s.Month] = s.NetBalance.Units()
		case prior:
			priorNet[s.Month] = s.NetBalance.Units()
		}
	}

	var points []YearOverYearPoint
	for month := 1; month <= 12; month++ {
		c, okCur := curNet[month]
		p, okPrior := priorNet[month]
		if !okCur || !okPrior || p == 0 {
			continue
		}
		points = append(points, YearOverYearPoint{
			Month:         month,
			CurrentNet:    c,
			PriorNet:      p,
			PercentChange: (c/p - 1) * 100,
		})
	}
	return points
}
