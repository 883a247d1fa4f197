package report

// perHeadSeries extracts the months whose per-head metric is defined. A month
// with an absent or zero headcount simply does not appear here — rendering it
// as zero would conflate "no livestock recorded" with "zero profit per head".
func perHeadSeries(summaries []MonthlySummary) []PerHeadPoint {
	points := make([]PerHeadPoint, 0, len(summaries))
	for _, s := range summaries {
		if s.PerHeadNet == nil || s.Headcount == nil {
			continue
		}
		points = append(points, PerHeadPoint{
			Year:       s.Year,
			Month:      s.Month,
			Headcount:  *s.Headcount,
			PerHeadNet: *s.PerHeadNet,
		})
	}
	return points
}
