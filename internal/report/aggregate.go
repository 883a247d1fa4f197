package report

import (
	"sort"
	"strconv"

	"github.com/haya4M/cattle-fin-mobile/internal/core"
)

type monthTotals struct {
	income  int64
	expense int64
}

// aggregateMonthly groups transactions of the selected years by (year, month)
// and sums income and expense separately in integer cents. Only months with
// at least one transaction appear in the result, sorted by (year, month)
// ascending. Cent addition is exact, so the result does not depend on the
// order of the input collection.
func aggregateMonthly(txs []core.Transaction, years []string, headcounts map[core.MonthKey]int64) []MonthlySummary {
	selected := make(map[int]struct{}, len(years))
	for _, y := range years {
		// Years are validated by normalizeYears before reaching here.
		yr, _ := strconv.Atoi(y)
		selected[yr] = struct{}{}
	}

	groups := make(map[[2]int]*monthTotals)
	for _, tx := range txs {
		year := tx.Date.Year()
		if _, ok := selected[year]; !ok {
			continue
		}
		key := [2]int{year, int(tx.Date.Month())}
		g, ok := groups[key]
		if !ok {
			g = &monthTotals{}
			groups[key] = g
		}
		switch tx.Flow {
		case core.FlowIncome:
			g.income += tx.Amount.Cents
		case core.FlowExpense:
			g.expense += tx.Amount.Cents
		}
	}

	keys := make([][2]int, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	summaries := make([]MonthlySummary, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		s := MonthlySummary{
			Year:         k[0],
			Month:        k[1],
			IncomeTotal:  core.Money{Cents: g.income},
			ExpenseTotal: core.Money{Cents: g.expense},
			NetBalance:   core.Money{Cents: g.income - g.expense},
		}
		if hc, ok := headcounts[core.NewMonthKey(k[0], k[1])]; ok {
			count := hc
			s.Headcount = &count
			if count > 0 {
				perHead := s.NetBalance.Units() / float64(count)
				s.PerHeadNet = &perHead
			}
		}
		summaries = append(summaries, s)
	}
	return summaries
}
