package services

import (
	"context"
	"testing"
	"time"

	"github.com/haya4M/cattle-fin-mobile/internal/core"
)

func TestReportService_BuildReport(t *testing.T) {
	repo := newTestStorage(t)
	ctx := context.Background()

	entries := []core.Transaction{
		{Date: core.NewDate(2023, 1, 10), Category: "feed", Flow: core.FlowExpense, Amount: core.Money{Cents: 100000}},
		{Date: core.NewDate(2023, 1, 20), Category: "cattle_sale", Flow: core.FlowIncome, Amount: core.Money{Cents: 300000}},
		{Date: core.NewDate(2024, 1, 5), Category: "feed", Flow: core.FlowExpense, Amount: core.Money{Cents: 200000}},
		{Date: core.NewDate(2024, 1, 25), Category: "cattle_sale", Flow: core.FlowIncome, Amount: core.Money{Cents: 500000}},
	}
	for _, e := range entries {
		if _, err := repo.CreateTransaction(ctx, e); err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
	}
	if err := repo.UpsertHeadcount(ctx, core.HeadcountRecord{MonthKey: "2024-01", Headcount: 10}); err != nil {
		t.Fatalf("UpsertHeadcount() error = %v", err)
	}

	service := NewReportService(repo)
	service.now = func() time.Time {
		return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	}

	r, err := service.BuildReport(ctx, []string{"2023", "2024"})
	if err != nil {
		t.Fatalf("BuildReport() error = %v", err)
	}

	if len(r.Summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(r.Summaries))
	}
	if r.Summaries[0].NetBalance.Units() != 2000 || r.Summaries[1].NetBalance.Units() != 3000 {
		t.Errorf("nets = %v and %v, want 2000 and 3000",
			r.Summaries[0].NetBalance.Units(), r.Summaries[1].NetBalance.Units())
	}
	if len(r.PerHead) != 1 || r.PerHead[0].PerHeadNet != 300.0 {
		t.Errorf("per-head = %+v, want one point of 300", r.PerHead)
	}
	if len(r.YoY) != 1 || r.YoY[0].PercentChange != 50.0 {
		t.Errorf("YoY = %+v, want Jan +50%%", r.YoY)
	}
	if len(r.Forecast) != 1 || r.Forecast[0].ProjectedNet != 2000 || !r.Forecast[0].Realized {
		t.Errorf("forecast = %+v, want realized Jan projection of 2000", r.Forecast)
	}

	years, err := service.AvailableYears(ctx)
	if err != nil {
		t.Fatalf("AvailableYears() error = %v", err)
	}
	if len(years) != 2 || years[0] != "2023" || years[1] != "2024" {
		t.Errorf("AvailableYears() = %v, want [2023 2024]", years)
	}
}

func TestReportService_EmptySelection(t *testing.T) {
	repo := newTestStorage(t)
	service := NewReportService(repo)

	r, err := service.BuildReport(context.Background(), nil)
	if err != nil {
		t.Fatalf("BuildReport() error = %v", err)
	}
	if !r.SelectionRequired {
		t.Error("SelectionRequired = false for empty selection")
	}
}
