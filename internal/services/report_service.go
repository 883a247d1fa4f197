package services

import (
	"context"
	"fmt"
	"time"

	"github.com/haya4M/cattle-fin-mobile/internal/report"
	"github.com/haya4M/cattle-fin-mobile/internal/storage"
)

// ReportService loads a snapshot and runs the reporting engine over it. The
// clock is injectable so the forecast's realized/projected split is testable.
type ReportService struct {
	storage *storage.SQLiteRepository
	now     func() time.Time
}

func NewReportService(storage *storage.SQLiteRepository) *ReportService {
	return &ReportService{
		storage: storage,
		now:     time.Now,
	}
}

// BuildReport assembles the full report for the selected years.
func (s *ReportService) BuildReport(ctx context.Context, selectedYears []string) (*report.Report, error) {
	snap, err := s.storage.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	r, err := report.Compute(snap, selectedYears, s.now())
	if err != nil {
		return nil, fmt.Errorf("compute report: %w", err)
	}

	return r, nil
}

// AvailableYears returns the years that have at least one transaction.
func (s *ReportService) AvailableYears(ctx context.Context) ([]string, error) {
	return s.storage.ListYears(ctx)
}
