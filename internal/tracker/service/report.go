package service

import (
	"context"

	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
	"github.com/aussiebroadwan/progressiq/internal/tracker/store"
)

type ReportService struct {
	Store store.Store
}

// Summary counts accounts by role and tasks by status.
func (s *ReportService) Summary(ctx context.Context) (domain.Summary, error) {
	accounts, err := s.Store.Accounts().CountByRole(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	byStatus, err := s.Store.Tasks().CountByStatus(ctx)
	if err != nil {
		return domain.Summary{}, err
	}

	for _, r := range domain.Roles() {
		if _, ok := accounts[r]; !ok {
			accounts[r] = 0
		}
	}

	var stats domain.TaskStats
	for status, n := range byStatus {
		stats.Total += n
		switch status {
		case domain.StatusSubmitted:
			stats.Submitted += n
		case domain.StatusCompleted:
			stats.Completed += n
		default:
			stats.Active += n
		}
	}
	stats.PercentComplete = domain.Percent(stats.Completed, stats.Total)

	return domain.Summary{Accounts: accounts, Tasks: stats}, nil
}
