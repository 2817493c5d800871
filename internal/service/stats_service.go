package service

import (
	"context"

	"github.com/spec-kit/civic-issue-service/internal/domain"
	"github.com/spec-kit/civic-issue-service/internal/repository"
	apperrors "github.com/spec-kit/civic-issue-service/pkg/util"
)

// DashboardStats backs the admin dashboard counters.
type DashboardStats struct {
	IssuesByStatus map[domain.IssueStatus]int
	TotalIssues    int
	TotalCitizens  int
	TotalStaff     int
	TotalRevenue   int64
}

// StatsService aggregates read-only figures across stores.
type StatsService struct {
	issues   repository.IssueRepository
	accounts repository.AccountRepository
	payments repository.PaymentRepository
}

// NewStatsService constructs the service.
func NewStatsService(issues repository.IssueRepository, accounts repository.AccountRepository, payments repository.PaymentRepository) *StatsService {
	return &StatsService{issues: issues, accounts: accounts, payments: payments}
}

// Dashboard assembles counters for the admin view.
func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	byStatus, err := s.issues.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	total := 0
	for _, count := range byStatus {
		total += count
	}

	citizens, err := s.accounts.CountByRole(ctx, domain.RoleCitizen)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	staff, err := s.accounts.CountByRole(ctx, domain.RoleStaff)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	_, revenue, err := s.payments.ListAll(ctx, 1, 0)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	return &DashboardStats{
		IssuesByStatus: byStatus,
		TotalIssues:    total,
		TotalCitizens:  citizens,
		TotalStaff:     staff,
		TotalRevenue:   revenue,
	}, nil
}
