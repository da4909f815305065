package stats

import "context"

// StatsService produces read-only attendance aggregates
type StatsService interface {
	GetSummary(ctx context.Context, q StatsQuery) (Summary, error)
	GetDaily(ctx context.Context, q StatsQuery) ([]DailySummary, error)
	GetWeekly(ctx context.Context, q StatsQuery) ([]PeriodSummary, error)

	// GetUserRanking returns per-user summaries sorted by attendance percentage, highest first
	GetUserRanking(ctx context.Context, q StatsQuery) ([]UserSummary, error)

	// GetDepartments returns every known department, including ones without records
	GetDepartments(ctx context.Context, q StatsQuery) ([]DepartmentSummary, error)

	// GetMonthlyTrend returns the trailing months, oldest first
	GetMonthlyTrend(ctx context.Context, req TrendRequest) ([]PeriodSummary, error)

	GetOverview(ctx context.Context, q StatsQuery) (OverviewResponse, error)
}
