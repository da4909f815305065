package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-tracker/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-tracker/internal/domain/stats"
	"golang.org/x/sync/errgroup"
)

const (
	topUsersLimit     = 10
	lookupConcurrency = 8
)

type StatsServiceImpl struct {
	attendanceRepo attendance.AttendanceRepository
	directory      employee.Directory
	loc            *time.Location
	now            func() time.Time
}

func NewStatsService(
	attendanceRepo attendance.AttendanceRepository,
	directory employee.Directory,
	loc *time.Location,
	clock func() time.Time,
) stats.StatsService {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	return &StatsServiceImpl{
		attendanceRepo: attendanceRepo,
		directory:      directory,
		loc:            loc,
		now:            clock,
	}
}

// resolveDepartments looks up the department of every distinct user in records.
// Users the directory does not know map to the unassigned bucket.
func (s *StatsServiceImpl) resolveDepartments(ctx context.Context, records []attendance.Attendance) (DepartmentLookup, error) {
	users := make(map[string]struct{})
	for _, r := range records {
		users[r.UserID] = struct{}{}
	}

	var (
		mu          sync.Mutex
		departments = make(map[string]string, len(users))
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for userID := range users {
		userID := userID
		g.Go(func() error {
			dept, err := s.directory.GetDepartment(gCtx, userID)
			if err != nil && !errors.Is(err, employee.ErrEmployeeNotFound) {
				return fmt.Errorf("failed to get department of %s: %w", userID, err)
			}
			mu.Lock()
			departments[userID] = dept
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return func(userID string) string { return departments[userID] }, nil
}

// load fetches the records selected by the query, narrowed by user and department.
func (s *StatsServiceImpl) load(ctx context.Context, from, to time.Time, userID, department *string) ([]attendance.Attendance, DepartmentLookup, error) {
	rq := attendance.RangeQuery{
		From: attendance.DateOnly(from, s.loc),
		To:   attendance.DateOnly(to, s.loc),
	}
	if userID != nil && *userID != "" {
		rq.UserIDs = []string{*userID}
	}

	records, err := s.attendanceRepo.ListInRange(ctx, rq)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load attendance records: %w", err)
	}

	lookup, err := s.resolveDepartments(ctx, records)
	if err != nil {
		return nil, nil, err
	}

	if department != nil && *department != "" {
		filtered := records[:0:0]
		for _, r := range records {
			if departmentOf(lookup, r.UserID) == *department {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	return records, lookup, nil
}

func (s *StatsServiceImpl) loadQuery(ctx context.Context, q stats.StatsQuery) ([]attendance.Attendance, DepartmentLookup, error) {
	if err := q.Validate(); err != nil {
		return nil, nil, err
	}
	return s.load(ctx, q.From, q.To, q.UserID, q.Department)
}

// GetSummary implements stats.StatsService.
func (s *StatsServiceImpl) GetSummary(ctx context.Context, q stats.StatsQuery) (stats.Summary, error) {
	records, _, err := s.loadQuery(ctx, q)
	if err != nil {
		return stats.Summary{}, err
	}
	return Summarize(records), nil
}

// GetDaily implements stats.StatsService.
func (s *StatsServiceImpl) GetDaily(ctx context.Context, q stats.StatsQuery) ([]stats.DailySummary, error) {
	records, _, err := s.loadQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	return GroupByDay(records), nil
}

// GetWeekly implements stats.StatsService.
func (s *StatsServiceImpl) GetWeekly(ctx context.Context, q stats.StatsQuery) ([]stats.PeriodSummary, error) {
	records, _, err := s.loadQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	return GroupByWeek(records), nil
}

// GetUserRanking implements stats.StatsService.
func (s *StatsServiceImpl) GetUserRanking(ctx context.Context, q stats.StatsQuery) ([]stats.UserSummary, error) {
	records, _, err := s.loadQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	return RankUsers(GroupByUser(records)), nil
}

// GetDepartments implements stats.StatsService.
func (s *StatsServiceImpl) GetDepartments(ctx context.Context, q stats.StatsQuery) ([]stats.DepartmentSummary, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var (
		records     []attendance.Attendance
		lookup      DepartmentLookup
		departments []string
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		records, lookup, err = s.load(gCtx, q.From, q.To, q.UserID, q.Department)
		return err
	})

	g.Go(func() error {
		var err error
		departments, err = s.directory.ListDepartments(gCtx)
		if err != nil {
			return fmt.Errorf("failed to list departments: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if q.Department != nil && *q.Department != "" {
		departments = []string{*q.Department}
	}

	return SortDepartments(GroupByDepartment(records, lookup, departments)), nil
}

// GetMonthlyTrend implements stats.StatsService.
func (s *StatsServiceImpl) GetMonthlyTrend(ctx context.Context, req stats.TrendRequest) ([]stats.PeriodSummary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	from, to := TrendWindow(now, req.MonthsBack)

	records, _, err := s.load(ctx, from, to, req.UserID, req.Department)
	if err != nil {
		return nil, err
	}
	return MonthlyTrend(records, now, req.MonthsBack), nil
}

// GetOverview implements stats.StatsService.
func (s *StatsServiceImpl) GetOverview(ctx context.Context, q stats.StatsQuery) (stats.OverviewResponse, error) {
	if err := q.Validate(); err != nil {
		return stats.OverviewResponse{}, err
	}

	var (
		records     []attendance.Attendance
		lookup      DepartmentLookup
		departments []string
	)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Records in range with their departments resolved
	g.Go(func() error {
		var err error
		records, lookup, err = s.load(gCtx, q.From, q.To, q.UserID, q.Department)
		return err
	})

	// 2. Known departments so empty ones still show up
	g.Go(func() error {
		var err error
		departments, err = s.directory.ListDepartments(gCtx)
		if err != nil {
			return fmt.Errorf("failed to list departments: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return stats.OverviewResponse{}, err
	}

	ranking := RankUsers(GroupByUser(records))
	if len(ranking) > topUsersLimit {
		ranking = ranking[:topUsersLimit]
	}

	return stats.OverviewResponse{
		StartDate:   q.StartDate,
		EndDate:     q.EndDate,
		Summary:     Summarize(records),
		Daily:       GroupByDay(records),
		Departments: SortDepartments(GroupByDepartment(records, lookup, departments)),
		TopUsers:    ranking,
	}, nil
}
