package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-tracker/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

// EmployeeRepository is an employee.Directory over the employees table.
type EmployeeRepository struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// Upsert inserts or replaces a directory entry.
func (e *EmployeeRepository) Upsert(ctx context.Context, emp employee.Employee) error {
	q := GetQuerier(ctx, e.db)

	query := `
		INSERT INTO employees (user_id, full_name, department, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			department = EXCLUDED.department,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
	`

	if _, err := q.Exec(ctx, query, emp.UserID, emp.FullName, emp.Department, emp.IsActive); err != nil {
		return fmt.Errorf("failed to upsert employee %s: %w", emp.UserID, err)
	}
	return nil
}

// GetDepartment implements employee.Directory.
func (e *EmployeeRepository) GetDepartment(ctx context.Context, userID string) (string, error) {
	q := GetQuerier(ctx, e.db)

	var department string
	err := q.QueryRow(ctx, `SELECT department FROM employees WHERE user_id = $1`, userID).Scan(&department)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", employee.ErrEmployeeNotFound
		}
		return "", fmt.Errorf("failed to get department for user %s: %w", userID, err)
	}
	return department, nil
}

// ListDepartments implements employee.Directory.
func (e *EmployeeRepository) ListDepartments(ctx context.Context) ([]string, error) {
	q := GetQuerier(ctx, e.db)

	rows, err := q.Query(ctx, `SELECT DISTINCT department FROM employees WHERE department <> '' ORDER BY department`)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}

	departments, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan departments: %w", err)
	}
	return departments, nil
}

// ListActive implements employee.Directory.
func (e *EmployeeRepository) ListActive(ctx context.Context) ([]employee.Employee, error) {
	return e.list(ctx, `WHERE is_active = TRUE`)
}

// ListByDepartment implements employee.Directory.
func (e *EmployeeRepository) ListByDepartment(ctx context.Context, department string) ([]employee.Employee, error) {
	return e.list(ctx, `WHERE department = $1`, department)
}

func (e *EmployeeRepository) list(ctx context.Context, where string, args ...any) ([]employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT user_id, full_name, department, is_active FROM employees ` + where + ` ORDER BY user_id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	employees := make([]employee.Employee, 0)
	for rows.Next() {
		var emp employee.Employee
		if err := rows.Scan(&emp.UserID, &emp.FullName, &emp.Department, &emp.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}
