package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-tracker/internal/pkg/database"
)

// Directory is an employee.Directory over the employees table.
type Directory struct {
	db     *sql.DB
	writer *database.Worker
}

func NewDirectory(db *sql.DB, writer *database.Worker) *Directory {
	return &Directory{db: db, writer: writer}
}

// Upsert inserts or replaces a directory entry.
func (d *Directory) Upsert(ctx context.Context, e employee.Employee) error {
	return d.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO employees(user_id, full_name, department, is_active) VALUES (?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
  full_name = excluded.full_name,
  department = excluded.department,
  is_active = excluded.is_active;
`, e.UserID, e.FullName, e.Department, boolInt(e.IsActive)); err != nil {
			return fmt.Errorf("Upsert employee %s: %w", e.UserID, err)
		}
		return nil
	})
}

// GetDepartment implements employee.Directory.
func (d *Directory) GetDepartment(ctx context.Context, userID string) (string, error) {
	var department string
	err := d.db.QueryRowContext(ctx, "SELECT department FROM employees WHERE user_id = ?;", userID).Scan(&department)
	if errors.Is(err, sql.ErrNoRows) {
		return "", employee.ErrEmployeeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("GetDepartment: %w", err)
	}
	return department, nil
}

// ListDepartments implements employee.Directory.
func (d *Directory) ListDepartments(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT DISTINCT department FROM employees WHERE department <> '' ORDER BY department;")
	if err != nil {
		return nil, fmt.Errorf("ListDepartments: %w", err)
	}
	defer rows.Close()

	departments := make([]string, 0)
	for rows.Next() {
		var dept string
		if err := rows.Scan(&dept); err != nil {
			return nil, fmt.Errorf("ListDepartments scan: %w", err)
		}
		departments = append(departments, dept)
	}
	return departments, rows.Err()
}

// ListActive implements employee.Directory.
func (d *Directory) ListActive(ctx context.Context) ([]employee.Employee, error) {
	return d.list(ctx, "WHERE is_active = 1")
}

// ListByDepartment implements employee.Directory.
func (d *Directory) ListByDepartment(ctx context.Context, department string) ([]employee.Employee, error) {
	return d.list(ctx, "WHERE department = ?", department)
}

func (d *Directory) list(ctx context.Context, where string, args ...any) ([]employee.Employee, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT user_id, full_name, department, is_active FROM employees "+where+" ORDER BY user_id;", args...)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	result := make([]employee.Employee, 0)
	for rows.Next() {
		var (
			e      employee.Employee
			active int
		)
		if err := rows.Scan(&e.UserID, &e.FullName, &e.Department, &active); err != nil {
			return nil, fmt.Errorf("list employees scan: %w", err)
		}
		e.IsActive = active == 1
		result = append(result, e)
	}
	return result, rows.Err()
}
