package employee

import "context"

// Directory is the read-only user directory consulted by aggregation and jobs.
type Directory interface {
	// GetDepartment returns the user's department or ErrEmployeeNotFound
	GetDepartment(ctx context.Context, userID string) (string, error)

	// ListDepartments returns every known department, sorted by name
	ListDepartments(ctx context.Context) ([]string, error)

	// ListActive returns every active employee
	ListActive(ctx context.Context) ([]Employee, error)

	// ListByDepartment returns the employees of one department
	ListByDepartment(ctx context.Context, department string) ([]Employee, error)
}
