package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cmlabs-hris/attendance-tracker/internal/domain/employee"
)

// Directory is an in-process employee.Directory.
type Directory struct {
	mu        sync.RWMutex
	employees map[string]employee.Employee
}

// NewDirectory seeds an in-process employee directory.
func NewDirectory(employees ...employee.Employee) *Directory {
	d := &Directory{employees: make(map[string]employee.Employee, len(employees))}
	for _, e := range employees {
		d.Put(e)
	}
	return d
}

// Put inserts or replaces an employee.
func (d *Directory) Put(e employee.Employee) {
	e.UserID = strings.TrimSpace(e.UserID)
	if e.UserID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.employees[e.UserID] = e
}

// GetDepartment implements employee.Directory.
func (d *Directory) GetDepartment(_ context.Context, userID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.employees[userID]
	if !ok {
		return "", employee.ErrEmployeeNotFound
	}
	return e.Department, nil
}

// ListDepartments implements employee.Directory.
func (d *Directory) ListDepartments(_ context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[string]struct{})
	departments := make([]string, 0)
	for _, e := range d.employees {
		if e.Department == "" {
			continue
		}
		if _, ok := seen[e.Department]; ok {
			continue
		}
		seen[e.Department] = struct{}{}
		departments = append(departments, e.Department)
	}
	sort.Strings(departments)
	return departments, nil
}

// ListActive implements employee.Directory.
func (d *Directory) ListActive(_ context.Context) ([]employee.Employee, error) {
	return d.filter(func(e employee.Employee) bool { return e.IsActive }), nil
}

// ListByDepartment implements employee.Directory.
func (d *Directory) ListByDepartment(_ context.Context, department string) ([]employee.Employee, error) {
	return d.filter(func(e employee.Employee) bool { return e.Department == department }), nil
}

func (d *Directory) filter(keep func(employee.Employee) bool) []employee.Employee {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]employee.Employee, 0)
	for _, e := range d.employees {
		if keep(e) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result
}
