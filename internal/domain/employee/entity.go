package employee

// Employee is the directory view of a user needed by attendance: who they are,
// which department they belong to, and whether they are still expected to attend.
type Employee struct {
	UserID     string
	FullName   string
	Department string
	IsActive   bool
}

// UnassignedDepartment groups users the directory has no department for.
const UnassignedDepartment = "Unassigned"
