package user

type Role string

const (
	RoleAdmin    Role = "admin"    // Reviews and corrects attendance
	RoleEmployee Role = "employee" // Marks own attendance
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// Caller is the authenticated identity resolved by the auth collaborator.
type Caller struct {
	ID   string
	Role Role
}

// IsAdmin checks if the caller may manage other users' records
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}
