package user

type Permission string

const (
	// Self service
	PermissionAttendanceMark    Permission = "attendance.mark"
	PermissionAttendanceViewOwn Permission = "attendance.view_own"
	PermissionStatsViewOwn      Permission = "stats.view_own"

	// Administration
	PermissionAttendanceViewAll Permission = "attendance.view_all"
	PermissionAttendanceManage  Permission = "attendance.manage"
	PermissionStatsViewAll      Permission = "stats.view_all"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermissionAttendanceMark,
		PermissionAttendanceViewOwn,
		PermissionStatsViewOwn,
		PermissionAttendanceViewAll,
		PermissionAttendanceManage,
		PermissionStatsViewAll,
	},
	RoleEmployee: {
		PermissionAttendanceMark,
		PermissionAttendanceViewOwn,
		PermissionStatsViewOwn,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}
