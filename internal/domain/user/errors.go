package user

import "errors"

var (
	ErrInvalidToken            = errors.New("invalid or missing access token")
	ErrMissingIdentity         = errors.New("user_id claim is missing or invalid")
	ErrAdminPrivilegeRequired  = errors.New("admin privilege required")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
)
