package models

import (
	"fmt"

	"github.com/nkiryanov/bookstore/internal/apperrors"
)

// Role is a closed set of user roles
// Values are stored as is in the users.role column and in the access token "role" claim
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleFinance  Role = "FINANCE"
	RoleEmployee Role = "EMPLOYEE"
)

const authorityPrefix = "ROLE_"

// ParseRole returns apperrors.ErrRoleUnknown for anything outside the known roles
func ParseRole(value string) (Role, error) {
	switch r := Role(value); r {
	case RoleAdmin, RoleFinance, RoleEmployee:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", apperrors.ErrRoleUnknown, value)
	}
}

// Granted reports whether a request carrying the role may pass the authorizer
func (r Role) Granted() bool {
	switch r {
	case RoleAdmin, RoleFinance:
		return true
	case RoleEmployee:
		return false
	default:
		return false
	}
}

// Authority is the capability derived from the role, e.g. ROLE_ADMIN
func (r Role) Authority() string {
	return authorityPrefix + string(r)
}

func (r Role) String() string {
	return string(r)
}
