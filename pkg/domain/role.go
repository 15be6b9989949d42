package domain

import dErrors "tenderledger/pkg/domain-errors"

// Role is the authorization role held by an actor.
// Invariant: the value must be one of the supported roles.
//
// Usage: construct via ParseRole at trust boundaries to enforce the allowlist;
// direct casting bypasses validation.
type Role string

// Supported roles.
const (
	RoleAdmin   Role = "admin"
	RoleOfficer Role = "officer"
	RoleBidder  Role = "bidder"
)

// validRoles is the single source of truth for valid roles.
var validRoles = map[Role]bool{
	RoleAdmin:   true,
	RoleOfficer: true,
	RoleBidder:  true,
}

// ParseRole constructs a Role from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported; no
// other errors are expected.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanCreateTenders reports whether the role may publish procurement tenders.
func (r Role) CanCreateTenders() bool {
	return r == RoleAdmin || r == RoleOfficer
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}
