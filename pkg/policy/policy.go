// Package policy maps an actor's role to the operations it may perform.
//
// Every call site asks a named capability question ("can this role delete a
// child row?") instead of listing role literals, so endpoints cannot drift
// apart.
package policy

import "github.com/pkg/errors"

// Role is the single role an authenticated actor holds. Lower values carry
// more privilege.
type Role int

const (
	RootAdmin  Role = 1
	SuperAdmin Role = 2
	Admin      Role = 3
	Clerk      Role = 4
	Viewer     Role = 5
)

var (
	// ErrUnauthorized is returned when a role lacks a top-level capability.
	ErrUnauthorized = errors.New("Unauthorized")
	// ErrInvalidUserType is returned for user types outside the assignable set.
	ErrInvalidUserType = errors.New("Invalid user type")
)

var roleLabels = map[Role]string{
	RootAdmin:  "Root Admin",
	SuperAdmin: "Super Admin",
	Admin:      "Admin",
	Clerk:      "Inventory Clerk",
	Viewer:     "Viewer",
}

// Roles lists every role, most privileged first.
func Roles() []Role {
	return []Role{RootAdmin, SuperAdmin, Admin, Clerk, Viewer}
}

// Valid reports whether r is one of the five known roles.
func (r Role) Valid() bool {
	return r >= RootAdmin && r <= Viewer
}

// Label is the human readable name stored in the user_types table.
func (r Role) Label() string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return "Unknown"
}

func (r Role) String() string {
	return r.Label()
}

// AtLeast reports whether r is as privileged as floor or more.
func (r Role) AtLeast(floor Role) bool {
	return r.Valid() && r <= floor
}

// CanWrite gates every mutating asset request. Viewers are read-only.
func CanWrite(r Role) bool { return r.AtLeast(Clerk) }

func CanEditParentFields(r Role) bool { return r.AtLeast(Admin) }

func CanEditChildHeaderFields(r Role) bool { return r.AtLeast(Admin) }

func CanCreateChild(r Role) bool { return r.AtLeast(Admin) }

func CanDeleteChild(r Role) bool { return r.AtLeast(Admin) }

// CanManageAssets gates creating and deleting whole assets.
func CanManageAssets(r Role) bool { return r.AtLeast(Admin) }

// CanEditAssignee is wider than the header gates: clerks may reassign
// existing instances without touching anything else.
func CanEditAssignee(r Role) bool { return r.AtLeast(Clerk) }

// CanManageUsers gates creating and editing users.
func CanManageUsers(r Role) bool { return r.AtLeast(SuperAdmin) }

// CanDeleteUser applies the privilege floor: nobody deletes a root admin and a
// super admin only deletes roles strictly below its own.
func CanDeleteUser(actor, target Role) bool {
	if !CanManageUsers(actor) || !target.Valid() {
		return false
	}
	if target <= RootAdmin {
		return false
	}
	if actor == SuperAdmin && target <= SuperAdmin {
		return false
	}
	return true
}

// ParseUserType validates a user type submitted through the user endpoints.
// Root admin is not assignable this way.
func ParseUserType(v int) (Role, error) {
	r := Role(v)
	if !r.Valid() || r == RootAdmin {
		return 0, ErrInvalidUserType
	}
	return r, nil
}
