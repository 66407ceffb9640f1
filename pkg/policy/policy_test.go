package policy

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderCapabilitiesAreAdminTier(t *testing.T) {
	want := map[Role]bool{RootAdmin: true, SuperAdmin: true, Admin: true, Clerk: false, Viewer: false}
	for r, ok := range want {
		assert.Equal(t, ok, CanEditParentFields(r), "parent fields for %s", r)
		assert.Equal(t, ok, CanEditChildHeaderFields(r), "child header for %s", r)
		assert.Equal(t, ok, CanCreateChild(r), "create child for %s", r)
		assert.Equal(t, ok, CanDeleteChild(r), "delete child for %s", r)
		assert.Equal(t, ok, CanManageAssets(r), "manage assets for %s", r)
	}
}

func TestClerkCanOnlyReassign(t *testing.T) {
	assert.True(t, CanEditAssignee(Clerk))
	assert.True(t, CanWrite(Clerk))
	assert.False(t, CanEditAssignee(Viewer))
	assert.False(t, CanWrite(Viewer))
	assert.False(t, CanWrite(Role(0)))
	assert.False(t, CanWrite(Role(9)))
}

func TestCanManageUsers(t *testing.T) {
	assert.True(t, CanManageUsers(RootAdmin))
	assert.True(t, CanManageUsers(SuperAdmin))
	assert.False(t, CanManageUsers(Admin))
	assert.False(t, CanManageUsers(Clerk))
	assert.False(t, CanManageUsers(Viewer))
}

func TestCanDeleteUserPrivilegeFloor(t *testing.T) {
	cases := []struct {
		actor, target Role
		ok            bool
	}{
		{SuperAdmin, Viewer, true},
		{SuperAdmin, Clerk, true},
		{SuperAdmin, Admin, true},
		{SuperAdmin, SuperAdmin, false},
		{SuperAdmin, RootAdmin, false},
		{RootAdmin, SuperAdmin, true},
		{RootAdmin, Admin, true},
		{RootAdmin, RootAdmin, false},
		{Admin, Viewer, false},
		{Clerk, Viewer, false},
		{RootAdmin, Role(7), false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, CanDeleteUser(c.actor, c.target), "%s deleting %s", c.actor, c.target)
	}
}

func TestParseUserType(t *testing.T) {
	for _, v := range []int{2, 3, 4, 5} {
		r, err := ParseUserType(v)
		require.NoError(t, err)
		assert.Equal(t, Role(v), r)
	}
	for _, v := range []int{0, 1, 6, -3} {
		_, err := ParseUserType(v)
		require.ErrorIs(t, err, ErrInvalidUserType)
		assert.Equal(t, "Invalid user type", err.Error())
	}
}

func TestRolesOrderedByPrivilege(t *testing.T) {
	roles := Roles()
	require.Len(t, roles, 5)
	for i := 1; i < len(roles); i++ {
		assert.True(t, roles[i-1].AtLeast(roles[i]))
		assert.False(t, roles[i].AtLeast(roles[i-1]))
	}
	assert.Equal(t, "Inventory Clerk", Clerk.Label())
}

func TestAtLeastFloor(t *testing.T) {
	assert.True(t, Admin.AtLeast(Admin))
	assert.True(t, RootAdmin.AtLeast(Viewer))
	assert.False(t, Viewer.AtLeast(Clerk))
	assert.False(t, Role(0).AtLeast(Viewer))
	assert.False(t, Role(9).AtLeast(Viewer))
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := errors.Wrap(ErrUnauthorized, "delete user 4")
	assert.Equal(t, ErrUnauthorized, errors.Cause(err))
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "delete user 4: Unauthorized", err.Error())
}
