package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManagedSchema_ChildLocked(t *testing.T) {
	require.True(t, ManagedSchema{ChildOverride: ChildLocked}.ChildLocked())
	require.True(t, ManagedSchema{ChildOverride: "LOCKED"}.ChildLocked())
	require.True(t, ManagedSchema{ChildOverride: " locked "}.ChildLocked())
	require.False(t, ManagedSchema{}.ChildLocked())
	require.False(t, ManagedSchema{ChildOverride: "guarded"}.ChildLocked())
}

func TestParseRole(t *testing.T) {
	require.Equal(t, RoleChild, ParseRole("child"))
	require.Equal(t, RoleChild, ParseRole("Child"))
	require.Equal(t, RoleAdult, ParseRole(" ADULT "))
	require.Equal(t, RoleAdmin, ParseRole("admin"))
	require.Equal(t, Role(""), ParseRole("moderator"))
	require.Equal(t, Role(""), ParseRole(""))
}
