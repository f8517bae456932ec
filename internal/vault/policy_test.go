package vault

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPolicyLongestPrefixWins(t *testing.T) {
	table := NewPolicyTable(
		Role{Name: "reader", Permissions: []Permission{
			{ResourcePattern: "secret/*", Action: actionRead},
		}},
		Role{Name: "denier", Permissions: []Permission{
			{ResourcePattern: "secret/llm-api-key/*", Action: actionRead},
		}},
	)

	require.True(t, table.IsAuthorized([]string{"reader"}, "secret/llm-api-key/prod", actionRead))
	require.True(t, table.IsAuthorized([]string{"reader", "denier"}, "secret/llm-api-key/prod", actionRead))
	require.False(t, table.IsAuthorized([]string{"reader"}, "secret/llm-api-key/prod", actionWrite))
	require.False(t, table.IsAuthorized([]string{"unknown-role"}, "secret/x", actionRead))
}

func TestPolicyActionIsCaseSensitive(t *testing.T) {
	table := NewPolicyTable(Role{Name: "r", Permissions: []Permission{
		{ResourcePattern: "secret/*", Action: "read"},
	}})
	require.False(t, table.IsAuthorized([]string{"r"}, "secret/x", "Read"))
}

func TestIntersectRoles(t *testing.T) {
	got := IntersectRoles([]string{"a", "b", "c"}, []string{"c", "a"})
	require.Equal(t, []string{"a", "c"}, got)

	require.Nil(t, IntersectRoles([]string{"z"}, []string{"a"}))
}
