package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	for _, a := range Actions() {
		parsed, err := ParseAction(string(a))
		require.NoError(t, err)
		require.Equal(t, a, parsed)
	}

	_, err := ParseAction("publish")
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParseAction("")
	require.ErrorIs(t, err, ErrValidation)

	// The set is case sensitive.
	_, err = ParseAction("Read")
	require.ErrorIs(t, err, ErrValidation)
}

func TestParseResource(t *testing.T) {
	for _, r := range Resources() {
		parsed, err := ParseResource(string(r))
		require.NoError(t, err)
		require.Equal(t, r, parsed)
	}

	_, err := ParseResource("invoice")
	require.ErrorIs(t, err, ErrValidation)
}

func TestResourceAssetType(t *testing.T) {
	assetType, ok := ResourcePortfolio.AssetType()
	require.True(t, ok)
	require.Equal(t, "portfolio", assetType)

	_, ok = ResourceRole.AssetType()
	require.False(t, ok)
}

func TestPermissionSetHas(t *testing.T) {
	set := NewPermissionSet([]Permission{
		{Resource: ResourceSfiaSkill, Action: ActionRead},
		{Resource: ResourceRole, Action: ActionManage},
	})

	require.True(t, set.Has(ResourceSfiaSkill, ActionRead))
	require.False(t, set.Has(ResourceSfiaSkill, ActionUpdate))

	// manage covers every action on the same resource.
	for _, a := range Actions() {
		require.True(t, set.Has(ResourceRole, a))
	}

	// But never crosses resources.
	require.False(t, set.Has(ResourceUser, ActionRead))
	require.False(t, set.Has(ResourceTpqiCareer, ActionManage))
}

func TestPermissionSetEmpty(t *testing.T) {
	set := NewPermissionSet(nil)
	require.False(t, set.Has(ResourceUser, ActionRead))
}
