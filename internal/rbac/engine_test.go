package rbac

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	perms PermissionSet
	err   error
}

func (s *stubResolver) EffectivePermissions(ctx context.Context, userID int64) (PermissionSet, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.perms, nil
}

type stubGrants struct {
	grants map[string]bool
	err    error
	calls  int
}

func grantKey(userID int64, assetType string, instanceID uuid.UUID) string {
	return fmt.Sprintf("%d:%s:%s", userID, assetType, instanceID)
}

func (s *stubGrants) HasAssetGrant(ctx context.Context, userID int64, assetType string, instanceID uuid.UUID) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.grants[grantKey(userID, assetType, instanceID)], nil
}

type recordedDecision struct {
	resource string
	action   string
	allowed  bool
}

type stubRecorder struct {
	decisions []recordedDecision
}

func (s *stubRecorder) RecordDecision(resource, action string, allowed bool) {
	s.decisions = append(s.decisions, recordedDecision{resource: resource, action: action, allowed: allowed})
}

func TestAuthorizeRolePermission(t *testing.T) {
	resolver := &stubResolver{perms: NewPermissionSet([]Permission{
		{Resource: ResourceSfiaSkill, Action: ActionRead},
	})}
	engine := NewEngine(resolver, &stubGrants{}, nil, nil)

	decision := engine.Authorize(context.Background(), 7, ResourceSfiaSkill, ActionRead)
	require.True(t, decision.Allowed)

	decision = engine.Authorize(context.Background(), 7, ResourceSfiaSkill, ActionDelete)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonInsufficientPermission, decision.Reason)
}

func TestAuthorizeNoRoles(t *testing.T) {
	engine := NewEngine(&stubResolver{perms: NewPermissionSet(nil)}, &stubGrants{}, nil, nil)

	decision := engine.Authorize(context.Background(), 7, ResourceUser, ActionRead)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonInsufficientPermission, decision.Reason)
}

func TestAuthorizeManageSubsumes(t *testing.T) {
	resolver := &stubResolver{perms: NewPermissionSet([]Permission{
		{Resource: ResourceRole, Action: ActionManage},
	})}
	engine := NewEngine(resolver, &stubGrants{}, nil, nil)

	for _, action := range Actions() {
		decision := engine.Authorize(context.Background(), 7, ResourceRole, action)
		require.True(t, decision.Allowed, "manage should cover %s", action)
	}
}

func TestAuthorizeInstanceGrant(t *testing.T) {
	granted := uuid.New()
	other := uuid.New()
	grants := &stubGrants{grants: map[string]bool{
		grantKey(7, "portfolio", granted): true,
	}}
	engine := NewEngine(&stubResolver{perms: NewPermissionSet(nil)}, grants, nil, nil)

	decision := engine.Authorize(context.Background(), 7, ResourcePortfolio, ActionRead, WithInstance(granted))
	require.True(t, decision.Allowed)

	// The grant never extends to sibling instances.
	decision = engine.Authorize(context.Background(), 7, ResourcePortfolio, ActionRead, WithInstance(other))
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonInsufficientPermission, decision.Reason)
}

func TestAuthorizeRolePermissionCoversAllInstances(t *testing.T) {
	resolver := &stubResolver{perms: NewPermissionSet([]Permission{
		{Resource: ResourcePortfolio, Action: ActionRead},
	})}
	grants := &stubGrants{}
	engine := NewEngine(resolver, grants, nil, nil)

	decision := engine.Authorize(context.Background(), 7, ResourcePortfolio, ActionRead, WithInstance(uuid.New()))
	require.True(t, decision.Allowed)
	// The grant table is not consulted when the role already allows.
	require.Zero(t, grants.calls)
}

func TestAuthorizeNoInstanceLookupForUnscopedResource(t *testing.T) {
	grants := &stubGrants{grants: map[string]bool{}}
	engine := NewEngine(&stubResolver{perms: NewPermissionSet(nil)}, grants, nil, nil)

	decision := engine.Authorize(context.Background(), 7, ResourceRole, ActionRead, WithInstance(uuid.New()))
	require.False(t, decision.Allowed)
	require.Zero(t, grants.calls)
}

func TestAuthorizeFailClosed(t *testing.T) {
	engine := NewEngine(&stubResolver{err: errors.New("store down")}, &stubGrants{}, nil, nil)

	decision := engine.Authorize(context.Background(), 7, ResourceUser, ActionRead)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonStoreUnavailable, decision.Reason)
}

func TestAuthorizeFailClosedOnGrantLookup(t *testing.T) {
	grants := &stubGrants{err: errors.New("store down")}
	engine := NewEngine(&stubResolver{perms: NewPermissionSet(nil)}, grants, nil, nil)

	decision := engine.Authorize(context.Background(), 7, ResourcePortfolio, ActionRead, WithInstance(uuid.New()))
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonStoreUnavailable, decision.Reason)
}

func TestAuthorizeRecordsDecisions(t *testing.T) {
	recorder := &stubRecorder{}
	resolver := &stubResolver{perms: NewPermissionSet([]Permission{
		{Resource: ResourceUser, Action: ActionRead},
	})}
	engine := NewEngine(resolver, &stubGrants{}, nil, recorder)

	engine.Authorize(context.Background(), 7, ResourceUser, ActionRead)
	engine.Authorize(context.Background(), 7, ResourceUser, ActionDelete)

	require.Len(t, recorder.decisions, 2)
	require.Equal(t, recordedDecision{resource: "user", action: "read", allowed: true}, recorder.decisions[0])
	require.Equal(t, recordedDecision{resource: "user", action: "delete", allowed: false}, recorder.decisions[1])
}
