package permissions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuperAdminBypassesEverything(t *testing.T) {
	s := Subject{Role: RoleSuperAdmin}
	for _, c := range AllCollections {
		for _, a := range AllActions {
			assert.True(t, s.CanPerform(c, a), "super admin denied %s on %s", a, c)
		}
	}
}

func TestSuperAdminBypassesOverrides(t *testing.T) {
	// A restrictive override on the record must not demote a super admin:
	// the role bypasses the evaluation chain entirely.
	tomorrow := time.Now().Add(24 * time.Hour)
	s := Subject{
		Role: RoleSuperAdmin,
		Overrides: []Grant{{
			Collection: CollectionUsers,
			SubRole:    SubRoleObserver,
			ExpiresAt:  &tomorrow,
		}},
	}

	assert.True(t, s.CanPerform(CollectionUsers, ActionDelete))

	sub, ok := s.SubRoleFor(CollectionUsers)
	require.True(t, ok)
	assert.Equal(t, SubRoleCollectionAdmin, sub)
	assert.ElementsMatch(t, AllActions, s.ActionsFor(CollectionUsers))
}

func TestRoleDefaultChain(t *testing.T) {
	agent := Subject{Role: RoleAgent}

	// AGENT defaults: projects + properties as CONTRIBUTOR.
	assert.True(t, agent.CanPerform(CollectionProperties, ActionView))
	assert.True(t, agent.CanPerform(CollectionProperties, ActionAdd))
	assert.False(t, agent.CanPerform(CollectionProperties, ActionPublish))
	assert.False(t, agent.CanPerform(CollectionPlots, ActionView))
	assert.False(t, agent.CanPerform(CollectionUsers, ActionView))
}

func TestExplicitGrantExtendsDefaults(t *testing.T) {
	agent := Subject{
		Role:   RoleAgent,
		Grants: []Grant{{Collection: CollectionPlots, SubRole: SubRoleObserver}},
	}

	assert.True(t, agent.CanPerform(CollectionPlots, ActionView))
	assert.False(t, agent.CanPerform(CollectionPlots, ActionEdit))
}

func TestOverrideWinsEvenWhenMoreRestrictive(t *testing.T) {
	// Default CONTRIBUTOR on blogs, overridden down to OBSERVER: add must be
	// denied even though the grant below would allow it.
	s := Subject{
		Role:      RoleMarketing,
		Grants:    []Grant{{Collection: CollectionBlogs, SubRole: SubRoleContributor}},
		Overrides: []Grant{{Collection: CollectionBlogs, SubRole: SubRoleObserver}},
	}

	assert.True(t, s.CanPerform(CollectionBlogs, ActionView))
	assert.False(t, s.CanPerform(CollectionBlogs, ActionAdd))
}

func TestExpiredOverrideFallsThrough(t *testing.T) {
	yesterday := time.Now().Add(-24 * time.Hour)
	s := Subject{
		Role:   RoleUser,
		Grants: []Grant{{Collection: CollectionBlogs, SubRole: SubRoleContributor}},
		Overrides: []Grant{{
			Collection: CollectionBlogs,
			SubRole:    SubRoleCollectionAdmin,
			ExpiresAt:  &yesterday,
		}},
	}

	// The expired COLLECTION_ADMIN override must not grant delete; the
	// explicit CONTRIBUTOR grant decides instead.
	assert.False(t, s.CanPerform(CollectionBlogs, ActionDelete))
	assert.True(t, s.CanPerform(CollectionBlogs, ActionAdd))

	sub, ok := s.SubRoleFor(CollectionBlogs)
	require.True(t, ok)
	assert.Equal(t, SubRoleContributor, sub)
}

func TestUnexpiredOverrideDecides(t *testing.T) {
	tomorrow := time.Now().Add(24 * time.Hour)
	s := Subject{
		Role: RoleUser,
		Overrides: []Grant{{
			Collection: CollectionPlots,
			SubRole:    SubRoleModerator,
			ExpiresAt:  &tomorrow,
		}},
	}

	assert.True(t, s.CanPerform(CollectionPlots, ActionPublish))
	assert.False(t, s.CanPerform(CollectionPlots, ActionDelete))
}

func TestCustomActionsReplaceSubRoleSet(t *testing.T) {
	s := Subject{
		Role: RoleUser,
		Grants: []Grant{{
			Collection:    CollectionNews,
			SubRole:       SubRoleObserver,
			CustomActions: []Action{ActionView, ActionPublish},
		}},
	}

	assert.True(t, s.CanPerform(CollectionNews, ActionPublish))
	assert.False(t, s.CanPerform(CollectionNews, ActionExport))
}

func TestSubRoleActionSetsStrictlyNested(t *testing.T) {
	for i := 1; i < len(AllSubRoles); i++ {
		lower := SubRoleActions(AllSubRoles[i-1])
		higher := SubRoleActions(AllSubRoles[i])

		require.Greater(t, len(higher), len(lower), "%s must add actions over %s", AllSubRoles[i], AllSubRoles[i-1])
		for _, a := range lower {
			assert.True(t, actionIn(higher, a), "%s missing %s held by %s", AllSubRoles[i], a, AllSubRoles[i-1])
		}
	}

	assert.ElementsMatch(t, AllActions, SubRoleActions(SubRoleCollectionAdmin))
}

func TestAccessibleCollectionsSupersetOfDefaults(t *testing.T) {
	for _, role := range AllRoles {
		s := Subject{
			Role:      role,
			Grants:    []Grant{{Collection: CollectionHotels, SubRole: SubRoleObserver}},
			Overrides: []Grant{{Collection: CollectionMalls, SubRole: SubRoleObserver}},
		}
		got := s.AccessibleCollections()
		for _, c := range RoleDefaultCollections(role) {
			assert.Contains(t, got, c, "role %s lost default collection %s", role, c)
		}
		assert.Contains(t, got, CollectionHotels)
		assert.Contains(t, got, CollectionMalls)
	}
}

func TestActionsForPrecedence(t *testing.T) {
	s := Subject{
		Role:      RoleMarketing,
		Overrides: []Grant{{Collection: CollectionBlogs, SubRole: SubRoleObserver}},
	}

	assert.ElementsMatch(t, SubRoleActions(SubRoleObserver), s.ActionsFor(CollectionBlogs))
	assert.Nil(t, s.ActionsFor(CollectionUsers))
}

func TestSystemCapabilities(t *testing.T) {
	tests := []struct {
		role Role
		cap  SystemCapability
		want bool
	}{
		{RoleSuperAdmin, CapabilityViewAuditTrail, true},
		{RoleAdmin, CapabilityViewAuditTrail, true},
		{RoleAgent, CapabilityViewAuditTrail, false},
		{RoleUser, CapabilityManageUsers, false},
		{RoleAdmin, CapabilityManageSystem, false},
		{RoleSuperAdmin, CapabilityManageSystem, true},
	}

	for _, tt := range tests {
		s := Subject{Role: tt.role}
		assert.Equal(t, tt.want, s.HasSystemCapability(tt.cap), "%s / %s", tt.role, tt.cap)
	}
}

func TestMergeGrantReplacesSameCollection(t *testing.T) {
	grants := []Grant{{Collection: CollectionBlogs, SubRole: SubRoleObserver}}

	grants = MergeGrant(grants, Grant{Collection: CollectionBlogs, SubRole: SubRoleModerator})
	require.Len(t, grants, 1)
	assert.Equal(t, SubRoleModerator, grants[0].SubRole)

	grants = MergeGrant(grants, Grant{Collection: CollectionNews, SubRole: SubRoleObserver})
	assert.Len(t, grants, 2)
}
