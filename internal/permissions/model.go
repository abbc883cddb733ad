package permissions

import "time"

// Role is the platform-wide role of a user. It determines the default set of
// accessible collections and the default sub-role within them.
type Role string

const (
	RoleSuperAdmin       Role = "SUPER_ADMIN"
	RoleAdmin            Role = "ADMIN"
	RoleAgent            Role = "AGENT"
	RoleMarketing        Role = "MARKETING"
	RoleSales            Role = "SALES"
	RoleHR               Role = "HR"
	RoleCommunityManager Role = "COMMUNITY_MANAGER"
	RoleUser             Role = "USER"
)

// Collection is a manageable resource domain of the CMS.
type Collection string

const (
	CollectionProjects    Collection = "projects"
	CollectionProperties  Collection = "properties"
	CollectionBlogs       Collection = "blogs"
	CollectionNews        Collection = "news"
	CollectionCareers     Collection = "careers"
	CollectionDevelopers  Collection = "developers"
	CollectionPlots       Collection = "plots"
	CollectionBuildings   Collection = "buildings"
	CollectionHotels      Collection = "hotels"
	CollectionMalls       Collection = "malls"
	CollectionCommunities Collection = "communities"
	CollectionUsers       Collection = "users"
	CollectionSystem      Collection = "system"
)

// Action is an operation performed on a collection.
type Action string

const (
	ActionView      Action = "view"
	ActionAdd       Action = "add"
	ActionEdit      Action = "edit"
	ActionDelete    Action = "delete"
	ActionApprove   Action = "approve"
	ActionReject    Action = "reject"
	ActionPublish   Action = "publish"
	ActionUnpublish Action = "unpublish"
	ActionExport    Action = "export"
	ActionImport    Action = "import"
)

// SubRole scopes what a user may do within a single collection. Action sets are
// strictly nested: OBSERVER < CONTRIBUTOR < MODERATOR < COLLECTION_ADMIN.
type SubRole string

const (
	SubRoleObserver        SubRole = "OBSERVER"
	SubRoleContributor     SubRole = "CONTRIBUTOR"
	SubRoleModerator       SubRole = "MODERATOR"
	SubRoleCollectionAdmin SubRole = "COLLECTION_ADMIN"
)

// SystemCapability is a system-level capability independent of the collection
// model. Kept as its own enumeration so finer-grained capabilities can be added
// without touching collection logic.
type SystemCapability string

const (
	CapabilityViewAuditTrail           SystemCapability = "VIEW_AUDIT_TRAIL"
	CapabilityManageUsers              SystemCapability = "MANAGE_USERS"
	CapabilityReviewPermissionRequests SystemCapability = "REVIEW_PERMISSION_REQUESTS"
	CapabilityManageSystem             SystemCapability = "MANAGE_SYSTEM"
)

// Grant assigns a sub-role on a single collection. CustomActions, when present,
// replaces the sub-role's action set. ExpiresAt, when present, time-boxes the
// grant; an expired grant is treated as absent.
type Grant struct {
	Collection    Collection        `bson:"collection" json:"collection"`
	SubRole       SubRole           `bson:"sub_role" json:"sub_role"`
	CustomActions []Action          `bson:"custom_actions,omitempty" json:"custom_actions,omitempty"`
	Restrictions  map[string]string `bson:"restrictions,omitempty" json:"restrictions,omitempty"`
	ExpiresAt     *time.Time        `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	GrantedBy     string            `bson:"granted_by,omitempty" json:"granted_by,omitempty"`
	GrantedAt     time.Time         `bson:"granted_at,omitempty" json:"granted_at,omitempty"`
}

// Expired reports whether the grant is past its expiry at the given instant.
func (g Grant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && !g.ExpiresAt.After(now)
}

// AllCollections lists every collection in the enumeration, in declaration order.
var AllCollections = []Collection{
	CollectionProjects,
	CollectionProperties,
	CollectionBlogs,
	CollectionNews,
	CollectionCareers,
	CollectionDevelopers,
	CollectionPlots,
	CollectionBuildings,
	CollectionHotels,
	CollectionMalls,
	CollectionCommunities,
	CollectionUsers,
	CollectionSystem,
}

// AllActions lists every action in the enumeration, in declaration order.
var AllActions = []Action{
	ActionView,
	ActionAdd,
	ActionEdit,
	ActionDelete,
	ActionApprove,
	ActionReject,
	ActionPublish,
	ActionUnpublish,
	ActionExport,
	ActionImport,
}

// AllRoles lists every role in the enumeration.
var AllRoles = []Role{
	RoleSuperAdmin,
	RoleAdmin,
	RoleAgent,
	RoleMarketing,
	RoleSales,
	RoleHR,
	RoleCommunityManager,
	RoleUser,
}

// AllSubRoles lists every sub-role, least to most privileged.
var AllSubRoles = []SubRole{
	SubRoleObserver,
	SubRoleContributor,
	SubRoleModerator,
	SubRoleCollectionAdmin,
}

// subRoleActions maps each sub-role to its ordered action set. The sets are
// strictly nested; COLLECTION_ADMIN equals the full action enumeration.
var subRoleActions = map[SubRole][]Action{
	SubRoleObserver:    {ActionView, ActionExport},
	SubRoleContributor: {ActionView, ActionExport, ActionAdd, ActionEdit, ActionImport},
	SubRoleModerator: {
		ActionView, ActionExport, ActionAdd, ActionEdit, ActionImport,
		ActionApprove, ActionReject, ActionPublish, ActionUnpublish,
	},
	SubRoleCollectionAdmin: AllActions,
}

// roleDefaultCollections maps each role to the collections it can access
// without any explicit grant. SUPER_ADMIN maps to the full enumeration.
var roleDefaultCollections = map[Role][]Collection{
	RoleSuperAdmin: AllCollections,
	RoleAdmin: {
		CollectionProjects, CollectionProperties, CollectionBlogs, CollectionNews,
		CollectionCareers, CollectionDevelopers, CollectionPlots, CollectionBuildings,
		CollectionHotels, CollectionMalls, CollectionCommunities, CollectionUsers,
	},
	RoleAgent:            {CollectionProjects, CollectionProperties},
	RoleMarketing:        {CollectionBlogs, CollectionNews, CollectionCareers},
	RoleSales:            {CollectionProjects, CollectionProperties, CollectionPlots, CollectionBuildings},
	RoleHR:               {CollectionCareers},
	RoleCommunityManager: {CollectionCommunities, CollectionHotels, CollectionMalls},
	RoleUser:             {},
}

// roleDefaultSubRole maps each role to the sub-role applied within its default
// collections.
var roleDefaultSubRole = map[Role]SubRole{
	RoleSuperAdmin:       SubRoleCollectionAdmin,
	RoleAdmin:            SubRoleModerator,
	RoleAgent:            SubRoleContributor,
	RoleMarketing:        SubRoleContributor,
	RoleSales:            SubRoleContributor,
	RoleHR:               SubRoleContributor,
	RoleCommunityManager: SubRoleContributor,
	RoleUser:             SubRoleObserver,
}

// capabilityRoles gates each system capability to the roles allowed to use it.
var capabilityRoles = map[SystemCapability][]Role{
	CapabilityViewAuditTrail:           {RoleAdmin, RoleSuperAdmin},
	CapabilityManageUsers:              {RoleAdmin, RoleSuperAdmin},
	CapabilityReviewPermissionRequests: {RoleAdmin, RoleSuperAdmin},
	CapabilityManageSystem:             {RoleSuperAdmin},
}

// ValidRole reports whether r is part of the closed role enumeration.
func ValidRole(r Role) bool {
	for _, role := range AllRoles {
		if role == r {
			return true
		}
	}
	return false
}

// ValidCollection reports whether c is part of the closed collection enumeration.
func ValidCollection(c Collection) bool {
	for _, col := range AllCollections {
		if col == c {
			return true
		}
	}
	return false
}

// ValidSubRole reports whether s is part of the closed sub-role enumeration.
func ValidSubRole(s SubRole) bool {
	_, ok := subRoleActions[s]
	return ok
}

// ValidAction reports whether a is part of the closed action enumeration.
func ValidAction(a Action) bool {
	for _, act := range AllActions {
		if act == a {
			return true
		}
	}
	return false
}

// SubRoleActions returns the action set of a sub-role.
func SubRoleActions(s SubRole) []Action {
	return subRoleActions[s]
}

// RoleDefaultCollections returns the default collection set of a role.
func RoleDefaultCollections(r Role) []Collection {
	return roleDefaultCollections[r]
}

// RoleDefaultSubRole returns the default sub-role of a role.
func RoleDefaultSubRole(r Role) SubRole {
	return roleDefaultSubRole[r]
}
