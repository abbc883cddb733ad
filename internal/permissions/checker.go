package permissions

import "time"

// Subject is the permission-bearing view of a principal: its role plus the
// administrator-assigned grants and overrides. Both the full user record and
// the cached session snapshot reduce to a Subject, so there is exactly one
// evaluation path in the system.
type Subject struct {
	Role      Role
	Grants    []Grant
	Overrides []Grant
}

// CanPerform decides whether the subject may perform action a on collection c.
// SUPER_ADMIN bypasses the chain entirely: every action on every collection,
// regardless of any grants or overrides on the record. For everyone else the
// precedence is first match wins: unexpired override, explicit grant, role
// default. An override is authoritative even when it is more restrictive than
// the chain below it.
func (s Subject) CanPerform(c Collection, a Action) bool {
	return s.canPerformAt(c, a, time.Now())
}

func (s Subject) canPerformAt(c Collection, a Action, now time.Time) bool {
	if s.Role == RoleSuperAdmin {
		return true
	}
	if g, ok := findGrant(s.Overrides, c, now); ok {
		return grantAllows(g, a)
	}
	if g, ok := findGrant(s.Grants, c, now); ok {
		return grantAllows(g, a)
	}
	for _, col := range roleDefaultCollections[s.Role] {
		if col == c {
			return actionIn(subRoleActions[roleDefaultSubRole[s.Role]], a)
		}
	}
	return false
}

// SubRoleFor resolves the effective sub-role of the subject on a collection
// through the same precedence chain. The second return is false when the
// subject has no access to the collection at all.
func (s Subject) SubRoleFor(c Collection) (SubRole, bool) {
	if s.Role == RoleSuperAdmin {
		return SubRoleCollectionAdmin, true
	}
	now := time.Now()
	if g, ok := findGrant(s.Overrides, c, now); ok {
		return g.SubRole, true
	}
	if g, ok := findGrant(s.Grants, c, now); ok {
		return g.SubRole, true
	}
	for _, col := range roleDefaultCollections[s.Role] {
		if col == c {
			return roleDefaultSubRole[s.Role], true
		}
	}
	return "", false
}

// ActionsFor returns the effective action set of the subject on a collection,
// nil when the collection is inaccessible.
func (s Subject) ActionsFor(c Collection) []Action {
	if s.Role == RoleSuperAdmin {
		return subRoleActions[SubRoleCollectionAdmin]
	}
	now := time.Now()
	if g, ok := findGrant(s.Overrides, c, now); ok {
		return grantActions(g)
	}
	if g, ok := findGrant(s.Grants, c, now); ok {
		return grantActions(g)
	}
	for _, col := range roleDefaultCollections[s.Role] {
		if col == c {
			return subRoleActions[roleDefaultSubRole[s.Role]]
		}
	}
	return nil
}

// AccessibleCollections returns the union of role-default collections,
// explicit grants and unexpired overrides, in enumeration order. The result is
// always a superset of the role defaults.
func (s Subject) AccessibleCollections() []Collection {
	now := time.Now()
	seen := make(map[Collection]struct{})
	for _, c := range roleDefaultCollections[s.Role] {
		seen[c] = struct{}{}
	}
	for _, g := range s.Grants {
		if !g.Expired(now) {
			seen[g.Collection] = struct{}{}
		}
	}
	for _, g := range s.Overrides {
		if !g.Expired(now) {
			seen[g.Collection] = struct{}{}
		}
	}

	out := make([]Collection, 0, len(seen))
	for _, c := range AllCollections {
		if _, ok := seen[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// IsSuperAdmin reports whether the subject holds the SUPER_ADMIN role.
func (s Subject) IsSuperAdmin() bool {
	return s.Role == RoleSuperAdmin
}

// IsAdmin reports whether the subject holds the ADMIN or SUPER_ADMIN role.
func (s Subject) IsAdmin() bool {
	return s.Role == RoleAdmin || s.Role == RoleSuperAdmin
}

// HasSystemCapability reports whether the subject's role is gated into the
// named system capability. Capabilities sit outside the collection model.
func (s Subject) HasSystemCapability(cap SystemCapability) bool {
	for _, r := range capabilityRoles[cap] {
		if r == s.Role {
			return true
		}
	}
	return false
}

// findGrant returns the unexpired grant for c, if any. Grant lists hold at
// most one entry per collection; expired entries are skipped so evaluation
// falls through to the next precedence level.
func findGrant(grants []Grant, c Collection, now time.Time) (Grant, bool) {
	for _, g := range grants {
		if g.Collection == c && !g.Expired(now) {
			return g, true
		}
	}
	return Grant{}, false
}

func grantActions(g Grant) []Action {
	if len(g.CustomActions) > 0 {
		return g.CustomActions
	}
	return subRoleActions[g.SubRole]
}

func grantAllows(g Grant, a Action) bool {
	return actionIn(grantActions(g), a)
}

func actionIn(actions []Action, a Action) bool {
	for _, act := range actions {
		if act == a {
			return true
		}
	}
	return false
}

// MergeGrant replaces an existing entry for the same collection or appends a
// new one, preserving the at-most-one-grant-per-collection invariant.
func MergeGrant(grants []Grant, g Grant) []Grant {
	for i := range grants {
		if grants[i].Collection == g.Collection {
			grants[i] = g
			return grants
		}
	}
	return append(grants, g)
}
