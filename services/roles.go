package services

import (
	"strings"

	"github.com/aaroha-fest/sargam-portal/models"
)

// RoleResolver computes the effective role of a user: the configured
// admin-email allow-list overrides whatever role the profile stores.
// The set is built once at construction; resolution itself is pure.
type RoleResolver struct {
	adminEmails map[string]struct{}
}

func NewRoleResolver(adminEmails []string) *RoleResolver {
	set := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return &RoleResolver{adminEmails: set}
}

func (r *RoleResolver) IsAdminEmail(email string) bool {
	if email == "" {
		return false
	}
	_, ok := r.adminEmails[strings.ToLower(email)]
	return ok
}

// EffectiveRole returns admin for allow-listed emails regardless of
// the stored role, otherwise the stored role, defaulting to team.
func (r *RoleResolver) EffectiveRole(email string, storedRole models.UserRole) models.UserRole {
	if r.IsAdminEmail(email) {
		return models.RoleAdmin
	}
	if storedRole != "" {
		return storedRole
	}
	return models.RoleTeam
}
