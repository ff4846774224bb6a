package services

import (
	"testing"

	"github.com/aaroha-fest/sargam-portal/models"
	"github.com/stretchr/testify/require"
)

func TestEffectiveRole(t *testing.T) {
	resolver := NewRoleResolver([]string{"Organizer@Aaroha.in", "  second@aaroha.in "})

	tests := []struct {
		name       string
		email      string
		storedRole models.UserRole
		want       models.UserRole
	}{
		{"allow-listed overrides stored team role", "organizer@aaroha.in", models.RoleTeam, models.RoleAdmin},
		{"allow-list match is case-insensitive", "ORGANIZER@AAROHA.IN", models.RoleTeam, models.RoleAdmin},
		{"configured entries are trimmed and lowered", "second@aaroha.in", "", models.RoleAdmin},
		{"stored role wins when not allow-listed", "user@example.com", models.RoleAdmin, models.RoleAdmin},
		{"stored team role is kept", "user@example.com", models.RoleTeam, models.RoleTeam},
		{"empty stored role defaults to team", "user@example.com", "", models.RoleTeam},
		{"empty email never matches", "", "", models.RoleTeam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, resolver.EffectiveRole(tt.email, tt.storedRole))
		})
	}
}

func TestEmptyAllowList(t *testing.T) {
	resolver := NewRoleResolver(nil)
	require.False(t, resolver.IsAdminEmail("anyone@example.com"))
	require.Equal(t, models.RoleTeam, resolver.EffectiveRole("anyone@example.com", ""))
}
