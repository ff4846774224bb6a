package services

import (
	"context"
	"testing"

	"github.com/aaroha-fest/sargam-portal/models"
	"github.com/aaroha-fest/sargam-portal/repositories"
	"github.com/stretchr/testify/require"
)

func TestAccessGate(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewInMemoryRegistrationRepository()
	gate := NewAccessGate(repo)

	require.NoError(t, repo.Create(ctx, &models.Registration{
		RegistrationID: "reg-1",
		UserID:         "owner-1",
	}))

	owner := Caller{UserID: "owner-1", Email: "owner@example.com", Role: models.RoleTeam}
	stranger := Caller{UserID: "other-1", Email: "other@example.com", Role: models.RoleTeam}
	admin := Caller{UserID: "admin-1", Email: "admin@example.com", Role: models.RoleAdmin}

	t.Run("owner passes", func(t *testing.T) {
		require.NoError(t, gate.Authorize(ctx, owner, "reg-1"))
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		require.ErrorIs(t, gate.Authorize(ctx, stranger, "reg-1"), ErrForbiddenOperation)
	})

	t.Run("admin passes without ownership", func(t *testing.T) {
		require.NoError(t, gate.Authorize(ctx, admin, "reg-1"))
	})

	t.Run("missing registration is not-found, not forbidden", func(t *testing.T) {
		require.ErrorIs(t, gate.Authorize(ctx, stranger, "reg-404"), ErrRegistrationNotFound)
	})
}
