package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/aaroha-fest/sargam-portal/models"
	"github.com/aaroha-fest/sargam-portal/repositories"
)

// Caller is the authenticated identity attached to a request by the
// auth middleware. Role is the effective role, already resolved.
type Caller struct {
	UserID string
	Email  string
	Role   models.UserRole
}

func (c Caller) IsAdmin() bool { return c.Role == models.RoleAdmin }

// AccessGate decides whether a caller may touch a specific
// registration. Admins pass unconditionally; everyone else must own
// the record. A missing record yields not-found, never forbidden, so
// the existence check runs first. The gate holds no per-request state.
type AccessGate struct {
	registrationRepo repositories.RegistrationRepository
}

func NewAccessGate(registrationRepo repositories.RegistrationRepository) *AccessGate {
	return &AccessGate{registrationRepo: registrationRepo}
}

func (g *AccessGate) Authorize(ctx context.Context, caller Caller, registrationID string) error {
	if caller.IsAdmin() {
		return nil
	}

	reg, err := g.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("failed to load registration for access check: %w", err)
	}

	if reg.UserID != caller.UserID {
		return ErrForbiddenOperation
	}
	return nil
}
