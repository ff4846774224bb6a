package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aaroha-fest/sargam-portal/models"
	"github.com/aaroha-fest/sargam-portal/repositories"
	"github.com/stretchr/testify/suite"
	"google.golang.org/api/idtoken"
)

type AuthServiceSuite struct {
	suite.Suite
	ctx      context.Context
	userRepo *repositories.InMemoryUserRepository
	regRepo  *repositories.InMemoryRegistrationRepository
	svc      AuthService
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.userRepo = repositories.NewInMemoryUserRepository()
	s.regRepo = repositories.NewInMemoryRegistrationRepository()
	s.svc = NewAuthService(
		s.userRepo,
		s.regRepo,
		NewRoleResolver([]string{"organizer@aaroha.in"}),
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		AuthServiceConfig{
			GoogleClientID:   "test-client-id",
			AdminSetupSecret: "letmein-secret",
		},
	)
}

func validRegisterInput() RegisterInput {
	return RegisterInput{
		Email:       "asha@example.com",
		Password:    "hunter22",
		Name:        "Asha Pillai",
		Phone:       "9876543210",
		CollegeName: "National Institute of Design",
	}
}

func (s *AuthServiceSuite) TestRegisterAndLogin() {
	user, err := s.svc.Register(s.ctx, validRegisterInput())
	s.Require().NoError(err)
	s.Equal(models.RoleTeam, user.Role)
	s.Empty(user.PasswordHash)

	logged, err := s.svc.Login(s.ctx, LoginInput{Email: "asha@example.com", Password: "hunter22"})
	s.Require().NoError(err)
	s.Equal(user.ID, logged.ID)
	s.Empty(logged.PasswordHash)
}

func (s *AuthServiceSuite) TestRegisterValidation() {
	s.Run("short password", func() {
		input := validRegisterInput()
		input.Password = "abc"
		_, err := s.svc.Register(s.ctx, input)

		var errs ValidationErrors
		s.Require().ErrorAs(err, &errs)
		s.Contains(errs, "password")
	})

	s.Run("bad email", func() {
		input := validRegisterInput()
		input.Email = "not-an-email"
		_, err := s.svc.Register(s.ctx, input)

		var errs ValidationErrors
		s.Require().ErrorAs(err, &errs)
		s.Contains(errs, "email")
	})
}

func (s *AuthServiceSuite) TestRegisterDuplicateEmail() {
	_, err := s.svc.Register(s.ctx, validRegisterInput())
	s.Require().NoError(err)

	_, err = s.svc.Register(s.ctx, validRegisterInput())
	s.ErrorIs(err, ErrAuthEmailTaken)
}

func (s *AuthServiceSuite) TestLoginFailures() {
	_, err := s.svc.Register(s.ctx, validRegisterInput())
	s.Require().NoError(err)

	s.Run("wrong password", func() {
		_, err := s.svc.Login(s.ctx, LoginInput{Email: "asha@example.com", Password: "wrong"})
		s.ErrorIs(err, ErrAuthInvalidCredentials)
	})

	s.Run("unknown email", func() {
		_, err := s.svc.Login(s.ctx, LoginInput{Email: "nobody@example.com", Password: "hunter22"})
		s.ErrorIs(err, ErrAuthInvalidCredentials)
	})

	s.Run("password login on a google account", func() {
		s.Require().NoError(s.userRepo.Create(s.ctx, &models.User{
			ID:    "google-user",
			Email: "google@example.com",
			Role:  models.RoleTeam,
		}))
		_, err := s.svc.Login(s.ctx, LoginInput{Email: "google@example.com", Password: "anything"})
		s.ErrorIs(err, ErrAuthInvalidCredentials)
	})
}

func (s *AuthServiceSuite) TestAllowListedEmailLogsInAsAdmin() {
	input := validRegisterInput()
	input.Email = "organizer@aaroha.in"
	user, err := s.svc.Register(s.ctx, input)
	s.Require().NoError(err)
	// Stored role stays team; the override is applied at resolution.
	stored, err := s.userRepo.GetByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(models.RoleTeam, stored.Role)

	logged, err := s.svc.Login(s.ctx, LoginInput{Email: "organizer@aaroha.in", Password: "hunter22"})
	s.Require().NoError(err)
	s.Equal(models.RoleAdmin, logged.Role)
}

func (s *AuthServiceSuite) TestGoogleSignIn() {
	svc := s.svc.(*authService)
	svc.validateIDToken = func(_ context.Context, rawToken, audience string) (*idtoken.Payload, error) {
		s.Equal("test-client-id", audience)
		return &idtoken.Payload{Claims: map[string]interface{}{
			"email": "gina@example.com",
			"name":  "Gina Rodrigues",
		}}, nil
	}

	user, isNew, err := s.svc.GoogleSignIn(s.ctx, "raw-token")
	s.Require().NoError(err)
	s.True(isNew)
	s.Equal("gina@example.com", user.Email)
	s.Equal(models.RoleTeam, user.Role)

	again, isNew, err := s.svc.GoogleSignIn(s.ctx, "raw-token")
	s.Require().NoError(err)
	s.False(isNew)
	s.Equal(user.ID, again.ID)
}

func (s *AuthServiceSuite) TestGetProfileRebuildsMissingRow() {
	identity := TokenIdentity{UserID: "ghost-1", Email: "ghost@example.com", Name: "Ghost"}

	profile, err := s.svc.GetProfile(s.ctx, identity)
	s.Require().NoError(err)
	s.Equal("ghost@example.com", profile.Profile.Email)
	s.Equal(models.RoleTeam, profile.Profile.Role)
	s.Empty(profile.Registrations)

	// The rebuilt row is persisted for next time.
	stored, err := s.userRepo.GetByID(s.ctx, "ghost-1")
	s.Require().NoError(err)
	s.Equal("Ghost", stored.Name)
}

func (s *AuthServiceSuite) TestSetupAdmin() {
	s.Run("wrong secret", func() {
		_, err := s.svc.SetupAdmin(s.ctx, AdminSetupInput{
			Email:       "boss@example.com",
			Password:    "hunter22",
			Name:        "Boss",
			AdminSecret: "guess",
		})
		s.ErrorIs(err, ErrInvalidAdminSecret)
	})

	s.Run("correct secret", func() {
		user, err := s.svc.SetupAdmin(s.ctx, AdminSetupInput{
			Email:       "boss@example.com",
			Password:    "hunter22",
			Name:        "Boss",
			AdminSecret: "letmein-secret",
		})
		s.Require().NoError(err)
		s.Equal(models.RoleAdmin, user.Role)
	})

	s.Run("secret unset", func() {
		svc := NewAuthService(s.userRepo, s.regRepo, NewRoleResolver(nil), nil,
			slog.New(slog.NewTextHandler(io.Discard, nil)), AuthServiceConfig{})
		_, err := svc.SetupAdmin(s.ctx, AdminSetupInput{AdminSecret: ""})
		s.ErrorIs(err, ErrAdminSecretUnset)
	})
}

func (s *AuthServiceSuite) TestPasswordResetByToken() {
	user, err := s.svc.Register(s.ctx, validRegisterInput())
	s.Require().NoError(err)

	s.Require().NoError(s.svc.ForgotPassword(s.ctx, "asha@example.com"))

	stored, err := s.userRepo.GetByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.PasswordResetToken)

	s.Run("bad token", func() {
		err := s.svc.ResetPasswordByToken(s.ctx, "bogus", "newpassword")
		s.ErrorIs(err, ErrInvalidResetToken)
	})

	s.Run("valid token", func() {
		err := s.svc.ResetPasswordByToken(s.ctx, *stored.PasswordResetToken, "newpassword")
		s.Require().NoError(err)

		_, err = s.svc.Login(s.ctx, LoginInput{Email: "asha@example.com", Password: "newpassword"})
		s.NoError(err)
	})

	s.Run("expired token", func() {
		s.Require().NoError(s.svc.ForgotPassword(s.ctx, "asha@example.com"))
		refreshed, err := s.userRepo.GetByID(s.ctx, user.ID)
		s.Require().NoError(err)
		s.Require().NotNil(refreshed.PasswordResetToken)

		s.Require().NoError(s.userRepo.SetPasswordResetToken(s.ctx, user.ID, *refreshed.PasswordResetToken, time.Now().Add(-time.Minute)))
		err = s.svc.ResetPasswordByToken(s.ctx, *refreshed.PasswordResetToken, "anotherpass")
		s.ErrorIs(err, ErrInvalidResetToken)
	})
}

func (s *AuthServiceSuite) TestForgotPasswordUnknownEmailSucceeds() {
	s.NoError(s.svc.ForgotPassword(s.ctx, "nobody@example.com"))
}

func (s *AuthServiceSuite) TestUpdateProfile() {
	user, err := s.svc.Register(s.ctx, validRegisterInput())
	s.Require().NoError(err)

	updated, err := s.svc.UpdateProfile(s.ctx, user.ID, UpdateProfileInput{
		Name:        "Asha P.",
		Phone:       "9123456780",
		CollegeName: "NID Ahmedabad",
	})
	s.Require().NoError(err)
	s.Equal("Asha P.", updated.Name)
	s.Equal("NID Ahmedabad", updated.CollegeName)

	s.Run("name required", func() {
		_, err := s.svc.UpdateProfile(s.ctx, user.ID, UpdateProfileInput{Name: "  "})
		var errs ValidationErrors
		s.Require().ErrorAs(err, &errs)
		s.Contains(errs, "name")
	})
}

func (s *AuthServiceSuite) TestListUsers() {
	_, err := s.svc.Register(s.ctx, validRegisterInput())
	s.Require().NoError(err)
	_, err = s.svc.CreateAdmin(s.ctx, RegisterInput{
		Email:    "admin@example.com",
		Password: "hunter22",
		Name:     "Admin",
	})
	s.Require().NoError(err)

	all, err := s.svc.ListUsers(s.ctx, "")
	s.Require().NoError(err)
	s.Len(all, 2)
	for _, u := range all {
		s.Empty(u.PasswordHash)
	}

	admins, err := s.svc.ListUsers(s.ctx, "admin")
	s.Require().NoError(err)
	s.Len(admins, 1)
	s.Equal("admin@example.com", admins[0].Email)
}
