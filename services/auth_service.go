package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aaroha-fest/sargam-portal/models"
	"github.com/aaroha-fest/sargam-portal/repositories"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/idtoken"
)

type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	CollegeName string `json:"college_name"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileInput struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	CollegeName string `json:"college_name"`
}

type AdminSetupInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	AdminSecret string `json:"admin_secret"`
}

// TokenIdentity is what the bearer token asserts about the caller. It
// is enough to rebuild a missing profile row.
type TokenIdentity struct {
	UserID string
	Email  string
	Name   string
}

type ProfileResponse struct {
	Profile       *models.User          `json:"profile"`
	Registrations []models.Registration `json:"registrations"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*models.User, error)
	GoogleSignIn(ctx context.Context, rawIDToken string) (*models.User, bool, error)
	GoogleAuthURL() (string, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetProfile(ctx context.Context, identity TokenIdentity) (*ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error)
	SetupAdmin(ctx context.Context, input AdminSetupInput) (*models.User, error)
	CreateAdmin(ctx context.Context, input RegisterInput) (*models.User, error)
	ListUsers(ctx context.Context, role string) ([]models.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, userID string, newPassword string) error
	ResetPasswordByToken(ctx context.Context, token string, newPassword string) error
}

type AuthServiceConfig struct {
	GoogleClientID    string
	GoogleRedirectURL string
	AdminSetupSecret  string
}

type authService struct {
	userRepo     repositories.UserRepository
	regRepo      repositories.RegistrationRepository
	resolver     *RoleResolver
	emailService *EmailService
	logger       *slog.Logger
	cfg          AuthServiceConfig

	// Swapped out in tests; idtoken.Validate needs Google's keys.
	validateIDToken func(ctx context.Context, rawToken, audience string) (*idtoken.Payload, error)
}

// NewAuthService wires the auth flows. emailService may be nil, in
// which case outgoing mail is skipped.
func NewAuthService(
	userRepo repositories.UserRepository,
	regRepo repositories.RegistrationRepository,
	resolver *RoleResolver,
	emailService *EmailService,
	logger *slog.Logger,
	cfg AuthServiceConfig,
) AuthService {
	return &authService{
		userRepo:        userRepo,
		regRepo:         regRepo,
		resolver:        resolver,
		emailService:    emailService,
		logger:          logger,
		cfg:             cfg,
		validateIDToken: idtoken.Validate,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	return s.createUser(ctx, input, models.RoleTeam)
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	// Accounts created through Google sign-in have no password.
	if user.PasswordHash == "" {
		return nil, ErrAuthInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	user.PasswordHash = ""
	user.Role = s.resolver.EffectiveRole(user.Email, user.Role)
	return user, nil
}

func (s *authService) GoogleSignIn(ctx context.Context, rawIDToken string) (*models.User, bool, error) {
	if s.cfg.GoogleClientID == "" {
		return nil, false, ErrGoogleNotConfigured
	}

	payload, err := s.validateIDToken(ctx, rawIDToken, s.cfg.GoogleClientID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidGoogleToken, err)
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	if email == "" {
		return nil, false, ErrInvalidGoogleToken
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		user.PasswordHash = ""
		user.Role = s.resolver.EffectiveRole(user.Email, user.Role)
		return user, false, nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, false, fmt.Errorf("failed to look up google user: %w", err)
	}

	user = &models.User{
		ID:    uuid.NewString(),
		Email: email,
		Name:  name,
		Role:  models.RoleTeam,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("failed to create profile for google user: %w", err)
	}

	user.Role = s.resolver.EffectiveRole(user.Email, user.Role)
	return user, true, nil
}

func (s *authService) GoogleAuthURL() (string, error) {
	if s.cfg.GoogleClientID == "" {
		return "", ErrGoogleNotConfigured
	}
	oauthCfg := oauth2.Config{
		ClientID:    s.cfg.GoogleClientID,
		RedirectURL: s.cfg.GoogleRedirectURL,
		Scopes:      []string{"openid", "email", "profile"},
		Endpoint:    google.Endpoint,
	}
	return oauthCfg.AuthCodeURL(generateRandomToken(16)), nil
}

func (s *authService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.PasswordHash = ""
	user.Role = s.resolver.EffectiveRole(user.Email, user.Role)
	return user, nil
}

// GetProfile loads the caller's profile and registrations. A missing
// profile row is rebuilt from the token identity on the spot: profile
// creation elsewhere is best-effort, so the fetch path is the
// reconciliation point.
func (s *authService) GetProfile(ctx context.Context, identity TokenIdentity) (*ProfileResponse, error) {
	var (
		profile       *models.User
		registrations []models.Registration
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.userRepo.GetByID(gctx, identity.UserID)
		if errors.Is(err, repositories.ErrUserNotFound) {
			profile = &models.User{
				ID:    identity.UserID,
				Email: identity.Email,
				Name:  identity.Name,
				Role:  models.RoleTeam,
			}
			if upsertErr := s.userRepo.Upsert(gctx, profile); upsertErr != nil {
				// Degraded but successful: serve the identity we have.
				s.logger.Warn("profile upsert failed", slog.String("user_id", identity.UserID), slog.Any("error", upsertErr))
			}
			return nil
		}
		return err
	})
	g.Go(func() error {
		regs, err := s.regRepo.ListByUserID(gctx, identity.UserID)
		if err != nil {
			s.logger.Warn("registrations fetch failed", slog.String("user_id", identity.UserID), slog.Any("error", err))
			regs = []models.Registration{}
		}
		registrations = regs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	profile.PasswordHash = ""
	profile.Role = s.resolver.EffectiveRole(profile.Email, profile.Role)

	return &ProfileResponse{Profile: profile, Registrations: registrations}, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ValidationErrors{"name": "Name is required"}
	}
	user, err := s.userRepo.UpdateProfile(ctx, userID,
		strings.TrimSpace(input.Name),
		strings.TrimSpace(input.Phone),
		strings.TrimSpace(input.CollegeName),
	)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	user.PasswordHash = ""
	user.Role = s.resolver.EffectiveRole(user.Email, user.Role)
	return user, nil
}

func (s *authService) SetupAdmin(ctx context.Context, input AdminSetupInput) (*models.User, error) {
	if s.cfg.AdminSetupSecret == "" {
		return nil, ErrAdminSecretUnset
	}
	if subtle.ConstantTimeCompare([]byte(input.AdminSecret), []byte(s.cfg.AdminSetupSecret)) != 1 {
		return nil, ErrInvalidAdminSecret
	}
	return s.createUser(ctx, RegisterInput{
		Email:    input.Email,
		Password: input.Password,
		Name:     input.Name,
		Phone:    input.Phone,
	}, models.RoleAdmin)
}

func (s *authService) CreateAdmin(ctx context.Context, input RegisterInput) (*models.User, error) {
	return s.createUser(ctx, input, models.RoleAdmin)
}

func (s *authService) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	users, err := s.userRepo.List(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	for i := range users {
		users[i].PasswordHash = ""
		users[i].Role = s.resolver.EffectiveRole(users[i].Email, users[i].Role)
	}
	return users, nil
}

// ForgotPassword never reveals whether the email is registered.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil
	}

	resetToken := generateRandomToken(32)
	if err := s.userRepo.SetPasswordResetToken(ctx, user.ID, resetToken, time.Now().Add(1*time.Hour)); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if s.emailService != nil {
		if err := s.emailService.SendPasswordResetEmail(user.Email, resetToken); err != nil {
			s.logger.Error("failed to send password reset email", slog.String("email", user.Email), slog.Any("error", err))
		}
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, userID string, newPassword string) error {
	if errs := validatePassword(newPassword); len(errs) > 0 {
		return errs
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, string(hashed)); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (s *authService) ResetPasswordByToken(ctx context.Context, token string, newPassword string) error {
	if errs := validatePassword(newPassword); len(errs) > 0 {
		return errs
	}
	user, err := s.userRepo.GetByPasswordResetToken(ctx, token)
	if err != nil {
		return ErrInvalidResetToken
	}
	if user.PasswordResetExpiresAt == nil || user.PasswordResetExpiresAt.Before(time.Now()) {
		return ErrInvalidResetToken
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (s *authService) createUser(ctx context.Context, input RegisterInput, role models.UserRole) (*models.User, error) {
	if errs := validateRegisterInput(input); len(errs) > 0 {
		return nil, errs
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        strings.TrimSpace(input.Email),
		Name:         strings.TrimSpace(input.Name),
		Phone:        strings.TrimSpace(input.Phone),
		CollegeName:  strings.TrimSpace(input.CollegeName),
		Role:         role,
		PasswordHash: string(hashed),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrAuthEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.emailService != nil && role == models.RoleTeam {
		// Best effort: a failed welcome email must not fail signup.
		if err := s.emailService.SendWelcomeEmail(user.Email, user.Name); err != nil {
			s.logger.Error("failed to send welcome email", slog.String("email", user.Email), slog.Any("error", err))
		}
	}

	user.PasswordHash = ""
	return user, nil
}

func validateRegisterInput(input RegisterInput) ValidationErrors {
	errs := ValidationErrors{}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		errs["email"] = "Email is required"
	} else if !isValidEmail(email) {
		errs["email"] = "Please provide a valid email address"
	}
	for field, msg := range validatePassword(input.Password) {
		errs[field] = msg
	}
	if strings.TrimSpace(input.Name) == "" {
		errs["name"] = "Name is required"
	}
	return errs
}

func validatePassword(password string) ValidationErrors {
	errs := ValidationErrors{}
	if len(password) < 6 {
		errs["password"] = "Password must be at least 6 characters"
	}
	return errs
}
