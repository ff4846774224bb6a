package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aaroha-fest/sargam-portal/middleware"
	"github.com/aaroha-fest/sargam-portal/models"
	"github.com/aaroha-fest/sargam-portal/services"
	"github.com/golang-jwt/jwt/v4"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 30 * 24 * time.Hour
)

type AuthHandler struct {
	authService services.AuthService
	jwtSecret   []byte
}

func NewAuthHandler(authService services.AuthService, jwtSecret []byte) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtSecret:   jwtSecret,
	}
}

// session is the token payload returned by every sign-in variant.
type session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

func (h *AuthHandler) issueSession(user *models.User) (*session, error) {
	now := time.Now()
	accessExpiry := now.Add(accessTokenTTL)

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(user.Role),
		"name":    user.Name,
		"iat":     now.Unix(),
		"exp":     accessExpiry.Unix(),
	})
	signedAccess, err := accessToken.SignedString(h.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"typ":     "refresh",
		"iat":     now.Unix(),
		"exp":     now.Add(refreshTokenTTL).Unix(),
	})
	signedRefresh, err := refreshToken.SignedString(h.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &session{
		AccessToken:  signedAccess,
		RefreshToken: signedRefresh,
		ExpiresAt:    accessExpiry.Unix(),
	}, nil
}

func (h *AuthHandler) respondWithSession(w http.ResponseWriter, r *http.Request, status int, message string, user *models.User, extra map[string]interface{}) {
	sess, err := h.issueSession(user)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	data := map[string]interface{}{
		"user":    user,
		"session": sess,
	}
	for k, v := range extra {
		data[k] = v
	}
	successResponse(w, status, message, data)
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	user, err := h.authService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.respondWithSession(w, r, http.StatusCreated, "Account created successfully", user, nil)
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	user, err := h.authService.Login(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.respondWithSession(w, r, http.StatusOK, "Signed in successfully", user, nil)
}

func (h *AuthHandler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var input struct {
		IDToken string `json:"id_token"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if input.IDToken == "" {
		badRequestResponse(w, errors.New("id_token is required"))
		return
	}

	user, isNewUser, err := h.authService.GoogleSignIn(r.Context(), input.IDToken)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	message := "Signed in successfully"
	if isNewUser {
		message = "Account created successfully"
	}
	h.respondWithSession(w, r, http.StatusOK, message, user, map[string]interface{}{
		"is_new_user": isNewUser,
	})
}

func (h *AuthHandler) GoogleAuthURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.authService.GoogleAuthURL()
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, http.StatusOK, "", map[string]interface{}{"url": url})
}

// RefreshToken exchanges a valid refresh token for a fresh pair. The
// user is re-read so role changes take effect on the next refresh.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(input.RefreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return h.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		mapServiceErrorToHTTP(w, r, services.ErrInvalidRefreshToken)
		return
	}
	if typ, _ := claims["typ"].(string); typ != "refresh" {
		mapServiceErrorToHTTP(w, r, services.ErrInvalidRefreshToken)
		return
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		mapServiceErrorToHTTP(w, r, services.ErrInvalidRefreshToken)
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			mapServiceErrorToHTTP(w, r, services.ErrInvalidRefreshToken)
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.respondWithSession(w, r, http.StatusOK, "Token refreshed", user, nil)
}

// SignOut exists for client symmetry. Tokens are stateless, so there is
// nothing to revoke server-side; clients drop their copies.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	successResponse(w, http.StatusOK, "Signed out successfully", nil)
}

func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Access denied. No token provided.")
		return
	}

	profile, err := h.authService.GetProfile(r.Context(), services.TokenIdentity{
		UserID: caller.UserID,
		Email:  caller.Email,
		Name:   middleware.CallerNameFromContext(r.Context()),
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, http.StatusOK, "", profile)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Access denied. No token provided.")
		return
	}

	var input services.UpdateProfileInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), caller.UserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, http.StatusOK, "Profile updated successfully", user)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if input.Email == "" {
		badRequestResponse(w, errors.New("email is required"))
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), input.Email); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	// Same response whether or not the email is registered.
	successResponse(w, http.StatusOK, "If an account exists for this email, a reset link has been sent", nil)
}

// ResetPassword serves both flows: an authenticated caller changes
// their own password, an unauthenticated caller presents a reset token.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	var err error
	if input.Token != "" {
		err = h.authService.ResetPasswordByToken(r.Context(), input.Token, input.NewPassword)
	} else {
		caller, callerErr := middleware.CallerFromContext(r.Context())
		if callerErr != nil {
			errorResponse(w, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}
		err = h.authService.ResetPassword(r.Context(), caller.UserID, input.NewPassword)
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, http.StatusOK, "Password updated successfully", nil)
}

func (h *AuthHandler) SetupAdmin(w http.ResponseWriter, r *http.Request) {
	var input services.AdminSetupInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	user, err := h.authService.SetupAdmin(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.respondWithSession(w, r, http.StatusCreated, "Admin account created successfully", user, nil)
}

func (h *AuthHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}

	user, err := h.authService.CreateAdmin(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, http.StatusCreated, "Admin account created successfully", user)
}

func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")

	users, err := h.authService.ListUsers(r.Context(), role)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	successResponse(w, http.StatusOK, "", map[string]interface{}{
		"count": len(users),
		"users": users,
	})
}
