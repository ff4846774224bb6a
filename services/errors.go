package services

import "errors"

// Shared sentinel errors, mapped to HTTP statuses in the handlers
// package.
var (
	// Registration lifecycle
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrAlreadyRegistered    = errors.New("you have already registered a band, only one registration per user is allowed")
	ErrRegistrationRejected = errors.New("cannot approve a rejected registration, the user must register again")
	ErrRegistrationModified = errors.New("registration was changed by another request, please retry")
	ErrInvalidPaymentStatus = errors.New("payment status must be one of: pending, completed, failed, refunded")

	// Access control
	ErrForbiddenOperation = errors.New("access denied, you can only access your own registration")
	ErrAdminRequired      = errors.New("access denied, admin privileges required")

	// Authentication
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidResetToken      = errors.New("invalid or expired reset token")
	ErrInvalidRefreshToken    = errors.New("invalid refresh token")
	ErrInvalidAdminSecret     = errors.New("invalid admin secret, access denied")
	ErrAdminSecretUnset       = errors.New("admin setup secret is not configured")
	ErrInvalidGoogleToken     = errors.New("google authentication failed")
	ErrGoogleNotConfigured    = errors.New("google sign-in is not configured")

	// Uploads
	ErrUploaderUnavailable = errors.New("file storage is not configured")
	ErrUnsupportedFileType = errors.New("unsupported file type, only images are accepted")
)

// ValidationErrors carries per-field validation messages across the
// service boundary.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string { return "validation failed" }
