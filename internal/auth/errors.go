package auth

import "errors"

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrTokenRevoked  = errors.New("token has been revoked")
	ErrUnauthorized  = errors.New("not authenticated")
	ErrAccountLocked = errors.New("account is temporarily locked")

	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrCurrentPasswordIncorrect = errors.New("current password is incorrect")
	ErrPasswordIncorrect        = errors.New("password is incorrect")
	ErrInvalidResetToken        = errors.New("invalid or expired reset token")
	ErrInvalidVerificationToken = errors.New("invalid or expired verification token")
	ErrEmailAlreadyVerified     = errors.New("email is already verified")
)

// ValidationError is rejected client input. Its message is shown to the
// caller as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrRegisterFieldsRequired = &ValidationError{"Name, email, and password are required"}
	ErrLoginFieldsRequired    = &ValidationError{"Email and password are required"}
	ErrEmailRequired          = &ValidationError{"Email is required"}
	ErrInvalidEmailFormat     = &ValidationError{"Please enter a valid email"}
	ErrInvalidName            = &ValidationError{"Name must be between 2 and 50 characters"}
	ErrInvalidPhone           = &ValidationError{"Please enter a valid phone number"}
	ErrPasswordTooShort       = &ValidationError{"Password must be at least 6 characters"}
	ErrPasswordTooLong        = &ValidationError{"Password must be at most 72 characters"}
	ErrPasswordFieldsRequired = &ValidationError{"Current password and new password are required"}
	ErrResetFieldsRequired    = &ValidationError{"Token and new password are required"}
	ErrVerificationRequired   = &ValidationError{"Verification token is required"}
	ErrDeletePasswordRequired = &ValidationError{"Password is required to delete account"}
	ErrBioTooLong             = &ValidationError{"Bio cannot exceed 500 characters"}
	ErrInvalidTheme           = &ValidationError{"Theme must be one of light, dark, auto"}
)
