package auth

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/redmonkez12/viziopath-api/internal/account"
)

const (
	minNameLen     = 2
	maxNameLen     = 50
	maxEmailLen    = 254
	minPasswordLen = 6
	// bcrypt only looks at the first 72 bytes.
	maxPasswordLen = 72
	maxBioLen      = 500
)

var (
	emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
)

// NormalizeEmail trims and lower-cases an address; accounts are keyed by the result.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > maxEmailLen || !emailPattern.MatchString(email) {
		return ErrInvalidEmailFormat
	}
	return nil
}

func validateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < minNameLen || n > maxNameLen {
		return ErrInvalidName
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordLen {
		return ErrPasswordTooLong
	}
	return nil
}

func validatePhone(phone string) error {
	if phone != "" && !phonePattern.MatchString(phone) {
		return ErrInvalidPhone
	}
	return nil
}

// validateDetails checks and normalizes a partial account update in place.
func validateDetails(u *account.DetailsUpdate) error {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if err := validateName(name); err != nil {
			return err
		}
		u.Name = &name
	}
	if u.Phone != nil {
		phone := strings.TrimSpace(*u.Phone)
		if err := validatePhone(phone); err != nil {
			return err
		}
		u.Phone = &phone
	}
	if u.Bio != nil && utf8.RuneCountInString(*u.Bio) > maxBioLen {
		return ErrBioTooLong
	}
	if u.Preferences != nil {
		prefs := *u.Preferences
		switch prefs.Theme {
		case "":
			prefs.Theme = "auto"
		case "light", "dark", "auto":
		default:
			return ErrInvalidTheme
		}
		if prefs.Language == "" {
			prefs.Language = "en"
		}
		u.Preferences = &prefs
	}
	return nil
}
