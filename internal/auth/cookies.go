package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

var ErrMissingToken = errors.New("not authenticated")

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name         string
	Domain       string
	MaxAge       time.Duration
	IsProduction bool
}

func (c CookieConfig) cookie(value string, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if c.IsProduction {
		sameSite = http.SameSiteNoneMode
	}

	return &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.IsProduction,
		SameSite: sameSite,
	}
}

// SetAuthCookie stores the session token in an http-only cookie.
func (c CookieConfig) SetAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(token, int(c.MaxAge.Seconds())))
}

// ClearAuthCookie expires the session cookie.
func (c CookieConfig) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie("", -1))
}

// TokenFromRequest returns the session token. The cookie wins over the
// Authorization header when both are present.
func (c CookieConfig) TokenFromRequest(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(c.Name); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && scheme == "Bearer" && strings.TrimSpace(token) != "" {
		return strings.TrimSpace(token), nil
	}

	return "", ErrMissingToken
}
