package account

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

type NotificationPreferences struct {
	Email bool `json:"email" bson:"email"`
	Push  bool `json:"push" bson:"push"`
}

type Preferences struct {
	Notifications NotificationPreferences `json:"notifications" bson:"notifications"`
	Theme         string                  `json:"theme" bson:"theme"`
	Language      string                  `json:"language" bson:"language"`
}

// DefaultPreferences mirrors what a freshly registered account gets.
func DefaultPreferences() Preferences {
	return Preferences{
		Notifications: NotificationPreferences{Email: true, Push: true},
		Theme:         "auto",
		Language:      "en",
	}
}

type Social struct {
	Twitter  string `json:"twitter,omitempty" bson:"twitter,omitempty"`
	LinkedIn string `json:"linkedin,omitempty" bson:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty" bson:"github,omitempty"`
}

// BasicProfile is the short self-description embedded in the account.
type BasicProfile struct {
	Bio      string `json:"bio,omitempty" bson:"bio,omitempty"`
	Location string `json:"location,omitempty" bson:"location,omitempty"`
	Website  string `json:"website,omitempty" bson:"website,omitempty"`
	Social   Social `json:"social" bson:"social"`
}

// Account is the authenticable identity. Secrets and security counters are
// tagged json:"-" and never leave the process.
type Account struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Phone        *string      `json:"phone,omitempty"`
	Avatar       *string      `json:"avatar"`
	PasswordHash string       `json:"-"`
	Role         Role         `json:"role"`
	IsVerified   bool         `json:"isVerified"`
	Preferences  Preferences  `json:"preferences"`
	Profile      BasicProfile `json:"profile"`

	VerificationTokenHash *string    `json:"-"`
	VerificationExpires   *time.Time `json:"-"`
	ResetTokenHash        *string    `json:"-"`
	ResetExpires          *time.Time `json:"-"`
	LoginAttempts         int        `json:"-"`
	LockUntil             *time.Time `json:"-"`

	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// IsLocked is true iff a lock is set and still in the future.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// Summary is the owner block embedded in profile responses.
type Summary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (a *Account) Summary() Summary {
	return Summary{
		ID:         a.ID,
		Name:       a.Name,
		Email:      a.Email,
		IsVerified: a.IsVerified,
		CreatedAt:  a.CreatedAt,
	}
}

// DetailsUpdate carries a partial update of the non-security fields.
// Nil pointers are left untouched.
type DetailsUpdate struct {
	Name        *string
	Phone       *string
	Bio         *string
	Location    *string
	Website     *string
	Social      *Social
	Preferences *Preferences
}

// Apply copies the set fields onto a.
func (u DetailsUpdate) Apply(a *Account) {
	if u.Name != nil {
		a.Name = *u.Name
	}
	if u.Phone != nil {
		if *u.Phone == "" {
			a.Phone = nil
		} else {
			phone := *u.Phone
			a.Phone = &phone
		}
	}
	if u.Bio != nil {
		a.Profile.Bio = *u.Bio
	}
	if u.Location != nil {
		a.Profile.Location = *u.Location
	}
	if u.Website != nil {
		a.Profile.Website = *u.Website
	}
	if u.Social != nil {
		a.Profile.Social = *u.Social
	}
	if u.Preferences != nil {
		a.Preferences = *u.Preferences
	}
}
