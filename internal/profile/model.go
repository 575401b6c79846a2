package profile

import (
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/viziopath-api/internal/account"
)

const (
	VisibilityPublic      = "public"
	VisibilityPrivate     = "private"
	VisibilityConnections = "connections"
)

type Education struct {
	Institution string     `json:"institution" bson:"institution"`
	Degree      string     `json:"degree" bson:"degree"`
	Field       string     `json:"field,omitempty" bson:"field,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty" bson:"endDate,omitempty"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
}

type Experience struct {
	Company     string     `json:"company" bson:"company"`
	Position    string     `json:"position" bson:"position"`
	StartDate   *time.Time `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty" bson:"endDate,omitempty"`
	Current     bool       `json:"current" bson:"current"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
}

type Social struct {
	Twitter   string `json:"twitter,omitempty" bson:"twitter,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty" bson:"linkedin,omitempty"`
	GitHub    string `json:"github,omitempty" bson:"github,omitempty"`
	Facebook  string `json:"facebook,omitempty" bson:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty" bson:"instagram,omitempty"`
}

type Notifications struct {
	Email     bool `json:"email" bson:"email"`
	Push      bool `json:"push" bson:"push"`
	Marketing bool `json:"marketing" bson:"marketing"`
}

type Privacy struct {
	ProfileVisibility string `json:"profileVisibility" bson:"profileVisibility"`
	ShowEmail         bool   `json:"showEmail" bson:"showEmail"`
	ShowPhone         bool   `json:"showPhone" bson:"showPhone"`
}

type Preferences struct {
	Theme         string        `json:"theme" bson:"theme"`
	Language      string        `json:"language" bson:"language"`
	Notifications Notifications `json:"notifications" bson:"notifications"`
	Privacy       Privacy       `json:"privacy" bson:"privacy"`
}

// DefaultPreferences is what a lazily created profile starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:         "auto",
		Language:      "en",
		Notifications: Notifications{Email: true, Push: true},
		Privacy:       Privacy{ProfileVisibility: VisibilityPublic},
	}
}

type Stats struct {
	ProfileViews int `json:"profileViews" bson:"profileViews"`
	Connections  int `json:"connections" bson:"connections"`
	Posts        int `json:"posts" bson:"posts"`
}

// Profile is the public-facing page of an account. Owner is filled by the
// repositories from the accounts store.
type Profile struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"-"`
	Owner       *account.Summary `json:"user"`
	Avatar      *string          `json:"avatar"`
	Bio         string           `json:"bio"`
	Location    string           `json:"location"`
	Website     string           `json:"website"`
	Company     string           `json:"company"`
	JobTitle    string           `json:"jobTitle"`
	Skills      []string         `json:"skills"`
	Education   []Education      `json:"education"`
	Experience  []Experience     `json:"experience"`
	Social      Social           `json:"social"`
	Preferences Preferences      `json:"preferences"`
	Stats       Stats            `json:"stats"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// New returns an empty profile for userID.
func New(userID uuid.UUID, now time.Time) *Profile {
	return &Profile{
		ID:          uuid.New(),
		UserID:      userID,
		Skills:      []string{},
		Education:   []Education{},
		Experience:  []Experience{},
		Preferences: DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsPublic reports whether the profile shows up for other accounts.
func (p *Profile) IsPublic() bool {
	return p.Preferences.Privacy.ProfileVisibility == VisibilityPublic
}

// Update is a partial profile update. Nil fields are left untouched.
type Update struct {
	Avatar      *string
	Bio         *string
	Location    *string
	Website     *string
	Company     *string
	JobTitle    *string
	Skills      *[]string
	Education   *[]Education
	Experience  *[]Experience
	Social      *Social
	Preferences *Preferences
}

// IsEmpty is true when no field is set.
func (u Update) IsEmpty() bool {
	return u == Update{}
}

// Apply copies the set fields onto p.
func (u Update) Apply(p *Profile) {
	if u.Avatar != nil {
		avatar := *u.Avatar
		p.Avatar = &avatar
	}
	if u.Bio != nil {
		p.Bio = *u.Bio
	}
	if u.Location != nil {
		p.Location = *u.Location
	}
	if u.Website != nil {
		p.Website = *u.Website
	}
	if u.Company != nil {
		p.Company = *u.Company
	}
	if u.JobTitle != nil {
		p.JobTitle = *u.JobTitle
	}
	if u.Skills != nil {
		p.Skills = append([]string{}, (*u.Skills)...)
	}
	if u.Education != nil {
		p.Education = append([]Education{}, (*u.Education)...)
	}
	if u.Experience != nil {
		p.Experience = append([]Experience{}, (*u.Experience)...)
	}
	if u.Social != nil {
		p.Social = *u.Social
	}
	if u.Preferences != nil {
		p.Preferences = *u.Preferences
	}
}

// SearchQuery filters public profiles. Text matches the owner's name, bio,
// company and job title case-insensitively; Skills matches any of the list.
type SearchQuery struct {
	Text     string
	Skills   []string
	Location string
	Company  string
	Page     int
	Limit    int
}

// Offset is the number of rows skipped for the requested page.
func (q SearchQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// SuggestionQuery selects public profiles similar to the caller's.
type SuggestionQuery struct {
	Exclude  uuid.UUID
	Skills   []string
	Location string
	Limit    int
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type SearchResult struct {
	Profiles   []*Profile `json:"profiles"`
	Pagination Pagination `json:"pagination"`
}
