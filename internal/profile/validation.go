package profile

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrPrivate = errors.New("profile is private")

// ValidationError is rejected client input. Its message is shown to the
// caller as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrAvatarRequired   = &ValidationError{"Avatar URL is required"}
	ErrAvatarURLTooLong = &ValidationError{"Avatar URL is too long"}
	ErrFileRequired     = &ValidationError{"No file uploaded"}
	ErrInvalidTheme     = &ValidationError{"Theme must be one of light, dark, auto"}
	ErrInvalidPrivacy   = &ValidationError{"Profile visibility must be one of public, private, connections"}
	ErrInvalidUserID    = &ValidationError{"Invalid user id"}
)

// field limits, in characters
const (
	maxBio             = 500
	maxLocation        = 100
	maxWebsite         = 200
	maxCompany         = 100
	maxJobTitle        = 100
	maxSkill           = 50
	maxInstitution     = 200
	maxDegree          = 100
	maxField           = 100
	maxEduDescription  = 500
	maxExpCompany      = 200
	maxPosition        = 100
	maxExpDescription  = 1000
	maxSocialHandle    = 100
	maxAvatarURLLength = 2048
)

func tooLong(field string, limit int) *ValidationError {
	return &ValidationError{fmt.Sprintf("%s cannot exceed %d characters", field, limit)}
}

func required(field string) *ValidationError {
	return &ValidationError{fmt.Sprintf("%s is required", field)}
}

func checkLen(value, field string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return tooLong(field, limit)
	}
	return nil
}

// validateUpdate checks and normalizes u in place.
func validateUpdate(u *Update) error {
	scalars := []struct {
		value *string
		field string
		limit int
	}{
		{u.Bio, "Bio", maxBio},
		{u.Location, "Location", maxLocation},
		{u.Website, "Website", maxWebsite},
		{u.Company, "Company", maxCompany},
		{u.JobTitle, "Job title", maxJobTitle},
	}
	for _, s := range scalars {
		if s.value == nil {
			continue
		}
		*s.value = strings.TrimSpace(*s.value)
		if err := checkLen(*s.value, s.field, s.limit); err != nil {
			return err
		}
	}

	if u.Skills != nil {
		skills, err := normalizeSkills(*u.Skills)
		if err != nil {
			return err
		}
		u.Skills = &skills
	}

	if u.Education != nil {
		for i := range *u.Education {
			if err := validateEducation(&(*u.Education)[i]); err != nil {
				return err
			}
		}
	}

	if u.Experience != nil {
		for i := range *u.Experience {
			if err := validateExperience(&(*u.Experience)[i]); err != nil {
				return err
			}
		}
	}

	if u.Social != nil {
		for _, handle := range []string{u.Social.Twitter, u.Social.LinkedIn, u.Social.GitHub, u.Social.Facebook, u.Social.Instagram} {
			if err := checkLen(handle, "Social link", maxSocialHandle); err != nil {
				return err
			}
		}
	}

	if u.Preferences != nil {
		if err := normalizePreferences(u.Preferences); err != nil {
			return err
		}
	}

	return nil
}

// normalizeSkills trims, drops empty entries and removes duplicates while
// keeping the first occurrence's position.
func normalizeSkills(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if err := checkLen(s, "Skill", maxSkill); err != nil {
			return nil, err
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

func validateEducation(e *Education) error {
	e.Institution = strings.TrimSpace(e.Institution)
	e.Degree = strings.TrimSpace(e.Degree)

	switch {
	case e.Institution == "":
		return required("Institution")
	case e.Degree == "":
		return required("Degree")
	}
	if err := checkLen(e.Institution, "Institution", maxInstitution); err != nil {
		return err
	}
	if err := checkLen(e.Degree, "Degree", maxDegree); err != nil {
		return err
	}
	if err := checkLen(e.Field, "Field of study", maxField); err != nil {
		return err
	}
	return checkLen(e.Description, "Education description", maxEduDescription)
}

func validateExperience(e *Experience) error {
	e.Company = strings.TrimSpace(e.Company)
	e.Position = strings.TrimSpace(e.Position)

	switch {
	case e.Company == "":
		return required("Company")
	case e.Position == "":
		return required("Position")
	}
	if err := checkLen(e.Company, "Company", maxExpCompany); err != nil {
		return err
	}
	if err := checkLen(e.Position, "Position", maxPosition); err != nil {
		return err
	}
	return checkLen(e.Description, "Experience description", maxExpDescription)
}

func normalizePreferences(p *Preferences) error {
	switch p.Theme {
	case "":
		p.Theme = "auto"
	case "light", "dark", "auto":
	default:
		return ErrInvalidTheme
	}

	if p.Language == "" {
		p.Language = "en"
	}

	switch p.Privacy.ProfileVisibility {
	case "":
		p.Privacy.ProfileVisibility = VisibilityPublic
	case VisibilityPublic, VisibilityPrivate, VisibilityConnections:
	default:
		return ErrInvalidPrivacy
	}

	return nil
}
