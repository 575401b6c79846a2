package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("profile not found")

// Repository is the persistence collaborator for profiles. Returned profiles
// carry their owner summary.
type Repository interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*Profile, error)
	// Ensure inserts p unless its owner already has a profile and returns the
	// stored one. created reports whether p was inserted.
	Ensure(ctx context.Context, p *Profile) (stored *Profile, created bool, err error)
	// Update applies u to an existing profile. ErrNotFound if there is none.
	Update(ctx context.Context, userID uuid.UUID, u Update, now time.Time) (*Profile, error)
	IncrementViews(ctx context.Context, userID uuid.UUID) error
	// DeleteByUser removes the profile of userID. A missing profile is not
	// an error.
	DeleteByUser(ctx context.Context, userID uuid.UUID) error

	// Search returns one page of public profiles sorted by views then
	// creation time, newest first, together with the total match count.
	Search(ctx context.Context, q SearchQuery) ([]*Profile, int, error)
	// Suggest returns public profiles other than q.Exclude sorted by views.
	Suggest(ctx context.Context, q SuggestionQuery) ([]*Profile, error)
}

// likePattern turns s into an ILIKE substring pattern, escaping wildcards.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
