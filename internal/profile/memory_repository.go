package profile

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/viziopath-api/internal/account"
)

// MemoryRepository is a mutex-guarded Repository for tests. Owners are read
// from the given account repository.
type MemoryRepository struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*Profile // keyed by owner
	accounts account.Repository
}

func NewMemoryRepository(accounts account.Repository) *MemoryRepository {
	return &MemoryRepository{profiles: make(map[uuid.UUID]*Profile), accounts: accounts}
}

func (r *MemoryRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	r.mu.Lock()
	p, ok := r.profiles[userID]
	if ok {
		p = cloneProfile(p)
	}
	r.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	return r.withOwner(ctx, p), nil
}

func (r *MemoryRepository) Ensure(ctx context.Context, p *Profile) (*Profile, bool, error) {
	r.mu.Lock()
	_, exists := r.profiles[p.UserID]
	if !exists {
		r.profiles[p.UserID] = cloneProfile(p)
	}
	r.mu.Unlock()

	stored, err := r.GetByUser(ctx, p.UserID)
	return stored, !exists, err
}

func (r *MemoryRepository) Update(ctx context.Context, userID uuid.UUID, u Update, now time.Time) (*Profile, error) {
	r.mu.Lock()
	p, ok := r.profiles[userID]
	if ok {
		u.Apply(p)
		p.UpdatedAt = now
	}
	r.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	return r.GetByUser(ctx, userID)
}

func (r *MemoryRepository) IncrementViews(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[userID]
	if !ok {
		return ErrNotFound
	}
	p.Stats.ProfileViews++
	return nil
}

func (r *MemoryRepository) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.profiles, userID)
	return nil
}

func (r *MemoryRepository) Search(ctx context.Context, q SearchQuery) ([]*Profile, int, error) {
	matches := r.filter(ctx, func(p *Profile) bool {
		if len(q.Skills) > 0 && !sharesAny(p.Skills, q.Skills) {
			return false
		}
		if q.Location != "" && !containsFoldString(p.Location, q.Location) {
			return false
		}
		if q.Company != "" && !containsFoldString(p.Company, q.Company) {
			return false
		}
		if q.Text != "" {
			name := ""
			if p.Owner != nil {
				name = p.Owner.Name
			}
			return containsFoldString(name, q.Text) ||
				containsFoldString(p.Bio, q.Text) ||
				containsFoldString(p.Company, q.Text) ||
				containsFoldString(p.JobTitle, q.Text)
		}
		return true
	})

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Stats.ProfileViews != matches[j].Stats.ProfileViews {
			return matches[i].Stats.ProfileViews > matches[j].Stats.ProfileViews
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := len(matches)
	start := min(max(q.Offset(), 0), total)
	end := min(start+q.Limit, total)
	return matches[start:end], total, nil
}

func (r *MemoryRepository) Suggest(ctx context.Context, q SuggestionQuery) ([]*Profile, error) {
	matches := r.filter(ctx, func(p *Profile) bool {
		if p.UserID == q.Exclude {
			return false
		}
		if len(q.Skills) > 0 && !sharesAny(p.Skills, q.Skills) {
			return false
		}
		return q.Location == "" || containsFoldString(p.Location, q.Location)
	})

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Stats.ProfileViews > matches[j].Stats.ProfileViews
	})

	return matches[:min(q.Limit, len(matches))], nil
}

// filter returns copies of the public profiles accepted by keep.
func (r *MemoryRepository) filter(ctx context.Context, keep func(*Profile) bool) []*Profile {
	r.mu.Lock()
	all := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		all = append(all, cloneProfile(p))
	}
	r.mu.Unlock()

	out := make([]*Profile, 0, len(all))
	for _, p := range all {
		p = r.withOwner(ctx, p)
		if p.IsPublic() && keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (r *MemoryRepository) withOwner(ctx context.Context, p *Profile) *Profile {
	if acc, err := r.accounts.GetByID(ctx, p.UserID); err == nil {
		summary := acc.Summary()
		p.Owner = &summary
	}
	return p
}

func sharesAny(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

func containsFoldString(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func cloneProfile(p *Profile) *Profile {
	c := *p
	c.Skills = slices.Clone(p.Skills)
	c.Education = slices.Clone(p.Education)
	c.Experience = slices.Clone(p.Experience)
	return &c
}
