package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/redmonkez12/viziopath-api/internal/account"
)

// ownerRow is the slice of the accounts table embedded in profile responses.
type ownerRow struct {
	bun.BaseModel `bun:"table:accounts,alias:u"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	Name       string    `bun:"name"`
	Email      string    `bun:"email"`
	IsVerified bool      `bun:"is_verified"`
	CreatedAt  time.Time `bun:"created_at"`
}

type profileRow struct {
	bun.BaseModel `bun:"table:profiles,alias:p"`

	ID          uuid.UUID    `bun:"id,pk,type:uuid"`
	UserID      uuid.UUID    `bun:"user_id,type:uuid,notnull"`
	Owner       *ownerRow    `bun:"rel:belongs-to,join:user_id=id"`
	Avatar      *string      `bun:"avatar"`
	Bio         string       `bun:"bio,notnull"`
	Location    string       `bun:"location,notnull"`
	Website     string       `bun:"website,notnull"`
	Company     string       `bun:"company,notnull"`
	JobTitle    string       `bun:"job_title,notnull"`
	Skills      []string     `bun:"skills,array,notnull"`
	Education   []Education  `bun:"education,type:jsonb,notnull"`
	Experience  []Experience `bun:"experience,type:jsonb,notnull"`
	Social      Social       `bun:"social,type:jsonb,notnull"`
	Preferences Preferences  `bun:"preferences,type:jsonb,notnull"`

	ProfileViews int `bun:"profile_views,notnull"`
	Connections  int `bun:"connections,notnull"`
	Posts        int `bun:"posts,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// PostgresRepository stores profiles in Postgres through bun.
type PostgresRepository struct {
	db bun.IDB
}

func NewPostgresRepository(db bun.IDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	row := new(profileRow)
	err := r.db.NewSelect().
		Model(row).
		Relation("Owner").
		Where("p.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return row.toModel(), nil
}

// Ensure relies on the unique user_id index so concurrent first visits
// create a single profile.
func (r *PostgresRepository) Ensure(ctx context.Context, p *Profile) (*Profile, bool, error) {
	result, err := r.db.NewInsert().
		Model(toProfileRow(p)).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create profile: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	stored, err := r.GetByUser(ctx, p.UserID)
	if err != nil {
		return nil, false, err
	}
	return stored, inserted > 0, nil
}

func (r *PostgresRepository) Update(ctx context.Context, userID uuid.UUID, u Update, now time.Time) (*Profile, error) {
	q := r.db.NewUpdate().
		Model((*profileRow)(nil)).
		Set("updated_at = ?", now).
		Where("user_id = ?", userID)

	if u.Avatar != nil {
		q = q.Set("avatar = ?", *u.Avatar)
	}
	if u.Bio != nil {
		q = q.Set("bio = ?", *u.Bio)
	}
	if u.Location != nil {
		q = q.Set("location = ?", *u.Location)
	}
	if u.Website != nil {
		q = q.Set("website = ?", *u.Website)
	}
	if u.Company != nil {
		q = q.Set("company = ?", *u.Company)
	}
	if u.JobTitle != nil {
		q = q.Set("job_title = ?", *u.JobTitle)
	}
	if u.Skills != nil {
		q = q.Set("skills = ?", pgdialect.Array(*u.Skills))
	}

	jsonColumns := []struct {
		column string
		value  any
		set    bool
	}{
		{"education", u.Education, u.Education != nil},
		{"experience", u.Experience, u.Experience != nil},
		{"social", u.Social, u.Social != nil},
		{"preferences", u.Preferences, u.Preferences != nil},
	}
	for _, c := range jsonColumns {
		if !c.set {
			continue
		}
		encoded, err := json.Marshal(c.value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", c.column, err)
		}
		q = q.Set("? = ?::jsonb", bun.Ident(c.column), string(encoded))
	}

	result, err := q.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return nil, err
	}

	return r.GetByUser(ctx, userID)
}

func (r *PostgresRepository) IncrementViews(ctx context.Context, userID uuid.UUID) error {
	result, err := r.db.NewUpdate().
		Model((*profileRow)(nil)).
		Set("profile_views = profile_views + 1").
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to increment profile views: %w", err)
	}
	return requireAffected(result)
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*profileRow)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Search(ctx context.Context, sq SearchQuery) ([]*Profile, int, error) {
	var rows []profileRow
	q := r.publicProfiles(&rows)

	if sq.Text != "" {
		pattern := likePattern(sq.Text)
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where(`"owner"."name" ILIKE ?`, pattern).
				WhereOr("p.bio ILIKE ?", pattern).
				WhereOr("p.company ILIKE ?", pattern).
				WhereOr("p.job_title ILIKE ?", pattern)
		})
	}
	if len(sq.Skills) > 0 {
		q = q.Where("p.skills && ?", pgdialect.Array(sq.Skills))
	}
	if sq.Location != "" {
		q = q.Where("p.location ILIKE ?", likePattern(sq.Location))
	}
	if sq.Company != "" {
		q = q.Where("p.company ILIKE ?", likePattern(sq.Company))
	}

	total, err := q.
		OrderExpr("p.profile_views DESC, p.created_at DESC").
		Limit(sq.Limit).
		Offset(sq.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search profiles: %w", err)
	}

	return toModels(rows), total, nil
}

func (r *PostgresRepository) Suggest(ctx context.Context, sq SuggestionQuery) ([]*Profile, error) {
	var rows []profileRow
	q := r.publicProfiles(&rows).Where("p.user_id <> ?", sq.Exclude)

	if len(sq.Skills) > 0 {
		q = q.Where("p.skills && ?", pgdialect.Array(sq.Skills))
	}
	if sq.Location != "" {
		q = q.Where("p.location ILIKE ?", likePattern(sq.Location))
	}

	err := q.OrderExpr("p.profile_views DESC").Limit(sq.Limit).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest profiles: %w", err)
	}

	return toModels(rows), nil
}

func (r *PostgresRepository) publicProfiles(rows *[]profileRow) *bun.SelectQuery {
	return r.db.NewSelect().
		Model(rows).
		Relation("Owner").
		Where("p.preferences->'privacy'->>'profileVisibility' = ?", VisibilityPublic)
}

func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func toProfileRow(p *Profile) *profileRow {
	return &profileRow{
		ID:           p.ID,
		UserID:       p.UserID,
		Avatar:       p.Avatar,
		Bio:          p.Bio,
		Location:     p.Location,
		Website:      p.Website,
		Company:      p.Company,
		JobTitle:     p.JobTitle,
		Skills:       p.Skills,
		Education:    p.Education,
		Experience:   p.Experience,
		Social:       p.Social,
		Preferences:  p.Preferences,
		ProfileViews: p.Stats.ProfileViews,
		Connections:  p.Stats.Connections,
		Posts:        p.Stats.Posts,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (row *profileRow) toModel() *Profile {
	p := &Profile{
		ID:          row.ID,
		UserID:      row.UserID,
		Avatar:      row.Avatar,
		Bio:         row.Bio,
		Location:    row.Location,
		Website:     row.Website,
		Company:     row.Company,
		JobTitle:    row.JobTitle,
		Skills:      nonNil(row.Skills),
		Education:   nonNil(row.Education),
		Experience:  nonNil(row.Experience),
		Social:      row.Social,
		Preferences: row.Preferences,
		Stats: Stats{
			ProfileViews: row.ProfileViews,
			Connections:  row.Connections,
			Posts:        row.Posts,
		},
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.Owner != nil {
		p.Owner = &account.Summary{
			ID:         row.Owner.ID,
			Name:       row.Owner.Name,
			Email:      row.Owner.Email,
			IsVerified: row.Owner.IsVerified,
			CreatedAt:  row.Owner.CreatedAt,
		}
	}
	return p
}

func toModels(rows []profileRow) []*Profile {
	profiles := make([]*Profile, 0, len(rows))
	for i := range rows {
		profiles = append(profiles, rows[i].toModel())
	}
	return profiles
}
