package profile

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/redmonkez12/viziopath-api/internal/account"
)

type ownerDocument struct {
	ID         string    `bson:"_id"`
	Name       string    `bson:"name"`
	Email      string    `bson:"email"`
	IsVerified bool      `bson:"isVerified"`
	CreatedAt  time.Time `bson:"createdAt"`
}

type profileDocument struct {
	ID          string         `bson:"_id"`
	UserID      string         `bson:"user"`
	Owner       *ownerDocument `bson:"owner,omitempty"`
	Avatar      *string        `bson:"avatar"`
	Bio         string         `bson:"bio"`
	Location    string         `bson:"location"`
	Website     string         `bson:"website"`
	Company     string         `bson:"company"`
	JobTitle    string         `bson:"jobTitle"`
	Skills      []string       `bson:"skills"`
	Education   []Education    `bson:"education"`
	Experience  []Experience   `bson:"experience"`
	Social      Social         `bson:"social"`
	Preferences Preferences    `bson:"preferences"`
	Stats       Stats          `bson:"stats"`
	CreatedAt   time.Time      `bson:"createdAt"`
	UpdatedAt   time.Time      `bson:"updatedAt"`
}

// MongoRepository stores profiles in MongoDB and joins owners from the
// accounts collection with $lookup.
type MongoRepository struct {
	coll     *mongo.Collection
	accounts string
}

func NewMongoRepository(coll *mongo.Collection, accountsCollection string) *MongoRepository {
	return &MongoRepository{coll: coll, accounts: accountsCollection}
}

func (r *MongoRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	pipeline := append(mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user": userID.String()}}},
	}, r.withOwner()...)

	docs, err := r.aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (r *MongoRepository) Ensure(ctx context.Context, p *Profile) (*Profile, bool, error) {
	doc := toProfileDocument(p)

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"user": doc.UserID},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	created := false
	switch {
	case err == nil:
		created = res.UpsertedCount > 0
	case mongo.IsDuplicateKeyError(err):
		// lost the race against a concurrent upsert
	default:
		return nil, false, fmt.Errorf("failed to create profile: %w", err)
	}

	stored, err := r.GetByUser(ctx, p.UserID)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (r *MongoRepository) Update(ctx context.Context, userID uuid.UUID, u Update, now time.Time) (*Profile, error) {
	set := bson.M{"updatedAt": now}

	if u.Avatar != nil {
		set["avatar"] = *u.Avatar
	}
	if u.Bio != nil {
		set["bio"] = *u.Bio
	}
	if u.Location != nil {
		set["location"] = *u.Location
	}
	if u.Website != nil {
		set["website"] = *u.Website
	}
	if u.Company != nil {
		set["company"] = *u.Company
	}
	if u.JobTitle != nil {
		set["jobTitle"] = *u.JobTitle
	}
	if u.Skills != nil {
		set["skills"] = *u.Skills
	}
	if u.Education != nil {
		set["education"] = *u.Education
	}
	if u.Experience != nil {
		set["experience"] = *u.Experience
	}
	if u.Social != nil {
		set["social"] = *u.Social
	}
	if u.Preferences != nil {
		set["preferences"] = *u.Preferences
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"user": userID.String()}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}

	return r.GetByUser(ctx, userID)
}

func (r *MongoRepository) IncrementViews(ctx context.Context, userID uuid.UUID) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"user": userID.String()},
		bson.M{"$inc": bson.M{"stats.profileViews": 1}},
	)
	if err != nil {
		return fmt.Errorf("failed to increment profile views: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"user": userID.String()}); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

func (r *MongoRepository) Search(ctx context.Context, q SearchQuery) ([]*Profile, int, error) {
	match := publicFilter()
	if len(q.Skills) > 0 {
		match["skills"] = bson.M{"$in": q.Skills}
	}
	if q.Location != "" {
		match["location"] = containsFold(q.Location)
	}
	if q.Company != "" {
		match["company"] = containsFold(q.Company)
	}

	pipeline := append(mongo.Pipeline{{{Key: "$match", Value: match}}}, r.withOwner()...)

	// the owner name is only known after the lookup
	if q.Text != "" {
		text := containsFold(q.Text)
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"owner.name": text},
			bson.M{"bio": text},
			bson.M{"company": text},
			bson.M{"jobTitle": text},
		}}}})
	}

	pipeline = append(pipeline, bson.D{{Key: "$facet", Value: bson.M{
		"items": bson.A{
			bson.M{"$sort": bson.D{{Key: "stats.profileViews", Value: -1}, {Key: "createdAt", Value: -1}}},
			bson.M{"$skip": q.Offset()},
			bson.M{"$limit": q.Limit},
		},
		"total": bson.A{bson.M{"$count": "n"}},
	}}})

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search profiles: %w", err)
	}
	defer cursor.Close(ctx)

	var facets []struct {
		Items []profileDocument `bson:"items"`
		Total []struct {
			N int `bson:"n"`
		} `bson:"total"`
	}
	if err := cursor.All(ctx, &facets); err != nil {
		return nil, 0, fmt.Errorf("failed to decode profiles: %w", err)
	}
	if len(facets) == 0 {
		return []*Profile{}, 0, nil
	}

	profiles, err := documentsToModels(facets[0].Items)
	if err != nil {
		return nil, 0, err
	}

	total := 0
	if len(facets[0].Total) > 0 {
		total = facets[0].Total[0].N
	}
	return profiles, total, nil
}

func (r *MongoRepository) Suggest(ctx context.Context, q SuggestionQuery) ([]*Profile, error) {
	match := publicFilter()
	match["user"] = bson.M{"$ne": q.Exclude.String()}
	if len(q.Skills) > 0 {
		match["skills"] = bson.M{"$in": q.Skills}
	}
	if q.Location != "" {
		match["location"] = containsFold(q.Location)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "stats.profileViews", Value: -1}}}},
		{{Key: "$limit", Value: q.Limit}},
	}
	pipeline = append(pipeline, r.withOwner()...)

	profiles, err := r.aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest profiles: %w", err)
	}
	return profiles, nil
}

// withOwner joins the owning account as the "owner" field.
func (r *MongoRepository) withOwner() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         r.accounts,
			"localField":   "user",
			"foreignField": "_id",
			"as":           "owner",
			"pipeline": bson.A{
				bson.M{"$project": bson.M{"name": 1, "email": 1, "isVerified": 1, "createdAt": 1}},
			},
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$owner", "preserveNullAndEmptyArrays": true}}},
	}
}

func (r *MongoRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]*Profile, error) {
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []profileDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return documentsToModels(docs)
}

func publicFilter() bson.M {
	return bson.M{"preferences.privacy.profileVisibility": VisibilityPublic}
}

// containsFold matches s as a literal, case-insensitive substring.
func containsFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func toProfileDocument(p *Profile) *profileDocument {
	return &profileDocument{
		ID:          p.ID.String(),
		UserID:      p.UserID.String(),
		Avatar:      p.Avatar,
		Bio:         p.Bio,
		Location:    p.Location,
		Website:     p.Website,
		Company:     p.Company,
		JobTitle:    p.JobTitle,
		Skills:      p.Skills,
		Education:   p.Education,
		Experience:  p.Experience,
		Social:      p.Social,
		Preferences: p.Preferences,
		Stats:       p.Stats,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (doc *profileDocument) toModel() (*Profile, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid profile id %q: %w", doc.ID, err)
	}
	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid profile owner %q: %w", doc.UserID, err)
	}

	p := &Profile{
		ID:          id,
		UserID:      userID,
		Avatar:      doc.Avatar,
		Bio:         doc.Bio,
		Location:    doc.Location,
		Website:     doc.Website,
		Company:     doc.Company,
		JobTitle:    doc.JobTitle,
		Skills:      nonNil(doc.Skills),
		Education:   nonNil(doc.Education),
		Experience:  nonNil(doc.Experience),
		Social:      doc.Social,
		Preferences: doc.Preferences,
		Stats:       doc.Stats,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	if doc.Owner != nil {
		p.Owner = &account.Summary{
			ID:         userID,
			Name:       doc.Owner.Name,
			Email:      doc.Owner.Email,
			IsVerified: doc.Owner.IsVerified,
			CreatedAt:  doc.Owner.CreatedAt,
		}
	}
	return p, nil
}

func documentsToModels(docs []profileDocument) ([]*Profile, error) {
	profiles := make([]*Profile, 0, len(docs))
	for i := range docs {
		p, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
