package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// accountDocument is the BSON shape of an account. The uuid is stored as its
// string form so ids look the same on both backends.
type accountDocument struct {
	ID           string       `bson:"_id"`
	Name         string       `bson:"name"`
	Email        string       `bson:"email"`
	Phone        *string      `bson:"phone,omitempty"`
	Avatar       *string      `bson:"avatar,omitempty"`
	PasswordHash string       `bson:"password"`
	Role         string       `bson:"role"`
	IsVerified   bool         `bson:"isVerified"`
	Preferences  Preferences  `bson:"preferences"`
	Profile      BasicProfile `bson:"profile"`

	VerificationTokenHash *string    `bson:"verificationTokenHash,omitempty"`
	VerificationExpires   *time.Time `bson:"verificationExpires,omitempty"`
	ResetTokenHash        *string    `bson:"resetTokenHash,omitempty"`
	ResetExpires          *time.Time `bson:"resetExpires,omitempty"`
	LoginAttempts         int        `bson:"loginAttempts"`
	LockUntil             *time.Time `bson:"lockUntil,omitempty"`

	LastLogin *time.Time `bson:"lastLogin,omitempty"`
	CreatedAt time.Time  `bson:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt"`
}

// MongoRepository stores accounts in a MongoDB collection.
type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

func (r *MongoRepository) Create(ctx context.Context, a *Account) error {
	doc := toAccountDocument(a)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoRepository) UpdateDetails(ctx context.Context, id uuid.UUID, u DetailsUpdate) (*Account, error) {
	set := bson.M{"updatedAt": time.Now()}
	unset := bson.M{}

	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Phone != nil {
		if *u.Phone == "" {
			unset["phone"] = ""
		} else {
			set["phone"] = *u.Phone
		}
	}
	if u.Bio != nil {
		set["profile.bio"] = *u.Bio
	}
	if u.Location != nil {
		set["profile.location"] = *u.Location
	}
	if u.Website != nil {
		set["profile.website"] = *u.Website
	}
	if u.Social != nil {
		set["profile.social"] = *u.Social
	}
	if u.Preferences != nil {
		set["preferences"] = *u.Preferences
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	return r.findOneAndUpdate(ctx, bson.M{"_id": id.String()}, update)
}

func (r *MongoRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error {
	return r.updateOne(ctx, bson.M{"_id": id.String()}, bson.M{
		"$set": bson.M{"avatar": avatarURL, "updatedAt": time.Now()},
	})
}

func (r *MongoRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.updateOne(ctx, bson.M{"_id": id.String()}, bson.M{
		"$set": bson.M{"password": passwordHash, "updatedAt": time.Now()},
	})
}

func (r *MongoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordLoginFailure runs the lockout transition as an aggregation pipeline
// update. The first stage snapshots whether the stored lock has expired or is
// still active so the second stage can read pre-update values only.
func (r *MongoRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, policy LockoutPolicy, now time.Time) (LockState, error) {
	isDate := bson.M{"$eq": bson.A{bson.M{"$type": "$lockUntil"}, "date"}}
	attemptsPlusOne := bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$loginAttempts", 0}}, 1}}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"_expired": bson.M{"$and": bson.A{isDate, bson.M{"$lte": bson.A{"$lockUntil", now}}}},
			"_locked":  bson.M{"$and": bson.A{isDate, bson.M{"$gt": bson.A{"$lockUntil", now}}}},
		}}},
		{{Key: "$set", Value: bson.M{
			"loginAttempts": bson.M{"$cond": bson.A{"$_expired", 1, attemptsPlusOne}},
			"lockUntil": bson.M{"$cond": bson.A{
				"$_expired",
				"$$REMOVE",
				bson.M{"$cond": bson.A{
					bson.M{"$and": bson.A{
						bson.M{"$not": bson.A{"$_locked"}},
						bson.M{"$gte": bson.A{attemptsPlusOne, policy.MaxAttempts}},
					}},
					now.Add(policy.LockDuration),
					"$lockUntil",
				}},
			}},
			"updatedAt": now,
		}}},
		{{Key: "$unset", Value: bson.A{"_expired", "_locked"}}},
	}

	var doc accountDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, pipeline,
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"loginAttempts": 1, "lockUntil": 1}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return LockState{}, ErrNotFound
		}
		return LockState{}, fmt.Errorf("failed to record login failure: %w", err)
	}

	return LockState{Attempts: doc.LoginAttempts, LockUntil: doc.LockUntil}, nil
}

func (r *MongoRepository) RecordLoginSuccess(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.updateOne(ctx, bson.M{"_id": id.String()}, bson.M{
		"$set":   bson.M{"loginAttempts": 0, "lastLogin": now, "updatedAt": now},
		"$unset": bson.M{"lockUntil": ""},
	})
}

func (r *MongoRepository) SetVerificationToken(ctx context.Context, id uuid.UUID, tokenHash string, expires time.Time) error {
	return r.updateOne(ctx, bson.M{"_id": id.String(), "isVerified": false}, bson.M{
		"$set": bson.M{
			"verificationTokenHash": tokenHash,
			"verificationExpires":   expires,
			"updatedAt":             time.Now(),
		},
	})
}

func (r *MongoRepository) ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*Account, error) {
	filter := bson.M{
		"verificationTokenHash": tokenHash,
		"verificationExpires":   bson.M{"$gt": now},
	}
	return r.findOneAndUpdate(ctx, filter, bson.M{
		"$set":   bson.M{"isVerified": true, "updatedAt": now},
		"$unset": bson.M{"verificationTokenHash": "", "verificationExpires": ""},
	})
}

func (r *MongoRepository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expires time.Time) error {
	return r.updateOne(ctx, bson.M{"_id": id.String()}, bson.M{
		"$set": bson.M{
			"resetTokenHash": tokenHash,
			"resetExpires":   expires,
			"updatedAt":      time.Now(),
		},
	})
}

func (r *MongoRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*Account, error) {
	filter := bson.M{
		"resetTokenHash": tokenHash,
		"resetExpires":   bson.M{"$gt": now},
	}
	return r.findOneAndUpdate(ctx, filter, bson.M{
		"$set":   bson.M{"password": passwordHash, "loginAttempts": 0, "updatedAt": now},
		"$unset": bson.M{"resetTokenHash": "", "resetExpires": "", "lockUntil": ""},
	})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*Account, error) {
	var doc accountDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return doc.toModel()
}

func (r *MongoRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*Account, error) {
	var doc accountDocument
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return doc.toModel()
}

func (r *MongoRepository) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func toAccountDocument(a *Account) *accountDocument {
	return &accountDocument{
		ID:                    a.ID.String(),
		Name:                  a.Name,
		Email:                 a.Email,
		Phone:                 a.Phone,
		Avatar:                a.Avatar,
		PasswordHash:          a.PasswordHash,
		Role:                  string(a.Role),
		IsVerified:            a.IsVerified,
		Preferences:           a.Preferences,
		Profile:               a.Profile,
		VerificationTokenHash: a.VerificationTokenHash,
		VerificationExpires:   a.VerificationExpires,
		ResetTokenHash:        a.ResetTokenHash,
		ResetExpires:          a.ResetExpires,
		LoginAttempts:         a.LoginAttempts,
		LockUntil:             a.LockUntil,
		LastLogin:             a.LastLogin,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}

func (doc *accountDocument) toModel() (*Account, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid account id %q: %w", doc.ID, err)
	}
	return &Account{
		ID:                    id,
		Name:                  doc.Name,
		Email:                 doc.Email,
		Phone:                 doc.Phone,
		Avatar:                doc.Avatar,
		PasswordHash:          doc.PasswordHash,
		Role:                  Role(doc.Role),
		IsVerified:            doc.IsVerified,
		Preferences:           doc.Preferences,
		Profile:               doc.Profile,
		VerificationTokenHash: doc.VerificationTokenHash,
		VerificationExpires:   doc.VerificationExpires,
		ResetTokenHash:        doc.ResetTokenHash,
		ResetExpires:          doc.ResetExpires,
		LoginAttempts:         doc.LoginAttempts,
		LockUntil:             doc.LockUntil,
		LastLogin:             doc.LastLogin,
		CreatedAt:             doc.CreatedAt,
		UpdatedAt:             doc.UpdatedAt,
	}, nil
}
