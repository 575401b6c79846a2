package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/redmonkez12/viziopath-api/internal/account"
	"github.com/redmonkez12/viziopath-api/internal/config"
	"github.com/redmonkez12/viziopath-api/internal/profile"
)

// Stores are the repositories of the configured database driver.
type Stores struct {
	Accounts account.Repository
	Profiles profile.Repository

	pg    *bun.DB
	mongo *mongo.Database
}

// Open connects to the database named by cfg.Database.Driver.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.Database.Driver {
	case config.DriverMongoDB:
		client, err := ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.Mongo.Database)

		return &Stores{
			Accounts: account.NewMongoRepository(db.Collection(AccountsCollection)),
			Profiles: profile.NewMongoRepository(db.Collection(ProfilesCollection), AccountsCollection),
			mongo:    db,
		}, nil

	case config.DriverPostgres:
		db, err := OpenPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}

		return &Stores{
			Accounts: account.NewPostgresRepository(db),
			Profiles: profile.NewPostgresRepository(db),
			pg:       db,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// Migrate applies the schema migrations on Postgres and creates the
// indexes on MongoDB.
func (s *Stores) Migrate(ctx context.Context) error {
	if s.pg != nil {
		return Migrate(ctx, s.pg.DB)
	}
	return EnsureMongoIndexes(ctx, s.mongo)
}

func (s *Stores) Close() error {
	if s.pg != nil {
		return s.pg.Close()
	}
	return s.mongo.Client().Disconnect(context.Background())
}
