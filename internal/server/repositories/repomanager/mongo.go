package repomanager

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultMongoDatabase is used when the DSN carries no database path.
const DefaultMongoDatabase = "gophauth"

const mongoConnectTimeout = 10 * time.Second

// mongoConnect is a seam for testing mongo.Connect.
var mongoConnect = func(ctx context.Context, opts ...*options.ClientOptions) (*mongo.Client, error) {
	return mongo.Connect(ctx, opts...)
}

type MongoRepositoryManager struct {
	client *mongo.Client
	db     *mongo.Database
}

// databaseName returns the path component of a mongodb:// DSN.
func databaseName(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return DefaultMongoDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return DefaultMongoDatabase
}

func NewMongoRepositoryManager(ctx context.Context, dsn string) (*MongoRepositoryManager, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongoConnect(ctx, options.Client().ApplyURI(dsn))
	if err != nil {
		return nil, fmt.Errorf("db connect error: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	return &MongoRepositoryManager{client: client, db: client.Database(databaseName(dsn))}, nil
}

// Migrate creates the unique indexes on username and email.
func (m *MongoRepositoryManager) Migrate(ctx context.Context) error {
	return accounts.NewMongoRepository(m.db).EnsureIndexes(ctx)
}

func (m *MongoRepositoryManager) Accounts() accounts.Repository {
	return accounts.NewMongoRepository(m.db)
}

func (m *MongoRepositoryManager) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}
