// Package repomanager opens the credential store named by a DSN and prepares
// its schema: goose migrations for PostgreSQL, unique indexes for MongoDB.
package repomanager

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
)

type RepositoryManager interface {
	// Migrate brings the backing store's schema up to date.
	Migrate(ctx context.Context) error
	Accounts() accounts.Repository
	Close(ctx context.Context) error
}

// Open selects the backend by DSN scheme: mongodb/mongodb+srv,
// postgres/postgresql or memory.
func Open(ctx context.Context, dsn string) (RepositoryManager, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database dsn: %w", err)
	}

	switch u.Scheme {
	case "mongodb", "mongodb+srv":
		m, err := NewMongoRepositoryManager(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "postgres", "postgresql":
		m, err := NewPostgresRepositoryManager(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "memory":
		return NewMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
}

// MemoryRepositoryManager holds a single in-process store.
type MemoryRepositoryManager struct {
	repo *accounts.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{repo: accounts.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) Migrate(ctx context.Context) error { return nil }

func (m *MemoryRepositoryManager) Accounts() accounts.Repository { return m.repo }

func (m *MemoryRepositoryManager) Close(ctx context.Context) error { return nil }
