package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps accounts in a map guarded by a mutex. It backs
// memory:// DSNs and the service and transport tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[string]*models.Account),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func clone(a *models.Account) *models.Account {
	c := *a
	return &c
}

func (r *MemoryRepository) find(match func(a *models.Account) bool) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if match(a) {
			return clone(a), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(a), nil
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.Email == email })
}

func (r *MemoryRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.Username == username })
}

// conflict returns the field that username/email would collide on. The
// caller holds the lock.
func (r *MemoryRepository) conflict(username, email, excludeID string) string {
	for id, a := range r.accounts {
		if id == excludeID {
			continue
		}
		if username != "" && a.Username == username {
			return FieldUsername
		}
		if email != "" && a.Email == email {
			return FieldEmail
		}
	}
	return ""
}

func (r *MemoryRepository) Exists(ctx context.Context, f Filter) (bool, error) {
	if f.empty() {
		return false, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.conflict(f.Username, f.Email, f.ExcludeID) != "", nil
}

func (r *MemoryRepository) Insert(ctx context.Context, a *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if field := r.conflict(a.Username, a.Email, ""); field != "" {
		return nil, &DuplicateError{Field: field}
	}

	stored := clone(a)
	stored.ID = uuid.NewString()
	stored.CreatedAt = r.now()
	stored.UpdatedAt = stored.CreatedAt
	r.accounts[stored.ID] = stored

	return clone(stored), nil
}

func (r *MemoryRepository) Update(ctx context.Context, id string, u models.AccountUpdate) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if u.IsEmpty() {
		return clone(a), nil
	}

	var username, email string
	if u.Username != nil {
		username = *u.Username
	}
	if u.Email != nil {
		email = *u.Email
	}
	if field := r.conflict(username, email, id); field != "" {
		return nil, &DuplicateError{Field: field}
	}

	u.Apply(a, r.now())
	return clone(a), nil
}

func (r *MemoryRepository) setRefreshToken(id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.RefreshToken = token
	return nil
}

func (r *MemoryRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	return r.setRefreshToken(id, token)
}

func (r *MemoryRepository) ClearRefreshToken(ctx context.Context, id string) error {
	return r.setRefreshToken(id, "")
}

func (r *MemoryRepository) FindByRefreshToken(ctx context.Context, id, token string) (*models.Account, error) {
	if token == "" {
		return nil, common.ErrorNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok || a.RefreshToken != token {
		return nil, common.ErrorNotFound
	}
	return clone(a), nil
}

func (r *MemoryRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.accounts)), nil
}
