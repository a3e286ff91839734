package accounts

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func seed(t *testing.T, r *MemoryRepository, username, email string) *models.Account {
	t.Helper()
	a, err := r.Insert(context.Background(), &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
		Avatar:       "http://img/default.png",
	})
	require.NoError(t, err)
	return a
}

func TestMemory_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	a := seed(t, r, "alice_one", "alice@example.com")
	require.NotEmpty(t, a.ID)
	require.False(t, a.CreatedAt.IsZero())
	require.Equal(t, a.CreatedAt, a.UpdatedAt)

	byID, err := r.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, byID)

	byEmail, err := r.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byEmail.ID)

	byName, err := r.FindByUsername(ctx, "alice_one")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byName.ID)

	_, err = r.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = r.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	a := seed(t, r, "alice_one", "alice@example.com")

	a.Username = "mutated"
	got, err := r.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice_one", got.Username)
}

func TestMemory_InsertDuplicate(t *testing.T) {
	r := NewMemoryRepository()
	seed(t, r, "alice_one", "alice@example.com")

	_, err := r.Insert(context.Background(), &models.Account{Username: "alice_one", Email: "other@example.com"})
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, FieldUsername, dup.Field)
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	_, err = r.Insert(context.Background(), &models.Account{Username: "bobby_two", Email: "alice@example.com"})
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, FieldEmail, dup.Field)
}

func TestMemory_ConcurrentInsertKeepsUniqueness(t *testing.T) {
	r := NewMemoryRepository()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Insert(context.Background(), &models.Account{Username: "racer_one", Email: "race@example.com"})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	n, _ := r.Count(context.Background())
	assert.Equal(t, int64(1), n)
}

func TestMemory_Exists(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	a := seed(t, r, "alice_one", "alice@example.com")

	tests := []struct {
		name string
		f    Filter
		want bool
	}{
		{"empty filter", Filter{}, false},
		{"username match", Filter{Username: "alice_one"}, true},
		{"email match", Filter{Email: "alice@example.com"}, true},
		{"either matches", Filter{Username: "nobody_here", Email: "alice@example.com"}, true},
		{"no match", Filter{Username: "nobody_here"}, false},
		{"excluded self", Filter{Username: "alice_one", ExcludeID: a.ID}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Exists(ctx, tt.f)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemory_Update(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	a := seed(t, r, "alice_one", "alice@example.com")
	seed(t, r, "bobby_two", "bob@example.com")

	got, err := r.Update(ctx, a.ID, models.AccountUpdate{Email: strPtr("alice@new.com")})
	require.NoError(t, err)
	assert.Equal(t, "alice@new.com", got.Email)
	assert.Equal(t, "alice_one", got.Username)
	assert.False(t, got.UpdatedAt.Before(a.UpdatedAt))

	got, err = r.Update(ctx, a.ID, models.AccountUpdate{Avatar: &models.AvatarRef{URL: "http://img/new.png", PublicID: "avatars/new.png"}})
	require.NoError(t, err)
	assert.Equal(t, "http://img/new.png", got.Avatar)
	assert.Equal(t, "avatars/new.png", got.AvatarPublicID)

	// Keeping one's own username is not a collision.
	_, err = r.Update(ctx, a.ID, models.AccountUpdate{Username: strPtr("alice_one")})
	require.NoError(t, err)

	_, err = r.Update(ctx, a.ID, models.AccountUpdate{Username: strPtr("bobby_two")})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	_, err = r.Update(ctx, "missing", models.AccountUpdate{Username: strPtr("whatever")})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemory_RefreshTokenSlot(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	a := seed(t, r, "alice_one", "alice@example.com")

	_, err := r.FindByRefreshToken(ctx, a.ID, "")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, r.SetRefreshToken(ctx, a.ID, "tok-1"))
	got, err := r.FindByRefreshToken(ctx, a.ID, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	require.NoError(t, r.SetRefreshToken(ctx, a.ID, "tok-2"))
	_, err = r.FindByRefreshToken(ctx, a.ID, "tok-1")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, r.ClearRefreshToken(ctx, a.ID))
	_, err = r.FindByRefreshToken(ctx, a.ID, "tok-2")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	assert.ErrorIs(t, r.SetRefreshToken(ctx, "missing", "x"), common.ErrorNotFound)
	assert.ErrorIs(t, r.ClearRefreshToken(ctx, "missing"), common.ErrorNotFound)
}

func TestMemory_Count(t *testing.T) {
	r := NewMemoryRepository()
	n, err := r.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	seed(t, r, "alice_one", "alice@example.com")
	seed(t, r, "bobby_two", "bob@example.com")
	n, err = r.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestDuplicateError(t *testing.T) {
	err := &DuplicateError{Field: FieldEmail}
	assert.Equal(t, "email already exists", err.Error())
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}
