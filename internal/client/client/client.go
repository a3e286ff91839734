package client

import (
	"context"
	"time"
)

// Profile is the public view of an account returned by the server.
type Profile struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type SignupRequest struct {
	Username        string
	Email           string
	Password        []byte
	ConfirmPassword []byte
	// AvatarPath is an optional local image file.
	AvatarPath string
}

// UpdateRequest lists the fields to change; nil and "" mean unchanged.
type UpdateRequest struct {
	Username   *string
	Email      *string
	AvatarPath string
}

type Client interface {
	Ping(ctx context.Context) error
	Signup(ctx context.Context, req SignupRequest) (*Profile, error)
	Login(ctx context.Context, email string, password []byte) (*Profile, error)
	Logout(ctx context.Context) error
	CheckSession(ctx context.Context) (*Profile, error)
	Refresh(ctx context.Context) (*Profile, error)
	UpdateProfile(ctx context.Context, req UpdateRequest) (*Profile, error)
	ActiveUsers(ctx context.Context) (int64, error)
}
