package models

import "time"

// Account is one registered user as persisted by the credential store.
//
// PasswordHash, RefreshToken and AvatarPublicID never leave the server;
// handlers only ever serialize Profile.
type Account struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	Avatar         string
	AvatarPublicID string
	// RefreshToken is the single outstanding refresh token, "" when none.
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the sanitized view of an Account.
type Profile struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *Account) Profile() *Profile {
	return &Profile{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Avatar:    a.Avatar,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AvatarRef points at an image kept by the external image host.
type AvatarRef struct {
	URL      string
	PublicID string
}

// AccountUpdate lists the profile fields to replace; nil means unchanged.
type AccountUpdate struct {
	Username *string
	Email    *string
	Avatar   *AvatarRef
}

func (u AccountUpdate) IsEmpty() bool {
	return u.Username == nil && u.Email == nil && u.Avatar == nil
}

// Apply copies the set fields onto a and bumps UpdatedAt.
func (u AccountUpdate) Apply(a *Account, now time.Time) {
	if u.Username != nil {
		a.Username = *u.Username
	}
	if u.Email != nil {
		a.Email = *u.Email
	}
	if u.Avatar != nil {
		a.Avatar = u.Avatar.URL
		a.AvatarPublicID = u.Avatar.PublicID
	}
	a.UpdatedAt = now
}
