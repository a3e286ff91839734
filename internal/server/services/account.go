// Package services contains server-side business logic. AccountService
// implements the account lifecycle (signup, login, logout, profile update)
// and the session protocol built on access and refresh tokens.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/cache"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/imagehost"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
)

// ImageHost stores avatar images outside the credential store.
type ImageHost interface {
	// Upload stores the file and removes it locally, whatever the outcome.
	Upload(ctx context.Context, localPath string) (*imagehost.UploadResult, error)
	Delete(ctx context.Context, publicID string) bool
}

// Upload is an avatar file already staged on local disk.
type Upload struct {
	Path     string
	Filename string
}

type SignupInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Avatar          *Upload
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	Profile      *models.Profile
	AccessToken  string
	RefreshToken string
}

type RefreshResult struct {
	AccessToken string
	Profile     *models.Profile
}

// UpdateProfileInput lists optional changes; nil or blank means unchanged.
type UpdateProfileInput struct {
	Username *string
	Email    *string
	Avatar   *Upload
}

type AccountService struct {
	repo             accounts.Repository
	tokens           *auth.TokenService
	hasher           *auth.PasswordHasher
	images           ImageHost
	cache            cache.ProfileCache
	defaultAvatarURL string
	logger           logging.Logger
}

func NewAccountService(repo accounts.Repository, tokens *auth.TokenService, hasher *auth.PasswordHasher,
	images ImageHost, profiles cache.ProfileCache, cfg *config.Config, logger logging.Logger) *AccountService {
	if profiles == nil {
		profiles = cache.Noop{}
	}
	return &AccountService{
		repo:             repo,
		tokens:           tokens,
		hasher:           hasher,
		images:           images,
		cache:            profiles,
		defaultAvatarURL: cfg.DefaultAvatarURL,
		logger:           logger,
	}
}

// storeFailure wraps an unexpected credential store error.
func storeFailure(err error) *common.Error {
	return common.Internal("Internal Server Error", err)
}

// tokenFailure passes misconfiguration through as-is; other errors from
// issuing a token are internal.
func tokenFailure(err error) error {
	if errors.Is(err, common.ErrMisconfigured) {
		return err
	}
	return common.Internal("Internal Server Error", err)
}

// sessionFailure is the fixed mapping from access-token verification
// failures to client messages.
func sessionFailure(err error) error {
	switch {
	case errors.Is(err, common.ErrMisconfigured):
		return err
	case errors.Is(err, common.ErrTokenExpired):
		return common.Unauthorized("Session expired")
	case errors.Is(err, common.ErrInvalidToken):
		return common.Unauthorized("Invalid token")
	default:
		return common.Unauthorized("Unauthorized access")
	}
}

func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*models.Profile, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if username == "" || email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return nil, common.BadRequest("Missing required fields")
	}
	if !validEmail(email) {
		return nil, common.BadRequest("Invalid email")
	}
	if !lengthBetween(username, minUsernameLen, maxUsernameLen) {
		return nil, common.BadRequest("Username must be between 6 and 20 characters")
	}
	if !lengthBetween(in.Password, minPasswordLen, maxPasswordLen) {
		return nil, common.BadRequest("Password must be between 6 and 20 characters")
	}
	if in.Password != in.ConfirmPassword {
		return nil, common.BadRequest("Passwords do not match")
	}

	if taken, err := s.repo.Exists(ctx, accounts.Filter{Username: username}); err != nil {
		return nil, storeFailure(err)
	} else if taken {
		return nil, common.Conflict("Username already exists")
	}
	if taken, err := s.repo.Exists(ctx, accounts.Filter{Email: email}); err != nil {
		return nil, storeFailure(err)
	} else if taken {
		return nil, common.Conflict("Email already exists")
	}

	avatar := models.AvatarRef{URL: s.defaultAvatarURL}
	if in.Avatar != nil {
		res, err := s.images.Upload(ctx, in.Avatar.Path)
		if err != nil || res == nil {
			s.logger.Error(ctx, "avatar upload failed", "file", in.Avatar.Filename, "error", err)
			return nil, common.Internal("Avatar upload failed", err)
		}
		avatar = models.AvatarRef{URL: res.URL, PublicID: res.PublicID}
	}
	if avatar.URL == "" {
		return nil, common.NewError(common.ErrMisconfigured, "Default avatar URL not configured")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.dropAvatar(ctx, avatar.PublicID)
		return nil, common.Internal("Internal Server Error", err)
	}

	created, err := s.repo.Insert(ctx, &models.Account{
		Username:       username,
		Email:          email,
		PasswordHash:   hash,
		Avatar:         avatar.URL,
		AvatarPublicID: avatar.PublicID,
	})
	if err != nil {
		s.dropAvatar(ctx, avatar.PublicID)
		var dup *accounts.DuplicateError
		if errors.As(err, &dup) {
			if dup.Field == accounts.FieldEmail {
				return nil, common.Conflict("Email already exists")
			}
			return nil, common.Conflict("Username already exists")
		}
		return nil, storeFailure(err)
	}

	s.logger.Info(ctx, "account created", "account_id", created.ID)
	return created.Profile(), nil
}

// dropAvatar removes an uploaded image that no stored account refers to.
func (s *AccountService) dropAvatar(ctx context.Context, publicID string) {
	if publicID == "" {
		return
	}
	if !s.images.Delete(ctx, publicID) {
		s.logger.Warn(ctx, "orphaned avatar left in storage", "public_id", publicID)
	}
}

func (s *AccountService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, common.BadRequest("Email and password are required")
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("User not found")
		}
		return nil, storeFailure(err)
	}

	if !s.hasher.Verify(in.Password, account.PasswordHash) {
		return nil, common.Unauthorized("Invalid credentials")
	}

	access, err := s.tokens.Issue(account.ID, auth.AccessToken)
	if err != nil {
		return nil, tokenFailure(err)
	}
	refresh, err := s.tokens.Issue(account.ID, auth.RefreshToken)
	if err != nil {
		return nil, tokenFailure(err)
	}

	// Overwriting the slot revokes any refresh token issued before.
	if err := s.repo.SetRefreshToken(ctx, account.ID, refresh); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("User not found")
		}
		return nil, storeFailure(err)
	}

	profile := account.Profile()
	s.cache.Set(ctx, profile)

	return &LoginResult{Profile: profile, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AccountService) Logout(ctx context.Context, accountID string) error {
	if err := s.repo.ClearRefreshToken(ctx, accountID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NotFound("User not found")
		}
		return storeFailure(err)
	}
	s.cache.Invalidate(ctx, accountID)
	return nil
}

// CheckSession verifies an access token and returns the account it belongs
// to. An unknown account is reported like any other bad session.
func (s *AccountService) CheckSession(ctx context.Context, token string) (*models.Profile, error) {
	if token == "" {
		return nil, common.Unauthorized("Unauthorized - No token provided")
	}

	accountID, err := s.tokens.Verify(token, auth.AccessToken)
	if err != nil {
		return nil, sessionFailure(err)
	}

	return s.ResolveSession(ctx, accountID)
}

// ResolveSession loads the sanitized profile for accountID, from the cache
// when possible.
func (s *AccountService) ResolveSession(ctx context.Context, accountID string) (*models.Profile, error) {
	if p, ok := s.cache.Get(ctx, accountID); ok {
		return p, nil
	}

	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized("Unauthorized access")
		}
		return nil, storeFailure(err)
	}

	profile := account.Profile()
	s.cache.Set(ctx, profile)
	return profile, nil
}

// RefreshAccessToken issues a new access token for a refresh token that
// matches the one stored on the account. The stored refresh token is left
// as it is.
func (s *AccountService) RefreshAccessToken(ctx context.Context, token string) (*RefreshResult, error) {
	if token == "" {
		return nil, common.Unauthorized("Unauthorized - No refresh token provided")
	}

	accountID, err := s.tokens.Verify(token, auth.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrMisconfigured):
			return nil, err
		case errors.Is(err, common.ErrTokenExpired):
			return nil, common.Unauthorized("Session expired")
		default:
			return nil, common.Unauthorized("Invalid refresh token")
		}
	}

	account, err := s.repo.FindByRefreshToken(ctx, accountID, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized("Invalid refresh token")
		}
		return nil, storeFailure(err)
	}

	access, err := s.tokens.Issue(account.ID, auth.AccessToken)
	if err != nil {
		return nil, tokenFailure(err)
	}

	return &RefreshResult{AccessToken: access, Profile: account.Profile()}, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, in UpdateProfileInput) (*models.Profile, error) {
	username := trimmed(in.Username)
	email := trimmed(in.Email)

	if username == nil && email == nil && in.Avatar == nil {
		return nil, common.BadRequest("No fields to update")
	}

	if username != nil && !lengthBetween(*username, minUsernameLen, maxUsernameLen) {
		return nil, common.BadRequest("Username must be between 6 and 20 characters")
	}
	if email != nil && !validEmail(*email) {
		return nil, common.BadRequest("Invalid email")
	}

	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("User not found")
		}
		return nil, storeFailure(err)
	}

	if username != nil {
		taken, err := s.repo.Exists(ctx, accounts.Filter{Username: *username, ExcludeID: account.ID})
		if err != nil {
			return nil, storeFailure(err)
		}
		if taken {
			return nil, common.Conflict("Username already taken")
		}
	}
	if email != nil {
		taken, err := s.repo.Exists(ctx, accounts.Filter{Email: *email, ExcludeID: account.ID})
		if err != nil {
			return nil, storeFailure(err)
		}
		if taken {
			return nil, common.Conflict("Email already in use")
		}
	}

	update := models.AccountUpdate{Username: username, Email: email}

	if in.Avatar != nil {
		if account.AvatarPublicID != "" && !s.images.Delete(ctx, account.AvatarPublicID) {
			s.logger.Warn(ctx, "old avatar not deleted", "account_id", account.ID, "public_id", account.AvatarPublicID)
		}
		res, err := s.images.Upload(ctx, in.Avatar.Path)
		if err != nil || res == nil {
			s.logger.Error(ctx, "avatar upload failed", "account_id", account.ID, "error", err)
			return nil, common.Internal("Avatar upload failed", err)
		}
		update.Avatar = &models.AvatarRef{URL: res.URL, PublicID: res.PublicID}
	}

	updated, err := s.repo.Update(ctx, account.ID, update)
	if err != nil {
		if update.Avatar != nil {
			s.dropAvatar(ctx, update.Avatar.PublicID)
		}
		var dup *accounts.DuplicateError
		switch {
		case errors.As(err, &dup) && dup.Field == accounts.FieldEmail:
			return nil, common.Conflict("Email already in use")
		case errors.As(err, &dup):
			return nil, common.Conflict("Username already taken")
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.NotFound("User not found")
		}
		return nil, storeFailure(err)
	}

	// The newer version keeps a concurrent lookup from caching the old profile.
	profile := updated.Profile()
	s.cache.Set(ctx, profile)
	return profile, nil
}

// GetActiveUserCount returns the number of stored accounts. No activity
// filter is applied.
func (s *AccountService) GetActiveUserCount(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, storeFailure(err)
	}
	return n, nil
}
