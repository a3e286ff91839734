package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

const (
	apiPrefix        = "/api/v1/auth"
	maxResponseBytes = 1 << 20
	sessionExpired   = "Session expired"
)

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Errors     []string        `json:"errors"`
}

// payload builds a fresh request body and its content type. It runs again
// when a request is retried.
type payload func() (io.Reader, string, error)

func jsonPayload(v any) payload {
	return func() (io.Reader, string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(b), "application/json", nil
	}
}

// formPayload sends fields as multipart/form-data, with the file at
// avatarPath under the "avatar" field when set.
func formPayload(fields map[string]string, avatarPath string) payload {
	return func() (io.Reader, string, error) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)

		for k, v := range fields {
			if err := mw.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}

		if avatarPath != "" {
			f, err := os.Open(avatarPath)
			if err != nil {
				return nil, "", err
			}
			defer f.Close()

			fw, err := mw.CreateFormFile(common.AvatarFieldName, filepath.Base(avatarPath))
			if err != nil {
				return nil, "", err
			}
			if _, err := io.Copy(fw, f); err != nil {
				return nil, "", err
			}
		}

		if err := mw.Close(); err != nil {
			return nil, "", err
		}
		return &buf, mw.FormDataContentType(), nil
	}
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: timeout},
	}, nil
}

func (c *HTTPClient) roundTrip(ctx context.Context, method, path string, body payload) (*envelope, error) {
	var (
		r   io.Reader
		ct  string
		err error
	)
	if body != nil {
		if r, ct, err = body(); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env); err != nil {
		return nil, fmt.Errorf("unexpected response (%s): %w", resp.Status, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Message, Details: env.Errors}
	}
	return &env, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body payload, out any) error {
	env, err := c.roundTrip(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// authorized is do for session routes: an expired access token is
// refreshed once and the call repeated.
func (c *HTTPClient) authorized(ctx context.Context, method, path string, body payload, out any) error {
	err := c.do(ctx, method, path, body, out)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != sessionExpired {
		return err
	}
	if _, rerr := c.Refresh(ctx); rerr != nil {
		return err
	}
	return c.do(ctx, method, path, body, out)
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *HTTPClient) Signup(ctx context.Context, req SignupRequest) (*Profile, error) {
	fields := map[string]string{
		"username":        req.Username,
		"email":           req.Email,
		"password":        string(req.Password),
		"confirmPassword": string(req.ConfirmPassword),
	}

	var p Profile
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/signup", formPayload(fields, req.AvatarPath), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type userData struct {
	User *Profile `json:"user"`
}

func (c *HTTPClient) Login(ctx context.Context, email string, password []byte) (*Profile, error) {
	body := jsonPayload(map[string]string{"email": email, "password": string(password)})

	var data userData
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/login", body, &data); err != nil {
		return nil, err
	}
	return data.User, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.authorized(ctx, http.MethodPost, apiPrefix+"/logout", nil, nil)
}

func (c *HTTPClient) CheckSession(ctx context.Context) (*Profile, error) {
	var data userData
	if err := c.authorized(ctx, http.MethodGet, apiPrefix+"/check-session", nil, &data); err != nil {
		return nil, err
	}
	return data.User, nil
}

// Refresh exchanges the refreshToken cookie for a new access token.
func (c *HTTPClient) Refresh(ctx context.Context) (*Profile, error) {
	var data struct {
		AccessToken string   `json:"accessToken"`
		User        *Profile `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/refresh-token", nil, &data); err != nil {
		return nil, err
	}
	return data.User, nil
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, req UpdateRequest) (*Profile, error) {
	fields := map[string]string{}
	if req.Username != nil {
		fields["username"] = *req.Username
	}
	if req.Email != nil {
		fields["email"] = *req.Email
	}

	var p Profile
	err := c.authorized(ctx, http.MethodPatch, apiPrefix+"/update-profile", formPayload(fields, req.AvatarPath), &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) ActiveUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := c.authorized(ctx, http.MethodGet, apiPrefix+"/get-active-users", nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}
