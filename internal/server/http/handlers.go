package http

import (
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

type signupRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

type userData struct {
	User *models.Profile `json:"user"`
}

type refreshData struct {
	AccessToken string          `json:"accessToken"`
	User        *models.Profile `json:"user"`
}

func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "OK", nil)
}

func (s *HTTPServer) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	upload, err := s.decodeBody(w, r, &req)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	defer removeStaged(upload)

	profile, err := s.accounts.Signup(r.Context(), services.SignupInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Avatar:          upload,
	})
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, "Account created successfully", profile)
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	upload, err := s.decodeBody(w, r, &req)
	removeStaged(upload)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	res, err := s.accounts.Login(r.Context(), services.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.setTokenCookie(w, common.AccessTokenCookieName, res.AccessToken, accessCookieMaxAge)
	s.setTokenCookie(w, common.RefreshTokenCookieName, res.RefreshToken, refreshCookieMaxAge)
	writeJSON(w, http.StatusOK, "Login successful", userData{User: res.Profile})
}

func (s *HTTPServer) logout(w http.ResponseWriter, r *http.Request) {
	profile, _ := AccountFromContext(r.Context())

	if err := s.accounts.Logout(r.Context(), profile.ID); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.clearTokenCookie(w, common.AccessTokenCookieName)
	s.clearTokenCookie(w, common.RefreshTokenCookieName)
	writeJSON(w, http.StatusOK, "Logged out successfully", nil)
}

func (s *HTTPServer) checkSession(w http.ResponseWriter, r *http.Request) {
	profile, err := s.accounts.CheckSession(r.Context(), accessToken(r))
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, "Session valid", userData{User: profile})
}

// refreshToken reads the token from the refreshToken cookie, or from the
// JSON body when no cookie is sent.
func (s *HTTPServer) refreshToken(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil && c.Value != "" {
		token = c.Value
	} else {
		var req refreshRequest
		upload, err := s.decodeBody(w, r, &req)
		removeStaged(upload)
		if err != nil {
			s.writeError(r.Context(), w, err)
			return
		}
		token = req.RefreshToken
	}

	res, err := s.accounts.RefreshAccessToken(r.Context(), token)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.setTokenCookie(w, common.AccessTokenCookieName, res.AccessToken, accessCookieMaxAge)
	writeJSON(w, http.StatusOK, "Tokens refreshed successfully", refreshData{AccessToken: res.AccessToken, User: res.Profile})
}

func (s *HTTPServer) updateProfile(w http.ResponseWriter, r *http.Request) {
	profile, _ := AccountFromContext(r.Context())

	var req updateProfileRequest
	upload, err := s.decodeBody(w, r, &req)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	defer removeStaged(upload)

	updated, err := s.accounts.UpdateProfile(r.Context(), profile.ID, services.UpdateProfileInput{
		Username: req.Username,
		Email:    req.Email,
		Avatar:   upload,
	})
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, "Profile updated", updated)
}

func (s *HTTPServer) activeUsers(w http.ResponseWriter, r *http.Request) {
	n, err := s.accounts.GetActiveUserCount(r.Context())
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, "Users fetched successfully", n)
}
