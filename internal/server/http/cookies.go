package http

import (
	"net/http"
	"time"
)

const (
	accessCookieMaxAge  = 24 * time.Hour
	refreshCookieMaxAge = 7 * 24 * time.Hour
)

func (s *HTTPServer) tokenCookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: http.SameSiteNoneMode,
	}
}

func (s *HTTPServer) setTokenCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, s.tokenCookie(name, value, maxAge))
}

func (s *HTTPServer) clearTokenCookie(w http.ResponseWriter, name string) {
	c := s.tokenCookie(name, "", 0)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}
