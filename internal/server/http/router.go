package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// APIPrefix is where the account routes are mounted.
const APIPrefix = "/api/v1/auth"

// Handler returns the full middleware chain around the router.
func (s *HTTPServer) Handler() http.Handler {
	return requestID(s.accessLog(s.recoverPanic(s.Router())))
}

func (s *HTTPServer) Router() *mux.Router {
	r := mux.NewRouter()

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, "Route not found", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	api := r.PathPrefix(APIPrefix).Subrouter()
	api.Use(mux.CORSMethodMiddleware(api))
	api.Use(s.cors)

	api.HandleFunc("/signup", s.signup).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/login", s.login).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/check-session", s.checkSession).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/refresh-token", s.refreshToken).Methods(http.MethodPost, http.MethodOptions)

	api.Handle("/logout", s.requireSession(http.HandlerFunc(s.logout))).
		Methods(http.MethodPost, http.MethodOptions)
	api.Handle("/update-profile", s.requireSession(http.HandlerFunc(s.updateProfile))).
		Methods(http.MethodPatch, http.MethodOptions)
	api.Handle("/get-active-users", s.requireSession(http.HandlerFunc(s.activeUsers))).
		Methods(http.MethodGet, http.MethodOptions)

	return r
}
