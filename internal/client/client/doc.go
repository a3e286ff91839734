// Package client talks to the gophauth HTTP API.
//
// HTTPClient keeps the accessToken and refreshToken cookies in a cookie jar,
// so after Login every call is authenticated the way a browser would be.
// When the server reports "Session expired" the client refreshes the access
// token once and repeats the call.
//
// Transport failures are reported as ErrUnavailable; error responses become
// *APIError, which matches ErrUnauthorized for 401 responses.
package client
