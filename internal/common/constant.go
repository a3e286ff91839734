package common

// Cookie names used to carry tokens between the server and browsers/CLI.
const (
	AccessTokenCookieName  = "accessToken"
	RefreshTokenCookieName = "refreshToken"
)

// AvatarFieldName is the multipart field that carries the avatar image.
const AvatarFieldName = "avatar"

// RequestIDHeaderName is echoed on every response for log correlation.
const RequestIDHeaderName = "X-Request-ID"
