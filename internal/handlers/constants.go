package handlers

const (
	OAuthStateCookieName = "oauth_state"

	ErrNoToken      = "No token provided"
	ErrInvalidToken = "Invalid token"
	ErrBadRequest   = "Bad request"
	ErrServerError  = "Server error"
	ErrRouteMissing = "Not found"
)
