package handlers

import (
	"golang.org/x/oauth2"

	"familytodo/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *service.AuthService

	google               *OAuthProvider
	oauthRedirectBaseURL string
	frontendURL          string
}

// NewAuthHandler creates a new auth handler. google may be nil when Google
// sign-in is not configured.
func NewAuthHandler(authService *service.AuthService, google *OAuthProvider, oauthRedirectBaseURL, frontendURL string) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		google:               google,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		frontendURL:          frontendURL,
	}
}

// NewGoogleProvider builds the Google provider from client credentials.
// It returns nil when either credential is missing.
func NewGoogleProvider(clientID, clientSecret string, endpoint oauth2.Endpoint) *OAuthProvider {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &OAuthProvider{
		Name: "google",
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{"profile", "email"},
		},
		UserInfoURL: googleUserInfoURL,
	}
}

// Health reports that the process is serving
func (h *AuthHandler) Health(rc *RequestContext) (Result, error) {
	return OK(map[string]bool{"ok": true}), nil
}

// Register creates a password account
func (h *AuthHandler) Register(rc *RequestContext) (Result, error) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := rc.Decode(&req); err != nil {
		return Result{}, err
	}

	user, err := h.authService.Register(rc.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		return Result{}, err
	}
	return Created(RegisteredView{ID: user.ID, Email: user.Email}), nil
}

// Login signs in with email and password and returns a bearer token
func (h *AuthHandler) Login(rc *RequestContext) (Result, error) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := rc.Decode(&req); err != nil {
		return Result{}, err
	}

	session, err := h.authService.Login(rc.Context(), req.Email, req.Password)
	if err != nil {
		return Result{}, err
	}
	return OK(LoginView{
		Token: session.Token,
		User: UserView{
			ID:       session.User.ID,
			Email:    session.User.Email,
			Username: session.User.Username,
		},
	}), nil
}
