package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"familytodo/internal/security"
	"familytodo/internal/service"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

const (
	oauthErrorProvider = "google_oauth_failed"
	oauthErrorCallback = "auth_callback_failed"
)

// OAuthProvider defines provider configuration and metadata
type OAuthProvider struct {
	Name        string
	Config      *oauth2.Config
	UserInfoURL string
}

// StartGoogle redirects to Google's consent screen
func (h *AuthHandler) StartGoogle(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		slog.WarnContext(r.Context(), "google sign-in requested but not configured")
		h.redirectError(w, r, oauthErrorProvider)
		return
	}

	state := security.GenerateState()
	http.SetCookie(w, security.CreateTempCookie(r, OAuthStateCookieName, state, 10*time.Minute))

	config := *h.google.Config
	config.RedirectURL = h.oauthRedirectURL(r)

	http.Redirect(w, r, config.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
}

// GoogleCallback completes the handshake and hands a token to the frontend
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		h.redirectError(w, r, oauthErrorProvider)
		return
	}
	http.SetCookie(w, security.CreateDeleteCookie(r, OAuthStateCookieName))

	query := r.URL.Query()
	if reason := query.Get("error"); reason != "" {
		slog.WarnContext(r.Context(), "google returned an error", "error", reason)
		h.redirectError(w, r, oauthErrorProvider)
		return
	}

	code := query.Get("code")
	stateCookie, err := r.Cookie(OAuthStateCookieName)
	if code == "" || err != nil || stateCookie.Value == "" || stateCookie.Value != query.Get("state") {
		slog.WarnContext(r.Context(), "invalid google callback", "has_code", code != "", "state_ok", err == nil)
		h.redirectError(w, r, oauthErrorProvider)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *h.google.Config
	config.RedirectURL = h.oauthRedirectURL(r)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		slog.WarnContext(r.Context(), "failed to exchange google code", "error", err)
		h.redirectError(w, r, oauthErrorProvider)
		return
	}

	profile, err := fetchGoogleUser(ctx, h.google, token)
	if err != nil {
		slog.WarnContext(r.Context(), "failed to fetch google profile", "error", err)
		h.redirectError(w, r, oauthErrorProvider)
		return
	}

	session, err := h.authService.CompleteExternalLogin(ctx, h.google.Name, profile)
	if err != nil {
		slog.ErrorContext(r.Context(), "google sign-in failed", "error", err)
		h.redirectError(w, r, oauthErrorCallback)
		return
	}

	target, err := h.callbackURL(session)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to build callback url", "error", err)
		h.redirectError(w, r, oauthErrorCallback)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// GoogleError is where failed handshakes land
func (h *AuthHandler) GoogleError(w http.ResponseWriter, r *http.Request) {
	h.redirectError(w, r, oauthErrorProvider)
}

func fetchGoogleUser(ctx context.Context, provider *OAuthProvider, token *oauth2.Token) (service.ExternalProfile, error) {
	client := provider.Config.Client(ctx, token)
	resp, err := client.Get(provider.UserInfoURL)
	if err != nil {
		return service.ExternalProfile{}, fmt.Errorf("failed to fetch Google user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return service.ExternalProfile{}, fmt.Errorf("failed to fetch Google user info: status %d", resp.StatusCode)
	}

	var payload struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return service.ExternalProfile{}, fmt.Errorf("failed to parse Google user info: %w", err)
	}
	if payload.ID == "" || payload.Email == "" {
		return service.ExternalProfile{}, errors.New("Google user info is missing id or email")
	}

	return service.ExternalProfile{
		Subject:     payload.ID,
		Email:       payload.Email,
		DisplayName: payload.Name,
		Avatar:      payload.Picture,
	}, nil
}

// callbackURL encodes the token and profile the way the frontend parses
// them: user is URI-component encoded JSON.
func (h *AuthHandler) callbackURL(session *service.Session) (string, error) {
	user, err := json.Marshal(ProfileView{
		ID:          session.User.ID,
		Email:       session.User.Email,
		Username:    session.User.Username,
		DisplayName: session.User.DisplayName,
		Avatar:      session.User.Avatar,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/auth/callback?token=%s&user=%s",
		h.frontendURL, url.QueryEscape(session.Token), encodeURIComponent(string(user))), nil
}

func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func (h *AuthHandler) redirectError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.frontendURL+"/login?error="+code, http.StatusFound)
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return strings.TrimRight(baseURL, "/") + "/api/auth/google/callback"
}
