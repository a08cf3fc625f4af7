package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"familytodo/internal/database"
	"familytodo/internal/repository"
	"familytodo/internal/security"
	"familytodo/internal/service"
)

const testFrontendURL = "https://app.example"

type testServer struct {
	t       *testing.T
	handler http.Handler
	auth    *service.AuthService
}

func newTestServer(t *testing.T, google *OAuthProvider) *testServer {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "handlers.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := repository.NewStore(db)

	identities := service.NewDispatcher(
		service.NewPasswordResolver(store),
		service.NewExternalResolver("google", store),
	)
	authService := service.NewAuthService(store, identities, security.NewTokenIssuer("handler-secret", time.Hour))
	membership := service.NewMembershipService(store)

	router := &Router{
		Auth:       NewAuthHandler(authService, google, "", testFrontendURL),
		Todos:      NewTodoHandler(service.NewTodoService(store)),
		Families:   NewFamilyHandler(service.NewFamilyService(store, store, nil), service.NewFamilyTodoService(store, store, membership)),
		Middleware: NewMiddleware(authService),
		CORSOrigin: "*",
	}
	return &testServer{t: t, handler: router.Handler(), auth: authService}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// signup registers and logs in, returning the bearer token and user id
func (s *testServer) signup(email, username string) (string, string) {
	s.t.Helper()
	if rec := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": email, "username": username, "password": "p1"}); rec.Code != http.StatusCreated {
		s.t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body)
	}
	rec := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "p1"})
	if rec.Code != http.StatusOK {
		s.t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body)
	}
	var login LoginView
	decode(s.t, rec, &login)
	return login.Token, login.User.ID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != message {
		t.Fatalf("error = %q, want %q", body["error"], message)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("health = %d %s", rec.Code, rec.Body)
	}
}

func TestRegisterAndLoginScenario(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "a@x.com", "username": "alice", "password": "p1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body)
	}
	var registered RegisteredView
	decode(t, rec, &registered)
	if registered.ID == "" || registered.Email != "a@x.com" {
		t.Errorf("register body = %+v", registered)
	}

	rec = s.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "a@x.com", "username": "alice2", "password": "p1"})
	expectError(t, rec, http.StatusConflict, "Email already in use")

	rec = s.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "b@x.com", "username": "alice", "password": "p1"})
	expectError(t, rec, http.StatusConflict, "Username already in use")

	rec = s.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "b@x.com"})
	expectError(t, rec, http.StatusBadRequest, "Email & username & password required")

	rec = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "wrong"})
	expectError(t, rec, http.StatusUnauthorized, "Invalid credentials")

	rec = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "p1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	var login LoginView
	decode(t, rec, &login)
	if login.Token == "" || login.User.ID != registered.ID || login.User.Username != "alice" {
		t.Errorf("login body = %+v", login)
	}
}

func TestRequireAuth(t *testing.T) {
	s := newTestServer(t, nil)

	expectError(t, s.do(http.MethodGet, "/api/todos", "", nil), http.StatusUnauthorized, ErrNoToken)
	expectError(t, s.do(http.MethodGet, "/api/todos", "not-a-jwt", nil), http.StatusUnauthorized, ErrInvalidToken)

	other := security.NewTokenIssuer("some-other-secret", time.Hour)
	forged, err := other.Issue("someone")
	if err != nil {
		t.Fatal(err)
	}
	expectError(t, s.do(http.MethodGet, "/api/family/my", forged, nil), http.StatusUnauthorized, ErrInvalidToken)
}

func TestPersonalTodoIsolation(t *testing.T) {
	s := newTestServer(t, nil)
	alice, aliceID := s.signup("alice@example.com", "alice")
	bob, _ := s.signup("bob@example.com", "bob")

	rec := s.do(http.MethodPost, "/api/todos", alice, map[string]any{"text": "Pay rent", "describtion": "before the 5th", "deadline": "2026-11-05"})
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	var todo TodoView
	decode(t, rec, &todo)
	if todo.User != aliceID || todo.Done || todo.Description != "before the 5th" || todo.Deadline == nil {
		t.Fatalf("created todo = %+v", todo)
	}

	path := "/api/todos/" + todo.ID
	expectError(t, s.do(http.MethodPut, path, bob, map[string]any{"done": true}), http.StatusNotFound, "Not found")
	expectError(t, s.do(http.MethodDelete, path, bob, nil), http.StatusNotFound, "Not found")
	expectError(t, s.do(http.MethodPut, "/api/todos/does-not-exist", alice, map[string]any{"done": true}), http.StatusNotFound, "Not found")

	var bobs []TodoView
	decode(t, s.do(http.MethodGet, "/api/todos", bob, nil), &bobs)
	if len(bobs) != 0 {
		t.Fatalf("bob sees %d todos", len(bobs))
	}

	rec = s.do(http.MethodPut, path, alice, map[string]any{"done": true, "deadline": nil})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body)
	}
	var updated TodoView
	decode(t, rec, &updated)
	if !updated.Done || updated.Deadline != nil || updated.Text != "Pay rent" {
		t.Errorf("updated todo = %+v", updated)
	}

	expectError(t, s.do(http.MethodPost, "/api/todos", alice, map[string]any{"describtion": "no text"}), http.StatusBadRequest, "Text is required")
	expectError(t, s.do(http.MethodPost, "/api/todos", alice, map[string]any{"text": "x", "deadline": "soon"}), http.StatusBadRequest, ErrBadRequest)

	rec = s.do(http.MethodDelete, path, alice, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"Deleted"`) {
		t.Fatalf("delete = %d %s", rec.Code, rec.Body)
	}
}

func TestFamilyScenario(t *testing.T) {
	s := newTestServer(t, nil)
	alice, aliceID := s.signup("alice@example.com", "alice")
	bob, bobID := s.signup("bob@example.com", "bob")
	mallory, _ := s.signup("mallory@example.com", "mallory")

	expectError(t, s.do(http.MethodGet, "/api/family/my", alice, nil), http.StatusNotFound, "No family found")
	expectError(t, s.do(http.MethodPost, "/api/family/create", alice, map[string]string{}), http.StatusBadRequest, "Family name is required")

	rec := s.do(http.MethodPost, "/api/family/create", alice, map[string]string{"name": "Smiths"})
	if rec.Code != http.StatusOK {
		t.Fatalf("create family = %d %s", rec.Code, rec.Body)
	}
	var family FamilyView
	decode(t, rec, &family)
	if family.ReferralCode == "" || len(family.Members) != 1 || family.Members[0].ID != aliceID {
		t.Fatalf("family = %+v", family)
	}

	expectError(t, s.do(http.MethodPost, "/api/family/join", bob, map[string]string{"referralCode": "NOPE0000"}), http.StatusNotFound, "Family not found")

	for range 2 {
		rec = s.do(http.MethodPost, "/api/family/join", bob, map[string]string{"referralCode": family.ReferralCode})
		if rec.Code != http.StatusOK {
			t.Fatalf("join = %d %s", rec.Code, rec.Body)
		}
		decode(t, rec, &family)
		if len(family.Members) != 2 || family.Members[0].ID != aliceID || family.Members[1].ID != bobID {
			t.Fatalf("members after join = %+v", family.Members)
		}
	}

	todosPath := "/api/family/" + family.ID + "/todos"
	rec = s.do(http.MethodPost, todosPath, bob, map[string]any{"text": "Groceries", "describtion": "milk", "deadline": "2026-11-01T10:00:00Z"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create shared todo = %d %s", rec.Code, rec.Body)
	}
	var shared FamilyTodoView
	decode(t, rec, &shared)
	if shared.User == nil || shared.User.Username != "bob" || shared.Family != family.ID {
		t.Fatalf("shared todo = %+v", shared)
	}

	var list []FamilyTodoView
	decode(t, s.do(http.MethodGet, todosPath, alice, nil), &list)
	if len(list) != 1 {
		t.Fatalf("alice sees %d shared todos, want 1", len(list))
	}
	got := list[0]
	if got.Text != "Groceries" || got.Description != "milk" || got.Done || got.Deadline == nil ||
		!got.Deadline.Equal(time.Date(2026, 11, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("listed todo = %+v", got)
	}

	todoPath := todosPath + "/" + shared.ID
	t.Run("outsider", func(t *testing.T) {
		expectError(t, s.do(http.MethodGet, todosPath, mallory, nil), http.StatusForbidden, "Not authorized to view this family's todos")
		expectError(t, s.do(http.MethodPost, todosPath, mallory, map[string]any{"text": "spam"}), http.StatusForbidden, "Not authorized to add todos to this family")
		expectError(t, s.do(http.MethodPut, todoPath, mallory, map[string]any{"done": true}), http.StatusForbidden, "Not authorized")
		expectError(t, s.do(http.MethodDelete, todoPath, mallory, nil), http.StatusForbidden, "Not authorized")
		expectError(t, s.do(http.MethodGet, "/api/family/unknown/todos", mallory, nil), http.StatusNotFound, "Family not found")
	})

	rec = s.do(http.MethodPut, todoPath, alice, map[string]any{"done": true})
	decode(t, rec, &shared)
	if rec.Code != http.StatusOK || !shared.Done {
		t.Fatalf("toggle = %d %+v", rec.Code, shared)
	}

	var mine FamilyView
	decode(t, s.do(http.MethodGet, "/api/family/my", bob, nil), &mine)
	if mine.ID != family.ID {
		t.Errorf("bob's family = %s, want %s", mine.ID, family.ID)
	}

	expectError(t, s.do(http.MethodPost, "/api/family/invite", alice, map[string]string{"email": "friend@example.com"}), http.StatusServiceUnavailable, "Email delivery is not configured")

	rec = s.do(http.MethodDelete, todoPath, bob, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Todo deleted successfully") {
		t.Fatalf("delete shared = %d %s", rec.Code, rec.Body)
	}
	expectError(t, s.do(http.MethodDelete, todoPath, bob, nil), http.StatusNotFound, "Todo not found")

	rec = s.do(http.MethodPost, "/api/family/leave", bob, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("leave = %d %s", rec.Code, rec.Body)
	}
	expectError(t, s.do(http.MethodGet, todosPath, bob, nil), http.StatusForbidden, "Not authorized to view this family's todos")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/todos", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q", got)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "Authorization") {
		t.Error("Authorization header should be allowed")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(http.MethodGet, "/api/health", "", nil)

	rec := s.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `route="GET /api/health"`) {
		t.Error("expected request counter labelled with the route pattern")
	}
}

func TestRecoverFromPanic(t *testing.T) {
	handler := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	expectError(t, rec, http.StatusInternalServerError, ErrServerError)
}

// fakeGoogle serves the token and userinfo endpoints
func fakeGoogle(t *testing.T, profile map[string]string) (*httptest.Server, *OAuthProvider) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			fmt.Fprint(w, `{"access_token":"google-access","token_type":"Bearer","expires_in":3600}`)
		case "/userinfo":
			if r.Header.Get("Authorization") != "Bearer google-access" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(profile)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	provider := NewGoogleProvider("client-id", "client-secret", oauth2.Endpoint{
		AuthURL:  srv.URL + "/auth",
		TokenURL: srv.URL + "/token",
	})
	provider.UserInfoURL = srv.URL + "/userinfo"
	return srv, provider
}

func TestGoogleFlow(t *testing.T) {
	srv, provider := fakeGoogle(t, map[string]string{
		"id": "g-42", "email": "gina@example.com", "name": "Gina G", "picture": "https://img.example/g.png",
	})
	s := newTestServer(t, provider)

	rec := s.do(http.MethodGet, "/api/auth/google", "", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("start status = %d", rec.Code)
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, srv.URL+"/auth?") {
		t.Fatalf("start redirect = %q", location)
	}
	authURL, _ := url.Parse(location)
	state := authURL.Query().Get("state")
	if state == "" {
		t.Fatal("state missing from authorization URL")
	}

	t.Run("state mismatch", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=abc&state=wrong", nil)
		req.AddCookie(&http.Cookie{Name: OAuthStateCookieName, Value: state})
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		if got := rec.Header().Get("Location"); got != testFrontendURL+"/login?error=google_oauth_failed" {
			t.Errorf("redirect = %q", got)
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=abc&state="+url.QueryEscape(state), nil)
	req.AddCookie(&http.Cookie{Name: OAuthStateCookieName, Value: state})
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("callback status = %d", rec.Code)
	}
	target, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	if target.Scheme+"://"+target.Host+target.Path != testFrontendURL+"/auth/callback" {
		t.Fatalf("callback redirect = %s", target)
	}
	if strings.Contains(target.RawQuery, "+") {
		t.Error("user payload should be percent-encoded, not form-encoded")
	}

	userID, err := s.auth.Authenticate(target.Query().Get("token"))
	if err != nil {
		t.Fatalf("token from callback does not verify: %v", err)
	}
	var profile ProfileView
	if err := json.Unmarshal([]byte(target.Query().Get("user")), &profile); err != nil {
		t.Fatalf("user param is not JSON: %v", err)
	}
	if profile.ID != userID || profile.Email != "gina@example.com" || profile.DisplayName != "Gina G" || !strings.HasPrefix(profile.Username, "gina_") {
		t.Errorf("profile = %+v", profile)
	}

	rec = s.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "gina@example.com", "username": "gina", "password": "p1"})
	expectError(t, rec, http.StatusConflict, `This email is already registered with Google. Please use "Continue with Google" to login.`)
}

func TestGoogleNotConfigured(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{"/api/auth/google", "/api/auth/google/callback?code=x", "/api/auth/google/error"} {
		rec := s.do(http.MethodGet, path, "", nil)
		if got := rec.Header().Get("Location"); rec.Code != http.StatusFound || got != testFrontendURL+"/login?error=google_oauth_failed" {
			t.Errorf("%s -> %d %q", path, rec.Code, got)
		}
	}
}
