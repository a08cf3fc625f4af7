package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router holds every handler mounted by the API
type Router struct {
	Auth       *AuthHandler
	Todos      *TodoHandler
	Families   *FamilyHandler
	Middleware *Middleware
	CORSOrigin string
}

// Handler registers the routes and wraps them in the shared middleware
// chain.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	auth := rt.Middleware.RequireAuth

	mux.HandleFunc("GET /api/health", Public(rt.Auth.Health))
	mux.Handle("GET /metrics", promhttp.Handler())

	// Public auth routes
	mux.HandleFunc("POST /api/auth/register", Public(rt.Auth.Register))
	mux.HandleFunc("POST /api/auth/login", Public(rt.Auth.Login))
	mux.HandleFunc("GET /api/auth/google", rt.Auth.StartGoogle)
	mux.HandleFunc("GET /api/auth/google/callback", rt.Auth.GoogleCallback)
	mux.HandleFunc("GET /api/auth/google/error", rt.Auth.GoogleError)

	// Personal tasks
	mux.HandleFunc("GET /api/todos", auth(rt.Todos.List))
	mux.HandleFunc("POST /api/todos", auth(rt.Todos.Create))
	mux.HandleFunc("PUT /api/todos/{id}", auth(rt.Todos.Update))
	mux.HandleFunc("DELETE /api/todos/{id}", auth(rt.Todos.Delete))

	// Families
	mux.HandleFunc("POST /api/family/create", auth(rt.Families.CreateFamily))
	mux.HandleFunc("POST /api/family/join", auth(rt.Families.JoinFamily))
	mux.HandleFunc("GET /api/family/my", auth(rt.Families.MyFamily))
	mux.HandleFunc("POST /api/family/leave", auth(rt.Families.LeaveFamily))
	mux.HandleFunc("POST /api/family/invite", auth(rt.Families.InviteMember))

	// Shared tasks
	mux.HandleFunc("GET /api/family/{familyId}/todos", auth(rt.Families.ListTodos))
	mux.HandleFunc("POST /api/family/{familyId}/todos", auth(rt.Families.CreateTodo))
	mux.HandleFunc("PUT /api/family/{familyId}/todos/{todoId}", auth(rt.Families.UpdateTodo))
	mux.HandleFunc("DELETE /api/family/{familyId}/todos/{todoId}", auth(rt.Families.DeleteTodo))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, ErrRouteMissing)
	})

	return Recover(Logging(Instrument(CORS(rt.CORSOrigin)(mux))))
}
