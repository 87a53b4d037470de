// Package api is the HTTP transport: it routes requests to the user service,
// decodes and encodes JSON bodies and maps service error kinds to status
// codes.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Skryldev/user-records/models"
)

// Users is the record service as the transport sees it.
// *service.UserService satisfies it.
type Users interface {
	Create(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}

// Options tunes the middleware around the router.
type Options struct {
	Logger *slog.Logger

	// RateLimitRPS <= 0 disables rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter returns the complete HTTP handler: routes plus middleware.
func NewRouter(users Users, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{users: users, log: logger}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	r.HandleFunc("/users", h.createUser).Methods(http.MethodPost)
	r.HandleFunc("/users", h.listUsers).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", h.getUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", h.updateUser).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}", h.deleteUser).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Outermost first. The whole router is wrapped rather than using r.Use so
	// unmatched routes are logged and limited as well.
	var handler http.Handler = r
	handler = rateLimit(opts.RateLimitRPS, opts.RateLimitBurst)(handler)
	handler = recoverer(logger)(handler)
	handler = accessLog(logger)(handler)
	handler = requestID(handler)
	return handler
}
