package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/user-records/api"
	"github.com/Skryldev/user-records/db"
	"github.com/Skryldev/user-records/models"
	"github.com/Skryldev/user-records/repo"
	"github.com/Skryldev/user-records/service"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newServer(t *testing.T) http.Handler {
	t.Helper()

	database, err := db.Open(db.Config{DSN: ":memory:", DriverName: "sqlite3", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, repo.EnsureSchema(context.Background(), database, "sqlite3"))

	return api.NewRouter(service.NewUserService(database), api.Options{Logger: quietLogger})
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	}
	return rec, out
}

// stubUsers returns fixed results; unset funcs panic if called.
type stubUsers struct {
	list   func() ([]*models.User, error)
	get    func(id int64) (*models.User, error)
	delete func(id int64) error
}

func (s stubUsers) Create(context.Context, models.CreateUserParams) (*models.User, error) {
	panic("unexpected Create")
}
func (s stubUsers) List(context.Context) ([]*models.User, error) { return s.list() }
func (s stubUsers) Get(_ context.Context, id int64) (*models.User, error) {
	return s.get(id)
}
func (s stubUsers) Update(context.Context, int64, models.UserPatch) (*models.User, error) {
	panic("unexpected Update")
}
func (s stubUsers) Delete(_ context.Context, id int64) error { return s.delete(id) }

// ─────────────────────────────────────────────────────────────────────────────
// End to end against SQLite
// ─────────────────────────────────────────────────────────────────────────────

func TestLifecycle(t *testing.T) {
	h := newServer(t)

	rec, body := do(t, h, http.MethodPost, "/users", `{"name":"Alice","email":"a@x.com","age":30}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "User created successfully", body["message"])
	user := body["user"].(map[string]any)
	assert.EqualValues(t, 1, user["id"])
	assert.Equal(t, "Alice", user["name"])
	assert.EqualValues(t, 30, user["age"])
	assert.NotEmpty(t, user["created_at"])

	rec, body = do(t, h, http.MethodPut, "/users/1", `{"age":31}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User updated successfully", body["message"])
	user = body["user"].(map[string]any)
	assert.Equal(t, "Alice", user["name"])
	assert.Equal(t, "a@x.com", user["email"])
	assert.EqualValues(t, 31, user["age"])

	rec, body = do(t, h, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
	assert.Len(t, body["users"], 1)

	rec, body = do(t, h, http.MethodGet, "/users/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 31, body["age"])

	rec, body = do(t, h, http.MethodDelete, "/users/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User deleted successfully", body["message"])
	assert.EqualValues(t, 1, body["id"])

	rec, body = do(t, h, http.MethodGet, "/users/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", body["error"])
}

func TestCreateWithoutAgeThenList(t *testing.T) {
	h := newServer(t)

	rec, body := do(t, h, http.MethodPost, "/users", `{"name":"Bob","email":"bob@x.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	user := body["user"].(map[string]any)
	assert.EqualValues(t, 1, user["id"])
	assert.Contains(t, user, "age")
	assert.Nil(t, user["age"])

	rec, body = do(t, h, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
	users := body["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "Bob", users[0].(map[string]any)["name"])
}

func TestListEmpty(t *testing.T) {
	h := newServer(t)

	rec, body := do(t, h, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["count"])
	assert.Equal(t, []any{}, body["users"])
}

func TestCreateValidation(t *testing.T) {
	h := newServer(t)

	for _, payload := range []string{
		`{"email":"a@x.com"}`,
		`{"name":"Alice"}`,
		`{"name":"","email":"a@x.com"}`,
		`{}`,
	} {
		rec, body := do(t, h, http.MethodPost, "/users", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code, payload)
		assert.Equal(t, "Name and email are required", body["error"], payload)
	}

	_, body := do(t, h, http.MethodGet, "/users", "")
	assert.EqualValues(t, 0, body["count"], "rejected creates must not insert")
}

func TestCreateEmptyBodyIsValidationError(t *testing.T) {
	h := newServer(t)

	rec, body := do(t, h, http.MethodPost, "/users", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Name and email are required", body["error"])
}

func TestMalformedBody(t *testing.T) {
	h := newServer(t)

	rec, body := do(t, h, http.MethodPost, "/users", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", body["error"])

	rec, _ = do(t, h, http.MethodPost, "/users", `{"name":"A","email":"a@x.com","age":"old"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, payload := range []string{
		`{"name":"A","email":"a@x.com"} junk`,
		`{"name":"A","email":"a@x.com"}{"name":"B","email":"b@x.com"}`,
	} {
		rec, body = do(t, h, http.MethodPost, "/users", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code, payload)
		assert.Equal(t, "Invalid request body", body["error"], payload)
	}

	rec, body = do(t, h, http.MethodPut, "/users/1", `{"age":3} 4`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", body["error"])

	_, body = do(t, h, http.MethodGet, "/users", "")
	assert.EqualValues(t, 0, body["count"], "rejected bodies must not insert")

	rec, _ = do(t, h, http.MethodPost, "/users", "{\"name\":\"A\",\"email\":\"a@x.com\"}\n")
	assert.Equal(t, http.StatusCreated, rec.Code, "trailing whitespace is fine")
}

func TestCreateDuplicateEmailIsServerError(t *testing.T) {
	h := newServer(t)

	rec, _ := do(t, h, http.MethodPost, "/users", `{"name":"A","email":"dup@x.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := do(t, h, http.MethodPost, "/users", `{"name":"B","email":"dup@x.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, body["error"])
}

func TestUpdateMergeByPresence(t *testing.T) {
	h := newServer(t)
	do(t, h, http.MethodPost, "/users", `{"name":"Alice","email":"a@x.com","age":30}`)

	_, body := do(t, h, http.MethodPut, "/users/1", `{"age":0}`)
	assert.EqualValues(t, 0, body["user"].(map[string]any)["age"], "0 is a present age")

	_, body = do(t, h, http.MethodPut, "/users/1", `{"name":"","email":"b@x.com"}`)
	user := body["user"].(map[string]any)
	assert.Equal(t, "Alice", user["name"], "empty name is absent")
	assert.Equal(t, "b@x.com", user["email"])
	assert.EqualValues(t, 0, user["age"])

	_, body = do(t, h, http.MethodPut, "/users/1", `{"age":null}`)
	assert.Nil(t, body["user"].(map[string]any)["age"])
}

func TestUpdateNotFound(t *testing.T) {
	h := newServer(t)

	rec, body := do(t, h, http.MethodPut, "/users/99", `{"name":"X"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", body["error"])
}

func TestDeleteNotFound(t *testing.T) {
	h := newServer(t)

	rec, body := do(t, h, http.MethodDelete, "/users/7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", body["error"])
}

func TestInvalidID(t *testing.T) {
	h := newServer(t)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec, body := do(t, h, method, "/users/abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, method)
		assert.Equal(t, "Invalid user id", body["error"], method)
	}
}

func TestHealth(t *testing.T) {
	h := newServer(t)

	rec, body := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Server is running", body["status"])
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := newServer(t)

	rec, body := do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", body["error"])

	rec, _ = do(t, h, http.MethodPatch, "/users/1", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Error mapping and middleware with stubs
// ─────────────────────────────────────────────────────────────────────────────

func TestStoreErrorIs500WithMessage(t *testing.T) {
	h := api.NewRouter(stubUsers{
		list: func() ([]*models.User, error) { return nil, errors.New("connection refused") },
		get:  func(int64) (*models.User, error) { return nil, errors.New("connection refused") },
	}, api.Options{Logger: quietLogger})

	rec, body := do(t, h, http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "connection refused", body["error"])

	rec, body = do(t, h, http.MethodGet, "/users/3", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "connection refused", body["error"])
}

func TestPanicBecomes500(t *testing.T) {
	h := api.NewRouter(stubUsers{
		list: func() ([]*models.User, error) { panic("boom") },
	}, api.Options{Logger: quietLogger})

	rec, body := do(t, h, http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", body["error"])
}

func TestRequestID(t *testing.T) {
	h := newServer(t)

	rec, _ := do(t, h, http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get(api.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(api.RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(api.RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	h := api.NewRouter(stubUsers{
		delete: func(int64) error { return nil },
	}, api.Options{Logger: quietLogger, RateLimitRPS: 0.001, RateLimitBurst: 1})

	rec, _ := do(t, h, http.MethodDelete, "/users/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, h, http.MethodDelete, "/users/1", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests", body["error"])
}

func TestBodyTooLarge(t *testing.T) {
	h := newServer(t)

	big := `{"name":"` + strings.Repeat("a", 2<<20) + `","email":"a@x.com"}`
	rec, _ := do(t, h, http.MethodPost, "/users", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
