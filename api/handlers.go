package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Skryldev/user-records/models"
	"github.com/Skryldev/user-records/service"
)

// Handler holds the dependencies of the route handlers.
type Handler struct {
	users Users
	log   *slog.Logger
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "Server is running"})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var params models.CreateUserParams
	if !decodeBody(w, r, &params) {
		return
	}

	u, err := h.users.Create(r.Context(), params)
	if err != nil {
		h.fail(w, r, "create", 0, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageWithUser{Message: "User created successfully", User: u})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.fail(w, r, "list", 0, err)
		return
	}
	writeJSON(w, http.StatusOK, userList{Count: len(users), Users: users})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get", id, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch models.UserPatch
	if !decodeBody(w, r, &patch) {
		return
	}

	u, err := h.users.Update(r.Context(), id, patch)
	if err != nil {
		h.fail(w, r, "update", id, err)
		return
	}
	writeJSON(w, http.StatusOK, messageWithUser{Message: "User updated successfully", User: u})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "delete", id, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted{Message: "User deleted successfully", ID: id})
}

// fail maps a service error to its response. Validation and not-found are
// client outcomes; everything else is logged and answered with 500 carrying
// the error text.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, id int64, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	default:
		h.log.ErrorContext(r.Context(), "user operation failed",
			slog.String("op", op),
			slog.Int64("id", id),
			slog.String("request_id", RequestIDFrom(r.Context())),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// pathID parses the {id} route variable, answering 400 itself when it is
// not a base-10 integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return 0, false
	}
	return id, true
}
