package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Skryldev/user-records/models"
)

const maxBodyBytes = 1 << 20

var errTrailingData = errors.New("api: trailing data after JSON body")

type errorBody struct {
	Error string `json:"error"`
}

type messageWithUser struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

type userList struct {
	Count int            `json:"count"`
	Users []*models.User `json:"users"`
}

type deleted struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeBody reads a single JSON value into dst. An empty body leaves dst at
// its zero value; anything after the first value is rejected. On failure the
// response is already written and false is returned.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(dst)
	if errors.Is(err, io.EOF) {
		return true
	}
	if err == nil {
		if err = dec.Decode(&struct{}{}); errors.Is(err, io.EOF) {
			return true
		}
		if err == nil {
			err = errTrailingData
		}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, "Invalid request body")
	return false
}
