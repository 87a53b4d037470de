package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// User represents a row in the "users" table.
// Fields map 1-to-1 with columns; Age is nil when the column is NULL.
type User struct {
	ID        int64     `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	Email     string    `json:"email"      db:"email"`
	Age       *int64    `json:"age"        db:"age"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreateUserParams holds the fields accepted when creating a user.
// Keeping input types separate from the domain model prevents accidental
// mass-assignment of id or created_at.
type CreateUserParams struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   *int64 `json:"age"`
}

// UpdateUserParams is a full write of the mutable columns of one row.
// Merging a partial request into it happens before it reaches the
// repository.
type UpdateUserParams struct {
	ID    int64
	Name  string
	Email string
	Age   *int64
}

// UserPatch is a partial update as sent by a client. An empty Name or Email
// means "keep the stored value". Age tracks key presence separately, so an
// explicit 0 or null is distinguishable from an omitted key.
type UserPatch struct {
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Age   OptionalInt `json:"age"`
}

// OptionalInt is a nullable integer that remembers whether its JSON key was
// present at all.
type OptionalInt struct {
	// Set is true when the key appeared in the document, even as null.
	Set bool
	// Value is nil for an explicit null.
	Value *int64
}

// Int returns an OptionalInt carrying v.
func Int(v int64) OptionalInt { return OptionalInt{Set: true, Value: &v} }

// Null returns an OptionalInt that is present and null.
func Null() OptionalInt { return OptionalInt{Set: true} }

// UnmarshalJSON is only invoked for keys present in the document, which is
// what makes Set meaningful.
func (o *OptionalInt) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o OptionalInt) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}
