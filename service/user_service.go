// Package service implements the user record operations: input validation,
// existence checks, the partial-update merge rule and translation of store
// errors into the error kinds the transport maps to responses.
package service

import (
	"context"
	"errors"

	"github.com/Skryldev/user-records/db"
	"github.com/Skryldev/user-records/models"
	"github.com/Skryldev/user-records/repo"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("service: validation failed")

	// ErrNotFound is returned when no user has the requested id.
	ErrNotFound = errors.New("service: user not found")
)

// ValidationError reports input rejected before any store access.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string        { return e.Message }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// errNameEmailRequired is the only validation rule on the record itself.
var errNameEmailRequired = &ValidationError{Message: "Name and email are required"}

// Store is the part of *db.DB the service needs: plain queries for single
// statement operations and transactions for check-then-write ones.
type Store interface {
	db.Querier
	ExecTx(ctx context.Context, fn func(*db.Tx) error) error
}

// UserService is stateless apart from the injected store; it is safe for
// concurrent use by any number of request handlers.
type UserService struct {
	store Store
}

// NewUserService returns a UserService running its queries against store.
func NewUserService(store Store) *UserService {
	return &UserService{store: store}
}

// ─────────────────────────────────────────────────────────────────────────────
// Create
// ─────────────────────────────────────────────────────────────────────────────

// Create validates params and inserts a new user. A duplicate email comes
// back as a store error matching db.ErrDuplicateKey.
func (s *UserService) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	if params.Name == "" || params.Email == "" {
		return nil, errNameEmailRequired
	}
	return repo.NewUserRepo(s.store).Insert(ctx, params)
}

// ─────────────────────────────────────────────────────────────────────────────
// List
// ─────────────────────────────────────────────────────────────────────────────

// List returns all users in ascending id order.
func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	users, err := repo.NewUserRepo(s.store).List(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Get
// ─────────────────────────────────────────────────────────────────────────────

// Get returns the user with the given id or ErrNotFound.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	u, err := repo.NewUserRepo(s.store).GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Update
// ─────────────────────────────────────────────────────────────────────────────

// Update reads the current row, merges patch into it and writes all mutable
// fields back, all inside one transaction. A missing id yields ErrNotFound
// and no write.
func (s *UserService) Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	var updated *models.User
	err := s.store.ExecTx(ctx, func(tx *db.Tx) error {
		users := repo.NewUserRepo(tx)

		current, err := users.GetByID(ctx, id)
		if err != nil {
			return err
		}

		updated, err = users.Update(ctx, Merge(current, patch))
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}

// Merge applies patch to current by presence: non-empty name and email
// replace the stored values, and age replaces the stored value whenever the
// key was sent, including 0 and null.
func Merge(current *models.User, patch models.UserPatch) models.UpdateUserParams {
	out := models.UpdateUserParams{
		ID:    current.ID,
		Name:  current.Name,
		Email: current.Email,
		Age:   current.Age,
	}
	if patch.Name != "" {
		out.Name = patch.Name
	}
	if patch.Email != "" {
		out.Email = patch.Email
	}
	if patch.Age.Set {
		out.Age = patch.Age.Value
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete
// ─────────────────────────────────────────────────────────────────────────────

// Delete confirms the user exists and removes it, inside one transaction.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	err := s.store.ExecTx(ctx, func(tx *db.Tx) error {
		users := repo.NewUserRepo(tx)
		if _, err := users.GetByID(ctx, id); err != nil {
			return err
		}
		return users.Delete(ctx, id)
	})
	return translate(err)
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

// translate turns a missing row into ErrNotFound and leaves every other
// error, mapped store errors included, untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if db.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}
