package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crowdcue/backend/internal/models"
	"github.com/crowdcue/backend/pkg/docstore"
)

// Collection is the document collection holding staff accounts.
const Collection = "users"

// Repository handles user persistence.
type Repository struct {
	store docstore.Store
}

// NewRepository creates a users repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Create inserts a new user with a pre-hashed password.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName string, role models.Role) (*models.User, error) {
	u := &models.User{
		ID:        uuid.New().String(),
		Kind:      models.KindUser,
		Email:     email,
		Password:  passwordHash,
		FullName:  fullName,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.Create(ctx, Collection, u.ID, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByID returns a user by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := docstore.GetAs(ctx, r.store, Collection, id, &u); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, id)
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns the user with the given email, or ErrNotFound.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	raws, err := r.store.Query(ctx, Collection, "email", email)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, email)
	}
	var u models.User
	if err := json.Unmarshal(raws[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns public projections of all users.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	raws, err := r.store.Query(ctx, Collection, "kind", string(models.KindUser))
	if err != nil {
		return nil, err
	}
	out := make([]models.UserPublic, 0, len(raws))
	for _, raw := range raws {
		var u models.User
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, err
		}
		out = append(out, u.ToPublic())
	}
	return out, nil
}
