package identity

import (
	"context"
	"errors"
	"fmt"

	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/apperror"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/docstore"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/timeparse"
)

const usersCollection = "users"

// Repository reads and writes user profile documents.
type Repository struct {
	store docstore.Store
}

// NewRepository creates a Repository over the given document store.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// GetByID loads a profile, returning (nil, nil) when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	doc, err := r.store.Get(ctx, usersCollection, id)
	if err != nil {
		return nil, fmt.Errorf("identity: get user %s: %w", id, err)
	}
	if doc == nil {
		return nil, nil
	}
	return decodeUser(doc), nil
}

// FindByEmail loads at most one profile by email. The identity space
// guarantees email uniqueness.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	docs, err := r.store.Query(ctx, usersCollection,
		[]docstore.Filter{{Field: "email", Value: email}},
		&docstore.QueryOptions{Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("identity: find by email: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return decodeUser(&docs[0]), nil
}

// List returns every profile document.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	docs, err := r.store.Query(ctx, usersCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("identity: list users: %w", err)
	}
	users := make([]User, 0, len(docs))
	for i := range docs {
		users = append(users, *decodeUser(&docs[i]))
	}
	return users, nil
}

// CreateProfileInput carries the signup fields.
type CreateProfileInput struct {
	Email string
	Name  string
	Phone string
	Role  Role
}

// Create writes a fresh profile document under the caller-supplied id (the
// identity provider's uid), stamping createdAt with the commit time.
func (r *Repository) Create(ctx context.Context, id string, input CreateProfileInput) error {
	role := input.Role
	if role == "" {
		role = RoleUser
	}
	fields := map[string]any{
		"email":      input.Email,
		"name":       input.Name,
		"phone":      input.Phone,
		"isVerified": false,
		"kycStatus":  string(KYCPending),
		"role":       string(role),
		"createdAt":  docstore.ServerTimestamp,
	}
	if err := r.store.Set(ctx, usersCollection, id, fields); err != nil {
		return fmt.Errorf("identity: create profile %s: %w", id, err)
	}
	return nil
}

// Update applies a partial profile write. createdAt is never touched; the
// caller's map is left as-is.
func (r *Repository) Update(ctx context.Context, id string, fields map[string]any) error {
	patch := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "createdAt" {
			continue
		}
		patch[k] = v
	}
	if err := r.store.Update(ctx, usersCollection, id, patch); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return apperror.Newf(apperror.KindNotFound, "user %s not found", id)
		}
		return fmt.Errorf("identity: update profile %s: %w", id, err)
	}
	return nil
}

// decodeUser coerces a raw document into a User, applying the centralized
// missing-field defaults.
func decodeUser(doc *docstore.Document) *User {
	f := doc.Fields
	return &User{
		ID:         doc.ID,
		Email:      docstore.String(f, "email", ""),
		Name:       docstore.String(f, "name", ""),
		Phone:      docstore.String(f, "phone", ""),
		IsVerified: docstore.Bool(f, "isVerified", false),
		KYCStatus:  KYCStatus(docstore.String(f, "kycStatus", string(KYCPending))),
		Role:       Role(docstore.String(f, "role", string(RoleUser))),
		CreatedAt:  timeparse.Normalize(f["createdAt"]),
		AvatarURL:  docstore.String(f, "avatarUrl", ""),
	}
}
