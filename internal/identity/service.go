package identity

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/apperror"
)

// Service is the identity resolver used by every hydration path. It never
// mutates profiles on behalf of reads.
type Service struct {
	repo   *Repository
	logger *zap.Logger
}

// NewService creates an identity service.
func NewService(repo *Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Resolve loads a user by id, returning (nil, nil) when absent.
func (s *Service) Resolve(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, nil
	}
	return s.repo.GetByID(ctx, userID)
}

// ResolveByEmail loads a user by email, returning (nil, nil) when absent.
func (s *Service) ResolveByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, nil
	}
	return s.repo.FindByEmail(ctx, email)
}

// ListUsers returns every profile, for the admin view.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// CreateProfile writes the signup profile document.
func (s *Service) CreateProfile(ctx context.Context, id string, input CreateProfileInput) error {
	if id == "" {
		return apperror.New(apperror.KindValidation, "user id is required")
	}
	if strings.TrimSpace(input.Email) == "" {
		return apperror.New(apperror.KindValidation, "email is required")
	}
	return s.repo.Create(ctx, id, input)
}

// UpdateProfileInput carries the editable profile fields. Nil pointers leave
// the stored value untouched.
type UpdateProfileInput struct {
	Name      *string
	Phone     *string
	AvatarURL *string
}

// UpdateProfile applies a partial profile edit.
func (s *Service) UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) error {
	fields := map[string]any{}
	if input.Name != nil {
		fields["name"] = *input.Name
	}
	if input.Phone != nil {
		fields["phone"] = *input.Phone
	}
	if input.AvatarURL != nil {
		fields["avatarUrl"] = *input.AvatarURL
	}
	if len(fields) == 0 {
		return nil
	}
	return s.repo.Update(ctx, id, fields)
}

// SetKYCStatus records an adjudication outcome. Approval also marks the user
// verified.
func (s *Service) SetKYCStatus(ctx context.Context, id string, status KYCStatus) error {
	switch status {
	case KYCPending, KYCSubmitted, KYCApproved, KYCRejected:
	default:
		return apperror.Newf(apperror.KindValidation, "unknown kyc status %q", status)
	}
	fields := map[string]any{"kycStatus": string(status)}
	if status == KYCApproved {
		fields["isVerified"] = true
	}
	return s.repo.Update(ctx, id, fields)
}

// ResolveWithFallback returns the profile for the authenticated principal,
// filling gaps from the principal when the document is partially populated
// and synthesizing a whole profile when no document exists yet.
func (s *Service) ResolveWithFallback(ctx context.Context, p Principal) (*User, error) {
	profile, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		u := Synthesize(p)
		return &u, nil
	}
	if profile.Email == "" {
		profile.Email = p.Email
	}
	if profile.Name == "" {
		profile.Name = fallbackName(p)
	}
	if profile.Phone == "" {
		profile.Phone = p.Phone
	}
	if profile.AvatarURL == "" {
		profile.AvatarURL = p.AvatarURL
	}
	return profile, nil
}

// Synthesize builds a profile from the identity provider alone, used before
// the signup document lands.
func Synthesize(p Principal) User {
	return User{
		ID:         p.ID,
		Email:      p.Email,
		Name:       fallbackName(p),
		Phone:      p.Phone,
		IsVerified: p.Verified,
		KYCStatus:  KYCPending,
		Role:       RoleUser,
		AvatarURL:  p.AvatarURL,
	}
}

func fallbackName(p Principal) string {
	if p.Name != "" {
		return p.Name
	}
	if at := strings.Index(p.Email, "@"); at > 0 {
		return p.Email[:at]
	}
	return "User"
}
