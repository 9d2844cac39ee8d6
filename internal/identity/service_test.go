package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/apperror"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/docstore"
)

func newTestService() *Service {
	return NewService(NewRepository(docstore.NewMemoryStore()), zap.NewNop())
}

func TestResolveAbsentUser(t *testing.T) {
	svc := newTestService()

	user, err := svc.Resolve(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = svc.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestCreateAndResolveProfile(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	err := svc.CreateProfile(ctx, "u1", CreateProfileInput{
		Email: "alice@example.com",
		Name:  "Alice",
		Phone: "+15551234",
	})
	require.NoError(t, err)

	user, err := svc.Resolve(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "Alice", user.Name)
	assert.False(t, user.IsVerified)
	assert.Equal(t, KYCPending, user.KYCStatus)
	assert.Equal(t, RoleUser, user.Role)
	assert.NotEmpty(t, user.CreatedAt)
}

func TestCreateProfileValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	err := svc.CreateProfile(ctx, "", CreateProfileInput{Email: "a@b.c"})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	err = svc.CreateProfile(ctx, "u1", CreateProfileInput{Email: "  "})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestResolveByEmail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.CreateProfile(ctx, "u1", CreateProfileInput{Email: "alice@example.com", Name: "Alice"}))

	user, err := svc.ResolveByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)

	missing, err := svc.ResolveByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSetKYCStatus(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.CreateProfile(ctx, "u1", CreateProfileInput{Email: "a@b.c"}))
	require.NoError(t, svc.SetKYCStatus(ctx, "u1", KYCApproved))

	user, err := svc.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, KYCApproved, user.KYCStatus)
	assert.True(t, user.IsVerified, "approval marks the user verified")

	err = svc.SetKYCStatus(ctx, "u1", KYCStatus("bogus"))
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestUpdatesOnMissingUserAreNotFound(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	err := svc.SetKYCStatus(ctx, "ghost", KYCApproved)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	name := "Nobody"
	err = svc.UpdateProfile(ctx, "ghost", UpdateProfileInput{Name: &name})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestListUsers(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, svc.CreateProfile(ctx, "u1", CreateProfileInput{Email: "a@b.c", Name: "Alice"}))
	require.NoError(t, svc.CreateProfile(ctx, "u2", CreateProfileInput{Email: "b@b.c", Name: "Bob"}))

	users, err = svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	ids := map[string]bool{users[0].ID: true, users[1].ID: true}
	assert.True(t, ids["u1"] && ids["u2"])
}

func TestRepositoryUpdateLeavesInputAlone(t *testing.T) {
	repo := NewRepository(docstore.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "u1", CreateProfileInput{Email: "a@b.c"}))

	before, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)

	fields := map[string]any{"name": "Alice", "createdAt": "1999-01-01T00:00:00Z"}
	require.NoError(t, repo.Update(ctx, "u1", fields))

	assert.Contains(t, fields, "createdAt", "caller's map is not mutated")

	after, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", after.Name)
	assert.Equal(t, before.CreatedAt, after.CreatedAt, "createdAt is never rewritten")
}

func TestUpdateProfilePartial(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.CreateProfile(ctx, "u1", CreateProfileInput{Email: "a@b.c", Name: "Alice"}))

	newName := "Alice B"
	require.NoError(t, svc.UpdateProfile(ctx, "u1", UpdateProfileInput{Name: &newName}))

	user, err := svc.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", user.Name)
	assert.Equal(t, "a@b.c", user.Email)
}

func TestSynthesizeFallbacks(t *testing.T) {
	u := Synthesize(Principal{ID: "u1", Email: "bob@example.com", Verified: true})
	assert.Equal(t, "bob", u.Name, "name falls back to the email local part")
	assert.True(t, u.IsVerified)
	assert.Equal(t, KYCPending, u.KYCStatus)
	assert.Equal(t, RoleUser, u.Role)

	named := Synthesize(Principal{ID: "u2", Email: "bob@example.com", Name: "Bob"})
	assert.Equal(t, "Bob", named.Name)

	anonymous := Synthesize(Principal{ID: "u3"})
	assert.Equal(t, "User", anonymous.Name)
}

func TestResolveWithFallback(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	// No profile document: synthesized entirely from the principal.
	user, err := svc.ResolveWithFallback(ctx, Principal{ID: "u1", Email: "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, "a", user.Name)

	// Partial profile document: principal fills the gaps, document wins.
	require.NoError(t, svc.CreateProfile(ctx, "u2", CreateProfileInput{Email: "stored@example.com"}))
	user, err = svc.ResolveWithFallback(ctx, Principal{ID: "u2", Email: "token@example.com", Name: "Token Name"})
	require.NoError(t, err)
	assert.Equal(t, "stored@example.com", user.Email)
	assert.Equal(t, "Token Name", user.Name)
}
