package dispute

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"escrow-desk/escrow-portal/escrow-portal-backend/internal/identity"
	"escrow-desk/escrow-portal/escrow-portal-backend/internal/transaction"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/apperror"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/docstore"
)

type testEnv struct {
	store        *docstore.MemoryStore
	identity     *identity.Service
	transactions *transaction.Service
	service      *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := docstore.NewMemoryStore()
	identitySvc := identity.NewService(identity.NewRepository(store), zap.NewNop())
	txnSvc := transaction.NewService(transaction.NewRepository(store), identitySvc, zap.NewNop())
	svc := NewService(NewRepository(store), txnSvc, identitySvc, zap.NewNop())
	return &testEnv{store: store, identity: identitySvc, transactions: txnSvc, service: svc}
}

func (e *testEnv) seedUser(t *testing.T, id, email string) {
	t.Helper()
	require.NoError(t, e.identity.CreateProfile(context.Background(), id, identity.CreateProfileInput{
		Email: email,
		Name:  id,
	}))
}

func (e *testEnv) seedTransaction(t *testing.T, buyerID, sellerID string) string {
	t.Helper()
	id, err := e.transactions.Create(context.Background(), transaction.CreateInput{
		Title:    "Laptop sale",
		Amount:   100,
		Currency: "USD",
		BuyerID:  buyerID,
		SellerID: sellerID,
	})
	require.NoError(t, err)
	return id
}

func TestOpenSeedsStatementEvidence(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "buyer-1", "b@example.com")
	env.seedUser(t, "seller-1", "s@example.com")
	txnID := env.seedTransaction(t, "buyer-1", "seller-1")
	ctx := context.Background()

	id, err := env.service.Open(ctx, OpenInput{
		TransactionID: txnID,
		OpenedBy:      "buyer-1",
		Reason:        "item not delivered",
		Statement:     "Paid two weeks ago, nothing arrived.",
	})
	require.NoError(t, err)

	d, err := env.service.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, StatusOpen, d.Status)
	assert.Equal(t, "buyer-1", d.OpenedBy)
	require.Len(t, d.Evidence, 1)
	assert.Equal(t, "statement-1", d.Evidence[0].ID)
	assert.Equal(t, EvidenceStatement, d.Evidence[0].Type)
	assert.Equal(t, "buyer-1", d.Evidence[0].UploadedBy)
	assert.Empty(t, d.Messages)
	assert.Empty(t, d.ResolvedAt)
}

func TestOpenWithoutStatement(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "buyer-1", "b@example.com")
	env.seedUser(t, "seller-1", "s@example.com")
	txnID := env.seedTransaction(t, "buyer-1", "seller-1")

	id, err := env.service.Open(context.Background(), OpenInput{
		TransactionID: txnID,
		OpenedBy:      "seller-1",
		Reason:        "buyer refuses release",
	})
	require.NoError(t, err)

	d, err := env.service.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, d.Evidence)
}

func TestOpenFailures(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "buyer-1", "b@example.com")
	env.seedUser(t, "seller-1", "s@example.com")
	env.seedUser(t, "stranger", "x@example.com")
	txnID := env.seedTransaction(t, "buyer-1", "seller-1")
	ctx := context.Background()

	_, err := env.service.Open(ctx, OpenInput{TransactionID: "missing", OpenedBy: "buyer-1", Reason: "r"})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	_, err = env.service.Open(ctx, OpenInput{TransactionID: txnID, OpenedBy: "stranger", Reason: "r"})
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))

	_, err = env.service.Open(ctx, OpenInput{TransactionID: txnID, OpenedBy: "buyer-1", Reason: "  "})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestGetHydratesMessageSenders(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "buyer-1", "b@example.com")
	env.seedUser(t, "seller-1", "s@example.com")
	txnID := env.seedTransaction(t, "buyer-1", "seller-1")
	ctx := context.Background()

	id, err := env.service.Open(ctx, OpenInput{TransactionID: txnID, OpenedBy: "buyer-1", Reason: "r"})
	require.NoError(t, err)

	_, err = env.service.AppendMessage(ctx, id, "seller-1", "shipping was delayed")
	require.NoError(t, err)
	// Sender with no profile falls back to the dispute opener.
	_, err = env.service.AppendMessage(ctx, id, "ghost", "unattributable")
	require.NoError(t, err)

	d, err := env.service.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, d.Messages, 2)
	assert.Equal(t, "s@example.com", d.Messages[0].Sender.Email)
	assert.Equal(t, d.OpenedByUser.Email, d.Messages[1].Sender.Email)
	assert.NotEqual(t, d.Messages[0].ID, d.Messages[1].ID)
}

func TestGetAbsentDispute(t *testing.T) {
	env := newTestEnv(t)
	d, err := env.service.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestListByUserUnion(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1", "u1@example.com")
	env.seedUser(t, "u2", "u2@example.com")
	env.seedUser(t, "u3", "u3@example.com")
	env.seedUser(t, "u4", "u4@example.com")
	ctx := context.Background()

	// u1 opened this one.
	txnA := env.seedTransaction(t, "u1", "u2")
	openedByU1, err := env.service.Open(ctx, OpenInput{TransactionID: txnA, OpenedBy: "u1", Reason: "r"})
	require.NoError(t, err)

	// u1 is the seller but u3 opened it: only the scan pass finds this one.
	txnB := env.seedTransaction(t, "u3", "u1")
	openedAgainstU1, err := env.service.Open(ctx, OpenInput{TransactionID: txnB, OpenedBy: "u3", Reason: "r"})
	require.NoError(t, err)

	// u1 is uninvolved.
	txnC := env.seedTransaction(t, "u3", "u4")
	_, err = env.service.Open(ctx, OpenInput{TransactionID: txnC, OpenedBy: "u4", Reason: "r"})
	require.NoError(t, err)

	disputes, err := env.service.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, disputes, 2)

	seen := map[string]int{}
	for _, d := range disputes {
		seen[d.ID]++
	}
	assert.Equal(t, 1, seen[openedByU1], "appears exactly once despite matching both passes")
	assert.Equal(t, 1, seen[openedAgainstU1])
}

func TestListByUserDropsDanglingTransaction(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1", "u1@example.com")
	env.seedUser(t, "u2", "u2@example.com")
	ctx := context.Background()

	txnID := env.seedTransaction(t, "u1", "u2")
	_, err := env.service.Open(ctx, OpenInput{TransactionID: txnID, OpenedBy: "u1", Reason: "r"})
	require.NoError(t, err)

	// A dispute written around the service with a dangling transaction
	// reference must silently vanish from list views.
	_, err = env.service.repo.Create(ctx, OpenInput{
		TransactionID: "gone",
		OpenedBy:      "u1",
		Reason:        "orphan",
	}, nil)
	require.NoError(t, err)

	disputes, err := env.service.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, disputes, 1)
}

func TestResolveScenario(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "buyer-1", "b@example.com")
	env.seedUser(t, "seller-1", "s@example.com")
	txnID := env.seedTransaction(t, "buyer-1", "seller-1")
	ctx := context.Background()

	// Fund, then dispute: the transaction is untouched by the dispute until
	// explicitly transitioned.
	require.NoError(t, env.transactions.SetStatus(ctx, txnID, transaction.StatusFunded))
	id, err := env.service.Open(ctx, OpenInput{TransactionID: txnID, OpenedBy: "buyer-1", Reason: "r"})
	require.NoError(t, err)

	txn, err := env.transactions.Get(ctx, txnID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusFunded, txn.Status)

	status := StatusResolved
	resolution := ResolutionSplit
	resolvedAt := "2025-06-01T12:00:00Z"
	note := "refund half"
	err = env.service.Resolve(ctx, id, ResolveInput{
		Status:         &status,
		Resolution:     &resolution,
		ResolutionNote: &note,
		ResolvedAt:     &resolvedAt,
	})
	require.NoError(t, err)

	d, err := env.service.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, d.Status)
	assert.Equal(t, ResolutionSplit, d.Resolution)
	assert.Equal(t, "refund half", d.ResolutionNote)
	assert.Equal(t, resolvedAt, d.ResolvedAt)
}

func TestResolveDoesNotAutoStamp(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "buyer-1", "b@example.com")
	env.seedUser(t, "seller-1", "s@example.com")
	txnID := env.seedTransaction(t, "buyer-1", "seller-1")
	ctx := context.Background()

	id, err := env.service.Open(ctx, OpenInput{TransactionID: txnID, OpenedBy: "buyer-1", Reason: "r"})
	require.NoError(t, err)

	status := StatusResolved
	require.NoError(t, env.service.Resolve(ctx, id, ResolveInput{Status: &status}))

	d, err := env.service.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, d.Status)
	assert.Empty(t, d.ResolvedAt, "resolvedAt is only written when supplied")
}

func TestResolveTransitionGuard(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "buyer-1", "b@example.com")
	env.seedUser(t, "seller-1", "s@example.com")
	txnID := env.seedTransaction(t, "buyer-1", "seller-1")
	ctx := context.Background()

	id, err := env.service.Open(ctx, OpenInput{TransactionID: txnID, OpenedBy: "buyer-1", Reason: "r"})
	require.NoError(t, err)

	review := StatusUnderReview
	require.NoError(t, env.service.Resolve(ctx, id, ResolveInput{Status: &review}))

	open := StatusOpen
	err = env.service.Resolve(ctx, id, ResolveInput{Status: &open})
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidTransition))

	resolved := StatusResolved
	require.NoError(t, env.service.Resolve(ctx, id, ResolveInput{Status: &resolved}))
	err = env.service.Resolve(ctx, id, ResolveInput{Status: &review})
	assert.True(t, apperror.IsKind(err, apperror.KindInvalidTransition), "resolved is terminal")

	// A note-only edit skips the guard.
	note := "post-resolution annotation"
	assert.NoError(t, env.service.Resolve(ctx, id, ResolveInput{ResolutionNote: &note}))

	err = env.service.Resolve(ctx, "missing", ResolveInput{Status: &review})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestAppendEvidenceValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "buyer-1", "b@example.com")
	env.seedUser(t, "seller-1", "s@example.com")
	txnID := env.seedTransaction(t, "buyer-1", "seller-1")
	ctx := context.Background()

	id, err := env.service.Open(ctx, OpenInput{TransactionID: txnID, OpenedBy: "buyer-1", Reason: "r"})
	require.NoError(t, err)

	_, err = env.service.AppendEvidence(ctx, id, Evidence{
		Type:       EvidenceFile,
		Content:    "https://cdn.example.com/f.pdf",
		UploadedBy: "buyer-1",
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation), "file evidence requires a file name")

	_, err = env.service.AppendEvidence(ctx, id, Evidence{
		Type:       EvidenceType("screenshot"),
		Content:    "x",
		UploadedBy: "buyer-1",
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation), "unknown evidence type")

	link, err := env.service.AppendEvidence(ctx, id, Evidence{
		Type:       EvidenceLink,
		Content:    "https://example.com/tracking",
		UploadedBy: "buyer-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, link.ID)
	assert.NotEmpty(t, link.UploadedAt)
}

func TestAppendToMissingDispute(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.AppendMessage(ctx, "no-such-dispute", "buyer-1", "hello")
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	_, err = env.service.AppendEvidence(ctx, "no-such-dispute", Evidence{
		Type:       EvidenceStatement,
		Content:    "late statement",
		UploadedBy: "buyer-1",
	})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestConcurrentEvidenceAppendsNotLost(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "buyer-1", "b@example.com")
	env.seedUser(t, "seller-1", "s@example.com")
	txnID := env.seedTransaction(t, "buyer-1", "seller-1")
	ctx := context.Background()

	id, err := env.service.Open(ctx, OpenInput{TransactionID: txnID, OpenedBy: "buyer-1", Reason: "r"})
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, appendErr := env.service.AppendEvidence(ctx, id, Evidence{
				Type:       EvidenceStatement,
				Content:    "concurrent statement",
				UploadedBy: "buyer-1",
			})
			assert.NoError(t, appendErr)
		}()
	}
	wg.Wait()

	d, err := env.service.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, d.Evidence, writers, "no append may be lost")

	ids := map[string]bool{}
	for _, e := range d.Evidence {
		assert.False(t, ids[e.ID], "evidence ids must be distinct")
		ids[e.ID] = true
	}
}
