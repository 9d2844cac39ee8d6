package dispute

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/apperror"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/objectstore"
)

func TestIngestStoresUnderSanitizedPath(t *testing.T) {
	store := objectstore.NewMemoryStore()
	ing := NewIngestor(store)

	ref, err := ing.Ingest(context.Background(), "d-1", "receipt #3 (final).pdf", strings.NewReader("pdf-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "receipt #3 (final).pdf", ref.FileName, "original name survives on the ref")
	// The stored path carries only sanitized characters after the prefix.
	assert.Regexp(t, `^disputes/d-1/evidence/\d+_receipt_3_final_\.pdf$`, ref.Path)
	assert.Equal(t, "memory://"+ref.Path, ref.URL)

	data, err := store.Object(ref.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf-bytes"), data)
}

func TestIngestRequiresFileName(t *testing.T) {
	ing := NewIngestor(objectstore.NewMemoryStore())
	_, err := ing.Ingest(context.Background(), "d-1", "", strings.NewReader("x"))
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestIngestWrapsStorageFailure(t *testing.T) {
	store := objectstore.NewMemoryStore()
	store.FailNextPut(errors.New("bucket unreachable"))
	ing := NewIngestor(store)

	_, err := ing.Ingest(context.Background(), "d-1", "photo.png", strings.NewReader("x"))
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindStorage))
	assert.Contains(t, err.Error(), "bucket unreachable")
}

func TestIngestFailureLeavesDisputeUntouched(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "buyer-1", "b@example.com")
	env.seedUser(t, "seller-1", "s@example.com")
	txnID := env.seedTransaction(t, "buyer-1", "seller-1")
	ctx := context.Background()

	id, err := env.service.Open(ctx, OpenInput{TransactionID: txnID, OpenedBy: "buyer-1", Reason: "r"})
	require.NoError(t, err)

	store := objectstore.NewMemoryStore()
	store.FailNextPut(errors.New("down"))
	ing := NewIngestor(store)

	_, err = ing.Ingest(ctx, id, "photo.png", strings.NewReader("x"))
	require.Error(t, err)

	d, err := env.service.Get(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, d.Evidence, "a failed upload never reaches the evidence log")
}
