package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"escrow-desk/escrow-portal/escrow-portal-backend/internal/identity"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/apperror"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/collate"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/docstore"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/timeparse"
)

// hydrateConcurrency caps the per-list number of in-flight profile loads.
const hydrateConcurrency = 8

// Service implements the transaction store operations: creation, hydrated
// reads, participant list views, and guarded status transitions.
type Service struct {
	repo     *Repository
	identity *identity.Service
	logger   *zap.Logger
}

// NewService creates a transaction service.
func NewService(repo *Repository, identitySvc *identity.Service, logger *zap.Logger) *Service {
	return &Service{repo: repo, identity: identitySvc, logger: logger}
}

// Create validates the agreement and writes the transaction document.
// Milestone ids are assigned m1..mN in input order.
func (s *Service) Create(ctx context.Context, input CreateInput) (string, error) {
	if strings.TrimSpace(input.BuyerID) == "" || strings.TrimSpace(input.SellerID) == "" {
		return "", apperror.New(apperror.KindValidation, "buyer and seller are required")
	}
	if input.BuyerID == input.SellerID {
		return "", apperror.New(apperror.KindValidation, "buyer and seller must differ")
	}
	if input.Amount <= 0 {
		return "", apperror.New(apperror.KindValidation, "amount must be positive")
	}
	milestones := make([]Milestone, len(input.Milestones))
	for i, spec := range input.Milestones {
		if spec.Amount <= 0 {
			return "", apperror.Newf(apperror.KindValidation, "milestone %d amount must be positive", i+1)
		}
		milestones[i] = Milestone{
			ID:      fmt.Sprintf("m%d", i+1),
			Title:   spec.Title,
			Amount:  spec.Amount,
			Status:  MilestonePending,
			DueDate: spec.DueDate,
		}
	}
	if input.Currency == "" {
		input.Currency = "USD"
	}
	id, err := s.repo.Create(ctx, input, milestones)
	if err != nil {
		return "", err
	}
	s.logger.Info("transaction created",
		zap.String("id", id),
		zap.String("buyer", input.BuyerID),
		zap.String("seller", input.SellerID))
	return id, nil
}

// Get returns the fully hydrated transaction, or (nil, nil) when the record
// is absent or either participant cannot be resolved. A transaction is never
// returned partially hydrated.
func (s *Service) Get(ctx context.Context, id string) (*Transaction, error) {
	txn, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, nil
	}
	return s.hydrate(ctx, txn)
}

func (s *Service) hydrate(ctx context.Context, txn *Transaction) (*Transaction, error) {
	buyer, err := s.identity.Resolve(ctx, txn.BuyerID)
	if err != nil {
		return nil, err
	}
	seller, err := s.identity.Resolve(ctx, txn.SellerID)
	if err != nil {
		return nil, err
	}
	if buyer == nil || seller == nil {
		return nil, nil
	}
	txn.Buyer = buyer
	txn.Seller = seller
	return txn, nil
}

// ListByParticipant returns every transaction where the user is buyer or
// seller: two partial queries, hydrated, deduplicated by id, newest first.
// Records whose participants cannot be resolved are dropped.
func (s *Service) ListByParticipant(ctx context.Context, userID string) ([]Transaction, error) {
	asBuyer, err := s.repo.ByField(ctx, "buyerId", userID)
	if err != nil {
		return nil, err
	}
	asSeller, err := s.repo.ByField(ctx, "sellerId", userID)
	if err != nil {
		return nil, err
	}
	buyerTxns, err := s.hydrateAll(ctx, asBuyer)
	if err != nil {
		return nil, err
	}
	sellerTxns, err := s.hydrateAll(ctx, asSeller)
	if err != nil {
		return nil, err
	}
	merged := collate.MergeByID(buyerTxns, sellerTxns, func(t Transaction) string { return t.ID })
	collate.SortByTimeDesc(merged, func(t Transaction) time.Time { return timeparse.Instant(t.CreatedAt) })
	return merged, nil
}

// ListAll returns every hydratable transaction, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Transaction, error) {
	raw, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	return s.hydrateAll(ctx, raw)
}

// hydrateAll resolves participants for each record concurrently, silently
// dropping records that fail to hydrate. Partial data is worse than missing
// data for a ledger view.
func (s *Service) hydrateAll(ctx context.Context, raw []Transaction) ([]Transaction, error) {
	results := make([]*Transaction, len(raw))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateConcurrency)
	for i := range raw {
		g.Go(func() error {
			txn, err := s.hydrate(gctx, &raw[i])
			if err != nil {
				s.logger.Debug("dropping unhydratable transaction",
					zap.String("id", raw[i].ID), zap.Error(err))
				return nil
			}
			results[i] = txn
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]Transaction, 0, len(raw))
	for _, txn := range results {
		if txn != nil {
			out = append(out, *txn)
		}
	}
	return out, nil
}

// SetStatus moves the transaction along the lifecycle graph. The guard lives
// here, not in callers. Entering funded stamps fundedAt; entering released
// stamps releasedAt; every transition stamps updatedAt. Concurrent status
// writes are last-writer-wins; no version token is checked.
func (s *Service) SetStatus(ctx context.Context, id string, next Status) error {
	txn, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if txn == nil {
		return apperror.Newf(apperror.KindNotFound, "transaction %s not found", id)
	}
	if !CanTransition(txn.Status, next) {
		return apperror.Newf(apperror.KindInvalidTransition,
			"transaction %s cannot move %s -> %s", id, txn.Status, next)
	}
	fields := map[string]any{
		"status":    string(next),
		"updatedAt": docstore.ServerTimestamp,
	}
	if next == StatusFunded {
		fields["fundedAt"] = timeparse.NowISO()
	}
	if next == StatusReleased {
		fields["releasedAt"] = timeparse.NowISO()
	}
	if err := s.repo.UpdateStatus(ctx, id, fields); err != nil {
		return err
	}
	s.logger.Info("transaction status changed",
		zap.String("id", id),
		zap.String("from", string(txn.Status)),
		zap.String("to", string(next)))
	return nil
}
