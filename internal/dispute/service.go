package dispute

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"escrow-desk/escrow-portal/escrow-portal-backend/internal/identity"
	"escrow-desk/escrow-portal/escrow-portal-backend/internal/transaction"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/apperror"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/collate"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/timeparse"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/workflows"
)

const hydrateConcurrency = 8

// lifecycle is the dispute status graph: open may move straight to resolved
// (fast resolution); nothing leaves resolved.
var lifecycle = workflows.NewStateMachine(map[string][]string{
	string(StatusOpen):        {string(StatusUnderReview), string(StatusResolved)},
	string(StatusUnderReview): {string(StatusResolved)},
	string(StatusResolved):    {},
})

// Service implements the dispute store operations: opening, hydrated reads,
// the two-pass participant list, partial status updates, and the append-only
// evidence and message logs.
type Service struct {
	repo         *Repository
	transactions *transaction.Service
	identity     *identity.Service
	logger       *zap.Logger
}

// NewService creates a dispute service.
func NewService(repo *Repository, txns *transaction.Service, identitySvc *identity.Service, logger *zap.Logger) *Service {
	return &Service{repo: repo, transactions: txns, identity: identitySvc, logger: logger}
}

// Open creates a dispute against a transaction. Only the transaction's buyer
// or seller may open one. A supplied statement seeds the evidence log.
func (s *Service) Open(ctx context.Context, input OpenInput) (string, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return "", apperror.New(apperror.KindValidation, "reason is required")
	}
	txn, err := s.transactions.Get(ctx, input.TransactionID)
	if err != nil {
		return "", err
	}
	if txn == nil {
		return "", apperror.Newf(apperror.KindNotFound, "transaction %s not found", input.TransactionID)
	}
	if input.OpenedBy != txn.BuyerID && input.OpenedBy != txn.SellerID {
		return "", apperror.Newf(apperror.KindForbidden,
			"user %s is not a participant of transaction %s", input.OpenedBy, input.TransactionID)
	}
	var seed []Evidence
	if input.Statement != "" {
		seed = append(seed, Evidence{
			ID:         "statement-1",
			Type:       EvidenceStatement,
			Content:    input.Statement,
			UploadedBy: input.OpenedBy,
			UploadedAt: timeparse.NowISO(),
		})
	}
	id, err := s.repo.Create(ctx, input, seed)
	if err != nil {
		return "", err
	}
	s.logger.Info("dispute opened",
		zap.String("id", id),
		zap.String("transaction", input.TransactionID),
		zap.String("openedBy", input.OpenedBy))
	return id, nil
}

// Get returns the fully hydrated dispute, or (nil, nil) when the record is
// absent or its transaction or opener cannot be resolved. Message senders are
// resolved one by one and fall back to the opener when unresolvable.
func (s *Service) Get(ctx context.Context, id string) (*Dispute, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}
	return s.hydrate(ctx, d)
}

func (s *Service) hydrate(ctx context.Context, d *Dispute) (*Dispute, error) {
	txn, err := s.transactions.Get(ctx, d.TransactionID)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, nil
	}
	opener, err := s.identity.Resolve(ctx, d.OpenedBy)
	if err != nil {
		return nil, err
	}
	if opener == nil {
		return nil, nil
	}
	d.Transaction = txn
	d.OpenedByUser = opener
	for i := range d.Messages {
		sender, err := s.identity.Resolve(ctx, d.Messages[i].SenderID)
		if err != nil {
			return nil, err
		}
		if sender == nil {
			sender = opener
		}
		d.Messages[i].Sender = sender
	}
	return d, nil
}

// ListByUser surfaces disputes the user opened or participates in through
// the underlying transaction. The store cannot express that OR across a
// foreign key, so two passes run: a direct openedBy filter, and a full scan
// filtered in memory against the hydrated transaction's participants. The
// union is deduplicated by id and sorted newest first. Disputes that fail to
// hydrate in either pass are dropped, never surfaced as errors.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Dispute, error) {
	rawOpened, err := s.repo.ByOpener(ctx, userID)
	if err != nil {
		return nil, err
	}
	opened, err := s.hydrateAll(ctx, rawOpened)
	if err != nil {
		return nil, err
	}

	rawAll, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.hydrateAll(ctx, rawAll)
	if err != nil {
		return nil, err
	}
	participating := all[:0:0]
	for _, d := range all {
		if d.OpenedBy == userID || d.Transaction.BuyerID == userID || d.Transaction.SellerID == userID {
			participating = append(participating, d)
		}
	}

	merged := collate.MergeByID(opened, participating, func(d Dispute) string { return d.ID })
	collate.SortByTimeDesc(merged, func(d Dispute) time.Time { return timeparse.Instant(d.CreatedAt) })
	return merged, nil
}

// ListAll returns every hydratable dispute, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Dispute, error) {
	raw, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	return s.hydrateAll(ctx, raw)
}

func (s *Service) hydrateAll(ctx context.Context, raw []Dispute) ([]Dispute, error) {
	results := make([]*Dispute, len(raw))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateConcurrency)
	for i := range raw {
		g.Go(func() error {
			d, err := s.hydrate(gctx, &raw[i])
			if err != nil {
				s.logger.Debug("dropping unhydratable dispute",
					zap.String("id", raw[i].ID), zap.Error(err))
				return nil
			}
			results[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]Dispute, 0, len(raw))
	for _, d := range results {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

// Resolve applies a partial status update. The transition guard runs only
// when a status is supplied; resolvedAt is written only when the caller
// provides it. Concurrent updates are last-writer-wins.
func (s *Service) Resolve(ctx context.Context, id string, input ResolveInput) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return apperror.Newf(apperror.KindNotFound, "dispute %s not found", id)
	}
	fields := map[string]any{}
	if input.Status != nil {
		if !lifecycle.CanTransition(string(current.Status), string(*input.Status)) {
			return apperror.Newf(apperror.KindInvalidTransition,
				"dispute %s cannot move %s -> %s", id, current.Status, *input.Status)
		}
		fields["status"] = string(*input.Status)
	}
	if input.Resolution != nil {
		switch *input.Resolution {
		case ResolutionBuyerFavor, ResolutionSellerFavor, ResolutionSplit, ResolutionOther:
		default:
			return apperror.Newf(apperror.KindValidation, "unknown resolution %q", *input.Resolution)
		}
		fields["resolution"] = string(*input.Resolution)
	}
	if input.ResolutionNote != nil {
		fields["resolutionNote"] = *input.ResolutionNote
	}
	if input.ResolvedAt != nil {
		fields["resolvedAt"] = *input.ResolvedAt
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return err
	}
	if input.Status != nil {
		s.logger.Info("dispute status changed",
			zap.String("id", id),
			zap.String("from", string(current.Status)),
			zap.String("to", string(*input.Status)))
	}
	return nil
}

// AppendMessage appends one message to the dispute's log. The id folds in
// the append time so insertion order survives without a sequence counter.
func (s *Service) AppendMessage(ctx context.Context, disputeID, senderID, content string) (Message, error) {
	if strings.TrimSpace(content) == "" {
		return Message{}, apperror.New(apperror.KindValidation, "message content is required")
	}
	msg := Message{
		ID:        fmt.Sprintf("msg-%d", time.Now().UnixNano()),
		SenderID:  senderID,
		Content:   content,
		CreatedAt: timeparse.NowISO(),
	}
	if err := s.repo.AppendMessage(ctx, disputeID, msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// AppendEvidence appends one evidence entry. File evidence must carry a file
// name; entries without an id get a generated one.
func (s *Service) AppendEvidence(ctx context.Context, disputeID string, e Evidence) (Evidence, error) {
	switch e.Type {
	case EvidenceStatement, EvidenceLink, EvidenceFile:
	default:
		return Evidence{}, apperror.Newf(apperror.KindValidation, "unknown evidence type %q", e.Type)
	}
	if e.Type == EvidenceFile && e.FileName == "" {
		return Evidence{}, apperror.New(apperror.KindValidation, "file evidence requires a file name")
	}
	if strings.TrimSpace(e.Content) == "" {
		return Evidence{}, apperror.New(apperror.KindValidation, "evidence content is required")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.UploadedAt == "" {
		e.UploadedAt = timeparse.NowISO()
	}
	if err := s.repo.AppendEvidence(ctx, disputeID, e); err != nil {
		return Evidence{}, err
	}
	return e, nil
}
