package transaction

import (
	"context"
	"fmt"

	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/docstore"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/timeparse"
)

const transactionsCollection = "transactions"

// Repository handles the raw document reads and writes for transactions.
// Hydration of participants happens in the service.
type Repository struct {
	store docstore.Store
}

// NewRepository creates a Repository over the given document store.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Create inserts the transaction document and returns its id. createdAt and
// updatedAt are stamped with the store's commit time.
func (r *Repository) Create(ctx context.Context, input CreateInput, milestones []Milestone) (string, error) {
	ms := make([]any, len(milestones))
	for i, m := range milestones {
		entry := map[string]any{
			"id":     m.ID,
			"title":  m.Title,
			"amount": m.Amount,
			"status": string(m.Status),
		}
		if m.DueDate != "" {
			entry["dueDate"] = m.DueDate
		}
		ms[i] = entry
	}
	id, err := r.store.Create(ctx, transactionsCollection, map[string]any{
		"title":       input.Title,
		"description": input.Description,
		"amount":      input.Amount,
		"currency":    input.Currency,
		"status":      string(StatusPending),
		"buyerId":     input.BuyerID,
		"sellerId":    input.SellerID,
		"milestones":  ms,
		"createdAt":   docstore.ServerTimestamp,
		"updatedAt":   docstore.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("transaction: create: %w", err)
	}
	return id, nil
}

// Get loads one raw transaction, returning (nil, nil) when absent. Buyer and
// Seller are left unresolved.
func (r *Repository) Get(ctx context.Context, id string) (*Transaction, error) {
	doc, err := r.store.Get(ctx, transactionsCollection, id)
	if err != nil {
		return nil, fmt.Errorf("transaction: get %s: %w", id, err)
	}
	if doc == nil {
		return nil, nil
	}
	return decodeTransaction(doc), nil
}

// ByField returns raw transactions where field == value, newest first.
func (r *Repository) ByField(ctx context.Context, field, value string) ([]Transaction, error) {
	docs, err := r.store.Query(ctx, transactionsCollection,
		[]docstore.Filter{{Field: field, Value: value}},
		&docstore.QueryOptions{OrderBy: "createdAt", Descending: true})
	if err != nil {
		return nil, fmt.Errorf("transaction: query %s: %w", field, err)
	}
	return decodeAll(docs), nil
}

// All returns every raw transaction, newest first.
func (r *Repository) All(ctx context.Context) ([]Transaction, error) {
	docs, err := r.store.Query(ctx, transactionsCollection, nil,
		&docstore.QueryOptions{OrderBy: "createdAt", Descending: true})
	if err != nil {
		return nil, fmt.Errorf("transaction: list: %w", err)
	}
	return decodeAll(docs), nil
}

// UpdateStatus applies the status write plus its timestamp stamps.
func (r *Repository) UpdateStatus(ctx context.Context, id string, fields map[string]any) error {
	if err := r.store.Update(ctx, transactionsCollection, id, fields); err != nil {
		return fmt.Errorf("transaction: update status %s: %w", id, err)
	}
	return nil
}

func decodeAll(docs []docstore.Document) []Transaction {
	out := make([]Transaction, 0, len(docs))
	for i := range docs {
		out = append(out, *decodeTransaction(&docs[i]))
	}
	return out
}

func decodeTransaction(doc *docstore.Document) *Transaction {
	f := doc.Fields
	raw := docstore.Slice(f, "milestones")
	milestones := make([]Milestone, 0, len(raw))
	for _, v := range raw {
		m := docstore.Map(v)
		if m == nil {
			continue
		}
		milestones = append(milestones, Milestone{
			ID:      docstore.String(m, "id", ""),
			Title:   docstore.String(m, "title", ""),
			Amount:  docstore.Float(m, "amount", 0),
			Status:  MilestoneStatus(docstore.String(m, "status", string(MilestonePending))),
			DueDate: docstore.String(m, "dueDate", ""),
		})
	}
	return &Transaction{
		ID:          doc.ID,
		Title:       docstore.String(f, "title", ""),
		Description: docstore.String(f, "description", ""),
		Amount:      docstore.Float(f, "amount", 0),
		Currency:    docstore.String(f, "currency", "USD"),
		Status:      Status(docstore.String(f, "status", string(StatusPending))),
		BuyerID:     docstore.String(f, "buyerId", ""),
		SellerID:    docstore.String(f, "sellerId", ""),
		Milestones:  milestones,
		CreatedAt:   timeparse.Normalize(f["createdAt"]),
		UpdatedAt:   timeparse.Normalize(f["updatedAt"]),
		FundedAt:    timeparse.Normalize(f["fundedAt"]),
		ReleasedAt:  timeparse.Normalize(f["releasedAt"]),
	}
}
