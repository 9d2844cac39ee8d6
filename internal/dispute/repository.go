package dispute

import (
	"context"
	"errors"
	"fmt"

	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/apperror"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/docstore"
	"escrow-desk/escrow-portal/escrow-portal-backend/pkg/timeparse"
)

const disputesCollection = "disputes"

// Repository handles the raw document reads and writes for disputes. The
// evidence and message logs are append-only: writes go through the store's
// array-union primitive, never a read-modify-write of the whole array.
type Repository struct {
	store docstore.Store
}

// NewRepository creates a Repository over the given document store.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Create inserts the dispute document and returns its id.
func (r *Repository) Create(ctx context.Context, input OpenInput, seed []Evidence) (string, error) {
	evidence := make([]any, len(seed))
	for i, e := range seed {
		evidence[i] = encodeEvidence(e)
	}
	id, err := r.store.Create(ctx, disputesCollection, map[string]any{
		"transactionId":  input.TransactionID,
		"openedBy":       input.OpenedBy,
		"status":         string(StatusOpen),
		"reason":         input.Reason,
		"resolution":     nil,
		"resolutionNote": nil,
		"evidence":       evidence,
		"messages":       []any{},
		"createdAt":      docstore.ServerTimestamp,
		"resolvedAt":     nil,
	})
	if err != nil {
		return "", fmt.Errorf("dispute: create: %w", err)
	}
	return id, nil
}

// Get loads one raw dispute, returning (nil, nil) when absent. Transaction,
// opener, and message senders are left unresolved.
func (r *Repository) Get(ctx context.Context, id string) (*Dispute, error) {
	doc, err := r.store.Get(ctx, disputesCollection, id)
	if err != nil {
		return nil, fmt.Errorf("dispute: get %s: %w", id, err)
	}
	if doc == nil {
		return nil, nil
	}
	return decodeDispute(doc), nil
}

// ByOpener returns raw disputes opened by the user, newest first.
func (r *Repository) ByOpener(ctx context.Context, userID string) ([]Dispute, error) {
	docs, err := r.store.Query(ctx, disputesCollection,
		[]docstore.Filter{{Field: "openedBy", Value: userID}},
		&docstore.QueryOptions{OrderBy: "createdAt", Descending: true})
	if err != nil {
		return nil, fmt.Errorf("dispute: query opener: %w", err)
	}
	return decodeAll(docs), nil
}

// All returns every raw dispute, newest first.
func (r *Repository) All(ctx context.Context) ([]Dispute, error) {
	docs, err := r.store.Query(ctx, disputesCollection, nil,
		&docstore.QueryOptions{OrderBy: "createdAt", Descending: true})
	if err != nil {
		return nil, fmt.Errorf("dispute: list: %w", err)
	}
	return decodeAll(docs), nil
}

// Update applies a partial write to the dispute document.
func (r *Repository) Update(ctx context.Context, id string, fields map[string]any) error {
	if err := r.store.Update(ctx, disputesCollection, id, fields); err != nil {
		return wrapNotFound(id, "update", err)
	}
	return nil
}

// AppendMessage appends to the message log via array union, so concurrent
// appends from other callers are never clobbered.
func (r *Repository) AppendMessage(ctx context.Context, disputeID string, msg Message) error {
	entry := map[string]any{
		"id":        msg.ID,
		"senderId":  msg.SenderID,
		"content":   msg.Content,
		"createdAt": msg.CreatedAt,
	}
	if err := r.store.ArrayUnion(ctx, disputesCollection, disputeID, "messages", entry); err != nil {
		return wrapNotFound(disputeID, "append message", err)
	}
	return nil
}

// AppendEvidence appends to the evidence log via array union.
func (r *Repository) AppendEvidence(ctx context.Context, disputeID string, e Evidence) error {
	if err := r.store.ArrayUnion(ctx, disputesCollection, disputeID, "evidence", encodeEvidence(e)); err != nil {
		return wrapNotFound(disputeID, "append evidence", err)
	}
	return nil
}

// wrapNotFound surfaces a missing-document write as a not-found kind so the
// handlers answer 404 rather than 500.
func wrapNotFound(id, action string, err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return apperror.Newf(apperror.KindNotFound, "dispute %s not found", id)
	}
	return fmt.Errorf("dispute: %s %s: %w", action, id, err)
}

func encodeEvidence(e Evidence) map[string]any {
	entry := map[string]any{
		"id":         e.ID,
		"type":       string(e.Type),
		"content":    e.Content,
		"uploadedBy": e.UploadedBy,
		"uploadedAt": e.UploadedAt,
	}
	if e.FileName != "" {
		entry["fileName"] = e.FileName
	}
	return entry
}

func decodeAll(docs []docstore.Document) []Dispute {
	out := make([]Dispute, 0, len(docs))
	for i := range docs {
		out = append(out, *decodeDispute(&docs[i]))
	}
	return out
}

func decodeDispute(doc *docstore.Document) *Dispute {
	f := doc.Fields
	rawEvidence := docstore.Slice(f, "evidence")
	evidence := make([]Evidence, 0, len(rawEvidence))
	for _, v := range rawEvidence {
		m := docstore.Map(v)
		if m == nil {
			continue
		}
		evidence = append(evidence, Evidence{
			ID:         docstore.String(m, "id", ""),
			Type:       EvidenceType(docstore.String(m, "type", string(EvidenceStatement))),
			Content:    docstore.String(m, "content", ""),
			FileName:   docstore.String(m, "fileName", ""),
			UploadedBy: docstore.String(m, "uploadedBy", ""),
			UploadedAt: docstore.String(m, "uploadedAt", ""),
		})
	}
	rawMessages := docstore.Slice(f, "messages")
	messages := make([]Message, 0, len(rawMessages))
	for _, v := range rawMessages {
		m := docstore.Map(v)
		if m == nil {
			continue
		}
		messages = append(messages, Message{
			ID:        docstore.String(m, "id", ""),
			SenderID:  docstore.String(m, "senderId", ""),
			Content:   docstore.String(m, "content", ""),
			CreatedAt: docstore.String(m, "createdAt", ""),
		})
	}
	return &Dispute{
		ID:             doc.ID,
		TransactionID:  docstore.String(f, "transactionId", ""),
		OpenedBy:       docstore.String(f, "openedBy", ""),
		Status:         Status(docstore.String(f, "status", string(StatusOpen))),
		Reason:         docstore.String(f, "reason", ""),
		Resolution:     Resolution(docstore.String(f, "resolution", "")),
		ResolutionNote: docstore.String(f, "resolutionNote", ""),
		Evidence:       evidence,
		Messages:       messages,
		CreatedAt:      timeparse.Normalize(f["createdAt"]),
		ResolvedAt:     timeparse.Normalize(f["resolvedAt"]),
	}
}
