package dispute

import (
	"escrow-desk/escrow-portal/escrow-portal-backend/internal/identity"
	"escrow-desk/escrow-portal/escrow-portal-backend/internal/transaction"
)

// Status is the dispute lifecycle state.
type Status string

const (
	StatusOpen        Status = "open"
	StatusUnderReview Status = "under_review"
	StatusResolved    Status = "resolved"
)

// Resolution records how a resolved dispute was decided.
type Resolution string

const (
	ResolutionBuyerFavor  Resolution = "buyer_favor"
	ResolutionSellerFavor Resolution = "seller_favor"
	ResolutionSplit       Resolution = "split"
	ResolutionOther       Resolution = "other"
)

// EvidenceType classifies an evidence entry.
type EvidenceType string

const (
	EvidenceStatement EvidenceType = "statement"
	EvidenceLink      EvidenceType = "link"
	EvidenceFile      EvidenceType = "file"
)

// Evidence is an immutable artifact appended to a dispute. FileName is
// required iff Type is file.
type Evidence struct {
	ID         string       `json:"id"`
	Type       EvidenceType `json:"type"`
	Content    string       `json:"content"`
	FileName   string       `json:"fileName,omitempty"`
	UploadedBy string       `json:"uploadedBy"`
	UploadedAt string       `json:"uploadedAt"`
}

// Message is one entry of the dispute's append-only message log. Sender is
// hydrated per message and may differ from the dispute opener.
type Message struct {
	ID        string         `json:"id"`
	SenderID  string         `json:"senderId"`
	Sender    *identity.User `json:"sender"`
	Content   string         `json:"content"`
	CreatedAt string         `json:"createdAt"`
}

// Dispute is the fully hydrated dispute view. Transaction and OpenedByUser
// are resolved references; a dispute is never returned with either missing.
type Dispute struct {
	ID             string                   `json:"id"`
	TransactionID  string                   `json:"transactionId"`
	Transaction    *transaction.Transaction `json:"transaction"`
	OpenedBy       string                   `json:"openedBy"`
	OpenedByUser   *identity.User           `json:"openedByUser"`
	Status         Status                   `json:"status"`
	Reason         string                   `json:"reason"`
	Resolution     Resolution               `json:"resolution,omitempty"`
	ResolutionNote string                   `json:"resolutionNote,omitempty"`
	Evidence       []Evidence               `json:"evidence"`
	Messages       []Message                `json:"messages"`
	CreatedAt      string                   `json:"createdAt"`
	ResolvedAt     string                   `json:"resolvedAt,omitempty"`
}

// OpenInput carries the fields needed to open a dispute. Statement, when
// present, seeds the evidence log with a statement entry.
type OpenInput struct {
	TransactionID string `json:"transactionId"`
	OpenedBy      string `json:"openedBy"`
	Reason        string `json:"reason"`
	Statement     string `json:"statement,omitempty"`
}

// ResolveInput is a partial status update. Nil fields are left untouched;
// ResolvedAt is only written when the caller supplies it.
type ResolveInput struct {
	Status         *Status     `json:"status,omitempty"`
	Resolution     *Resolution `json:"resolution,omitempty"`
	ResolutionNote *string     `json:"resolutionNote,omitempty"`
	ResolvedAt     *string     `json:"resolvedAt,omitempty"`
}
