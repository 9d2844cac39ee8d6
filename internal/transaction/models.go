package transaction

import "escrow-desk/escrow-portal/escrow-portal-backend/internal/identity"

// Status is the transaction lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFunded    Status = "funded"
	StatusReleased  Status = "released"
	StatusCancelled Status = "cancelled"
	StatusDisputed  Status = "disputed"
)

// MilestoneStatus tracks a milestone's own funding state.
type MilestoneStatus string

const (
	MilestonePending  MilestoneStatus = "pending"
	MilestoneFunded   MilestoneStatus = "funded"
	MilestoneReleased MilestoneStatus = "released"
)

// Milestone is a partial deliverable owned exclusively by its transaction.
// Ids are assigned m1..mN in creation order and never referenced outside the
// parent document.
type Milestone struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Amount  float64         `json:"amount"`
	Status  MilestoneStatus `json:"status"`
	DueDate string          `json:"dueDate,omitempty"`
}

// Transaction is the fully hydrated escrow record returned to callers. Buyer
// and Seller are resolved profiles; a transaction is never returned with
// either missing.
type Transaction struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Amount      float64        `json:"amount"`
	Currency    string         `json:"currency"`
	Status      Status         `json:"status"`
	BuyerID     string         `json:"buyerId"`
	SellerID    string         `json:"sellerId"`
	Buyer       *identity.User `json:"buyer"`
	Seller      *identity.User `json:"seller"`
	Milestones  []Milestone    `json:"milestones"`
	CreatedAt   string         `json:"createdAt"`
	UpdatedAt   string         `json:"updatedAt"`
	FundedAt    string         `json:"fundedAt,omitempty"`
	ReleasedAt  string         `json:"releasedAt,omitempty"`
}

// MilestoneSpec is the caller-supplied milestone input at creation time.
type MilestoneSpec struct {
	Title   string  `json:"title"`
	Amount  float64 `json:"amount"`
	DueDate string  `json:"dueDate,omitempty"`
}

// CreateInput carries the agreement both parties settled on.
type CreateInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Currency    string          `json:"currency"`
	BuyerID     string          `json:"buyerId"`
	SellerID    string          `json:"sellerId"`
	Milestones  []MilestoneSpec `json:"milestones"`
}
