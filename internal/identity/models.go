package identity

// KYCStatus tracks where a user sits in the verification workflow. The core
// only models the states; adjudication itself happens elsewhere.
type KYCStatus string

const (
	KYCPending   KYCStatus = "pending"
	KYCSubmitted KYCStatus = "submitted"
	KYCApproved  KYCStatus = "approved"
	KYCRejected  KYCStatus = "rejected"
)

// Role separates ordinary participants from dispute administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a profile record. Profiles are created on signup, mutated by
// profile edits or KYC adjudication, and never deleted.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone,omitempty"`
	IsVerified bool      `json:"isVerified"`
	KYCStatus  KYCStatus `json:"kycStatus"`
	Role       Role      `json:"role"`
	CreatedAt  string    `json:"createdAt"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
}

// Principal is the identity provider's view of the authenticated caller. It
// is a one-way input: once a profile document exists, the document wins and
// the principal only fills gaps.
type Principal struct {
	ID        string
	Email     string
	Name      string
	Phone     string
	Verified  bool
	AvatarURL string
}
