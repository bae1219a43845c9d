package domain

import "time"

type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "pending"
	ClaimVerified ClaimStatus = "verified"
	ClaimRejected ClaimStatus = "rejected"
)

func (s ClaimStatus) Valid() bool {
	return s == ClaimPending || s == ClaimVerified || s == ClaimRejected
}

// Terminal reports whether no further verification transition is allowed.
func (s ClaimStatus) Terminal() bool {
	return s == ClaimVerified || s == ClaimRejected
}

type Claim struct {
	ClaimID            string      `json:"id" db:"id" dynamodbav:"claim_id"`
	ItemID             string      `json:"item_id" db:"item_id" dynamodbav:"item_id"`
	UserID             string      `json:"user_id" db:"user_id" dynamodbav:"user_id"`
	VerificationStatus ClaimStatus `json:"verification_status" db:"verification_status" dynamodbav:"verification_status"`
	ProofDescription   string      `json:"proof_description" db:"proof_description" dynamodbav:"proof_description"`
	AdminNotes         *string     `json:"admin_notes" db:"admin_notes" dynamodbav:"admin_notes,omitempty"`
	ClaimDate          time.Time   `json:"claim_date" db:"claim_date" dynamodbav:"claim_date"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at" dynamodbav:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at" db:"updated_at" dynamodbav:"updated_at"`
}

type ClaimFilter struct {
	Status ClaimStatus
	UserID string
	ItemID string
	PageRequest
}

type SubmitClaimRequest struct {
	ItemID           string `json:"item_id" validate:"required"`
	ProofDescription string `json:"proof_description" validate:"max=5000"`
}

// UpdateClaimRequest carries only the fields present in the request body.
type UpdateClaimRequest struct {
	VerificationStatus *ClaimStatus `json:"verification_status"`
	ProofDescription   *string      `json:"proof_description" validate:"omitempty,max=5000"`
	AdminNotes         *string      `json:"admin_notes" validate:"omitempty,max=5000"`

	// Unknown holds body keys that match no field above.
	Unknown []string `json:"-"`
}
