package models

import "time"

// Local projections of identity-vendor state. All rows are keyed by the
// vendor-supplied identifier so re-delivered webhooks upsert instead of
// duplicating.

// User mirrors a vendor user record
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Organization mirrors a vendor organization record
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrgMembership links a user to an organization
type OrgMembership struct {
	UserID    string    `json:"user_id"`
	OrgID     string    `json:"org_id"`
	CreatedAt time.Time `json:"created_at"`
}

// InvitationState represents the invitation lifecycle:
// pending -> active (accepted) or pending -> revoked. Active and revoked are
// terminal; re-delivery of an already-applied transition is a no-op.
type InvitationState string

const (
	InvitationStatePending InvitationState = "pending"
	InvitationStateActive  InvitationState = "active"
	InvitationStateRevoked InvitationState = "revoked"
)

// Invitation mirrors a vendor invitation record
type Invitation struct {
	ID             string          `json:"id"`
	Email          string          `json:"email"`
	OrgID          string          `json:"org_id"`
	State          InvitationState `json:"state"`
	AcceptedUserID *string         `json:"accepted_user_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// BillingSubscription mirrors a vendor billing subscription record
type BillingSubscription struct {
	ID               string     `json:"id"`
	OrgID            string     `json:"org_id"`
	Plan             string     `json:"plan"`
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
