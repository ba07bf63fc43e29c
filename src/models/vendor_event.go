package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Vendor webhook event discriminators
const (
	VendorUserCreated        = "user.created"
	VendorUserUpdated        = "user.updated"
	VendorUserDeleted        = "user.deleted"
	VendorMembershipCreated  = "organization_membership.created"
	VendorMembershipDeleted  = "organization_membership.deleted"
	VendorInvitationCreated  = "invitation.created"
	VendorInvitationAccepted = "invitation.accepted"
	VendorInvitationRevoked  = "invitation.revoked"
	VendorInvitationDeleted  = "invitation.deleted"
	VendorBillingCreated     = "subscription.created"
	VendorBillingUpdated     = "subscription.updated"
	VendorBillingCanceled    = "subscription.canceled"
)

var (
	// ErrUnknownVendorEvent indicates an event discriminator outside the supported set
	ErrUnknownVendorEvent = errors.New("unknown vendor event type")
	// ErrInvalidVendorEvent indicates a payload missing required fields
	ErrInvalidVendorEvent = errors.New("invalid vendor event payload")
)

// UserPayload is the data object of user.* events
type UserPayload struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// MembershipPayload is the data object of organization_membership.* events
type MembershipPayload struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	OrgID  string `json:"organization_id"`
}

// InvitationPayload is the data object of invitation.* events
type InvitationPayload struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	OrgID          string `json:"organization_id"`
	AcceptedUserID string `json:"accepted_user_id,omitempty"`
}

// BillingPayload is the data object of subscription.* events
type BillingPayload struct {
	ID               string `json:"id"`
	OrgID            string `json:"organization_id"`
	Plan             string `json:"plan"`
	Status           string `json:"status"`
	CurrentPeriodEnd string `json:"current_period_end,omitempty"`
}

// VendorEvent is a parsed, validated vendor webhook event. Exactly one of the
// payload pointers is non-nil, selected by Type. Downstream code switches on
// Type instead of optional-chaining into raw JSON.
type VendorEvent struct {
	ID   string
	Type string

	User       *UserPayload
	Membership *MembershipPayload
	Invitation *InvitationPayload
	Billing    *BillingPayload
}

type vendorEnvelope struct {
	ID    string          `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ParseVendorEvent decodes and validates a raw vendor webhook body into a
// typed event. Unknown discriminators and structurally invalid payloads are
// rejected here so appliers never see loosely-typed JSON.
func ParseVendorEvent(raw []byte) (*VendorEvent, error) {
	var env vendorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVendorEvent, err)
	}
	if env.ID == "" {
		return nil, fmt.Errorf("%w: missing event id", ErrInvalidVendorEvent)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("%w: missing event discriminator", ErrInvalidVendorEvent)
	}

	ev := &VendorEvent{ID: env.ID, Type: env.Event}

	switch env.Event {
	case VendorUserCreated, VendorUserUpdated, VendorUserDeleted:
		var p UserPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidVendorEvent, err)
		}
		if p.ID == "" {
			return nil, fmt.Errorf("%w: user payload missing id", ErrInvalidVendorEvent)
		}
		ev.User = &p

	case VendorMembershipCreated, VendorMembershipDeleted:
		var p MembershipPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidVendorEvent, err)
		}
		if p.UserID == "" || p.OrgID == "" {
			return nil, fmt.Errorf("%w: membership payload missing user or organization id", ErrInvalidVendorEvent)
		}
		ev.Membership = &p

	case VendorInvitationCreated, VendorInvitationAccepted, VendorInvitationRevoked, VendorInvitationDeleted:
		var p InvitationPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidVendorEvent, err)
		}
		if p.ID == "" {
			return nil, fmt.Errorf("%w: invitation payload missing id", ErrInvalidVendorEvent)
		}
		// Create and accept materialize organization and membership rows, so
		// they need the organization id; revoke and delete key off the
		// invitation alone.
		if (env.Event == VendorInvitationCreated || env.Event == VendorInvitationAccepted) && p.OrgID == "" {
			return nil, fmt.Errorf("%w: invitation payload missing organization id", ErrInvalidVendorEvent)
		}
		if env.Event == VendorInvitationAccepted && p.AcceptedUserID == "" {
			return nil, fmt.Errorf("%w: accepted invitation missing accepted_user_id", ErrInvalidVendorEvent)
		}
		ev.Invitation = &p

	case VendorBillingCreated, VendorBillingUpdated, VendorBillingCanceled:
		var p BillingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidVendorEvent, err)
		}
		if p.ID == "" {
			return nil, fmt.Errorf("%w: billing payload missing id", ErrInvalidVendorEvent)
		}
		ev.Billing = &p

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVendorEvent, env.Event)
	}

	return ev, nil
}
