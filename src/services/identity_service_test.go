package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/adaptivestartup/webhooks-platform/src/database"
	"github.com/adaptivestartup/webhooks-platform/src/models"
)

var vendorEventSeq int

// vendorEventBody builds a raw vendor webhook body with a unique event id
func vendorEventBody(t *testing.T, event string, data interface{}) []byte {
	t.Helper()
	vendorEventSeq++
	body, err := json.Marshal(map[string]interface{}{
		"id":    fmt.Sprintf("evt_%s_%d", t.Name(), vendorEventSeq),
		"event": event,
		"data":  data,
	})
	if err != nil {
		t.Fatalf("failed to build event body: %v", err)
	}
	return body
}

func TestProcessVendorEvent_UserLifecycle(t *testing.T) {
	tdb := database.NewTestDB(t)
	svc := NewIdentityService(tdb.Pool, nil)
	ctx := context.Background()

	user := map[string]string{"id": "user_1", "email": "ada@example.com", "first_name": "Ada", "last_name": "Lovelace"}
	if _, err := svc.ProcessVendorEvent(ctx, vendorEventBody(t, models.VendorUserCreated, user)); err != nil {
		t.Fatalf("user.created failed: %v", err)
	}

	var email string
	if err := tdb.Pool.QueryRow(ctx, "SELECT email FROM users WHERE id = 'user_1'").Scan(&email); err != nil {
		t.Fatalf("user row missing: %v", err)
	}
	if email != "ada@example.com" {
		t.Errorf("email = %q", email)
	}

	user["email"] = "ada@newdomain.com"
	if _, err := svc.ProcessVendorEvent(ctx, vendorEventBody(t, models.VendorUserUpdated, user)); err != nil {
		t.Fatalf("user.updated failed: %v", err)
	}
	if err := tdb.Pool.QueryRow(ctx, "SELECT email FROM users WHERE id = 'user_1'").Scan(&email); err != nil {
		t.Fatalf("user row missing after update: %v", err)
	}
	if email != "ada@newdomain.com" {
		t.Errorf("email after update = %q", email)
	}

	if _, err := svc.ProcessVendorEvent(ctx, vendorEventBody(t, models.VendorUserDeleted, user)); err != nil {
		t.Fatalf("user.deleted failed: %v", err)
	}
	var count int
	tdb.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE id = 'user_1'").Scan(&count)
	if count != 0 {
		t.Error("user row should be gone after user.deleted")
	}
}

func TestProcessVendorEvent_DuplicateEventID(t *testing.T) {
	tdb := database.NewTestDB(t)
	svc := NewIdentityService(tdb.Pool, nil)
	ctx := context.Background()

	body := vendorEventBody(t, models.VendorUserCreated,
		map[string]string{"id": "user_dup", "email": "first@example.com"})

	duplicate, err := svc.ProcessVendorEvent(ctx, body)
	if err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if duplicate {
		t.Error("first delivery should not be a duplicate")
	}

	// Re-deliver the identical body: ledger skips the apply entirely
	duplicate, err = svc.ProcessVendorEvent(ctx, body)
	if err != nil {
		t.Fatalf("re-delivery failed: %v", err)
	}
	if !duplicate {
		t.Error("re-delivery should be reported as duplicate")
	}

	var count int
	tdb.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	if count != 1 {
		t.Errorf("Expected exactly 1 user row, got %d", count)
	}
}

func TestProcessVendorEvent_Membership(t *testing.T) {
	tdb := database.NewTestDB(t)
	svc := NewIdentityService(tdb.Pool, nil)
	ctx := context.Background()

	m := map[string]string{"id": "mem_1", "user_id": "user_m", "organization_id": "org_m"}
	if _, err := svc.ProcessVendorEvent(ctx, vendorEventBody(t, models.VendorMembershipCreated, m)); err != nil {
		t.Fatalf("membership.created failed: %v", err)
	}

	var count int
	tdb.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM org_memberships WHERE user_id = 'user_m' AND org_id = 'org_m'").Scan(&count)
	if count != 1 {
		t.Fatal("membership row missing")
	}
	// The organization projection is created on demand
	tdb.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM organizations WHERE id = 'org_m'").Scan(&count)
	if count != 1 {
		t.Error("organization row should be created on demand")
	}

	if _, err := svc.ProcessVendorEvent(ctx, vendorEventBody(t, models.VendorMembershipDeleted, m)); err != nil {
		t.Fatalf("membership.deleted failed: %v", err)
	}
	tdb.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM org_memberships WHERE user_id = 'user_m'").Scan(&count)
	if count != 0 {
		t.Error("membership row should be gone")
	}
}

func TestProcessVendorEvent_InvitationAccept(t *testing.T) {
	tdb := database.NewTestDB(t)
	svc := NewIdentityService(tdb.Pool, nil)
	ctx := context.Background()

	inv := map[string]string{"id": "inv_1", "email": "invitee@example.com", "organization_id": "org_i"}
	if _, err := svc.ProcessVendorEvent(ctx, vendorEventBody(t, models.VendorInvitationCreated, inv)); err != nil {
		t.Fatalf("invitation.created failed: %v", err)
	}

	var state string
	tdb.Pool.QueryRow(ctx, "SELECT state FROM invitations WHERE id = 'inv_1'").Scan(&state)
	if state != "pending" {
		t.Fatalf("state after create = %q", state)
	}

	inv["accepted_user_id"] = "user_i"
	if _, err := svc.ProcessVendorEvent(ctx, vendorEventBody(t, models.VendorInvitationAccepted, inv)); err != nil {
		t.Fatalf("invitation.accepted failed: %v", err)
	}

	tdb.Pool.QueryRow(ctx, "SELECT state FROM invitations WHERE id = 'inv_1'").Scan(&state)
	if state != "active" {
		t.Errorf("state after accept = %q", state)
	}

	var count int
	tdb.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM org_memberships WHERE user_id = 'user_i' AND org_id = 'org_i'").Scan(&count)
	if count != 1 {
		t.Error("accept should materialize the membership link")
	}
	tdb.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE id = 'user_i'").Scan(&count)
	if count != 1 {
		t.Error("accept should materialize the accepting user")
	}

	// Active is terminal: a late revoke is absorbed
	if _, err := svc.ProcessVendorEvent(ctx, vendorEventBody(t, models.VendorInvitationRevoked, inv)); err != nil {
		t.Fatalf("late revoke errored: %v", err)
	}
	tdb.Pool.QueryRow(ctx, "SELECT state FROM invitations WHERE id = 'inv_1'").Scan(&state)
	if state != "active" {
		t.Errorf("late revoke must not change terminal state, got %q", state)
	}
}

func TestProcessVendorEvent_InvitationRevoke(t *testing.T) {
	tdb := database.NewTestDB(t)
	svc := NewIdentityService(tdb.Pool, nil)
	ctx := context.Background()

	inv := map[string]string{"id": "inv_2", "email": "other@example.com", "organization_id": "org_r"}
	if _, err := svc.ProcessVendorEvent(ctx, vendorEventBody(t, models.VendorInvitationCreated, inv)); err != nil {
		t.Fatalf("invitation.created failed: %v", err)
	}
	if _, err := svc.ProcessVendorEvent(ctx, vendorEventBody(t, models.VendorInvitationRevoked, inv)); err != nil {
		t.Fatalf("invitation.revoked failed: %v", err)
	}

	var state string
	tdb.Pool.QueryRow(ctx, "SELECT state FROM invitations WHERE id = 'inv_2'").Scan(&state)
	if state != "revoked" {
		t.Fatalf("state after revoke = %q", state)
	}

	// Revoked is terminal: a late accept is absorbed
	inv["accepted_user_id"] = "user_r"
	if _, err := svc.ProcessVendorEvent(ctx, vendorEventBody(t, models.VendorInvitationAccepted, inv)); err != nil {
		t.Fatalf("late accept errored: %v", err)
	}
	tdb.Pool.QueryRow(ctx, "SELECT state FROM invitations WHERE id = 'inv_2'").Scan(&state)
	if state != "revoked" {
		t.Errorf("late accept must not change terminal state, got %q", state)
	}

	var count int
	tdb.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM org_memberships WHERE user_id = 'user_r'").Scan(&count)
	if count != 0 {
		t.Error("absorbed accept must not create a membership")
	}
}

func TestProcessVendorEvent_InvitationDeleteRetractsMembership(t *testing.T) {
	tdb := database.NewTestDB(t)
	svc := NewIdentityService(tdb.Pool, nil)
	ctx := context.Background()

	inv := map[string]string{"id": "inv_3", "email": "gone@example.com", "organization_id": "org_d"}
	svc.ProcessVendorEvent(ctx, vendorEventBody(t, models.VendorInvitationCreated, inv))
	inv["accepted_user_id"] = "user_d"
	svc.ProcessVendorEvent(ctx, vendorEventBody(t, models.VendorInvitationAccepted, inv))

	if _, err := svc.ProcessVendorEvent(ctx, vendorEventBody(t, models.VendorInvitationDeleted, inv)); err != nil {
		t.Fatalf("invitation.deleted failed: %v", err)
	}

	var count int
	tdb.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM invitations WHERE id = 'inv_3'").Scan(&count)
	if count != 0 {
		t.Error("invitation row should be gone")
	}
	tdb.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM org_memberships WHERE user_id = 'user_d'").Scan(&count)
	if count != 0 {
		t.Error("membership materialized by the invitation should be retracted")
	}
}

func TestProcessVendorEvent_Billing(t *testing.T) {
	tdb := database.NewTestDB(t)
	svc := NewIdentityService(tdb.Pool, nil)
	ctx := context.Background()

	sub := map[string]string{"id": "sub_1", "organization_id": "org_b", "plan": "growth", "status": "active"}
	if _, err := svc.ProcessVendorEvent(ctx, vendorEventBody(t, models.VendorBillingCreated, sub)); err != nil {
		t.Fatalf("subscription.created failed: %v", err)
	}

	var status string
	tdb.Pool.QueryRow(ctx, "SELECT status FROM billing_subscriptions WHERE id = 'sub_1'").Scan(&status)
	if status != "active" {
		t.Errorf("status = %q", status)
	}

	if _, err := svc.ProcessVendorEvent(ctx, vendorEventBody(t, models.VendorBillingCanceled, sub)); err != nil {
		t.Fatalf("subscription.canceled failed: %v", err)
	}
	tdb.Pool.QueryRow(ctx, "SELECT status FROM billing_subscriptions WHERE id = 'sub_1'").Scan(&status)
	if status != "canceled" {
		t.Errorf("status after cancel = %q", status)
	}
}

func TestProcessVendorEvent_RejectsBadInput(t *testing.T) {
	tdb := database.NewTestDB(t)
	svc := NewIdentityService(tdb.Pool, nil)
	ctx := context.Background()

	if _, err := svc.ProcessVendorEvent(ctx, []byte("not json")); !errors.Is(err, models.ErrInvalidVendorEvent) {
		t.Errorf("Expected ErrInvalidVendorEvent for garbage body, got %v", err)
	}

	unknown := vendorEventBody(t, "user.teleported", map[string]string{"id": "user_x"})
	if _, err := svc.ProcessVendorEvent(ctx, unknown); !errors.Is(err, models.ErrUnknownVendorEvent) {
		t.Errorf("Expected ErrUnknownVendorEvent, got %v", err)
	}

	var count int
	tdb.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM vendor_events").Scan(&count)
	if count != 0 {
		t.Error("Rejected events must not be ledgered")
	}
}
