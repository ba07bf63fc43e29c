package services

import (
	"context"
	"fmt"
	"time"

	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// IdentityService applies verified vendor webhook events to the local identity
// projections. Every event runs inside one transaction with a processed-event
// ledger insert, so a re-delivered webhook is skipped structurally instead of
// relying on each applier being careful.
type IdentityService struct {
	pool      *pgxpool.Pool
	analytics *AnalyticsService
}

// NewIdentityService creates a new identity service. analytics may be nil.
func NewIdentityService(pool *pgxpool.Pool, analytics *AnalyticsService) *IdentityService {
	return &IdentityService{pool: pool, analytics: analytics}
}

// ProcessVendorEvent parses, deduplicates, and applies one raw vendor webhook
// body. Returns duplicate=true when the event id was already processed (the
// body is not re-applied). Parse failures surface the models sentinel errors;
// apply failures are wrapped in ErrWebhookProcessingFailed.
func (is *IdentityService) ProcessVendorEvent(ctx context.Context, raw []byte) (duplicate bool, err error) {
	ev, err := models.ParseVendorEvent(raw)
	if err != nil {
		return false, err
	}

	tx, err := is.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrWebhookProcessingFailed, err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		INSERT INTO vendor_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`, ev.ID, ev.Type)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrWebhookProcessingFailed, err)
	}
	if result.RowsAffected() == 0 {
		log.Info().Str("event_id", ev.ID).Str("event_type", ev.Type).Msg("Duplicate vendor event skipped")
		if is.analytics != nil {
			is.analytics.TrackVendorEventProcessed(ctx, ev.Type, true)
		}
		return true, nil
	}

	if err := is.apply(ctx, tx, ev); err != nil {
		log.Error().Err(err).
			Str("event_id", ev.ID).
			Str("event_type", ev.Type).
			Msg("Failed to apply vendor event")
		return false, fmt.Errorf("%w: %v", ErrWebhookProcessingFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("%w: %v", ErrWebhookProcessingFailed, err)
	}

	if is.analytics != nil {
		is.analytics.TrackVendorEventProcessed(ctx, ev.Type, false)
	}
	log.Info().Str("event_id", ev.ID).Str("event_type", ev.Type).Msg("Vendor event applied")
	return false, nil
}

// DeleteVendorEventsBefore purges ledger rows older than cutoff. The vendor
// does not re-deliver events this old, so dropping them keeps the ledger
// bounded without weakening replay safety.
func (is *IdentityService) DeleteVendorEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := is.pool.Exec(ctx, "DELETE FROM vendor_events WHERE received_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge vendor events: %w", err)
	}
	return result.RowsAffected(), nil
}

func (is *IdentityService) apply(ctx context.Context, tx pgx.Tx, ev *models.VendorEvent) error {
	switch ev.Type {
	case models.VendorUserCreated, models.VendorUserUpdated:
		return upsertUser(ctx, tx, ev.User.ID, ev.User.Email, ev.User.FirstName, ev.User.LastName)

	case models.VendorUserDeleted:
		if _, err := tx.Exec(ctx, "DELETE FROM org_memberships WHERE user_id = $1", ev.User.ID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, "DELETE FROM users WHERE id = $1", ev.User.ID)
		return err

	case models.VendorMembershipCreated:
		if err := ensureOrganization(ctx, tx, ev.Membership.OrgID); err != nil {
			return err
		}
		return upsertMembership(ctx, tx, ev.Membership.UserID, ev.Membership.OrgID)

	case models.VendorMembershipDeleted:
		_, err := tx.Exec(ctx, "DELETE FROM org_memberships WHERE user_id = $1 AND org_id = $2",
			ev.Membership.UserID, ev.Membership.OrgID)
		return err

	case models.VendorInvitationCreated:
		if err := ensureOrganization(ctx, tx, ev.Invitation.OrgID); err != nil {
			return err
		}
		// Existing rows win: a created event arriving after accept/revoke
		// must not reset a terminal state
		_, err := tx.Exec(ctx, `
			INSERT INTO invitations (id, email, org_id, state)
			VALUES ($1, $2, $3, 'pending')
			ON CONFLICT (id) DO NOTHING
		`, ev.Invitation.ID, ev.Invitation.Email, ev.Invitation.OrgID)
		return err

	case models.VendorInvitationAccepted:
		return is.acceptInvitation(ctx, tx, ev.Invitation)

	case models.VendorInvitationRevoked:
		return is.revokeInvitation(ctx, tx, ev.Invitation)

	case models.VendorInvitationDeleted:
		return is.deleteInvitation(ctx, tx, ev.Invitation)

	case models.VendorBillingCreated, models.VendorBillingUpdated, models.VendorBillingCanceled:
		status := ev.Billing.Status
		if ev.Type == models.VendorBillingCanceled {
			status = "canceled"
		}
		if err := ensureOrganization(ctx, tx, ev.Billing.OrgID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO billing_subscriptions (id, org_id, plan, status)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				org_id = EXCLUDED.org_id,
				plan = EXCLUDED.plan,
				status = EXCLUDED.status,
				updated_at = NOW()
		`, ev.Billing.ID, ev.Billing.OrgID, ev.Billing.Plan, status)
		return err

	default:
		// ParseVendorEvent already rejected unknown discriminators
		return fmt.Errorf("unhandled vendor event type %q", ev.Type)
	}
}

// acceptInvitation moves pending -> active and materializes the accepting
// user's membership. Terminal states absorb the event silently.
func (is *IdentityService) acceptInvitation(ctx context.Context, tx pgx.Tx, inv *models.InvitationPayload) error {
	result, err := tx.Exec(ctx, `
		UPDATE invitations
		SET state = 'active', accepted_user_id = $2, updated_at = NOW()
		WHERE id = $1 AND state = 'pending'
	`, inv.ID, inv.AcceptedUserID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		log.Warn().Str("invitation_id", inv.ID).Msg("Accept for invitation not in pending state, ignored")
		return nil
	}

	if err := ensureOrganization(ctx, tx, inv.OrgID); err != nil {
		return err
	}
	if err := ensureUser(ctx, tx, inv.AcceptedUserID, inv.Email); err != nil {
		return err
	}
	return upsertMembership(ctx, tx, inv.AcceptedUserID, inv.OrgID)
}

// revokeInvitation moves pending -> revoked and retracts any speculative
// membership link created for the invited user.
func (is *IdentityService) revokeInvitation(ctx context.Context, tx pgx.Tx, inv *models.InvitationPayload) error {
	result, err := tx.Exec(ctx, `
		UPDATE invitations
		SET state = 'revoked', updated_at = NOW()
		WHERE id = $1 AND state = 'pending'
	`, inv.ID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		log.Warn().Str("invitation_id", inv.ID).Msg("Revoke for invitation not in pending state, ignored")
		return nil
	}
	return retractInvitedMembership(ctx, tx, inv.ID)
}

// deleteInvitation removes the invitation row outright, retracting any
// membership it materialized.
func (is *IdentityService) deleteInvitation(ctx context.Context, tx pgx.Tx, inv *models.InvitationPayload) error {
	if err := retractInvitedMembership(ctx, tx, inv.ID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, "DELETE FROM invitations WHERE id = $1", inv.ID)
	return err
}

func retractInvitedMembership(ctx context.Context, tx pgx.Tx, invitationID string) error {
	_, err := tx.Exec(ctx, `
		DELETE FROM org_memberships
		WHERE (user_id, org_id) IN (
			SELECT accepted_user_id, org_id FROM invitations
			WHERE id = $1 AND accepted_user_id IS NOT NULL
		)
	`, invitationID)
	return err
}

func upsertUser(ctx context.Context, tx pgx.Tx, id, email, firstName, lastName string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users (id, email, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			updated_at = NOW()
	`, id, email, firstName, lastName)
	return err
}

// ensureUser creates a minimal user row if none exists. Unlike upsertUser it
// never overwrites fields a richer user.created event already set.
func ensureUser(ctx context.Context, tx pgx.Tx, id, email string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users (id, email)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, id, email)
	return err
}

func upsertMembership(ctx context.Context, tx pgx.Tx, userID, orgID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO org_memberships (user_id, org_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, org_id) DO NOTHING
	`, userID, orgID)
	return err
}

func ensureOrganization(ctx context.Context, tx pgx.Tx, orgID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO organizations (id)
		VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`, orgID)
	return err
}
