package handlers

import (
	"errors"
	"net/http"

	"github.com/adaptivestartup/webhooks-platform/src/middleware"
	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/adaptivestartup/webhooks-platform/src/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// VendorWebhookHandler receives identity-vendor webhooks. Signature
// verification happens in middleware before this handler runs; by the time
// HandleVendorEvent executes the body is authenticated.
type VendorWebhookHandler struct {
	identity *services.IdentityService
}

// NewVendorWebhookHandler creates a new vendor webhook handler
func NewVendorWebhookHandler(identity *services.IdentityService) *VendorWebhookHandler {
	return &VendorWebhookHandler{identity: identity}
}

// HandleVendorEvent applies one verified vendor event. Duplicates are
// acknowledged with 200 so the vendor stops re-delivering; processing errors
// return a generic 400 with details kept server-side.
func (vh *VendorWebhookHandler) HandleVendorEvent(c *gin.Context) {
	body := middleware.RawBody(c)
	if body == nil {
		// Middleware not wired; refuse rather than process an unverified body
		log.Error().Msg("Vendor event reached handler without verified body")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	duplicate, err := vh.identity.ProcessVendorEvent(c.Request.Context(), body)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnknownVendorEvent),
			errors.Is(err, models.ErrInvalidVendorEvent):
			log.Warn().Err(err).Msg("Vendor event rejected")
		default:
			log.Error().Err(err).Msg("Vendor event processing failed")
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": duplicate})
}
