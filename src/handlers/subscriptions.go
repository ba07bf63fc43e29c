package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/adaptivestartup/webhooks-platform/src/middleware"
	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/adaptivestartup/webhooks-platform/src/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SubscriptionHandler handles the tenant-facing webhook subscription API
type SubscriptionHandler struct {
	subscriptions *services.SubscriptionService
	analytics     *services.AnalyticsService
}

// NewSubscriptionHandler creates a new subscription handler. analytics may be nil.
func NewSubscriptionHandler(subs *services.SubscriptionService, analytics *services.AnalyticsService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subs, analytics: analytics}
}

// CreateSubscriptionRequest is the request body for registering a webhook
type CreateSubscriptionRequest struct {
	URL        string   `json:"url" binding:"required"`
	EventTypes []string `json:"event_types" binding:"required"`
}

// UpdateSubscriptionRequest is the request body for modifying a webhook
type UpdateSubscriptionRequest struct {
	URL        *string  `json:"url"`
	EventTypes []string `json:"event_types"`
	Active     *bool    `json:"active"`
}

// subscriptionResponse is the API projection of a subscription. The vault
// reference stays internal; nothing secret-shaped ever leaves this surface.
type subscriptionResponse struct {
	ID         uuid.UUID `json:"id"`
	URL        string    `json:"url"`
	EventTypes []string  `json:"event_types"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toSubscriptionResponse(sub *models.WebhookSubscription) subscriptionResponse {
	return subscriptionResponse{
		ID:         sub.ID,
		URL:        sub.URL,
		EventTypes: sub.EventTypes,
		Active:     sub.Active,
		CreatedAt:  sub.CreatedAt,
		UpdatedAt:  sub.UpdatedAt,
	}
}

// HandleCreate registers a webhook endpoint. The response carries the signing
// secret exactly once; it is not retrievable afterwards.
func (sh *SubscriptionHandler) HandleCreate(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url and event_types are required"})
		return
	}

	ownerID := middleware.OwnerID(c)
	sub, secret, err := sh.subscriptions.CreateSubscription(c.Request.Context(), ownerID, req.URL, req.EventTypes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if sh.analytics != nil {
		sh.analytics.TrackSubscriptionCreated(c.Request.Context(), ownerID, strings.Join(req.EventTypes, ","))
	}

	c.JSON(http.StatusCreated, gin.H{
		"subscription": toSubscriptionResponse(sub),
		"secret":       secret,
		"notice":       "store this secret now; it will not be shown again",
	})
}

// HandleList returns the tenant's subscriptions, newest first
func (sh *SubscriptionHandler) HandleList(c *gin.Context) {
	subs, err := sh.subscriptions.ListSubscriptions(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list subscriptions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list subscriptions"})
		return
	}

	resp := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		resp = append(resp, toSubscriptionResponse(sub))
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": resp})
}

// HandleGet returns one subscription owned by the caller
func (sh *SubscriptionHandler) HandleGet(c *gin.Context) {
	sub, ok := sh.ownedSubscription(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": toSubscriptionResponse(sub)})
}

// HandleUpdate modifies url, event types, or the active flag
func (sh *SubscriptionHandler) HandleUpdate(c *gin.Context) {
	sub, ok := sh.ownedSubscription(c)
	if !ok {
		return
	}

	var req UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updated, err := sh.subscriptions.UpdateSubscription(c.Request.Context(), sub.ID, services.SubscriptionUpdate{
		URL:        req.URL,
		EventTypes: req.EventTypes,
		Active:     req.Active,
	})
	if err != nil {
		if errors.Is(err, services.ErrSubscriptionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": toSubscriptionResponse(updated)})
}

// HandleDelete removes a subscription and its signing secret. If the vault
// delete fails the subscription is left intact and the failure is surfaced.
func (sh *SubscriptionHandler) HandleDelete(c *gin.Context) {
	sub, ok := sh.ownedSubscription(c)
	if !ok {
		return
	}

	if err := sh.subscriptions.DeleteSubscription(c.Request.Context(), sub.ID); err != nil {
		if errors.Is(err, services.ErrVaultDeletionFailed) {
			log.Error().Err(err).Str("subscription_id", sub.ID.String()).Msg("Vault delete failed, subscription kept")
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to delete signing secret; subscription was not removed"})
			return
		}
		if errors.Is(err, services.ErrSubscriptionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
			return
		}
		log.Error().Err(err).Str("subscription_id", sub.ID.String()).Msg("Failed to delete subscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete subscription"})
		return
	}

	if sh.analytics != nil {
		sh.analytics.TrackSubscriptionDeleted(c.Request.Context(), middleware.OwnerID(c))
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ownedSubscription resolves :id and enforces tenant scoping. A subscription
// belonging to another tenant reads as not-found, never as forbidden.
func (sh *SubscriptionHandler) ownedSubscription(c *gin.Context) (*models.WebhookSubscription, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return nil, false
	}

	sub, err := sh.subscriptions.GetSubscription(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrSubscriptionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		} else {
			log.Error().Err(err).Msg("Failed to load subscription")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscription"})
		}
		return nil, false
	}
	if sub.OwnerID != middleware.OwnerID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return nil, false
	}

	return sub, true
}
