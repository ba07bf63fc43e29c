package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/adaptivestartup/webhooks-platform/src/middleware"
	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/adaptivestartup/webhooks-platform/src/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AdminHandler handles the operator surface: authentication, cross-tenant
// subscription listing, and the dead-letter queue
type AdminHandler struct {
	adminService  *services.AdminService
	deliveries    *services.DeliveryService
	subscriptions *services.SubscriptionService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *services.AdminService, deliveries *services.DeliveryService, subscriptions *services.SubscriptionService) *AdminHandler {
	return &AdminHandler{
		adminService:  adminService,
		deliveries:    deliveries,
		subscriptions: subscriptions,
	}
}

// AdminLoginRequest represents the login request body
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLoginResponse represents the login response
type AdminLoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// HandleAdminLogin authenticates admin user and returns JWT token
func (ah *AdminHandler) HandleAdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	admin, err := ah.adminService.AuthenticateAdmin(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid username or password",
		})
		return
	}

	token, err := middleware.GenerateAdminToken(admin.ID, admin.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to generate token",
		})
		return
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	c.SetCookie(
		"admin_token",
		token,
		int(24*time.Hour.Seconds()),
		"/",
		"",
		true, // Secure
		true, // HttpOnly
	)

	c.JSON(http.StatusOK, AdminLoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
	})
}

// HandleAdminLogout clears the admin token cookie
func (ah *AdminHandler) HandleAdminLogout(c *gin.Context) {
	c.SetCookie(
		"admin_token",
		"",
		-1,
		"/",
		"",
		true, // Secure
		true, // HttpOnly
	)

	c.JSON(http.StatusOK, gin.H{
		"status": "logged out",
	})
}

// AdminStatusResponse represents the response for admin status check
type AdminStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	AdminID       string `json:"admin_id"`
	Username      string `json:"username"`
}

// HandleAdminStatus returns the current admin authentication status
func (ah *AdminHandler) HandleAdminStatus(c *gin.Context) {
	adminID, _ := c.Get("admin_id")
	username, _ := c.Get("username")

	c.JSON(http.StatusOK, AdminStatusResponse{
		Authenticated: true,
		AdminID:       adminID.(string),
		Username:      username.(string),
	})
}

// adminSubscriptionResponse is the operator projection of a subscription.
// Secret material never appears here either; operators rotate by delete+recreate.
type adminSubscriptionResponse struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    string    `json:"owner_id"`
	URL        string    `json:"url"`
	EventTypes []string  `json:"event_types"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// HandleListSubscriptions returns subscriptions across all tenants, newest first
func (ah *AdminHandler) HandleListSubscriptions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	subs, total, err := ah.subscriptions.ListAllSubscriptions(c.Request.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list subscriptions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list subscriptions"})
		return
	}

	resp := make([]adminSubscriptionResponse, 0, len(subs))
	for _, s := range subs {
		resp = append(resp, adminSubscriptionResponse{
			ID:         s.ID,
			OwnerID:    s.OwnerID,
			URL:        s.URL,
			EventTypes: s.EventTypes,
			Active:     s.Active,
			CreatedAt:  s.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"subscriptions": resp,
		"total":         total,
		"limit":         limit,
		"offset":        offset,
	})
}

// deadDeliveryResponse is the operator projection of a dead-lettered delivery
type deadDeliveryResponse struct {
	ID             uuid.UUID `json:"id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	EventType      string    `json:"event_type"`
	Attempts       int       `json:"attempts"`
	LastError      string    `json:"last_error"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HandleListDeadDeliveries returns the dead-letter queue, newest first
func (ah *AdminHandler) HandleListDeadDeliveries(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	deliveries, total, err := ah.deliveries.ListDead(c.Request.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list dead deliveries")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list dead deliveries"})
		return
	}

	resp := make([]deadDeliveryResponse, 0, len(deliveries))
	for _, d := range deliveries {
		item := deadDeliveryResponse{
			ID:             d.ID,
			SubscriptionID: d.SubscriptionID,
			EventType:      d.EventType,
			Attempts:       d.Attempts,
			UpdatedAt:      d.UpdatedAt,
		}
		if d.LastError != nil {
			item.LastError = *d.LastError
		}
		resp = append(resp, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"deliveries": resp,
		"total":      total,
		"limit":      limit,
		"offset":     offset,
	})
}

// HandleRequeueDelivery resets a dead-lettered delivery to pending
func (ah *AdminHandler) HandleRequeueDelivery(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "delivery not found"})
		return
	}

	if err := ah.deliveries.Requeue(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	log.Info().
		Str("delivery_id", id.String()).
		Str("admin_id", c.GetString("admin_id")).
		Msg("Delivery requeued by operator")

	c.JSON(http.StatusOK, gin.H{"requeued": true, "status": string(models.DeliveryStatusPending)})
}
