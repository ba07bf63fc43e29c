package handlers

import (
	"net/http"

	"github.com/adaptivestartup/webhooks-platform/src/middleware"
	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/adaptivestartup/webhooks-platform/src/services"
	"github.com/gin-gonic/gin"
)

// EventHandler accepts application events for fan-out to webhook subscribers
type EventHandler struct {
	publisher *services.Publisher
}

// NewEventHandler creates a new event handler
func NewEventHandler(publisher *services.Publisher) *EventHandler {
	return &EventHandler{publisher: publisher}
}

// PublishEventRequest is the request body for publishing an event
type PublishEventRequest struct {
	EventType string      `json:"event_type" binding:"required"`
	Payload   interface{} `json:"payload"`
}

// HandlePublish queues the event for delivery to every matching subscription
// of the calling tenant
func (eh *EventHandler) HandlePublish(c *gin.Context) {
	var req PublishEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_type is required"})
		return
	}

	queued, err := eh.publisher.Publish(c.Request.Context(), middleware.OwnerID(c), models.OutboundEvent{
		EventType: req.EventType,
		Payload:   req.Payload,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"queued": queued})
}
