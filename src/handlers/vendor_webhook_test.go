package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHandleVendorEvent_RefusesUnverifiedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewVendorWebhookHandler(nil)

	// Route wired without the signature middleware: the handler must refuse
	// rather than process whatever arrived
	r := gin.New()
	r.POST("/vendor/identity/webhook", handler.HandleVendorEvent)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/vendor/identity/webhook",
		bytes.NewReader([]byte(`{"id":"evt_1","event":"user.created","data":{"id":"user_1"}}`))))

	assertStatusCode(t, w, http.StatusUnauthorized)
}
