package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adaptivestartup/webhooks-platform/src/middleware"
	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/adaptivestartup/webhooks-platform/src/repositories/mock"
	"github.com/adaptivestartup/webhooks-platform/src/services"
	"github.com/adaptivestartup/webhooks-platform/src/vault"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	middleware.SetJWTSecret("test-jwt-secret-at-least-32-characters-long")
}

func newAdminRouter(adminRepo *mock.AdminRepository, delivRepo *mock.DeliveryRepository, subRepo *mock.SubscriptionRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewAdminHandler(
		services.NewAdminServiceWithRepo(adminRepo),
		services.NewDeliveryServiceWithRepo(delivRepo),
		services.NewSubscriptionServiceWithRepo(subRepo, vault.NewMemoryVault()),
	)

	r := gin.New()
	r.POST("/admin/login", handler.HandleAdminLogin)
	r.POST("/admin/logout", handler.HandleAdminLogout)
	protected := r.Group("/admin", middleware.AdminAuthMiddleware())
	protected.GET("/status", handler.HandleAdminStatus)
	protected.GET("/subscriptions", handler.HandleListSubscriptions)
	protected.GET("/deliveries/dead", handler.HandleListDeadDeliveries)
	protected.POST("/deliveries/:id/requeue", handler.HandleRequeueDelivery)
	return r
}

func seededAdminRepo(t *testing.T, username, password string) *mock.AdminRepository {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	admin := &models.AdminUser{ID: uuid.New(), Username: username, PasswordHash: string(hash), IsActive: true}

	repo := mock.NewAdminRepository()
	repo.GetByUsernameFunc = func(ctx context.Context, u string) (*models.AdminUser, error) {
		if u == username {
			return admin, nil
		}
		return nil, nil
	}
	return repo
}

func TestHandleAdminLogin(t *testing.T) {
	repo := seededAdminRepo(t, "ops", "sup3r-secret")
	r := newAdminRouter(repo, mock.NewDeliveryRepository(), mock.NewSubscriptionRepository())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/admin/login",
		map[string]string{"username": "ops", "password": "sup3r-secret"}))
	assertStatusCode(t, w, http.StatusOK)

	resp := parseJSONResponse(t, w)
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatal("Login response missing token")
	}

	// Token works on the protected surface
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assertStatusCode(t, w, http.StatusOK)
}

func TestHandleAdminLogin_BadCredentials(t *testing.T) {
	repo := seededAdminRepo(t, "ops", "sup3r-secret")
	r := newAdminRouter(repo, mock.NewDeliveryRepository(), mock.NewSubscriptionRepository())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/admin/login",
		map[string]string{"username": "ops", "password": "wrong"}))
	assertStatusCode(t, w, http.StatusUnauthorized)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/admin/login",
		map[string]string{"username": "nobody", "password": "sup3r-secret"}))
	assertStatusCode(t, w, http.StatusUnauthorized)
}

func TestHandleListDeadDeliveries(t *testing.T) {
	lastError := "delivery failed: 410 Gone"
	delivRepo := mock.NewDeliveryRepository()
	delivRepo.ListDeadFunc = func(ctx context.Context, limit, offset int) ([]*models.Delivery, int, error) {
		return []*models.Delivery{{
			ID:             uuid.New(),
			SubscriptionID: uuid.New(),
			EventType:      models.EventModelCanvasVersionCreated,
			Status:         models.DeliveryStatusDead,
			Attempts:       3,
			LastError:      &lastError,
		}}, 1, nil
	}
	r := newAdminRouter(seededAdminRepo(t, "ops", "sup3r-secret"), delivRepo, mock.NewSubscriptionRepository())

	token, _ := middleware.GenerateAdminToken(uuid.New(), "ops")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/deliveries/dead", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assertStatusCode(t, w, http.StatusOK)

	resp := parseJSONResponse(t, w)
	if resp["total"].(float64) != 1 {
		t.Errorf("total = %v", resp["total"])
	}
}

func TestHandleListSubscriptions_AcrossTenants(t *testing.T) {
	subRepo := mock.NewSubscriptionRepository()
	subRepo.ListAllFunc = func(ctx context.Context, limit, offset int) ([]*models.WebhookSubscription, int, error) {
		return []*models.WebhookSubscription{
			{ID: uuid.New(), OwnerID: "org-1", URL: "https://a.example.com/hook", EventTypes: []string{models.EventModelCanvasVersionCreated}, SecretRef: "vs_org-1_ref", Active: true},
			{ID: uuid.New(), OwnerID: "org-2", URL: "https://b.example.com/hook", EventTypes: []string{models.EventPitchDeckPublished}, SecretRef: "vs_org-2_ref", Active: false},
		}, 2, nil
	}
	r := newAdminRouter(seededAdminRepo(t, "ops", "sup3r-secret"), mock.NewDeliveryRepository(), subRepo)

	token, _ := middleware.GenerateAdminToken(uuid.New(), "ops")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/subscriptions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assertStatusCode(t, w, http.StatusOK)

	resp := parseJSONResponse(t, w)
	if resp["total"].(float64) != 2 {
		t.Errorf("total = %v", resp["total"])
	}
	subs := resp["subscriptions"].([]interface{})
	owners := map[string]bool{}
	for _, s := range subs {
		owners[s.(map[string]interface{})["owner_id"].(string)] = true
	}
	if !owners["org-1"] || !owners["org-2"] {
		t.Errorf("Expected subscriptions from both tenants, got %v", owners)
	}
	if strings.Contains(w.Body.String(), "secret_ref") || strings.Contains(w.Body.String(), "vs_org-") {
		t.Error("Operator listing must not expose vault references")
	}
}

func TestHandleRequeueDelivery(t *testing.T) {
	delivRepo := mock.NewDeliveryRepository()
	r := newAdminRouter(seededAdminRepo(t, "ops", "sup3r-secret"), delivRepo, mock.NewSubscriptionRepository())

	token, _ := middleware.GenerateAdminToken(uuid.New(), "ops")
	id := uuid.New()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/deliveries/"+id.String()+"/requeue", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assertStatusCode(t, w, http.StatusOK)

	if len(delivRepo.Calls["Requeue"]) != 1 {
		t.Error("Expected Requeue to be called")
	}

	// Unauthenticated requeue is rejected before touching the queue
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/deliveries/"+id.String()+"/requeue", nil))
	assertStatusCode(t, w, http.StatusUnauthorized)
	if len(delivRepo.Calls["Requeue"]) != 1 {
		t.Error("Unauthenticated request must not requeue")
	}
}
