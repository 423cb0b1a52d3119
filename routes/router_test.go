package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"civicreport-be/config"
	"civicreport-be/models"
	"civicreport-be/realtime"
	"civicreport-be/repositories/memstore"
	"civicreport-be/services"
	authUtils "civicreport-be/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type server struct {
	t      *testing.T
	router *gin.Engine
	store  *memstore.Store
	tokens *authUtils.Issuer
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	store := memstore.New()
	tokens, err := authUtils.NewIssuer("router-secret", time.Hour)
	require.NoError(t, err)

	hub := realtime.NewHub(log, nil)
	notifier := services.NewNotificationService(store, hub, log)
	t.Cleanup(notifier.Wait)
	issues := services.NewIssueService(store, notifier, nil, log)

	cfg := &config.Config{
		Env:              "production",
		RequestTimeout:   5 * time.Second,
		TokenTTL:         time.Hour,
		CORSOrigins:      []string{"*"},
		IssueLimitPrefix: "issue_limit",
		IssueDailyLimit:  20,
	}
	router := NewRouter(Dependencies{
		Config:        cfg,
		Log:           log,
		Store:         store,
		Tokens:        tokens,
		Users:         services.NewUserService(store, tokens, log),
		Issues:        issues,
		Notifications: notifier,
		Admin:         services.NewAdminService(store, issues),
		Hub:           hub,
	})
	return &server{t: t, router: router, store: store, tokens: tokens}
}

// user inserts an account and returns a token for it.
func (s *server) user(id string, role models.Role) string {
	s.t.Helper()
	u := &models.User{ID: id, Name: "User " + id, Email: id + "@example.com", Password: "password", Role: role}
	require.NoError(s.t, u.HashPassword())
	require.NoError(s.t, s.store.Users().Create(context.Background(), u))
	token, err := s.tokens.GenerateToken(id, role)
	require.NoError(s.t, err)
	return token
}

func (s *server) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	s.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	}
	return w, decoded
}

func (s *server) createIssue(token, title string) string {
	s.t.Helper()
	w, body := s.do(http.MethodPost, "/api/issues", token, map[string]any{
		"title":       title,
		"description": "Water is leaking from the main pipeline",
		"category":    "WATER",
		"location":    "Ward 12, Ranchi",
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return body["issue"].(map[string]any)["id"].(string)
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t)

	w, body := s.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Asha", "email": "asha@example.com", "password": "secret12", "role": "ADMIN",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "CITIZEN", user["role"])
	assert.NotContains(t, user, "password")

	w, _ = s.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Asha", "email": "ASHA@example.com", "password": "secret12",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body = s.do(http.MethodPost, "/api/auth/register", "", map[string]any{"name": "A", "email": "x", "password": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Validation failed", body["error"])
	assert.Len(t, body["details"], 3)

	w, _ = s.do(http.MethodPost, "/api/auth/register", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "asha@example.com", "password": "secret12"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "auth_token=")
	token := body["token"].(string)

	w, body = s.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "asha@example.com", body["user"].(map[string]any)["email"])

	w, _ = s.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "asha@example.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIssueStatusCodes(t *testing.T) {
	s := newServer(t)
	alice := s.user("alice", models.RoleCitizen)
	bob := s.user("bob", models.RoleCitizen)
	staff := s.user("staff", models.RoleDepartment)

	id := s.createIssue(alice, "Pipeline burst")

	w, body := s.do(http.MethodGet, "/api/issues/"+id, bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	issue := body["issue"].(map[string]any)
	assert.Equal(t, "SUBMITTED", issue["status"])
	assert.Equal(t, []any{}, issue["comments"])

	w, _ = s.do(http.MethodPost, "/api/issues", alice, map[string]any{
		"title":       "Pothole near school",
		"description": "Deep pothole right at the school gate",
		"category":    "ROAD",
		"location":    "Ward 3, Ranchi",
		"coordinates": map[string]any{"lat": 123, "lng": 500},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPut, "/api/issues/"+id, alice, map[string]any{"coordinates": map[string]any{"lat": 23.3, "lng": 181}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodGet, "/api/issues/missing", bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodPut, "/api/issues/"+id, bob, map[string]any{"title": "Hijacked title"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodPut, "/api/admin/issues/"+id+"/status", alice, map[string]any{"status": "ACKNOWLEDGED"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = s.do(http.MethodPut, "/api/admin/issues/"+id+"/status", staff, map[string]any{"status": "RESOLVED"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid status transition from SUBMITTED to RESOLVED", body["error"])

	w, body = s.do(http.MethodPut, "/api/admin/issues/"+id+"/assign", staff, map[string]any{"assigneeId": "staff", "department": "Water Department"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ASSIGNED", body["issue"].(map[string]any)["status"])

	w, body = s.do(http.MethodGet, "/api/notifications/unread-count", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["unreadCount"])

	w, _ = s.do(http.MethodPost, "/api/issues/"+id+"/comments", bob, map[string]any{"content": "Same on my lane"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, _ = s.do(http.MethodDelete, "/api/issues/"+id, alice, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(http.MethodDelete, "/api/issues/"+id, staff, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, "/api/issues/"+id, alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodGet, "/api/issues", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIssueListPagination(t *testing.T) {
	s := newServer(t)
	alice := s.user("alice", models.RoleCitizen)
	for i := 0; i < 12; i++ {
		s.createIssue(alice, fmt.Sprintf("Leak number %d", i))
	}

	w, body := s.do(http.MethodGet, "/api/issues?page=2&limit=10&status=all", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["issues"], 2)
	assert.Equal(t, map[string]any{"page": float64(2), "limit": float64(10), "total": float64(12), "pages": float64(2)}, body["pagination"])

	w, body = s.do(http.MethodGet, "/api/issues?page=0&limit=500", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["pagination"].(map[string]any)["page"])
	assert.Equal(t, float64(services.DefaultIssuePageSize), body["pagination"].(map[string]any)["limit"])

	w, body = s.do(http.MethodGet, "/api/issues?page=1000000000000000000&limit=10", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, body["issues"])
	assert.Equal(t, float64(12), body["pagination"].(map[string]any)["total"])

	w, _ = s.do(http.MethodGet, "/api/issues?status=DONE", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(http.MethodGet, "/api/users/issues?limit=5", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), body["pagination"].(map[string]any)["pages"])
}

func TestAdminRoutes(t *testing.T) {
	s := newServer(t)
	citizen := s.user("citizen", models.RoleCitizen)
	staff := s.user("staff", models.RoleDepartment)
	admin := s.user("admin", models.RoleAdmin)

	w, _ := s.do(http.MethodGet, "/api/admin/dashboard", citizen, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, body := s.do(http.MethodGet, "/api/admin/dashboard", staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["stats"].(map[string]any)["totalCitizens"])

	w, _ = s.do(http.MethodGet, "/api/admin/analytics", staff, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, body = s.do(http.MethodGet, "/api/admin/analytics", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	analytics := body["analytics"].(map[string]any)
	assert.Equal(t, float64(services.DefaultAnalyticsDays), analytics["periodDays"])
	assert.Len(t, analytics["issuesByDate"], services.DefaultAnalyticsDays)
	w, _ = s.do(http.MethodGet, "/api/admin/analytics?period=week", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(http.MethodGet, "/api/admin/analytics?period=0", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodGet, "/api/admin/users", staff, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, body = s.do(http.MethodGet, "/api/admin/users?role=DEPARTMENT", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["users"], 1)

	w, _ = s.do(http.MethodPut, "/api/admin/users/citizen/role", admin, map[string]any{"role": "SUPERADMIN"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, body = s.do(http.MethodPut, "/api/admin/users/citizen/role", admin, map[string]any{"role": "DEPARTMENT"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DEPARTMENT", body["user"].(map[string]any)["role"])
}

func TestRoleChangesApplyToIssuedTokens(t *testing.T) {
	s := newServer(t)
	citizen := s.user("citizen", models.RoleCitizen)
	staff := s.user("staff", models.RoleDepartment)
	admin := s.user("admin", models.RoleAdmin)

	w, _ := s.do(http.MethodGet, "/api/admin/dashboard", staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodPut, "/api/admin/users/staff/role", admin, map[string]any{"role": "CITIZEN"})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, "/api/admin/dashboard", staff, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodPut, "/api/admin/users/citizen/role", admin, map[string]any{"role": "DEPARTMENT"})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, "/api/admin/dashboard", citizen, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	ghost, err := s.tokens.GenerateToken("ghost", models.RoleAdmin)
	require.NoError(t, err)
	w, _ = s.do(http.MethodGet, "/api/admin/dashboard", ghost, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNotificationRoutes(t *testing.T) {
	s := newServer(t)
	alice := s.user("alice", models.RoleCitizen)
	bob := s.user("bob", models.RoleCitizen)
	id := s.createIssue(alice, "Pipeline burst")
	w, _ := s.do(http.MethodPost, "/api/issues/"+id+"/comments", bob, map[string]any{"content": "Seen it too"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := s.do(http.MethodGet, "/api/notifications?unreadOnly=true", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := body["notifications"].([]any)
	require.Len(t, items, 1)
	noteID := items[0].(map[string]any)["id"].(string)

	w, _ = s.do(http.MethodPut, "/api/notifications/"+noteID+"/read", bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(http.MethodPut, "/api/notifications/"+noteID+"/read", alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = s.do(http.MethodPut, "/api/notifications/read-all", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), body["updated"])

	w, _ = s.do(http.MethodDelete, "/api/notifications/"+noteID, alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOpsEndpoints(t *testing.T) {
	s := newServer(t)

	w, body := s.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", body["message"])

	w, body = s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	w, _ = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "civic_http_requests_total")

	w, _ = s.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	alice := s.user("alice", models.RoleCitizen)
	w, body = s.do(http.MethodPost, "/api/issues/classify", alice, map[string]any{"text": "Kooda pada hai"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SANITATION", body["analysis"].(map[string]any)["category"])

	w, body = s.do(http.MethodGet, "/api/issues/map", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, body["issues"])
}
