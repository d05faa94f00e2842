package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ErenEClk/SmartCom/models"
	"github.com/ErenEClk/SmartCom/storage"
	"github.com/ErenEClk/SmartCom/utils"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm"
)

// buildTestApp wires the messaging, notification, and announcement parties
// against an in-memory database, with the real JWT verifier and role
// middlewares.
func buildTestApp(t *testing.T) *iris.Application {
	t.Helper()
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	storage.PerformMigrations(db)
	storage.DB = db

	app := iris.New()
	app.Validator = validator.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} { return new(utils.AccessToken) })

	messaging := app.Party("/api/messaging", accessTokenVerifierMiddleware)
	{
		messaging.Get("/conversations", GetConversations)
		messaging.Get("/conversations/{id:uint}", GetConversationByID)
		messaging.Get("/conversations/{id:uint}/messages", GetConversationMessages)
		messaging.Post("/messages", SendMessage)
		messaging.Put("/messages/{id:uint}/read", MarkMessageAsRead)
		messaging.Delete("/messages/{id:uint}", DeleteMessage)
	}

	notifications := app.Party("/api/notifications", accessTokenVerifierMiddleware)
	{
		notifications.Get("/", GetUserNotifications)
		notifications.Get("/all", utils.AdminOnlyMiddleware, GetAllNotifications)
	}

	announcements := app.Party("/api/announcements", accessTokenVerifierMiddleware)
	{
		announcements.Get("/", GetAnnouncements)
	}

	if err := app.Build(); err != nil {
		t.Fatalf("build app: %v", err)
	}
	return app
}

func createRouteTestUser(t *testing.T, name, email, role string) *models.User {
	t.Helper()
	user := models.User{Name: name, Email: email, Password: "hashed", Role: role, Status: models.UserStatusActive}
	if err := storage.DB.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return &user
}

func signTestToken(user *models.User) string {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 0)
	token, _ := signer.Sign(utils.AccessToken{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role})
	return string(token)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

func doJSON(t *testing.T, app *iris.Application, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)

	var env envelope
	json.Unmarshal(resp.Body.Bytes(), &env)
	return resp, env
}

func TestSendMessageEndpoint(t *testing.T) {
	app := buildTestApp(t)
	alice := createRouteTestUser(t, "Alice", "alice@test.local", models.RoleResident)
	bob := createRouteTestUser(t, "Bob", "bob@test.local", models.RoleResident)
	token := signTestToken(alice)

	// No token
	resp, _ := doJSON(t, app, http.MethodPost, "/api/messaging/messages", "", iris.Map{"receiverId": bob.ID, "content": "hi"})
	if resp.Code == http.StatusOK {
		t.Fatalf("expected non-200 without token, got %d", resp.Code)
	}

	// Happy path
	resp, env := doJSON(t, app, http.MethodPost, "/api/messaging/messages", token, iris.Map{"receiverId": bob.ID, "content": "hi"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if !env.Success {
		t.Error("envelope success should be true")
	}

	// Missing content fails validation
	resp, env = doJSON(t, app, http.MethodPost, "/api/messaging/messages", token, iris.Map{"receiverId": bob.ID})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing content, got %d", resp.Code)
	}
	if env.Success {
		t.Error("envelope success should be false on validation failure")
	}
	if len(env.Errors) == 0 {
		t.Error("validation failure should list field errors")
	}

	// Unknown receiver
	resp, _ = doJSON(t, app, http.MethodPost, "/api/messaging/messages", token, iris.Map{"receiverId": 9999, "content": "hi"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown receiver, got %d", resp.Code)
	}
}

func TestConversationAccessControl(t *testing.T) {
	app := buildTestApp(t)
	alice := createRouteTestUser(t, "Alice", "alice@test.local", models.RoleResident)
	bob := createRouteTestUser(t, "Bob", "bob@test.local", models.RoleResident)
	eve := createRouteTestUser(t, "Eve", "eve@test.local", models.RoleResident)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/messaging/messages", signTestToken(alice), iris.Map{"receiverId": bob.ID, "content": "private"})
	if resp.Code != http.StatusOK {
		t.Fatalf("send failed: %d %s", resp.Code, resp.Body.String())
	}

	var conv models.Conversation
	if err := storage.DB.First(&conv).Error; err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	path := fmt.Sprintf("/api/messaging/conversations/%d", conv.ID)

	resp, env := doJSON(t, app, http.MethodGet, path, signTestToken(bob), nil)
	if resp.Code != http.StatusOK {
		t.Errorf("participant read: expected 200, got %d", resp.Code)
	}
	var view struct {
		ParticipantIDs []uint `json:"participantIDs"`
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode conversation view: %v", err)
	}
	if len(view.ParticipantIDs) != 2 {
		t.Errorf("participantIDs = %v, want both members", view.ParticipantIDs)
	}

	resp, env = doJSON(t, app, http.MethodGet, path, signTestToken(eve), nil)
	if resp.Code != http.StatusForbidden {
		t.Errorf("outsider read: expected 403, got %d", resp.Code)
	}
	if env.Success {
		t.Error("envelope success should be false on 403")
	}

	resp, _ = doJSON(t, app, http.MethodGet, "/api/messaging/conversations/9999", signTestToken(alice), nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("missing conversation: expected 404, got %d", resp.Code)
	}
}

func TestMessageReadAndDeleteEndpoints(t *testing.T) {
	app := buildTestApp(t)
	alice := createRouteTestUser(t, "Alice", "alice@test.local", models.RoleResident)
	bob := createRouteTestUser(t, "Bob", "bob@test.local", models.RoleResident)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/messaging/messages", signTestToken(alice), iris.Map{"receiverId": bob.ID, "content": "hello"})
	if resp.Code != http.StatusOK {
		t.Fatalf("send failed: %d", resp.Code)
	}

	var message models.Message
	if err := storage.DB.First(&message).Error; err != nil {
		t.Fatalf("load message: %v", err)
	}

	readPath := fmt.Sprintf("/api/messaging/messages/%d/read", message.ID)
	resp, _ = doJSON(t, app, http.MethodPut, readPath, signTestToken(alice), nil)
	if resp.Code != http.StatusForbidden {
		t.Errorf("sender mark read: expected 403, got %d", resp.Code)
	}
	resp, _ = doJSON(t, app, http.MethodPut, readPath, signTestToken(bob), nil)
	if resp.Code != http.StatusOK {
		t.Errorf("receiver mark read: expected 200, got %d", resp.Code)
	}

	deletePath := fmt.Sprintf("/api/messaging/messages/%d", message.ID)
	resp, _ = doJSON(t, app, http.MethodDelete, deletePath, signTestToken(bob), nil)
	if resp.Code != http.StatusForbidden {
		t.Errorf("receiver delete: expected 403, got %d", resp.Code)
	}
	resp, _ = doJSON(t, app, http.MethodDelete, deletePath, signTestToken(alice), nil)
	if resp.Code != http.StatusOK {
		t.Errorf("sender delete: expected 200, got %d", resp.Code)
	}
}

func TestNotificationsRBAC(t *testing.T) {
	app := buildTestApp(t)
	resident := createRouteTestUser(t, "Resident", "resident@test.local", models.RoleResident)
	admin := createRouteTestUser(t, "Admin", "admin@test.local", models.RoleAdmin)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/notifications/all", signTestToken(resident), nil)
	if resp.Code != http.StatusForbidden {
		t.Errorf("resident on admin listing: expected 403, got %d", resp.Code)
	}

	resp, _ = doJSON(t, app, http.MethodGet, "/api/notifications/all", signTestToken(admin), nil)
	if resp.Code != http.StatusOK {
		t.Errorf("admin listing: expected 200, got %d", resp.Code)
	}

	resp, env := doJSON(t, app, http.MethodGet, "/api/notifications", signTestToken(resident), nil)
	if resp.Code != http.StatusOK {
		t.Errorf("own notifications: expected 200, got %d", resp.Code)
	}
	if !env.Success {
		t.Error("envelope success should be true")
	}
}

func TestAnnouncementsWindowFiltering(t *testing.T) {
	app := buildTestApp(t)
	resident := createRouteTestUser(t, "Resident", "resident@test.local", models.RoleResident)
	manager := createRouteTestUser(t, "Manager", "manager@test.local", models.RoleSiteManager)

	now := time.Now()
	current := models.Announcement{Title: "Pool hours", Content: "open late", IsActive: true, IsPublic: true, StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour)}
	stale := models.Announcement{Title: "Old notice", Content: "done", IsActive: true, IsPublic: true, StartDate: now.Add(-48 * time.Hour), EndDate: now.Add(-24 * time.Hour)}
	for _, a := range []*models.Announcement{&current, &stale} {
		if err := storage.DB.Create(a).Error; err != nil {
			t.Fatalf("create announcement: %v", err)
		}
	}

	var listed []struct {
		Title string `json:"title"`
	}

	resp, env := doJSON(t, app, http.MethodGet, "/api/announcements", signTestToken(resident), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("resident listing: expected 200, got %d", resp.Code)
	}
	if err := json.Unmarshal(env.Data, &listed); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listed) != 1 || listed[0].Title != "Pool hours" {
		t.Errorf("resident sees %v, want only the announcement inside its window", listed)
	}

	resp, env = doJSON(t, app, http.MethodGet, "/api/announcements", signTestToken(manager), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("staff listing: expected 200, got %d", resp.Code)
	}
	if err := json.Unmarshal(env.Data, &listed); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("staff sees %d announcements, want 2", len(listed))
	}
}
