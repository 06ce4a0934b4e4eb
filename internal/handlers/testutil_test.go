package handlers

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/rosterhub/backend/internal/config"
	"github.com/rosterhub/backend/internal/middleware"
	"github.com/rosterhub/backend/internal/models"
	"github.com/rosterhub/backend/internal/services"
	"github.com/rosterhub/backend/pkg/logger"
	"github.com/rosterhub/backend/pkg/utils"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
		utils.ConfigureEncryption("test-secret")
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Resource{},
		&models.ShareGrant{},
		&models.Comment{},
		&models.CoachPlayerRelationship{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	accessService := services.NewAccessService(db)
	grantService := services.NewGrantService(db)
	relationshipService := services.NewRelationshipService(db)
	auditService := services.NewAuditService(db)

	cfg := &config.Config{
		Server: config.ServerConfig{
			FrontendURL: "http://localhost:3001",
		},
		SSO: config.SSOConfig{
			AutoRegister: true,
			DefaultRole:  "player",
		},
	}

	oauthService := services.NewOAuthProviderService(cfg)
	ldapService := services.NewLDAPService(cfg)

	authHandler := NewAuthHandler(db, auditService)
	mfaHandler := NewMFAHandler(db, auditService)
	ssoHandler := NewSSOHandler(db, cfg, oauthService, ldapService, auditService)
	usersHandler := NewUsersHandler(db, auditService)
	profilesHandler := NewProfilesHandler(db, relationshipService, auditService)
	relationshipsHandler := NewRelationshipsHandler(db, auditService)
	resourcesHandler := NewResourcesHandler(db, nil, accessService, auditService)
	commentsHandler := NewCommentsHandler(db, accessService, auditService)
	grantsHandler := NewGrantsHandler(db, grantService, accessService, auditService)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 10 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.FrontendURL))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)

	mfaRoutes := api.Group("/auth/mfa", authMiddleware.RequireAuth)
	mfaRoutes.Post("/setup", mfaHandler.Setup)
	mfaRoutes.Post("/activate", mfaHandler.Activate)
	mfaRoutes.Post("/disable", mfaHandler.Disable)

	ssoRoutes := api.Group("/auth/sso")
	ssoRoutes.Get("/providers", ssoHandler.ListProviders)
	ssoRoutes.Get("/:provider/login", ssoHandler.GetLoginRedirect)
	ssoRoutes.Post("/:provider/callback", ssoHandler.HandleOAuthCallback)
	ssoRoutes.Post("/ldap/login", ssoHandler.HandleLDAPLogin)

	api.Get("/users/search", authMiddleware.RequireAuth, usersHandler.Search)

	userRoutes := api.Group("/users", authMiddleware.RequireAuth, middleware.AdminOnly)
	userRoutes.Get("/", usersHandler.List)
	userRoutes.Get("/:id", usersHandler.Get)
	userRoutes.Put("/:id", usersHandler.Update)
	userRoutes.Delete("/:id", usersHandler.Delete)

	api.Get("/players/:id/profile", authMiddleware.RequireAuth, profilesHandler.Get)
	api.Put("/profile", authMiddleware.RequireAuth, profilesHandler.Update)
	api.Put("/profile/privacy", authMiddleware.RequireAuth, profilesHandler.UpdatePrivacy)

	relationshipRoutes := api.Group("/relationships", authMiddleware.RequireAuth)
	relationshipRoutes.Post("/invite", relationshipsHandler.Invite)
	relationshipRoutes.Get("/", relationshipsHandler.List)
	relationshipRoutes.Post("/:id/accept", relationshipsHandler.Accept)
	relationshipRoutes.Post("/:id/decline", relationshipsHandler.Decline)
	relationshipRoutes.Delete("/:id", relationshipsHandler.Revoke)

	resourceRoutes := api.Group("/resources", authMiddleware.RequireAuth)
	resourceRoutes.Post("/", resourcesHandler.Create)
	resourceRoutes.Get("/", resourcesHandler.List)
	resourceRoutes.Get("/:id", resourcesHandler.Get)
	resourceRoutes.Put("/:id", resourcesHandler.Update)
	resourceRoutes.Delete("/:id", resourcesHandler.Delete)
	resourceRoutes.Get("/:id/download-url", resourcesHandler.DownloadURL)
	resourceRoutes.Post("/:id/comments", commentsHandler.Create)
	resourceRoutes.Get("/:id/comments", commentsHandler.List)
	resourceRoutes.Post("/:id/grants", grantsHandler.Create)
	resourceRoutes.Get("/:id/grants", grantsHandler.List)

	api.Delete("/comments/:id", authMiddleware.RequireAuth, commentsHandler.Delete)
	api.Delete("/grants/:id", authMiddleware.RequireAuth, grantsHandler.Revoke)
	api.Get("/shared", authMiddleware.RequireAuth, resourcesHandler.ListSharedWithMe)

	return &testEnv{app: app, db: db}
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string, role models.UserRole) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func createTestResource(t *testing.T, db *gorm.DB, owner *models.User, name string, isPublic bool) *models.Resource {
	t.Helper()

	resource := &models.Resource{
		Name:       name,
		MimeType:   "video/mp4",
		Size:       4096,
		OwnerID:    owner.ID,
		IsPublic:   isPublic,
		StorageKey: name,
	}
	if err := db.Create(resource).Error; err != nil {
		t.Fatalf("failed creating test resource: %v", err)
	}
	return resource
}

func createTestGrant(t *testing.T, db *gorm.DB, resource *models.Resource, grantee *models.User, level models.PermissionLevel) *models.ShareGrant {
	t.Helper()

	grant := &models.ShareGrant{
		ResourceID: resource.ID,
		GranteeID:  grantee.ID,
		GrantorID:  resource.OwnerID,
		Level:      level,
	}
	if err := db.Create(grant).Error; err != nil {
		t.Fatalf("failed creating test grant: %v", err)
	}
	return grant
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}
