package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/rosterhub/backend/internal/config"
	"github.com/rosterhub/backend/internal/database"
	"github.com/rosterhub/backend/internal/handlers"
	"github.com/rosterhub/backend/internal/middleware"
	"github.com/rosterhub/backend/internal/services"
	"github.com/rosterhub/backend/internal/storage"
	"github.com/rosterhub/backend/pkg/logger"
	"github.com/rosterhub/backend/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)
	utils.ConfigureEncryption(cfg.JWT.Secret)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	storageClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := storageClient.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	accessService := services.NewAccessService(db)
	grantService := services.NewGrantService(db)
	relationshipService := services.NewRelationshipService(db)
	auditService := services.NewAuditService(db)
	oauthService := services.NewOAuthProviderService(cfg)
	ldapService := services.NewLDAPService(cfg)

	authHandler := handlers.NewAuthHandler(db, auditService)
	mfaHandler := handlers.NewMFAHandler(db, auditService)
	ssoHandler := handlers.NewSSOHandler(db, cfg, oauthService, ldapService, auditService)
	usersHandler := handlers.NewUsersHandler(db, auditService)
	profilesHandler := handlers.NewProfilesHandler(db, relationshipService, auditService)
	relationshipsHandler := handlers.NewRelationshipsHandler(db, auditService)
	resourcesHandler := handlers.NewResourcesHandler(db, storageClient, accessService, auditService)
	commentsHandler := handlers.NewCommentsHandler(db, accessService, auditService)
	grantsHandler := handlers.NewGrantsHandler(db, grantService, accessService, auditService)

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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
