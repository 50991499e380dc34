package main

import (
	"log"

	"github.com/fileportal/server/internal/config"
	"github.com/fileportal/server/internal/db"
	"github.com/fileportal/server/internal/graph"
	"github.com/fileportal/server/internal/handlers"
	"github.com/fileportal/server/internal/middleware"
	"github.com/fileportal/server/internal/services"
	"github.com/fileportal/server/internal/uploader"
	"github.com/fileportal/server/internal/urlcache"
	"github.com/fileportal/server/internal/utils"
	"github.com/fileportal/server/internal/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	middleware.SetJWTSecret(cfg.JWTSecret)
	services.SetJWTSecret(cfg.JWTSecret)

	// Persistence
	mongoDB := db.ConnectMongoDB(cfg.MongoURI, cfg.MongoDB)
	zlog.Info("connected to MongoDB", zap.String("db", cfg.MongoDB))

	// Remote drive plumbing
	identity := graph.NewOAuthIdentityClient(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, cfg.DriveScopes)
	tokens := graph.NewTokenCache(identity, cfg.DriveScopes, zlog)
	drive := graph.NewClient(cfg.DriveBaseURL, cfg.SiteHost, cfg.SitePath, zlog)

	// Upload pipeline
	engine := uploader.NewEngine(drive, cfg.ChunkThrottle, zlog)
	urls := urlcache.New(urlcache.NewLRUStore(cfg.URLCacheTTL), drive, tokens, cfg.URLCacheTTL, zlog)
	registry := ws.NewRegistry(zlog)

	fileSvc := services.NewFileService(mongoDB.Collection("files"), urls, drive, tokens, zlog)
	uploadSvc := services.NewUploadService(engine, tokens, urls, fileSvc, registry, cfg.UploadFolder, zlog)
	pool := utils.NewWorkerPool(cfg.MaxConcurrentUploads)

	handlers.InitFileHandler(uploadSvc, fileSvc, pool, zlog)
	handlers.InitAdminHandler(mongoDB)

	app := fiber.New(fiber.Config{
		BodyLimit: 256 << 20, // large uploads arrive as one multipart request
	})
	app.Use(logger.New())
	app.Use(cors.New())

	// Auth Routes
	auth := app.Group("/auth")
	auth.Post("/register", handlers.RegisterHandler)
	auth.Post("/login", handlers.LoginHandler)

	// Admin Routes
	admin := app.Group("/admin", middleware.AdminMiddleware)
	admin.Get("/users", handlers.ListUsers)
	admin.Get("/files", handlers.ListAllFiles)
	admin.Get("/user/:userid", handlers.GetUserByID)
	admin.Get("/user/:user_id/files", handlers.ListUserFiles)
	admin.Delete("/file/:file_id", handlers.AdminDeleteFile)

	// File Routes
	file := app.Group("/file", middleware.AuthMiddleware)
	file.Post("/upload", handlers.UploadFileHandler)
	file.Get("/list", handlers.ListUserFilesHandler)
	file.Get("/metadata/:id", handlers.GetFileMetadataHandler)
	file.Post("/:id/share", handlers.ShareFileHandler)
	file.Delete("/:id", handlers.DeleteFileHandler)

	// Upload progress socket; the client connects with the upload id it got
	// back from POST /file/upload.
	app.Use("/ws", handlers.UpgradeMiddleware)
	app.Get("/ws/upload/:upload_id", handlers.UploadSocketHandler(registry))

	zlog.Info("starting server", zap.String("port", cfg.Port))
	log.Fatal(app.Listen(":" + cfg.Port))
}
