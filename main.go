package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	recoverer "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"

	"profilex/internal/handlers"
	"profilex/internal/middleware"
	"profilex/internal/models"
	"profilex/internal/repositories"
	"profilex/internal/services"
	"profilex/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	viper.SetDefault("APP_PORT", ":5000")
	viper.SetDefault("DATA_DIR", "data")
	viper.SetDefault("RABBITMQ_URL", "") // empty disables event publication
	viper.SetDefault("ADMIN_EMAIL", "admin@profilex.local")
	viper.SetDefault("ADMIN_USERNAME", "admin")
	viper.SetDefault("ADMIN_NAME", "Default Admin")
	viper.SetDefault("ADMIN_PASSWORD", "changeme")
	viper.AutomaticEnv()

	appPort := viper.GetString("APP_PORT")
	dataDir := viper.GetString("DATA_DIR")

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory %s: %v", dataDir, err)
	}

	// --- Initialize Stores ---
	accountRepo := repositories.NewFileAccountRepository(filepath.Join(dataDir, "userAccounts.json"))
	infoRepo := repositories.NewFileExtendedInfoRepository(filepath.Join(dataDir, "userInfoData.json"))

	// --- Initialize RabbitMQ Client (optional) ---
	var events services.EventPublisher
	var mqClient *rabbitmq.Client
	mqStatus := "disabled"
	if url := viper.GetString("RABBITMQ_URL"); url != "" {
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: url})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		mqClient = client
		events = client
		mqStatus = "connected"
		defer mqClient.Close()
	}

	// --- Initialize Services ---
	profileService := services.NewProfileService(accountRepo, infoRepo, events)
	authService := services.NewAuthService(accountRepo, infoRepo)

	if err := seedInitialAdmin(accountRepo, profileService); err != nil {
		log.Fatalf("Failed to seed initial admin user: %v", err)
	}

	// --- Start RabbitMQ Consumer in a Goroutine ---
	if mqClient != nil {
		go func() {
			log.Println("Starting RabbitMQ consumer for profile events...")
			handler := func(msg amqp.Delivery) error {
				log.Printf("Received profile event %s (tag %d): %s", msg.Type, msg.DeliveryTag, string(msg.Body))
				return nil
			}
			if err := mqClient.ConsumeProfileEvents(handler); err != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", err)
			}
		}()
	}

	app := buildApp(profileService, authService, services.HeaderIdentityVerifier{}, mqStatus)

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", appPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}

// buildApp assembles the Fiber app: middleware, routes and the health
// endpoint. Kept separate from main so tests can drive the full HTTP
// surface over in-memory stores.
func buildApp(profileService *services.ProfileService, authService *services.AuthService, verifier services.IdentityVerifier, mqStatus string) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	app.Use(recoverer.New())
	app.Use(logger.New())
	app.Use(cors.New())

	authHandler := handlers.NewAuthHandler(authService)
	profileHandler := handlers.NewProfileHandler(profileService)
	adminHandler := handlers.NewAdminHandler(profileService)

	// Public routes
	authHandler.RegisterRoutes(app)
	profileHandler.RegisterRoutes(app)

	// Identity-scoped routes
	protected := app.Group("", middleware.AuthRequired(verifier))
	profileHandler.RegisterMeRoutes(protected)
	adminHandler.RegisterRoutes(protected)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"rabbitmq": mqStatus,
		})
	})

	return app
}

// seedInitialAdmin creates the configured admin account when the account
// store is completely empty. A non-empty store is left untouched so an
// already populated data set never gains a surprise admin.
func seedInitialAdmin(accounts repositories.AccountStore, profileService *services.ProfileService) error {
	existing, err := accounts.Load()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	req := models.SignupRequest{
		Email:    viper.GetString("ADMIN_EMAIL"),
		Username: viper.GetString("ADMIN_USERNAME"),
		Name:     viper.GetString("ADMIN_NAME"),
		Password: viper.GetString("ADMIN_PASSWORD"),
		IsAdmin:  true,
	}
	if _, err := profileService.CreateProfile(req); err != nil {
		return err
	}
	log.Printf("Seeded initial admin user %s", req.Email)
	return nil
}
