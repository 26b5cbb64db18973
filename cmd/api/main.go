package main

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/adgenix/adgenix-backend/internal/config"
	"github.com/adgenix/adgenix-backend/internal/handler"
	"github.com/adgenix/adgenix-backend/internal/middleware"
	"github.com/adgenix/adgenix-backend/internal/repository"
	"github.com/adgenix/adgenix-backend/internal/service"
	"github.com/adgenix/adgenix-backend/pkg/dana"
	"github.com/adgenix/adgenix-backend/pkg/database"
	"github.com/adgenix/adgenix-backend/pkg/email"
	"github.com/adgenix/adgenix-backend/pkg/logger"
	"github.com/adgenix/adgenix-backend/pkg/payment"
	"github.com/adgenix/adgenix-backend/pkg/ratelimit"
	"github.com/adgenix/adgenix-backend/pkg/utils"
)

func main() {
	// .env is optional outside local dev
	_ = godotenv.Load()

	log := logger.New()
	defer log.Sync()

	cfg := config.LoadConfig()

	if !cfg.Dana.Configured() {
		log.Warn("dana gateway credentials missing, QRIS payments disabled")
	}
	if !cfg.Stripe.Configured() {
		log.Warn("stripe credentials missing, card payments disabled")
	}

	// Database (migrations + catalog seed run inside)
	db := database.NewDatabase()

	// Repositories
	packageRepo := repository.NewTokenPackageRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	ledgerRepo := repository.NewUserTokenRepository(db)

	// Gateways
	danaClient := dana.NewClient(cfg.Dana, log)
	stripeService := payment.NewStripeService(cfg.Stripe)

	// Email service
	emailService := email.NewEmailService(log)

	// Services
	paymentService := service.NewPaymentService(
		danaClient,
		stripeService,
		packageRepo,
		transactionRepo,
		ledgerRepo,
		log,
	)
	webhookService := service.NewWebhookService(
		cfg.Dana.ClientSecret,
		packageRepo,
		transactionRepo,
		emailService,
		log,
	)
	ledgerService := service.NewLedgerService(ledgerRepo, log)

	validator := utils.NewValidator()

	// Handlers
	paymentHandler := handler.NewPaymentHandler(paymentService, validator, log)
	webhookHandler := handler.NewWebhookHandler(webhookService, cfg.Stripe, log)
	tokenHandler := handler.NewTokenHandler(ledgerService, validator)

	// Per-endpoint limiters; process-local, swap for a shared-store
	// implementation when running more than one instance
	paymentLimiter := ratelimit.NewMemory(5, time.Minute)
	webhookLimiter := ratelimit.NewMemory(30, time.Minute)
	tokenLimiter := ratelimit.NewMemory(60, time.Minute)

	// Router
	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "https://adgenix.id, https://www.adgenix.id, http://localhost:5173",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE",
		AllowCredentials: true,
	}))
	app.Use(fiberlogger.New())
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	api := app.Group("/api")

	// Public payment routes
	api.Post("/payments/create", middleware.RateLimit(paymentLimiter, log), paymentHandler.CreatePayment)
	api.Get("/payments/qr/:orderId", paymentHandler.GetPaymentQR)
	api.Get("/payments/packages", paymentHandler.GetTokenPackages)

	// Provider webhooks (public, never behind auth)
	webhooks := api.Group("/payments/webhook", middleware.RateLimit(webhookLimiter, log))
	webhooks.Post("/", webhookHandler.HandleStripeWebhook)
	webhooks.Post("/dana", webhookHandler.HandleDanaWebhook)
	webhooks.Post("/dana/refund", webhookHandler.HandleDanaRefundWebhook)

	// Protected routes
	api.Use(middleware.AuthMiddleware())
	{
		payments := api.Group("/payments")
		payments.Get("/history", paymentHandler.GetPurchaseHistory)
		payments.Post("/checkout/:packageId", paymentHandler.CreateCheckoutSession)

		tokens := api.Group("/tokens", middleware.RateLimit(tokenLimiter, log))
		tokens.Get("/balance", tokenHandler.GetBalance)
		tokens.Post("/spend", tokenHandler.SpendTokens)
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := app.Listen(":" + port); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
