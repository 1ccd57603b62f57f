package main

import (
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"billing-service/internal/clients"
	"billing-service/internal/config"
	"billing-service/internal/events"
	"billing-service/internal/handlers"
	"billing-service/internal/middleware"
	"billing-service/internal/models"
	"billing-service/internal/repository"
	"billing-service/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	appLogger := logrus.New()
	appLogger.SetFormatter(&logrus.JSONFormatter{})
	appLogger.SetLevel(logrus.InfoLevel)

	// Connect to database
	db, err := connectDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.Quote{},
		&models.Invoice{},
		&models.LineItem{},
		&models.Payment{},
		&models.Refund{},
		&models.DocumentSequence{},
	); err != nil {
		log.Printf("Warning: Auto-migration failed: %v", err)
	}

	// Initialize repository
	billingRepo := repository.NewBillingRepository(db)

	// Initialize NATS events publisher (optional)
	var eventsPublisher *events.Publisher
	if cfg.NATSURL != "" {
		eventsPublisher, err = events.NewPublisher(cfg.NATSURL, appLogger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (events won't be published)", err)
		} else {
			defer eventsPublisher.Close()
			log.Println("✓ NATS events publisher initialized")
		}
	}

	// Initialize notification client (optional)
	var notificationClient *clients.NotificationClient
	if cfg.NotificationServiceURL != "" {
		notificationClient = clients.NewNotificationClient(cfg.NotificationServiceURL)
		log.Println("✓ Notification client initialized")
	}

	// Initialize services
	quoteService := services.NewQuoteService(billingRepo, eventsPublisher, appLogger)
	invoiceService := services.NewInvoiceService(billingRepo, eventsPublisher, appLogger)
	paymentService := services.NewPaymentService(billingRepo, eventsPublisher, appLogger)

	// Initialize handlers
	documentRenderer := services.NewDocumentRenderer()
	quoteHandler := handlers.NewQuoteHandler(quoteService, notificationClient, documentRenderer)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService, notificationClient, documentRenderer)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	// Idempotency store: Redis when configured, in-process otherwise
	var idempotencyStore middleware.IdempotencyStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		idempotencyStore = middleware.NewRedisIdempotencyStore(redis.NewClient(opts))
		log.Println("✓ Redis idempotency store initialized")
	} else {
		idempotencyStore = middleware.NewMemoryIdempotencyStore()
		log.Println("Using in-process idempotency store")
	}

	// Setup router
	router := setupRouter(cfg, appLogger, db, idempotencyStore, quoteHandler, invoiceHandler, paymentHandler)

	// Start server
	log.Printf("Billing Service starting on port %s (env: %s)", cfg.Port, cfg.Environment)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// connectDatabase establishes a connection to the database
func connectDatabase(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✓ Connected to database")
	return db, nil
}

// setupRouter configures the HTTP router
func setupRouter(cfg *config.Config, appLogger *logrus.Logger, db *gorm.DB, idempotencyStore middleware.IdempotencyStore, quoteHandler *handlers.QuoteHandler, invoiceHandler *handlers.InvoiceHandler, paymentHandler *handlers.PaymentHandler) *gin.Engine {
	router := gin.Default()

	rateLimits := middleware.NewBillingRateLimits()

	router.Use(middleware.SecurityHeaders())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders,
		"Authorization", "X-Tenant-ID", "X-User-ID", "X-Request-ID", "Idempotency-Key")
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	router.Use(cors.New(corsConfig))

	router.Use(middleware.ValidateRequest())
	router.Use(middleware.TenantMiddleware())
	router.Use(middleware.AuditMiddleware(appLogger))

	// Health check, outside tenant scoping and rate limiting
	router.GET("/health", handlers.HealthCheck(db))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RequireTenantID())
	v1.Use(middleware.RateLimitMiddleware(rateLimits.APIGeneral, "tenant"))
	{
		quotes := v1.Group("/quotes")
		{
			quotes.POST("", quoteHandler.CreateQuote)
			quotes.GET("", quoteHandler.ListQuotes)
			quotes.GET("/:id", quoteHandler.GetQuote)
			quotes.PATCH("/:id", quoteHandler.UpdateQuote)
			quotes.DELETE("/:id", quoteHandler.DeleteQuote)
			quotes.GET("/:id/pdf", quoteHandler.DownloadQuotePDF)
			quotes.PATCH("/:id/send", quoteHandler.SendQuote)
			quotes.PATCH("/:id/view", quoteHandler.MarkQuoteViewed)
			quotes.PATCH("/:id/accept", quoteHandler.AcceptQuote)
			quotes.PATCH("/:id/decline", quoteHandler.DeclineQuote)
			quotes.POST("/:id/convert", quoteHandler.ConvertQuote)

			// POST aliases for clients that cannot issue PATCH
			quotes.POST("/:id/send", quoteHandler.SendQuote)
			quotes.POST("/:id/accept", quoteHandler.AcceptQuote)
			quotes.POST("/:id/decline", quoteHandler.DeclineQuote)
		}

		invoices := v1.Group("/invoices")
		{
			invoices.POST("", invoiceHandler.CreateInvoice)
			invoices.GET("", invoiceHandler.ListInvoices)
			invoices.GET("/:id", invoiceHandler.GetInvoice)
			invoices.PATCH("/:id", invoiceHandler.UpdateInvoice)
			invoices.DELETE("/:id", invoiceHandler.DeleteInvoice)
			invoices.GET("/:id/pdf", invoiceHandler.DownloadInvoicePDF)
			invoices.PATCH("/:id/send", invoiceHandler.SendInvoice)
			invoices.PATCH("/:id/view", invoiceHandler.MarkInvoiceViewed)
			invoices.PATCH("/:id/void", invoiceHandler.VoidInvoice)
			invoices.GET("/:id/balance", invoiceHandler.GetInvoiceBalance)

			// POST aliases for clients that cannot issue PATCH
			invoices.POST("/:id/send", invoiceHandler.SendInvoice)
			invoices.POST("/:id/void", invoiceHandler.VoidInvoice)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("",
				middleware.RateLimitMiddleware(rateLimits.RecordPayment, "tenant"),
				middleware.IdempotencyMiddleware(idempotencyStore, appLogger),
				paymentHandler.RecordPayment)
			payments.GET("", paymentHandler.ListPayments)
			payments.GET("/:id", paymentHandler.GetPayment)
			payments.POST("/:id/confirm", paymentHandler.ConfirmPayment)
			payments.POST("/:id/refund",
				middleware.RateLimitMiddleware(rateLimits.RefundRequest, "tenant"),
				middleware.IdempotencyMiddleware(idempotencyStore, appLogger),
				paymentHandler.RefundPayment)
		}
	}

	return router
}
