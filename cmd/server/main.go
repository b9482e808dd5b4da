package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Kalion254/vyg-member-portal/internal/config"
	"github.com/Kalion254/vyg-member-portal/internal/document"
	"github.com/Kalion254/vyg-member-portal/internal/handler"
	"github.com/Kalion254/vyg-member-portal/internal/loan"
	"github.com/Kalion254/vyg-member-portal/internal/member"
	"github.com/Kalion254/vyg-member-portal/internal/middleware"
	"github.com/Kalion254/vyg-member-portal/internal/notify"
	"github.com/Kalion254/vyg-member-portal/internal/payment"
	"github.com/Kalion254/vyg-member-portal/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	// Keyed store (write store + counters + live changes)
	var st store.Store
	switch cfg.StoreBackend {
	case "memory":
		st = store.NewMemoryStore()
		log.Println("Using in-memory store; data will not survive restarts")
	default:
		redisStore, err := store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("Failed to connect to store: %v", err)
		}
		defer redisStore.Close()
		st = redisStore
	}

	// --- engine wiring ---
	issuer := member.NewIssuer(st)
	memberSvc := member.NewService(st, issuer)

	pipeline := document.NewPipeline(cfg.TemplatesDir, cfg.GeneratedDir, document.ChromeRenderer{}, cfg.RenderTimeout)
	mailer := notify.NewMailer(cfg.SendGridAPIKey, cfg.SendGridFrom)
	dispatcher := document.NewDispatcher(pipeline, mailer, cfg.PublicBaseURL)

	loanSvc := loan.NewService(st, dispatcher, 0)

	mpesa := payment.NewClient(payment.Config{
		Env:            cfg.MpesaEnv,
		ConsumerKey:    cfg.MpesaConsumerKey,
		ConsumerSecret: cfg.MpesaConsumerSecret,
		Passkey:        cfg.MpesaPasskey,
		Shortcode:      cfg.MpesaShortcode,
		CallbackURL:    cfg.MpesaCallbackURL,
		Timeout:        cfg.GatewayTimeout,
	})

	memberHandler := handler.NewMemberHandler(memberSvc)
	loanHandler := handler.NewLoanHandler(loanSvc)
	paymentHandler := handler.NewPaymentHandler(mpesa)
	documentHandler := handler.NewDocumentHandler(pipeline, mailer, cfg.UploadsDir, cfg.PublicBaseURL)

	// Setup router
	router := gin.Default()

	router.POST("/mpesa-initiate", paymentHandler.Initiate)
	router.POST("/mpesa-callback", paymentHandler.Callback)
	router.POST("/upload", documentHandler.Upload)
	router.POST("/generate-pdf", documentHandler.GeneratePDF)
	router.POST("/generate-statement", documentHandler.GenerateStatement)

	router.POST("/members", memberHandler.CreateMember)
	router.GET("/members/:memberNo", memberHandler.GetMember)

	apps := router.Group("/applications")
	{
		apps.POST("", loanHandler.SubmitApplication)
		apps.GET("/:id", loanHandler.GetApplication)

		admin := apps.Group("", middleware.AdminAuth(cfg.AdminJWTSecret))
		{
			admin.GET("", loanHandler.ListApplications)
			admin.POST("/:id/approve", loanHandler.ApproveApplication)
			admin.POST("/:id/reject", loanHandler.RejectApplication)
			admin.POST("/:id/advance", loanHandler.AdvanceApplication)
		}
	}

	// Evidence and generated documents are served verbatim.
	mustMkdir(cfg.UploadsDir)
	mustMkdir(cfg.GeneratedDir)
	router.Static("/uploads", cfg.UploadsDir)
	router.Static("/generated", cfg.GeneratedDir)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Live application-change feed for the admin console log.
	go func() {
		err := st.Subscribe(ctx, "loanApplications", func(path string, raw json.RawMessage) {
			log.Printf("Application changed: %s", path)
		})
		if err != nil && ctx.Err() == nil {
			log.Printf("Application subscriber stopped: %v", err)
		}
	}()

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down...")
		cancel()
	}()

	log.Printf("VYG server running on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func mustMkdir(dir string) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("Failed to create %s: %v", dir, err)
	}
}
