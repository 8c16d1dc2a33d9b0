package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moyobot/config"
	"moyobot/cron"
	"moyobot/database"
	contentRepoPkg "moyobot/database/repository/content"
	requestsRepoPkg "moyobot/database/repository/requests"
	"moyobot/handlers"
	"moyobot/middleware"
	"moyobot/routes"
	"moyobot/services/booking"
	"moyobot/services/calendar"
	"moyobot/services/catalog"
	"moyobot/services/conversation"
	"moyobot/services/directive"
	"moyobot/services/intelligence"
	"moyobot/services/messaging"
	"moyobot/services/session"
	"moyobot/services/slots"
	"moyobot/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitSessionCache()

	ctx := context.Background()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// Repositories.
	requestRepo := requestsRepoPkg.NewMongoRequestRepo()
	contentRepo := contentRepoPkg.NewMongoContentRepo()

	// Services.
	catalogSvc := catalog.New(contentRepo, logger)

	var syncer *catalog.SheetSyncer
	if config.AppConfig.ServiceSheetID != "" {
		var err error
		syncer, err = catalog.NewSheetSyncer(ctx,
			config.AppConfig.GoogleCredentialsFile,
			config.AppConfig.ServiceSheetID,
			contentRepo, logger)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to initialize sheet syncer: %v", err)
		}
	}

	normalizer, err := slots.NewNormalizer(config.AppConfig.DisplayTimezone)
	if err != nil {
		logger.Sugar().Fatalf("main: invalid display timezone: %v", err)
	}

	googleCalendar, err := calendar.NewGoogleCalendar(ctx,
		config.AppConfig.GoogleCredentialsFile,
		config.AppConfig.DisplayTimezone,
		config.AppConfig.AvailabilityHorizonDays,
		logger)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize calendar client: %v", err)
	}

	coordinator := &booking.DefaultCoordinator{
		Calendar:   googleCalendar,
		Normalizer: normalizer,
		ResourceID: config.AppConfig.CalendarID,
		Tolerance:  config.AppConfig.SlotMatchTolerance,
		Logger:     logger,
	}

	sessionStore := session.NewRedisStore(utils.GetSessionCacheClient(), config.AppConfig.SessionTTL)

	geminiClient, err := intelligence.NewGeminiClient(ctx,
		config.AppConfig.GeminiAPIKey,
		config.AppConfig.GeminiModel)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize gemini client: %v", err)
	}

	flow := &conversation.DefaultFlowController{
		Store:      sessionStore,
		Model:      geminiClient,
		Catalog:    catalogSvc,
		Leads:      requestRepo,
		Booking:    coordinator,
		Parser:     directive.NewParser(normalizer.Location()),
		Normalizer: normalizer,
		Timezone:   config.AppConfig.DisplayTimezone,
		Logger:     logger,
	}

	whatsappClient := messaging.NewWhatsAppClient(
		config.AppConfig.WhatsAppToken,
		config.AppConfig.WhatsAppPhoneNumberID,
		config.AppConfig.CollaboratorTimeout,
		logger)

	// Handlers.
	chatHandler := &handlers.ChatHandler{Flow: flow, Logger: logger}
	whatsappHandler := &handlers.WhatsAppHandler{
		Flow:        flow,
		Sender:      whatsappClient,
		VerifyToken: config.AppConfig.WhatsAppVerifyToken,
		Logger:      logger,
	}
	outreachHandler := &handlers.OutreachHandler{
		Sessions: sessionStore,
		Requests: requestRepo,
		Catalog:  catalogSvc,
		Syncer:   syncer,
		Logger:   logger,
	}

	handlerBundle := handlers.NewHandlerBundle(chatHandler, whatsappHandler, outreachHandler)

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Background session reaper.
	cron.InitReapWorker(sessionStore)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
