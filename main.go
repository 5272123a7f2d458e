package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"go-storefront/config"
	"go-storefront/controllers"
	"go-storefront/middleware"
	"go-storefront/repository"
	"go-storefront/routes"
	"go-storefront/services"
	"go-storefront/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := utils.NewLogger(cfg.LogLevel, cfg.LogPretty)
	zerolog.DefaultContextLogger = &logger

	// Set the JWT secret keys
	utils.JwtKey = []byte(cfg.JWTSecret)
	utils.RefreshKey = []byte(cfg.JWTRefreshSecret)
	utils.AccessTokenTTL = cfg.AccessTokenTTL
	utils.RefreshTokenTTL = cfg.RefreshTokenTTL
	controllers.RequestTimeout = cfg.RequestTimeout

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	client, err := utils.ConnectDB(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to disconnect from MongoDB")
		}
	}()
	db := client.Database(cfg.MongoDB)

	mailer := utils.NewEmailService(utils.EmailConfig{
		Provider:       cfg.EmailProvider,
		PostmarkToken:  cfg.PostmarkAPIToken,
		SendGridAPIKey: cfg.SendGridAPIKey,
		Sender:         cfg.EmailSender,
	})

	catalog := repository.NewCatalog(db)
	orders := repository.NewOrderStore(db)
	tx := repository.NewTxRunner(client, cfg.MongoTransactions)
	orderService := services.NewOrderService(catalog, orders, tx, mailer)

	// Initialize controllers
	userController := controllers.NewUserController(db, mailer, cfg.ClientURL)
	if err := orders.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to create order indexes")
	}
	if err := userController.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to create user indexes")
	}

	// Set up the router
	router := mux.NewRouter()
	routes.RegisterRoutes(router, routes.Controllers{
		Users:            userController,
		Products:         controllers.NewProductController(db),
		FeaturedProducts: controllers.NewFeaturedProductController(db),
		NewArrivals:      controllers.NewNewArrivalController(db),
		Orders:           controllers.NewOrderController(orderService),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(router),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Bool("transactions", tx.Transactional()).
			Msg("server is running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
