package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/store-locator/internal/auth"
	"github.com/ukydev/store-locator/internal/config"
	"github.com/ukydev/store-locator/internal/db"
	"github.com/ukydev/store-locator/internal/events"
	"github.com/ukydev/store-locator/internal/metrics"
	"github.com/ukydev/store-locator/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	log.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}()
	log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")

	database := client.Database(cfg.MongoDB)
	stores := &db.MongoStoreCollection{Collection: database.Collection("stores")}
	users := &db.MongoUserCollection{Collection: database.Collection("users")}

	if err := stores.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Fatal("Failed to create store indexes")
	}
	if err := users.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Fatal("Failed to create user indexes")
	}

	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialise auth service")
	}

	if err := ensureAdmin(ctx, users, authService, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.WithError(err).Fatal("Failed to bootstrap admin user")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.MQTTBroker != "" {
		mqttPublisher, err := events.NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopicPrefix)
		if err != nil {
			log.WithError(err).WithField("broker", cfg.MQTTBroker).Warn("MQTT unavailable, store events disabled")
		} else {
			publisher = mqttPublisher
			log.WithField("broker", cfg.MQTTBroker).Info("Publishing store events over MQTT")
		}
	}
	defer publisher.Close()

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		log.WithError(err).Fatal("Failed to register metrics")
	}

	router := newRouter(routerDeps{
		Stores:  stores,
		Users:   users,
		Auth:    authService,
		Events:  publisher,
		Metrics: collector,
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		RadiusMeters:       cfg.ServiceRadiusMeters,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{
			"port":          cfg.Port,
			"radius_meters": cfg.ServiceRadiusMeters,
		}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server exited")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Graceful shutdown failed")
	}
}

// ensureAdmin creates the bootstrap admin when credentials are configured
// and no user with that name exists yet.
func ensureAdmin(ctx context.Context, users db.UserCollection, authService *auth.Service, username, password string) error {
	if username == "" || password == "" {
		log.Debug("No bootstrap admin configured")
		return nil
	}

	_, err := users.FindUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, db.ErrUserNotFound) {
		return fmt.Errorf("look up admin %q: %w", username, err)
	}

	if err := authService.ValidatePassword(password); err != nil {
		return fmt.Errorf("admin password: %w", err)
	}
	hash, err := authService.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		ID:           primitive.NewObjectID(),
		Username:     username,
		Email:        username + "@store-locator.local",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := users.InsertUser(ctx, admin); err != nil {
		return fmt.Errorf("insert admin %q: %w", username, err)
	}

	log.WithField("username", username).Info("Created bootstrap admin user")
	return nil
}
