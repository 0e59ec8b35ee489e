package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/petalboard/petalboard-backend/config"
	"github.com/petalboard/petalboard-backend/database"
	"github.com/petalboard/petalboard-backend/internal/auth"
	"github.com/petalboard/petalboard-backend/internal/booking"
	"github.com/petalboard/petalboard-backend/internal/playlist"
	"github.com/petalboard/petalboard-backend/internal/security"
	"github.com/petalboard/petalboard-backend/internal/spotify"
	"github.com/petalboard/petalboard-backend/routes"
	"github.com/petalboard/petalboard-backend/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("❌ Config load failed")
	}
	setupLogging(cfg)

	db, err := database.Connect(cfg)
	if err != nil {
		log.WithError(err).Fatal("❌ Database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("❌ DB AutoMigrate failed")
	}

	// Init Redis
	redisClient, err := utils.InitRedis(cfg)
	if err != nil {
		log.WithError(err).Fatal("❌ Redis init failed")
	}

	// Spotify + reconciliation
	spotifyClient := spotify.NewClient(spotify.Config{
		ClientID:          cfg.SpotifyClientID,
		ClientSecret:      cfg.SpotifyClientSecret,
		RedirectURI:       cfg.SpotifyRedirectURI,
		APIURL:            cfg.SpotifyAPIURL,
		AccountsURL:       cfg.SpotifyAccountsURL,
		Timeout:           cfg.SpotifyTimeout,
		RequestsPerSecond: cfg.SpotifyRPS,
	})
	var authorizer auth.SpotifyAuthorizer
	if cfg.SpotifyEnabled() {
		authorizer = spotifyClient
	} else {
		log.Warn("⚠️ SPOTIFY_CLIENT_ID/SECRET not set, playlist questions will not sync")
	}

	reconciler := playlist.NewReconciler(playlist.NewRepository(db), auth.NewRepository(db), spotifyClient)
	queue := playlist.NewQueue(reconciler, cfg.SyncWorkers, 256, 2*time.Minute)

	// Kafka carries sync requests between instances when configured; the
	// consumer feeds the local worker queue either way.
	var dispatcher booking.Dispatcher = queue
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumerDone := make(chan struct{})
	kafkaClients := utils.InitializeKafka(cfg)
	if kafkaClients != nil {
		dispatcher = playlist.NewKafkaDispatcher(kafkaClients.Writer)
		go func() {
			defer close(consumerDone)
			if err := playlist.Consume(consumerCtx, kafkaClients.Reader, queue); err != nil {
				log.WithError(err).Error("playlist sync consumer stopped")
			}
		}()
	} else {
		close(consumerDone)
	}

	// Setup Gin router
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(nil); err != nil {
		log.WithError(err).Warn("set trusted proxies")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Content-Length", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.Setup(router, cfg, routes.Deps{
		DB:         db,
		Redis:      redisClient,
		Verifier:   security.NewVerifier(security.DefaultParams, cfg.PinPepper),
		Spotify:    authorizer,
		Reconciler: reconciler,
		Dispatcher: dispatcher,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("🚀 Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("❌ Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("🛑 Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("HTTP shutdown")
	}
	stopConsumer()
	<-consumerDone
	if kafkaClients != nil {
		kafkaClients.Close()
	}
	if err := queue.Close(ctx); err != nil {
		log.WithError(err).Warn("playlist sync queue did not drain")
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("✅ Shutdown complete")
}

func setupLogging(cfg *config.Config) {
	if strings.EqualFold(cfg.GinMode, gin.ReleaseMode) {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
