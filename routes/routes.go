package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/petalboard/petalboard-backend/config"
	_ "github.com/petalboard/petalboard-backend/docs"
	"github.com/petalboard/petalboard-backend/internal/auditlog"
	"github.com/petalboard/petalboard-backend/internal/auth"
	"github.com/petalboard/petalboard-backend/internal/booking"
	"github.com/petalboard/petalboard-backend/internal/event"
	"github.com/petalboard/petalboard-backend/internal/playlist"
	"github.com/petalboard/petalboard-backend/internal/reports"
	"github.com/petalboard/petalboard-backend/internal/security"
	"github.com/petalboard/petalboard-backend/middleware"
)

// Deps are the long-lived collaborators built by main.
type Deps struct {
	DB         *gorm.DB
	Redis      *redis.Client
	Verifier   *security.Verifier
	Spotify    auth.SpotifyAuthorizer
	Reconciler *playlist.Reconciler
	Dispatcher booking.Dispatcher
}

func Setup(r *gin.Engine, cfg *config.Config, deps Deps) {
	// ========== Services ==========
	auditSvc := auditlog.NewService(auditlog.NewRepository(deps.DB))

	authRepo := auth.NewRepository(deps.DB)
	authSvc := auth.NewService(authRepo, deps.Verifier, deps.Spotify, auditSvc, cfg.JWTAccessSecret, cfg.AccessTTL())
	authHandler := auth.NewHandler(authSvc, cfg.FrontendURL)

	eventSvc := event.NewService(event.NewRepository(deps.DB), auditSvc)
	eventHandler := event.NewHandler(eventSvc)
	ownerCheck := event.OwnerCheck(eventSvc)

	bookingSvc := booking.NewService(booking.NewRepository(deps.DB), deps.Verifier, deps.Dispatcher, auditSvc)
	bookingHandler := booking.NewHandler(bookingSvc)

	playlistHandler := playlist.NewHandler(deps.Reconciler, ownerCheck)
	reportHandler := reports.NewReportHandler(reports.NewReportService(eventSvc, reports.NewReportExporter(), auditSvc))
	auditHandler := auditlog.NewHandler(auditSvc, ownerCheck)

	// ========== Infra ==========
	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := deps.DB.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.Use(middleware.ClientIP())
	rateLimit := middleware.RateLimiter(deps.Redis, cfg.RateLimitPerMinute)

	// ========== Public guest routes ==========
	public := api.Group("/public")
	public.Use(rateLimit)
	{
		public.GET("/events/:code", eventHandler.GetPublicEvent)
		public.POST("/events/:code/rsvps", bookingHandler.Create)
		public.PUT("/events/:code/rsvps", bookingHandler.Update)
		public.POST("/events/:code/rsvps/lookup", bookingHandler.Lookup)
		public.POST("/events/:code/rsvps/cancel", bookingHandler.Cancel)
		public.GET("/events/:code/spotify/search", playlistHandler.Search)
	}

	// ========== Auth ==========
	authGroup := api.Group("/auth")
	authGroup.Use(rateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}
	api.GET("/spotify/callback", authHandler.SpotifyCallback)

	// ========== Organizer routes ==========
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(cfg.JWTAccessSecret, authSvc))
	{
		protected.GET("/auth/me", authHandler.Me)

		protected.GET("/spotify/connect", authHandler.SpotifyConnect)
		protected.DELETE("/spotify", authHandler.SpotifyDisconnect)

		eventRoutes := protected.Group("/events")
		{
			eventRoutes.POST("", eventHandler.CreateEvent)
			eventRoutes.GET("", eventHandler.ListEvents)
			eventRoutes.GET("/:id", eventHandler.GetEvent)
			eventRoutes.DELETE("/:id", eventHandler.DeleteEvent)
			eventRoutes.DELETE("/:id/rsvps/:rsvpId", bookingHandler.Remove)
			eventRoutes.POST("/:id/playlists/sync", playlistHandler.Sync)
			eventRoutes.GET("/:id/rsvps/export", reportHandler.ExportRSVPs)
			eventRoutes.GET("/:id/audit-logs", auditHandler.GetEventAuditLogs)
		}
	}
}
