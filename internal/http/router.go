package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/pitchndeck/api/internal/auth"
	"github.com/pitchndeck/api/internal/config"
	"github.com/pitchndeck/api/internal/http/handlers"
	"github.com/pitchndeck/api/internal/http/middlewares"
	"github.com/pitchndeck/api/internal/observability"
	"github.com/pitchndeck/api/internal/repo/mongodb"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps carries everything the router wires together. All handles are
// constructed once in main and injected; nothing here owns a lifecycle.
type Deps struct {
	Cfg   config.Config
	Log   *slog.Logger
	DB    *mongo.Database
	Redis *redis.Client // optional; nil falls back to in-process limiting
	Reg   *prometheus.Registry
	Prom  *observability.Prom
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())

	if len(d.Cfg.AllowedOrigins) > 0 {
		r.Use(middlewares.CORSMiddleware(d.Cfg.AllowedOrigins))
	}

	r.Use(otelgin.Middleware("pitchndeck-api"))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(middlewares.RequireJSON())

	// health

	ping := func() error {
		if d.DB == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return d.DB.Client().Ping(ctx, readpref.Primary())
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Reg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Reg, promhttp.HandlerOpts{})))
	}

	// wire up repositories

	usersRepo := mongodb.NewUsersRepo(d.DB, d.Prom)
	contactsRepo := mongodb.NewContactsRepo(d.DB, d.Prom)

	jwtManager := auth.NewManager(d.Cfg.JWTSecret, d.Cfg.SessionTTL)

	session := middlewares.NewSessionMiddleware(jwtManager)
	gate := middlewares.NewAdminGate(usersRepo)

	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager, d.Cfg, d.Log, d.Prom)
	adminHandler := handlers.NewAdminHandler(usersRepo, d.Cfg, d.Log)
	contactHandler := handlers.NewContactHandler(contactsRepo, d.Cfg, d.Log)

	// Credential endpoints get a tight per-IP window.
	credLimiter := newCredentialLimiter(d.Redis)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", middlewares.RateLimit(credLimiter, middlewares.KeyByIP), authHandler.SignUp)
		authGroup.POST("/signin", middlewares.RateLimit(credLimiter, middlewares.KeyByIP), authHandler.SignIn)
		authGroup.POST("/signout", authHandler.SignOut)
		authGroup.GET("/me", session.RequireSession(), authHandler.Me)
	}

	adminGroup := r.Group("/admin", session.RequireSession(), gate.RequireAdmin())
	{
		adminGroup.GET("/users", adminHandler.ListUsers)
		adminGroup.PATCH("/users", adminHandler.UpdateUserStatus)
	}

	r.POST("/contact", middlewares.RateLimit(credLimiter, middlewares.KeyByIP), contactHandler.Submit)
	r.GET("/contact", session.RequireSession(), gate.RequireAdmin(), contactHandler.List)

	return r
}

func newCredentialLimiter(rdb *redis.Client) middlewares.Limiter {
	const (
		limit  = 20
		window = time.Minute
	)

	if rdb != nil {
		return middlewares.NewRedisLimiter(rdb, "cred", limit, window)
	}

	return middlewares.NewRateLimiter(limit, window)
}
