package router

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mappasalud/citas-api/internal/config"
	"github.com/mappasalud/citas-api/internal/handler"
	appointmenthandler "github.com/mappasalud/citas-api/internal/handler/appointment"
	authhandler "github.com/mappasalud/citas-api/internal/handler/auth"
	doctorhandler "github.com/mappasalud/citas-api/internal/handler/doctor"
	"github.com/mappasalud/citas-api/internal/middleware"
	"github.com/mappasalud/citas-api/internal/repository"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "citas_api_requests_total",
		Help: "Total HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "citas_api_request_duration_seconds",
		Help:    "HTTP request latency by method and path.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth        *authhandler.Handler
	Appointment *appointmenthandler.Handler
	Doctor      *doctorhandler.Handler
}

// Setup builds the engine with the full middleware chain and all routes.
func Setup(cfg *config.Config, db *sqlx.DB, sessions repository.SessionStore, handlers Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	}

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RPS:   cfg.RateLimit.RPS,
		Burst: cfg.RateLimit.Burst,
	})

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		metrics(),
		middleware.CORS(corsConfig),
		limiter.RateLimit(),
		middleware.Session(sessions, cfg.Session.CookieName),
	)

	engine.NoMethod(func(c *gin.Context) {
		handler.Fail(c, http.StatusMethodNotAllowed, "Método no permitido")
	})
	engine.NoRoute(func(c *gin.Context) {
		handler.Fail(c, http.StatusNotFound, "Recurso no encontrado")
	})

	health := handler.NewHandler(db)
	engine.GET("/health/live", health.LivenessCheck)
	engine.GET("/health/ready", health.ReadinessCheck)
	engine.GET("/health/metrics", health.MetricsHandler)

	api := engine.Group("")
	handlers.Auth.RegisterRoutes(api)
	handlers.Appointment.RegisterRoutes(api)
	handlers.Doctor.RegisterRoutes(api)

	return engine
}

// metrics records a counter and latency histogram per request. The
// route template is used so path cardinality stays bounded.
func metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		requestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
