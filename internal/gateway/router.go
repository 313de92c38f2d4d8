package gateway

import (
	"github.com/gin-gonic/gin"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/logger"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/middleware"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/telemetry"
)

// RouterConfig holds optional router wiring.
type RouterConfig struct {
	// Idempotency, when set, deduplicates retried booking submissions.
	Idempotency *middleware.IdempotencyConfig
	// ServiceName is used for tracing spans.
	ServiceName string
	// Debug switches gin into debug mode.
	Debug bool
}

// NewRouter builds the gateway's gin engine with the standard
// middleware stack.
func NewRouter(h *Handler, cfg *RouterConfig) *gin.Engine {
	if cfg == nil {
		cfg = &RouterConfig{}
	}
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger(logger.Get()))
	router.Use(CORS())
	if cfg.ServiceName != "" {
		router.Use(telemetry.TracingMiddleware(cfg.ServiceName))
	}

	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	{
		bookings := v1.Group("/bookings")
		if cfg.Idempotency != nil {
			bookings.Use(middleware.Idempotency(cfg.Idempotency))
		}
		bookings.POST("", h.CreateBooking)
		bookings.GET("/:transaction_id/status", h.GetStatus)

		v1.GET("/services", h.ListServices)
	}

	return router
}
