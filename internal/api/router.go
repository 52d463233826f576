package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/api/clinician"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/api/middleware"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/api/patient"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/service"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	APIKey       string
	AllowOrigins []string
	// Gatherer backs /metrics; nil leaves the route out.
	Gatherer prometheus.Gatherer
}

// SetupRouter sets up the Gin router
func SetupRouter(
	intakeService *service.IntakeService,
	adminService *service.AdminService,
	cfg RouterConfig,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	// Patient API (public, keyed by session id)
	patientHandler := patient.NewHandler(intakeService, logger)
	patientHandler.RegisterRoutes(r.Group("/api/sessions"))

	// Clinician API (requires API key)
	clinicianHandler := clinician.NewHandler(adminService)
	clinicianGroup := r.Group("/api/clinician")
	clinicianGroup.Use(middleware.Auth(cfg.APIKey))
	clinicianHandler.RegisterRoutes(clinicianGroup)

	return r
}
