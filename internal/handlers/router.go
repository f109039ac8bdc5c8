package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asakaida/gakudan/internal/infrastructure/metrics"
	"github.com/asakaida/gakudan/internal/services/authz"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck() error
}

// Router bundles the handlers behind the versioned HTTP surface.
type Router struct {
	Musicians    *MusicianHandler
	Instruments  *InstrumentHandler
	Performances *PerformanceHandler
	Files        *FileHandler
	Health       HealthChecker
	Logger       *slog.Logger
	Collector    *metrics.Collector
	Exporter     *metrics.PrometheusExporter
}

// Build assembles the gin engine: logging and metrics middleware, the
// health probe, and the role-gated /v1 routes.
func (r *Router) Build() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	if r.Logger != nil {
		engine.Use(RequestLogger(r.Logger))
	}
	if r.Collector != nil {
		engine.Use(metrics.Middleware(r.Collector, r.Exporter))
	}

	engine.GET("/healthz", func(c *gin.Context) {
		if r.Health != nil {
			if err := r.Health.HealthCheck(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/v1")
	v1.Use(Authenticate())

	musicians := v1.Group("/musicians")
	{
		musicians.GET("", Require(authz.ActionMusicianList), r.Musicians.List)
		musicians.GET("/:id", Require(authz.ActionMusicianView), r.Musicians.Get)
		musicians.POST("", Require(authz.ActionMusicianCreate), r.Musicians.Create)
		musicians.PUT("/:id", Require(authz.ActionMusicianEdit), r.Musicians.Update)
		musicians.DELETE("/:id", Require(authz.ActionMusicianDelete), r.Musicians.Delete)
		musicians.GET("/:id/options", Require(authz.ActionMusicianView), r.Musicians.Options)

		musicians.PUT("/:id/photo", Require(authz.ActionMusicianEdit), r.Files.UploadPhoto)
		musicians.GET("/:id/photo", Require(authz.ActionMusicianView), r.Files.GetPhoto)
		musicians.DELETE("/:id/photo", Require(authz.ActionMusicianEdit), r.Files.DeletePhoto)
		musicians.POST("/:id/documents", Require(authz.ActionMusicianEdit), r.Files.UploadDocuments)
		musicians.GET("/:id/performances", Require(authz.ActionMusicianView), r.Performances.ListForMusician)
	}

	v1.GET("/documents/:id", Require(authz.ActionDocumentDownload), r.Files.DownloadDocument)

	instruments := v1.Group("/instruments")
	{
		instruments.GET("", Require(authz.ActionInstrumentList), r.Instruments.List)
		instruments.POST("", Require(authz.ActionInstrumentCreate), r.Instruments.Create)
		instruments.POST("/import", Require(authz.ActionInstrumentImport), r.Instruments.Import)
		instruments.GET("/:id", Require(authz.ActionInstrumentView), r.Instruments.Get)
		instruments.PUT("/:id", Require(authz.ActionInstrumentEdit), r.Instruments.Update)
		instruments.DELETE("/:id", Require(authz.ActionInstrumentDelete), r.Instruments.Delete)
		instruments.GET("/:id/options", Require(authz.ActionInstrumentView), r.Instruments.Options)
	}

	performances := v1.Group("/performances")
	{
		performances.POST("", Require(authz.ActionMusicianEdit), r.Performances.Record)
		performances.GET("/summary", Require(authz.ActionPerformanceReport), r.Performances.Summary)
		performances.GET("/export", Require(authz.ActionPerformanceReport), r.Performances.Export)
	}

	return engine
}
