package app

import (
	"context"
	"net/http"

	"github.com/garyellow/travel-linebot-go/internal/config"
	"github.com/garyellow/travel-linebot-go/internal/sentry"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (a *Application) newRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.POST("/webhook", a.webhookHandler.Handle)
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsAuthEnabled, a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	return router
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// dependencies lists the stores /readyz must reach.
func (a *Application) dependencies() map[string]pinger {
	deps := map[string]pinger{"database": a.db}
	if a.redis != nil {
		deps["redis"] = a.redis
	}
	return deps
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheck)
	defer cancel()

	for name, dep := range a.dependencies() {
		if err := dep.Ping(ctx); err != nil {
			a.logger.WithError(err).WithField("dependency", name).WarnContext(ctx, "Readiness check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": name + " unavailable",
			})
			return
		}
	}

	rows, err := a.db.Counts(ctx)
	if err != nil {
		a.logger.WithError(err).WarnContext(ctx, "Failed to count stored rows")
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "connected",
		"rows":     rows,
		"features": gin.H{
			"answers": a.answers != nil && a.answers.Enabled(),
			"places":  a.cfg.PlacesAPIKey != "",
			"backup":  a.backups != nil,
			"redis":   a.redis != nil,
		},
	})
}
