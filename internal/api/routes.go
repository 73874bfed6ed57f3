package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/codyseavey/tcg-identify/internal/api/handlers"
	"github.com/codyseavey/tcg-identify/internal/metrics"
)

// Services bundles what the router needs. Scans may be nil.
type Services struct {
	Identifier handlers.Identifier
	Sets       handlers.SetDirectory
	Prices     handlers.PriceQuoter
	Metadata   handlers.MetadataLookup
	Scans      interface {
		handlers.ScanRecorder
		handlers.ScanStore
	}
}

func SetupRouter(svc Services, corsOrigins []string, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger), metricsMiddleware())

	// CORS configuration - allow configured origins or use defaults
	config := cors.DefaultConfig()
	if len(corsOrigins) > 0 {
		config.AllowOrigins = corsOrigins
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = false // Explicitly set
	router.Use(cors.New(config))

	// Initialize handlers
	var recorder handlers.ScanRecorder
	if svc.Scans != nil {
		recorder = svc.Scans
	}
	cardHandler := handlers.NewCardHandler(svc.Identifier, recorder, svc.Metadata, logger)
	setHandler := handlers.NewSetHandler(svc.Sets)
	priceHandler := handlers.NewPriceHandler(svc.Prices)

	// API routes
	api := router.Group("/api")
	{
		// Card routes
		cards := api.Group("/cards")
		{
			cards.POST("/identify", cardHandler.IdentifyCard)
			cards.POST("/verify", cardHandler.VerifyCard)
			cards.POST("/metadata/batch", cardHandler.BatchMetadata)
		}

		// Set routes
		sets := api.Group("/sets")
		{
			sets.DELETE("/cache", setHandler.InvalidateSets)
			sets.GET("/:game", setHandler.ListSets)
			sets.GET("/:game/resolve", setHandler.ResolveSet)
		}

		// Price routes
		prices := api.Group("/prices")
		{
			prices.GET("/status", priceHandler.GetPriceStatus)
			prices.POST("/batch", priceHandler.BatchPrices)
			prices.DELETE("/cache", priceHandler.ClearPriceCache)
		}

		// Scan history routes
		if svc.Scans != nil {
			scanHandler := handlers.NewScanHandler(svc.Scans)
			scans := api.Group("/scans")
			{
				scans.GET("", scanHandler.ListScans)
				scans.GET("/:id", scanHandler.GetScan)
				scans.GET("/:id/image", scanHandler.GetScanImage)
				scans.PUT("/:id", scanHandler.CorrectScan)
			}
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}

// metricsMiddleware records request counts and latency by route template
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		if path == "/metrics" {
			return
		}
		method := c.Request.Method
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

const requestIDHeader = "X-Request-ID"

// requestLogger tags each request with an ID (echoing the client's if sent)
// and logs it once the handler returns.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("HTTP request", fields...)
		case c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics":
			logger.Debug("HTTP request", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}
	}
}
