package router

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/subwallet/dapp-authorization-api/internal/config"
	"github.com/subwallet/dapp-authorization-api/internal/handlers"
	"github.com/subwallet/dapp-authorization-api/internal/service"
)

// SetupRouter configures all API routes
func SetupRouter(
	authorizationService *service.AuthorizationService,
	corsConfig config.CORSConfig,
	logger *logrus.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	if corsConfig.Enabled {
		router.Use(configureCORS(corsConfig))
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	authorizationHandler := handlers.NewAuthorizationHandler(authorizationService, logger)

	v1 := router.Group("/api/v1")
	{
		authorizations := v1.Group("/authorizations")
		{
			authorizations.POST("", authorizationHandler.RequestAuthorization)
			authorizations.GET("/ensure", authorizationHandler.EnsureAuthorized)

			// Pending requests, resolved by the popup
			authorizations.GET("/requests", authorizationHandler.ListPendingRequests)
			authorizations.GET("/requests/count", authorizationHandler.GetPendingCount)
			authorizations.GET("/requests/stream", authorizationHandler.StreamPendingRequests)
			authorizations.POST("/requests/:id/approve", authorizationHandler.ApproveRequest)
			authorizations.POST("/requests/:id/reject", authorizationHandler.RejectRequest)
			authorizations.POST("/requests/:id/cancel", authorizationHandler.CancelRequest)
		}

		authURLs := v1.Group("/auth-urls")
		{
			authURLs.GET("", authorizationHandler.GetAuthList)
			authURLs.DELETE("", authorizationHandler.ForgetAllSites)
			authURLs.GET("/stream", authorizationHandler.StreamAuthURLs)
			authURLs.GET("/evm-network/stream", authorizationHandler.StreamEvmNetwork)
			authURLs.PUT("/accounts", authorizationHandler.ChangeAllAuthorization)
			authURLs.GET("/:origin", authorizationHandler.GetAuthRecord)
			authURLs.DELETE("/:origin", authorizationHandler.ForgetSite)
			authURLs.PUT("/:origin/accounts/:address", authorizationHandler.ChangeAccountAuthorization)
			authURLs.PUT("/:origin/evm-network", authorizationHandler.SwitchEvmNetwork)
		}
	}

	return router
}

// configureCORS returns a configured CORS middleware
func configureCORS(cfg config.CORSConfig) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowBrowserExtensions = true

	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}

	if len(cfg.AllowedMethods) > 0 {
		corsConfig.AllowMethods = cfg.AllowedMethods
	} else {
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}

	if len(cfg.AllowedHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.AllowedHeaders
	}

	// credentials cannot be combined with a wildcard origin
	corsConfig.AllowCredentials = cfg.AllowCredentials && !corsConfig.AllowAllOrigins

	if cfg.MaxAge > 0 {
		corsConfig.MaxAge = time.Duration(cfg.MaxAge) * time.Second
	}

	return cors.New(corsConfig)
}

// requestLogger logs each request through logrus
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
			"duration":    time.Since(start),
			"client_ip":   c.ClientIP(),
		}).Debug("Request handled")
	}
}
