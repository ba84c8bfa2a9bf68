package server

import (
	"time"

	httpHandler "publish-scheduler/interfaces/http"
	"publish-scheduler/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Ops        httpHandler.IOpsHandler
	Task       httpHandler.ITaskHandler
	Credential httpHandler.ICredentialHandler
	// Stream serves task status events; optional.
	Stream gin.HandlerFunc
}

func InitiateRouter(h Handlers, secretKey string, corsOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	corsConfig := cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", h.Ops.Healthz)
	router.GET("/auth/:platform/callback", h.Credential.Callback)

	api := router.Group("api")
	api.Use(middleware.Auth(secretKey))

	api.GET("/auth/:platform", h.Credential.GetAuthURL)
	api.GET("/credentials/:platform/status", h.Credential.Status)
	api.GET("/platforms", h.Ops.Platforms)
	api.GET("/notifications", h.Ops.Notifications)
	api.POST("/scheduler/trigger", h.Ops.Trigger)

	api.POST("/tasks", h.Task.Create)
	if h.Stream != nil {
		api.GET("/tasks/stream", h.Stream)
	}
	api.GET("/tasks/:id", h.Task.Get)

	return router
}
