package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/haojie06/domoai-http/internal/logger"
	"github.com/haojie06/domoai-http/internal/model"
	"github.com/haojie06/domoai-http/internal/server/handler"
)

func Start(host, port, authToken string, h *handler.Handler) {
	router := InitRouter(authToken, h)
	if err := router.Run(host + ":" + port); err != nil {
		panic(err)
	}
}

// BearerAuthMiddleware compares the Authorization bearer token against the
// configured one. The "Bearer " scheme is mandatory. An empty configured token
// disables auth entirely.
func BearerAuthMiddleware(authToken string) gin.HandlerFunc {
	const scheme = "Bearer "
	return func(c *gin.Context) {
		if authToken == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, scheme) || header[len(scheme):] != authToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
				Message: "could not validate credentials",
			})
			return
		}
		c.Next()
	}
}

func InitRouter(authToken string, h *handler.Handler) *gin.Engine {
	router := gin.New()
	router.Use(ginzap.RecoveryWithZap(logger.ZapLogger, true))
	router.Use(ginzap.Ginzap(logger.ZapLogger, time.RFC3339Nano, true))
	router.Use(cors.Default())
	pprof.Register(router)

	apiGroup := router.Group("/v1", BearerAuthMiddleware(authToken))
	apiGroup.POST("/gen", h.CreateGenTask)
	apiGroup.POST("/real", h.CreateRealTask)
	apiGroup.POST("/animate", h.CreateAnimateTask)
	apiGroup.POST("/video", h.CreateVideoTask)
	apiGroup.POST("/move", h.CreateMoveTask)

	apiGroup.POST("/upscale", h.CreateUpscaleTask)
	apiGroup.POST("/vary", h.CreateVaryTask)

	apiGroup.GET("/task-data/:task_id", h.GetTaskData)
	return router
}
