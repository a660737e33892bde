package server

import (
	"github.com/cozy-creator/classify-server/internal/api"
	"github.com/cozy-creator/classify-server/internal/api/middleware"
	"github.com/cozy-creator/classify-server/internal/app"
	"github.com/gin-gonic/gin"
)

func (s *Server) SetupRoutes(app *app.App) {
	s.ginEngine.Use(middleware.RequestID)

	s.ginEngine.GET("/healthz", handlerWrapper(app, api.Healthz))
	s.ginEngine.GET("/", handlerWrapper(app, api.Homepage))
	s.ginEngine.POST("/analyze", handlerWrapper(app, api.Analyze))
}

func handlerWrapper(app *app.App, f func(c *gin.Context)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("app", app)
		f(ctx)
	}
}
