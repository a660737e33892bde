package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/cozy-creator/classify-server/internal/app"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const indexFile = "index.html"

// Homepage serves the landing page, read from disk on every request.
func Homepage(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	html, err := os.ReadFile(filepath.Join(app.Config().ViewDir, indexFile))
	if err != nil {
		app.Logger.Error("failed to read landing page", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "landing page not available"})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func Healthz(c *gin.Context) {
	app := c.MustGet("app").(*app.App)
	if app.Analyzer() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
