package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/cozy-creator/classify-server/internal/api/middleware"
	"github.com/cozy-creator/classify-server/internal/app"
	"github.com/cozy-creator/classify-server/internal/utils/hashutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const uploadField = "file"

type AnalyzeResponse struct {
	Result string `json:"result"`
}

func Analyze(c *gin.Context) {
	app := c.MustGet("app").(*app.App)
	logger := app.Logger.With(zap.String("request_id", middleware.GetRequestID(c)))

	analyzer := app.Analyzer()
	if analyzer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "model is not loaded"})
		return
	}

	file, err := c.FormFile(uploadField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("missing %q form field", uploadField)})
		return
	}

	data, err := readFileContent(file)
	if err != nil {
		logger.Error("failed to read upload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to read file"})
		return
	}

	logger.Debug("analyzing upload",
		zap.String("filename", file.Filename),
		zap.Int("size", len(data)),
		zap.String("blake3", hashutil.Blake3Hash(data)),
	)

	preds, err := analyzer.Analyze(c.Request.Context(), data)
	if err != nil {
		logger.Error("analysis failed", zap.String("filename", file.Filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	if len(preds) > 0 {
		logger.Info("analysis complete",
			zap.String("top_label", preds[0].Label),
			zap.Float64("top_probability", preds[0].Probability),
		)
	}

	c.JSON(http.StatusOK, AnalyzeResponse{Result: preds.String()})
}

func readFileContent(file *multipart.FileHeader) ([]byte, error) {
	content, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer content.Close()

	return io.ReadAll(content)
}
