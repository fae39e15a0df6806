package webserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stake-plus/getfunded/src/api/apperr"
	"go.uber.org/zap"
)

func writeErr(c *gin.Context, log *zap.Logger, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("pitch", c.Param("id")),
			zap.Error(err))
	}
	body := gin.H{"err": apperr.Message(err)}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Field != "" {
		body["field"] = ae.Field
	}
	c.JSON(status, body)
}
