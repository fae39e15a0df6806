package webserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stake-plus/getfunded/src/api/apperr"
	"go.uber.org/zap"
)

// DailyCounter hands out submission slots for a UTC calendar day.
type DailyCounter interface {
	Acquire(ctx context.Context, day time.Time, limit int) (bool, error)
	Release(ctx context.Context, day time.Time) error
}

// DailyCapMiddleware rejects submissions once limit pitches were accepted
// today. A slot whose request does not end in a stored pitch is released.
func DailyCapMiddleware(counter DailyCounter, limit int, now func() time.Time, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		day := now().UTC()
		ok, err := counter.Acquire(c.Request.Context(), day, limit)
		if err != nil {
			log.Error("daily cap acquire", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"err": "Failed to create pitch"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"err": apperr.ErrDailyCap.Msg})
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusMultipleChoices {
			if err := counter.Release(context.WithoutCancel(c.Request.Context()), day); err != nil {
				log.Warn("daily cap release", zap.Error(err))
			}
		}
	}
}
