package webserver

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stake-plus/getfunded/src/api/config"
	"github.com/stake-plus/getfunded/src/api/conversation"
	"github.com/stake-plus/getfunded/src/api/data"
	"github.com/stake-plus/getfunded/src/api/funding"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Config    config.Config
	Store     *data.Store
	Engine    *conversation.Engine
	Disburser *funding.Disburser
	Counter   DailyCounter
	Events    *data.Events
	Log       *zap.Logger
	// Now is the clock used for the daily cap; defaults to time.Now.
	Now func() time.Time
}

func New(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Counter == nil {
		d.Counter = data.NewStoreDailyCounter(d.Store)
	}
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, d)
	return g
}
