package webserver

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func attachRoutes(r *gin.Engine, d Deps) {
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
	}
	if len(d.Config.CORSOrigins) == 0 || (len(d.Config.CORSOrigins) == 1 && d.Config.CORSOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = d.Config.CORSOrigins
	}
	r.Use(cors.New(corsCfg))

	pitchH := NewPitches(d.Store, d.Events, d.Log)
	chatH := NewMessages(d.Store, d.Engine, d.Config.AgentMode, d.Log)
	fundH := NewFunding(d.Disburser, d.Log)
	boardH := NewLeaderboard(d.Store, d.Log)

	r.GET("/healthz", health(d))

	r.POST("/pitch", DailyCapMiddleware(d.Counter, d.Config.DailyPitchCap, d.Now, d.Log), pitchH.Create)
	r.GET("/pitch/:id", pitchH.Get)
	r.GET("/pitch/:id/chat", chatH.List)
	r.POST("/pitch/:id/chat", chatH.Post)
	r.POST("/pitch/:id/fund", fundH.Fund)
	r.GET("/leaderboard", boardH.List)
}

func health(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := d.Store.DB().DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "err": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "agentMode": d.Config.AgentMode})
	}
}
