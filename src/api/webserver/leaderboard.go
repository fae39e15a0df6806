package webserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stake-plus/getfunded/src/api/data"
	"go.uber.org/zap"
)

type Leaderboard struct {
	store *data.Store
	log   *zap.Logger
}

func NewLeaderboard(store *data.Store, log *zap.Logger) Leaderboard {
	return Leaderboard{store: store, log: log}
}

type boardEntry struct {
	ID            string     `json:"id"`
	StartupName   string     `json:"startupName"`
	OneLiner      string     `json:"oneLiner"`
	Score         *float64   `json:"score"`
	Valuation     *string    `json:"valuation"`
	TwitterHandle string     `json:"twitterHandle"`
	FundedAt      *time.Time `json:"fundedAt"`
	TxHash        *string    `json:"txHash"`
}

func (h Leaderboard) List(c *gin.Context) {
	sortBy := c.DefaultQuery("sort", "date")
	switch sortBy {
	case "score", "date", "valuation":
	default:
		sortBy = "date"
	}

	pitches, err := h.store.FundedPitches(c.Request.Context(), sortBy)
	if err != nil {
		writeErr(c, h.log, err)
		return
	}
	out := make([]boardEntry, 0, len(pitches))
	for _, p := range pitches {
		out = append(out, boardEntry{
			ID:            p.ID,
			StartupName:   p.StartupName,
			OneLiner:      p.OneLiner,
			Score:         p.Score,
			Valuation:     p.Valuation,
			TwitterHandle: p.TwitterHandle,
			FundedAt:      p.FundedAt,
			TxHash:        p.TxHash,
		})
	}
	c.JSON(http.StatusOK, gin.H{"startups": out})
}
