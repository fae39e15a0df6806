package webserver

import (
	"html"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/stake-plus/getfunded/src/api/apperr"
	"github.com/stake-plus/getfunded/src/api/data"
	"github.com/stake-plus/getfunded/src/api/funding"
	"github.com/stake-plus/getfunded/src/api/types"
	"go.uber.org/zap"
)

const maxOneLiner = 100

type Pitches struct {
	store     *data.Store
	events    *data.Events
	sanitizer *bluemonday.Policy
	log       *zap.Logger
}

func NewPitches(store *data.Store, events *data.Events, log *zap.Logger) Pitches {
	return Pitches{store: store, events: events, sanitizer: bluemonday.StrictPolicy(), log: log}
}

type pitchRequest struct {
	StartupName   string `json:"startupName"`
	OneLiner      string `json:"oneLiner"`
	Problem       string `json:"problem"`
	Solution      string `json:"solution"`
	Market        string `json:"market"`
	Traction      string `json:"traction"`
	Team          string `json:"team"`
	Ask           string `json:"ask"`
	TwitterHandle string `json:"twitterHandle"`
	Email         string `json:"email"`
}

func (h Pitches) Create(c *gin.Context) {
	var req pitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid JSON body"})
		return
	}

	p, err := h.toPitch(req)
	if err != nil {
		writeErr(c, h.log, err)
		return
	}
	if err := h.store.CreatePitch(c.Request.Context(), p); err != nil {
		writeErr(c, h.log, err)
		return
	}
	if err := h.events.Publish(c.Request.Context(), data.EventPitchCreated, p.ID, nil); err != nil {
		h.log.Warn("publish pitch created", zap.String("pitch", p.ID), zap.Error(err))
	}
	h.log.Info("pitch submitted", zap.String("pitch", p.ID), zap.String("startup", p.StartupName))

	c.JSON(http.StatusOK, gin.H{"pitchId": p.ID})
}

// toPitch strips markup, trims every field and rejects the first missing one.
func (h Pitches) toPitch(req pitchRequest) (*types.Pitch, error) {
	fields := []struct {
		name string
		val  *string
	}{
		{"startupName", &req.StartupName},
		{"oneLiner", &req.OneLiner},
		{"problem", &req.Problem},
		{"solution", &req.Solution},
		{"market", &req.Market},
		{"traction", &req.Traction},
		{"team", &req.Team},
		{"ask", &req.Ask},
		{"twitterHandle", &req.TwitterHandle},
		{"email", &req.Email},
	}
	for _, f := range fields {
		*f.val = h.clean(*f.val)
		if *f.val == "" {
			return nil, apperr.Validation(f.name, "Missing required field: "+f.name)
		}
	}

	handle := strings.TrimSpace(strings.TrimPrefix(req.TwitterHandle, "@"))
	if handle == "" {
		return nil, apperr.Validation("twitterHandle", "Missing required field: twitterHandle")
	}

	return &types.Pitch{
		StartupName:   req.StartupName,
		OneLiner:      truncate(req.OneLiner, maxOneLiner),
		Problem:       req.Problem,
		Solution:      req.Solution,
		Market:        req.Market,
		Traction:      req.Traction,
		Team:          req.Team,
		Ask:           req.Ask,
		TwitterHandle: handle,
		Email:         req.Email,
	}, nil
}

// clean removes any markup and returns trimmed plain text.
func (h Pitches) clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(h.sanitizer.Sanitize(s)))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}

func (h Pitches) Get(c *gin.Context) {
	p, err := h.store.GetPitch(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, h.log, err)
		return
	}
	resp := gin.H{"pitch": p}
	if p.Status == types.StatusFunded && p.Score != nil {
		resp["amount"] = funding.Amount(*p.Score)
	}
	c.JSON(http.StatusOK, resp)
}
