package webserver

import (
	"context"
	"errors"
	"html"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/stake-plus/getfunded/src/api/apperr"
	"github.com/stake-plus/getfunded/src/api/config"
	"github.com/stake-plus/getfunded/src/api/conversation"
	"github.com/stake-plus/getfunded/src/api/data"
	"github.com/stake-plus/getfunded/src/api/types"
	"go.uber.org/zap"
)

const maxMessageLen = 4000

// Messages serves the pitch conversation.
type Messages struct {
	store     *data.Store
	engine    *conversation.Engine
	auto      bool
	sanitizer *bluemonday.Policy
	log       *zap.Logger
}

func NewMessages(store *data.Store, engine *conversation.Engine, agentMode string, log *zap.Logger) Messages {
	return Messages{
		store:     store,
		engine:    engine,
		auto:      agentMode != config.AgentModeManual,
		sanitizer: bluemonday.StrictPolicy(),
		log:       log,
	}
}

type verdictView struct {
	Score     *float64 `json:"score"`
	Valuation *string  `json:"valuation"`
	Feedback  *string  `json:"feedback"`
	Funded    bool     `json:"funded"`
}

// state renders the conversation as the chat page polls it.
func (m Messages) state(ctx context.Context, pitchID string) (gin.H, error) {
	p, err := m.store.GetPitch(ctx, pitchID)
	if err != nil {
		return nil, err
	}
	msgs, err := m.store.ListMessages(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	var v *verdictView
	if p.Terminal() {
		v = &verdictView{Score: p.Score, Valuation: p.Valuation, Feedback: p.Feedback, Funded: p.Status == types.StatusFunded}
	}
	phase := conversation.PhaseOf(msgs)
	return gin.H{
		"messages": msgs,
		"verdict":  v,
		"status":   p.Status,
		"phase":    phase,
		"polling":  !p.Terminal() && phase.AwaitingAgent,
	}, nil
}

func (m Messages) List(c *gin.Context) {
	resp, err := m.state(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, m.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (m Messages) Post(c *gin.Context) {
	var req struct {
		Action  string `json:"action"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid JSON body"})
		return
	}
	ctx := c.Request.Context()
	pitchID := c.Param("id")

	switch req.Action {
	case "start":
		// Only the opening is generated here; a start on a running
		// conversation just returns it.
		if m.auto {
			if err := m.respondIfOwed(ctx, pitchID, true); err != nil {
				writeErr(c, m.log, err)
				return
			}
		}

	case "message":
		content := strings.TrimSpace(html.UnescapeString(m.sanitizer.Sanitize(req.Content)))
		if len([]rune(content)) > maxMessageLen {
			writeErr(c, m.log, apperr.Validation("content", "Message is too long"))
			return
		}
		if _, err := m.engine.AddFounderMessage(ctx, pitchID, content); err != nil {
			writeErr(c, m.log, err)
			return
		}
		if m.auto {
			if err := m.respondIfOwed(ctx, pitchID, false); err != nil {
				writeErr(c, m.log, err)
				return
			}
		}

	case "respond":
		if err := m.respondIfOwed(ctx, pitchID, false); err != nil {
			writeErr(c, m.log, err)
			return
		}

	default:
		c.JSON(http.StatusBadRequest, gin.H{"err": "Invalid action"})
		return
	}

	resp, err := m.state(ctx, pitchID)
	if err != nil {
		writeErr(c, m.log, err)
		return
	}
	resp["success"] = true
	c.JSON(http.StatusOK, resp)
}

// respondIfOwed runs the engine when the agent owes a reply. With openingOnly
// it does nothing once the conversation has started. Losing a race to another
// responder is not an error.
func (m Messages) respondIfOwed(ctx context.Context, pitchID string, openingOnly bool) error {
	if openingOnly {
		msgs, err := m.store.ListMessages(ctx, pitchID)
		if err != nil {
			return err
		}
		if len(msgs) > 0 {
			return nil
		}
	}
	_, err := m.engine.Respond(ctx, pitchID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrAwaitingFounder), errors.Is(err, apperr.ErrStaleConversation):
		return nil
	case errors.Is(err, apperr.ErrAlreadyEvaluated):
		return nil
	default:
		return err
	}
}
