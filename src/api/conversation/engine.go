// Package conversation drives the founder/VC exchange: an opening reaction,
// up to MaxFounderTurns probing questions, then a final reply carrying the
// verdict.
package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/stake-plus/getfunded/src/ai/core"
	"github.com/stake-plus/getfunded/src/api/apperr"
	"github.com/stake-plus/getfunded/src/api/data"
	"github.com/stake-plus/getfunded/src/api/types"
	"github.com/stake-plus/getfunded/src/api/verdict"
	"github.com/stake-plus/getfunded/src/logging"
	"go.uber.org/zap"
)

const DefaultTimeout = 90 * time.Second

type Config struct {
	// Options are passed to every generation call; SystemPrompt is ignored.
	Options core.Options
	Timeout time.Duration
	// PersonaOverride replaces the agent's stored personality prompt when set.
	PersonaOverride string
}

type Engine struct {
	store  *data.Store
	ai     core.Client
	events *data.Events
	log    *zap.Logger
	cfg    Config
}

func NewEngine(store *data.Store, ai core.Client, events *data.Events, log *zap.Logger, cfg Config) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, ai: ai, events: events, log: log, cfg: cfg}
}

// Reply is the outcome of one agent turn. Verdict is set only when the final
// turn carried a valid verdict block.
type Reply struct {
	Action  Action
	Message *types.ChatMessage
	Verdict *verdict.Verdict
}

// Respond produces the agent's next message for a pitch that is waiting on it.
func (e *Engine) Respond(ctx context.Context, pitchID string) (*Reply, error) {
	p, err := e.store.GetPitch(ctx, pitchID)
	if err != nil {
		return nil, err
	}
	if p.Terminal() {
		return nil, apperr.ErrAlreadyEvaluated
	}
	history, err := e.store.ListMessages(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	action := NextAction(history)
	if action.Kind == ActionNone {
		return nil, apperr.ErrAwaitingFounder
	}

	persona, err := e.persona(ctx, p)
	if err != nil {
		return nil, err
	}
	opts := e.cfg.Options
	opts.SystemPrompt = systemPrompt(persona, action)

	log := e.log.With(zap.String("pitch", p.ID), zap.Stringer("action", action.Kind))

	gctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	text, err := e.ai.Chat(gctx, buildMessages(p, history), opts)
	cancel()
	if err != nil {
		if logging.IsRateLimit(err) {
			log.Warn("generation rate limited", zap.Error(err))
		} else {
			log.Error("generation failed", zap.Error(err))
		}
		return nil, apperr.Upstream("The VC is unavailable right now, try again shortly", err)
	}

	afterID := ""
	if n := len(history); n > 0 {
		afterID = history[n-1].ID
	}
	reply := &Reply{Action: action}

	if action.Kind == ActionFinal {
		if v, ok := verdict.Parse(text); ok {
			clean := verdict.Strip(text)
			if clean == "" {
				clean = v.Feedback
			}
			msg, err := e.store.ApplyVerdict(ctx, p.ID, data.VerdictUpdate{
				Score:     v.Score,
				Valuation: v.Valuation,
				Feedback:  v.Feedback,
				Funded:    v.Funded,
			}, clean)
			if err != nil {
				return nil, err
			}
			log.Info("verdict recorded", zap.Float64("score", v.Score), zap.Bool("funded", v.Funded), zap.Bool("flag", v.Flag))
			e.publish(ctx, data.EventVerdict, p.ID, map[string]any{"score": v.Score, "funded": v.Funded})
			reply.Message, reply.Verdict = msg, &v
			return reply, nil
		}
		log.Warn("final reply carried no valid verdict, pitch stays pending")
	}

	// Opening and probe turns never carry a verdict; drop one if the model
	// volunteered it early.
	clean := verdict.Strip(text)
	if strings.TrimSpace(clean) == "" {
		return nil, apperr.Upstream("The VC is unavailable right now, try again shortly", errEmptyReply)
	}
	msg, err := e.store.AppendMessageAfter(ctx, p.ID, types.RoleVC, clean, afterID)
	if err != nil {
		return nil, err
	}
	e.publish(ctx, data.EventMessage, p.ID, map[string]any{"role": types.RoleVC})
	reply.Message = msg
	return reply, nil
}

// AddFounderMessage appends a founder reply. It is rejected while the agent
// owes a reply or once the pitch has a verdict.
func (e *Engine) AddFounderMessage(ctx context.Context, pitchID, content string) (*types.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("content", "Message is required")
	}
	p, err := e.store.GetPitch(ctx, pitchID)
	if err != nil {
		return nil, err
	}
	if p.Terminal() {
		return nil, apperr.ErrAlreadyEvaluated
	}
	history, err := e.store.ListMessages(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if PhaseOf(history).AwaitingAgent {
		return nil, apperr.ErrAwaitingAgent
	}

	msg, err := e.store.AppendMessageAfter(ctx, p.ID, types.RoleFounder, content, history[len(history)-1].ID)
	if err != nil {
		return nil, err
	}
	e.publish(ctx, data.EventMessage, p.ID, map[string]any{"role": types.RoleFounder})
	return msg, nil
}

func (e *Engine) persona(ctx context.Context, p *types.Pitch) (string, error) {
	if e.cfg.PersonaOverride != "" {
		return e.cfg.PersonaOverride, nil
	}
	agent, err := e.store.GetAgent(ctx, p.VcAgentID)
	if apperr.IsNotFound(err) && p.VcAgentID != types.DefaultAgentID {
		agent, err = e.store.GetAgent(ctx, types.DefaultAgentID)
	}
	if err != nil {
		return "", err
	}
	return agent.PersonalityPrompt, nil
}

func (e *Engine) publish(ctx context.Context, kind, pitchID string, fields map[string]any) {
	if err := e.events.Publish(ctx, kind, pitchID, fields); err != nil {
		e.log.Warn("publish event", zap.String("kind", kind), zap.String("pitch", pitchID), zap.Error(err))
	}
}
