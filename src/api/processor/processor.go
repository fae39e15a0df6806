// Package processor answers pitches that are waiting on the agent, for
// deployments where HTTP requests only record founder messages.
package processor

import (
	"context"
	"errors"
	"time"

	"github.com/stake-plus/getfunded/src/api/apperr"
	"github.com/stake-plus/getfunded/src/api/conversation"
	"github.com/stake-plus/getfunded/src/api/data"
	"go.uber.org/zap"
)

const DefaultInterval = 15 * time.Second

type PendingLister interface {
	PendingPitches(ctx context.Context) ([]data.PendingPitch, error)
}

type Responder interface {
	Respond(ctx context.Context, pitchID string) (*conversation.Reply, error)
}

type Processor struct {
	store    PendingLister
	engine   Responder
	events   *data.Events
	log      *zap.Logger
	interval time.Duration
}

func New(store PendingLister, engine Responder, events *data.Events, log *zap.Logger, interval time.Duration) *Processor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{store: store, engine: engine, events: events, log: log, interval: interval}
}

// RunOnce answers every pending pitch, oldest first, and reports how many got
// a reply. A failure on one pitch does not stop the others.
func (p *Processor) RunOnce(ctx context.Context) (int, error) {
	pending, err := p.store.PendingPitches(ctx)
	if err != nil {
		return 0, err
	}
	handled := 0
	for _, pp := range pending {
		if ctx.Err() != nil {
			return handled, ctx.Err()
		}
		reply, err := p.engine.Respond(ctx, pp.ID)
		switch {
		case err == nil:
			handled++
			fields := []zap.Field{
				zap.String("pitch", pp.ID),
				zap.String("startup", pp.StartupName),
				zap.Stringer("action", reply.Action.Kind),
			}
			if reply.Verdict != nil {
				fields = append(fields, zap.Float64("score", reply.Verdict.Score), zap.Bool("funded", reply.Verdict.Funded))
			}
			p.log.Info("agent replied", fields...)
		case apperr.IsConflict(err):
			// Someone else answered between the scan and now.
			p.log.Debug("pitch no longer pending", zap.String("pitch", pp.ID), zap.Error(err))
		default:
			p.log.Warn("agent reply failed", zap.String("pitch", pp.ID), zap.Error(err))
		}
	}
	return handled, nil
}

// Run rescans after every event on the stream, or every interval without one,
// until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	p.log.Info("processor started", zap.Duration("interval", p.interval))
	lastID := "$"
	for {
		if _, err := p.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.log.Error("scan pending pitches", zap.Error(err))
		}

		next, err := p.events.Wait(ctx, lastID, p.interval)
		if ctx.Err() != nil {
			p.log.Info("processor stopped")
			return nil
		}
		if err != nil {
			p.log.Warn("event stream wait", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.interval):
			}
			continue
		}
		lastID = next
	}
}
