package funding

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stake-plus/getfunded/src/api/apperr"
	"github.com/stake-plus/getfunded/src/api/chain"
	"github.com/stake-plus/getfunded/src/api/data"
	"github.com/stake-plus/getfunded/src/api/types"
	"go.uber.org/zap"
)

// DefaultConfirmTimeout bounds how long a claim request waits for a receipt.
const DefaultConfirmTimeout = 2 * time.Minute

// Chain signs, submits and confirms token transfers.
type Chain interface {
	PrepareTransfer(ctx context.Context, to string, units *big.Int) (*chain.Transfer, error)
	Broadcast(ctx context.Context, raw []byte) error
	WaitConfirmed(ctx context.Context, hash string) error
}

// Announcer is told about every confirmed payout.
type Announcer interface {
	Funded(ctx context.Context, p *types.Pitch, amount int) error
}

type Result struct {
	TxHash  string
	Amount  int
	Message string
}

type Disburser struct {
	// payMu serializes signing and broadcasting. Transfers take the payer's
	// pending nonce, so a second signature must wait until the first
	// transfer reached the node.
	payMu sync.Mutex

	store          *data.Store
	chain          Chain
	events         *data.Events
	announcer      Announcer
	log            *zap.Logger
	confirmTimeout time.Duration
	now            func() time.Time
}

type Option func(*Disburser)

func WithEvents(e *data.Events) Option { return func(d *Disburser) { d.events = e } }

func WithAnnouncer(a Announcer) Option { return func(d *Disburser) { d.announcer = a } }

func WithConfirmTimeout(t time.Duration) Option {
	return func(d *Disburser) {
		if t > 0 {
			d.confirmTimeout = t
		}
	}
}

// NewDisburser builds the payout flow. c may be nil when no payer wallet is
// configured; claims then fail with apperr.ErrPayerNotConfigured.
func NewDisburser(store *data.Store, c Chain, log *zap.Logger, opts ...Option) *Disburser {
	d := &Disburser{
		store:          store,
		chain:          c,
		log:            log,
		confirmTimeout: DefaultConfirmTimeout,
		now:            time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
	return d
}

// Units converts whole USD into the token's smallest unit.
func Units(amount int) *big.Int {
	return decimal.NewFromInt(int64(amount)).Shift(chain.TokenDecimals).BigInt()
}

// Disburse pays a funded pitch exactly once. The transfer is signed and
// recorded in the ledger before it is broadcast, so a retried request
// rebroadcasts the same transaction rather than creating a second one.
func (d *Disburser) Disburse(ctx context.Context, pitchID, wallet string) (*Result, error) {
	wallet = strings.TrimSpace(wallet)
	if !chain.ValidAddress(wallet) {
		return nil, apperr.Validation("walletAddress", "Invalid wallet address")
	}

	p, err := d.store.GetPitch(ctx, pitchID)
	if err != nil {
		return nil, err
	}
	if p.Status != types.StatusFunded {
		return nil, apperr.ErrNotFunded
	}
	if p.TxHash != nil {
		return nil, apperr.ErrAlreadyClaimed
	}
	if d.chain == nil {
		return nil, apperr.ErrPayerNotConfigured
	}

	score := 8.0
	if p.Score != nil {
		score = *p.Score
	}
	amount := Amount(score)

	row, err := d.submit(ctx, p.ID, wallet, amount)
	if err != nil {
		return nil, err
	}
	log := d.log.With(zap.String("pitch", p.ID), zap.String("tx", row.TxHash), zap.Int("amount", amount))

	wctx, cancel := context.WithTimeout(ctx, d.confirmTimeout)
	err = d.chain.WaitConfirmed(wctx, row.TxHash)
	cancel()
	switch {
	case errors.Is(err, chain.ErrReverted):
		log.Warn("transfer reverted")
		if merr := d.store.MarkDisbursementFailed(ctx, p.ID, row.TxHash); merr != nil {
			log.Error("mark disbursement failed", zap.Error(merr))
		}
		return nil, apperr.Upstream("Transfer reverted, please retry", err)
	case err != nil:
		log.Warn("transfer not confirmed", zap.Error(err))
		return nil, apperr.Upstream("Transfer submitted but not yet confirmed, retry to check again", err)
	}

	at := d.now().UTC()
	if err := d.store.RecordFunding(ctx, p.ID, wallet, row.TxHash, at); err != nil {
		return nil, err
	}
	log.Info("pitch funded", zap.String("wallet", wallet))

	p.WalletAddress, p.TxHash, p.FundedAt = &wallet, &row.TxHash, &at
	d.notify(ctx, p, amount)

	return &Result{
		TxHash:  row.TxHash,
		Amount:  amount,
		Message: fmt.Sprintf("$%d USDC sent successfully!", amount),
	}, nil
}

// submit claims the ledger row and broadcasts its transfer. A stored transfer
// whose nonce was taken by another payout is marked failed and signed again.
func (d *Disburser) submit(ctx context.Context, pitchID, wallet string, amount int) (*types.Disbursement, error) {
	d.payMu.Lock()
	defer d.payMu.Unlock()

	for attempt := 0; ; attempt++ {
		row, err := d.claim(ctx, pitchID, wallet, amount, Units(amount))
		if err != nil {
			return nil, err
		}
		err = d.chain.Broadcast(ctx, row.RawTx)
		if err == nil {
			return row, nil
		}
		log := d.log.With(zap.String("pitch", pitchID), zap.String("tx", row.TxHash))
		if !errors.Is(err, chain.ErrNonceSpent) || attempt > 0 {
			log.Warn("broadcast failed", zap.Error(err))
			return nil, apperr.Upstream("Failed to process funding", err)
		}
		log.Warn("transfer nonce spent, signing again", zap.Error(err))
		if err := d.store.MarkDisbursementFailed(ctx, pitchID, row.TxHash); err != nil {
			return nil, err
		}
	}
}

// claim returns the ledger row this request should drive to confirmation,
// creating it if the pitch has none yet.
func (d *Disburser) claim(ctx context.Context, pitchID, wallet string, amount int, units *big.Int) (*types.Disbursement, error) {
	existing, err := d.store.GetDisbursement(ctx, pitchID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		row, err := d.prepare(ctx, pitchID, wallet, amount, units)
		if err != nil {
			return nil, err
		}
		ok, err := d.store.ReserveDisbursement(ctx, row)
		if err != nil {
			return nil, err
		}
		if ok {
			return row, nil
		}
		// Lost the insert race; continue with whatever the winner recorded.
		if existing, err = d.store.GetDisbursement(ctx, pitchID); err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, apperr.ErrAlreadyClaimed
		}
	}

	if !strings.EqualFold(existing.WalletAddress, wallet) {
		return nil, apperr.ErrAlreadyClaimed
	}
	switch existing.State {
	case types.DisbursementSubmitted:
		return existing, nil
	case types.DisbursementFailed:
		row, err := d.prepare(ctx, pitchID, wallet, amount, units)
		if err != nil {
			return nil, err
		}
		ok, err := d.store.ReplaceFailedDisbursement(ctx, row)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.ErrAlreadyClaimed
		}
		row.State = types.DisbursementSubmitted
		return row, nil
	default:
		return nil, apperr.ErrAlreadyClaimed
	}
}

func (d *Disburser) prepare(ctx context.Context, pitchID, wallet string, amount int, units *big.Int) (*types.Disbursement, error) {
	tr, err := d.chain.PrepareTransfer(ctx, wallet, units)
	if err != nil {
		return nil, apperr.Upstream("Failed to process funding", err)
	}
	return &types.Disbursement{
		PitchID:       pitchID,
		WalletAddress: wallet,
		AmountUSD:     amount,
		Units:         units.String(),
		TxHash:        tr.Hash,
		RawTx:         tr.Raw,
	}, nil
}

func (d *Disburser) notify(ctx context.Context, p *types.Pitch, amount int) {
	if err := d.events.Publish(ctx, data.EventFunded, p.ID, map[string]any{
		"tx":     *p.TxHash,
		"amount": amount,
	}); err != nil {
		d.log.Warn("publish funded event", zap.String("pitch", p.ID), zap.Error(err))
	}
	if d.announcer == nil {
		return
	}
	if err := d.announcer.Funded(ctx, p, amount); err != nil {
		d.log.Warn("announce funding", zap.String("pitch", p.ID), zap.Error(err))
	}
}
