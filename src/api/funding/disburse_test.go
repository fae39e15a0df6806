package funding

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stake-plus/getfunded/src/api/apperr"
	"github.com/stake-plus/getfunded/src/api/chain"
	"github.com/stake-plus/getfunded/src/api/data"
	"github.com/stake-plus/getfunded/src/api/data/datatest"
	"github.com/stake-plus/getfunded/src/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	walletA = "0x1111111111111111111111111111111111111111"
	walletB = "0x2222222222222222222222222222222222222222"
)

// fakeChain hands out the pending nonce the way PendingNonceAt does: the
// number of transfers the node has accepted so far.
type fakeChain struct {
	mu         sync.Mutex
	prepared   int
	units      []*big.Int
	broadcasts []string
	waits      []error

	nonces   map[string]uint64
	accepted map[string]bool
	pending  uint64
}

func (f *fakeChain) PrepareTransfer(_ context.Context, to string, units *big.Int) (*chain.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nonces == nil {
		f.nonces, f.accepted = map[string]uint64{}, map[string]bool{}
	}
	f.prepared++
	f.units = append(f.units, units)
	hash := fmt.Sprintf("0x%064x", f.prepared)
	f.nonces[hash] = f.pending
	return &chain.Transfer{Hash: hash, Raw: []byte(hash)}, nil
}

func (f *fakeChain) Broadcast(_ context.Context, raw []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	hash := string(raw)
	f.broadcasts = append(f.broadcasts, hash)
	nonce, ok := f.nonces[hash]
	switch {
	case !ok:
		return fmt.Errorf("unknown transfer %s", hash)
	case f.accepted[hash]:
		return nil
	case nonce < f.pending:
		return fmt.Errorf("%w: nonce too low", chain.ErrNonceSpent)
	case nonce > f.pending:
		return fmt.Errorf("nonce gap: have %d, want %d", nonce, f.pending)
	}
	f.accepted[hash] = true
	f.pending++
	return nil
}

// WaitConfirmed pops scripted results; an empty script confirms.
func (f *fakeChain) WaitConfirmed(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.waits) == 0 {
		return nil
	}
	err := f.waits[0]
	f.waits = f.waits[1:]
	return err
}

func (f *fakeChain) distinctBroadcasts() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int{}
	for _, b := range f.broadcasts {
		out[b]++
	}
	return out
}

type recordingAnnouncer struct {
	mu    sync.Mutex
	calls []int
}

func (r *recordingAnnouncer) Funded(_ context.Context, _ *types.Pitch, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, amount)
	return nil
}

func seedPitch(t *testing.T, s *data.Store, score float64, funded bool) *types.Pitch {
	t.Helper()
	ctx := context.Background()
	p := &types.Pitch{
		StartupName: "Beacon", OneLiner: "Light", Problem: "p", Solution: "s",
		Market: "m", Traction: "t", Team: "t", Ask: "a", TwitterHandle: "x", Email: "x@y.z",
	}
	require.NoError(t, s.CreatePitch(ctx, p))
	_, err := s.ApplyVerdict(ctx, p.ID, data.VerdictUpdate{Score: score, Valuation: "$1M", Feedback: "ok", Funded: funded}, "done")
	require.NoError(t, err)
	return p
}

func newDisburser(s *data.Store, c Chain, opts ...Option) *Disburser {
	opts = append([]Option{WithConfirmTimeout(time.Second)}, opts...)
	return NewDisburser(s, c, zap.NewNop(), opts...)
}

func TestDisburseFundedPitch(t *testing.T) {
	ctx := context.Background()
	s := datatest.NewStore(t)
	fc := &fakeChain{}
	ann := &recordingAnnouncer{}
	p := seedPitch(t, s, 8.5, true)

	res, err := newDisburser(s, fc, WithAnnouncer(ann)).Disburse(ctx, p.ID, walletA)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Amount)
	assert.Equal(t, "$3 USDC sent successfully!", res.Message)
	require.Len(t, fc.units, 1)
	assert.Equal(t, "3000000", fc.units[0].String())

	got, err := s.GetPitch(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, res.TxHash, *got.TxHash)
	assert.Equal(t, walletA, *got.WalletAddress)
	assert.NotNil(t, got.FundedAt)

	row, err := s.GetDisbursement(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DisbursementConfirmed, row.State)
	assert.Equal(t, []int{3}, ann.calls)
}

func TestDisburseRejectedPitch(t *testing.T) {
	s := datatest.NewStore(t)
	fc := &fakeChain{}
	p := seedPitch(t, s, 4, false)

	_, err := newDisburser(s, fc).Disburse(context.Background(), p.ID, walletA)
	assert.ErrorIs(t, err, apperr.ErrNotFunded)
	assert.Equal(t, http.StatusConflict, apperr.Status(err))
	assert.Zero(t, fc.prepared)
}

func TestDisburseSecondWalletRejected(t *testing.T) {
	ctx := context.Background()
	s := datatest.NewStore(t)
	fc := &fakeChain{}
	p := seedPitch(t, s, 9.5, true)
	d := newDisburser(s, fc)

	first, err := d.Disburse(ctx, p.ID, walletA)
	require.NoError(t, err)

	_, err = d.Disburse(ctx, p.ID, walletB)
	assert.ErrorIs(t, err, apperr.ErrAlreadyClaimed)

	got, err := s.GetPitch(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, first.TxHash, *got.TxHash)
	assert.Equal(t, walletA, *got.WalletAddress)
	assert.Equal(t, 1, fc.prepared)
}

func TestDisburseValidationAndConfig(t *testing.T) {
	ctx := context.Background()
	s := datatest.NewStore(t)
	p := seedPitch(t, s, 9, true)

	_, err := newDisburser(s, &fakeChain{}).Disburse(ctx, p.ID, "0x123")
	assert.True(t, apperr.IsValidation(err))

	_, err = newDisburser(s, &fakeChain{}).Disburse(ctx, "missing", walletA)
	assert.True(t, apperr.IsNotFound(err))

	_, err = newDisburser(s, nil).Disburse(ctx, p.ID, walletA)
	assert.ErrorIs(t, err, apperr.ErrPayerNotConfigured)
	assert.Equal(t, http.StatusServiceUnavailable, apperr.Status(err))

	got, err := s.GetPitch(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TxHash)
}

func TestDisburseResumesSameTransfer(t *testing.T) {
	ctx := context.Background()
	s := datatest.NewStore(t)
	fc := &fakeChain{waits: []error{context.DeadlineExceeded}}
	p := seedPitch(t, s, 10, true)
	d := newDisburser(s, fc)

	_, err := d.Disburse(ctx, p.ID, walletA)
	assert.True(t, apperr.IsUpstream(err))

	got, err := s.GetPitch(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TxHash)

	res, err := d.Disburse(ctx, p.ID, walletA)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Amount)
	assert.Equal(t, 1, fc.prepared)
	assert.Equal(t, map[string]int{res.TxHash: 2}, fc.distinctBroadcasts())
}

func TestDisburseReplacesRevertedTransfer(t *testing.T) {
	ctx := context.Background()
	s := datatest.NewStore(t)
	fc := &fakeChain{waits: []error{chain.ErrReverted}}
	p := seedPitch(t, s, 9.1, true)
	d := newDisburser(s, fc)

	_, err := d.Disburse(ctx, p.ID, walletA)
	assert.True(t, apperr.IsUpstream(err))

	row, err := s.GetDisbursement(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DisbursementFailed, row.State)
	reverted := row.TxHash

	res, err := d.Disburse(ctx, p.ID, walletA)
	require.NoError(t, err)
	assert.NotEqual(t, reverted, res.TxHash)
	assert.Equal(t, 2, fc.prepared)

	row, err = s.GetDisbursement(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DisbursementConfirmed, row.State)
	assert.Equal(t, res.TxHash, row.TxHash)
}

func TestDisburseConcurrentClaims(t *testing.T) {
	for _, wallets := range [][]string{{walletA}, {walletA, walletB}} {
		t.Run(fmt.Sprintf("%d wallets", len(wallets)), func(t *testing.T) {
			ctx := context.Background()
			s := datatest.NewStore(t)
			fc := &fakeChain{}
			p := seedPitch(t, s, 9.0, true)
			d := newDisburser(s, fc)

			const n = 8
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes []string
				conflicts int
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					res, err := d.Disburse(ctx, p.ID, wallets[i%len(wallets)])
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						successes = append(successes, res.TxHash)
						return
					}
					if apperr.IsConflict(err) {
						conflicts++
						return
					}
					t.Errorf("unexpected error: %v", err)
				}(i)
			}
			wg.Wait()

			require.Len(t, successes, 1)
			assert.Equal(t, n-1, conflicts)
			assert.Len(t, fc.distinctBroadcasts(), 1)

			got, err := s.GetPitch(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, successes[0], *got.TxHash)
		})
	}
}

func TestDisburseManyPitchesTakeDistinctNonces(t *testing.T) {
	ctx := context.Background()
	s := datatest.NewStore(t)
	fc := &fakeChain{}
	d := newDisburser(s, fc)

	const n = 6
	pitches := make([]*types.Pitch, n)
	for i := range pitches {
		pitches[i] = seedPitch(t, s, 9.0, true)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, p := range pitches {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = d.Disburse(ctx, id, walletA)
		}(i, p.ID)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "pitch %d", i)
	}
	assert.Equal(t, n, fc.prepared)
	assert.Equal(t, uint64(n), fc.pending)
	for _, p := range pitches {
		got, err := s.GetPitch(ctx, p.ID)
		require.NoError(t, err)
		assert.NotNil(t, got.TxHash)
	}
}

func TestDisburseResignsWhenNonceTakenByAnotherPayout(t *testing.T) {
	ctx := context.Background()
	s := datatest.NewStore(t)
	fc := &fakeChain{}
	d := newDisburser(s, fc)
	first := seedPitch(t, s, 8.0, true)
	second := seedPitch(t, s, 9.0, true)

	// The second pitch's transfer was signed and recorded, then never reached
	// the node before the first payout took the same nonce.
	stale, err := fc.PrepareTransfer(ctx, walletB, Units(1))
	require.NoError(t, err)
	ok, err := s.ReserveDisbursement(ctx, &types.Disbursement{
		PitchID: second.ID, WalletAddress: walletB, AmountUSD: 1,
		Units: Units(1).String(), TxHash: stale.Hash, RawTx: stale.Raw,
	})
	require.NoError(t, err)
	require.True(t, ok)

	_, err = d.Disburse(ctx, first.ID, walletA)
	require.NoError(t, err)

	res, err := d.Disburse(ctx, second.ID, walletB)
	require.NoError(t, err)
	assert.NotEqual(t, stale.Hash, res.TxHash)
	assert.Equal(t, 3, fc.prepared)

	got, err := s.GetPitch(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, res.TxHash, *got.TxHash)
	row, err := s.GetDisbursement(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DisbursementConfirmed, row.State)
	assert.Equal(t, res.TxHash, row.TxHash)
}
