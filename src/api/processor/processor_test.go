package processor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stake-plus/getfunded/src/api/apperr"
	"github.com/stake-plus/getfunded/src/api/conversation"
	"github.com/stake-plus/getfunded/src/api/data"
	"github.com/stake-plus/getfunded/src/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeStore struct {
	mu    sync.Mutex
	ids   []string
	scans int
}

func (f *fakeStore) PendingPitches(context.Context) ([]data.PendingPitch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	out := make([]data.PendingPitch, len(f.ids))
	for i, id := range f.ids {
		out[i] = data.PendingPitch{Pitch: types.Pitch{ID: id}}
	}
	return out, nil
}

func (f *fakeStore) scanCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans
}

type fakeEngine struct {
	mu    sync.Mutex
	seen  []string
	errOn map[string]error
}

func (f *fakeEngine) Respond(_ context.Context, id string) (*conversation.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, id)
	if err := f.errOn[id]; err != nil {
		return nil, err
	}
	return &conversation.Reply{Action: conversation.Action{Kind: conversation.ActionOpening}}, nil
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	store := &fakeStore{ids: []string{"a", "b", "c", "d"}}
	eng := &fakeEngine{errOn: map[string]error{
		"b": apperr.Upstream("down", errors.New("timeout")),
		"c": apperr.ErrAwaitingFounder,
	}}

	n, err := New(store, eng, nil, nil, time.Second).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "b", "c", "d"}, eng.seen)
}

func TestRunStopsOnCancel(t *testing.T) {
	store := &fakeStore{ids: []string{"a"}}
	eng := &fakeEngine{}
	p := New(store, eng, data.NewEvents(nil), nil, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return store.scanCount() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
