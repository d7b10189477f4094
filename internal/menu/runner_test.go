package menu

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/twintray/internal/action"
	"github.com/example/twintray/internal/snapshot"
)

// gateFetcher blocks each fetch until released, so tests control when cycles
// complete.
type gateFetcher struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
	snap    *snapshot.Snapshot
	err     error
}

func newGateFetcher(snap *snapshot.Snapshot) *gateFetcher {
	return &gateFetcher{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
		snap:    snap,
	}
}

func (f *gateFetcher) Fetch(ctx context.Context) (*snapshot.Snapshot, error) {
	f.mu.Lock()
	f.calls++
	snap, err := f.snap, f.err
	f.mu.Unlock()

	f.started <- struct{}{}
	select {
	case <-f.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return snap.Clone(), nil
}

func (f *gateFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *gateFetcher) set(snap *snapshot.Snapshot, err error) {
	f.mu.Lock()
	f.snap, f.err = snap, err
	f.mu.Unlock()
}

// immediateFetcher completes fetches without coordination.
type immediateFetcher struct {
	mu   sync.Mutex
	snap *snapshot.Snapshot
	err  error
}

func (f *immediateFetcher) Fetch(context.Context) (*snapshot.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.snap.Clone(), nil
}

type fakeTray struct {
	received chan UpdatePayload
}

func newFakeTray() *fakeTray {
	return &fakeTray{received: make(chan UpdatePayload, 16)}
}

func (f *fakeTray) Run(ctx context.Context, updates <-chan UpdatePayload) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			f.received <- u
		}
	}
}

type recordingDispatcher struct {
	mu     sync.Mutex
	tokens []action.Token
}

func (d *recordingDispatcher) Dispatch(_ context.Context, tok action.Token) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokens = append(d.tokens, tok)
	return nil
}

func awaitUpdate(t *testing.T, tray *fakeTray) UpdatePayload {
	t.Helper()
	select {
	case u := <-tray.received:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a tray update")
		return UpdatePayload{}
	}
}

func topLevelKeys(nodes []*Node) []string {
	keys := make([]string, len(nodes))
	for i, n := range nodes {
		keys[i] = n.Key
	}
	return keys
}

func TestRunnerPublishesBootstrapUpdate(t *testing.T) {
	fetcher := &immediateFetcher{snap: connectedSnapshot()}
	tray := newFakeTray()
	r := NewRunner(fetcher, &recordingDispatcher{}, time.Hour)
	r.tray = tray

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	u := awaitUpdate(t, tray)
	assert.Contains(t, topLevelKeys(u.Nodes), keyService)
	assert.NotEmpty(t, u.Icon)
	assert.Equal(t, "TwinTray - Connected", u.Tooltip)

	snap := r.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, snapshot.StateConnected, snap.State)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRunnerRefreshCoalesces(t *testing.T) {
	fetcher := newGateFetcher(connectedSnapshot())
	tray := newFakeTray()
	r := NewRunner(fetcher, &recordingDispatcher{}, time.Hour)
	r.tray = tray

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	// Initial cycle is in flight; pile up refresh requests behind it.
	<-fetcher.started
	r.RequestRefresh()
	r.RequestRefresh()
	r.RequestRefresh()
	fetcher.release <- struct{}{}

	// Exactly one coalesced cycle follows.
	<-fetcher.started
	fetcher.release <- struct{}{}

	select {
	case <-fetcher.started:
		t.Fatal("coalesced requests must trigger a single cycle")
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, 2, fetcher.callCount())

	cancel()
	<-done
}

func TestRunnerFetchErrorKeepsSnapshotAndDegrades(t *testing.T) {
	fetcher := newGateFetcher(connectedSnapshot())
	tray := newFakeTray()
	r := NewRunner(fetcher, &recordingDispatcher{}, time.Hour)
	r.tray = tray

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	<-fetcher.started
	fetcher.release <- struct{}{}
	first := awaitUpdate(t, tray)
	require.NotContains(t, topLevelKeys(first.Nodes), keyDegraded)

	fetcher.set(nil, errors.New("daemon busy"))
	r.RequestRefresh()
	<-fetcher.started
	fetcher.release <- struct{}{}

	degradedUpdate := awaitUpdate(t, tray)
	assert.Equal(t, keyDegraded, topLevelKeys(degradedUpdate.Nodes)[0])
	assert.Equal(t, "TwinTray - Status unavailable", degradedUpdate.Tooltip)

	snap := r.Snapshot()
	require.NotNil(t, snap, "last good snapshot survives a failed poll")
	assert.Equal(t, snapshot.StateConnected, snap.State)

	// Recovery clears the banner.
	fetcher.set(connectedSnapshot(), nil)
	r.RequestRefresh()
	<-fetcher.started
	fetcher.release <- struct{}{}

	recovered := awaitUpdate(t, tray)
	assert.NotContains(t, topLevelKeys(recovered.Nodes), keyDegraded)

	cancel()
	<-done
}

func TestRunnerNoPublishWithoutChanges(t *testing.T) {
	fetcher := newGateFetcher(connectedSnapshot())
	tray := newFakeTray()
	r := NewRunner(fetcher, &recordingDispatcher{}, time.Hour)
	r.tray = tray

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	<-fetcher.started
	fetcher.release <- struct{}{}
	awaitUpdate(t, tray)

	// Same snapshot again: nothing to publish.
	r.RequestRefresh()
	<-fetcher.started
	fetcher.release <- struct{}{}

	select {
	case u := <-tray.received:
		t.Fatalf("unexpected update with keys %v", topLevelKeys(u.Nodes))
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	<-done
}

func TestRunnerActivationDispatches(t *testing.T) {
	fetcher := &immediateFetcher{snap: connectedSnapshot()}
	disp := &recordingDispatcher{}
	r := NewRunner(fetcher, disp, time.Hour)
	tray := newFakeTray()
	r.tray = tray

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()
	awaitUpdate(t, tray)

	r.onActivate(ctx, keyService)

	require.Eventually(t, func() bool {
		disp.mu.Lock()
		defer disp.mu.Unlock()
		return len(disp.tokens) == 1
	}, 2*time.Second, 10*time.Millisecond)
	disp.mu.Lock()
	assert.Equal(t, action.KindStop, disp.tokens[0].Kind)
	disp.mu.Unlock()

	// Disabled and unknown keys are ignored.
	r.onActivate(ctx, keyUser)
	r.onActivate(ctx, "resource:nope")
	time.Sleep(50 * time.Millisecond)
	disp.mu.Lock()
	assert.Len(t, disp.tokens, 1)
	disp.mu.Unlock()

	cancel()
	<-done
}

func TestRunnerSnapshotNilBeforeFirstSuccess(t *testing.T) {
	r := NewRunner(&immediateFetcher{err: errors.New("down")}, &recordingDispatcher{}, time.Hour)
	assert.Nil(t, r.Snapshot())
}
