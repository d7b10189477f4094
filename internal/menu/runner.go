package menu

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/example/twintray/internal/action"
	"github.com/example/twintray/internal/logging"
	"github.com/example/twintray/internal/snapshot"
)

const defaultPollInterval = 10 * time.Second

// Fetcher produces snapshots of the client state.
type Fetcher interface {
	Fetch(ctx context.Context) (*snapshot.Snapshot, error)
}

// Dispatcher executes menu actions.
type Dispatcher interface {
	Dispatch(ctx context.Context, tok action.Token) error
}

// trayController renders the menu tree and reports node activations.
type trayController interface {
	Run(ctx context.Context, updates <-chan UpdatePayload) error
}

// UpdatePayload is one published tray state: an independent copy of the node
// tree plus icon and tooltip.
type UpdatePayload struct {
	Nodes   []*Node
	Icon    []byte
	Tooltip string
}

// Runner drives the poll loop: it fetches snapshots, reconciles the menu
// model and publishes updates to the tray backend. It blocks in Start until
// the context is canceled.
type Runner struct {
	interval   time.Duration
	fetcher    Fetcher
	dispatcher Dispatcher

	mu    sync.RWMutex
	model *Model
	last  *snapshot.Snapshot

	tray            trayController
	updates         chan UpdatePayload
	refreshRequests chan struct{}
}

// NewRunner constructs a Runner polling at the given interval.
func NewRunner(fetcher Fetcher, dispatcher Dispatcher, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	r := &Runner{
		interval:        interval,
		fetcher:         fetcher,
		dispatcher:      dispatcher,
		model:           NewModel(),
		updates:         make(chan UpdatePayload, 1),
		refreshRequests: make(chan struct{}, 1),
	}
	r.tray = newTrayController(r.RequestRefresh, r.onActivate)
	return r
}

// Start runs the tray backend and the poll loop until ctx is canceled.
func (r *Runner) Start(ctx context.Context) error {
	logging.Debugf("tray runner initialising with poll interval %s", r.interval)

	var trayErr <-chan error
	if r.tray != nil {
		ch := make(chan error, 1)
		trayErr = ch
		go func() {
			ch <- r.tray.Run(ctx, r.updates)
		}()
	}
	defer close(r.updates)

	r.cycle(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("TwinTray stopping")
			return ctx.Err()
		case <-ticker.C:
			r.cycle(ctx)
		case <-r.refreshRequests:
			logging.Debugf("coalesced refresh executing")
			r.cycle(ctx)
		case err := <-trayErr:
			return err
		}
	}
}

// RequestRefresh asks for an immediate poll. Requests arriving while one is
// already pending coalesce into a single extra cycle.
func (r *Runner) RequestRefresh() {
	select {
	case r.refreshRequests <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the last successful snapshot, or nil before the
// first success.
func (r *Runner) Snapshot() *snapshot.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last.Clone()
}

// cycle performs one fetch-diff-reconcile-publish pass. On a fetch failure
// the previous snapshot and menu stay in place; only the degraded banner and
// icon change.
func (r *Runner) cycle(ctx context.Context) {
	snap, err := r.fetcher.Fetch(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		log.Printf("status poll failed: %v", err)
		if r.last == nil && !r.model.Degraded() {
			// Nothing fetched yet: show a placeholder tree under the banner.
			r.model.Reconcile(snapshot.Diff(nil, &snapshot.Snapshot{State: snapshot.StateError}),
				&snapshot.Snapshot{State: snapshot.StateError})
		}
		if changed := r.model.SetDegraded(true); len(changed) > 0 {
			r.publishLocked()
		}
		return
	}

	cs := snapshot.Diff(r.last, snap)
	changed := r.model.Reconcile(cs, snap)
	changed = append(changed, r.model.SetDegraded(false)...)
	r.last = snap

	if len(changed) > 0 {
		logging.Debugf("menu reconciled, %d nodes changed", len(changed))
		r.publishLocked()
	}
}

// publishLocked pushes the current tree to the tray, dropping a stale
// pending update when the tray has not consumed it yet. Callers hold r.mu.
func (r *Runner) publishLocked() {
	update := UpdatePayload{
		Nodes:   r.model.Nodes(),
		Icon:    IconFor(r.currentState(), r.model.Degraded()),
		Tooltip: r.tooltip(),
	}

	select {
	case r.updates <- update:
	default:
		select {
		case <-r.updates:
		default:
		}
		select {
		case r.updates <- update:
		default:
		}
	}
}

func (r *Runner) currentState() snapshot.ConnectionState {
	if r.last == nil {
		return snapshot.StateError
	}
	return r.last.State
}

func (r *Runner) tooltip() string {
	if r.model.Degraded() {
		return "TwinTray - Status unavailable"
	}
	return fmt.Sprintf("TwinTray - %s", r.currentState())
}

// onActivate resolves a clicked node key to its action and dispatches it off
// the UI goroutine.
func (r *Runner) onActivate(ctx context.Context, key string) {
	r.mu.RLock()
	tok, ok := r.model.ActionFor(key)
	r.mu.RUnlock()
	if !ok || tok.Kind == action.KindNone {
		logging.Debugf("activation of %s ignored", key)
		return
	}
	if r.dispatcher == nil {
		return
	}

	go func() {
		if err := r.dispatcher.Dispatch(ctx, tok); err != nil {
			log.Printf("action %s on %s failed: %v", tok.Kind, key, err)
		}
	}()
}
