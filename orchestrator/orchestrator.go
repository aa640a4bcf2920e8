// Package orchestrator is the engine's single core-pinned worker: it owns
// the Graph exclusively, drains two SPSC event queues (block headers and
// pending-tx swaps) with block events always preempting pending-tx events,
// and hands any opportunity found to a bounded, non-blocking outbox for a
// separate I/O worker to dispatch. This is §5's concurrency model and §4's
// single-threaded, no-global-state design note (9.1) realized as one type.
//
// Grounded on the teacher's chains/ethereum.Client: a dedicated run
// goroutine, a select loop over multiple channels plus ctx.Done(), and a
// bounded output channel the caller drains independently of the worker's
// own pace. The teacher's loop fans data out to one consumer; this one
// fans two producers in, prioritized, onto one consumer — the same
// select-loop idiom, turned around.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fulcrum-dex/fulcrum/affinity"
	"github.com/fulcrum-dex/fulcrum/blockfeed"
	"github.com/fulcrum-dex/fulcrum/domain"
	"github.com/fulcrum-dex/fulcrum/graph"
	"github.com/fulcrum-dex/fulcrum/simulator"
	"github.com/fulcrum-dex/fulcrum/telemetry"
)

// Logger mirrors the rest of the engine's minimal leveled-logging surface.
type Logger = telemetry.Logger

// Refresher is the collaborator invoked at every block boundary. Satisfied
// by *refresher.Refresher; narrowed to an interface here so orchestrator
// doesn't import the concrete RPC-calling type.
type Refresher interface {
	Refresh(ctx context.Context, g *graph.Graph, blockNumber uint64) error
}

// Searcher is an alias of simulator.Searcher, re-exported so this package's
// public surface is self-describing; it is satisfied by the same
// *search.Search the simulator package expects.
type Searcher = simulator.Searcher

// Dispatched is what the worker hands to the outbox: a found opportunity
// plus the block it was found against, for staleness checks downstream.
type Dispatched struct {
	Opportunity simulator.Opportunity
	BlockNumber uint64
	FoundAt     time.Time
}

// Config holds the worker's tuning knobs; its collaborators are passed to
// New separately. None of it is mutated after New, so it is safe to read from the worker goroutine
// without synchronization.
// The per-event search deadline is not duplicated here: it lives on
// search.Config.Deadline, since the Searcher owns the only clock that
// matters on this path.
type Config struct {
	CorePin            int
	BlockQueueDepth    int
	PendingTxQueueSize int
	OutboxQueueSize    int
}

// Worker is the single-threaded event loop. It is not safe to call Run more
// than once. SubmitBlock, SubmitPendingSwap and Outbox only touch channels
// and may be called from any goroutine; all graph access happens on the one
// goroutine that calls Run.
type Worker struct {
	cfg       Config
	logger    Logger
	metrics   *telemetry.Metrics
	refresher Refresher
	searcher  Searcher

	blockQueue   chan blockfeed.Header
	pendingQueue chan simulator.PendingSwap
	outbox       chan Dispatched
}

// New builds a Worker. The engine's single authoritative graph is passed to
// Run, and is owned exclusively by the worker goroutine from then on.
func New(cfg Config, logger Logger, metrics *telemetry.Metrics, refresher Refresher, searcher Searcher) *Worker {
	return &Worker{
		cfg:          cfg,
		logger:       logger,
		metrics:      metrics,
		refresher:    refresher,
		searcher:     searcher,
		blockQueue:   make(chan blockfeed.Header, cfg.BlockQueueDepth),
		pendingQueue: make(chan simulator.PendingSwap, cfg.PendingTxQueueSize),
		outbox:       make(chan Dispatched, cfg.OutboxQueueSize),
	}
}

// SubmitBlock enqueues a new block header, non-blocking: if the block
// queue is somehow already full (the worker has fallen catastrophically
// behind), the header is dropped and logged rather than blocking the
// feed's own goroutine.
func (w *Worker) SubmitBlock(h blockfeed.Header) {
	select {
	case w.blockQueue <- h:
	default:
		w.logger.Warn("orchestrator: block queue full, dropping header", "block", h.Number)
	}
}

// SubmitPendingSwap enqueues a pending-tx event, non-blocking for the same
// reason as SubmitBlock.
func (w *Worker) SubmitPendingSwap(s simulator.PendingSwap) {
	select {
	case w.pendingQueue <- s:
	default:
		w.metrics.Drop(telemetry.DropQueueFull)
		w.logger.Warn("orchestrator: pending-tx queue full, dropping event")
	}
}

// Outbox is the channel a separate I/O worker drains to dispatch found
// opportunities. It is never closed while Run is active; it closes only
// once Run returns.
func (w *Worker) Outbox() <-chan Dispatched {
	return w.outbox
}

// Run pins the calling goroutine to its configured core and processes
// events until ctx is cancelled. It must be invoked as the worker
// goroutine's entry point, not called from an already-running goroutine
// that does other work.
func (w *Worker) Run(ctx context.Context, g *graph.Graph) error {
	if err := affinity.Pin(w.cfg.CorePin); err != nil {
		w.logger.Warn("orchestrator: failed to pin worker to core, continuing unpinned", "core", w.cfg.CorePin, "error", err)
	}
	defer close(w.outbox)

	var lastBlock uint64

	for {
		// Block events always preempt pending-tx events (§5): drain every
		// queued header before processing a single pending swap, so a
		// pending-tx event between two blocks is only ever evaluated
		// against the earlier block's authoritative state.
		select {
		case h := <-w.blockQueue:
			w.handleBlock(ctx, g, h)
			lastBlock = h.Number
			continue
		default:
		}

		select {
		case h := <-w.blockQueue:
			w.handleBlock(ctx, g, h)
			lastBlock = h.Number
		case swap := <-w.pendingQueue:
			w.handlePendingSwap(ctx, g, swap, lastBlock)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Worker) handleBlock(ctx context.Context, g *graph.Graph, h blockfeed.Header) {
	w.metrics.BlockEventsTotal.Inc()
	start := time.Now()

	if err := w.refresher.Refresh(ctx, g, h.Number); err != nil {
		w.metrics.RefreshFailures.Inc()
		w.logger.Error("orchestrator: refresh failed", "block", h.Number, "error", err)
		return
	}

	w.metrics.RefreshLatency.Observe(time.Since(start).Seconds())
	w.logger.Debug("orchestrator: refreshed graph", "block", h.Number, "elapsed_ms", time.Since(start).Milliseconds())
}

func (w *Worker) handlePendingSwap(ctx context.Context, g *graph.Graph, swap simulator.PendingSwap, lastBlock uint64) {
	w.metrics.PendingTxEventsTotal.Inc()
	start := time.Now()

	outcome, err := simulator.Simulate(g, swap, w.searcher)
	w.metrics.SearchLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		// A soft search error (e.g. the deadline elapsed mid-grid) still
		// carries a best-so-far Opportunity worth dispatching; only log and
		// bail out here when there is nothing to show for it.
		w.logger.Warn("orchestrator: simulate reported an error", "error", err, "pool", swap.PoolAddress)
		if outcome.Opportunity == nil {
			return
		}
	}
	if !outcome.Applied || outcome.Opportunity == nil {
		return
	}

	dispatched := Dispatched{
		Opportunity: *outcome.Opportunity,
		BlockNumber: lastBlock,
		FoundAt:     time.Now(),
	}

	select {
	case w.outbox <- dispatched:
		w.metrics.DispatchedTotal.Inc()
	default:
		w.metrics.Drop(telemetry.DropQueueFull)
		w.logger.Warn("orchestrator: outbox full, dropping found opportunity")
	}
}

// HotTokensFor is a small helper exposed for tests and for callers building
// PendingSwap events from raw sequencer-feed frames, resolving the two
// tokens a swap touches without needing the full simulator package.
func HotTokensFor(g *graph.Graph, poolAddr common.Address, tokenIn domain.TokenID) ([]domain.TokenID, error) {
	id, ok := g.FindPool(poolAddr)
	if !ok {
		return nil, fmt.Errorf("orchestrator: pool %s not in universe", poolAddr)
	}
	return []domain.TokenID{tokenIn, g.OtherToken(id, tokenIn)}, nil
}
