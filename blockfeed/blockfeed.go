// Package blockfeed owns the one external network connection this engine
// holds open: a WebSocket subscription to new block headers. It is the
// "sequencer feed / WS RPC client" external collaborator named out of
// scope in §1's framing — this package provides the narrow, concrete
// surface the orchestrator consumes, not a full JSON-RPC client.
//
// Grounded directly on the teacher's streams/jsonrpc/client.Client: the
// same reconnect-with-backoff run loop, the same Logger surface, the same
// "errCh closed on terminal shutdown" lifecycle — retargeted from the
// teacher's custom "defi" subscription namespace to go-ethereum's standard
// eth_subscribe("newHeads").
package blockfeed

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second

	subscribeNamespace = "eth"
	subscribeMethod    = "newHeads"
)

// Logger mirrors the teacher's streams/jsonrpc/client.Logger surface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Header is the subset of an Arbitrum L2 block header the engine needs to
// drive a refresh: its number, used both to order events and to pin the
// refresher's eth_call to the block that triggered it.
type Header struct {
	Number uint64
	Hash   [32]byte
}

// Feed delivers one Header per new block over Headers(), reconnecting with
// exponential backoff on any transport failure, exactly like the teacher's
// Client.run.
type Feed struct {
	logger   Logger
	headerCh chan Header
	errCh    chan error
}

// Dial starts the feed's connection loop in the background. The returned
// Feed remains active until ctx is cancelled.
func Dial(ctx context.Context, url string, logger Logger) *Feed {
	f := &Feed{
		logger:   logger,
		headerCh: make(chan Header, 1),
		errCh:    make(chan error, 1),
	}
	go f.run(ctx, url)
	return f
}

// Headers returns a read-only channel of newly observed block headers.
func (f *Feed) Headers() <-chan Header {
	return f.headerCh
}

// Err returns a read-only channel that is closed when the feed shuts down
// for good. The feed retries transport failures itself and never sends an
// error value on it.
func (f *Feed) Err() <-chan error {
	return f.errCh
}

func (f *Feed) run(ctx context.Context, url string) {
	defer close(f.errCh)
	reconnectDelay := initialReconnectDelay

	for {
		if ctx.Err() != nil {
			f.logger.Info("blockfeed: context canceled, shutting down")
			return
		}

		f.logger.Info("blockfeed: dialing RPC", "url", url)
		client, err := rpc.DialContext(ctx, url)
		if err != nil {
			f.logger.Error("blockfeed: dial failed, will retry", "error", err, "delay", reconnectDelay)
			if !sleepOrDone(ctx, reconnectDelay) {
				return
			}
			reconnectDelay = nextDelay(reconnectDelay)
			continue
		}

		f.logger.Info("blockfeed: connected")
		reconnectDelay = initialReconnectDelay

		err = f.subscribeAndPump(ctx, client)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				f.logger.Info("blockfeed: context canceled, shutting down")
				return
			}
			f.logger.Error("blockfeed: subscription dropped, will reconnect", "error", err, "delay", reconnectDelay)
			if !sleepOrDone(ctx, reconnectDelay) {
				return
			}
			reconnectDelay = nextDelay(reconnectDelay)
		}
	}
}

func (f *Feed) subscribeAndPump(ctx context.Context, client *rpc.Client) error {
	defer client.Close()

	rawHeaders := make(chan rawHeader)
	sub, err := client.Subscribe(ctx, subscribeNamespace, rawHeaders, subscribeMethod)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	f.logger.Info("blockfeed: subscribed to newHeads")
	for {
		select {
		case h := <-rawHeaders:
			hdr, err := h.toHeader()
			if err != nil {
				f.logger.Warn("blockfeed: dropping malformed header", "error", err)
				continue
			}
			select {
			case f.headerCh <- hdr:
			case <-ctx.Done():
				return ctx.Err()
			}
		case err := <-sub.Err():
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > maxReconnectDelay {
		return maxReconnectDelay
	}
	return d
}
