// Package engine runs a single-instrument matcher. One goroutine owns both sides
// of the book, and every request is executed on it in arrival order.
package engine

import (
	"context"
	"errors"
	"fmt"

	"matchbook/internal/book"
	"matchbook/internal/common"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const defaultInboxSize = 100

var ErrEngineStopped = errors.New("engine stopped")

// Reporter receives every trade the engine produces, in order.
type Reporter interface {
	ReportTrade(trade common.Trade) error
}

type nopReporter struct{}

func (nopReporter) ReportTrade(common.Trade) error { return nil }

// Result describes what happened to a submitted order.
type Result struct {
	Order  common.Order   // The order with its unfilled remainder
	Trades []common.Trade // Trades in execution order
	Rested bool           // Whether the remainder now rests in the book
}

// Snapshot is a copy of both sides, best levels first.
type Snapshot struct {
	Bids []book.Level
	Asks []book.Level
}

type Engine struct {
	bids     *book.Book
	asks     *book.Book
	reporter Reporter

	inboxSize int
	inbox     chan func()
	tomb      *tomb.Tomb
}

type Option func(*Engine)

func WithInboxSize(size int) Option {
	return func(engine *Engine) {
		engine.inboxSize = size
	}
}

func WithReporter(reporter Reporter) Option {
	return func(engine *Engine) {
		engine.reporter = reporter
	}
}

func New(opts ...Option) *Engine {
	engine := &Engine{
		bids:      book.New(common.Buy),
		asks:      book.New(common.Sell),
		reporter:  nopReporter{},
		inboxSize: defaultInboxSize,
	}
	for _, opt := range opts {
		opt(engine)
	}
	engine.inbox = make(chan func(), engine.inboxSize)
	return engine
}

// Start runs the engine loop on t until t starts dying.
func (engine *Engine) Start(t *tomb.Tomb) {
	engine.tomb = t
	t.Go(engine.run)
}

func (engine *Engine) run() error {
	log.Info().Msg("engine running")
	for {
		select {
		case <-engine.tomb.Dying():
			log.Info().Msg("engine stopping")
			return nil
		case fn := <-engine.inbox:
			fn()
		}
	}
}

// Submit validates order, crosses it against the opposite side, and rests any
// remainder on its own side.
//
// If ctx ends after the order was queued, the order may still be applied.
func (engine *Engine) Submit(ctx context.Context, order common.Order) (Result, error) {
	if err := order.Validate(); err != nil {
		log.Warn().
			Err(err).
			Str("owner", order.Owner.String()).
			Str("side", order.Side.String()).
			Msg("order rejected")
		return Result{}, fmt.Errorf("submit: %w", err)
	}

	reply := make(chan Result, 1)
	if err := engine.do(ctx, func() { reply <- engine.place(order) }); err != nil {
		return Result{}, err
	}
	return <-reply, nil
}

// Snapshot copies both sides of the book.
func (engine *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	err := engine.do(ctx, func() {
		reply <- Snapshot{
			Bids: engine.bids.Levels(),
			Asks: engine.asks.Levels(),
		}
	})
	if err != nil {
		return Snapshot{}, err
	}
	return <-reply, nil
}

// do runs fn on the engine goroutine and waits for it to finish.
func (engine *Engine) do(ctx context.Context, fn func()) error {
	if engine.tomb == nil {
		return ErrEngineStopped
	}

	done := make(chan struct{})
	select {
	case engine.inbox <- func() { fn(); close(done) }:
	case <-engine.tomb.Dying():
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-engine.tomb.Dying():
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// place must only run on the engine goroutine.
func (engine *Engine) place(order common.Order) Result {
	own, opposite := engine.bids, engine.asks
	if order.Side == common.Sell {
		own, opposite = engine.asks, engine.bids
	}

	trades := opposite.Cross(&order)
	for _, trade := range trades {
		if err := engine.reporter.ReportTrade(trade); err != nil {
			log.Error().Err(err).Msg("unable to report trade")
		}
	}

	result := Result{Order: order, Trades: trades}
	if !order.IsFilled() {
		own.Insert(order)
		result.Rested = true
	}
	return result
}
