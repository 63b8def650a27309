package engine_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"matchbook/internal/book"
	"matchbook/internal/common"
	"matchbook/internal/engine"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tomb "gopkg.in/tomb.v2"
)

// --- Setup & Helpers --------------------------------------------------------

type MockReporter struct {
	mu     sync.Mutex
	trades []common.Trade
	err    error
}

func (r *MockReporter) ReportTrade(trade common.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades = append(r.trades, trade)
	return r.err
}

func (r *MockReporter) Trades() []common.Trade {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]common.Trade(nil), r.trades...)
}

func createTestEngine(t *testing.T, opts ...engine.Option) (*engine.Engine, *MockReporter) {
	t.Helper()
	reporter := &MockReporter{}
	eng := engine.New(append([]engine.Option{engine.WithReporter(reporter)}, opts...)...)

	tb := &tomb.Tomb{}
	eng.Start(tb)
	t.Cleanup(func() {
		tb.Kill(nil)
		assert.NoError(t, tb.Wait())
	})
	return eng, reporter
}

func newTestOrder(t *testing.T, side common.Side, price string, qty int64, owner string) common.Order {
	t.Helper()
	order, err := common.NewOrder(
		side,
		decimal.RequireFromString(price),
		decimal.NewFromInt(qty),
		common.MustIdentity(owner),
	)
	require.NoError(t, err)
	return order
}

func placeTestOrders(t *testing.T, eng *engine.Engine, price string, side common.Side, quantities ...int64) {
	t.Helper()
	for _, qty := range quantities {
		_, err := eng.Submit(context.Background(), newTestOrder(t, side, price, qty, "test-id"))
		require.NoError(t, err)
	}
}

// flattenLevels reduces levels to price -> remaining quantities for comparison.
func flattenLevels(levels []book.Level) [][]string {
	flat := make([][]string, len(levels))
	for i, level := range levels {
		flat[i] = []string{level.Price.String()}
		for _, order := range level.Orders {
			flat[i] = append(flat[i], order.Quantity.String())
		}
	}
	return flat
}

func snapshot(t *testing.T, eng *engine.Engine) engine.Snapshot {
	t.Helper()
	snap, err := eng.Snapshot(context.Background())
	require.NoError(t, err)
	return snap
}

// --- Tests ------------------------------------------------------------------

func TestSubmit_RestsWithoutCross(t *testing.T) {
	eng, reporter := createTestEngine(t)

	placeTestOrders(t, eng, "99", common.Buy, 100, 90, 80)
	placeTestOrders(t, eng, "100", common.Sell, 100, 90, 80)

	snap := snapshot(t, eng)
	assert.Equal(t, [][]string{{"99", "100", "90", "80"}}, flattenLevels(snap.Bids))
	assert.Equal(t, [][]string{{"100", "100", "90", "80"}}, flattenLevels(snap.Asks))
	assert.Empty(t, reporter.Trades())
}

func TestSubmit_MultipleLevelsWithMatch(t *testing.T) {
	eng, reporter := createTestEngine(t)

	placeTestOrders(t, eng, "99", common.Buy, 100, 90, 80)
	placeTestOrders(t, eng, "98", common.Buy, 50)
	placeTestOrders(t, eng, "100", common.Sell, 100, 90)
	placeTestOrders(t, eng, "101", common.Sell, 20)

	snap := snapshot(t, eng)
	assert.Equal(t, [][]string{{"99", "100", "90", "80"}, {"98", "50"}}, flattenLevels(snap.Bids), "Bids should be sorted High -> Low")
	assert.Equal(t, [][]string{{"100", "100", "90"}, {"101", "20"}}, flattenLevels(snap.Asks), "Asks should be sorted Low -> High")

	// Complete match.
	result, err := eng.Submit(context.Background(), newTestOrder(t, common.Buy, "100", 100, "taker"))
	require.NoError(t, err)
	assert.False(t, result.Rested)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, [][]string{{"100", "90"}, {"101", "20"}}, flattenLevels(snapshot(t, eng).Asks))

	// Partial match of the resting order.
	placeTestOrders(t, eng, "100", common.Buy, 20)
	assert.Equal(t, [][]string{{"100", "70"}, {"101", "20"}}, flattenLevels(snapshot(t, eng).Asks))

	assert.Len(t, reporter.Trades(), 2)
}

func TestSubmit_RemainderRests(t *testing.T) {
	eng, reporter := createTestEngine(t)

	placeTestOrders(t, eng, "100", common.Sell, 30)
	result, err := eng.Submit(context.Background(), newTestOrder(t, common.Buy, "101", 50, "B1"))
	require.NoError(t, err)

	assert.True(t, result.Rested)
	assert.True(t, decimal.NewFromInt(20).Equal(result.Order.Quantity))
	require.Len(t, result.Trades, 1)
	assert.True(t, decimal.NewFromInt(100).Equal(result.Trades[0].Price))

	snap := snapshot(t, eng)
	assert.Empty(t, snap.Asks)
	assert.Equal(t, [][]string{{"101", "20"}}, flattenLevels(snap.Bids))
	assert.Equal(t, result.Trades, reporter.Trades())
}

func TestSubmit_SweepAsk(t *testing.T) {
	eng, reporter := createTestEngine(t)

	placeTestOrders(t, eng, "99", common.Buy, 100, 90, 80)
	placeTestOrders(t, eng, "98", common.Buy, 50)
	placeTestOrders(t, eng, "96", common.Sell, 310)

	snap := snapshot(t, eng)
	assert.Equal(t, [][]string{{"98", "10"}}, flattenLevels(snap.Bids))
	assert.Empty(t, snap.Asks)

	trades := reporter.Trades()
	require.Len(t, trades, 4)
	for _, trade := range trades {
		assert.Equal(t, "test-id", trade.Seller.String())
	}
}

func TestSubmit_RejectsInvalidOrder(t *testing.T) {
	eng, _ := createTestEngine(t)

	order := newTestOrder(t, common.Buy, "10", 1, "B1")
	order.Quantity = decimal.NewFromInt(-1)

	_, err := eng.Submit(context.Background(), order)
	assert.ErrorIs(t, err, common.ErrNegativeQuantity)

	snap := snapshot(t, eng)
	assert.Empty(t, snap.Bids)
	assert.Empty(t, snap.Asks)
}

func TestSubmit_ReporterErrorDoesNotFail(t *testing.T) {
	eng, reporter := createTestEngine(t)
	reporter.err = errors.New("downstream unavailable")

	placeTestOrders(t, eng, "10", common.Sell, 1)
	result, err := eng.Submit(context.Background(), newTestOrder(t, common.Buy, "10", 1, "B1"))
	require.NoError(t, err)
	assert.Len(t, result.Trades, 1)
}

func TestSubmit_NotStarted(t *testing.T) {
	eng := engine.New()
	_, err := eng.Submit(context.Background(), newTestOrder(t, common.Buy, "10", 1, "B1"))
	assert.ErrorIs(t, err, engine.ErrEngineStopped)
}

func TestSubmit_AfterStop(t *testing.T) {
	eng := engine.New()
	tb := &tomb.Tomb{}
	eng.Start(tb)
	tb.Kill(nil)
	require.NoError(t, tb.Wait())

	_, err := eng.Submit(context.Background(), newTestOrder(t, common.Buy, "10", 1, "B1"))
	assert.ErrorIs(t, err, engine.ErrEngineStopped)
	_, err = eng.Snapshot(context.Background())
	assert.ErrorIs(t, err, engine.ErrEngineStopped)
}

// TestSubmit_ConcurrentCallersNeverCross hammers the engine from several
// goroutines and checks the book is never left crossed.
func TestSubmit_ConcurrentCallersNeverCross(t *testing.T) {
	eng, reporter := createTestEngine(t, engine.WithInboxSize(4))

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				side := common.Buy
				if (w+i)%2 == 0 {
					side = common.Sell
				}
				price := decimal.NewFromInt(int64(95 + (w*7+i*3)%11))
				order, err := common.NewOrder(side, price, decimal.NewFromInt(int64(1+i%5)), common.NewRandomIdentity())
				if !assert.NoError(t, err) {
					return
				}
				_, err = eng.Submit(context.Background(), order)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	snap := snapshot(t, eng)
	if len(snap.Bids) > 0 && len(snap.Asks) > 0 {
		assert.True(t, snap.Bids[0].Price.LessThan(snap.Asks[0].Price),
			"best bid %s crosses best ask %s", snap.Bids[0].Price, snap.Asks[0].Price)
	}
	for _, trade := range reporter.Trades() {
		assert.True(t, trade.Quantity.IsPositive())
	}
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	reporter := engine.NewLogReporter(zerolog.New(&buf))

	require.NoError(t, reporter.ReportTrade(common.Trade{
		Buyer:    common.MustIdentity("B1"),
		Seller:   common.MustIdentity("S1"),
		Quantity: decimal.NewFromInt(3),
		Price:    decimal.RequireFromString("10.5"),
	}))

	var line map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, map[string]string{
		"level":    "info",
		"buyer":    "B1",
		"seller":   "S1",
		"quantity": "3",
		"price":    "10.5",
		"message":  "trade",
	}, line)
}
