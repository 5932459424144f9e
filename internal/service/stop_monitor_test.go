package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spotdesk/internal/domain"
)

func TestMonitorClosesOnStopLoss(t *testing.T) {
	engine, px, led, bus := newTestEngine(t, 1000, map[string]float64{"BTC/USDT": 50000})

	req := openReq("BTC/USDT", "long", 0.001)
	req.StopLossPercent = floatPtr(3) // threshold 48500
	pos, err := engine.OpenPosition(context.Background(), req)
	require.NoError(t, err)

	m := NewStopMonitor(engine, px, time.Second, testLogger())

	// Above the threshold nothing happens.
	px.SetPrice("BTC/USDT", 48501)
	m.sweep(context.Background())
	require.Len(t, engine.OpenPositions(), 1)

	// At 48000 the stop fires and the close settles the loss.
	px.SetPrice("BTC/USDT", 48000)
	m.sweep(context.Background())

	assert.Empty(t, engine.OpenPositions())
	assert.InDelta(t, 998, led.Snapshot().Available, 1e-9)

	events := bus.eventNames()
	require.Equal(t, []string{"position_opened", "position_closed"}, events)
	last := bus.lastEvent()
	assert.Equal(t, string(domain.CloseReasonStopLoss), last["reason"])
	assert.Equal(t, pos.ID, last["position_id"])
}

func TestMonitorShortStopLoss(t *testing.T) {
	engine, px, led, _ := newTestEngine(t, 1000, map[string]float64{"BTC/USDT": 50000})

	req := openReq("BTC/USDT", "short", 0.001)
	req.StopLossPercent = floatPtr(3) // threshold 51500
	_, err := engine.OpenPosition(context.Background(), req)
	require.NoError(t, err)

	m := NewStopMonitor(engine, px, time.Second, testLogger())

	px.SetPrice("BTC/USDT", 52000)
	m.sweep(context.Background())

	assert.Empty(t, engine.OpenPositions())
	// (50000 - 52000) * 0.001 = -2.
	assert.InDelta(t, 998, led.Snapshot().Available, 1e-9)
}

func TestMonitorTrailingRatchetThenTrigger(t *testing.T) {
	engine, px, led, bus := newTestEngine(t, 1000, map[string]float64{"BTC/USDT": 50000})

	req := openReq("BTC/USDT", "long", 0.001)
	req.TrailingStopPercent = floatPtr(5) // starts at 47500
	pos, err := engine.OpenPosition(context.Background(), req)
	require.NoError(t, err)

	m := NewStopMonitor(engine, px, time.Second, testLogger())

	// The rally ratchets the threshold to 57000 without closing.
	px.SetPrice("BTC/USDT", 60000)
	m.sweep(context.Background())

	open := engine.OpenPositions()
	require.Len(t, open, 1)
	assert.InDelta(t, 57000, open[0].TrailingStop, 1e-9)

	// The pullback through the ratcheted threshold closes the position.
	px.SetPrice("BTC/USDT", 56000)
	m.sweep(context.Background())

	assert.Empty(t, engine.OpenPositions())
	// (56000 - 50000) * 0.001 = +6.
	assert.InDelta(t, 1006, led.Snapshot().Available, 1e-9)

	last := bus.lastEvent()
	assert.Equal(t, string(domain.CloseReasonTrailingStop), last["reason"])
	assert.Equal(t, pos.ID, last["position_id"])
}

func TestMonitorSkipsPositionsWithoutStops(t *testing.T) {
	engine, px, _, _ := newTestEngine(t, 1000, map[string]float64{"BTC/USDT": 50000})

	_, err := engine.OpenPosition(context.Background(), openReq("BTC/USDT", "long", 0.001))
	require.NoError(t, err)

	m := NewStopMonitor(engine, px, time.Second, testLogger())

	px.SetPrice("BTC/USDT", 1000)
	m.sweep(context.Background())

	// No protective stop, no auto-close, however deep the drawdown.
	assert.Len(t, engine.OpenPositions(), 1)
}

func TestMonitorSkipsOnPriceFailure(t *testing.T) {
	engine, px, _, _ := newTestEngine(t, 1000, map[string]float64{"BTC/USDT": 50000})

	req := openReq("BTC/USDT", "long", 0.001)
	req.StopLossPercent = floatPtr(3)
	_, err := engine.OpenPosition(context.Background(), req)
	require.NoError(t, err)

	m := NewStopMonitor(engine, px, time.Second, testLogger())

	// Without a fresh price there is no verdict, even though the last
	// known price would have triggered.
	px.Remove("BTC/USDT")
	m.sweep(context.Background())
	require.Len(t, engine.OpenPositions(), 1)

	// The next tick with a price settles it.
	px.SetPrice("BTC/USDT", 48000)
	m.sweep(context.Background())
	assert.Empty(t, engine.OpenPositions())
}

func TestMonitorRacesManualClose(t *testing.T) {
	engine, px, led, bus := newTestEngine(t, 1000, map[string]float64{"BTC/USDT": 50000})

	req := openReq("BTC/USDT", "long", 0.001)
	req.StopLossPercent = floatPtr(3)
	pos, err := engine.OpenPosition(context.Background(), req)
	require.NoError(t, err)

	px.SetPrice("BTC/USDT", 48000)

	m := NewStopMonitor(engine, px, time.Second, testLogger())

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		m.sweep(context.Background())
	}()
	go func() {
		defer wg.Done()
		<-start
		_, err := engine.ClosePosition(context.Background(), pos.ID, domain.CloseReasonManual)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("unexpected close error: %v", err)
		}
	}()
	close(start)
	wg.Wait()

	// Whoever won, the position settled exactly once at 48000.
	assert.Empty(t, engine.OpenPositions())
	assert.InDelta(t, 998, led.Snapshot().Available, 1e-9)
	assert.Equal(t, []string{"position_opened", "position_closed"}, bus.eventNames())
}

func TestMonitorRunStopsOnCancel(t *testing.T) {
	engine, px, _, _ := newTestEngine(t, 1000, map[string]float64{"BTC/USDT": 50000})

	m := NewStopMonitor(engine, px, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
