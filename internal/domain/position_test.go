package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestStopPrice(t *testing.T) {
	assert.InDelta(t, 48500, StopPrice(SideLong, 50000, 3), 1e-9)
	assert.InDelta(t, 47500, StopPrice(SideLong, 50000, 5), 1e-9)
	assert.InDelta(t, 51500, StopPrice(SideShort, 50000, 3), 1e-9)
	assert.InDelta(t, 52500, StopPrice(SideShort, 50000, 5), 1e-9)
}

func TestUnrealizedPnL(t *testing.T) {
	long := Position{Side: SideLong, Amount: 0.001, EntryPrice: 50000}
	assert.InDelta(t, 1.0, long.UnrealizedPnL(51000), 1e-9)
	assert.InDelta(t, -1.0, long.UnrealizedPnL(49000), 1e-9)

	short := Position{Side: SideShort, Amount: 0.001, EntryPrice: 50000}
	assert.InDelta(t, -1.0, short.UnrealizedPnL(51000), 1e-9)
	assert.InDelta(t, 1.0, short.UnrealizedPnL(49000), 1e-9)
}

func TestPnLPercent(t *testing.T) {
	long := Position{Side: SideLong, Amount: 0.001, EntryPrice: 50000}
	assert.InDelta(t, 2.0, long.PnLPercent(51000), 1e-9)
	assert.InDelta(t, -2.0, long.PnLPercent(49000), 1e-9)

	empty := Position{Side: SideLong}
	assert.Zero(t, empty.PnLPercent(51000))
}

func TestRatchetedTrailingLong(t *testing.T) {
	p := Position{
		Side:                SideLong,
		EntryPrice:          50000,
		TrailingStopPercent: floatPtr(5),
		TrailingStop:        StopPrice(SideLong, 50000, 5), // 47500
	}

	// Price rally tightens the stop upward.
	v, moved := p.RatchetedTrailing(60000)
	require.True(t, moved)
	assert.InDelta(t, 57000, v, 1e-9)

	// A pullback never loosens it.
	p.TrailingStop = v
	v, moved = p.RatchetedTrailing(56000)
	assert.False(t, moved)
	assert.InDelta(t, 57000, v, 1e-9)
}

func TestRatchetedTrailingShort(t *testing.T) {
	p := Position{
		Side:                SideShort,
		EntryPrice:          50000,
		TrailingStopPercent: floatPtr(5),
		TrailingStop:        StopPrice(SideShort, 50000, 5), // 52500
	}

	// Price falling tightens the stop downward.
	v, moved := p.RatchetedTrailing(40000)
	require.True(t, moved)
	assert.InDelta(t, 42000, v, 1e-9)

	// A bounce never loosens it.
	p.TrailingStop = v
	v, moved = p.RatchetedTrailing(45000)
	assert.False(t, moved)
	assert.InDelta(t, 42000, v, 1e-9)
}

func TestRatchetedTrailingWithoutPercent(t *testing.T) {
	p := Position{Side: SideLong, EntryPrice: 50000}
	v, moved := p.RatchetedTrailing(60000)
	assert.False(t, moved)
	assert.Zero(t, v)
}

func TestStopTriggered(t *testing.T) {
	long := Position{
		Side:            SideLong,
		EntryPrice:      50000,
		StopLossPercent: floatPtr(3),
		StopLoss:        48500,
	}

	_, hit := long.StopTriggered(48501)
	assert.False(t, hit)

	// Crossing the threshold exactly triggers.
	reason, hit := long.StopTriggered(48500)
	require.True(t, hit)
	assert.Equal(t, CloseReasonStopLoss, reason)

	reason, hit = long.StopTriggered(48000)
	require.True(t, hit)
	assert.Equal(t, CloseReasonStopLoss, reason)

	short := Position{
		Side:            SideShort,
		EntryPrice:      50000,
		StopLossPercent: floatPtr(3),
		StopLoss:        51500,
	}

	_, hit = short.StopTriggered(51499)
	assert.False(t, hit)

	reason, hit = short.StopTriggered(51500)
	require.True(t, hit)
	assert.Equal(t, CloseReasonStopLoss, reason)
}

func TestStopTriggeredTrailing(t *testing.T) {
	p := Position{
		Side:                SideLong,
		EntryPrice:          50000,
		TrailingStopPercent: floatPtr(5),
		TrailingStop:        57000, // ratcheted after a rally to 60000
	}

	reason, hit := p.StopTriggered(56000)
	require.True(t, hit)
	assert.Equal(t, CloseReasonTrailingStop, reason)

	_, hit = p.StopTriggered(58000)
	assert.False(t, hit)
}

func TestStopLossWinsOverTrailing(t *testing.T) {
	p := Position{
		Side:                SideLong,
		EntryPrice:          50000,
		StopLossPercent:     floatPtr(10),
		StopLoss:            45000,
		TrailingStopPercent: floatPtr(5),
		TrailingStop:        47500,
	}

	// Both thresholds crossed on one tick: stop-loss is reported.
	reason, hit := p.StopTriggered(44000)
	require.True(t, hit)
	assert.Equal(t, CloseReasonStopLoss, reason)
}

func TestParseSide(t *testing.T) {
	side, ok := ParseSide("long")
	require.True(t, ok)
	assert.Equal(t, SideLong, side)

	side, ok = ParseSide("short")
	require.True(t, ok)
	assert.Equal(t, SideShort, side)

	_, ok = ParseSide("LONG")
	assert.False(t, ok)
	_, ok = ParseSide("")
	assert.False(t, ok)
}
