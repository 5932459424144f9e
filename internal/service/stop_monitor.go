package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/spotdesk/internal/domain"
)

// StopExecutor is the slice of the engine the monitor drives. The monitor
// never touches the store or the ledger itself; every mutation goes through
// these methods so the engine stays the only writer.
type StopExecutor interface {
	OpenPositions() []domain.Position
	RatchetTrailingStop(ctx context.Context, id string, price float64) (domain.Position, bool)
	ClosePosition(ctx context.Context, id string, reason domain.CloseReason) (domain.TradeResult, error)
}

// StopMonitor enforces protective stops: on every tick it sweeps a snapshot
// of the open positions, ratchets trailing thresholds from fresh prices and
// closes whatever has triggered. Losing a close race to a manual request is
// normal and silent.
type StopMonitor struct {
	engine   StopExecutor
	oracle   domain.PriceOracle
	interval time.Duration
	logger   *slog.Logger
}

// NewStopMonitor creates a StopMonitor sweeping at the given interval.
func NewStopMonitor(engine StopExecutor, oracle domain.PriceOracle, interval time.Duration, logger *slog.Logger) *StopMonitor {
	if interval <= 0 {
		interval = time.Second
	}
	return &StopMonitor{
		engine:   engine,
		oracle:   oracle,
		interval: interval,
		logger:   logger.With(slog.String("component", "stop_monitor")),
	}
}

// Run sweeps until ctx is done. Call in a goroutine; shutdown lands between
// sweeps, never inside a close.
func (m *StopMonitor) Run(ctx context.Context) error {
	m.logger.InfoContext(ctx, "stop monitor started",
		slog.Duration("interval", m.interval),
	)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "stop monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep evaluates every open position once. One position's failure never
// affects the rest of the sweep.
func (m *StopMonitor) sweep(ctx context.Context) {
	for _, pos := range m.engine.OpenPositions() {
		if pos.StopLossPercent == nil && pos.TrailingStopPercent == nil {
			continue
		}

		price, err := m.oracle.CurrentPrice(ctx, pos.Symbol)
		if err != nil {
			// No fresh price, no verdict. The position stays open and
			// gets rechecked next tick.
			m.logger.DebugContext(ctx, "stop_monitor: price fetch failed",
				slog.String("position_id", pos.ID),
				slog.String("symbol", pos.Symbol),
				slog.String("error", err.Error()),
			)
			continue
		}

		if pos.TrailingStopPercent != nil {
			updated, ok := m.engine.RatchetTrailingStop(ctx, pos.ID, price)
			if !ok {
				// Closed mid-sweep by someone else.
				continue
			}
			pos = updated
		}

		reason, hit := pos.StopTriggered(price)
		if !hit {
			continue
		}

		result, err := m.engine.ClosePosition(ctx, pos.ID, reason)
		switch {
		case err == nil:
			m.logger.InfoContext(ctx, "stop_monitor: protective stop fired",
				slog.String("position_id", pos.ID),
				slog.String("symbol", pos.Symbol),
				slog.String("reason", string(reason)),
				slog.Float64("price", price),
				slog.Float64("profit", result.Profit),
			)
		case errors.Is(err, domain.ErrNotFound):
			// Lost the race to a concurrent closer; exactly-once held.
			m.logger.DebugContext(ctx, "stop_monitor: position already closed",
				slog.String("position_id", pos.ID),
			)
		default:
			m.logger.WarnContext(ctx, "stop_monitor: close failed",
				slog.String("position_id", pos.ID),
				slog.String("reason", string(reason)),
				slog.String("error", err.Error()),
			)
		}
	}
}
