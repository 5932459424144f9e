package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/spotdesk/internal/domain"
	"github.com/alanyoungcy/spotdesk/internal/ledger"
	"github.com/alanyoungcy/spotdesk/internal/notify"
)

// ExecutionService is the trading engine. It owns every state transition of
// positions and balance: opens, closes, stop modifications and trailing
// ratchets all flow through it, and nothing else writes to the store or the
// ledger. An instance carries its own state, so independent engines can
// coexist in one process.
//
// The oracle is always consulted before any ledger or store critical
// section; no lock is ever held across I/O.
type ExecutionService struct {
	store    domain.PositionStore
	ledger   *ledger.Ledger
	oracle   domain.PriceOracle
	bus      domain.SignalBus // optional; nil skips publishing
	notifier *notify.Notifier // optional; nil drops announcements
	logger   *slog.Logger
}

// NewExecutionService creates the engine. bus and notifier may be nil.
func NewExecutionService(
	store domain.PositionStore,
	ledger *ledger.Ledger,
	oracle domain.PriceOracle,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *ExecutionService {
	return &ExecutionService{
		store:    store,
		ledger:   ledger,
		oracle:   oracle,
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "execution")),
	}
}

// OpenPosition validates the request, prices it, reserves the notional and
// stores the new position. Any failure leaves balance and store unchanged:
// nothing fallible runs after the reservation.
func (s *ExecutionService) OpenPosition(ctx context.Context, req domain.OpenPositionRequest) (domain.Position, error) {
	order, err := req.Validate()
	if err != nil {
		return domain.Position{}, err
	}

	entryPrice, err := s.oracle.CurrentPrice(ctx, order.Symbol)
	if err != nil {
		return domain.Position{}, priceRejection(order.Symbol, err)
	}

	notional := order.Amount * entryPrice
	if err := s.ledger.Reserve(notional); err != nil {
		return domain.Position{}, domain.NewBusinessRuleError(
			domain.RuleInsufficientBalance,
			fmt.Sprintf("opening %s requires %.8f", order.Symbol, notional),
			err,
		)
	}

	pos := domain.Position{
		ID:         uuid.NewString(),
		Symbol:     order.Symbol,
		Side:       order.Side,
		Amount:     order.Amount,
		EntryPrice: entryPrice,
		Status:     domain.PositionStatusOpen,
		OpenedAt:   time.Now().UTC(),
	}
	if order.StopLossPercent != nil {
		pos.StopLossPercent = order.StopLossPercent
		pos.StopLoss = domain.StopPrice(pos.Side, entryPrice, *order.StopLossPercent)
	}
	if order.TrailingStopPercent != nil {
		pos.TrailingStopPercent = order.TrailingStopPercent
		pos.TrailingStop = domain.StopPrice(pos.Side, entryPrice, *order.TrailingStopPercent)
	}

	s.store.Put(pos)

	s.publish(ctx, map[string]any{
		"event":       "position_opened",
		"position_id": pos.ID,
		"symbol":      pos.Symbol,
		"side":        string(pos.Side),
		"amount":      pos.Amount,
		"entry_price": pos.EntryPrice,
	})
	s.notifier.NotifyAsync(ctx, notify.EventPositionOpened, "Position opened",
		fmt.Sprintf("%s %s %.8f @ %.2f", pos.Symbol, pos.Side, pos.Amount, pos.EntryPrice))

	s.logger.InfoContext(ctx, "execution: position opened",
		slog.String("position_id", pos.ID),
		slog.String("symbol", pos.Symbol),
		slog.String("side", string(pos.Side)),
		slog.Float64("amount", pos.Amount),
		slog.Float64("entry_price", pos.EntryPrice),
		slog.Float64("notional", notional),
	)

	return pos, nil
}

// ClosePosition settles a position at the current price. The atomic Remove
// is the single gate: however many callers race on one id, exactly one gets
// the position and every other gets ErrNotFound.
func (s *ExecutionService) ClosePosition(ctx context.Context, id string, reason domain.CloseReason) (domain.TradeResult, error) {
	pos, ok := s.store.Remove(id)
	if !ok {
		return domain.TradeResult{}, fmt.Errorf("execution: close position %q: %w", id, domain.ErrNotFound)
	}

	exitPrice, err := s.oracle.CurrentPrice(ctx, pos.Symbol)
	if err != nil {
		// Never settle at an invented price. Hand the position back
		// unchanged; the caller or the next monitor tick retries.
		s.store.Put(pos)
		return domain.TradeResult{}, priceRejection(pos.Symbol, err)
	}

	profit := pos.UnrealizedPnL(exitPrice)
	pnlPercent := pos.PnLPercent(exitPrice)

	s.ledger.Release(pos.Notional())
	s.ledger.ApplyPnL(profit)

	now := time.Now().UTC()
	pos.Status = domain.PositionStatusClosed
	pos.ClosedAt = &now
	pos.ExitPrice = &exitPrice
	pos.CloseReason = reason

	s.publish(ctx, map[string]any{
		"event":       "position_closed",
		"position_id": pos.ID,
		"symbol":      pos.Symbol,
		"side":        string(pos.Side),
		"exit_price":  exitPrice,
		"profit":      profit,
		"pnl_percent": pnlPercent,
		"reason":      string(reason),
	})

	event := notify.EventPositionClosed
	if reason != domain.CloseReasonManual {
		event = notify.EventStopTriggered
	}
	s.notifier.NotifyAsync(ctx, event, "Position closed",
		fmt.Sprintf("%s %s closed @ %.2f (%s), profit %.4f", pos.Symbol, pos.Side, exitPrice, reason, profit))

	s.logger.InfoContext(ctx, "execution: position closed",
		slog.String("position_id", pos.ID),
		slog.String("symbol", pos.Symbol),
		slog.String("reason", string(reason)),
		slog.Float64("exit_price", exitPrice),
		slog.Float64("profit", profit),
		slog.Float64("pnl_percent", pnlPercent),
	)

	return domain.TradeResult{Position: pos, Profit: profit, PnLPercent: pnlPercent}, nil
}

// SetStopLoss replaces the stop-loss distance of an open position. The
// absolute threshold is recomputed from the entry price and takes effect on
// the next monitor tick.
func (s *ExecutionService) SetStopLoss(ctx context.Context, id string, percent float64) (domain.Position, error) {
	if err := domain.ValidateStopPercent("stop_loss_percent", percent); err != nil {
		return domain.Position{}, err
	}

	pos, ok := s.store.Update(id, func(p *domain.Position) {
		pct := percent
		p.StopLossPercent = &pct
		p.StopLoss = domain.StopPrice(p.Side, p.EntryPrice, pct)
	})
	if !ok {
		return domain.Position{}, fmt.Errorf("execution: set stop loss on %q: %w", id, domain.ErrNotFound)
	}

	s.logger.InfoContext(ctx, "execution: stop loss set",
		slog.String("position_id", id),
		slog.Float64("percent", percent),
		slog.Float64("stop_loss", pos.StopLoss),
	)

	return pos, nil
}

// SetTrailingStop replaces the trailing-stop distance of an open position.
// The threshold resets relative to the entry price; the ratchet resumes
// from there on the next tick.
func (s *ExecutionService) SetTrailingStop(ctx context.Context, id string, percent float64) (domain.Position, error) {
	if err := domain.ValidateStopPercent("trailing_stop_percent", percent); err != nil {
		return domain.Position{}, err
	}

	pos, ok := s.store.Update(id, func(p *domain.Position) {
		pct := percent
		p.TrailingStopPercent = &pct
		p.TrailingStop = domain.StopPrice(p.Side, p.EntryPrice, pct)
	})
	if !ok {
		return domain.Position{}, fmt.Errorf("execution: set trailing stop on %q: %w", id, domain.ErrNotFound)
	}

	s.logger.InfoContext(ctx, "execution: trailing stop set",
		slog.String("position_id", id),
		slog.Float64("percent", percent),
		slog.Float64("trailing_stop", pos.TrailingStop),
	)

	return pos, nil
}

// RatchetTrailingStop tightens a trailing threshold toward the current
// price, atomically. ok is false when the position is gone, which the
// monitor treats as "closed mid-sweep" and skips.
func (s *ExecutionService) RatchetTrailingStop(ctx context.Context, id string, price float64) (domain.Position, bool) {
	var moved bool
	pos, ok := s.store.Update(id, func(p *domain.Position) {
		v, m := p.RatchetedTrailing(price)
		if m {
			p.TrailingStop = v
		}
		moved = m
	})
	if ok && moved {
		s.logger.DebugContext(ctx, "execution: trailing stop ratcheted",
			slog.String("position_id", id),
			slog.Float64("price", price),
			slog.Float64("trailing_stop", pos.TrailingStop),
		)
	}
	return pos, ok
}

// OpenPositions returns a raw snapshot of the open positions, ordered by
// open time. The stop monitor sweeps over this.
func (s *ExecutionService) OpenPositions() []domain.Position {
	return s.store.List()
}

// GetPosition returns one open position annotated with its live valuation.
func (s *ExecutionService) GetPosition(ctx context.Context, id string) (domain.PositionDetail, error) {
	pos, ok := s.store.Get(id)
	if !ok {
		return domain.PositionDetail{}, fmt.Errorf("execution: get position %q: %w", id, domain.ErrNotFound)
	}
	return annotatePosition(pos, s.symbolPrices(ctx, []domain.Position{pos})), nil
}

// ListPositions returns all open positions annotated with live valuations.
// A missing price values that position at its entry; reads never fail and
// never mutate.
func (s *ExecutionService) ListPositions(ctx context.Context) domain.PositionsView {
	positions := s.store.List()
	prices := s.symbolPrices(ctx, positions)

	view := domain.PositionsView{
		Positions: make([]domain.PositionDetail, 0, len(positions)),
		Count:     len(positions),
	}
	var notional float64
	for _, pos := range positions {
		detail := annotatePosition(pos, prices)
		view.Positions = append(view.Positions, detail)
		view.TotalValue += detail.Value
		view.UnrealizedPnL += detail.UnrealizedPnL
		notional += pos.Notional()
	}
	if notional > 0 {
		view.TotalPnLPercent = view.UnrealizedPnL / notional * 100
	}
	return view
}

// BalanceView combines the ledger snapshot with the live value of open
// positions. The percent is relative to the initial balance.
func (s *ExecutionService) BalanceView(ctx context.Context) domain.BalanceView {
	positions := s.ListPositions(ctx)
	snap := s.ledger.Snapshot()

	view := domain.BalanceView{
		Available:      snap.Available,
		Currency:       snap.Currency,
		PositionsValue: positions.TotalValue,
		TotalValue:     snap.Available + positions.TotalValue,
		RealizedPnL:    snap.RealizedPnL,
		UnrealizedPnL:  positions.UnrealizedPnL,
		TotalPnL:       snap.RealizedPnL + positions.UnrealizedPnL,
		OpenPositions:  len(positions.Positions),
	}
	if snap.Initial > 0 {
		view.TotalPnLPercent = view.TotalPnL / snap.Initial * 100
	}
	return view
}

// Balance returns the raw ledger snapshot.
func (s *ExecutionService) Balance() domain.Balance {
	return s.ledger.Snapshot()
}

// symbolPrices resolves current prices for every distinct symbol in the
// snapshot. Unresolvable symbols are left out; callers fall back to entry
// prices.
func (s *ExecutionService) symbolPrices(ctx context.Context, positions []domain.Position) map[string]float64 {
	prices := make(map[string]float64)
	tried := make(map[string]bool)
	for _, pos := range positions {
		if tried[pos.Symbol] {
			continue
		}
		tried[pos.Symbol] = true

		price, err := s.oracle.CurrentPrice(ctx, pos.Symbol)
		if err != nil {
			s.logger.DebugContext(ctx, "execution: price lookup failed for view",
				slog.String("symbol", pos.Symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		prices[pos.Symbol] = price
	}
	return prices
}

// annotatePosition values a position at the current price, or at entry when
// no price is known (zero P&L rather than a failed read).
func annotatePosition(pos domain.Position, prices map[string]float64) domain.PositionDetail {
	price, ok := prices[pos.Symbol]
	if !ok {
		price = pos.EntryPrice
	}
	pnl := pos.UnrealizedPnL(price)
	return domain.PositionDetail{
		Position:      pos,
		CurrentPrice:  price,
		Value:         pos.Notional() + pnl,
		UnrealizedPnL: pnl,
		PnLPercent:    pos.PnLPercent(price),
	}
}

// publish emits a position event on the signal bus, when one is wired.
// Losing an event is acceptable; the bus is fan-out, not a source of truth.
func (s *ExecutionService) publish(ctx context.Context, event map[string]any) {
	if s.bus == nil {
		return
	}
	payload, _ := json.Marshal(event)
	if err := s.bus.Publish(ctx, domain.ChannelPositions, payload); err != nil {
		s.logger.WarnContext(ctx, "execution: publish event failed",
			slog.String("error", err.Error()),
		)
	}
}

// priceRejection maps an oracle failure to its canonical rejection: an
// unresolvable symbol is the unknown_symbol business rule, everything else
// is price_unavailable.
func priceRejection(symbol string, err error) error {
	if errors.Is(err, domain.ErrInvalidSymbol) {
		return domain.NewBusinessRuleError(
			domain.RuleUnknownSymbol,
			fmt.Sprintf("symbol %q is not tradable", symbol),
			err,
		)
	}
	return domain.NewBusinessRuleError(
		domain.RulePriceUnavailable,
		fmt.Sprintf("no current price for %q", symbol),
		fmt.Errorf("%w: %w", domain.ErrPriceUnavailable, err),
	)
}
