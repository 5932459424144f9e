package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/spotdesk/internal/domain"
)

// Engine is the slice of the execution service the position handler drives.
type Engine interface {
	OpenPosition(ctx context.Context, req domain.OpenPositionRequest) (domain.Position, error)
	ClosePosition(ctx context.Context, id string, reason domain.CloseReason) (domain.TradeResult, error)
	SetStopLoss(ctx context.Context, id string, percent float64) (domain.Position, error)
	SetTrailingStop(ctx context.Context, id string, percent float64) (domain.Position, error)
	GetPosition(ctx context.Context, id string) (domain.PositionDetail, error)
	ListPositions(ctx context.Context) domain.PositionsView
	BalanceView(ctx context.Context) domain.BalanceView
}

// PositionHandler serves the position and balance endpoints.
type PositionHandler struct {
	engine Engine
	logger *slog.Logger
}

// NewPositionHandler creates a PositionHandler driving the given engine.
func NewPositionHandler(engine Engine, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		engine: engine,
		logger: logger.With(slog.String("component", "handler")),
	}
}

// GetBalance returns the aggregated balance view.
// GET /api/balance
func (h *PositionHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.BalanceView(r.Context()))
}

// ListPositions returns every open position with its live valuation.
// GET /api/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.ListPositions(r.Context()))
}

// OpenPosition opens a new position.
// POST /api/positions
func (h *PositionHandler) OpenPosition(w http.ResponseWriter, r *http.Request) {
	var req domain.OpenPositionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}

	pos, err := h.engine.OpenPosition(r.Context(), req)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pos)
}

// GetPosition returns one open position by id.
// GET /api/positions/{id}
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	detail, err := h.engine.GetPosition(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// stopRequest is the body of both stop-modification endpoints.
type stopRequest struct {
	Percent float64 `json:"percent"`
}

// SetStopLoss replaces the stop-loss distance of an open position.
// PUT /api/positions/{id}/stop-loss
func (h *PositionHandler) SetStopLoss(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}

	pos, err := h.engine.SetStopLoss(r.Context(), pathParam(r, "id"), req.Percent)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// SetTrailingStop replaces the trailing-stop distance of an open position.
// PUT /api/positions/{id}/trailing-stop
func (h *PositionHandler) SetTrailingStop(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}

	pos, err := h.engine.SetTrailingStop(r.Context(), pathParam(r, "id"), req.Percent)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// closeResponse wraps a settled trade.
type closeResponse struct {
	Message string             `json:"message"`
	Trade   domain.TradeResult `json:"trade"`
}

// ClosePosition closes an open position at the current price. A second
// delete of the same id is a 404: the first close removed it, and a missing
// position is indistinguishable from one that never existed.
// DELETE /api/positions/{id}
func (h *PositionHandler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.ClosePosition(r.Context(), pathParam(r, "id"), domain.CloseReasonManual)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, closeResponse{
		Message: "position closed",
		Trade:   result,
	})
}
