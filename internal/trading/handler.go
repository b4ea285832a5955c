package trading

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"lv-tickettrader/internal/httputil"
	"lv-tickettrader/internal/model"
	"lv-tickettrader/internal/stream"
	"lv-tickettrader/internal/types"
)

// Provisioner guarantees a wallet exists before a trade or wallet read is
// attempted; see internal/accounts for the implementations.
type Provisioner interface {
	EnsureWallet(ctx context.Context, accountID string, startingCash decimal.Decimal) error
}

type Handler struct {
	engine       *Engine
	provisioner  Provisioner
	bus          *stream.Bus
	startingCash decimal.Decimal
}

func NewHandler(engine *Engine, provisioner Provisioner, bus *stream.Bus, startingCash decimal.Decimal) *Handler {
	return &Handler{engine: engine, provisioner: provisioner, bus: bus, startingCash: startingCash}
}

type tradeRequest struct {
	Side      string `json:"side"`
	EventID   string `json:"event_id"`
	EventName string `json:"event_name"`
	Qty       int64  `json:"qty"`
	PriceUSD  string `json:"price_usd"`
}

func (h *Handler) Trade(w http.ResponseWriter, r *http.Request, accountID string) {
	var req tradeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid body"})
		return
	}
	side := types.Side(strings.ToLower(strings.TrimSpace(req.Side)))
	if !side.Valid() {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "side must be buy or sell"})
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.PriceUSD))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: ErrInvalidPrice.Error()})
		return
	}
	if err := h.provisioner.EnsureWallet(r.Context(), accountID, h.startingCash); err != nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	result, err := h.engine.Execute(r.Context(), ExecuteRequest{
		AccountID: accountID,
		Side:      side,
		EventID:   req.EventID,
		EventName: req.EventName,
		Quantity:  req.Qty,
		Price:     price,
	})
	if err != nil {
		httputil.WriteJSON(w, statusFor(err), httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if h.bus != nil {
		h.bus.Publish(stream.Event{Type: "trade", AccountID: accountID, Data: result})
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Cash(w http.ResponseWriter, r *http.Request, accountID string) {
	if err := h.provisioner.EnsureWallet(r.Context(), accountID, h.startingCash); err != nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	cash, err := h.engine.CashBalance(r.Context(), accountID)
	if err != nil {
		httputil.WriteJSON(w, statusFor(err), httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]decimal.Decimal{"cash_usd": cash})
}

type positionView struct {
	model.Position
	AvgCostUSD decimal.Decimal `json:"avg_cost_usd"`
}

func (h *Handler) Positions(w http.ResponseWriter, r *http.Request, accountID string) {
	if err := h.provisioner.EnsureWallet(r.Context(), accountID, h.startingCash); err != nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	positions, err := h.engine.ListPositions(r.Context(), accountID)
	if err != nil {
		httputil.WriteJSON(w, statusFor(err), httputil.ErrorResponse{Error: err.Error()})
		return
	}
	out := make([]positionView, 0, len(positions))
	for _, p := range positions {
		out = append(out, positionView{Position: p, AvgCostUSD: p.AvgCost()})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidPrice),
		errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrInsufficientHoldings):
		return http.StatusBadRequest
	case errors.Is(err, ErrWalletNotFound), errors.Is(err, ErrNoPosition):
		return http.StatusNotFound
	case errors.Is(err, ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
