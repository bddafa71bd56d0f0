// Package handler содержит HTTP-обработчики фасада кабинета заказов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ecocab/ecocab-orders/internal/classify"
	"github.com/ecocab/ecocab-orders/internal/model"
	"github.com/ecocab/ecocab-orders/internal/mutation"
)

// Ledger описывает операции леджера, используемые обработчиками.
type Ledger interface {
	LoadNextPage(ctx context.Context) (bool, error)
	Current() []model.Order
	Closed() []model.Order
	BonusBalance() int64
	HasMore() bool
}

// Coordinator описывает сценарии мутаций, используемые обработчиками.
type Coordinator interface {
	PreparePay(orderID int64) (mutation.PayFlow, error)
	SetRedemption(orderID, requested int64) (mutation.PayFlow, error)
	SubmitPay(ctx context.Context, orderID int64) (mutation.PayFlow, error)
	ClosePay(orderID int64)
	PrepareCancel(orderID int64) (mutation.CancelFlow, error)
	SetReason(orderID int64, reason string) (mutation.CancelFlow, error)
	SubmitCancel(ctx context.Context, orderID int64) (mutation.CancelFlow, error)
	CloseCancel(orderID int64)
}

// Handler реализует HTTP-обработчики фасада кабинета заказов.
type Handler struct {
	ledger      Ledger
	coordinator Coordinator
	logger      *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(l Ledger, c Coordinator, logger *zap.Logger) *Handler {
	return &Handler{
		ledger:      l,
		coordinator: c,
		logger:      logger,
	}
}

func fromKopecks(v int64) float64 {
	return float64(v) / 100
}

type bagResponse struct {
	Service   string  `json:"service"`
	Capacity  int     `json:"capacity"`
	UnitPrice float64 `json:"unitPrice"`
	Count     int     `json:"count"`
	LineTotal float64 `json:"lineTotal"`
}

type orderResponse struct {
	ID                  int64         `json:"id"`
	OrderStatus         string        `json:"orderStatus"`
	PaymentStatus       string        `json:"paymentStatus"`
	OrderFullPrice      float64       `json:"orderFullPrice"`
	AmountBeforePayment float64       `json:"amountBeforePayment"`
	AmountDisplay       string        `json:"amountDisplay"`
	PaidAmount          float64       `json:"paidAmount"`
	Bonuses             float64       `json:"bonuses"`
	RefundedMoney       float64       `json:"refundedMoney"`
	RefundedBonuses     float64       `json:"refundedBonuses"`
	DateForm            string        `json:"dateForm"`
	DatePaid            *string       `json:"datePaid,omitempty"`
	Bags                []bagResponse `json:"bags,omitempty"`
	AdditionalOrders    []int64       `json:"additionalOrders,omitempty"`
	OrderComment        string        `json:"orderComment,omitempty"`
	ActionsVisible      bool          `json:"actionsVisible"`
	Cancelable          bool          `json:"cancelable"`
}

func toOrderResponse(o model.Order) orderResponse {
	resp := orderResponse{
		ID:                  o.ID,
		OrderStatus:         string(o.OrderStatus),
		PaymentStatus:       string(o.PaymentStatus),
		OrderFullPrice:      fromKopecks(o.OrderFullPrice),
		AmountBeforePayment: fromKopecks(o.AmountBeforePayment),
		AmountDisplay:       model.FormatUAH(o.AmountBeforePayment),
		PaidAmount:          fromKopecks(o.PaidAmount),
		Bonuses:             fromKopecks(o.Bonuses),
		RefundedMoney:       fromKopecks(o.RefundedMoney),
		RefundedBonuses:     fromKopecks(o.RefundedBonuses),
		DateForm:            o.DateForm.Format(time.RFC3339),
		AdditionalOrders:    o.AdditionalOrders,
		OrderComment:        o.OrderComment,
		ActionsVisible:      classify.ActionsVisible(o),
		Cancelable:          classify.IsCancelable(o),
	}

	if o.DatePaid != nil {
		v := o.DatePaid.Format(time.RFC3339)
		resp.DatePaid = &v
	}

	for _, b := range o.Bags {
		resp.Bags = append(resp.Bags, bagResponse{
			Service:   b.Service,
			Capacity:  b.Capacity,
			UnitPrice: fromKopecks(b.UnitPrice),
			Count:     b.Count,
			LineTotal: fromKopecks(b.LineTotal),
		})
	}

	return resp
}

// GetOrders возвращает снимок одной корзины заказов: current или closed.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	var orders []model.Order

	switch bucket := r.URL.Query().Get("bucket"); bucket {
	case "", "current":
		orders = h.ledger.Current()
	case "closed", "history":
		orders = h.ledger.Closed()
	default:
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type loadMoreResponse struct {
	Loaded  bool `json:"loaded"`
	HasMore bool `json:"hasMore"`
}

// LoadMore обрабатывает сигнал приближения к концу списка: догружает
// следующую страницу, если она есть и загрузка ещё не идёт.
func (h *Handler) LoadMore(w http.ResponseWriter, r *http.Request) {
	loaded, err := h.ledger.LoadNextPage(r.Context())
	if err != nil {
		h.logger.Error("load next page error", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": "orders page fetch failed",
			"retry": true,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, loadMoreResponse{
		Loaded:  loaded,
		HasMore: h.ledger.HasMore(),
	})
}

type balanceResponse struct {
	Bonuses float64 `json:"bonuses"`
	Display string  `json:"display"`
}

// GetBalance возвращает последний известный бонусный баланс пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance := h.ledger.BonusBalance()

	h.writeJSON(w, http.StatusOK, balanceResponse{
		Bonuses: fromKopecks(balance),
		Display: model.FormatUAH(balance),
	})
}

type quoteResponse struct {
	Price          float64 `json:"price"`
	MaxRedeemable  float64 `json:"maxRedeemable"`
	Applied        float64 `json:"applied"`
	Payable        float64 `json:"payable"`
	PayableDisplay string  `json:"payableDisplay"`
	State          string  `json:"state"`
}

func toQuoteResponse(f mutation.PayFlow) quoteResponse {
	return quoteResponse{
		Price:          fromKopecks(f.Quote.Price),
		MaxRedeemable:  fromKopecks(f.Quote.MaxRedeemable),
		Applied:        fromKopecks(f.Quote.Applied),
		Payable:        fromKopecks(f.Quote.Payable),
		PayableDisplay: model.FormatUAH(f.Quote.Payable),
		State:          string(f.State),
	}
}

// GetPaymentQuote открывает сценарий оплаты и возвращает расчёт списания
// бонусов для запрошенной суммы. Значения вне допустимого диапазона
// молча обрезаются.
func (h *Handler) GetPaymentQuote(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	flow, err := h.coordinator.PreparePay(orderID)
	if err != nil {
		h.mutationError(w, err)
		return
	}

	if raw := r.URL.Query().Get("bonuses"); raw != "" {
		requested, parseErr := strconv.ParseFloat(raw, 64)
		if parseErr != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		flow, err = h.coordinator.SetRedemption(orderID, int64(requested*100))
		if err != nil {
			h.mutationError(w, err)
			return
		}
	}

	h.writeJSON(w, http.StatusOK, toQuoteResponse(flow))
}

type payRequest struct {
	BonusesUsed float64 `json:"bonusesUsed"`
}

// Pay проводит оплату заказа с указанным списанием бонусов.
// При отказе бэкенда сценарий остаётся открытым с сохранённым вводом,
// и запрос можно повторить.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if _, err := h.coordinator.PreparePay(orderID); err != nil {
		h.mutationError(w, err)
		return
	}
	if _, err := h.coordinator.SetRedemption(orderID, int64(req.BonusesUsed*100)); err != nil {
		h.mutationError(w, err)
		return
	}

	flow, err := h.coordinator.SubmitPay(r.Context(), orderID)
	if err != nil {
		h.logger.Error("payment error", zap.Error(err), zap.Int64("orderID", orderID))
		h.mutationError(w, err)
		return
	}

	h.coordinator.ClosePay(orderID)
	h.writeJSON(w, http.StatusOK, toQuoteResponse(flow))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel отменяет заказ с указанной пользователем причиной.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if _, err := h.coordinator.PrepareCancel(orderID); err != nil {
		h.mutationError(w, err)
		return
	}
	if _, err := h.coordinator.SetReason(orderID, req.Reason); err != nil {
		h.mutationError(w, err)
		return
	}

	flow, err := h.coordinator.SubmitCancel(r.Context(), orderID)
	if err != nil {
		h.logger.Error("cancellation error", zap.Error(err), zap.Int64("orderID", orderID))
		h.mutationError(w, err)
		return
	}

	h.coordinator.CloseCancel(orderID)
	h.writeJSON(w, http.StatusOK, map[string]string{"state": string(flow.State)})
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// mutationError переводит ошибки сценариев мутаций в HTTP-статусы:
// неизвестный заказ — 404, нелегальное действие — 409, отказ бэкенда — 502.
func (h *Handler) mutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mutation.ErrOrderUnknown):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, mutation.ErrNotPayable), errors.Is(err, mutation.ErrNotCancelable),
		errors.Is(err, mutation.ErrFlowBusy):
		http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
	default:
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}
