// Package mutation координирует пользовательские сценарии оплаты и отмены заказа.
//
// Каждый сценарий — маленькая машина состояний модального окна:
// IDLE -> SUBMITTING -> (SUCCESS | FAILED), с возвратом в IDLE при закрытии.
// Применимость действия проверяется по самой свежей копии заказа в момент
// отправки, а не в момент отрисовки кнопки.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ecocab/ecocab-orders/internal/bonus"
	"github.com/ecocab/ecocab-orders/internal/classify"
	"github.com/ecocab/ecocab-orders/internal/model"
)

// FlowState описывает состояние модального сценария.
type FlowState string

const (
	StateIdle       FlowState = "IDLE"
	StateSubmitting FlowState = "SUBMITTING"
	StateSuccess    FlowState = "SUCCESS"
	StateFailed     FlowState = "FAILED"
)

// ErrOrderUnknown возвращается, если заказа нет в леджере.
var (
	ErrOrderUnknown = errors.New("order is not in the ledger")
	// ErrNotPayable возвращается, если оплата заказа сейчас нелегальна.
	ErrNotPayable = errors.New("order is not payable")
	// ErrNotCancelable возвращается, если отмена заказа сейчас нелегальна.
	ErrNotCancelable = errors.New("order is not cancelable")
	// ErrFlowBusy возвращается при попытке изменить сценарий во время отправки.
	ErrFlowBusy = errors.New("submission already in progress")
)

// Ledger описывает часть леджера, используемую координатором.
type Ledger interface {
	Order(id int64) (model.Order, bool)
	BonusBalance() int64
	RefreshOrder(ctx context.Context, id int64) error
}

// Backend описывает мутационные вызовы бэкенда.
type Backend interface {
	PayOrder(ctx context.Context, id int64, bonusesUsed int64) error
	CancelOrder(ctx context.Context, id int64, reason string) error
}

// PayFlow хранит состояние сценария оплаты одного заказа.
// Requested — введённое пользователем списание бонусов; при неудачной
// отправке оно сохраняется и доступно для повторной попытки.
type PayFlow struct {
	OrderID   int64
	Requested int64
	Quote     bonus.Quote
	State     FlowState
	Err       error
}

// CancelFlow хранит состояние сценария отмены одного заказа.
type CancelFlow struct {
	OrderID int64
	Reason  string
	State   FlowState
	Err     error
}

// Coordinator проверяет применимость действий, выполняет вызовы бэкенда
// и после успеха инициирует перечитывание заказа леджером. Сценарии для
// разных заказов независимы и могут идти параллельно.
type Coordinator struct {
	ledger  Ledger
	backend Backend
	logger  *zap.Logger

	mu      sync.Mutex
	pays    map[int64]*PayFlow
	cancels map[int64]*CancelFlow
}

// NewCoordinator создаёт координатор мутаций поверх леджера и клиента бэкенда.
func NewCoordinator(ledger Ledger, backend Backend, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		ledger:  ledger,
		backend: backend,
		logger:  logger,
		pays:    make(map[int64]*PayFlow),
		cancels: make(map[int64]*CancelFlow),
	}
}

// PreparePay открывает сценарий оплаты заказа. Если сценарий уже открыт
// (например, после неудачной попытки), возвращается он же с сохранённым
// вводом пользователя.
func (c *Coordinator) PreparePay(orderID int64) (PayFlow, error) {
	order, ok := c.ledger.Order(orderID)
	if !ok {
		return PayFlow{}, fmt.Errorf("%w: %d", ErrOrderUnknown, orderID)
	}
	if !classify.IsPayable(order) {
		return PayFlow{}, fmt.Errorf("%w: %d", ErrNotPayable, orderID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.pays[orderID]; ok {
		return *f, nil
	}

	f := &PayFlow{
		OrderID: orderID,
		Quote:   bonus.NewQuote(c.ledger.BonusBalance(), order.AmountBeforePayment, 0),
		State:   StateIdle,
	}
	c.pays[orderID] = f

	return *f, nil
}

// SetRedemption обновляет запрошенное списание бонусов в открытом сценарии
// оплаты. Значение молча обрезается до допустимого диапазона, расчёт к
// оплате пересчитывается сразу же.
func (c *Coordinator) SetRedemption(orderID, requested int64) (PayFlow, error) {
	order, ok := c.ledger.Order(orderID)
	if !ok {
		return PayFlow{}, fmt.Errorf("%w: %d", ErrOrderUnknown, orderID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.pays[orderID]
	if !ok {
		return PayFlow{}, fmt.Errorf("%w: %d", ErrOrderUnknown, orderID)
	}
	if f.State == StateSubmitting {
		return *f, ErrFlowBusy
	}

	f.Requested = requested
	f.Quote = bonus.NewQuote(c.ledger.BonusBalance(), order.AmountBeforePayment, requested)

	return *f, nil
}

// SubmitPay отправляет оплату заказа. Применимость и расчёт списания
// заново выводятся из свежей копии заказа. При отказе бэкенда сценарий
// остаётся открытым в состоянии FAILED с сохранённым вводом, и отправку
// можно повторить.
func (c *Coordinator) SubmitPay(ctx context.Context, orderID int64) (PayFlow, error) {
	c.mu.Lock()
	f, ok := c.pays[orderID]
	if !ok {
		c.mu.Unlock()
		return PayFlow{}, fmt.Errorf("%w: %d", ErrOrderUnknown, orderID)
	}
	if f.State == StateSubmitting {
		snapshot := *f
		c.mu.Unlock()
		return snapshot, ErrFlowBusy
	}

	order, found := c.ledger.Order(orderID)
	if !found {
		c.mu.Unlock()
		return PayFlow{}, fmt.Errorf("%w: %d", ErrOrderUnknown, orderID)
	}
	if !classify.IsPayable(order) {
		snapshot := *f
		c.mu.Unlock()
		return snapshot, fmt.Errorf("%w: %d", ErrNotPayable, orderID)
	}

	f.State = StateSubmitting
	f.Err = nil
	f.Quote = bonus.NewQuote(c.ledger.BonusBalance(), order.AmountBeforePayment, f.Requested)
	applied := f.Quote.Applied
	c.mu.Unlock()

	err := c.backend.PayOrder(ctx, orderID, applied)

	c.mu.Lock()
	if err != nil {
		f.State = StateFailed
		f.Err = err
		snapshot := *f
		c.mu.Unlock()
		return snapshot, err
	}
	f.State = StateSuccess
	snapshot := *f
	c.mu.Unlock()

	if err := c.ledger.RefreshOrder(ctx, orderID); err != nil {
		c.logger.Warn("order refresh after payment failed",
			zap.Int64("orderID", orderID), zap.Error(err))
	}

	return snapshot, nil
}

// ClosePay закрывает сценарий оплаты, возвращая его в IDLE.
// Сценарий в состоянии SUBMITTING закрыть нельзя.
func (c *Coordinator) ClosePay(orderID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.pays[orderID]; ok && f.State != StateSubmitting {
		delete(c.pays, orderID)
	}
}

// PrepareCancel открывает сценарий отмены заказа. Уже открытый сценарий
// возвращается с сохранённой причиной.
func (c *Coordinator) PrepareCancel(orderID int64) (CancelFlow, error) {
	order, ok := c.ledger.Order(orderID)
	if !ok {
		return CancelFlow{}, fmt.Errorf("%w: %d", ErrOrderUnknown, orderID)
	}
	if !classify.IsCancelable(order) {
		return CancelFlow{}, fmt.Errorf("%w: %d", ErrNotCancelable, orderID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.cancels[orderID]; ok {
		return *f, nil
	}

	f := &CancelFlow{OrderID: orderID, State: StateIdle}
	c.cancels[orderID] = f

	return *f, nil
}

// SetReason обновляет причину отмены в открытом сценарии. Причина не
// валидируется: пустая строка допустима, решает бэкенд.
func (c *Coordinator) SetReason(orderID int64, reason string) (CancelFlow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.cancels[orderID]
	if !ok {
		return CancelFlow{}, fmt.Errorf("%w: %d", ErrOrderUnknown, orderID)
	}
	if f.State == StateSubmitting {
		return *f, ErrFlowBusy
	}

	f.Reason = reason
	return *f, nil
}

// SubmitCancel отправляет отмену заказа. Применимость заново проверяется
// по свежей копии: частично оплаченный или ушедший по логистике заказ
// отменить нельзя, даже если кнопка была видна раньше.
func (c *Coordinator) SubmitCancel(ctx context.Context, orderID int64) (CancelFlow, error) {
	c.mu.Lock()
	f, ok := c.cancels[orderID]
	if !ok {
		c.mu.Unlock()
		return CancelFlow{}, fmt.Errorf("%w: %d", ErrOrderUnknown, orderID)
	}
	if f.State == StateSubmitting {
		snapshot := *f
		c.mu.Unlock()
		return snapshot, ErrFlowBusy
	}

	order, found := c.ledger.Order(orderID)
	if !found {
		c.mu.Unlock()
		return CancelFlow{}, fmt.Errorf("%w: %d", ErrOrderUnknown, orderID)
	}
	if !classify.IsCancelable(order) {
		snapshot := *f
		c.mu.Unlock()
		return snapshot, fmt.Errorf("%w: %d", ErrNotCancelable, orderID)
	}

	f.State = StateSubmitting
	f.Err = nil
	reason := f.Reason
	c.mu.Unlock()

	err := c.backend.CancelOrder(ctx, orderID, reason)

	c.mu.Lock()
	if err != nil {
		f.State = StateFailed
		f.Err = err
		snapshot := *f
		c.mu.Unlock()
		return snapshot, err
	}
	f.State = StateSuccess
	snapshot := *f
	c.mu.Unlock()

	if err := c.ledger.RefreshOrder(ctx, orderID); err != nil {
		c.logger.Warn("order refresh after cancellation failed",
			zap.Int64("orderID", orderID), zap.Error(err))
	}

	return snapshot, nil
}

// CloseCancel закрывает сценарий отмены, возвращая его в IDLE.
func (c *Coordinator) CloseCancel(orderID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.cancels[orderID]; ok && f.State != StateSubmitting {
		delete(c.cancels, orderID)
	}
}
