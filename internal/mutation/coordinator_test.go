package mutation

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/ecocab/ecocab-orders/internal/model"
)

type stubLedger struct {
	orders  map[int64]model.Order
	balance int64

	refreshed  []int64
	refreshErr error
}

func (s *stubLedger) Order(id int64) (model.Order, bool) {
	o, ok := s.orders[id]
	return o, ok
}

func (s *stubLedger) BonusBalance() int64 {
	return s.balance
}

func (s *stubLedger) RefreshOrder(ctx context.Context, id int64) error {
	s.refreshed = append(s.refreshed, id)
	if s.refreshErr != nil {
		return s.refreshErr
	}
	// Эмулируем перечитывание: после успешной отмены заказ приходит закрытым.
	if o, ok := s.orders[id]; ok {
		o.OrderStatus = model.OrderStatusCanceled
		s.orders[id] = o
	}
	return nil
}

type stubBackend struct {
	payErr    error
	payCalls  int
	paidBonus int64

	cancelErr    error
	cancelCalls  int
	cancelReason string
}

func (s *stubBackend) PayOrder(ctx context.Context, id int64, bonusesUsed int64) error {
	s.payCalls++
	s.paidBonus = bonusesUsed
	return s.payErr
}

func (s *stubBackend) CancelOrder(ctx context.Context, id int64, reason string) error {
	s.cancelCalls++
	s.cancelReason = reason
	return s.cancelErr
}

func payableOrder(id int64) model.Order {
	return model.Order{
		ID:                  id,
		OrderStatus:         model.OrderStatusConfirmed,
		PaymentStatus:       model.PaymentStatusUnpaid,
		OrderFullPrice:      50000,
		AmountBeforePayment: 50000,
	}
}

func newTestCoordinator(led *stubLedger, be *stubBackend) *Coordinator {
	return NewCoordinator(led, be, zap.NewNop())
}

func TestPreparePay_RejectsIneligibleOrder(t *testing.T) {
	canceled := payableOrder(1)
	canceled.OrderStatus = model.OrderStatusCanceled

	led := &stubLedger{orders: map[int64]model.Order{1: canceled}}
	c := newTestCoordinator(led, &stubBackend{})

	_, err := c.PreparePay(1)
	if !errors.Is(err, ErrNotPayable) {
		t.Fatalf("err = %v, want ErrNotPayable", err)
	}
}

func TestPreparePay_UnknownOrder(t *testing.T) {
	c := newTestCoordinator(&stubLedger{orders: map[int64]model.Order{}}, &stubBackend{})

	_, err := c.PreparePay(99)
	if !errors.Is(err, ErrOrderUnknown) {
		t.Fatalf("err = %v, want ErrOrderUnknown", err)
	}
}

func TestSetRedemption_ClampsToMax(t *testing.T) {
	led := &stubLedger{
		orders:  map[int64]model.Order{1: payableOrder(1)},
		balance: 100000,
	}
	c := newTestCoordinator(led, &stubBackend{})

	if _, err := c.PreparePay(1); err != nil {
		t.Fatalf("PreparePay error: %v", err)
	}

	f, err := c.SetRedemption(1, 99999999)
	if err != nil {
		t.Fatalf("SetRedemption error: %v", err)
	}

	// Цена 50000, потолок 90% = 45000.
	if f.Quote.Applied != 45000 {
		t.Fatalf("applied = %d, want 45000", f.Quote.Applied)
	}
	if f.Quote.Payable != 5000 {
		t.Fatalf("payable = %d, want 5000", f.Quote.Payable)
	}
}

func TestSubmitPay_SuccessRefreshesAndReportsSuccess(t *testing.T) {
	led := &stubLedger{
		orders:  map[int64]model.Order{1: payableOrder(1)},
		balance: 100000,
	}
	be := &stubBackend{}
	c := newTestCoordinator(led, be)

	if _, err := c.PreparePay(1); err != nil {
		t.Fatalf("PreparePay error: %v", err)
	}
	if _, err := c.SetRedemption(1, 20000); err != nil {
		t.Fatalf("SetRedemption error: %v", err)
	}

	f, err := c.SubmitPay(context.Background(), 1)
	if err != nil {
		t.Fatalf("SubmitPay error: %v", err)
	}
	if f.State != StateSuccess {
		t.Fatalf("state = %s, want SUCCESS", f.State)
	}
	if be.paidBonus != 20000 {
		t.Fatalf("backend got bonusesUsed = %d, want 20000", be.paidBonus)
	}
	if len(led.refreshed) != 1 || led.refreshed[0] != 1 {
		t.Fatalf("refreshed = %v, want [1]", led.refreshed)
	}
}

func TestSubmitPay_FailureKeepsFlowOpenWithInput(t *testing.T) {
	led := &stubLedger{
		orders:  map[int64]model.Order{1: payableOrder(1)},
		balance: 100000,
	}
	be := &stubBackend{payErr: errors.New("gateway rejected")}
	c := newTestCoordinator(led, be)

	if _, err := c.PreparePay(1); err != nil {
		t.Fatalf("PreparePay error: %v", err)
	}
	if _, err := c.SetRedemption(1, 30000); err != nil {
		t.Fatalf("SetRedemption error: %v", err)
	}

	f, err := c.SubmitPay(context.Background(), 1)
	if err == nil {
		t.Fatalf("expected error from SubmitPay")
	}
	if f.State != StateFailed {
		t.Fatalf("state = %s, want FAILED", f.State)
	}
	if f.Requested != 30000 {
		t.Fatalf("requested = %d after failure, want 30000 preserved", f.Requested)
	}
	if len(led.refreshed) != 0 {
		t.Fatalf("refresh must not run after failed payment, got %v", led.refreshed)
	}

	// Повторное открытие возвращает тот же сценарий с сохранённым вводом.
	f, err = c.PreparePay(1)
	if err != nil {
		t.Fatalf("PreparePay after failure: %v", err)
	}
	if f.Requested != 30000 {
		t.Fatalf("requested = %d after reopen, want 30000", f.Requested)
	}

	// Повторная отправка после устранения ошибки проходит.
	be.payErr = nil
	f, err = c.SubmitPay(context.Background(), 1)
	if err != nil {
		t.Fatalf("retry SubmitPay error: %v", err)
	}
	if f.State != StateSuccess || be.payCalls != 2 {
		t.Fatalf("retry: state=%s calls=%d, want SUCCESS after 2 calls", f.State, be.payCalls)
	}
}

func TestSubmitPay_RecheckUsesFreshCopy(t *testing.T) {
	led := &stubLedger{
		orders:  map[int64]model.Order{1: payableOrder(1)},
		balance: 100000,
	}
	be := &stubBackend{}
	c := newTestCoordinator(led, be)

	if _, err := c.PreparePay(1); err != nil {
		t.Fatalf("PreparePay error: %v", err)
	}

	// Пока модальное окно было открыто, заказ успели оплатить в другом месте.
	paid := payableOrder(1)
	paid.PaymentStatus = model.PaymentStatusPaid
	led.orders[1] = paid

	_, err := c.SubmitPay(context.Background(), 1)
	if !errors.Is(err, ErrNotPayable) {
		t.Fatalf("err = %v, want ErrNotPayable", err)
	}
	if be.payCalls != 0 {
		t.Fatalf("backend called %d times for ineligible order, want 0", be.payCalls)
	}
}

func TestPrepareCancel_HalfPaidRejected(t *testing.T) {
	halfPaid := payableOrder(1)
	halfPaid.PaymentStatus = model.PaymentStatusHalfPaid

	led := &stubLedger{orders: map[int64]model.Order{1: halfPaid}}
	c := newTestCoordinator(led, &stubBackend{})

	_, err := c.PrepareCancel(1)
	if !errors.Is(err, ErrNotCancelable) {
		t.Fatalf("err = %v, want ErrNotCancelable", err)
	}
}

func TestSubmitCancel_SuccessMovesOrderViaRefresh(t *testing.T) {
	led := &stubLedger{orders: map[int64]model.Order{1: payableOrder(1)}}
	be := &stubBackend{}
	c := newTestCoordinator(led, be)

	if _, err := c.PrepareCancel(1); err != nil {
		t.Fatalf("PrepareCancel error: %v", err)
	}
	if _, err := c.SetReason(1, "уезжаю"); err != nil {
		t.Fatalf("SetReason error: %v", err)
	}

	f, err := c.SubmitCancel(context.Background(), 1)
	if err != nil {
		t.Fatalf("SubmitCancel error: %v", err)
	}
	if f.State != StateSuccess {
		t.Fatalf("state = %s, want SUCCESS", f.State)
	}
	if be.cancelReason != "уезжаю" {
		t.Fatalf("backend got reason %q", be.cancelReason)
	}

	// Леджер перечитал заказ, и тот стал закрытым.
	o, ok := led.Order(1)
	if !ok || o.OrderStatus != model.OrderStatusCanceled {
		t.Fatalf("order after refresh = %+v, want CANCELED", o)
	}
}

func TestSubmitCancel_EmptyReasonAllowed(t *testing.T) {
	led := &stubLedger{orders: map[int64]model.Order{1: payableOrder(1)}}
	be := &stubBackend{}
	c := newTestCoordinator(led, be)

	if _, err := c.PrepareCancel(1); err != nil {
		t.Fatalf("PrepareCancel error: %v", err)
	}

	if _, err := c.SubmitCancel(context.Background(), 1); err != nil {
		t.Fatalf("SubmitCancel with empty reason: %v", err)
	}
	if be.cancelCalls != 1 {
		t.Fatalf("cancel calls = %d, want 1", be.cancelCalls)
	}
}

func TestSubmitCancel_FailureKeepsReason(t *testing.T) {
	led := &stubLedger{orders: map[int64]model.Order{1: payableOrder(1)}}
	be := &stubBackend{cancelErr: errors.New("backend down")}
	c := newTestCoordinator(led, be)

	if _, err := c.PrepareCancel(1); err != nil {
		t.Fatalf("PrepareCancel error: %v", err)
	}
	if _, err := c.SetReason(1, "передумал"); err != nil {
		t.Fatalf("SetReason error: %v", err)
	}

	f, err := c.SubmitCancel(context.Background(), 1)
	if err == nil {
		t.Fatalf("expected error from SubmitCancel")
	}
	if f.State != StateFailed || f.Reason != "передумал" {
		t.Fatalf("flow after failure = %+v, want FAILED with reason preserved", f)
	}
	if len(led.refreshed) != 0 {
		t.Fatalf("refresh must not run after failed cancellation")
	}
}
