package classify

import (
	"testing"

	"github.com/ecocab/ecocab-orders/internal/model"
)

func TestIsClosed(t *testing.T) {
	tests := []struct {
		status model.OrderStatus
		want   bool
	}{
		{model.OrderStatusConfirmed, false},
		{model.OrderStatusFormed, false},
		{model.OrderStatusAdjustment, false},
		{model.OrderStatusBroughtHimself, false},
		{model.OrderStatusNotTakenOut, false},
		{model.OrderStatusCanceled, true},
		{model.OrderStatusDone, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			o := model.Order{OrderStatus: tt.status}
			if got := IsClosed(o); got != tt.want {
				t.Fatalf("IsClosed(%s) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestIsCancelable_HalfPaidNeverCancelable(t *testing.T) {
	statuses := []model.OrderStatus{
		model.OrderStatusConfirmed,
		model.OrderStatusFormed,
		model.OrderStatusAdjustment,
		model.OrderStatusBroughtHimself,
		model.OrderStatusNotTakenOut,
		model.OrderStatusCanceled,
		model.OrderStatusDone,
	}

	for _, st := range statuses {
		o := model.Order{
			OrderStatus:   st,
			PaymentStatus: model.PaymentStatusHalfPaid,
		}
		if IsCancelable(o) {
			t.Fatalf("half-paid order with status %s must not be cancelable", st)
		}
	}
}

func TestIsCancelable_ByStatus(t *testing.T) {
	tests := []struct {
		status model.OrderStatus
		want   bool
	}{
		{model.OrderStatusConfirmed, true},
		{model.OrderStatusFormed, true},
		{model.OrderStatusAdjustment, false},
		{model.OrderStatusBroughtHimself, false},
		{model.OrderStatusNotTakenOut, false},
		{model.OrderStatusCanceled, false},
		{model.OrderStatusDone, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			o := model.Order{
				OrderStatus:   tt.status,
				PaymentStatus: model.PaymentStatusUnpaid,
			}
			if got := IsCancelable(o); got != tt.want {
				t.Fatalf("IsCancelable(%s) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestIsPayable(t *testing.T) {
	tests := []struct {
		name    string
		order   model.Order
		payable bool
	}{
		{
			name: "unpaid confirmed",
			order: model.Order{
				OrderStatus:    model.OrderStatusConfirmed,
				PaymentStatus:  model.PaymentStatusUnpaid,
				OrderFullPrice: 50000,
			},
			payable: true,
		},
		{
			name: "half-paid formed",
			order: model.Order{
				OrderStatus:    model.OrderStatusFormed,
				PaymentStatus:  model.PaymentStatusHalfPaid,
				OrderFullPrice: 50000,
			},
			payable: true,
		},
		{
			name: "already paid",
			order: model.Order{
				OrderStatus:    model.OrderStatusConfirmed,
				PaymentStatus:  model.PaymentStatusPaid,
				OrderFullPrice: 50000,
			},
			payable: false,
		},
		{
			name: "canceled never payable",
			order: model.Order{
				OrderStatus:    model.OrderStatusCanceled,
				PaymentStatus:  model.PaymentStatusUnpaid,
				OrderFullPrice: 50000,
			},
			payable: false,
		},
		{
			name: "zero price",
			order: model.Order{
				OrderStatus:    model.OrderStatusConfirmed,
				PaymentStatus:  model.PaymentStatusUnpaid,
				OrderFullPrice: 0,
			},
			payable: false,
		},
		{
			name: "done unpaid",
			order: model.Order{
				OrderStatus:    model.OrderStatusDone,
				PaymentStatus:  model.PaymentStatusUnpaid,
				OrderFullPrice: 50000,
			},
			payable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPayable(tt.order); got != tt.payable {
				t.Fatalf("IsPayable = %v, want %v", got, tt.payable)
			}
			if got := ActionsVisible(tt.order); got != tt.payable {
				t.Fatalf("ActionsVisible = %v, want %v", got, tt.payable)
			}
		})
	}
}

func TestPaymentPredicatesAreExclusive(t *testing.T) {
	for _, ps := range []model.PaymentStatus{
		model.PaymentStatusPaid,
		model.PaymentStatusUnpaid,
		model.PaymentStatusHalfPaid,
	} {
		o := model.Order{PaymentStatus: ps}
		n := 0
		if IsPaid(o) {
			n++
		}
		if IsUnpaid(o) {
			n++
		}
		if IsHalfPaid(o) {
			n++
		}
		if n != 1 {
			t.Fatalf("payment status %s matched %d predicates, want exactly 1", ps, n)
		}
	}
}
