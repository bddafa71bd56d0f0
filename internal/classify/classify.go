// Package classify содержит чистые предикаты применимости действий к заказу.
//
// Предикаты — единственный источник правил о том, закрыт ли заказ и какие
// действия (оплата, отмена) для него сейчас легальны. И фасад, и координатор
// мутаций обязаны вычислять их заново по самой свежей загруженной копии
// заказа: кешировать результат через границу мутации нельзя.
package classify

import "github.com/ecocab/ecocab-orders/internal/model"

// IsClosed сообщает, находится ли заказ в терминальном статусе.
// Такие заказы попадают в корзину закрытых и больше не меняются.
func IsClosed(o model.Order) bool {
	return o.OrderStatus == model.OrderStatusDone || o.OrderStatus == model.OrderStatusCanceled
}

// IsUnpaid сообщает, что заказ полностью не оплачен.
func IsUnpaid(o model.Order) bool {
	return o.PaymentStatus == model.PaymentStatusUnpaid
}

// IsHalfPaid сообщает, что заказ оплачен частично.
func IsHalfPaid(o model.Order) bool {
	return o.PaymentStatus == model.PaymentStatusHalfPaid
}

// IsPaid сообщает, что заказ оплачен полностью.
func IsPaid(o model.Order) bool {
	return o.PaymentStatus == model.PaymentStatusPaid
}

// IsCancelable сообщает, доступна ли самостоятельная отмена заказа.
// Частично оплаченный заказ требует ручного возврата средств, а после
// корректировки, самовывоза или невывоза отмена уже не имеет смысла.
func IsCancelable(o model.Order) bool {
	if IsHalfPaid(o) {
		return false
	}
	switch o.OrderStatus {
	case model.OrderStatusAdjustment,
		model.OrderStatusBroughtHimself,
		model.OrderStatusNotTakenOut,
		model.OrderStatusCanceled,
		model.OrderStatusDone:
		return false
	}
	return true
}

// IsPayable сообщает, доступна ли оплата заказа.
func IsPayable(o model.Order) bool {
	if o.OrderFullPrice <= 0 {
		return false
	}
	if o.OrderStatus == model.OrderStatusCanceled {
		return false
	}
	return IsUnpaid(o) || IsHalfPaid(o)
}

// ActionsVisible сообщает, показывать ли пользователю блок действий по заказу.
// Кнопка отмены внутри блока дополнительно ограничена IsCancelable.
func ActionsVisible(o model.Order) bool {
	return IsPayable(o)
}
