// Package bonus реализует расчёт списания бонусов при оплате заказа.
package bonus

// redemptionCapPercent — доля стоимости заказа, которую разрешено покрыть бонусами.
const redemptionCapPercent = 90

// MaxRedeemable возвращает максимально допустимое списание бонусов для заказа
// стоимостью price: не больше доступного остатка и не больше 90% цены.
// Все суммы в копейках; целочисленное деление даёт округление вниз.
func MaxRedeemable(availableBonuses, price int64) int64 {
	if availableBonuses < 0 {
		availableBonuses = 0
	}
	if price <= 0 {
		return 0
	}
	limit := price * redemptionCapPercent / 100
	if availableBonuses < limit {
		return availableBonuses
	}
	return limit
}

// Clamp приводит запрошенное списание к диапазону [0, maxRedeemable].
// Значения вне диапазона молча обрезаются: это живой элемент управления,
// а не валидируемая форма, поэтому ошибок здесь не бывает.
func Clamp(requested, maxRedeemable int64) int64 {
	if requested < 0 {
		return 0
	}
	if requested > maxRedeemable {
		return maxRedeemable
	}
	return requested
}

// Quote описывает расчёт оплаты заказа с учётом списанных бонусов.
type Quote struct {
	Price         int64
	MaxRedeemable int64
	Applied       int64
	Payable       int64
}

// NewQuote строит расчёт для заказа стоимостью price при доступном остатке
// availableBonuses и запрошенном пользователем списании requested.
// Payable никогда не бывает отрицательным: Applied не превышает 90% цены.
func NewQuote(availableBonuses, price, requested int64) Quote {
	maxRedeemable := MaxRedeemable(availableBonuses, price)
	applied := Clamp(requested, maxRedeemable)

	return Quote{
		Price:         price,
		MaxRedeemable: maxRedeemable,
		Applied:       applied,
		Payable:       price - applied,
	}
}
