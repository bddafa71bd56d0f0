// Package model содержит доменные сущности кабинета заказов эко-сервиса.
package model

import (
	"fmt"
	"time"
)

// OrderStatus описывает логистический статус заказа. Набор значений
// формируется сервером и считается закрытым.
type OrderStatus string

const (
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusFormed         OrderStatus = "FORMED"
	OrderStatusAdjustment     OrderStatus = "ADJUSTMENT"
	OrderStatusBroughtHimself OrderStatus = "BROUGHT_IT_HIMSELF"
	OrderStatusNotTakenOut    OrderStatus = "NOT_TAKEN_OUT"
	OrderStatusCanceled       OrderStatus = "CANCELED"
	OrderStatusDone           OrderStatus = "DONE"
)

// PaymentStatus описывает статус оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusHalfPaid PaymentStatus = "HALFPAID"
)

// Bag описывает одну позицию заказа: услугу и пакеты заданной ёмкости.
type Bag struct {
	Service   string
	Capacity  int
	UnitPrice int64
	Count     int
	LineTotal int64
}

// Certificate описывает сертификат, применённый к заказу.
type Certificate struct {
	Points int64
}

// Sender содержит контактные данные отправителя заказа.
type Sender struct {
	Name    string
	Surname string
	Phone   string
	Email   string
}

// Address содержит адрес вывоза.
type Address struct {
	City        string
	Street      string
	HouseNumber string
	Corpus      string
	Entrance    string
	District    string
	Comment     string
}

// Order описывает заказ пользователя в том виде, в котором его отдаёт бэкенд.
// Заказы создаются только сервером и приходят к клиенту в режиме чтения;
// обновление записи возможно только повторной загрузкой, не локальной правкой.
// Все денежные поля хранятся в копейках.
type Order struct {
	ID                  int64
	OrderStatus         OrderStatus
	PaymentStatus       PaymentStatus
	OrderFullPrice      int64
	AmountBeforePayment int64
	PaidAmount          int64
	Bonuses             int64
	RefundedMoney       int64
	RefundedBonuses     int64
	DateForm            time.Time
	DatePaid            *time.Time
	Bags                []Bag
	Certificates        []Certificate
	AdditionalOrders    []int64
	OrderComment        string
	Sender              Sender
	Address             Address
}

// Bonus описывает одну строку бонусного счёта пользователя.
type Bonus struct {
	Amount int64
}

// OrdersPage описывает одну страницу пагинированного списка заказов.
type OrdersPage struct {
	Orders        []Order
	TotalElements int
	TotalPages    int
	CurrentPage   int
	Size          int
}

// FormatUAH форматирует сумму в копейках в отображаемую строку вида "123.45 UAH".
func FormatUAH(kopecks int64) string {
	return fmt.Sprintf("%d.%02d UAH", kopecks/100, kopecks%100)
}
