// Package backend предоставляет клиент REST API сервиса заказов.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/ecocab/ecocab-orders/internal/model"
)

// ErrOrderNotFound возвращается, если бэкенд не знает заказ с таким id.
var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrPaymentRejected возвращается, если бэкенд отклонил оплату заказа.
	ErrPaymentRejected = errors.New("payment rejected")
	// ErrCancellationRejected возвращается, если бэкенд отклонил отмену заказа.
	ErrCancellationRejected = errors.New("cancellation rejected")
)

// Client инкапсулирует HTTP-взаимодействие с сервисом заказов.
// Чтения идут через клиент с повторами, мутации — без повторов:
// автоматический повтор POST мог бы привести к двойной оплате.
type Client struct {
	baseURL      string
	readClient   *http.Client
	mutateClient *http.Client
}

// NewClient создаёт клиент сервиса заказов по указанному адресу.
// Каждый вызов ограничен таймаутом timeout; временные сетевые ошибки
// и ответы 5xx на чтениях повторяются ограниченное число раз.
func NewClient(baseURL string, timeout time.Duration) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil

	return &Client{
		baseURL:      base,
		readClient:   rc.StandardClient(),
		mutateClient: &http.Client{Timeout: timeout},
	}
}

type bagDTO struct {
	Service   string  `json:"service"`
	Capacity  int     `json:"capacity"`
	UnitPrice float64 `json:"unitPrice"`
	Count     int     `json:"count"`
	LineTotal float64 `json:"lineTotal"`
}

type certificateDTO struct {
	Points float64 `json:"points"`
}

type senderDTO struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

type addressDTO struct {
	City        string `json:"city"`
	Street      string `json:"street"`
	HouseNumber string `json:"houseNumber"`
	Corpus      string `json:"corpus"`
	Entrance    string `json:"entrance"`
	District    string `json:"district"`
	Comment     string `json:"comment"`
}

type orderDTO struct {
	ID                  int64            `json:"id"`
	OrderStatus         string           `json:"orderStatus"`
	PaymentStatus       string           `json:"paymentStatus"`
	OrderFullPrice      float64          `json:"orderFullPrice"`
	AmountBeforePayment float64          `json:"amountBeforePayment"`
	PaidAmount          float64          `json:"paidAmount"`
	Bonuses             float64          `json:"bonuses"`
	RefundedMoney       float64          `json:"refundedMoney"`
	RefundedBonuses     float64          `json:"refundedBonuses"`
	DateForm            time.Time        `json:"dateForm"`
	DatePaid            *time.Time       `json:"datePaid"`
	Bags                []bagDTO         `json:"bags"`
	Certificate         []certificateDTO `json:"certificate"`
	AdditionalOrders    []int64          `json:"additionalOrders"`
	OrderComment        string           `json:"orderComment"`
	Sender              senderDTO        `json:"sender"`
	Address             addressDTO       `json:"address"`
}

type ordersPageDTO struct {
	Page          []orderDTO `json:"page"`
	TotalElements int        `json:"totalElements"`
	TotalPages    int        `json:"totalPages"`
	CurrentPage   int        `json:"currentPage"`
	Size          int        `json:"size"`
}

type bonusDTO struct {
	Amount float64 `json:"amount"`
}

// Бэкенд передаёт суммы в гривнах, внутри модуля деньги хранятся в копейках.
func toKopecks(v float64) int64 {
	return int64(v * 100)
}

func (d orderDTO) toModel() model.Order {
	o := model.Order{
		ID:                  d.ID,
		OrderStatus:         model.OrderStatus(d.OrderStatus),
		PaymentStatus:       model.PaymentStatus(d.PaymentStatus),
		OrderFullPrice:      toKopecks(d.OrderFullPrice),
		AmountBeforePayment: toKopecks(d.AmountBeforePayment),
		PaidAmount:          toKopecks(d.PaidAmount),
		Bonuses:             toKopecks(d.Bonuses),
		RefundedMoney:       toKopecks(d.RefundedMoney),
		RefundedBonuses:     toKopecks(d.RefundedBonuses),
		DateForm:            d.DateForm,
		DatePaid:            d.DatePaid,
		AdditionalOrders:    d.AdditionalOrders,
		OrderComment:        d.OrderComment,
		Sender:              model.Sender(d.Sender),
		Address:             model.Address(d.Address),
	}

	for _, b := range d.Bags {
		o.Bags = append(o.Bags, model.Bag{
			Service:   b.Service,
			Capacity:  b.Capacity,
			UnitPrice: toKopecks(b.UnitPrice),
			Count:     b.Count,
			LineTotal: toKopecks(b.LineTotal),
		})
	}

	for _, c := range d.Certificate {
		o.Certificates = append(o.Certificates, model.Certificate{Points: toKopecks(c.Points)})
	}

	return o
}

// GetOrdersPage запрашивает страницу page пагинированного списка заказов.
func (c *Client) GetOrdersPage(ctx context.Context, page int) (*model.OrdersPage, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("backend client not configured")
	}

	url := fmt.Sprintf("%s/api/orders?page=%d", c.baseURL, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.readClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var dto ordersPageDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	result := &model.OrdersPage{
		TotalElements: dto.TotalElements,
		TotalPages:    dto.TotalPages,
		CurrentPage:   dto.CurrentPage,
		Size:          dto.Size,
	}
	for _, d := range dto.Page {
		result.Orders = append(result.Orders, d.toModel())
	}

	return result, nil
}

// GetOrder запрашивает актуальное состояние одного заказа.
func (c *Client) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("backend client not configured")
	}

	url := fmt.Sprintf("%s/api/orders/%d", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.readClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var dto orderDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	order := dto.toModel()
	return &order, nil
}

// GetBonuses запрашивает строки бонусного счёта пользователя.
func (c *Client) GetBonuses(ctx context.Context) ([]model.Bonus, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("backend client not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/bonuses", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.readClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var dtos []bonusDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	bonuses := make([]model.Bonus, 0, len(dtos))
	for _, d := range dtos {
		bonuses = append(bonuses, model.Bonus{Amount: toKopecks(d.Amount)})
	}

	return bonuses, nil
}

type payRequest struct {
	BonusesUsed float64 `json:"bonusesUsed"`
}

// PayOrder отправляет оплату заказа с указанным списанием бонусов в копейках.
func (c *Client) PayOrder(ctx context.Context, id int64, bonusesUsed int64) error {
	url := fmt.Sprintf("%s/api/orders/%d/pay", c.baseURL, id)
	body := payRequest{BonusesUsed: float64(bonusesUsed) / 100}

	if err := c.post(ctx, url, body); err != nil {
		return fmt.Errorf("%w: %w", ErrPaymentRejected, err)
	}
	return nil
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// CancelOrder отправляет отмену заказа с указанной пользователем причиной.
// Пустая причина допустима: её проверяет бэкенд, а не клиент.
func (c *Client) CancelOrder(ctx context.Context, id int64, reason string) error {
	url := fmt.Sprintf("%s/api/orders/%d/cancel", c.baseURL, id)

	if err := c.post(ctx, url, cancelRequest{Reason: reason}); err != nil {
		return fmt.Errorf("%w: %w", ErrCancellationRejected, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, body any) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("backend client not configured")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.mutateClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
