// Package ledger накапливает постранично загруженные заказы пользователя
// и поддерживает их разбиение на текущие и закрытые.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ecocab/ecocab-orders/internal/backend"
	"github.com/ecocab/ecocab-orders/internal/classify"
	"github.com/ecocab/ecocab-orders/internal/model"
)

// ErrFetchPage возвращается, когда очередная страница заказов не была загружена.
// Уже накопленные заказы при этом остаются нетронутыми.
var ErrFetchPage = errors.New("fetch orders page failed")

// Client описывает вызовы бэкенда, используемые леджером.
type Client interface {
	GetOrdersPage(ctx context.Context, page int) (*model.OrdersPage, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	GetBonuses(ctx context.Context) ([]model.Bonus, error)
}

// Ledger хранит канонический набор заказов, накопленный из пагинированного
// источника, и последний известный бонусный баланс. Корзины current/closed
// вычисляются из набора по терминальности статуса, поэтому каждый заказ
// находится ровно в одной корзине и ровно один раз.
type Ledger struct {
	client Client
	logger *zap.Logger

	mu      sync.Mutex
	orders  map[int64]model.Order
	seq     []int64 // порядок первого появления заказа
	page    int
	hasMore bool
	loading bool
	balance int64
	lastErr error
}

// New создаёт пустой леджер поверх указанного клиента бэкенда.
func New(client Client, logger *zap.Logger) *Ledger {
	return &Ledger{
		client:  client,
		logger:  logger,
		orders:  make(map[int64]model.Order),
		hasMore: true,
	}
}

// LoadNextPage загружает следующую страницу заказов и раскладывает её
// содержимое по корзинам. Повторный вызов во время незавершённой загрузки
// и вызов после исчерпания страниц — no-op: при быстрой прокрутке
// выполняется ровно один сетевой запрос.
//
// Возвращает true, если запрос был выполнен. Счётчик страницы продвигается
// только после успешного ответа, поэтому неудачная загрузка повторит
// ту же страницу.
func (l *Ledger) LoadNextPage(ctx context.Context) (bool, error) {
	l.mu.Lock()
	if l.loading || !l.hasMore {
		l.mu.Unlock()
		return false, nil
	}
	l.loading = true
	page := l.page
	l.mu.Unlock()

	result, err := l.client.GetOrdersPage(ctx, page)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false

	if err != nil {
		l.lastErr = fmt.Errorf("%w: %w", ErrFetchPage, err)
		return true, l.lastErr
	}

	for _, o := range result.Orders {
		l.upsert(o)
	}

	l.page = page + 1
	l.hasMore = l.page < result.TotalPages
	l.lastErr = nil

	return true, nil
}

// LoadBonuses обновляет бонусный баланс суммой строк бонусного счёта.
// Ошибка загрузки не фатальна и пользователю не показывается: баланс —
// вспомогательная информация, остаётся последнее известное значение.
func (l *Ledger) LoadBonuses(ctx context.Context) {
	items, err := l.client.GetBonuses(ctx)
	if err != nil {
		l.logger.Warn("bonus balance fetch failed", zap.Error(err))
		return
	}

	var total int64
	for _, b := range items {
		total += b.Amount
	}

	l.mu.Lock()
	l.balance = total
	l.mu.Unlock()
}

// RefreshOrder перечитывает один заказ после успешной мутации и заменяет
// его копию в каноническом наборе. Локально поля заказа никогда не
// правятся: сервер мог применить побочные эффекты (например, возвраты),
// которых не было в запросе мутации. Смена корзины происходит сама собой,
// так как корзины вычисляются по статусу. Если бэкенд отвечает, что заказа
// больше нет, устаревшая запись удаляется.
func (l *Ledger) RefreshOrder(ctx context.Context, id int64) error {
	order, err := l.client.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, backend.ErrOrderNotFound) {
			l.mu.Lock()
			l.remove(id)
			l.mu.Unlock()
			return nil
		}
		return fmt.Errorf("refresh order %d: %w", id, err)
	}

	l.mu.Lock()
	l.upsert(*order)
	l.mu.Unlock()

	return nil
}

// Current возвращает открытые заказы в порядке их первого появления.
func (l *Ledger) Current() []model.Order {
	return l.bucket(false)
}

// Closed возвращает завершённые и отменённые заказы в порядке их первого появления.
func (l *Ledger) Closed() []model.Order {
	return l.bucket(true)
}

func (l *Ledger) bucket(closed bool) []model.Order {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]model.Order, 0, len(l.seq))
	for _, id := range l.seq {
		o := l.orders[id]
		if classify.IsClosed(o) == closed {
			result = append(result, o)
		}
	}
	return result
}

// Order возвращает самую свежую накопленную копию заказа.
func (l *Ledger) Order(id int64) (model.Order, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.orders[id]
	return o, ok
}

// BonusBalance возвращает последний известный бонусный баланс в копейках.
func (l *Ledger) BonusBalance() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// HasMore сообщает, остались ли незагруженные страницы.
func (l *Ledger) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasMore
}

// Loading сообщает, выполняется ли сейчас загрузка страницы.
func (l *Ledger) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// LastError возвращает ошибку последней загрузки страницы или nil после успеха.
func (l *Ledger) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func (l *Ledger) upsert(o model.Order) {
	if _, ok := l.orders[o.ID]; !ok {
		l.seq = append(l.seq, o.ID)
	}
	l.orders[o.ID] = o
}

func (l *Ledger) remove(id int64) {
	if _, ok := l.orders[id]; !ok {
		return
	}
	delete(l.orders, id)
	for i, v := range l.seq {
		if v == id {
			l.seq = append(l.seq[:i], l.seq[i+1:]...)
			break
		}
	}
}
