package hub

import (
	"log/slog"
	"sync"

	"github.com/asquebay/storefront-order-service/internal/model"
)

// Listener — колбэк подписчика, получающий очередную версию документа заказа
type Listener func(order model.Order)

// Handle идентифицирует одну подписку; нужен, чтобы отписать ровно её
type Handle struct {
	orderID string
	id      uint64
}

type subscription struct {
	id uint64
	fn Listener
}

// Hub — реестр подписчиков на изменения заказов, живущий только в памяти процесса
// создаётся один раз в main и передаётся явно всем, кому нужен;
// при рестарте процесса все подписки пропадают — это ожидаемое поведение,
// клиенты переподключаются сами
type Hub struct {
	mu   sync.Mutex
	subs map[string][]subscription
	next uint64
	log  *slog.Logger
}

// New создаёт пустой хаб
func New(log *slog.Logger) *Hub {
	return &Hub{
		subs: make(map[string][]subscription),
		log:  log,
	}
}

// Subscribe регистрирует подписчика на заказ orderID
// подписчики хранятся в порядке регистрации, количество не ограничено
func (h *Hub) Subscribe(orderID string, fn Listener) Handle {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	h.subs[orderID] = append(h.subs[orderID], subscription{id: h.next, fn: fn})

	return Handle{orderID: orderID, id: h.next}
}

// Unsubscribe снимает ровно одну подписку
// повторный вызов с тем же handle (или после Close) — безопасный no-op
func (h *Hub) Unsubscribe(handle Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subs[handle.orderID]
	if !ok {
		return
	}

	for i, sub := range subs {
		if sub.id == handle.id {
			h.subs[handle.orderID] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}

	// не держим пустые ключи, иначе map будет расти на каждый просмотренный заказ
	if len(h.subs[handle.orderID]) == 0 {
		delete(h.subs, handle.orderID)
	}
}

// Notify синхронно вызывает всех текущих подписчиков заказа в порядке регистрации
// если подписчиков нет — тихий no-op: хаб ничего не буферизует
//
// слепок списка снимается под мьютексом, а колбэки зовутся уже без него,
// поэтому Subscribe/Unsubscribe из других горутин (например, отключение клиента
// во время доставки) не могут сломать итерацию
func (h *Hub) Notify(orderID string, order model.Order) {
	h.mu.Lock()
	subs := make([]subscription, len(h.subs[orderID]))
	copy(subs, h.subs[orderID])
	h.mu.Unlock()

	for _, sub := range subs {
		h.deliver(orderID, sub, order)
	}
}

// deliver вызывает один колбэк, изолируя его сбой:
// паника подписчика логируется и не мешает ни остальным подписчикам,
// ни мутации заказа, которая вызвала уведомление
func (h *Hub) deliver(orderID string, sub subscription, order model.Order) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("order listener panicked",
				slog.String("order_id", orderID),
				slog.Uint64("listener_id", sub.id),
				slog.Any("panic", rec),
			)
		}
	}()

	sub.fn(order)
}

// Len возвращает число подписчиков заказа
// используется в тестах и для диагностики утечек подписок
func (h *Hub) Len(orderID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[orderID])
}

// Close сбрасывает все подписки; вызывается при остановке процесса
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = make(map[string][]subscription)
}
