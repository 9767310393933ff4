package docstore

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory — in-memory реализация Client для тестов вызывающего кода
// семантика повторяет бэкенд: заказы получают id и createdAt при создании,
// корзины заменяются целиком, подписчики заказа получают каждое изменение
type Memory struct {
	mu        sync.Mutex
	orders    map[string]map[string]any
	carts     map[string]map[string]any
	listeners map[string][]memListener
	nextSub   uint64
}

type memListener struct {
	id uint64
	fn func(Snapshot)
}

// NewMemory создаёт пустое in-memory хранилище
func NewMemory() *Memory {
	return &Memory{
		orders:    make(map[string]map[string]any),
		carts:     make(map[string]map[string]any),
		listeners: make(map[string][]memListener),
	}
}

// AddDoc создаёт документ по тем же правилам, что и REST-бэкенд
func (m *Memory) AddDoc(_ context.Context, ref CollectionRef, payload map[string]any) (DocRef, error) {
	if isOrderCollection(ref.Name) {
		doc := maps.Clone(payload)
		if doc == nil {
			doc = map[string]any{}
		}
		// id и createdAt принадлежат хранилищу, клиентские значения затираются
		id := uuid.NewString()
		doc["id"] = id
		doc["createdAt"] = time.Now().UTC().Format(time.RFC3339Nano)
		if _, ok := doc["status"]; !ok {
			doc["status"] = "new"
		}
		if _, ok := doc["items"]; !ok {
			doc["items"] = []any{}
		}

		m.mu.Lock()
		m.orders[id] = doc
		m.mu.Unlock()

		m.notify(id)
		return DocRef{Collection: ref.Name, ID: id}, nil
	}

	owner := cartOwner(payload)
	m.replaceCart(owner, cartItems(payload))
	return DocRef{Collection: ref.Name, ID: owner}, nil
}

// SetDoc целиком заменяет корзину пользователя ref.ID
func (m *Memory) SetDoc(_ context.Context, ref DocRef, data map[string]any) error {
	m.replaceCart(ref.ID, cartItems(data))
	return nil
}

// GetDoc читает заказ; отсутствие — снимок с Exists() == false, без ошибки
func (m *Memory) GetDoc(_ context.Context, ref DocRef) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.orders[ref.ID]
	if !ok {
		return Snapshot{}, nil
	}
	return Snapshot{id: ref.ID, data: maps.Clone(doc), exists: true}, nil
}

// GetCart читает корзину напрямую; нужен тестам для проверки состояния
func (m *Memory) GetCart(userID string) (map[string]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, ok := m.carts[userID]
	if !ok {
		return nil, false
	}
	return maps.Clone(cart), true
}

// OnSnapshot подписывает колбэк на изменения заказа
// если заказ уже существует, колбэк сразу получает текущий снимок
func (m *Memory) OnSnapshot(ref DocRef, fn func(Snapshot)) (UnsubscribeFunc, error) {
	m.mu.Lock()
	m.nextSub++
	subID := m.nextSub
	m.listeners[ref.ID] = append(m.listeners[ref.ID], memListener{id: subID, fn: fn})
	doc, ok := m.orders[ref.ID]
	if ok {
		doc = maps.Clone(doc)
	}
	m.mu.Unlock()

	if ok {
		fn(Snapshot{id: ref.ID, data: doc, exists: true})
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			subs := m.listeners[ref.ID]
			for i, sub := range subs {
				if sub.id == subID {
					m.listeners[ref.ID] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		})
	}
	return unsubscribe, nil
}

// SetOrderStatus меняет статус заказа и будит подписчиков
// это серверная операция, её нет в интерфейсе Client: тестам она нужна,
// чтобы сымитировать смену статуса на бэкенде
func (m *Memory) SetOrderStatus(orderID, status string) bool {
	m.mu.Lock()
	doc, ok := m.orders[orderID]
	if ok {
		doc["status"] = status
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	m.notify(orderID)
	return true
}

// ListenerCount возвращает число подписчиков заказа (для проверки утечек)
func (m *Memory) ListenerCount(orderID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners[orderID])
}

// replaceCart — upsert корзины, items заменяются целиком
func (m *Memory) replaceCart(userID string, items any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[userID] = map[string]any{
		"userId":    userID,
		"items":     items,
		"updatedAt": time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// notify доставляет текущий снимок заказа всем его подписчикам
// список снимается под мьютексом, колбэки зовутся без него
func (m *Memory) notify(orderID string) {
	m.mu.Lock()
	doc, ok := m.orders[orderID]
	if !ok {
		m.mu.Unlock()
		return
	}
	doc = maps.Clone(doc)
	subs := make([]memListener, len(m.listeners[orderID]))
	copy(subs, m.listeners[orderID])
	m.mu.Unlock()

	for _, sub := range subs {
		sub.fn(Snapshot{id: orderID, data: doc, exists: true})
	}
}
