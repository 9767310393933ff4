// Package docstore — клиентская прослойка для кода, написанного в идиоме
// документной базы (коллекция, документ, addDoc/setDoc/getDoc/onSnapshot)
// вызовы транслируются в REST и SSE бэкенда, поэтому вызывающий код
// продолжает работать без изменений
//
// вызывающий код зависит от интерфейса Client; реализаций две:
// RESTClient поверх HTTP и Memory для тестов
package docstore

import (
	"context"
	"strings"
)

// имена коллекций бэкенда
const (
	OrdersCollection = "orders"
	CartsCollection  = "carts"
)

// defaultCartOwner подставляется, когда в payload корзины нет userId
const defaultCartOwner = "guest"

// CollectionRef — ссылка на коллекцию; никакие побочные эффекты
// при её создании не происходят
type CollectionRef struct {
	Name string
}

// DocRef — ссылка на документ внутри коллекции
type DocRef struct {
	Collection string
	ID         string
}

// Collection создаёт ссылку на коллекцию по имени
func Collection(name string) CollectionRef {
	return CollectionRef{Name: name}
}

// Doc создаёт ссылку на документ коллекции
func Doc(c CollectionRef, id string) DocRef {
	return DocRef{Collection: c.Name, ID: id}
}

// Snapshot — снимок документа в момент чтения или уведомления
type Snapshot struct {
	id     string
	data   map[string]any
	exists bool
}

// ID возвращает идентификатор документа
func (s Snapshot) ID() string {
	return s.id
}

// Exists сообщает, был ли документ найден
// false означает и отсутствие документа, и любой сбой чтения
func (s Snapshot) Exists() bool {
	return s.exists
}

// Data возвращает содержимое документа; nil, если документа нет
func (s Snapshot) Data() map[string]any {
	return s.data
}

// UnsubscribeFunc закрывает подписку и её соединение
// безопасно вызывать несколько раз
type UnsubscribeFunc func()

// Client — интерфейс документного API поверх бэкенда заказов
type Client interface {
	// AddDoc создаёт документ: для коллекций заказов — новый заказ,
	// для остальных — корзину владельца payload["userId"] (или "guest")
	AddDoc(ctx context.Context, ref CollectionRef, payload map[string]any) (DocRef, error)
	// SetDoc целиком заменяет корзину пользователя ref.ID
	SetDoc(ctx context.Context, ref DocRef, data map[string]any) error
	// GetDoc читает заказ ref.ID; при любом сбое Exists() == false
	GetDoc(ctx context.Context, ref DocRef) (Snapshot, error)
	// OnSnapshot подписывается на изменения заказа ref.ID
	// колбэк вызывается на каждое событие стрима до отписки
	OnSnapshot(ref DocRef, fn func(Snapshot)) (UnsubscribeFunc, error)
}

// isOrderCollection решает, куда направить AddDoc
// исторически клиент писал заказы в коллекции с разными именами,
// поэтому матчим по подстроке, а не по точному имени
func isOrderCollection(name string) bool {
	return name == OrdersCollection || strings.Contains(strings.ToLower(name), "order")
}

// cartOwner достаёт владельца корзины из payload
func cartOwner(payload map[string]any) string {
	if id, ok := payload["userId"].(string); ok && id != "" {
		return id
	}
	return defaultCartOwner
}

// cartItems достаёт items из payload; отсутствие — пустая корзина
func cartItems(payload map[string]any) any {
	if items, ok := payload["items"]; ok && items != nil {
		return items
	}
	return []any{}
}
