package cache

import (
	"sync"

	"github.com/asquebay/storefront-order-service/internal/model"
)

// OrderCache — потокобезопасный in-memory кэш для документов заказов
type OrderCache struct {
	// sync.Map выбрал для обеспечения потокобезопасности
	// Ключ — string (Order.ID), значение — model.Order
	storage sync.Map
}

// NewOrderCache создаёт новый экземпляр кэша
func NewOrderCache() *OrderCache {
	return &OrderCache{}
}

// Set добавляет или обновляет заказ в кэше
// вызывается и при создании заказа, и при смене его статуса,
// чтобы кэш не отдавал устаревший статус
func (c *OrderCache) Set(order model.Order) {
	c.storage.Store(order.ID, order)
}

// Get извлекает заказ из кэша по его id
// возвращает заказ и true, если он найден, иначе — пустую структуру и false
func (c *OrderCache) Get(orderID string) (model.Order, bool) {
	value, ok := c.storage.Load(orderID)
	if !ok {
		return model.Order{}, false
	}

	// выполняем безопасное приведение типа
	order, ok := value.(model.Order)
	return order, ok
}

// LoadAll загружает в кэш срез заказов
// используется для первоначального заполнения кэша при старте сервиса
func (c *OrderCache) LoadAll(orders []model.Order) {
	for _, order := range orders {
		c.Set(order)
	}
}
