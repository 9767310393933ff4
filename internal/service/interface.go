package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/asquebay/storefront-order-service/internal/model"
)

// OrderRepository определяет контракт для хранилища заказов в БД
type OrderRepository interface {
	CreateOrder(ctx context.Context, order model.Order) (model.Order, error)
	GetOrderByID(ctx context.Context, id string) (model.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status string) (model.Order, error)
	GetAllOrders(ctx context.Context) ([]model.Order, error)
}

// CartRepository определяет контракт для хранилища корзин в БД
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (model.Cart, error)
	ReplaceCart(ctx context.Context, userID string, items []json.RawMessage, updatedAt time.Time) (model.Cart, error)
}

// OrderCache определяет контракт для in-memory кэша заказов
type OrderCache interface {
	Set(order model.Order)
	Get(orderID string) (model.Order, bool)
	LoadAll(orders []model.Order)
}

// Notifier определяет контракт хаба уведомлений:
// сервис заказов сообщает ему о каждой мутации заказа,
// а кто и как на это подписан — сервис не знает
type Notifier interface {
	Notify(orderID string, order model.Order)
}
