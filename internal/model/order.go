package model

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
)

// StatusNew — статус, который получает каждый новый заказ при создании
const StatusNew = "new"

// Order представляет документ заказа
// состав позиций (items) и дополнительные данные (extra) система не разбирает:
// они хранятся и отдаются как есть, поэтому тип — сырой JSON
// имена полей в JSON совпадают с форматом мобильного клиента (camelCase)
type Order struct {
	ID        string            `json:"id"`
	Items     []json.RawMessage `json:"items"`
	Total     float64           `json:"total"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	UserID    string            `json:"userId,omitempty"`
	Extra     json.RawMessage   `json:"extra,omitempty"`
}

// Cart представляет корзину пользователя
// не больше одной корзины на userId, items заменяются целиком при каждом сохранении
type Cart struct {
	UserID    string            `json:"userId"`
	Items     []json.RawMessage `json:"items"`
	UpdatedAt time.Time         `json:"updatedAt,omitzero"`
}

// StatusUpdate — событие смены статуса заказа, приходящее из Kafka
// теги validate используются для проверки корректности данных при получении
type StatusUpdate struct {
	OrderID string `json:"orderId" validate:"required"`
	Status  string `json:"status" validate:"required"`
}

var validate = validator.New()

// Validate проверяет корректность события на основе тегов validate
func (u *StatusUpdate) Validate() error {
	return validate.Struct(u)
}
