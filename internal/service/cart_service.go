package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/asquebay/storefront-order-service/internal/model"
	"github.com/asquebay/storefront-order-service/internal/repository/postgres"
)

// CartService инкапсулирует бизнес-логику работы с корзинами
type CartService struct {
	repo CartRepository
	log  *slog.Logger
}

// NewCartService создаёт новый экземпляр сервиса корзин
func NewCartService(repo CartRepository, log *slog.Logger) *CartService {
	return &CartService{
		repo: repo,
		log:  log,
	}
}

// GetCart возвращает корзину пользователя
// отсутствующая корзина — это не ошибка, а валидное пустое состояние:
// в отличие от заказов, клиент получает {userId, items: []}
func (s *CartService) GetCart(ctx context.Context, userID string) (model.Cart, error) {
	const op = "service.CartService.GetCart"
	log := s.log.With(slog.String("op", op), slog.String("user_id", userID))

	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, postgres.ErrCartNotFound) {
			log.Debug("cart not found, returning empty cart")
			return model.Cart{UserID: userID, Items: []json.RawMessage{}}, nil
		}
		log.Error("failed to get cart from repository", slog.String("error", err.Error()))
		return model.Cart{}, fmt.Errorf("%s: %w", op, err)
	}

	return cart, nil
}

// ReplaceCart целиком заменяет содержимое корзины пользователя (upsert)
// items не сливаются с предыдущими, updatedAt обновляется при каждом вызове
func (s *CartService) ReplaceCart(ctx context.Context, userID string, items []json.RawMessage) (model.Cart, error) {
	const op = "service.CartService.ReplaceCart"
	log := s.log.With(slog.String("op", op), slog.String("user_id", userID))

	cart, err := s.repo.ReplaceCart(ctx, userID, items, time.Now().UTC())
	if err != nil {
		log.Error("failed to replace cart", slog.String("error", err.Error()))
		return model.Cart{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("cart replaced", slog.Int("items_count", len(cart.Items)))
	return cart, nil
}
