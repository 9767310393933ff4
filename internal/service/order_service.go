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

// OrderService инкапсулирует бизнес-логику работы с заказами
type OrderService struct {
	repo     OrderRepository
	cache    OrderCache
	notifier Notifier
	log      *slog.Logger
}

// NewOrderService создаёт новый экземпляр сервиса заказов
// он принимает интерфейсы, а не конкретные типы, для гибкости и тестируемости
func NewOrderService(repo OrderRepository, cache OrderCache, notifier Notifier, log *slog.Logger) *OrderService {
	return &OrderService{
		repo:     repo,
		cache:    cache,
		notifier: notifier,
		log:      log,
	}
}

// CreateOrder обрабатывает создание нового заказа
// id и createdAt назначаются строго на нашей стороне: что бы клиент ни прислал
// в этих полях, оно перезаписывается; пустой статус получает значение "new"
// после успешного сохранения все подписчики заказа получают уведомление
func (s *OrderService) CreateOrder(ctx context.Context, order model.Order) (model.Order, error) {
	const op = "service.OrderService.CreateOrder"
	log := s.log.With(slog.String("op", op))

	// поля, которыми владеет сервер, а не клиент
	order.ID = ""
	order.CreatedAt = time.Now().UTC()
	if order.Status == "" {
		order.Status = model.StatusNew
	}
	if order.Items == nil {
		order.Items = []json.RawMessage{}
	}

	// 1. Сохраняем в БД. Это основной источник правды
	stored, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		log.Error("failed to save order to repository", slog.String("error", err.Error()))
		// ошибку не маскируем, а оборачиваем для контекста
		return model.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	// 2. Если в БД сохранилось успешно, обновляем кэш
	s.cache.Set(stored)

	// 3. И только потом будим подписчиков: они должны увидеть то же,
	// что лежит в хранилище
	s.notifier.Notify(stored.ID, stored)

	log.Info("order created", slog.String("order_id", stored.ID))
	return stored, nil
}

// GetOrderByID получает заказ по его id
// сначала ищет в кэше, и только если там нет — обращается к БД
func (s *OrderService) GetOrderByID(ctx context.Context, id string) (model.Order, error) {
	const op = "service.OrderService.GetOrderByID"
	log := s.log.With(slog.String("op", op), slog.String("order_id", id))

	// 1. Пытаемся получить из кэша для максимальной скорости
	order, found := s.cache.Get(id)
	if found {
		log.Debug("order found in cache")
		return order, nil
	}

	log.Debug("order not found in cache, will check repository")

	// 2. Если в кэше нет, идем в БД
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		// не логируем как ошибку, если просто не найдено
		if !errors.Is(err, postgres.ErrOrderNotFound) {
			log.Error("failed to get order from repository", slog.String("error", err.Error()))
		}
		return model.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	// 3. Раз уж мы достали заказ из БД, стоит положить его в кэш
	s.cache.Set(order)

	return order, nil
}

// UpdateOrderStatus меняет статус существующего заказа
// набор допустимых статусов не фиксирован — принимается любая строка
// уведомление уходит только если заказ действительно найден и обновлён;
// для несуществующего id возвращается postgres.ErrOrderNotFound
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, status string) (model.Order, error) {
	const op = "service.OrderService.UpdateOrderStatus"
	log := s.log.With(slog.String("op", op), slog.String("order_id", id))

	order, err := s.repo.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		if !errors.Is(err, postgres.ErrOrderNotFound) {
			log.Error("failed to update order status", slog.String("error", err.Error()))
		}
		return model.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	s.cache.Set(order)
	s.notifier.Notify(order.ID, order)

	log.Info("order status updated", slog.String("status", status))
	return order, nil
}

// RestoreCache восстанавливает состояние кэша из базы данных при старте
func (s *OrderService) RestoreCache(ctx context.Context) error {
	const op = "service.OrderService.RestoreCache"
	log := s.log.With(slog.String("op", op))

	log.Info("starting cache restoration from database")

	orders, err := s.repo.GetAllOrders(ctx)
	if err != nil {
		log.Error("failed to get all orders from repository", slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.cache.LoadAll(orders)

	log.Info("cache restored successfully", slog.Int("orders_count", len(orders)))
	return nil
}
