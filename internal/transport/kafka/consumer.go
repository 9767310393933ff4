package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/asquebay/storefront-order-service/internal/model"
	"github.com/asquebay/storefront-order-service/internal/repository/postgres"

	"github.com/segmentio/kafka-go"
)

// StatusUpdater — это интерфейс, который абстрагирует консьюмер
// от конкретной реализации сервисного слоя
// статусы, пришедшие из кафки, проходят тот же путь, что и HTTP-запросы:
// хранилище, кэш и уведомление подписчиков стрима
type StatusUpdater interface {
	UpdateOrderStatus(ctx context.Context, id, status string) (model.Order, error)
}

// Consumer читает события смены статуса заказа из Kafka
type Consumer struct {
	reader  *kafka.Reader
	service StatusUpdater
	log     *slog.Logger
}

// NewConsumer создает новый экземпляр консьюмера
func NewConsumer(brokers []string, topic, groupID string, service StatusUpdater, log *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
	})

	return &Consumer{
		reader:  reader,
		service: service,
		log:     log,
	}
}

// Run запускает цикл чтения сообщений из Kafka
// эта функция блокирующая, поэтому она запускается в отдельной горутине
func (c *Consumer) Run(ctx context.Context) {
	log := c.log.With(slog.String("component", "kafka_consumer"))
	log.Info("Kafka consumer started")

	for {
		// проверка на отмену контекста
		select {
		case <-ctx.Done():
			log.Info("Context cancelled, stopping consumer.")
			return
		default:
			// FetchMessage блокирует до тех пор, пока не придет новое сообщение или не возникнет ошибка
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				// если контекст был отменен во время ожидания, это нормальное завершение
				if errors.Is(err, context.Canceled) {
					return
				}
				// если ридер был закрыт, тоже выходим
				if errors.Is(err, io.EOF) {
					log.Info("Kafka reader closed")
					return
				}
				log.Error("failed to fetch message", slog.String("error", err.Error()))
				continue // пробуем снова
			}

			log.Info("received message", slog.String("topic", msg.Topic), slog.Int("partition", msg.Partition), slog.Int64("offset", msg.Offset))

			// 1. Пытаемся обработать
			if err := c.handleMessage(ctx, msg); err != nil {
				log.Error("failed to handle message", slog.String("error", err.Error()))
				// сообщение НЕ подтверждаем — пусть Kafka отдаст его снова
				continue
			}

			// 2. Всё прошло — фиксируем offset
			// это ВАЖНО сделать ПОСЛЕ успешной обработки,
			// иначе упавшее на середине событие потеряется
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				log.Error("failed to commit message", slog.String("error", err.Error()))
			}
		}
	}
}

// handleMessage парсит и обрабатывает одно событие смены статуса
func (c *Consumer) handleMessage(ctx context.Context, msg kafka.Message) error {
	var update model.StatusUpdate

	// распарсим JSON
	if err := json.Unmarshal(msg.Value, &update); err != nil {
		// сообщение невалидно. Логируем и игнорируем
		c.log.Warn("failed to unmarshal message, skipping", slog.String("error", err.Error()))
		return nil // возвращаем nil, так как перечитывать это сообщение бессмысленно
	}

	// валидация данных
	if err := update.Validate(); err != nil {
		// данные не прошли валидацию (например, отсутствуют обязательные поля)
		// логируем и игнорируем
		c.log.Warn("message validation failed, skipping",
			slog.String("error", err.Error()),
			slog.String("order_id", update.OrderID),
		)
		return nil // также не перечитываем
	}

	// применяем статус через сервисный слой
	if _, err := c.service.UpdateOrderStatus(ctx, update.OrderID, update.Status); err != nil {
		// статус для несуществующего заказа перечитывать нет смысла:
		// повторная доставка того же события даст тот же результат
		if errors.Is(err, postgres.ErrOrderNotFound) {
			c.log.Warn("status update for unknown order, skipping",
				slog.String("order_id", update.OrderID),
			)
			return nil
		}
		c.log.Error("failed to update order status",
			slog.String("error", err.Error()),
			slog.String("order_id", update.OrderID),
		)
		return err // возвращаем ошибку, чтобы вызывающая функция могла ее обработать
	}

	c.log.Info("status update processed",
		slog.String("order_id", update.OrderID),
		slog.String("status", update.Status),
	)
	return nil
}

// gracefull shutdown консьюмера
func (c *Consumer) Close() error {
	c.log.Info("Closing kafka consumer")
	return c.reader.Close()
}
