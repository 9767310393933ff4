package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/asquebay/storefront-order-service/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderRepository инкапсулирует логику работы с документами заказов в БД
// непрозрачные для системы поля (items, extra) лежат в колонках jsonb
// и никогда не разбираются на стороне базы
type OrderRepository struct {
	db *pgxpool.Pool
	sq squirrel.StatementBuilderType
}

// NewOrderRepository создает новый экземпляр репозитория
func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{
		db: db,
		// использую плейсхолдеры в стиле PostgreSQL ($1, $2, $3,...)
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateOrder сохраняет новый заказ и возвращает его вместе с назначенным id
// id назначается здесь, на уровне хранилища, и после создания не меняется
func (r *OrderRepository) CreateOrder(ctx context.Context, order model.Order) (model.Order, error) {
	const op = "repository.postgres.order.CreateOrder"

	order.ID = uuid.NewString()

	items, err := json.Marshal(order.Items)
	if err != nil {
		return model.Order{}, fmt.Errorf("%s: failed to marshal items: %w", op, err)
	}

	builder := r.sq.Insert("orders").
		Columns("id", "items", "total", "status", "created_at", "user_id", "extra").
		Values(order.ID, string(items), order.Total, order.Status, order.CreatedAt, order.UserID, rawOrNil(order.Extra))

	sql, args, err := builder.ToSql()
	if err != nil {
		return model.Order{}, fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return model.Order{}, fmt.Errorf("%s: failed to insert order: %w", op, err)
	}

	return order, nil
}

// GetOrderByID извлекает один заказ из базы данных по его id
func (r *OrderRepository) GetOrderByID(ctx context.Context, id string) (model.Order, error) {
	const op = "repository.postgres.order.GetOrderByID"

	query := `
		SELECT id, items, total, status, created_at, user_id, extra
		FROM orders
		WHERE id = $1
	`
	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
		}
		return model.Order{}, fmt.Errorf("%s: failed to query order: %w", op, err)
	}

	return order, nil
}

// UpdateOrderStatus меняет статус заказа и возвращает обновлённый документ
// меняется только колонка status: id и created_at запрос не затрагивает
func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, id, status string) (model.Order, error) {
	const op = "repository.postgres.order.UpdateOrderStatus"

	sql, args, err := r.sq.Update("orders").
		Set("status", status).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING id, items, total, status, created_at, user_id, extra").
		ToSql()
	if err != nil {
		return model.Order{}, fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	order, err := scanOrder(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
		}
		return model.Order{}, fmt.Errorf("%s: failed to update order: %w", op, err)
	}

	return order, nil
}

// GetAllOrders извлекает все заказы из базы данных
// этот метод может быть ресурсоёмким на больших объемах данных
// он предназначен для восстановления кэша при старте
func (r *OrderRepository) GetAllOrders(ctx context.Context) ([]model.Order, error) {
	const op = "repository.postgres.order.GetAllOrders"

	query := `
		SELECT id, items, total, status, created_at, user_id, extra
		FROM orders
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query orders: %w", op, err)
	}
	defer rows.Close()

	result := []model.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to scan order row: %w", op, err)
		}
		result = append(result, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration failed: %w", op, err)
	}

	return result, nil
}

// scanOrder читает одну строку таблицы orders в модель
func scanOrder(row pgx.Row) (model.Order, error) {
	var (
		order model.Order
		items []byte
		extra []byte
	)

	err := row.Scan(&order.ID, &items, &order.Total, &order.Status, &order.CreatedAt, &order.UserID, &extra)
	if err != nil {
		return model.Order{}, err
	}

	if len(items) > 0 {
		if err := json.Unmarshal(items, &order.Items); err != nil {
			return model.Order{}, fmt.Errorf("failed to unmarshal items: %w", err)
		}
	}
	if len(extra) > 0 {
		order.Extra = json.RawMessage(extra)
	}

	return order, nil
}

// rawOrNil превращает пустой json.RawMessage в NULL для jsonb-колонки
func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
