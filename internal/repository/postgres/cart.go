package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/asquebay/storefront-order-service/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository инкапсулирует логику работы с корзинами в БД
// ключ — user_id, на одного пользователя не больше одной корзины
type CartRepository struct {
	db *pgxpool.Pool
	sq squirrel.StatementBuilderType
}

// NewCartRepository создает новый экземпляр репозитория
func NewCartRepository(db *pgxpool.Pool) *CartRepository {
	return &CartRepository{
		db: db,
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetCart извлекает корзину пользователя
// отсутствие корзины — ожидаемая ситуация, она сигнализируется ErrCartNotFound,
// а решение, что с этим делать, остаётся за сервисным слоем
func (r *CartRepository) GetCart(ctx context.Context, userID string) (model.Cart, error) {
	const op = "repository.postgres.cart.GetCart"

	query := `
		SELECT user_id, items, updated_at
		FROM carts
		WHERE user_id = $1
	`
	cart, err := scanCart(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Cart{}, fmt.Errorf("%s: %w", op, ErrCartNotFound)
		}
		return model.Cart{}, fmt.Errorf("%s: failed to query cart: %w", op, err)
	}

	return cart, nil
}

// ReplaceCart сохраняет корзину пользователя с upsert-семантикой:
// если корзины ещё нет — создаёт, если есть — целиком заменяет items
// и обновляет updated_at; повторный вызов с теми же items даёт то же состояние
func (r *CartRepository) ReplaceCart(ctx context.Context, userID string, items []json.RawMessage, updatedAt time.Time) (model.Cart, error) {
	const op = "repository.postgres.cart.ReplaceCart"

	if items == nil {
		items = []json.RawMessage{}
	}

	encoded, err := json.Marshal(items)
	if err != nil {
		return model.Cart{}, fmt.Errorf("%s: failed to marshal items: %w", op, err)
	}

	sql, args, err := r.sq.Insert("carts").
		Columns("user_id", "items", "updated_at").
		Values(userID, string(encoded), updatedAt).
		Suffix(`ON CONFLICT (user_id) DO UPDATE
			SET items = EXCLUDED.items, updated_at = EXCLUDED.updated_at
			RETURNING user_id, items, updated_at`).
		ToSql()
	if err != nil {
		return model.Cart{}, fmt.Errorf("%s: failed to build upsert query: %w", op, err)
	}

	cart, err := scanCart(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return model.Cart{}, fmt.Errorf("%s: failed to upsert cart: %w", op, err)
	}

	return cart, nil
}

// scanCart читает одну строку таблицы carts в модель
func scanCart(row pgx.Row) (model.Cart, error) {
	var (
		cart  model.Cart
		items []byte
	)

	if err := row.Scan(&cart.UserID, &items, &cart.UpdatedAt); err != nil {
		return model.Cart{}, err
	}

	if len(items) > 0 {
		if err := json.Unmarshal(items, &cart.Items); err != nil {
			return model.Cart{}, fmt.Errorf("failed to unmarshal items: %w", err)
		}
	}
	if cart.Items == nil {
		cart.Items = []json.RawMessage{}
	}

	return cart, nil
}
