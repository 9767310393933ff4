package service

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/asquebay/storefront-order-service/internal/model"
	"github.com/asquebay/storefront-order-service/internal/repository/postgres"
)

// fakeCartRepo — in-memory замена постгресового репозитория корзин
type fakeCartRepo struct {
	mu    sync.Mutex
	carts map[string]model.Cart
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: make(map[string]model.Cart)}
}

func (r *fakeCartRepo) GetCart(_ context.Context, userID string) (model.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[userID]
	if !ok {
		return model.Cart{}, postgres.ErrCartNotFound
	}
	return cart, nil
}

func (r *fakeCartRepo) ReplaceCart(_ context.Context, userID string, items []json.RawMessage, updatedAt time.Time) (model.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if items == nil {
		items = []json.RawMessage{}
	}
	cart := model.Cart{UserID: userID, Items: items, UpdatedAt: updatedAt}
	r.carts[userID] = cart
	return cart, nil
}

func TestGetCart(t *testing.T) {
	ctx := context.Background()
	svc := NewCartService(newFakeCartRepo(), discardLogger())

	// отсутствующая корзина — валидное пустое состояние, а не ошибка
	// (в отличие от отсутствующего заказа)
	cart, err := svc.GetCart(ctx, "nobody")
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if cart.UserID != "nobody" {
		t.Errorf("userId = %q, want nobody", cart.UserID)
	}
	if cart.Items == nil || len(cart.Items) != 0 {
		t.Errorf("items = %v, want an empty sequence", cart.Items)
	}
}

func TestReplaceCart(t *testing.T) {
	ctx := context.Background()
	svc := NewCartService(newFakeCartRepo(), discardLogger())

	items1 := []json.RawMessage{json.RawMessage(`{"sku":"A"}`)}
	items2 := []json.RawMessage{json.RawMessage(`{"sku":"B"}`), json.RawMessage(`{"sku":"C"}`)}

	if _, err := svc.ReplaceCart(ctx, "u1", items1); err != nil {
		t.Fatalf("first ReplaceCart failed: %v", err)
	}
	if _, err := svc.ReplaceCart(ctx, "u1", items2); err != nil {
		t.Fatalf("second ReplaceCart failed: %v", err)
	}

	// items заменяются целиком, без слияния с предыдущим содержимым
	cart, err := svc.GetCart(ctx, "u1")
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if !reflect.DeepEqual(cart.Items, items2) {
		t.Errorf("items = %s, want exactly the second replacement", mustJSON(cart.Items))
	}

	t.Run("replay is idempotent", func(t *testing.T) {
		again, err := svc.ReplaceCart(ctx, "u1", items2)
		if err != nil {
			t.Fatalf("ReplaceCart failed: %v", err)
		}
		if !reflect.DeepEqual(again.Items, items2) {
			t.Errorf("items after replay = %s, want unchanged", mustJSON(again.Items))
		}
	})
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
