package docstore_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/asquebay/storefront-order-service/internal/hub"
	"github.com/asquebay/storefront-order-service/internal/model"
	"github.com/asquebay/storefront-order-service/internal/repository/postgres"
	httptransport "github.com/asquebay/storefront-order-service/internal/transport/http"
	"github.com/asquebay/storefront-order-service/pkg/docstore"
)

// backendOrders — in-memory сервис заказов для поднятия настоящего транспорта
type backendOrders struct {
	mu     sync.Mutex
	orders map[string]model.Order
	seq    int
	hub    *hub.Hub
}

func (b *backendOrders) CreateOrder(_ context.Context, order model.Order) (model.Order, error) {
	b.mu.Lock()
	b.seq++
	order.ID = fmt.Sprintf("o%d", b.seq)
	order.CreatedAt = time.Now().UTC()
	if order.Status == "" {
		order.Status = model.StatusNew
	}
	if order.Items == nil {
		order.Items = []json.RawMessage{}
	}
	b.orders[order.ID] = order
	b.mu.Unlock()

	b.hub.Notify(order.ID, order)
	return order, nil
}

func (b *backendOrders) GetOrderByID(_ context.Context, id string) (model.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	order, ok := b.orders[id]
	if !ok {
		return model.Order{}, postgres.ErrOrderNotFound
	}
	return order, nil
}

func (b *backendOrders) UpdateOrderStatus(_ context.Context, id, status string) (model.Order, error) {
	b.mu.Lock()
	order, ok := b.orders[id]
	if !ok {
		b.mu.Unlock()
		return model.Order{}, postgres.ErrOrderNotFound
	}
	order.Status = status
	b.orders[id] = order
	b.mu.Unlock()

	b.hub.Notify(id, order)
	return order, nil
}

// backendCarts — in-memory сервис корзин
type backendCarts struct {
	mu    sync.Mutex
	carts map[string]model.Cart
}

func (b *backendCarts) GetCart(_ context.Context, userID string) (model.Cart, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cart, ok := b.carts[userID]
	if !ok {
		return model.Cart{UserID: userID, Items: []json.RawMessage{}}, nil
	}
	return cart, nil
}

func (b *backendCarts) ReplaceCart(_ context.Context, userID string, items []json.RawMessage) (model.Cart, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if items == nil {
		items = []json.RawMessage{}
	}
	cart := model.Cart{UserID: userID, Items: items, UpdatedAt: time.Now().UTC()}
	b.carts[userID] = cart
	return cart, nil
}

// newBackend поднимает настоящий HTTP-транспорт поверх in-memory сервисов:
// клиент гоняется против того же кода, что работает в проде
func newBackend(t *testing.T) (*docstore.RESTClient, *backendOrders, *backendCarts, *hub.Hub) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifyHub := hub.New(log)
	orders := &backendOrders{orders: make(map[string]model.Order), hub: notifyHub}
	carts := &backendCarts{carts: make(map[string]model.Cart)}

	srv := httptest.NewServer(httptransport.NewHandler(orders, carts, notifyHub, log))
	t.Cleanup(srv.Close)

	return docstore.NewRESTClient(srv.URL), orders, carts, notifyHub
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestRESTAddDocAndGetDoc(t *testing.T) {
	ctx := context.Background()
	client, _, _, _ := newBackend(t)

	ref, err := client.AddDoc(ctx, docstore.Collection("orders"), map[string]any{
		"items": []any{map[string]any{"sku": "A"}},
		"total": 10.0,
	})
	if err != nil {
		t.Fatalf("AddDoc failed: %v", err)
	}
	if ref.ID == "" {
		t.Fatal("AddDoc returned empty id")
	}

	snap, err := client.GetDoc(ctx, docstore.Doc(docstore.Collection("orders"), ref.ID))
	if err != nil {
		t.Fatalf("GetDoc failed: %v", err)
	}
	if !snap.Exists() {
		t.Fatal("created order does not exist")
	}
	if snap.Data()["status"] != "new" {
		t.Errorf("status = %v, want new", snap.Data()["status"])
	}

	t.Run("missing order yields exists=false", func(t *testing.T) {
		snap, err := client.GetDoc(ctx, docstore.Doc(docstore.Collection("orders"), "missing"))
		if err != nil {
			t.Fatalf("GetDoc failed: %v", err)
		}
		if snap.Exists() {
			t.Error("missing order reported as existing")
		}
	})
}

func TestRESTAddDocCartFallback(t *testing.T) {
	ctx := context.Background()
	client, _, carts, _ := newBackend(t)

	// не-заказная коллекция уходит в корзины; без userId владелец — guest
	ref, err := client.AddDoc(ctx, docstore.Collection("wishlist"), map[string]any{
		"items": []any{map[string]any{"sku": "A"}},
	})
	if err != nil {
		t.Fatalf("AddDoc failed: %v", err)
	}
	if ref.ID != "guest" {
		t.Errorf("ref.ID = %q, want guest", ref.ID)
	}

	cart, err := carts.GetCart(ctx, "guest")
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Errorf("stored cart items = %v, want one item", cart.Items)
	}
}

func TestRESTSetDocReplacesCart(t *testing.T) {
	ctx := context.Background()
	client, _, carts, _ := newBackend(t)
	cartRef := docstore.Doc(docstore.Collection("carts"), "u1")

	if err := client.SetDoc(ctx, cartRef, map[string]any{"items": []any{"a"}}); err != nil {
		t.Fatalf("SetDoc failed: %v", err)
	}
	if err := client.SetDoc(ctx, cartRef, map[string]any{"items": []any{"b", "c"}}); err != nil {
		t.Fatalf("SetDoc failed: %v", err)
	}

	cart, err := carts.GetCart(ctx, "u1")
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if len(cart.Items) != 2 {
		t.Errorf("items = %v, want the second replacement only", cart.Items)
	}
}

func TestRESTOnSnapshot(t *testing.T) {
	ctx := context.Background()
	client, orders, _, notifyHub := newBackend(t)

	ref, err := client.AddDoc(ctx, docstore.Collection("orders"), map[string]any{
		"items": []any{map[string]any{"sku": "A"}},
		"total": 10.0,
	})
	if err != nil {
		t.Fatalf("AddDoc failed: %v", err)
	}

	var mu sync.Mutex
	var statuses []string
	unsubscribe, err := client.OnSnapshot(docstore.Doc(docstore.Collection("orders"), ref.ID), func(s docstore.Snapshot) {
		mu.Lock()
		statuses = append(statuses, s.Data()["status"].(string))
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("OnSnapshot failed: %v", err)
	}

	snapshotCount := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(statuses)
	}

	// первый снимок — текущее состояние заказа
	waitFor(t, func() bool { return snapshotCount() == 1 }, "initial snapshot not delivered")
	waitFor(t, func() bool { return notifyHub.Len(ref.ID) == 1 }, "stream did not subscribe")

	// смена статуса на бэкенде долетает до подписчика
	if _, err := orders.UpdateOrderStatus(ctx, ref.ID, "shipped"); err != nil {
		t.Fatalf("UpdateOrderStatus failed: %v", err)
	}
	waitFor(t, func() bool { return snapshotCount() >= 2 }, "status snapshot not delivered")

	mu.Lock()
	if statuses[0] != "new" || statuses[1] != "shipped" {
		t.Errorf("statuses = %v, want [new shipped]", statuses)
	}
	mu.Unlock()

	// отписка закрывает соединение, подписка в хабе снимается;
	// повторный вызов — безопасный no-op
	unsubscribe()
	unsubscribe()
	waitFor(t, func() bool { return notifyHub.Len(ref.ID) == 0 }, "listener leaked after unsubscribe")
}
