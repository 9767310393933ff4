package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/asquebay/storefront-order-service/internal/hub"
	"github.com/asquebay/storefront-order-service/internal/model"
	"github.com/asquebay/storefront-order-service/internal/repository/postgres"
)

// OrderService определяет интерфейс сервиса заказов, нужный транспорту
// это позволяет хэндлеру не зависеть от конкретной реализации сервиса
type OrderService interface {
	CreateOrder(ctx context.Context, order model.Order) (model.Order, error)
	GetOrderByID(ctx context.Context, id string) (model.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status string) (model.Order, error)
}

// CartService определяет интерфейс сервиса корзин, нужный транспорту
type CartService interface {
	GetCart(ctx context.Context, userID string) (model.Cart, error)
	ReplaceCart(ctx context.Context, userID string, items []json.RawMessage) (model.Cart, error)
}

// Subscriber — часть хаба уведомлений, которой пользуется стриминговый эндпоинт
type Subscriber interface {
	Subscribe(orderID string, fn hub.Listener) hub.Handle
	Unsubscribe(handle hub.Handle)
}

// Handler обрабатывает HTTP-запросы
type Handler struct {
	orders OrderService
	carts  CartService
	subs   Subscriber
	log    *slog.Logger
	mux    *http.ServeMux
}

// NewHandler создает новый экземпляр Handler
func NewHandler(orders OrderService, carts CartService, subs Subscriber, log *slog.Logger) *Handler {
	h := &Handler{
		orders: orders,
		carts:  carts,
		subs:   subs,
		log:    log,
		mux:    http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP делает Handler совместимым с http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes регистрирует все эндпоинты
func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("POST /orders", h.createOrder)
	h.mux.HandleFunc("GET /orders/{id}", h.getOrderByID)
	// более длинный литеральный префикс, поэтому ServeMux не спутает его с /orders/{id}
	h.mux.HandleFunc("GET /orders/stream/{id}", h.streamOrder)
	h.mux.HandleFunc("POST /orders/{id}/status", h.updateOrderStatus)
	h.mux.HandleFunc("GET /carts/{userId}", h.getCart)
	h.mux.HandleFunc("POST /carts/{userId}", h.replaceCart)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var payload model.Order
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// id и createdAt из тела будут перезаписаны сервисом,
	// клиентским значениям этих полей доверять нельзя
	order, err := h.orders.CreateOrder(r.Context(), payload)
	if err != nil {
		h.log.Error("failed to create order", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "failed to create order")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"id": order.ID})
}

func (h *Handler) getOrderByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "order id is required")
		return
	}

	order, err := h.orders.GetOrderByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrOrderNotFound) {
			h.respondError(w, http.StatusNotFound, "order not found")
			return
		}
		h.log.Error("internal server error", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.respondJSON(w, http.StatusOK, order)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orders.UpdateOrderStatus(r.Context(), id, body.Status)
	if err != nil {
		// несуществующий id — это явный 404, а не пустой ответ:
		// вызывающий должен уметь отличить "обновили" от "такого заказа нет"
		if errors.Is(err, postgres.ErrOrderNotFound) {
			h.respondError(w, http.StatusNotFound, "order not found")
			return
		}
		h.log.Error("failed to update order status", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "failed to update order status")
		return
	}

	h.respondJSON(w, http.StatusOK, order)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	cart, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to get cart", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "failed to get cart")
		return
	}

	h.respondJSON(w, http.StatusOK, cart)
}

func (h *Handler) replaceCart(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	var body struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, err := h.carts.ReplaceCart(r.Context(), userID, body.Items)
	if err != nil {
		h.log.Error("failed to replace cart", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "failed to replace cart")
		return
	}

	h.respondJSON(w, http.StatusOK, cart)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("failed to marshal JSON response", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(response)
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
