package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/asquebay/storefront-order-service/internal/model"
)

// streamOrder держит открытым одностороннее SSE-соединение для одного заказа
//
// жизненный цикл: сразу отдаём текущее состояние заказа (если он есть),
// подписываемся в хабе и ретранслируем каждое уведомление событиями
// "data: <json>", пока клиент не закроет соединение
// отсутствие заказа не фатально — стрим остаётся открытым и ждёт уведомлений
func (h *Handler) streamOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream := &eventStream{w: w, flusher: flusher, log: h.log}

	// начальный снапшот; ошибку чтения глотаем — стрим живёт дальше
	// и будет полагаться на будущие уведомления
	if order, err := h.orders.GetOrderByID(r.Context(), id); err == nil {
		stream.send(order)
	}

	handle := h.subs.Subscribe(id, stream.send)

	// блокируемся до отключения клиента: другого способа завершить стрим нет
	<-r.Context().Done()

	// порядок важен: сначала закрываем стрим (под мьютексом дожидаемся
	// конца текущей записи), и только потом отписываемся — ровно один раз
	stream.markClosed()
	h.subs.Unsubscribe(handle)
}

// eventStream — одно открытое SSE-соединение
// send может вызываться конкурентно: из горутины самого стрима (снапшот)
// и из горутин-мутаторов через хаб, поэтому writer защищён мьютексом
type eventStream struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	closed  bool
	log     *slog.Logger
}

// send сериализует заказ и пишет его следующим событием в соединение
// ошибка записи в уже закрытое соединение глотается и никогда
// не поднимается выше границы стрима
func (s *eventStream) send(order model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	data, err := json.Marshal(order)
	if err != nil {
		s.log.Error("failed to marshal order event", slog.String("error", err.Error()))
		return
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		s.log.Debug("dropped write to closed stream", slog.String("error", err.Error()))
		return
	}
	s.flusher.Flush()
}

// markClosed запрещает дальнейшие записи
// после возврата из него ни одна горутина уже не трогает ResponseWriter
func (s *eventStream) markClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
