package hub

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/asquebay/storefront-order-service/internal/model"
)

func newTestHub() *Hub {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNotifyDeliversInSubscribeOrder(t *testing.T) {
	h := newTestHub()

	var got []string
	h.Subscribe("o1", func(order model.Order) {
		got = append(got, "L1:"+order.Status)
	})
	h.Subscribe("o1", func(order model.Order) {
		got = append(got, "L2:"+order.Status)
	})

	h.Notify("o1", model.Order{ID: "o1", Status: "new"})

	want := []string{"L1:new", "L2:new"}
	if len(got) != len(want) {
		t.Fatalf("delivered %d notifications, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delivery[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNotifyWithoutSubscribersIsNoop(t *testing.T) {
	h := newTestHub()
	// не должно ни паниковать, ни буферизовать
	h.Notify("ghost", model.Order{ID: "ghost"})
	if n := h.Len("ghost"); n != 0 {
		t.Errorf("Len(ghost) = %d, want 0", n)
	}
}

func TestUnsubscribe(t *testing.T) {
	h := newTestHub()

	var first, second int
	handle := h.Subscribe("o1", func(model.Order) { first++ })
	h.Subscribe("o1", func(model.Order) { second++ })

	h.Unsubscribe(handle)
	h.Notify("o1", model.Order{ID: "o1"})

	if first != 0 {
		t.Errorf("unsubscribed listener invoked %d times", first)
	}
	if second != 1 {
		t.Errorf("remaining listener invoked %d times, want 1", second)
	}

	t.Run("repeated unsubscribe is safe", func(t *testing.T) {
		h.Unsubscribe(handle)
		h.Unsubscribe(handle)
		if n := h.Len("o1"); n != 1 {
			t.Errorf("Len(o1) = %d, want 1", n)
		}
	})

	t.Run("unsubscribe after close is safe", func(t *testing.T) {
		h.Close()
		h.Unsubscribe(handle)
		if n := h.Len("o1"); n != 0 {
			t.Errorf("Len(o1) = %d after Close, want 0", n)
		}
	})
}

func TestPanickingListenerIsIsolated(t *testing.T) {
	h := newTestHub()

	var delivered bool
	h.Subscribe("o1", func(model.Order) { panic("broken subscriber") })
	h.Subscribe("o1", func(model.Order) { delivered = true })

	// паника первого подписчика не должна дойти ни до нас, ни до второго
	h.Notify("o1", model.Order{ID: "o1"})

	if !delivered {
		t.Error("listener after the panicking one was not invoked")
	}
}

func TestConcurrentSubscribeNotifyUnsubscribe(t *testing.T) {
	h := newTestHub()

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers * 2)

	for i := 0; i < workers; i++ {
		orderID := fmt.Sprintf("o%d", i%4)

		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				handle := h.Subscribe(orderID, func(model.Order) {})
				h.Unsubscribe(handle)
			}
		}()

		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Notify(orderID, model.Order{ID: orderID})
			}
		}()
	}

	wg.Wait()

	for i := 0; i < 4; i++ {
		orderID := fmt.Sprintf("o%d", i)
		if n := h.Len(orderID); n != 0 {
			t.Errorf("Len(%s) = %d after all unsubscribes, want 0", orderID, n)
		}
	}
}
