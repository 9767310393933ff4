package docstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// RESTClient реализует Client поверх HTTP-сервиса заказов
type RESTClient struct {
	baseURL string
	http    *http.Client
}

// NewRESTClient создаёт клиент для бэкенда по базовому URL
// у http.Client намеренно нет таймаута: OnSnapshot держит соединение
// открытым неограниченно долго, обрывает его только отписка
func NewRESTClient(baseURL string) *RESTClient {
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// AddDoc создаёт документ
// заказ уходит в POST /orders, id назначает бэкенд;
// всё остальное трактуется как корзина: владелец — payload["userId"]
// (по умолчанию "guest"), id документа совпадает с владельцем
func (c *RESTClient) AddDoc(ctx context.Context, ref CollectionRef, payload map[string]any) (DocRef, error) {
	const op = "docstore.RESTClient.AddDoc"

	if isOrderCollection(ref.Name) {
		var created struct {
			ID string `json:"id"`
		}
		if err := c.postJSON(ctx, "/orders", payload, &created); err != nil {
			return DocRef{}, fmt.Errorf("%s: %w", op, err)
		}
		return DocRef{Collection: ref.Name, ID: created.ID}, nil
	}

	owner := cartOwner(payload)
	body := map[string]any{"items": cartItems(payload)}
	if err := c.postJSON(ctx, "/carts/"+owner, body, nil); err != nil {
		return DocRef{}, fmt.Errorf("%s: %w", op, err)
	}
	return DocRef{Collection: ref.Name, ID: owner}, nil
}

// SetDoc целиком заменяет корзину; ref.ID — это userId владельца
func (c *RESTClient) SetDoc(ctx context.Context, ref DocRef, data map[string]any) error {
	const op = "docstore.RESTClient.SetDoc"

	body := map[string]any{"items": cartItems(data)}
	if err := c.postJSON(ctx, "/carts/"+ref.ID, body, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetDoc читает заказ по id
// любой сбой — 404, ошибка сети, кривой JSON — превращается в снимок
// с Exists() == false; ошибка возвращается для желающих её залогировать
func (c *RESTClient) GetDoc(ctx context.Context, ref DocRef) (Snapshot, error) {
	const op = "docstore.RESTClient.GetDoc"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/orders/"+ref.ID, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, nil
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Snapshot{}, fmt.Errorf("%s: failed to decode order: %w", op, err)
	}

	return Snapshot{id: ref.ID, data: data, exists: true}, nil
}

// OnSnapshot открывает SSE-стрим заказа и зовёт колбэк на каждое событие
// первый снимок приходит сразу, если заказ уже существует; события
// с некорректным JSON молча пропускаются; возвращённая функция закрывает
// соединение и останавливает доставку
func (c *RESTClient) OnSnapshot(ref DocRef, fn func(Snapshot)) (UnsubscribeFunc, error) {
	const op = "docstore.RESTClient.OnSnapshot"

	// подписка живёт, пока её не отменили явно, поэтому собственный контекст
	ctx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/orders/stream/"+ref.ID, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	go func() {
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			payload, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				continue
			}

			var data map[string]any
			if err := json.Unmarshal([]byte(payload), &data); err != nil {
				continue
			}
			fn(Snapshot{id: ref.ID, data: data, exists: true})
		}
		// ошибка чтения означает закрытое соединение — доставка просто прекращается
	}()

	var once sync.Once
	return func() {
		once.Do(cancel)
	}, nil
}

// postJSON отправляет тело POST-запросом и декодирует ответ в out (если нужен)
func (c *RESTClient) postJSON(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
