// этот код не зависит от приложения,
// и нужен только для ручной отправки события смены статуса через кафку
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/segmentio/kafka-go"
)

func main() {
	// конфигурация из config.yaml
	brokerAddress := "localhost:9092"
	topic := "order-status"

	if len(os.Args) < 3 {
		log.Fatalf("usage: %s <order_id> <status>", os.Args[0])
	}
	orderID, status := os.Args[1], os.Args[2]

	message := fmt.Sprintf(`{"orderId": %q, "status": %q}`, orderID, status)

	// настройки писателя (producer-а)
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokerAddress),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	defer writer.Close()

	log.Println("Sending message to Kafka...")
	err := writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(orderID),
			Value: []byte(message),
		},
	)
	if err != nil {
		log.Fatalf("Failed to write message: %v", err)
	}
	fmt.Println("Message sent successfully!")
}
