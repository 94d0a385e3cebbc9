package service

import (
	"encoding/json"
	"log"

	"cafelog/internal/util"
)

// NotificationWorker consumes notification messages from RabbitMQ. Delivery is
// poll-based in this product, so the worker's job is bookkeeping: it refreshes
// the per-user unread counter cache so pollers see new notifications promptly.
type NotificationWorker struct {
	rabbitMQ *util.RabbitMQClient
	redis    *util.RedisClient
	stopChan chan bool
}

func NewNotificationWorker(rabbitMQ *util.RabbitMQClient, redis *util.RedisClient) *NotificationWorker {
	return &NotificationWorker{
		rabbitMQ: rabbitMQ,
		redis:    redis,
		stopChan: make(chan bool),
	}
}

// Start begins consuming notification messages
func (w *NotificationWorker) Start() error {
	if w.rabbitMQ == nil {
		return nil // RabbitMQ not available, worker will not start
	}

	channel := w.rabbitMQ.GetChannel()
	if channel == nil {
		return nil
	}

	if err := channel.ExchangeDeclare(
		NotificationExchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return err
	}

	queue, err := channel.QueueDeclare(
		NotificationQueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	if err := channel.QueueBind(
		NotificationQueueName,
		NotificationRoutingKey,
		NotificationExchange,
		false,
		nil,
	); err != nil {
		return err
	}

	msgs, err := channel.Consume(
		queue.Name,
		"notification_worker",
		false, // auto-ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					log.Println("Notification worker: channel closed")
					return
				}

				var notification NotificationMessage
				if err := json.Unmarshal(msg.Body, &notification); err != nil {
					log.Printf("Notification worker: failed to decode message: %v", err)
					msg.Nack(false, false)
					continue
				}

				if w.redis != nil {
					w.redis.Delete("notification:unread:" + notification.UserID)
				}
				log.Printf("Notification delivered: type=%s user=%s", notification.Type, notification.UserID)

				msg.Ack(false)
			case <-w.stopChan:
				log.Println("Notification worker stopped")
				return
			}
		}
	}()

	return nil
}

// Stop stops the worker
func (w *NotificationWorker) Stop() {
	close(w.stopChan)
}
