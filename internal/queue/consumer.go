package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const ackQueueName = "channel.ack"

// AckHandler processes one acknowledgement from an external channel.
// Returning an error rejects the message without requeueing it.
type AckHandler func(ack ChannelAck) error

// StartAckConsumer connects to RabbitMQ, declares the channel.ack queue
// (durable), and starts consuming acknowledgements.  The function runs a
// reconnect loop with capped dial backoff and keeps running; processing
// errors are logged and the offending message is rejected so the server
// continues operating.
func StartAckConsumer(handler AckHandler) error {
	url := BrokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("ack-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeAcks(conn, handler); err != nil {
			log.Printf("ack-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeAcks(conn *amqp.Connection, handler AckHandler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("ack-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(ackQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(ackQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		var ack ChannelAck
		if err := json.Unmarshal(d.Body, &ack); err != nil {
			log.Printf("ack-consumer: unmarshal failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		if err := handler(ack); err != nil {
			log.Printf("ack-consumer: handle ack failed: %v", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}
