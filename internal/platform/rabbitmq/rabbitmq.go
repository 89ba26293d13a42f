package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

const dialTimeout = 3 * time.Second

// New dials the broker that carries change batches between instances.
func New(ctx context.Context, url string) (*amqp.Connection, error) {
	type result struct {
		conn *amqp.Connection
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := amqp.DialConfig(url, amqp.Config{
			Heartbeat: 10 * time.Second,
			Dial:      amqp.DefaultDial(dialTimeout),
			Properties: amqp.Table{
				"connection_name": "chat-change-feed",
			},
		})
		done <- result{conn: conn, err: err}
	}()

	checkCtx, cancel := context.WithTimeout(ctx, 2*dialTimeout)
	defer cancel()

	select {
	case <-checkCtx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return nil, fmt.Errorf("rabbitmq connect timeout: %w", checkCtx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("dial rabbitmq failed: %w", r.err)
		}
		ch, err := r.conn.Channel()
		if err != nil {
			_ = r.conn.Close()
			return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
		}
		_ = ch.Close()
		log.Info("rabbitmq connected")
		return r.conn, nil
	}
}

// DeclareChangeExchange makes sure the fanout exchange for change batches exists.
func DeclareChangeExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeFanout,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %s failed: %w", exchange, err)
	}
	return nil
}
