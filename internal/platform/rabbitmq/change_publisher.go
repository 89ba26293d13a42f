package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/flisboa999/guiaturismo/internal/store"
)

// ChangeMessage is the wire form of one committed change batch.
type ChangeMessage struct {
	Origin      string      `json:"origin"`
	PublishedAt time.Time   `json:"publishedAt"`
	Batch       store.Batch `json:"batch"`
}

func EncodeChange(origin string, batch store.Batch) ([]byte, error) {
	payload, err := json.Marshal(ChangeMessage{Origin: origin, PublishedAt: time.Now().UTC(), Batch: batch})
	if err != nil {
		return nil, fmt.Errorf("marshal change batch failed: %w", err)
	}
	return payload, nil
}

func DecodeChange(body []byte) (ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return ChangeMessage{}, fmt.Errorf("decode change batch failed: %w", err)
	}
	return msg, nil
}

// ChangePublisher fans change batches out to every instance, this one included.
type ChangePublisher struct {
	conn     *amqp.Connection
	exchange string
	origin   string
}

func NewChangePublisher(conn *amqp.Connection, exchange, origin string) *ChangePublisher {
	return &ChangePublisher{
		conn:     conn,
		exchange: exchange,
		origin:   origin,
	}
}

func (p *ChangePublisher) Publish(ctx context.Context, batch store.Batch) error {
	if batch.Empty() {
		return nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := DeclareChangeExchange(ch, p.exchange); err != nil {
		return err
	}

	payload, err := EncodeChange(p.origin, batch)
	if err != nil {
		return err
	}

	if err := ch.PublishWithContext(
		ctx,
		p.exchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        payload,
			Timestamp:   time.Now(),
		},
	); err != nil {
		return fmt.Errorf("publish change batch failed: %w", err)
	}
	return nil
}
