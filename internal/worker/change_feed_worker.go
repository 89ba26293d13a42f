package worker

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/flisboa999/guiaturismo/internal/platform/rabbitmq"
	"github.com/flisboa999/guiaturismo/internal/store"
)

// Dispatcher is the local end of the change feed.
type Dispatcher interface {
	Dispatch(batch store.Batch)
}

type BatchObserver interface {
	ObserveChangeBatch(source string)
}

// ChangeFeedWorker consumes the fanout exchange through a private queue and
// hands every batch to this instance's hub.
type ChangeFeedWorker struct {
	conn     *amqp.Connection
	hub      Dispatcher
	exchange string
	observer BatchObserver

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewChangeFeedWorker(conn *amqp.Connection, hub Dispatcher, exchange string, observer BatchObserver) *ChangeFeedWorker {
	return &ChangeFeedWorker{
		conn:     conn,
		hub:      hub,
		exchange: exchange,
		observer: observer,
	}
}

func (w *ChangeFeedWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareChangeExchange(ch, w.exchange); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	// Each instance gets its own server-named queue that disappears with it.
	queue, err := ch.QueueDeclare(
		"",
		false,
		true,
		true,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	if err := ch.QueueBind(queue.Name, "", w.exchange, false, nil); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("bind worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		queue.Name,
		"",
		false,
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	log.WithFields(log.Fields{"exchange": w.exchange, "queue": queue.Name}).Info("change feed worker started")

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					log.Warn("change feed deliveries closed")
					return
				}
				if err := w.Handle(d.Body); err != nil {
					log.WithError(err).Error("worker drop change batch")
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

// Handle decodes one delivery and dispatches it locally.
func (w *ChangeFeedWorker) Handle(body []byte) error {
	msg, err := rabbitmq.DecodeChange(body)
	if err != nil {
		return err
	}
	if msg.Batch.Empty() {
		return nil
	}
	w.hub.Dispatch(msg.Batch)
	if w.observer != nil {
		w.observer.ObserveChangeBatch("rabbitmq")
	}
	return nil
}

func (w *ChangeFeedWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
