// Package settlement drains terminal order events from Kafka and writes
// the settlement ledger. Events are handled in batches through the worker
// pool; only handled messages are offered for offset commit.
package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"

	"github.com/xiangyupai/order-service/internal/models"
	"github.com/xiangyupai/order-service/lib/logger/sl"
	wp "github.com/xiangyupai/order-service/lib/workerpool"
)

type Storage interface {
	SaveSettlement(ctx context.Context, event *models.OrderEvent) error
}

type IPool interface {
	Create()
	Handle(context.Context, *sarama.ConsumerMessage) error
	Wait()
	Size() int
}

type Processor struct {
	Storage    Storage
	eventChan  <-chan *sarama.ConsumerMessage
	commitChan chan<- *sarama.ConsumerMessage
	log        *slog.Logger
}

func New(
	storage Storage,
	eventChan <-chan *sarama.ConsumerMessage,
	commitChan chan<- *sarama.ConsumerMessage,
	log *slog.Logger,
) *Processor {
	return &Processor{
		Storage:    storage,
		eventChan:  eventChan,
		commitChan: commitChan,
		log:        log,
	}
}

func (p *Processor) ProcessEvents(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	const fn = "processor.settlement.ProcessEvents"
	log := p.log.With("fn", fn)

	pool := wp.New(wp.DefaultSize, p.processEvent)

	events := make([]*sarama.ConsumerMessage, 0, pool.Size())

	for {
		select {
		case <-ctx.Done():
			if len(events) != 0 {
				p.processBatch(ctx, events, pool)
			}

			log.Info("stopping settlement processing by context")
			return

		case event := <-p.eventChan:
			events = append(events, event)

			if len(events) == pool.Size() {
				p.processBatch(ctx, events, pool)

				events = make([]*sarama.ConsumerMessage, 0, pool.Size())
			}
		}
	}
}

func (p *Processor) processBatch(ctx context.Context, events []*sarama.ConsumerMessage, pool IPool) {
	pool.Create()

	wg := &sync.WaitGroup{}

	for _, event := range events {
		wg.Add(1)

		go func(current *sarama.ConsumerMessage) {
			defer wg.Done()

			err := pool.Handle(ctx, current)
			if err != nil {
				p.log.Error("failed to handle order event", sl.Err(err))
			} else {
				p.commitChan <- current
			}
		}(event)
	}

	wg.Wait()
	pool.Wait()
}

func (p *Processor) processEvent(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event models.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		p.log.Error("can't unmarshal order event", sl.Err(err))

		return fmt.Errorf("can't unmarshal order event: %v", err)
	}

	p.log.Info("settling order",
		slog.String("order_id", event.OrderID),
		slog.String("status", event.Status),
	)

	if err := p.Storage.SaveSettlement(ctx, &event); err != nil {
		p.log.Error("failed to save settlement", sl.Err(err))

		return fmt.Errorf("failed to save settlement: %v", err)
	}

	return nil
}
