package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/xiangyupai/order-service/internal/config"
	"github.com/xiangyupai/order-service/lib/logger/sl"
)

// Consumer reads terminal order events for the settlement ledger.
// Received messages go out through eventChan; the processor reports
// handled ones back on commitChan, and only those offsets are committed.
type Consumer struct {
	Consumer       sarama.ConsumerGroup
	eventChan      chan<- *sarama.ConsumerMessage
	commitChan     <-chan *sarama.ConsumerMessage
	commitBatch    int
	commitInterval time.Duration
	log            *slog.Logger
}

func NewConsumer(
	cfg config.Kafka,
	eventChan chan<- *sarama.ConsumerMessage,
	commitChan <-chan *sarama.ConsumerMessage,
	log *slog.Logger,
) (*Consumer, error) {
	config := sarama.NewConfig()

	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = initialOffset(cfg.Consumer.AutoOffsetReset)
	config.Consumer.IsolationLevel = sarama.IsolationLevel(cfg.Consumer.IsolationLevel)
	config.Consumer.Offsets.AutoCommit.Enable = cfg.Consumer.EnableAutoCommit

	cg, err := sarama.NewConsumerGroup(cfg.BootstrapServers, cfg.Consumer.GroupId, config)
	if err != nil {
		return nil, fmt.Errorf("can't create consumer: %v", err)
	}

	return &Consumer{
		Consumer:       cg,
		eventChan:      eventChan,
		commitChan:     commitChan,
		commitBatch:    cfg.Consumer.CommitBatchSize,
		commitInterval: cfg.Consumer.CommitInterval,
		log:            log,
	}, nil
}

// initialOffset маппит kafka-настройку auto.offset.reset на стартовый
// оффсет sarama. latest читает только новые события; любое другое
// значение трактуется как earliest, чтобы расчетная книга не теряла
// историю.
func initialOffset(reset string) int64 {
	if reset == "latest" {
		return sarama.OffsetNewest
	}

	return sarama.OffsetOldest
}

func (c *Consumer) ProcessMessages(ctx context.Context, topic string, wg *sync.WaitGroup) {
	defer wg.Done()

	const fn = "storage.kafka.ProcessMessages"

	log := c.log.With("fn", fn)

	for {
		select {
		case <-ctx.Done():
			log.Info("stopping message processing")
			return

		default:
			err := c.Consumer.Consume(ctx, []string{topic}, &consumerHandler{
				eventChan:      c.eventChan,
				commitChan:     c.commitChan,
				commitBatch:    c.commitBatch,
				commitInterval: c.commitInterval,
				log:            c.log,
			})
			if err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					log.Info("consumer group closed, exiting process messages loop")
					return
				}
				log.Error("error from consumer", sl.Err(err))
			}
		}
	}
}

type consumerHandler struct {
	eventChan      chan<- *sarama.ConsumerMessage
	commitChan     <-chan *sarama.ConsumerMessage
	commitBatch    int
	commitInterval time.Duration
	log            *slog.Logger
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim forwards messages to the settlement processor and marks
// the ones reported back as handled. Offsets are committed when the
// batch fills or on the interval tick, so a slow trickle of events does
// not leave marks uncommitted indefinitely.
func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	marked := 0

	ticker := time.NewTicker(h.commitInterval)
	defer ticker.Stop()

	commit := func() {
		if marked > 0 {
			session.Commit()
			marked = 0
		}
	}

	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				commit()

				return nil
			}

			h.log.Info(
				"received order event",
				slog.Int("partition", int(msg.Partition)),
				slog.Int64("offset", msg.Offset),
			)

			h.eventChan <- msg

		case msg := <-h.commitChan:
			session.MarkMessage(msg, "")

			marked++

			if marked >= h.commitBatch {
				h.log.Info("committing offsets", slog.Int("marked", marked))
				session.Commit()
				marked = 0
			}

		case <-ticker.C:
			commit()

		case <-session.Context().Done():
			commit()

			return nil
		}
	}
}
