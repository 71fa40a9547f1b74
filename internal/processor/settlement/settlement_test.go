package settlement

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiangyupai/order-service/internal/models"
)

type fakeStorage struct {
	mu     sync.Mutex
	events []*models.OrderEvent
}

func (s *fakeStorage) SaveSettlement(_ context.Context, event *models.OrderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)

	return nil
}

func (s *fakeStorage) saved() []*models.OrderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*models.OrderEvent(nil), s.events...)
}

func orderEventMessage(t *testing.T, orderID string, offset int64) *sarama.ConsumerMessage {
	t.Helper()

	payload, err := json.Marshal(models.OrderEvent{
		OrderID:    orderID,
		OrderNo:    "XY202601010001",
		UserID:     1,
		ServiceID:  1,
		Quantity:   1,
		Amount:     100,
		Status:     models.OrderStatusPaid,
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	return &sarama.ConsumerMessage{Value: payload, Offset: offset}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessor_SettlesAndCommits(t *testing.T) {
	storage := &fakeStorage{}

	eventChan := make(chan *sarama.ConsumerMessage)
	commitChan := make(chan *sarama.ConsumerMessage, 100)

	p := New(storage, eventChan, commitChan, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go p.ProcessEvents(ctx, wg)

	const n = 7
	for i := range n {
		eventChan <- orderEventMessage(t, "order-"+string(rune('a'+i)), int64(i))
	}

	// Cancellation flushes the partial batch.
	cancel()
	wg.Wait()

	saved := storage.saved()
	require.Len(t, saved, n)
	assert.Len(t, commitChan, n, "every handled message must be offered for commit")

	seen := make(map[string]bool, n)
	for _, event := range saved {
		seen[event.OrderID] = true
		assert.Equal(t, models.OrderStatusPaid, event.Status)
	}
	assert.Len(t, seen, n)
}

func TestProcessor_SkipsCommitOnBadPayload(t *testing.T) {
	storage := &fakeStorage{}

	eventChan := make(chan *sarama.ConsumerMessage)
	commitChan := make(chan *sarama.ConsumerMessage, 10)

	p := New(storage, eventChan, commitChan, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go p.ProcessEvents(ctx, wg)

	eventChan <- &sarama.ConsumerMessage{Value: []byte("not json")}
	eventChan <- orderEventMessage(t, "order-ok", 1)

	cancel()
	wg.Wait()

	require.Len(t, storage.saved(), 1)
	assert.Equal(t, "order-ok", storage.saved()[0].OrderID)
	assert.Len(t, commitChan, 1, "the broken message must not be committed")
}
