package kafka

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	ctx     context.Context
	mu      sync.Mutex
	marked  []*sarama.ConsumerMessage
	commits int
}

func (s *fakeSession) Claims() map[string][]int32 { return nil }
func (s *fakeSession) MemberID() string           { return "settlement-0" }
func (s *fakeSession) GenerationID() int32        { return 1 }
func (s *fakeSession) Context() context.Context   { return s.ctx }

func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.marked = append(s.marked, msg)
}

func (s *fakeSession) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commits++
}

func (s *fakeSession) commitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commits
}

func (s *fakeSession) markedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.marked)
}

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                              { return "order-events" }
func (c *fakeClaim) Partition() int32                           { return 0 }
func (c *fakeClaim) InitialOffset() int64                       { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64                 { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage   { return c.messages }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConsumeClaim_CommitsByBatchAndOnStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	session := &fakeSession{ctx: ctx}
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage)}

	eventChan := make(chan *sarama.ConsumerMessage)
	commitChan := make(chan *sarama.ConsumerMessage)

	h := &consumerHandler{
		eventChan:      eventChan,
		commitChan:     commitChan,
		commitBatch:    2,
		commitInterval: time.Hour,
		log:            discardLogger(),
	}

	done := make(chan error, 1)
	go func() { done <- h.ConsumeClaim(session, claim) }()

	msgs := []*sarama.ConsumerMessage{
		{Offset: 0}, {Offset: 1}, {Offset: 2},
	}

	// Every received message is forwarded to the processor, and every
	// handled one is marked.
	for _, msg := range msgs {
		claim.messages <- msg
		require.Same(t, msg, <-eventChan)
		commitChan <- msg
	}

	// The third mark is still pending: one commit so far, at batch size.
	assert.Equal(t, 1, session.commitCount())

	// Stopping the session flushes the partial batch.
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 3, session.markedCount())
	assert.Equal(t, 2, session.commitCount())
}

func TestConsumeClaim_TickerFlushesPendingMarks(t *testing.T) {
	session := &fakeSession{ctx: context.Background()}
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage)}

	eventChan := make(chan *sarama.ConsumerMessage)
	commitChan := make(chan *sarama.ConsumerMessage)

	h := &consumerHandler{
		eventChan:      eventChan,
		commitChan:     commitChan,
		commitBatch:    100,
		commitInterval: 10 * time.Millisecond,
		log:            discardLogger(),
	}

	done := make(chan error, 1)
	go func() { done <- h.ConsumeClaim(session, claim) }()

	msg := &sarama.ConsumerMessage{Offset: 7}
	claim.messages <- msg
	<-eventChan
	commitChan <- msg

	// The batch never fills; the interval tick commits the single mark.
	require.Eventually(t, func() bool {
		return session.commitCount() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	// A closed claim ends the loop.
	close(claim.messages)
	require.NoError(t, <-done)
}

func TestInitialOffset(t *testing.T) {
	assert.Equal(t, sarama.OffsetNewest, initialOffset("latest"))
	assert.Equal(t, sarama.OffsetOldest, initialOffset("earliest"))
	assert.Equal(t, sarama.OffsetOldest, initialOffset(""))
}
