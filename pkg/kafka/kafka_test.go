package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spacebook/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.messages...)
}

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		msg := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestMessageBuilder(t *testing.T) {
	msg, err := NewMessage().
		WithKey("space-1").
		WithValue(map[string]string{"type": "reservation.created"}).
		WithEventType("reservation.created").
		WithCorrelationID("req-1").
		WithSource("spacebook").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "space-1", msg.Key)
	assert.JSONEq(t, `{"type":"reservation.created"}`, string(msg.Value))
	assert.Equal(t, "reservation.created", msg.GetEventType())
	assert.Equal(t, "req-1", msg.GetCorrelationID())
	assert.NotEmpty(t, msg.GetEventID())
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])
}

func TestMessageBuilderEncodeError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.Error(t, err)
}

func TestRetryCount(t *testing.T) {
	var msg Message
	assert.Equal(t, 0, msg.GetRetryCount())
	msg.IncrementRetryCount()
	msg.IncrementRetryCount()
	assert.Equal(t, 2, msg.GetRetryCount())
	assert.Equal(t, "2", msg.Headers[HeaderRetryCount])
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, ErrorTypeUnknown, ClassifyError(nil))
	assert.Equal(t, ErrorTypeTransient, ClassifyError(errors.New("dial tcp: Connection Refused")))
	assert.Equal(t, ErrorTypeTransient, ClassifyError(context.DeadlineExceeded))
	assert.Equal(t, ErrorTypePermanent, ClassifyError(errors.New("invalid character 'x'")))
	assert.Equal(t, ErrorTypePermanent, ClassifyError(NewPermanentError("bad payload", errors.New("timeout"))))
	assert.Equal(t, ErrorTypeTransient, ClassifyError(NewTransientError("broker down", nil)))
}

func TestShouldRetry(t *testing.T) {
	transient := NewTransientError("broker down", nil)
	assert.True(t, ShouldRetry(transient, 0, 3))
	assert.False(t, ShouldRetry(transient, 3, 3))
	assert.False(t, ShouldRetry(errors.New("bad payload"), 0, 3))
	assert.False(t, ShouldRetry(nil, 0, 3))
}

func TestProducerPublish(t *testing.T) {
	writer := &fakeWriter{}
	p := newProducer(writer, nil, "reservation-events", logger.Nop())

	var seenTopic string
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		seenTopic = msg.Topic
		return next(ctx, msg)
	})

	msg, err := NewMessage().WithKey("space-1").WithValue("hello").WithEventType("reservation.created").Build()
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), msg))

	written := writer.written()
	require.Len(t, written, 1)
	assert.Equal(t, "space-1", string(written[0].Key))
	assert.Equal(t, "reservation.created", header(written[0], HeaderEventType))
	assert.Equal(t, "reservation-events", seenTopic)
}

func TestProducerRejectsInvalidMessages(t *testing.T) {
	p := newProducer(&fakeWriter{}, nil, "t", logger.Nop())

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k", Value: []byte("x")}), ErrProducerClosed)
}

func TestProducerSendsFailuresToDLQ(t *testing.T) {
	writeErr := errors.New("leader not available")
	dlq := &fakeWriter{}
	p := newProducer(&fakeWriter{err: writeErr}, dlq, "reservation-events", logger.Nop())

	msg, err := NewMessage().WithKey("space-1").WithValue("hello").Build()
	require.NoError(t, err)

	err = p.Publish(context.Background(), msg)
	assert.ErrorIs(t, err, writeErr)

	written := dlq.written()
	require.Len(t, written, 1)
	assert.Equal(t, "reservation-events", header(written[0], HeaderOriginalTopic))
	assert.Equal(t, writeErr.Error(), header(written[0], HeaderDLQError))
	assert.Empty(t, msg.Headers[HeaderDLQError], "caller message must not be mutated")
}

func runConsumer(t *testing.T, c *Consumer, reader *fakeReader, wantCommits int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool {
		return len(reader.commits()) == wantCommits
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, c.Close())
}

func TestConsumerRetriesTransientErrors(t *testing.T) {
	reader := &fakeReader{pending: []kafka.Message{{Key: []byte("space-1"), Value: []byte("{}"), Offset: 7}}}

	var mu sync.Mutex
	var retryCounts []int
	handler := func(_ context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		retryCounts = append(retryCounts, msg.GetRetryCount())
		if len(retryCounts) < 3 {
			return NewTransientError("broker down", nil)
		}
		return nil
	}

	dlq := &fakeWriter{}
	c := newConsumer(reader, dlq, "reservation-events", handler, logger.Nop())
	c.retryBackoff = time.Millisecond

	runConsumer(t, c, reader, 1)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, retryCounts)
	assert.Equal(t, []int64{7}, reader.commits())
	assert.Empty(t, dlq.written())
}

func TestConsumerParksPermanentErrors(t *testing.T) {
	reader := &fakeReader{pending: []kafka.Message{
		{Key: []byte("space-1"), Value: []byte("not json"), Offset: 1},
		{Key: []byte("space-1"), Value: []byte("{}"), Offset: 2},
	}}

	var calls int
	var mu sync.Mutex
	handler := func(_ context.Context, msg Message) error {
		mu.Lock()
		calls++
		mu.Unlock()
		var v map[string]any
		if err := msg.DecodeValue(&v); err != nil {
			return NewPermanentError("decode", err)
		}
		return nil
	}

	dlq := &fakeWriter{}
	c := newConsumer(reader, dlq, "reservation-events", handler, logger.Nop())
	c.retryBackoff = time.Millisecond

	runConsumer(t, c, reader, 2)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls, "permanent errors are not retried")
	assert.Equal(t, []int64{1, 2}, reader.commits())
	written := dlq.written()
	require.Len(t, written, 1)
	assert.Equal(t, "not json", string(written[0].Value))
	assert.Equal(t, "reservation-events", header(written[0], HeaderOriginalTopic))
}

func TestConsumerStartAfterClose(t *testing.T) {
	c := newConsumer(&fakeReader{}, nil, "t", func(context.Context, Message) error { return nil }, logger.Nop())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Start(context.Background()), ErrConsumerClosed)
}
