package broker

import (
	"context"
	"errors"
	"testing"

	"storefront-service/internal/util"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queueReader struct {
	queue     []kafka.Message
	committed []int64
	stop      context.CancelFunc
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.queue) == 0 {
		r.stop()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *queueReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *queueReader) Close() error { return nil }

func newTestConsumer(offsets ...int64) (*Consumer, *queueReader, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &queueReader{stop: cancel}
	for _, off := range offsets {
		reader.queue = append(reader.queue, kafka.Message{Topic: "order-events", Offset: off})
	}
	return &Consumer{reader: reader, topic: "order-events", logger: util.GetLogger()}, reader, ctx
}

func TestConsumerRetriesUntilHandled(t *testing.T) {
	consumer, reader, ctx := newTestConsumer(1, 2)
	calls := map[int64]int{}

	err := consumer.StartConsuming(ctx, func(_ context.Context, msg kafka.Message) error {
		calls[msg.Offset]++
		if msg.Offset == 1 && calls[1] < 3 {
			return errors.New("deadlock detected")
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, calls[1])
	assert.Equal(t, 1, calls[2])
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestConsumerDropsAfterMaxAttempts(t *testing.T) {
	consumer, reader, ctx := newTestConsumer(1, 2)
	calls := map[int64]int{}

	err := consumer.StartConsuming(ctx, func(_ context.Context, msg kafka.Message) error {
		calls[msg.Offset]++
		if msg.Offset == 1 {
			return errors.New("unreadable event")
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, maxHandleAttempts, calls[1])
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestConsumerStopsWithoutCommittingOnShutdown(t *testing.T) {
	consumer, reader, ctx := newTestConsumer(1, 2)

	err := consumer.StartConsuming(ctx, func(_ context.Context, msg kafka.Message) error {
		reader.stop()
		return errors.New("database unavailable")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, reader.committed)
	assert.Len(t, reader.queue, 1)
}
