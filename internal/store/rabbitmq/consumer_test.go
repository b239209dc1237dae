package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type outcome struct {
	acked   bool
	nacked  bool
	requeue bool
}

type fakeAcker struct {
	mu   sync.Mutex
	seen map[uint64]outcome
}

func newFakeAcker() *fakeAcker {
	return &fakeAcker{seen: make(map[uint64]outcome)}
}

func (a *fakeAcker) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen[tag] = outcome{acked: true}
	return nil
}

func (a *fakeAcker) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen[tag] = outcome{nacked: true, requeue: requeue}
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcker) get(tag uint64) (outcome, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.seen[tag]
	return o, ok
}

type fakeRetryPub struct {
	mu   sync.Mutex
	keys []string
	msgs []amqp.Publishing
	err  error
}

func (p *fakeRetryPub) PublishWithContext(ctx context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.keys = append(p.keys, key)
	p.msgs = append(p.msgs, msg)
	return nil
}

func newTestConsumer(h Handler, pub retryPublisher, concurrency int) *Consumer {
	return &Consumer{
		pub: pub,
		cfg: ConsumerConfig{
			Queue:       "auto_response_jobs",
			Concurrency: concurrency,
			MaxAttempts: 3,
			BaseDelay:   10 * time.Second,
		},
		handler: h,
		logger:  zap.NewNop(),
	}
}

func delivery(a amqp.Acknowledger, tag uint64, attempt int) amqp.Delivery {
	d := amqp.Delivery{Acknowledger: a, DeliveryTag: tag, Body: []byte(`{}`)}
	if attempt > 0 {
		d.Headers = amqp.Table{attemptHeader: int32(attempt)}
	}
	return d
}

func TestAttemptOf(t *testing.T) {
	assert.Equal(t, 1, attemptOf(amqp.Delivery{}))
	assert.Equal(t, 2, attemptOf(amqp.Delivery{Headers: amqp.Table{attemptHeader: int32(2)}}))
	assert.Equal(t, 3, attemptOf(amqp.Delivery{Headers: amqp.Table{attemptHeader: int64(3)}}))
}

func TestBackoff(t *testing.T) {
	c := &Consumer{cfg: ConsumerConfig{BaseDelay: 10 * time.Second}}
	assert.Equal(t, 10*time.Second, c.backoff(1))
	assert.Equal(t, 20*time.Second, c.backoff(2))
	assert.Equal(t, 5*time.Minute, c.backoff(10))
}

func TestProcess(t *testing.T) {
	transient := errors.New("heygen: status 502")

	tests := []struct {
		name      string
		err       error
		attempt   int
		cancelled bool
		pubErr    error
		want      outcome
		retried   bool
	}{
		{name: "success acks", want: outcome{acked: true}},
		{name: "permanent dead-letters", err: ErrPermanent, want: outcome{nacked: true}},
		{name: "transient schedules retry", err: transient, want: outcome{acked: true}, retried: true},
		{name: "last attempt dead-letters", err: transient, attempt: 3, want: outcome{nacked: true}},
		{name: "shutdown requeues", err: context.Canceled, cancelled: true, want: outcome{nacked: true, requeue: true}},
		{name: "retry publish failure dead-letters", err: transient, pubErr: errors.New("channel closed"), want: outcome{nacked: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancelled {
				cancel()
			}

			acker := newFakeAcker()
			pub := &fakeRetryPub{err: tt.pubErr}
			c := newTestConsumer(func(context.Context, []byte) error { return tt.err }, pub, 1)

			c.process(ctx, delivery(acker, 7, tt.attempt), zap.NewNop())

			got, ok := acker.get(7)
			require.True(t, ok, "delivery was neither acked nor nacked")
			assert.Equal(t, tt.want, got)
			if tt.retried {
				require.Len(t, pub.msgs, 1)
				assert.Equal(t, "auto_response_jobs.retry", pub.keys[0])
				assert.Equal(t, int32(2), pub.msgs[0].Headers[attemptHeader])
				assert.Equal(t, "10000", pub.msgs[0].Expiration)
			} else {
				assert.Empty(t, pub.msgs)
			}
		})
	}
}

func TestDispatch_ShutdownHandsBackWaitingDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{}, 4)
	release := make(chan struct{})
	h := func(context.Context, []byte) error {
		started <- struct{}{}
		<-release
		return nil
	}

	acker := newFakeAcker()
	c := newTestConsumer(h, &fakeRetryPub{}, 1)

	msgs := make(chan amqp.Delivery)
	done := make(chan error, 1)
	go func() { done <- c.dispatch(ctx, msgs) }()

	// one delivery in the worker, two buffered, the fourth held by the dispatcher
	sent := make(chan struct{})
	go func() {
		for tag := uint64(1); tag <= 4; tag++ {
			msgs <- delivery(acker, tag, 0)
		}
		close(sent)
	}()
	<-started
	<-sent

	cancel()
	require.Eventually(t, func() bool {
		o, ok := acker.get(4)
		return ok && o.nacked && o.requeue
	}, 2*time.Second, 10*time.Millisecond)

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch did not return after shutdown")
	}

	o, ok := acker.get(1)
	require.True(t, ok)
	assert.True(t, o.acked)
}

func TestDispatch_ClosedDeliveries(t *testing.T) {
	c := newTestConsumer(func(context.Context, []byte) error { return nil }, &fakeRetryPub{}, 2)
	msgs := make(chan amqp.Delivery)
	close(msgs)
	assert.Error(t, c.dispatch(context.Background(), msgs))
}
