package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrPermanent marks a delivery that must go straight to the DLQ.
var ErrPermanent = errors.New("permanent failure")

type Handler func(ctx context.Context, body []byte) error

type ConsumerConfig struct {
	URL         string
	Queue       string
	Concurrency int
	MaxAttempts int
	BaseDelay   time.Duration
}

// retryPublisher is the part of *amqp.Channel used to park failed deliveries.
type retryPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Consumer struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	pub     retryPublisher
	cfg     ConsumerConfig
	handler Handler
	logger  *zap.Logger
}

const attemptHeader = "x-attempt"

func NewConsumer(cfg ConsumerConfig, handler Handler, logger *zap.Logger) (*Consumer, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 10 * time.Second
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbit dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbit channel: %w", err)
	}
	if err := declareTopology(ch, cfg.Queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	//  strict concurrency control
	if err := ch.Qos(cfg.Concurrency, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("qos: %w", err)
	}
	return &Consumer{conn: conn, ch: ch, pub: ch, cfg: cfg, handler: handler, logger: logger}, nil
}

// Run dispatches deliveries to a fixed worker pool until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	c.logger.Info("worker started", zap.String("queue", c.cfg.Queue), zap.Int("concurrency", c.cfg.Concurrency))
	return c.dispatch(ctx, msgs)
}

func (c *Consumer) dispatch(ctx context.Context, msgs <-chan amqp.Delivery) error {
	jobs := make(chan amqp.Delivery, c.cfg.Concurrency*2)

	var wg sync.WaitGroup
	wg.Add(c.cfg.Concurrency)
	for i := 0; i < c.cfg.Concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			log := c.logger.With(zap.Int("worker_id", workerID))
			for d := range jobs {
				c.process(ctx, d, log)
			}
		}(i)
	}

	stop := func() {
		close(jobs)
		wg.Wait()
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("worker shutting down")
			stop()
			return nil

		case d, ok := <-msgs:
			if !ok {
				stop()
				return errors.New("delivery channel closed")
			}
			select {
			case jobs <- d:
			case <-ctx.Done():
				// every worker is busy; hand the delivery back to the broker
				_ = d.Nack(false, true)
				c.logger.Info("worker shutting down")
				stop()
				return nil
			}
		}
	}
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery, log *zap.Logger) {
	start := time.Now()
	err := c.handler(ctx, d.Body)
	if err == nil {
		if err := d.Ack(false); err != nil {
			log.Warn("ack failed", zap.Uint64("delivery_tag", d.DeliveryTag), zap.Error(err))
		}
		return
	}

	attempt := attemptOf(d)
	log = log.With(zap.Int("attempt", attempt), zap.Duration("cost", time.Since(start)), zap.Error(err))

	// interrupted by shutdown, not a failure of the job itself
	if ctx.Err() != nil {
		log.Warn("job interrupted by shutdown, requeued")
		_ = d.Nack(false, true)
		return
	}

	if errors.Is(err, ErrPermanent) || attempt >= c.cfg.MaxAttempts {
		log.Error("job failed, dead-lettering")
		_ = d.Nack(false, false)
		return
	}

	delay := c.backoff(attempt)
	if perr := c.retry(d, attempt+1, delay); perr != nil {
		log.Error("schedule retry failed, dead-lettering", zap.NamedError("retry_error", perr))
		_ = d.Nack(false, false)
		return
	}
	log.Warn("job failed, retry scheduled", zap.Duration("delay", delay))
	_ = d.Ack(false)
}

func (c *Consumer) backoff(attempt int) time.Duration {
	delay := c.cfg.BaseDelay << (attempt - 1)
	if delay > 5*time.Minute {
		delay = 5 * time.Minute
	}
	return delay
}

// retry parks the body on the retry queue; its TTL dead-letters it back to main.
// The publish is bounded on its own so a shutdown in progress cannot cancel it.
func (c *Consumer) retry(d amqp.Delivery, attempt int, delay time.Duration) error {
	cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.pub.PublishWithContext(cctx, "", c.cfg.Queue+".retry", false, false, amqp.Publishing{
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		Body:         d.Body,
		Expiration:   fmt.Sprintf("%d", delay.Milliseconds()),
		Headers:      amqp.Table{attemptHeader: int32(attempt)},
		Timestamp:    time.Now(),
	})
}

func attemptOf(d amqp.Delivery) int {
	switch v := d.Headers[attemptHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 1
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
