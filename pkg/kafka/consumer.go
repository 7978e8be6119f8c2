package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SignalPull/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer reads registered topics in a consumer group and dispatches to a worker pool.
// Offsets are committed after success, or after the message went to the DLQ.
type Consumer struct {
	cfg      ConsumerConfig
	logger   *logger.Logger
	handlers map[string]MessageHandler
	readers  map[string]*kafka.Reader
	dlq      *kafka.Writer
	msgs     chan kafka.Message

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewConsumer(lgr *logger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := defaultConsumerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	initMetrics()

	c := &Consumer{
		cfg:      cfg,
		logger:   lgr,
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]*kafka.Reader),
		msgs:     make(chan kafka.Message, cfg.BufferSize),
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Topic: cfg.DLQTopic, Balancer: &kafka.LeastBytes{}}
	}
	return c, nil
}

// RegisterHandler must be called before Start. A second handler for a topic is ignored.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	if _, ok := c.handlers[h.Topic()]; ok {
		c.logger.Warn("Kafka handler already registered", logger.String("topic", h.Topic()))
		return
	}
	c.handlers[h.Topic()] = h
}

func (c *Consumer) Start(ctx context.Context) error {
	if len(c.handlers) == 0 {
		return errors.New("kafka consumer: no handlers registered")
	}
	ctx, c.cancel = context.WithCancel(ctx)

	start := kafka.FirstOffset
	if c.cfg.StartOffset == "latest" {
		start = kafka.LastOffset
	}
	for topic := range c.handlers {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     c.cfg.Brokers,
			Topic:       topic,
			GroupID:     c.cfg.GroupID,
			MinBytes:    c.cfg.MinBytes,
			MaxBytes:    c.cfg.MaxBytes,
			StartOffset: start,
		})
		c.readers[topic] = r
		c.wg.Add(1)
		go c.fetchLoop(ctx, topic, r)
	}
	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx)
	}

	c.logger.Info("Kafka consumer started",
		logger.String("group", c.cfg.GroupID),
		logger.Int("topics", len(c.readers)),
		logger.Int("workers", c.cfg.Workers))
	return nil
}

// Stop cancels fetching, waits for in-flight messages and closes the readers.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("kafka consumer stop: %w", ctx.Err())
		}
		for topic, r := range c.readers {
			if cerr := r.Close(); cerr != nil {
				c.logger.Warn("Kafka reader close failed", logger.String("topic", topic), logger.Error(cerr))
			}
		}
		if c.dlq != nil {
			_ = c.dlq.Close()
		}
	})
	return err
}

func (c *Consumer) fetchLoop(ctx context.Context, topic string, r *kafka.Reader) {
	defer c.wg.Done()
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("Kafka fetch failed", logger.String("topic", topic), logger.Error(err))
			select {
			case <-time.After(time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}
		select {
		case c.msgs <- m:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) worker(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-c.msgs:
			c.handle(ctx, m)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	h, ok := c.handlers[m.Topic]
	if !ok {
		return
	}
	start := time.Now()
	err := c.process(ctx, h, m.Value)
	observeHandle(m.Topic, time.Since(start), err)
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		c.logger.Error("Kafka message failed",
			logger.String("topic", m.Topic),
			logger.Int("partition", m.Partition),
			logger.Int64("offset", m.Offset),
			logger.Error(err))
		if c.dlq == nil {
			return
		}
		if derr := c.deadLetter(ctx, m, err); derr != nil {
			c.logger.Error("Kafka dead-letter write failed", logger.String("topic", m.Topic), logger.Error(derr))
			return
		}
	}

	if r := c.readers[m.Topic]; r != nil {
		if cerr := r.CommitMessages(ctx, m); cerr != nil {
			c.logger.Warn("Kafka commit failed", logger.String("topic", m.Topic), logger.Error(cerr))
		}
	}
}

// process runs the handler with RetryMax retries. Panics are returned as errors.
func (c *Consumer) process(ctx context.Context, h MessageHandler, data []byte) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.BackoffMin
	eb.MaxInterval = c.cfg.BackoffMax
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.cfg.RetryMax)), ctx)

	return backoff.Retry(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		return h.Handle(ctx, data)
	}, policy)
}

func (c *Consumer) deadLetter(ctx context.Context, m kafka.Message, cause error) error {
	deadLetterTotal.WithLabelValues(m.Topic).Inc()
	return c.dlq.WriteMessages(ctx, kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(m.Topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	})
}
