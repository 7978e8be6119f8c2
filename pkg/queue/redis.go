package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"SignalPull/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// QueueMode defines the operation mode of the queue.
type QueueMode int

const (
	ModeProducerConsumer QueueMode = iota
	ModeProducerOnly
)

// RedisQueue is a list-backed queue with a retry sorted set and a dead-letter list.
type RedisQueue struct {
	logger    *logger.Logger
	config    *QueueConfig
	client    *redis.Client
	reg       *registry
	mode      QueueMode
	keyPrefix string

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

var _ QueueService = (*RedisQueue)(nil)

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets custom key prefix.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		r.keyPrefix = prefix
	}
}

// WithMode sets producer-only or producer-consumer mode.
func WithMode(m QueueMode) RedisQueueOption {
	return func(r *RedisQueue) {
		r.mode = m
	}
}

func NewRedisQueue(lgr *logger.Logger, config *QueueConfig, client *redis.Client, jobs []Job, opts ...RedisQueueOption) *RedisQueue {
	ctx, cancel := context.WithCancel(context.Background())
	rq := &RedisQueue{
		logger:    lgr,
		config:    config.withDefaults(),
		client:    client,
		reg:       newRegistry(lgr),
		keyPrefix: "signalpull:queue",
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(rq)
	}
	for _, j := range jobs {
		rq.RegisterJob(j)
	}
	return rq
}

func (r *RedisQueue) RegisterJob(job Job) {
	if r.mode == ModeProducerOnly {
		r.logger.Warn("job registration ignored in producer-only mode", logger.String("job", job.Name()))
		return
	}
	r.reg.register(job)
}

// Start pings Redis and launches workers plus the retry mover.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("queue already running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	r.running = true

	if r.mode == ModeProducerOnly {
		r.logger.Info("redis publisher started", logger.String("addr", r.client.Options().Addr))
		return nil
	}
	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.wg.Add(1)
	go r.retryLoop()
	r.logger.Info("redis queue started",
		logger.Int("workers", r.config.Workers),
		logger.String("addr", r.client.Options().Addr))
	return nil
}

// Stop cancels workers and waits for them or ctx.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-done:
		r.logger.Info("redis queue stopped")
		return nil
	}
}

// PublishMessage pushes a message onto the queue list.
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	if r.mode != ModeProducerOnly && !r.reg.has(msgType) {
		return fmt.Errorf("no job registered for type: %s", msgType)
	}
	msg, err := newMessage(msgType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.queueKey(), data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	r.logger.Debug("queue worker started", logger.Int("worker_id", id))
	for r.ctx.Err() == nil {
		r.next()
	}
}

func (r *RedisQueue) next() {
	result, err := r.client.BRPop(r.ctx, time.Second, r.queueKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		r.logger.Error("brpop error", logger.Error(err))
		select {
		case <-r.ctx.Done():
		case <-time.After(time.Second):
		}
		return
	}
	if len(result) < 2 {
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		r.logger.Error("unmarshal message", logger.Error(err))
		return
	}

	if retry, _ := r.reg.run(r.ctx, msg); !retry {
		return
	}
	if msg.Attempts < r.config.RetryLimit {
		msg.Attempts++
		r.push(r.retryKey(), msg, float64(time.Now().Add(r.config.RetryDelay).Unix()))
		return
	}
	r.logger.Error("max retries reached", logger.String("id", msg.ID), logger.String("type", msg.Type))
	r.push(r.deadLetterKey(), msg, -1)
}

// push writes msg to the retry set (score >= 0) or the dead-letter list.
func (r *RedisQueue) push(key string, msg Message, score float64) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal message", logger.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if score >= 0 {
		err = r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: data}).Err()
	} else {
		err = r.client.LPush(ctx, key, data).Err()
	}
	if err != nil {
		r.logger.Error("requeue message", logger.String("key", key), logger.Error(err))
	}
}

func (r *RedisQueue) retryLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.moveDueRetries()
		}
	}
}

func (r *RedisQueue) moveDueRetries() {
	due, err := r.client.ZRangeByScore(r.ctx, r.retryKey(), &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Error("fetch retry messages", logger.Error(err))
		}
		return
	}
	for _, member := range due {
		pipe := r.client.TxPipeline()
		pipe.ZRem(r.ctx, r.retryKey(), member)
		pipe.LPush(r.ctx, r.queueKey(), member)
		if _, err := pipe.Exec(r.ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				r.logger.Error("move retry to queue", logger.Error(err))
			}
			return
		}
	}
}

func (r *RedisQueue) queueKey() string      { return r.keyPrefix + ":messages" }
func (r *RedisQueue) retryKey() string      { return r.keyPrefix + ":retry" }
func (r *RedisQueue) deadLetterKey() string { return r.keyPrefix + ":dlq" }
