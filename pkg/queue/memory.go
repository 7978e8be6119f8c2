package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"SignalPull/pkg/logger"
)

// ErrQueueFull is returned when the in-process buffer is full.
var ErrQueueFull = errors.New("queue full")

// MemoryQueue runs jobs in process. Used when Redis is not configured.
type MemoryQueue struct {
	config *QueueConfig
	reg    *registry
	ch     chan Message
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

var _ QueueService = (*MemoryQueue)(nil)

func NewMemoryQueue(lgr *logger.Logger, config *QueueConfig, jobs ...Job) *MemoryQueue {
	cfg := config.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	q := &MemoryQueue{
		config: cfg,
		reg:    newRegistry(lgr),
		ch:     make(chan Message, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, j := range jobs {
		q.reg.register(j)
	}
	return q
}

func (q *MemoryQueue) RegisterJob(job Job) { q.reg.register(job) }

func (q *MemoryQueue) Start() error {
	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return nil
}

func (q *MemoryQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	if !q.reg.has(msgType) {
		return errors.New("no job registered for type: " + msgType)
	}
	msg, err := newMessage(msgType, payload)
	if err != nil {
		return err
	}
	select {
	case q.ch <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case msg := <-q.ch:
			if retry, _ := q.reg.run(q.ctx, msg); retry && msg.Attempts < q.config.RetryLimit {
				msg.Attempts++
				q.requeueAfter(msg, q.config.RetryDelay)
			}
		}
	}
}

func (q *MemoryQueue) requeueAfter(msg Message, d time.Duration) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-q.ctx.Done():
		case <-t.C:
			select {
			case q.ch <- msg:
			default:
			}
		}
	}()
}

func (q *MemoryQueue) Stop(ctx context.Context) error {
	q.once.Do(q.cancel)
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
