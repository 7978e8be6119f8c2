package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QueueService publishes a message for the job registered under msgType.
type QueueService interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// QueueConfig contains the configuration for the queue.
type QueueConfig struct {
	Workers    int
	QueueSize  int // buffer of the in-process queue
	RetryLimit int
	RetryDelay time.Duration
}

func (c *QueueConfig) withDefaults() *QueueConfig {
	out := QueueConfig{}
	if c != nil {
		out = *c
	}
	if out.Workers <= 0 {
		out.Workers = 1
	}
	if out.QueueSize <= 0 {
		out.QueueSize = 256
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = 10 * time.Second
	}
	return &out
}

// Message is the envelope stored in the queue.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

func newMessage(msgType string, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Message{ID: uuid.NewString(), Type: msgType, Payload: raw, Timestamp: time.Now()}, nil
}

// ParsePayload decodes a job payload into T.
func ParsePayload[T any](payload interface{}) (*T, error) {
	var result T
	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case json.RawMessage:
		if err := json.Unmarshal(p, &result); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		return &result, nil
	case []byte:
		if err := json.Unmarshal(p, &result); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		return &result, nil
	case map[string]interface{}:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal map payload: %w", err)
		}
		if err := json.Unmarshal(b, &result); err != nil {
			return nil, fmt.Errorf("unmarshal map payload: %w", err)
		}
		return &result, nil
	default:
		return nil, fmt.Errorf("invalid payload type: %T", payload)
	}
}

// Worker is a queue that also runs its consumers.
type Worker interface {
	QueueService
	Start() error
	Stop(ctx context.Context) error
}
