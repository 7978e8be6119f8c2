package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"SignalPull/pkg/logger"
)

type verifyPayload struct {
	SignalID string `json:"signal_id"`
}

type recordingJob struct {
	failFirst int32
	calls     int32
	got       chan string
}

func (j *recordingJob) Name() string { return "recording" }
func (j *recordingJob) Type() string { return "test.record" }
func (j *recordingJob) Handle(_ context.Context, payload interface{}) error {
	n := atomic.AddInt32(&j.calls, 1)
	if n <= j.failFirst {
		return errors.New("transient")
	}
	p, err := ParsePayload[verifyPayload](payload)
	if err != nil {
		return err
	}
	j.got <- p.SignalID
	return nil
}

func TestMemoryQueueDeliversAndRetries(t *testing.T) {
	job := &recordingJob{failFirst: 1, got: make(chan string, 1)}
	q := NewMemoryQueue(logger.Nop(), &QueueConfig{RetryLimit: 2, RetryDelay: 10 * time.Millisecond}, job)
	_ = q.Start()
	defer q.Stop(context.Background())

	if err := q.PublishMessage(context.Background(), "test.record", verifyPayload{SignalID: "s1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case id := <-job.got:
		if id != "s1" {
			t.Fatalf("got %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	if c := atomic.LoadInt32(&job.calls); c != 2 {
		t.Fatalf("calls = %d", c)
	}
}

func TestMemoryQueueRejectsUnknownType(t *testing.T) {
	q := NewMemoryQueue(logger.Nop(), nil)
	if err := q.PublishMessage(context.Background(), "nope", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload[verifyPayload](map[string]interface{}{"signal_id": "abc"})
	if err != nil || p.SignalID != "abc" {
		t.Fatalf("map: %+v %v", p, err)
	}
	p, err = ParsePayload[verifyPayload]([]byte(`{"signal_id":"x"}`))
	if err != nil || p.SignalID != "x" {
		t.Fatalf("bytes: %+v %v", p, err)
	}
	if _, err := ParsePayload[verifyPayload](42); err == nil {
		t.Fatal("expected error for int payload")
	}
}
