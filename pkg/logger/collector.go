package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Publisher ships aggregated entries, e.g. to a Kafka topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval
	CountThreshold int           // unique entries before an early flush
	Topic          string
	Publisher      Publisher
}

type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector folds identical error entries into counted digests and publishes them
// periodically or once CountThreshold distinct entries accumulate.
type LogCollector struct {
	config  *CollectionConfig
	mu      sync.Mutex
	entries map[string]*AggregatedLogEntry
	stop    chan struct{}
	wg      sync.WaitGroup
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	if config.TimeInterval <= 0 {
		config.TimeInterval = 30 * time.Second
	}
	if config.CountThreshold <= 0 {
		config.CountThreshold = 100
	}
	c := &LogCollector{
		config:  config,
		entries: make(map[string]*AggregatedLogEntry),
		stop:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.loop()
	return c
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := entryKey(level, message, fields, caller)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.entries[key] = &AggregatedLogEntry{
			Level: level, Message: message, Fields: fields, Caller: caller,
			Count: 1, FirstSeen: now, LastSeen: now,
		}
	}
	var batch []AggregatedLogEntry
	if len(c.entries) >= c.config.CountThreshold {
		batch = c.drainLocked()
	}
	c.mu.Unlock()

	if batch != nil {
		go c.publish(batch)
	}
}

func entryKey(level, message string, fields map[string]interface{}, caller string) string {
	b, _ := json.Marshal([]interface{}{level, message, fields, caller})
	return fmt.Sprintf("%x", sha256.Sum256(b))
}

func (c *LogCollector) loop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.config.TimeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.stop:
			c.flush()
			return
		}
	}
}

func (c *LogCollector) flush() {
	c.mu.Lock()
	batch := c.drainLocked()
	c.mu.Unlock()
	if batch != nil {
		c.publish(batch)
	}
}

func (c *LogCollector) drainLocked() []AggregatedLogEntry {
	if len(c.entries) == 0 {
		return nil
	}
	out := make([]AggregatedLogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	c.entries = make(map[string]*AggregatedLogEntry)
	return out
}

func (c *LogCollector) publish(batch []AggregatedLogEntry) {
	if c.config.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.config.Publisher.PublishMessage(ctx, c.config.Topic, batch); err != nil {
		fmt.Fprintf(os.Stderr, "log collector: publish %d entries: %v\n", len(batch), err)
	}
}

func (c *LogCollector) Close() {
	close(c.stop)
	c.wg.Wait()
}
