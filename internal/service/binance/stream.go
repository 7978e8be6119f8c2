package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	dservice "SignalPull/internal/domain/service"
	"SignalPull/pkg/logger"

	"github.com/gorilla/websocket"
)

const defaultStreamURL = "wss://stream.binance.com:9443/ws"

// Stream is a LiveFeed over the public kline and 24h ticker streams.
type Stream struct {
	baseURL      string
	symbol       string
	pingInterval time.Duration
	dialer       *websocket.Dialer
	lgr          *logger.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	lastOpen int64
}

var _ dservice.LiveFeed = (*Stream)(nil)

// NewStream creates an unconnected stream. symbol is lower-cased for the stream path.
func NewStream(lgr *logger.Logger, baseURL, symbol string, pingInterval time.Duration) *Stream {
	if baseURL == "" {
		baseURL = defaultStreamURL
	}
	if symbol == "" {
		symbol = defaultSymbol
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Stream{
		baseURL:      strings.TrimRight(baseURL, "/"),
		symbol:       strings.ToLower(symbol),
		pingInterval: pingInterval,
		dialer:       &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		lgr:          lgr,
	}
}

// StreamURL builds <base>/<sym>@kline_<tf>/<sym>@ticker.
func StreamURL(base, symbol string, tf drepo.Timeframe) string {
	s := strings.ToLower(symbol)
	return fmt.Sprintf("%s/%s@kline_%s/%s@ticker", strings.TrimRight(base, "/"), s, tf, s)
}

// Connect dials the stream for tf.
func (s *Stream) Connect(ctx context.Context, tf drepo.Timeframe) error {
	u := StreamURL(s.baseURL, s.symbol, tf)
	conn, _, err := s.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("binance stream connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.lastOpen = 0
	s.mu.Unlock()
	s.lgr.Info("binance stream connected", logger.String("timeframe", string(tf)))
	return nil
}

// Read streams parsed events until the connection fails or ctx ends.
// The error channel receives at most one error and is closed with the event channel.
func (s *Stream) Read(ctx context.Context) (<-chan models.FeedEvent, <-chan error) {
	events := make(chan models.FeedEvent, 256)
	errs := make(chan error, 1)

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		errs <- fmt.Errorf("binance stream not connected")
		close(events)
		close(errs)
		return events, errs
	}

	readCtx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-readCtx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				s.mu.Unlock()
			}
		}
	}()

	// unblock ReadMessage on cancellation
	go func() {
		<-readCtx.Done()
		_ = conn.Close()
	}()

	go func() {
		defer cancel()
		defer close(events)
		defer close(errs)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					errs <- fmt.Errorf("binance stream read: %w", err)
				}
				return
			}
			ev, ok := s.parse(b)
			if !ok {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, errs
}

func (s *Stream) parse(b []byte) (models.FeedEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, last, ok := ParseFrame(b, s.lastOpen)
	if ok {
		s.lastOpen = last
	}
	return ev, ok
}

// Close closes the connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

type wsKline struct {
	T int64  `json:"t"` // ms
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

type wsFrame struct {
	E string   `json:"e"`
	K *wsKline `json:"k"`
	C string   `json:"c"`
	P string   `json:"P"`
	Q string   `json:"q"`
}

// ParseFrame decodes one raw frame. lastOpen is the open time (seconds) of the most
// recent candle seen; a kline with a later open is flagged IsNewCandle.
// Unknown or malformed frames return ok=false.
func ParseFrame(b []byte, lastOpen int64) (models.FeedEvent, int64, bool) {
	var f wsFrame
	if err := json.Unmarshal(b, &f); err != nil {
		return models.FeedEvent{}, lastOpen, false
	}
	switch f.E {
	case "kline":
		if f.K == nil {
			return models.FeedEvent{}, lastOpen, false
		}
		vals, ok := parseFloats(f.K.O, f.K.H, f.K.L, f.K.C)
		if !ok {
			return models.FeedEvent{}, lastOpen, false
		}
		open := f.K.T / 1000
		upd := &models.CandleUpdate{
			Candle:      models.Candle{Time: open, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]},
			IsNewCandle: open > lastOpen,
		}
		if open > lastOpen {
			lastOpen = open
		}
		return models.FeedEvent{Candle: upd}, lastOpen, true
	case "24hrTicker":
		vals, ok := parseFloats(f.C, f.P, f.Q)
		if !ok {
			return models.FeedEvent{}, lastOpen, false
		}
		return models.FeedEvent{Ticker: &models.Ticker{Price: vals[0], ChangePercent: vals[1], Volume: vals[2] / 1e9}}, lastOpen, true
	}
	return models.FeedEvent{}, lastOpen, false
}

func parseFloats(ss ...string) ([]float64, bool) {
	out := make([]float64, len(ss))
	for i, s := range ss {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
