package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	"SignalPull/internal/service/ratelimit"
	"SignalPull/internal/usecase"
	"SignalPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

type fakeRunner struct {
	mu     sync.Mutex
	calls  []models.RunParams
	result *models.RunSummary
	err    error
}

func (f *fakeRunner) Run(_ context.Context, p models.RunParams) (*models.RunSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	return f.result, f.err
}

type fakeSignals struct {
	list []models.SignalView
	byID map[string]*models.Signal
}

func (f *fakeSignals) List(_ context.Context, from, to time.Time, limit int) ([]models.SignalView, error) {
	out := []models.SignalView{}
	for _, s := range f.list {
		if s.SignalTimestamp < from.Unix() || s.SignalTimestamp > to.Unix() {
			continue
		}
		out = append(out, s)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSignals) Get(_ context.Context, id string) (*models.Signal, error) {
	if s, ok := f.byID[id]; ok {
		return s, nil
	}
	return nil, drepo.ErrNotFound
}

type fakeQueue struct {
	types    []string
	payloads []interface{}
}

func (q *fakeQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.types = append(q.types, msgType)
	q.payloads = append(q.payloads, payload)
	return nil
}

type fakeRepricer struct{ sum models.RepriceSummary }

func (f *fakeRepricer) Run(context.Context) (*models.RepriceSummary, error) { return &f.sum, nil }

type fakePerf struct{ modes []string }

func (f *fakePerf) List(_ context.Context, _, _ time.Time, _ int, mode string) ([]models.SignalPerformance, error) {
	f.modes = append(f.modes, mode)
	return []models.SignalPerformance{{SignalID: "s1", Sentiment: models.SentimentLong, EntryPrice: 100, CurrentPrice: 110, ProfitPercent: 10}}, nil
}

type fakeStats struct{ from, to time.Time }

func (f *fakeStats) DailyStats(_ context.Context, from, to time.Time) ([]models.SentimentStat, error) {
	f.from, f.to = from, to
	return []models.SentimentStat{{Day: "2024-03-01", Sentiment: "LONG", Count: 2, AvgConfidence: 80}}, nil
}

func newEcho(handlers ...interface{ RegisterRoutes(*echo.Echo) }) *echo.Echo {
	e := echo.New()
	for _, h := range handlers {
		h.RegisterRoutes(e)
	}
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var env struct {
		Status int             `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	if env.Status != rec.Code {
		t.Fatalf("envelope status %d, http %d", env.Status, rec.Code)
	}
	if dst != nil {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func TestCollectAppliesDefaults(t *testing.T) {
	r := &fakeRunner{result: &models.RunSummary{Processed: 4, Saved: 2}}
	e := newEcho(NewCollectHandler(logger.Nop(), r, nil))

	rec := do(e, http.MethodPost, "/api/collect", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var sum models.RunSummary
	decodeData(t, rec, &sum)
	if sum.Saved != 2 {
		t.Fatalf("saved = %d", sum.Saved)
	}
	if len(r.calls) != 1 {
		t.Fatalf("runner calls = %d", len(r.calls))
	}
	if got := r.calls[0]; got.LimitPerAuthor != 3 || got.AuthorGroup != "core" || got.IsBackfill() {
		t.Fatalf("params = %+v", got)
	}
}

func TestCollectPassesBackfillRange(t *testing.T) {
	r := &fakeRunner{result: &models.RunSummary{}}
	e := newEcho(NewCollectHandler(logger.Nop(), r, nil))

	rec := do(e, http.MethodPost, "/api/collect", `{"since":"2024-03-01","until":"2024-03-05","limitPerAuthor":5,"authorGroup":"movers"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := r.calls[0]
	if got.Since != "2024-03-01" || got.Until != "2024-03-05" || got.LimitPerAuthor != 5 || got.AuthorGroup != "movers" {
		t.Fatalf("params = %+v", got)
	}
}

func TestCollectRejectsBadInput(t *testing.T) {
	r := &fakeRunner{result: &models.RunSummary{}}
	e := newEcho(NewCollectHandler(logger.Nop(), r, nil))

	rec := do(e, http.MethodPost, "/api/collect", `{"authorGroup":"whales"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(r.calls) != 0 {
		t.Fatal("runner called for invalid body")
	}

	r.err = fmt.Errorf("%w: since requires until", usecase.ErrInvalidParams)
	rec = do(e, http.MethodPost, "/api/collect", `{"since":"2024-03-01"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid params status = %d", rec.Code)
	}

	r.err = fmt.Errorf("apify down")
	rec = do(e, http.MethodPost, "/api/collect", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("run failure status = %d", rec.Code)
	}
}

func TestCollectRateLimited(t *testing.T) {
	r := &fakeRunner{result: &models.RunSummary{}}
	e := newEcho(NewCollectHandler(logger.Nop(), r, ratelimit.New(1, 0)))

	if rec := do(e, http.MethodPost, "/api/collect", ""); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/api/collect", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", rec.Code)
	}
	if len(r.calls) != 1 {
		t.Fatalf("runner calls = %d", len(r.calls))
	}
}

func newSignalsFixture(stats StatsReader) (*echo.Echo, *fakeQueue, *fakePerf) {
	signals := &fakeSignals{
		list: []models.SignalView{
			{Signal: models.Signal{ID: "a", SignalTimestamp: 1709251200}, TwitterHandle: "alice"},
			{Signal: models.Signal{ID: "b", SignalTimestamp: 1709856000}, TwitterHandle: "bob"},
		},
		byID: map[string]*models.Signal{"a": {ID: "a"}},
	}
	q := &fakeQueue{}
	perf := &fakePerf{}
	h := NewSignalsHandler(logger.Nop(), signals, q, &fakeRepricer{sum: models.RepriceSummary{Total: 3, Updated: 2, Failed: 1}}, perf, stats)
	h.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }
	return newEcho(h), q, perf
}

func TestSignalsList(t *testing.T) {
	e, _, _ := newSignalsFixture(nil)

	rec := do(e, http.MethodGet, "/api/signals?from=2024-03-05", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var list []models.SignalView
	decodeData(t, rec, &list)
	if len(list) != 1 || list[0].ID != "b" || list[0].TwitterHandle != "bob" {
		t.Fatalf("list = %+v", list)
	}

	if rec := do(e, http.MethodGet, "/api/signals?from=2024-03-05&to=2024-03-01", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted range status = %d", rec.Code)
	}
}

func TestVerifyEnqueuesJob(t *testing.T) {
	e, q, _ := newSignalsFixture(nil)

	rec := do(e, http.MethodPost, "/api/signals/a/verify", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(q.types) != 1 || q.types[0] != usecase.ReverifyMessageType {
		t.Fatalf("queued = %v", q.types)
	}
	if p, ok := q.payloads[0].(usecase.ReverifyPayload); !ok || p.SignalID != "a" {
		t.Fatalf("payload = %#v", q.payloads[0])
	}

	if rec := do(e, http.MethodPost, "/api/signals/missing/verify", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", rec.Code)
	}
	if len(q.types) != 1 {
		t.Fatal("job queued for a missing signal")
	}
}

func TestRepriceAndPerformance(t *testing.T) {
	e, _, perf := newSignalsFixture(nil)

	rec := do(e, http.MethodPost, "/api/signals/reprice", "")
	var sum models.RepriceSummary
	decodeData(t, rec, &sum)
	if sum.Total != 3 || sum.Updated != 2 || sum.Failed != 1 {
		t.Fatalf("summary = %+v", sum)
	}

	rec = do(e, http.MethodGet, "/api/signals/performance?mode=hybrid", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(perf.modes) != 1 || perf.modes[0] != "hybrid" {
		t.Fatalf("modes = %v", perf.modes)
	}
	if rec := do(e, http.MethodGet, "/api/signals/performance?mode=daily", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad mode status = %d", rec.Code)
	}
}

func TestStatsRoute(t *testing.T) {
	e, _, _ := newSignalsFixture(nil)
	if rec := do(e, http.MethodGet, "/api/signals/stats", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("without archive status = %d", rec.Code)
	}

	stats := &fakeStats{}
	e, _, _ = newSignalsFixture(stats)
	rec := do(e, http.MethodGet, "/api/signals/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if want := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC); !stats.from.Equal(want) {
		t.Fatalf("default from = %v, want %v", stats.from, want)
	}
}

func TestReady(t *testing.T) {
	e := newEcho(NewHealthHandler(map[string]HealthCheck{
		"postgres":   func(context.Context) error { return nil },
		"clickhouse": func(context.Context) error { return fmt.Errorf("connection refused") },
	}))

	if rec := do(e, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	rec := do(e, http.MethodGet, "/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready status = %d", rec.Code)
	}
	var status map[string]string
	decodeData(t, rec, &status)
	if status["postgres"] != "ok" || status["clickhouse"] != "connection refused" {
		t.Fatalf("status = %v", status)
	}
}
