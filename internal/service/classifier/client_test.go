package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"SignalPull/internal/domain/models"
)

func fakeModel(t *testing.T, reply string, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "secret" {
			t.Errorf("api key header missing")
		}
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{{"type": "text", "text": reply}},
		})
	}))
}

func TestClassifyParsesWrappedReply(t *testing.T) {
	var calls int32
	srv := fakeModel(t, "Result:\n```json\n{\"sentiment\":\"SHORT\",\"confidence\":72,\"summary\":\"top\"}\n```", &calls)
	defer srv.Close()

	c, err := New("secret", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := c.Classify(context.Background(), "I'm shorting here")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Sentiment != models.SentimentShort || res.Confidence != 72 {
		t.Fatalf("unexpected result %+v", res)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single call")
	}
}

func TestClassifyRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{{"type": "text", "text": `{"sentiment":"NEUTRAL","confidence":90,"summary":"news"}`}},
		})
	}))
	defer srv.Close()

	c, _ := New("secret", WithBaseURL(srv.URL), WithRetries(2))
	res, err := c.Classify(context.Background(), "ETF news")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Sentiment != models.SentimentNeutral {
		t.Fatalf("unexpected sentiment %s", res.Sentiment)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
