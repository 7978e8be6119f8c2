package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSendAndParseJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "BTCUSDT" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		b, _ := io.ReadAll(r.Body)
		if string(b) != `{"n":1}` {
			t.Errorf("body = %s", b)
		}
		_, _ = w.Write([]byte(`{"price":"64000.5"}`))
	}))
	defer srv.Close()

	var out struct {
		Price string `json:"price"`
	}
	err := NewClient().SendAndParse(context.Background(), &RequestOptions{
		Method:      MethodPost,
		URL:         srv.URL,
		QueryParams: map[string][]string{"symbol": {"BTCUSDT"}},
		Body:        map[string]int{"n": 1},
	}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if out.Price != "64000.5" {
		t.Fatalf("price = %q", out.Price)
	}
}

func TestSendAndParseStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewClient().SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest || se.Body != "nope" {
		t.Fatalf("err = %v", err)
	}
}

func TestSendAndParseRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(WithRetry(3, time.Millisecond))
	if err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, nil); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestSendAndParseDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(WithRetry(3, time.Millisecond))
	if err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, nil); err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
