package apify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	dservice "SignalPull/internal/domain/service"
)

func TestRecentQuery(t *testing.T) {
	got := RecentQuery([]string{"saylor", "rektcapital"})
	want := "(from:saylor OR from:rektcapital) AND (Bitcoin OR BTC OR Price OR Long OR Short)"
	if got != want {
		t.Fatalf("got %q", got)
	}
}

func TestBackfillQueries(t *testing.T) {
	got := BackfillQueries([]string{"saylor"}, "2024-03-01", "2024-03-08")
	if len(got) != 1 || got[0] != "(from:saylor) (Bitcoin OR BTC) since:2024-03-01 until:2024-03-08" {
		t.Fatalf("got %v", got)
	}
}

func TestFetchSendsInputAndToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/acts/apidojo~tweet-scraper/run-sync-get-dataset-items" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("token") != "tok" {
			t.Errorf("token not forwarded")
		}
		var in runInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		if in.MaxItems != 50 || in.Sort != "Latest" || len(in.Cookies) != 1 {
			t.Errorf("unexpected input %+v", in)
		}
		_, _ = w.Write([]byte(`[{"id":"1","text":"long"},{"noResults":true}]`))
	}))
	defer srv.Close()

	c, err := New("tok", WithBaseURL(srv.URL), WithCookies([]Cookie{{Name: "auth_token", Value: "v"}}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	items, err := c.Fetch(context.Background(), dservice.FetchQuery{
		SearchTerms: []string{RecentQuery([]string{"a"})},
		MaxItems:    50,
		Sort:        "Latest",
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected raw items to be returned unfiltered, got %d", len(items))
	}
}

func TestFetchKeepsLargeIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1765432109876543211,"text":"long"}]`))
	}))
	defer srv.Close()

	c, _ := New("tok", WithBaseURL(srv.URL))
	items, err := c.Fetch(context.Background(), dservice.FetchQuery{SearchTerms: []string{"q"}, MaxItems: 1})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	id, ok := items[0]["id"].(json.Number)
	if !ok || id.String() != "1765432109876543211" {
		t.Fatalf("id = %#v", items[0]["id"])
	}
}

func TestFetchPropagatesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, _ := New("bad", WithBaseURL(srv.URL))
	if _, err := c.Fetch(context.Background(), dservice.FetchQuery{SearchTerms: []string{"q"}, MaxItems: 1}); err == nil {
		t.Fatalf("expected error")
	}
}
