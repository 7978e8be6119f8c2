// Package apify fetches posts through the Apify tweet-scraper actor.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	dservice "SignalPull/internal/domain/service"
	xhttp "SignalPull/pkg/http"
)

const (
	defaultBaseURL = "https://api.apify.com"
	defaultActor   = "apidojo~tweet-scraper"
)

// Cookie is a session cookie forwarded to the scraper.
type Cookie struct {
	Name   string `json:"name" yaml:"name"`
	Value  string `json:"value" yaml:"value"`
	Domain string `json:"domain" yaml:"domain"`
	Path   string `json:"path" yaml:"path"`
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") } }

// WithActor selects the scraper actor id.
func WithActor(actor string) Option { return func(c *Client) { c.actor = actor } }

// WithCookies forwards session cookies to the scraper.
func WithCookies(cs []Cookie) Option { return func(c *Client) { c.cookies = cs } }

// WithLanguage restricts results to one language.
func WithLanguage(lang string) Option { return func(c *Client) { c.language = lang } }

// WithTimeout sets the synchronous run timeout.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// Client implements service.PostSource.
type Client struct {
	token    string
	baseURL  string
	actor    string
	language string
	cookies  []Cookie
	timeout  time.Duration
	http     *xhttp.Client
}

var _ dservice.PostSource = (*Client)(nil)

// New creates an Apify client. The token is injected, never embedded.
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("apify: token is required")
	}
	c := &Client{
		token:    token,
		baseURL:  defaultBaseURL,
		actor:    defaultActor,
		language: "en",
		timeout:  5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = xhttp.NewClient(xhttp.WithTimeout(c.timeout))
	return c, nil
}

type runInput struct {
	SearchTerms   []string `json:"searchTerms"`
	MaxItems      int      `json:"maxItems"`
	Sort          string   `json:"sort,omitempty"`
	TweetLanguage string   `json:"tweetLanguage,omitempty"`
	Cookies       []Cookie `json:"cookies,omitempty"`
}

// Fetch runs the actor synchronously and returns its dataset items.
func (c *Client) Fetch(ctx context.Context, q dservice.FetchQuery) ([]map[string]interface{}, error) {
	if len(q.SearchTerms) == 0 {
		return nil, nil
	}
	in := runInput{
		SearchTerms:   q.SearchTerms,
		MaxItems:      q.MaxItems,
		Sort:          q.Sort,
		TweetLanguage: c.language,
		Cookies:       c.cookies,
	}
	endpoint := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items", c.baseURL, url.PathEscape(c.actor))

	var raw []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodPost,
		URL:         endpoint,
		QueryParams: map[string][]string{"token": {c.token}},
		Body:        in,
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("apify run: %w", err)
	}
	return decodeItems(raw)
}

// decodeItems keeps numbers as json.Number so 64-bit post ids survive.
func decodeItems(raw []byte) ([]map[string]interface{}, error) {
	var items []map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("apify decode items: %w", err)
	}
	return items, nil
}
