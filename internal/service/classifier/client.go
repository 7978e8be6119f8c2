// Package classifier labels post text through an LLM messages endpoint.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"SignalPull/internal/domain/models"
	dservice "SignalPull/internal/domain/service"
	smetrics "SignalPull/internal/service/metrics"
	xhttp "SignalPull/pkg/http"
)

const (
	defaultBaseURL    = "https://api.anthropic.com"
	defaultModel      = "claude-3-5-haiku-latest"
	defaultAPIVersion = "2023-06-01"
	defaultMaxTokens  = 256
)

// ClassifyPrompt constrains the model to the three labels and the JSON shape.
const ClassifyPrompt = `You classify a single social media post about Bitcoin (BTC).
Answer with JSON only:
{"sentiment": "LONG" | "SHORT" | "NEUTRAL", "confidence": 0-100, "summary": "short summary", "target_price": number or null}
Posts without a direct BTC price call, general crypto market talk, or plain news are NEUTRAL.`

// VerifyPrompt asks the model to re-check an existing label.
const VerifyPrompt = `You re-check a previous sentiment label of a Bitcoin (BTC) post.
Answer with JSON only:
{"verification": "CORRECT" | "INCORRECT", "correct_sentiment": "LONG" | "SHORT" | "NEUTRAL", "confidence": 0-100, "reason": "short reason"}`

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") } }

// WithModel sets the model name.
func WithModel(m string) Option { return func(c *Client) { c.model = m } }

// WithMaxTokens sets the completion budget.
func WithMaxTokens(n int) Option { return func(c *Client) { c.maxTokens = n } }

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithRetries sets how many attempts a call gets on transport errors, 429 and 5xx.
func WithRetries(n int) Option { return func(c *Client) { c.attempts = n } }

// Client implements service.Classifier.
type Client struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	timeout   time.Duration
	attempts  int
	http      *xhttp.Client
}

var _ dservice.Classifier = (*Client)(nil)

// New creates a classifier client. The API key is required.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("classifier: api key is required")
	}
	c := &Client{
		apiKey:    apiKey,
		baseURL:   defaultBaseURL,
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
		timeout:   30 * time.Second,
		attempts:  2,
	}
	for _, opt := range opts {
		opt(c)
	}
	retries := uint64(0)
	if c.attempts > 1 {
		retries = uint64(c.attempts - 1)
	}
	c.http = xhttp.NewClient(xhttp.WithTimeout(c.timeout), xhttp.WithRetry(retries, 500*time.Millisecond))
	smetrics.Register()
	return c, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Classify returns the label for text. Parse failures are returned as errors so the
// caller can skip the item.
func (c *Client) Classify(ctx context.Context, text string) (*models.Classification, error) {
	out, err := c.complete(ctx, "classify", ClassifyPrompt, text)
	if err != nil {
		return nil, err
	}
	res, err := RepairAndParse(out)
	if err != nil {
		smetrics.ClassifierErrors.WithLabelValues("classify", "parse").Inc()
		return nil, err
	}
	return res, nil
}

// Verify re-checks text against the prior label.
func (c *Client) Verify(ctx context.Context, text string, prior models.Sentiment) (*models.Verification, error) {
	user := fmt.Sprintf("Previous label: %s\n\nPost:\n%s", prior, text)
	out, err := c.complete(ctx, "verify", VerifyPrompt, user)
	if err != nil {
		return nil, err
	}
	res, err := ParseVerification(out)
	if err != nil {
		smetrics.ClassifierErrors.WithLabelValues("verify", "parse").Inc()
		return nil, err
	}
	return res, nil
}

func (c *Client) complete(ctx context.Context, op, system, user string) (string, error) {
	start := time.Now()
	defer func() {
		smetrics.ClassifierLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	req := messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: user}},
	}
	var resp messagesResponse
	if err := c.post(ctx, "/v1/messages", req, &resp); err != nil {
		smetrics.ClassifierErrors.WithLabelValues(op, "http").Inc()
		return "", err
	}
	for _, part := range resp.Content {
		if part.Type == "text" {
			return part.Text, nil
		}
	}
	smetrics.ClassifierErrors.WithLabelValues(op, "empty").Inc()
	return "", errors.New("classifier: response has no text content")
}

func (c *Client) post(ctx context.Context, path string, payload, dest interface{}) error {
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + path,
		Headers: map[string]string{
			"Content-Type":      "application/json",
			"x-api-key":         c.apiKey,
			"anthropic-version": defaultAPIVersion,
		},
		Body: payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}
