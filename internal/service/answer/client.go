package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/genie-widget/internal/config"
)

// ErrRequestFailed is the single failure kind callers see. Transport errors,
// non-2xx statuses and malformed bodies all wrap it; use errors.Is to match.
var ErrRequestFailed = errors.New("answer request failed")

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// Asker relays a question to the Answer Service.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// AskerFunc adapts a plain function to Asker.
type AskerFunc func(ctx context.Context, question string) (string, error)

// Ask calls f.
func (f AskerFunc) Ask(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	Answer *string `json:"answer"`
}

// Client talks to the Answer Service over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

var _ Asker = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// NewClient creates a client for the configured endpoint.
func NewClient(cfg config.AnswerConfig, opts ...Option) *Client {
	c := &Client{
		endpoint:   cfg.Endpoint(),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL questions are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Ask posts the question and returns the answer field of the response.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	payload, err := json.Marshal(chatRequest{Question: question})
	if err != nil {
		return "", failure(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", failure(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", failure(err, "post question")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", failure(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", failure(errors.Errorf("unexpected status %d", resp.StatusCode), "post question")
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", failure(err, "decode response")
	}
	if decoded.Answer == nil {
		return "", failure(errors.New("missing answer field"), "decode response")
	}

	log.Debug().
		Str("endpoint", c.endpoint).
		Int("status", resp.StatusCode).
		Int("answer_len", len(*decoded.Answer)).
		Msg("answer received")
	return *decoded.Answer, nil
}

func failure(err error, stage string) error {
	return errors.Wrapf(ErrRequestFailed, "%s: %v", stage, err)
}
