package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Options configures a Client.
type Options struct {
	BaseURL      string
	APIToken     string
	HTTPClient   *http.Client
	PollInterval time.Duration
}

// Client invokes Replicate-hosted models through the predictions API. Run
// blocks until the prediction reaches a terminal state or ctx ends, the same
// contract the hosted SDKs offer.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	pollInterval time.Duration
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.replicate.com/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Client{
		httpClient:   client,
		baseURL:      base,
		token:        strings.TrimSpace(opts.APIToken),
		pollInterval: interval,
	}
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
	Detail string          `json:"detail"`
}

func (p *prediction) terminal() bool {
	switch p.Status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// Run creates a prediction for model (an "owner/name" identifier) with the
// given input and returns its raw output once it succeeds. The create call
// asks the API to hold the connection open; if the prediction is still
// running when that returns, Run polls until it terminates.
func (c *Client) Run(ctx context.Context, model string, input any) (json.RawMessage, error) {
	if c == nil {
		return nil, errors.New("replicate client not configured")
	}
	if c.token == "" {
		return nil, errors.New("replicate: API token is missing")
	}
	if !strings.Contains(model, "/") {
		return nil, fmt.Errorf("replicate: invalid model identifier %q", model)
	}

	body, err := json.Marshal(map[string]any{"input": input})
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/models/%s/predictions", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Prefer", "wait=60")

	pred, err := c.do(req)
	if err != nil {
		return nil, err
	}

	for !pred.terminal() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
		pred, err = c.get(ctx, pred.ID)
		if err != nil {
			return nil, err
		}
	}

	if pred.Status != "succeeded" {
		if pred.Error != "" {
			return nil, fmt.Errorf("replicate: prediction %s: %s", pred.Status, pred.Error)
		}
		return nil, fmt.Errorf("replicate: prediction %s", pred.Status)
	}
	if len(bytes.TrimSpace(pred.Output)) == 0 {
		return nil, errors.New("replicate: prediction succeeded without output")
	}
	return pred.Output, nil
}

func (c *Client) get(ctx context.Context, id string) (*prediction, error) {
	endpoint := fmt.Sprintf("%s/predictions/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*prediction, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var pred prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("replicate: http %d", resp.StatusCode)
		}
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if pred.Detail != "" {
			return nil, fmt.Errorf("replicate: %s", pred.Detail)
		}
		return nil, fmt.Errorf("replicate: http %d", resp.StatusCode)
	}
	return &pred, nil
}
