package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIProvider talks to a JSON mail API: POST {endpoint} with a bearer key.
type APIProvider struct {
	name     string
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewAPIProvider(name, endpoint, apiKey string, client *http.Client) *APIProvider {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	return &APIProvider{name: name, endpoint: endpoint, apiKey: apiKey, client: client}
}

func (p *APIProvider) Name() string { return p.name }

type apiResponse struct {
	OK        bool   `json:"ok"`
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

func (p *APIProvider) Send(ctx context.Context, email Email) (Result, error) {
	payload, err := json.Marshal(email)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%s: request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("%s: failed to read response: %w", p.name, err)
	}

	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Result{}, fmt.Errorf("%s: unexpected response (HTTP %d): %s", p.name, resp.StatusCode, bytes.TrimSpace(body))
	}

	if resp.StatusCode >= http.StatusBadRequest || !out.OK {
		return Result{}, fmt.Errorf("%s: send failed (HTTP %d): %s", p.name, resp.StatusCode, out.Error)
	}

	return Result{Provider: p.name, MessageID: out.MessageID}, nil
}
