package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dukex/automation/pkg/models"
)

type smsRu struct {
	client  *http.Client
	baseURL string
	cfg     *models.SMSRuConfig
}

func newSMSRu(client *http.Client, baseURL string, cfg *models.SMSRuConfig) *smsRu {
	return &smsRu{client: client, baseURL: baseURL, cfg: cfg}
}

func (p *smsRu) Name() string { return ProviderSMSRu }

type smsRuResponse struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	StatusText string `json:"status_text"`
	SMS        map[string]struct {
		Status     string `json:"status"`
		StatusCode int    `json:"status_code"`
		StatusText string `json:"status_text"`
		SMSID      string `json:"sms_id"`
	} `json:"sms"`
}

func (p *smsRu) Send(ctx context.Context, to, text string) (Result, error) {
	params := url.Values{}
	params.Set("api_id", p.cfg.APIKey)
	params.Set("to", to)
	params.Set("msg", text)
	params.Set("json", "1")

	if p.cfg.Sender != "" {
		params.Set("from", p.cfg.Sender)
	}

	var out smsRuResponse

	status, err := postForm(ctx, p.client, p.baseURL+"/sms/send", params, &out)
	if err != nil {
		return Result{}, &ProviderError{Provider: ProviderSMSRu, HTTPStatus: status, Message: err.Error()}
	}

	if out.Status != "OK" {
		return Result{}, &ProviderError{Provider: ProviderSMSRu, HTTPStatus: status, Code: out.StatusCode, Message: out.StatusText}
	}

	for _, item := range out.SMS {
		if item.Status != "OK" {
			return Result{}, &ProviderError{Provider: ProviderSMSRu, HTTPStatus: status, Code: item.StatusCode, Message: item.StatusText}
		}

		return Result{Provider: ProviderSMSRu, MessageID: item.SMSID}, nil
	}

	return Result{Provider: ProviderSMSRu}, nil
}

type smsc struct {
	client  *http.Client
	baseURL string
	cfg     *models.SMSCConfig
}

func newSMSC(client *http.Client, baseURL string, cfg *models.SMSCConfig) *smsc {
	return &smsc{client: client, baseURL: baseURL, cfg: cfg}
}

func (p *smsc) Name() string { return ProviderSMSC }

type smscResponse struct {
	ID        json.Number `json:"id"`
	Count     int         `json:"cnt"`
	Error     string      `json:"error"`
	ErrorCode int         `json:"error_code"`
}

func (p *smsc) Send(ctx context.Context, to, text string) (Result, error) {
	params := url.Values{}
	params.Set("login", p.cfg.Login)
	params.Set("psw", p.cfg.Password)
	params.Set("phones", to)
	params.Set("mes", text)
	params.Set("fmt", "3")
	params.Set("charset", "utf-8")

	if p.cfg.Sender != "" {
		params.Set("sender", p.cfg.Sender)
	}

	var out smscResponse

	status, err := postForm(ctx, p.client, p.baseURL+"/sys/send.php", params, &out)
	if err != nil {
		return Result{}, &ProviderError{Provider: ProviderSMSC, HTTPStatus: status, Message: err.Error()}
	}

	if out.Error != "" {
		return Result{}, &ProviderError{Provider: ProviderSMSC, HTTPStatus: status, Code: out.ErrorCode, Message: out.Error}
	}

	return Result{Provider: ProviderSMSC, MessageID: out.ID.String()}, nil
}

func postForm(ctx context.Context, client *http.Client, endpoint string, params url.Values, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.URL.RawQuery = params.Encode()

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}

	return resp.StatusCode, nil
}
