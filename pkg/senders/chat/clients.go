package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// BotError is an error reported by the bot API.
type BotError struct {
	Code        int
	Description string
}

func (e *BotError) Error() string {
	return fmt.Sprintf("bot api error %d: %s", e.Code, e.Description)
}

// TelegramBot is a BotClient for the Telegram Bot API.
type TelegramBot struct {
	baseURL string
	client  *http.Client
}

func NewTelegramBot(baseURL string, client *http.Client) *TelegramBot {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	return &TelegramBot{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

func (b *TelegramBot) SendMessage(ctx context.Context, token, chatID, text string) (string, error) {
	var out telegramResponse

	status, err := postJSON(ctx, b.client, b.baseURL+"/bot"+token+"/sendMessage", map[string]string{
		"chat_id": chatID,
		"text":    text,
	}, &out)
	if err != nil {
		return "", &BotError{Code: status, Description: err.Error()}
	}

	if !out.OK {
		code := out.ErrorCode
		if code == 0 {
			code = status
		}

		return "", &BotError{Code: code, Description: out.Description}
	}

	return strconv.FormatInt(out.Result.MessageID, 10), nil
}

// PersonalService is a PersonalClient for the companion messaging microservice.
type PersonalService struct {
	baseURL string
	client  *http.Client
}

func NewPersonalService(baseURL string, client *http.Client) *PersonalService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &PersonalService{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

type personalResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Data  struct {
		MessageID string `json:"message_id"`
	} `json:"data"`
}

func (p *PersonalService) SendMessage(ctx context.Context, accountID, recipient, text string) (string, error) {
	var out personalResponse

	status, err := postJSON(ctx, p.client, p.baseURL+"/send_message", map[string]string{
		"account_id": accountID,
		"recipient":  recipient,
		"text":       text,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("personal service (HTTP %d): %w", status, err)
	}

	if !out.OK {
		return "", fmt.Errorf("personal service: %s", out.Error)
	}

	return out.Data.MessageID, nil
}

// postJSON decodes the body even on HTTP errors since both APIs describe failures in JSON.
func postJSON(ctx context.Context, client *http.Client, endpoint string, payload, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, fmt.Errorf("unexpected response (HTTP %d): %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	return resp.StatusCode, nil
}
