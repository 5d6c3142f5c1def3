package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a minimal Bot API HTTP client covering the methods the bot uses.
type Client struct {
	botToken   string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client. baseURL defaults to the public Bot API host.
func NewClient(botToken, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Client{
		botToken:   botToken,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type sendMessageRequest struct {
	ChatID      int64       `json:"chat_id"`
	Text        string      `json:"text"`
	ParseMode   string      `json:"parse_mode,omitempty"`
	ReplyMarkup interface{} `json:"reply_markup,omitempty"`
}

type setWebhookRequest struct {
	URL string `json:"url"`
}

// SendText delivers a plain text message.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	return c.call(ctx, "sendMessage", sendMessageRequest{ChatID: chatID, Text: text})
}

// SendMessage delivers a text message with an optional inline keyboard.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard Keyboard) error {
	req := sendMessageRequest{ChatID: chatID, Text: text}
	if len(keyboard) > 0 {
		req.ReplyMarkup = inlineKeyboardMarkup{InlineKeyboard: keyboard}
	}
	return c.call(ctx, "sendMessage", req)
}

// RegisterWebhook points the bot at the given public webhook URL.
func (c *Client) RegisterWebhook(ctx context.Context, webhookURL string) error {
	return c.call(ctx, "setWebhook", setWebhookRequest{URL: webhookURL})
}

func (c *Client) call(ctx context.Context, method string, payload interface{}) error {
	if c.botToken == "" {
		return fmt.Errorf("telegram bot token not configured")
	}
	apiURL := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.botToken, method)

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	// The Bot API answers 200 even on errors; the body carries the verdict.
	var apiResp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description,omitempty"`
		ErrorCode   int    `json:"error_code,omitempty"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram %s failed: code %d, %s", method, apiResp.ErrorCode, apiResp.Description)
	}
	return nil
}
