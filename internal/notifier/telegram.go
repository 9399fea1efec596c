package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// placeholderToken is the sample token shipped in config templates; a
// notifier configured with it is treated as disabled.
const placeholderToken = "123456789:ABCdefGHIjklMNOpqrsTUVwxyz-1234567890"

// TelegramNotifier sends messages and photos via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	Enabled  bool
	Client   *http.Client
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string, enabled bool) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		Enabled:  enabled,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

// Configured reports whether the notifier can actually deliver.
func (t *TelegramNotifier) Configured() bool {
	return t.Enabled && t.BotToken != "" && t.BotToken != placeholderToken && t.ChatID != ""
}

// Send sends an HTML-formatted message to the configured chat.
func (t *TelegramNotifier) Send(text string) error {
	if !t.Configured() {
		return fmt.Errorf("telegram not configured")
	}
	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.BotToken)
	payload := map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	resp, err := t.Client.Post(apiURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	return checkTelegramResponse(resp)
}

// SendPhoto uploads PNG bytes with an HTML caption via sendPhoto.
func (t *TelegramNotifier) SendPhoto(photo []byte, caption, filename string) error {
	if !t.Configured() {
		return fmt.Errorf("telegram not configured")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("photo", filename)
	if err != nil {
		return fmt.Errorf("create photo part: %w", err)
	}
	if _, err := part.Write(photo); err != nil {
		return fmt.Errorf("write photo part: %w", err)
	}
	for field, value := range map[string]string{
		"chat_id":    t.ChatID,
		"caption":    caption,
		"parse_mode": "HTML",
	} {
		if err := w.WriteField(field, value); err != nil {
			return fmt.Errorf("write field %s: %w", field, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendPhoto", t.BotToken)
	resp, err := t.Client.Post(apiURL, w.FormDataContentType(), &body)
	if err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	defer resp.Body.Close()
	return checkTelegramResponse(resp)
}

func checkTelegramResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(body))
	}
	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decode telegram response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("telegram API error: %s", result.Description)
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := t.Send(text); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Printf("[WARN] Telegram send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
