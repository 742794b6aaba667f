package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/ochairo/piko/internal/domain/interfaces"
	"github.com/ochairo/piko/internal/domain/interfaces/gateways"
)

const telegramAPI = "https://api.telegram.org"

// DefaultAnnouncementTemplate is used when the recipe sets no template
const DefaultAnnouncementTemplate = `[New Update Released !]({{ .ReleaseURL }})

▼ Patches
Source : [{{ .PatchesSource }}](https://github.com/{{ .PatchesSource }})
Version : {{ .PatchesTag }}

▼ Integrations
Source : [{{ .IntegrationsSource }}](https://github.com/{{ .IntegrationsSource }})
Version : {{ .IntegrationsTag }}

▼ {{ .AppName }} {{ .AppVersion }}`

// TelegramNotifier posts announcements through the Telegram Bot API
type TelegramNotifier struct {
	client   *http.Client
	baseURL  string
	token    string
	chatID   string
	threadID string
	text     *template.Template
	logger   interfaces.Logger
}

// TelegramOption configures a TelegramNotifier
type TelegramOption func(*TelegramNotifier)

// WithTelegramBaseURL overrides the Bot API base URL
func WithTelegramBaseURL(base string) TelegramOption {
	return func(n *TelegramNotifier) {
		n.baseURL = strings.TrimRight(base, "/")
	}
}

// WithTelegramClient sets the HTTP client
func WithTelegramClient(c *http.Client) TelegramOption {
	return func(n *TelegramNotifier) {
		n.client = c
	}
}

// WithTelegramThread posts into a forum topic
func WithTelegramThread(threadID string) TelegramOption {
	return func(n *TelegramNotifier) {
		n.threadID = threadID
	}
}

// WithTelegramLogger sets the logger
func WithTelegramLogger(l interfaces.Logger) TelegramOption {
	return func(n *TelegramNotifier) {
		n.logger = interfaces.OrNoOp(l)
	}
}

// NewTelegramNotifier creates a notifier. An empty tmpl selects DefaultAnnouncementTemplate.
func NewTelegramNotifier(token, chatID, tmpl string, opts ...TelegramOption) (*TelegramNotifier, error) {
	if token == "" || chatID == "" {
		return nil, fmt.Errorf("telegram token and chat id are required")
	}
	if strings.TrimSpace(tmpl) == "" {
		tmpl = DefaultAnnouncementTemplate
	}

	text, err := template.New("announcement").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("invalid announcement template: %w", err)
	}

	n := &TelegramNotifier{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: telegramAPI,
		token:   token,
		chatID:  chatID,
		text:    text,
		logger:  &interfaces.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	MessageThreadID       string `json:"message_thread_id,omitempty"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Render returns the announcement text
func (n *TelegramNotifier) Render(a gateways.Announcement) (string, error) {
	var b strings.Builder
	if err := n.text.Execute(&b, a); err != nil {
		return "", fmt.Errorf("failed to render announcement: %w", err)
	}
	return b.String(), nil
}

// Announce sends the rendered announcement to the configured chat
func (n *TelegramNotifier) Announce(ctx context.Context, a gateways.Announcement) error {
	text, err := n.Render(a)
	if err != nil {
		return err
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:                n.chatID,
		MessageThreadID:       n.threadID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	reqURL := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		// The URL carries the bot token
		return fmt.Errorf("telegram request failed")
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	var result sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("telegram HTTP %d: failed to decode response: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !result.OK {
		return fmt.Errorf("telegram HTTP %d: %s", resp.StatusCode, result.Description)
	}

	n.logger.Info("Sent announcement", interfaces.F("chat", n.chatID))
	return nil
}
