package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go-casting-scout/internal/digest"
)

// DiscordLimit keeps webhook messages under Discord's 2000 character cap.
const DiscordLimit = 1900

// Discord posts the Markdown digest to a channel webhook.
type Discord struct {
	webhookURL string
	client     *http.Client
}

func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (dw *Discord) Name() string { return "discord" }

func (dw *Discord) Send(ctx context.Context, d digest.Digest) error {
	body := "**" + d.Subject + "**\n\n" + d.Markdown
	for _, part := range chunk(strings.Split(body, "\n\n"), "\n\n", DiscordLimit) {
		if err := dw.post(ctx, part); err != nil {
			return err
		}
	}
	return nil
}

type discordPayload struct {
	Content string `json:"content"`
}

func (dw *Discord) post(ctx context.Context, text string) error {
	payload, err := json.Marshal(discordPayload{Content: text})
	if err != nil {
		return fmt.Errorf("discord: marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dw.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("discord: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := dw.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var result struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("discord: API error %d: %s", resp.StatusCode, result.Message)
	}
	return nil
}
