// Package line talks to the chat platform's messaging API: push messages and
// profile lookups, both bearer-token authenticated.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hookline/hookline/internal/pkg/env"
)

const defaultAPIBaseURL = "https://api.line.me"

type Client struct {
	ChannelAccessToken string
	APIBaseURL         string

	HTTPClient *http.Client
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type profileResponse struct {
	DisplayName string `json:"displayName"`
	UserID      string `json:"userId"`
	PictureURL  string `json:"pictureUrl"`
}

func NewClientFromEnv() *Client {
	return &Client{
		ChannelAccessToken: strings.TrimSpace(env.GetEnv("LINE_CHANNEL_ACCESS_TOKEN", "")),
		APIBaseURL:         strings.TrimRight(env.GetEnv("LINE_API_BASE_URL", defaultAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// PushText sends one text message to the given user id.
func (c *Client) PushText(ctx context.Context, to, text string) error {
	if strings.TrimSpace(c.ChannelAccessToken) == "" {
		return errors.New("LINE_CHANNEL_ACCESS_TOKEN is not configured")
	}
	if strings.TrimSpace(to) == "" {
		return errors.New("push target is required")
	}

	payload, err := json.Marshal(pushRequest{
		To:       to,
		Messages: []textMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/v2/bot/message/push", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.ChannelAccessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push message failed: status=%d body=%s", resp.StatusCode, string(body))
	}
	return nil
}

// GetDisplayName fetches the display name for a user id from the profile API.
func (c *Client) GetDisplayName(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(c.ChannelAccessToken) == "" {
		return "", errors.New("LINE_CHANNEL_ACCESS_TOKEN is not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBaseURL+"/v2/bot/profile/"+url.PathEscape(userID), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.ChannelAccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("profile lookup failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out profileResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.DisplayName) == "" {
		return "", errors.New("profile response missing display name")
	}
	return out.DisplayName, nil
}
