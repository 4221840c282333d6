package bark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Channel pushes to a Bark server's /push endpoint, addressed by device key.
type Channel struct {
	ServerURL  string
	DeviceKey  string
	HTTPClient *http.Client
}

func New(serverURL, deviceKey string) *Channel {
	return &Channel{
		ServerURL:  serverURL,
		DeviceKey:  deviceKey,
		HTTPClient: http.DefaultClient,
	}
}

func (c *Channel) Name() string { return "bark" }

type pushRequest struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	DeviceKey string `json:"device_key"`
}

type pushResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Channel) Send(ctx context.Context, title, body string) error {
	payload, err := json.Marshal(pushRequest{Title: title, Body: body, DeviceKey: c.DeviceKey})
	if err != nil {
		return err
	}
	url := strings.TrimRight(c.ServerURL, "/") + "/push"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("bark push: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("bark push: read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("bark push: HTTP %d: %s", resp.StatusCode, string(raw))
	}
	var pr pushResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return fmt.Errorf("bark push: decode response: %w", err)
	}
	if pr.Code != 200 {
		return fmt.Errorf("bark push rejected: code=%d message=%s", pr.Code, pr.Message)
	}
	return nil
}
