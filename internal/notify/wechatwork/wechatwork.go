package wechatwork

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const DefaultBaseURL = "https://qyapi.weixin.qq.com"

// Channel sends text app messages through the WeChat Work (企业微信) API.
// Each Send fetches a fresh access token; at one delivery per day there is
// nothing to gain from caching it.
type Channel struct {
	BaseURL    string
	CorpID     string
	CorpSecret string
	AgentID    string
	UserID     string
	HTTPClient *http.Client
}

func New(corpID, corpSecret, agentID, userID string) *Channel {
	return &Channel{
		BaseURL:    DefaultBaseURL,
		CorpID:     corpID,
		CorpSecret: corpSecret,
		AgentID:    agentID,
		UserID:     userID,
		HTTPClient: http.DefaultClient,
	}
}

func (c *Channel) Name() string { return "wechatwork" }

type tokenResponse struct {
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
	AccessToken string `json:"access_token"`
}

type sendRequest struct {
	ToUser  string `json:"touser"`
	MsgType string `json:"msgtype"`
	AgentID string `json:"agentid"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

type sendResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func (c *Channel) Send(ctx context.Context, title, body string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	msg := sendRequest{ToUser: c.UserID, MsgType: "text", AgentID: c.AgentID}
	msg.Text.Content = title + "\n" + body
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	sendURL := c.base() + "/cgi-bin/message/send?access_token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	var res sendResponse
	if err := c.do(req, &res); err != nil {
		return fmt.Errorf("wechat work send: %w", err)
	}
	if res.ErrCode != 0 {
		return fmt.Errorf("wechat work send rejected: errcode=%d errmsg=%s", res.ErrCode, res.ErrMsg)
	}
	return nil
}

func (c *Channel) accessToken(ctx context.Context) (string, error) {
	tokenURL := fmt.Sprintf("%s/cgi-bin/gettoken?corpid=%s&corpsecret=%s",
		c.base(), url.QueryEscape(c.CorpID), url.QueryEscape(c.CorpSecret))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		return "", err
	}
	var res tokenResponse
	if err := c.do(req, &res); err != nil {
		return "", fmt.Errorf("wechat work gettoken: %w", err)
	}
	if res.ErrCode != 0 {
		return "", fmt.Errorf("wechat work gettoken rejected: errcode=%d errmsg=%s", res.ErrCode, res.ErrMsg)
	}
	return res.AccessToken, nil
}

func (c *Channel) base() string { return strings.TrimRight(c.BaseURL, "/") }

func (c *Channel) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(raw))
	}
	return json.Unmarshal(raw, out)
}
