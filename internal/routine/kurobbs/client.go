package kurobbs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"checkind/internal/domain"
	"checkind/internal/routine"
)

const (
	DefaultBaseURL = "https://api.kurobbs.com"

	findRoleListPath = "/user/role/findRoleList"
	signPath         = "/encourage/signIn/v2"
	userSignPath     = "/user/signIn"

	userAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko)  KuroGameBox/2.4.0"
)

// Client performs the Kurobbs community daily check-in: the monthly sign-in
// reward for the first listed game role, then the community sign-in. Both
// actions are attempted regardless of the other's result and their messages
// are accumulated into one summary.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// Now is overridable for tests; the reward sign-in sends the current
	// month. Defaults to time.Now.
	Now func() time.Time
}

func New() *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Name() string { return "kurobbs" }

// apiResponse is the common envelope of every Kurobbs endpoint. Success is
// only present on the sign-in endpoints.
type apiResponse struct {
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func (r apiResponse) ok() bool { return r.Success != nil && *r.Success }

type role struct {
	GameID   json.Number `json:"gameId"`
	ServerID string      `json:"serverId"`
	RoleID   json.Number `json:"roleId"`
	UserID   json.Number `json:"userId"`
}

func (c *Client) Execute(ctx context.Context, creds domain.Credentials) routine.Outcome {
	var results, failures []string

	signErr := c.signReward(ctx, creds.Token)
	if signErr == nil {
		results = append(results, "签到奖励签到成功")
	} else {
		failures = append(failures, "签到奖励签到失败")
		log.Warn().Err(signErr).Msg("reward sign-in failed")
	}

	userErr := c.signCommunity(ctx, creds.Token)
	if userErr == nil {
		results = append(results, "社区签到成功")
	} else {
		failures = append(failures, "社区签到失败")
		log.Warn().Err(userErr).Msg("community sign-in failed")
	}

	out := strings.Join(append(results, failures...), ", ") + "!"
	if len(failures) > 0 {
		return routine.Outcome{ExitCode: 1, Output: out}
	}
	return routine.Outcome{Output: out}
}

// signReward claims the monthly reward check-in for the user's first role.
func (c *Client) signReward(ctx context.Context, token string) error {
	res, err := c.post(ctx, token, findRoleListPath, url.Values{"gameId": {"3"}})
	if err != nil {
		return err
	}
	var roles []role
	if err := json.Unmarshal(res.Data, &roles); err != nil {
		return fmt.Errorf("decode role list: %w", err)
	}
	if len(roles) == 0 {
		return fmt.Errorf("no roles returned")
	}
	r := roles[0]
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	form := url.Values{
		"gameId":   {orDefault(r.GameID.String(), "2")},
		"serverId": {r.ServerID},
		"roleId":   {orDefault(r.RoleID.String(), "0")},
		"userId":   {orDefault(r.UserID.String(), "0")},
		"reqMonth": {fmt.Sprintf("%02d", int(now.Month()))},
	}
	res, err = c.post(ctx, token, signPath, form)
	if err != nil {
		return err
	}
	if !res.ok() {
		return fmt.Errorf("reward sign-in rejected: %s", res.Msg)
	}
	return nil
}

// signCommunity performs the plain community sign-in.
func (c *Client) signCommunity(ctx context.Context, token string) error {
	res, err := c.post(ctx, token, userSignPath, url.Values{"gameId": {"2"}})
	if err != nil {
		return err
	}
	if !res.ok() {
		return fmt.Errorf("community sign-in rejected: %s", res.Msg)
	}
	return nil
}

func (c *Client) post(ctx context.Context, token, path string, form url.Values) (apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.BaseURL, "/")+path, strings.NewReader(form.Encode()))
	if err != nil {
		return apiResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("source", "ios")
	req.Header.Set("accept-language", "zh-CN,zh-Hans;q=0.9")
	req.Header.Set("token", token)
	req.Header.Set("origin", "https://web-static.kurobbs.com")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return apiResponse{}, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiResponse{}, fmt.Errorf("%s: read body: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return apiResponse{}, fmt.Errorf("%s: HTTP %d: %s", path, resp.StatusCode, string(body))
	}
	var res apiResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return apiResponse{}, fmt.Errorf("%s: decode response: %w", path, err)
	}
	return res, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
