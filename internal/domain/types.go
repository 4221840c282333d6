package domain

import "time"

type Origin string

const (
	OriginScheduled Origin = "scheduled"
	OriginManual    Origin = "manual"
)

// Trigger starts exactly one run. Origin distinguishes scheduled firings
// from on-demand ones for logging only; both take the same path.
type Trigger struct {
	Origin Origin
	At     time.Time
	RunID  string
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// RunResult is the captured outcome of one run. It is held in memory for
// inspection until the next run overwrites it; nothing is persisted.
type RunResult struct {
	RunID      string
	Trigger    Trigger
	Status     Status
	ExitCode   int
	Output     string
	StartedAt  time.Time
	FinishedAt time.Time
	Dispatches []DispatchStatus
}

// DispatchStatus records one notification channel's delivery attempt.
type DispatchStatus struct {
	Channel string
	OK      bool
	Error   string
}

// Credentials is the explicit secret set a run operates with. It is resolved
// once from the environment at startup and passed down as a value, never read
// ambiently by the routines or channels.
type Credentials struct {
	Token string

	BarkDeviceKey string
	BarkServerURL string

	WechatWorkCorpID  string
	WechatWorkAgentID string
	WechatWorkSecret  string
	WechatWorkUserID  string
}

// Env renders the non-empty credentials as KEY=value pairs for injection
// into a subprocess environment.
func (c Credentials) Env() []string {
	pairs := []struct{ k, v string }{
		{"TOKEN", c.Token},
		{"BARK_DEVICE_KEY", c.BarkDeviceKey},
		{"BARK_SERVER_URL", c.BarkServerURL},
		{"WECHAT_WORK_CORPID", c.WechatWorkCorpID},
		{"WECHAT_WORK_AGENTID", c.WechatWorkAgentID},
		{"WECHAT_WORK_SECRET", c.WechatWorkSecret},
		{"WECHAT_WORK_USERID", c.WechatWorkUserID},
	}
	var env []string
	for _, p := range pairs {
		if p.v != "" {
			env = append(env, p.k+"="+p.v)
		}
	}
	return env
}
