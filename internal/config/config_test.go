package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, DefaultCronExpr, cfg.CronExpr)
	assert.Equal(t, "kurobbs", cfg.Routine)
	require.NoError(t, cfg.Validate())

	d, err := cfg.ParsedRunTimeout()
	require.NoError(t, err)
	assert.Equal(t, DefaultRunTimeout, d)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkind.yaml")
	data := `
addr: ":9090"
cron: "0 8 * * *"
routine: script
script:
  command: python3
  args: ["auto_checkin_old.py"]
run_timeout: 2m
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "0 8 * * *", cfg.CronExpr)
	assert.Equal(t, "python3", cfg.Script.Command)
	assert.Equal(t, []string{"auto_checkin_old.py"}, cfg.Script.Args)

	d, err := cfg.ParsedRunTimeout()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)
	// Unset durations still default.
	d, err = cfg.ParsedDispatchTimeout()
	require.NoError(t, err)
	assert.Equal(t, DefaultDispatchTimeout, d)
}

func TestValidateRejects(t *testing.T) {
	base := Default()

	bad := base
	bad.CronExpr = "not a cron"
	assert.Error(t, bad.Validate())

	bad = base
	bad.Routine = "script"
	err := bad.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingKey)

	bad = base
	bad.Routine = "carrier-pigeon"
	assert.Error(t, bad.Validate())

	bad = base
	bad.RunTimeout = "soon"
	assert.Error(t, bad.Validate())

	bad = base
	bad.DispatchTimeout = "-5s"
	assert.Error(t, bad.Validate())
}

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestResolveCredentials(t *testing.T) {
	creds, err := ResolveCredentials(envMap(map[string]string{
		"TOKEN":           "abc",
		"BARK_DEVICE_KEY": " key ",
		"BARK_SERVER_URL": "https://bark.example.com",
	}))
	require.NoError(t, err)
	assert.Equal(t, "abc", creds.Token)
	assert.Equal(t, "key", creds.BarkDeviceKey, "values are trimmed")
	assert.Empty(t, creds.WechatWorkCorpID, "absent optional keys stay empty")
}

func TestResolveCredentialsMissingToken(t *testing.T) {
	_, err := ResolveCredentials(envMap(map[string]string{
		"BARK_DEVICE_KEY": "key",
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingKey)
	assert.Contains(t, err.Error(), "TOKEN")
}
