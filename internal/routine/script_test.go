package routine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"checkind/internal/domain"
)

func TestScriptCapturesOutputAndExitCode(t *testing.T) {
	s := Script{Command: "/bin/sh", Args: []string{"-c", "echo login expired; exit 1"}}
	out := s.Execute(context.Background(), domain.Credentials{Token: "abc"})
	assert.Equal(t, 1, out.ExitCode)
	assert.False(t, out.Success())
	assert.Contains(t, out.Output, "login expired")
}

func TestScriptSuccess(t *testing.T) {
	s := Script{Command: "/bin/sh", Args: []string{"-c", "echo done"}}
	out := s.Execute(context.Background(), domain.Credentials{Token: "abc"})
	assert.Equal(t, 0, out.ExitCode)
	assert.True(t, out.Success())
	assert.Contains(t, out.Output, "done")
}

func TestScriptInjectsCredentialsEnv(t *testing.T) {
	s := Script{Command: "/bin/sh", Args: []string{"-c", `echo "token=$TOKEN bark=$BARK_DEVICE_KEY"`}}
	out := s.Execute(context.Background(), domain.Credentials{Token: "tok-1", BarkDeviceKey: "dev-1"})
	assert.True(t, out.Success())
	assert.Contains(t, out.Output, "token=tok-1")
	assert.Contains(t, out.Output, "bark=dev-1")
}

func TestScriptStartFailure(t *testing.T) {
	s := Script{Command: "/no/such/binary"}
	out := s.Execute(context.Background(), domain.Credentials{Token: "abc"})
	assert.Equal(t, -1, out.ExitCode)
	assert.NotEmpty(t, out.Output)
}
