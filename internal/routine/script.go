package routine

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"checkind/internal/domain"
)

// Script runs an external check-in command as a subprocess with the
// credentials appended to its environment. stdout and stderr are captured
// combined; the exit code is observed, never propagated as an error.
type Script struct {
	Command string
	Args    []string
}

func (s Script) Name() string { return "script" }

func (s Script) Execute(ctx context.Context, creds domain.Credentials) Outcome {
	cmd := exec.CommandContext(ctx, s.Command, s.Args...)
	cmd.Env = append(os.Environ(), creds.Env()...)
	out, err := cmd.CombinedOutput()
	outcome := Outcome{Output: string(out)}
	if err == nil {
		return outcome
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		outcome.ExitCode = exitErr.ExitCode()
		return outcome
	}
	// Start failure (command not found, permission): no exit code exists.
	outcome.ExitCode = -1
	if outcome.Output != "" && !strings.HasSuffix(outcome.Output, "\n") {
		outcome.Output += "\n"
	}
	outcome.Output += err.Error()
	return outcome
}
