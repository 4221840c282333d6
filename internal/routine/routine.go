package routine

import (
	"context"

	"checkind/internal/domain"
)

// Outcome is what a routine execution produced. A non-zero ExitCode means
// the check-in failed; the run itself still continues to notification
// dispatch. ExitCode -1 marks "could not even start".
type Outcome struct {
	ExitCode int
	Output   string
}

func (o Outcome) Success() bool { return o.ExitCode == 0 }

// Routine is the check-in capability. Implementations never abort the run:
// every failure mode is folded into the Outcome.
type Routine interface {
	Name() string
	Execute(ctx context.Context, creds domain.Credentials) Outcome
}
