package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"checkind/internal/domain"
)

// Channel delivers one notification. Implementations own their transport
// and auth; a failed Send is reported back but never escalated.
type Channel interface {
	Name() string
	Send(ctx context.Context, title, body string) error
}

// Dispatcher fans a summary out to every configured channel. Channels run
// concurrently, each under its own timeout; one channel failing or hanging
// does not cancel the others.
type Dispatcher struct {
	channels []Channel
	timeout  time.Duration
}

func NewDispatcher(channels []Channel, timeout time.Duration) *Dispatcher {
	return &Dispatcher{channels: channels, timeout: timeout}
}

func (d *Dispatcher) Channels() int { return len(d.channels) }

func (d *Dispatcher) Dispatch(ctx context.Context, title, body string) []domain.DispatchStatus {
	statuses := make([]domain.DispatchStatus, len(d.channels))
	var g errgroup.Group
	for i, ch := range d.channels {
		i, ch := i, ch
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			err := ch.Send(cctx, title, body)
			if err != nil {
				statuses[i] = domain.DispatchStatus{Channel: ch.Name(), Error: err.Error()}
				log.Error().Err(err).Str("channel", ch.Name()).Msg("notification dispatch failed")
				return nil
			}
			statuses[i] = domain.DispatchStatus{Channel: ch.Name(), OK: true}
			log.Info().Str("channel", ch.Name()).Msg("notification sent")
			return nil
		})
	}
	_ = g.Wait()
	return statuses
}

const truncateMarker = "\n… [truncated]"

// Truncate bounds a message body by rune count so payloads stay inside the
// channels' text limits.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	keep := max - len([]rune(truncateMarker))
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + truncateMarker
}
