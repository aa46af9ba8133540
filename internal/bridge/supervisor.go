package bridge

import (
	"context"
	"log/slog"
	"time"

	"github.com/takuu-o/hrs-osc-bridge/internal/ble"
)

// SupervisorConfig holds the supervisor's restart policy plus the config
// handed to each session.
type SupervisorConfig struct {
	Session          SessionConfig
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
}

// Supervisor is the process's outermost control loop: it runs one session
// at a time to its terminal state and restarts with backoff.
type Supervisor struct {
	adapter ble.Adapter
	pub     Publisher
	norm    *Normalizer
	cfg     SupervisorConfig
}

// NewSupervisor creates a supervisor. The adapter must already be enabled.
func NewSupervisor(adapter ble.Adapter, pub Publisher, norm *Normalizer, cfg SupervisorConfig) *Supervisor {
	if cfg.ReconnectInitial <= 0 {
		cfg.ReconnectInitial = 3 * time.Second
	}
	if cfg.ReconnectMax < cfg.ReconnectInitial {
		cfg.ReconnectMax = cfg.ReconnectInitial
	}
	return &Supervisor{
		adapter: adapter,
		pub:     pub,
		norm:    norm,
		cfg:     cfg,
	}
}

// Run creates and runs sessions until ctx is cancelled, waiting out the
// backoff delay between terminal sessions. A session that reached
// Subscribed resets the backoff. Returns ctx.Err().
func (sv *Supervisor) Run(ctx context.Context) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sess := NewSession(sv.adapter, sv.pub, sv.norm, sv.cfg.Session)
		res := sess.Run(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}

		if res.Subscribed {
			attempt = 0
		}
		delay := backoffDelay(attempt, sv.cfg.ReconnectInitial, sv.cfg.ReconnectMax)
		attempt++

		slog.Warn("[bridge] session ended", "state", res.State, "error", res.Err, "retry_in", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// backoffDelay returns the restart delay for attempt n: initial doubled per
// attempt, capped at max. The shift amount is clamped to avoid overflow.
func backoffDelay(attempt int, initial, max time.Duration) time.Duration {
	if initial <= 0 {
		initial = time.Second
	}
	if max < initial {
		max = initial
	}
	if attempt > 30 {
		attempt = 30
	}
	delay := initial << uint(attempt)
	if delay <= 0 || delay > max {
		return max
	}
	return delay
}
