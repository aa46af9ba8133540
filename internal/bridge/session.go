// Package bridge contains the connection session state machine and the
// supervisor loop that bridges a BLE heart rate sensor to an OSC receiver.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/takuu-o/hrs-osc-bridge/internal/ble"
	"github.com/takuu-o/hrs-osc-bridge/internal/hrm"
)

// Publisher sends one named avatar parameter value per call. Implemented
// by vrcosc.Emitter.
type Publisher interface {
	PublishInt(param string, value int32) error
	PublishFloat(param string, value float32) error
}

var (
	// ErrScanTimeout means no matching sensor was discovered before the
	// scan timeout elapsed.
	ErrScanTimeout = errors.New("bridge: no heart rate sensor found before scan timeout")
	// ErrLinkLost means the adapter reported the connection dropped while
	// subscribed.
	ErrLinkLost = errors.New("bridge: connection to sensor lost")
)

// SessionConfig holds the per-session parameters, read-only for the
// session's lifetime.
type SessionConfig struct {
	// NamePattern is matched as a substring of the advertised device
	// name. Empty matches any device advertising the Heart Rate service.
	NamePattern        string
	ScanTimeout        time.Duration
	ConnectTimeout     time.Duration
	MalformedTolerance int
	BPMParameter       string
	WaitParameter      string
}

// Result is a session's terminal outcome.
type Result struct {
	State State // StateFailed or StateDisconnected
	Err   error
	// Subscribed records whether the session ever reached Subscribed,
	// so the supervisor can reset its backoff.
	Subscribed bool
}

// Session owns one BLE device handle for its lifetime and drives the
// scan -> connect -> subscribe lifecycle to a terminal state. A session
// never retries; retrying is the supervisor's job.
type Session struct {
	adapter ble.Adapter
	pub     Publisher
	norm    *Normalizer
	cfg     SessionConfig

	state      State
	subscribed bool
	malformed  int // consecutive decode failures
}

// NewSession creates a session in the Idle state.
func NewSession(adapter ble.Adapter, pub Publisher, norm *Normalizer, cfg SessionConfig) *Session {
	if cfg.MalformedTolerance <= 0 {
		cfg.MalformedTolerance = 3
	}
	return &Session{
		adapter: adapter,
		pub:     pub,
		norm:    norm,
		cfg:     cfg,
		state:   StateIdle,
	}
}

// Run drives the session from Idle to a terminal state. The GATT
// connection, once acquired, is released before Run returns, on every
// path out of Connecting and Subscribed.
func (s *Session) Run(ctx context.Context) Result {
	s.transition(StateScanning)

	scanCtx, cancel := context.WithTimeout(ctx, s.cfg.ScanTimeout)
	dev, err := s.adapter.Scan(scanCtx, ble.HeartRateServiceUUID, s.matches)
	cancel()
	if err != nil {
		return s.fail(fmt.Errorf("scan: %w", err))
	}
	if dev == nil {
		if ctx.Err() != nil {
			return s.disconnect(ctx.Err())
		}
		return s.fail(ErrScanTimeout)
	}
	slog.Info("[session] sensor found", "name", dev.Name, "addr", dev.Addr, "rssi", dev.RSSI)

	s.transition(StateConnecting)

	connCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	conn, err := s.adapter.Connect(connCtx, dev.Addr)
	cancel()
	if err != nil {
		return s.fail(fmt.Errorf("connect: %w", err))
	}
	defer conn.Disconnect()

	linkLost := make(chan struct{}, 1)
	conn.OnDisconnect(func() {
		select {
		case linkLost <- struct{}{}:
		default:
		}
	})

	char, err := conn.DiscoverCharacteristic(ble.HeartRateServiceUUID, ble.HeartRateMeasurementUUID)
	if err != nil {
		return s.fail(err)
	}

	// At most one in-flight frame: while a frame is being decoded and
	// published, later notifications are dropped rather than queued, so
	// published values preserve the sensor's ordering.
	frames := make(chan []byte, 1)
	err = char.Subscribe(func(data []byte) {
		frame := make([]byte, len(data))
		copy(frame, data)
		select {
		case frames <- frame:
		default:
		}
	})
	if err != nil {
		return s.fail(fmt.Errorf("subscribe: %w", err))
	}
	defer char.Unsubscribe()

	s.transition(StateSubscribed)

	for {
		select {
		case <-ctx.Done():
			return s.disconnect(ctx.Err())
		case <-linkLost:
			return s.disconnect(ErrLinkLost)
		case frame := <-frames:
			if err := s.handleFrame(frame); err != nil {
				return s.disconnect(err)
			}
		}
	}
}

func (s *Session) matches(dev ble.Device) bool {
	if s.cfg.NamePattern == "" {
		return true
	}
	return strings.Contains(dev.Name, s.cfg.NamePattern)
}

// handleFrame decodes and publishes one notification. It returns an error
// only when the malformed-payload tolerance is exhausted; a session-ending
// condition. Publish failures are logged and the reading counts as handled.
func (s *Session) handleFrame(frame []byte) error {
	m, err := hrm.Decode(frame)
	if err != nil {
		s.malformed++
		slog.Warn("[session] dropping malformed payload", "error", err, "consecutive", s.malformed)
		if s.malformed >= s.cfg.MalformedTolerance {
			return fmt.Errorf("%d consecutive malformed payloads: %w", s.malformed, err)
		}
		return nil
	}
	s.malformed = 0

	norm := s.norm.Normalize(int(m.BPM))
	slog.Debug("[session] reading", "bpm", m.BPM, "contact", m.Contact, "normalized", norm.Value)
	if norm.ClampedLow || norm.ClampedHigh {
		slog.Debug("[session] reading outside configured range", "bpm", m.BPM,
			"clamped_low", norm.ClampedLow, "clamped_high", norm.ClampedHigh)
	}

	// Raw BPM first, then the normalized value, synchronously.
	if err := s.pub.PublishInt(s.cfg.BPMParameter, int32(m.BPM)); err != nil {
		slog.Warn("[session] publish failed", "param", s.cfg.BPMParameter, "error", err)
	}
	if err := s.pub.PublishFloat(s.cfg.WaitParameter, float32(norm.Value)); err != nil {
		slog.Warn("[session] publish failed", "param", s.cfg.WaitParameter, "error", err)
	}
	return nil
}

// transition is the only place the session's state changes.
func (s *Session) transition(to State) {
	slog.Info("[session] state", "from", s.state, "to", to)
	s.state = to
	if to == StateSubscribed {
		s.subscribed = true
	}
}

func (s *Session) fail(err error) Result {
	s.transition(StateFailed)
	return Result{State: StateFailed, Err: err, Subscribed: s.subscribed}
}

func (s *Session) disconnect(err error) Result {
	s.transition(StateDisconnected)
	return Result{State: StateDisconnected, Err: err, Subscribed: s.subscribed}
}
