package console

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dmxlan/dmxbridge-console/internal/bridge"
	"github.com/dmxlan/dmxbridge-console/internal/logging"
)

// ConnState is the lifecycle state of a reconnecting stream.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

// String returns a human-readable name for the connection state
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

const (
	// DefaultBackoffFloor is the first reconnect delay after a failure
	DefaultBackoffFloor = 1 * time.Second

	// DefaultBackoffCap is the ceiling the reconnect delay doubles up to
	DefaultBackoffCap = 10 * time.Second
)

// StreamConn is the slice of a WebSocket connection the stream machinery
// needs. *websocket.Conn satisfies it.
type StreamConn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// DialFunc opens one connection attempt. The context is cancelled when the
// stream stops.
type DialFunc func(ctx context.Context) (StreamConn, error)

// Stream maintains a live WebSocket to one endpoint with automatic
// reconnect and exponential backoff. Decoded JSON objects are handed to
// the message handler; keepalive pings are swallowed; malformed payloads
// are skipped without killing the loop.
//
// The delay sequence on repeated failures is 1s, 2s, 4s, 8s, 10s, 10s, ...
// and resets to the floor on any successful connect.
//
// A Stream is single-use: once stopped it stays Disconnected. Mode entry
// constructs a fresh Stream.
type Stream struct {
	// OnConnect, when set, runs once per successful connect with the live
	// connection. Used to push an initial filter message.
	OnConnect func(StreamConn)

	// OnState, when set, observes every state transition.
	OnState func(ConnState)

	// BackoffFloor and BackoffCap bound the reconnect delay. Set before
	// Start; they default to 1s and 10s.
	BackoffFloor time.Duration
	BackoffCap   time.Duration

	dial      DialFunc
	onMessage func(map[string]any)

	// sleep waits for d or until the context is cancelled; returns false
	// when cancelled. Replaceable so tests can observe the backoff ladder.
	sleep func(ctx context.Context, d time.Duration) bool

	mu      sync.Mutex
	state   ConnState
	conn    StreamConn
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewStream creates a stopped stream bound to one endpoint via dial.
// onMessage receives every decoded non-ping JSON object, called from the
// stream's own goroutine.
func NewStream(dial DialFunc, onMessage func(map[string]any)) *Stream {
	return &Stream{
		BackoffFloor: DefaultBackoffFloor,
		BackoffCap:   DefaultBackoffCap,
		dial:         dial,
		onMessage:    onMessage,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Start launches the connect/receive loop. Calling Start on a running
// stream is a no-op.
func (s *Stream) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.started = true
	s.mu.Unlock()

	go s.run(ctx)
}

// Stop cancels any in-flight connect or backoff wait, closes the live
// socket, and blocks until the loop has settled in Disconnected. Safe to
// call in any state, including more than once.
func (s *Stream) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// State returns the current connection state.
func (s *Stream) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// WithConn runs fn with the live connection, or returns false when the
// stream is not currently connected.
func (s *Stream) WithConn(fn func(StreamConn) error) bool {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return false
	}
	if err := fn(conn); err != nil {
		logging.Warn("stream write failed", zap.Error(err))
	}
	return true
}

func (s *Stream) setState(state ConnState) {
	s.mu.Lock()
	s.state = state
	hook := s.OnState
	s.mu.Unlock()
	if hook != nil {
		hook(state)
	}
}

func (s *Stream) run(ctx context.Context) {
	defer func() {
		s.setState(StateDisconnected)
		close(s.done)
	}()

	// Closing the live socket is what unblocks a pending ReadMessage when
	// the stream is stopped mid-receive.
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.mu.Unlock()
	}()

	delay := s.BackoffFloor
	for ctx.Err() == nil {
		s.setState(StateConnecting)
		conn, err := s.dial(ctx)
		if err == nil {
			s.mu.Lock()
			s.conn = conn
			s.mu.Unlock()
			if ctx.Err() != nil {
				// Stopped between dial returning and the watcher seeing
				// the stored connection
				_ = conn.Close()
				return
			}
			s.setState(StateConnected)
			delay = s.BackoffFloor

			if s.OnConnect != nil {
				s.OnConnect(conn)
			}

			s.readLoop(conn)

			s.mu.Lock()
			s.conn = nil
			s.mu.Unlock()
			_ = conn.Close()
		} else {
			logging.Debug("stream connect failed", zap.Error(err))
		}

		if ctx.Err() != nil {
			return
		}

		s.setState(StateReconnecting)
		if !s.sleep(ctx, delay) {
			return
		}
		delay *= 2
		if delay > s.BackoffCap {
			delay = s.BackoffCap
		}
	}
}

// readLoop receives until the connection fails or closes. Malformed
// payloads are skipped; pings are swallowed.
func (s *Stream) readLoop(conn StreamConn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logging.Debug("stream closed", zap.Error(err))
			return
		}

		var message map[string]any
		if err := json.Unmarshal(data, &message); err != nil {
			logging.Debug("skipping malformed stream payload", zap.Error(err))
			continue
		}
		if bridge.IsPing(message) {
			continue
		}

		s.onMessage(message)
	}
}
