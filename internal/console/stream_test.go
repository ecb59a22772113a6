package console

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeConn is a scriptable StreamConn. Messages pushed into the channel
// are returned by ReadMessage; closing the conn makes ReadMessage fail.
type fakeConn struct {
	messages chan []byte

	mu     sync.Mutex
	closed bool
	sent   []any

	closeCh chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		messages: make(chan []byte, 16),
		closeCh:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-c.messages:
		return 1, data, nil
	case <-c.closeCh:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("write on closed connection")
	}
	c.sent = append(c.sent, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.closeCh)
	}
	return nil
}

// stateRecorder collects state transitions thread-safely.
type stateRecorder struct {
	mu     sync.Mutex
	states []ConnState
}

func (r *stateRecorder) record(s ConnState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) snapshot() []ConnState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ConnState(nil), r.states...)
}

func TestStreamBackoffSequence(t *testing.T) {
	dial := func(ctx context.Context) (StreamConn, error) {
		return nil, errors.New("connect refused")
	}

	stream := NewStream(dial, func(map[string]any) {})

	sleeps := make(chan time.Duration, 16)
	stream.sleep = func(ctx context.Context, d time.Duration) bool {
		select {
		case sleeps <- d:
		case <-ctx.Done():
			return false
		}
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}

	stream.Start()
	defer stream.Stop()

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for i, expected := range want {
		select {
		case got := <-sleeps:
			if got != expected {
				t.Fatalf("backoff step %d = %v, want %v", i, got, expected)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for backoff step %d", i)
		}
	}
}

func TestStreamBackoffResetsAfterConnect(t *testing.T) {
	var mu sync.Mutex
	attempt := 0
	conn := newFakeConn()

	// Fail twice, succeed once, then fail again
	dial := func(ctx context.Context) (StreamConn, error) {
		mu.Lock()
		defer mu.Unlock()
		attempt++
		if attempt == 3 {
			return conn, nil
		}
		return nil, errors.New("connect refused")
	}

	stream := NewStream(dial, func(map[string]any) {})

	sleeps := make(chan time.Duration, 16)
	stream.sleep = func(ctx context.Context, d time.Duration) bool {
		select {
		case sleeps <- d:
			return true
		case <-ctx.Done():
			return false
		}
	}

	connected := make(chan struct{}, 1)
	stream.OnState = func(s ConnState) {
		if s == StateConnected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	}

	stream.Start()
	defer stream.Stop()

	// Two failures first: 1s then 2s
	if d := <-sleeps; d != 1*time.Second {
		t.Fatalf("first backoff = %v, want 1s", d)
	}
	if d := <-sleeps; d != 2*time.Second {
		t.Fatalf("second backoff = %v, want 2s", d)
	}

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("stream never connected")
	}

	// Drop the live connection; the next backoff must be back at the floor
	_ = conn.Close()

	select {
	case d := <-sleeps:
		if d != 1*time.Second {
			t.Errorf("backoff after successful connect = %v, want reset to 1s", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream never re-entered backoff after disconnect")
	}
}

func TestStreamStopIsDeterministic(t *testing.T) {
	dial := func(ctx context.Context) (StreamConn, error) {
		return nil, errors.New("connect refused")
	}

	stream := NewStream(dial, func(map[string]any) {})
	stream.BackoffFloor = time.Millisecond
	stream.BackoffCap = 2 * time.Millisecond

	recorder := &stateRecorder{}
	stream.OnState = recorder.record

	stream.Start()
	time.Sleep(20 * time.Millisecond)
	stream.Stop()

	if got := stream.State(); got != StateDisconnected {
		t.Fatalf("State() after Stop = %v, want disconnected", got)
	}

	// No transitions may happen after Stop returns, even past the backoff cap
	before := len(recorder.snapshot())
	time.Sleep(30 * time.Millisecond)
	after := recorder.snapshot()
	if len(after) != before {
		t.Errorf("observed %d transitions after Stop returned: %v", len(after)-before, after[before:])
	}
	if after[len(after)-1] != StateDisconnected {
		t.Errorf("final state = %v, want disconnected", after[len(after)-1])
	}

	// Stop is idempotent
	stream.Stop()
}

func TestStreamStopWhileConnected(t *testing.T) {
	conn := newFakeConn()
	dial := func(ctx context.Context) (StreamConn, error) {
		return conn, nil
	}

	stream := NewStream(dial, func(map[string]any) {})

	connected := make(chan struct{}, 1)
	stream.OnState = func(s ConnState) {
		if s == StateConnected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	}

	stream.Start()
	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("stream never connected")
	}

	finished := make(chan struct{})
	go func() {
		stream.Stop()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() hung while connection was blocked in ReadMessage")
	}

	if got := stream.State(); got != StateDisconnected {
		t.Errorf("State() after Stop = %v, want disconnected", got)
	}
}

func TestStreamMessageHandling(t *testing.T) {
	conn := newFakeConn()
	dial := func(ctx context.Context) (StreamConn, error) {
		return conn, nil
	}

	received := make(chan map[string]any, 16)
	stream := NewStream(dial, func(m map[string]any) {
		received <- m
	})

	stream.Start()
	defer stream.Stop()

	conn.messages <- []byte(`{"type":"ping"}`)
	conn.messages <- []byte(`not json at all`)
	conn.messages <- []byte(`{"level":"ERROR","message":"boom"}`)
	conn.messages <- []byte(`{"level":"INFO","message":"ok"}`)

	// Pings and malformed payloads are dropped; real messages arrive in order
	first := <-received
	if first["level"] != "ERROR" {
		t.Errorf("first forwarded message = %v, want the ERROR entry", first)
	}
	second := <-received
	if second["level"] != "INFO" {
		t.Errorf("second forwarded message = %v, want the INFO entry", second)
	}

	select {
	case extra := <-received:
		t.Errorf("unexpected extra message forwarded: %v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStreamOnConnectRunsPerConnect(t *testing.T) {
	conn := newFakeConn()
	dial := func(ctx context.Context) (StreamConn, error) {
		return conn, nil
	}

	stream := NewStream(dial, func(map[string]any) {})

	ran := make(chan struct{}, 1)
	stream.OnConnect = func(c StreamConn) {
		_ = c.WriteJSON(map[string]string{"level": "ERROR"})
		ran <- struct{}{}
	}

	stream.Start()
	defer stream.Stop()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("OnConnect never ran")
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.sent) != 1 {
		t.Errorf("initial payload count = %d, want 1", len(conn.sent))
	}
}

func TestStreamWithConn(t *testing.T) {
	conn := newFakeConn()
	dial := func(ctx context.Context) (StreamConn, error) {
		return conn, nil
	}

	stream := NewStream(dial, func(map[string]any) {})

	connected := make(chan struct{}, 1)
	stream.OnState = func(s ConnState) {
		if s == StateConnected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	}

	// Not started: no connection to use
	if stream.WithConn(func(StreamConn) error { return nil }) {
		t.Error("WithConn should report false before connecting")
	}

	stream.Start()
	defer stream.Stop()
	<-connected

	ok := stream.WithConn(func(c StreamConn) error {
		return c.WriteJSON(map[string]string{"logger": "sender"})
	})
	if !ok {
		t.Fatal("WithConn should run against the live connection")
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.sent) != 1 {
		t.Errorf("sent %d payloads, want 1", len(conn.sent))
	}
}
