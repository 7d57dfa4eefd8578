package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatalf("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "logout"})
	d.Close()
	if d.Dropped() != 0 || d.Delivered() != 0 {
		t.Fatalf("nil dispatcher must report zero counters")
	}
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)

	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), Event{EventType: "token_refreshed", UserID: int64(i + 1)})
	}
	d.Close()

	if got := d.Delivered(); got != 3 {
		t.Fatalf("expected 3 delivered events, got %d", got)
	}
	for i := 0; i < 3; i++ {
		select {
		case ev := <-sink.Events():
			if ev.EventType != "token_refreshed" {
				t.Fatalf("unexpected event %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}

	d.Emit(context.Background(), Event{EventType: "late"})
	if d.Delivered() != 3 {
		t.Fatalf("emit after close must be ignored")
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(context.Context, Event) { <-s.release }

func TestDispatcherDropIfFull(t *testing.T) {
	sink := blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "login_failure"})
	}
	if d.Dropped() == 0 {
		t.Fatalf("expected drops with a full buffer")
	}
	close(sink.release)
	d.Close()
}

func TestDispatcherBlockingEmitGivesUpWithContext(t *testing.T) {
	sink := blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	// One event is held by the sink, one fills the buffer.
	d.Emit(context.Background(), Event{EventType: "token_refreshed"})
	d.Emit(context.Background(), Event{EventType: "token_refreshed"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "token_refreshed"})
	if d.Dropped() != 1 {
		t.Fatalf("expected the waiting event to be dropped, got %d", d.Dropped())
	}

	close(sink.release)
	d.Close()
	if d.Delivered() != 2 {
		t.Fatalf("expected 2 delivered events, got %d", d.Delivered())
	}
}

func TestDispatcherCloseRacesEmit(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 2, DropIfFull: true}, NoOpSink{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				d.Emit(context.Background(), Event{EventType: "logout"})
			}
		}()
	}
	d.Close()
	d.Close()
	wg.Wait()
	if got := d.Delivered() + d.Dropped(); got > 400 {
		t.Fatalf("more events accounted than emitted: %d", got)
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{ID: "e1", EventType: "logout", UserID: 7, Success: true})
	sink.Emit(context.Background(), Event{ID: "e2", EventType: "login_failure", Error: "invalid_credentials"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.UserID != 7 || ev.EventType != "logout" || !ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
	if !strings.Contains(lines[1], `"error":"invalid_credentials"`) {
		t.Fatalf("expected error code in %s", lines[1])
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSlogSink(slog.New(slog.NewTextHandler(&buf, nil)))
	sink.Emit(context.Background(), Event{EventType: "session_expired", UserID: 3})

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "audit session_expired") {
		t.Fatalf("unexpected log output %q", out)
	}
	if !strings.Contains(out, "user_id=3") {
		t.Fatalf("expected user id attr in %q", out)
	}
}
