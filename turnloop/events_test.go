package turnloop

import (
	"strings"
	"testing"
)

func TestEventStreamDelivers(t *testing.T) {
	stream := NewEventStream(4)
	stream.Emit(EventToolEnd, "s1", map[string]interface{}{"tool": "shell"})

	select {
	case event := <-stream.Events():
		if event.Kind != EventToolEnd || event.SessionID != "s1" {
			t.Errorf("unexpected event: %+v", event)
		}
		if event.Data["tool"] != "shell" {
			t.Errorf("unexpected data: %v", event.Data)
		}
	default:
		t.Fatal("event not delivered")
	}
}

func TestEventStreamDropsWhenFull(t *testing.T) {
	stream := NewEventStream(1)
	stream.Emit(EventUserInput, "s1", nil)
	// The buffer is full; this must not block.
	stream.Emit(EventUserInput, "s1", nil)

	count := 0
	for {
		select {
		case <-stream.Events():
			count++
			continue
		default:
		}
		break
	}
	if count != 1 {
		t.Errorf("expected 1 buffered event, got %d", count)
	}
}

func TestEventStreamNilSafe(t *testing.T) {
	var stream *EventStream
	stream.Emit(EventError, "s1", nil) // must not panic
}

func TestEventStreamCloseIdempotent(t *testing.T) {
	stream := NewEventStream(1)
	stream.Close()
	stream.Close()
	stream.Emit(EventError, "s1", nil) // dropped, no panic on closed channel
}

func TestBuildSystemPrompt(t *testing.T) {
	env := &stubEnv{}
	prompt := BuildSystemPrompt(env, "")
	if !strings.Contains(prompt, "test/amd64") {
		t.Error("prompt should name the platform")
	}
	if !strings.Contains(prompt, "/work") {
		t.Error("prompt should name the working directory")
	}
	if strings.Contains(prompt, "User Instructions") {
		t.Error("no instructions section without instructions")
	}

	prompt = BuildSystemPrompt(env, "Prefer ripgrep over grep.")
	if !strings.Contains(prompt, "# User Instructions") || !strings.Contains(prompt, "ripgrep") {
		t.Error("instructions should be appended")
	}
}
