package turnloop

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/martinemde/overseer/llmclient"
)

func sampleSession(id string) *Session {
	session := NewSession(id)
	session.Append(NewUserMessage("run ls for me"))
	call := shellCall("c1", "ls")
	session.Append(NewAssistantMessage("I'll run that.", []llmclient.ToolCall{call}))
	session.MachineState = StateAwaitingApproval
	session.PendingInvocations = []llmclient.ToolCall{call}
	return session
}

// sessionsEqual compares by serialized form, which is what durability
// guarantees: the record reloads byte for byte.
func sessionsEqual(t *testing.T, a, b *Session) bool {
	t.Helper()
	aj, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	bj, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(aj) == string(bj)
}

func runStoreTests(t *testing.T, newStore func(t *testing.T) CheckpointStore) {
	t.Run("round trip", func(t *testing.T) {
		store := newStore(t)
		saved := sampleSession("s1")
		if err := store.Save(saved); err != nil {
			t.Fatalf("save: %v", err)
		}
		loaded, err := store.Load("s1")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if !sessionsEqual(t, saved, loaded) {
			t.Error("loaded session differs from saved session")
		}
	})

	t.Run("unknown id yields fresh session", func(t *testing.T) {
		store := newStore(t)
		session, err := store.Load("never-seen")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if session.SessionID != "never-seen" {
			t.Errorf("expected id preserved, got %q", session.SessionID)
		}
		if session.MachineState != StateIdle {
			t.Errorf("expected idle, got %q", session.MachineState)
		}
		if session.History == nil || len(session.History) != 0 {
			t.Errorf("expected empty history, got %v", session.History)
		}
	})

	t.Run("save overwrites", func(t *testing.T) {
		store := newStore(t)
		session := sampleSession("s1")
		if err := store.Save(session); err != nil {
			t.Fatalf("save: %v", err)
		}
		session.Append(NewToolResultMessage(ToolResult{InvocationID: "c1", Succeeded: true, Text: "a.txt"}))
		session.MachineState = StateIdle
		session.PendingInvocations = nil
		if err := store.Save(session); err != nil {
			t.Fatalf("second save: %v", err)
		}

		loaded, err := store.Load("s1")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if len(loaded.History) != 3 || loaded.MachineState != StateIdle {
			t.Errorf("overwrite not observed: %d entries, state %q", len(loaded.History), loaded.MachineState)
		}
	})

	t.Run("loaded sessions do not alias", func(t *testing.T) {
		store := newStore(t)
		if err := store.Save(sampleSession("s1")); err != nil {
			t.Fatalf("save: %v", err)
		}
		first, _ := store.Load("s1")
		first.History[0].Content = "tampered"
		second, _ := store.Load("s1")
		if second.History[0].Content != "run ls for me" {
			t.Error("mutating one load affected another")
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) CheckpointStore {
		return NewMemoryStore()
	})
}

func TestFileStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) CheckpointStore {
		return NewFileStore(t.TempDir())
	})
}

func TestFileStoreWritesOneFilePerSession(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	if err := store.Save(sampleSession("alpha")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(sampleSession("beta")); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 files, got %d", len(entries))
	}
	if _, err := os.Stat(filepath.Join(dir, "alpha.json")); err != nil {
		t.Errorf("missing alpha.json: %v", err)
	}
}

func TestFileStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	store := NewFileStore(dir)
	if err := store.Save(sampleSession("s1")); err != nil {
		t.Fatalf("save into missing dir: %v", err)
	}
	if _, err := store.Load("s1"); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestFileStoreCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	if err := os.WriteFile(filepath.Join(dir, "s1.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := store.Load("s1")
	if err == nil {
		t.Fatal("expected error for corrupt record")
	}
	pe, ok := err.(*PersistenceError)
	if !ok {
		t.Fatalf("expected *PersistenceError, got %T", err)
	}
	if pe.SessionID != "s1" {
		t.Errorf("expected session id in error, got %q", pe.SessionID)
	}
}

func TestSessionFilenameSanitization(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"main", "main.json"},
		{"user-42_a.b", "user-42_a.b.json"},
		{"../../etc/passwd", ".._.._etc_passwd.json"},
		{"a b/c", "a_b_c.json"},
		{"", "_.json"},
	}
	for _, tt := range tests {
		if got := sessionFilename(tt.id); got != tt.want {
			t.Errorf("sessionFilename(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
	if strings.ContainsAny(sessionFilename("weird\x00id"), "\x00/") {
		t.Error("sanitized filename contains unsafe characters")
	}
}
