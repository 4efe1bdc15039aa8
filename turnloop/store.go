package turnloop

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// CheckpointStore is the sole authority for durable session state.
//
// Load returns the persisted session for the id, or a freshly-initialized
// idle session when none exists — an unknown id is never an error. Save
// durably overwrites the full record and must be atomic with respect to
// process crash: a crash during Save leaves either the old or the new
// record readable, never a torn one. Implementations must support
// concurrent use across distinct session ids.
type CheckpointStore interface {
	Load(sessionID string) (*Session, error)
	Save(session *Session) error
}

// MemoryStore keeps checkpoints in process memory. Sessions are deep
// copied on both Save and Load so callers never alias stored state.
// Suited to tests and ephemeral runs.
type MemoryStore struct {
	records map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

// Load returns the stored session, or a fresh idle session for an
// unknown id.
func (s *MemoryStore) Load(sessionID string) (*Session, error) {
	s.mu.RLock()
	data, ok := s.records[sessionID]
	s.mu.RUnlock()
	if !ok {
		return NewSession(sessionID), nil
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, &PersistenceError{Op: "load", SessionID: sessionID, Cause: err}
	}
	if session.History == nil {
		session.History = []Message{}
	}
	return &session, nil
}

// Save stores an encoded snapshot of the session.
func (s *MemoryStore) Save(session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return &PersistenceError{Op: "save", SessionID: session.SessionID, Cause: err}
	}
	s.mu.Lock()
	s.records[session.SessionID] = data
	s.mu.Unlock()
	return nil
}

// FileStore persists each session as one JSON file under a state
// directory. Saves go through a temp file, fsync, and rename so a crash
// mid-write never leaves a torn record.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a FileStore rooted at dir. The directory is
// created on first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// sessionFilename maps a session id to a safe filename. Ids are external
// strings (thread names), so anything outside a conservative character
// set is replaced.
func sessionFilename(sessionID string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, sessionID)
	if sanitized == "" {
		sanitized = "_"
	}
	return sanitized + ".json"
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, sessionFilename(sessionID))
}

// Load reads the session file, or returns a fresh idle session when the
// file does not exist.
func (s *FileStore) Load(sessionID string) (*Session, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if os.IsNotExist(err) {
		return NewSession(sessionID), nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load", SessionID: sessionID, Cause: err}
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, &PersistenceError{Op: "load", SessionID: sessionID, Cause: err}
	}
	if session.History == nil {
		session.History = []Message{}
	}
	return &session, nil
}

// Save atomically overwrites the session record: write to a temp file in
// the same directory, fsync, then rename over the target.
func (s *FileStore) Save(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &PersistenceError{Op: "save", SessionID: session.SessionID, Cause: err}
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "save", SessionID: session.SessionID, Cause: err}
	}

	target := s.path(session.SessionID)
	tmp, err := os.CreateTemp(s.dir, sessionFilename(session.SessionID)+".tmp-*")
	if err != nil {
		return &PersistenceError{Op: "save", SessionID: session.SessionID, Cause: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &PersistenceError{Op: "save", SessionID: session.SessionID, Cause: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &PersistenceError{Op: "save", SessionID: session.SessionID, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "save", SessionID: session.SessionID, Cause: err}
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "save", SessionID: session.SessionID, Cause: fmt.Errorf("rename: %w", err)}
	}
	return nil
}
