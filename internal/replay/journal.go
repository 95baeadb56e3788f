// Package replay records a session's inbound messages, gestures and outbound choices
// so the session can be persisted and re-run deterministically.
package replay

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cardengine/table-client/internal/client"
	"github.com/cardengine/table-client/internal/input"
	"github.com/cardengine/table-client/internal/protocol"
)

const journalVersion = 1

// EntryKind tags a journal entry.
type EntryKind string

const (
	EntryInbound  EntryKind = "inbound"
	EntryGesture  EntryKind = "gesture"
	EntryOutbound EntryKind = "outbound"
)

// Entry is one recorded step.
type Entry struct {
	Seq     int
	Kind    EntryKind
	Time    time.Time
	Raw     []byte // inbound payload or encoded outbound message
	Type    string // outbound message type
	Gesture input.Gesture
}

// Journal is an ordered log of one session. It implements client.Recorder.
type Journal struct {
	SessionID string
	Options   client.Options
	Entries   []Entry
	Cursor    int

	mu     sync.RWMutex
	paused bool
}

var _ client.Recorder = (*Journal)(nil)

// NewJournal creates an empty journal. An empty session id is replaced with a fresh uuid.
func NewJournal(sessionID string, opts client.Options) *Journal {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	opts.SessionID = sessionID
	return &Journal{
		SessionID: sessionID,
		Options:   opts,
		Entries:   make([]Entry, 0),
	}
}

// RecordInbound implements client.Recorder.
func (j *Journal) RecordInbound(raw []byte) {
	j.append(Entry{Kind: EntryInbound, Raw: append([]byte(nil), raw...)})
}

// RecordGesture implements client.Recorder.
func (j *Journal) RecordGesture(g input.Gesture) {
	if g.Target != nil {
		t := *g.Target
		g.Target = &t
	}
	j.append(Entry{Kind: EntryGesture, Gesture: g})
}

// RecordOutbound implements client.Recorder. Messages that fail to encode are stored
// with their type only.
func (j *Journal) RecordOutbound(msg protocol.Outbound) {
	e := Entry{Kind: EntryOutbound}
	if env, err := msg.Envelope(); err == nil {
		e.Type = env.Type
	}
	if raw, err := protocol.Encode(msg); err == nil {
		e.Raw = raw
	}
	j.append(e)
}

func (j *Journal) append(e Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.paused {
		return
	}
	e.Seq = len(j.Entries)
	e.Time = time.Now()
	j.Entries = append(j.Entries, e)
}

// Pause stops recording until Resume.
func (j *Journal) Pause() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.paused = true
}

// Resume continues recording.
func (j *Journal) Resume() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.paused = false
}

// Recording reports whether new entries are appended.
func (j *Journal) Recording() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return !j.paused
}

// Size returns the number of entries.
func (j *Journal) Size() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.Entries)
}

// Start rewinds the cursor.
func (j *Journal) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Cursor = 0
}

// Next returns the entry under the cursor and advances it.
func (j *Journal) Next() (Entry, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Cursor >= len(j.Entries) {
		return Entry{}, false
	}
	e := j.Entries[j.Cursor]
	j.Cursor++
	return e, true
}

// Previous steps the cursor back and returns that entry.
func (j *Journal) Previous() (Entry, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Cursor == 0 {
		return Entry{}, false
	}
	j.Cursor--
	return j.Entries[j.Cursor], true
}

// At returns entry i.
func (j *Journal) At(i int) (Entry, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if i < 0 || i >= len(j.Entries) {
		return Entry{}, false
	}
	return j.Entries[i], true
}

// Outbound returns the recorded outbound messages of type msgType in order.
// An empty msgType returns all of them.
func (j *Journal) Outbound(msgType string) [][]byte {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out [][]byte
	for _, e := range j.Entries {
		if e.Kind == EntryOutbound && (msgType == "" || e.Type == msgType) {
			out = append(out, e.Raw)
		}
	}
	return out
}

type journalMetadata struct {
	SessionID  string
	Options    client.Options
	Timestamp  time.Time
	Version    int
	EntryCount int
}

// Path returns the file a journal for sessionID is stored in.
func Path(directory, sessionID string) string {
	return filepath.Join(directory, fmt.Sprintf("%s.journal", sessionID))
}

// SaveToFile writes the journal gzipped to directory.
func (j *Journal) SaveToFile(directory string) error {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(Path(directory, j.SessionID))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	enc := gob.NewEncoder(gz)

	meta := journalMetadata{
		SessionID:  j.SessionID,
		Options:    j.Options,
		Timestamp:  time.Now(),
		Version:    journalVersion,
		EntryCount: len(j.Entries),
	}
	if err := enc.Encode(&meta); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	for i := range j.Entries {
		if err := enc.Encode(&j.Entries[i]); err != nil {
			return fmt.Errorf("failed to encode entry %d: %w", i, err)
		}
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to flush journal: %w", err)
	}
	return nil
}

// LoadFromFile reads the journal of sessionID from directory.
func LoadFromFile(directory, sessionID string) (*Journal, error) {
	file, err := os.Open(Path(directory, sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	dec := gob.NewDecoder(gz)

	var meta journalMetadata
	if err := dec.Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if meta.Version != journalVersion {
		return nil, fmt.Errorf("unsupported journal version: %d", meta.Version)
	}

	j := NewJournal(meta.SessionID, meta.Options)
	for i := 0; i < meta.EntryCount; i++ {
		var e Entry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to decode entry %d: %w", i, err)
		}
		j.Entries = append(j.Entries, e)
	}
	return j, nil
}
