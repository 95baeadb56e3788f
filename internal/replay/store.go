package replay

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cardengine/table-client/internal/client"
	"github.com/cardengine/table-client/internal/protocol"
	"github.com/cardengine/table-client/internal/session"
)

// ErrDiverged is returned when a re-run produces different outbound choices than recorded.
var ErrDiverged = errors.New("replay diverged from journal")

// Store keeps journals of running sessions and persists them to a directory.
type Store struct {
	logger   *zap.Logger
	mu       sync.RWMutex
	journals map[string]*Journal
	saveDir  string
}

// NewStore creates a store writing to saveDir.
func NewStore(logger *zap.Logger, saveDir string) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		logger:   logger,
		journals: make(map[string]*Journal),
		saveDir:  saveDir,
	}
}

// StartRecording opens a journal for a session.
func (s *Store) StartRecording(sessionID string, opts client.Options) *Journal {
	j := NewJournal(sessionID, opts)

	s.mu.Lock()
	s.journals[j.SessionID] = j
	s.mu.Unlock()

	s.logger.Info("started session journal", zap.String("session_id", j.SessionID))
	return j
}

// Journal returns the open journal for a session.
func (s *Store) Journal(sessionID string) (*Journal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.journals[sessionID]
	return j, ok
}

// Save persists a journal and forgets it.
func (s *Store) Save(sessionID string) error {
	s.mu.Lock()
	j, ok := s.journals[sessionID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("no journal found for session %s", sessionID)
	}
	delete(s.journals, sessionID)
	s.mu.Unlock()

	if err := j.SaveToFile(s.saveDir); err != nil {
		return fmt.Errorf("failed to save journal: %w", err)
	}
	s.logger.Info("saved session journal",
		zap.String("session_id", sessionID),
		zap.Int("entry_count", j.Size()),
		zap.String("directory", s.saveDir),
	)
	return nil
}

// Load reads a persisted journal.
func (s *Store) Load(sessionID string) (*Journal, error) {
	j, err := LoadFromFile(s.saveDir, sessionID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("loaded session journal",
		zap.String("session_id", sessionID),
		zap.Int("entry_count", j.Size()),
	)
	return j, nil
}

// Clear forgets a journal without saving it.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.journals, sessionID)
}

// Result is the outcome of re-running a journal.
type Result struct {
	Snapshot session.Snapshot
	Checksum string
	// Choices holds the encoded choices the re-run sent, in order.
	Choices [][]byte
}

// Run feeds every recorded inbound message and gesture into a fresh client built from the
// journal's options and compares the choices it sends against the recorded ones.
func Run(j *Journal, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var choices [][]byte
	sender := protocol.SenderFunc(func(msg protocol.Outbound) error {
		env, err := msg.Envelope()
		if err != nil || env.Type != protocol.TypeChoice {
			return err
		}
		raw, err := protocol.Encode(msg)
		if err != nil {
			return err
		}
		choices = append(choices, raw)
		return nil
	})

	// strict checks are for live sessions; a replay reports instead of panicking
	opts := j.Options
	opts.StrictInvariants = false
	c := client.New(opts, sender, nil, logger.Named("replay"))

	j.Start()
	for {
		e, ok := j.Next()
		if !ok {
			break
		}
		switch e.Kind {
		case EntryInbound:
			c.HandleRaw(e.Raw)
		case EntryGesture:
			c.HandleGesture(e.Gesture)
		}
	}

	snap := c.Snapshot()
	sum, err := snap.Checksum()
	if err != nil {
		return Result{}, fmt.Errorf("failed to checksum replayed session: %w", err)
	}
	res := Result{Snapshot: snap, Checksum: sum, Choices: choices}

	recorded := j.Outbound(protocol.TypeChoice)
	if len(recorded) != len(choices) {
		return res, fmt.Errorf("%w: recorded %d choices, replay sent %d", ErrDiverged, len(recorded), len(choices))
	}
	for i := range recorded {
		if !bytes.Equal(recorded[i], choices[i]) {
			return res, fmt.Errorf("%w: choice %d is %s, recorded %s", ErrDiverged, i, choices[i], recorded[i])
		}
	}

	logger.Info("journal replayed",
		zap.String("session_id", j.SessionID),
		zap.Int("entry_count", j.Size()),
		zap.Int("choice_count", len(choices)),
		zap.String("checksum", sum),
	)
	return res, nil
}
