// Package session keeps per-user search sessions: the result list, the cursor
// of the track browser, and the download pipeline state that locks it.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/m3rciful/spotdl-bot/internal/pager"
	"github.com/m3rciful/spotdl-bot/internal/track"
)

// ErrIndexOutOfRange is returned for a press carrying an index the session
// never rendered.
var ErrIndexOutOfRange = errors.New("session: track index out of range")

// Session is one user's search. The track list is fixed at creation.
type Session struct {
	mu       sync.Mutex
	tracks   []track.Track
	cursor   int
	message  int
	pipeline *Machine
}

// New creates an unlocked session positioned on the first track.
func New(tracks []track.Track) (*Session, error) {
	if len(tracks) == 0 {
		return nil, fmt.Errorf("session: empty track list")
	}
	if len(tracks) > track.MaxResults {
		tracks = tracks[:track.MaxResults]
	}
	return &Session{
		tracks:   append([]track.Track(nil), tracks...),
		pipeline: NewMachine(),
	}, nil
}

// Snapshot is a consistent read of a session for rendering.
type Snapshot struct {
	Track  track.Track
	Cursor int
	Total  int
	Locked bool
}

// Snapshot returns the current track, cursor and lock flag.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Track:  s.tracks[s.cursor],
		Cursor: s.cursor,
		Total:  len(s.tracks),
		Locked: s.pipeline.State() != StateIdle,
	}
}

// Locked reports whether a download was started from this session.
func (s *Session) Locked() bool {
	return s.pipeline.State() != StateIdle
}

// Pipeline exposes the session's state machine to the download orchestrator.
func (s *Session) Pipeline() *Machine {
	return s.pipeline
}

// Bind records the id of the message rendering this session's browser.
func (s *Session) Bind(messageID int) {
	s.mu.Lock()
	s.message = messageID
	s.mu.Unlock()
}

// Owns reports whether messageID is the browser bound to this session.
// An unbound session owns no message.
func (s *Session) Owns(messageID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message != 0 && s.message == messageID
}

// TrackAt returns the track rendered at index.
func (s *Session) TrackAt(index int) (track.Track, error) {
	if index < 0 || index >= len(s.tracks) {
		return track.Track{}, ErrIndexOutOfRange
	}
	return s.tracks[index], nil
}

// Move applies a navigation action pressed on the page rendered for from.
// The new cursor depends only on from, so repeated or reordered presses of
// the same button land on the same page. Locked sessions are left untouched
// and reported with ok=false.
func (s *Session) Move(from int, action pager.Action) (snap Snapshot, ok bool, err error) {
	if from < 0 || from >= len(s.tracks) {
		return Snapshot{}, false, ErrIndexOutOfRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipeline.State() != StateIdle {
		return s.snapshotLocked(), false, nil
	}
	s.cursor = pager.Next(len(s.tracks), from, action)
	return s.snapshotLocked(), true, nil
}

// Select locks the session on the track at index and returns it. The lock is
// the Idle -> Resolving transition; a second call fails with ErrIllegalTransition.
func (s *Session) Select(index int) (track.Track, error) {
	if index < 0 || index >= len(s.tracks) {
		return track.Track{}, ErrIndexOutOfRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.pipeline.Begin(); err != nil {
		return track.Track{}, err
	}
	s.cursor = index
	return s.tracks[index], nil
}
