package location

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/bizdir_api/internal/models"
)

// State is the detection state of a session.
type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateFetching   State = "fetching"
	StateGeocoding  State = "geocoding"
	StateMatching   State = "matching"
	StateResolved   State = "resolved"
	StateUnresolved State = "unresolved"
	StateAborted    State = "aborted"
)

var transitions = map[State][]State{
	StateIdle:       {StateRequesting},
	StateRequesting: {StateFetching, StateUnresolved, StateAborted},
	StateFetching:   {StateGeocoding, StateUnresolved, StateAborted},
	StateGeocoding:  {StateMatching, StateUnresolved, StateAborted},
	StateMatching:   {StateResolved, StateUnresolved, StateAborted},
}

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	_, ok := transitions[s]
	return !ok
}

func (s State) canMove(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// SelectionSource tells who produced the active selection.
type SelectionSource string

const (
	SourceDetected SelectionSource = "detected"
	SourceDefault  SelectionSource = "default"
	SourceManual   SelectionSource = "manual"
)

// SelectionEvent is published every time a session's selection is written.
type SelectionEvent struct {
	SessionID string                   `json:"sessionId"`
	Selection models.LocationSelection `json:"selection"`
	Source    SelectionSource          `json:"source"`
	Locked    bool                     `json:"locked"`
	At        time.Time                `json:"at"`
}

// SelectionPublisher makes a written selection visible outside the session.
type SelectionPublisher interface {
	PublishSelection(ctx context.Context, ev SelectionEvent) error
}

// Session holds the per-user location state: the active selection, the
// one-way selection lock and the single-shot detection latch.
type Session struct {
	ID     string
	Device *DevicePosition

	publisher SelectionPublisher

	mu        sync.Mutex
	locked    bool
	latched   bool
	state     State
	selection *models.LocationSelection
	source    SelectionSource
	run       uint64
	cancel    context.CancelFunc
	touchedAt time.Time
	reason    string
	status    string
}

// NewSession creates an idle, unlocked session. publisher may be nil.
func NewSession(id string, publisher SelectionPublisher) *Session {
	return &Session{
		ID:        id,
		Device:    NewDevicePosition(),
		publisher: publisher,
		state:     StateIdle,
		touchedAt: time.Now(),
	}
}

// Lock sets the selection lock. It is idempotent and cannot be undone.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = true
}

// IsLocked reports whether an explicit user choice has been made.
func (s *Session) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// State returns the current detection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Selection returns the active selection, if any.
func (s *Session) Selection() (models.LocationSelection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		return models.LocationSelection{}, false
	}
	return *s.selection, true
}

// SessionSnapshot is a consistent read of a session.
type SessionSnapshot struct {
	ID        string                    `json:"sessionId"`
	State     State                     `json:"state"`
	Locked    bool                      `json:"locked"`
	Detecting bool                      `json:"detecting"`
	Selection *models.LocationSelection `json:"selection,omitempty"`
	Source    SelectionSource           `json:"source,omitempty"`
	Reason    string                    `json:"reason,omitempty"`
	Status    string                    `json:"status,omitempty"`
}

// Snapshot returns the session state as one consistent value.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := SessionSnapshot{
		ID:        s.ID,
		State:     s.state,
		Locked:    s.locked,
		Detecting: s.latched && !s.state.Terminal(),
		Source:    s.source,
		Reason:    s.reason,
		Status:    s.status,
	}
	if s.selection != nil {
		sel := *s.selection
		snap.Selection = &sel
	}
	return snap
}

// SelectManual records an explicit user choice. The lock is set in the same
// critical section as the write, and any in-flight detection is cancelled.
func (s *Session) SelectManual(ctx context.Context, sel models.LocationSelection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locked = true
	if s.latched && !s.state.Terminal() {
		s.state = StateAborted
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.writeLocked(ctx, sel, SourceManual)
}

// CancelDetection cancels an in-flight detection run. The latch stays set,
// so the session will never detect again. It reports whether a run was
// in flight.
func (s *Session) CancelDetection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.latched || s.state.Terminal() || s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// begin is the detection entry guard. The lock and latch are evaluated and
// the latch is set in one critical section, before any blocking work.
func (s *Session) begin(parent context.Context) (context.Context, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return nil, 0, ErrSelectionLocked
	}
	if s.latched {
		return nil, 0, ErrAlreadyStarted
	}
	s.latched = true
	s.state = StateRequesting
	s.run++
	s.touchedAt = time.Now()

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	return ctx, s.run, nil
}

// advance moves an active run to the next non-terminal state.
func (s *Session) advance(ctx context.Context, run uint64, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(ctx, run); err != nil {
		return err
	}
	if !s.state.canMove(to) {
		return fmt.Errorf("%s -> %s: %w", s.state, to, ErrIllegalTransition)
	}
	s.state = to
	return nil
}

// commit ends an active run in a terminal state and, when sel is non-nil,
// writes the selection. It is the only place a run writes.
func (s *Session) commit(ctx context.Context, run uint64, to State, sel *models.LocationSelection, source SelectionSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(ctx, run); err != nil {
		return err
	}
	if !s.state.canMove(to) {
		return fmt.Errorf("%s -> %s: %w", s.state, to, ErrIllegalTransition)
	}
	s.state = to
	if s.cancel != nil {
		s.cancel()
	}
	if sel != nil {
		s.writeLocked(ctx, *sel, source)
	}
	return nil
}

// abort ends a run that can no longer write. It is a no-op when the session
// already reached a terminal state.
func (s *Session) abort(run uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run != s.run || s.state.Terminal() {
		return
	}
	s.state = StateAborted
	if s.cancel != nil {
		s.cancel()
	}
}

// activeLocked re-validates that run is still the one allowed to write.
func (s *Session) activeLocked(ctx context.Context, run uint64) error {
	if s.locked {
		return ErrSelectionLocked
	}
	if run != s.run || s.state.Terminal() {
		return ErrRunSuperseded
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRunSuperseded, err)
	}
	return nil
}

func (s *Session) writeLocked(ctx context.Context, sel models.LocationSelection, source SelectionSource) {
	s.selection = &sel
	s.source = source
	s.touchedAt = time.Now()
	if s.publisher == nil {
		return
	}
	ev := SelectionEvent{
		SessionID: s.ID,
		Selection: sel,
		Source:    source,
		Locked:    s.locked,
		At:        s.touchedAt,
	}
	if err := s.publisher.PublishSelection(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn().Err(err).Str("session_id", s.ID).Msg("failed to publish location selection")
	}
}

// recordOutcome keeps the user-facing status of the run that ended.
func (s *Session) recordOutcome(run uint64, out *Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run != s.run {
		return
	}
	s.reason = out.Reason
	s.status = out.Status
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = time.Now()
}
