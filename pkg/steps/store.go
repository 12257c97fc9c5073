// Package steps holds the last evaluation outcome and a cursor over its
// execution trace.
//
// The store moves between three phases: idle (nothing held), a result, or an
// error. The cursor is -1 when no step is selected and otherwise stays within
// [0, N-1] where N is the number of recorded steps.
package steps

import (
	"sync"

	"github.com/aretw0/scorebridge/pkg/domain"
)

// NoStep is the cursor value meaning "no step selected".
const NoStep = -1

// Store is the stepped-result state machine. Safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	result       *domain.ScoringResult
	isError      bool
	errorMessage string
	current      int
	running      bool
	initializing bool
}

// New returns an idle store.
func New() *Store {
	return &Store{current: NoStep}
}

// FromState restores a store from its persisted form. An out-of-range cursor
// is clamped.
func FromState(s domain.StepState) *Store {
	st := &Store{
		result:       s.Result,
		isError:      s.IsError,
		errorMessage: s.ErrorMessage,
		current:      NoStep,
	}
	if st.isError {
		st.result = nil
	}
	st.current = st.clamp(s.CurrentStep)
	return st
}

// State returns the persisted form of the store.
func (s *Store) State() domain.StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.StepState{
		Result:       s.result,
		IsError:      s.isError,
		ErrorMessage: s.errorMessage,
		CurrentStep:  s.current,
	}
}

// SetResult replaces the held result and clears any error. The cursor is
// reset only when r is a different result from the one already held.
func (s *Store) SetResult(r *domain.ScoringResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r != s.result {
		s.current = NoStep
	}
	s.result = r
	s.isError = false
	s.errorMessage = ""
}

// SetError clears the result and records message.
func (s *Store) SetError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = nil
	s.isError = true
	s.errorMessage = message
	s.current = NoStep
}

// Clear returns the store to idle.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = nil
	s.isError = false
	s.errorMessage = ""
	s.current = NoStep
}

// SetRunning flags an evaluation in progress.
func (s *Store) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
}

// SetInitializing flags a runtime provisioning in progress.
func (s *Store) SetInitializing(initializing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initializing = initializing
}

// Running reports whether an evaluation is in progress.
func (s *Store) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Initializing reports whether the runtime is being provisioned.
func (s *Store) Initializing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initializing
}

// Result returns the held result, or nil.
func (s *Store) Result() *domain.ScoringResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Err returns the recorded error message and whether the store holds an error.
func (s *Store) Err() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errorMessage, s.isError
}

// CurrentStep returns the cursor.
func (s *Store) CurrentStep() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SetCurrentStep moves the cursor to i, clamped to [-1, N-1].
func (s *Store) SetCurrentStep(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.clamp(i)
	return s.current
}

// NextStep advances the cursor. It is a no-op on the last step or without a result.
func (s *Store) NextStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < s.result.StepCount()-1 {
		s.current++
	}
	return s.current
}

// PreviousStep moves the cursor back. It never goes below step 0.
func (s *Store) PreviousStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current > 0 {
		s.current--
	}
	return s.current
}

// Current returns the selected execution step, if any.
func (s *Store) Current() (domain.ExecutionStep, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current < 0 || s.current >= s.result.StepCount() {
		return domain.ExecutionStep{}, false
	}
	return s.result.ExecutionSteps[s.current], true
}

// StepCount returns the number of steps in the held result.
func (s *Store) StepCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result.StepCount()
}

func (s *Store) clamp(i int) int {
	n := s.result.StepCount()
	switch {
	case i < NoStep:
		return NoStep
	case i > n-1:
		return n - 1
	default:
		return i
	}
}
