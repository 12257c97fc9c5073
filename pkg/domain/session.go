package domain

import "time"

// StepState is the persisted form of the stepped-result store.
type StepState struct {
	Result       *ScoringResult `json:"result,omitempty"`
	IsError      bool           `json:"isError"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	CurrentStep  int            `json:"currentStep"`
}

// NewStepState returns the idle state: no result, no error, no step selected.
func NewStepState() StepState {
	return StepState{CurrentStep: -1}
}

// Session is one playground workspace: the last request and its stepped result.
type Session struct {
	ID        string          `json:"id"`
	Request   *ScoringRequest `json:"request,omitempty"`
	Steps     StepState       `json:"steps"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewSession creates an idle session.
func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		Steps:     NewStepState(),
		UpdatedAt: time.Now().UTC(),
	}
}
