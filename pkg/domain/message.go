package domain

import (
	"encoding/json"
	"fmt"
)

// MessageType names the frames exchanged between the supervisor and a worker.
type MessageType string

const (
	MessageInit        MessageType = "init"        // supervisor -> worker: provision runtime
	MessageInitialized MessageType = "initialized" // worker -> supervisor: ready
	MessageScore       MessageType = "score"       // supervisor -> worker: run evaluation
	MessageResult      MessageType = "result"      // worker -> supervisor: evaluation output
	MessageError       MessageType = "error"       // worker -> supervisor: init or eval failure
)

// Message is one JSON frame of the worker protocol.
// Only the fields relevant to Type are populated. A reply echoes the ID of
// the request it answers; frames the worker emits on its own carry no ID.
type Message struct {
	ID      string          `json:"id,omitempty"`
	Type    MessageType     `json:"type"`
	BaseURL string          `json:"baseURL,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    ErrorKind       `json:"code,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewInitMessage builds the provisioning request.
func NewInitMessage(baseURL string) Message {
	return Message{Type: MessageInit, BaseURL: baseURL}
}

// NewInitializedMessage builds the readiness acknowledgement.
func NewInitializedMessage() Message {
	return Message{Type: MessageInitialized}
}

// NewErrorMessage builds an error frame. code may be empty.
func NewErrorMessage(code ErrorKind, text string) Message {
	return Message{Type: MessageError, Code: code, Error: text}
}

// NewScoreMessage encodes req into a score frame.
func NewScoreMessage(req ScoringRequest) (Message, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Message{}, NewError(KindSerializationFailure, fmt.Sprintf("scoring request is not serializable: %v", err), err)
	}
	return Message{Type: MessageScore, Payload: payload}, nil
}

// NewResultMessage encodes res into a result frame.
func NewResultMessage(res *ScoringResult) (Message, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return Message{}, NewError(KindSerializationFailure, fmt.Sprintf("scoring result is not serializable: %v", err), err)
	}
	return Message{Type: MessageResult, Payload: payload}, nil
}

// Request decodes the payload of a score frame.
func (m Message) Request() (ScoringRequest, error) {
	var req ScoringRequest
	if m.Type != MessageScore {
		return req, fmt.Errorf("message %q does not carry a scoring request", m.Type)
	}
	if err := json.Unmarshal(m.Payload, &req); err != nil {
		return req, NewError(KindSerializationFailure, fmt.Sprintf("malformed scoring request: %v", err), err)
	}
	return req, nil
}

// Result decodes the payload of a result frame.
func (m Message) Result() (*ScoringResult, error) {
	if m.Type != MessageResult {
		return nil, fmt.Errorf("message %q does not carry a scoring result", m.Type)
	}
	var res ScoringResult
	if err := json.Unmarshal(m.Payload, &res); err != nil {
		return nil, NewError(KindSerializationFailure, fmt.Sprintf("malformed scoring result: %v", err), err)
	}
	if res.ExecutionSteps == nil {
		res.ExecutionSteps = []ExecutionStep{}
	}
	return &res, nil
}
