package shadow

import (
	"encoding/json"
	"fmt"
)

// State is the state section of a document.
type State struct {
	Reported json.RawMessage `json:"reported,omitempty"`
	Desired  json.RawMessage `json:"desired,omitempty"`
	Delta    json.RawMessage `json:"delta,omitempty"`
}

// Document is a shadow document or an update request.
type Document struct {
	State       State           `json:"state"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Version     int64           `json:"version,omitempty"`
	Timestamp   int64           `json:"timestamp,omitempty"`
	ClientToken string          `json:"clientToken,omitempty"`
}

// Delta is the message on the update/delta topic, State contains only
// the differing keys.
type Delta struct {
	State     json.RawMessage `json:"state"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Version   int64           `json:"version"`
	Timestamp int64           `json:"timestamp"`
}

// Decode unmarshals the delta state into v.
func (d *Delta) Decode(v interface{}) error {
	return json.Unmarshal(d.State, v)
}

// RejectedError is the error document of a rejected request.
type RejectedError struct {
	Code        int    `json:"code"`
	Message     string `json:"message"`
	Timestamp   int64  `json:"timestamp,omitempty"`
	ClientToken string `json:"clientToken,omitempty"`
}

// Error implements error.
func (e *RejectedError) Error() string {
	return fmt.Sprintf("shadow rejected %d: %s", e.Code, e.Message)
}

// NotFound determines if the thing has no shadow yet.
func (e *RejectedError) NotFound() bool {
	return e.Code == 404
}

// Request is the payload of get and update requests.
type Request struct {
	State       *State `json:"state,omitempty"`
	ClientToken string `json:"clientToken,omitempty"`
}

// ReportRequest builds an update request with the reported state.
func ReportRequest(reported interface{}, token string) ([]byte, error) {
	raw, err := json.Marshal(reported)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Request{State: &State{Reported: raw}, ClientToken: token})
}
