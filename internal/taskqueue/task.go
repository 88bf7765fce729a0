package taskqueue

import (
	"encoding/json"
	"fmt"
)

// Result status values
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Default TTLs in seconds, matching the queue wire contract
const (
	// DefaultResultTTL is applied at enqueue time when the caller does not
	// set one. It bounds how long a published result survives unconsumed.
	DefaultResultTTL = 120

	// DefaultPublishTTL is applied at publish time when the task carried no
	// usable TTL.
	DefaultPublishTTL = 300
)

// Task is a unit of asynchronous work. The job id is generated by the
// enqueuing side so a caller can start waiting for the result without a
// round-trip to the store.
type Task struct {
	JobID       string         `json:"job_id"`
	JobType     string         `json:"job_type"`
	Payload     map[string]any `json:"payload"`
	RequestedBy string         `json:"requested_by,omitempty"`
	ResultTTL   int            `json:"result_ttl"`
}

// UnmarshalJSON accepts requested_by as a string, a number, or null.
// Records written by older producers carry numeric chat-platform ids;
// they are normalized to their decimal string form.
func (t *Task) UnmarshalJSON(data []byte) error {
	type alias Task
	aux := struct {
		*alias
		RequestedBy json.RawMessage `json:"requested_by"`
	}{alias: (*alias)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.RequestedBy) == 0 || string(aux.RequestedBy) == "null" {
		t.RequestedBy = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(aux.RequestedBy, &s); err == nil {
		t.RequestedBy = s
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(aux.RequestedBy, &n); err == nil {
		t.RequestedBy = n.String()
		return nil
	}

	return fmt.Errorf("requested_by must be a string, number, or null, got %s", aux.RequestedBy)
}

// Result is the outcome of executing a Task. On the wire it is a flat JSON
// object: {"status": "ok"|"error", "error": "...", ...handler fields}.
type Result struct {
	Status string
	Error  string
	Fields map[string]any
}

// OK builds a success result carrying the handler's fields.
func OK(fields map[string]any) Result {
	return Result{Status: StatusOK, Fields: fields}
}

// Errorf builds an error result with a formatted message.
func Errorf(format string, args ...any) Result {
	return Result{Status: StatusError, Error: fmt.Sprintf(format, args...)}
}

// IsOK reports whether the result has ok status.
func (r *Result) IsOK() bool {
	return r.Status == StatusOK
}

// Field returns a handler-defined field by name.
func (r *Result) Field(name string) (any, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// StringField returns a handler-defined field as a string. Missing or
// non-string values yield "".
func (r *Result) StringField(name string) string {
	if v, ok := r.Fields[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// MarshalJSON flattens Fields into the top-level object alongside status
// and error. Handler fields named "status" or "error" are dropped rather
// than allowed to shadow the envelope.
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		if k == "status" || k == "error" {
			continue
		}
		out[k] = v
	}
	out["status"] = r.Status
	if r.Error != "" {
		out["error"] = r.Error
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON: status and error are plucked
// from the object, everything else lands in Fields.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if s, ok := raw["status"].(string); ok {
		r.Status = s
	}
	if e, ok := raw["error"].(string); ok {
		r.Error = e
	}
	delete(raw, "status")
	delete(raw, "error")

	if len(raw) > 0 {
		r.Fields = raw
	} else {
		r.Fields = nil
	}
	return nil
}
