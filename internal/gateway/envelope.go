package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is the uniform response shape of the configman backend.
// Exactly one of Success and Error is meaningful, discriminated by IsError.
type Envelope[T any] struct {
	Success   T         `json:"success"`
	Error     *APIError `json:"error"`
	IsError   bool      `json:"isError"`
	SessionID string    `json:"sessionId,omitempty"`
}

// APIError is the error half of an Envelope.
type APIError struct {
	ErrorCode    int             `json:"errorCode"`
	ErrorMessage string          `json:"errorMessage"`
	ErrorKey     string          `json:"errorKey,omitempty"`
	ErrorData    json.RawMessage `json:"errorData,omitempty"`
}

// sniff is the untyped view of an Envelope used by the interceptors. It
// tolerates bodies of any shape: fields that don't match are left zero.
type sniff struct {
	Error     *APIError
	IsError   bool
	SessionID string
}

func sniffEnvelope(data []byte) sniff {
	var raw struct {
		Error     json.RawMessage `json:"error"`
		IsError   json.RawMessage `json:"isError"`
		SessionID json.RawMessage `json:"sessionId"`
	}
	if len(data) == 0 || json.Unmarshal(data, &raw) != nil {
		return sniff{}
	}

	var s sniff
	// Only a literal true marks an application error; other values are falsy.
	_ = json.Unmarshal(raw.IsError, &s.IsError)
	s.SessionID = text(looseValue(raw.SessionID))

	var apiErr APIError
	if len(raw.Error) > 0 && json.Unmarshal(raw.Error, &apiErr) == nil {
		s.Error = &apiErr
	} else if len(raw.Error) > 0 {
		// Tolerate loosely typed error objects, e.g. a string errorCode.
		var loose struct {
			ErrorMessage any `json:"errorMessage"`
			ErrorKey     any `json:"errorKey"`
		}
		if json.Unmarshal(raw.Error, &loose) == nil {
			s.Error = &APIError{ErrorMessage: text(loose.ErrorMessage), ErrorKey: text(loose.ErrorKey)}
		}
	}
	return s
}

// looseValue decodes raw keeping numbers as json.Number, or nil when raw is
// absent or malformed.
func looseValue(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if dec.Decode(&v) != nil {
		return nil
	}
	return v
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 0 {
			return ""
		}
		return t.String()
	case bool:
		if !t {
			return ""
		}
	case float64:
		if t == 0 {
			return ""
		}
	}
	return fmt.Sprint(v)
}

// DisplayMessage picks the text shown to the user for e:
// errorMessage, then errorKey, then "undefined error". It never fails.
func DisplayMessage(e *APIError) string {
	if e != nil {
		if e.ErrorMessage != "" {
			return e.ErrorMessage
		}
		if e.ErrorKey != "" {
			return e.ErrorKey
		}
	}
	return "undefined error"
}

// sessionLabel returns the session id shown in notices, or "xxx" when absent.
func sessionLabel(id string) string {
	if id == "" {
		return "xxx"
	}
	return id
}

func errorDetail(sessionID string, e *APIError) string {
	return fmt.Sprintf("Session Id: %s\n%s", sessionLabel(sessionID), DisplayMessage(e))
}
