package core

import (
	"encoding/json"
	"fmt"
)

// Envelope is the uniform result shape of every bridge operation.
//
// A successful envelope serializes as {"ok":true,"result":...}; a failed one
// as {"ok":false,"error":"..."}. Exactly one of result / error is present.
// Error is always a plain string regardless of where the failure came from.
type Envelope struct {
	OK     bool
	Result any
	Error  string
}

// Success wraps a value in a successful envelope. The value is kept as is.
func Success(v any) Envelope { return Envelope{OK: true, Result: v} }

// Failure converts err into a failed envelope. A nil error yields an empty
// error string.
func Failure(err error) Envelope {
	if err == nil {
		return Envelope{}
	}
	return Envelope{Error: err.Error()}
}

// Failuref builds a failed envelope from a format string.
func Failuref(format string, args ...any) Envelope {
	return Envelope{Error: fmt.Sprintf(format, args...)}
}

type successWire struct {
	OK     bool `json:"ok"`
	Result any  `json:"result"`
}

type failureWire struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// MarshalJSON implements json.Marshaler.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.OK {
		return json.Marshal(successWire{OK: true, Result: e.Result})
	}
	return json.Marshal(failureWire{OK: false, Error: e.Error})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var wire struct {
		OK     bool            `json:"ok"`
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*e = Envelope{OK: wire.OK}
	if !wire.OK {
		e.Error = wire.Error
		return nil
	}
	if len(wire.Result) == 0 {
		return nil
	}
	return json.Unmarshal(wire.Result, &e.Result)
}

// String serializes the envelope for use as function-result message content.
// A result that cannot be serialized turns into a failed envelope.
func (e Envelope) String() string {
	data, err := json.Marshal(e)
	if err != nil {
		data, _ = json.Marshal(Failuref("serialize result: %v", err))
	}
	return string(data)
}
