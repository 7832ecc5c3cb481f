package csverror

import (
	"encoding/json"
	"errors"
)

// ErrBadInput is the sentinel carried by every aggregate failure
var ErrBadInput = errors.New("bad input")

// Params are the named values used to render a message template
type Params map[string]string

// CSVError is one structured header, row or file problem
type CSVError struct {
	Code    string
	Message string
	Row     int
	Column  string
	Params  Params
}

// MarshalJSON flattens Params next to the fixed fields, which is the shape
// client tooling parses.
func (e CSVError) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Params)+4)
	for k, v := range e.Params {
		out[k] = v
	}
	out["code"] = e.Code
	out["message"] = e.Message
	out["row"] = e.Row
	out["column"] = e.Column
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON
func (e *CSVError) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = CSVError{}
	for k, v := range raw {
		switch k {
		case "code":
			e.Code, _ = v.(string)
		case "message":
			e.Message, _ = v.(string)
		case "column":
			e.Column, _ = v.(string)
		case "row":
			if f, ok := v.(float64); ok {
				e.Row = int(f)
			}
		default:
			if s, ok := v.(string); ok {
				if e.Params == nil {
					e.Params = Params{}
				}
				e.Params[k] = s
			}
		}
	}
	return nil
}

func (e CSVError) Error() string {
	return e.Message
}

// Aggregate wraps the complete ordered list of structured errors of a file
type Aggregate struct {
	Errors []CSVError
}

// NewAggregate copies errs so later appends by the caller don't leak in
func NewAggregate(errs []CSVError) *Aggregate {
	cp := make([]CSVError, len(errs))
	copy(cp, errs)
	return &Aggregate{Errors: cp}
}

func (a *Aggregate) Error() string {
	return ErrBadInput.Error()
}

// Is makes errors.Is(err, ErrBadInput) hold for aggregates
func (a *Aggregate) Is(target error) bool {
	return target == ErrBadInput
}

// AsAggregate extracts the structured list from err, if any
func AsAggregate(err error) (*Aggregate, bool) {
	var agg *Aggregate
	if errors.As(err, &agg) {
		return agg, true
	}
	return nil, false
}
