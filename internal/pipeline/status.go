package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActivityStatus is the canonical state of a pipeline node.
type ActivityStatus string

const (
	// StatusNotApplicable means the node does not apply to this customer.
	// It is the zero value and travels as JSON null.
	StatusNotApplicable ActivityStatus = ""
	StatusNotStarted    ActivityStatus = "not_started"
	StatusStarted       ActivityStatus = "started"
	StatusCompleted     ActivityStatus = "completed"
)

// allowed lists the legal edges out of each status.
var allowed = map[ActivityStatus][]ActivityStatus{
	StatusNotStarted:    {StatusStarted, StatusNotApplicable},
	StatusNotApplicable: {StatusNotStarted},
	StatusStarted:       {StatusCompleted},
	StatusCompleted:     nil,
}

// ParseStatus accepts the wire names, plus "null" and "not_applicable" for
// the not-applicable state.
func ParseStatus(s string) (ActivityStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "not_applicable":
		return StatusNotApplicable, nil
	case string(StatusNotStarted):
		return StatusNotStarted, nil
	case string(StatusStarted):
		return StatusStarted, nil
	case string(StatusCompleted):
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("unknown activity status %q", s)
}

// String returns the wire name, "not_applicable" for the zero value.
func (s ActivityStatus) String() string {
	if s == StatusNotApplicable {
		return "not_applicable"
	}
	return string(s)
}

// CanTransition reports whether from -> to is a legal edge:
// not_started -> started -> completed, and not_started <-> not_applicable.
func CanTransition(from, to ActivityStatus) bool {
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s ActivityStatus) MarshalJSON() ([]byte, error) {
	if s == StatusNotApplicable {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

func (s *ActivityStatus) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = StatusNotApplicable
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UnmarshalText lets text decoders (YAML fixtures, query params) use the
// same names as ParseStatus.
func (s *ActivityStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Indicator is the icon shown next to a node in the list and grid views. It
// is derived from the status and the on-time flags, never stored.
type Indicator string

const (
	IndicatorClock    Indicator = "clock"
	IndicatorCheck    Indicator = "check"
	IndicatorQuestion Indicator = "question"
	IndicatorBan      Indicator = "ban"
	IndicatorError    Indicator = "error"
	IndicatorSuccess  Indicator = "success"
)

// Classify maps a node to its indicator:
//   - not applicable: ban
//   - not started: clock while the start is on time, error once late,
//     question when there is no start forecast
//   - started: clock while the completion is on time, error once late
//   - completed: success when finished on time, check otherwise
func Classify(status ActivityStatus, cols *StatusColumnsInfo) Indicator {
	switch status {
	case StatusNotApplicable:
		return IndicatorBan
	case StatusNotStarted:
		if cols == nil || cols.StartIsOnTime == nil {
			return IndicatorQuestion
		}
		if *cols.StartIsOnTime {
			return IndicatorClock
		}
		return IndicatorError
	case StatusStarted:
		if cols == nil || cols.IsOnTime {
			return IndicatorClock
		}
		return IndicatorError
	case StatusCompleted:
		if cols != nil && cols.IsOnTime {
			return IndicatorSuccess
		}
		return IndicatorCheck
	}
	return IndicatorQuestion
}
