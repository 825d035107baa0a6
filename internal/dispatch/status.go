package dispatch

import "fmt"

// Status is an interaction model status code.
type Status uint8

const (
	StatusSuccess               Status = 0x00
	StatusFailure               Status = 0x01
	StatusUnsupportedAccess     Status = 0x7E
	StatusUnsupportedEndpoint   Status = 0x7F
	StatusInvalidAction         Status = 0x80
	StatusUnsupportedAttribute  Status = 0x86
	StatusConstraintError       Status = 0x87
	StatusUnsupportedWrite      Status = 0x88
	StatusResourceExhausted     Status = 0x89
	StatusNotFound              Status = 0x8B
	StatusInvalidDataType       Status = 0x8D
	StatusTimeout               Status = 0x94
	StatusBusy                  Status = 0x9C
	StatusUnsupportedCluster    Status = 0xC3
	StatusNeedsTimedInteraction Status = 0xC6
	StatusTimedRequestMismatch  Status = 0xC9
)

var statusNames = map[Status]string{
	StatusSuccess:               "SUCCESS",
	StatusFailure:               "FAILURE",
	StatusUnsupportedAccess:     "UNSUPPORTED_ACCESS",
	StatusUnsupportedEndpoint:   "UNSUPPORTED_ENDPOINT",
	StatusInvalidAction:         "INVALID_ACTION",
	StatusUnsupportedAttribute:  "UNSUPPORTED_ATTRIBUTE",
	StatusConstraintError:       "CONSTRAINT_ERROR",
	StatusUnsupportedWrite:      "UNSUPPORTED_WRITE",
	StatusResourceExhausted:     "RESOURCE_EXHAUSTED",
	StatusNotFound:              "NOT_FOUND",
	StatusInvalidDataType:       "INVALID_DATA_TYPE",
	StatusTimeout:               "TIMEOUT",
	StatusBusy:                  "BUSY",
	StatusUnsupportedCluster:    "UNSUPPORTED_CLUSTER",
	StatusNeedsTimedInteraction: "NEEDS_TIMED_INTERACTION",
	StatusTimedRequestMismatch:  "TIMED_REQUEST_MISMATCH",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("0x%02X", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the outcome of a write, delivered through the Callback.
// Err is set for failures that never produced a device status, such as a
// closed link or an expired request.
type Result struct {
	Status Status
	Err    error
}

// OK reports whether the device accepted the write.
func (r Result) OK() bool {
	return r.Err == nil && r.Status == StatusSuccess
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Status, r.Err)
	}
	return r.Status.String()
}

// Callback receives the write outcome once the device answers or the
// transport gives up. It may be called from any goroutine.
type Callback func(Result)
