package transport

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"matter-go-home/internal/event"
)

// FrameKind identifies the frame payload.
type FrameKind uint8

const (
	KindWriteRequest  FrameKind = 1
	KindWriteResponse FrameKind = 2
	KindEventReport   FrameKind = 3
)

func (k FrameKind) String() string {
	switch k {
	case KindWriteRequest:
		return "write_request"
	case KindWriteResponse:
		return "write_response"
	case KindEventReport:
		return "event_report"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Frame is the CBOR message exchanged with the co-processor.
type Frame struct {
	Kind      FrameKind `cbor:"1,keyasint"`
	Seq       uint32    `cbor:"2,keyasint,omitempty"`
	Node      uint64    `cbor:"3,keyasint,omitempty"`
	Endpoint  uint16    `cbor:"4,keyasint,omitempty"`
	Cluster   uint32    `cbor:"5,keyasint,omitempty"`
	Attribute uint32    `cbor:"6,keyasint,omitempty"`
	// TimedMs is the timed interaction window; zero for a plain write.
	TimedMs uint32        `cbor:"7,keyasint,omitempty"`
	Status  uint8         `cbor:"8,keyasint,omitempty"`
	Value   any           `cbor:"9,keyasint"`
	Null    bool          `cbor:"10,keyasint,omitempty"`
	Event   *event.Report `cbor:"11,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("transport: cbor encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("transport: cbor decoder mode: %v", err))
	}
}

// Marshal encodes v with the link's deterministic CBOR options.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR produced by Marshal or the co-processor.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

func encodeFrame(f *Frame) ([]byte, error) {
	data, err := Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.Kind, err)
	}
	return data, nil
}

func decodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &f, nil
}
