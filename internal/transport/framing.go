package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

const (
	lengthPrefixSize = 4

	// DefaultMaxFrameSize bounds a single frame payload.
	DefaultMaxFrameSize = 64 * 1024
)

// Framing errors.
var (
	ErrFrameTooLarge  = errors.New("transport: frame too large")
	ErrFrameEmpty     = errors.New("transport: frame is empty")
	ErrFrameTruncated = errors.New("transport: frame truncated")
)

// frameWriter writes 4-byte big-endian length-prefixed frames.
type frameWriter struct {
	mu      sync.Mutex
	w       io.Writer
	maxSize uint32
}

func (fw *frameWriter) writeFrame(data []byte) error {
	if len(data) == 0 {
		return ErrFrameEmpty
	}
	if uint32(len(data)) > fw.maxSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(data), fw.maxSize)
	}

	buf := make([]byte, lengthPrefixSize+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[lengthPrefixSize:], data)

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if _, err := fw.w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// frameReader reads frames written by frameWriter. Not safe for concurrent use.
type frameReader struct {
	r       io.Reader
	maxSize uint32
	lenBuf  [lengthPrefixSize]byte
}

func (fr *frameReader) readFrame() ([]byte, error) {
	if _, err := io.ReadFull(fr.r, fr.lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("read length prefix: %w", err)
	}

	n := binary.BigEndian.Uint32(fr.lenBuf[:])
	if n == 0 {
		return nil, ErrFrameEmpty
	}
	if n > fr.maxSize {
		// Skip the payload so the next read starts on a frame boundary.
		if _, err := io.CopyN(io.Discard, fr.r, int64(n)); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrFrameTruncated
			}
			return nil, fmt.Errorf("discard payload: %w", err)
		}
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, fr.maxSize)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return payload, nil
}
