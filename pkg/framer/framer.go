// Package framer splits a byte stream carrying Server-Sent Events into the
// value portion of each "data:" line, tolerating arbitrary chunk boundaries.
package framer

import (
	"bytes"
	"errors"
)

// DefaultMaxBuffered is the default upper bound on buffered-but-incomplete
// bytes before the framer reports overflow.
const DefaultMaxBuffered = 1 << 20 // 1 MiB

// ErrBufferOverflow is returned by Push when more than MaxBuffered bytes
// have accumulated without completing a line.
var ErrBufferOverflow = errors.New("framer: buffered data exceeds limit without a complete line")

// doneSentinel is the literal value of a "data: [DONE]" record.
const doneSentinel = "[DONE]"

// Framer consumes an unbounded, arbitrarily-chunked byte stream and produces
// records: the value portion of each "data:" line. It never fails on its own
// account except when the internal buffer grows past MaxBuffered without a
// newline ever completing a line (see Push).
//
// A Framer is not safe for concurrent use; it is owned by a single request.
type Framer struct {
	buf       []byte
	maxBuffer int
	closed    bool
	sawDone   bool
}

// New creates a Framer with the default buffer limit.
func New() *Framer {
	return &Framer{maxBuffer: DefaultMaxBuffered}
}

// NewWithLimit creates a Framer with a caller-specified buffer limit.
func NewWithLimit(maxBuffer int) *Framer {
	return &Framer{maxBuffer: maxBuffer}
}

// Done reports whether the framer has seen the "[DONE]" sentinel and will
// discard any further input.
func (f *Framer) Done() bool {
	return f.sawDone
}

// Push appends chunk to the internal buffer and extracts every complete
// record it can. A record is the bytes following "data:" (and a single
// optional leading space) up to but excluding the line terminator.
//
// Lines not beginning with "data:" are discarded silently (SSE comments,
// "event:"/"id:" fields, blank separators). Once "[DONE]" is seen, the
// framer is closed: the returned records for that call still include
// any records that appeared before the sentinel, but all subsequent Push
// calls return no records.
//
// Fragmentation across calls never splits a record: an incomplete line is
// retained in the internal buffer until more input completes it. If the
// buffer exceeds maxBuffer bytes without completing a line, Push returns
// ErrBufferOverflow and the framer must not be used further.
func (f *Framer) Push(chunk []byte) ([][]byte, error) {
	if f.closed {
		return nil, nil
	}

	f.buf = append(f.buf, chunk...)

	var records [][]byte
	for {
		idx := bytes.IndexByte(f.buf, '\n')
		if idx < 0 {
			break
		}
		line := f.buf[:idx]
		f.buf = f.buf[idx+1:]

		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}

		value, ok := stripDataPrefix(line)
		if !ok {
			continue
		}

		if string(value) == doneSentinel {
			f.sawDone = true
			f.closed = true
			return records, nil
		}

		rec := make([]byte, len(value))
		copy(rec, value)
		records = append(records, rec)
	}

	if f.maxBuffer > 0 && len(f.buf) > f.maxBuffer {
		f.closed = true
		return records, ErrBufferOverflow
	}

	return records, nil
}

// stripDataPrefix reports whether line begins with "data:" and returns the
// value with at most one leading space removed.
func stripDataPrefix(line []byte) ([]byte, bool) {
	const prefix = "data:"
	if len(line) < len(prefix) {
		return nil, false
	}
	for i := 0; i < len(prefix); i++ {
		if line[i] != prefix[i] {
			return nil, false
		}
	}
	value := line[len(prefix):]
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	return value, true
}
