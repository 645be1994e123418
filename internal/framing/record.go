package framing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// lengthPrefixSize is the 4-byte big-endian length prefix used for each
// MLS message record inside a motion video file on the DS (spec.md
// section 4.2, section 6 "Video file on DS").
const lengthPrefixSize = 4

// ErrTruncatedRecord is returned when a record's declared length does
// not fit in the remaining bytes.
var ErrTruncatedRecord = errors.New("framing: truncated record")

// WriteRecord appends a 4-byte big-endian length prefix followed by msg
// to w.
func WriteRecord(w io.Writer, msg []byte) error {
	var lenBuf [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(msg)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("framing: write record length: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("framing: write record body: %w", err)
	}
	return nil
}

// ReadRecord reads one length-prefixed record from r.
func ReadRecord(r io.Reader) ([]byte, error) {
	var lenBuf [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedRecord, err)
	}
	return buf, nil
}

// ReadAllRecords reads every length-prefixed record from r until EOF.
func ReadAllRecords(r io.Reader) ([][]byte, error) {
	var records [][]byte
	for {
		rec, err := ReadRecord(r)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}
