package framing

import "errors"

// CommitChunkNumber is reserved for the session-opening commit message;
// fMP4 fragment chunks start at 1 and increase monotonically (spec.md
// section 4.2, "Livestream framing").
const CommitChunkNumber = 0

// ErrLivestreamReorder is returned when a received livestream chunk's
// embedded sequence number is not the next expected one (spec.md
// section 8, scenario 6).
var ErrLivestreamReorder = errors.New("framing: livestream chunk received out of order")

// EncodeLivestreamChunk prepends the 8-byte big-endian sequence number
// to an fMP4 fragment, ready to be sealed as an independent application
// message.
func EncodeLivestreamChunk(seq uint64, fragment []byte) []byte {
	return EncodeChunk(seq, fragment)
}

// DecodeLivestreamChunk splits a decrypted livestream application
// message into its embedded sequence number and fragment bytes.
func DecodeLivestreamChunk(plaintext []byte) (seq uint64, fragment []byte, ok bool) {
	return DecodeChunk(plaintext)
}

// Sequencer enforces strictly increasing livestream chunk delivery
// starting at 1, so a malicious delivery service cannot reorder
// fragments by serving them out of upload order.
type Sequencer struct {
	next uint64
}

// NewSequencer creates a Sequencer expecting the first fragment chunk
// (sequence 1).
func NewSequencer() *Sequencer {
	return &Sequencer{next: 1}
}

// Accept validates an incoming chunk's embedded sequence number and
// advances the expectation on success.
func (s *Sequencer) Accept(plaintext []byte) ([]byte, error) {
	seq, fragment, ok := DecodeLivestreamChunk(plaintext)
	if !ok || seq != s.next {
		return nil, ErrLivestreamReorder
	}
	s.next++
	return fragment, nil
}
