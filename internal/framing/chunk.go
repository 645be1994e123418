package framing

import "encoding/binary"

// chunkCounterSize is the 8-byte big-endian chunk counter prefixed onto
// every motion video chunk's decrypted plaintext (spec.md section 4.2
// step 3).
const chunkCounterSize = 8

// EncodeChunk prepends the 8-byte big-endian counter to a chunk of
// video bytes, ready to be sealed as an application message plaintext.
func EncodeChunk(counter uint64, payload []byte) []byte {
	buf := make([]byte, chunkCounterSize+len(payload))
	binary.BigEndian.PutUint64(buf[:chunkCounterSize], counter)
	copy(buf[chunkCounterSize:], payload)
	return buf
}

// DecodeChunk splits a decrypted application-message plaintext into its
// embedded counter and payload.
func DecodeChunk(plaintext []byte) (counter uint64, payload []byte, ok bool) {
	if len(plaintext) < chunkCounterSize {
		return 0, nil, false
	}
	counter = binary.BigEndian.Uint64(plaintext[:chunkCounterSize])
	payload = plaintext[chunkCounterSize:]
	return counter, payload, true
}

// Assembler validates that chunks for one video arrive with counters
// 0, 1, ..., NumMsg-1 in order (spec.md section 4.2, invariant FR-1) and
// accumulates their payloads. Any gap aborts the whole video: callers
// must discard whatever partial plaintext Assembler has produced so
// far (invariant FR-1, scenario 2).
type Assembler struct {
	numMsg   uint32
	next     uint64
	buf      [][]byte
	aborted  bool
	complete bool
}

// NewAssembler creates an Assembler expecting exactly numMsg chunks.
func NewAssembler(numMsg uint32) *Assembler {
	return &Assembler{numMsg: numMsg}
}

// Add feeds one decrypted application-message plaintext into the
// assembler. Returns false once a gap has been observed or the video is
// already complete; callers should treat a false return as fatal for
// this video and drop any partial output obtained from Bytes.
func (a *Assembler) Add(plaintext []byte) bool {
	if a.aborted || a.complete {
		return false
	}
	counter, payload, ok := DecodeChunk(plaintext)
	if !ok || counter != a.next {
		a.aborted = true
		a.buf = nil
		return false
	}
	a.buf = append(a.buf, payload)
	a.next++
	if a.next == uint64(a.numMsg) {
		a.complete = true
	}
	return true
}

// Complete reports whether all numMsg chunks have been received in
// order.
func (a *Assembler) Complete() bool {
	return a.complete
}

// Aborted reports whether a gap was observed.
func (a *Assembler) Aborted() bool {
	return a.aborted
}

// Bytes concatenates every chunk payload received so far, in order.
// Only meaningful when Complete() is true; call sites must not persist
// partial output once Aborted() is true.
func (a *Assembler) Bytes() []byte {
	total := 0
	for _, b := range a.buf {
		total += len(b)
	}
	out := make([]byte, 0, total)
	for _, b := range a.buf {
		out = append(out, b...)
	}
	return out
}
