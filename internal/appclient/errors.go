package appclient

import "errors"

// ErrChunkCountMismatch is returned when a motion video file's record
// count disagrees with the VideoNetInfo it carries.
var ErrChunkCountMismatch = errors.New("appclient: record count does not match declared chunk count")

// ErrIncompleteVideo is returned when every chunk decrypted cleanly but
// the assembler never reached completion (a gap, or a short file).
var ErrIncompleteVideo = errors.New("appclient: video assembly incomplete")

// ErrDuplicateVideo is returned when the target filename already
// exists on disk; spec.md section 8 treats a repeat delivery of an
// already-saved video as benign, not an error to surface to the user.
var ErrDuplicateVideo = errors.New("appclient: video already saved")
