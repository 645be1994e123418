package appclient

import (
	"context"
	"fmt"
	"io"

	"github.com/secluso/secluso/internal/framing"
	"github.com/secluso/secluso/internal/subchannel"
)

// PlayLivestream requests a livestream session from the paired camera
// and writes the decrypted fMP4 fragments to w in order, until ctx is
// cancelled or a fragment fails to decrypt or arrives out of sequence
// (spec.md section 4.2 "Livestream framing", section 8 scenario 6).
// Chunk 0 is always the session-opening self-update commit; fragments
// proper start at 1.
func (a *App) PlayLivestream(ctx context.Context, w io.Writer) error {
	client, err := a.client(subchannel.Livestream)
	if err != nil {
		return err
	}

	if err := a.DS.StartLivestream(ctx, a.Camera); err != nil {
		return fmt.Errorf("appclient: start livestream: %w", err)
	}
	if _, err := a.DS.WaitLivestreamStart(ctx, a.Camera); err != nil {
		return fmt.Errorf("appclient: wait livestream start: %w", err)
	}

	commit, err := a.DS.FetchLivestreamChunk(ctx, a.Camera, framing.CommitChunkNumber)
	if err != nil {
		return fmt.Errorf("appclient: fetch livestream commit: %w", err)
	}
	if _, err := client.Decrypt(commit, false); err != nil {
		return fmt.Errorf("appclient: decrypt livestream commit: %w", err)
	}

	seq := framing.NewSequencer()
	for n := uint64(1); ; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		wire, err := a.DS.FetchLivestreamChunk(ctx, a.Camera, n)
		if err != nil {
			return fmt.Errorf("appclient: fetch livestream chunk %d: %w", n, err)
		}
		plain, err := client.Decrypt(wire, true)
		if err != nil {
			return fmt.Errorf("appclient: decrypt livestream chunk %d: %w", n, err)
		}
		fragment, err := seq.Accept(plain)
		if err != nil {
			return fmt.Errorf("appclient: livestream chunk %d: %w", n, err)
		}
		if _, err := w.Write(fragment); err != nil {
			return fmt.Errorf("appclient: write livestream fragment: %w", err)
		}
	}
}

// StopLivestream calls EndLivestream on the underlying transport.
func (a *App) StopLivestream(ctx context.Context) error {
	if err := a.DS.EndLivestream(ctx, a.Camera); err != nil {
		return fmt.Errorf("appclient: end livestream: %w", err)
	}
	return nil
}
