package engine

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/bamsammich/fanout/internal/digest"
)

// verify re-reads every destination of src and compares its digest with
// expected. Each destination is evicted from the page cache first so the
// read comes from the medium; eviction failures are only logged. A
// mismatch on one destination does not stop the others from being
// checked.
func (e *Engine) verify(ctx context.Context, log *slog.Logger, src string, targets []string, expected []byte) []error {
	e.setCurrent(src, ModeChecking)

	var errs []error
	for _, dst := range targets {
		if err := e.evictor.Evict(ctx, dst); err != nil {
			log.Debug("cache eviction failed", "path", dst, "error", err)
		}

		actual, err := e.cfg.Digest.File(dst)
		if err != nil {
			log.Error("verification read failed", "src", src, "dst", dst, "error", err)
			e.stats.AddFilesVerifyFailed(1)
			errs = append(errs, &TransferError{Src: src, Dst: dst, Err: err})
			continue
		}

		if !bytes.Equal(actual, expected) {
			mismatch := &MismatchError{
				Src:      src,
				Dst:      dst,
				Expected: digest.Hex(expected),
				Actual:   digest.Hex(actual),
			}
			log.Error("checksum mismatch",
				"src", src, "dst", dst, "expected", mismatch.Expected, "actual", mismatch.Actual)
			e.stats.AddFilesVerifyFailed(1)
			errs = append(errs, mismatch)
			continue
		}

		log.Info("checksum ok", "dst", dst, "digest", digest.Hex(actual))
		e.stats.AddFilesVerified(1)
	}
	return errs
}
