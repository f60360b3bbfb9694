package platform

import (
	"errors"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// BufferSize is the size of pooled copy buffers.
const BufferSize = 1 << 20 // 1 MiB

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, BufferSize)
		return &b
	},
}

// CopyThrough copies the range with pread/pwrite, handing every block read
// from Src to w (when non-nil) before it is written to Dst. It is the only
// path that makes the bytes visible to the caller, e.g. for digesting.
func CopyThrough(params RangeParams, w io.Writer) (CopyResult, error) {
	return copyReadWrite(params, w)
}

// copyReadWrite copies data using pread/pwrite with a pooled buffer.
func copyReadWrite(params RangeParams, tee io.Writer) (CopyResult, error) {
	bufp := bufPool.Get().(*[]byte) //nolint:forcetypeassert // pool only holds *[]byte
	defer bufPool.Put(bufp)
	buf := *bufp

	offset := params.Offset
	remaining := params.Length

	//nolint:gosec // G115: fd values are small non-negative integers
	srcRawFd, dstRawFd := int(params.Src.Fd()), int(params.Dst.Fd())

	var totalWritten int64
	for remaining > 0 {
		toRead := min(remaining, int64(len(buf)))

		n, err := unix.Pread(srcRawFd, buf[:toRead], offset)
		if err != nil {
			return CopyResult{BytesWritten: totalWritten, Method: ReadWrite}, err
		}
		if n == 0 {
			break
		}

		if tee != nil {
			if _, err := tee.Write(buf[:n]); err != nil {
				return CopyResult{BytesWritten: totalWritten, Method: ReadWrite}, err
			}
		}

		written := 0
		for written < n {
			w, err := unix.Pwrite(dstRawFd, buf[written:n], offset+int64(written))
			if err != nil {
				return CopyResult{BytesWritten: totalWritten + int64(written), Method: ReadWrite}, err
			}
			written += w
		}

		offset += int64(n)
		remaining -= int64(n)
		totalWritten += int64(n)
	}

	return CopyResult{BytesWritten: totalWritten, Method: ReadWrite}, nil
}

// isFallbackErr returns true if err should trigger a fallback to the next copy strategy.
func isFallbackErr(err error) bool {
	switch {
	case errors.Is(err, unix.ENOSYS),
		errors.Is(err, unix.EXDEV),
		errors.Is(err, unix.EINVAL),
		errors.Is(err, unix.ENOTSUP),
		errors.Is(err, unix.EOPNOTSUPP):
		return true
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return isFallbackErr(pathErr.Err)
	}
	return false
}
