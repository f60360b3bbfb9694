//go:build linux

package platform

import (
	"golang.org/x/sys/unix"
)

// ZeroCopySupported reports whether CopyRange can move bytes without
// passing them through user space.
const ZeroCopySupported = true

// CopyRange moves params.Length bytes at params.Offset from Src to Dst
// using the most efficient method available, falling through on
// unsupported/cross-device errors.
func CopyRange(params RangeParams) (CopyResult, error) {
	result, err := copyFileRange(params)
	if err == nil {
		return result, nil
	}
	if !isFallbackErr(err) || result.BytesWritten > 0 {
		return result, err
	}

	result, err = copySendfile(params)
	if err == nil {
		return result, nil
	}
	if !isFallbackErr(err) || result.BytesWritten > 0 {
		return result, err
	}

	return copyReadWrite(params, nil)
}

func copyFileRange(params RangeParams) (CopyResult, error) {
	remaining := params.Length
	roff := params.Offset
	woff := params.Offset

	//nolint:gosec // G115: fd values are small non-negative integers
	srcFd, dstFd := int(params.Src.Fd()), int(params.Dst.Fd())

	var totalWritten int64
	for remaining > 0 {
		n, err := unix.CopyFileRange(srcFd, &roff, dstFd, &woff, int(remaining), 0)
		if err != nil {
			return CopyResult{BytesWritten: totalWritten, Method: CopyFileRange}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		totalWritten += int64(n)
	}

	return CopyResult{BytesWritten: totalWritten, Method: CopyFileRange}, nil
}

func copySendfile(params RangeParams) (CopyResult, error) {
	remaining := params.Length
	offset := params.Offset

	// sendfile writes at the destination's file offset.
	if _, err := params.Dst.Seek(offset, 0); err != nil {
		return CopyResult{}, err
	}

	//nolint:gosec // G115: fd values are small non-negative integers
	srcFd, dstFd := int(params.Src.Fd()), int(params.Dst.Fd())

	var totalWritten int64
	for remaining > 0 {
		n, err := unix.Sendfile(dstFd, srcFd, &offset, int(remaining))
		if err != nil {
			return CopyResult{BytesWritten: totalWritten, Method: Sendfile}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		totalWritten += int64(n)
	}

	return CopyResult{BytesWritten: totalWritten, Method: Sendfile}, nil
}
