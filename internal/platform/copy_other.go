//go:build !linux

package platform

// ZeroCopySupported reports whether CopyRange can move bytes without
// passing them through user space.
const ZeroCopySupported = false

// CopyRange falls back to read/write on platforms without an in-kernel
// range copy.
func CopyRange(params RangeParams) (CopyResult, error) {
	return copyReadWrite(params, nil)
}
