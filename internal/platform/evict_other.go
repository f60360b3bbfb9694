//go:build !linux

package platform

import "context"

// EvictionSupported reports whether this platform can drop a file's pages
// from the OS cache.
const EvictionSupported = false

type fadviseEvictor struct{}

func (fadviseEvictor) Evict(context.Context, string) error { return nil }
