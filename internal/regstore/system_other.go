//go:build !windows

package regstore

// OpenSystem returns ErrUnsupportedPlatform; use MemoryStore off Windows.
func OpenSystem() (Store, error) {
	return nil, ErrUnsupportedPlatform
}
