package regstore

import "errors"

var (
	// ErrNotExist reports a missing key or value.
	ErrNotExist = errors.New("registry key or value does not exist")
	// ErrUnsupportedPlatform is returned by OpenSystem off Windows.
	ErrUnsupportedPlatform = errors.New("the live registry is only available on windows")
)

// Store is the narrow registry surface the settings accessor needs.
type Store interface {
	KeyExists(key Key) (bool, error)
	// CreateKey creates key and every missing parent. Existing keys are left untouched.
	CreateKey(key Key) error
	SubKeys(key Key) ([]string, error)
	GetValue(key Key, name string) (Value, error)
	SetValue(key Key, name string, value Value) error
	// DeleteValue returns ErrNotExist when the key or value is absent.
	DeleteValue(key Key, name string) error
}
