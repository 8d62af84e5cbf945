//go:build windows

package regstore

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// SystemStore reads and writes the live registry.
type SystemStore struct {
	// access is OR-ed into every open; WOW64_64KEY keeps a 32-bit build on
	// the native view.
	access uint32
}

// OpenSystem returns a Store backed by the live registry.
func OpenSystem() (Store, error) {
	return &SystemStore{access: registry.WOW64_64KEY}, nil
}

func predefined(root Root) (registry.Key, error) {
	switch root {
	case LocalMachine:
		return registry.LOCAL_MACHINE, nil
	case Users:
		return registry.USERS, nil
	case CurrentUser:
		return registry.CURRENT_USER, nil
	case ClassesRoot:
		return registry.CLASSES_ROOT, nil
	default:
		return 0, fmt.Errorf("unknown registry root %q", root)
	}
}

func (s *SystemStore) open(key Key, access uint32) (registry.Key, error) {
	base, err := predefined(key.Root)
	if err != nil {
		return 0, err
	}
	k, err := registry.OpenKey(base, key.Path, access|s.access)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return 0, fmt.Errorf("%s: %w", key, ErrNotExist)
		}
		return 0, fmt.Errorf("open %s: %w", key, err)
	}
	return k, nil
}

func (s *SystemStore) KeyExists(key Key) (bool, error) {
	k, err := s.open(key, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	k.Close()
	return true, nil
}

func (s *SystemStore) CreateKey(key Key) error {
	base, err := predefined(key.Root)
	if err != nil {
		return err
	}
	k, _, err := registry.CreateKey(base, key.Path, registry.CREATE_SUB_KEY|s.access)
	if err != nil {
		return fmt.Errorf("create %s: %w", key, err)
	}
	return k.Close()
}

func (s *SystemStore) SubKeys(key Key) ([]string, error) {
	k, err := s.open(key, registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return nil, err
	}
	defer k.Close()
	names, err := k.ReadSubKeyNames(-1)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", key, err)
	}
	return names, nil
}

func (s *SystemStore) GetValue(key Key, name string) (Value, error) {
	k, err := s.open(key, registry.QUERY_VALUE)
	if err != nil {
		return Value{}, err
	}
	defer k.Close()

	_, valType, err := k.GetValue(name, nil)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return Value{}, fmt.Errorf("%s\\%s: %w", key, name, ErrNotExist)
		}
		return Value{}, fmt.Errorf("query %s\\%s: %w", key, name, err)
	}

	switch valType {
	case registry.DWORD, registry.QWORD:
		n, _, err := k.GetIntegerValue(name)
		if err != nil {
			return Value{}, fmt.Errorf("read %s\\%s: %w", key, name, err)
		}
		value, err := dwordFromInteger(n)
		if err != nil {
			return Value{}, fmt.Errorf("read %s\\%s: %w", key, name, err)
		}
		return value, nil
	case registry.SZ, registry.EXPAND_SZ:
		str, _, err := k.GetStringValue(name)
		if err != nil {
			return Value{}, fmt.Errorf("read %s\\%s: %w", key, name, err)
		}
		if valType == registry.EXPAND_SZ {
			return ExpandStringValue(str), nil
		}
		return StringValue(str), nil
	case registry.MULTI_SZ:
		list, _, err := k.GetStringsValue(name)
		if err != nil {
			return Value{}, fmt.Errorf("read %s\\%s: %w", key, name, err)
		}
		return MultiStringValue(list), nil
	default:
		data, _, err := k.GetBinaryValue(name)
		if err != nil {
			return Value{}, fmt.Errorf("read %s\\%s: %w", key, name, err)
		}
		return BinaryValue(data), nil
	}
}

func (s *SystemStore) SetValue(key Key, name string, value Value) error {
	if err := value.Validate(); err != nil {
		return err
	}
	k, err := s.open(key, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()

	switch value.Type {
	case DWord:
		err = k.SetDWordValue(name, value.DWord)
	case String:
		err = k.SetStringValue(name, value.Str)
	case ExpandString:
		err = k.SetExpandStringValue(name, value.Str)
	case Binary:
		err = k.SetBinaryValue(name, value.Bytes)
	case MultiString:
		err = k.SetStringsValue(name, value.Strings)
	}
	if err != nil {
		return fmt.Errorf("set %s\\%s: %w", key, name, err)
	}
	return nil
}

func (s *SystemStore) DeleteValue(key Key, name string) error {
	k, err := s.open(key, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()
	if err := k.DeleteValue(name); err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return fmt.Errorf("%s\\%s: %w", key, name, ErrNotExist)
		}
		return fmt.Errorf("delete %s\\%s: %w", key, name, err)
	}
	return nil
}
