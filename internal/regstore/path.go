package regstore

import (
	"fmt"
	"strings"
)

// Root identifies a predefined registry root.
type Root string

const (
	LocalMachine Root = "HKLM"
	Users        Root = "HKU"
	CurrentUser  Root = "HKCU"
	ClassesRoot  Root = "HKCR"
)

// ParseRoot accepts short (HKLM) and long (HKEY_LOCAL_MACHINE) root names,
// with or without a trailing colon as PowerShell drives spell them.
func ParseRoot(value string) (Root, error) {
	trimmed := strings.ToUpper(strings.TrimSuffix(strings.TrimSpace(value), ":"))
	switch trimmed {
	case "HKLM", "HKEY_LOCAL_MACHINE":
		return LocalMachine, nil
	case "HKU", "HKEY_USERS":
		return Users, nil
	case "HKCU", "HKEY_CURRENT_USER":
		return CurrentUser, nil
	case "HKCR", "HKEY_CLASSES_ROOT":
		return ClassesRoot, nil
	default:
		return "", fmt.Errorf("unknown registry root %q", value)
	}
}

// Key addresses a registry key as a root plus a backslash-delimited path.
type Key struct {
	Root Root
	Path string
}

// ParseKey splits `HKLM\Software\Foo` into its root and path.
func ParseKey(value string) (Key, error) {
	value = strings.TrimSpace(value)
	rootPart, rest, _ := strings.Cut(value, `\`)
	root, err := ParseRoot(rootPart)
	if err != nil {
		return Key{}, err
	}
	return Key{Root: root, Path: CleanPath(rest)}, nil
}

// Join returns the key for path beneath k.
func (k Key) Join(path string) Key {
	path = CleanPath(path)
	if path == "" {
		return k
	}
	if k.Path == "" {
		return Key{Root: k.Root, Path: path}
	}
	return Key{Root: k.Root, Path: k.Path + `\` + path}
}

func (k Key) String() string {
	if k.Path == "" {
		return string(k.Root)
	}
	return string(k.Root) + `\` + k.Path
}

// CleanPath drops empty segments and surrounding whitespace.
func CleanPath(path string) string {
	return strings.Join(SplitPath(path), `\`)
}

// SplitPath returns the non-empty segments of a registry path. Only the
// backslash separates segments; "/" is a legal key name character
// (MIME\Database\Content Type\text/html).
func SplitPath(path string) []string {
	raw := strings.Split(strings.TrimSpace(path), `\`)
	segments := make([]string, 0, len(raw))
	for _, segment := range raw {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}
