package checklist

import (
	"errors"
	"fmt"
	"strings"

	"winprep/internal/ops"
	"winprep/internal/regstore"
	"winprep/internal/settings"
)

// Entry is a validated, ready-to-apply setting. Err is set when the row is
// invalid; such entries carry no usable Edit.
type Entry struct {
	Index   int
	Setting Setting
	Scope   Scope
	// Base is the machine key the edit is applied under. Unused for AllUsers.
	Base regstore.Key
	Edit settings.Edit
	Err  error
}

// Label returns a printable name for the entry.
func (e Entry) Label() string {
	if label := strings.TrimSpace(e.Setting.Label); label != "" {
		return label
	}
	return fmt.Sprintf("setting #%d", e.Index+1)
}

// Valid reports whether the entry can be applied.
func (e Entry) Valid() bool { return e.Err == nil }

// Compile validates every setting and converts it into an Entry. Invalid rows
// are returned with Err set rather than dropped so callers can report them.
func Compile(list []Setting) []Entry {
	entries := make([]Entry, 0, len(list))
	seen := make(map[string]int, len(list))
	for i, s := range list {
		entry := compileOne(i, s)
		if entry.Err == nil {
			id := entry.identity()
			if prev, ok := seen[id]; ok && !sameTarget(entries[prev], entry) {
				entry.Err = fmt.Errorf("conflicts with %q for the same value", entries[prev].Label())
			} else if !ok {
				seen[id] = i
			}
		}
		if entry.Err != nil {
			entry.Err = ops.Wrap(ops.ErrValidation, "checklist", entry.Label(), "", entry.Err)
		}
		entries = append(entries, entry)
	}
	return entries
}

// Validate returns the joined errors of every invalid setting, or nil.
func Validate(list []Setting) error {
	var errs []error
	for _, entry := range Compile(list) {
		errs = append(errs, entry.Err)
	}
	return errors.Join(errs...)
}

func compileOne(index int, s Setting) Entry {
	entry := Entry{Index: index, Setting: s}
	var problems []error
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(s.Label) == "" {
		fail("label is required")
	}

	scope, err := ParseScope(s.Scope)
	if err != nil {
		problems = append(problems, err)
	}
	entry.Scope = scope

	path := s.Path
	switch scope {
	case AllUsers:
		if strings.TrimSpace(s.Root) != "" {
			fail("root is only allowed for machine scope")
		}
		if _, err := regstore.ParseKey(path); err == nil {
			fail("path %q must be relative to the user hive", path)
		}
	case Machine:
		entry.Base, path = machineBase(s.Root, path, fail)
	}
	if regstore.CleanPath(path) == "" {
		fail("path is required")
	}

	action, err := settings.ParseAction(s.Action)
	if err != nil {
		problems = append(problems, err)
	}

	name := s.Name
	switch {
	case name == "" && !s.DefaultValue:
		fail("name is empty; set default_value = true to target the key's default value")
	case name != "" && s.DefaultValue:
		fail("default_value = true requires an empty name, got %q", name)
	}

	edit := settings.Edit{Path: regstore.CleanPath(path), Name: name, Action: action}
	if action != settings.Remove && err == nil {
		edit.Value, err = convertValue(s)
		if err != nil {
			problems = append(problems, err)
		}
	}
	entry.Edit = edit
	entry.Err = errors.Join(problems...)
	return entry
}

func machineBase(root, path string, fail func(string, ...any)) (regstore.Key, string) {
	if strings.TrimSpace(root) != "" {
		parsed, err := regstore.ParseRoot(root)
		if err != nil {
			fail("%v", err)
			return regstore.Key{}, path
		}
		if parsed == regstore.Users || parsed == regstore.CurrentUser {
			fail("root %s is per-user; use scope all_users", parsed)
		}
		return regstore.Key{Root: parsed}, path
	}
	if key, err := regstore.ParseKey(path); err == nil {
		if key.Root == regstore.Users || key.Root == regstore.CurrentUser {
			fail("root %s is per-user; use scope all_users", key.Root)
		}
		return regstore.Key{Root: key.Root}, key.Path
	}
	return regstore.Key{Root: regstore.LocalMachine}, path
}

func convertValue(s Setting) (regstore.Value, error) {
	if strings.TrimSpace(s.Type) == "" {
		return regstore.Value{}, errors.New("type is required")
	}
	valueType, err := regstore.ParseValueType(s.Type)
	if err != nil {
		return regstore.Value{}, err
	}
	if s.Value == nil {
		return regstore.Value{}, errors.New("value is required")
	}
	value, err := regstore.FromAny(valueType, s.Value)
	if err != nil {
		return regstore.Value{}, fmt.Errorf("value does not fit %s: %w", valueType, err)
	}
	return value, nil
}

func (e Entry) identity() string {
	key := e.Base.Join(e.Edit.Path)
	if e.Scope == AllUsers {
		key = regstore.Key{Path: e.Edit.Path}
	}
	return strings.ToLower(string(e.Scope) + "|" + key.String() + "|" + e.Edit.Name)
}

func sameTarget(a, b Entry) bool {
	return writeAction(a.Edit.Action) == writeAction(b.Edit.Action) && a.Edit.Value.Equal(b.Edit.Value)
}

// writeAction folds Add into Update; both set the value.
func writeAction(a settings.Action) settings.Action {
	if a == settings.Add {
		return settings.Update
	}
	return a
}
