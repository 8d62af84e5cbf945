package settings

import (
	"fmt"
	"strings"

	"winprep/internal/regstore"
)

// Action selects how an Edit mutates the store.
type Action string

const (
	Add    Action = "add"
	Update Action = "update"
	Remove Action = "remove"
)

// ParseAction maps user input to an Action. An empty string means Update.
func ParseAction(value string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "update", "set":
		return Update, nil
	case "add":
		return Add, nil
	case "remove", "delete":
		return Remove, nil
	default:
		return "", fmt.Errorf("unknown action %q", value)
	}
}

// Edit is one (path, name) change. An empty Name addresses the key's
// unnamed default value. Value is ignored for Remove.
type Edit struct {
	Path   string
	Name   string
	Value  regstore.Value
	Action Action
}

// Validate checks the preconditions Apply relies on.
func (e Edit) Validate() error {
	if regstore.CleanPath(e.Path) == "" {
		return fmt.Errorf("path is required")
	}
	switch e.Action {
	case Add, Update:
		if err := e.Value.Validate(); err != nil {
			return fmt.Errorf("value for %s: %w", e.describe(), err)
		}
	case Remove:
	default:
		return fmt.Errorf("unknown action %q", e.Action)
	}
	return nil
}

func (e Edit) describe() string {
	name := e.Name
	if name == "" {
		name = "(Default)"
	}
	return regstore.CleanPath(e.Path) + `\` + name
}

func (e Edit) String() string {
	if e.Action == Remove {
		return fmt.Sprintf("remove %s", e.describe())
	}
	return fmt.Sprintf("%s %s = %s", e.Action, e.describe(), e.Value)
}
