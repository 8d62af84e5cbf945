package regstore

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"golang.org/x/text/cases"
)

// fold maps registry names to the case-insensitive form used as map keys.
func fold(name string) string {
	return cases.Fold().String(name)
}

type entry struct {
	name  string
	value Value
}

type node struct {
	name     string
	children map[string]*node
	values   map[string]entry
}

func newNode(name string) *node {
	return &node{name: name, children: map[string]*node{}, values: map[string]entry{}}
}

func (n *node) lookup(segments []string) *node {
	current := n
	for _, segment := range segments {
		next, ok := current.children[fold(segment)]
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

func (n *node) ensure(segments []string) *node {
	current := n
	for _, segment := range segments {
		folded := fold(segment)
		next, ok := current.children[folded]
		if !ok {
			next = newNode(segment)
			current.children[folded] = next
		}
		current = next
	}
	return current
}

func cloneValue(v Value) Value {
	v.Bytes = slices.Clone(v.Bytes)
	v.Strings = slices.Clone(v.Strings)
	return v
}

// Hive is a detachable key tree standing in for a hive file. It is not safe
// for concurrent use and must not be touched directly while attached to a
// MemoryStore.
type Hive struct {
	root *node
}

// NewHive returns an empty hive.
func NewHive() *Hive {
	return &Hive{root: newNode("")}
}

// KeyExists reports whether path exists inside the hive.
func (h *Hive) KeyExists(path string) bool {
	return h.root.lookup(SplitPath(path)) != nil
}

// GetValue reads a value relative to the hive root.
func (h *Hive) GetValue(path, name string) (Value, error) {
	n := h.root.lookup(SplitPath(path))
	if n == nil {
		return Value{}, fmt.Errorf("%s: %w", path, ErrNotExist)
	}
	e, ok := n.values[fold(name)]
	if !ok {
		return Value{}, fmt.Errorf("%s\\%s: %w", path, name, ErrNotExist)
	}
	return cloneValue(e.value), nil
}

// SetValue writes a value relative to the hive root, creating path.
func (h *Hive) SetValue(path, name string, value Value) {
	n := h.root.ensure(SplitPath(path))
	n.values[fold(name)] = entry{name: name, value: cloneValue(value)}
}

// MemoryStore is an in-process Store with case-insensitive key and value
// names. Hives can be attached and detached to model reg.exe load/unload.
type MemoryStore struct {
	mu    sync.Mutex
	roots map[Root]*node
}

// NewMemoryStore returns a store with the predefined roots present and empty.
func NewMemoryStore() *MemoryStore {
	roots := map[Root]*node{}
	for _, root := range []Root{LocalMachine, Users, CurrentUser, ClassesRoot} {
		roots[root] = newNode(string(root))
	}
	return &MemoryStore{roots: roots}
}

func (s *MemoryStore) rootNode(key Key) (*node, error) {
	n, ok := s.roots[key.Root]
	if !ok {
		return nil, fmt.Errorf("unknown registry root %q", key.Root)
	}
	return n, nil
}

func (s *MemoryStore) find(key Key) (*node, error) {
	root, err := s.rootNode(key)
	if err != nil {
		return nil, err
	}
	n := root.lookup(SplitPath(key.Path))
	if n == nil {
		return nil, fmt.Errorf("%s: %w", key, ErrNotExist)
	}
	return n, nil
}

func (s *MemoryStore) KeyExists(key Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	root, err := s.rootNode(key)
	if err != nil {
		return false, err
	}
	return root.lookup(SplitPath(key.Path)) != nil, nil
}

func (s *MemoryStore) CreateKey(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	root, err := s.rootNode(key)
	if err != nil {
		return err
	}
	root.ensure(SplitPath(key.Path))
	return nil
}

func (s *MemoryStore) SubKeys(key Key) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.find(key)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(n.children))
	for _, child := range n.children {
		names = append(names, child.name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) GetValue(key Key, name string) (Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.find(key)
	if err != nil {
		return Value{}, err
	}
	e, ok := n.values[fold(name)]
	if !ok {
		return Value{}, fmt.Errorf("%s\\%s: %w", key, name, ErrNotExist)
	}
	return cloneValue(e.value), nil
}

func (s *MemoryStore) SetValue(key Key, name string, value Value) error {
	if err := value.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.find(key)
	if err != nil {
		return err
	}
	n.values[fold(name)] = entry{name: name, value: cloneValue(value)}
	return nil
}

func (s *MemoryStore) DeleteValue(key Key, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.find(key)
	if err != nil {
		return err
	}
	folded := fold(name)
	if _, ok := n.values[folded]; !ok {
		return fmt.Errorf("%s\\%s: %w", key, name, ErrNotExist)
	}
	delete(n.values, folded)
	return nil
}

// Attach grafts hive under parent as name, the way reg.exe load does.
func (s *MemoryStore) Attach(parent Key, name string, hive *Hive) error {
	if hive == nil {
		return fmt.Errorf("attach %s\\%s: nil hive", parent, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.find(parent)
	if err != nil {
		return err
	}
	folded := fold(name)
	if _, exists := n.children[folded]; exists {
		return fmt.Errorf("attach %s: key already present", parent.Join(name))
	}
	hive.root.name = name
	n.children[folded] = hive.root
	return nil
}

// Detach removes the subtree at parent\name and returns it as a hive.
func (s *MemoryStore) Detach(parent Key, name string) (*Hive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.find(parent)
	if err != nil {
		return nil, err
	}
	folded := fold(name)
	child, ok := n.children[folded]
	if !ok {
		return nil, fmt.Errorf("detach %s: %w", parent.Join(name), ErrNotExist)
	}
	delete(n.children, folded)
	return &Hive{root: child}, nil
}
