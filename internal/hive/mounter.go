package hive

import (
	"context"
	"strings"

	"winprep/internal/ops"
	"winprep/internal/regstore"
)

// Mounter loads and unloads hive files under a fixed mount root.
type Mounter interface {
	// IsMounted reports whether a key named mountName exists under the root.
	IsMounted(ctx context.Context, mountName string) (bool, error)
	Mount(ctx context.Context, mountName, hivePath string) error
	Unmount(ctx context.Context, mountName string) error
}

// RegMounter drives reg.exe load/unload and probes the mount root through a
// registry store.
type RegMounter struct {
	store  regstore.Store
	root   regstore.Key
	binary string
	exec   ops.Executor
}

// NewRegMounter returns a Mounter for root (normally HKU). An empty binary
// means reg.exe; a nil executor runs real processes.
func NewRegMounter(store regstore.Store, root regstore.Key, binary string, executor ops.Executor) *RegMounter {
	if strings.TrimSpace(binary) == "" {
		binary = "reg.exe"
	}
	if executor == nil {
		executor = ops.CommandExecutor{}
	}
	return &RegMounter{store: store, root: root, binary: binary, exec: executor}
}

func (m *RegMounter) IsMounted(_ context.Context, mountName string) (bool, error) {
	return m.store.KeyExists(m.root.Join(mountName))
}

func (m *RegMounter) Mount(ctx context.Context, mountName, hivePath string) error {
	target := m.root.Join(mountName).String()
	if _, err := ops.RunCollect(ctx, m.exec, m.binary, "load", target, hivePath); err != nil {
		return ops.Wrap(ops.ErrExternalTool, "hive", "reg load", target, err)
	}
	return nil
}

func (m *RegMounter) Unmount(ctx context.Context, mountName string) error {
	target := m.root.Join(mountName).String()
	if _, err := ops.RunCollect(ctx, m.exec, m.binary, "unload", target); err != nil {
		return ops.Wrap(ops.ErrExternalTool, "hive", "reg unload", target, err)
	}
	return nil
}
