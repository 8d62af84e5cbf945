package testsupport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"winprep/internal/config"
	"winprep/internal/principals"
	"winprep/internal/regstore"
)

// MemoryMounter is an in-memory hive.Mounter. Hive files are registered with
// AddHiveFile; Mount attaches them to the store under the mount root and
// Unmount detaches them again.
type MemoryMounter struct {
	mu          sync.Mutex
	store       *regstore.MemoryStore
	root        regstore.Key
	hives       map[string]*regstore.Hive
	mountFail   map[string]error
	unmountFail map[string]int
	calls       []string
}

// NewMemoryMounter returns a mounter attaching hives beneath root.
func NewMemoryMounter(store *regstore.MemoryStore, root regstore.Key) *MemoryMounter {
	return &MemoryMounter{
		store:       store,
		root:        root,
		hives:       map[string]*regstore.Hive{},
		mountFail:   map[string]error{},
		unmountFail: map[string]int{},
	}
}

func fileKey(path string) string { return strings.ToLower(path) }

// AddHiveFile registers an empty hive file at path and returns it.
func (m *MemoryMounter) AddHiveFile(path string) *regstore.Hive {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := regstore.NewHive()
	m.hives[fileKey(path)] = h
	return h
}

// Hive returns the hive registered at path, or nil.
func (m *MemoryMounter) Hive(path string) *regstore.Hive {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hives[fileKey(path)]
}

// PreMount attaches the hive at path as if the OS had already loaded it for
// a signed-in user.
func (m *MemoryMounter) PreMount(t testing.TB, mountName, path string) {
	t.Helper()
	h := m.Hive(path)
	if h == nil {
		h = m.AddHiveFile(path)
	}
	if err := m.store.Attach(m.root, mountName, h); err != nil {
		t.Fatalf("pre-mount %s: %v", mountName, err)
	}
}

// FailMount makes every Mount of mountName return err.
func (m *MemoryMounter) FailMount(mountName string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mountFail[fileKey(mountName)] = err
}

// FailUnmount makes the next times Unmount calls for mountName fail. A
// negative count fails forever.
func (m *MemoryMounter) FailUnmount(mountName string, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unmountFail[fileKey(mountName)] = times
}

// Calls returns the load/unload operations performed, in order.
func (m *MemoryMounter) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MemoryMounter) IsMounted(_ context.Context, mountName string) (bool, error) {
	return m.store.KeyExists(m.root.Join(mountName))
}

func (m *MemoryMounter) Mount(_ context.Context, mountName, hivePath string) error {
	m.mu.Lock()
	m.calls = append(m.calls, "load "+mountName)
	failure := m.mountFail[fileKey(mountName)]
	h := m.hives[fileKey(hivePath)]
	m.mu.Unlock()

	if failure != nil {
		return failure
	}
	if h == nil {
		return fmt.Errorf("load %s: the system cannot find the file specified: %s", mountName, hivePath)
	}
	return m.store.Attach(m.root, mountName, h)
}

func (m *MemoryMounter) Unmount(_ context.Context, mountName string) error {
	m.mu.Lock()
	m.calls = append(m.calls, "unload "+mountName)
	remaining := m.unmountFail[fileKey(mountName)]
	if remaining > 0 {
		m.unmountFail[fileKey(mountName)] = remaining - 1
	}
	m.mu.Unlock()

	if remaining != 0 {
		return errors.New("the process cannot access the file because it is being used by another process")
	}
	_, err := m.store.Detach(m.root, mountName)
	return err
}

// Profile describes a user profile to seed into ProfileList.
type Profile struct {
	SID string
	Dir string
}

// SeedProfiles writes ProfileList entries for profiles into store and
// registers each profile's NTUSER.DAT plus the default template hive with
// mounter.
func SeedProfiles(t testing.TB, cfg *config.Config, store *regstore.MemoryStore, mounter *MemoryMounter, profiles ...Profile) {
	t.Helper()
	listKey := principals.OptionsFromConfig(cfg).ProfileListKey
	if err := store.CreateKey(listKey); err != nil {
		t.Fatalf("create profile list: %v", err)
	}
	for _, profile := range profiles {
		key := listKey.Join(profile.SID)
		if err := store.CreateKey(key); err != nil {
			t.Fatalf("create profile %s: %v", profile.SID, err)
		}
		if err := store.SetValue(key, "ProfileImagePath", regstore.ExpandStringValue(profile.Dir)); err != nil {
			t.Fatalf("set profile path %s: %v", profile.SID, err)
		}
		if mounter != nil {
			mounter.AddHiveFile(principals.HivePath(profile.Dir))
		}
	}
	if mounter != nil && mounter.Hive(cfg.Registry.DefaultHivePath) == nil {
		mounter.AddHiveFile(cfg.Registry.DefaultHivePath)
	}
}
