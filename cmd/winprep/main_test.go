package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"winprep/internal/config"
	"winprep/internal/hive"
	"winprep/internal/regstore"
	"winprep/internal/runlock"
	"winprep/internal/testsupport"
)

const (
	sidAlice = "S-1-5-21-500-600-700-1001"
	sidBob   = "S-1-5-21-500-600-700-1002"
)

type cliEnv struct {
	cfg        *config.Config
	configPath string
	store      *regstore.MemoryStore
	mounter    *testsupport.MemoryMounter
	backend    backend
}

func setupCLI(t *testing.T) *cliEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("WINPREP_LOG_FILE", "")
	t.Setenv("WINPREP_CHECKLIST", "")

	cfg := testsupport.NewConfig(t)
	store := regstore.NewMemoryStore()
	users := regstore.Key{Root: regstore.Users}
	mounter := testsupport.NewMemoryMounter(store, users)
	testsupport.SeedProfiles(t, cfg, store, mounter,
		testsupport.Profile{SID: sidAlice, Dir: `C:\Users\alice`},
		testsupport.Profile{SID: sidBob, Dir: `C:\Users\bob`},
	)

	configPath := testsupport.WriteConfig(t, cfg)

	return &cliEnv{
		cfg:        cfg,
		configPath: configPath,
		store:      store,
		mounter:    mounter,
		backend: backend{
			openStore: func() (regstore.Store, error) { return store, nil },
			newMounter: func(*config.Config, regstore.Store, regstore.Key) hive.Mounter {
				return mounter
			},
			unloadOpts: []hive.Option{
				hive.WithSleep(func(time.Duration) {}),
				hive.WithRetryInterval(time.Millisecond),
			},
		},
	}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommandWith(e.backend)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (e *cliEnv) hiveValue(t *testing.T, hivePath, path, name string) (regstore.Value, error) {
	t.Helper()
	h := e.mounter.Hive(hivePath)
	if h == nil {
		t.Fatalf("no hive at %s", hivePath)
	}
	return h.GetValue(path, name)
}

func TestRunAppliesChecklist(t *testing.T) {
	env := setupCLI(t)
	env.mounter.PreMount(t, sidAlice, `C:\Users\alice\NTUSER.DAT`)
	list := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "checklist.yaml"), `
		settings:
		  - label: Hide search box
		    path: Software\Microsoft\Windows\CurrentVersion\Search
		    name: SearchboxTaskbarMode
		    type: dword
		    value: 0
		  - label: Broken row
		    path: Software\Example
		    type: dword
		    value: 1
		  - label: Disable consumer features
		    scope: machine
		    path: HKLM\Software\Policies\Microsoft\Windows\CloudContent
		    name: DisableWindowsConsumerFeatures
		    type: dword
		    value: 1
	`)

	stdout, stderr, err := env.run(t, "run", "--checklist", list)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, stderr)
	}
	if !strings.Contains(stdout, "2 ok, 0 partial, 0 failed, 1 skipped") {
		t.Fatalf("unexpected summary:\n%s", stdout)
	}

	for _, hivePath := range []string{`C:\Users\bob\NTUSER.DAT`, env.cfg.Registry.DefaultHivePath} {
		v, err := env.hiveValue(t, hivePath, `Software\Microsoft\Windows\CurrentVersion\Search`, "SearchboxTaskbarMode")
		if err != nil || !v.Equal(regstore.DWordValue(0)) {
			t.Fatalf("%s not updated: %v %v", hivePath, v, err)
		}
	}
	live := regstore.Key{Root: regstore.Users, Path: sidAlice + `\Software\Microsoft\Windows\CurrentVersion\Search`}
	if v, err := env.store.GetValue(live, "SearchboxTaskbarMode"); err != nil || !v.Equal(regstore.DWordValue(0)) {
		t.Fatalf("signed-in user not updated: %v %v", v, err)
	}
	if ok, _ := env.store.KeyExists(regstore.Key{Root: regstore.Users, Path: sidBob}); ok {
		t.Fatal("bob's hive should be unloaded after the run")
	}
	machine := regstore.Key{Root: regstore.LocalMachine, Path: `Software\Policies\Microsoft\Windows\CloudContent`}
	if v, err := env.store.GetValue(machine, "DisableWindowsConsumerFeatures"); err != nil || !v.Equal(regstore.DWordValue(1)) {
		t.Fatalf("machine value missing: %v %v", v, err)
	}

	logs, err := filepath.Glob(filepath.Join(env.cfg.Paths.LogDir, "winprep-*.log"))
	if err != nil || len(logs) != 1 {
		t.Fatalf("expected one run log, got %v %v", logs, err)
	}
	content, _ := os.ReadFile(logs[0])
	for _, want := range []string{"run started", "step=3", "invalid setting skipped", "checklist finished"} {
		if !strings.Contains(string(content), want) {
			t.Fatalf("expected %q in run log:\n%s", want, content)
		}
	}
}

func TestRunWithoutChecklistFails(t *testing.T) {
	env := setupCLI(t)
	if _, _, err := env.run(t, "run"); err == nil || !strings.Contains(err.Error(), "no checklist") {
		t.Fatalf("expected missing checklist error, got %v", err)
	}
}

func TestSetAndRemove(t *testing.T) {
	env := setupCLI(t)
	hivePath := `C:\Users\bob\NTUSER.DAT`

	if _, stderr, err := env.run(t, "set", `Software\Example`, "Paths", `C:\a`, `C:\b`, "--type", "multi_string"); err != nil {
		t.Fatalf("set: %v\n%s", err, stderr)
	}
	v, err := env.hiveValue(t, hivePath, `Software\Example`, "Paths")
	if err != nil || !v.Equal(regstore.MultiStringValue([]string{`C:\a`, `C:\b`})) {
		t.Fatalf("set did not write bob's hive: %v %v", v, err)
	}

	stdout, _, err := env.run(t, "remove", `Software\Example`, "Paths")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !strings.Contains(stdout, ": ok") {
		t.Fatalf("unexpected remove output %q", stdout)
	}
	if _, err := env.hiveValue(t, hivePath, `Software\Example`, "Paths"); !errors.Is(err, regstore.ErrNotExist) {
		t.Fatalf("expected value to be gone, got %v", err)
	}

	if _, _, err := env.run(t, "remove", `Software\Example`, "Paths"); err != nil {
		t.Fatalf("second remove should succeed: %v", err)
	}
}

func TestSetRejectsInvalidInput(t *testing.T) {
	env := setupCLI(t)
	cases := [][]string{
		{"set", `Software\Example`, "Flag", "lots", "--type", "dword"},
		{"set", `Software\Example`, "Flag", "1", "2", "--type", "dword"},
		{"set", `Software\Example`, "Flag", "1", "--root", "HKLM"},
		{"remove", `Software\Example`},
	}
	for _, args := range cases {
		if _, _, err := env.run(t, args...); err == nil {
			t.Fatalf("expected %v to fail", args)
		}
	}
	if calls := env.mounter.Calls(); len(calls) != 0 {
		t.Fatalf("invalid input must not mount anything, got %v", calls)
	}
}

func TestSetMachineScope(t *testing.T) {
	env := setupCLI(t)
	if _, _, err := env.run(t, "set", `Software\Policies\Example`, "Enabled", "1", "--type", "dword", "--machine"); err != nil {
		t.Fatalf("set --machine: %v", err)
	}
	v, err := env.store.GetValue(regstore.Key{Root: regstore.LocalMachine, Path: `Software\Policies\Example`}, "Enabled")
	if err != nil || !v.Equal(regstore.DWordValue(1)) {
		t.Fatalf("machine value missing: %v %v", v, err)
	}
	if calls := env.mounter.Calls(); len(calls) != 0 {
		t.Fatalf("machine writes must not mount hives, got %v", calls)
	}
}

func TestMutatingCommandsRespectRunLock(t *testing.T) {
	env := setupCLI(t)
	held, err := runlock.Acquire(env.cfg.LockPath())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer held.Release()

	_, _, err = env.run(t, "set", `Software\Example`, "Flag", "1", "--type", "dword")
	if !errors.Is(err, runlock.ErrLocked) {
		t.Fatalf("expected lock error, got %v", err)
	}
	if _, _, err := env.run(t, "principals"); err != nil {
		t.Fatalf("read-only commands should not need the lock: %v", err)
	}
}

func TestPrincipalsTable(t *testing.T) {
	env := setupCLI(t)
	env.mounter.PreMount(t, sidAlice, `C:\Users\alice\NTUSER.DAT`)
	stdout, _, err := env.run(t, "principals")
	if err != nil {
		t.Fatalf("principals: %v", err)
	}
	for _, want := range []string{sidAlice, sidBob, ".DEFAULT", `HKU\WinprepDefaultProfile`, `C:\Users\bob\NTUSER.DAT`} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in:\n%s", want, stdout)
		}
	}
}

func TestRecoverAndMounts(t *testing.T) {
	env := setupCLI(t)
	env.mounter.PreMount(t, sidBob, `C:\Users\bob\NTUSER.DAT`)
	crashed := testsupport.MustOpenLedger(t, env.cfg, "run-crashed")
	if err := crashed.Mounted(context.Background(), sidBob, sidBob, `C:\Users\bob\NTUSER.DAT`); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	_ = crashed.Close()

	stdout, _, err := env.run(t, "mounts", "--stale")
	if err != nil {
		t.Fatalf("mounts: %v", err)
	}
	if !strings.Contains(stdout, sidBob) || !strings.Contains(stdout, "run-crashed") {
		t.Fatalf("expected stale mount in:\n%s", stdout)
	}

	stdout, _, err = env.run(t, "recover")
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if !strings.Contains(stdout, "Unloaded 1") {
		t.Fatalf("unexpected recover output %q", stdout)
	}
	if ok, _ := env.store.KeyExists(regstore.Key{Root: regstore.Users, Path: sidBob}); ok {
		t.Fatal("stale hive should be unloaded")
	}

	stdout, _, err = env.run(t, "mounts", "--stale")
	if err != nil || !strings.Contains(stdout, "No stale mounts") {
		t.Fatalf("expected clean ledger, got %q %v", stdout, err)
	}
}

func TestChecklistValidateAndFmt(t *testing.T) {
	env := setupCLI(t)
	dir := t.TempDir()
	good := testsupport.WriteFile(t, filepath.Join(dir, "good.toml"), `
		[[setting]]
		label = "Flag"
		path = 'Software\Example'
		name = "Flag"
		type = "dword"
		value = 1
	`)
	bad := testsupport.WriteFile(t, filepath.Join(dir, "bad.toml"), `
		[[setting]]
		label = "No name"
		path = 'Software\Example'
		type = "dword"
		value = 1
	`)

	stdout, _, err := env.run(t, "checklist", "validate", good)
	if err != nil || !strings.Contains(stdout, "1 settings, 0 invalid") {
		t.Fatalf("expected valid checklist, got %q %v", stdout, err)
	}
	stdout, _, err = env.run(t, "checklist", "validate", bad)
	if err == nil || !strings.Contains(stdout, "default_value") {
		t.Fatalf("expected invalid checklist, got %q %v", stdout, err)
	}

	stdout, _, err = env.run(t, "checklist", "fmt", good, "--format", "yaml")
	if err != nil {
		t.Fatalf("fmt: %v", err)
	}
	if !strings.Contains(stdout, "settings:") || !strings.Contains(stdout, "label: Flag") {
		t.Fatalf("unexpected yaml:\n%s", stdout)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLI(t)
	target := filepath.Join(t.TempDir(), "conf", "winprep.toml")

	stdout, _, err := env.run(t, "config", "init", "--path", target)
	if err != nil || !strings.Contains(stdout, target) {
		t.Fatalf("config init: %q %v", stdout, err)
	}
	if _, _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite")
	}

	stdout, _, err = env.run(t, "config", "validate")
	if err != nil || !strings.Contains(stdout, "Configuration valid") || !strings.Contains(stdout, env.configPath) {
		t.Fatalf("config validate: %q %v", stdout, err)
	}
}

func TestPreflightPrintsEveryCheck(t *testing.T) {
	env := setupCLI(t)
	stdout, _, _ := env.run(t, "preflight")
	for _, want := range []string{"State directory:", "Log directory:", "Elevation:", "reg.exe:", "Profile list:"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in:\n%s", want, stdout)
		}
	}
}

func TestLogsShowsLatestRun(t *testing.T) {
	env := setupCLI(t)
	if _, _, err := env.run(t, "set", `Software\Example`, "Flag", "1", "--type", "dword"); err != nil {
		t.Fatalf("set: %v", err)
	}
	stdout, _, err := env.run(t, "logs", "-n", "0")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(stdout, "principal updated") || !strings.Contains(stdout, "step finished") {
		t.Fatalf("unexpected log output:\n%s", stdout)
	}
	stdout, _, err = env.run(t, "logs", "--level", "error")
	if err != nil {
		t.Fatalf("logs --level: %v", err)
	}
	if strings.Contains(stdout, "INFO:") {
		t.Fatalf("expected only error lines:\n%s", stdout)
	}
}
