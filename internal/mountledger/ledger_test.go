package mountledger_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"winprep/internal/mountledger"
)

func openLedger(t *testing.T, path, runID string) *mountledger.Ledger {
	t.Helper()
	ledger, err := mountledger.Open(path, runID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger
}

func TestMountReleaseLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "mounts.db")
	ledger := openLedger(t, path, "run-a")
	ctx := context.Background()

	if err := ledger.Mounted(ctx, "S-1-5-21-1-2-3-1001", "S-1-5-21-1-2-3-1001", `C:\Users\a\NTUSER.DAT`); err != nil {
		t.Fatalf("Mounted: %v", err)
	}
	open, err := ledger.List(ctx, true, 0)
	if err != nil || len(open) != 1 || open[0].Status != mountledger.StatusMounted {
		t.Fatalf("expected one open row, got %+v %v", open, err)
	}
	if err := ledger.Released(ctx, "S-1-5-21-1-2-3-1001", nil); err != nil {
		t.Fatalf("Released: %v", err)
	}
	all, _ := ledger.List(ctx, false, 0)
	if len(all) != 1 || all[0].Status != mountledger.StatusReleased || all[0].ReleasedAt.IsZero() {
		t.Fatalf("expected released row, got %+v", all)
	}
	if open, _ := ledger.List(ctx, true, 0); len(open) != 0 {
		t.Fatalf("expected no open rows, got %+v", open)
	}
}

func TestFailedReleaseIsStaleForNextRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mounts.db")
	ctx := context.Background()

	first := openLedger(t, path, "run-a")
	_ = first.Mounted(ctx, ".DEFAULT", "WinprepDefaultProfile", `C:\Users\Default\NTUSER.DAT`)
	if err := first.Released(ctx, "WinprepDefaultProfile", errors.New("access denied")); err != nil {
		t.Fatalf("Released: %v", err)
	}
	if claimed, _ := first.Claimed(ctx, "WinprepDefaultProfile"); !claimed {
		t.Fatal("a failed release keeps the run's own row open")
	}
	_ = first.Close()

	second := openLedger(t, path, "run-b")
	claimed, err := second.Claimed(ctx, "winprepdefaultprofile")
	if err != nil {
		t.Fatalf("Claimed: %v", err)
	}
	if !claimed {
		t.Fatal("expected mount name lookup to be case-insensitive and stale")
	}
	entries, err := second.OpenEntries(ctx)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one open entry, got %+v %v", entries, err)
	}
	if entries[0].Status != mountledger.StatusReleaseFailed || entries[0].Detail != "access denied" {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
	if err := second.MarkRecovered(ctx, entries[0].ID, "unloaded by recovery"); err != nil {
		t.Fatalf("MarkRecovered: %v", err)
	}
	if claimed, _ := second.Claimed(ctx, "WinprepDefaultProfile"); claimed {
		t.Fatal("expected recovered row to close the stale mount")
	}
}

func TestAdoptClosesOldRowsAndOpensNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mounts.db")
	ctx := context.Background()

	first := openLedger(t, path, "run-a")
	_ = first.Mounted(ctx, "S-1", "S-1", `C:\Users\s1\NTUSER.DAT`)
	_ = first.Close()

	second := openLedger(t, path, "run-b")
	if err := second.Adopt(ctx, "S-1", "S-1", `C:\Users\s1\NTUSER.DAT`); err != nil {
		t.Fatalf("Adopt: %v", err)
	}
	all, _ := second.List(ctx, false, 0)
	if len(all) != 2 {
		t.Fatalf("expected two rows, got %+v", all)
	}
	if all[0].RunID != "run-b" || all[0].Status != mountledger.StatusMounted {
		t.Fatalf("expected newest row to belong to run-b, got %+v", all[0])
	}
	if all[1].Status != mountledger.StatusAbandoned {
		t.Fatalf("expected old row abandoned, got %+v", all[1])
	}
	if err := second.Released(ctx, "S-1", nil); err != nil {
		t.Fatalf("Released: %v", err)
	}
	if open, _ := second.List(ctx, true, 0); len(open) != 0 {
		t.Fatalf("expected nothing open, got %+v", open)
	}
}

func TestAdoptReopensOwnFailedRelease(t *testing.T) {
	ledger := openLedger(t, filepath.Join(t.TempDir(), "mounts.db"), "run-a")
	ctx := context.Background()
	_ = ledger.Mounted(ctx, "S-1", "S-1", `C:\Users\s1\NTUSER.DAT`)
	_ = ledger.Released(ctx, "S-1", errors.New("in use"))

	if err := ledger.Adopt(ctx, "S-1", "S-1", `C:\Users\s1\NTUSER.DAT`); err != nil {
		t.Fatalf("Adopt: %v", err)
	}
	all, _ := ledger.List(ctx, false, 0)
	if len(all) != 1 {
		t.Fatalf("expected the row to be reused, got %+v", all)
	}
	if all[0].Status != mountledger.StatusMounted || all[0].Detail != "" {
		t.Fatalf("expected reopened mounted row, got %+v", all[0])
	}
}

func TestMarkUnknownRowFails(t *testing.T) {
	ledger := openLedger(t, filepath.Join(t.TempDir(), "mounts.db"), "run-a")
	if err := ledger.MarkAbandoned(context.Background(), 99, "gone"); err == nil {
		t.Fatal("expected error for missing row")
	}
}

func TestOpenRequiresRunID(t *testing.T) {
	if _, err := mountledger.Open(filepath.Join(t.TempDir(), "mounts.db"), " "); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestListLimit(t *testing.T) {
	ledger := openLedger(t, filepath.Join(t.TempDir(), "mounts.db"), "run-a")
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		_ = ledger.Mounted(ctx, name, name, name)
	}
	got, err := ledger.List(ctx, false, 2)
	if err != nil || len(got) != 2 || got[0].MountName != "c" {
		t.Fatalf("unexpected limited list %+v %v", got, err)
	}
}
