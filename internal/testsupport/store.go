package testsupport

import (
	"testing"

	"winprep/internal/config"
	"winprep/internal/mountledger"
)

// MustOpenLedger opens the mount ledger for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config, runID string) *mountledger.Ledger {
	t.Helper()

	ledger, err := mountledger.Open(cfg.LedgerPath(), runID)
	if err != nil {
		t.Fatalf("mountledger.Open: %v", err)
	}
	t.Cleanup(func() {
		ledger.Close()
	})
	return ledger
}
