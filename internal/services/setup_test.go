package services_test

import (
	"testing"

	"github.com/hayat-scans/taskledger/internal/config"
	"github.com/hayat-scans/taskledger/internal/database"
	"github.com/hayat-scans/taskledger/internal/services"
)

// testEnv wires the full ledger against an in-memory SQLite database.
type testEnv struct {
	cfg    *config.Config
	mgr    *database.Manager
	audit  *services.Audit
	users  *services.Directory
	works  *services.Catalog
	ledger *services.Ledger
	stats  *services.Stats
	admins *services.Admins
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.LogFlushMS = 20

	mgr, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })

	if err := mgr.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	audit := services.NewAudit(mgr, cfg)
	t.Cleanup(audit.Close)

	works := services.NewCatalog(mgr, audit)
	env := &testEnv{
		cfg:    cfg,
		mgr:    mgr,
		audit:  audit,
		users:  services.NewDirectory(mgr),
		works:  works,
		ledger: services.NewLedger(mgr, works, audit, cfg),
		stats:  services.NewStats(mgr),
		admins: services.NewAdmins(mgr, audit),
	}
	return env
}

// mustRegisterWork seeds a catalog entry.
func (e *testEnv) mustRegisterWork(t *testing.T, name string) {
	t.Helper()
	if _, err := e.works.Register(name, "https://example.org/"+name, "1"); err != nil {
		t.Fatalf("Failed to register work %q: %v", name, err)
	}
}

// mustSettle runs assign → submit → approve for one key.
func (e *testEnv) mustSettle(t *testing.T, userID, work string, chapter, price int) {
	t.Helper()
	if _, err := e.ledger.Assign(userID, "user-"+userID, "", work, chapter, price, "1"); err != nil {
		t.Fatalf("Failed to assign %s/%s/%d: %v", userID, work, chapter, err)
	}
	if err := e.ledger.Submit(userID, work, chapter); err != nil {
		t.Fatalf("Failed to submit %s/%s/%d: %v", userID, work, chapter, err)
	}
	if _, err := e.ledger.Approve(userID, work, chapter, "1"); err != nil {
		t.Fatalf("Failed to approve %s/%s/%d: %v", userID, work, chapter, err)
	}
}
