package services_test

import (
	"testing"

	"github.com/hayat-scans/taskledger/internal/types"
)

func TestAddAdminIdempotent(t *testing.T) {
	env := newTestEnv(t)

	added, err := env.admins.Add("42", "1")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !added {
		t.Error("Expected first Add to report a new grant")
	}

	added, err = env.admins.Add("42", "1")
	if err != nil {
		t.Fatalf("Second Add failed: %v", err)
	}
	if added {
		t.Error("Expected repeated Add to be a no-op")
	}

	grants, err := env.admins.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(grants) != 1 {
		t.Errorf("Expected exactly one grant, got %d", len(grants))
	}

	isAdmin, err := env.admins.IsAdmin("42")
	if err != nil {
		t.Fatalf("IsAdmin failed: %v", err)
	}
	if !isAdmin {
		t.Error("Expected user 42 to be admin")
	}
}

func TestRemoveAdminReportsExistence(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.admins.Add("42", "1"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	removed, err := env.admins.Remove("42", "1")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Error("Expected Remove to report an existing grant")
	}

	removed, err = env.admins.Remove("42", "1")
	if err != nil {
		t.Fatalf("Second Remove failed: %v", err)
	}
	if removed {
		t.Error("Expected Remove of absent grant to report false")
	}

	isAdmin, err := env.admins.IsAdmin("42")
	if err != nil {
		t.Fatalf("IsAdmin failed: %v", err)
	}
	if isAdmin {
		t.Error("Expected user 42 to no longer be admin")
	}
}

func TestOwnerWriteOnce(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.admins.Owner(); !types.IsNotFound(err) {
		t.Errorf("Expected NotFound before owner is set, got %v", err)
	}

	if err := env.admins.SetOwner("42"); err != nil {
		t.Fatalf("SetOwner failed: %v", err)
	}

	// First successful set wins; everyone after gets Conflict.
	if err := env.admins.SetOwner("43"); !types.IsConflict(err) {
		t.Errorf("Expected Conflict on second SetOwner, got %v", err)
	}

	owner, err := env.admins.Owner()
	if err != nil {
		t.Fatalf("Owner failed: %v", err)
	}
	if owner != "42" {
		t.Errorf("Expected owner 42, got %q", owner)
	}
}

func TestSetOwnerValidation(t *testing.T) {
	env := newTestEnv(t)

	if err := env.admins.SetOwner(""); !types.IsValidation(err) {
		t.Errorf("Expected Validation for empty owner id, got %v", err)
	}
}
