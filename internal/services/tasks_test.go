package services_test

import (
	"sync"
	"testing"

	"github.com/hayat-scans/taskledger/internal/models"
	"github.com/hayat-scans/taskledger/internal/types"
)

func taskCount(t *testing.T, env *testEnv) int64 {
	t.Helper()
	var count int64
	if err := env.mgr.Read().Model(&models.Task{}).Count(&count).Error; err != nil {
		t.Fatalf("Failed to count tasks: %v", err)
	}
	return count
}

func TestAssignValidation(t *testing.T) {
	env := newTestEnv(t)
	env.mustRegisterWork(t, "Solo")

	cases := []struct {
		name    string
		chapter int
		price   int
	}{
		{"zero price", 1, 0},
		{"price over max", 1, env.cfg.MaxPrice + 1},
		{"zero chapter", 0, 100},
		{"negative chapter", -3, 100},
	}
	for _, tc := range cases {
		_, err := env.ledger.Assign("42", "almutarjim", "", "Solo", tc.chapter, tc.price, "1")
		if !types.IsValidation(err) {
			t.Errorf("%s: expected Validation, got %v", tc.name, err)
		}
	}

	// Validation failures never touch storage.
	if n := taskCount(t, env); n != 0 {
		t.Errorf("Expected no task rows after validation failures, found %d", n)
	}
}

func TestAssignUnknownWork(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ledger.Assign("42", "almutarjim", "", "Nope", 1, 100, "1")
	if !types.IsNotFound(err) {
		t.Errorf("Expected NotFound for unknown work, got %v", err)
	}
}

func TestAssignDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.mustRegisterWork(t, "Solo")

	if _, err := env.ledger.Assign("42", "almutarjim", "", "Solo", 1, 100, "1"); err != nil {
		t.Fatalf("First assign failed: %v", err)
	}
	_, err := env.ledger.Assign("42", "almutarjim", "", "Solo", 1, 150, "1")
	if !types.IsConflict(err) {
		t.Fatalf("Expected Conflict on duplicate assign, got %v", err)
	}
	if n := taskCount(t, env); n != 1 {
		t.Errorf("Expected exactly one task row, found %d", n)
	}
}

func TestAssignConcurrentDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.mustRegisterWork(t, "Solo")

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.ledger.Assign("42", "almutarjim", "", "Solo", 1, 100, "1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case types.IsConflict(err):
			conflicts++
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != callers-1 {
		t.Errorf("Expected 1 success and %d conflicts, got %d/%d", callers-1, successes, conflicts)
	}
	if n := taskCount(t, env); n != 1 {
		t.Errorf("Expected exactly one task row, found %d", n)
	}
}

func TestSubmitNoPending(t *testing.T) {
	env := newTestEnv(t)
	env.mustRegisterWork(t, "Solo")

	if err := env.ledger.Submit("42", "Solo", 1); !types.IsNotFound(err) {
		t.Errorf("Expected NotFound with no pending task, got %v", err)
	}
}

func TestSubmitIsConditional(t *testing.T) {
	env := newTestEnv(t)
	env.mustRegisterWork(t, "Solo")

	if _, err := env.ledger.Assign("42", "almutarjim", "", "Solo", 1, 100, "1"); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if err := env.ledger.Submit("42", "Solo", 1); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	// The task is no longer pending; a duplicate submit matches nothing.
	if err := env.ledger.Submit("42", "Solo", 1); !types.IsNotFound(err) {
		t.Errorf("Expected NotFound on duplicate submit, got %v", err)
	}

	tasks, err := env.ledger.Tasks("42", models.StatusSubmitted)
	if err != nil {
		t.Fatalf("Tasks failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].SubmittedAt == nil {
		t.Errorf("Expected one submitted task with timestamp, got %+v", tasks)
	}
}

func TestRejectThenReassign(t *testing.T) {
	env := newTestEnv(t)
	env.mustRegisterWork(t, "Solo")

	if _, err := env.ledger.Assign("42", "almutarjim", "", "Solo", 1, 100, "1"); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if err := env.ledger.Submit("42", "Solo", 1); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := env.ledger.Reject("42", "Solo", 1, "1", "missing pages"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	rejected, err := env.ledger.Tasks("42", models.StatusRejected)
	if err != nil {
		t.Fatalf("Tasks failed: %v", err)
	}
	if len(rejected) != 1 || rejected[0].RejectReason != "missing pages" {
		t.Errorf("Expected one rejected task with reason, got %+v", rejected)
	}

	// A rejected task does not block a fresh assignment for the same key.
	if _, err := env.ledger.Assign("42", "almutarjim", "", "Solo", 1, 120, "1"); err != nil {
		t.Fatalf("Re-assign after reject failed: %v", err)
	}
	if n := taskCount(t, env); n != 2 {
		t.Errorf("Expected two task rows (rejected + fresh pending), found %d", n)
	}
}

func TestRejectNoSubmitted(t *testing.T) {
	env := newTestEnv(t)
	env.mustRegisterWork(t, "Solo")

	if _, err := env.ledger.Assign("42", "almutarjim", "", "Solo", 1, 100, "1"); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	// Pending, not submitted.
	if err := env.ledger.Reject("42", "Solo", 1, "1", "nope"); !types.IsNotFound(err) {
		t.Errorf("Expected NotFound rejecting a pending task, got %v", err)
	}
}

func TestApproveEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.mustRegisterWork(t, "A")

	if _, err := env.ledger.Assign("42", "almutarjim", "", "A", 1, 100, "1"); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if err := env.ledger.Submit("42", "A", 1); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	task, err := env.ledger.Approve("42", "A", 1, "1")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if task.Status != models.StatusApproved || task.ApprovedBy != "1" {
		t.Errorf("Expected approved task, got %+v", task)
	}

	stats, err := env.stats.UserStats("42")
	if err != nil {
		t.Fatalf("UserStats failed: %v", err)
	}
	if stats.TotalEarned != 100 || stats.ChaptersCount != 1 {
		t.Errorf("Expected total_earned=100 chapters_count=1, got %d/%d", stats.TotalEarned, stats.ChaptersCount)
	}

	// Settlement is exactly-once: the same key cannot approve twice.
	if _, err := env.ledger.Approve("42", "A", 1, "1"); !types.IsConflict(err) {
		t.Errorf("Expected Conflict on second approve, got %v", err)
	}

	var chapters int64
	if err := env.mgr.Read().Model(&models.Chapter{}).Count(&chapters).Error; err != nil {
		t.Fatalf("Failed to count chapters: %v", err)
	}
	if chapters != 1 {
		t.Errorf("Expected exactly one chapter row, found %d", chapters)
	}

	var financial int64
	err = env.mgr.Read().Model(&models.LogEntry{}).
		Where("category = ? AND action = ?", models.CategoryFinancial, "financial_approve").
		Count(&financial).Error
	if err != nil {
		t.Fatalf("Failed to count financial entries: %v", err)
	}
	if financial != 1 {
		t.Errorf("Expected exactly one financial log entry, found %d", financial)
	}
}

func TestApproveConcurrentDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.mustRegisterWork(t, "Solo")

	if _, err := env.ledger.Assign("42", "almutarjim", "", "Solo", 1, 100, "1"); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if err := env.ledger.Submit("42", "Solo", 1); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.ledger.Approve("42", "Solo", 1, "1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case types.IsConflict(err):
			conflicts++
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Errorf("Expected exactly one success and one conflict, got %d/%d", successes, conflicts)
	}

	var chapters int64
	if err := env.mgr.Read().Model(&models.Chapter{}).Count(&chapters).Error; err != nil {
		t.Fatalf("Failed to count chapters: %v", err)
	}
	if chapters != 1 {
		t.Errorf("Expected exactly one chapter row, found %d", chapters)
	}
}

func TestApproveRequiresSubmission(t *testing.T) {
	env := newTestEnv(t)
	env.mustRegisterWork(t, "Solo")

	if _, err := env.ledger.Assign("42", "almutarjim", "", "Solo", 1, 100, "1"); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if _, err := env.ledger.Approve("42", "Solo", 1, "1"); !types.IsNotFound(err) {
		t.Errorf("Expected NotFound approving a pending task, got %v", err)
	}
}

func TestTasksNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	env.mustRegisterWork(t, "Solo")

	for chapter := 1; chapter <= 3; chapter++ {
		if _, err := env.ledger.Assign("42", "almutarjim", "", "Solo", chapter, 100, "1"); err != nil {
			t.Fatalf("Assign chapter %d failed: %v", chapter, err)
		}
	}

	tasks, err := env.ledger.Tasks("42", "")
	if err != nil {
		t.Fatalf("Tasks failed: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("Expected 3 tasks, got %d", len(tasks))
	}
	if tasks[0].Chapter != 3 || tasks[2].Chapter != 1 {
		t.Errorf("Expected newest-first ordering, got chapters %d,%d,%d",
			tasks[0].Chapter, tasks[1].Chapter, tasks[2].Chapter)
	}

	pending, err := env.ledger.Tasks("42", models.StatusPending)
	if err != nil {
		t.Fatalf("Tasks with filter failed: %v", err)
	}
	if len(pending) != 3 {
		t.Errorf("Expected 3 pending tasks, got %d", len(pending))
	}
}
