package rollback_test

import (
	"context"
	"errors"
	"testing"

	"bosstitler/internal/rollback"
	"bosstitler/internal/store"
	"bosstitler/internal/testsupport"
)

type fakeWriter struct {
	titles  map[string]string
	failFor map[string]bool
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{titles: make(map[string]string), failFor: make(map[string]bool)}
}

func (f *fakeWriter) UpdateTitle(ctx context.Context, videoID, newTitle string) error {
	if f.failFor[videoID] {
		return errors.New("api unavailable")
	}
	f.titles[videoID] = newTitle
	return nil
}

type recordingAuditor struct {
	rollbacks []string
}

func (r *recordingAuditor) AppendRollback(ctx context.Context, videoID, restoredTitle string) {
	r.rollbacks = append(r.rollbacks, videoID)
}

func completeJob(t *testing.T, st *store.Store, videoID, originalTitle, newTitle string) {
	t.Helper()

	testsupport.AddJob(t, st, videoID, originalTitle, "Elden Ring")
	if _, err := st.UpdateStatus(context.Background(), videoID, store.StatusCompleted, store.StatusUpdate{
		NewTitle: &newTitle,
	}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
}

func TestRollbackItemRestoresTitle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	writer := newFakeWriter()
	auditor := &recordingAuditor{}
	manager := rollback.NewManager(st, writer, auditor, nil)

	ctx := context.Background()
	completeJob(t, st, "vid-1", "elden ring_20240101120000", "Elden Ring: Radahn Melee PS5")

	if err := manager.RollbackItem(ctx, "vid-1"); err != nil {
		t.Fatalf("RollbackItem failed: %v", err)
	}
	if got := writer.titles["vid-1"]; got != "elden ring_20240101120000" {
		t.Fatalf("restored title = %q", got)
	}

	job, err := st.GetJob(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	// The job stays completed so normal runs keep skipping it.
	if job.Status != store.StatusCompleted {
		t.Fatalf("status = %s, want completed", job.Status)
	}
	if job.NewTitle != job.OriginalTitle {
		t.Fatalf("new title not reset: %#v", job)
	}
	if len(auditor.rollbacks) != 1 || auditor.rollbacks[0] != "vid-1" {
		t.Fatalf("rollback audit missing: %#v", auditor.rollbacks)
	}
}

func TestRollbackItemRequiresJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	manager := rollback.NewManager(st, newFakeWriter(), nil, nil)

	if err := manager.RollbackItem(context.Background(), "absent"); err == nil {
		t.Fatal("expected error for unknown video")
	}
}

func TestRollbackItemRequiresRename(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	manager := rollback.NewManager(st, newFakeWriter(), nil, nil)

	// Pending job: no new title was ever written.
	testsupport.AddJob(t, st, "vid-1", "elden ring_20240101120000", "Elden Ring")
	if err := manager.RollbackItem(context.Background(), "vid-1"); err == nil {
		t.Fatal("expected error when no rename happened")
	}
}

func TestCandidatesFilterUnchangedTitles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	manager := rollback.NewManager(st, newFakeWriter(), nil, nil)

	ctx := context.Background()
	completeJob(t, st, "renamed", "elden ring_20240101120001", "Elden Ring: Radahn Melee PS5")
	completeJob(t, st, "restored", "elden ring_20240101120002", "elden ring_20240101120002")
	testsupport.AddJob(t, st, "pending", "elden ring_20240101120003", "Elden Ring")

	candidates, err := manager.Candidates(ctx)
	if err != nil {
		t.Fatalf("Candidates failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].VideoID != "renamed" {
		t.Fatalf("unexpected candidates: %#v", candidates)
	}
}

func TestRollbackBatchTalliesFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	writer := newFakeWriter()
	writer.failFor["bad"] = true
	manager := rollback.NewManager(st, writer, nil, nil)

	ctx := context.Background()
	completeJob(t, st, "good", "elden ring_20240101120001", "Elden Ring: Radahn Melee PS5")
	completeJob(t, st, "bad", "elden ring_20240101120002", "Elden Ring: Godrick Melee PS5")

	summary, err := manager.RollbackBatch(ctx)
	if err != nil {
		t.Fatalf("RollbackBatch failed: %v", err)
	}
	if summary.Total != 2 || summary.Restored != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
	if got := writer.titles["good"]; got != "elden ring_20240101120001" {
		t.Fatalf("good title not restored: %q", got)
	}
}
