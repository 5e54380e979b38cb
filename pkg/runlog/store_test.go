package runlog

import (
	"errors"
	"testing"
	"time"
)

func TestStore_WriteGetRoundTrip(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rec := &RunRecord{
		RunID:        "run-1",
		Name:         "nightly",
		State:        RunStateRunning,
		ManifestPath: "/tmp/suite.yaml",
		Source:       "s3",
		CreatedAt:    now,
		StartedAt:    &now,
		Counts:       RunCounts{KeysMatched: 12, Evaluations: 12},
	}

	if err := s.Write(rec); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got, err := s.Get("run-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.RunID != rec.RunID {
		t.Fatalf("run_id mismatch: got=%q want=%q", got.RunID, rec.RunID)
	}
	if got.State != RunStateRunning {
		t.Fatalf("state mismatch: got=%q", got.State)
	}
	if got.Counts.KeysMatched != 12 {
		t.Fatalf("counts not persisted: %+v", got.Counts)
	}
}

func TestStore_BeginFinish(t *testing.T) {
	s := NewStore(t.TempDir())

	rec, err := s.Begin("demo", "/tmp/suite.yaml", "file")
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if rec.RunID == "" {
		t.Fatal("expected generated run_id")
	}
	if rec.State != RunStateRunning {
		t.Fatalf("unexpected state: %q", rec.State)
	}

	rec.Counts.Evaluations = 5
	if err := s.Finish(rec, RunStateFailed, errors.New("bucket unreachable")); err != nil {
		t.Fatalf("Finish() error: %v", err)
	}

	got, err := s.Get(rec.RunID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.State != RunStateFailed {
		t.Fatalf("state mismatch: got=%q", got.State)
	}
	if got.Error != "bucket unreachable" {
		t.Fatalf("error not persisted: %q", got.Error)
	}
	if got.EndedAt == nil {
		t.Fatal("ended_at not set")
	}
	if got.Counts.Evaluations != 5 {
		t.Fatalf("counts not persisted: %+v", got.Counts)
	}
}

func TestStore_ListSortsNewestFirst(t *testing.T) {
	s := NewStore(t.TempDir())

	t1 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC)

	if err := s.Write(&RunRecord{RunID: "run-1", State: RunStateSuccess, CreatedAt: t1, StartedAt: &t1}); err != nil {
		t.Fatalf("Write run-1: %v", err)
	}
	if err := s.Write(&RunRecord{RunID: "run-2", State: RunStateSuccess, CreatedAt: t2, StartedAt: &t2}); err != nil {
		t.Fatalf("Write run-2: %v", err)
	}

	got, err := s.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected run count: %d", len(got))
	}
	if got[0].RunID != "run-2" {
		t.Fatalf("expected newest first, got[0]=%q", got[0].RunID)
	}
}

func TestStore_EmptyRoot(t *testing.T) {
	s := NewStore("")
	if err := s.Write(&RunRecord{RunID: "x"}); err == nil {
		t.Fatal("expected error for empty root")
	}
}
