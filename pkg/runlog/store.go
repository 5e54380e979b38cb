package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store persists and loads RunRecords from an on-disk directory.
//
// Directory layout:
//
//	<root>/<run_id>/run.json
//
// Root is expected to be under the app data dir.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: strings.TrimSpace(root)}
}

func (s *Store) RootDir() string {
	return s.root
}

func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.root, runID)
}

func (s *Store) RunPath(runID string) string {
	return filepath.Join(s.RunDir(runID), "run.json")
}

func (s *Store) ensureRoot() error {
	if strings.TrimSpace(s.root) == "" {
		return fmt.Errorf("run log root dir is empty")
	}
	return os.MkdirAll(s.root, 0755)
}

// Begin creates and persists a new running record.
func (s *Store) Begin(name, manifestPath, source string) (*RunRecord, error) {
	now := time.Now().UTC()
	rec := &RunRecord{
		RunID:        uuid.New().String(),
		Name:         strings.TrimSpace(name),
		State:        RunStateRunning,
		ManifestPath: strings.TrimSpace(manifestPath),
		Source:       source,
		CreatedAt:    now,
		StartedAt:    &now,
	}
	if err := s.Write(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Finish marks the record terminal and persists it.
//
// State should be one of RunStateSuccess, RunStatePartial, or RunStateFailed.
func (s *Store) Finish(rec *RunRecord, state RunState, runErr error) error {
	if rec == nil {
		return fmt.Errorf("run record is nil")
	}
	now := time.Now().UTC()
	rec.State = state
	rec.EndedAt = &now
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	return s.Write(rec)
}

// Write persists a record atomically (temp file + rename).
func (s *Store) Write(rec *RunRecord) error {
	if rec == nil {
		return fmt.Errorf("run record is nil")
	}
	runID := strings.TrimSpace(rec.RunID)
	if runID == "" {
		return fmt.Errorf("run_id is required")
	}
	if err := s.ensureRoot(); err != nil {
		return err
	}

	runDir := s.RunDir(runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}

	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(runDir, "run.json.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp run file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp run file: %w", err)
	}

	if err := os.Rename(tmpName, s.RunPath(runID)); err != nil {
		return fmt.Errorf("rename run file: %w", err)
	}
	return nil
}

func (s *Store) Get(runID string) (*RunRecord, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	b, err := os.ReadFile(s.RunPath(runID))
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" {
		return nil, fmt.Errorf("run.json is empty")
	}

	var rec RunRecord
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return nil, fmt.Errorf("parse run.json: %w", err)
	}

	return &rec, nil
}

// List returns all records, newest first. Unreadable entries are skipped.
func (s *Store) List() ([]RunRecord, error) {
	if err := s.ensureRoot(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs root: %w", err)
	}

	out := make([]RunRecord, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		r, err := s.Get(entry.Name())
		if err != nil {
			continue
		}
		out = append(out, *r)
	}

	sort.Slice(out, func(i, j int) bool {
		return runSortTime(out[i]).After(runSortTime(out[j]))
	})

	return out, nil
}

func runSortTime(r RunRecord) time.Time {
	if r.StartedAt != nil {
		return r.StartedAt.UTC()
	}
	return r.CreatedAt.UTC()
}
