package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/thyrook/pacer/internal/schedule"
)

// Helper to open a store in a temp directory
func newTestStore(t *testing.T) *RunStore {
	t.Helper()
	store, err := NewRunStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewRunStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	state := RunState{
		RunID:       "exp-001",
		LastStep:    4999,
		Fingerprint: "abc123",
	}
	if err := store.SaveState(state); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	loaded, err := store.LoadState("exp-001")
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if loaded.LastStep != 4999 {
		t.Errorf("Expected last step 4999, got %d", loaded.LastStep)
	}
	if loaded.Fingerprint != "abc123" {
		t.Errorf("Expected fingerprint abc123, got %s", loaded.Fingerprint)
	}
	if loaded.UpdatedAt == 0 {
		t.Error("Expected update time to be stamped")
	}
}

func TestLoadMissingRun(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LoadState("nope")
	if err == nil {
		t.Fatal("Expected an error for a missing run, got nil")
	}
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestSaveStateValidation(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveState(RunState{RunID: "", LastStep: 5}); err == nil {
		t.Error("Expected an error for empty run ID, got nil")
	}
	if err := store.SaveState(RunState{RunID: "r", LastStep: -2}); err == nil {
		t.Error("Expected an error for last step below -1, got nil")
	}
}

func TestResumeStep(t *testing.T) {
	store := newTestStore(t)

	cfg := schedule.Config{
		TotalSteps:  1000,
		WarmupSteps: 100,
		MinLRRatio:  0.1,
		BaseLRs:     []float64{0.1},
	}
	fp := Fingerprint(cfg)

	if err := store.SaveState(RunState{RunID: "exp", LastStep: 250, Fingerprint: fp}); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	t.Run("MatchingFingerprint", func(t *testing.T) {
		step, err := store.ResumeStep("exp", fp)
		if err != nil {
			t.Fatalf("ResumeStep failed: %v", err)
		}
		if step != 250 {
			t.Errorf("Expected step 250, got %d", step)
		}
	})

	t.Run("DriftedConfig", func(t *testing.T) {
		drifted := cfg
		drifted.WarmupSteps = 200
		_, err := store.ResumeStep("exp", Fingerprint(drifted))
		if err == nil {
			t.Fatal("Expected an error for a drifted schedule, got nil")
		}
		if !errors.Is(err, ErrFingerprintMismatch) {
			t.Errorf("Expected ErrFingerprintMismatch, got %v", err)
		}
	})
}

func TestOverwriteRun(t *testing.T) {
	store := newTestStore(t)

	for step := 100; step <= 300; step += 100 {
		if err := store.SaveState(RunState{RunID: "exp", LastStep: step, Fingerprint: "fp"}); err != nil {
			t.Fatalf("SaveState failed at step %d: %v", step, err)
		}
	}

	loaded, err := store.LoadState("exp")
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if loaded.LastStep != 300 {
		t.Errorf("Expected latest step 300, got %d", loaded.LastStep)
	}
}

func TestListAndDelete(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := store.SaveState(RunState{RunID: id, LastStep: 1, Fingerprint: "fp"}); err != nil {
			t.Fatalf("SaveState failed: %v", err)
		}
	}

	runs, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("Expected 3 runs, got %d", len(runs))
	}

	if err := store.DeleteRun("b"); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if err := store.DeleteRun("missing"); err != nil {
		t.Errorf("Expected deleting an unknown run to succeed, got %v", err)
	}

	stats, err := store.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.NumRuns != 2 {
		t.Errorf("Expected 2 runs after delete, got %d", stats.NumRuns)
	}
}

func TestClear(t *testing.T) {
	store := newTestStore(t)

	if err := store.SaveState(RunState{RunID: "x", LastStep: 1, Fingerprint: "fp"}); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	runs, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("Expected no runs after clear, got %d", len(runs))
	}
}

func TestClosedStore(t *testing.T) {
	store := newTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := store.SaveState(RunState{RunID: "x", LastStep: 1}); err == nil {
		t.Error("Expected an error saving to a closed store, got nil")
	}
	if _, err := store.LoadState("x"); err == nil {
		t.Error("Expected an error loading from a closed store, got nil")
	}
	if err := store.Close(); err != nil {
		t.Errorf("Expected double close to be harmless, got %v", err)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	store, err := NewRunStore(path)
	if err != nil {
		t.Fatalf("NewRunStore failed: %v", err)
	}
	if err := store.SaveState(RunState{RunID: "exp", LastStep: 42, Fingerprint: "fp"}); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewRunStore(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.LoadState("exp")
	if err != nil {
		t.Fatalf("LoadState after reopen failed: %v", err)
	}
	if loaded.LastStep != 42 {
		t.Errorf("Expected step 42 after reopen, got %d", loaded.LastStep)
	}
}

func TestFingerprint(t *testing.T) {
	cfg := schedule.Config{
		TotalSteps:  1000,
		WarmupSteps: 100,
		MinLRRatio:  0.1,
		Plateaus:    []schedule.PlateauSpec{{PositionPct: 50, DurationPct: 20}},
		BaseLRs:     []float64{0.1},
	}

	t.Run("Deterministic", func(t *testing.T) {
		if Fingerprint(cfg) != Fingerprint(cfg) {
			t.Error("Expected identical configs to share a fingerprint")
		}
	})

	t.Run("SensitiveToSchedule", func(t *testing.T) {
		changed := cfg
		changed.MinLRRatio = 0.2
		if Fingerprint(changed) == Fingerprint(cfg) {
			t.Error("Expected a changed ratio to change the fingerprint")
		}
	})

	t.Run("IgnoresRuntimeFields", func(t *testing.T) {
		resumed := cfg
		resumed.LastStep = 500
		resumed.Verbose = true
		if Fingerprint(resumed) != Fingerprint(cfg) {
			t.Error("Expected resume counter and verbosity to not affect the fingerprint")
		}
	})
}
