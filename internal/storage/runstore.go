package storage

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/thyrook/pacer/internal/schedule"
)

const (
	// RunsBucket holds one state record per run ID
	RunsBucket = "runs"

	// MetaBucket holds store-level metadata
	MetaBucket = "meta"

	// SchemaKey tracks the store's record layout version
	SchemaKey = "schema"

	schemaVersion = 1
)

// ErrRunNotFound is returned when a run ID has no stored state.
var ErrRunNotFound = errors.New("run not found")

// ErrFingerprintMismatch is returned when a stored run was produced by a
// different schedule configuration.
var ErrFingerprintMismatch = errors.New("schedule fingerprint mismatch")

// RunState is the resumable state of one training run: the step counter the
// scheduler needs, plus enough identity to refuse resuming a drifted
// configuration.
type RunState struct {
	RunID       string `json:"run_id"`
	LastStep    int    `json:"last_step"`
	Fingerprint string `json:"fingerprint"`
	UpdatedAt   int64  `json:"updated_at"`
}

// RunStore persists run states in a BoltDB file.
type RunStore struct {
	db       *bbolt.DB
	dbPath   string
	isClosed bool
}

// NewRunStore opens (or creates) a run store at the given path.
func NewRunStore(dbPath string) (*RunStore, error) {
	// Open database with timeout
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Initialize buckets and schema marker
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(RunsBucket)); err != nil {
			return fmt.Errorf("create runs bucket: %w", err)
		}

		meta, err := tx.CreateBucketIfNotExists([]byte(MetaBucket))
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}

		if meta.Get([]byte(SchemaKey)) == nil {
			version := make([]byte, 8)
			binary.BigEndian.PutUint64(version, schemaVersion)
			return meta.Put([]byte(SchemaKey), version)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &RunStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// SaveState writes a run's state, stamping the update time.
func (s *RunStore) SaveState(state RunState) error {
	if s.isClosed {
		return fmt.Errorf("store is closed")
	}

	// Validate input
	if state.RunID == "" {
		return fmt.Errorf("invalid run state: empty run ID")
	}
	if state.LastStep < -1 {
		return fmt.Errorf("invalid run state: last step %d", state.LastStep)
	}

	state.UpdatedAt = time.Now().Unix()

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(RunsBucket))
		if b == nil {
			return fmt.Errorf("runs bucket not found")
		}
		return b.Put([]byte(state.RunID), data)
	})
}

// LoadState reads a run's state by ID.
func (s *RunStore) LoadState(runID string) (RunState, error) {
	if s.isClosed {
		return RunState{}, fmt.Errorf("store is closed")
	}

	var state RunState
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(RunsBucket))
		if b == nil {
			return fmt.Errorf("runs bucket not found")
		}

		data := b.Get([]byte(runID))
		if data == nil {
			return fmt.Errorf("%w: %q", ErrRunNotFound, runID)
		}
		return json.Unmarshal(data, &state)
	})
	if err != nil {
		return RunState{}, err
	}
	return state, nil
}

// ResumeStep returns the stored step counter for a run after checking that
// the stored fingerprint matches the schedule about to be resumed.
func (s *RunStore) ResumeStep(runID, fingerprint string) (int, error) {
	state, err := s.LoadState(runID)
	if err != nil {
		return -1, err
	}
	if state.Fingerprint != fingerprint {
		return -1, fmt.Errorf("%w: run %q was recorded with a different schedule", ErrFingerprintMismatch, runID)
	}
	return state.LastStep, nil
}

// DeleteRun removes a run's state. Deleting an unknown run is not an error.
func (s *RunStore) DeleteRun(runID string) error {
	if s.isClosed {
		return fmt.Errorf("store is closed")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(RunsBucket))
		if b == nil {
			return fmt.Errorf("runs bucket not found")
		}
		return b.Delete([]byte(runID))
	})
}

// ListRuns returns the stored run states, ordered by run ID.
func (s *RunStore) ListRuns() ([]RunState, error) {
	if s.isClosed {
		return nil, fmt.Errorf("store is closed")
	}

	var runs []RunState
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(RunsBucket))
		if b == nil {
			return fmt.Errorf("runs bucket not found")
		}

		return b.ForEach(func(k, v []byte) error {
			var state RunState
			if err := json.Unmarshal(v, &state); err != nil {
				// Skip corrupted records
				return nil
			}
			runs = append(runs, state)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Clear removes all run states.
func (s *RunStore) Clear() error {
	if s.isClosed {
		return fmt.Errorf("store is closed")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(RunsBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(RunsBucket))
		return err
	})
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	if s.isClosed {
		return nil
	}

	s.isClosed = true
	return s.db.Close()
}

// Stats describes the store's contents.
type Stats struct {
	NumRuns int
	DBPath  string
}

// GetStats returns current statistics.
func (s *RunStore) GetStats() (Stats, error) {
	runs, err := s.ListRuns()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		NumRuns: len(runs),
		DBPath:  s.dbPath,
	}, nil
}

// Fingerprint derives a stable identity for a schedule configuration.
// Runtime fields (resume counter, verbosity) are excluded so a resumed run
// keeps its identity.
func Fingerprint(cfg schedule.Config) string {
	identity := struct {
		TotalSteps  int                    `json:"total_steps"`
		WarmupSteps int                    `json:"warmup_steps"`
		MinLRRatio  float64                `json:"min_lr_ratio"`
		Plateaus    []schedule.PlateauSpec `json:"plateaus"`
		BaseLRs     []float64              `json:"base_lrs"`
		WarmupType  string                 `json:"warmup_type"`
	}{
		TotalSteps:  cfg.TotalSteps,
		WarmupSteps: cfg.WarmupSteps,
		MinLRRatio:  cfg.MinLRRatio,
		Plateaus:    cfg.Plateaus,
		BaseLRs:     cfg.BaseLRs,
		WarmupType:  cfg.WarmupType,
	}

	data, err := json.Marshal(identity)
	if err != nil {
		// Only unmarshalable types can fail here; the struct has none.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
