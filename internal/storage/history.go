package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// MetricsBucket holds the bounded ring of step records
	MetricsBucket = "metrics"

	// HistoryCountKey tracks how many records were ever appended
	HistoryCountKey = "count"

	// DefaultHistorySize bounds the history when no size is configured
	DefaultHistorySize = 10000
)

// StepRecord is one completed training step as kept in the history: enough
// to chart recent loss and learning-rate movement without the full run.
type StepRecord struct {
	RunID         string    `json:"run_id"`
	Step          int       `json:"step"`
	Loss          float64   `json:"loss"`
	LearningRates []float64 `json:"learning_rates"`
	Timestamp     int64     `json:"timestamp"`
}

// MetricsStore keeps the most recent training step records in a BoltDB
// file. The store is a circular buffer: once maxSize records exist, new
// appends overwrite the oldest.
type MetricsStore struct {
	db       *bbolt.DB
	dbPath   string
	maxSize  int
	count    uint64
	isClosed bool
}

// NewMetricsStore opens (or creates) a metrics history at the given path.
func NewMetricsStore(dbPath string, maxSize int) (*MetricsStore, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("invalid history size: %d", maxSize)
	}

	// Open database with timeout
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Initialize buckets
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(MetricsBucket)); err != nil {
			return fmt.Errorf("create metrics bucket: %w", err)
		}

		if _, err := tx.CreateBucketIfNotExists([]byte(MetaBucket)); err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}

		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	store := &MetricsStore{
		db:      db,
		dbPath:  dbPath,
		maxSize: maxSize,
	}

	// Load current count
	count, err := store.CountRecords()
	if err != nil {
		db.Close()
		return nil, err
	}
	store.count = count

	return store, nil
}

// Append stores one step record, overwriting the oldest once the buffer is
// full.
func (s *MetricsStore) Append(record StepRecord) error {
	if s.isClosed {
		return fmt.Errorf("store is closed")
	}

	// Validate input
	if record.RunID == "" {
		return fmt.Errorf("invalid step record: empty run ID")
	}
	if record.Step < 0 {
		return fmt.Errorf("invalid step record: step %d", record.Step)
	}

	record.Timestamp = time.Now().Unix()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal step record: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(MetricsBucket))
		if b == nil {
			return fmt.Errorf("metrics bucket not found")
		}

		// Use current count as key (implements circular buffer)
		key := s.count % uint64(s.maxSize)
		keyBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(keyBytes, key)

		if err := b.Put(keyBytes, data); err != nil {
			return err
		}

		// Update count in meta bucket
		meta := tx.Bucket([]byte(MetaBucket))
		if meta == nil {
			return fmt.Errorf("meta bucket not found")
		}

		s.count++
		countBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(countBytes, s.count)

		return meta.Put([]byte(HistoryCountKey), countBytes)
	})
}

// GetRecent returns up to n of the newest records in append order.
func (s *MetricsStore) GetRecent(n int) ([]StepRecord, error) {
	if s.isClosed {
		return nil, fmt.Errorf("store is closed")
	}
	if n <= 0 {
		return nil, fmt.Errorf("invalid record count: %d", n)
	}

	total, err := s.CountRecords()
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, nil
	}

	avail := total
	if avail > uint64(s.maxSize) {
		avail = uint64(s.maxSize)
	}
	if uint64(n) > avail {
		n = int(avail)
	}

	records := make([]StepRecord, 0, n)

	err = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(MetricsBucket))
		if b == nil {
			return fmt.Errorf("metrics bucket not found")
		}

		for i := total - uint64(n); i < total; i++ {
			keyBytes := make([]byte, 8)
			binary.BigEndian.PutUint64(keyBytes, i%uint64(s.maxSize))

			data := b.Get(keyBytes)
			if data == nil {
				continue
			}

			var record StepRecord
			if err := json.Unmarshal(data, &record); err != nil {
				// Skip corrupted records
				continue
			}

			records = append(records, record)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// CountRecords returns how many records were ever appended.
func (s *MetricsStore) CountRecords() (uint64, error) {
	if s.isClosed {
		return 0, fmt.Errorf("store is closed")
	}

	var count uint64

	err := s.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket([]byte(MetaBucket))
		if meta == nil {
			return fmt.Errorf("meta bucket not found")
		}

		countBytes := meta.Get([]byte(HistoryCountKey))
		if countBytes == nil {
			count = 0
			return nil
		}

		count = binary.BigEndian.Uint64(countBytes)
		return nil
	})

	return count, err
}

// ActualSize returns the number of records currently held (handles the
// wrapped buffer).
func (s *MetricsStore) ActualSize() (int, error) {
	count, err := s.CountRecords()
	if err != nil {
		return 0, err
	}

	if count > uint64(s.maxSize) {
		return s.maxSize, nil
	}

	return int(count), nil
}

// Clear removes all records from the history.
func (s *MetricsStore) Clear() error {
	if s.isClosed {
		return fmt.Errorf("store is closed")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		// Delete and recreate bucket
		if err := tx.DeleteBucket([]byte(MetricsBucket)); err != nil {
			return err
		}

		if _, err := tx.CreateBucket([]byte(MetricsBucket)); err != nil {
			return err
		}

		// Reset count
		meta := tx.Bucket([]byte(MetaBucket))
		if meta == nil {
			return fmt.Errorf("meta bucket not found")
		}

		s.count = 0
		countBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(countBytes, 0)

		return meta.Put([]byte(HistoryCountKey), countBytes)
	})
}

// Close closes the database connection.
func (s *MetricsStore) Close() error {
	if s.isClosed {
		return nil
	}

	s.isClosed = true
	return s.db.Close()
}

// HistoryStats describes the history's contents.
type HistoryStats struct {
	TotalRecords  uint64
	ActualRecords int
	MaxSize       int
	DBPath        string
	IsWrapped     bool
}

// GetStats returns current statistics.
func (s *MetricsStore) GetStats() (HistoryStats, error) {
	count, err := s.CountRecords()
	if err != nil {
		return HistoryStats{}, err
	}

	actual, err := s.ActualSize()
	if err != nil {
		return HistoryStats{}, err
	}

	return HistoryStats{
		TotalRecords:  count,
		ActualRecords: actual,
		MaxSize:       s.maxSize,
		DBPath:        s.dbPath,
		IsWrapped:     count > uint64(s.maxSize),
	}, nil
}

// ExportJSON writes the held records to a JSON file for external analysis.
func (s *MetricsStore) ExportJSON(outputPath string) error {
	if s.isClosed {
		return fmt.Errorf("store is closed")
	}

	actual, err := s.ActualSize()
	if err != nil {
		return err
	}
	if actual == 0 {
		return fmt.Errorf("no records to export")
	}

	records, err := s.GetRecent(actual)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	return os.WriteFile(outputPath, data, 0644)
}
