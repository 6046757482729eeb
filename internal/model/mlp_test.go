package model

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestNewMLP(t *testing.T) {
	m, err := NewMLP(4, 8, 2, 1)
	if err != nil {
		t.Fatalf("Failed to create MLP: %v", err)
	}
	defer m.Close()

	learnables := m.Learnables()
	if len(learnables) != 4 {
		t.Errorf("Expected 4 learnable parameters, got %d", len(learnables))
	}

	for _, l := range learnables {
		if l.Value() == nil {
			t.Errorf("Learnable %s has no initialized value", l.Name())
		}
	}
}

func TestNewMLPInvalidDimensions(t *testing.T) {
	tests := []struct {
		name                             string
		input, hidden, output, batchSize int
	}{
		{"zero input", 0, 8, 2, 1},
		{"zero hidden", 4, 0, 2, 1},
		{"zero output", 4, 8, 0, 1},
		{"zero batch", 4, 8, 2, 0},
		{"negative input", -1, 8, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMLP(tt.input, tt.hidden, tt.output, tt.batchSize); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestMLPPredict(t *testing.T) {
	m, err := NewMLP(3, 6, 2, 2)
	if err != nil {
		t.Fatalf("Failed to create MLP: %v", err)
	}
	defer m.Close()

	features := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}

	out, err := m.Predict(features)
	if err != nil {
		t.Fatalf("Prediction failed: %v", err)
	}

	if len(out) != 4 {
		t.Fatalf("Expected 4 output values, got %d", len(out))
	}

	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("Output %d is not finite: %g", i, v)
		}
	}

	// Same input must produce the same output
	again, err := m.Predict([]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6})
	if err != nil {
		t.Fatalf("Second prediction failed: %v", err)
	}

	for i := range out {
		if out[i] != again[i] {
			t.Errorf("Prediction not deterministic at index %d: %g vs %g", i, out[i], again[i])
		}
	}
}

func TestMLPPredictInvalidSize(t *testing.T) {
	m, err := NewMLP(3, 6, 2, 1)
	if err != nil {
		t.Fatalf("Failed to create MLP: %v", err)
	}
	defer m.Close()

	if _, err := m.Predict([]float64{1, 2}); err == nil {
		t.Error("Expected error for wrong input size")
	}
}

func TestMLPSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "mlp.gob")

	m1, err := NewMLP(3, 6, 1, 1)
	if err != nil {
		t.Fatalf("Failed to create MLP: %v", err)
	}
	defer m1.Close()

	input := []float64{0.5, -0.2, 0.9}
	pred1, err := m1.Predict(input)
	if err != nil {
		t.Fatalf("Prediction failed: %v", err)
	}

	if err := m1.Save(path); err != nil {
		t.Fatalf("Failed to save model: %v", err)
	}

	if !ModelExists(path) {
		t.Fatal("Model file was not created")
	}

	m2, err := NewMLP(3, 6, 1, 1)
	if err != nil {
		t.Fatalf("Failed to create second MLP: %v", err)
	}
	defer m2.Close()

	if err := m2.Load(path); err != nil {
		t.Fatalf("Failed to load model: %v", err)
	}

	pred2, err := m2.Predict([]float64{0.5, -0.2, 0.9})
	if err != nil {
		t.Fatalf("Prediction after load failed: %v", err)
	}

	for i := range pred1 {
		if math.Abs(pred1[i]-pred2[i]) > 1e-12 {
			t.Errorf("Predictions differ after load at index %d: %g vs %g", i, pred1[i], pred2[i])
		}
	}
}

func TestModelExists(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "model.gob")

	if ModelExists(path) {
		t.Error("Expected ModelExists to be false for missing file")
	}

	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if !ModelExists(path) {
		t.Error("Expected ModelExists to be true for existing file")
	}
}
