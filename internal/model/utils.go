package model

import (
	"fmt"
	"math"
)

// ModelInfo contains metadata about the network
type ModelInfo struct {
	InputSize   int
	HiddenSize  int
	OutputSize  int
	BatchSize   int
	TotalParams int
}

// Info returns information about the network
func (m *MLP) Info() ModelInfo {
	totalParams := 0

	for _, node := range m.Learnables() {
		val := node.Value()
		if val == nil {
			continue
		}

		params := 1
		for _, dim := range val.Shape() {
			params *= dim
		}
		totalParams += params
	}

	return ModelInfo{
		InputSize:   m.inputSize,
		HiddenSize:  m.hiddenSize,
		OutputSize:  m.outputSize,
		BatchSize:   m.batchSize,
		TotalParams: totalParams,
	}
}

// ValidateInput checks a feature batch for size and non-finite values
func (m *MLP) ValidateInput(features []float64) error {
	expected := m.batchSize * m.inputSize
	if len(features) != expected {
		return fmt.Errorf("invalid input size: expected %d, got %d", expected, len(features))
	}

	// Check for NaN or Inf
	for i, val := range features {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("invalid value at index %d: %f", i, val)
		}
	}

	return nil
}

// PredictWithValidation performs inference with input validation
func (m *MLP) PredictWithValidation(features []float64) ([]float64, error) {
	if err := m.ValidateInput(features); err != nil {
		return nil, err
	}

	return m.Predict(features)
}
