package model

import (
	"encoding/gob"
	"fmt"
	"os"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// MLP is a small fully connected network used by the training demo
type MLP struct {
	// Graph
	g *gorgonia.ExprGraph

	// Input
	input *gorgonia.Node

	// Dense layers
	fc1W *gorgonia.Node
	fc1B *gorgonia.Node
	fc2W *gorgonia.Node
	fc2B *gorgonia.Node

	// Output
	output *gorgonia.Node

	// VM for execution
	vm gorgonia.VM

	// Configuration
	inputSize  int
	hiddenSize int
	outputSize int
	batchSize  int
}

// NewMLP creates a two layer network with a ReLU hidden layer and a linear
// output, sized for the given batch
func NewMLP(inputSize, hiddenSize, outputSize, batchSize int) (*MLP, error) {
	if inputSize <= 0 || hiddenSize <= 0 || outputSize <= 0 || batchSize <= 0 {
		return nil, fmt.Errorf("invalid network dimensions: %d-%d-%d, batch %d",
			inputSize, hiddenSize, outputSize, batchSize)
	}

	g := gorgonia.NewGraph()

	// Input: batch x features
	input := gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithShape(batchSize, inputSize), gorgonia.WithName("input"))

	// FC1: inputSize -> hiddenSize
	fc1W := gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithShape(inputSize, hiddenSize), gorgonia.WithName("fc1_w"), gorgonia.WithInit(gorgonia.GlorotU(1.0)))
	fc1B := gorgonia.NewVector(g, tensor.Float64, gorgonia.WithShape(hiddenSize), gorgonia.WithName("fc1_b"), gorgonia.WithInit(gorgonia.Zeroes()))

	fc1 := gorgonia.Must(gorgonia.Mul(input, fc1W))
	fc1 = gorgonia.Must(gorgonia.BroadcastAdd(fc1, fc1B, nil, []byte{0}))
	fc1 = gorgonia.Must(gorgonia.Rectify(fc1))

	// FC2: hiddenSize -> outputSize, linear for regression
	fc2W := gorgonia.NewMatrix(g, tensor.Float64, gorgonia.WithShape(hiddenSize, outputSize), gorgonia.WithName("fc2_w"), gorgonia.WithInit(gorgonia.GlorotU(1.0)))
	fc2B := gorgonia.NewVector(g, tensor.Float64, gorgonia.WithShape(outputSize), gorgonia.WithName("fc2_b"), gorgonia.WithInit(gorgonia.Zeroes()))

	fc2 := gorgonia.Must(gorgonia.Mul(fc1, fc2W))
	output := gorgonia.Must(gorgonia.BroadcastAdd(fc2, fc2B, nil, []byte{0}))

	// Create VM
	vm := gorgonia.NewTapeMachine(g)

	return &MLP{
		g:          g,
		input:      input,
		fc1W:       fc1W,
		fc1B:       fc1B,
		fc2W:       fc2W,
		fc2B:       fc2B,
		output:     output,
		vm:         vm,
		inputSize:  inputSize,
		hiddenSize: hiddenSize,
		outputSize: outputSize,
		batchSize:  batchSize,
	}, nil
}

// Predict runs a forward pass over one batch of features. The input must
// hold batchSize*inputSize values in row-major order.
func (m *MLP) Predict(features []float64) ([]float64, error) {
	expected := m.batchSize * m.inputSize
	if len(features) != expected {
		return nil, fmt.Errorf("invalid input size: expected %d, got %d", expected, len(features))
	}

	inputTensor := tensor.New(
		tensor.WithShape(m.batchSize, m.inputSize),
		tensor.WithBacking(features),
	)

	if err := gorgonia.Let(m.input, inputTensor); err != nil {
		return nil, fmt.Errorf("failed to set input: %w", err)
	}

	if err := m.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("failed to run inference: %w", err)
	}

	outputValue := m.output.Value()
	if outputValue == nil {
		return nil, fmt.Errorf("output is nil")
	}

	outputData := outputValue.Data().([]float64)
	result := make([]float64, len(outputData))
	copy(result, outputData)

	m.vm.Reset()

	return result, nil
}

// ComputeLoss computes mean squared error against the target node
func (m *MLP) ComputeLoss(target *gorgonia.Node) (*gorgonia.Node, error) {
	diff := gorgonia.Must(gorgonia.Sub(m.output, target))
	sq := gorgonia.Must(gorgonia.Square(diff))
	loss := gorgonia.Must(gorgonia.Mean(sq))

	return loss, nil
}

// Learnables returns all learnable parameters
func (m *MLP) Learnables() gorgonia.Nodes {
	return gorgonia.Nodes{
		m.fc1W, m.fc1B,
		m.fc2W, m.fc2B,
	}
}

// Save saves the model weights to a file
func (m *MLP) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := gob.NewEncoder(f)

	for _, w := range m.Learnables() {
		val := w.Value()
		if val == nil {
			continue
		}

		data := val.Data().([]float64)
		shape := val.Shape()

		if err := encoder.Encode(shape); err != nil {
			return fmt.Errorf("failed to encode %s shape: %w", w.Name(), err)
		}
		if err := encoder.Encode(data); err != nil {
			return fmt.Errorf("failed to encode %s data: %w", w.Name(), err)
		}
	}

	return nil
}

// Load loads the model weights from a file
func (m *MLP) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	decoder := gob.NewDecoder(f)

	for _, w := range m.Learnables() {
		var shape tensor.Shape
		var data []float64

		if err := decoder.Decode(&shape); err != nil {
			return fmt.Errorf("failed to decode shape: %w", err)
		}
		if err := decoder.Decode(&data); err != nil {
			return fmt.Errorf("failed to decode data: %w", err)
		}

		t := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
		if err := gorgonia.Let(w, t); err != nil {
			return fmt.Errorf("failed to set weight: %w", err)
		}
	}

	return nil
}

// Close cleans up resources
func (m *MLP) Close() error {
	m.vm.Close()
	return nil
}

// ModelExists checks if a model file exists
func ModelExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
