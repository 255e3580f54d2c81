//go:build cgo && onnx

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXBackend runs BGE-small and pools the [CLS] token of the last hidden state
type ONNXBackend struct {
	session   *ort.DynamicAdvancedSession
	withTypes bool
	mu        sync.Mutex
}

var (
	onnxInitOnce sync.Once
	onnxInitErr  error
)

func newONNXBackend(modelPath string) (EmbedderBackend, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	onnxInitOnce.Do(func() {
		if !findONNXLibrary() {
			onnxInitErr = fmt.Errorf("ONNX runtime library not found (run: namecritic models pull)")
			return
		}
		onnxInitErr = ort.InitializeEnvironment()
	})
	if onnxInitErr != nil {
		return nil, onnxInitErr
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() { _ = options.Destroy() }()

	if err := options.SetIntraOpNumThreads(min(runtime.NumCPU(), 4)); err != nil {
		return nil, fmt.Errorf("failed to set thread count: %w", err)
	}

	outputNames := []string{"last_hidden_state"}
	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"}, outputNames, options)
	if err == nil {
		return &ONNXBackend{session: session, withTypes: true}, nil
	}
	session, err = ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask"}, outputNames, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return &ONNXBackend{session: session}, nil
}

// EmbedBatch runs inference and returns one unit vector per input row
func (b *ONNXBackend) EmbedBatch(ctx context.Context, inputIDs, attentionMask []int64, batchSize, seqLen, dim int) ([][]float32, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	shape := ort.NewShape(int64(batchSize), int64(seqLen))

	idsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer func() { _ = idsTensor.Destroy() }()

	maskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer func() { _ = maskTensor.Destroy() }()

	inputs := []ort.Value{idsTensor, maskTensor}
	if b.withTypes {
		typesTensor, err := ort.NewTensor(shape, make([]int64, batchSize*seqLen))
		if err != nil {
			return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
		}
		defer func() { _ = typesTensor.Destroy() }()
		inputs = append(inputs, typesTensor)
	}

	hidden := make([]float32, batchSize*seqLen*dim)
	outTensor, err := ort.NewTensor(ort.NewShape(int64(batchSize), int64(seqLen), int64(dim)), hidden)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer func() { _ = outTensor.Destroy() }()

	if err := b.session.Run(inputs, []ort.Value{outTensor}); err != nil {
		return nil, fmt.Errorf("ONNX inference failed: %w", err)
	}

	result := make([][]float32, batchSize)
	for i := 0; i < batchSize; i++ {
		cls := make([]float32, dim)
		copy(cls, hidden[i*seqLen*dim:i*seqLen*dim+dim])
		result[i] = normalizeL2(cls)
	}
	return result, nil
}

// Close releases ONNX resources
func (b *ONNXBackend) Close() error {
	if b.session != nil {
		_ = b.session.Destroy()
		b.session = nil
	}
	return nil
}

func isONNXAvailable() bool {
	return findONNXLibrary()
}

func findONNXLibrary() bool {
	libName := onnxLibraryName()
	for _, dir := range onnxSearchPaths() {
		libPath := filepath.Join(dir, libName)
		if _, err := os.Stat(libPath); err == nil {
			ort.SetSharedLibraryPath(libPath)
			return true
		}
	}
	return false
}

func onnxSearchPaths() []string {
	var paths []string
	if dir, err := onnxLibDir(); err == nil {
		paths = append(paths, dir)
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, cwd, filepath.Join(cwd, "lib"))
	}

	switch runtime.GOOS {
	case "windows":
		paths = append(paths, `C:\Program Files\onnxruntime\lib`, `C:\onnxruntime\lib`)
		paths = append(paths, filepath.SplitList(os.Getenv("PATH"))...)
	case "darwin":
		paths = append(paths, "/opt/homebrew/lib", "/opt/homebrew/opt/onnxruntime/lib", "/usr/local/lib")
	default:
		paths = append(paths, "/usr/lib", "/usr/lib/x86_64-linux-gnu", "/usr/local/lib", "/opt/onnxruntime/lib")
		paths = append(paths, filepath.SplitList(os.Getenv("LD_LIBRARY_PATH"))...)
	}
	return paths
}
