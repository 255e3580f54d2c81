package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"
)

// Embedding model files and dimensions
const (
	BGESmallModelURL     = "https://huggingface.co/BAAI/bge-small-en-v1.5/resolve/main/onnx/model.onnx"
	BGESmallTokenizerURL = "https://huggingface.co/BAAI/bge-small-en-v1.5/resolve/main/tokenizer.json"
	bgeModelFile         = "bge-small-en-v1.5.onnx"
	bgeTokenizerFile     = "tokenizer.json"
	EmbeddingDim         = 384 // BGE-small output dimension
	trigramDim           = 256
	nameMaxTokens        = 32 // names are short; BGE allows 512
)

// Embedder backends, in the order they are tried
const (
	BackendONNX    = "onnx"
	BackendOllama  = "ollama"
	BackendTrigram = "trigram"
)

// EmbedderBackend runs a local model over tokenized input
type EmbedderBackend interface {
	EmbedBatch(ctx context.Context, inputIDs, attentionMask []int64, batchSize, seqLen, dim int) ([][]float32, error)
	Close() error
}

// TextEmbedder is a remote embedding endpoint, such as Ollama's
type TextEmbedder interface {
	Embed(ctx context.Context, model, text string) ([]float32, error)
}

// EmbedderConfig configures the backend chain
type EmbedderConfig struct {
	ModelDir    string       // holds the ONNX model and tokenizer.json
	Remote      TextEmbedder // optional
	RemoteModel string
	Logger      *zap.Logger
}

// Embedder turns names into unit vectors. It uses the local ONNX model when
// it is installed, then the remote endpoint, then hashed character trigrams.
type Embedder struct {
	modelPath     string
	tokenizerPath string
	maxLength     int
	tokenizer     *BertTokenizer
	backend       EmbedderBackend
	remote        TextEmbedder
	remoteModel   string
	remoteFailed  bool
	logger        *zap.Logger

	initOnce sync.Once
	mu       sync.Mutex
	active   string
}

// NewEmbedder creates an embedder. Backends are probed on first use.
func NewEmbedder(cfg EmbedderConfig) *Embedder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Embedder{
		maxLength:   nameMaxTokens,
		remote:      cfg.Remote,
		remoteModel: cfg.RemoteModel,
		logger:      logger,
	}
	if cfg.ModelDir != "" {
		e.modelPath = filepath.Join(cfg.ModelDir, bgeModelFile)
		e.tokenizerPath = filepath.Join(cfg.ModelDir, bgeTokenizerFile)
	}
	return e
}

// Close releases resources
func (e *Embedder) Close() error {
	if e.backend != nil {
		return e.backend.Close()
	}
	return nil
}

// Backend names the backend that produced the most recent vectors
func (e *Embedder) Backend() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *Embedder) setActive(name string) {
	e.mu.Lock()
	e.active = name
	e.mu.Unlock()
}

// EmbedBatch embeds every text with the first backend that works
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	e.initOnce.Do(e.initBackend)

	if e.tokenizer != nil && e.backend != nil {
		vecs, err := e.embedWithBackend(ctx, texts)
		if err == nil {
			e.setActive(BackendONNX)
			return vecs, nil
		}
		e.logger.Warn("onnx embedding failed, falling back", zap.Error(err))
	}

	if e.remote != nil && !e.remoteFailed {
		vecs, err := e.embedRemote(ctx, texts)
		if err == nil {
			e.setActive(BackendOllama)
			return vecs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.remoteFailed = true
		e.logger.Warn("remote embedding failed, using trigram vectors", zap.String("model", e.remoteModel), zap.Error(err))
	}

	e.setActive(BackendTrigram)
	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = trigramEmbedding(text, trigramDim)
	}
	return result, nil
}

func (e *Embedder) initBackend() {
	if e.modelPath == "" {
		return
	}
	tokenizer, err := NewBertTokenizer(e.tokenizerPath, e.maxLength)
	if err != nil {
		e.logger.Debug("tokenizer unavailable", zap.String("path", e.tokenizerPath), zap.Error(err))
		return
	}
	backend, err := newONNXBackend(e.modelPath)
	if err != nil {
		e.logger.Debug("onnx backend unavailable", zap.Error(err))
		return
	}
	e.tokenizer = tokenizer
	e.backend = backend
}

func (e *Embedder) embedWithBackend(ctx context.Context, texts []string) ([][]float32, error) {
	batchSize := len(texts)
	seqLen := e.maxLength

	inputIDs := make([]int64, batchSize*seqLen)
	attentionMask := make([]int64, batchSize*seqLen)
	for i, text := range texts {
		ids, mask := e.tokenizer.Encode(text)
		copy(inputIDs[i*seqLen:(i+1)*seqLen], ids)
		copy(attentionMask[i*seqLen:(i+1)*seqLen], mask)
	}

	return e.backend.EmbedBatch(ctx, inputIDs, attentionMask, batchSize, seqLen, EmbeddingDim)
}

func (e *Embedder) embedRemote(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.remote.Embed(ctx, e.remoteModel, text)
		if err != nil {
			return nil, err
		}
		if len(vec) == 0 {
			return nil, fmt.Errorf("empty embedding for %q", text)
		}
		result[i] = normalizeL2(vec)
	}
	return result, nil
}

// normalizeL2 normalizes a vector to unit length
func normalizeL2(v []float32) []float32 {
	var norm float32
	for _, x := range v {
		norm += x * x
	}
	norm = float32(math.Sqrt(float64(norm)))

	if norm > 0 {
		for i := range v {
			v[i] /= norm
		}
	}
	return v
}

// foldName lowercases and drops everything but letters and digits, so
// "Nova Core", "nova-core" and "NovaCore" fold to the same string.
func foldName(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// trigramEmbedding hashes padded character trigrams into a fixed-size vector
func trigramEmbedding(text string, dim int) []float32 {
	v := make([]float32, dim)
	runes := []rune("^" + foldName(text) + "$")
	for i := 0; i+3 <= len(runes); i++ {
		h := fnv.New32a()
		_, _ = h.Write([]byte(string(runes[i : i+3])))
		v[h.Sum32()%uint32(dim)]++ //nolint:gosec // dim is a small positive constant
	}
	return normalizeL2(v)
}

// IsONNXAvailable checks if ONNX runtime is available on this system
func IsONNXAvailable() bool {
	return isONNXAvailable()
}
