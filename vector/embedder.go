package vector

import (
	"fmt"
	"unicode/utf8"

	"github.com/graphclinic/gdmrag/helper"
	"github.com/graphclinic/gdmrag/model"
	"github.com/knights-analytics/hugot"
)

// DefaultModelName is the sentence transformer used by DefaultEmbedder.
// It produces 384-dimensional embeddings.
const DefaultModelName = "sentence-transformers/all-MiniLM-L6-v2"

// DefaultEmbeddingDim is the dimension of DefaultModelName embeddings.
const DefaultEmbeddingDim = 384

// defaultMaxInputRunes approximates the model's token limit. Inputs longer
// than this are truncated before encoding and flagged as truncated.
const defaultMaxInputRunes = 1024

// EmbedFunc is a function that generates embeddings for text.
type EmbedFunc func(text string) ([]float32, error)

// Embedder turns text into fixed-dimension vectors. Encoding is
// deterministic for a given model version.
type Embedder struct {
	encode        EmbedFunc
	Version       string
	MaxInputRunes int
}

// NewEmbedder wraps an EmbedFunc with its model version tag.
func NewEmbedder(encode EmbedFunc, version string) *Embedder {
	return &Embedder{
		encode:        encode,
		Version:       version,
		MaxInputRunes: defaultMaxInputRunes,
	}
}

// DefaultEmbedder creates an embedder using a real sentence transformer
// model via hugot's Go backend.
func DefaultEmbedder() (*Embedder, error) {
	modelPath, err := helper.PrepareModel(DefaultModelName, "onnx/model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create sentence pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create sentence pipeline: %w", err)
	}

	encode := func(text string) ([]float32, error) {
		result, err := sentencePipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}
		if len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}
		return result.Embeddings[0], nil
	}

	return NewEmbedder(encode, DefaultModelName), nil
}

// Encode vectorizes text. Input exceeding the model limit is truncated and
// reported via the truncated flag rather than failing the request.
func (e *Embedder) Encode(text string) (vec []float32, truncated bool, err error) {
	if text == "" {
		return nil, false, fmt.Errorf("%w: empty input", model.ErrEncoding)
	}

	if utf8.RuneCountInString(text) > e.MaxInputRunes {
		runes := []rune(text)
		text = string(runes[:e.MaxInputRunes])
		truncated = true
	}

	vec, err = e.encode(text)
	if err != nil {
		return nil, truncated, fmt.Errorf("%w: %v", model.ErrEncoding, err)
	}

	return vec, truncated, nil
}
