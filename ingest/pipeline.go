package ingest

import (
	"fmt"
	"strings"
)

// Document is a source text to ingest.
type Document struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Result holds the chunks ready for indexing and the entity candidates
// found along the way.
type Result struct {
	Chunks     []string
	Candidates []Candidate
}

// Pipeline combines chunking and candidate extraction.
type Pipeline struct {
	Chunker   ChunkFunc
	Extractor *Extractor
}

// NewPipeline creates a new processing pipeline.
func NewPipeline(chunker ChunkFunc, extractor *Extractor) *Pipeline {
	return &Pipeline{
		Chunker:   chunker,
		Extractor: extractor,
	}
}

// DefaultPipeline chunks by sentences up to 300 runes and extracts
// candidates with the built-in lexicon.
func DefaultPipeline() *Pipeline {
	return NewPipeline(SentenceChunker(300), NewExtractor(nil))
}

// Process splits the document into chunks and extracts entity candidates.
func (p *Pipeline) Process(doc *Document) (*Result, error) {
	if doc == nil || strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("document text is empty")
	}

	chunks, err := p.Chunker(doc.Text)
	if err != nil {
		return nil, err
	}

	result := &Result{Chunks: chunks}
	if p.Extractor != nil {
		result.Candidates = p.Extractor.Extract(doc.Text)
	}

	return result, nil
}
