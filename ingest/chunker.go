// Package ingest prepares guideline documents for indexing: it splits text
// into chunks and surfaces lexicon terms as entity candidates for graph
// curation.
package ingest

import (
	"fmt"
	"strings"
)

// ChunkFunc is a function that splits text into chunks
type ChunkFunc func(text string) ([]string, error)

// sentenceEnders are the sentence-final punctuation marks recognized by the
// sentence splitters. Chinese clinical text uses fullwidth punctuation.
var sentenceEnders = []string{"。", "！", "？", "!", "?", ".\n", ". "}

// splitSentences splits text into trimmed, non-empty sentences.
func splitSentences(text string) []string {
	for _, ender := range sentenceEnders {
		text = strings.ReplaceAll(text, ender, strings.TrimRight(ender, "\n ")+"|")
	}

	var sentences []string
	for _, s := range strings.Split(text, "|") {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// SentenceChunker creates a chunker that groups sentences up to a rune
// budget per chunk. A single sentence longer than the budget becomes its own
// chunk rather than being split mid-sentence.
func SentenceChunker(maxRunesPerChunk int) ChunkFunc {
	return func(text string) ([]string, error) {
		if maxRunesPerChunk <= 0 {
			return nil, fmt.Errorf("max runes per chunk must be positive")
		}

		if strings.TrimSpace(text) == "" {
			return []string{}, nil
		}

		sentences := splitSentences(text)

		var chunks []string
		var current []string
		currentLen := 0

		for _, sentence := range sentences {
			sentenceLen := len([]rune(sentence))

			if currentLen > 0 && currentLen+sentenceLen > maxRunesPerChunk {
				chunks = append(chunks, strings.Join(current, ""))
				current = nil
				currentLen = 0
			}

			current = append(current, sentence)
			currentLen += sentenceLen
		}

		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, ""))
		}

		return chunks, nil
	}
}

// ParagraphChunker creates a chunker that splits by blank lines.
func ParagraphChunker() ChunkFunc {
	return func(text string) ([]string, error) {
		var chunks []string
		for _, para := range strings.Split(text, "\n\n") {
			para = strings.TrimSpace(para)
			if para != "" {
				chunks = append(chunks, para)
			}
		}
		return chunks, nil
	}
}
