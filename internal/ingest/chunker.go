// Package ingest turns extracted paper text into embedded chunks in the
// vector store. PDF text extraction happens upstream; this package only
// sees plain text.
package ingest

import (
	"strings"
	"unicode/utf8"
)

// ChunkerConfig configures the text chunker.
type ChunkerConfig struct {
	ChunkSize    int // target chunk size in characters (default 512)
	ChunkOverlap int // overlap between chunks (default 50)
}

// DefaultChunkerConfig returns the defaults for recursive text splitting.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{ChunkSize: 512, ChunkOverlap: 50}
}

// Chunk is a single piece of a split document with its position.
type Chunk struct {
	Text     string
	Index    int
	Metadata map[string]string
}

// ChunkText splits text into overlapping chunks, trying paragraph, line,
// sentence, and word boundaries before falling back to character splits.
func ChunkText(text string, config ChunkerConfig) []Chunk {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 512
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}

	if utf8.RuneCountInString(text) <= config.ChunkSize {
		return []Chunk{{Text: text, Index: 0, Metadata: map[string]string{}}}
	}

	separators := []string{"\n\n", "\n", ". ", " ", ""}
	return recursiveSplit(text, separators, config.ChunkSize, config.ChunkOverlap)
}

func recursiveSplit(text string, separators []string, chunkSize, overlap int) []Chunk {
	if utf8.RuneCountInString(text) <= chunkSize {
		return []Chunk{{Text: text, Metadata: map[string]string{}}}
	}

	// First separator that actually splits the text wins.
	var segments []string
	var usedSep string
	for _, sep := range separators {
		if sep == "" {
			segments = splitByRunes(text, chunkSize)
			usedSep = ""
			break
		}
		parts := strings.Split(text, sep)
		if len(parts) > 1 {
			segments = parts
			usedSep = sep
			break
		}
	}

	if len(segments) == 0 {
		return []Chunk{{Text: text, Metadata: map[string]string{}}}
	}

	var chunks []Chunk
	var current strings.Builder
	for _, seg := range segments {
		candidate := current.String()
		if candidate != "" {
			candidate += usedSep
		}
		candidate += seg

		if utf8.RuneCountInString(candidate) > chunkSize && current.Len() > 0 {
			chunks = append(chunks, Chunk{Text: current.String(), Metadata: map[string]string{}})

			tail := overlapTail(current.String(), overlap)
			current.Reset()
			if tail != "" {
				current.WriteString(tail)
				current.WriteString(usedSep)
			}
			current.WriteString(seg)
		} else {
			if current.Len() > 0 {
				current.WriteString(usedSep)
			}
			current.WriteString(seg)
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, Chunk{Text: current.String(), Metadata: map[string]string{}})
	}

	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks
}

// overlapTail returns the last n runes of s.
func overlapTail(s string, n int) string {
	runes := []rune(s)
	if n >= len(runes) {
		return s
	}
	return string(runes[len(runes)-n:])
}

func splitByRunes(text string, n int) []string {
	runes := []rune(text)
	var segments []string
	for i := 0; i < len(runes); i += n {
		end := i + n
		if end > len(runes) {
			end = len(runes)
		}
		segments = append(segments, string(runes[i:end]))
	}
	return segments
}
