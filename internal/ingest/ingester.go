package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/arxivmind/arxivmind/pkg/contracts"
	"github.com/arxivmind/arxivmind/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// BatchEmbedder embeds a batch of texts through an ordered driver chain.
// Implemented by fallback.Orchestrator.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string, drivers []string) ([][]float64, []models.ProviderCallAttempt, error)
}

// Ingester handles document ingestion: chunk, embed, upsert.
type Ingester struct {
	embedder BatchEmbedder
	drivers  []string
	store    contracts.VectorStoreDriver
	chunker  ChunkerConfig
}

// NewIngester creates a document ingester. drivers is the ordered
// embedding chain to try per batch.
func NewIngester(embedder BatchEmbedder, drivers []string, store contracts.VectorStoreDriver, chunker ChunkerConfig) *Ingester {
	return &Ingester{embedder: embedder, drivers: drivers, store: store, chunker: chunker}
}

// Ingest splits each document into chunks, embeds them in batches, and
// upserts the resulting vector docs.
func (ing *Ingester) Ingest(ctx context.Context, req models.IngestRequest) (*models.IngestResult, error) {
	start := time.Now()

	if len(req.Documents) == 0 {
		return &models.IngestResult{}, nil
	}

	config := ing.chunker
	if req.ChunkSize > 0 {
		config.ChunkSize = req.ChunkSize
	}
	if req.ChunkOverlap > 0 {
		config.ChunkOverlap = req.ChunkOverlap
	}

	var allChunks []Chunk
	var chunkPapers []string
	for docIdx, doc := range req.Documents {
		chunks := ChunkText(doc.Content, config)
		for _, c := range chunks {
			for k, v := range doc.Metadata {
				c.Metadata[k] = v
			}
			if doc.Title != "" {
				c.Metadata["title"] = doc.Title
			}
			c.Metadata["source"] = doc.ID
			c.Metadata["doc_index"] = fmt.Sprintf("%d", docIdx)
			allChunks = append(allChunks, c)
			chunkPapers = append(chunkPapers, doc.ID)
		}
	}

	log.Info().
		Int("documents", len(req.Documents)).
		Int("chunks", len(allChunks)).
		Msg("Chunking complete")

	texts := make([]string, len(allChunks))
	for i, c := range allChunks {
		texts[i] = c.Text
	}
	allVectors, _, err := ing.embedder.EmbedBatch(ctx, texts, ing.drivers)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks: %w", len(allChunks), err)
	}

	if len(allVectors) != len(allChunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(allVectors), len(allChunks))
	}

	now := time.Now()
	docs := make([]models.VectorDoc, len(allChunks))
	for i, chunk := range allChunks {
		docs[i] = models.VectorDoc{
			ID:        uuid.NewString(),
			PaperID:   chunkPapers[i],
			Content:   chunk.Text,
			Metadata:  chunk.Metadata,
			Vector:    allVectors[i],
			CreatedAt: now,
		}
	}

	if err := ing.store.Upsert(ctx, docs); err != nil {
		return nil, fmt.Errorf("upsert vectors: %w", err)
	}

	log.Info().
		Int("documents", len(req.Documents)).
		Int("chunks_created", len(allChunks)).
		Dur("elapsed", time.Since(start)).
		Msg("Ingestion complete")

	return &models.IngestResult{
		DocumentsProcessed: len(req.Documents),
		ChunksCreated:      len(allChunks),
		VectorsStored:      len(docs),
	}, nil
}
