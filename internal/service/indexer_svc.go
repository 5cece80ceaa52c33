package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/chunker"
)

// ChunkStore is the write side of the vector index. Satisfied by
// *repository.ChunkRepository.
type ChunkStore interface {
	Upsert(ctx context.Context, documentID, filename string, chunks []chunker.Chunk, vectors []pgvector.Vector) error
}

// IndexJob asks for one document to be (re-)indexed into the vector store.
type IndexJob struct {
	DocumentID string
	FilePath   string
	FileType   string
	Filename   string
}

// Indexer populates the vector index off the request path. Jobs are consumed
// by a single worker; the analysis response never waits for indexing, and
// indexing failures are logged, never surfaced to the caller.
type Indexer struct {
	extractor  *ExtractService
	embeddings *EmbeddingService
	store      ChunkStore

	chunkSize    int
	chunkOverlap int
	jobTimeout   time.Duration

	jobs chan IndexJob
	wg   sync.WaitGroup
	once sync.Once
}

func NewIndexer(extractor *ExtractService, embeddings *EmbeddingService, store ChunkStore, chunkSize, chunkOverlap int) *Indexer {
	return &Indexer{
		extractor:    extractor,
		embeddings:   embeddings,
		store:        store,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		jobTimeout:   10 * time.Minute,
		jobs:         make(chan IndexJob, 64),
	}
}

// Start launches the worker goroutine. Safe to call once per process.
func (ix *Indexer) Start() {
	ix.wg.Add(1)
	go func() {
		defer ix.wg.Done()
		for job := range ix.jobs {
			ix.process(job)
		}
	}()
}

// Stop drains the queue and waits for the worker to finish.
func (ix *Indexer) Stop() {
	ix.once.Do(func() { close(ix.jobs) })
	ix.wg.Wait()
}

// Enqueue submits a job without blocking. If the queue is full the job is
// dropped with a log line; the document will be re-indexed on its next
// analysis.
func (ix *Indexer) Enqueue(job IndexJob) {
	select {
	case ix.jobs <- job:
	default:
		log.Printf("index queue full, dropping job for document %s", job.DocumentID)
	}
}

func (ix *Indexer) process(job IndexJob) {
	ctx, cancel := context.WithTimeout(context.Background(), ix.jobTimeout)
	defer cancel()

	text, err := ix.extractor.Extract(job.FilePath, job.FileType)
	if err != nil {
		log.Printf("indexing %s: extraction failed: %v", job.DocumentID, err)
		return
	}

	chunks, err := chunker.Split(text, ix.chunkSize, ix.chunkOverlap)
	if err != nil {
		log.Printf("indexing %s: chunking failed: %v", job.DocumentID, err)
		return
	}
	if len(chunks) == 0 {
		log.Printf("indexing %s: no text to index", job.DocumentID)
		return
	}

	vectors, err := ix.embeddings.EmbedChunks(ctx, chunks)
	if err != nil {
		log.Printf("indexing %s: embedding failed: %v", job.DocumentID, err)
		return
	}

	// A partial batch would misalign chunk ordinals against vectors, so
	// the write is skipped entirely rather than stored incomplete.
	if len(vectors) != len(chunks) {
		log.Printf("indexing %s: embedding count mismatch, chunks=%d embeddings=%d, skipping index write",
			job.DocumentID, len(chunks), len(vectors))
		return
	}

	if err := ix.store.Upsert(ctx, job.DocumentID, job.Filename, chunks, vectors); err != nil {
		log.Printf("indexing %s: vector upsert failed: %v", job.DocumentID, err)
		return
	}

	log.Printf("indexed %d chunks for document %s", len(chunks), job.DocumentID)
}
