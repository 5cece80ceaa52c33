package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/model"
)

const (
	// Prompt budgets. Document text takes priority over reference context
	// when both compete for the backend's context window.
	maxDocumentChars     = 5000
	maxRetrievalChars    = 2000
	maxChunkExcerptChars = 400
)

// AnalysisResult is one complete bias analysis, immutable after
// construction. Persistence is the caller's concern.
type AnalysisResult struct {
	DocumentID          string               `json:"document_id"`
	OverallScore        float64              `json:"overall_score"`
	BiasInstances       []model.BiasInstance `json:"bias_instances"`
	Summary             string               `json:"summary"`
	AnalyzedAt          time.Time            `json:"analyzed_at"`
	RAGMetadata         *model.RAGMetadata   `json:"rag_metadata,omitempty"`
	ComparativeInsights string               `json:"comparative_insights,omitempty"`
}

// QASource is one supporting chunk behind an answer.
type QASource struct {
	Filename   string  `json:"filename"`
	DocumentID string  `json:"document_id"`
	Relevance  float64 `json:"relevance"`
}

// QAResult is the outcome of a semantic question-answering request.
type QAResult struct {
	Question       string     `json:"question"`
	Answer         string     `json:"answer"`
	Sources        []QASource `json:"sources"`
	NumSourcesUsed int        `json:"num_sources_used"`
}

// RAGService composes retrieval and generation: contextual bias analysis and
// semantic question answering over previously indexed documents.
type RAGService struct {
	retriever        *Retriever
	analyzer         *Analyzer
	embeddings       *EmbeddingService
	searcher         ChunkSearcher
	maxContextChunks int
}

func NewRAGService(retriever *Retriever, analyzer *Analyzer, embeddings *EmbeddingService, searcher ChunkSearcher, maxContextChunks int) *RAGService {
	if maxContextChunks <= 0 {
		maxContextChunks = 5
	}
	return &RAGService{
		retriever:        retriever,
		analyzer:         analyzer,
		embeddings:       embeddings,
		searcher:         searcher,
		maxContextChunks: maxContextChunks,
	}
}

// AnalyzeWithContext performs bias analysis of text, augmented with context
// retrieved from other documents when useContext is set. Context retrieval
// is best-effort: if it yields nothing the analysis proceeds without it.
func (s *RAGService) AnalyzeWithContext(ctx context.Context, text, documentID string, biasTypes []model.BiasType, useContext bool) (*AnalysisResult, error) {
	var contextChunks []ContextChunk
	if useContext {
		query := truncate(text, maxRetrievalChars)
		contextChunks = s.retriever.RelevantContext(ctx, query, documentID, s.maxContextChunks)
	}

	document := truncate(text, maxDocumentChars)

	var prompt string
	if contextBlock := buildContextPrompt(contextChunks); contextBlock != "" {
		prompt = fmt.Sprintf(
			"REFERENCE CONTEXT FROM OTHER DOCUMENTS:\n%s\n\nDOCUMENT TO ANALYZE:\n%s\n\nAnalyze for %s of bias. Consider patterns from reference documents.",
			contextBlock, document, biasTypesLabel(biasTypes),
		)
	} else {
		prompt = fmt.Sprintf(
			"DOCUMENT TO ANALYZE:\n%s\n\nAnalyze for %s of bias.",
			document, biasTypesLabel(biasTypes),
		)
	}

	analysis, err := s.analyzer.AnalyzeBias(ctx, prompt, biasTypes)
	if err != nil {
		return nil, err
	}

	return &AnalysisResult{
		DocumentID:    documentID,
		OverallScore:  analysis.OverallScore,
		BiasInstances: analysis.BiasInstances,
		Summary:       analysis.Summary,
		AnalyzedAt:    time.Now().UTC(),
		RAGMetadata: &model.RAGMetadata{
			ContextUsed:        len(contextChunks) > 0,
			NumReferenceChunks: len(contextChunks),
			ReferenceDocuments: distinctFilenames(contextChunks),
		},
	}, nil
}

// AnswerQuestion answers a question about bias patterns using the indexed
// document chunks as evidence. An optional documentID restricts the search
// to that document. If no query embedding can be generated, a fixed answer
// with zero sources is returned instead of a failure.
func (s *RAGService) AnswerQuestion(ctx context.Context, question, documentID string, topK int) (*QAResult, error) {
	if topK <= 0 {
		topK = s.maxContextChunks
	}

	queryVec, err := s.embeddings.EmbedText(ctx, question)
	if err != nil {
		log.Printf("question embedding failed: %v", err)
		return &QAResult{
			Question: question,
			Answer:   "Could not generate embedding for search.",
			Sources:  []QASource{},
		}, nil
	}

	results, err := s.searcher.Search(ctx, queryVec, topK, documentID)
	if err != nil {
		return nil, fmt.Errorf("evidence search: %w", err)
	}

	contextParts := make([]string, 0, len(results))
	sources := make([]QASource, 0, len(results))
	for _, result := range results {
		contextParts = append(contextParts, fmt.Sprintf("From %s:\n%s", result.Filename, result.Content))
		sources = append(sources, QASource{
			Filename:   result.Filename,
			DocumentID: result.DocumentID,
			Relevance:  result.Score,
		})
	}

	contextBlock := "No relevant context found."
	if len(contextParts) > 0 {
		contextBlock = strings.Join(contextParts, "\n\n---\n\n")
	}

	answer, err := s.analyzer.Answer(ctx, question, contextBlock)
	if err != nil {
		return nil, err
	}

	return &QAResult{
		Question:       question,
		Answer:         answer,
		Sources:        sources,
		NumSourcesUsed: len(sources),
	}, nil
}

// buildContextPrompt concatenates chunk excerpts, each truncated and labeled
// by source filename.
func buildContextPrompt(chunks []ContextChunk) string {
	if len(chunks) == 0 {
		return ""
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		excerpt := truncate(chunk.Text, maxChunkExcerptChars)
		parts[i] = fmt.Sprintf("[Reference %d - %s]:\n%s...", i+1, chunk.Filename, excerpt)
	}
	return strings.Join(parts, "\n\n")
}

// truncate cuts s to at most max bytes without splitting a multibyte
// character.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func distinctFilenames(chunks []ContextChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	names := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		name := chunk.Filename
		if name == "" {
			name = "Unknown"
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
