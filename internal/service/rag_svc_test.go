package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/repository"
)

func newTestRAGService(gen *scriptedGenerator, embedder *fakeEmbedder, searcher *fakeSearcher) *RAGService {
	embeddings := NewEmbeddingService(embedder, 768, 2)
	retriever := NewRetriever(embeddings, searcher, 0.3)
	analyzer := NewAnalyzer(gen)
	return NewRAGService(retriever, analyzer, embeddings, searcher, 5)
}

func TestAnalyzeWithContextAttachesMetadata(t *testing.T) {
	gen := &scriptedGenerator{response: `{"overall_score": 0.5, "summary": "some bias", "bias_instances": []}`}
	searcher := &fakeSearcher{results: []repository.SearchResult{
		{DocumentID: "other-1", Filename: "report.pdf", Content: "reference text", Score: 0.8},
		{DocumentID: "other-2", Filename: "article.txt", Content: "more reference", Score: 0.6},
		{DocumentID: "other-1", Filename: "report.pdf", Content: "second chunk", Score: 0.5},
	}}
	svc := newTestRAGService(gen, &fakeEmbedder{vec: vec768()}, searcher)

	result, err := svc.AnalyzeWithContext(context.Background(), "document text", "doc-1", nil, true)
	require.NoError(t, err)

	require.NotNil(t, result.RAGMetadata)
	assert.True(t, result.RAGMetadata.ContextUsed)
	assert.Equal(t, 3, result.RAGMetadata.NumReferenceChunks)
	assert.Equal(t, []string{"article.txt", "report.pdf"}, result.RAGMetadata.ReferenceDocuments)

	assert.Equal(t, "doc-1", result.DocumentID)
	assert.InDelta(t, 0.5, result.OverallScore, 1e-9)
	assert.False(t, result.AnalyzedAt.IsZero())

	// Prompt carries both the references and the document itself.
	require.Len(t, gen.messages, 2)
	assert.Contains(t, gen.messages[1].Content, "REFERENCE CONTEXT FROM OTHER DOCUMENTS")
	assert.Contains(t, gen.messages[1].Content, "report.pdf")
	assert.Contains(t, gen.messages[1].Content, "document text")
}

func TestAnalyzeWithContextDisabled(t *testing.T) {
	gen := &scriptedGenerator{response: `{"overall_score": 0.1, "summary": "clean", "bias_instances": []}`}
	searcher := &fakeSearcher{results: []repository.SearchResult{
		{DocumentID: "other", Filename: "ref.txt", Content: "reference", Score: 0.9},
	}}
	svc := newTestRAGService(gen, &fakeEmbedder{vec: vec768()}, searcher)

	result, err := svc.AnalyzeWithContext(context.Background(), "document text", "doc-1", nil, false)
	require.NoError(t, err)

	assert.Zero(t, searcher.calls)
	require.NotNil(t, result.RAGMetadata)
	assert.False(t, result.RAGMetadata.ContextUsed)
	assert.Zero(t, result.RAGMetadata.NumReferenceChunks)
	assert.NotContains(t, gen.messages[1].Content, "REFERENCE CONTEXT")
}

func TestAnalyzeWithContextRetrievalFailureStillAnalyzes(t *testing.T) {
	// A broken index degrades to a plain analysis, never an error.
	gen := &scriptedGenerator{response: `{"overall_score": 0.3, "summary": "ok", "bias_instances": []}`}
	searcher := &fakeSearcher{err: errors.New("index down")}
	svc := newTestRAGService(gen, &fakeEmbedder{vec: vec768()}, searcher)

	result, err := svc.AnalyzeWithContext(context.Background(), "document text", "doc-1", nil, true)
	require.NoError(t, err)
	assert.False(t, result.RAGMetadata.ContextUsed)
	assert.InDelta(t, 0.3, result.OverallScore, 1e-9)
}

func TestAnswerQuestionBuildsSources(t *testing.T) {
	gen := &scriptedGenerator{response: "Both documents show selection bias."}
	searcher := &fakeSearcher{results: []repository.SearchResult{
		{DocumentID: "d1", Filename: "one.txt", Content: "evidence one", Score: 0.9},
		{DocumentID: "d2", Filename: "two.txt", Content: "evidence two", Score: 0.7},
	}}
	svc := newTestRAGService(gen, &fakeEmbedder{vec: vec768()}, searcher)

	result, err := svc.AnswerQuestion(context.Background(), "what bias is present?", "", 5)
	require.NoError(t, err)

	assert.Equal(t, "what bias is present?", result.Question)
	assert.Equal(t, "Both documents show selection bias.", result.Answer)
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "one.txt", result.Sources[0].Filename)
	assert.InDelta(t, 0.9, result.Sources[0].Relevance, 1e-9)
	assert.Equal(t, 2, result.NumSourcesUsed)

	assert.Contains(t, gen.messages[1].Content, "From one.txt:")
	assert.Contains(t, gen.messages[1].Content, "evidence two")
}

func TestAnswerQuestionEmbeddingFailure(t *testing.T) {
	gen := &scriptedGenerator{}
	searcher := &fakeSearcher{}
	svc := newTestRAGService(gen, &fakeEmbedder{err: errors.New("backend down")}, searcher)

	result, err := svc.AnswerQuestion(context.Background(), "question?", "", 5)
	require.NoError(t, err)

	assert.Equal(t, "Could not generate embedding for search.", result.Answer)
	assert.Empty(t, result.Sources)
	assert.Zero(t, result.NumSourcesUsed)
	assert.Zero(t, searcher.calls)
}

func TestAnswerQuestionNoResults(t *testing.T) {
	gen := &scriptedGenerator{response: "No indexed documents mention that."}
	searcher := &fakeSearcher{}
	svc := newTestRAGService(gen, &fakeEmbedder{vec: vec768()}, searcher)

	result, err := svc.AnswerQuestion(context.Background(), "question?", "", 5)
	require.NoError(t, err)

	assert.Empty(t, result.Sources)
	assert.Contains(t, gen.messages[1].Content, "No relevant context found.")
	assert.Equal(t, "No indexed documents mention that.", result.Answer)
}

func TestAnswerQuestionSearchFailure(t *testing.T) {
	gen := &scriptedGenerator{}
	searcher := &fakeSearcher{err: errors.New("index down")}
	svc := newTestRAGService(gen, &fakeEmbedder{vec: vec768()}, searcher)

	_, err := svc.AnswerQuestion(context.Background(), "question?", "", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evidence search")
}

func TestAnswerQuestionScopedToDocument(t *testing.T) {
	gen := &scriptedGenerator{response: "answer"}
	searcher := &fakeSearcher{}
	svc := newTestRAGService(gen, &fakeEmbedder{vec: vec768()}, searcher)

	_, err := svc.AnswerQuestion(context.Background(), "question?", "doc-42", 3)
	require.NoError(t, err)
	assert.Equal(t, "doc-42", searcher.gotDocID)
	assert.Equal(t, 3, searcher.gotTopK)
}

func TestBuildContextPromptTruncatesExcerpts(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	prompt := buildContextPrompt([]ContextChunk{
		{Text: string(long), Filename: "big.txt"},
	})

	assert.Contains(t, prompt, "[Reference 1 - big.txt]:")
	assert.Less(t, len(prompt), 600)
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))

	// A cut landing inside a multibyte character backs off to its start.
	s := strings.Repeat("世", 10)
	cut := truncate(s, 7)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, "世世", cut)
}
