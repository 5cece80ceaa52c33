package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/model"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/ollama"
)

// Generative backends have finite context windows; the analyzed text is cut
// to this budget inside the analysis prompt.
const maxAnalyzeChars = 6000

const biasSystemPrompt = `You are an expert bias detection AI. Analyze text for biases including:
- gender: Gender-based stereotypes or discrimination
- political: Political leaning or partisan bias
- cultural: Cultural assumptions or ethnocentrism
- confirmation: Seeking confirming information only
- selection: Cherry-picking data or examples
- anchoring: Over-reliance on initial information
- other: Any other type of bias

You MUST respond ONLY with valid JSON in this exact format:
{
    "overall_score": 0.0 to 1.0,
    "summary": "brief summary",
    "bias_instances": [
        {
            "type": "gender|political|cultural|confirmation|selection|anchoring|other",
            "text": "the biased passage",
            "explanation": "why it's biased",
            "severity": 0.0 to 1.0,
            "start_position": 0,
            "end_position": 0,
            "suggestions": "how to fix it"
        }
    ]
}

If no bias found, return overall_score: 0 and empty bias_instances array.`

const qaSystemPrompt = `You are a bias detection expert. Answer questions about bias patterns
using the provided context. Be specific and helpful. If no relevant context is available, say so.`

// Generator is the chat capability of the generative backend. Satisfied by
// *ollama.Client.
type Generator interface {
	Chat(ctx context.Context, messages []ollama.Message, opts ollama.Options) (string, error)
}

// GenerativeAnalysis is the typed form of the model's bias report, already
// validated and defaulted at the parse boundary.
type GenerativeAnalysis struct {
	OverallScore  float64
	Summary       string
	BiasInstances []model.BiasInstance
}

// Analyzer sends bounded prompts to the generative backend and defensively
// parses the structured bias report out of its free-form output.
type Analyzer struct {
	llm Generator
}

func NewAnalyzer(llm Generator) *Analyzer {
	return &Analyzer{llm: llm}
}

// AnalyzeBias runs the bias-detection prompt over text. The error is only
// ever a backend failure; a malformed response is recovered locally into a
// default empty result.
func (a *Analyzer) AnalyzeBias(ctx context.Context, text string, biasTypes []model.BiasType) (*GenerativeAnalysis, error) {
	text = truncate(text, maxAnalyzeChars)

	userPrompt := fmt.Sprintf(
		"Analyze this text for %s of bias. Return ONLY valid JSON:\n\nTEXT TO ANALYZE:\n%s\n\nJSON RESPONSE:",
		biasTypesLabel(biasTypes), text,
	)

	response, err := a.llm.Chat(ctx, []ollama.Message{
		{Role: "system", Content: biasSystemPrompt},
		{Role: "user", Content: userPrompt},
	}, ollama.Options{Temperature: 0.3, NumPredict: 4096})
	if err != nil {
		return nil, fmt.Errorf("bias analysis: %w", err)
	}

	return parseAnalysisResponse(response), nil
}

// Answer runs the Q&A prompt with a pre-built context block.
func (a *Analyzer) Answer(ctx context.Context, question, contextBlock string) (string, error) {
	userPrompt := fmt.Sprintf(
		"Context from analyzed documents:\n%s\n\nQuestion: %s\n\nProvide a helpful answer based on the context above.",
		contextBlock, question,
	)

	answer, err := a.llm.Chat(ctx, []ollama.Message{
		{Role: "system", Content: qaSystemPrompt},
		{Role: "user", Content: userPrompt},
	}, ollama.Options{Temperature: 0.3})
	if err != nil {
		return "", fmt.Errorf("question answering: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func biasTypesLabel(biasTypes []model.BiasType) string {
	if len(biasTypes) == 0 {
		return "all types"
	}
	labels := make([]string, len(biasTypes))
	for i, bt := range biasTypes {
		labels[i] = string(bt)
	}
	return strings.Join(labels, ", ")
}

type rawEnvelope struct {
	OverallScore *float64          `json:"overall_score"`
	Summary      string            `json:"summary"`
	BiasInstance []json.RawMessage `json:"bias_instances"`
}

type rawInstance struct {
	Type          string   `json:"type"`
	Text          string   `json:"text"`
	Explanation   string   `json:"explanation"`
	Severity      *float64 `json:"severity"`
	StartPosition *int     `json:"start_position"`
	EndPosition   *int     `json:"end_position"`
	Suggestions   string   `json:"suggestions"`
}

// parseAnalysisResponse extracts the JSON payload between the first '{' and
// the last '}' of the model output. This is deliberately best-effort:
// generative backends are not guaranteed to emit well-formed structure, so
// anything unparseable collapses to a default empty result instead of
// propagating an error.
func parseAnalysisResponse(response string) *GenerativeAnalysis {
	response = strings.TrimSpace(response)

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end <= start {
		return &GenerativeAnalysis{
			Summary:       "Could not parse analysis results",
			BiasInstances: []model.BiasInstance{},
		}
	}

	var envelope rawEnvelope
	if err := json.Unmarshal([]byte(response[start:end+1]), &envelope); err != nil {
		return &GenerativeAnalysis{
			Summary:       "Analysis completed but response format was invalid",
			BiasInstances: []model.BiasInstance{},
		}
	}

	result := &GenerativeAnalysis{
		Summary:       envelope.Summary,
		BiasInstances: make([]model.BiasInstance, 0, len(envelope.BiasInstance)),
	}
	if envelope.OverallScore != nil {
		result.OverallScore = clamp01(*envelope.OverallScore)
	}
	if result.Summary == "" {
		result.Summary = "Analysis complete"
	}

	for i, raw := range envelope.BiasInstance {
		instance, err := convertInstance(raw)
		if err != nil {
			log.Printf("dropping malformed bias instance %d: %v", i, err)
			continue
		}
		result.BiasInstances = append(result.BiasInstances, instance)
	}
	return result
}

// convertInstance validates one bias instance independently: unknown type
// labels coerce to "other", missing numerics get defaults, and only a
// structurally undecodable instance is rejected.
func convertInstance(raw json.RawMessage) (model.BiasInstance, error) {
	var in rawInstance
	if err := json.Unmarshal(raw, &in); err != nil {
		return model.BiasInstance{}, err
	}

	instance := model.BiasInstance{
		Type:        model.ParseBiasType(in.Type),
		Text:        in.Text,
		Explanation: in.Explanation,
		Severity:    0.5,
		Suggestions: in.Suggestions,
	}
	if in.Severity != nil {
		instance.Severity = clamp01(*in.Severity)
	}
	if in.StartPosition != nil {
		instance.StartPosition = *in.StartPosition
	}
	if in.EndPosition != nil {
		instance.EndPosition = *in.EndPosition
	}
	return instance, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
