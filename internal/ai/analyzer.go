package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"vendazap/pkg/models"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// analyzerWindow limits how much history the classifier sees. Classification
// tracks the current moment of the conversation, not its whole life.
const analyzerWindow = 6

// Analysis is the classification produced for each inbound turn.
type Analysis struct {
	Intent         string `json:"intent"`          // browsing, buying, support, complaint, question
	Sentiment      int    `json:"sentiment"`       // -100..100
	Complexity     int    `json:"complexity"`      // 0..100
	SuggestedAgent string `json:"suggested_agent"` // seller, consultant, support, technical
	UsedFallback   bool   `json:"-"`
}

// DefaultAnalysis is the safe classification used whenever the analyzer
// cannot produce a valid one. The pipeline never stops because of a failed
// analysis.
func DefaultAnalysis() Analysis {
	return Analysis{
		Intent:         "browsing",
		Sentiment:      0,
		Complexity:     30,
		SuggestedAgent: "seller",
		UsedFallback:   true,
	}
}

var validIntents = map[string]bool{
	"browsing":  true,
	"buying":    true,
	"support":   true,
	"complaint": true,
	"question":  true,
}

// Analyzer classifies the recent conversation into intent, sentiment,
// complexity and a suggested specialist.
type Analyzer struct {
	client ChatCompleter
	model  string
}

// NewAnalyzer creates a conversation analyzer.
func NewAnalyzer(client ChatCompleter, model string) *Analyzer {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Analyzer{client: client, model: model}
}

const analyzerSystemPrompt = `Você é um classificador de conversas de e-commerce. Analise o trecho de conversa e responda APENAS com um objeto JSON com os campos:
- "intent": um de "browsing", "buying", "support", "complaint", "question"
- "sentiment": inteiro de -100 (muito negativo) a 100 (muito positivo)
- "complexity": inteiro de 0 (trivial) a 100 (muito complexo)
- "suggested_agent": um de "seller", "consultant", "support", "technical"

Não explique. Não inclua nada além do JSON.`

// Analyze classifies the last turns of the conversation. It never returns an
// error: any failure degrades to DefaultAnalysis.
func (a *Analyzer) Analyze(ctx context.Context, turns []models.Message) Analysis {
	if len(turns) == 0 {
		return DefaultAnalysis()
	}

	if len(turns) > analyzerWindow {
		turns = turns[len(turns)-analyzerWindow:]
	}

	var transcript strings.Builder
	for _, m := range turns {
		label := "Cliente"
		if m.Role != models.RoleUser {
			label = "Atendente"
		}
		fmt.Fprintf(&transcript, "%s: %s\n", label, m.Content)
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analyzerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: transcript.String()},
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Analisador indisponível, usando classificação padrão")
		return DefaultAnalysis()
	}

	if len(resp.Choices) == 0 {
		return DefaultAnalysis()
	}

	return parseAnalysis(resp.Choices[0].Message.Content)
}

// parseAnalysis validates the raw model output. A missing or out-of-domain
// intent or suggested_agent discards the whole classification in favor of
// DefaultAnalysis; numeric scores default individually and are clamped.
func parseAnalysis(raw string) Analysis {
	var parsed struct {
		Intent         *string `json:"intent"`
		Sentiment      *int    `json:"sentiment"`
		Complexity     *int    `json:"complexity"`
		SuggestedAgent *string `json:"suggested_agent"`
	}

	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		log.Warn().Str("raw", raw).Msg("Classificação não é JSON válido, usando padrão")
		return DefaultAnalysis()
	}

	// intent e suggested_agent são obrigatórios: ausentes ou fora do domínio,
	// a classificação inteira volta para o padrão fixo — não se mistura
	// metade da resposta do modelo com metade do padrão.
	if parsed.Intent == nil || !validIntents[*parsed.Intent] {
		log.Warn().Str("raw", raw).Msg("Classificação sem intent válido, usando padrão")
		return DefaultAnalysis()
	}
	if parsed.SuggestedAgent == nil {
		log.Warn().Str("raw", raw).Msg("Classificação sem suggested_agent, usando padrão")
		return DefaultAnalysis()
	}
	if _, ok := specialists[*parsed.SuggestedAgent]; !ok {
		log.Warn().Str("raw", raw).Msg("Classificação com suggested_agent desconhecido, usando padrão")
		return DefaultAnalysis()
	}

	result := Analysis{
		Intent:         *parsed.Intent,
		Sentiment:      0,
		Complexity:     30,
		SuggestedAgent: *parsed.SuggestedAgent,
	}
	if parsed.Sentiment != nil {
		result.Sentiment = clamp(*parsed.Sentiment, -100, 100)
	}
	if parsed.Complexity != nil {
		result.Complexity = clamp(*parsed.Complexity, 0, 100)
	}

	return result
}

// extractJSON trims markdown fences some models wrap around JSON output.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
