package ai

import (
	"strings"
	"testing"

	"vendazap/pkg/models"

	"github.com/google/uuid"
)

func testTenant() *models.Tenant {
	return &models.Tenant{
		Name:                "Loja da Maria",
		About:               "Cosméticos naturais",
		AIToneOfVoice:       "descontraído e acolhedor",
		AIResponseStyle:     "short",
		CatalogExcerptLimit: 30,
	}
}

func TestSelectSpecialist(t *testing.T) {
	tests := []struct {
		suggested string
		expected  string
	}{
		{"seller", AgentSeller},
		{"consultant", AgentConsultant},
		{"support", AgentSupport},
		{"technical", AgentTechnical},
		{"", AgentSeller},
		{"lawyer", AgentSeller},
	}

	for _, test := range tests {
		if got := SelectSpecialist(test.suggested); got.Key != test.expected {
			t.Errorf("SelectSpecialist(%q) = %s, expected %s", test.suggested, got.Key, test.expected)
		}
	}
}

func TestCompileSystemPromptSections(t *testing.T) {
	tenantID := uuid.New()
	snapshot, _, _ := testSnapshot(tenantID)

	prompt := CompileSystemPrompt(PromptInput{
		Tenant:     testTenant(),
		Specialist: SelectSpecialist(AgentSeller),
		Analysis:   DefaultAnalysis(),
		Snapshot:   snapshot,
		HasHistory: true,
	})

	for _, want := range []string{
		"Loja da Maria",
		"Vendedor(a)",
		"descontraído e acolhedor",
		"Intenção atual: browsing | Sentimento: 0 | Complexidade: 30",
		"[Creme Hidratante] — R$ 49,90",
		"[Shampoo Suave]",
		"Venda SOMENTE produtos do catálogo",
		"Conduza a venda em três passos",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// Ordem fixa das seções
	identity := strings.Index(prompt, "Loja da Maria")
	persona := strings.Index(prompt, "## Seu papel agora")
	situation := strings.Index(prompt, "## Situação da conversa")
	catalog := strings.Index(prompt, "## Catálogo disponível")
	rules := strings.Index(prompt, "## Regras")
	if !(identity < persona && persona < situation && situation < catalog && catalog < rules) {
		t.Errorf("sections out of order: identity=%d persona=%d situation=%d catalog=%d rules=%d",
			identity, persona, situation, catalog, rules)
	}
}

func TestCompileSystemPromptThresholds(t *testing.T) {
	tenantID := uuid.New()
	snapshot, _, _ := testSnapshot(tenantID)

	tests := []struct {
		name       string
		analysis   Analysis
		complexity bool
		sentiment  bool
	}{
		{"neutro", Analysis{Complexity: 30, Sentiment: 0, SuggestedAgent: "seller", Intent: "browsing"}, false, false},
		{"complexidade no limiar", Analysis{Complexity: 70, Sentiment: 0, SuggestedAgent: "seller", Intent: "browsing"}, true, false},
		{"complexidade abaixo do limiar", Analysis{Complexity: 69, Sentiment: 0, SuggestedAgent: "seller", Intent: "browsing"}, false, false},
		{"sentimento no limiar", Analysis{Complexity: 30, Sentiment: -50, SuggestedAgent: "support", Intent: "complaint"}, false, true},
		{"sentimento acima do limiar", Analysis{Complexity: 30, Sentiment: -49, SuggestedAgent: "support", Intent: "complaint"}, false, false},
		{"ambos", Analysis{Complexity: 90, Sentiment: -80, SuggestedAgent: "support", Intent: "complaint"}, true, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			prompt := CompileSystemPrompt(PromptInput{
				Tenant:     testTenant(),
				Specialist: SelectSpecialist(test.analysis.SuggestedAgent),
				Analysis:   test.analysis,
				Snapshot:   snapshot,
				HasHistory: true,
			})
			hasComplexity := strings.Contains(prompt, "conduza passo a passo")
			hasSentiment := strings.Contains(prompt, "demonstra insatisfação")
			if hasComplexity != test.complexity {
				t.Errorf("complexity section = %v, expected %v", hasComplexity, test.complexity)
			}
			if hasSentiment != test.sentiment {
				t.Errorf("sentiment section = %v, expected %v", hasSentiment, test.sentiment)
			}
		})
	}
}

func TestCompileSystemPromptGreeting(t *testing.T) {
	tenantID := uuid.New()
	snapshot, _, _ := testSnapshot(tenantID)
	tenant := testTenant()
	tenant.AIWelcomeMessage = "Oi! Seja bem-vinda à Loja da Maria 💄"

	withHistory := CompileSystemPrompt(PromptInput{
		Tenant: tenant, Specialist: SelectSpecialist(AgentSeller),
		Analysis: DefaultAnalysis(), Snapshot: snapshot, HasHistory: true,
	})
	if strings.Contains(withHistory, "primeira mensagem do cliente") {
		t.Error("greeting instruction must not appear mid-conversation")
	}
	if !strings.Contains(withHistory, "não repita saudações") {
		t.Error("no-repeat-greeting rule missing mid-conversation")
	}

	firstTurn := CompileSystemPrompt(PromptInput{
		Tenant: tenant, Specialist: SelectSpecialist(AgentSeller),
		Analysis: DefaultAnalysis(), Snapshot: snapshot, HasHistory: false,
	})
	if !strings.Contains(firstTurn, "primeira mensagem do cliente") {
		t.Error("greeting instruction missing on first turn")
	}
	if strings.Contains(firstTurn, "não repita saudações") {
		t.Error("no-repeat-greeting rule must not appear on first turn")
	}
	if !strings.Contains(firstTurn, tenant.AIWelcomeMessage) {
		t.Error("welcome message not propagated to greeting instruction")
	}
}

func TestCatalogExcerptLimit(t *testing.T) {
	tenantID := uuid.New()
	items := make([]CatalogItem, 0, 40)
	for i := 0; i < 40; i++ {
		items = append(items, CatalogItem{
			ID:    uuid.New(),
			Name:  "Produto " + string(rune('A'+i%26)) + string(rune('0'+i/26)),
			Price: "10.00",
		})
	}
	snapshot := NewCatalogSnapshot(tenantID, items)

	tenant := testTenant()
	tenant.CatalogExcerptLimit = 5

	excerpt := catalogExcerpt(tenant, snapshot)
	lines := strings.Count(excerpt, "\n")
	// 5 produtos + linha "... e mais N"
	if lines != 6 {
		t.Errorf("excerpt has %d lines, expected 6", lines)
	}
	if !strings.Contains(excerpt, "e mais 35 produtos") {
		t.Errorf("excerpt missing remainder line: %s", excerpt)
	}
}

func TestCatalogExcerptEmpty(t *testing.T) {
	excerpt := catalogExcerpt(testTenant(), NewCatalogSnapshot(uuid.New(), nil))
	if !strings.Contains(excerpt, "catálogo vazio") {
		t.Errorf("unexpected empty-catalog excerpt: %s", excerpt)
	}
}
