package ai

import (
	"fmt"
	"strings"

	"vendazap/pkg/models"
)

// Behavioral thresholds applied when compiling the system prompt.
const (
	highComplexityThreshold = 70  // complexity >= 70 pede condução passo a passo
	lowSentimentThreshold   = -50 // sentiment <= -50 pede empatia reforçada
)

// defaultCatalogExcerptLimit caps how many products enter the prompt when
// the tenant does not configure a limit.
const defaultCatalogExcerptLimit = 30

// PromptInput is everything the compiler needs for one turn.
type PromptInput struct {
	Tenant          *models.Tenant
	Specialist      Specialist
	Analysis        Analysis
	Snapshot        *CatalogSnapshot
	HasHistory      bool
	RelatedProducts string // optional semantic-search context
}

// CompileSystemPrompt assembles the system prompt in a fixed section order:
// identity, persona, brand voice, classification summary with behavioral
// adjustments, catalog excerpt, hard rules (including the three-step sales
// funnel), greeting rules conditioned on history. Keeping the order stable
// keeps prompt regressions diffable.
func CompileSystemPrompt(in PromptInput) string {
	var b strings.Builder

	// 1. Identidade
	storeName := "a loja"
	if in.Tenant != nil && in.Tenant.Name != "" {
		storeName = in.Tenant.Name
	}
	fmt.Fprintf(&b, "Você é o assistente virtual de vendas de %s, atendendo clientes por chat em português do Brasil.\n", storeName)
	if in.Tenant != nil && in.Tenant.About != "" {
		fmt.Fprintf(&b, "Sobre a loja: %s\n", in.Tenant.About)
	}
	b.WriteString("\n")

	// 2. Persona do especialista ativo
	fmt.Fprintf(&b, "## Seu papel agora: %s\n%s\n\n", in.Specialist.Title, in.Specialist.Directives)

	// 3. Voz da marca
	if in.Tenant != nil {
		if in.Tenant.AIToneOfVoice != "" {
			fmt.Fprintf(&b, "Tom de voz da marca: %s\n", in.Tenant.AIToneOfVoice)
		}
		switch in.Tenant.AIResponseStyle {
		case "detailed":
			b.WriteString("Estilo de resposta: respostas completas e detalhadas.\n")
		default:
			b.WriteString("Estilo de resposta: respostas curtas e diretas, adequadas a chat.\n")
		}
		if in.Tenant.AICustomInstructions != "" {
			fmt.Fprintf(&b, "Instruções do lojista: %s\n", in.Tenant.AICustomInstructions)
		}
		b.WriteString("\n")
	}

	// 4. Resumo da classificação + ajustes comportamentais
	b.WriteString("## Situação da conversa\n")
	fmt.Fprintf(&b, "Intenção atual: %s | Sentimento: %d | Complexidade: %d\n",
		in.Analysis.Intent, in.Analysis.Sentiment, in.Analysis.Complexity)
	if in.Analysis.Complexity >= highComplexityThreshold {
		b.WriteString("⚠️ A conversa está complexa: conduza passo a passo, confirme cada informação antes de avançar e evite respostas longas demais.\n")
	}
	if in.Analysis.Sentiment <= lowSentimentThreshold {
		b.WriteString("⚠️ O cliente demonstra insatisfação: seja especialmente empático, reconheça o problema primeiro e, se não conseguir resolver, use transfer_to_human.\n")
	}
	b.WriteString("\n")

	// 5. Catálogo disponível
	b.WriteString("## Catálogo disponível\n")
	b.WriteString(catalogExcerpt(in.Tenant, in.Snapshot))
	b.WriteString("\n")

	if in.RelatedProducts != "" {
		b.WriteString("## Produtos possivelmente relacionados ao assunto\n")
		b.WriteString(in.RelatedProducts)
		b.WriteString("\n")
	}

	// 6. Regras invioláveis
	b.WriteString(`## Regras
- Venda SOMENTE produtos do catálogo acima. Nunca invente produtos, preços ou prazos.
- Preços são sempre os do catálogo. Nunca aceite nem proponha outro valor.
- Ao citar um produto do catálogo, escreva o nome exatamente como aparece entre colchetes, ex: [Nome do Produto].
- Conduza a venda em três passos, nesta ordem: 1) identifique o produto que o cliente quer; 2) colete os dados de entrega (nome, telefone e endereço); 3) finalize o pedido.
- Para montar carrinho use add_to_cart; para consultar endereço use get_address_by_cep; para fechar pedido use create_order.
- Antes de create_order confirme itens, nome do cliente e endereço de entrega.
- Se não souber responder ou o cliente pedir uma pessoa, use transfer_to_human.
`)

	// 7. Saudação condicionada ao histórico
	if !in.HasHistory {
		welcome := ""
		if in.Tenant != nil {
			welcome = in.Tenant.AIWelcomeMessage
		}
		if welcome != "" {
			fmt.Fprintf(&b, "\nEsta é a primeira mensagem do cliente. Comece a resposta dando boas-vindas neste espírito: %q\n", welcome)
		} else {
			b.WriteString("\nEsta é a primeira mensagem do cliente. Comece dando boas-vindas de forma breve e calorosa.\n")
		}
	} else {
		b.WriteString("\nA conversa já está em andamento: não repita saudações, não se apresente de novo e não pergunte informações que o cliente já informou.\n")
	}

	return b.String()
}

// catalogExcerpt renders the first N snapshot items as prompt lines. Names
// go inside brackets so the media annotator can find them back in replies.
func catalogExcerpt(tenant *models.Tenant, snapshot *CatalogSnapshot) string {
	if snapshot == nil || len(snapshot.Items) == 0 {
		return "(catálogo vazio no momento — avise o cliente e ofereça transferir para um atendente)\n"
	}

	limit := defaultCatalogExcerptLimit
	if tenant != nil && tenant.CatalogExcerptLimit > 0 {
		limit = tenant.CatalogExcerptLimit
	}

	var b strings.Builder
	for i, item := range snapshot.Items {
		if i >= limit {
			fmt.Fprintf(&b, "... e mais %d produtos no catálogo.\n", len(snapshot.Items)-limit)
			break
		}
		line := fmt.Sprintf("- [%s] — R$ %s", item.Name, formatCurrency(item.Price))
		if d := truncate(item.Description, 120); d != "" {
			line += " — " + d
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
