package ai

import (
	"fmt"
	"strings"

	"vendazap/pkg/models"

	"github.com/google/uuid"
)

// AnnotateMediaReferences scans an assistant reply for [Product Name]
// bracket tokens and returns one product card per distinct catalog match,
// in first-mention order. Only items carrying an image produce a card —
// a card without media is just noise in the transcript.
func AnnotateMediaReferences(reply string, snapshot *CatalogSnapshot) []models.ProductCardRef {
	if snapshot == nil || reply == "" {
		return nil
	}

	var cards []models.ProductCardRef
	seen := make(map[uuid.UUID]bool)

	for _, token := range scanBracketTokens(reply) {
		item := snapshot.ByName(token)
		if item == nil || item.ImageURL == "" {
			continue
		}
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		cards = append(cards, models.ProductCardRef{
			ProductID:   item.ID,
			Name:        item.Name,
			Price:       item.Price,
			Description: truncate(item.Description, 120),
			ImageURL:    item.ImageURL,
		})
	}

	return cards
}

// productCardContent renders the short card text sent alongside the product
// image: name, price and description.
func productCardContent(card models.ProductCardRef) string {
	content := fmt.Sprintf("📷 %s — R$ %s", card.Name, formatCurrency(card.Price))
	if card.Description != "" {
		content += "\n" + card.Description
	}
	return content
}

// scanBracketTokens extracts the contents of [...] spans with a single
// linear pass. Nested or unterminated brackets never match: an inner '['
// restarts the span, and a span left open at the end of the text is
// discarded. Empty and whitespace-only spans are skipped.
func scanBracketTokens(text string) []string {
	var tokens []string
	start := -1

	for i, r := range text {
		switch r {
		case '[':
			start = i + 1
		case ']':
			if start >= 0 && i > start {
				token := strings.TrimSpace(text[start:i])
				if token != "" {
					tokens = append(tokens, token)
				}
			}
			start = -1
		}
	}

	return tokens
}
