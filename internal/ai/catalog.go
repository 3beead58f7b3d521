package ai

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// CatalogItem is one sellable product frozen at the start of a turn.
type CatalogItem struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       string // decimal string, BRL
	ImageURL    string
}

// CatalogSnapshot is the immutable catalog view used for the whole turn:
// prompt excerpt, cart resolution, order pricing and media annotation all
// read from the same snapshot, so prices cannot drift mid-turn.
type CatalogSnapshot struct {
	TenantID uuid.UUID
	Items    []CatalogItem

	byID   map[uuid.UUID]int
	byName map[string]int
}

// NewCatalogSnapshot builds lookup indexes over the given items.
func NewCatalogSnapshot(tenantID uuid.UUID, items []CatalogItem) *CatalogSnapshot {
	s := &CatalogSnapshot{
		TenantID: tenantID,
		Items:    items,
		byID:     make(map[uuid.UUID]int, len(items)),
		byName:   make(map[string]int, len(items)),
	}
	for i, item := range items {
		s.byID[item.ID] = i
		key := strings.ToLower(strings.TrimSpace(item.Name))
		if _, exists := s.byName[key]; !exists {
			s.byName[key] = i
		}
	}
	return s
}

// ByID returns the snapshot item with the given ID, or nil.
func (s *CatalogSnapshot) ByID(id uuid.UUID) *CatalogItem {
	if i, ok := s.byID[id]; ok {
		return &s.Items[i]
	}
	return nil
}

// ByName returns the snapshot item whose name matches case-insensitively,
// or nil.
func (s *CatalogSnapshot) ByName(name string) *CatalogItem {
	if i, ok := s.byName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return &s.Items[i]
	}
	return nil
}

// Resolve locates an item by product ID first, falling back to the name.
// Returns nil when neither key matches — callers drop unmatched entries
// silently instead of guessing.
func (s *CatalogSnapshot) Resolve(productID, name string) *CatalogItem {
	if productID != "" {
		if id, err := uuid.Parse(productID); err == nil {
			if item := s.ByID(id); item != nil {
				return item
			}
		}
	}
	if name != "" {
		return s.ByName(name)
	}
	return nil
}

// parsePrice converts a decimal price string to float64, tolerating the
// Brazilian comma separator. Unparseable prices count as zero.
func parsePrice(priceStr string) float64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(priceStr), ",", ".")
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return price
}

// formatAmount renders a float as the canonical decimal string stored in
// money columns.
func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// formatCurrency formats a price string to Brazilian currency format
func formatCurrency(priceStr string) string {
	if priceStr == "" {
		return "0,00"
	}

	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return priceStr
	}

	formatted := strings.ReplaceAll(fmt.Sprintf("%.2f", price), ".", ",")

	parts := strings.Split(formatted, ",")
	integerPart := parts[0]
	decimalPart := parts[1]

	if len(integerPart) > 3 {
		var result []rune
		for i, digit := range integerPart {
			if i > 0 && (len(integerPart)-i)%3 == 0 {
				result = append(result, '.')
			}
			result = append(result, digit)
		}
		integerPart = string(result)
	}

	return integerPart + "," + decimalPart
}
