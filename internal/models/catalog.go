package models

import "time"

// ═══════════════════════════════════════════════════════════
// CATALOG & SITE CONTENT MODELS
// ═══════════════════════════════════════════════════════════

// Product is a catalog entry. Products are used only as grounding context for
// the oracle; no other pipeline stage consumes them.
type Product struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Price          string            `json:"price"`
	Description    string            `json:"description"`
	Category       string            `json:"category"`
	InStock        bool              `json:"inStock"`
	ImageURL       string            `json:"imageUrl,omitempty"`
	Features       []string          `json:"features,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// SiteContent is a knowledge-base entry about the storefront itself.
type SiteContent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"` // general, product, service, policy, faq
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SiteContentCategories is the closed set accepted on import and admin edits.
var SiteContentCategories = map[string]bool{
	"general": true,
	"product": true,
	"service": true,
	"policy":  true,
	"faq":     true,
}
