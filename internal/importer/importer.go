// Package importer parses the admin console's bulk import files and renders
// the matching exports. Validation is all-or-nothing per file: the first bad
// entry aborts the import with an error naming its index.
package importer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"shopassist/internal/models"
	"shopassist/internal/storage"
)

// ParseResponses decodes a trigger→reply object. Keys are normalized
// (lowercased, trimmed) and entries whose value is not a string are skipped.
// Raw keys are processed in sorted order, so when two keys normalize to the
// same trigger the lexicographically last one wins every run.
func ParseResponses(data []byte) (map[string]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid responses file: %w", err)
	}

	triggers := make([]string, 0, len(raw))
	for trigger := range raw {
		triggers = append(triggers, trigger)
	}
	sort.Strings(triggers)

	rules := make(map[string]string, len(raw))
	for _, trigger := range triggers {
		var reply string
		if err := json.Unmarshal(raw[trigger], &reply); err != nil {
			continue // non-string values are skipped, not fatal
		}
		key := storage.Normalize(trigger)
		if key == "" {
			continue
		}
		rules[key] = reply
	}
	return rules, nil
}

type productEntry struct {
	Name           *string           `json:"name"`
	Price          *json.RawMessage  `json:"price"`
	Description    *string           `json:"description"`
	Category       *string           `json:"category"`
	InStock        *bool             `json:"inStock"`
	ImageURL       string            `json:"imageUrl"`
	Features       []string          `json:"features"`
	Specifications map[string]string `json:"specifications"`
}

// ParseProducts decodes a product array. name, price, description and
// category are required; a missing field aborts the whole import with the
// offending index. inStock defaults to true.
func ParseProducts(data []byte) ([]models.Product, error) {
	var entries []productEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("invalid products file: %w", err)
	}

	products := make([]models.Product, 0, len(entries))
	for i, e := range entries {
		switch {
		case e.Name == nil || *e.Name == "":
			return nil, fmt.Errorf("product at index %d: missing required field \"name\"", i)
		case e.Price == nil:
			return nil, fmt.Errorf("product at index %d: missing required field \"price\"", i)
		case e.Description == nil || *e.Description == "":
			return nil, fmt.Errorf("product at index %d: missing required field \"description\"", i)
		case e.Category == nil || *e.Category == "":
			return nil, fmt.Errorf("product at index %d: missing required field \"category\"", i)
		}

		price, err := decodePrice(*e.Price)
		if err != nil {
			return nil, fmt.Errorf("product at index %d: %w", i, err)
		}

		inStock := true
		if e.InStock != nil {
			inStock = *e.InStock
		}

		products = append(products, models.Product{
			Name:           *e.Name,
			Price:          price,
			Description:    *e.Description,
			Category:       *e.Category,
			InStock:        inStock,
			ImageURL:       e.ImageURL,
			Features:       e.Features,
			Specifications: e.Specifications,
		})
	}
	return products, nil
}

// decodePrice accepts either a JSON string or a number.
func decodePrice(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("field \"price\" must be a string or number")
}

type siteContentEntry struct {
	Title    *string  `json:"title"`
	Content  *string  `json:"content"`
	Category *string  `json:"category"`
	Tags     []string `json:"tags"`
}

// ParseSiteContent decodes a site-data array. title, content and a category
// from the closed set are required; errors name the offending index.
func ParseSiteContent(data []byte) ([]models.SiteContent, error) {
	var entries []siteContentEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("invalid site data file: %w", err)
	}

	out := make([]models.SiteContent, 0, len(entries))
	for i, e := range entries {
		switch {
		case e.Title == nil || *e.Title == "":
			return nil, fmt.Errorf("site entry at index %d: missing required field \"title\"", i)
		case e.Content == nil || *e.Content == "":
			return nil, fmt.Errorf("site entry at index %d: missing required field \"content\"", i)
		case e.Category == nil || *e.Category == "":
			return nil, fmt.Errorf("site entry at index %d: missing required field \"category\"", i)
		}
		if !models.SiteContentCategories[*e.Category] {
			return nil, fmt.Errorf("site entry at index %d: invalid category %q (must be general, product, service, policy or faq)", i, *e.Category)
		}

		out = append(out, models.SiteContent{
			Title:    *e.Title,
			Content:  *e.Content,
			Category: *e.Category,
			Tags:     e.Tags,
		})
	}
	return out, nil
}

// ─── Exports ─────────────────────────────────────────────────────────────────

// ExportResponses renders the rule table in the import format.
func ExportResponses(rules []models.ResponseRule) ([]byte, error) {
	obj := make(map[string]string, len(rules))
	for _, r := range rules {
		obj[r.Trigger] = r.Reply
	}
	return json.MarshalIndent(obj, "", "  ")
}

func ExportProducts(products []models.Product) ([]byte, error) {
	return json.MarshalIndent(products, "", "  ")
}

func ExportSiteContent(entries []models.SiteContent) ([]byte, error) {
	return json.MarshalIndent(entries, "", "  ")
}
