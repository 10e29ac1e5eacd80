package product

import "strings"

// Match reports whether p satisfies f. Name and SKU are compared
// case-insensitively; an empty term matches every product.
func (f Filter) Match(p Product) bool {
	if f.Category != "" && f.Category != CategoryAll && p.Category != f.Category {
		return false
	}
	if f.Term == "" {
		return true
	}
	term := strings.ToLower(f.Term)
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.SKU), term)
}
