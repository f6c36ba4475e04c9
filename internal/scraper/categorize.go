package scraper

import (
	"strings"

	"stockwatch/internal/config"
)

// Category is one (country, brand) storefront
type Category struct {
	Country string
	Brand   string
}

// Key is the grouping key: country code followed by brand name, e.g. "NLShark"
func (c Category) Key() string {
	return c.Country + c.Brand
}

// CategoryGroup holds the URLs of one storefront in input order
type CategoryGroup struct {
	Category Category
	URLs     []string
}

// Categorizer maps product URLs to storefronts by substring match against an
// ordered rule table. The first matching rule wins.
type Categorizer struct {
	rules []config.CategoryRule
}

// NewCategorizer copies the rule table; an empty table falls back to the defaults
func NewCategorizer(rules []config.CategoryRule) *Categorizer {
	if len(rules) == 0 {
		rules = config.DefaultCategories()
	}
	copied := make([]config.CategoryRule, len(rules))
	copy(copied, rules)
	return &Categorizer{rules: copied}
}

// Categorize returns the storefront of url, or ok=false when no rule matches
func (c *Categorizer) Categorize(url string) (country, brand string, ok bool) {
	for _, rule := range c.rules {
		if strings.Contains(url, rule.Fragment) {
			return rule.Country, rule.Brand, true
		}
	}
	return "", "", false
}

// GroupByCategory buckets urls per storefront. Unmatched URLs are dropped.
// Groups are returned in order of first appearance and keep the input order
// of their URLs.
func (c *Categorizer) GroupByCategory(urls []string) []CategoryGroup {
	index := make(map[string]int)
	groups := make([]CategoryGroup, 0)

	for _, u := range urls {
		country, brand, ok := c.Categorize(u)
		if !ok {
			continue
		}
		cat := Category{Country: country, Brand: brand}
		i, exists := index[cat.Key()]
		if !exists {
			i = len(groups)
			index[cat.Key()] = i
			groups = append(groups, CategoryGroup{Category: cat})
		}
		groups[i].URLs = append(groups[i].URLs, u)
	}

	return groups
}
