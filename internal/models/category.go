package models

import "strings"

// Category tags every session with the kind of work done.
type Category string

// DefaultCategories is the category set used when none is configured.
var DefaultCategories = []Category{"discussion", "drafting", "survey"}

// NormalizeCategory trims and lower-cases a raw category string.
func NormalizeCategory(raw string) Category {
	return Category(strings.ToLower(strings.TrimSpace(raw)))
}

// CategorySet is an ordered, closed set of allowed categories.
type CategorySet struct {
	order []Category
	index map[Category]int
}

// NewCategorySet builds a set from the given categories, normalizing each
// and dropping empty entries and duplicates. An empty input yields
// DefaultCategories.
func NewCategorySet(categories []Category) CategorySet {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	cs := CategorySet{index: make(map[Category]int, len(categories))}
	for _, c := range categories {
		c = NormalizeCategory(string(c))
		if c == "" {
			continue
		}
		if _, dup := cs.index[c]; dup {
			continue
		}
		cs.index[c] = len(cs.order)
		cs.order = append(cs.order, c)
	}
	return cs
}

// ParseCategories converts configuration strings into categories.
func ParseCategories(raw []string) []Category {
	out := make([]Category, 0, len(raw))
	for _, r := range raw {
		out = append(out, Category(r))
	}
	return out
}

// Resolve normalizes raw and reports whether it belongs to the set.
func (cs CategorySet) Resolve(raw string) (Category, bool) {
	c := NormalizeCategory(raw)
	_, ok := cs.index[c]
	return c, ok
}

// Contains reports whether c is a member of the set.
func (cs CategorySet) Contains(c Category) bool {
	_, ok := cs.index[c]
	return ok
}

// List returns the categories in configured order.
func (cs CategorySet) List() []Category {
	out := make([]Category, len(cs.order))
	copy(out, cs.order)
	return out
}
