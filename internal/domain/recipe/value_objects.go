package recipe

import (
	"strings"
	"unicode"
)

// IngredientSeparator splits tokens in a raw ingredient query.
const IngredientSeparator = ','

// NormalizeIngredients keeps letters and the separator, lower-casing letters.
// Digits, whitespace, punctuation and units are dropped, so quantities do not
// affect matching. Applying it twice yields the same result.
func NormalizeIngredients(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r == IngredientSeparator:
			b.WriteRune(r)
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// IngredientKey is the match key of one ingredient or list-form query element:
// the normalized text with separators removed.
func IngredientKey(raw string) string {
	return strings.ReplaceAll(NormalizeIngredients(raw), string(IngredientSeparator), "")
}

// IngredientQuery is the normalized, de-duplicated token set of one match request.
type IngredientQuery struct {
	tokens []string
}

// ParseIngredientQuery builds a query from a comma-separated string.
func ParseIngredientQuery(raw string) IngredientQuery {
	return newIngredientQuery(strings.Split(NormalizeIngredients(raw), string(IngredientSeparator)))
}

// IngredientQueryFromList builds a query from a structured list; every element
// is one token, so separators inside an element are dropped.
func IngredientQueryFromList(items []string) IngredientQuery {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, IngredientKey(item))
	}
	return newIngredientQuery(parts)
}

func newIngredientQuery(parts []string) IngredientQuery {
	seen := make(map[string]struct{}, len(parts))
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		tokens = append(tokens, part)
	}
	return IngredientQuery{tokens: tokens}
}

// Tokens returns a copy of the query tokens in first-seen order.
func (q IngredientQuery) Tokens() []string {
	return append([]string(nil), q.tokens...)
}

// Empty reports whether the query has no usable tokens.
func (q IngredientQuery) Empty() bool {
	return len(q.tokens) == 0
}

// String renders the query in its canonical comma-separated form.
func (q IngredientQuery) String() string {
	return strings.Join(q.tokens, string(IngredientSeparator))
}
