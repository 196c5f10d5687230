package taxonomy

import (
	"strings"
	"unicode"
)

// NormalizeSlug lowercases, trims, collapses whitespace runs into single
// hyphens and strips everything outside [a-z0-9-]. It never fails and is
// idempotent, so values can be re-normalized freely on both the read and
// write paths.
func NormalizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '-' || r == '_' || unicode.IsSpace(r):
			pendingHyphen = true
		default:
			// dropped
		}
	}
	return b.String()
}

// TypeAliases maps free-form UI type names onto canonical propertyType
// groups. Loaded once, never mutated.
var TypeAliases = map[string]string{
	// PG / co-living
	"pg":        "pg",
	"co-living": "pg",
	"coliving":  "pg",

	// Agricultural
	"agricultural":      "agricultural",
	"agricultural-land": "agricultural",
	"agri":              "agricultural",
	"farm":              "agricultural",

	// Commercial family
	"commercial": "commercial",
	"shop":       "commercial",
	"showroom":   "commercial",
	"office":     "commercial",
	"warehouse":  "commercial",

	// Residential family
	"residential": "residential",
	"villa":       "residential",
	"house":       "residential",

	// Flats
	"flat":      "flat",
	"apartment": "flat",

	// Plots
	"plot": "plot",
	"land": "plot",
}

// CategoryGroups is the set of canonical propertyType groups; these are
// the taxonomy category slugs a propertyType hint can stand in for.
var CategoryGroups = map[string]bool{
	"pg":           true,
	"commercial":   true,
	"agricultural": true,
	"residential":  true,
	"flat":         true,
	"plot":         true,
}

// TopTabs is the set of UI navigation tab slugs that are not taxonomy
// categories in their own right.
var TopTabs = map[string]bool{
	"buy":   true,
	"rent":  true,
	"sale":  true,
	"lease": true,
	"pg":    true,
}

// PriceTypeAliases maps tab and synonym slugs onto the two canonical
// price types.
var PriceTypeAliases = map[string]string{
	"buy":       "sale",
	"sale":      "sale",
	"rent":      "rent",
	"lease":     "rent",
	"pg":        "rent",
	"co-living": "rent",
	"coliving":  "rent",
}

// CanonicalType normalizes a free-form type name into its canonical
// propertyType group, or returns the normalized slug unchanged when no
// alias matches.
func CanonicalType(s string) string {
	slug := NormalizeSlug(s)
	if canonical, ok := TypeAliases[slug]; ok {
		return canonical
	}
	return slug
}

// NormalizePriceType maps buy/lease/pg style inputs onto sale or rent.
// Unknown values pass through normalized so callers can decide.
func NormalizePriceType(s string) string {
	slug := NormalizeSlug(s)
	if canonical, ok := PriceTypeAliases[slug]; ok {
		return canonical
	}
	return slug
}

// IsCategoryGroup reports whether slug is one of the canonical
// propertyType groups.
func IsCategoryGroup(slug string) bool {
	return CategoryGroups[slug]
}

// IsTopTab reports whether slug denotes a UI navigation tab rather than
// a taxonomy category.
func IsTopTab(slug string) bool {
	return TopTabs[slug]
}
