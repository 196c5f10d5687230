package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Shop", "shop"},
		{"  Retail Shop  ", "retail-shop"},
		{"Retail   Shop", "retail-shop"},
		{"retail-shop", "retail-shop"},
		{"Retail_Shop", "retail-shop"},
		{"Café & Bar!", "caf-bar"},
		{"--shop--", "shop"},
		{"ショップ", ""},
		{"Plot No. 42", "plot-no-42"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeSlug(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeSlugIdempotent(t *testing.T) {
	inputs := []string{"", "Shop Spaces", "  A  B  C  ", "über-flat", "4+ BHK!!", "plot_no_42"}
	for _, in := range inputs {
		once := NormalizeSlug(in)
		assert.Equal(t, once, NormalizeSlug(once), "input %q", in)
	}
}

func TestCanonicalType(t *testing.T) {
	assert.Equal(t, "commercial", CanonicalType("Shop"))
	assert.Equal(t, "commercial", CanonicalType("showroom"))
	assert.Equal(t, "commercial", CanonicalType("warehouse"))
	assert.Equal(t, "pg", CanonicalType("Co-Living"))
	assert.Equal(t, "pg", CanonicalType("coliving"))
	assert.Equal(t, "flat", CanonicalType("apartment"))
	assert.Equal(t, "plot", CanonicalType("land"))
	assert.Equal(t, "agricultural", CanonicalType("agricultural-land"))
	assert.Equal(t, "residential", CanonicalType("villa"))

	// Unknown values pass through normalized.
	assert.Equal(t, "castle", CanonicalType("Castle"))
}

func TestNormalizePriceType(t *testing.T) {
	assert.Equal(t, "sale", NormalizePriceType("buy"))
	assert.Equal(t, "sale", NormalizePriceType("Sale"))
	assert.Equal(t, "rent", NormalizePriceType("lease"))
	assert.Equal(t, "rent", NormalizePriceType("pg"))
	assert.Equal(t, "rent", NormalizePriceType("co-living"))
	assert.Equal(t, "", NormalizePriceType(""))
}

func TestTopTabsVsCategoryGroups(t *testing.T) {
	for _, tab := range []string{"buy", "rent", "sale", "lease", "pg"} {
		assert.True(t, IsTopTab(tab), tab)
	}
	assert.False(t, IsTopTab("commercial"))

	for _, g := range []string{"commercial", "residential", "flat", "plot", "agricultural", "pg"} {
		assert.True(t, IsCategoryGroup(g), g)
	}
	assert.False(t, IsCategoryGroup("buy"))
}
