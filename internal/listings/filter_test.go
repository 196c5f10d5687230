package listings

import (
	"context"
	"net/url"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"gharbazaar/internal/config"
	"gharbazaar/internal/models"
	"gharbazaar/internal/taxonomy"
)

// memStore is an in-memory taxonomy.Store for builder tests.
type memStore struct {
	categories    []models.Category
	subcategories []models.Subcategory
	minis         []models.MiniSubcategory
}

func (m *memStore) CategoryBySlug(_ context.Context, slug string) (*models.Category, error) {
	for i := range m.categories {
		if m.categories[i].Slug == slug {
			return &m.categories[i], nil
		}
	}
	return nil, nil
}

func (m *memStore) SubcategoryBySlug(_ context.Context, categoryID, slug string) (*models.Subcategory, error) {
	for i := range m.subcategories {
		if m.subcategories[i].Slug == slug && m.subcategories[i].CategoryID == categoryID {
			return &m.subcategories[i], nil
		}
	}
	return nil, nil
}

func (m *memStore) SubcategoryBySlugGlobal(_ context.Context, slug string) (*models.Subcategory, error) {
	for i := range m.subcategories {
		if m.subcategories[i].Slug == slug {
			return &m.subcategories[i], nil
		}
	}
	return nil, nil
}

func (m *memStore) SubcategoryIDs(_ context.Context, categoryID string) ([]string, error) {
	var ids []string
	for i := range m.subcategories {
		if m.subcategories[i].CategoryID == categoryID {
			ids = append(ids, m.subcategories[i].ID.Hex())
		}
	}
	return ids, nil
}

func (m *memStore) MiniBySlug(_ context.Context, subcategoryID, slug string) (*models.MiniSubcategory, error) {
	for i := range m.minis {
		if m.minis[i].Slug == slug && m.minis[i].SubcategoryID == subcategoryID {
			return &m.minis[i], nil
		}
	}
	return nil, nil
}

func (m *memStore) MiniBySlugIn(_ context.Context, subcategoryIDs []string, slug string) (*models.MiniSubcategory, error) {
	in := make(map[string]bool, len(subcategoryIDs))
	for _, id := range subcategoryIDs {
		in[id] = true
	}
	for i := range m.minis {
		if m.minis[i].Slug == slug && in[m.minis[i].SubcategoryID] {
			return &m.minis[i], nil
		}
	}
	return nil, nil
}

func (m *memStore) MinisBySlug(_ context.Context, slug string, limit int64) ([]models.MiniSubcategory, error) {
	var out []models.MiniSubcategory
	for i := range m.minis {
		if m.minis[i].Slug == slug {
			out = append(out, m.minis[i])
			if int64(len(out)) >= limit {
				break
			}
		}
	}
	return out, nil
}

// newBuilderFixture builds:
//
//	commercial → shop-spaces → retail-shop
//	pg         → shared-rooms → double-sharing
func newBuilderFixture(t *testing.T, match config.LocationMatch) (*FilterBuilder, map[string]string) {
	t.Helper()

	commercial := models.Category{ID: primitive.NewObjectID(), Slug: "commercial", IsActive: true}
	pg := models.Category{ID: primitive.NewObjectID(), Slug: "pg", IsActive: true}
	shopSpaces := models.Subcategory{ID: primitive.NewObjectID(), CategoryID: commercial.ID.Hex(), Slug: "shop-spaces", IsActive: true}
	sharedRooms := models.Subcategory{ID: primitive.NewObjectID(), CategoryID: pg.ID.Hex(), Slug: "shared-rooms", IsActive: true}
	retailShop := models.MiniSubcategory{ID: primitive.NewObjectID(), SubcategoryID: shopSpaces.ID.Hex(), Slug: "retail-shop", IsActive: true}
	doubleSharing := models.MiniSubcategory{ID: primitive.NewObjectID(), SubcategoryID: sharedRooms.ID.Hex(), Slug: "double-sharing", IsActive: true}

	store := &memStore{
		categories:    []models.Category{commercial, pg},
		subcategories: []models.Subcategory{shopSpaces, sharedRooms},
		minis:         []models.MiniSubcategory{retailShop, doubleSharing},
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	cfg := config.ListingsConfig{
		DefaultPageSize: 20,
		MaxPageSize:     100,
		LocationMatch:   match,
	}
	builder := NewFilterBuilder(taxonomy.NewResolver(store, logger), cfg, logger)

	ids := map[string]string{
		"retail-shop":    retailShop.ID.Hex(),
		"double-sharing": doubleSharing.ID.Hex(),
	}
	return builder, ids
}

func TestParseQueryAliasPriority(t *testing.T) {
	values := url.Values{
		"category":        {"commercial"},
		"categorySlug":    {"ignored"},
		"type":            {"shop"},
		"subcategory":     {"ignored"},
		"subCategory":     {"shop-spaces"},
		"mini":            {"ignored"},
		"miniSubcategory": {"retail-shop"},
		"sort":            {"ignored"},
		"sortBy":          {"price_asc"},
	}
	q := ParseQuery(values)

	assert.Equal(t, "commercial", q.Category)
	assert.Equal(t, "shop", q.PropertyType)
	assert.Equal(t, "shop-spaces", q.SubCategory)
	assert.Equal(t, "retail-shop", q.MiniSlug)
	assert.Equal(t, "price_asc", q.SortBy)
}

func TestBuildBuyTabGrouping(t *testing.T) {
	builder, _ := newBuilderFixture(t, config.LocationMatchRegex)

	plan, err := builder.Build(context.Background(), Query{Category: "buy"})
	require.NoError(t, err)

	// The grouped filter moves both ORs under $and.
	assert.NotContains(t, plan.Filter, "$or")
	and, ok := plan.Filter["$and"].([]bson.M)
	require.True(t, ok)
	require.Len(t, and, 2)

	pairs, ok := and[0]["$or"].([]bson.M)
	require.True(t, ok)
	assert.Len(t, pairs, 5)
	for _, pair := range pairs {
		assert.Equal(t, "sale", pair["priceType"])
	}

	approval, ok := and[1]["$or"].([]bson.M)
	require.True(t, ok)
	assert.Len(t, approval, 2)
}

func TestBuildBuyTabWithExplicitType(t *testing.T) {
	builder, _ := newBuilderFixture(t, config.LocationMatchRegex)

	plan, err := builder.Build(context.Background(), Query{Category: "buy", PropertyType: "shop"})
	require.NoError(t, err)

	assert.Equal(t, "commercial", plan.Filter["propertyType"])
	assert.Equal(t, "sale", plan.Filter["priceType"])
	assert.NotContains(t, plan.Filter, "$and")
	// The flat shape keeps the approval predicate at the top level.
	assert.Contains(t, plan.Filter, "$or")
}

func TestBuildRentTabGrouping(t *testing.T) {
	builder, _ := newBuilderFixture(t, config.LocationMatchRegex)

	plan, err := builder.Build(context.Background(), Query{Category: "rent"})
	require.NoError(t, err)

	and, ok := plan.Filter["$and"].([]bson.M)
	require.True(t, ok)
	pairs := and[0]["$or"].([]bson.M)
	assert.Len(t, pairs, 4)
	for _, pair := range pairs {
		assert.Equal(t, "rent", pair["priceType"])
	}
}

func TestBuildBedroomsSentinel(t *testing.T) {
	builder, _ := newBuilderFixture(t, config.LocationMatchRegex)

	plan, err := builder.Build(context.Background(), Query{Bedrooms: "4+"})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$gte": 4}, plan.Filter["specifications.bedrooms"])

	plan, err = builder.Build(context.Background(), Query{Bedrooms: "2"})
	require.NoError(t, err)
	assert.Equal(t, 2, plan.Filter["specifications.bedrooms"])

	plan, err = builder.Build(context.Background(), Query{Bedrooms: "lots"})
	require.NoError(t, err)
	assert.NotContains(t, plan.Filter, "specifications.bedrooms")
}

func TestBuildPriceRange(t *testing.T) {
	builder, _ := newBuilderFixture(t, config.LocationMatchRegex)

	plan, err := builder.Build(context.Background(), Query{MinPrice: "1000", MaxPrice: "5000"})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$gte": 1000, "$lte": 5000}, plan.Filter["price"])

	plan, err = builder.Build(context.Background(), Query{MinPrice: "1000"})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$gte": 1000}, plan.Filter["price"])
}

func TestBuildMiniIDBypassesResolution(t *testing.T) {
	builder, _ := newBuilderFixture(t, config.LocationMatchRegex)

	plan, err := builder.Build(context.Background(), Query{
		MiniID:   "abc123",
		MiniSlug: "retail-shop",
	})
	require.NoError(t, err)
	assert.Equal(t, SubFilterMiniID, plan.Subcategory.Kind)
	assert.Equal(t, "abc123", plan.Filter["miniSubcategoryId"])
	assert.NotContains(t, plan.Filter, "subCategory")
}

func TestBuildMiniSlugResolvesToID(t *testing.T) {
	builder, ids := newBuilderFixture(t, config.LocationMatchRegex)

	plan, err := builder.Build(context.Background(), Query{
		PropertyType: "commercial",
		SubCategory:  "shop-spaces",
		MiniSlug:     "retail-shop",
	})
	require.NoError(t, err)
	assert.Equal(t, SubFilterMiniID, plan.Subcategory.Kind)
	assert.Equal(t, ids["retail-shop"], plan.Filter["miniSubcategoryId"])
	// Exactly one of the two constraints applies.
	assert.NotContains(t, plan.Filter, "subCategory")
}

func TestBuildUnresolvedMiniDegradesToSlug(t *testing.T) {
	builder, _ := newBuilderFixture(t, config.LocationMatchRegex)

	plan, err := builder.Build(context.Background(), Query{
		PropertyType: "commercial",
		SubCategory:  "shop-spaces",
		MiniSlug:     "helipad",
	})
	require.NoError(t, err)
	assert.Equal(t, SubFilterSlug, plan.Subcategory.Kind)
	assert.Equal(t, "shop-spaces", plan.Filter["subCategory"])
	assert.NotContains(t, plan.Filter, "miniSubcategoryId")
}

func TestBuildMiniSlugSentThroughSubCategory(t *testing.T) {
	builder, ids := newBuilderFixture(t, config.LocationMatchRegex)

	// The UI sent a leaf slug in the subCategory field; loose resolution
	// recovers the id via the globally unique slug.
	plan, err := builder.Build(context.Background(), Query{SubCategory: "double-sharing"})
	require.NoError(t, err)
	assert.Equal(t, ids["double-sharing"], plan.Filter["miniSubcategoryId"])
	assert.NotContains(t, plan.Filter, "subCategory")
}

func TestBuildSortWhitelist(t *testing.T) {
	builder, _ := newBuilderFixture(t, config.LocationMatchRegex)

	plan, err := builder.Build(context.Background(), Query{SortBy: "price_asc"})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "price", Value: 1}}, plan.Sort)

	// Arbitrary fields never make it into the sort document.
	plan, err = builder.Build(context.Background(), Query{SortBy: "ownerId"})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}}, plan.Sort)

	plan, err = builder.Build(context.Background(), Query{SortBy: "premium_first"})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "premium", Value: -1}, {Key: "createdAt", Value: -1}}, plan.Sort)
}

func TestBuildPaginationClamping(t *testing.T) {
	builder, _ := newBuilderFixture(t, config.LocationMatchRegex)

	plan, err := builder.Build(context.Background(), Query{Page: "3", Limit: "500"})
	require.NoError(t, err)
	assert.Equal(t, 3, plan.Page)
	assert.Equal(t, 100, plan.Limit)
	assert.Equal(t, int64(200), plan.Skip)

	plan, err = builder.Build(context.Background(), Query{Page: "0", Limit: "-5"})
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Page)
	assert.Equal(t, 20, plan.Limit)
	assert.Equal(t, int64(0), plan.Skip)
}

func TestBuildLocationRegexMode(t *testing.T) {
	builder, _ := newBuilderFixture(t, config.LocationMatchRegex)

	plan, err := builder.Build(context.Background(), Query{Sector: "Sector 15"})
	require.NoError(t, err)

	re, ok := plan.Filter["location.sector"].(primitive.Regex)
	require.True(t, ok)
	assert.Equal(t, "^Sector 15$", re.Pattern)
	assert.Equal(t, "i", re.Options)
}

func TestBuildLocationExactMode(t *testing.T) {
	builder, _ := newBuilderFixture(t, config.LocationMatchExact)

	plan, err := builder.Build(context.Background(), Query{Mohalla: "Old Town"})
	require.NoError(t, err)
	assert.Equal(t, "Old Town", plan.Filter["location.mohalla"])
}

func TestBuildLocationRegexEscapesMeta(t *testing.T) {
	builder, _ := newBuilderFixture(t, config.LocationMatchRegex)

	plan, err := builder.Build(context.Background(), Query{Landmark: "St. Mary (West)"})
	require.NoError(t, err)

	re := plan.Filter["location.landmark"].(primitive.Regex)
	assert.Equal(t, `^St\. Mary \(West\)$`, re.Pattern)
}

func TestBuildPublicVisibilityPredicate(t *testing.T) {
	builder, _ := newBuilderFixture(t, config.LocationMatchRegex)

	plan, err := builder.Build(context.Background(), Query{})
	require.NoError(t, err)

	assert.Equal(t, "active", plan.Filter["status"])
	or, ok := plan.Filter["$or"].([]bson.M)
	require.True(t, ok)
	assert.Contains(t, or, bson.M{"approvalStatus": "approved"})
	assert.Contains(t, or, bson.M{"approvalStatus": bson.M{"$exists": false}})
}

func TestBuildExplicitPriceTypeWins(t *testing.T) {
	builder, _ := newBuilderFixture(t, config.LocationMatchRegex)

	plan, err := builder.Build(context.Background(), Query{
		Category:     "buy",
		PropertyType: "flat",
		PriceType:    "lease",
	})
	require.NoError(t, err)
	assert.Equal(t, "rent", plan.Filter["priceType"])
}

func TestBuildPremiumAndFeaturedFlags(t *testing.T) {
	builder, _ := newBuilderFixture(t, config.LocationMatchRegex)

	plan, err := builder.Build(context.Background(), Query{Premium: true, Featured: true})
	require.NoError(t, err)
	assert.Equal(t, true, plan.Filter["premium"])
	assert.Equal(t, true, plan.Filter["featured"])
}
