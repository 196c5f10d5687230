package taxonomy

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"gharbazaar/internal/models"
)

// fakeStore is an in-memory taxonomy for resolver tests.
type fakeStore struct {
	categories    []models.Category
	subcategories []models.Subcategory
	minis         []models.MiniSubcategory
}

func (f *fakeStore) CategoryBySlug(_ context.Context, slug string) (*models.Category, error) {
	for i := range f.categories {
		if f.categories[i].Slug == slug {
			return &f.categories[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SubcategoryBySlug(_ context.Context, categoryID, slug string) (*models.Subcategory, error) {
	for i := range f.subcategories {
		if f.subcategories[i].Slug == slug && f.subcategories[i].CategoryID == categoryID {
			return &f.subcategories[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SubcategoryBySlugGlobal(_ context.Context, slug string) (*models.Subcategory, error) {
	for i := range f.subcategories {
		if f.subcategories[i].Slug == slug {
			return &f.subcategories[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SubcategoryIDs(_ context.Context, categoryID string) ([]string, error) {
	var ids []string
	for i := range f.subcategories {
		if f.subcategories[i].CategoryID == categoryID {
			ids = append(ids, f.subcategories[i].ID.Hex())
		}
	}
	return ids, nil
}

func (f *fakeStore) MiniBySlug(_ context.Context, subcategoryID, slug string) (*models.MiniSubcategory, error) {
	for i := range f.minis {
		if f.minis[i].Slug == slug && f.minis[i].SubcategoryID == subcategoryID {
			return &f.minis[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) MiniBySlugIn(_ context.Context, subcategoryIDs []string, slug string) (*models.MiniSubcategory, error) {
	in := make(map[string]bool, len(subcategoryIDs))
	for _, id := range subcategoryIDs {
		in[id] = true
	}
	for i := range f.minis {
		if f.minis[i].Slug == slug && in[f.minis[i].SubcategoryID] {
			return &f.minis[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) MinisBySlug(_ context.Context, slug string, limit int64) ([]models.MiniSubcategory, error) {
	var out []models.MiniSubcategory
	for i := range f.minis {
		if f.minis[i].Slug == slug {
			out = append(out, f.minis[i])
			if int64(len(out)) >= limit {
				break
			}
		}
	}
	return out, nil
}

func oid() primitive.ObjectID { return primitive.NewObjectID() }

// newFixture builds the taxonomy used throughout the tests:
//
//	commercial → shop-spaces → retail-shop
//	rent       → office-spaces → retail-shop   (duplicate mini slug)
//	pg         → shared-rooms → double-sharing
func newFixture() (*fakeStore, map[string]string) {
	commercial := models.Category{ID: oid(), Slug: "commercial", Name: "Commercial", IsActive: true}
	rentTab := models.Category{ID: oid(), Slug: "rent", Name: "Rent", IsActive: true}
	pg := models.Category{ID: oid(), Slug: "pg", Name: "PG", IsActive: true}

	shopSpaces := models.Subcategory{ID: oid(), CategoryID: commercial.ID.Hex(), Slug: "shop-spaces", Name: "Shop Spaces", IsActive: true}
	officeSpaces := models.Subcategory{ID: oid(), CategoryID: rentTab.ID.Hex(), Slug: "office-spaces", Name: "Office Spaces", IsActive: true}
	sharedRooms := models.Subcategory{ID: oid(), CategoryID: pg.ID.Hex(), Slug: "shared-rooms", Name: "Shared Rooms", IsActive: true}

	retailShop := models.MiniSubcategory{ID: oid(), SubcategoryID: shopSpaces.ID.Hex(), Slug: "retail-shop", Name: "Retail Shop", IsActive: true}
	retailShopLegacy := models.MiniSubcategory{ID: oid(), SubcategoryID: officeSpaces.ID.Hex(), Slug: "retail-shop", Name: "Retail Shop (legacy)", IsActive: true}
	doubleSharing := models.MiniSubcategory{ID: oid(), SubcategoryID: sharedRooms.ID.Hex(), Slug: "double-sharing", Name: "Double Sharing", IsActive: true}

	store := &fakeStore{
		categories:    []models.Category{commercial, rentTab, pg},
		subcategories: []models.Subcategory{shopSpaces, officeSpaces, sharedRooms},
		minis:         []models.MiniSubcategory{retailShop, retailShopLegacy, doubleSharing},
	}
	ids := map[string]string{
		"retail-shop":        retailShop.ID.Hex(),
		"retail-shop-legacy": retailShopLegacy.ID.Hex(),
		"double-sharing":     doubleSharing.ID.Hex(),
	}
	return store, ids
}

func newTestResolver(store Store) *Resolver {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewResolver(store, logger)
}

func TestCandidateCategoriesOrdering(t *testing.T) {
	// propertyType group first, taxonomy category second, tab third,
	// priceType fallback last.
	got := candidateCategories("agricultural", "commercial", "rent", true)
	assert.Equal(t, []string{"commercial", "agricultural", "rent"}, got)

	got = candidateCategories("buy", "commercial", "", true)
	assert.Equal(t, []string{"commercial", "buy"}, got)

	// Duplicates collapse, keeping the highest-priority position.
	got = candidateCategories("commercial", "commercial", "", true)
	assert.Equal(t, []string{"commercial", "buy"}, got)

	// No priceType fallback in loose mode.
	got = candidateCategories("", "pg", "", false)
	assert.Equal(t, []string{"pg"}, got)

	// Loose mode also ignores tab categories: a bare tab hint must not
	// steer ambiguous leaf slugs.
	got = candidateCategories("rent", "", "", false)
	assert.Empty(t, got)
}

func TestResolveExactPath(t *testing.T) {
	store, ids := newFixture()
	r := newTestResolver(store)

	id, err := r.Resolve(context.Background(), ResolveInput{
		MiniSlug:     "retail-shop",
		SubSlug:      "shop-spaces",
		PropertyType: "commercial",
	})
	require.NoError(t, err)
	assert.Equal(t, ids["retail-shop"], id)
}

func TestResolvePropertyTypeBeatsTabCategory(t *testing.T) {
	store, ids := newFixture()
	r := newTestResolver(store)

	// The unrelated "buy" tab as category must not distract from the
	// propertyType hint.
	id, err := r.Resolve(context.Background(), ResolveInput{
		MiniSlug:     "retail-shop",
		SubSlug:      "shop-spaces",
		CategorySlug: "buy",
		PropertyType: "commercial",
	})
	require.NoError(t, err)
	assert.Equal(t, ids["retail-shop"], id)
}

func TestResolveAliasedPropertyType(t *testing.T) {
	store, ids := newFixture()
	r := newTestResolver(store)

	// "shop" aliases to commercial before the candidate list is built.
	id, err := r.Resolve(context.Background(), ResolveInput{
		MiniSlug:     "Retail Shop",
		SubSlug:      "Shop Spaces",
		PropertyType: "shop",
	})
	require.NoError(t, err)
	assert.Equal(t, ids["retail-shop"], id)
}

func TestResolveEmptySlugsShortCircuit(t *testing.T) {
	store, _ := newFixture()
	r := newTestResolver(store)

	id, err := r.Resolve(context.Background(), ResolveInput{MiniSlug: "retail-shop"})
	require.NoError(t, err)
	assert.Empty(t, id)

	id, err = r.Resolve(context.Background(), ResolveInput{SubSlug: "shop-spaces"})
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestResolveUnknownMini(t *testing.T) {
	store, _ := newFixture()
	r := newTestResolver(store)

	id, err := r.Resolve(context.Background(), ResolveInput{
		MiniSlug:     "helipad",
		SubSlug:      "shop-spaces",
		PropertyType: "commercial",
	})
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestResolveLooseWithHint(t *testing.T) {
	store, ids := newFixture()
	r := newTestResolver(store)

	// "retail-shop" exists under two subcategories; the commercial hint
	// picks the right one.
	id, err := r.ResolveLoose(context.Background(), "retail-shop", "", "commercial")
	require.NoError(t, err)
	assert.Equal(t, ids["retail-shop"], id)
}

func TestResolveLooseAmbiguousWithoutHint(t *testing.T) {
	store, _ := newFixture()
	r := newTestResolver(store)

	// Two global matches and no usable hint: refuse to guess.
	id, err := r.ResolveLoose(context.Background(), "retail-shop", "", "")
	require.NoError(t, err)
	assert.Empty(t, id)

	// A tab is not a usable hint either.
	id, err = r.ResolveLoose(context.Background(), "retail-shop", "buy", "")
	require.NoError(t, err)
	assert.Empty(t, id)

	// Even when a legacy category row exists for the tab slug, the tab
	// must not break the ambiguity gate: "rent" has its own subtree
	// holding one of the duplicate leaves.
	id, err = r.ResolveLoose(context.Background(), "retail-shop", "rent", "")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestResolveLooseUniqueGlobalFallback(t *testing.T) {
	store, ids := newFixture()
	r := newTestResolver(store)

	// "double-sharing" is globally unique, so it resolves without hints.
	id, err := r.ResolveLoose(context.Background(), "double-sharing", "", "")
	require.NoError(t, err)
	assert.Equal(t, ids["double-sharing"], id)
}
