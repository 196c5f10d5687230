package taxonomy

import (
	"context"

	"github.com/sirupsen/logrus"

	"gharbazaar/internal/models"
)

// Resolver turns loose slug combinations from the UI into a canonical
// mini-subcategory id. It walks an ordered candidate list of parent
// categories and returns the first match; there is no scoring.
type Resolver struct {
	store  Store
	logger *logrus.Logger
}

// NewResolver creates a resolver on top of a taxonomy store.
func NewResolver(store Store, logger *logrus.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// ResolveInput carries the slugs a caller knows. All fields are
// normalized internally, so raw query/body values can be passed as-is.
type ResolveInput struct {
	MiniSlug     string
	SubSlug      string
	CategorySlug string
	PropertyType string
	PriceType    string
}

// candidateCategories builds the ordered, de-duplicated list of parent
// category slugs to try, most specific signal first:
//
//  1. propertyType, when it names a canonical group — strongest signal,
//     since subcategory slugs are not globally unique.
//  2. category, when it is a real taxonomy category.
//  3. category, when it is a buy/rent style tab — legacy data sometimes
//     uses tabs as categories. Exact mode only: with a subcategory slug
//     to anchor the chain the tab is a safe low-priority fallback, but
//     in loose mode it would let a bare tab hint pick one of several
//     ambiguous leaves.
//  4. "rent" or "buy" derived from priceType (exact mode only).
func candidateCategories(categorySlug, propertyType, priceType string, exact bool) []string {
	var candidates []string

	if IsCategoryGroup(propertyType) {
		candidates = append(candidates, propertyType)
	}
	if categorySlug != "" && !IsTopTab(categorySlug) {
		candidates = append(candidates, categorySlug)
	}
	if exact {
		if categorySlug != "" && IsTopTab(categorySlug) {
			candidates = append(candidates, categorySlug)
		}
		if priceType == "rent" {
			candidates = append(candidates, "rent")
		} else {
			candidates = append(candidates, "buy")
		}
	}

	seen := make(map[string]bool, len(candidates))
	unique := candidates[:0]
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		unique = append(unique, c)
	}
	return unique
}

// Resolve performs exact-path resolution: both the subcategory slug and
// the mini slug are known. It returns the mini-subcategory id, or ""
// when nothing resolved. Absence is not an error; callers degrade to a
// broader filter.
func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) (string, error) {
	miniSlug := NormalizeSlug(in.MiniSlug)
	subSlug := NormalizeSlug(in.SubSlug)
	if miniSlug == "" || subSlug == "" {
		return "", nil
	}

	categorySlug := NormalizeSlug(in.CategorySlug)
	propertyType := CanonicalType(in.PropertyType)
	priceType := NormalizeSlug(in.PriceType)

	for _, parentSlug := range candidateCategories(categorySlug, propertyType, priceType, true) {
		category, err := r.store.CategoryBySlug(ctx, parentSlug)
		if err != nil {
			return "", err
		}

		subcategory, err := r.lookupSubcategory(ctx, category, subSlug)
		if err != nil {
			return "", err
		}
		if subcategory == nil {
			continue
		}

		mini, err := r.store.MiniBySlug(ctx, subcategory.ID.Hex(), miniSlug)
		if err != nil {
			return "", err
		}
		if mini != nil {
			return mini.ID.Hex(), nil
		}
	}

	return "", nil
}

// lookupSubcategory finds a subcategory by slug, scoped to the parent
// category when one exists, with a global slug match as backup.
func (r *Resolver) lookupSubcategory(ctx context.Context, category *models.Category, subSlug string) (*models.Subcategory, error) {
	if category != nil {
		sub, err := r.store.SubcategoryBySlug(ctx, category.ID.Hex(), subSlug)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			return sub, nil
		}
	}
	return r.store.SubcategoryBySlugGlobal(ctx, subSlug)
}

// ResolveLoose handles the case where only a presumed mini slug is known
// (e.g. the UI sent a mini slug through the subCategory field). It tries
// the candidate categories' subcategory sets first, then falls back to a
// global slug lookup that is only accepted when the slug is unique
// across the whole collection — an ambiguous slug yields "" rather than
// a guess.
func (r *Resolver) ResolveLoose(ctx context.Context, miniSlug, categorySlug, propertyType string) (string, error) {
	miniSlug = NormalizeSlug(miniSlug)
	if miniSlug == "" {
		return "", nil
	}

	categorySlug = NormalizeSlug(categorySlug)
	propertyType = CanonicalType(propertyType)

	for _, parentSlug := range candidateCategories(categorySlug, propertyType, "", false) {
		category, err := r.store.CategoryBySlug(ctx, parentSlug)
		if err != nil {
			return "", err
		}
		if category == nil {
			continue
		}

		subIDs, err := r.store.SubcategoryIDs(ctx, category.ID.Hex())
		if err != nil {
			return "", err
		}
		if len(subIDs) == 0 {
			continue
		}

		mini, err := r.store.MiniBySlugIn(ctx, subIDs, miniSlug)
		if err != nil {
			return "", err
		}
		if mini != nil {
			return mini.ID.Hex(), nil
		}
	}

	// Global fallback, uniqueness-gated.
	minis, err := r.store.MinisBySlug(ctx, miniSlug, 2)
	if err != nil {
		return "", err
	}
	if len(minis) == 1 {
		return minis[0].ID.Hex(), nil
	}
	if len(minis) > 1 {
		r.logger.WithFields(logrus.Fields{
			"miniSlug": miniSlug,
		}).Warn("ambiguous mini-subcategory slug, refusing global fallback")
	}
	return "", nil
}
