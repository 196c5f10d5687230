package listings

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"gharbazaar/internal/config"
	"gharbazaar/internal/taxonomy"
)

// Query is the normalized browse request. Fields hold raw values; the
// builder normalizes and resolves them.
type Query struct {
	Category     string
	PropertyType string
	SubCategory  string
	MiniSlug     string
	MiniID       string
	PriceType    string

	Sector   string
	Mohalla  string
	Landmark string

	MinPrice  string
	MaxPrice  string
	Bedrooms  string
	Bathrooms string
	MinArea   string
	MaxArea   string

	Premium  bool
	Featured bool

	SortBy string
	Page   string
	Limit  string
}

// pickFirst returns the first non-empty value among the given keys.
func pickFirst(values url.Values, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(values.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

// ParseQuery maps the UI's many query-parameter aliases onto a Query.
// For each logical field the first non-empty alias wins, in a fixed
// priority order.
func ParseQuery(values url.Values) Query {
	return Query{
		Category:     pickFirst(values, "category", "categorySlug"),
		PropertyType: pickFirst(values, "propertyType", "type"),
		SubCategory:  pickFirst(values, "subCategory", "subcategory", "sub", "subCat"),
		MiniSlug:     pickFirst(values, "miniSubcategory", "miniSubCategory", "miniSubcategorySlug", "mini"),
		MiniID:       pickFirst(values, "miniSubcategoryId"),
		PriceType:    pickFirst(values, "priceType"),
		Sector:       pickFirst(values, "sector"),
		Mohalla:      pickFirst(values, "mohalla"),
		Landmark:     pickFirst(values, "landmark"),
		MinPrice:     pickFirst(values, "minPrice"),
		MaxPrice:     pickFirst(values, "maxPrice"),
		Bedrooms:     pickFirst(values, "bedrooms"),
		Bathrooms:    pickFirst(values, "bathrooms"),
		MinArea:      pickFirst(values, "minArea"),
		MaxArea:      pickFirst(values, "maxArea"),
		Premium:      values.Get("premium") == "true",
		Featured:     values.Get("featured") == "true",
		SortBy:       pickFirst(values, "sortBy", "sort"),
		Page:         pickFirst(values, "page"),
		Limit:        pickFirst(values, "limit"),
	}
}

// SubcategoryFilterKind tags the mutually exclusive subcategory
// constraint variants.
type SubcategoryFilterKind int

const (
	// SubFilterNone applies no subcategory constraint.
	SubFilterNone SubcategoryFilterKind = iota
	// SubFilterMiniID constrains by the resolved mini-subcategory id.
	SubFilterMiniID
	// SubFilterSlug constrains by the denormalized subCategory slug.
	SubFilterSlug
)

// SubcategoryFilter is the resolved subcategory constraint. Exactly one
// of MiniID/Slug is meaningful, selected by Kind; a query never filters
// by both from the same ambiguous input.
type SubcategoryFilter struct {
	Kind   SubcategoryFilterKind
	MiniID string
	Slug   string
}

// Plan is a canonical, executable query: one database filter, one sort
// document and clamped pagination.
type Plan struct {
	Filter      bson.M
	Sort        bson.D
	Page        int
	Limit       int
	Skip        int64
	Subcategory SubcategoryFilter
}

// Groupings for the buy/rent tabs when no explicit propertyType narrows
// the query.
var (
	buyGroup  = []string{"residential", "plot", "flat", "commercial", "agricultural"}
	rentGroup = []string{"residential", "flat", "commercial", "pg"}
)

// approvalVisible is the public read predicate on approvalStatus:
// approved, or the field absent on pre-moderation legacy rows. Pending
// listings are never publicly visible.
func approvalVisible() []bson.M {
	return []bson.M{
		{"approvalStatus": "approved"},
		{"approvalStatus": bson.M{"$exists": false}},
	}
}

// FilterBuilder turns a Query into a Plan. It owns the alias
// normalization, the tab grouping rules and the subcategory/mini
// resolution strategy.
type FilterBuilder struct {
	resolver *taxonomy.Resolver
	logger   *logrus.Logger
	cfg      config.ListingsConfig
}

// NewFilterBuilder creates a builder.
func NewFilterBuilder(resolver *taxonomy.Resolver, cfg config.ListingsConfig, logger *logrus.Logger) *FilterBuilder {
	return &FilterBuilder{resolver: resolver, cfg: cfg, logger: logger}
}

// Build resolves the query into a canonical plan. Resolution misses are
// not errors: the filter degrades to a broader match and the miss is
// logged.
func (b *FilterBuilder) Build(ctx context.Context, q Query) (*Plan, error) {
	category := taxonomy.NormalizeSlug(q.Category)
	propertyType := taxonomy.CanonicalType(q.PropertyType)
	priceType := taxonomy.NormalizePriceType(q.PriceType)
	subCategory := taxonomy.NormalizeSlug(q.SubCategory)
	miniSlug := taxonomy.NormalizeSlug(q.MiniSlug)

	// Pages that only know a category sometimes mean a propertyType.
	if propertyType == "" && category != "" {
		if alias, ok := taxonomy.TypeAliases[category]; ok {
			propertyType = alias
		}
	}

	// Tab pages pass the real group through subCategory when browsing
	// e.g. /buy/commercial.
	if propertyType == "" && taxonomy.IsTopTab(category) && subCategory != "" {
		if group := taxonomy.CanonicalType(subCategory); taxonomy.IsCategoryGroup(group) {
			propertyType = group
			subCategory = ""
		}
	}

	filter := bson.M{
		"status": "active",
		"$or":    approvalVisible(),
	}

	switch category {
	case "buy":
		b.applyTabGrouping(filter, propertyType, "sale", buyGroup)
	case "rent":
		b.applyTabGrouping(filter, propertyType, "rent", rentGroup)
	default:
		if propertyType != "" {
			filter["propertyType"] = propertyType
		}
	}

	sub, err := b.resolveSubcategory(ctx, q, category, propertyType, subCategory, miniSlug, priceType)
	if err != nil {
		return nil, err
	}
	switch sub.Kind {
	case SubFilterMiniID:
		filter["miniSubcategoryId"] = sub.MiniID
	case SubFilterSlug:
		filter["subCategory"] = sub.Slug
	}

	// An explicit priceType always wins over the tab-derived one.
	if priceType != "" {
		filter["priceType"] = priceType
	}

	if q.Premium {
		filter["premium"] = true
	}
	if q.Featured {
		filter["featured"] = true
	}

	b.applyLocation(filter, "location.sector", q.Sector)
	b.applyLocation(filter, "location.mohalla", q.Mohalla)
	b.applyLocation(filter, "location.landmark", q.Landmark)

	applyBedrooms(filter, q.Bedrooms)
	if n, ok := parseIntValue(q.Bathrooms); ok {
		filter["specifications.bathrooms"] = n
	}
	applyRange(filter, "price", q.MinPrice, q.MaxPrice)
	applyRange(filter, "specifications.area", q.MinArea, q.MaxArea)

	page, limit := b.pagination(q.Page, q.Limit)

	return &Plan{
		Filter:      filter,
		Sort:        sortDocument(q.SortBy),
		Page:        page,
		Limit:       limit,
		Skip:        int64(page-1) * int64(limit),
		Subcategory: sub,
	}, nil
}

// applyTabGrouping narrows a buy/rent tab query. With an explicit
// propertyType the pair is direct; otherwise the group's known members
// are OR-ed, each pinned to the tab's price type, and the approval
// predicate moves under $and so both ORs survive.
func (b *FilterBuilder) applyTabGrouping(filter bson.M, propertyType, priceType string, group []string) {
	if propertyType != "" {
		filter["propertyType"] = propertyType
		filter["priceType"] = priceType
		return
	}

	pairs := make([]bson.M, 0, len(group))
	for _, member := range group {
		pairs = append(pairs, bson.M{"propertyType": member, "priceType": priceType})
	}
	filter["$and"] = []bson.M{
		{"$or": pairs},
		{"$or": approvalVisible()},
	}
	delete(filter, "$or")
}

// resolveSubcategory picks exactly one of the mutually exclusive
// subcategory constraints from the possibly ambiguous inputs.
func (b *FilterBuilder) resolveSubcategory(ctx context.Context, q Query, category, propertyType, subCategory, miniSlug, priceType string) (SubcategoryFilter, error) {
	// A direct id bypasses resolution entirely.
	if id := strings.TrimSpace(q.MiniID); id != "" {
		return SubcategoryFilter{Kind: SubFilterMiniID, MiniID: id}, nil
	}

	if miniSlug != "" {
		id, err := b.resolver.Resolve(ctx, taxonomy.ResolveInput{
			MiniSlug:     miniSlug,
			SubSlug:      subCategory,
			CategorySlug: category,
			PropertyType: propertyType,
			PriceType:    priceType,
		})
		if err != nil {
			return SubcategoryFilter{}, err
		}
		if id != "" {
			return SubcategoryFilter{Kind: SubFilterMiniID, MiniID: id}, nil
		}
		b.logger.WithFields(logrus.Fields{
			"miniSubcategory": miniSlug,
			"subCategory":     subCategory,
			"category":        category,
			"propertyType":    propertyType,
		}).Warn("mini-subcategory slug not resolved, degrading filter")
		if subCategory != "" {
			return SubcategoryFilter{Kind: SubFilterSlug, Slug: subCategory}, nil
		}
		return SubcategoryFilter{Kind: SubFilterNone}, nil
	}

	if subCategory != "" {
		// The UI sometimes sends a mini slug through the subCategory
		// field; try loose resolution before falling back to the
		// denormalized slug filter.
		id, err := b.resolver.ResolveLoose(ctx, subCategory, category, propertyType)
		if err != nil {
			return SubcategoryFilter{}, err
		}
		if id != "" {
			return SubcategoryFilter{Kind: SubFilterMiniID, MiniID: id}, nil
		}
		return SubcategoryFilter{Kind: SubFilterSlug, Slug: subCategory}, nil
	}

	return SubcategoryFilter{Kind: SubFilterNone}, nil
}

func (b *FilterBuilder) applyLocation(filter bson.M, field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if b.cfg.LocationMatch == config.LocationMatchExact {
		filter[field] = value
		return
	}
	filter[field] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value) + "$", Options: "i"}
}

// applyBedrooms supports the "4+" sentinel meaning four or more.
func applyBedrooms(filter bson.M, bedrooms string) {
	bedrooms = strings.TrimSpace(bedrooms)
	if bedrooms == "" {
		return
	}
	if strings.HasSuffix(bedrooms, "+") {
		if n, ok := parseIntValue(strings.TrimSuffix(bedrooms, "+")); ok {
			filter["specifications.bedrooms"] = bson.M{"$gte": n}
		}
		return
	}
	if n, ok := parseIntValue(bedrooms); ok {
		filter["specifications.bedrooms"] = n
	}
}

func applyRange(filter bson.M, field, minVal, maxVal string) {
	rangeDoc := bson.M{}
	if n, ok := parseIntValue(minVal); ok {
		rangeDoc["$gte"] = n
	}
	if n, ok := parseIntValue(maxVal); ok {
		rangeDoc["$lte"] = n
	}
	if len(rangeDoc) > 0 {
		filter[field] = rangeDoc
	}
}

func parseIntValue(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// sortDocument maps an enumerated sort option onto an explicit sort
// document. Arbitrary client-supplied fields are never accepted.
func sortDocument(sortBy string) bson.D {
	switch sortBy {
	case "price_asc":
		return bson.D{{Key: "price", Value: 1}}
	case "price_desc":
		return bson.D{{Key: "price", Value: -1}}
	case "area_desc":
		return bson.D{{Key: "specifications.area", Value: -1}}
	case "date_asc":
		return bson.D{{Key: "createdAt", Value: 1}}
	case "views_desc":
		return bson.D{{Key: "views", Value: -1}}
	case "premium_first":
		return bson.D{{Key: "premium", Value: -1}, {Key: "createdAt", Value: -1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}}
	}
}

func (b *FilterBuilder) pagination(pageStr, limitStr string) (page, limit int) {
	page = 1
	if n, ok := parseIntValue(pageStr); ok && n >= 1 {
		page = n
	}

	limit = b.cfg.DefaultPageSize
	if limit <= 0 {
		limit = 20
	}
	if n, ok := parseIntValue(limitStr); ok && n >= 1 {
		limit = n
	}
	maxLimit := b.cfg.MaxPageSize
	if maxLimit <= 0 {
		maxLimit = 100
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
