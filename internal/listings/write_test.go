package listings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"gharbazaar/internal/config"
	"gharbazaar/internal/models"
)

func TestFreePostWindowFilter(t *testing.T) {
	since := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	filter := freePostWindowFilter("user-1", since)

	assert.Equal(t, "user-1", filter["ownerId"])
	assert.Equal(t, bson.M{"$gte": since}, filter["createdAt"])

	// Paid listings never count; legacy rows without the flag do.
	or, ok := filter["$or"].([]bson.M)
	require.True(t, ok)
	assert.Contains(t, or, bson.M{"isPaid": false})
	assert.Contains(t, or, bson.M{"isPaid": bson.M{"$exists": false}})
}

func TestFreePostQuotaPrecedence(t *testing.T) {
	cfg := config.ListingsConfig{FreePostLimit: 5, FreePostPeriodDays: 30}

	// Config default when nothing else is set.
	limit, days := freePostQuota(nil, nil, cfg)
	assert.Equal(t, 5, limit)
	assert.Equal(t, 30, days)

	// Site-wide admin setting overrides config.
	settings := &models.AdminSettings{ID: "freeListingLimits", DefaultLimit: 3, DefaultLimitType: 14}
	limit, days = freePostQuota(nil, settings, cfg)
	assert.Equal(t, 3, limit)
	assert.Equal(t, 14, days)

	// Per-user override beats both.
	user := &models.User{FreeListingLimit: &models.FreeListingLimit{Limit: 10, LimitType: 7}}
	limit, days = freePostQuota(user, settings, cfg)
	assert.Equal(t, 10, limit)
	assert.Equal(t, 7, days)

	// Partial overrides only replace what they set.
	user = &models.User{FreeListingLimit: &models.FreeListingLimit{Limit: 10}}
	limit, days = freePostQuota(user, settings, cfg)
	assert.Equal(t, 10, limit)
	assert.Equal(t, 14, days)
}

func TestFreePostLimitErrorMessage(t *testing.T) {
	err := &FreePostLimitError{Limit: 5, PeriodDays: 30}
	assert.Contains(t, err.Error(), "5")
	assert.Contains(t, err.Error(), "30")
}

func TestDemoteOnEdit(t *testing.T) {
	approvedAt := time.Now()
	p := &models.Property{
		Status:         models.StatusActive,
		ApprovalStatus: models.ApprovalApproved,
		IsApproved:     true,
		ApprovedAt:     &approvedAt,
		ApprovedBy:     "admin-1",
	}

	assert.True(t, demoteOnEdit(p))
	assert.Equal(t, models.ApprovalPending, p.ApprovalStatus)
	assert.Equal(t, models.StatusInactive, p.Status)
	assert.False(t, p.IsApproved)
	assert.Nil(t, p.ApprovedAt)
	assert.Empty(t, p.ApprovedBy)

	// Free listings post as active while still pending; an edit pulls
	// them from public view too.
	activePending := &models.Property{Status: models.StatusActive, ApprovalStatus: models.ApprovalPending}
	assert.True(t, demoteOnEdit(activePending))
	assert.Equal(t, models.StatusInactive, activePending.Status)
	assert.Equal(t, models.ApprovalPending, activePending.ApprovalStatus)

	// Already-hidden listings keep their state.
	inactivePending := &models.Property{Status: models.StatusInactive, ApprovalStatus: models.ApprovalPending}
	assert.False(t, demoteOnEdit(inactivePending))

	rejected := &models.Property{Status: models.StatusInactive, ApprovalStatus: models.ApprovalRejected}
	assert.False(t, demoteOnEdit(rejected))
}

func TestCanonicalizeTaxonomyKeepsIDOnMiss(t *testing.T) {
	builder, ids := newBuilderFixture(t, config.LocationMatchRegex)
	svc := &Service{resolver: builder.resolver, logger: builder.logger}

	p := &models.Property{
		PropertyType:      "commercial",
		SubCategory:       "shop-spaces",
		PriceType:         models.PriceSale,
		MiniSubcategoryID: ids["retail-shop"],
	}

	// An edit that only flips priceType re-runs resolution with no mini
	// slug; "shop-spaces" is a subcategory, not a leaf, so the loose
	// lookup misses. The stored id must survive the miss.
	rent := "rent"
	applyUpdate(p, UpdateInput{PriceType: &rent})
	require.NoError(t, svc.canonicalizeTaxonomy(context.Background(), p, "", ""))
	assert.Equal(t, ids["retail-shop"], p.MiniSubcategoryID)

	// A successful resolution still replaces it.
	require.NoError(t, svc.canonicalizeTaxonomy(context.Background(), p, "", "double-sharing"))
	assert.Equal(t, ids["double-sharing"], p.MiniSubcategoryID)
}

func TestApplyUpdateMergesAndFlagsTaxonomy(t *testing.T) {
	p := &models.Property{
		Title:        "Old title",
		Price:        1000,
		PropertyType: "commercial",
		SubCategory:  "shop-spaces",
	}

	title := "New title"
	changed := applyUpdate(p, UpdateInput{Title: &title})
	assert.False(t, changed)
	assert.Equal(t, "New title", p.Title)
	assert.Equal(t, 1000, p.Price)

	sub := "office-spaces"
	changed = applyUpdate(p, UpdateInput{SubCategory: &sub})
	assert.True(t, changed)
	assert.Equal(t, "office-spaces", p.SubCategory)

	priceType := "lease"
	changed = applyUpdate(p, UpdateInput{PriceType: &priceType})
	assert.True(t, changed)
	assert.Equal(t, models.PriceRent, p.PriceType)
}

func TestApplyUpdateStatusWhitelist(t *testing.T) {
	p := &models.Property{Status: models.StatusActive}

	bad := "approved"
	applyUpdate(p, UpdateInput{Status: &bad})
	assert.Equal(t, models.StatusActive, p.Status)

	good := "inactive"
	applyUpdate(p, UpdateInput{Status: &good})
	assert.Equal(t, models.StatusInactive, p.Status)
}

func TestApplyUpdateShareContactInfo(t *testing.T) {
	p := &models.Property{ShareContactInfo: true, ContactVisible: true}

	hide := false
	applyUpdate(p, UpdateInput{ShareContactInfo: &hide})
	assert.False(t, p.ShareContactInfo)
	assert.False(t, p.ContactVisible)
}

func TestNewPagination(t *testing.T) {
	p := newPagination(1, 20, 0)
	assert.Equal(t, Pagination{Page: 1, Limit: 20, Total: 0, Pages: 0}, p)

	p = newPagination(2, 20, 41)
	assert.Equal(t, 3, p.Pages)
	assert.Equal(t, int64(41), p.Total)

	p = newPagination(1, 20, 40)
	assert.Equal(t, 2, p.Pages)

	p = newPagination(1, 20, 1)
	assert.Equal(t, 1, p.Pages)
}
