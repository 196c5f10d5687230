package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gharbazaar/internal/listings"
	"gharbazaar/internal/middleware"
	"gharbazaar/internal/ratelimit"
	"gharbazaar/internal/search"
	"gharbazaar/internal/taxonomy"
)

// PropertyHandler handles listing-related requests
type PropertyHandler struct {
	service *listings.Service
	search  *search.SearchClient
	limiter *ratelimit.RateLimiter
	logger  *logrus.Logger
}

// NewPropertyHandler creates a new property handler. search and limiter
// may be nil when disabled.
func NewPropertyHandler(service *listings.Service, searchClient *search.SearchClient, limiter *ratelimit.RateLimiter, logger *logrus.Logger) *PropertyHandler {
	return &PropertyHandler{
		service: service,
		search:  searchClient,
		limiter: limiter,
		logger:  logger,
	}
}

// listPayload is the browse response envelope: the page of properties
// and its pagination nested under data.
func listPayload(result *listings.Result) gin.H {
	return gin.H{
		"success": true,
		"data": gin.H{
			"properties": result.Listings,
			"pagination": result.Pagination,
		},
	}
}

// List handles GET /api/properties
func (h *PropertyHandler) List(c *gin.Context) {
	q := listings.ParseQuery(c.Request.URL.Query())

	result, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		h.logger.WithError(err).Error("listing query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load listings"})
		return
	}

	c.JSON(http.StatusOK, listPayload(result))
}

// ListByCategoryPath handles GET /api/categories/:category and
// GET /api/categories/:category/:sub — the path-segment flavor of the
// browse endpoint. Segments map onto the same query the builder
// resolves:
//
//	tab + group segment     → propertyType + tab price type
//	tab + other segment     → subCategory + tab price type
//	taxonomy cat + segment  → category + subCategory
func (h *PropertyHandler) ListByCategoryPath(c *gin.Context) {
	category := taxonomy.NormalizeSlug(c.Param("category"))
	segment := taxonomy.NormalizeSlug(c.Param("sub"))

	q := listings.ParseQuery(c.Request.URL.Query())
	q.Category = category

	if segment != "" {
		if taxonomy.IsTopTab(category) {
			if group := taxonomy.CanonicalType(segment); taxonomy.IsCategoryGroup(group) {
				q.PropertyType = group
			} else {
				q.SubCategory = segment
			}
			if q.PriceType == "" {
				q.PriceType = taxonomy.NormalizePriceType(category)
			}
		} else {
			q.SubCategory = segment
		}
	}

	result, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		h.logger.WithError(err).Error("category browse failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load listings"})
		return
	}

	c.JSON(http.StatusOK, listPayload(result))
}

// GetByID handles GET /api/properties/:id
func (h *PropertyHandler) GetByID(c *gin.Context) {
	property, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "failed to load listing")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "listing": property})
}

// Featured handles GET /api/properties/featured
func (h *PropertyHandler) Featured(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	featured, err := h.service.Featured(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("featured query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load featured listings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "listings": featured})
}

// My handles GET /api/properties/my — the owner dashboard list,
// including pending and rejected entries.
func (h *PropertyHandler) My(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.service.ByOwner(c.Request.Context(), middleware.UserID(c), page, limit)
	if err != nil {
		h.logger.WithError(err).Error("owner listings query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load your listings"})
		return
	}

	c.JSON(http.StatusOK, listPayload(result))
}

// Search handles GET /api/properties/search?q=
func (h *PropertyHandler) Search(c *gin.Context) {
	if h.search == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "search is disabled"})
		return
	}

	query := c.Query("q")
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)

	hits, err := h.search.Search(query, limit)
	if err != nil {
		h.logger.WithError(err).Error("search query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "listings": hits, "count": len(hits)})
}

// decodeBody reads a create/update payload from either a JSON body or
// the "data" field of a multipart form. Form clients sometimes send the
// JSON value string-encoded a second time, so a string result is
// decoded once more.
func decodeBody(c *gin.Context, target interface{}) error {
	contentType := c.ContentType()
	if contentType == "multipart/form-data" {
		raw := c.PostForm("data")
		if raw == "" {
			return errors.New("multipart form has no data field")
		}
		return decodeLoose([]byte(raw), target)
	}

	body, err := c.GetRawData()
	if err != nil {
		return err
	}
	return decodeLoose(body, target)
}

func decodeLoose(raw []byte, target interface{}) error {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = []byte(asString)
	}
	return json.Unmarshal(raw, target)
}

// Create handles POST /api/properties
func (h *PropertyHandler) Create(c *gin.Context) {
	userID := middleware.UserID(c)
	if !h.allowWrite(c, userID) {
		return
	}

	var in listings.CreateInput
	if err := decodeBody(c, &in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid listing payload"})
		return
	}
	if in.Title == "" || in.PropertyType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "title and propertyType are required"})
		return
	}

	property, err := h.service.Create(c.Request.Context(), userID, in)
	if err != nil {
		var limitErr *listings.FreePostLimitError
		if errors.As(err, &limitErr) {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": limitErr.Error()})
			return
		}
		h.logger.WithError(err).Error("listing create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create listing"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "listing": property})
}

// Update handles PUT /api/properties/:id
func (h *PropertyHandler) Update(c *gin.Context) {
	userID := middleware.UserID(c)
	if !h.allowWrite(c, userID) {
		return
	}

	var in listings.UpdateInput
	if err := decodeBody(c, &in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid listing payload"})
		return
	}

	property, err := h.service.Update(c.Request.Context(), c.Param("id"), userID, in)
	if err != nil {
		h.respondError(c, err, "failed to update listing")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "listing": property})
}

// Delete handles DELETE /api/properties/:id
func (h *PropertyHandler) Delete(c *gin.Context) {
	err := h.service.Delete(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err, "failed to delete listing")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *PropertyHandler) allowWrite(c *gin.Context, userID string) bool {
	if h.limiter == nil || h.limiter.AllowRequest(userID) {
		return true
	}
	c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "too many requests, slow down"})
	return false
}

func (h *PropertyHandler) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, listings.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid listing id"})
	case errors.Is(err, listings.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "listing not found"})
	case errors.Is(err, listings.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "you do not own this listing"})
	default:
		h.logger.WithError(err).Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": fallback})
	}
}
