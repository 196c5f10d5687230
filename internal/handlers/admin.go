package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"gharbazaar/internal/cleanup"
	"gharbazaar/internal/database"
	"gharbazaar/internal/listings"
	"gharbazaar/internal/middleware"
	"gharbazaar/internal/models"
	"gharbazaar/internal/ratelimit"
	"gharbazaar/internal/scheduler"
	"gharbazaar/internal/taxonomy"
)

// AdminHandler handles moderation, taxonomy management and maintenance
// endpoints.
type AdminHandler struct {
	db             *mongo.Database
	service        *listings.Service
	scheduler      *scheduler.Scheduler
	cleanupService *cleanup.Service
	limiter        *ratelimit.RateLimiter
	logger         *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *mongo.Database, service *listings.Service, sched *scheduler.Scheduler, cleanupService *cleanup.Service, limiter *ratelimit.RateLimiter, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		db:             db,
		service:        service,
		scheduler:      sched,
		cleanupService: cleanupService,
		limiter:        limiter,
		logger:         logger,
	}
}

// Pending handles GET /api/admin/properties/pending — the moderation
// queue, oldest first.
func (h *AdminHandler) Pending(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.service.Pending(c.Request.Context(), page, limit)
	if err != nil {
		h.logger.WithError(err).Error("pending queue query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load pending listings"})
		return
	}

	c.JSON(http.StatusOK, listPayload(result))
}

// approvalRequest is the moderation verdict body.
type approvalRequest struct {
	ApprovalStatus  string `json:"approvalStatus"`
	RejectionReason string `json:"rejectionReason"`
	AdminComments   string `json:"adminComments"`
}

// SetApproval handles PUT /api/admin/properties/:id/approval
func (h *AdminHandler) SetApproval(c *gin.Context) {
	var req approvalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	property, err := h.service.SetApproval(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.ApprovalStatus, req.RejectionReason, req.AdminComments)
	if err != nil {
		switch {
		case errors.Is(err, listings.ErrInvalidApprovalAction):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		case errors.Is(err, listings.ErrInvalidID):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid listing id"})
		case errors.Is(err, listings.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "listing not found"})
		default:
			h.logger.WithError(err).Error("approval update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update approval"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "listing": property})
}

// --- taxonomy management ---

type taxonomyInput struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IconURL     string `json:"iconUrl"`
	SortOrder   int    `json:"sortOrder"`
	IsActive    *bool  `json:"isActive"`
	ParentID    string `json:"parentId"`
}

func (in *taxonomyInput) active() bool {
	if in.IsActive == nil {
		return true
	}
	return *in.IsActive
}

// ListCategories handles GET /api/admin/taxonomy/categories
func (h *AdminHandler) ListCategories(c *gin.Context) {
	cursor, err := h.db.Collection(database.ColCategories).Find(c.Request.Context(), bson.M{})
	if err != nil {
		h.logger.WithError(err).Error("category list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load categories"})
		return
	}
	defer cursor.Close(c.Request.Context())

	var categories []models.Category
	if err := cursor.All(c.Request.Context(), &categories); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load categories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "categories": categories})
}

// CreateCategory handles POST /api/admin/taxonomy/categories
func (h *AdminHandler) CreateCategory(c *gin.Context) {
	var in taxonomyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	slug := taxonomy.NormalizeSlug(in.Slug)
	if slug == "" {
		slug = taxonomy.NormalizeSlug(in.Name)
	}
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "slug or name is required"})
		return
	}

	category := models.Category{
		Slug:      slug,
		Name:      in.Name,
		SortOrder: in.SortOrder,
		IsActive:  in.active(),
	}
	res, err := h.db.Collection(database.ColCategories).InsertOne(c.Request.Context(), category)
	if err != nil {
		h.logger.WithError(err).Error("category create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create category"})
		return
	}
	category.ID = res.InsertedID.(primitive.ObjectID)

	c.JSON(http.StatusCreated, gin.H{"success": true, "category": category})
}

// CreateSubcategory handles POST /api/admin/taxonomy/subcategories
func (h *AdminHandler) CreateSubcategory(c *gin.Context) {
	var in taxonomyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if in.ParentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "parentId is required"})
		return
	}

	slug := taxonomy.NormalizeSlug(in.Slug)
	if slug == "" {
		slug = taxonomy.NormalizeSlug(in.Name)
	}
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "slug or name is required"})
		return
	}

	sub := models.Subcategory{
		CategoryID:  in.ParentID,
		Slug:        slug,
		Name:        in.Name,
		Description: in.Description,
		IconURL:     in.IconURL,
		SortOrder:   in.SortOrder,
		IsActive:    in.active(),
	}
	res, err := h.db.Collection(database.ColSubcategories).InsertOne(c.Request.Context(), sub)
	if err != nil {
		h.logger.WithError(err).Error("subcategory create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create subcategory"})
		return
	}
	sub.ID = res.InsertedID.(primitive.ObjectID)

	c.JSON(http.StatusCreated, gin.H{"success": true, "subcategory": sub})
}

// CreateMiniSubcategory handles POST /api/admin/taxonomy/mini-subcategories
func (h *AdminHandler) CreateMiniSubcategory(c *gin.Context) {
	var in taxonomyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if in.ParentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "parentId is required"})
		return
	}

	slug := taxonomy.NormalizeSlug(in.Slug)
	if slug == "" {
		slug = taxonomy.NormalizeSlug(in.Name)
	}
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "slug or name is required"})
		return
	}

	mini := models.MiniSubcategory{
		SubcategoryID: in.ParentID,
		Slug:          slug,
		Name:          in.Name,
		Description:   in.Description,
		IconURL:       in.IconURL,
		SortOrder:     in.SortOrder,
		IsActive:      in.active(),
	}
	res, err := h.db.Collection(database.ColMiniSubcategories).InsertOne(c.Request.Context(), mini)
	if err != nil {
		h.logger.WithError(err).Error("mini-subcategory create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create mini-subcategory"})
		return
	}
	mini.ID = res.InsertedID.(primitive.ObjectID)

	c.JSON(http.StatusCreated, gin.H{"success": true, "miniSubcategory": mini})
}

// DeleteCategory handles DELETE /api/admin/taxonomy/categories/:id.
// Children are removed first so a partial failure never leaves orphaned
// leaves pointing at a dead parent.
func (h *AdminHandler) DeleteCategory(c *gin.Context) {
	id := c.Param("id")
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid category id"})
		return
	}
	ctx := c.Request.Context()

	subIDs, err := h.subcategoryIDs(ctx, id)
	if err != nil {
		h.logger.WithError(err).Error("cascade lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete category"})
		return
	}

	if len(subIDs) > 0 {
		if _, err := h.db.Collection(database.ColMiniSubcategories).
			DeleteMany(ctx, bson.M{"subcategoryId": bson.M{"$in": subIDs}}); err != nil {
			h.logger.WithError(err).Error("cascade mini delete failed")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete category"})
			return
		}
	}
	if _, err := h.db.Collection(database.ColSubcategories).DeleteMany(ctx, bson.M{"categoryId": id}); err != nil {
		h.logger.WithError(err).Error("cascade subcategory delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete category"})
		return
	}
	if _, err := h.db.Collection(database.ColCategories).DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		h.logger.WithError(err).Error("category delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete category"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteSubcategory handles DELETE /api/admin/taxonomy/subcategories/:id
func (h *AdminHandler) DeleteSubcategory(c *gin.Context) {
	id := c.Param("id")
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid subcategory id"})
		return
	}
	ctx := c.Request.Context()

	if _, err := h.db.Collection(database.ColMiniSubcategories).DeleteMany(ctx, bson.M{"subcategoryId": id}); err != nil {
		h.logger.WithError(err).Error("cascade mini delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete subcategory"})
		return
	}
	if _, err := h.db.Collection(database.ColSubcategories).DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		h.logger.WithError(err).Error("subcategory delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete subcategory"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteMiniSubcategory handles DELETE /api/admin/taxonomy/mini-subcategories/:id
func (h *AdminHandler) DeleteMiniSubcategory(c *gin.Context) {
	oid, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid mini-subcategory id"})
		return
	}

	if _, err := h.db.Collection(database.ColMiniSubcategories).DeleteOne(c.Request.Context(), bson.M{"_id": oid}); err != nil {
		h.logger.WithError(err).Error("mini-subcategory delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete mini-subcategory"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandler) subcategoryIDs(ctx context.Context, categoryID string) ([]string, error) {
	cursor, err := h.db.Collection(database.ColSubcategories).Find(ctx, bson.M{"categoryId": categoryID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var subs []models.Subcategory
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.ID.Hex())
	}
	return ids, nil
}

// --- maintenance ---

// GetStats returns system statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	properties := h.db.Collection(database.ColProperties)
	stats := make(map[string]interface{})

	activeCount, _ := properties.CountDocuments(ctx, bson.M{"status": string(models.StatusActive)})
	pendingCount, _ := properties.CountDocuments(ctx, bson.M{"approvalStatus": bson.M{"$in": []string{
		string(models.ApprovalPending), string(models.ApprovalPendingPackage),
	}}})
	rejectedCount, _ := properties.CountDocuments(ctx, bson.M{"approvalStatus": string(models.ApprovalRejected)})
	premiumCount, _ := properties.CountDocuments(ctx, bson.M{"premium": true})
	total, _ := properties.CountDocuments(ctx, bson.M{})

	stats["listings"] = map[string]interface{}{
		"active":   activeCount,
		"pending":  pendingCount,
		"rejected": rejectedCount,
		"premium":  premiumCount,
		"total":    total,
	}

	if deleteStats, err := h.cleanupService.GetDeleteStats(ctx); err != nil {
		h.logger.WithError(err).Warn("failed to get delete stats")
	} else {
		stats["deletions"] = deleteStats
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// TriggerReindex handles POST /api/admin/reindex
func (h *AdminHandler) TriggerReindex(c *gin.Context) {
	go func() {
		count, err := h.service.ReindexAll(context.Background())
		if err != nil {
			h.logger.WithError(err).Error("manual reindex failed")
			return
		}
		h.logger.WithField("indexed", count).Info("manual reindex completed")
	}()

	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "reindex started"})
}

// TriggerMaintenance handles POST /api/admin/maintenance — runs the
// scheduled jobs immediately.
func (h *AdminHandler) TriggerMaintenance(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "scheduler not available"})
		return
	}

	go func() {
		if err := h.scheduler.RunNow(); err != nil {
			h.logger.WithError(err).Error("manual maintenance run failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "maintenance jobs started"})
}

// RunCleanup handles POST /api/admin/cleanup — physical deletion of old
// rejected listings.
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	var req struct {
		RetentionDays    int  `json:"retention_days"`
		MaxDeletionCount int  `json:"max_deletion_count"`
		DryRun           bool `json:"dry_run"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	config := cleanup.DefaultConfig()
	if req.RetentionDays > 0 {
		config.RetentionDays = req.RetentionDays
	}
	if req.MaxDeletionCount > 0 {
		config.MaxDeletionCount = req.MaxDeletionCount
	}
	config.DryRun = req.DryRun

	result, err := h.cleanupService.PhysicallyDelete(c.Request.Context(), config)
	if err != nil {
		h.logger.WithError(err).Error("cleanup run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// GetDeleteLogs handles GET /api/admin/cleanup/logs
func (h *AdminHandler) GetDeleteLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.cleanupService.GetRecentDeleteLogs(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("delete log query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load delete logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "logs": entries, "count": len(entries)})
}

// RateLimitStats handles GET /api/admin/ratelimit/:key
func (h *AdminHandler) RateLimitStats(c *gin.Context) {
	if h.limiter == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "stats": ratelimit.Stats{Enabled: false}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": h.limiter.GetStats(c.Param("key"))})
}
