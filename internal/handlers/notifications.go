package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gharbazaar/internal/database"
	"gharbazaar/internal/middleware"
	"gharbazaar/internal/models"
)

// NotificationHandler handles in-app notifications and push token
// registration for the authenticated user.
type NotificationHandler struct {
	db     *mongo.Database
	logger *logrus.Logger
}

func NewNotificationHandler(db *mongo.Database, logger *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{db: db, logger: logger}
}

func (h *NotificationHandler) userObjectID(c *gin.Context) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid user id"})
		return primitive.NilObjectID, false
	}
	return oid, true
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := h.userObjectID(c)
	if !ok {
		return
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(100)
	cursor, err := h.db.Collection(database.ColUserNotifications).
		Find(c.Request.Context(), bson.M{"userId": userID}, opts)
	if err != nil {
		h.logger.WithError(err).Error("notification list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load notifications"})
		return
	}
	defer cursor.Close(c.Request.Context())

	notifications := []models.UserNotification{}
	if err := cursor.All(c.Request.Context(), &notifications); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load notifications"})
		return
	}

	unread := 0
	for _, n := range notifications {
		if !n.IsRead {
			unread++
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "notifications": notifications, "unread": unread})
}

// MarkRead handles PUT /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := h.userObjectID(c)
	if !ok {
		return
	}
	notifID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid notification id"})
		return
	}

	now := time.Now().UTC()
	res, err := h.db.Collection(database.ColUserNotifications).UpdateOne(c.Request.Context(),
		bson.M{"_id": notifID, "userId": userID},
		bson.M{"$set": bson.M{"isRead": true, "readAt": now}})
	if err != nil {
		h.logger.WithError(err).Error("notification mark-read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update notification"})
		return
	}
	if res.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Delete handles DELETE /api/notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, ok := h.userObjectID(c)
	if !ok {
		return
	}
	notifID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid notification id"})
		return
	}

	res, err := h.db.Collection(database.ColUserNotifications).
		DeleteOne(c.Request.Context(), bson.M{"_id": notifID, "userId": userID})
	if err != nil {
		h.logger.WithError(err).Error("notification delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete notification"})
		return
	}
	if res.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SaveToken handles POST /api/notifications/tokens — registers or
// refreshes a device push token.
func (h *NotificationHandler) SaveToken(c *gin.Context) {
	userID, ok := h.userObjectID(c)
	if !ok {
		return
	}

	var req struct {
		Token      string            `json:"token"`
		DeviceInfo map[string]string `json:"deviceInfo"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "token is required"})
		return
	}

	now := time.Now().UTC()
	_, err := h.db.Collection(database.ColFCMTokens).UpdateOne(c.Request.Context(),
		bson.M{"userId": userID, "token": req.Token},
		bson.M{
			"$set":         bson.M{"deviceInfo": req.DeviceInfo, "updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		h.logger.WithError(err).Error("token save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to save token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RemoveToken handles DELETE /api/notifications/tokens
func (h *NotificationHandler) RemoveToken(c *gin.Context) {
	userID, ok := h.userObjectID(c)
	if !ok {
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "token is required"})
		return
	}

	_, err := h.db.Collection(database.ColFCMTokens).
		DeleteOne(c.Request.Context(), bson.M{"userId": userID, "token": req.Token})
	if err != nil {
		h.logger.WithError(err).Error("token remove failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to remove token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
