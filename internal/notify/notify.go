package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"gharbazaar/internal/config"
	"gharbazaar/internal/database"
	"gharbazaar/internal/models"
)

// PushMessage is the payload sent to the push gateway, one per token.
type PushMessage struct {
	To    string                 `json:"to"`
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data,omitempty"`
	Sound string                 `json:"sound,omitempty"`
}

// PushResponse is the gateway's per-message result.
type PushResponse struct {
	Data []struct {
		Status string `json:"status"`
		ID     string `json:"id"`
		Error  string `json:"message,omitempty"`
	} `json:"data"`
}

// Service writes in-app notification rows and optionally fans out push
// messages through an HTTP gateway. Every entry point swallows errors
// after logging them; notification failures must never surface to the
// request that triggered them.
type Service struct {
	db     *mongo.Database
	cfg    config.NotifyConfig
	client *http.Client
	logger *logrus.Logger
}

// NewService creates a notification service.
func NewService(db *mongo.Database, cfg config.NotifyConfig, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// ListingSubmitted notifies the owner that moderation has started.
func (s *Service) ListingSubmitted(ctx context.Context, p *models.Property) {
	s.notifyOwner(ctx, p, "Listing submitted",
		fmt.Sprintf("Your listing %q has been submitted and is awaiting review.", p.Title),
		map[string]interface{}{"type": "listing_submitted", "listingId": p.ID.Hex()})
}

// ListingApproved notifies the owner that the listing went live.
func (s *Service) ListingApproved(ctx context.Context, p *models.Property) {
	s.notifyOwner(ctx, p, "Listing approved",
		fmt.Sprintf("Your listing %q has been approved and is now live.", p.Title),
		map[string]interface{}{"type": "listing_approved", "listingId": p.ID.Hex()})
}

// ListingRejected notifies the owner with the rejection reason.
func (s *Service) ListingRejected(ctx context.Context, p *models.Property, reason string) {
	body := fmt.Sprintf("Your listing %q was not approved.", p.Title)
	if reason != "" {
		body = fmt.Sprintf("%s Reason: %s", body, reason)
	}
	s.notifyOwner(ctx, p, "Listing rejected", body,
		map[string]interface{}{"type": "listing_rejected", "listingId": p.ID.Hex()})
}

func (s *Service) notifyOwner(ctx context.Context, p *models.Property, title, body string, data map[string]interface{}) {
	ownerID, err := primitive.ObjectIDFromHex(p.OwnerID)
	if err != nil {
		s.logger.WithField("ownerId", p.OwnerID).Debug("owner id is not an object id, skipping notification")
		return
	}

	notification := models.UserNotification{
		UserID:    ownerID,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.db.Collection(database.ColUserNotifications).InsertOne(ctx, notification); err != nil {
		s.logger.WithError(err).WithField("ownerId", p.OwnerID).Warn("failed to store notification")
	}

	if !s.cfg.PushEnabled || s.cfg.PushURL == "" {
		return
	}
	for _, token := range s.ownerTokens(ctx, ownerID) {
		if err := s.sendPush(ctx, token, title, body, data); err != nil {
			s.logger.WithError(err).WithField("ownerId", p.OwnerID).Warn("push delivery failed")
		}
	}
}

func (s *Service) ownerTokens(ctx context.Context, ownerID primitive.ObjectID) []string {
	cursor, err := s.db.Collection(database.ColFCMTokens).Find(ctx, bson.M{"userId": ownerID})
	if err != nil {
		s.logger.WithError(err).Warn("failed to load push tokens")
		return nil
	}
	defer cursor.Close(ctx)

	var rows []models.FCMToken
	if err := cursor.All(ctx, &rows); err != nil {
		s.logger.WithError(err).Warn("failed to decode push tokens")
		return nil
	}

	tokens := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Token != "" {
			tokens = append(tokens, row.Token)
		}
	}
	return tokens
}

func (s *Service) sendPush(ctx context.Context, token, title, body string, data map[string]interface{}) error {
	message := PushMessage{
		To:    token,
		Title: title,
		Body:  body,
		Data:  data,
		Sound: "default",
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.PushURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push gateway returned status %d: %s", resp.StatusCode, string(responseBody))
	}

	var pushResponse PushResponse
	if err := json.Unmarshal(responseBody, &pushResponse); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	for _, result := range pushResponse.Data {
		if result.Status == "error" {
			return fmt.Errorf("push delivery rejected: %s", result.Error)
		}
	}
	return nil
}
