package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gharbazaar/internal/database"
	"gharbazaar/internal/models"
)

// Service handles physical deletion of old rejected listings. Rejected
// rows are kept for a retention window so owners can still see why a
// listing was refused, then purged with an audit log entry.
type Service struct {
	db      *mongo.Database
	indexer Indexer
	logger  *logrus.Logger
}

// Indexer is the subset of the search client cleanup needs.
type Indexer interface {
	DeleteListing(ctx context.Context, id string) error
}

// NewService creates a new cleanup service. indexer may be nil.
func NewService(db *mongo.Database, indexer Indexer, logger *logrus.Logger) *Service {
	return &Service{db: db, indexer: indexer, logger: logger}
}

// Config holds configuration for cleanup operations
type Config struct {
	RetentionDays    int  // Days to keep rejected listings before physical deletion
	MaxDeletionCount int  // Maximum number of listings to delete in one run (safety limit)
	DryRun           bool // If true, only log what would be deleted without actually deleting
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		RetentionDays:    90,
		MaxDeletionCount: 10000,
		DryRun:           false,
	}
}

// Result holds the result of a cleanup operation
type Result struct {
	TargetCount     int       `json:"target_count"`
	DeletedCount    int       `json:"deleted_count"`
	ErrorCount      int       `json:"error_count"`
	DryRun          bool      `json:"dry_run"`
	ExecutedAt      time.Time `json:"executed_at"`
	DeletedListings []string  `json:"deleted_listings"`
	Errors          []string  `json:"errors,omitempty"`
}

// FindExpired finds rejected listings whose last update predates the
// retention window.
func (s *Service) FindExpired(ctx context.Context, retentionDays int) ([]models.Property, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	filter := bson.M{
		"approvalStatus": string(models.ApprovalRejected),
		"updatedAt":      bson.M{"$lt": cutoff},
	}
	cursor, err := s.db.Collection(database.ColProperties).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired listings: %w", err)
	}
	defer cursor.Close(ctx)

	var listings []models.Property
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"count":  len(listings),
		"cutoff": cutoff.Format("2006-01-02"),
	}).Info("found expired rejected listings")
	return listings, nil
}

// PhysicallyDelete purges expired rejected listings, writing an audit
// entry per deletion.
func (s *Service) PhysicallyDelete(ctx context.Context, config Config) (*Result, error) {
	result := &Result{
		DryRun:     config.DryRun,
		ExecutedAt: time.Now(),
	}

	expired, err := s.FindExpired(ctx, config.RetentionDays)
	if err != nil {
		return nil, err
	}
	result.TargetCount = len(expired)

	if result.TargetCount == 0 {
		s.logger.Info("no expired listings found for deletion")
		return result, nil
	}

	// Safety check: abort if too many listings would be deleted
	if result.TargetCount > config.MaxDeletionCount {
		return nil, fmt.Errorf("safety check failed: %d listings exceed max deletion limit of %d",
			result.TargetCount, config.MaxDeletionCount)
	}

	for _, listing := range expired {
		id := listing.ID.Hex()

		if config.DryRun {
			s.logger.WithFields(logrus.Fields{
				"id":    id,
				"title": listing.Title,
			}).Info("[dry-run] would delete listing")
			result.DeletedListings = append(result.DeletedListings, id)
			result.DeletedCount++
			continue
		}

		// Audit entry first; a logged row without the listing beats a
		// silent disappearance.
		deleteLog := models.DeleteLog{
			PropertyID: id,
			Title:      listing.Title,
			OwnerID:    listing.OwnerID,
			Reason:     "rejected_retention_expired",
			DeletedAt:  time.Now().UTC(),
			DryRun:     false,
		}
		if _, err := s.db.Collection(database.ColDeleteLogs).InsertOne(ctx, deleteLog); err != nil {
			errMsg := fmt.Sprintf("failed to create delete log for listing %s: %v", id, err)
			s.logger.Error(errMsg)
			result.Errors = append(result.Errors, errMsg)
			result.ErrorCount++
			continue
		}

		if _, err := s.db.Collection(database.ColProperties).DeleteOne(ctx, bson.M{"_id": listing.ID}); err != nil {
			errMsg := fmt.Sprintf("failed to delete listing %s: %v", id, err)
			s.logger.Error(errMsg)
			result.Errors = append(result.Errors, errMsg)
			result.ErrorCount++
			continue
		}

		if s.indexer != nil {
			if err := s.indexer.DeleteListing(ctx, id); err != nil {
				s.logger.WithError(err).WithField("id", id).Warn("failed to de-index purged listing")
			}
		}

		result.DeletedListings = append(result.DeletedListings, id)
		result.DeletedCount++
	}

	s.logger.WithFields(logrus.Fields{
		"deleted": result.DeletedCount,
		"target":  result.TargetCount,
		"errors":  result.ErrorCount,
		"dryRun":  config.DryRun,
	}).Info("cleanup completed")
	return result, nil
}

// GetDeleteStats returns statistics about purged listings
func (s *Service) GetDeleteStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	logs := s.db.Collection(database.ColDeleteLogs)

	totalDeleted, err := logs.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	stats["total_deleted"] = totalDeleted

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	recentDeleted, err := logs.CountDocuments(ctx, bson.M{"deletedAt": bson.M{"$gte": thirtyDaysAgo}})
	if err != nil {
		return nil, err
	}
	stats["deleted_last_30_days"] = recentDeleted

	currentRejected, err := s.db.Collection(database.ColProperties).
		CountDocuments(ctx, bson.M{"approvalStatus": string(models.ApprovalRejected)})
	if err != nil {
		return nil, err
	}
	stats["currently_rejected"] = currentRejected

	return stats, nil
}

// GetRecentDeleteLogs returns recent delete log entries
func (s *Service) GetRecentDeleteLogs(ctx context.Context, limit int) ([]models.DeleteLog, error) {
	if limit < 1 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.D{{Key: "deletedAt", Value: -1}}).SetLimit(int64(limit))
	cursor, err := s.db.Collection(database.ColDeleteLogs).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.DeleteLog
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
