package listings

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gharbazaar/internal/config"
	"gharbazaar/internal/database"
	"gharbazaar/internal/models"
	"gharbazaar/internal/taxonomy"
)

var (
	// ErrInvalidID marks a malformed listing id.
	ErrInvalidID = errors.New("invalid listing id")
	// ErrNotFound marks a listing that does not exist.
	ErrNotFound = errors.New("listing not found")
	// ErrNotOwner marks a write attempt by someone other than the owner.
	ErrNotOwner = errors.New("not the listing owner")
)

// Indexer mirrors listings into the search engine. Implementations must
// tolerate being called with already-indexed or already-removed ids.
type Indexer interface {
	IndexListing(ctx context.Context, p *models.Property) error
	DeleteListing(ctx context.Context, id string) error
}

// Notifier dispatches user-facing notifications. Calls are fire and
// forget; delivery failures never fail the triggering request.
type Notifier interface {
	ListingSubmitted(ctx context.Context, p *models.Property)
	ListingApproved(ctx context.Context, p *models.Property)
	ListingRejected(ctx context.Context, p *models.Property, reason string)
}

// Pagination is the page envelope returned with every list response.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// newPagination computes the envelope; Pages is zero when nothing
// matched.
func newPagination(page, limit int, total int64) Pagination {
	pages := 0
	if total > 0 && limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// Result is a page of listings.
type Result struct {
	Listings   []models.Property `json:"listings"`
	Pagination Pagination        `json:"pagination"`
}

// Service is the listing read/write core: it executes plans built by
// the FilterBuilder and owns the posting pipeline in write.go.
type Service struct {
	db       *mongo.Database
	builder  *FilterBuilder
	resolver *taxonomy.Resolver
	indexer  Indexer
	notifier Notifier
	logger   *logrus.Logger
	cfg      config.ListingsConfig
}

// NewService wires the listing core. indexer and notifier may be nil
// when search or notifications are disabled.
func NewService(db *mongo.Database, builder *FilterBuilder, resolver *taxonomy.Resolver, indexer Indexer, notifier Notifier, cfg config.ListingsConfig, logger *logrus.Logger) *Service {
	return &Service{
		db:       db,
		builder:  builder,
		resolver: resolver,
		indexer:  indexer,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *Service) properties() *mongo.Collection {
	return s.db.Collection(database.ColProperties)
}

// List executes a browse query.
func (s *Service) List(ctx context.Context, q Query) (*Result, error) {
	plan, err := s.builder.Build(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.runPlan(ctx, plan)
}

func (s *Service) runPlan(ctx context.Context, plan *Plan) (*Result, error) {
	total, err := s.properties().CountDocuments(ctx, plan.Filter)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(plan.Sort).
		SetSkip(plan.Skip).
		SetLimit(int64(plan.Limit))
	cursor, err := s.properties().Find(ctx, plan.Filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	listings := []models.Property{}
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, err
	}

	return &Result{
		Listings:   listings,
		Pagination: newPagination(plan.Page, plan.Limit, total),
	}, nil
}

// GetByID fetches a single listing and bumps its view counter. The
// counter update is best effort and never fails the read.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Property, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	var property models.Property
	err = s.properties().FindOne(ctx, bson.M{"_id": oid}).Decode(&property)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.properties().UpdateByID(ctx, oid, bson.M{"$inc": bson.M{"views": 1}}); err != nil {
		s.logger.WithError(err).WithField("id", id).Warn("failed to increment view counter")
	} else {
		property.Views++
	}

	return &property, nil
}

// Featured returns publicly visible featured listings, premium first.
func (s *Service) Featured(ctx context.Context, limit int) ([]models.Property, error) {
	if limit < 1 {
		limit = s.cfg.DefaultPageSize
	}
	if max := s.cfg.MaxPageSize; max > 0 && limit > max {
		limit = max
	}

	filter := bson.M{
		"status":   "active",
		"featured": true,
		"$or":      approvalVisible(),
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "premium", Value: -1}, {Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.properties().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	listings := []models.Property{}
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// ByOwner returns all of a user's own listings regardless of status or
// moderation state.
func (s *Service) ByOwner(ctx context.Context, ownerID string, page, limit int) (*Result, error) {
	page, limit = s.clampPage(page, limit)
	plan := &Plan{
		Filter: bson.M{"ownerId": ownerID},
		Sort:   bson.D{{Key: "createdAt", Value: -1}},
		Page:   page,
		Limit:  limit,
		Skip:   int64(page-1) * int64(limit),
	}
	return s.runPlan(ctx, plan)
}

// Pending returns listings awaiting moderation, oldest first so the
// queue is worked in submission order.
func (s *Service) Pending(ctx context.Context, page, limit int) (*Result, error) {
	page, limit = s.clampPage(page, limit)
	plan := &Plan{
		Filter: bson.M{"approvalStatus": bson.M{"$in": []string{
			string(models.ApprovalPending),
			string(models.ApprovalPendingPackage),
		}}},
		Sort:  bson.D{{Key: "createdAt", Value: 1}},
		Page:  page,
		Limit: limit,
		Skip:  int64(page-1) * int64(limit),
	}
	return s.runPlan(ctx, plan)
}

func (s *Service) clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.cfg.DefaultPageSize
		if limit < 1 {
			limit = 20
		}
	}
	if max := s.cfg.MaxPageSize; max > 0 && limit > max {
		limit = max
	}
	return page, limit
}

// ReindexAll pushes every publicly visible listing into the search
// index. Used by the nightly job and the admin reindex endpoint.
func (s *Service) ReindexAll(ctx context.Context) (int, error) {
	if s.indexer == nil {
		return 0, nil
	}

	filter := bson.M{"status": "active", "$or": approvalVisible()}
	cursor, err := s.properties().Find(ctx, filter)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	count := 0
	for cursor.Next(ctx) {
		var property models.Property
		if err := cursor.Decode(&property); err != nil {
			return count, err
		}
		if err := s.indexer.IndexListing(ctx, &property); err != nil {
			s.logger.WithError(err).WithField("id", property.ID.Hex()).Warn("reindex failed for listing")
			continue
		}
		count++
	}
	return count, cursor.Err()
}

// ExpirePackages demotes premium listings whose paid package has
// lapsed. Returns the number of demoted listings.
func (s *Service) ExpirePackages(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"premium":       true,
		"packageExpiry": bson.M{"$lt": now},
	}
	update := bson.M{
		"$set": bson.M{"premium": false, "updatedAt": now},
	}
	res, err := s.properties().UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	if res.ModifiedCount > 0 {
		s.logger.WithField("count", res.ModifiedCount).Info("expired premium packages")
	}
	return res.ModifiedCount, nil
}
