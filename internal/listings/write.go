package listings

import (
	"context"
	"errors"
	"fmt"
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

// FreePostLimitError is returned when a free posting would exceed the
// user's quota for the rolling window.
type FreePostLimitError struct {
	Limit      int
	PeriodDays int
}

func (e *FreePostLimitError) Error() string {
	return fmt.Sprintf("free listing limit of %d per %d days reached", e.Limit, e.PeriodDays)
}

// CreateInput is a new listing submission.
type CreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int    `json:"price"`
	PriceType   string `json:"priceType"`

	PropertyType    string `json:"propertyType"`
	Category        string `json:"category"`
	SubCategory     string `json:"subCategory"`
	MiniSubcategory string `json:"miniSubcategory"`

	Location       models.Location       `json:"location"`
	Specifications models.Specifications `json:"specifications"`
	Images         []string              `json:"images"`
	Amenities      []string              `json:"amenities"`

	ContactInfo      models.ContactInfo `json:"contactInfo"`
	ShareContactInfo bool               `json:"shareContactInfo"`

	Premium   bool   `json:"premium"`
	PackageID string `json:"packageId"`
}

// UpdateInput carries an owner edit. Nil pointers leave the stored
// value untouched; taxonomy fields re-run canonicalization when any of
// them is set.
type UpdateInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Price       *int    `json:"price"`
	PriceType   *string `json:"priceType"`

	PropertyType    *string `json:"propertyType"`
	SubCategory     *string `json:"subCategory"`
	MiniSubcategory *string `json:"miniSubcategory"`

	Location       *models.Location       `json:"location"`
	Specifications *models.Specifications `json:"specifications"`
	Images         []string               `json:"images"`
	Amenities      []string               `json:"amenities"`

	ContactInfo      *models.ContactInfo `json:"contactInfo"`
	ShareContactInfo *bool               `json:"shareContactInfo"`
	Status           *string             `json:"status"`
}

// freePostWindowFilter matches a user's free postings inside the
// rolling window. Paid listings never count against the quota; rows
// predating the isPaid field count as free.
func freePostWindowFilter(ownerID string, since time.Time) bson.M {
	return bson.M{
		"ownerId":   ownerID,
		"createdAt": bson.M{"$gte": since},
		"$or": []bson.M{
			{"isPaid": false},
			{"isPaid": bson.M{"$exists": false}},
		},
	}
}

// freePostQuota resolves the effective limit and window with per-user
// override first, then the site-wide admin setting, then configuration.
func freePostQuota(user *models.User, settings *models.AdminSettings, cfg config.ListingsConfig) (limit, periodDays int) {
	limit = cfg.FreePostLimit
	periodDays = cfg.FreePostPeriodDays

	if settings != nil {
		if settings.DefaultLimit > 0 {
			limit = settings.DefaultLimit
		}
		if settings.DefaultLimitType > 0 {
			periodDays = settings.DefaultLimitType
		}
	}
	if user != nil && user.FreeListingLimit != nil {
		if user.FreeListingLimit.Limit > 0 {
			limit = user.FreeListingLimit.Limit
		}
		if user.FreeListingLimit.LimitType > 0 {
			periodDays = user.FreeListingLimit.LimitType
		}
	}
	return limit, periodDays
}

// canonicalizeTaxonomy normalizes the taxonomy fields in place and
// resolves the mini-subcategory id when possible. Resolution misses are
// tolerated; the denormalized slug keeps the listing filterable, and a
// previously resolved id is only replaced by a successful resolution,
// never wiped by a miss.
func (s *Service) canonicalizeTaxonomy(ctx context.Context, p *models.Property, categorySlug, miniSlug string) error {
	p.PropertyType = taxonomy.CanonicalType(p.PropertyType)
	p.SubCategory = taxonomy.NormalizeSlug(p.SubCategory)
	if p.PriceType == "" {
		p.PriceType = models.PriceSale
	}

	miniSlug = taxonomy.NormalizeSlug(miniSlug)
	if miniSlug == "" {
		if p.SubCategory == "" {
			return nil
		}
		// Sellers often put the leaf slug in the subCategory field.
		id, err := s.resolver.ResolveLoose(ctx, p.SubCategory, categorySlug, p.PropertyType)
		if err != nil {
			return err
		}
		if id != "" {
			p.MiniSubcategoryID = id
		}
		return nil
	}

	id, err := s.resolver.Resolve(ctx, taxonomy.ResolveInput{
		MiniSlug:     miniSlug,
		SubSlug:      p.SubCategory,
		CategorySlug: categorySlug,
		PropertyType: p.PropertyType,
		PriceType:    string(p.PriceType),
	})
	if err != nil {
		return err
	}
	if id == "" {
		id, err = s.resolver.ResolveLoose(ctx, miniSlug, categorySlug, p.PropertyType)
		if err != nil {
			return err
		}
	}
	if id != "" {
		p.MiniSubcategoryID = id
	}
	return nil
}

// Create runs the posting pipeline: canonicalize, enforce the free
// quota for unpaid submissions, insert in the moderation state, then
// notify in the background.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*models.Property, error) {
	now := time.Now().UTC()

	property := &models.Property{
		Title:            in.Title,
		Description:      in.Description,
		Price:            in.Price,
		PriceType:        models.PriceType(taxonomy.NormalizePriceType(in.PriceType)),
		PropertyType:     in.PropertyType,
		SubCategory:      in.SubCategory,
		Location:         in.Location,
		Specifications:   in.Specifications,
		Images:           in.Images,
		Amenities:        in.Amenities,
		OwnerID:          ownerID,
		ContactInfo:      in.ContactInfo,
		ShareContactInfo: in.ShareContactInfo,
		ContactVisible:   in.ShareContactInfo,
		Premium:          in.Premium,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.canonicalizeTaxonomy(ctx, property, in.Category, in.MiniSubcategory); err != nil {
		return nil, err
	}

	if in.PackageID != "" {
		// Paid submissions wait for payment verification on top of
		// moderation and stay hidden until then.
		property.PackageID = in.PackageID
		property.IsPaid = true
		property.PaymentStatus = "pending"
		property.Premium = true
		property.Status = models.StatusInactive
		property.ApprovalStatus = models.ApprovalPendingPackage
	} else {
		if err := s.enforceFreeQuota(ctx, ownerID, now); err != nil {
			return nil, err
		}
		property.Status = models.StatusActive
		property.ApprovalStatus = models.ApprovalPending
	}

	res, err := s.properties().InsertOne(ctx, property)
	if err != nil {
		return nil, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		property.ID = oid
	}

	s.logger.WithFields(logrus.Fields{
		"id":           property.ID.Hex(),
		"ownerId":      ownerID,
		"propertyType": property.PropertyType,
		"paid":         property.IsPaid,
	}).Info("listing submitted")

	if s.notifier != nil {
		go s.notifier.ListingSubmitted(context.WithoutCancel(ctx), property)
	}
	return property, nil
}

func (s *Service) enforceFreeQuota(ctx context.Context, ownerID string, now time.Time) error {
	user, err := s.findUser(ctx, ownerID)
	if err != nil {
		return err
	}
	settings, err := s.findAdminSettings(ctx)
	if err != nil {
		return err
	}

	limit, periodDays := freePostQuota(user, settings, s.cfg)
	if limit <= 0 {
		return nil
	}

	since := now.AddDate(0, 0, -periodDays)
	count, err := s.properties().CountDocuments(ctx, freePostWindowFilter(ownerID, since))
	if err != nil {
		return err
	}
	if count >= int64(limit) {
		return &FreePostLimitError{Limit: limit, PeriodDays: periodDays}
	}
	return nil
}

func (s *Service) findUser(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// Owner ids from external auth may not be object ids; no
		// per-user override exists then.
		return nil, nil
	}
	var user models.User
	err = s.db.Collection(database.ColUsers).FindOne(ctx, bson.M{"_id": oid}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) findAdminSettings(ctx context.Context) (*models.AdminSettings, error) {
	var settings models.AdminSettings
	err := s.db.Collection(database.ColAdminSettings).FindOne(ctx, bson.M{"_id": "freeListingLimits"}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// applyUpdate merges an edit into the stored listing and reports
// whether any taxonomy field changed.
func applyUpdate(p *models.Property, in UpdateInput) (taxonomyChanged bool) {
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.PriceType != nil {
		p.PriceType = models.PriceType(taxonomy.NormalizePriceType(*in.PriceType))
		taxonomyChanged = true
	}
	if in.PropertyType != nil {
		p.PropertyType = *in.PropertyType
		taxonomyChanged = true
	}
	if in.SubCategory != nil {
		p.SubCategory = *in.SubCategory
		taxonomyChanged = true
	}
	if in.Location != nil {
		p.Location = *in.Location
	}
	if in.Specifications != nil {
		p.Specifications = *in.Specifications
	}
	if in.Images != nil {
		p.Images = in.Images
	}
	if in.Amenities != nil {
		p.Amenities = in.Amenities
	}
	if in.ContactInfo != nil {
		p.ContactInfo = *in.ContactInfo
	}
	if in.ShareContactInfo != nil {
		p.ShareContactInfo = *in.ShareContactInfo
		p.ContactVisible = *in.ShareContactInfo
	}
	if in.Status != nil && (*in.Status == string(models.StatusActive) || *in.Status == string(models.StatusInactive)) {
		p.Status = models.PropertyStatus(*in.Status)
	}
	return taxonomyChanged
}

// demoteOnEdit sends a publicly visible listing back through moderation
// after an owner edit: approved listings and free listings posted in the
// active-while-pending state both go pending/inactive. Returns true when
// the listing was demoted.
func demoteOnEdit(p *models.Property) bool {
	if p.ApprovalStatus != models.ApprovalApproved && p.Status != models.StatusActive {
		return false
	}
	p.ApprovalStatus = models.ApprovalPending
	p.Status = models.StatusInactive
	p.IsApproved = false
	p.ApprovedAt = nil
	p.ApprovedBy = ""
	return true
}

// Update applies an owner edit. Any edit to an approved listing demotes
// it back to pending moderation and pulls it from the public index.
func (s *Service) Update(ctx context.Context, id, ownerID string, in UpdateInput) (*models.Property, error) {
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
	if property.OwnerID != ownerID {
		return nil, ErrNotOwner
	}

	taxonomyChanged := applyUpdate(&property, in)
	if taxonomyChanged {
		miniSlug := ""
		if in.MiniSubcategory != nil {
			miniSlug = *in.MiniSubcategory
		}
		if err := s.canonicalizeTaxonomy(ctx, &property, "", miniSlug); err != nil {
			return nil, err
		}
	} else if in.MiniSubcategory != nil {
		if err := s.canonicalizeTaxonomy(ctx, &property, "", *in.MiniSubcategory); err != nil {
			return nil, err
		}
	}

	demoted := demoteOnEdit(&property)
	property.UpdatedAt = time.Now().UTC()

	if _, err := s.properties().ReplaceOne(ctx, bson.M{"_id": oid}, &property); err != nil {
		return nil, err
	}

	if demoted {
		s.logger.WithFields(logrus.Fields{
			"id":      id,
			"ownerId": ownerID,
		}).Info("approved listing edited, demoted to pending")
		if s.indexer != nil {
			if err := s.indexer.DeleteListing(ctx, id); err != nil {
				s.logger.WithError(err).WithField("id", id).Warn("failed to remove demoted listing from index")
			}
		}
	}
	return &property, nil
}

// Delete removes an owner's listing and de-indexes it.
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}

	res, err := s.properties().DeleteOne(ctx, bson.M{"_id": oid, "ownerId": ownerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		var exists models.Property
		err = s.properties().FindOne(ctx, bson.M{"_id": oid}).Decode(&exists)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrNotOwner
	}

	if s.indexer != nil {
		if err := s.indexer.DeleteListing(ctx, id); err != nil {
			s.logger.WithError(err).WithField("id", id).Warn("failed to remove deleted listing from index")
		}
	}
	return nil
}

// ErrInvalidApprovalAction marks an approval action outside the allowed
// set.
var ErrInvalidApprovalAction = errors.New("approval action must be approved or rejected")

// SetApproval is the moderation verdict. Approval publishes and indexes
// the listing; rejection hides and de-indexes it. Notifications go out
// in the background either way.
func (s *Service) SetApproval(ctx context.Context, id, adminID, action, reason, comments string) (*models.Property, error) {
	if action != string(models.ApprovalApproved) && action != string(models.ApprovalRejected) {
		return nil, ErrInvalidApprovalAction
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	now := time.Now().UTC()
	set := bson.M{
		"approvalStatus": action,
		"adminComments":  comments,
		"updatedAt":      now,
	}
	unset := bson.M{}
	if action == string(models.ApprovalApproved) {
		set["isApproved"] = true
		set["approvedAt"] = now
		set["approvedBy"] = adminID
		set["status"] = string(models.StatusActive)
		unset["rejectionReason"] = ""
	} else {
		set["isApproved"] = false
		set["rejectionReason"] = reason
		set["status"] = string(models.StatusInactive)
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	res := s.properties().FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts)
	var property models.Property
	err = res.Decode(&property)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"id":     id,
		"action": action,
		"admin":  adminID,
	}).Info("moderation verdict applied")

	if s.indexer != nil {
		if action == string(models.ApprovalApproved) {
			if err := s.indexer.IndexListing(ctx, &property); err != nil {
				s.logger.WithError(err).WithField("id", id).Warn("failed to index approved listing")
			}
		} else {
			if err := s.indexer.DeleteListing(ctx, id); err != nil {
				s.logger.WithError(err).WithField("id", id).Warn("failed to de-index rejected listing")
			}
		}
	}

	if s.notifier != nil {
		bg := context.WithoutCancel(ctx)
		if action == string(models.ApprovalApproved) {
			go s.notifier.ListingApproved(bg, &property)
		} else {
			go s.notifier.ListingRejected(bg, &property, reason)
		}
	}
	return &property, nil
}
