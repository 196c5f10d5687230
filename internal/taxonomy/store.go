package taxonomy

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gharbazaar/internal/database"
	"gharbazaar/internal/models"
)

// Store provides read-only access to the three taxonomy collections.
// Lookups always hit the database; taxonomy rows are small and edits by
// the admin must be visible immediately.
//
// A missing row is reported as (nil, nil), not an error: the resolver
// walks candidate chains and treats absence as "try the next one".
type Store interface {
	CategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	SubcategoryBySlug(ctx context.Context, categoryID, slug string) (*models.Subcategory, error)
	SubcategoryBySlugGlobal(ctx context.Context, slug string) (*models.Subcategory, error)
	SubcategoryIDs(ctx context.Context, categoryID string) ([]string, error)
	MiniBySlug(ctx context.Context, subcategoryID, slug string) (*models.MiniSubcategory, error)
	MiniBySlugIn(ctx context.Context, subcategoryIDs []string, slug string) (*models.MiniSubcategory, error)
	MinisBySlug(ctx context.Context, slug string, limit int64) ([]models.MiniSubcategory, error)
}

type mongoStore struct {
	db *mongo.Database
}

// NewStore returns a Store backed by MongoDB.
func NewStore(db *mongo.Database) Store {
	return &mongoStore{db: db}
}

func (s *mongoStore) CategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var cat models.Category
	err := s.db.Collection(database.ColCategories).FindOne(ctx, bson.M{"slug": slug}).Decode(&cat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (s *mongoStore) SubcategoryBySlug(ctx context.Context, categoryID, slug string) (*models.Subcategory, error) {
	var sub models.Subcategory
	filter := bson.M{"slug": slug, "categoryId": categoryID}
	err := s.db.Collection(database.ColSubcategories).FindOne(ctx, filter).Decode(&sub)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *mongoStore) SubcategoryBySlugGlobal(ctx context.Context, slug string) (*models.Subcategory, error) {
	var sub models.Subcategory
	err := s.db.Collection(database.ColSubcategories).FindOne(ctx, bson.M{"slug": slug}).Decode(&sub)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *mongoStore) SubcategoryIDs(ctx context.Context, categoryID string) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := s.db.Collection(database.ColSubcategories).Find(ctx, bson.M{"categoryId": categoryID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var sub models.Subcategory
		if err := cursor.Decode(&sub); err != nil {
			return nil, err
		}
		ids = append(ids, sub.ID.Hex())
	}
	return ids, cursor.Err()
}

func (s *mongoStore) MiniBySlug(ctx context.Context, subcategoryID, slug string) (*models.MiniSubcategory, error) {
	var mini models.MiniSubcategory
	filter := bson.M{"slug": slug, "subcategoryId": subcategoryID}
	err := s.db.Collection(database.ColMiniSubcategories).FindOne(ctx, filter).Decode(&mini)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mini, nil
}

func (s *mongoStore) MiniBySlugIn(ctx context.Context, subcategoryIDs []string, slug string) (*models.MiniSubcategory, error) {
	if len(subcategoryIDs) == 0 {
		return nil, nil
	}
	var mini models.MiniSubcategory
	filter := bson.M{"slug": slug, "subcategoryId": bson.M{"$in": subcategoryIDs}}
	err := s.db.Collection(database.ColMiniSubcategories).FindOne(ctx, filter).Decode(&mini)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mini, nil
}

func (s *mongoStore) MinisBySlug(ctx context.Context, slug string, limit int64) ([]models.MiniSubcategory, error) {
	opts := options.Find().SetLimit(limit)
	cursor, err := s.db.Collection(database.ColMiniSubcategories).Find(ctx, bson.M{"slug": slug}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var minis []models.MiniSubcategory
	if err := cursor.All(ctx, &minis); err != nil {
		return nil, err
	}
	return minis, nil
}
