package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Category is the top level of the listing taxonomy. Slugs are unique
// and treated as immutable once a subcategory references the category.
type Category struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Slug      string             `bson:"slug" json:"slug"`
	Name      string             `bson:"name" json:"name"`
	SortOrder int                `bson:"sortOrder" json:"sortOrder"`
	IsActive  bool               `bson:"isActive" json:"isActive"`
}

// Subcategory belongs to exactly one category. CategoryID is stored as
// the parent's hex id string, matching how properties reference minis.
type Subcategory struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CategoryID  string             `bson:"categoryId" json:"categoryId"`
	Slug        string             `bson:"slug" json:"slug"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	IconURL     string             `bson:"iconUrl,omitempty" json:"iconUrl,omitempty"`
	SortOrder   int                `bson:"sortOrder" json:"sortOrder"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
}

// MiniSubcategory is the taxonomy leaf that a property optionally
// attaches to via its miniSubcategoryId field.
type MiniSubcategory struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SubcategoryID string             `bson:"subcategoryId" json:"subcategoryId"`
	Slug          string             `bson:"slug" json:"slug"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	IconURL       string             `bson:"iconUrl,omitempty" json:"iconUrl,omitempty"`
	SortOrder     int                `bson:"sortOrder" json:"sortOrder"`
	IsActive      bool               `bson:"isActive" json:"isActive"`
}
