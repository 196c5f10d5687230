package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FreeListingLimit is a per-user override for the free posting quota.
// LimitType is the rolling window length in days.
type FreeListingLimit struct {
	Limit     int `bson:"limit" json:"limit"`
	LimitType int `bson:"limitType" json:"limitType"`
}

// User is the minimal projection of a user document the listing core
// needs: contact details for notifications and the free-post override.
// Account management itself lives outside this service.
type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name,omitempty" json:"name,omitempty"`
	Email            string             `bson:"email,omitempty" json:"email,omitempty"`
	UserType         string             `bson:"userType,omitempty" json:"userType,omitempty"`
	FCMTokens        []string           `bson:"fcmTokens,omitempty" json:"-"`
	FreeListingLimit *FreeListingLimit  `bson:"freeListingLimit,omitempty" json:"freeListingLimit,omitempty"`
}

// FCMToken is one registered push token for a user's device.
type FCMToken struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`
	Token      string             `bson:"token" json:"token"`
	DeviceInfo map[string]string  `bson:"deviceInfo,omitempty" json:"deviceInfo,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UserNotification is an in-app notification row.
type UserNotification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Title     string             `bson:"title" json:"title"`
	Body      string             `bson:"body" json:"body"`
	IsRead    bool               `bson:"isRead" json:"isRead"`
	ReadAt    *time.Time         `bson:"readAt,omitempty" json:"readAt,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// AdminSettings is the site-wide override document for free posting
// quotas, stored under the fixed id "freeListingLimits".
type AdminSettings struct {
	ID               string `bson:"_id" json:"id"`
	DefaultLimit     int    `bson:"defaultLimit" json:"defaultLimit"`
	DefaultLimitType int    `bson:"defaultLimitType" json:"defaultLimitType"`
}

// DeleteLog records one physical cleanup deletion for auditing.
type DeleteLog struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PropertyID   string             `bson:"propertyId" json:"propertyId"`
	Title        string             `bson:"title" json:"title"`
	OwnerID      string             `bson:"ownerId" json:"ownerId"`
	Reason       string             `bson:"reason" json:"reason"`
	DeletedAt    time.Time          `bson:"deletedAt" json:"deletedAt"`
	DryRun       bool               `bson:"dryRun" json:"dryRun"`
}
