package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PropertyStatus is the visibility state of a listing.
type PropertyStatus string

const (
	StatusActive   PropertyStatus = "active"
	StatusInactive PropertyStatus = "inactive"
)

// ApprovalStatus is the moderation state of a listing.
type ApprovalStatus string

const (
	// ApprovalPending is the state for freshly submitted free listings.
	ApprovalPending ApprovalStatus = "pending"
	// ApprovalPendingPackage marks paid submissions awaiting payment
	// verification in addition to moderation.
	ApprovalPendingPackage ApprovalStatus = "pending_approval"
	ApprovalApproved       ApprovalStatus = "approved"
	ApprovalRejected       ApprovalStatus = "rejected"
)

// PriceType is the canonical transaction kind. Tab slugs like "buy",
// "lease" and "pg" normalize into one of these two values.
type PriceType string

const (
	PriceSale PriceType = "sale"
	PriceRent PriceType = "rent"
)

// Location holds the free-form address fields a listing is filtered by.
type Location struct {
	Sector   string `bson:"sector,omitempty" json:"sector,omitempty"`
	Mohalla  string `bson:"mohalla,omitempty" json:"mohalla,omitempty"`
	Landmark string `bson:"landmark,omitempty" json:"landmark,omitempty"`
	City     string `bson:"city,omitempty" json:"city,omitempty"`
	Area     string `bson:"area,omitempty" json:"area,omitempty"`
}

// Specifications holds the numeric listing attributes. Pointer fields stay
// absent from the stored document when the seller did not provide them.
type Specifications struct {
	Bedrooms    *int   `bson:"bedrooms,omitempty" json:"bedrooms,omitempty"`
	Bathrooms   *int   `bson:"bathrooms,omitempty" json:"bathrooms,omitempty"`
	Area        *int   `bson:"area,omitempty" json:"area,omitempty"`
	Floor       *int   `bson:"floor,omitempty" json:"floor,omitempty"`
	TotalFloors *int   `bson:"totalFloors,omitempty" json:"totalFloors,omitempty"`
	Parking     bool   `bson:"parking" json:"parking"`
	Furnishing  string `bson:"furnishing,omitempty" json:"furnishing,omitempty"`
}

// ContactInfo is the seller contact block shown on approved listings.
type ContactInfo struct {
	Name     string `bson:"name,omitempty" json:"name,omitempty"`
	Phone    string `bson:"phone,omitempty" json:"phone,omitempty"`
	Email    string `bson:"email,omitempty" json:"email,omitempty"`
	WhatsApp string `bson:"whatsapp,omitempty" json:"whatsapp,omitempty"`
}

// Property is a classified listing.
//
// SubCategory is a denormalized slug copy, not a foreign key: it lets
// reads filter even when no canonical parent chain could be resolved.
// MiniSubcategoryID is the authoritative taxonomy leaf reference and is
// only set when the resolver found one.
type Property struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Price       int                `bson:"price" json:"price"`
	PriceType   PriceType          `bson:"priceType" json:"priceType"`

	PropertyType      string `bson:"propertyType" json:"propertyType"`
	SubCategory       string `bson:"subCategory,omitempty" json:"subCategory,omitempty"`
	MiniSubcategoryID string `bson:"miniSubcategoryId,omitempty" json:"miniSubcategoryId,omitempty"`

	Location       Location       `bson:"location" json:"location"`
	Specifications Specifications `bson:"specifications" json:"specifications"`
	Images         []string       `bson:"images" json:"images"`
	Amenities      []string       `bson:"amenities" json:"amenities"`

	OwnerID          string      `bson:"ownerId" json:"ownerId"`
	OwnerType        string      `bson:"ownerType,omitempty" json:"ownerType,omitempty"`
	ContactInfo      ContactInfo `bson:"contactInfo" json:"contactInfo"`
	ShareContactInfo bool        `bson:"shareContactInfo" json:"shareContactInfo"`
	ContactVisible   bool        `bson:"contactVisible" json:"contactVisible"`

	Status          PropertyStatus `bson:"status" json:"status"`
	ApprovalStatus  ApprovalStatus `bson:"approvalStatus,omitempty" json:"approvalStatus,omitempty"`
	IsApproved      bool           `bson:"isApproved" json:"isApproved"`
	ApprovedAt      *time.Time     `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	ApprovedBy      string         `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	RejectionReason string         `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	AdminComments   string         `bson:"adminComments,omitempty" json:"adminComments,omitempty"`

	Premium  bool `bson:"premium" json:"premium"`
	Featured bool `bson:"featured" json:"featured"`

	PackageID     string     `bson:"packageId,omitempty" json:"packageId,omitempty"`
	IsPaid        bool       `bson:"isPaid" json:"isPaid"`
	PaymentStatus string     `bson:"paymentStatus,omitempty" json:"paymentStatus,omitempty"`
	LastPaymentAt *time.Time `bson:"lastPaymentAt,omitempty" json:"lastPaymentAt,omitempty"`
	PackageExpiry *time.Time `bson:"packageExpiry,omitempty" json:"packageExpiry,omitempty"`

	Views     int64     `bson:"views" json:"views"`
	Inquiries int64     `bson:"inquiries" json:"inquiries"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PubliclyVisible reports whether a listing passes the public read
// predicate used by the filter builder.
func (p *Property) PubliclyVisible() bool {
	return p.Status == StatusActive &&
		(p.ApprovalStatus == ApprovalApproved || p.ApprovalStatus == "")
}
