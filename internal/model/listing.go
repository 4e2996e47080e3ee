package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ListingStatus controls whether a listing is bookable and visible.
type ListingStatus string

const (
	ListingActive   ListingStatus = "active"
	ListingInactive ListingStatus = "inactive"
)

// Listing is a property offered by an owner.  AvailableRooms is decremented
// when a booking is confirmed and never drops below zero.
type Listing struct {
	ID             bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Owner          bson.ObjectID `bson:"owner" json:"owner"`
	Title          string        `bson:"title" json:"title"`
	Description    string        `bson:"description" json:"description"`
	Address        string        `bson:"address" json:"address"`
	City           string        `bson:"city" json:"city"`
	MonthlyRent    float64       `bson:"monthlyRent" json:"monthlyRent"`
	TotalRooms     int           `bson:"totalRooms" json:"totalRooms"`
	AvailableRooms int           `bson:"availableRooms" json:"availableRooms"`
	Amenities      []string      `bson:"amenities" json:"amenities"`
	Images         []string      `bson:"images" json:"images"`
	Status         ListingStatus `bson:"status" json:"status"`
	CreatedAt      time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// FullyBooked reports whether no rooms remain.
func (l *Listing) FullyBooked() bool { return l.AvailableRooms <= 0 }
