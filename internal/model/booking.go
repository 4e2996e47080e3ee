package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// BookingStatus is the state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// PaymentMethod is how the student pays the owner.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCard         PaymentMethod = "card"
	PaymentMobileMoney  PaymentMethod = "mobile_money"
)

// PaymentStatus is the settlement state of a booking.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Booking reserves a room of a listing for a student.
type Booking struct {
	ID             bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Property       bson.ObjectID `bson:"property" json:"property"`
	Student        bson.ObjectID `bson:"student" json:"student"`
	Owner          bson.ObjectID `bson:"owner" json:"owner"`
	MoveInDate     time.Time     `bson:"moveInDate" json:"moveInDate"`
	DurationMonths int           `bson:"durationMonths" json:"durationMonths"`
	TotalAmount    float64       `bson:"totalAmount" json:"totalAmount"`
	Status         BookingStatus `bson:"status" json:"status"`
	PaymentMethod  PaymentMethod `bson:"paymentMethod" json:"paymentMethod"`
	PaymentStatus  PaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	PaidAt         *time.Time    `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	Notes          string        `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt      time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time     `bson:"updatedAt" json:"updatedAt"`
}
