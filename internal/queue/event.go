// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the background consumer.
package queue

import "time"

// Routing keys.  Each doubles as the name of its durable queue on the
// default exchange.
const (
	BookingConfirmedKey     = "booking.confirmed"
	MeetingUpdatedKey       = "meeting.updated"
	RoomShareDeactivatedKey = "roomshare.deactivated"
)

// Keys lists every queue the consumer declares.
var Keys = []string{BookingConfirmedKey, MeetingUpdatedKey, RoomShareDeactivatedKey}

// BookingConfirmedEvent is published when a booking enters confirmed.  It
// carries enough for downstream consumers to notify the student without
// querying the primary database.
type BookingConfirmedEvent struct {
	BookingID      string    `json:"booking_id"`
	PropertyID     string    `json:"property_id"`
	PropertyTitle  string    `json:"property_title"`
	StudentID      string    `json:"student_id"`
	StudentEmail   string    `json:"student_email,omitempty"`
	OwnerID        string    `json:"owner_id"`
	MoveInDate     string    `json:"move_in_date"`
	DurationMonths int       `json:"duration_months"`
	TotalAmount    float64   `json:"total_amount"`
	PaymentStatus  string    `json:"payment_status"`
	ConfirmedAt    time.Time `json:"confirmed_at"`
}

// MeetingUpdatedEvent is published after every meeting transition.
type MeetingUpdatedEvent struct {
	MeetingID  string    `json:"meeting_id"`
	PropertyID string    `json:"property_id"`
	StudentID  string    `json:"student_id"`
	OwnerID    string    `json:"owner_id"`
	Action     string    `json:"action"`
	Status     string    `json:"status"`
	ActorRole  string    `json:"actor_role"`
	At         time.Time `json:"at"`
}

// RoomShareDeactivatedEvent is published when a share is cancelled by its
// initiator or by the cleanup sweep.
type RoomShareDeactivatedEvent struct {
	RoomShareID string    `json:"roomshare_id"`
	PropertyID  string    `json:"property_id"`
	Reason      string    `json:"reason"`
	At          time.Time `json:"at"`
}
