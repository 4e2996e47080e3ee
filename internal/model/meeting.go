package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MeetingStatus is the negotiation state of a visit request.
type MeetingStatus string

const (
	MeetingPending              MeetingStatus = "pending"
	MeetingConfirmed            MeetingStatus = "confirmed"
	MeetingRescheduled          MeetingStatus = "rescheduled"
	MeetingCancelled            MeetingStatus = "cancelled"
	MeetingCompleted            MeetingStatus = "completed"
	MeetingNoShow               MeetingStatus = "no_show"
	MeetingPendingOwnerResponse MeetingStatus = "pending_owner_response"
	MeetingDeclined             MeetingStatus = "declined"
)

// Terminal reports whether no further transitions are possible.
func (s MeetingStatus) Terminal() bool {
	switch s {
	case MeetingCancelled, MeetingCompleted, MeetingDeclined, MeetingNoShow:
		return true
	}
	return false
}

// CounterProposal is a student's alternative slot.
type CounterProposal struct {
	Date   string    `bson:"date" json:"date"`
	Time   string    `bson:"time" json:"time"`
	Reason string    `bson:"reason,omitempty" json:"reason,omitempty"`
	At     time.Time `bson:"at" json:"at"`
}

// MeetingEvent is one entry of the meeting history log.
type MeetingEvent struct {
	Action string        `bson:"action" json:"action"`
	By     bson.ObjectID `bson:"by" json:"by"`
	Role   Role          `bson:"role" json:"role"`
	At     time.Time     `bson:"at" json:"at"`
	Note   string        `bson:"note,omitempty" json:"note,omitempty"`
}

// Meeting is a property viewing negotiated between a student and the
// listing owner.  Dates are kept as YYYY-MM-DD and times as HH:MM, the
// format clients send.  Version increases on every write and guards
// concurrent transitions.
type Meeting struct {
	ID                 bson.ObjectID    `bson:"_id,omitempty" json:"id"`
	Property           bson.ObjectID    `bson:"property" json:"property"`
	Student            bson.ObjectID    `bson:"student" json:"student"`
	Owner              bson.ObjectID    `bson:"owner" json:"owner"`
	Status             MeetingStatus    `bson:"status" json:"status"`
	Message            string           `bson:"message,omitempty" json:"message,omitempty"`
	PreferredDate      string           `bson:"preferredDate" json:"preferredDate"`
	PreferredTime      string           `bson:"preferredTime" json:"preferredTime"`
	ConfirmedDate      string           `bson:"confirmedDate,omitempty" json:"confirmedDate,omitempty"`
	ConfirmedTime      string           `bson:"confirmedTime,omitempty" json:"confirmedTime,omitempty"`
	ProposedDate       string           `bson:"proposedDate,omitempty" json:"proposedDate,omitempty"`
	ProposedTime       string           `bson:"proposedTime,omitempty" json:"proposedTime,omitempty"`
	CounterProposal    *CounterProposal `bson:"counterProposal,omitempty" json:"counterProposal,omitempty"`
	IsRescheduled      bool             `bson:"isRescheduled" json:"isRescheduled"`
	OwnerNote          string           `bson:"ownerNote,omitempty" json:"ownerNote,omitempty"`
	DeclineReason      string           `bson:"declineReason,omitempty" json:"declineReason,omitempty"`
	CancelledBy        *bson.ObjectID   `bson:"cancelledBy,omitempty" json:"cancelledBy,omitempty"`
	CancelledAt        *time.Time       `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CancellationReason string           `bson:"cancellationReason,omitempty" json:"cancellationReason,omitempty"`
	History            []MeetingEvent   `bson:"history" json:"history"`
	Version            int64            `bson:"version" json:"-"`
	CreatedAt          time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time        `bson:"updatedAt" json:"updatedAt"`
}
