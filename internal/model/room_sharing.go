package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// RoomSharingStatus is the lifecycle state of a share.
type RoomSharingStatus string

const (
	RoomSharingActive    RoomSharingStatus = "active"
	RoomSharingCancelled RoomSharingStatus = "cancelled"
	RoomSharingCompleted RoomSharingStatus = "completed"
)

// ApplicationStatus is the state of one application to a share.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Application is a student's request to join a share.
type Application struct {
	ID          bson.ObjectID     `bson:"_id" json:"id"`
	Applicant   bson.ObjectID     `bson:"applicant" json:"applicant"`
	Message     string            `bson:"message,omitempty" json:"message,omitempty"`
	Status      ApplicationStatus `bson:"status" json:"status"`
	AppliedAt   time.Time         `bson:"appliedAt" json:"appliedAt"`
	RespondedAt *time.Time        `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`
}

// RoomSharing lets students jointly occupy a listing.  The initiator is
// always the first participant.
type RoomSharing struct {
	ID                 bson.ObjectID     `bson:"_id,omitempty" json:"id"`
	Initiator          bson.ObjectID     `bson:"initiator" json:"initiator"`
	Property           bson.ObjectID     `bson:"property" json:"property"`
	Title              string            `bson:"title" json:"title"`
	Description        string            `bson:"description,omitempty" json:"description,omitempty"`
	MaxParticipants    int               `bson:"maxParticipants" json:"maxParticipants"`
	RentShare          float64           `bson:"rentShare" json:"rentShare"`
	Participants       []bson.ObjectID   `bson:"participants" json:"participants"`
	Applications       []Application     `bson:"applications" json:"applications"`
	Status             RoomSharingStatus `bson:"status" json:"status"`
	CancellationReason string            `bson:"cancellationReason,omitempty" json:"cancellationReason,omitempty"`
	DeactivatedAt      *time.Time        `bson:"deactivatedAt,omitempty" json:"deactivatedAt,omitempty"`
	CreatedAt          time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// HasMember reports whether id already participates or has applied.
func (r *RoomSharing) HasMember(id bson.ObjectID) bool {
	for _, p := range r.Participants {
		if p == id {
			return true
		}
	}
	for _, a := range r.Applications {
		if a.Applicant == id && a.Status != ApplicationRejected {
			return true
		}
	}
	return false
}

// Full reports whether the participant list reached capacity.
func (r *RoomSharing) Full() bool { return len(r.Participants) >= r.MaxParticipants }

// FindApplication returns the application with the given id.
func (r *RoomSharing) FindApplication(id bson.ObjectID) (*Application, bool) {
	for i := range r.Applications {
		if r.Applications[i].ID == id {
			return &r.Applications[i], true
		}
	}
	return nil, false
}
