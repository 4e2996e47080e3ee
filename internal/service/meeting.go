package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/queue"
	"github.com/iliyamo/student-housing-api/internal/repository"
)

// CreateMeetingParams is a student's visit request.
type CreateMeetingParams struct {
	PropertyID bson.ObjectID
	Slot       Slot
	Message    string
}

// OwnerResponse carries the owner's answer to a meeting.
type OwnerResponse struct {
	Action string
	Slot   Slot
	Note   string
	Reason string
}

// StudentResponse carries the student's answer to a reschedule proposal.
type StudentResponse struct {
	Action string
	Slot   Slot
	Reason string
}

// MeetingService runs the visit-request negotiation.
type MeetingService struct {
	meetings repository.MeetingRepository
	listings repository.ListingRepository
	events   EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

// NewMeetingService wires the meeting module.
func NewMeetingService(
	meetings repository.MeetingRepository,
	listings repository.ListingRepository,
	events EventPublisher,
	logger *zerolog.Logger,
) *MeetingService {
	return &MeetingService{
		meetings: meetings,
		listings: listings,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// Create opens a visit request for an active listing.  A student may hold
// one open request per listing.
func (s *MeetingService) Create(ctx context.Context, actor Actor, params CreateMeetingParams) (*model.Meeting, error) {
	if actor.Role != model.RoleStudent {
		return nil, ErrForbidden
	}
	if params.Slot.empty() {
		return nil, invalid("preferredDate", "preferredDate and preferredTime are required")
	}
	now := s.now().UTC()
	if day, err := time.Parse(time.DateOnly, params.Slot.Date); err == nil && day.Before(truncateDay(now)) {
		return nil, invalid("preferredDate", "preferredDate cannot be in the past")
	}

	listing, err := s.listings.GetByID(ctx, params.PropertyID)
	if err != nil {
		return nil, err
	}
	if listing.Status != model.ListingActive {
		return nil, ErrListingUnavailable
	}
	if listing.Owner == actor.ID {
		return nil, ErrForbidden
	}

	open, err := s.meetings.HasOpenRequest(ctx, actor.ID, listing.ID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, ErrConflict
	}

	m := &model.Meeting{
		Property:      listing.ID,
		Student:       actor.ID,
		Owner:         listing.Owner,
		Status:        model.MeetingPending,
		Message:       params.Message,
		PreferredDate: params.Slot.Date,
		PreferredTime: params.Slot.Time,
	}
	record(m, actor, "requested", params.Message, now)

	m, err = s.meetings.Create(ctx, m)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, m, "requested", actor)
	return m, nil
}

// List returns the meetings the caller takes part in.
func (s *MeetingService) List(ctx context.Context, actor Actor, status model.MeetingStatus) ([]*model.Meeting, error) {
	filter := repository.MeetingFilter{Status: status}
	id := actor.ID
	if actor.Role == model.RoleOwner {
		filter.Owner = &id
	} else {
		filter.Student = &id
	}
	return s.meetings.List(ctx, filter)
}

// Get returns one meeting visible to the caller.
func (s *MeetingService) Get(ctx context.Context, actor Actor, id bson.ObjectID) (*model.Meeting, error) {
	m, err := s.meetings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Student != actor.ID && m.Owner != actor.ID {
		return nil, ErrForbidden
	}
	return m, nil
}

// OwnerRespond applies the owner's accept, decline, reschedule,
// accept_counter or decline_counter.
func (s *MeetingService) OwnerRespond(ctx context.Context, actor Actor, id bson.ObjectID, resp OwnerResponse) (*model.Meeting, error) {
	return s.transition(ctx, actor, id, model.RoleOwner, resp.Action, func(m *model.Meeting, now time.Time) error {
		switch resp.Action {
		case OwnerAccept:
			return ownerAccept(m, actor, resp.Note, now)
		case OwnerDecline:
			return ownerDecline(m, actor, firstNonEmpty(resp.Reason, resp.Note), now)
		case OwnerReschedule:
			return ownerPropose(m, actor, resp.Slot, resp.Note, now)
		case OwnerAcceptCounter:
			return ownerAcceptCounter(m, actor, resp.Note, now)
		case OwnerDeclineCounter:
			return ownerDeclineCounter(m, actor, firstNonEmpty(resp.Reason, resp.Note), now)
		}
		return invalid("action", "action must be one of accept decline reschedule accept_counter decline_counter")
	})
}

// StudentRespond applies the student's accept, decline or counter.
func (s *MeetingService) StudentRespond(ctx context.Context, actor Actor, id bson.ObjectID, resp StudentResponse) (*model.Meeting, error) {
	return s.transition(ctx, actor, id, model.RoleStudent, resp.Action, func(m *model.Meeting, now time.Time) error {
		switch resp.Action {
		case StudentAccept:
			return studentAccept(m, actor, now)
		case StudentDecline:
			return studentDecline(m, actor, resp.Reason, now)
		case StudentCounter:
			return studentCounter(m, actor, resp.Slot, resp.Reason, now)
		}
		return invalid("action", "action must be one of accept decline counter")
	})
}

// Reschedule lets the owner move a meeting to a new confirmed slot.
func (s *MeetingService) Reschedule(ctx context.Context, actor Actor, id bson.ObjectID, slot Slot, reason string) (*model.Meeting, error) {
	return s.transition(ctx, actor, id, model.RoleOwner, "rescheduled", func(m *model.Meeting, now time.Time) error {
		return ownerReschedule(m, actor, slot, reason, now)
	})
}

// Cancel ends a meeting on behalf of either party.
func (s *MeetingService) Cancel(ctx context.Context, actor Actor, id bson.ObjectID, reason string) (*model.Meeting, error) {
	return s.transition(ctx, actor, id, "", "cancelled", func(m *model.Meeting, now time.Time) error {
		return cancelMeeting(m, actor, reason, now)
	})
}

// Complete records whether a confirmed viewing took place.
func (s *MeetingService) Complete(ctx context.Context, actor Actor, id bson.ObjectID, outcome model.MeetingStatus, note string) (*model.Meeting, error) {
	return s.transition(ctx, actor, id, model.RoleOwner, string(outcome), func(m *model.Meeting, now time.Time) error {
		return closeMeeting(m, actor, outcome, note, now)
	})
}

// transition loads the meeting, checks that actor holds side (or either
// side when side is empty), applies fn and saves against the version read.
// A concurrent change in between surfaces as ErrConflict.
func (s *MeetingService) transition(
	ctx context.Context,
	actor Actor,
	id bson.ObjectID,
	side model.Role,
	action string,
	fn func(m *model.Meeting, now time.Time) error,
) (*model.Meeting, error) {
	m, err := s.meetings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch side {
	case model.RoleOwner:
		if m.Owner != actor.ID {
			return nil, ErrForbidden
		}
	case model.RoleStudent:
		if m.Student != actor.ID {
			return nil, ErrForbidden
		}
	default:
		if m.Owner != actor.ID && m.Student != actor.ID {
			return nil, ErrForbidden
		}
	}

	if err := fn(m, s.now().UTC()); err != nil {
		return nil, err
	}

	saved, err := s.meetings.Save(ctx, m)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, saved, action, actor)
	return saved, nil
}

func (s *MeetingService) publish(ctx context.Context, m *model.Meeting, action string, actor Actor) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	err := s.events.Publish(ctx, queue.MeetingUpdatedKey, queue.MeetingUpdatedEvent{
		MeetingID:  m.ID.Hex(),
		PropertyID: m.Property.Hex(),
		StudentID:  m.Student.Hex(),
		OwnerID:    m.Owner.Hex(),
		Action:     action,
		Status:     string(m.Status),
		ActorRole:  string(actor.Role),
		At:         m.UpdatedAt,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn().Err(err).Str("meeting_id", m.ID.Hex()).Msg("failed to publish meeting event")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
