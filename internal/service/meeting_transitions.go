package service

import (
	"time"

	"github.com/iliyamo/student-housing-api/internal/model"
)

// Owner response actions.
const (
	OwnerAccept         = "accept"
	OwnerDecline        = "decline"
	OwnerReschedule     = "reschedule"
	OwnerAcceptCounter  = "accept_counter"
	OwnerDeclineCounter = "decline_counter"
)

// Student response actions.
const (
	StudentAccept  = "accept"
	StudentDecline = "decline"
	StudentCounter = "counter"
)

// Slot is a date (YYYY-MM-DD) and time (HH:MM) pair.
type Slot struct {
	Date string
	Time string
}

func (s Slot) empty() bool { return s.Date == "" || s.Time == "" }

// The functions below mutate m in place and append a history entry.  They
// check status only; the caller has already checked who is acting.

func statusIn(s model.MeetingStatus, allowed ...model.MeetingStatus) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

func record(m *model.Meeting, actor Actor, action, note string, now time.Time) {
	m.History = append(m.History, model.MeetingEvent{
		Action: action,
		By:     actor.ID,
		Role:   actor.Role,
		At:     now,
		Note:   note,
	})
}

// ownerAccept confirms the student's preferred slot, or the owner's own
// proposal when the meeting was rescheduled.
func ownerAccept(m *model.Meeting, actor Actor, note string, now time.Time) error {
	switch m.Status {
	case model.MeetingPending:
		m.ConfirmedDate, m.ConfirmedTime = m.PreferredDate, m.PreferredTime
	case model.MeetingRescheduled:
		m.ConfirmedDate, m.ConfirmedTime = m.ProposedDate, m.ProposedTime
		m.ProposedDate, m.ProposedTime = "", ""
	default:
		return ErrInvalidTransition
	}
	m.Status = model.MeetingConfirmed
	m.OwnerNote = note
	record(m, actor, "accepted", note, now)
	return nil
}

func ownerDecline(m *model.Meeting, actor Actor, reason string, now time.Time) error {
	if !statusIn(m.Status, model.MeetingPending, model.MeetingRescheduled, model.MeetingPendingOwnerResponse) {
		return ErrInvalidTransition
	}
	m.Status = model.MeetingDeclined
	m.DeclineReason = reason
	m.CounterProposal = nil
	record(m, actor, "declined", reason, now)
	return nil
}

// ownerPropose suggests another slot; the student answers it.
func ownerPropose(m *model.Meeting, actor Actor, slot Slot, note string, now time.Time) error {
	if !statusIn(m.Status, model.MeetingPending, model.MeetingConfirmed) {
		return ErrInvalidTransition
	}
	if slot.empty() {
		return invalid("date", "date and time are required to reschedule")
	}
	m.Status = model.MeetingRescheduled
	m.ProposedDate, m.ProposedTime = slot.Date, slot.Time
	m.OwnerNote = note
	record(m, actor, "reschedule_proposed", note, now)
	return nil
}

func ownerAcceptCounter(m *model.Meeting, actor Actor, note string, now time.Time) error {
	if m.Status != model.MeetingPendingOwnerResponse || m.CounterProposal == nil {
		return ErrInvalidTransition
	}
	m.ConfirmedDate = m.CounterProposal.Date
	m.ConfirmedTime = m.CounterProposal.Time
	m.CounterProposal = nil
	m.Status = model.MeetingConfirmed
	m.OwnerNote = note
	record(m, actor, "counter_accepted", note, now)
	return nil
}

func ownerDeclineCounter(m *model.Meeting, actor Actor, note string, now time.Time) error {
	if m.Status != model.MeetingPendingOwnerResponse {
		return ErrInvalidTransition
	}
	m.CounterProposal = nil
	m.Status = model.MeetingPending
	record(m, actor, "counter_declined", note, now)
	return nil
}

// ownerReschedule moves the meeting to a new slot directly, without asking
// the student.
func ownerReschedule(m *model.Meeting, actor Actor, slot Slot, reason string, now time.Time) error {
	if !statusIn(m.Status,
		model.MeetingPending,
		model.MeetingConfirmed,
		model.MeetingRescheduled,
		model.MeetingPendingOwnerResponse,
	) {
		return ErrInvalidTransition
	}
	if slot.empty() {
		return invalid("newDate", "newDate and newTime are required")
	}
	m.Status = model.MeetingConfirmed
	m.ConfirmedDate, m.ConfirmedTime = slot.Date, slot.Time
	m.ProposedDate, m.ProposedTime = "", ""
	m.CounterProposal = nil
	m.IsRescheduled = true
	record(m, actor, "rescheduled", reason, now)
	return nil
}

func studentAccept(m *model.Meeting, actor Actor, now time.Time) error {
	if m.Status != model.MeetingRescheduled {
		return ErrInvalidTransition
	}
	m.ConfirmedDate, m.ConfirmedTime = m.ProposedDate, m.ProposedTime
	m.ProposedDate, m.ProposedTime = "", ""
	m.IsRescheduled = true
	m.Status = model.MeetingConfirmed
	record(m, actor, "reschedule_accepted", "", now)
	return nil
}

func studentDecline(m *model.Meeting, actor Actor, reason string, now time.Time) error {
	if m.Status != model.MeetingRescheduled {
		return ErrInvalidTransition
	}
	m.Status = model.MeetingDeclined
	m.DeclineReason = reason
	record(m, actor, "reschedule_declined", reason, now)
	return nil
}

func studentCounter(m *model.Meeting, actor Actor, slot Slot, reason string, now time.Time) error {
	if !statusIn(m.Status, model.MeetingPending, model.MeetingRescheduled, model.MeetingConfirmed) {
		return ErrInvalidTransition
	}
	if slot.empty() {
		return invalid("date", "date and time are required for a counter proposal")
	}
	m.CounterProposal = &model.CounterProposal{
		Date:   slot.Date,
		Time:   slot.Time,
		Reason: reason,
		At:     now,
	}
	m.Status = model.MeetingPendingOwnerResponse
	record(m, actor, "counter_proposed", reason, now)
	return nil
}

func cancelMeeting(m *model.Meeting, actor Actor, reason string, now time.Time) error {
	if m.Status.Terminal() {
		return ErrInvalidTransition
	}
	by := actor.ID
	at := now
	m.Status = model.MeetingCancelled
	m.CancelledBy = &by
	m.CancelledAt = &at
	m.CancellationReason = reason
	record(m, actor, "cancelled", reason, now)
	return nil
}

// closeMeeting records the outcome of a confirmed viewing.
func closeMeeting(m *model.Meeting, actor Actor, outcome model.MeetingStatus, note string, now time.Time) error {
	if outcome != model.MeetingCompleted && outcome != model.MeetingNoShow {
		return invalid("outcome", "outcome must be one of completed no_show")
	}
	if m.Status != model.MeetingConfirmed {
		return ErrInvalidTransition
	}
	m.Status = outcome
	record(m, actor, string(outcome), note, now)
	return nil
}
