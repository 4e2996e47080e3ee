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

// Cleanup reasons stored on shares cancelled by the sweep.
const (
	ReasonPropertyMissing  = "Property no longer exists"
	ReasonPropertyInactive = "Property is no longer active"
	ReasonFullyBooked      = "Property fully booked"
	ReasonInactive         = "Inactive for too long"

	reasonInitiator = "Deactivated by initiator"
)

// CreateRoomShareParams describes a new share.
type CreateRoomShareParams struct {
	PropertyID      bson.ObjectID
	Title           string
	Description     string
	MaxParticipants int
	RentShare       float64
}

// RoomShareListParams filters shares.
type RoomShareListParams struct {
	PropertyID *bson.ObjectID
	// Mine restricts the result to shares the caller participates in.
	Mine   bool
	Status model.RoomSharingStatus
}

// CleanupResult summarises one sweep.
type CleanupResult struct {
	Scanned     int            `json:"scanned"`
	Deactivated int            `json:"deactivated"`
	Reasons     map[string]int `json:"reasons"`
	Failed      int            `json:"failed"`
}

// RoomSharingService manages shares, their applications and the stale
// share sweep.
type RoomSharingService struct {
	shares   repository.RoomSharingRepository
	listings repository.ListingRepository
	events   EventPublisher
	logger   *zerolog.Logger
	cutoff   time.Duration
	now      func() time.Time
}

// NewRoomSharingService wires the room-sharing module.  Shares untouched for
// longer than inactivityCutoff are swept.
func NewRoomSharingService(
	shares repository.RoomSharingRepository,
	listings repository.ListingRepository,
	events EventPublisher,
	logger *zerolog.Logger,
	inactivityCutoff time.Duration,
) *RoomSharingService {
	return &RoomSharingService{
		shares:   shares,
		listings: listings,
		events:   events,
		logger:   logger,
		cutoff:   inactivityCutoff,
		now:      time.Now,
	}
}

// Create opens a share on a listing that still has rooms.  The initiator
// is the first participant.
func (s *RoomSharingService) Create(ctx context.Context, actor Actor, params CreateRoomShareParams) (*model.RoomSharing, error) {
	if actor.Role != model.RoleStudent {
		return nil, ErrForbidden
	}
	if params.MaxParticipants < 2 {
		return nil, invalid("maxParticipants", "maxParticipants must be at least 2")
	}
	listing, err := s.listings.GetByID(ctx, params.PropertyID)
	if err != nil {
		return nil, err
	}
	if listing.Status != model.ListingActive || listing.FullyBooked() {
		return nil, ErrListingUnavailable
	}

	share := &model.RoomSharing{
		Initiator:       actor.ID,
		Property:        listing.ID,
		Title:           params.Title,
		Description:     params.Description,
		MaxParticipants: params.MaxParticipants,
		RentShare:       params.RentShare,
		Participants:    []bson.ObjectID{actor.ID},
		Applications:    []model.Application{},
		Status:          model.RoomSharingActive,
	}
	return s.shares.Create(ctx, share)
}

// List returns shares.  Without an explicit status only active shares are
// listed.
func (s *RoomSharingService) List(ctx context.Context, actor Actor, params RoomShareListParams) ([]*model.RoomSharing, error) {
	filter := repository.RoomSharingFilter{Property: params.PropertyID, Status: params.Status}
	if params.Mine {
		id := actor.ID
		filter.Participant = &id
	} else if filter.Status == "" {
		filter.Status = model.RoomSharingActive
	}
	return s.shares.List(ctx, filter)
}

// Get returns one share.
func (s *RoomSharingService) Get(ctx context.Context, id bson.ObjectID) (*model.RoomSharing, error) {
	return s.shares.GetByID(ctx, id)
}

// Apply adds the caller's application to an active share with room left.
func (s *RoomSharingService) Apply(ctx context.Context, actor Actor, id bson.ObjectID, message string) (*model.RoomSharing, error) {
	if actor.Role != model.RoleStudent {
		return nil, ErrForbidden
	}
	share, err := s.shares.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if share.Status != model.RoomSharingActive || share.Full() {
		return nil, ErrInvalidTransition
	}
	if share.Initiator == actor.ID || share.HasMember(actor.ID) {
		return nil, ErrConflict
	}

	app := model.Application{
		ID:        bson.NewObjectID(),
		Applicant: actor.ID,
		Message:   message,
		Status:    model.ApplicationPending,
		AppliedAt: s.now().UTC(),
	}
	return s.shares.AddApplication(ctx, id, app)
}

// Respond lets the initiator accept or reject a pending application.  An
// accepted applicant joins the participants in the same write; the share
// completes once it is full.
func (s *RoomSharingService) Respond(ctx context.Context, actor Actor, id, appID bson.ObjectID, accept bool) (*model.RoomSharing, error) {
	share, err := s.shares.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if share.Initiator != actor.ID {
		return nil, ErrForbidden
	}
	app, ok := share.FindApplication(appID)
	if !ok {
		return nil, ErrNotFound
	}
	if app.Status != model.ApplicationPending {
		return nil, ErrInvalidTransition
	}

	if !accept {
		return s.shares.RejectApplication(ctx, id, appID)
	}

	if share.Status != model.RoomSharingActive || share.Full() {
		return nil, ErrInvalidTransition
	}
	updated, err := s.shares.AcceptApplication(ctx, id, appID, app.Applicant, share.MaxParticipants)
	if err != nil {
		return nil, err
	}
	if updated.Full() {
		completed, err := s.shares.SetStatus(ctx, id, model.RoomSharingCompleted, "")
		if err != nil && !errors.Is(err, ErrConflict) {
			return nil, err
		}
		if err == nil {
			updated = completed
		}
	}
	return updated, nil
}

// Deactivate cancels a share on behalf of its initiator.
func (s *RoomSharingService) Deactivate(ctx context.Context, actor Actor, id bson.ObjectID, reason string) (*model.RoomSharing, error) {
	share, err := s.shares.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if share.Initiator != actor.ID {
		return nil, ErrForbidden
	}
	if share.Status != model.RoomSharingActive {
		return nil, ErrInvalidTransition
	}
	updated, err := s.shares.SetStatus(ctx, id, model.RoomSharingCancelled, firstNonEmpty(reason, reasonInitiator))
	if err != nil {
		return nil, err
	}
	s.publishDeactivated(ctx, updated)
	return updated, nil
}

// Cleanup cancels every active share whose listing is gone, inactive or
// fully booked, or which has not changed within the inactivity cutoff.
// Shares modified between the scan and the write are skipped.
func (s *RoomSharingService) Cleanup(ctx context.Context) (*CleanupResult, error) {
	rows, err := s.shares.ActiveWithListings(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	res := &CleanupResult{Scanned: len(rows), Reasons: map[string]int{}}
	for _, row := range rows {
		reason := staleReason(row, now.Add(-s.cutoff))
		if reason == "" {
			continue
		}
		updated, err := s.shares.SetStatus(ctx, row.ID, model.RoomSharingCancelled, reason)
		if err != nil {
			if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
				continue
			}
			res.Failed++
			s.logger.Error().Err(err).Str("roomshare_id", row.ID.Hex()).Msg("cleanup: failed to deactivate share")
			continue
		}
		res.Deactivated++
		res.Reasons[reason]++
		s.publishDeactivated(ctx, updated)
	}

	s.logger.Info().
		Int("scanned", res.Scanned).
		Int("deactivated", res.Deactivated).
		Int("failed", res.Failed).
		Msg("room share cleanup finished")
	return res, nil
}

func staleReason(row repository.RoomSharingWithListing, inactiveBefore time.Time) string {
	switch {
	case row.Listing == nil:
		return ReasonPropertyMissing
	case row.Listing.Status != model.ListingActive:
		return ReasonPropertyInactive
	case row.Listing.FullyBooked():
		return ReasonFullyBooked
	case row.UpdatedAt.Before(inactiveBefore):
		return ReasonInactive
	}
	return ""
}

// RunCleanupLoop sweeps every interval until ctx is cancelled.
func (s *RoomSharingService) RunCleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, interval)
			if _, err := s.Cleanup(runCtx); err != nil {
				s.logger.Error().Err(err).Msg("scheduled room share cleanup failed")
			}
			cancel()
		}
	}
}

func (s *RoomSharingService) publishDeactivated(ctx context.Context, share *model.RoomSharing) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	err := s.events.Publish(ctx, queue.RoomShareDeactivatedKey, queue.RoomShareDeactivatedEvent{
		RoomShareID: share.ID.Hex(),
		PropertyID:  share.Property.Hex(),
		Reason:      share.CancellationReason,
		At:          share.UpdatedAt,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("roomshare_id", share.ID.Hex()).Msg("failed to publish room share event")
	}
}
