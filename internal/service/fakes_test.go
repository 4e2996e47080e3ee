package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/repository"
)

// In-memory repositories.  They honour the same conditional contracts as
// the Mongo implementations so the services can be exercised without a
// database.

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---- users ----

type fakeUsers struct {
	mu   sync.Mutex
	byID map[bson.ObjectID]*model.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[bson.ObjectID]*model.User{}}
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.RefreshTokens = append([]model.RefreshToken(nil), u.RefreshTokens...)
	return &c
}

func (f *fakeUsers) Create(_ context.Context, user *model.User) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email := strings.ToLower(user.Email)
	for _, u := range f.byID {
		if u.Email == email {
			return nil, repository.ErrEmailExists
		}
	}
	c := cloneUser(user)
	c.ID = bson.NewObjectID()
	c.Email = email
	if c.VerificationStatus == "" {
		c.VerificationStatus = model.VerificationUnverified
	}
	f.byID[c.ID] = c
	return cloneUser(c), nil
}

func (f *fakeUsers) GetByID(_ context.Context, id bson.ObjectID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByRefreshHash(_ context.Context, hash string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		for _, t := range u.RefreshTokens {
			if t.TokenHash == hash {
				return cloneUser(u), nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) AddRefreshToken(_ context.Context, id bson.ObjectID, tok model.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.RefreshTokens = append(u.RefreshTokens, tok)
	if n := len(u.RefreshTokens); n > model.MaxRefreshTokens {
		u.RefreshTokens = u.RefreshTokens[n-model.MaxRefreshTokens:]
	}
	return nil
}

func (f *fakeUsers) RotateRefreshToken(_ context.Context, id bson.ObjectID, oldHash string, tok model.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	for i, t := range u.RefreshTokens {
		if t.TokenHash == oldHash {
			u.RefreshTokens = append(u.RefreshTokens[:i:i], u.RefreshTokens[i+1:]...)
			u.RefreshTokens = append(u.RefreshTokens, tok)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeUsers) RemoveRefreshToken(_ context.Context, id bson.ObjectID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	kept := u.RefreshTokens[:0:0]
	for _, t := range u.RefreshTokens {
		if t.TokenHash != hash {
			kept = append(kept, t)
		}
	}
	u.RefreshTokens = kept
	return nil
}

func (f *fakeUsers) ClearRefreshTokens(_ context.Context, id bson.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.RefreshTokens = nil
	return nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id bson.ObjectID, p repository.UpdateProfileParams) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.IsProfileComplete != nil {
		u.IsProfileComplete = *p.IsProfileComplete
	}
	return cloneUser(u), nil
}

func (f *fakeUsers) SetVerificationStatus(_ context.Context, id bson.ObjectID, s model.VerificationStatus) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.VerificationStatus = s
	return cloneUser(u), nil
}

func (f *fakeUsers) MarkEmailVerified(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			u.IsEmailVerified = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeUsers) SetPassword(_ context.Context, id bson.ObjectID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.RefreshTokens = nil
	return nil
}

// seed stores u directly and returns its id.
func (f *fakeUsers) seed(u model.User) bson.ObjectID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	f.byID[u.ID] = cloneUser(&u)
	return u.ID
}

// ---- listings ----

type fakeListings struct {
	mu   sync.Mutex
	byID map[bson.ObjectID]*model.Listing
}

func newFakeListings() *fakeListings {
	return &fakeListings{byID: map[bson.ObjectID]*model.Listing{}}
}

func cloneListing(l *model.Listing) *model.Listing {
	c := *l
	return &c
}

func (f *fakeListings) Create(_ context.Context, l *model.Listing) (*model.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := cloneListing(l)
	if c.ID.IsZero() {
		c.ID = bson.NewObjectID()
	}
	f.byID[c.ID] = c
	return cloneListing(c), nil
}

func (f *fakeListings) GetByID(_ context.Context, id bson.ObjectID) (*model.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneListing(l), nil
}

func (f *fakeListings) GetByIDs(_ context.Context, ids []bson.ObjectID) (map[bson.ObjectID]*model.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[bson.ObjectID]*model.Listing{}
	for _, id := range ids {
		if l, ok := f.byID[id]; ok {
			out[id] = cloneListing(l)
		}
	}
	return out, nil
}

func (f *fakeListings) List(_ context.Context, p repository.ListingFilter) ([]*model.Listing, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*model.Listing
	for _, l := range f.byID {
		switch {
		case p.Owner != nil && l.Owner != *p.Owner:
		case p.City != "" && !strings.EqualFold(l.City, p.City):
		case p.MaxRent > 0 && l.MonthlyRent > p.MaxRent:
		case p.MinAvailableRooms > 0 && l.AvailableRooms < p.MinAvailableRooms:
		case p.Status != "" && l.Status != p.Status:
		default:
			all = append(all, cloneListing(l))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.Hex() < all[j].ID.Hex() })
	total := int64(len(all))
	start := min(p.Offset, total)
	end := total
	if p.Limit > 0 {
		end = min(start+p.Limit, total)
	}
	return all[start:end], total, nil
}

func (f *fakeListings) Update(_ context.Context, id, owner bson.ObjectID, p repository.UpdateListingParams) (*model.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if l.Owner != owner {
		return nil, repository.ErrForbidden
	}
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Address != nil {
		l.Address = *p.Address
	}
	if p.City != nil {
		l.City = *p.City
	}
	if p.MonthlyRent != nil {
		l.MonthlyRent = *p.MonthlyRent
	}
	if p.TotalRooms != nil {
		l.TotalRooms = *p.TotalRooms
	}
	if p.AvailableRooms != nil {
		l.AvailableRooms = *p.AvailableRooms
	}
	if p.Amenities != nil {
		l.Amenities = p.Amenities
	}
	if p.Images != nil {
		l.Images = p.Images
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	return cloneListing(l), nil
}

func (f *fakeListings) Delete(_ context.Context, id, owner bson.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if l.Owner != owner {
		return repository.ErrForbidden
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeListings) AdjustAvailableRooms(_ context.Context, id bson.ObjectID, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	next := l.AvailableRooms + delta
	if next < 0 || next > l.TotalRooms {
		return repository.ErrConflict
	}
	l.AvailableRooms = next
	return nil
}

func (f *fakeListings) seed(l model.Listing) *model.Listing {
	created, _ := f.Create(context.Background(), &l)
	return created
}

// ---- meetings ----

type fakeMeetings struct {
	mu   sync.Mutex
	byID map[bson.ObjectID]*model.Meeting
}

func newFakeMeetings() *fakeMeetings {
	return &fakeMeetings{byID: map[bson.ObjectID]*model.Meeting{}}
}

func cloneMeeting(m *model.Meeting) *model.Meeting {
	c := *m
	c.History = append([]model.MeetingEvent(nil), m.History...)
	if m.CounterProposal != nil {
		cp := *m.CounterProposal
		c.CounterProposal = &cp
	}
	return &c
}

func (f *fakeMeetings) Create(_ context.Context, m *model.Meeting) (*model.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := cloneMeeting(m)
	c.ID = bson.NewObjectID()
	c.Version = 1
	f.byID[c.ID] = c
	return cloneMeeting(c), nil
}

func (f *fakeMeetings) GetByID(_ context.Context, id bson.ObjectID) (*model.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneMeeting(m), nil
}

func (f *fakeMeetings) List(_ context.Context, p repository.MeetingFilter) ([]*model.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Meeting
	for _, m := range f.byID {
		switch {
		case p.Student != nil && m.Student != *p.Student:
		case p.Owner != nil && m.Owner != *p.Owner:
		case p.Property != nil && m.Property != *p.Property:
		case p.Status != "" && m.Status != p.Status:
		default:
			out = append(out, cloneMeeting(m))
		}
	}
	return out, nil
}

func (f *fakeMeetings) Save(_ context.Context, m *model.Meeting) (*model.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byID[m.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if cur.Version != m.Version {
		return nil, repository.ErrConflict
	}
	c := cloneMeeting(m)
	c.Version++
	f.byID[c.ID] = c
	return cloneMeeting(c), nil
}

func (f *fakeMeetings) HasOpenRequest(_ context.Context, student, property bson.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.byID {
		if m.Student == student && m.Property == property && !m.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

// ---- otps ----

type fakeOTPs struct {
	mu   sync.Mutex
	rows []*model.OTP
}

func (f *fakeOTPs) Create(_ context.Context, otp *model.OTP) (*model.OTP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *otp
	c.ID = bson.NewObjectID()
	f.rows = append(f.rows, &c)
	out := c
	return &out, nil
}

func (f *fakeOTPs) latest(identifier string, typ model.OTPType, unusedOnly bool) (*model.OTP, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		r := f.rows[i]
		if r.Identifier == identifier && r.Type == typ && (!unusedOnly || !r.Used) {
			c := *r
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeOTPs) Latest(_ context.Context, identifier string, typ model.OTPType) (*model.OTP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest(identifier, typ, false)
}

func (f *fakeOTPs) LatestUnused(_ context.Context, identifier string, typ model.OTPType) (*model.OTP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest(identifier, typ, true)
}

func (f *fakeOTPs) find(id bson.ObjectID) *model.OTP {
	for _, r := range f.rows {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (f *fakeOTPs) TakeAttempt(_ context.Context, id bson.ObjectID, max int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.find(id)
	if r == nil || r.Used || r.Attempts >= max {
		return 0, repository.ErrConflict
	}
	r.Attempts++
	return r.Attempts, nil
}

func (f *fakeOTPs) MarkUsed(_ context.Context, id bson.ObjectID, max int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.find(id)
	if r == nil {
		return repository.ErrNotFound
	}
	if r.Used || r.Attempts > max {
		return repository.ErrConflict
	}
	r.Used = true
	return nil
}

func (f *fakeOTPs) InvalidateUnused(_ context.Context, identifier string, typ model.OTPType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Identifier == identifier && r.Type == typ {
			r.Used = true
		}
	}
	return nil
}

// ---- room shares ----

type fakeShares struct {
	mu       sync.Mutex
	byID     map[bson.ObjectID]*model.RoomSharing
	listings *fakeListings
	now      func() time.Time
}

func newFakeShares(listings *fakeListings, now func() time.Time) *fakeShares {
	return &fakeShares{byID: map[bson.ObjectID]*model.RoomSharing{}, listings: listings, now: now}
}

func cloneShare(r *model.RoomSharing) *model.RoomSharing {
	c := *r
	c.Participants = append([]bson.ObjectID(nil), r.Participants...)
	c.Applications = append([]model.Application(nil), r.Applications...)
	return &c
}

func (f *fakeShares) Create(_ context.Context, r *model.RoomSharing) (*model.RoomSharing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := cloneShare(r)
	if c.ID.IsZero() {
		c.ID = bson.NewObjectID()
	}
	if c.UpdatedAt.IsZero() {
		c.CreatedAt = f.now()
		c.UpdatedAt = c.CreatedAt
	}
	f.byID[c.ID] = c
	return cloneShare(c), nil
}

func (f *fakeShares) GetByID(_ context.Context, id bson.ObjectID) (*model.RoomSharing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneShare(r), nil
}

func (f *fakeShares) List(_ context.Context, p repository.RoomSharingFilter) ([]*model.RoomSharing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.RoomSharing
	for _, r := range f.byID {
		member := p.Participant == nil
		if p.Participant != nil {
			for _, id := range r.Participants {
				if id == *p.Participant {
					member = true
				}
			}
		}
		switch {
		case !member:
		case p.Property != nil && r.Property != *p.Property:
		case p.Status != "" && r.Status != p.Status:
		default:
			out = append(out, cloneShare(r))
		}
	}
	return out, nil
}

func (f *fakeShares) AddApplication(_ context.Context, id bson.ObjectID, app model.Application) (*model.RoomSharing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if r.Status != model.RoomSharingActive || r.HasMember(app.Applicant) {
		return nil, repository.ErrConflict
	}
	r.Applications = append(r.Applications, app)
	r.UpdatedAt = f.now()
	return cloneShare(r), nil
}

func (f *fakeShares) AcceptApplication(_ context.Context, id, appID, applicant bson.ObjectID, max int) (*model.RoomSharing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	app, ok := r.FindApplication(appID)
	if !ok || app.Status != model.ApplicationPending || r.Status != model.RoomSharingActive || len(r.Participants) >= max {
		return nil, repository.ErrConflict
	}
	at := f.now()
	app.Status = model.ApplicationAccepted
	app.RespondedAt = &at
	r.Participants = append(r.Participants, applicant)
	r.UpdatedAt = at
	return cloneShare(r), nil
}

func (f *fakeShares) RejectApplication(_ context.Context, id, appID bson.ObjectID) (*model.RoomSharing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	app, ok := r.FindApplication(appID)
	if !ok || app.Status != model.ApplicationPending {
		return nil, repository.ErrConflict
	}
	at := f.now()
	app.Status = model.ApplicationRejected
	app.RespondedAt = &at
	r.UpdatedAt = at
	return cloneShare(r), nil
}

func (f *fakeShares) SetStatus(_ context.Context, id bson.ObjectID, status model.RoomSharingStatus, reason string) (*model.RoomSharing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if r.Status != model.RoomSharingActive {
		return nil, repository.ErrConflict
	}
	at := f.now()
	r.Status = status
	r.UpdatedAt = at
	if status == model.RoomSharingCancelled {
		r.CancellationReason = reason
		r.DeactivatedAt = &at
	}
	return cloneShare(r), nil
}

func (f *fakeShares) ActiveWithListings(ctx context.Context) ([]repository.RoomSharingWithListing, error) {
	f.mu.Lock()
	var active []*model.RoomSharing
	for _, r := range f.byID {
		if r.Status == model.RoomSharingActive {
			active = append(active, cloneShare(r))
		}
	}
	f.mu.Unlock()

	out := make([]repository.RoomSharingWithListing, 0, len(active))
	for _, r := range active {
		row := repository.RoomSharingWithListing{RoomSharing: *r}
		if l, err := f.listings.GetByID(ctx, r.Property); err == nil {
			row.Listing = l
		}
		out = append(out, row)
	}
	return out, nil
}

// ---- bookings ----

type fakeBookings struct {
	mu   sync.Mutex
	byID map[bson.ObjectID]*model.Booking
	now  func() time.Time
}

func newFakeBookings(now func() time.Time) *fakeBookings {
	return &fakeBookings{byID: map[bson.ObjectID]*model.Booking{}, now: now}
}

func cloneBooking(b *model.Booking) *model.Booking {
	c := *b
	return &c
}

func (f *fakeBookings) Create(_ context.Context, b *model.Booking) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := cloneBooking(b)
	c.ID = bson.NewObjectID()
	c.CreatedAt = f.now()
	c.UpdatedAt = c.CreatedAt
	f.byID[c.ID] = c
	return cloneBooking(c), nil
}

func (f *fakeBookings) GetByID(_ context.Context, id bson.ObjectID) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (f *fakeBookings) List(_ context.Context, p repository.BookingFilter) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Booking
	for _, b := range f.byID {
		switch {
		case p.Student != nil && b.Student != *p.Student:
		case p.Owner != nil && b.Owner != *p.Owner:
		case p.Property != nil && b.Property != *p.Property:
		case p.Status != "" && b.Status != p.Status:
		default:
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (f *fakeBookings) Update(_ context.Context, id bson.ObjectID, expected model.BookingStatus, p repository.UpdateBookingParams) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if b.Status != expected {
		return nil, repository.ErrConflict
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		b.PaymentStatus = *p.PaymentStatus
	}
	if p.PaidAt != nil {
		at := *p.PaidAt
		b.PaidAt = &at
	}
	b.UpdatedAt = f.now()
	return cloneBooking(b), nil
}

// ---- collaborators ----

type publishedEvent struct {
	key   string
	event any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(_ context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{key: key, event: event})
	return nil
}

func (p *fakePublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.key)
	}
	return out
}

type sentCode struct {
	to, code, purpose string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (s *fakeSender) SendOTP(_ context.Context, to, code, purpose string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentCode{to: to, code: code, purpose: purpose})
	return nil
}

func (s *fakeSender) last(t *testing.T) sentCode {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		t.Fatal("no code was sent")
	}
	return s.sent[len(s.sent)-1]
}
