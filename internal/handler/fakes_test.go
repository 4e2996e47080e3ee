package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/student-housing-api/internal/model"
	"github.com/iliyamo/student-housing-api/internal/repository"
	"github.com/iliyamo/student-housing-api/internal/service"
	"github.com/iliyamo/student-housing-api/internal/validation"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validation.New()
	e.HTTPErrorHandler = ErrorHandler
	return e
}

// as stands in for the JWT middleware.
func as(actor service.Actor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", actor.ID)
			c.Set("role", actor.Role)
			return next(c)
		}
	}
}

func doJSON(e *echo.Echo, method, target, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type decoded[T any] struct {
	Success bool              `json:"success"`
	Data    T                 `json:"data"`
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) decoded[T] {
	t.Helper()
	var out decoded[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// memUsers implements the refresh-token part of the user store.  Other
// methods panic through the nil embedded interface.
type memUsers struct {
	repository.UserRepository
	mu   sync.Mutex
	byID map[bson.ObjectID]*model.User
}

func newMemUsers(users ...*model.User) *memUsers {
	m := &memUsers{byID: map[bson.ObjectID]*model.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) tokens(id bson.ObjectID) []model.RefreshToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.RefreshToken(nil), m.byID[id].RefreshTokens...)
}

func (m *memUsers) GetByID(_ context.Context, id bson.ObjectID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	c.RefreshTokens = append([]model.RefreshToken(nil), u.RefreshTokens...)
	return &c, nil
}

func (m *memUsers) GetByRefreshHash(ctx context.Context, hash string) (*model.User, error) {
	m.mu.Lock()
	var found bson.ObjectID
	for id, u := range m.byID {
		for _, t := range u.RefreshTokens {
			if t.TokenHash == hash {
				found = id
			}
		}
	}
	m.mu.Unlock()
	if found.IsZero() {
		return nil, repository.ErrNotFound
	}
	return m.GetByID(ctx, found)
}

func (m *memUsers) RotateRefreshToken(_ context.Context, id bson.ObjectID, oldHash string, tok model.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID[id]
	for i, t := range u.RefreshTokens {
		if t.TokenHash == oldHash {
			u.RefreshTokens = append(u.RefreshTokens[:i:i], u.RefreshTokens[i+1:]...)
			u.RefreshTokens = append(u.RefreshTokens, tok)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memUsers) RemoveRefreshToken(_ context.Context, id bson.ObjectID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID[id]
	var kept []model.RefreshToken
	for _, t := range u.RefreshTokens {
		if t.TokenHash != hash {
			kept = append(kept, t)
		}
	}
	u.RefreshTokens = kept
	return nil
}

func (m *memUsers) ClearRefreshTokens(_ context.Context, id bson.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].RefreshTokens = nil
	return nil
}

// memMeetings keeps meetings with the same version check as the Mongo store.
type memMeetings struct {
	repository.MeetingRepository
	mu   sync.Mutex
	byID map[bson.ObjectID]*model.Meeting
}

func newMemMeetings() *memMeetings {
	return &memMeetings{byID: map[bson.ObjectID]*model.Meeting{}}
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

func (m *memMeetings) seed(meeting model.Meeting) *model.Meeting {
	m.mu.Lock()
	defer m.mu.Unlock()
	meeting.ID = bson.NewObjectID()
	meeting.Version = 1
	m.byID[meeting.ID] = cloneMeeting(&meeting)
	return cloneMeeting(&meeting)
}

func (m *memMeetings) GetByID(_ context.Context, id bson.ObjectID) (*model.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneMeeting(stored), nil
}

func (m *memMeetings) Save(_ context.Context, meeting *model.Meeting) (*model.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[meeting.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if stored.Version != meeting.Version {
		return nil, repository.ErrConflict
	}
	next := cloneMeeting(meeting)
	next.Version++
	m.byID[meeting.ID] = next
	return cloneMeeting(next), nil
}

// memShares implements the application-response part of the share store.
type memShares struct {
	repository.RoomSharingRepository
	mu   sync.Mutex
	byID map[bson.ObjectID]*model.RoomSharing
}

func newMemShares() *memShares {
	return &memShares{byID: map[bson.ObjectID]*model.RoomSharing{}}
}

func cloneShare(s *model.RoomSharing) *model.RoomSharing {
	c := *s
	c.Participants = append([]bson.ObjectID(nil), s.Participants...)
	c.Applications = append([]model.Application(nil), s.Applications...)
	return &c
}

func (m *memShares) seed(share model.RoomSharing) *model.RoomSharing {
	m.mu.Lock()
	defer m.mu.Unlock()
	share.ID = bson.NewObjectID()
	m.byID[share.ID] = cloneShare(&share)
	return cloneShare(&share)
}

func (m *memShares) GetByID(_ context.Context, id bson.ObjectID) (*model.RoomSharing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneShare(s), nil
}

func (m *memShares) respond(id, appID bson.ObjectID, status model.ApplicationStatus) (*model.RoomSharing, error) {
	s, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for i := range s.Applications {
		if s.Applications[i].ID == appID && s.Applications[i].Status == model.ApplicationPending {
			s.Applications[i].Status = status
			return s, nil
		}
	}
	return nil, repository.ErrConflict
}

func (m *memShares) AcceptApplication(_ context.Context, id, appID, applicant bson.ObjectID, maxParticipants int) (*model.RoomSharing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok && len(s.Participants) >= maxParticipants {
		return nil, repository.ErrConflict
	}
	s, err := m.respond(id, appID, model.ApplicationAccepted)
	if err != nil {
		return nil, err
	}
	s.Participants = append(s.Participants, applicant)
	return cloneShare(s), nil
}

func (m *memShares) RejectApplication(_ context.Context, id, appID bson.ObjectID) (*model.RoomSharing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.respond(id, appID, model.ApplicationRejected)
	if err != nil {
		return nil, err
	}
	return cloneShare(s), nil
}

func (m *memShares) SetStatus(_ context.Context, id bson.ObjectID, status model.RoomSharingStatus, reason string) (*model.RoomSharing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if s.Status != model.RoomSharingActive {
		return nil, repository.ErrConflict
	}
	s.Status = status
	s.CancellationReason = reason
	return cloneShare(s), nil
}
