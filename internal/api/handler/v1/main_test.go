package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ticketgate/gate-api/internal/api/middleware"
	"github.com/ticketgate/gate-api/internal/domain"
	"github.com/ticketgate/gate-api/internal/pkg/jwthelper"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockAdmissionService struct {
	mock.Mock
}

func (m *mockAdmissionService) Admit(ctx context.Context, req domain.ScanRequest) domain.Outcome {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Outcome)
}

func (m *mockAdmissionService) AdmitAdvanced(ctx context.Context, req domain.ScanRequest) domain.Outcome {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Outcome)
}

func (m *mockAdmissionService) BulkAdmit(ctx context.Context, eventID uint, items []domain.BulkItem) []domain.ItemResult {
	args := m.Called(ctx, eventID, items)
	return args.Get(0).([]domain.ItemResult)
}

func (m *mockAdmissionService) ResetCounters(ctx context.Context, eventID uint, ticketCode string) domain.Outcome {
	args := m.Called(ctx, eventID, ticketCode)
	return args.Get(0).(domain.Outcome)
}

type mockRosterService struct {
	mock.Mock
}

func (m *mockRosterService) FindAttendee(ctx context.Context, eventID uint, ticketCode string) (domain.Attendee, error) {
	args := m.Called(ctx, eventID, ticketCode)
	return args.Get(0).(domain.Attendee), args.Error(1)
}

func (m *mockRosterService) ListAttendees(ctx context.Context, eventID uint) ([]domain.Attendee, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).([]domain.Attendee), args.Error(1)
}

func (m *mockRosterService) History(ctx context.Context, eventID uint, ticketCode string) ([]domain.CheckIn, error) {
	args := m.Called(ctx, eventID, ticketCode)
	return args.Get(0).([]domain.CheckIn), args.Error(1)
}

type mockSyncService struct {
	mock.Mock
}

func (m *mockSyncService) ImportRoster(ctx context.Context, eventID uint, attendees []domain.Attendee) ([]domain.Attendee, error) {
	args := m.Called(ctx, eventID, attendees)
	return args.Get(0).([]domain.Attendee), args.Error(1)
}

func (m *mockSyncService) Sync(ctx context.Context, eventID uint) ([]domain.Attendee, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).([]domain.Attendee), args.Error(1)
}

func (m *mockSyncService) UpsertEvent(ctx context.Context, event domain.Event) (domain.Event, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(domain.Event), args.Error(1)
}

func (m *mockSyncService) UpsertTicketType(ctx context.Context, ticketType domain.TicketType) (domain.TicketType, error) {
	args := m.Called(ctx, ticketType)
	return args.Get(0).(domain.TicketType), args.Error(1)
}

const (
	signingKey = "test-signing-key"
	operator   = "north-gate"
)

func authenticated() gin.HandlerFunc {
	return middleware.NewAuthenticator(signingKey).VerifyJWT()
}

func operatorToken(t *testing.T) string {
	t.Helper()

	token, err := jwthelper.GenerateToken([]byte(signingKey), operator, "scanner", time.Hour)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+operatorToken(t))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func newRequestWithoutToken(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}
