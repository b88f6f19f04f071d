package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"smy-nav-backend/internal/config"
	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/security"
	"smy-nav-backend/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	router       http.Handler
	tokens       security.TokenManager
	auth         *MockAuthService
	participants *MockParticipantService
	batches      *MockBatchService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		tokens:       security.NewTokenManager(testSecret, time.Hour),
		auth:         new(MockAuthService),
		participants: new(MockParticipantService),
		batches:      new(MockBatchService),
	}
	env.router = NewRouter(RouterConfig{
		Services: Services{
			Auth:         env.auth,
			Participants: env.participants,
			Batches:      env.batches,
		},
		Tokens:      env.tokens,
		Policy:      security.DefaultPolicy,
		Catalog:     config.TrainingCatalog{Programs: []config.TrainingProgram{{Code: "BST", Name: "Basic Safety Training", Price: 1500000}}},
		Environment: "test",
	})
	return env
}

func (e *testEnv) token(t *testing.T, role domain.Role, agencyID *int32) string {
	t.Helper()
	tok, err := e.tokens.GenerateAccessToken(&domain.User{ID: 9, Username: "u9", Role: role, AgencyID: agencyID})
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type testBody struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *errorBody      `json:"error"`
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) testBody {
	t.Helper()
	var b testBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	return b
}

func TestRouter_Public(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Health", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/health", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	})

	t.Run("Training types", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/training-types/BST", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Basic Safety Training")

		rec = env.do(http.MethodGet, "/api/training-types/XYZ", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Unknown route", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/nothing-here", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Uploads without local storage", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/uploads/participants/a.pdf", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRouter_Login(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Success", func(t *testing.T) {
		user := &domain.User{ID: 3, Username: "admin", Role: domain.RoleAdmin}
		env.auth.On("Login", mock.Anything, "admin", "secret1").Return("tok", user, nil).Once()

		rec := env.do(http.MethodPost, "/api/auth/login", "", `{"username":"admin","password":"secret1"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var data struct {
			Token string      `json:"token"`
			User  domain.User `json:"user"`
		}
		require.NoError(t, json.Unmarshal(decodeBody(t, rec).Data, &data))
		assert.Equal(t, "tok", data.Token)
		assert.Equal(t, "admin", data.User.Username)
	})

	t.Run("Login by email", func(t *testing.T) {
		env.auth.On("Login", mock.Anything, "a@b.co", "pw").Return("", nil, service.ErrInvalidCredentials).Once()

		rec := env.do(http.MethodPost, "/api/auth/login", "", `{"email":"a@b.co","password":"pw"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", decodeBody(t, rec).Error.Message)
	})

	t.Run("Missing password", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/auth/login", "", `{"username":"admin"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.False(t, body.Success)
		assert.Contains(t, body.Error.Fields, "password")
	})

	t.Run("Malformed body", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/auth/login", "", `{"username":`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid request body", decodeBody(t, rec).Error.Message)
	})

	env.auth.AssertExpectations(t)
}

func TestRouter_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	agency := int32(3)
	tok := env.token(t, domain.RoleAgent, &agency)

	t.Run("Success", func(t *testing.T) {
		in := service.UpdateProfileInput{FullName: "Agen Abadi", Email: "agen@abadi.co.id"}
		env.auth.On("UpdateProfile", mock.Anything, int32(9), in).
			Return(&domain.User{ID: 9, FullName: in.FullName, Email: in.Email}, nil).Once()

		rec := env.do(http.MethodPut, "/api/auth/me", tok, `{"fullName":"Agen Abadi","email":"agen@abadi.co.id"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Profile updated successfully", body.Message)
		assert.Contains(t, string(body.Data), `"email":"agen@abadi.co.id"`)
	})

	t.Run("Email taken", func(t *testing.T) {
		env.auth.On("UpdateProfile", mock.Anything, int32(9), mock.Anything).
			Return(nil, &domain.ConflictError{Message: "Email is already taken"}).Once()

		rec := env.do(http.MethodPut, "/api/auth/me", tok, `{"fullName":"Agen","email":"admin@smy.co.id"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Email is already taken", decodeBody(t, rec).Error.Message)
	})

	t.Run("Invalid email", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/api/auth/me", tok, `{"fullName":"Agen","email":"nope"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeBody(t, rec).Error.Fields, "email")
	})

	t.Run("Requires a token", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/api/auth/me", "", `{"fullName":"Agen","email":"a@b.co"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRouter_Authentication(t *testing.T) {
	env := newTestEnv(t)
	agency := int32(4)

	t.Run("No token", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/participants", "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Access token required", decodeBody(t, rec).Error.Message)
	})

	t.Run("Bad token", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/participants", "garbage", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid or expired token", decodeBody(t, rec).Error.Message)
	})

	t.Run("Agent cannot manage batches", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/batches", env.token(t, domain.RoleAgent, &agency), "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Agent cannot verify", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/participants/5/verify", env.token(t, domain.RoleAgent, &agency), "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		env.participants.AssertNotCalled(t, "Transition")
	})

	t.Run("Actor reaches the service", func(t *testing.T) {
		env.participants.On("List", mock.Anything, mock.MatchedBy(func(a domain.Actor) bool {
			return a.UserID == 9 && a.Role == domain.RoleAgent && a.AgencyID != nil && *a.AgencyID == agency
		}), mock.Anything).Return([]domain.Participant{{ID: 1, FullName: "Budi"}}, 1, nil).Once()

		rec := env.do(http.MethodGet, "/api/participants?page=1&limit=10", env.token(t, domain.RoleAgent, &agency), "")
		require.Equal(t, http.StatusOK, rec.Code)
		var data struct {
			Participants []domain.Participant `json:"participants"`
			Pagination   pagination           `json:"pagination"`
		}
		require.NoError(t, json.Unmarshal(decodeBody(t, rec).Data, &data))
		assert.Len(t, data.Participants, 1)
		assert.Equal(t, 1, data.Pagination.TotalItems)
		assert.Equal(t, 1, data.Pagination.TotalPages)
	})
}

func TestRouter_Participants(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token(t, domain.RoleAdmin, nil)

	t.Run("Invalid status filter", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/participants?status=verified,bogus", admin, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bogus", decodeBody(t, rec).Error.Fields["status"])
	})

	t.Run("Status filter parsed", func(t *testing.T) {
		env.participants.On("List", mock.Anything, mock.Anything, mock.MatchedBy(func(f domain.ParticipantFilter) bool {
			return len(f.Statuses) == 2 && f.Statuses[0] == domain.ParticipantStatusSubmitted && f.Statuses[1] == domain.ParticipantStatusVerified
		})).Return([]domain.Participant{}, 0, nil).Once()

		rec := env.do(http.MethodGet, "/api/participants?status=submitted,%20verified", admin, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Reject passes reason", func(t *testing.T) {
		p := &domain.Participant{ID: 5, Status: domain.ParticipantStatusRejected}
		env.participants.On("Transition", mock.Anything, mock.Anything, int32(5), domain.ActionReject,
			service.TransitionOptions{Reason: "Blurry KTP"}).Return(p, nil).Once()

		rec := env.do(http.MethodPost, "/api/participants/5/reject", admin, `{"reason":"  Blurry KTP "}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Assign batch without body", func(t *testing.T) {
		p := &domain.Participant{ID: 6, Status: domain.ParticipantStatusWaitingQuota}
		env.participants.On("Transition", mock.Anything, mock.Anything, int32(6), domain.ActionAssignBatch,
			service.TransitionOptions{}).Return(p, nil).Once()

		rec := env.do(http.MethodPost, "/api/participants/6/assign-batch", admin, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Wrong state", func(t *testing.T) {
		env.participants.On("Transition", mock.Anything, mock.Anything, int32(7), domain.ActionComplete, mock.Anything).
			Return(nil, &domain.StateError{Message: "Participant is not waiting for dispatch"}).Once()

		rec := env.do(http.MethodPost, "/api/participants/7/complete", admin, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Participant is not waiting for dispatch", decodeBody(t, rec).Error.Message)
	})

	t.Run("Not found", func(t *testing.T) {
		env.participants.On("Get", mock.Anything, mock.Anything, int32(404)).Return(nil, domain.NotFound("participant")).Once()

		rec := env.do(http.MethodGet, "/api/participants/404", admin, "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Participant not found", decodeBody(t, rec).Error.Message)
	})

	t.Run("Create requires multipart", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/participants", admin, `{"fullName":"Budi"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		env.participants.AssertNotCalled(t, "Create")
	})

	env.participants.AssertExpectations(t)
}

func TestRouter_Batches(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token(t, domain.RoleAdmin, nil)

	t.Run("Send to center", func(t *testing.T) {
		b := &domain.TrainingBatch{ID: 2, BatchNumber: "BST-2026-001", MaxParticipants: 30, MinParticipants: 10, ParticipantCount: 15, Status: domain.BatchStatusSentToCenter}
		env.batches.On("SendToCenter", mock.Anything, mock.Anything, int32(2)).Return(b, int64(15), nil).Once()

		rec := env.do(http.MethodPost, "/api/batches/2/send-to-center", admin, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var data struct {
			Batch struct {
				BatchNumber string            `json:"batchNumber"`
				Stats       domain.BatchStats `json:"stats"`
			} `json:"batch"`
			Moved int64 `json:"participantsMoved"`
		}
		require.NoError(t, json.Unmarshal(decodeBody(t, rec).Data, &data))
		assert.Equal(t, "BST-2026-001", data.Batch.BatchNumber)
		assert.Equal(t, int64(15), data.Moved)
		assert.Equal(t, 50.0, data.Batch.Stats.FillPercentage)
		assert.True(t, data.Batch.Stats.IsReady)
	})

	t.Run("Create rejects unknown program", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/batches", admin, `{"trainingProgram":"XYZ"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid training program", decodeBody(t, rec).Error.Fields["trainingProgram"])
		env.batches.AssertNotCalled(t, "Create")
	})

	t.Run("Panic is recovered", func(t *testing.T) {
		env.batches.On("Overview", mock.Anything).Panic("boom").Once()

		rec := env.do(http.MethodGet, "/api/batches/overview", admin, "")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal server error", decodeBody(t, rec).Error.Message)
	})
}
