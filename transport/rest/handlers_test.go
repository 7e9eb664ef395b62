package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
)

type managerMock struct {
	mock.Mock
}

func (that *managerMock) CreateSession(ctx context.Context, kind entity.Kind, name string) (*entity.Seating, error) {
	args := that.Called(ctx, kind, name)
	seating, _ := args.Get(0).(*entity.Seating)

	return seating, args.Error(1)
}

func (that *managerMock) JoinSession(ctx context.Context, code, name string) (*entity.Seating, error) {
	args := that.Called(ctx, code, name)
	seating, _ := args.Get(0).(*entity.Seating)

	return seating, args.Error(1)
}

func (that *managerMock) GetSession(ctx context.Context, code string) (*entity.Session, error) {
	args := that.Called(ctx, code)
	session, _ := args.Get(0).(*entity.Session)

	return session, args.Error(1)
}

func newTestServer(t *testing.T) (*httptest.Server, *managerMock) {
	t.Helper()

	manager := &managerMock{}
	server := httptest.NewServer(New(slog.New(slog.NewTextHandler(io.Discard, nil)), manager).Handler())
	t.Cleanup(server.Close)

	return server, manager
}

func doRequest(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()

	request, err := http.NewRequestWithContext(context.Background(), method, url, strings.NewReader(body))
	require.NoError(t, err)

	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)

	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	return response, payload
}

func TestPing(t *testing.T) {
	server, _ := newTestServer(t)

	response, body := doRequest(t, http.MethodGet, server.URL+"/ping", "")

	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestListGames(t *testing.T) {
	server, _ := newTestServer(t)

	response, body := doRequest(t, http.MethodGet, server.URL+"/games", "")

	require.Equal(t, http.StatusOK, response.StatusCode)

	var games map[string][]entity.Kind
	require.NoError(t, json.Unmarshal(body, &games))
	assert.ElementsMatch(t, entity.Kinds(), games["games"])
}

func TestCreateSession(t *testing.T) {
	t.Run("Session is created for a known kind", func(t *testing.T) {
		// Given: a manager that seats the host
		server, manager := newTestServer(t)
		seating := &entity.Seating{SessionCode: "ABC123", PlayerID: "p1", Seat: entity.SeatFirst}
		manager.On("CreateSession", mock.Anything, entity.KindUltimate, "alice").Return(seating, nil).Once()

		// When: the host posts the kind
		response, body := doRequest(t, http.MethodPost, server.URL+"/sessions", `{"kind":"ultimate","name":"alice"}`)

		// Then: the seating comes back
		require.Equal(t, http.StatusCreated, response.StatusCode)

		var got entity.Seating
		require.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "ABC123", got.SessionCode)
		assert.Equal(t, entity.SeatFirst, got.Seat)
	})

	t.Run("Unknown kind is a bad request", func(t *testing.T) {
		server, manager := newTestServer(t)

		response, _ := doRequest(t, http.MethodPost, server.URL+"/sessions", `{"kind":"chess"}`)

		assert.Equal(t, http.StatusBadRequest, response.StatusCode)
		manager.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Malformed body is a bad request", func(t *testing.T) {
		server, _ := newTestServer(t)

		response, _ := doRequest(t, http.MethodPost, server.URL+"/sessions", `{`)

		assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	})

	t.Run("Storage failure is hidden behind a 500", func(t *testing.T) {
		server, manager := newTestServer(t)
		manager.On("CreateSession", mock.Anything, entity.KindClassic, "").
			Return(nil, errors.New("redis down")).Once()

		response, body := doRequest(t, http.MethodPost, server.URL+"/sessions", `{"kind":"classic"}`)

		assert.Equal(t, http.StatusInternalServerError, response.StatusCode)
		assert.NotContains(t, string(body), "redis")
	})
}

func TestJoinSession(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "Joined", status: http.StatusOK},
		{name: "Missing session", err: apperror.ErrSessionNotFound, status: http.StatusNotFound},
		{name: "Full session", err: apperror.ErrSessionFull, status: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, manager := newTestServer(t)

			var seating *entity.Seating
			if tt.err == nil {
				seating = &entity.Seating{SessionCode: "ABC123", Seat: entity.SeatSecond}
			}

			manager.On("JoinSession", mock.Anything, "ABC123", "bob").Return(seating, tt.err).Once()

			response, _ := doRequest(t, http.MethodPost, server.URL+"/sessions/ABC123/join", `{"name":"bob"}`)

			assert.Equal(t, tt.status, response.StatusCode)
		})
	}
}

func TestGetSession(t *testing.T) {
	server, manager := newTestServer(t)
	session := entity.NewSession("ABC123", entity.KindMemory, &entity.Player{ID: "host"})
	manager.On("GetSession", mock.Anything, "ABC123").Return(session, nil).Once()

	response, body := doRequest(t, http.MethodGet, server.URL+"/sessions/ABC123", "")

	require.Equal(t, http.StatusOK, response.StatusCode)

	var got entity.Session
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, entity.KindMemory, got.Kind)
	assert.Equal(t, entity.StatusWaiting, got.Status)
}
