package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) Authorization() string { return string(s) }

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, Options{Tokens: staticTokens("Bearer test-token")})
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	_, err := NewClient("", Options{})
	require.Error(t, err)

	client, err := NewClient("http://store.example.com/", Options{})
	require.NoError(t, err)
	assert.Equal(t, "http://store.example.com", client.baseURL)
}

func TestListEquipment(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/equipment/", r.URL.Path)
		assert.Equal(t, "microscopes", r.URL.Query().Get("category"))
		assert.Equal(t, "available", r.URL.Query().Get("status"))
		assert.Equal(t, "zeiss", r.URL.Query().Get("search"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		json.NewEncoder(w).Encode([]Equipment{{ID: "eq-1", Name: "Zeiss Electron Microscope"}})
	}))

	equipment, err := client.ListEquipment(context.Background(), EquipmentFilter{
		Category: "microscopes",
		Status:   "available",
		Search:   "zeiss",
	})
	require.NoError(t, err)
	require.Len(t, equipment, 1)
	assert.Equal(t, "eq-1", equipment[0].ID)
}

func TestCreateReservation(t *testing.T) {
	start := time.Date(2025, time.March, 3, 16, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	t.Run("accepted reservation is decoded", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/reservations/", r.URL.Path)

			var req CreateReservationRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "eq-1", req.EquipmentID)
			assert.True(t, req.StartTime.Equal(start))

			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(Reservation{ID: "res-1", Status: "pending"})
		}))

		created, err := client.CreateReservation(context.Background(), CreateReservationRequest{
			EquipmentID: "eq-1",
			StartTime:   start,
			EndTime:     end,
			Purpose:     "cell imaging",
		})
		require.NoError(t, err)
		assert.Equal(t, "res-1", created.ID)
		assert.Equal(t, "pending", created.Status)
	})

	t.Run("409 maps to ConflictError with conflicts", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]any{
				"detail":                   "equipment already reserved",
				"conflicting_reservations": []Reservation{{ID: "res-9", Status: "confirmed"}},
			})
		}))

		_, err := client.CreateReservation(context.Background(), CreateReservationRequest{
			EquipmentID: "eq-1",
			StartTime:   start,
			EndTime:     end,
		})
		require.Error(t, err)
		require.True(t, IsConflict(err))

		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		require.Len(t, conflict.Conflicts, 1)
		assert.Equal(t, "res-9", conflict.Conflicts[0].ID)
	})
}

func TestCancelReservation(t *testing.T) {
	calls := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/reservations/res-1/cancel/", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	// Cancellation is idempotent at the store; repeated calls succeed.
	require.NoError(t, client.CancelReservation(context.Background(), "res-1"))
	require.NoError(t, client.CancelReservation(context.Background(), "res-1"))
	assert.Equal(t, 2, calls)
}

func TestCheckAvailability(t *testing.T) {
	start := time.Date(2025, time.March, 3, 16, 0, 0, 0, time.UTC)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/equipment/eq-1/availability/", r.URL.Path)
		assert.Equal(t, "2025-03-03T16:00:00Z", r.URL.Query().Get("start_time"))
		json.NewEncoder(w).Encode(AvailabilityResult{Available: true})
	}))

	result, err := client.CheckAvailability(context.Background(), "eq-1", start, start.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, result.Available)
}

func TestFailureMapping(t *testing.T) {
	t.Run("401 maps to ErrUnauthenticated", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		_, err := client.ListReservations(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnauthenticated)

		var transport *TransportError
		require.ErrorAs(t, err, &transport)
		assert.Equal(t, http.StatusUnauthorized, transport.StatusCode)
	})

	t.Run("5xx maps to TransportError", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream database unavailable", http.StatusBadGateway)
		}))

		_, err := client.ListAllReservations(context.Background())
		require.Error(t, err)
		assert.False(t, IsConflict(err))

		var transport *TransportError
		require.ErrorAs(t, err, &transport)
		assert.Equal(t, http.StatusBadGateway, transport.StatusCode)
	})

	t.Run("network failure maps to TransportError", func(t *testing.T) {
		client, err := NewClient("http://127.0.0.1:1", Options{
			HTTPClient: &http.Client{Timeout: 200 * time.Millisecond},
		})
		require.NoError(t, err)

		_, err = client.ListReservations(context.Background())
		var transport *TransportError
		require.ErrorAs(t, err, &transport)
		assert.Zero(t, transport.StatusCode)
	})
}

func TestLogin(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login/", r.URL.Path)

		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Username != "sarah" || req.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(LoginResponse{
			Access:  "access-token",
			Refresh: "refresh-token",
			User:    User{ID: "u-1", Username: "sarah", Role: "researcher"},
		})
	}))

	grant, err := client.Login(context.Background(), LoginRequest{Username: "sarah", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "access-token", grant.Access)
	assert.Equal(t, "researcher", grant.User.Role)

	_, err = client.Login(context.Background(), LoginRequest{Username: "sarah", Password: "wrong"})
	assert.True(t, errors.Is(err, ErrUnauthenticated))
}
