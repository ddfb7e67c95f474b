package testfixtures

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/lab-scheduler/internal/gateway"
)

// FakeStore is an in-memory reservation store served over HTTP. It mirrors
// the remote store's contract closely enough for end-to-end client tests:
// creation runs an atomic check-then-insert under one lock, conflicts come
// back as 409 with the winning reservations, and cancellation is idempotent.
type FakeStore struct {
	mu           sync.Mutex
	equipment    map[string]gateway.Equipment
	categories   []gateway.EquipmentCategory
	reservations map[string]gateway.Reservation
	accounts     map[string]account
	currentUser  gateway.User

	ids    *IDGenerator
	clock  *Clock
	server *httptest.Server
}

type account struct {
	password string
	user     gateway.User
}

// NewFakeStore starts the fake over an httptest server. Callers own the
// returned store and must Close it.
func NewFakeStore() *FakeStore {
	s := &FakeStore{
		equipment:    make(map[string]gateway.Equipment),
		reservations: make(map[string]gateway.Reservation),
		accounts:     make(map[string]account),
		ids:          NewIDGenerator("res"),
		clock:        NewClock(time.Time{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login/", s.handleLogin)
	mux.HandleFunc("POST /auth/refresh/", s.handleRefresh)
	mux.HandleFunc("GET /equipment/{$}", s.handleListEquipment)
	mux.HandleFunc("GET /equipment/categories/{$}", s.handleListCategories)
	mux.HandleFunc("GET /equipment/{id}/{$}", s.handleGetEquipment)
	mux.HandleFunc("GET /equipment/{id}/availability/", s.handleAvailability)
	mux.HandleFunc("GET /reservations/{$}", s.handleListReservations)
	mux.HandleFunc("POST /reservations/{$}", s.handleCreateReservation)
	mux.HandleFunc("PUT /reservations/{id}/cancel/", s.handleCancelReservation)
	mux.HandleFunc("GET /admin/reservations/", s.handleListAllReservations)

	s.server = httptest.NewServer(mux)
	return s
}

// URL returns the base URL clients should be rooted at.
func (s *FakeStore) URL() string {
	return s.server.URL
}

// Close shuts the server down.
func (s *FakeStore) Close() {
	s.server.Close()
}

// Clock exposes the store's controllable time source.
func (s *FakeStore) Clock() *Clock {
	return s.clock
}

// SeedAccount registers a login. The first seeded account becomes the
// store's notion of the calling user for scoped listings.
func (s *FakeStore) SeedAccount(username, password string, user gateway.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[username] = account{password: password, user: user}
	if s.currentUser.ID == "" {
		s.currentUser = user
	}
}

// AddEquipment seeds a catalog entry.
func (s *FakeStore) AddEquipment(e gateway.Equipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.equipment[e.ID] = e
}

// AddCategory seeds a category.
func (s *FakeStore) AddCategory(c gateway.EquipmentCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, c)
}

// AddReservation seeds an existing reservation.
func (s *FakeStore) AddReservation(r gateway.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations[r.ID] = r
}

// Reservation returns a stored reservation by ID.
func (s *FakeStore) Reservation(id string) (gateway.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	return r, ok
}

func (s *FakeStore) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds gateway.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, `{"detail":"malformed request"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[creds.Username]
	if ok && acct.password == creds.Password {
		s.currentUser = acct.user
	}
	s.mu.Unlock()

	if !ok || acct.password != creds.Password {
		http.Error(w, `{"detail":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, gateway.LoginResponse{
		Access:  "fake-access-" + creds.Username,
		Refresh: "fake-refresh-" + creds.Username,
		User:    acct.user,
	})
}

func (s *FakeStore) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !strings.HasPrefix(body.Refresh, "fake-refresh-") {
		http.Error(w, `{"detail":"token is invalid or expired"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, gateway.RefreshResponse{Access: "fake-access-rotated"})
}

func (s *FakeStore) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	s.mu.Lock()
	list := make([]gateway.Equipment, 0, len(s.equipment))
	for _, e := range s.equipment {
		if v := query.Get("category"); v != "" && e.Category != v {
			continue
		}
		if v := query.Get("status"); v != "" && e.Status != v {
			continue
		}
		if v := query.Get("location"); v != "" && e.Location != v {
			continue
		}
		if v := query.Get("search"); v != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(v)) {
			continue
		}
		list = append(list, e)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	writeJSON(w, http.StatusOK, list)
}

func (s *FakeStore) handleGetEquipment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	e, ok := s.equipment[r.PathValue("id")]
	s.mu.Unlock()
	if !ok {
		http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *FakeStore) handleListCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := append([]gateway.EquipmentCategory(nil), s.categories...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, list)
}

func (s *FakeStore) handleAvailability(w http.ResponseWriter, r *http.Request) {
	start, err1 := time.Parse(time.RFC3339, r.URL.Query().Get("start_time"))
	end, err2 := time.Parse(time.RFC3339, r.URL.Query().Get("end_time"))
	if err1 != nil || err2 != nil || !start.Before(end) {
		http.Error(w, `{"detail":"invalid window"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	conflicts := s.overlapping(r.PathValue("id"), start, end)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, gateway.AvailabilityResult{
		Available:               len(conflicts) == 0,
		ConflictingReservations: conflicts,
	})
}

func (s *FakeStore) handleListReservations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := make([]gateway.Reservation, 0, len(s.reservations))
	for _, res := range s.reservations {
		if res.UserID == s.currentUser.ID {
			list = append(list, res)
		}
	}
	s.mu.Unlock()

	sortReservations(list)
	writeJSON(w, http.StatusOK, list)
}

func (s *FakeStore) handleListAllReservations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	privileged := s.currentUser.Role == "super_admin" || s.currentUser.Role == "lab_manager"
	list := make([]gateway.Reservation, 0, len(s.reservations))
	for _, res := range s.reservations {
		list = append(list, res)
	}
	s.mu.Unlock()

	if !privileged {
		http.Error(w, `{"detail":"forbidden"}`, http.StatusForbidden)
		return
	}
	sortReservations(list)
	writeJSON(w, http.StatusOK, list)
}

func (s *FakeStore) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var req gateway.CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"detail":"malformed request"}`, http.StatusBadRequest)
		return
	}
	if !req.StartTime.Before(req.EndTime) {
		http.Error(w, `{"detail":"start_time must precede end_time"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	equipment, ok := s.equipment[req.EquipmentID]
	if !ok {
		http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
		return
	}

	// Check and insert happen under one lock, matching the store's
	// atomicity guarantee.
	if conflicts := s.overlapping(req.EquipmentID, req.StartTime, req.EndTime); len(conflicts) > 0 {
		writeJSON(w, http.StatusConflict, map[string]any{
			"detail":                   "requested window overlaps an existing reservation",
			"conflicting_reservations": conflicts,
		})
		return
	}

	created := gateway.Reservation{
		ID:               s.ids.Next(),
		UserID:           s.currentUser.ID,
		UserName:         s.currentUser.Username,
		EquipmentID:      equipment.ID,
		EquipmentName:    equipment.Name,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		Status:           "pending",
		Purpose:          req.Purpose,
		IsRecurring:      req.IsRecurring,
		RecurringPattern: req.RecurringPattern,
		RecurringEndDate: req.RecurringEndDate,
		CreatedAt:        s.clock.Now(),
	}
	s.reservations[created.ID] = created
	writeJSON(w, http.StatusCreated, created)
}

func (s *FakeStore) handleCancelReservation(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[r.PathValue("id")]
	if !ok {
		http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
		return
	}
	res.Status = "cancelled"
	s.reservations[res.ID] = res
	w.WriteHeader(http.StatusNoContent)
}

// overlapping returns reservations on the equipment whose half-open window
// intersects [start, end) and whose status blocks new bookings. Callers must
// hold the lock.
func (s *FakeStore) overlapping(equipmentID string, start, end time.Time) []gateway.Reservation {
	conflicts := make([]gateway.Reservation, 0, 1)
	for _, res := range s.reservations {
		if res.EquipmentID != equipmentID {
			continue
		}
		if res.Status != "pending" && res.Status != "confirmed" && res.Status != "active" {
			continue
		}
		if res.StartTime.Before(end) && start.Before(res.EndTime) {
			conflicts = append(conflicts, res)
		}
	}
	sortReservations(conflicts)
	return conflicts
}

func sortReservations(list []gateway.Reservation) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].StartTime.Equal(list[j].StartTime) {
			return list[i].ID < list[j].ID
		}
		return list[i].StartTime.Before(list[j].StartTime)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
