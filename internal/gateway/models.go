package gateway

import "time"

// Equipment mirrors the reservation store's equipment resource. The catalog
// is owned by the store; clients treat it as read-only input.
type Equipment struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Description         string            `json:"description"`
	Category            string            `json:"category"`
	CategoryName        string            `json:"category_name"`
	Specifications      map[string]string `json:"specifications"`
	Location            string            `json:"location"`
	Status              string            `json:"status"`
	ImageURL            string            `json:"image,omitempty"`
	MaxReservationHours int               `json:"max_reservation_hours"`
	RequiresTraining    bool              `json:"requires_training"`
	IsActive            bool              `json:"is_active"`
	LastMaintenance     *time.Time        `json:"last_maintenance"`
	NextMaintenance     *time.Time        `json:"next_maintenance"`
	CreatedAt           time.Time         `json:"created_at"`
}

// EquipmentCategory mirrors the store's category resource.
type EquipmentCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// EquipmentFilter narrows equipment listings. All fields are advisory: the
// store applies them server-side and clients may refine further.
type EquipmentFilter struct {
	Category string
	Status   string
	Location string
	Search   string
	Ordering string
}

// Reservation mirrors the store's reservation resource. Timestamps are UTC
// instants; lab-local interpretation never happens on the wire.
type Reservation struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user"`
	UserName         string     `json:"user_name"`
	EquipmentID      string     `json:"equipment"`
	EquipmentName    string     `json:"equipment_name"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          time.Time  `json:"end_time"`
	Status           string     `json:"status"`
	Purpose          string     `json:"purpose"`
	IsRecurring      bool       `json:"is_recurring"`
	RecurringPattern string     `json:"recurring_pattern,omitempty"`
	RecurringEndDate *time.Time `json:"recurring_end_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// CreateReservationRequest is the creation payload. The store performs the
// authoritative, race-free overlap check before accepting it.
type CreateReservationRequest struct {
	EquipmentID      string     `json:"equipment"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          time.Time  `json:"end_time"`
	Purpose          string     `json:"purpose"`
	IsRecurring      bool       `json:"is_recurring,omitempty"`
	RecurringPattern string     `json:"recurring_pattern,omitempty"`
	RecurringEndDate *time.Time `json:"recurring_end_date,omitempty"`
}

// AvailabilityResult is the store's answer to an authoritative pre-check.
type AvailabilityResult struct {
	Available               bool          `json:"available"`
	ConflictingReservations []Reservation `json:"conflicting_reservations"`
}

// User mirrors the store's account resource.
type User struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	Role              string `json:"role"`
	InstitutionID     string `json:"institution_id"`
	Department        string `json:"department"`
	PhoneNumber       string `json:"phone_number"`
	IsApproved        bool   `json:"is_approved"`
	TrainingCompleted bool   `json:"training_completed"`
}

// LoginRequest carries credentials to the store's token endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the store's token grant: a short-lived access token, a
// refresh token, and the authenticated account.
type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

// RefreshResponse carries a rotated access token.
type RefreshResponse struct {
	Access string `json:"access"`
}
