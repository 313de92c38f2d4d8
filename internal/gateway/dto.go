package gateway

import (
	"fmt"
	"time"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/catalog"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/orchestrator"
)

// CreateBookingRequest is the POST /api/v1/bookings body.
type CreateBookingRequest struct {
	UserName   string `json:"user_name"`
	UserGender string `json:"user_gender"`
	UserDOB    string `json:"user_dob"`
	ServiceIDs []int  `json:"service_ids"`
}

// Validate checks request shape only; business validation happens in
// the saga.
func (r *CreateBookingRequest) Validate() error {
	if r.UserName == "" {
		return fmt.Errorf("user_name is required")
	}
	if r.UserGender != catalog.GenderMale && r.UserGender != catalog.GenderFemale {
		return fmt.Errorf("user_gender must be male or female")
	}
	if _, err := time.Parse("2006-01-02", r.UserDOB); err != nil {
		return fmt.Errorf("user_dob must be a YYYY-MM-DD date")
	}
	if len(r.ServiceIDs) == 0 {
		return fmt.Errorf("service_ids must be a non-empty list")
	}
	return nil
}

// CreateBookingResponse is the POST /api/v1/bookings response.
type CreateBookingResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// StatusResponse is the GET /api/v1/bookings/:id/status response.
type StatusResponse struct {
	TransactionID string                  `json:"transaction_id"`
	CurrentState  string                  `json:"current_state"`
	Events        []orchestrator.LogEntry `json:"events"`
}

// ServicesResponse is the GET /api/v1/services response.
type ServicesResponse struct {
	Services []catalog.Service `json:"services"`
}
