package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/catalog"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/event"
)

func TestHandleIgnoresOtherEvents(t *testing.T) {
	h := NewHandler(catalog.Static())

	emitted, err := h.Handle(context.Background(), event.Validated("tx-1", &event.Booking{}))
	require.NoError(t, err)
	assert.Empty(t, emitted)
}

func TestHandleMissingData(t *testing.T) {
	h := NewHandler(catalog.Static())

	emitted, err := h.Handle(context.Background(), event.New(event.TypeInitiated, "tx-1"))
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	assert.Equal(t, event.TypeValidationFailed, emitted[0].EventType)
	assert.Equal(t, []string{"Missing booking data"}, emitted[0].Errors)
}

func TestHandleValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		booking event.Booking
		errors  []string
	}{
		{
			name: "missing name",
			booking: event.Booking{
				UserName:   "   ",
				UserGender: "male",
				UserDOB:    "1990-05-20",
				ServiceIDs: []int{1},
			},
			errors: []string{"Name required"},
		},
		{
			name: "invalid gender",
			booking: event.Booking{
				UserName:   "Ravi",
				UserGender: "other",
				UserDOB:    "1990-05-20",
				ServiceIDs: []int{1},
			},
			errors: []string{"Invalid gender"},
		},
		{
			name: "invalid gender with restricted service",
			booking: event.Booking{
				UserName:   "Ravi",
				UserGender: "other",
				UserDOB:    "1990-05-20",
				ServiceIDs: []int{1, 2},
			},
			errors: []string{
				"Invalid gender",
				"Service 'Gynecology' not available for other",
			},
		},
		{
			name: "gender-restricted service",
			booking: event.Booking{
				UserName:   "Ravi",
				UserGender: "male",
				UserDOB:    "1990-05-20",
				ServiceIDs: []int{2},
			},
			errors: []string{"Service 'Gynecology' not available for male"},
		},
		{
			name: "multiple restricted services",
			booking: event.Booking{
				UserName:   "Priya",
				UserGender: "female",
				UserDOB:    "1994-03-15",
				ServiceIDs: []int{6, 7},
			},
			errors: []string{
				"Service 'Urology' not available for female",
				"Service 'Prostate Screening' not available for female",
			},
		},
		{
			name: "name and gender both invalid",
			booking: event.Booking{
				UserName:   "",
				UserGender: "",
				UserDOB:    "1990-05-20",
				ServiceIDs: []int{1},
			},
			errors: []string{"Name required", "Invalid gender"},
		},
	}

	h := NewHandler(catalog.Static())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booking := tt.booking
			emitted, err := h.Handle(context.Background(), event.Initiated("tx-1", &booking))
			require.NoError(t, err)
			require.Len(t, emitted, 1)
			assert.Equal(t, event.TypeValidationFailed, emitted[0].EventType)
			assert.Equal(t, tt.errors, emitted[0].Errors)
		})
	}
}

func TestHandleValidBooking(t *testing.T) {
	h := NewHandler(catalog.Static())

	booking := &event.Booking{
		UserName:   "Priya",
		UserGender: "female",
		UserDOB:    "1994-03-15",
		ServiceIDs: []int{1, 2, 3},
	}
	emitted, err := h.Handle(context.Background(), event.Initiated("tx-1", booking))
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	assert.Equal(t, event.TypeValidated, emitted[0].EventType)
	assert.Equal(t, booking, emitted[0].Data)
}

func TestHandleUnknownServiceIDsPass(t *testing.T) {
	h := NewHandler(catalog.Static())

	// Unknown ids are dropped by the catalog, not rejected.
	booking := &event.Booking{
		UserName:   "Ravi",
		UserGender: "male",
		UserDOB:    "1990-05-20",
		ServiceIDs: []int{1, 999},
	}
	emitted, err := h.Handle(context.Background(), event.Initiated("tx-1", booking))
	require.NoError(t, err)
	require.Len(t, emitted, 1)
	assert.Equal(t, event.TypeValidated, emitted[0].EventType)
}
