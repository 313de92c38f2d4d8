package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/bus"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/catalog"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/event"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/orchestrator"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, *event.Envelope) error {
	return errors.New("broker unavailable")
}

func newTestRouter(publisher bus.Publisher, states *orchestrator.MemoryStateStore) *gin.Engine {
	h := NewHandler(publisher, states, catalog.Static())
	return NewRouter(h, &RouterConfig{})
}

func postBooking(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateBookingAccepted(t *testing.T) {
	memBus := bus.NewMemoryBus()
	seen := make(chan *event.Envelope, 1)
	memBus.Subscribe(bus.HandlerFunc(func(_ context.Context, e *event.Envelope) ([]*event.Envelope, error) {
		seen <- e
		return nil, nil
	}))

	router := newTestRouter(memBus, orchestrator.NewMemoryStateStore())

	w := postBooking(router, `{
		"user_name": "Priya",
		"user_gender": "female",
		"user_dob": "1994-03-15",
		"service_ids": [1, 4]
	}`)

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp CreateBookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TransactionID)
	assert.Equal(t, "initiated", resp.Status)

	memBus.Drain()
	published := <-seen
	assert.Equal(t, event.TypeInitiated, published.EventType)
	assert.Equal(t, resp.TransactionID, published.TransactionID)
	require.NotNil(t, published.Data)
	assert.Equal(t, "Priya", published.Data.UserName)
	assert.Equal(t, []int{1, 4}, published.Data.ServiceIDs)
}

func TestCreateBookingShapeValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing name", `{"user_gender":"male","user_dob":"1990-05-20","service_ids":[1]}`},
		{"bad gender", `{"user_name":"Ravi","user_gender":"unknown","user_dob":"1990-05-20","service_ids":[1]}`},
		{"bad dob", `{"user_name":"Ravi","user_gender":"male","user_dob":"20-05-1990","service_ids":[1]}`},
		{"empty services", `{"user_name":"Ravi","user_gender":"male","user_dob":"1990-05-20","service_ids":[]}`},
	}

	router := newTestRouter(bus.NewMemoryBus(), orchestrator.NewMemoryStateStore())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postBooking(router, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateBookingPublishFailure(t *testing.T) {
	router := newTestRouter(failingPublisher{}, orchestrator.NewMemoryStateStore())

	w := postBooking(router, `{
		"user_name": "Ravi",
		"user_gender": "male",
		"user_dob": "1990-05-20",
		"service_ids": [1]
	}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetStatus(t *testing.T) {
	states := orchestrator.NewMemoryStateStore()
	_, err := states.Append(context.Background(), event.Initiated("tx-1", &event.Booking{UserName: "Ravi"}))
	require.NoError(t, err)
	_, err = states.Append(context.Background(), event.Validated("tx-1", &event.Booking{UserName: "Ravi"}))
	require.NoError(t, err)

	router := newTestRouter(bus.NewMemoryBus(), states)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/tx-1/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "tx-1", resp.TransactionID)
	assert.Equal(t, event.TypeValidated, resp.CurrentState)
	assert.Len(t, resp.Events, 2)
}

func TestGetStatusNotFound(t *testing.T) {
	router := newTestRouter(bus.NewMemoryBus(), orchestrator.NewMemoryStateStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/tx-missing/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListServices(t *testing.T) {
	router := newTestRouter(bus.NewMemoryBus(), orchestrator.NewMemoryStateStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/services?gender=male", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp ServicesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Services, 6)
	for _, s := range resp.Services {
		assert.NotEqual(t, catalog.GenderFemale, s.Gender)
	}
}

func TestListServicesAll(t *testing.T) {
	router := newTestRouter(bus.NewMemoryBus(), orchestrator.NewMemoryStateStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/services", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp ServicesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Services, 8)
}

func TestListServicesInvalidGender(t *testing.T) {
	router := newTestRouter(bus.NewMemoryBus(), orchestrator.NewMemoryStateStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/services?gender=unknown", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(bus.NewMemoryBus(), orchestrator.NewMemoryStateStore())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
