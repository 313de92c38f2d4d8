// Package gateway exposes the client-facing HTTP surface: booking
// creation, status reads, and the service catalog.
package gateway

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/bus"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/catalog"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/event"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/internal/orchestrator"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/logger"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/response"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/telemetry"
)

// Handler serves the booking HTTP API. Status reads go straight to the
// orchestrator's state store; downstream outcomes are only ever seen by
// polling.
type Handler struct {
	publisher bus.Publisher
	states    orchestrator.StateStore
	catalog   catalog.Catalog
}

// NewHandler creates the gateway handler.
func NewHandler(publisher bus.Publisher, states orchestrator.StateStore, cat catalog.Catalog) *Handler {
	return &Handler{publisher: publisher, states: states, catalog: cat}
}

// CreateBooking validates request shape, mints the transaction id, and
// publishes booking.initiated. It returns before any downstream
// processing; a bus publish failure is fatal for the request.
func (h *Handler) CreateBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "gateway.CreateBooking")
	defer span.End()

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	transactionID := uuid.NewString()
	initiated := event.Initiated(transactionID, &event.Booking{
		UserName:   req.UserName,
		UserGender: req.UserGender,
		UserDOB:    req.UserDOB,
		ServiceIDs: req.ServiceIDs,
	})

	if err := h.publisher.Publish(ctx, initiated); err != nil {
		logger.Get().Error("failed to publish booking.initiated",
			zap.String("transaction_id", transactionID),
			zap.Error(err))
		telemetry.SetSpanError(ctx, err)
		response.BadGateway(c, "failed to submit booking")
		return
	}

	logger.Get().Info("booking initiated",
		zap.String("transaction_id", transactionID),
		zap.String("request_id", GetRequestID(c)))

	c.JSON(http.StatusAccepted, CreateBookingResponse{
		TransactionID: transactionID,
		Status:        "initiated",
	})
}

// GetStatus returns the transaction's current state and event list.
func (h *Handler) GetStatus(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "gateway.GetStatus")
	defer span.End()

	transactionID := c.Param("transaction_id")
	if transactionID == "" {
		response.BadRequest(c, "transaction_id is required")
		return
	}

	state, err := h.states.State(ctx, transactionID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrTransactionNotFound) {
			response.NotFound(c, "transaction not found")
			return
		}
		telemetry.SetSpanError(ctx, err)
		response.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		TransactionID: state.TransactionID,
		CurrentState:  state.CurrentState,
		Events:        state.Events,
	})
}

// ListServices returns the catalog, optionally filtered by gender.
func (h *Handler) ListServices(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "gateway.ListServices")
	defer span.End()

	gender := c.Query("gender")
	if gender != "" && gender != catalog.GenderMale && gender != catalog.GenderFemale {
		response.BadRequest(c, "gender must be male or female")
		return
	}

	services, err := h.catalog.List(ctx, gender)
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		response.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, ServicesResponse{Services: services})
}

// Health is the liveness endpoint.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
