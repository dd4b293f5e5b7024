package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"transferledger/internal/domain"
	"transferledger/internal/service"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService *service.TripService
	gateway     *service.CompletionGateway
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService, gateway *service.CompletionGateway) *TripHandler {
	return &TripHandler{
		tripService: tripService,
		gateway:     gateway,
	}
}

// CreateTripRequest is the HTTP request body for creating a trip.
type CreateTripRequest struct {
	TotalPrice     decimal.Decimal `json:"total_price"`
	Currency       string          `json:"currency" binding:"omitempty,len=3"`
	PaymentMethod  string          `json:"payment_method" binding:"required"`
	CustomerName   string          `json:"customer_name" binding:"max=200"`
	PickupAddress  string          `json:"pickup_address" binding:"max=500"`
	DropoffAddress string          `json:"dropoff_address" binding:"max=500"`
}

// AssignDriverRequest is the HTTP request body for assigning a driver.
// Exactly one of DriverID or AdHoc is set.
type AssignDriverRequest struct {
	DriverID string              `json:"driver_id"`
	AdHoc    *AdHocDriverRequest `json:"ad_hoc"`
}

// AdHocDriverRequest describes a one-off driver.
type AdHocDriverRequest struct {
	Name        string          `json:"name" binding:"required"`
	Phone       string          `json:"phone" binding:"required"`
	PlateNumber string          `json:"plate_number"`
	FixedFee    decimal.Decimal `json:"fixed_fee"`
}

// UpdatePriceRequest is the HTTP request body for changing a trip price.
type UpdatePriceRequest struct {
	TotalPrice decimal.Decimal `json:"total_price"`
}

// CompleteTripRequest is the HTTP request body for completing a trip.
type CompleteTripRequest struct {
	TriggerSource string `json:"trigger_source" binding:"required"`
	ActorID       string `json:"actor_id"`
}

// ScanRequest is the HTTP request body sent by a QR scanner.
type ScanRequest struct {
	Code    string `json:"code" binding:"required"`
	ActorID string `json:"actor_id"`
}

// TripResponse is the HTTP response for trip data.
type TripResponse struct {
	TripID         string              `json:"trip_id"`
	Status         string              `json:"status"`
	TotalPrice     decimal.Decimal     `json:"total_price"`
	Currency       string              `json:"currency"`
	PaymentMethod  string              `json:"payment_method"`
	Driver         *AssignmentResponse `json:"driver,omitempty"`
	CustomerName   string              `json:"customer_name,omitempty"`
	PickupAddress  string              `json:"pickup_address,omitempty"`
	DropoffAddress string              `json:"dropoff_address,omitempty"`
	CreatedAt      string              `json:"created_at"`
	ConfirmedAt    string              `json:"confirmed_at,omitempty"`
	StartedAt      string              `json:"started_at,omitempty"`
	CompletedAt    string              `json:"completed_at,omitempty"`
	CancelledAt    string              `json:"cancelled_at,omitempty"`
}

// AssignmentResponse describes who drives a trip.
type AssignmentResponse struct {
	Kind        string           `json:"kind"`
	DriverID    string           `json:"driver_id,omitempty"`
	Name        string           `json:"name,omitempty"`
	Phone       string           `json:"phone,omitempty"`
	PlateNumber string           `json:"plate_number,omitempty"`
	FixedFee    *decimal.Decimal `json:"fixed_fee,omitempty"`
}

// SettlementResponse is the HTTP response for a trip completion.
type SettlementResponse struct {
	TripID           string          `json:"trip_id"`
	DriverKey        string          `json:"driver_key"`
	Status           string          `json:"status"`
	PaymentMethod    string          `json:"payment_method"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	DriverDelta      decimal.Decimal `json:"driver_delta"`
	CompanyRevenue   decimal.Decimal `json:"company_revenue"`
	CompanyShare     decimal.Decimal `json:"company_share"`
	BalanceBefore    decimal.Decimal `json:"balance_before"`
	BalanceAfter     decimal.Decimal `json:"balance_after"`
	TransactionID    int64           `json:"transaction_id,string"`
	RevenueEntryID   string          `json:"revenue_entry_id,omitempty"`
	TriggerSource    string          `json:"trigger_source"`
	CompletedAt      string          `json:"completed_at"`
	AlreadyCompleted bool            `json:"already_completed"`
}

// CreateTrip handles POST /v1/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.tripService.CreateTrip(c.Request.Context(), service.CreateTripRequest{
		TotalPrice:     req.TotalPrice,
		Currency:       req.Currency,
		PaymentMethod:  req.PaymentMethod,
		CustomerName:   req.CustomerName,
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toTripResponse(trip))
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// GetAll handles GET /v1/trips
func (h *TripHandler) GetAll(c *gin.Context) {
	trips, err := h.tripService.GetAllTrips(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TripResponse, 0, len(trips))
	for _, trip := range trips {
		response = append(response, toTripResponse(trip))
	}

	respondJSON(c, http.StatusOK, response)
}

// AssignDriver handles POST /v1/trips/:id/assign
func (h *TripHandler) AssignDriver(c *gin.Context) {
	var req AssignDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var assignment *domain.DriverAssignment
	switch {
	case req.DriverID != "" && req.AdHoc == nil:
		assignment = domain.Affiliated(req.DriverID)
	case req.DriverID == "" && req.AdHoc != nil:
		assignment = domain.AdHoc(domain.AdHocDriver{
			Name:        req.AdHoc.Name,
			Phone:       req.AdHoc.Phone,
			PlateNumber: req.AdHoc.PlateNumber,
			FixedFee:    req.AdHoc.FixedFee,
		})
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "exactly one of driver_id or ad_hoc is required"})
		return
	}

	trip, err := h.tripService.AssignDriver(c.Request.Context(), c.Param("id"), assignment)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// ConfirmTrip handles POST /v1/trips/:id/confirm
func (h *TripHandler) ConfirmTrip(c *gin.Context) {
	h.transition(c, h.tripService.ConfirmTrip)
}

// StartTrip handles POST /v1/trips/:id/start
func (h *TripHandler) StartTrip(c *gin.Context) {
	h.transition(c, h.tripService.StartTrip)
}

// CancelTrip handles POST /v1/trips/:id/cancel
func (h *TripHandler) CancelTrip(c *gin.Context) {
	h.transition(c, h.tripService.CancelTrip)
}

// UpdatePrice handles PUT /v1/trips/:id/price
func (h *TripHandler) UpdatePrice(c *gin.Context) {
	var req UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.tripService.UpdatePrice(c.Request.Context(), c.Param("id"), req.TotalPrice)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// CompleteTrip handles POST /v1/trips/:id/complete
func (h *TripHandler) CompleteTrip(c *gin.Context) {
	var req CompleteTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	h.complete(c, c.Param("id"), domain.Trigger{
		Source:  domain.TriggerSource(req.TriggerSource),
		ActorID: req.ActorID,
	})
}

// ScanTrip handles POST /v1/trips/scan
func (h *TripHandler) ScanTrip(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	tripID, err := service.ScanCode(req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	h.complete(c, tripID, domain.Trigger{
		Source:  domain.TriggerQRScan,
		ActorID: req.ActorID,
	})
}

func (h *TripHandler) complete(c *gin.Context, tripID string, trigger domain.Trigger) {
	summary, err := h.gateway.CompleteTrip(c.Request.Context(), tripID, trigger)
	if errors.Is(err, service.ErrAlreadyCompleted) && summary != nil {
		err = nil
	}
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toSettlementResponse(summary))
}

func (h *TripHandler) transition(c *gin.Context, fn func(ctx context.Context, tripID string) (*domain.Trip, error)) {
	trip, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

func toTripResponse(trip *domain.Trip) TripResponse {
	response := TripResponse{
		TripID:         trip.ID,
		Status:         string(trip.Status),
		TotalPrice:     trip.TotalPrice,
		Currency:       trip.Currency,
		PaymentMethod:  string(trip.PaymentMethod),
		CustomerName:   trip.CustomerName,
		PickupAddress:  trip.PickupAddress,
		DropoffAddress: trip.DropoffAddress,
		CreatedAt:      formatTime(trip.CreatedAt),
		ConfirmedAt:    formatTime(trip.ConfirmedAt),
		StartedAt:      formatTime(trip.StartedAt),
		CompletedAt:    formatTime(trip.CompletedAt),
		CancelledAt:    formatTime(trip.CancelledAt),
	}

	if a := trip.Assignment; a != nil {
		response.Driver = &AssignmentResponse{
			Kind:     string(a.Kind),
			DriverID: a.DriverID,
		}
		if a.AdHoc != nil {
			fee := a.AdHoc.FixedFee
			response.Driver.Name = a.AdHoc.Name
			response.Driver.Phone = a.AdHoc.Phone
			response.Driver.PlateNumber = a.AdHoc.PlateNumber
			response.Driver.FixedFee = &fee
		}
	}

	return response
}

func toSettlementResponse(s *domain.SettlementSummary) SettlementResponse {
	return SettlementResponse{
		TripID:           s.TripID,
		DriverKey:        s.DriverKey.String(),
		Status:           string(s.Status),
		PaymentMethod:    string(s.PaymentMethod),
		TotalPrice:       s.TotalPrice,
		DriverDelta:      s.DriverDelta,
		CompanyRevenue:   s.CompanyRevenue,
		CompanyShare:     s.CompanyShare,
		BalanceBefore:    s.BalanceBefore,
		BalanceAfter:     s.BalanceAfter,
		TransactionID:    s.TransactionID,
		RevenueEntryID:   s.RevenueEntryID,
		TriggerSource:    string(s.TriggerSource),
		CompletedAt:      formatTime(s.CompletedAt),
		AlreadyCompleted: s.AlreadyCompleted,
	}
}
