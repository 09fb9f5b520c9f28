package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stayhub/internal/domain/models"
	"stayhub/internal/http/middleware"
	"stayhub/internal/provider"
	"stayhub/internal/repositories"
	"stayhub/internal/services"
)

// BookingHandler exposes the settlement-facing booking surface: initiate a
// collection, poll payment status, download the receipt, validate
// check-in/out.
type BookingHandler struct {
	Adapter  provider.Adapter
	Build    SettlementFactory
	Checkin  func(requestID string) services.CheckinService
	Receipts func(requestID string) services.ReceiptService
}

type payRequest struct {
	Payer string `json:"payer"` // phone/email the provider charges
}

// Pay handles POST /api/bookings/:id/pay.
func (h BookingHandler) Pay(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req payRequest
	_ = c.ShouldBindJSON(&req)

	reqID := middleware.GetRequestID(c)
	refID, err := h.Build(reqID).InitiateCollection(c.Request.Context(), id, req.Payer, h.Adapter)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refid": refID, "status": provider.StatusPending})
}

// PaymentStatus handles GET /api/bookings/:id/payment for polling UIs.
func (h BookingHandler) PaymentStatus(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	booking, err := (repositories.BookingRepository{}).GetByID(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"booking_id":         booking.ID,
		"payment_status":     booking.PaymentStatus,
		"status":             booking.Status,
		"transaction_id":     booking.TransactionID,
		"wallet_distributed": booking.WalletDistributed,
	})
}

// Receipt handles GET /api/bookings/:id/receipt.
func (h BookingHandler) Receipt(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	reqID := middleware.GetRequestID(c)
	pdf, filename, err := h.Receipts(reqID).Generate(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

type checkInRequest struct {
	Code string `json:"code"`
}

// CheckIn handles POST /api/bookings/:id/checkin (host only).
func (h BookingHandler) CheckIn(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req checkInRequest
	_ = c.ShouldBindJSON(&req)

	reqID := middleware.GetRequestID(c)
	callerID := middleware.GetUserID(c)
	if err := h.Checkin(reqID).ValidateCheckIn(id, callerID, req.Code); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_id": id, "status": models.BookingCheckedIn})
}

// CheckOut handles POST /api/bookings/:id/checkout (host only).
func (h BookingHandler) CheckOut(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	reqID := middleware.GetRequestID(c)
	callerID := middleware.GetUserID(c)
	if err := h.Checkin(reqID).ValidateCheckOut(id, callerID); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_id": id, "status": models.BookingCheckout})
}
