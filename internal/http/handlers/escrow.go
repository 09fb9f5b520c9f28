package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stayhub/internal/http/middleware"
	"stayhub/internal/repositories"
	"stayhub/internal/services"
)

// EscrowHandler exposes the peer-to-peer escrow surface.
type EscrowHandler struct {
	Build func(requestID string) services.EscrowService
}

type createEscrowRequest struct {
	RecipientID  int64  `json:"recipient_id"`
	Amount       int64  `json:"amount"` // minor units
	ReleaseTerms string `json:"release_terms"`
	Payer        string `json:"payer"` // phone/email the provider charges
}

// Create handles POST /api/escrow.
func (h EscrowHandler) Create(c *gin.Context) {
	var req createEscrowRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	reqID := middleware.GetRequestID(c)
	payerID := middleware.GetUserID(c)
	e, err := h.Build(reqID).CreateDeposit(c.Request.Context(), payerID, req.RecipientID, req.Amount, req.ReleaseTerms, req.Payer)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// Get handles GET /api/escrow/:id.
func (h EscrowHandler) Get(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	e, err := (repositories.EscrowRepository{}).GetByID(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	callerID := middleware.GetUserID(c)
	if callerID != e.PayerID && callerID != e.RecipientID && !middleware.IsAdmin(c) {
		RespondError(c, http.StatusForbidden, "not a party to this escrow", nil)
		return
	}
	c.JSON(http.StatusOK, e)
}

// Release handles POST /api/escrow/:id/release.
func (h EscrowHandler) Release(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	reqID := middleware.GetRequestID(c)
	if err := h.Build(reqID).Release(id, middleware.GetUserID(c), middleware.IsAdmin(c)); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"escrow_id": id, "status": "RELEASED"})
}

type refundRequest struct {
	Reason string `json:"reason"`
}

// Refund handles POST /api/escrow/:id/refund.
func (h EscrowHandler) Refund(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req refundRequest
	_ = c.ShouldBindJSON(&req)

	reqID := middleware.GetRequestID(c)
	if err := h.Build(reqID).Refund(id, middleware.GetUserID(c), middleware.IsAdmin(c), req.Reason); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"escrow_id": id, "status": "REFUNDED"})
}

type disputeRequest struct {
	Reason string `json:"reason"`
}

// Dispute handles POST /api/escrow/:id/dispute.
func (h EscrowHandler) Dispute(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req disputeRequest
	_ = c.ShouldBindJSON(&req)

	reqID := middleware.GetRequestID(c)
	d, err := h.Build(reqID).Dispute(id, middleware.GetUserID(c), req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

type resolveRequest struct {
	Resolution string `json:"resolution"` // release | refund | split
	SplitPct   int64  `json:"split_pct"`  // percentage to recipient when split
}

// Resolve handles POST /api/escrow/:id/resolve (admin/arbiter only).
func (h EscrowHandler) Resolve(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req resolveRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	reqID := middleware.GetRequestID(c)
	err := h.Build(reqID).ResolveDispute(id, middleware.GetUserID(c), services.DisputeDecision{
		Resolution: req.Resolution,
		SplitPct:   req.SplitPct,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"escrow_id": id, "resolution": req.Resolution})
}
