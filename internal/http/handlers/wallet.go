package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stayhub/internal/http/middleware"
	"stayhub/internal/repositories"
	"stayhub/internal/services"
)

// WalletHandler exposes a user's own ledger position and withdrawals.
type WalletHandler struct {
	Ledger func(requestID string) services.LedgerService
}

// Get handles GET /api/wallet.
func (h WalletHandler) Get(c *gin.Context) {
	userID := middleware.GetUserID(c)
	w, err := (repositories.WalletRepository{}).GetByUserID(userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Transactions handles GET /api/wallet/transactions?limit=&offset=.
func (h WalletHandler) Transactions(c *gin.Context) {
	userID := middleware.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	txs, err := (repositories.WalletRepository{}).ListTransactions(userID, limit, offset)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "count": len(txs)})
}

type withdrawRequest struct {
	Amount      int64  `json:"amount"` // minor units
	Destination string `json:"destination"`
}

// Withdraw handles POST /api/wallet/withdraw.
func (h WalletHandler) Withdraw(c *gin.Context) {
	var req withdrawRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.Destination == "" {
		RespondError(c, http.StatusBadRequest, "destination is required", nil)
		return
	}

	reqID := middleware.GetRequestID(c)
	userID := middleware.GetUserID(c)
	ref, err := h.Ledger(reqID).Withdraw(c.Request.Context(), userID, req.Amount, req.Destination)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reference": ref, "amount": req.Amount})
}
